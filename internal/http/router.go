package http

import (
	"net/http"
	"time"

	"barbershop/backend/internal/calendar"
	"barbershop/backend/internal/config"
	"barbershop/backend/internal/domain/availability"
	"barbershop/backend/internal/domain/blocking"
	"barbershop/backend/internal/domain/news"
	"barbershop/backend/internal/domain/profile"
	"barbershop/backend/internal/domain/reservation"
	"barbershop/backend/internal/domain/schedule"
	"barbershop/backend/internal/domain/timegrid"
	"barbershop/backend/internal/httpjson"
	"barbershop/backend/internal/i18n"
	"barbershop/backend/internal/live"
	"barbershop/backend/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/text/language"
)

type RouterDeps struct {
	Cfg            config.Config
	Verifier       middleware.TokenVerifier
	Logger         *zap.Logger
	Mirror         *live.Mirror
	ProfileSvc     *profile.Service
	ReservationSvc *reservation.Service
	BlockingSvc    *blocking.Service
	NewsSvc        *news.Service
	// Done ends open event streams; close it when the server shuts down.
	Done           <-chan struct{}

	Grid     timegrid.Grid
	Policy   schedule.WeekdayPolicy
	Window   schedule.Options
	Location *time.Location
	Now      func() time.Time
	Language language.Tag
}

type adminRow struct {
	reservation.AdminEntry
	TelLink string `json:"telLink"`
}

func labeler(tag language.Tag) schedule.Labeler {
	if tag == language.English {
		return schedule.EnglishLabel
	}
	return i18n.HebrewLabel
}

func NewRouter(d RouterDeps) http.Handler {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Location == nil {
		d.Location = time.Local
	}
	if d.Grid.Len() == 0 {
		d.Grid = timegrid.Default()
	}
	if d.Language == language.Und {
		d.Language = i18n.Default
	}
	limiter := middleware.NewRateLimiter(d.Cfg.RateLimitPerMin)

	// fail logs store failures and answers in the caller's language.
	fail := func(w http.ResponseWriter, r *http.Request, err error, mapErr func(error) (int, i18n.Key)) {
		status, key := mapErr(err)
		if status >= 500 {
			d.Logger.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
		}
		if key == i18n.MsgSetupFailed {
			signOut(w, r)
			return
		}
		Fail(w, r, status, key)
	}
	identity := func(r *http.Request) (*middleware.AuthUser, bool) {
		return middleware.GetAuthUser(r.Context())
	}
	urlDate := func(w http.ResponseWriter, r *http.Request) (calendar.Date, bool) {
		dt, err := calendar.ParseDate(chi.URLParam(r, "date"))
		if err != nil {
			Fail(w, r, http.StatusBadRequest, i18n.MsgBadRequest)
			return calendar.Date{}, false
		}
		return dt, true
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestLogger(d.Logger))
	r.Use(middleware.CORS(d.Cfg.AllowedOrigins))
	r.Use(middleware.WithLanguage(d.Language))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		WriteJSON(w, 200, map[string]any{"ok": true, "ts": time.Now().UTC().Format(time.RFC3339)})
	})
	r.Handle("/metrics", promhttp.Handler())

	// Protected routes
	r.Group(func(pr chi.Router) {
		pr.Use(middleware.WithAuth(d.Verifier))

		pr.Get("/v1/me", func(w http.ResponseWriter, r *http.Request) {
			au, _ := identity(r)
			sess, err := d.ProfileSvc.Resolve(r.Context(), au.Identity())
			if err != nil {
				fail(w, r, err, mapProfileError)
				return
			}
			WriteJSON(w, 200, map[string]any{
				"uid":         au.UID,
				"email":       au.Email,
				"displayName": au.DisplayName,
				"route":       sess.Route,
				"admin":       sess.Admin,
				"profile":     sess.Profile,
			})
		})

		pr.Get("/v1/me/profile", func(w http.ResponseWriter, r *http.Request) {
			au, _ := identity(r)
			p, err := d.ProfileSvc.GetProfile(r.Context(), au.UID)
			if err != nil {
				fail(w, r, err, mapProfileError)
				return
			}
			WriteJSON(w, 200, p)
		})

		pr.With(limiter.Middleware).Put("/v1/me/phone", func(w http.ResponseWriter, r *http.Request) {
			au, _ := identity(r)

			var in profile.UpdatePhoneInput
			if err := httpjson.Read(r, &in); err != nil {
				Fail(w, r, 400, i18n.MsgBadRequest)
				return
			}
			in.Trim()

			out, err := d.ProfileSvc.SavePhone(r.Context(), au.Identity(), in)
			if err != nil {
				fail(w, r, err, mapProfileError)
				return
			}
			WriteJSON(w, 200, out)
		})

		pr.Get("/v1/news/latest", func(w http.ResponseWriter, r *http.Request) {
			WriteJSON(w, 200, map[string]any{"news": d.Mirror.News()})
		})

		// ===== Booking =====
		pr.Get("/v1/dates", func(w http.ResponseWriter, r *http.Request) {
			var selected calendar.Date
			if s := r.URL.Query().Get("selected"); s != "" {
				dt, err := calendar.ParseDate(s)
				if err != nil {
					Fail(w, r, 400, i18n.MsgBadRequest)
					return
				}
				selected = dt
			}

			opts := d.Window
			opts.Label = labeler(middleware.Language(r.Context()))
			window := schedule.Generate(d.ReservationSvc.Today(), d.Mirror.Board().BlockedDays, d.Policy, opts)

			out := map[string]any{"dates": window, "selected": nil}
			if sel, ok := schedule.Reselect(window, selected); ok {
				out["selected"] = sel
			}
			WriteJSON(w, 200, out)
		})

		pr.Get("/v1/dates/{date}/slots", func(w http.ResponseWriter, r *http.Request) {
			au, _ := identity(r)
			dt, ok := urlDate(w, r)
			if !ok {
				return
			}
			board := d.Mirror.Board()
			WriteJSON(w, 200, map[string]any{
				"date":        dt,
				"label":       labeler(middleware.Language(r.Context()))(dt),
				"dayBlocked":  board.DayBlocked(dt),
				"slots":       availability.ClassifyDay(dt, d.Grid, board, au.UID, d.Now(), d.Location),
				"reservation": reservation.ForUserOnDate(board, au.UID, dt),
			})
		})

		pr.Get("/v1/me/reservations/{date}", func(w http.ResponseWriter, r *http.Request) {
			au, _ := identity(r)
			dt, ok := urlDate(w, r)
			if !ok {
				return
			}
			WriteJSON(w, 200, map[string]any{
				"reservation": reservation.ForUserOnDate(d.Mirror.Board(), au.UID, dt),
			})
		})

		pr.With(limiter.Middleware).Post("/v1/reservations", func(w http.ResponseWriter, r *http.Request) {
			au, _ := identity(r)

			var in reservation.BookInput
			if err := httpjson.Read(r, &in); err != nil {
				Fail(w, r, 400, i18n.MsgBadRequest)
				return
			}
			in.Trim()

			out, err := d.ReservationSvc.Book(r.Context(), au.Identity(), in)
			if err != nil {
				fail(w, r, err, mapReservationError)
				return
			}
			status := 201
			if out.Outcome == reservation.Unchanged {
				status = 200
			}
			lang := middleware.Language(r.Context())
			WriteJSON(w, status, map[string]any{
				"reservation": out.Reservation,
				"outcome":     out.Outcome,
				"message":     i18n.T(lang, i18n.MsgBooked, labeler(lang)(out.Reservation.Date), out.Reservation.Time),
			})
		})

		pr.With(limiter.Middleware).Delete("/v1/me/reservations/{date}", func(w http.ResponseWriter, r *http.Request) {
			au, _ := identity(r)
			out, err := d.ReservationSvc.Cancel(r.Context(), au.Identity(), chi.URLParam(r, "date"))
			if err != nil {
				fail(w, r, err, mapReservationError)
				return
			}
			WriteJSON(w, 200, map[string]any{
				"reservation": out,
				"message":     i18n.T(middleware.Language(r.Context()), i18n.MsgCancelled),
			})
		})

		pr.Get("/v1/events", streamEvents(d.Mirror, d.Done, d.Logger))

		// ===== Admin =====
		pr.Route("/v1/admin", func(ar chi.Router) {
			ar.Use(middleware.RequireAdmin(d.ProfileSvc.IsAdmin))

			ar.Get("/reservations", func(w http.ResponseWriter, r *http.Request) {
				view := reservation.AdminList(d.Mirror.Board(), d.ReservationSvc.Today())
				rows := make([]adminRow, 0, len(view.Reservations))
				for _, e := range view.Reservations {
					rows = append(rows, adminRow{AdminEntry: e, TelLink: profile.TelLink(e.Phone)})
				}
				WriteJSON(w, 200, map[string]any{
					"reservations":  rows,
					"todayCount":    view.TodayCount,
					"upcomingCount": view.UpcomingCount,
				})
			})

			ar.Delete("/reservations/{id}", func(w http.ResponseWriter, r *http.Request) {
				out, err := d.ReservationSvc.CancelByID(r.Context(), chi.URLParam(r, "id"))
				if err != nil {
					fail(w, r, err, mapReservationError)
					return
				}
				WriteJSON(w, 200, map[string]any{
					"reservation": out,
					"message":     i18n.T(middleware.Language(r.Context()), i18n.MsgCancelled),
				})
			})

			// ----- blocked days -----
			ar.Get("/blocked-days", func(w http.ResponseWriter, r *http.Request) {
				days, err := d.BlockingSvc.FutureBlockedDays(r.Context(), d.ReservationSvc.Today())
				if err != nil {
					fail(w, r, err, mapBlockingError)
					return
				}
				WriteJSON(w, 200, map[string]any{"days": days})
			})

			ar.Put("/blocked-days/{date}", func(w http.ResponseWriter, r *http.Request) {
				date := chi.URLParam(r, "date")
				if err := d.BlockingSvc.BlockDay(r.Context(), date); err != nil {
					fail(w, r, err, mapBlockingError)
					return
				}
				WriteJSON(w, 200, map[string]any{"date": date, "blocked": true})
			})

			ar.Delete("/blocked-days/{date}", func(w http.ResponseWriter, r *http.Request) {
				date := chi.URLParam(r, "date")
				if err := d.BlockingSvc.UnblockDay(r.Context(), date); err != nil {
					fail(w, r, err, mapBlockingError)
					return
				}
				WriteJSON(w, 200, map[string]any{"date": date, "blocked": false})
			})

			ar.Post("/blocked-days/unblock-future", func(w http.ResponseWriter, r *http.Request) {
				res, err := d.BlockingSvc.UnblockAllFutureDays(r.Context(), d.ReservationSvc.Today())
				if err != nil {
					fail(w, r, err, mapBlockingError)
					return
				}
				writeBulk(w, r, res)
			})

			// ----- blocked slots -----
			ar.Get("/blocked-slots", func(w http.ResponseWriter, r *http.Request) {
				slots, err := d.BlockingSvc.FutureBlockedSlots(r.Context(), d.ReservationSvc.Today())
				if err != nil {
					fail(w, r, err, mapBlockingError)
					return
				}
				WriteJSON(w, 200, map[string]any{"slots": slots})
			})

			ar.Post("/blocked-slots", func(w http.ResponseWriter, r *http.Request) {
				var in blocking.RangeInput
				if err := httpjson.Read(r, &in); err != nil {
					Fail(w, r, 400, i18n.MsgBadRequest)
					return
				}
				added, err := d.BlockingSvc.BlockRange(r.Context(), in.Date, in.Start, in.End)
				if blocking.IsErrBadRequest(err) {
					Fail(w, r, 400, i18n.MsgBadRange)
					return
				}
				if err != nil {
					fail(w, r, err, mapBlockingError)
					return
				}
				WriteJSON(w, 200, map[string]any{"date": in.Date, "added": added})
			})

			ar.Delete("/blocked-slots/{date}/{time}", func(w http.ResponseWriter, r *http.Request) {
				if err := d.BlockingSvc.UnblockSlot(r.Context(), chi.URLParam(r, "date"), chi.URLParam(r, "time")); err != nil {
					fail(w, r, err, mapBlockingError)
					return
				}
				WriteJSON(w, 200, map[string]any{"blocked": false})
			})

			ar.Post("/blocked-slots/unblock-future", func(w http.ResponseWriter, r *http.Request) {
				res, err := d.BlockingSvc.UnblockAllFutureSlots(r.Context(), d.ReservationSvc.Today())
				if err != nil {
					fail(w, r, err, mapBlockingError)
					return
				}
				writeBulk(w, r, res)
			})

			// ----- news -----
			ar.Post("/news", func(w http.ResponseWriter, r *http.Request) {
				var in news.PostInput
				if err := httpjson.Read(r, &in); err != nil {
					Fail(w, r, 400, i18n.MsgBadRequest)
					return
				}
				id, err := d.NewsSvc.Post(r.Context(), in)
				if err != nil {
					fail(w, r, err, mapNewsError)
					return
				}
				WriteJSON(w, 201, map[string]any{"id": id})
			})
		})
	})

	return r
}

func writeBulk(w http.ResponseWriter, r *http.Request, res *blocking.BulkResult) {
	WriteJSON(w, 200, map[string]any{
		"result":  res,
		"message": i18n.T(middleware.Language(r.Context()), i18n.MsgBulkUnblocked, res.Succeeded, res.Failed),
	})
}

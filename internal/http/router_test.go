package http

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"barbershop/backend/internal/domain/blocking"
	"barbershop/backend/internal/domain/news"
	"barbershop/backend/internal/domain/profile"
	"barbershop/backend/internal/domain/reservation"
	"barbershop/backend/internal/domain/schedule"
	"barbershop/backend/internal/domain/timegrid"
	"barbershop/backend/internal/live"
	"barbershop/backend/internal/store"

	"firebase.google.com/go/v4/auth"
)

// Sunday noon
var now = time.Date(2025, 6, 8, 12, 0, 0, 0, time.UTC)

type fakeVerifier map[string]*auth.Token

func (f fakeVerifier) VerifyIDToken(_ context.Context, idToken string) (*auth.Token, error) {
	if tok, ok := f[idToken]; ok {
		return tok, nil
	}
	return nil, errors.New("invalid token")
}

var tokens = fakeVerifier{
	"alice":  {UID: "alice", Claims: map[string]any{"name": "Alice", "email": "alice@example.com"}},
	"bob":    {UID: "bob", Claims: map[string]any{"name": "Bob"}},
	"barber": {UID: "barber", Claims: map[string]any{"admin": true}},
}

type testAPI struct {
	h            http.Handler
	mem          *store.Memory
	closeStreams context.CancelFunc
}

func newTestAPI(t *testing.T) testAPI {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	mem := store.NewMemory()
	mirror := live.New(mem, nil)
	if err := mirror.Start(ctx); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(mirror.Stop)

	grid := timegrid.Default()
	profiles := profile.NewService(profile.NewRepo(mem), nil, "", nil)
	blockRepo := blocking.NewRepo(mem, nil)
	clock := func() time.Time { return now }
	streams, closeStreams := context.WithCancel(context.Background())
	t.Cleanup(closeStreams)

	bookings := reservation.NewService(reservation.NewRepo(mem, nil), blockRepo, profiles, reservation.Options{
		Grid:     grid,
		Location: time.UTC,
		Now:      clock,
	})

	h := NewRouter(RouterDeps{
		Verifier:       tokens,
		Mirror:         mirror,
		ProfileSvc:     profiles,
		ReservationSvc: bookings,
		BlockingSvc:    blocking.NewService(blockRepo, grid, nil),
		NewsSvc:        news.NewService(mem, nil),
		Done:           streams.Done(),
		Grid:           grid,
		Policy:         schedule.DefaultPolicy(),
		Location:       time.UTC,
		Now:            clock,
	})
	return testAPI{h: h, mem: mem, closeStreams: closeStreams}
}

func (a testAPI) do(t *testing.T, method, path, token, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Accept-Language", "en")
	rec := httptest.NewRecorder()
	a.h.ServeHTTP(rec, req)

	out := map[string]any{}
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	return rec, out
}

func (a testAPI) savePhone(t *testing.T, token string) {
	t.Helper()
	if rec, out := a.do(t, "PUT", "/v1/me/phone", token, `{"phone":"050-123-4567"}`); rec.Code != 200 {
		t.Fatalf("save phone: %d %v", rec.Code, out)
	}
}

func TestAuthRequired(t *testing.T) {
	a := newTestAPI(t)

	rec, out := a.do(t, "GET", "/v1/me", "", "")
	if rec.Code != 401 || out["error"] != "Please sign in to continue." {
		t.Fatalf("no token: %d %v", rec.Code, out)
	}
	if rec, _ := a.do(t, "GET", "/v1/me", "forged", ""); rec.Code != 401 {
		t.Fatalf("bad token: %d", rec.Code)
	}

	req := httptest.NewRequest("GET", "/v1/me", nil)
	hrec := httptest.NewRecorder()
	a.h.ServeHTTP(hrec, req)
	var apiErr APIError
	_ = json.Unmarshal(hrec.Body.Bytes(), &apiErr)
	if apiErr.Error != "יש להתחבר כדי להמשיך." {
		t.Fatalf("default language error = %q", apiErr.Error)
	}

	if rec, _ := a.do(t, "GET", "/healthz", "", ""); rec.Code != 200 {
		t.Fatalf("healthz: %d", rec.Code)
	}
}

func TestMeRoutes(t *testing.T) {
	a := newTestAPI(t)

	_, out := a.do(t, "GET", "/v1/me", "alice", "")
	if out["route"] != string(profile.RouteNeedsPhone) {
		t.Fatalf("before phone: %v", out)
	}

	if rec, _ := a.do(t, "GET", "/v1/me/profile", "alice", ""); rec.Code != 404 {
		t.Fatalf("profile before phone: %d", rec.Code)
	}

	rec, out := a.do(t, "PUT", "/v1/me/phone", "alice", `{"phone":"123"}`)
	if rec.Code != 400 || !strings.HasPrefix(out["error"].(string), "Enter a valid Israeli mobile number") {
		t.Fatalf("bad phone: %d %v", rec.Code, out)
	}
	a.savePhone(t, "alice")

	_, out = a.do(t, "GET", "/v1/me", "alice", "")
	if out["route"] != string(profile.RouteClient) {
		t.Fatalf("after phone: %v", out)
	}
	p := out["profile"].(map[string]any)
	if p["phone"] != "0501234567" || p["displayName"] != "Alice" {
		t.Fatalf("profile = %v", p)
	}

	rec, out = a.do(t, "GET", "/v1/me/profile", "alice", "")
	if rec.Code != 200 || out["phone"] != "0501234567" {
		t.Fatalf("stored profile: %d %v", rec.Code, out)
	}

	_, out = a.do(t, "GET", "/v1/me", "barber", "")
	if out["route"] != string(profile.RouteAdmin) || out["admin"] != true {
		t.Fatalf("admin: %v", out)
	}
}

func TestBookingFlow(t *testing.T) {
	a := newTestAPI(t)

	rec, _ := a.do(t, "POST", "/v1/reservations", "alice", `{"date":"2025-06-10","time":"10:00"}`)
	if rec.Code != 400 {
		t.Fatalf("booking without phone: %d", rec.Code)
	}
	a.savePhone(t, "alice")
	a.savePhone(t, "bob")

	rec, out := a.do(t, "POST", "/v1/reservations", "alice", `{"date":"2025-06-10","time":"10:00"}`)
	if rec.Code != 201 || out["outcome"] != "created" {
		t.Fatalf("book: %d %v", rec.Code, out)
	}
	if out["message"] != "Your reservation is confirmed for June 10 at 10:00" {
		t.Fatalf("message = %v", out["message"])
	}
	if rec, out := a.do(t, "POST", "/v1/reservations", "alice", `{"date":"2025-06-10","time":"10:00"}`); rec.Code != 200 || out["outcome"] != "unchanged" {
		t.Fatalf("rebook: %d %v", rec.Code, out)
	}

	rec, out = a.do(t, "POST", "/v1/reservations", "bob", `{"date":"2025-06-10","time":"10:00"}`)
	if rec.Code != 409 || out["error"] != "This time slot was just taken." {
		t.Fatalf("conflict: %d %v", rec.Code, out)
	}
	if rec, _ := a.do(t, "POST", "/v1/reservations", "bob", `{"date":"2025-06-08","time":"09:00"}`); rec.Code != 422 {
		t.Fatalf("past: %d", rec.Code)
	}
	for _, d := range []string{"2025-06-14", "2027-01-04"} {
		if rec, _ := a.do(t, "POST", "/v1/reservations", "bob", `{"date":"`+d+`","time":"10:00"}`); rec.Code != 422 {
			t.Fatalf("%s outside the window: %d", d, rec.Code)
		}
	}
	if rec, _ := a.do(t, "POST", "/v1/reservations", "bob", `{"date":"2025-06-10","time":"10:00","extra":1}`); rec.Code != 400 {
		t.Fatalf("unknown field: %d", rec.Code)
	}

	req := httptest.NewRequest("GET", "/v1/dates/2025-06-10/slots", nil)
	req.Header.Set("Authorization", "Bearer bob")
	srec := httptest.NewRecorder()
	a.h.ServeHTTP(srec, req)
	var view struct {
		Slots []struct {
			Time       string `json:"time"`
			Status     string `json:"status"`
			Selectable bool   `json:"selectable"`
		} `json:"slots"`
		Reservation *struct{} `json:"reservation"`
	}
	if err := json.Unmarshal(srec.Body.Bytes(), &view); err != nil {
		t.Fatal(err)
	}
	if len(view.Slots) != timegrid.Default().Len() || view.Reservation != nil {
		t.Fatalf("view = %+v", view)
	}
	for _, s := range view.Slots {
		if s.Time == "10:00" && (s.Status != "OTHER_RESERVED" || s.Selectable) {
			t.Fatalf("10:00 = %+v", s)
		}
		if s.Time == "15:00" && !s.Selectable {
			t.Fatalf("15:00 = %+v", s)
		}
	}

	_, out = a.do(t, "GET", "/v1/me/reservations/2025-06-10", "alice", "")
	if r, ok := out["reservation"].(map[string]any); !ok || r["time"] != "10:00" {
		t.Fatalf("my reservation = %v", out)
	}

	if rec, _ := a.do(t, "DELETE", "/v1/me/reservations/2025-06-10", "alice", ""); rec.Code != 200 {
		t.Fatalf("cancel: %d", rec.Code)
	}
	rec, out = a.do(t, "DELETE", "/v1/me/reservations/2025-06-10", "alice", "")
	if rec.Code != 404 || out["error"] != "No reservation to cancel on this date." {
		t.Fatalf("cancel again: %d %v", rec.Code, out)
	}
}

func TestDatesWindow(t *testing.T) {
	a := newTestAPI(t)

	_, out := a.do(t, "GET", "/v1/dates", "alice", "")
	dates := out["dates"].([]any)
	if len(dates) != 5 || out["selected"] != "2025-06-08" {
		t.Fatalf("window = %v selected %v", dates, out["selected"])
	}
	first := dates[0].(map[string]any)
	if first["date"] != "2025-06-08" || first["label"] != "June 8" {
		t.Fatalf("first = %v", first)
	}

	_, out = a.do(t, "GET", "/v1/dates?selected=2025-06-10", "alice", "")
	if out["selected"] != "2025-06-10" {
		t.Fatalf("selected = %v", out["selected"])
	}

	if rec, _ := a.do(t, "PUT", "/v1/admin/blocked-days/2025-06-10", "barber", ""); rec.Code != 200 {
		t.Fatalf("block day: %d", rec.Code)
	}
	_, out = a.do(t, "GET", "/v1/dates?selected=2025-06-10", "alice", "")
	if out["selected"] != "2025-06-08" {
		t.Fatalf("blocked selection kept: %v", out["selected"])
	}
	for _, d := range out["dates"].([]any) {
		if d.(map[string]any)["date"] == "2025-06-10" {
			t.Fatal("blocked day still offered")
		}
	}

	a.savePhone(t, "alice")
	rec, out := a.do(t, "POST", "/v1/reservations", "alice", `{"date":"2025-06-10","time":"10:00"}`)
	if rec.Code != 422 || out["error"] != "This date or time is not available." {
		t.Fatalf("book on blocked day: %d %v", rec.Code, out)
	}
}

func TestAdminRoutes(t *testing.T) {
	a := newTestAPI(t)

	if rec, _ := a.do(t, "GET", "/v1/admin/reservations", "alice", ""); rec.Code != 403 {
		t.Fatalf("client on admin route: %d", rec.Code)
	}

	a.savePhone(t, "alice")
	if rec, _ := a.do(t, "POST", "/v1/reservations", "alice", `{"date":"2025-06-10","time":"10:00"}`); rec.Code != 201 {
		t.Fatalf("book: %d", rec.Code)
	}

	_, out := a.do(t, "GET", "/v1/admin/reservations", "barber", "")
	rows := out["reservations"].([]any)
	if len(rows) != 1 || out["upcomingCount"] != float64(1) || out["todayCount"] != float64(0) {
		t.Fatalf("admin list = %v", out)
	}
	row := rows[0].(map[string]any)
	if row["telLink"] != "tel:+972501234567" || row["userId"] != "alice" {
		t.Fatalf("row = %v", row)
	}

	rec, out := a.do(t, "POST", "/v1/admin/blocked-slots", "barber", `{"date":"2025-06-11","start":"10:00","end":"11:00"}`)
	if rec.Code != 200 || len(out["added"].([]any)) != 3 {
		t.Fatalf("block range: %d %v", rec.Code, out)
	}
	rec, out = a.do(t, "POST", "/v1/admin/blocked-slots", "barber", `{"date":"2025-06-11","start":"11:00","end":"10:00"}`)
	if rec.Code != 400 || out["error"] != "The start time must be before or equal to the end time." {
		t.Fatalf("reversed range: %d %v", rec.Code, out)
	}
	if rec, _ := a.do(t, "DELETE", "/v1/admin/blocked-slots/2025-06-11/10:30", "barber", ""); rec.Code != 200 {
		t.Fatalf("unblock slot: %d", rec.Code)
	}
	_, out = a.do(t, "GET", "/v1/admin/blocked-slots", "barber", "")
	if len(out["slots"].([]any)) != 2 {
		t.Fatalf("slots = %v", out)
	}

	rec, out = a.do(t, "POST", "/v1/admin/blocked-slots/unblock-future", "barber", "")
	res := out["result"].(map[string]any)
	if rec.Code != 200 || res["succeeded"] != float64(2) || res["failed"] != float64(0) {
		t.Fatalf("unblock future: %d %v", rec.Code, out)
	}

	if rec, _ := a.do(t, "POST", "/v1/admin/news", "barber", `{"message":"  "}`); rec.Code != 400 {
		t.Fatalf("empty news: %d", rec.Code)
	}
	if rec, _ := a.do(t, "POST", "/v1/admin/news", "barber", `{"message":"closed on Friday"}`); rec.Code != 201 {
		t.Fatalf("post news: %d", rec.Code)
	}
	_, out = a.do(t, "GET", "/v1/news/latest", "alice", "")
	if n, ok := out["news"].(map[string]any); !ok || n["message"] != "closed on Friday" {
		t.Fatalf("latest news = %v", out)
	}

	_, out = a.do(t, "GET", "/v1/admin/reservations", "barber", "")
	id := out["reservations"].([]any)[0].(map[string]any)["id"].(string)
	if rec, _ := a.do(t, "DELETE", "/v1/admin/reservations/"+id, "barber", ""); rec.Code != 200 {
		t.Fatalf("admin cancel: %d", rec.Code)
	}
	if rec, _ := a.do(t, "DELETE", "/v1/admin/reservations/"+id, "barber", ""); rec.Code != 404 {
		t.Fatalf("admin cancel twice: %d", rec.Code)
	}
}

func TestEventStream(t *testing.T) {
	a := newTestAPI(t)
	srv := httptest.NewServer(a.h)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, "GET", srv.URL+"/v1/events", nil)
	req.Header.Set("Authorization", "Bearer alice")
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type = %q", ct)
	}

	lines := bufio.NewReader(resp.Body)
	readUntil := func(want string) {
		t.Helper()
		for {
			line, err := lines.ReadString('\n')
			if err != nil {
				t.Fatalf("waiting for %q: %v", want, err)
			}
			if strings.Contains(line, want) {
				return
			}
		}
	}

	readUntil("event: ready")
	if err := a.mem.Set(context.Background(), "blockedDays/2025-06-11", true); err != nil {
		t.Fatal(err)
	}
	readUntil(`"feed":"blockedDays"`)
}

func TestShutdownEndsEventStreams(t *testing.T) {
	a := newTestAPI(t)
	srv := httptest.NewUnstartedServer(a.h)
	srv.Config.RegisterOnShutdown(a.closeStreams)
	srv.Start()
	defer srv.Close()

	req, _ := http.NewRequest("GET", srv.URL+"/v1/events", nil)
	req.Header.Set("Authorization", "Bearer alice")
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	line, err := bufio.NewReader(resp.Body).ReadString('\n')
	if err != nil || !strings.Contains(line, "event: ready") {
		t.Fatalf("first line %q: %v", line, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := srv.Config.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown with an open stream: %v", err)
	}
}

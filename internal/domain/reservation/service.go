package reservation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"barbershop/backend/internal/calendar"
	"barbershop/backend/internal/domain/availability"
	"barbershop/backend/internal/domain/schedule"
	"barbershop/backend/internal/domain/timegrid"
	"barbershop/backend/internal/lock"
	"barbershop/backend/internal/metrics"
	"barbershop/backend/internal/models"

	"go.uber.org/zap"
)

// Blocks answers blocked-day and blocked-slot lookups from the store.
type Blocks interface {
	IsDayBlocked(ctx context.Context, d calendar.Date) (bool, error)
	IsSlotBlocked(ctx context.Context, d calendar.Date, c calendar.Clock) (bool, error)
	Days(ctx context.Context) (map[calendar.Date]bool, error)
}

// Phones returns the saved phone of a user, or "" when none is saved.
type Phones interface {
	Phone(ctx context.Context, uid string) (string, error)
}

type Options struct {
	Grid     timegrid.Grid
	Location *time.Location
	Now      func() time.Time
	Lock     lock.Locker
	Logger   *zap.Logger

	// Policy and Window bound the dates a client may book. A zero Policy
	// means schedule.DefaultPolicy.
	Policy schedule.WeekdayPolicy
	Window schedule.Options
}

type Service struct {
	repo   *Repo
	blocks Blocks
	phones Phones

	grid   timegrid.Grid
	policy schedule.WeekdayPolicy
	window schedule.Options
	loc    *time.Location
	now    func() time.Time
	lock   lock.Locker
	log    *zap.Logger
}

func NewService(repo *Repo, blocks Blocks, phones Phones, opts Options) *Service {
	s := &Service{
		repo:   repo,
		blocks: blocks,
		phones: phones,
		grid:   opts.Grid,
		policy: opts.Policy,
		window: opts.Window,
		loc:    opts.Location,
		now:    opts.Now,
		lock:   opts.Lock,
		log:    opts.Logger,
	}
	if s.grid.Len() == 0 {
		s.grid = timegrid.Default()
	}
	if s.policy == (schedule.WeekdayPolicy{}) {
		s.policy = schedule.DefaultPolicy()
	}
	if s.loc == nil {
		s.loc = time.Local
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.lock == nil {
		s.lock = lock.Noop{}
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	return s
}

// Today is the current business-local date.
func (s *Service) Today() calendar.Date {
	return calendar.DateOf(s.now().In(s.loc))
}

// Book claims a slot for the caller. A caller who already holds another
// slot on the same date is moved; holding the same slot is a no-op.
func (s *Service) Book(ctx context.Context, who models.Identity, in BookInput) (*BookResult, error) {
	in.Trim()

	if who.UID == "" {
		return nil, fmt.Errorf("%w: sign in to book", ErrUnauthorized)
	}
	phone, err := s.phones.Phone(ctx, who.UID)
	if err != nil {
		return nil, err
	}
	if phone == "" {
		metrics.RecordBooking("rejected")
		return nil, ErrPhoneRequired
	}

	d, err := calendar.ParseDate(in.Date)
	if err != nil {
		metrics.RecordBooking("rejected")
		return nil, fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	c, err := calendar.ParseClock(in.Time)
	if err != nil {
		metrics.RecordBooking("rejected")
		return nil, fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	if !s.grid.Contains(c) {
		metrics.RecordBooking("rejected")
		return nil, fmt.Errorf("%w: %s is not a bookable time", ErrBadRequest, c)
	}

	if err := s.checkNotBlocked(ctx, d, c); err != nil {
		return nil, err
	}
	if !c.On(d, s.loc).After(s.now()) {
		metrics.RecordBooking("rejected")
		return nil, fmt.Errorf("%w: %s %s", ErrPast, d, c)
	}
	if err := s.checkInWindow(ctx, d); err != nil {
		return nil, err
	}

	release, err := s.lock.Acquire(ctx, d.String()+"/"+c.String())
	if errors.Is(err, lock.ErrBusy) {
		metrics.RecordBooking("conflict")
		return nil, fmt.Errorf("%w: %s %s", ErrConflict, d, c)
	}
	if err != nil {
		return nil, err
	}
	defer release()

	existing, err := s.repo.ByDate(ctx, d)
	if err != nil {
		metrics.RecordBooking("error")
		return nil, err
	}
	if !availability.IsAvailableForWrite(d, c, existing, who.UID) {
		metrics.RecordBooking("conflict")
		return nil, fmt.Errorf("%w: %s %s", ErrConflict, d, c)
	}

	var mine []models.Reservation
	for _, r := range existing {
		if r.UserID != who.UID {
			continue
		}
		if r.Time == c {
			metrics.RecordBooking(string(Unchanged))
			return &BookResult{Reservation: r, Outcome: Unchanged}, nil
		}
		mine = append(mine, r)
	}

	// replace is delete-then-create; a failure in between leaves the user
	// without a reservation on this date
	for _, r := range mine {
		if err := s.repo.Delete(ctx, r.ID); err != nil {
			metrics.RecordBooking("error")
			return nil, err
		}
	}

	name := who.DisplayName
	if name == "" {
		name = "User"
	}
	created, err := s.repo.Create(ctx, models.Reservation{
		UserID: who.UID,
		Name:   name,
		Phone:  phone,
		Date:   d,
		Time:   c,
	})
	if err != nil {
		metrics.RecordBooking("error")
		return nil, err
	}

	outcome := Created
	if len(mine) > 0 {
		outcome = Replaced
	}
	metrics.RecordBooking(string(outcome))
	s.log.Info("reservation booked",
		zap.String("uid", who.UID),
		zap.Stringer("date", d),
		zap.Stringer("time", c),
		zap.String("outcome", string(outcome)),
	)
	return &BookResult{Reservation: *created, Outcome: outcome}, nil
}

func (s *Service) checkNotBlocked(ctx context.Context, d calendar.Date, c calendar.Clock) error {
	day, err := s.blocks.IsDayBlocked(ctx, d)
	if err != nil {
		return err
	}
	slot := false
	if !day {
		if slot, err = s.blocks.IsSlotBlocked(ctx, d, c); err != nil {
			return err
		}
	}
	if day || slot {
		metrics.RecordBooking("rejected")
		return fmt.Errorf("%w: %s %s", ErrBlocked, d, c)
	}
	return nil
}

// checkInWindow rejects dates the client date picker never offers: closed
// weekdays and dates past the generated window.
func (s *Service) checkInWindow(ctx context.Context, d calendar.Date) error {
	blocked, err := s.blocks.Days(ctx)
	if err != nil {
		return err
	}
	for _, day := range schedule.Generate(s.Today(), blocked, s.policy, s.window) {
		if day.Date == d {
			return nil
		}
	}
	metrics.RecordBooking("rejected")
	return fmt.Errorf("%w: %s is outside the booking window", ErrBlocked, d)
}

// Cancel removes the caller's reservation on a date.
func (s *Service) Cancel(ctx context.Context, who models.Identity, date string) (*models.Reservation, error) {
	if who.UID == "" {
		return nil, fmt.Errorf("%w: sign in to cancel", ErrUnauthorized)
	}
	d, err := calendar.ParseDate(date)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadRequest, err)
	}

	existing, err := s.repo.ByDate(ctx, d)
	if err != nil {
		return nil, err
	}
	var cancelled *models.Reservation
	for i := range existing {
		r := existing[i]
		if r.UserID != who.UID {
			continue
		}
		if err := s.repo.Delete(ctx, r.ID); err != nil {
			return nil, err
		}
		if cancelled == nil {
			cancelled = &r
		}
	}
	if cancelled == nil {
		return nil, fmt.Errorf("%w: no reservation to cancel on %s", ErrNotFound, d)
	}

	metrics.RecordCancellation("client")
	s.log.Info("reservation cancelled", zap.String("uid", who.UID), zap.Stringer("date", d))
	return cancelled, nil
}

// CancelByID removes any reservation regardless of owner.
func (s *Service) CancelByID(ctx context.Context, id string) (*models.Reservation, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: id is required", ErrBadRequest)
	}
	r, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return nil, err
	}

	metrics.RecordCancellation("admin")
	s.log.Info("reservation cancelled by admin", zap.String("id", id), zap.String("uid", r.UserID))
	return r, nil
}

// ForUserOnDate returns the user's reservation on d, or nil.
func ForUserOnDate(b availability.Board, uid string, d calendar.Date) *models.Reservation {
	if uid == "" {
		return nil
	}
	for _, r := range b.Reservations {
		if r.UserID == uid && r.Date == d {
			r := r
			return &r
		}
	}
	return nil
}

// AdminList shows reservations from yesterday onward.
func AdminList(b availability.Board, today calendar.Date) AdminView {
	from := today.AddDays(-1)
	rs := append([]models.Reservation(nil), b.Reservations...)
	models.SortReservations(rs)

	view := AdminView{Reservations: []AdminEntry{}}
	for _, r := range rs {
		if r.Date.Before(from) {
			continue
		}
		view.Reservations = append(view.Reservations, AdminEntry{
			Reservation: r,
			DayBlocked:  b.DayBlocked(r.Date),
			SlotBlocked: b.BlockedSlots.Has(r.Date, r.Time),
		})
		switch {
		case r.Date == today:
			view.TodayCount++
		case r.Date.After(today):
			view.UpcomingCount++
		}
	}
	return view
}

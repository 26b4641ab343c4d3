package reservation

import (
	"context"
	"encoding/json"
	"fmt"

	"barbershop/backend/internal/calendar"
	"barbershop/backend/internal/models"
	"barbershop/backend/internal/store"

	"go.uber.org/zap"
)

const Collection = "reservations"

// record is the stored shape. ID repeats the store key.
type record struct {
	ID     string `json:"id,omitempty"`
	UserID string `json:"userId"`
	Name   string `json:"name"`
	Phone  string `json:"phone"`
	Date   string `json:"date"`
	Time   string `json:"time"`
}

type Repo struct {
	st  store.Store
	log *zap.Logger
}

func NewRepo(st store.Store, log *zap.Logger) *Repo {
	if log == nil {
		log = zap.NewNop()
	}
	return &Repo{st: st, log: log}
}

// ByDate is the authoritative read used right before a booking write.
func (r *Repo) ByDate(ctx context.Context, d calendar.Date) ([]models.Reservation, error) {
	snap, err := r.st.Query(ctx, Collection, store.Equal("date", d.String()))
	if err != nil {
		return nil, fmt.Errorf("failed to load reservations for %s: %w", d, err)
	}
	return Decode(snap, r.log)
}

func (r *Repo) Get(ctx context.Context, id string) (*models.Reservation, error) {
	path, err := store.Join(Collection, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	snap, err := r.st.Get(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to load reservation: %w", err)
	}
	if !snap.Exists() {
		return nil, fmt.Errorf("%w: reservation %s", ErrNotFound, id)
	}
	var res models.Reservation
	if err := json.Unmarshal(snap.Raw, &res); err != nil {
		return nil, fmt.Errorf("failed to decode reservation %s: %w", id, err)
	}
	res.ID = id
	return &res, nil
}

func (r *Repo) Create(ctx context.Context, res models.Reservation) (*models.Reservation, error) {
	if res.Date.IsZero() || res.UserID == "" {
		return nil, fmt.Errorf("%w: reservation needs a user and a date", ErrBadRequest)
	}
	// writes are always strict HH:MM
	if _, err := calendar.ParseClock(res.Time.String()); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	rec := record{
		UserID: res.UserID,
		Name:   res.Name,
		Phone:  res.Phone,
		Date:   res.Date.String(),
		Time:   res.Time.String(),
	}
	id, err := r.st.Push(ctx, Collection, rec)
	if err != nil {
		return nil, fmt.Errorf("failed to save reservation: %w", err)
	}
	// the key only exists after the push, so the id field is a second write
	rec.ID = id
	path, err := store.Join(Collection, id)
	if err != nil {
		return nil, fmt.Errorf("failed to save reservation: %w", err)
	}
	if err := r.st.Set(ctx, path, rec); err != nil {
		return nil, fmt.Errorf("failed to save reservation %s: %w", id, err)
	}
	res.ID = id
	return &res, nil
}

func (r *Repo) Delete(ctx context.Context, id string) error {
	path, err := store.Join(Collection, id)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	if err := r.st.Delete(ctx, path); err != nil {
		return fmt.Errorf("failed to delete reservation: %w", err)
	}
	return nil
}

// Decode reads a reservations snapshot. Legacy 12-hour times are normalized;
// entries that still fail to parse are skipped.
func Decode(snap store.Snapshot, log *zap.Logger) ([]models.Reservation, error) {
	kids, err := snap.Children()
	if err != nil {
		return nil, err
	}
	out := make([]models.Reservation, 0, len(kids))
	for id, raw := range kids {
		var res models.Reservation
		if err := json.Unmarshal(raw, &res); err != nil {
			if log != nil {
				log.Warn("skipping malformed reservation", zap.String("id", id), zap.Error(err))
			}
			continue
		}
		res.ID = id
		out = append(out, res)
	}
	models.SortReservations(out)
	return out, nil
}

package blocking

import (
	"context"
	"encoding/json"
	"fmt"

	"barbershop/backend/internal/calendar"
	"barbershop/backend/internal/models"
	"barbershop/backend/internal/store"

	"go.uber.org/zap"
)

const (
	DaysCollection  = "blockedDays"
	SlotsCollection = "blockedTimeSlots"
)

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

func dayPath(d calendar.Date) string {
	return DaysCollection + "/" + d.String()
}

func (r *Repo) SetDay(ctx context.Context, d calendar.Date) error {
	if err := r.st.Set(ctx, dayPath(d), true); err != nil {
		return fmt.Errorf("failed to block day %s: %w", d, err)
	}
	return nil
}

func (r *Repo) DeleteDay(ctx context.Context, d calendar.Date) error {
	if err := r.st.Delete(ctx, dayPath(d)); err != nil {
		return fmt.Errorf("failed to unblock day %s: %w", d, err)
	}
	return nil
}

func (r *Repo) IsDayBlocked(ctx context.Context, d calendar.Date) (bool, error) {
	snap, err := r.st.Get(ctx, dayPath(d))
	if err != nil {
		return false, fmt.Errorf("failed to read blocked day %s: %w", d, err)
	}
	var on bool
	if err := snap.Decode(&on); err != nil {
		return false, nil
	}
	return on, nil
}

func (r *Repo) Days(ctx context.Context) (map[calendar.Date]bool, error) {
	snap, err := r.st.Get(ctx, DaysCollection)
	if err != nil {
		return nil, fmt.Errorf("failed to read blocked days: %w", err)
	}
	return DecodeDays(snap, r.log)
}

// slotKey pairs a parsed slot with the key it is stored under, which may be
// a legacy 12-hour spelling.
type slotKey struct {
	models.SlotRef
	path string
}

func (r *Repo) dayKeys(ctx context.Context, d calendar.Date) ([]slotKey, error) {
	snap, err := r.st.Get(ctx, SlotsCollection+"/"+d.String())
	if err != nil {
		return nil, fmt.Errorf("failed to read blocked slots for %s: %w", d, err)
	}
	kids, err := snap.Children()
	if err != nil {
		return nil, err
	}
	var out []slotKey
	for raw, v := range kids {
		c, ok := parseSlot(r.log, d.String(), raw, v)
		if !ok {
			continue
		}
		out = append(out, slotKey{
			SlotRef: models.SlotRef{Date: d, Time: c},
			path:    SlotsCollection + "/" + d.String() + "/" + raw,
		})
	}
	return out, nil
}

func (r *Repo) allKeys(ctx context.Context) ([]slotKey, error) {
	snap, err := r.st.Get(ctx, SlotsCollection)
	if err != nil {
		return nil, fmt.Errorf("failed to read blocked slots: %w", err)
	}
	return decodeSlotKeys(snap, r.log)
}

func decodeSlotKeys(snap store.Snapshot, log *zap.Logger) ([]slotKey, error) {
	days, err := snap.Children()
	if err != nil {
		return nil, err
	}
	var out []slotKey
	for rawDate, node := range days {
		d, err := calendar.ParseDate(rawDate)
		if err != nil {
			log.Warn("skipping malformed blocked-slot date", zap.String("key", rawDate))
			continue
		}
		var times map[string]json.RawMessage
		if err := json.Unmarshal(node, &times); err != nil {
			log.Warn("skipping malformed blocked-slot day", zap.String("date", rawDate), zap.Error(err))
			continue
		}
		for raw, v := range times {
			c, ok := parseSlot(log, rawDate, raw, v)
			if !ok {
				continue
			}
			out = append(out, slotKey{
				SlotRef: models.SlotRef{Date: d, Time: c},
				path:    SlotsCollection + "/" + rawDate + "/" + raw,
			})
		}
	}
	return out, nil
}

func parseSlot(log *zap.Logger, date, raw string, v json.RawMessage) (calendar.Clock, bool) {
	var on bool
	if err := json.Unmarshal(v, &on); err != nil || !on {
		return calendar.Clock{}, false
	}
	c, err := calendar.NormalizeClock(raw)
	if err != nil {
		log.Warn("skipping malformed blocked-slot time", zap.String("date", date), zap.String("key", raw))
		return calendar.Clock{}, false
	}
	return c, true
}

func (r *Repo) SetSlot(ctx context.Context, d calendar.Date, c calendar.Clock) error {
	path := SlotsCollection + "/" + d.String() + "/" + c.String()
	if err := r.st.Set(ctx, path, true); err != nil {
		return fmt.Errorf("failed to block %s %s: %w", d, c, err)
	}
	return nil
}

// DeleteSlot removes every stored spelling of (d, c).
func (r *Repo) DeleteSlot(ctx context.Context, d calendar.Date, c calendar.Clock) error {
	keys, err := r.dayKeys(ctx, d)
	if err != nil {
		return err
	}
	for _, k := range keys {
		if k.Time != c {
			continue
		}
		if err := r.deleteKey(ctx, k); err != nil {
			return err
		}
	}
	return nil
}

// deleteKey removes one stored slot under the spelling it was found with.
func (r *Repo) deleteKey(ctx context.Context, k slotKey) error {
	if err := r.st.Delete(ctx, k.path); err != nil {
		return fmt.Errorf("failed to unblock %s %s: %w", k.Date, k.Time, err)
	}
	return nil
}

func (r *Repo) IsSlotBlocked(ctx context.Context, d calendar.Date, c calendar.Clock) (bool, error) {
	keys, err := r.dayKeys(ctx, d)
	if err != nil {
		return false, err
	}
	for _, k := range keys {
		if k.Time == c {
			return true, nil
		}
	}
	return false, nil
}

func (r *Repo) DayTimes(ctx context.Context, d calendar.Date) (map[calendar.Clock]bool, error) {
	keys, err := r.dayKeys(ctx, d)
	if err != nil {
		return nil, err
	}
	out := make(map[calendar.Clock]bool, len(keys))
	for _, k := range keys {
		out[k.Time] = true
	}
	return out, nil
}

// DecodeDays reads a blockedDays snapshot, skipping keys that are not dates.
func DecodeDays(snap store.Snapshot, log *zap.Logger) (map[calendar.Date]bool, error) {
	kids, err := snap.Children()
	if err != nil {
		return nil, err
	}
	out := make(map[calendar.Date]bool, len(kids))
	for raw, v := range kids {
		d, err := calendar.ParseDate(raw)
		if err != nil {
			if log != nil {
				log.Warn("skipping malformed blocked day", zap.String("key", raw))
			}
			continue
		}
		var on bool
		if err := json.Unmarshal(v, &on); err == nil && on {
			out[d] = true
		}
	}
	return out, nil
}

// DecodeSlots reads a blockedTimeSlots snapshot, normalizing legacy times.
func DecodeSlots(snap store.Snapshot, log *zap.Logger) (models.BlockedSlots, error) {
	if log == nil {
		log = zap.NewNop()
	}
	keys, err := decodeSlotKeys(snap, log)
	if err != nil {
		return nil, err
	}
	out := models.BlockedSlots{}
	for _, k := range keys {
		if out[k.Date] == nil {
			out[k.Date] = map[calendar.Clock]bool{}
		}
		out[k.Date][k.Time] = true
	}
	return out, nil
}

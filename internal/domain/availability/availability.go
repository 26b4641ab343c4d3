package availability

import (
	"time"

	"barbershop/backend/internal/calendar"
	"barbershop/backend/internal/domain/timegrid"
	"barbershop/backend/internal/models"
)

type Status string

const (
	Open          Status = "OPEN"
	SelfReserved  Status = "SELF_RESERVED"
	OtherReserved Status = "OTHER_RESERVED"
	AdminBlocked  Status = "ADMIN_BLOCKED"
	Past          Status = "PAST"
)

// Selectable reports whether a client may pick a slot with this status.
// A slot the caller already holds is shown but not re-selectable.
func (s Status) Selectable() bool { return s == Open }

// Board is a point-in-time view of the mirrored store state. The parts may
// come from different snapshots; consumers must tolerate that.
type Board struct {
	Reservations []models.Reservation
	BlockedDays  map[calendar.Date]bool
	BlockedSlots models.BlockedSlots
}

func (b Board) DayBlocked(d calendar.Date) bool { return b.BlockedDays[d] }

func (b Board) SlotBlocked(d calendar.Date, c calendar.Clock) bool {
	return b.BlockedDays[d] || b.BlockedSlots.Has(d, c)
}

// Classify resolves one slot. First match wins:
// PAST, ADMIN_BLOCKED, SELF_RESERVED, OTHER_RESERVED, OPEN.
func Classify(d calendar.Date, c calendar.Clock, b Board, userID string, now time.Time, loc *time.Location) Status {
	if !c.On(d, loc).After(now.In(loc)) {
		return Past
	}
	if b.SlotBlocked(d, c) {
		return AdminBlocked
	}
	other := false
	for _, r := range b.Reservations {
		if r.Date != d || r.Time != c {
			continue
		}
		if userID != "" && r.UserID == userID {
			return SelfReserved
		}
		other = true
	}
	if other {
		return OtherReserved
	}
	return Open
}

// Slot is one classified grid entry.
type Slot struct {
	Time       calendar.Clock `json:"time"`
	Status     Status         `json:"status"`
	Selectable bool           `json:"selectable"`
}

// ClassifyDay classifies every grid slot of d.
func ClassifyDay(d calendar.Date, g timegrid.Grid, b Board, userID string, now time.Time, loc *time.Location) []Slot {
	slots := g.Slots()
	out := make([]Slot, len(slots))
	for i, c := range slots {
		st := Classify(d, c, b, userID, now, loc)
		out[i] = Slot{Time: c, Status: st, Selectable: st.Selectable()}
	}
	return out
}

// IsAvailableForWrite is the re-check made right before a booking write.
// A slot is available unless another user holds it; the caller's own
// reservation at the same slot counts as available.
func IsAvailableForWrite(d calendar.Date, c calendar.Clock, reservations []models.Reservation, userID string) bool {
	for _, r := range reservations {
		if r.Date != d || r.Time != c {
			continue
		}
		if userID == "" || r.UserID != userID {
			return false
		}
	}
	return true
}

package models

import (
	"sort"

	"barbershop/backend/internal/calendar"
)

// Reservation is one person's claim on one date and slot.
// Stored at reservations/{id}.
type Reservation struct {
	ID     string         `json:"id"`
	UserID string         `json:"userId"`
	Name   string         `json:"name"`
	Phone  string         `json:"phone"`
	Date   calendar.Date  `json:"date"`
	Time   calendar.Clock `json:"time"`
}

// SortReservations orders by date, then time, then id.
func SortReservations(rs []Reservation) {
	sort.Slice(rs, func(i, j int) bool {
		if c := rs[i].Date.Compare(rs[j].Date); c != 0 {
			return c < 0
		}
		if c := rs[i].Time.Compare(rs[j].Time); c != 0 {
			return c < 0
		}
		return rs[i].ID < rs[j].ID
	})
}

// UserProfile links an authenticated identity to a contact phone.
// Stored at userProfiles/{uid}.
type UserProfile struct {
	UID         string `json:"uid"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
	Phone       string `json:"phone,omitempty"`
}

// News is one barber announcement. Timestamp is the store-assigned write
// time in milliseconds since the epoch.
// Stored at barberNews/{id}.
type News struct {
	ID        string `json:"id,omitempty"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
}

// BlockedSlots groups admin-blocked times by date.
type BlockedSlots map[calendar.Date]map[calendar.Clock]bool

func (b BlockedSlots) Has(d calendar.Date, c calendar.Clock) bool {
	return b[d][c]
}

// Times returns the blocked times of d in ascending order.
func (b BlockedSlots) Times(d calendar.Date) []calendar.Clock {
	out := make([]calendar.Clock, 0, len(b[d]))
	for c, ok := range b[d] {
		if ok {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Compare(out[j]) < 0 })
	return out
}

// SlotRef names one blocked slot.
type SlotRef struct {
	Date calendar.Date  `json:"date"`
	Time calendar.Clock `json:"time"`
}

// Identity is what the identity provider says about the caller.
type Identity struct {
	UID         string
	DisplayName string
	Email       string
	Admin       bool
}

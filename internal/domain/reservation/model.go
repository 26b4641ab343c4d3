package reservation

import (
	"strings"

	"barbershop/backend/internal/models"
)

// BookInput is the client's requested slot.
type BookInput struct {
	Date string `json:"date"`
	Time string `json:"time"`
}

func (in *BookInput) Trim() {
	in.Date = strings.TrimSpace(in.Date)
	in.Time = strings.TrimSpace(in.Time)
}

type Outcome string

const (
	Created   Outcome = "created"
	Replaced  Outcome = "replaced"
	Unchanged Outcome = "unchanged"
)

type BookResult struct {
	Reservation models.Reservation `json:"reservation"`
	Outcome     Outcome            `json:"outcome"`
}

// AdminEntry is one row of the barber's reservation list.
type AdminEntry struct {
	models.Reservation
	DayBlocked  bool `json:"dayBlocked"`
	SlotBlocked bool `json:"slotBlocked"`
}

type AdminView struct {
	Reservations  []AdminEntry `json:"reservations"`
	TodayCount    int          `json:"todayCount"`
	UpcomingCount int          `json:"upcomingCount"`
}

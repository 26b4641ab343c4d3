package timegrid

import (
	"errors"
	"fmt"

	"barbershop/backend/internal/calendar"
)

var ErrBadRange = errors.New("bad time range")

// Grid is the ordered set of bookable times of day. Every date shares it.
type Grid struct {
	slots []calendar.Clock
}

// Default is the reference deployment: 09:00 to 19:00 in 30 minute steps.
func Default() Grid {
	g, _ := New(calendar.MustClock("09:00"), calendar.MustClock("19:00"), 30)
	return g
}

// New builds a grid from open to close inclusive.
func New(open, close calendar.Clock, stepMinutes int) (Grid, error) {
	if stepMinutes <= 0 {
		return Grid{}, fmt.Errorf("%w: step must be positive", ErrBadRange)
	}
	if open.Compare(close) > 0 {
		return Grid{}, fmt.Errorf("%w: open %s is after close %s", ErrBadRange, open, close)
	}
	var slots []calendar.Clock
	for m := open.Minutes(); m <= close.Minutes(); m += stepMinutes {
		slots = append(slots, calendar.ClockFromMinutes(m))
	}
	return Grid{slots: slots}, nil
}

func (g Grid) Slots() []calendar.Clock {
	out := make([]calendar.Clock, len(g.slots))
	copy(out, g.slots)
	return out
}

func (g Grid) Len() int { return len(g.slots) }

func (g Grid) Contains(c calendar.Clock) bool {
	for _, s := range g.slots {
		if s == c {
			return true
		}
	}
	return false
}

// Range returns the grid slots with start <= t <= end.
func (g Grid) Range(start, end calendar.Clock) ([]calendar.Clock, error) {
	if start.Compare(end) > 0 {
		return nil, fmt.Errorf("%w: start %s is after end %s", ErrBadRange, start, end)
	}
	var out []calendar.Clock
	for _, s := range g.slots {
		if s.Compare(start) >= 0 && s.Compare(end) <= 0 {
			out = append(out, s)
		}
	}
	return out, nil
}

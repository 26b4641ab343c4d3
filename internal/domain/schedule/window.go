package schedule

import (
	"fmt"
	"strings"
	"time"

	"barbershop/backend/internal/calendar"
)

const (
	DefaultWindowSize  = 5
	DefaultHorizonDays = 30
)

// Day is one selectable date of the booking window.
type Day struct {
	Date    calendar.Date `json:"-"`
	ISO     string        `json:"date"`
	Label   string        `json:"label"`
	Weekday string        `json:"weekday"`
}

// WeekdayPolicy marks which weekdays are open for booking, indexed by time.Weekday.
type WeekdayPolicy [7]bool

// DefaultPolicy opens Sunday through Friday and closes Saturday.
func DefaultPolicy() WeekdayPolicy {
	p := AllOpen()
	p[time.Saturday] = false
	return p
}

func AllOpen() WeekdayPolicy {
	return WeekdayPolicy{true, true, true, true, true, true, true}
}

func (p WeekdayPolicy) Allows(d calendar.Date) bool {
	return p[d.Weekday()]
}

// ParseClosedWeekdays builds a policy closing the named weekdays
// ("sat", "Saturday", "6" all mean Saturday). An empty list means all open.
func ParseClosedWeekdays(names []string) (WeekdayPolicy, error) {
	p := AllOpen()
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		if n == "" {
			continue
		}
		wd, ok := weekdayByName(n)
		if !ok {
			return p, fmt.Errorf("unknown weekday %q", n)
		}
		p[wd] = false
	}
	return p, nil
}

func weekdayByName(n string) (time.Weekday, bool) {
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		full := strings.ToLower(wd.String())
		if n == full || n == full[:3] || n == fmt.Sprint(int(wd)) {
			return wd, true
		}
	}
	return 0, false
}

// Labeler renders the display label of a date.
type Labeler func(calendar.Date) string

// EnglishLabel renders "June 10".
func EnglishLabel(d calendar.Date) string {
	return fmt.Sprintf("%s %d", d.Month, d.Day)
}

type Options struct {
	WindowSize  int
	HorizonDays int
	Label       Labeler
}

func (o Options) withDefaults() Options {
	if o.WindowSize <= 0 {
		o.WindowSize = DefaultWindowSize
	}
	if o.HorizonDays <= 0 {
		o.HorizonDays = DefaultHorizonDays
	}
	if o.Label == nil {
		o.Label = EnglishLabel
	}
	return o
}

// Generate returns the next selectable dates starting at today. It scans at
// most HorizonDays offsets and returns fewer than WindowSize dates when the
// horizon runs out.
func Generate(today calendar.Date, blocked map[calendar.Date]bool, policy WeekdayPolicy, opts Options) []Day {
	opts = opts.withDefaults()

	out := make([]Day, 0, opts.WindowSize)
	for offset := 0; offset < opts.HorizonDays && len(out) < opts.WindowSize; offset++ {
		d := today.AddDays(offset)
		if d.Before(today) || !policy.Allows(d) || blocked[d] {
			continue
		}
		out = append(out, Day{
			Date:    d,
			ISO:     d.String(),
			Label:   opts.Label(d),
			Weekday: d.Weekday().String()[:3],
		})
	}
	return out
}

// Reselect keeps selected when it is still in the window, otherwise falls
// back to the first generated date.
func Reselect(window []Day, selected calendar.Date) (calendar.Date, bool) {
	if len(window) == 0 {
		return calendar.Date{}, false
	}
	for _, d := range window {
		if d.Date == selected {
			return selected, true
		}
	}
	return window[0].Date, true
}

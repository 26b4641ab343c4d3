package timegrid

import (
	"errors"
	"reflect"
	"testing"

	"barbershop/backend/internal/calendar"
)

func TestDefaultGrid(t *testing.T) {
	g := Default()
	if g.Len() != 21 {
		t.Fatalf("expected 21 slots, got %d", g.Len())
	}
	s := g.Slots()
	if s[0].String() != "09:00" || s[len(s)-1].String() != "19:00" || s[1].String() != "09:30" {
		t.Fatalf("unexpected grid bounds: %v", s)
	}
	if g.Contains(calendar.MustClock("09:15")) {
		t.Fatalf("09:15 is not a grid slot")
	}
}

func TestRangeInclusive(t *testing.T) {
	g := Default()
	got, err := g.Range(calendar.MustClock("10:00"), calendar.MustClock("11:00"))
	if err != nil {
		t.Fatal(err)
	}
	want := []calendar.Clock{calendar.MustClock("10:00"), calendar.MustClock("10:30"), calendar.MustClock("11:00")}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Range = %v, want %v", got, want)
	}

	got, err = g.Range(calendar.MustClock("10:10"), calendar.MustClock("10:20"))
	if err != nil || len(got) != 0 {
		t.Fatalf("expected empty range, got %v, %v", got, err)
	}

	if _, err := g.Range(calendar.MustClock("12:00"), calendar.MustClock("11:00")); !errors.Is(err, ErrBadRange) {
		t.Fatalf("expected ErrBadRange, got %v", err)
	}
}

func TestNewRejectsBadConfig(t *testing.T) {
	if _, err := New(calendar.MustClock("10:00"), calendar.MustClock("09:00"), 30); err == nil {
		t.Fatal("expected error for open after close")
	}
	if _, err := New(calendar.MustClock("09:00"), calendar.MustClock("10:00"), 0); err == nil {
		t.Fatal("expected error for zero step")
	}
}

func TestSlotsIsACopy(t *testing.T) {
	g := Default()
	s := g.Slots()
	s[0] = calendar.MustClock("00:00")
	if g.Slots()[0] != calendar.MustClock("09:00") {
		t.Fatal("Slots leaked internal storage")
	}
}

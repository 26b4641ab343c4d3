package i18n

import (
	"testing"

	"barbershop/backend/internal/calendar"

	"golang.org/x/text/language"
)

func TestMatch(t *testing.T) {
	cases := map[string]language.Tag{
		"":                   language.Hebrew,
		"en-US,en;q=0.9":     language.English,
		"he-IL":              language.Hebrew,
		"fr-FR":              language.Hebrew,
		"fr;q=0.9, en;q=0.8": language.English,
	}
	for header, want := range cases {
		if got := Match(header, Default); got != want {
			t.Fatalf("Match(%q) = %s, want %s", header, got, want)
		}
	}
}

func TestTranslate(t *testing.T) {
	if got := T(language.English, MsgConflict); got != "This time slot was just taken." {
		t.Fatalf("english = %q", got)
	}
	if got := T(language.Hebrew, MsgCancelled); got != "התור בוטל." {
		t.Fatalf("hebrew = %q", got)
	}
	if got := T(language.English, MsgBooked, "2025-06-10", "10:00"); got != "Your reservation is confirmed for 2025-06-10 at 10:00" {
		t.Fatalf("with args = %q", got)
	}
}

func TestParse(t *testing.T) {
	if tag, err := Parse("en"); err != nil || tag != language.English {
		t.Fatalf("Parse(en) = %s, %v", tag, err)
	}
	if _, err := Parse("ja"); err == nil {
		t.Fatal("expected unsupported language to fail")
	}
}

func TestHebrewLabel(t *testing.T) {
	if got := HebrewLabel(calendar.MustDate("2025-06-10")); got != "10 ביוני" {
		t.Fatalf("label = %q", got)
	}
}

// Package i18n holds the user-facing strings. Hebrew is the default
// language; English is available through Accept-Language.
package i18n

import (
	"fmt"

	"barbershop/backend/internal/calendar"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

type Key = string

const (
	MsgBadRequest      Key = "bad_request"
	MsgUnauthorized    Key = "unauthorized"
	MsgForbidden       Key = "forbidden"
	MsgNotFound        Key = "not_found"
	MsgNothingToCancel Key = "nothing_to_cancel"
	MsgConflict        Key = "slot_taken"
	MsgBlocked         Key = "slot_blocked"
	MsgPast            Key = "slot_past"
	MsgPhoneRequired   Key = "phone_required"
	MsgBadPhone        Key = "bad_phone"
	MsgBadRange        Key = "bad_range"
	MsgBadNews         Key = "bad_news"
	MsgSetupFailed     Key = "setup_failed"
	MsgUnavailable     Key = "unavailable"
	MsgRateLimited     Key = "rate_limited"
	MsgInternal        Key = "internal"
	MsgBooked          Key = "booked"
	MsgCancelled       Key = "cancelled"
	MsgBulkUnblocked   Key = "bulk_unblocked"
)

var entries = map[Key][2]string{ // {he, en}
	MsgBadRequest:      {"הבקשה אינה תקינה.", "The request is not valid."},
	MsgUnauthorized:    {"יש להתחבר כדי להמשיך.", "Please sign in to continue."},
	MsgForbidden:       {"אין הרשאה לפעולה זו.", "You are not allowed to do that."},
	MsgNotFound:        {"לא נמצא.", "Not found."},
	MsgNothingToCancel: {"לא נמצא תור לביטול בתאריך זה.", "No reservation to cancel on this date."},
	MsgConflict:        {"חלון זמן זה נתפס כרגע.", "This time slot was just taken."},
	MsgBlocked:         {"תאריך/שעה לא פנויים.", "This date or time is not available."},
	MsgPast:            {"לא ניתן לקבוע תורים בעבר.", "Reservations cannot be made in the past."},
	MsgPhoneRequired:   {"יש להתחבר ולהזין מספר טלפון.", "Please add your phone number first."},
	MsgBadPhone:        {"יש להזין מספר נייד ישראלי תקין (לדוגמה: 0501234567 או 501234567).", "Enter a valid Israeli mobile number (e.g. 0501234567 or 501234567)."},
	MsgBadRange:        {"שעת ההתחלה חייבת להיות לפני או זהה לשעת הסיום.", "The start time must be before or equal to the end time."},
	MsgBadNews:         {"יש להזין הודעה של עד 500 תווים.", "Enter a message of up to 500 characters."},
	MsgSetupFailed:     {"שגיאה בהגדרת החיבור.", "Account setup failed. Please sign in again."},
	MsgUnavailable:     {"השירות אינו זמין כעת. אנא נסה שוב.", "The service is unavailable. Please try again."},
	MsgRateLimited:     {"יותר מדי בקשות. אנא נסה שוב בעוד רגע.", "Too many requests. Please try again shortly."},
	MsgInternal:        {"אירעה שגיאה. אנא נסה שוב.", "Something went wrong. Please try again."},
	MsgBooked:          {"התור אושר לתאריך %s בשעה %s", "Your reservation is confirmed for %s at %s"},
	MsgCancelled:       {"התור בוטל.", "The reservation was cancelled."},
	MsgBulkUnblocked:   {"בוטלה חסימה של %d פריטים. %d לא בוטלו.", "Unblocked %d entries. %d could not be unblocked."},
}

var (
	Default   = language.Hebrew
	supported = []language.Tag{language.Hebrew, language.English}
	matcher   = language.NewMatcher(supported)
	cat       = buildCatalog()
)

func buildCatalog() *catalog.Builder {
	b := catalog.NewBuilder(catalog.Fallback(Default))
	for key, e := range entries {
		if err := b.SetString(language.Hebrew, key, e[0]); err != nil {
			panic(fmt.Sprintf("i18n: %s: %v", key, err))
		}
		if err := b.SetString(language.English, key, e[1]); err != nil {
			panic(fmt.Sprintf("i18n: %s: %v", key, err))
		}
	}
	return b
}

// Match picks the supported language for an Accept-Language header,
// falling back to def.
func Match(acceptLanguage string, def language.Tag) language.Tag {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return def
	}
	_, idx, conf := matcher.Match(tags...)
	if conf == language.No {
		return def
	}
	return supported[idx]
}

// Parse reads a configured default language, accepting only supported ones.
func Parse(s string) (language.Tag, error) {
	tag, err := language.Parse(s)
	if err != nil {
		return Default, err
	}
	_, idx, conf := matcher.Match(tag)
	if conf == language.No {
		return Default, fmt.Errorf("unsupported language %q", s)
	}
	return supported[idx], nil
}

// T renders key in tag.
func T(tag language.Tag, key Key, args ...any) string {
	return message.NewPrinter(tag, message.Catalog(cat)).Sprintf(key, args...)
}

var hebrewMonths = [...]string{
	"ינואר", "פברואר", "מרץ", "אפריל", "מאי", "יוני",
	"יולי", "אוגוסט", "ספטמבר", "אוקטובר", "נובמבר", "דצמבר",
}

// HebrewLabel renders a date the way the booking screen shows it
// ("10 ביוני").
func HebrewLabel(d calendar.Date) string {
	return fmt.Sprintf("%d ב%s", d.Day, hebrewMonths[d.Month-1])
}

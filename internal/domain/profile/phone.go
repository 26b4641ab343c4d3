package profile

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

var mobileRe = regexp.MustCompile(`^05\d{8}$`)

// NormalizePhone accepts an Israeli mobile number in any common spelling
// (+972 5X..., 05X..., 5X..., with spaces, dashes or full-width digits) and
// returns the stored 05XXXXXXXX form.
func NormalizePhone(raw string) (string, error) {
	s := width.Fold.String(norm.NFKC.String(raw))
	digits := asciiDigits(s)

	digits = strings.TrimPrefix(digits, "972")
	if len(digits) == 9 && strings.HasPrefix(digits, "5") {
		digits = "0" + digits
	}
	if !mobileRe.MatchString(digits) {
		return "", fmt.Errorf("%w: %q is not an Israeli mobile number", ErrBadRequest, raw)
	}
	return digits, nil
}

// TelLink is the dial URI for a stored phone.
func TelLink(phone string) string {
	digits := asciiDigits(phone)
	switch {
	case digits == "":
		return ""
	case strings.HasPrefix(digits, "05") && len(digits) == 10:
		return "tel:+972" + digits[1:]
	case strings.HasPrefix(digits, "5") && len(digits) == 9:
		return "tel:+972" + digits
	case strings.HasPrefix(digits, "972") && len(digits) >= 12:
		return "tel:+" + digits
	}
	return "tel:" + digits
}

func asciiDigits(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
}

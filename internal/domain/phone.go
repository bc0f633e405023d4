package domain

import (
	"regexp"
	"strings"
	"unicode"
)

// Vietnamese mobile: 0 or +84, carrier digit 3/5/7/8/9, then 8 digits.
var phonePattern = regexp.MustCompile(`^(0|\+84)(3|5|7|8|9)[0-9]{8}$`)

// NormalizePhone strips every whitespace rune. Apply it before validating,
// before sending and before using a phone as an OTP key.
func NormalizePhone(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

func ValidPhone(s string) bool {
	return phonePattern.MatchString(NormalizePhone(s))
}

package intent

import (
	"regexp"
	"strings"

	"github.com/spigell/talent-agent/internal/matcher"
)

var phoneRe = regexp.MustCompile(`\+?\d[\d \-]{6,18}\d`)

// FindPhones extracts phone-like numbers from text in order of appearance. Duplicates are
// dropped, as are numbers that are the tail of a longer number found in the same text.
func FindPhones(text string) []string {
	raw := phoneRe.FindAllString(text, -1)
	found := make([]string, 0, len(raw))
	seen := make(map[string]struct{})
	for _, r := range raw {
		digits := matcher.Digits(r)
		if len(digits) < 8 || len(digits) > 15 {
			continue
		}
		phone := digits
		if strings.HasPrefix(strings.TrimSpace(r), "+") {
			phone = "+" + digits
		}
		if _, ok := seen[phone]; ok {
			continue
		}
		seen[phone] = struct{}{}
		found = append(found, phone)
	}

	out := make([]string, 0, len(found))
	for _, p := range found {
		pd := matcher.Digits(p)
		shadowed := false
		for _, other := range found {
			od := matcher.Digits(other)
			if len(od) > len(pd) && strings.HasSuffix(od, pd) {
				shadowed = true
				break
			}
		}
		if !shadowed {
			out = append(out, p)
		}
	}
	return out
}

// PlausiblePhone is the conservative check used by the rule resolver before treating a number in
// free text as a phone: local numbers must have exactly 8 digits, international ones at least 10.
func PlausiblePhone(phone, countryCode string) bool {
	if countryCode == "" {
		countryCode = matcher.DefaultCountryCode
	}
	digits := matcher.Digits(phone)
	if len(digits) < 8 {
		return false
	}
	full := strings.HasPrefix(digits, countryCode) && len(digits) == len(countryCode)+8
	if strings.HasPrefix(strings.TrimSpace(phone), "+") {
		if strings.HasPrefix(digits, countryCode) {
			return full
		}
		return len(digits) >= 10
	}
	return len(digits) == 8 || full
}

package matcher

import (
	"strings"
	"unicode"
)

// DefaultCountryCode is prepended to numbers written without an international prefix.
const DefaultCountryCode = "507"

const minPhoneDigits = 8

// PhoneNormalizer turns loosely written phone numbers into "+<digits>" form. It is a heuristic,
// not a full international numbering plan validator.
type PhoneNormalizer struct {
	CountryCode string
}

func NewPhoneNormalizer(countryCode string) PhoneNormalizer {
	countryCode = Digits(countryCode)
	if countryCode == "" {
		countryCode = DefaultCountryCode
	}
	return PhoneNormalizer{CountryCode: countryCode}
}

// Normalize returns the canonical form of raw, or false when raw is not a plausible number.
func (p PhoneNormalizer) Normalize(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}

	plus := strings.HasPrefix(raw, "+")
	digits := Digits(raw)
	if len(digits) < minPhoneDigits {
		return "", false
	}

	code := p.CountryCode
	if code == "" {
		code = DefaultCountryCode
	}

	switch {
	case plus:
		return "+" + digits, true
	case strings.HasPrefix(digits, code) && len(digits) >= len(code)+minPhoneDigits:
		return "+" + digits, true
	default:
		return "+" + code + digits, true
	}
}

// Digits keeps only the ASCII digits of s.
func Digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r < unicode.MaxASCII && unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// SamePhone compares two numbers by their digits, tolerating a missing country code on either side.
func (p PhoneNormalizer) SamePhone(a, b string) bool {
	na, okA := p.Normalize(a)
	nb, okB := p.Normalize(b)
	if okA && okB {
		return na == nb
	}
	da, db := Digits(a), Digits(b)
	return da != "" && da == db
}

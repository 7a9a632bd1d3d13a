package matcher

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// StripAccents removes diacritics using canonical decomposition.
func StripAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// Fold lowercases, strips accents and collapses whitespace.
func Fold(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(StripAccents(s))), " ")
}

// LettersOnly keeps only lowercase letters, dropping spaces, digits and punctuation.
func LettersOnly(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(StripAccents(s)) {
		if unicode.IsLetter(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// particles are name connectors that never identify a person on their own.
var particles = map[string]struct{}{
	"de": {}, "del": {}, "la": {}, "las": {}, "los": {}, "y": {}, "da": {}, "van": {}, "von": {},
}

func tokens(s string) []string {
	out := make([]string, 0)
	for _, tok := range strings.Fields(Fold(s)) {
		tok = strings.Trim(tok, ".,;:()\"'")
		if tok == "" {
			continue
		}
		if _, ok := particles[tok]; ok {
			continue
		}
		out = append(out, tok)
	}
	return out
}

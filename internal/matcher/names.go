package matcher

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/spigell/talent-agent/internal/directory"
)

// Tier is the strength of a name match. Lower values are stronger.
type Tier int

const (
	TierNone Tier = iota
	TierExact
	TierSubstring
	TierFoldedExact
	TierFoldedSubstring
	TierToken
)

func (t Tier) String() string {
	switch t {
	case TierExact:
		return "exact"
	case TierSubstring:
		return "substring"
	case TierFoldedExact:
		return "folded_exact"
	case TierFoldedSubstring:
		return "folded_substring"
	case TierToken:
		return "token"
	default:
		return "none"
	}
}

var (
	ErrNotFound  = errors.New("candidate not found")
	ErrAmbiguous = errors.New("ambiguous candidate")
)

// AmbiguousError lists the candidates tied at the strongest matching tier.
type AmbiguousError struct {
	Query string
	Names []string
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("multiple candidates match %q: %s", e.Query, strings.Join(e.Names, ", "))
}

func (e *AmbiguousError) Is(target error) bool { return target == ErrAmbiguous }

// Ranked is a candidate with the tier it matched at.
type Ranked struct {
	Candidate directory.Candidate
	Tier      Tier
}

// MatchTier returns how query matches the candidate, or TierNone.
func MatchTier(query string, c directory.Candidate) Tier {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return TierNone
	}
	name := strings.ToLower(strings.TrimSpace(c.Name))

	if q == name || (c.ID != "" && strings.TrimSpace(query) == c.ID) {
		return TierExact
	}
	if name != "" && (strings.Contains(name, q) || strings.Contains(q, name)) {
		return TierSubstring
	}

	fq, fn := Fold(query), Fold(c.Name)
	if fq == fn {
		return TierFoldedExact
	}
	if fn != "" && (strings.Contains(fn, fq) || strings.Contains(fq, fn)) {
		return TierFoldedSubstring
	}

	nameTokens := tokens(c.Name)
	if len(nameTokens) == 0 {
		return TierNone
	}
	edges := []string{nameTokens[0], nameTokens[len(nameTokens)-1]}
	for _, qt := range tokens(query) {
		for _, e := range edges {
			if qt == e {
				return TierToken
			}
		}
	}
	return TierNone
}

// Rank returns every matching candidate ordered by tier, keeping directory order within a tier.
func Rank(query string, candidates []directory.Candidate) []Ranked {
	ranked := make([]Ranked, 0)
	for _, c := range candidates {
		if tier := MatchTier(query, c); tier != TierNone {
			ranked = append(ranked, Ranked{Candidate: c, Tier: tier})
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Tier < ranked[j].Tier })
	return ranked
}

// Find resolves query to one candidate. Several candidates tied at the strongest tier yield an
// *AmbiguousError; no match yields ErrNotFound.
func Find(query string, candidates []directory.Candidate) (directory.Candidate, error) {
	ranked := Rank(query, candidates)
	if len(ranked) == 0 {
		return directory.Candidate{}, ErrNotFound
	}

	best := ranked[0].Tier
	tied := make([]string, 0, 2)
	for _, r := range ranked {
		if r.Tier != best {
			break
		}
		tied = append(tied, r.Candidate.Name)
	}
	if len(tied) > 1 {
		return directory.Candidate{}, &AmbiguousError{Query: strings.TrimSpace(query), Names: tied}
	}
	return ranked[0].Candidate, nil
}

// FindAllInText returns the candidates whose full name appears verbatim (case-insensitive) in text.
func FindAllInText(text string, candidates []directory.Candidate) []directory.Candidate {
	lower := strings.ToLower(text)
	out := make([]directory.Candidate, 0)
	for _, c := range candidates {
		name := strings.ToLower(strings.TrimSpace(c.Name))
		if name == "" || name == strings.ToLower(directory.UnknownName) {
			continue
		}
		if strings.Contains(lower, name) {
			out = append(out, c)
		}
	}
	return out
}

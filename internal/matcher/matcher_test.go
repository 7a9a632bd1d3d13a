package matcher

import (
	"errors"
	"testing"

	"github.com/spigell/talent-agent/internal/directory"
)

func people(names ...string) []directory.Candidate {
	out := make([]directory.Candidate, 0, len(names))
	for i, n := range names {
		out = append(out, directory.Candidate{ID: string(rune('a' + i)), Name: n})
	}
	return out
}

func TestMatchTier(t *testing.T) {
	t.Parallel()

	c := directory.Candidate{ID: "u1", Name: "José Pérez Luna"}
	tests := []struct {
		name   string
		query  string
		expect Tier
	}{
		{name: "exact ignores case", query: "josé pérez luna", expect: TierExact},
		{name: "id", query: "u1", expect: TierExact},
		{name: "substring", query: "pérez", expect: TierSubstring},
		{name: "folded exact", query: "Jose Perez Luna", expect: TierFoldedExact},
		{name: "folded substring", query: "perez", expect: TierFoldedSubstring},
		{name: "token", query: "luna martinez", expect: TierToken},
		{name: "no match", query: "maria", expect: TierNone},
		{name: "empty", query: "  ", expect: TierNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := MatchTier(tt.query, c); got != tt.expect {
				t.Fatalf("expected %s, got %s", tt.expect, got)
			}
		})
	}
}

func TestFindSingleMatch(t *testing.T) {
	got, err := Find("Carlos", people("Carlos Gómez", "Ana Ruiz"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Name != "Carlos Gómez" {
		t.Fatalf("unexpected candidate %q", got.Name)
	}
}

func TestFindAmbiguousAtTopTier(t *testing.T) {
	_, err := Find("Carlos", people("Carlos Gómez", "Carlos Ruiz"))
	if !errors.Is(err, ErrAmbiguous) {
		t.Fatalf("expected ambiguous error, got %v", err)
	}
	var amb *AmbiguousError
	if !errors.As(err, &amb) || len(amb.Names) != 2 {
		t.Fatalf("expected both names, got %v", err)
	}
}

func TestFindPrefersStrongerTier(t *testing.T) {
	got, err := Find("Carlos Ruiz", people("Carlos Ruiz Díaz", "Carlos Ruiz"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Name != "Carlos Ruiz" {
		t.Fatalf("expected exact match to win, got %q", got.Name)
	}
}

func TestFindNotFound(t *testing.T) {
	if _, err := Find("Pedro", people("Ana")); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestFilterExcluded(t *testing.T) {
	t.Parallel()

	candidates := people("María José Núñez", "Pedro Alvarado", "Lucía de la Cruz", "Ana Ruiz")
	tests := []struct {
		name    string
		exclude []string
		kept    []string
	}{
		{name: "accent-insensitive first name", exclude: []string{"maria"}, kept: []string{"Pedro Alvarado", "Lucía de la Cruz", "Ana Ruiz"}},
		{name: "last name", exclude: []string{"NUNEZ", "ruiz"}, kept: []string{"Pedro Alvarado", "Lucía de la Cruz"}},
		{name: "full name", exclude: []string{"pedro alvarado"}, kept: []string{"María José Núñez", "Lucía de la Cruz", "Ana Ruiz"}},
		{name: "particles ignored", exclude: []string{"Juan de la Rosa"}, kept: []string{"María José Núñez", "Pedro Alvarado", "Lucía de la Cruz", "Ana Ruiz"}},
		{name: "empty list", exclude: nil, kept: []string{"María José Núñez", "Pedro Alvarado", "Lucía de la Cruz", "Ana Ruiz"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			kept, removed := FilterExcluded(candidates, tt.exclude)
			if len(kept) != len(tt.kept) {
				t.Fatalf("expected %v, got %v", tt.kept, directory.Names(kept))
			}
			for i := range kept {
				if kept[i].Name != tt.kept[i] {
					t.Fatalf("expected %v, got %v", tt.kept, directory.Names(kept))
				}
			}
			if len(kept)+len(removed) != len(candidates) {
				t.Fatal("kept and removed must partition the input")
			}
		})
	}
}

func TestFindAllInText(t *testing.T) {
	got := FindAllInText("envía un mensaje a ana ruiz por favor", people("Ana Ruiz", "Ana", "Unknown Candidate"))
	if len(got) != 2 {
		t.Fatalf("expected 2 matches, got %v", directory.Names(got))
	}
}

func TestStripAccents(t *testing.T) {
	if got := StripAccents("Ñandú Pérez"); got != "Nandu Perez" {
		t.Fatalf("unexpected %q", got)
	}
	if got := LettersOnly("Full-Stack Dev 2"); got != "fullstackdev" {
		t.Fatalf("unexpected %q", got)
	}
}

func TestPhoneNormalize(t *testing.T) {
	t.Parallel()

	p := NewPhoneNormalizer("")
	tests := []struct {
		raw    string
		expect string
		ok     bool
	}{
		{raw: "66756081", expect: "+50766756081", ok: true},
		{raw: "+50766756081", expect: "+50766756081", ok: true},
		{raw: "507 6675-6081", expect: "+50766756081", ok: true},
		{raw: "(6675) 6081", expect: "+50766756081", ok: true},
		{raw: "+1 415 555 0100", expect: "+14155550100", ok: true},
		{raw: "abc", ok: false},
		{raw: "12345", ok: false},
		{raw: "", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			t.Parallel()
			got, ok := p.Normalize(tt.raw)
			if ok != tt.ok || got != tt.expect {
				t.Fatalf("normalize(%q) = %q, %v; expected %q, %v", tt.raw, got, ok, tt.expect, tt.ok)
			}
		})
	}
}

func TestPhoneNormalizeCustomCountry(t *testing.T) {
	p := NewPhoneNormalizer("+57")
	got, ok := p.Normalize("3001234567")
	if !ok || got != "+573001234567" {
		t.Fatalf("unexpected %q %v", got, ok)
	}
	if !p.SamePhone("573001234567", "+57 300 123 4567") {
		t.Fatal("expected numbers to match")
	}
}

package filtering

import (
	"context"
	"strings"

	"github.com/spigell/talent-agent/internal/directory"
	"github.com/spigell/talent-agent/internal/matcher"
	"go.uber.org/zap"
)

const PositionFilterName = "position"

type positionFilter struct {
	toggle
	position string
}

// NewPosition creates a filter that keeps candidates applying to the requested position.
func NewPosition() Filter {
	return &positionFilter{}
}

func (f *positionFilter) Name() string { return PositionFilterName }

func (f *positionFilter) Validate(cfg *Config) error {
	f.position = ""
	if cfg != nil {
		f.position = strings.TrimSpace(cfg.Position)
	}
	return nil
}

func (f *positionFilter) Apply(_ context.Context, deps Deps, s *Selection) (*Selection, Step, error) {
	initial := s.Len()
	if f.position == "" {
		return s, Step{Initial: initial, Dropped: 0, Left: s.Len()}, nil
	}

	removed := s.keep(f.Name(), func(c *directory.Candidate) string {
		if !c.HasKnownPosition() {
			return "unknown position"
		}
		if !PositionMatches(c.Position, f.position) {
			return "different position"
		}
		return ""
	})
	deps.Logger.Debug("filtered candidates by position",
		zap.String("position", f.position),
		zap.Int("dropped", len(removed)),
		zap.Int("candidates_left", s.Len()),
	)

	return s, Step{Initial: initial, Dropped: len(removed), Left: s.Len()}, nil
}

func (f *positionFilter) Status() Status {
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason, Details: map[string]string{"position": f.position}}
}

// PositionMatches compares a candidate position with a requested one: case-insensitive
// containment in either direction, or containment after dropping everything but letters.
func PositionMatches(candidatePosition, requested string) bool {
	cp := strings.ToLower(strings.TrimSpace(candidatePosition))
	rp := strings.ToLower(strings.TrimSpace(requested))
	if cp == "" || rp == "" {
		return false
	}
	if strings.Contains(cp, rp) || strings.Contains(rp, cp) {
		return true
	}
	lc, lr := matcher.LettersOnly(cp), matcher.LettersOnly(rp)
	return lc != "" && lr != "" && (strings.Contains(lc, lr) || strings.Contains(lr, lc))
}

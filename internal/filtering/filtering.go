package filtering

import (
	"context"
	"fmt"

	"github.com/spigell/talent-agent/internal/directory"
	"github.com/spigell/talent-agent/internal/matcher"
	"go.uber.org/zap"
)

// Filter represents a single selection step applied to candidates.
type Filter interface {
	Name() string
	Disable(reason string)
	IsEnabled() bool

	Validate(cfg *Config) error
	Apply(ctx context.Context, deps Deps, s *Selection) (*Selection, Step, error)
}

// ScoreFunc rates how well a candidate fits a position. Higher is better.
type ScoreFunc func(c directory.Candidate, position string) float64

// Deps aggregates dependencies shared across all selection steps.
type Deps struct {
	Logger *zap.Logger
	Phones matcher.PhoneNormalizer
	Score  ScoreFunc
}

// Step describes the result of executing a selection step.
type Step struct {
	Initial int
	Dropped int
	Left    int
}

// Config contains the per-request settings consumed by the filters.
type Config struct {
	Exclude  []string
	Position string
	Limit    int
	Top      int
}

// Status represents runtime information about a filter.
type Status struct {
	Name    string
	Enabled bool
	Reason  string
	Details map[string]string
}

type statusProvider interface {
	Status() Status
}

// toggle is embedded by filters that can be switched off for a single run.
type toggle struct {
	disabled bool
	reason   string
}

func (t *toggle) Disable(reason string) {
	t.disabled = true
	t.reason = reason
}

func (t *toggle) IsEnabled() bool { return !t.disabled }

// Drop records a candidate removed by a step.
type Drop struct {
	Candidate directory.Candidate
	Filter    string
	Reason    string
}

// Selection is the working set passed through the steps.
type Selection struct {
	Items   []directory.Candidate
	Dropped []Drop
}

func NewSelection(candidates []directory.Candidate) *Selection {
	items := make([]directory.Candidate, len(candidates))
	copy(items, candidates)
	return &Selection{Items: items}
}

func (s *Selection) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Items)
}

// DroppedBy returns the candidates removed by the named filter.
func (s *Selection) DroppedBy(filter string) []directory.Candidate {
	out := make([]directory.Candidate, 0)
	for _, d := range s.Dropped {
		if d.Filter == filter {
			out = append(out, d.Candidate)
		}
	}
	return out
}

// keep replaces the items with those for which fn returns an empty reason.
func (s *Selection) keep(filter string, fn func(c *directory.Candidate) string) []string {
	kept := s.Items[:0]
	removed := make([]string, 0)
	for _, c := range s.Items {
		if reason := fn(&c); reason != "" {
			s.Dropped = append(s.Dropped, Drop{Candidate: c, Filter: filter, Reason: reason})
			removed = append(removed, c.Name)
			continue
		}
		kept = append(kept, c)
	}
	s.Items = kept
	return removed
}

// DisableByName marks a filter with the provided name as disabled while keeping it in the list.
func DisableByName(steps []Filter, name, reason string) {
	for _, step := range steps {
		if step.Name() == name {
			step.Disable(reason)
		}
	}
}

// Run executes the supplied filters sequentially, returning the resulting selection and the scores
// assigned by scoring steps.
func Run(ctx context.Context, cfg *Config, deps Deps, steps []Filter, s *Selection) (*Selection, map[string]float64, error) {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	for _, step := range steps {
		if !step.IsEnabled() {
			continue
		}
		if err := step.Validate(cfg); err != nil {
			return nil, nil, fmt.Errorf("%s: %w", step.Name(), err)
		}
	}

	scores := make(map[string]float64)
	for _, step := range steps {
		if !step.IsEnabled() {
			deps.Logger.Debug("filter disabled", zap.String("name", step.Name()))
			continue
		}

		next, info, err := step.Apply(ctx, deps, s)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", step.Name(), err)
		}

		deps.Logger.Debug("filter step",
			zap.String("name", step.Name()),
			zap.Int("initial", info.Initial),
			zap.Int("dropped", info.Dropped),
			zap.Int("left", info.Left),
		)

		s = next

		if collector, ok := step.(interface{ Scores() map[string]float64 }); ok {
			for id, score := range collector.Scores() {
				scores[id] = score
			}
		}
	}

	return s, scores, nil
}

// Describe returns status entries for the provided filters.
func Describe(steps []Filter) []Status {
	statuses := make([]Status, 0, len(steps))
	for _, step := range steps {
		if reporter, ok := step.(statusProvider); ok {
			statuses = append(statuses, reporter.Status())
			continue
		}

		statuses = append(statuses, Status{
			Name:    step.Name(),
			Enabled: step.IsEnabled(),
		})
	}
	return statuses
}

package filtering

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"go.uber.org/zap"
)

const TopFilterName = "top"

type topFilter struct {
	toggle
	top      int
	position string
	scores   map[string]float64
}

// NewTop creates the scoring step: candidates are ordered by score and the best cfg.Top are kept.
func NewTop() Filter {
	return &topFilter{}
}

func (f *topFilter) Name() string { return TopFilterName }

func (f *topFilter) Validate(cfg *Config) error {
	f.top, f.position = 0, ""
	if cfg == nil {
		return errors.New("configuration is required for the top filter")
	}
	if cfg.Top < 0 {
		return fmt.Errorf("top must not be negative, got %d", cfg.Top)
	}
	f.top = cfg.Top
	f.position = cfg.Position
	return nil
}

func (f *topFilter) Apply(_ context.Context, deps Deps, s *Selection) (*Selection, Step, error) {
	initial := s.Len()
	if deps.Score == nil {
		deps.Logger.Debug("no scoring function configured; skipping top filter")
		return s, Step{Initial: initial, Dropped: 0, Left: initial}, nil
	}

	f.scores = make(map[string]float64, initial)
	for _, c := range s.Items {
		f.scores[c.ID] = deps.Score(c, f.position)
	}
	sort.SliceStable(s.Items, func(i, j int) bool {
		return f.scores[s.Items[i].ID] > f.scores[s.Items[j].ID]
	})

	if f.top > 0 && initial > f.top {
		for _, c := range s.Items[f.top:] {
			s.Dropped = append(s.Dropped, Drop{Candidate: c, Filter: f.Name(), Reason: "lower score"})
		}
		s.Items = s.Items[:f.top]
	}

	if len(s.Items) > 0 {
		deps.Logger.Info("ranked candidates",
			zap.String("best", s.Items[0].Name),
			zap.Float64("best_score", f.scores[s.Items[0].ID]),
			zap.Int("kept", s.Len()),
		)
	}
	return s, Step{Initial: initial, Dropped: initial - s.Len(), Left: s.Len()}, nil
}

func (f *topFilter) Scores() map[string]float64 {
	if f.scores == nil {
		return map[string]float64{}
	}
	return f.scores
}

func (f *topFilter) Status() Status {
	return Status{
		Name:    f.Name(),
		Enabled: f.IsEnabled(),
		Reason:  f.reason,
		Details: map[string]string{"top": strconv.Itoa(f.top), "position": f.position},
	}
}

package filtering

import (
	"context"
	"strconv"
)

const LimitFilterName = "limit"

type limitFilter struct {
	toggle
	limit int
}

// NewLimit creates a filter that keeps at most cfg.Limit candidates in their current order.
func NewLimit() Filter {
	return &limitFilter{}
}

func (f *limitFilter) Name() string { return LimitFilterName }

func (f *limitFilter) Validate(cfg *Config) error {
	f.limit = 0
	if cfg != nil && cfg.Limit > 0 {
		f.limit = cfg.Limit
	}
	return nil
}

func (f *limitFilter) Apply(_ context.Context, _ Deps, s *Selection) (*Selection, Step, error) {
	initial := s.Len()
	if f.limit == 0 || initial <= f.limit {
		return s, Step{Initial: initial, Dropped: 0, Left: initial}, nil
	}

	for _, c := range s.Items[f.limit:] {
		s.Dropped = append(s.Dropped, Drop{Candidate: c, Filter: f.Name(), Reason: "over limit"})
	}
	s.Items = s.Items[:f.limit]
	return s, Step{Initial: initial, Dropped: initial - f.limit, Left: f.limit}, nil
}

func (f *limitFilter) Status() Status {
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason, Details: map[string]string{"limit": strconv.Itoa(f.limit)}}
}

package filtering

import (
	"context"
	"strings"

	"github.com/spigell/talent-agent/internal/directory"
	"github.com/spigell/talent-agent/internal/matcher"
	"go.uber.org/zap"
)

const ExcludeFilterName = "exclude"

type excludeFilter struct {
	toggle
	names []string
}

// NewExclude creates a filter that removes candidates named in the request's exclusion list.
func NewExclude() Filter {
	return &excludeFilter{}
}

func (f *excludeFilter) Name() string { return ExcludeFilterName }

func (f *excludeFilter) Validate(cfg *Config) error {
	f.names = nil
	if cfg != nil {
		f.names = append(f.names, cfg.Exclude...)
	}
	return nil
}

func (f *excludeFilter) Apply(_ context.Context, deps Deps, s *Selection) (*Selection, Step, error) {
	initial := s.Len()
	if len(f.names) == 0 {
		return s, Step{Initial: initial, Dropped: 0, Left: s.Len()}, nil
	}

	excluded := s.keep(f.Name(), func(c *directory.Candidate) string {
		if matcher.Excluded(c.Name, f.names) {
			return "excluded by request"
		}
		return ""
	})
	if len(excluded) > 0 {
		deps.Logger.Info("excluding candidates by request",
			zap.Strings("exclude", f.names),
			zap.Strings("excluded_candidates", excluded),
			zap.Int("candidates_left", s.Len()),
		)
	}

	return s, Step{Initial: initial, Dropped: len(excluded), Left: s.Len()}, nil
}

func (f *excludeFilter) Status() Status {
	details := map[string]string{}
	if len(f.names) > 0 {
		details["exclude"] = strings.Join(f.names, ",")
	}
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason, Details: details}
}

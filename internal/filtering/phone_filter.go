package filtering

import (
	"context"

	"github.com/spigell/talent-agent/internal/directory"
	"go.uber.org/zap"
)

const PhoneFilterName = "phone"

type phoneFilter struct {
	toggle
}

// NewPhone creates a filter that keeps candidates with a usable phone number and rewrites their
// phone to the normalized form.
func NewPhone() Filter {
	return &phoneFilter{}
}

func (f *phoneFilter) Name() string { return PhoneFilterName }

func (f *phoneFilter) Validate(*Config) error { return nil }

func (f *phoneFilter) Apply(_ context.Context, deps Deps, s *Selection) (*Selection, Step, error) {
	initial := s.Len()
	skipped := s.keep(f.Name(), func(c *directory.Candidate) string {
		normalized, ok := deps.Phones.Normalize(c.Phone)
		if !ok {
			return "no valid phone"
		}
		c.Phone = normalized
		return ""
	})
	if len(skipped) > 0 {
		deps.Logger.Warn("skipping candidates without a valid phone",
			zap.Strings("skipped_candidates", skipped),
			zap.Int("candidates_left", s.Len()),
		)
	}

	return s, Step{Initial: initial, Dropped: len(skipped), Left: s.Len()}, nil
}

func (f *phoneFilter) Status() Status {
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason}
}

package ai

import (
	"context"
	"errors"
)

// ErrQuota marks provider errors caused by exhausted quota or rate limiting. Callers fall back to
// deterministic behaviour when they see it.
var ErrQuota = errors.New("ai provider quota exceeded")

// Generator produces a textual completion for a system instruction and a user message.
type Generator interface {
	GenerateContent(ctx context.Context, system, message string) (string, error)
	Model() string
}

// IsQuota reports whether err is a quota or rate-limit error.
func IsQuota(err error) bool {
	return errors.Is(err, ErrQuota)
}

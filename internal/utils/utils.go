package utils

import (
	"context"
	"math/rand/v2"
	"strings"
	"time"
)

var sleep = time.Sleep

// WaitFor blocks for d or until ctx is done, whichever comes first.
func WaitFor(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		sleep(d)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

// Backoff returns the exponential delay for the given attempt (1-based), capped at max.
// Up to a quarter of the delay is added as jitter when jitter is true.
func Backoff(base, max time.Duration, attempt int, jitter bool) time.Duration {
	if base <= 0 || attempt <= 0 {
		return 0
	}

	delay := base
	for i := 1; i < attempt; i++ {
		delay *= 2
		if max > 0 && delay >= max {
			delay = max
			break
		}
	}

	if max > 0 && delay > max {
		delay = max
	}

	if jitter && delay > 0 {
		delay += time.Duration(rand.Int64N(int64(delay)/4 + 1))
	}

	return delay
}

// TruncateForLog shortens the provided string to the specified limit, appending an ellipsis when truncated.
func TruncateForLog(s string, limit int) string {
	s = strings.TrimSpace(s)
	if limit <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}

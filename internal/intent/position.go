package intent

import (
	"context"
	"fmt"
	"strings"

	"github.com/spigell/talent-agent/internal/ai"
	"github.com/spigell/talent-agent/internal/logger"
	"github.com/spigell/talent-agent/internal/matcher"
	"go.uber.org/zap"
)

// noPosition is the answer the model gives when no listed position fits.
const noPosition = "NINGUNA"

// PositionMatcher picks the job position a text refers to among the known positions.
type PositionMatcher interface {
	MatchPosition(ctx context.Context, text string, positions []string) (string, bool)
}

// KeywordPositions matches positions by their letters appearing in the text, or by every word of
// the position appearing in it.
type KeywordPositions struct{}

func (KeywordPositions) MatchPosition(_ context.Context, text string, positions []string) (string, bool) {
	letters := matcher.LettersOnly(text)
	folded := matcher.Fold(text)
	for _, p := range positions {
		if lp := matcher.LettersOnly(p); lp != "" && strings.Contains(letters, lp) {
			return p, true
		}
	}
	for _, p := range positions {
		words := strings.Fields(matcher.Fold(p))
		if len(words) == 0 {
			continue
		}
		all := true
		for _, w := range words {
			if len(w) > 2 && !strings.Contains(folded, w) {
				all = false
				break
			}
		}
		if all {
			return p, true
		}
	}
	return "", false
}

// LLMPositions asks the model which position the text refers to and only accepts answers that
// name a listed position.
type LLMPositions struct {
	generator ai.Generator
	fallback  PositionMatcher
	logger    *zap.Logger
}

func NewLLMPositions(generator ai.Generator, log *zap.Logger) *LLMPositions {
	return &LLMPositions{generator: generator, fallback: KeywordPositions{}, logger: logger.OrNop(log)}
}

func (m *LLMPositions) MatchPosition(ctx context.Context, text string, positions []string) (string, bool) {
	if len(positions) == 0 {
		return "", false
	}
	if p, ok := m.fallback.MatchPosition(ctx, text, positions); ok {
		return p, true
	}
	if m.generator == nil {
		return "", false
	}

	system := "You map recruiter requests to job positions. Answer with the exact position name from the list, or " +
		noPosition + " when none applies. No other words."
	message := fmt.Sprintf("Positions:\n- %s\n\nConversation:\n%s", strings.Join(positions, "\n- "), text)

	answer, err := m.generator.GenerateContent(ctx, system, message)
	if err != nil {
		m.logger.Warn("position matching failed", zap.Error(err))
		return "", false
	}

	answer = strings.Trim(strings.TrimSpace(answer), `"'.`)
	if strings.EqualFold(answer, noPosition) {
		return "", false
	}
	for _, p := range positions {
		if strings.EqualFold(p, answer) {
			return p, true
		}
	}
	for _, p := range positions {
		if strings.Contains(strings.ToLower(answer), strings.ToLower(p)) {
			return p, true
		}
	}
	return "", false
}

package intent

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	_ "embed"

	"github.com/spigell/talent-agent/internal/ai"
	"github.com/spigell/talent-agent/internal/directory"
	"github.com/spigell/talent-agent/internal/logger"
	"github.com/spigell/talent-agent/internal/utils"
	"go.uber.org/zap"
)

//go:embed prompt.md
var systemPrompt string

const (
	defaultMaxLogLength = 200
	contextCandidates   = 10
)

// LLMResolver asks a generator for the intent and falls back to another resolver on quota
// exhaustion or unparseable answers.
type LLMResolver struct {
	generator ai.Generator
	fallback  Resolver
	logger    *zap.Logger
	maxLogLen int
}

var _ Resolver = (*LLMResolver)(nil)

func NewLLMResolver(generator ai.Generator, fallback Resolver, log *zap.Logger, maxLogLength int) *LLMResolver {
	if fallback == nil {
		fallback = Rules{}
	}
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	return &LLMResolver{
		generator: generator,
		fallback:  fallback,
		logger:    logger.OrNop(log),
		maxLogLen: maxLogLength,
	}
}

func (r *LLMResolver) Resolve(ctx context.Context, text string, hints Hints) (Record, error) {
	if r.generator == nil {
		return r.fallback.Resolve(ctx, text, hints)
	}

	message := buildMessage(text, hints)
	r.logger.Debug("intent request",
		zap.Int("message_length", utf8.RuneCountInString(message)),
		zap.String("message_preview", utils.TruncateForLog(message, r.maxLogLen)),
	)

	raw, err := r.generator.GenerateContent(ctx, systemPrompt, message)
	if err != nil {
		if ai.IsQuota(err) {
			r.logger.Warn("intent provider over quota, using rules", zap.Error(err))
			return r.fallback.Resolve(ctx, text, hints)
		}
		r.logger.Error("intent detection failed", zap.Error(err))
		return Normalize(Record{
			Action:         ActionGeneralChat,
			Intent:         "fallback_to_general_chat",
			Reasoning:      "error occurred during intent detection",
			Parameters:     map[string]any{"language": LanguageES},
			OriginalPrompt: text,
			Language:       LanguageES,
			Source:         SourceLLM,
		}), nil
	}

	r.logger.Debug("intent response",
		zap.String("response_preview", utils.TruncateForLog(raw, r.maxLogLen)),
	)

	rec, err := parseRecord(raw)
	if err != nil {
		r.logger.Warn("intent response unusable, using rules", zap.Error(err))
		return r.fallback.Resolve(ctx, text, hints)
	}
	rec.OriginalPrompt = text
	rec.Source = SourceLLM
	if rec.Language == "" {
		rec.Language = DetectLanguage(text)
	}
	return Normalize(rec), nil
}

func parseRecord(raw string) (Record, error) {
	data, err := ai.DecodeObject(raw)
	if err != nil {
		return Record{}, err
	}

	action := Action(strings.ToLower(ai.CoerceString(data["action"])))
	if !action.Valid() {
		return Record{}, fmt.Errorf("unknown action %q", action)
	}

	params, _ := data["parameters"].(map[string]any)
	if params == nil {
		params = map[string]any{}
	}
	for k, v := range params {
		if v == nil {
			delete(params, k)
		}
	}

	lang := ai.CoerceString(data["language"])
	if lang == "" {
		lang = ai.CoerceString(params["language"])
	}

	return Record{
		Action:     action,
		Intent:     ai.CoerceString(data["intent"]),
		Reasoning:  ai.CoerceString(data["reasoning"]),
		Parameters: params,
		Language:   strings.ToLower(lang),
	}, nil
}

func buildMessage(text string, hints Hints) string {
	var b strings.Builder
	mc := hints.Context
	if !mc.IsZero() {
		b.WriteString("Conversation context:\n")
		fmt.Fprintf(&b, "- last action: %s\n", mc.LastAction)
		if mc.JobPosition != "" {
			fmt.Fprintf(&b, "- job position: %s\n", mc.JobPosition)
		}
		if len(mc.Candidates) > 0 {
			names := directory.Names(mc.Candidates)
			if len(names) > contextCandidates {
				names = names[:contextCandidates]
			}
			fmt.Fprintf(&b, "- candidates discussed: %s\n", strings.Join(names, ", "))
		}
		b.WriteString("\n")
	}

	if len(hints.Candidates) > 0 {
		if positions := directory.Positions(hints.Candidates); len(positions) > 0 {
			fmt.Fprintf(&b, "Open positions: %s\n", strings.Join(positions, "; "))
		}
		mentioned := make([]string, 0)
		lower := strings.ToLower(text)
		for _, c := range hints.Candidates {
			if n := strings.ToLower(c.Name); n != "" && strings.Contains(lower, n) {
				mentioned = append(mentioned, c.Name)
			}
		}
		if len(mentioned) > 0 {
			fmt.Fprintf(&b, "Candidates mentioned: %s\n", strings.Join(mentioned, ", "))
		}
		b.WriteString("\n")
	}

	b.WriteString("Request:\n")
	b.WriteString(strings.TrimSpace(text))
	return b.String()
}

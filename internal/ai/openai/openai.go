package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spigell/talent-agent/internal/ai"
	"github.com/spigell/talent-agent/internal/logger"
	"github.com/spigell/talent-agent/internal/utils"
	"github.com/tmc/langchaingo/llms"
	lcopenai "github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"
)

const (
	defaultModel       = "gpt-4o-mini"
	defaultTemperature = 0.1
	maxLogLength       = 200
)

// Generator implements ai.Generator on top of a langchaingo model.
type Generator struct {
	llm    llms.Model
	model  string
	logger *zap.Logger
}

var _ ai.Generator = (*Generator)(nil)

// NewGenerator creates an OpenAI-compatible generator. baseURL may be empty.
func NewGenerator(apiKey, model, baseURL string, log *zap.Logger) (*Generator, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("openai api key is required")
	}
	if model = strings.TrimSpace(model); model == "" {
		model = defaultModel
	}

	opts := []lcopenai.Option{
		lcopenai.WithToken(apiKey),
		lcopenai.WithModel(model),
	}
	if baseURL = strings.TrimSpace(baseURL); baseURL != "" {
		opts = append(opts, lcopenai.WithBaseURL(baseURL))
	}

	llm, err := lcopenai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create openai model: %w", err)
	}

	return New(llm, model, log), nil
}

// New wraps an existing langchaingo model.
func New(llm llms.Model, model string, log *zap.Logger) *Generator {
	return &Generator{
		llm:    llm,
		model:  model,
		logger: logger.WithCommonFields(log, "openai", model),
	}
}

func (g *Generator) GenerateContent(ctx context.Context, system, message string) (string, error) {
	if g == nil || g.llm == nil {
		return "", errors.New("openai generator is not initialized")
	}
	message = strings.TrimSpace(message)
	if message == "" {
		return "", errors.New("message must not be empty")
	}

	messages := make([]llms.MessageContent, 0, 2)
	if system = strings.TrimSpace(system); system != "" {
		messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, system))
	}
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, message))

	g.logger.Debug("openai generate content request",
		zap.String("message_preview", utils.TruncateForLog(message, maxLogLength)),
	)

	resp, err := g.llm.GenerateContent(ctx, messages, llms.WithTemperature(defaultTemperature))
	if err != nil {
		if isQuota(err) {
			return "", fmt.Errorf("%w: %v", ai.ErrQuota, err)
		}
		return "", fmt.Errorf("generate content: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", errors.New("openai returned no choices")
	}

	output := strings.TrimSpace(resp.Choices[0].Content)
	if output == "" {
		return "", errors.New("openai returned empty response")
	}

	g.logger.Debug("openai generate content response",
		zap.String("response_preview", utils.TruncateForLog(output, maxLogLength)),
	)
	return output, nil
}

func (g *Generator) Model() string {
	if g == nil {
		return ""
	}
	return g.model
}

func isQuota(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "quota") ||
		strings.Contains(msg, "rate limit")
}

package openai

import (
	"context"
	"errors"
	"testing"

	"github.com/spigell/talent-agent/internal/ai"
	"github.com/tmc/langchaingo/llms"
	"go.uber.org/zap"
)

type stubModel struct {
	messages []llms.MessageContent
	resp     *llms.ContentResponse
	err      error
}

func (s *stubModel) GenerateContent(_ context.Context, messages []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	s.messages = messages
	return s.resp, s.err
}

func (s *stubModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, s, prompt, options...)
}

func TestGenerateContentSendsSystemAndHuman(t *testing.T) {
	model := &stubModel{resp: &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: " hi "}}}}
	g := New(model, "gpt-test", zap.NewNop())

	out, err := g.GenerateContent(context.Background(), "be brief", "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "hi" {
		t.Fatalf("unexpected output %q", out)
	}
	if len(model.messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(model.messages))
	}
	if model.messages[0].Role != llms.ChatMessageTypeSystem || model.messages[1].Role != llms.ChatMessageTypeHuman {
		t.Fatalf("unexpected roles: %v %v", model.messages[0].Role, model.messages[1].Role)
	}
}

func TestGenerateContentQuota(t *testing.T) {
	model := &stubModel{err: errors.New("API returned unexpected status code: 429: You exceeded your current quota")}
	g := New(model, "gpt-test", nil)

	_, err := g.GenerateContent(context.Background(), "", "hello")
	if !ai.IsQuota(err) {
		t.Fatalf("expected quota error, got %v", err)
	}
}

func TestGenerateContentNoChoices(t *testing.T) {
	g := New(&stubModel{resp: &llms.ContentResponse{}}, "gpt-test", nil)
	if _, err := g.GenerateContent(context.Background(), "", "hello"); err == nil {
		t.Fatal("expected error without choices")
	}
}

package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spigell/talent-agent/internal/agent"
	"github.com/spigell/talent-agent/internal/directory"
	"github.com/spigell/talent-agent/internal/router"
	"github.com/spigell/talent-agent/internal/store"
	"github.com/spigell/talent-agent/internal/whatsapp"
	"go.uber.org/zap"
)

type stubProcessor struct {
	mu        sync.Mutex
	requests  []agent.Request
	forgotten []string
}

func (s *stubProcessor) Process(_ context.Context, req agent.Request) agent.Response {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	return agent.Response{
		Success:        true,
		ConversationID: "conv-1",
		Result:         router.Result{Success: true, Message: "hola", Explanation: "Te saludé."},
	}
}

func (s *stubProcessor) Forget(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.forgotten = append(s.forgotten, id)
}

type stubDirectory struct {
	candidates []directory.Candidate
	cleared    bool
	token      string
}

func (s *stubDirectory) Fetch(_ context.Context, token, _ string) []directory.Candidate {
	s.token = token
	return s.candidates
}

func (s *stubDirectory) ClearCache() { s.cleared = true }

func (s *stubDirectory) Stats() directory.CacheStats {
	return directory.CacheStats{Size: 1, Keys: []string{"token:user"}}
}

type stubConversations struct {
	deleted []string
}

func (s *stubConversations) History(_ context.Context, id string, _ int) ([]store.ChatTurn, error) {
	if id != "conv-1" {
		return nil, nil
	}
	return []store.ChatTurn{{ConversationID: id, Sender: store.SenderUser, Message: "hola"}}, nil
}

func (s *stubConversations) Conversations(context.Context) ([]store.ConversationInfo, error) {
	return []store.ConversationInfo{{ID: "conv-1", Turns: 1}}, nil
}

func (s *stubConversations) Delete(_ context.Context, id string) (bool, error) {
	s.deleted = append(s.deleted, id)
	return id == "conv-1", nil
}

type recordingInbox struct {
	received []whatsapp.Incoming
}

func (r *recordingInbox) Receive(in whatsapp.Incoming) (whatsapp.Received, error) {
	r.received = append(r.received, in)
	return whatsapp.Received{Message: store.Message{ID: in.ID, From: in.From, Body: in.Text}}, nil
}

type envelope struct {
	Success    bool            `json:"success"`
	Message    string          `json:"message"`
	DevMessage string          `json:"dev_message"`
	Data       json.RawMessage `json:"data"`
}

func do(t *testing.T, s *Server, method, target, body string) (int, envelope) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer token-1")

	resp, err := s.App().Test(req, -1)
	if err != nil {
		t.Fatalf("request %s %s: %v", method, target, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading body: %v", err)
	}
	var env envelope
	if len(raw) > 0 && raw[0] == '{' {
		if err := json.Unmarshal(raw, &env); err != nil {
			t.Fatalf("decoding %q: %v", raw, err)
		}
	} else {
		env.Message = string(raw)
	}
	return resp.StatusCode, env
}

func newServer(t *testing.T, opts Options) *Server {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) }
	}
	return New(opts)
}

func TestProcessPrompt(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		body    string
		status  int
		success bool
		calls   int
	}{
		{name: "missing prompt", body: `{"conversationId":"c"}`, status: http.StatusBadRequest},
		{name: "blank prompt", body: `{"prompt":"   "}`, status: http.StatusBadRequest},
		{name: "malformed body", body: `{"prompt":`, status: http.StatusBadRequest},
		{name: "prompt", body: `{"prompt":"hola","userId":"u1"}`, status: http.StatusOK, success: true, calls: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			proc := &stubProcessor{}
			s := newServer(t, Options{Agent: proc})
			status, env := do(t, s, http.MethodPost, "/api/process-prompt", tt.body)
			if status != tt.status || env.Success != tt.success {
				t.Fatalf("got %d success=%v (%s)", status, env.Success, env.Message)
			}
			if len(proc.requests) != tt.calls {
				t.Fatalf("expected %d agent calls, got %d", tt.calls, len(proc.requests))
			}
			if tt.calls == 1 {
				if proc.requests[0].Token != "token-1" || proc.requests[0].UserID != "u1" {
					t.Fatalf("unexpected request %+v", proc.requests[0])
				}
				if env.Message != "Te saludé." {
					t.Fatalf("expected the explanation as message, got %q", env.Message)
				}
			}
		})
	}
}

func TestProcessPromptRateLimit(t *testing.T) {
	t.Parallel()

	s := newServer(t, Options{Agent: &stubProcessor{}, RateLimit: 1, RateWindow: time.Hour})
	if status, _ := do(t, s, http.MethodPost, "/api/process-prompt", `{"prompt":"hola"}`); status != http.StatusOK {
		t.Fatalf("first request: got %d", status)
	}
	status, env := do(t, s, http.MethodPost, "/api/process-prompt", `{"prompt":"hola"}`)
	if status != http.StatusTooManyRequests || env.Success {
		t.Fatalf("second request: got %d %+v", status, env)
	}
}

func TestConversations(t *testing.T) {
	t.Parallel()

	proc := &stubProcessor{}
	convs := &stubConversations{}
	s := newServer(t, Options{Agent: proc, Conversations: convs})

	if status, env := do(t, s, http.MethodGet, "/api/conversations", ""); status != http.StatusOK || !env.Success {
		t.Fatalf("list: got %d %+v", status, env)
	}
	if status, _ := do(t, s, http.MethodGet, "/api/conversations/conv-1", ""); status != http.StatusOK {
		t.Fatalf("get: got %d", status)
	}
	if status, _ := do(t, s, http.MethodGet, "/api/conversations/missing", ""); status != http.StatusNotFound {
		t.Fatalf("get missing: got %d", status)
	}
	if status, _ := do(t, s, http.MethodDelete, "/api/conversations/conv-1", ""); status != http.StatusOK {
		t.Fatalf("delete: got %d", status)
	}
	if status, _ := do(t, s, http.MethodDelete, "/api/conversations/missing", ""); status != http.StatusNotFound {
		t.Fatalf("delete missing: got %d", status)
	}
	if len(proc.forgotten) != 2 || proc.forgotten[0] != "conv-1" {
		t.Fatalf("deleting must clear the context, got %v", proc.forgotten)
	}
}

func TestWebhookVerification(t *testing.T) {
	t.Parallel()

	wa, err := whatsapp.New(whatsapp.Config{Token: "t", PhoneNumberID: "123", VerifyToken: "secret"}, nil, zap.NewNop())
	if err != nil {
		t.Fatalf("creating client: %v", err)
	}
	s := newServer(t, Options{WhatsApp: wa})

	tests := []struct {
		name   string
		query  string
		status int
	}{
		{name: "valid", query: "hub.mode=subscribe&hub.verify_token=secret&hub.challenge=42", status: http.StatusOK},
		{name: "wrong token", query: "hub.mode=subscribe&hub.verify_token=nope&hub.challenge=42", status: http.StatusForbidden},
		{name: "wrong mode", query: "hub.mode=unsubscribe&hub.verify_token=secret&hub.challenge=42", status: http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			status, env := do(t, s, http.MethodGet, "/api/whatsapp/webhook?"+tt.query, "")
			if status != tt.status {
				t.Fatalf("got %d", status)
			}
			if tt.status == http.StatusOK && env.Message != "42" {
				t.Fatalf("expected the challenge back, got %q", env.Message)
			}
		})
	}
}

func TestWebhookReceive(t *testing.T) {
	t.Parallel()

	inbox := &recordingInbox{}
	s := newServer(t, Options{Inbox: inbox})

	if status, env := do(t, s, http.MethodPost, "/api/whatsapp/webhook", `{"object":"page"}`); status != http.StatusOK || !env.Success {
		t.Fatalf("empty payload: got %d %+v", status, env)
	}
	if len(inbox.received) != 0 {
		t.Fatalf("nothing should be stored for an empty payload")
	}

	status, _ := do(t, s, http.MethodPost, "/api/whatsapp/webhook", `{"from":"50761234567","message":"Hola, recibido"}`)
	if status != http.StatusOK {
		t.Fatalf("got %d", status)
	}
	if len(inbox.received) != 1 || inbox.received[0].From != "50761234567" || inbox.received[0].Text != "Hola, recibido" {
		t.Fatalf("unexpected inbox %+v", inbox.received)
	}
}

func TestReferencesRoundTrip(t *testing.T) {
	t.Parallel()

	refs := store.NewReferenceLog(t.TempDir())
	s := newServer(t, Options{References: refs})

	if status, _ := do(t, s, http.MethodPost, "/api/whatsapp/references/structured", `{"from":"50760001111"}`); status != http.StatusBadRequest {
		t.Fatalf("missing message: got %d", status)
	}

	status, env := do(t, s, http.MethodPost, "/api/whatsapp/references/structured",
		`{"message":"Le doy 9/10, fue mi colaborador por 2 años y sí lo recomiendo","from":"50760001111","candidateName":"Ana Ruiz"}`)
	if status != http.StatusOK {
		t.Fatalf("save: got %d %+v", status, env)
	}
	var saved store.ReferenceResponse
	if err := json.Unmarshal(env.Data, &saved); err != nil {
		t.Fatalf("decoding saved reference: %v", err)
	}
	if saved.Rating.Overall != 9 || saved.Relationship != "colleague" || saved.CandidateName != "Ana Ruiz" {
		t.Fatalf("unexpected reference %+v", saved)
	}

	status, env = do(t, s, http.MethodGet, "/api/whatsapp/references/structured?candidate=ana", "")
	if status != http.StatusOK {
		t.Fatalf("list: got %d", status)
	}
	var listed struct {
		Responses []store.ReferenceResponse `json:"responses"`
	}
	if err := json.Unmarshal(env.Data, &listed); err != nil {
		t.Fatalf("decoding list: %v", err)
	}
	if len(listed.Responses) != 1 {
		t.Fatalf("expected one response, got %d", len(listed.Responses))
	}
}

func TestRetrieveMessages(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	messages := store.NewMessageLog(dir)
	if _, err := messages.Append(store.Message{From: "50761234567", To: "123", Body: "Hola", Type: store.MessageIncoming}); err != nil {
		t.Fatalf("seeding messages: %v", err)
	}
	s := newServer(t, Options{Messages: messages})

	if status, _ := do(t, s, http.MethodGet, "/api/whatsapp/retrieve-messages", ""); status != http.StatusBadRequest {
		t.Fatalf("missing phone: got %d", status)
	}

	status, env := do(t, s, http.MethodGet, "/api/whatsapp/retrieve-messages?phone=%2B50761234567", "")
	if status != http.StatusOK {
		t.Fatalf("got %d", status)
	}
	var data struct {
		Messages []store.Message `json:"messages"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if len(data.Messages) != 1 {
		t.Fatalf("expected one message, got %d", len(data.Messages))
	}

	if status, _ := do(t, s, http.MethodPost, "/api/whatsapp/retrieve-multiple-messages", `{"phones":[]}`); status != http.StatusBadRequest {
		t.Fatalf("no phones: got %d", status)
	}
	if status, _ := do(t, s, http.MethodPost, "/api/whatsapp/retrieve-multiple-messages", `{"phones":["50761234567","50769999999"]}`); status != http.StatusOK {
		t.Fatalf("several phones: got %d", status)
	}
}

func TestSendWithoutWhatsApp(t *testing.T) {
	t.Parallel()

	s := newServer(t, Options{})
	status, env := do(t, s, http.MethodPost, "/api/whatsapp/send", `{"to":"61234567","message":"hola"}`)
	if status != http.StatusServiceUnavailable || env.Success || env.DevMessage == "" {
		t.Fatalf("got %d %+v", status, env)
	}
}

func TestCandidatesAndCache(t *testing.T) {
	t.Parallel()

	dir := &stubDirectory{candidates: []directory.Candidate{
		{ID: "1", Name: "Ana Ruiz", Position: "QA"},
		{ID: "2", Name: "Ana Rodríguez", Position: "QA"},
		{ID: "3", Name: "Carlos Pérez", Position: "Dev"},
	}}
	s := newServer(t, Options{Directory: dir})

	tests := []struct {
		name   string
		target string
		status int
	}{
		{name: "all", target: "/api/candidates", status: http.StatusOK},
		{name: "exact", target: "/api/candidates/Carlos%20P%C3%A9rez", status: http.StatusOK},
		{name: "ambiguous", target: "/api/candidates/Ana", status: http.StatusConflict},
		{name: "unknown", target: "/api/candidates/Pedro", status: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, env := do(t, s, http.MethodGet, tt.target, "")
			if status != tt.status {
				t.Fatalf("got %d %+v", status, env)
			}
		})
	}
	if dir.token != "token-1" {
		t.Fatalf("expected the bearer token to reach the directory, got %q", dir.token)
	}

	if status, _ := do(t, s, http.MethodGet, "/api/cache/stats", ""); status != http.StatusOK {
		t.Fatalf("stats: got %d", status)
	}
	if status, _ := do(t, s, http.MethodPost, "/api/cache/clear", ""); status != http.StatusOK || !dir.cleared {
		t.Fatalf("clear: got %d cleared=%v", status, dir.cleared)
	}
}

func TestHealth(t *testing.T) {
	t.Parallel()

	s := newServer(t, Options{Directory: &stubDirectory{}})
	status, env := do(t, s, http.MethodGet, "/api/health", "")
	if status != http.StatusOK || !env.Success {
		t.Fatalf("got %d %+v", status, env)
	}
	if status, _ := do(t, s, http.MethodGet, "/livez", ""); status != http.StatusOK {
		t.Fatalf("liveness check: got %d", status)
	}
}

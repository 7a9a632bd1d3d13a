package router

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/spigell/talent-agent/internal/ai"
	"github.com/spigell/talent-agent/internal/directory"
	"github.com/spigell/talent-agent/internal/dispatch"
	"github.com/spigell/talent-agent/internal/filtering"
	"github.com/spigell/talent-agent/internal/intent"
	"github.com/spigell/talent-agent/internal/memory"
	"github.com/spigell/talent-agent/internal/store"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type stubGenerator struct {
	out string
	err error
}

func (s stubGenerator) GenerateContent(context.Context, string, string) (string, error) {
	return s.out, s.err
}

func (stubGenerator) Model() string { return "stub" }

type stubSender struct{}

func (stubSender) SendText(_ context.Context, to, _ string) (string, error) {
	return "wamid." + to, nil
}

func (stubSender) SendTemplate(_ context.Context, to string, _ dispatch.Template) (string, error) {
	return "wamid." + to, nil
}

func roster() []directory.Candidate {
	return []directory.Candidate{
		{
			ID: "c1", Name: "Carlos Pérez", Phone: "6123-4567", Position: "Programador Full Stack",
			Experience: "5 años", Skills: []string{"Go", "React"}, Languages: []string{"Español", "Inglés"},
			Location: "Panamá", Availability: "Presencial",
		},
		{ID: "c2", Name: "Carlos Gómez", Phone: "61112222", Position: "Programador Full Stack", Experience: "2 años"},
		{ID: "c3", Name: "Ana Ruiz", Position: "Diseñador UX"},
		{
			ID: "c4", Name: "María López", Phone: "+507 6999 8888", Position: "Programador Full Stack",
			References: []directory.Reference{
				{Name: "Luis Torres", Contact: directory.Contact{Phone: "60001111"}},
				{Name: "Eva Díaz"},
			},
		},
	}
}

func newRouter(t *testing.T, gen ai.Generator) *Router {
	t.Helper()
	dir := t.TempDir()
	return New(Options{
		Generator:  gen,
		Messages:   store.NewMessageLog(dir),
		References: store.NewReferenceLog(dir),
		Logger:     zap.NewNop(),
	})
}

func turn(prompt string, candidates []directory.Candidate) Turn {
	return Turn{Record: intent.Record{OriginalPrompt: prompt}, Candidates: candidates}
}

func TestSendToEveryoneIsBlocked(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		action Action
	}{
		{name: "all candidates", action: SendMessage{intent.Params{CandidateName: "all", Message: "hola"}}},
		{name: "all references", action: SendMessage{intent.Params{CandidateName: "all", AllReferences: true}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := newRouter(t, nil)
			res := r.Route(context.Background(), tt.action, turn("send a message to all candidates", roster()))
			if res.Success {
				t.Fatalf("expected the send to be refused")
			}
			if res.Kind != KindSafetyBlocked {
				t.Fatalf("expected %s, got %s", KindSafetyBlocked, res.Kind)
			}
			if len(res.Batch) != 0 {
				t.Fatalf("expected no batch, got %d items", len(res.Batch))
			}
		})
	}
}

func TestBulkSendHonoursExclusions(t *testing.T) {
	t.Parallel()

	r := newRouter(t, nil)
	a := SendMessage{intent.Params{
		CandidateName:     "all",
		JobPosition:       "Programador Full Stack",
		ExcludeCandidates: []string{"Maria"},
		Message:           "Hola, ¿sigues interesado?",
	}}
	res := r.Route(context.Background(), a, turn("envía a todos los de full stack menos a María", roster()))

	if !res.Success || res.BatchKind != BatchBulk {
		t.Fatalf("unexpected result: %+v", res)
	}
	if len(res.Batch) != 2 {
		t.Fatalf("expected 2 items, got %d", len(res.Batch))
	}
	for _, item := range res.Batch {
		if strings.Contains(item.Label, "María") {
			t.Fatalf("excluded candidate in batch: %+v", item)
		}
		if !strings.HasPrefix(item.Phone, "+507") {
			t.Fatalf("expected a normalized phone, got %q", item.Phone)
		}
	}
}

func TestBulkSendSkipsMissingPhones(t *testing.T) {
	t.Parallel()

	candidates := roster()
	candidates[1].Phone = ""

	r := newRouter(t, nil)
	a := SendMessage{intent.Params{CandidateName: "all", JobPosition: "Programador Full Stack", Message: "Hola"}}
	res := r.Route(context.Background(), a, turn("mensaje a los full stack", candidates))

	if !res.Success {
		t.Fatalf("expected success, got %+v", res)
	}
	if len(res.Batch) != 2 {
		t.Fatalf("expected 2 items, got %d", len(res.Batch))
	}
	skipped, ok := res.Data.([]string)
	if !ok || len(skipped) != 1 || skipped[0] != "Carlos Gómez" {
		t.Fatalf("expected Carlos Gómez to be reported, got %#v", res.Data)
	}

	outcomes := dispatch.New(stubSender{}, 0, zap.NewNop()).SendBatch(context.Background(), res.Batch)
	text := ExplainDispatch(res, outcomes, intent.LanguageES)
	if !strings.Contains(text, "Envié mensajes a 2 candidatos") || !strings.Contains(text, "Carlos Gómez") {
		t.Fatalf("unexpected explanation %q", text)
	}
}

func TestSendToExactName(t *testing.T) {
	t.Parallel()

	r := newRouter(t, nil)
	a := SendMessage{intent.Params{CandidateName: "Carlos Pérez", Message: "hola"}}
	res := r.Route(context.Background(), a, turn("envía un mensaje a Carlos Pérez que diga hola", roster()))

	if !res.Success || len(res.Batch) != 1 {
		t.Fatalf("expected one item, got %+v", res)
	}
	item := res.Batch[0]
	if item.Label != "Carlos Pérez" || item.Phone != "+50761234567" || item.Body != "hola" {
		t.Fatalf("unexpected item %+v", item)
	}

	outcomes := []dispatch.Result{{Label: item.Label, Phone: item.Phone, Success: true}}
	if text := ExplainDispatch(res, outcomes, intent.LanguageES); !strings.HasPrefix(text, "Envié un mensaje a Carlos Pérez") {
		t.Fatalf("unexpected explanation %q", text)
	}
}

func TestSendToAmbiguousName(t *testing.T) {
	t.Parallel()

	r := newRouter(t, nil)
	res := r.Route(context.Background(), SendMessage{intent.Params{CandidateName: "Carlos"}}, turn("envía un mensaje a Carlos", roster()))

	if res.Kind != KindAmbiguousCandidate {
		t.Fatalf("expected ambiguity, got %+v", res)
	}
	if len(res.Batch) != 0 {
		t.Fatalf("expected no batch")
	}
	names, _ := res.Data.([]string)
	if len(names) != 2 {
		t.Fatalf("expected both Carlos candidates, got %#v", res.Data)
	}
}

func TestSendToUnknownNameAsksForClarification(t *testing.T) {
	t.Parallel()

	r := newRouter(t, nil)
	tn := turn("mándale un mensaje a Pedro", roster())
	tn.Context = memory.Context{Candidates: roster()[3:4]}
	res := r.Route(context.Background(), SendMessage{intent.Params{CandidateName: "Pedro", Message: "hola"}}, tn)

	if !res.Success || res.Kind != KindCandidateNotFound {
		t.Fatalf("expected a not found clarification, got %+v", res)
	}
	if len(res.Batch) != 0 {
		t.Fatalf("expected no batch, got %+v", res.Batch)
	}
}

func TestSendToPronounUsesRememberedCandidate(t *testing.T) {
	t.Parallel()

	r := newRouter(t, nil)
	tn := turn("send her a message", roster())
	tn.Context = memory.Context{Candidates: roster()[3:4]}
	res := r.Route(context.Background(), SendMessage{intent.Params{CandidateName: "her", Message: "hi"}}, tn)

	if len(res.Batch) != 1 || res.Batch[0].Label != "María López" {
		t.Fatalf("expected the remembered candidate, got %+v", res)
	}
}

func TestSendSkipsExcludedTarget(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		prompt  string
		params  intent.Params
		context memory.Context
	}{
		{
			name:   "full name in the prompt",
			prompt: "envía un mensaje a María López",
			params: intent.Params{CandidateName: "María López", ExcludeCandidates: []string{"María"}},
		},
		{
			name:   "candidate name parameter",
			prompt: "escríbele a la candidata",
			params: intent.Params{CandidateName: "López", ExcludeCandidates: []string{"Maria"}},
		},
		{
			name:    "remembered candidate",
			prompt:  "send her a message",
			params:  intent.Params{CandidateName: "her", ExcludeCandidates: []string{"Maria"}},
			context: memory.Context{Candidates: roster()[3:4]},
		},
		{
			name:   "one reference",
			prompt: "contacta a Luis, la referencia de María López",
			params: intent.Params{CandidateName: "María López", ReferenceName: "Luis", ExcludeCandidates: []string{"María López"}},
		},
		{
			name:   "number of a directory candidate",
			prompt: "envía un mensaje al +507 6999 8888",
			params: intent.Params{PhoneNumber: "+507 6999 8888", ExcludeCandidates: []string{"María"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := newRouter(t, nil)
			tn := turn(tt.prompt, roster())
			tn.Context = tt.context
			tt.params.Message = "hola"

			res := r.Route(context.Background(), SendMessage{tt.params}, tn)
			if len(res.Batch) != 0 {
				t.Fatalf("excluded candidate in batch: %+v", res.Batch)
			}
			if !res.Success || res.Kind != KindCandidateNotFound {
				t.Fatalf("expected a not found clarification, got %+v", res)
			}
			if !strings.Contains(res.Message, "María López") {
				t.Fatalf("expected the excluded name in the message, got %q", res.Message)
			}
		})
	}
}

func TestSendToRememberedListingOfEveryone(t *testing.T) {
	t.Parallel()

	r := newRouter(t, nil)
	listed := r.Route(context.Background(), ShowCandidates{}, turn("show me all candidates", roster()))
	if !listed.Success || !listed.Unfiltered || len(listed.Candidates) != len(roster()) {
		t.Fatalf("unexpected listing %+v", listed)
	}

	tests := []struct {
		name    string
		context memory.Context
		blocked bool
	}{
		{
			name:    "unfiltered listing",
			context: memory.Context{Candidates: listed.Candidates, Unfiltered: listed.Unfiltered},
			blocked: true,
		},
		{
			name:    "every candidate without a position",
			context: memory.Context{Candidates: roster()},
			blocked: true,
		},
		{
			name:    "candidates of a position",
			context: memory.Context{Candidates: []directory.Candidate{roster()[0], roster()[1], roster()[3]}, JobPosition: "Programador Full Stack"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			tn := turn("send them all a message", roster())
			tn.Context = tt.context

			res := r.Route(context.Background(), SendMessage{intent.Params{CandidateName: "all", Message: "hi"}}, tn)
			if !tt.blocked {
				if !res.Success || len(res.Batch) != 3 {
					t.Fatalf("expected a batch of 3, got %+v", res)
				}
				return
			}
			if res.Success || res.Kind != KindSafetyBlocked || len(res.Batch) != 0 {
				t.Fatalf("expected the send to be refused, got %+v", res)
			}
		})
	}
}

func TestSendToNamesWithTiedName(t *testing.T) {
	t.Parallel()

	r := newRouter(t, nil)
	a := SendMessage{intent.Params{CandidateNames: []string{"Carlos", "María"}, Message: "hola"}}
	res := r.Route(context.Background(), a, turn("envía un mensaje a Carlos y a María", roster()))

	if res.Kind != KindAmbiguousCandidate || len(res.Batch) != 0 {
		t.Fatalf("expected ambiguity and no batch, got %+v", res)
	}
	names, _ := res.Data.([]string)
	if len(names) != 2 || names[0] != "Carlos Pérez" || names[1] != "Carlos Gómez" {
		t.Fatalf("expected both Carlos candidates, got %#v", res.Data)
	}

	a = SendMessage{intent.Params{CandidateNames: []string{"Carlos Gómez", "María"}, Message: "hola"}}
	res = r.Route(context.Background(), a, turn("envía un mensaje a Carlos Gómez y a María", roster()))
	if !res.Success || len(res.Batch) != 2 || res.Batch[0].Label != "Carlos Gómez" || res.Batch[1].Label != "María López" {
		t.Fatalf("unexpected batch %+v", res)
	}
}

func TestDirectSendGreeting(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		phone  string
		label  string
		prefix string
	}{
		{name: "unknown number", phone: "6000-0000", label: "Mensaje directo (+50760000000)", prefix: "Hola, te escribimos"},
		{name: "directory candidate", phone: "6123-4567", label: "Carlos Pérez", prefix: "Hola Carlos, te escribimos"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := newRouter(t, nil)
			res := r.Route(context.Background(), SendMessage{intent.Params{PhoneNumber: tt.phone}}, turn("escribe al "+tt.phone, roster()))

			if len(res.Batch) != 1 {
				t.Fatalf("expected one item, got %+v", res)
			}
			if res.Batch[0].Label != tt.label || !strings.HasPrefix(res.Batch[0].Body, tt.prefix) {
				t.Fatalf("unexpected item %+v", res.Batch[0])
			}
		})
	}
}

func TestBulkSendReportsFilterSteps(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.DebugLevel)
	dir := t.TempDir()
	r := New(Options{Messages: store.NewMessageLog(dir), References: store.NewReferenceLog(dir), Logger: zap.New(core)})

	a := SendMessage{intent.Params{CandidateName: "all", JobPosition: "Programador Full Stack", Message: "hola"}}
	if res := r.Route(context.Background(), a, turn("mensaje a los full stack", roster())); len(res.Batch) != 3 {
		t.Fatalf("expected 3 items, got %+v", res)
	}

	entries := logs.FilterMessage("filters applied").All()
	if len(entries) != 1 {
		t.Fatalf("expected one filter report, got %d", len(entries))
	}
	steps, ok := entries[0].ContextMap()["steps"].([]filtering.Status)
	if !ok {
		t.Fatalf("unexpected steps field %#v", entries[0].ContextMap()["steps"])
	}
	enabled := map[string]bool{}
	for _, st := range steps {
		enabled[st.Name] = st.Enabled
	}
	if enabled[filtering.ExcludeFilterName] || enabled[filtering.LimitFilterName] {
		t.Fatalf("steps with nothing to do ran: %+v", steps)
	}
	if !enabled[filtering.PositionFilterName] || !enabled[filtering.PhoneFilterName] {
		t.Fatalf("expected position and phone steps to run: %+v", steps)
	}
}

func TestMessageBodyDegradesOnQuota(t *testing.T) {
	t.Parallel()

	r := newRouter(t, stubGenerator{err: fmt.Errorf("gemini: %w", ai.ErrQuota)})
	res := r.Route(context.Background(), SendMessage{intent.Params{CandidateName: "Carlos Pérez"}}, turn("escríbele a Carlos Pérez", roster()))

	if len(res.Batch) != 1 {
		t.Fatalf("expected one item, got %+v", res)
	}
	if body := res.Batch[0].Body; !strings.HasPrefix(body, "Hola Carlos,") {
		t.Fatalf("expected the fallback greeting, got %q", body)
	}
}

func TestReferenceTemplateBatch(t *testing.T) {
	t.Parallel()

	r := newRouter(t, nil)
	res := r.Route(context.Background(), SendReferenceMessage{intent.Params{CandidateName: "María López"}},
		turn("contacta a las referencias de María López", roster()))

	if !res.Success || res.BatchKind != BatchReference || len(res.Batch) != 2 {
		t.Fatalf("unexpected result %+v", res)
	}
	first, second := res.Batch[0], res.Batch[1]
	if first.Template == nil || first.Template.Name != ReferenceTemplate || first.Template.Params[0].Text != "María López" {
		t.Fatalf("unexpected template %+v", first.Template)
	}
	if first.Phone != "+50760001111" || second.Phone != "" {
		t.Fatalf("unexpected phones %q %q", first.Phone, second.Phone)
	}

	outcomes := dispatch.New(stubSender{}, 0, zap.NewNop()).SendBatch(context.Background(), res.Batch)
	if !outcomes[1].Skipped || outcomes[1].Error != dispatch.NoPhoneError {
		t.Fatalf("expected the reference without phone to be skipped, got %+v", outcomes[1])
	}
	text := ExplainDispatch(res, outcomes, intent.LanguageES)
	if !strings.Contains(text, "Se enviaron 1 mensajes") || !strings.Contains(text, "Eva Díaz (referencia de María López)") {
		t.Fatalf("unexpected explanation %q", text)
	}
}

func TestRetrieveMessagesForUnknownNumber(t *testing.T) {
	t.Parallel()

	r := newRouter(t, nil)
	res := r.Route(context.Background(), RetrieveMessages{Params: intent.Params{PhoneNumber: "6000-0000"}}, turn("mensajes del 6000-0000", roster()))

	if !res.Success || res.Kind != "" {
		t.Fatalf("expected a plain success, got %+v", res)
	}
	data, ok := res.Data.(MessagesData)
	if !ok || data.Count != 0 || data.Phone != "+50760000000" {
		t.Fatalf("unexpected data %#v", res.Data)
	}
	if !strings.Contains(res.Message, "No se encontraron mensajes para +50760000000") {
		t.Fatalf("unexpected message %q", res.Message)
	}
}

func TestRetrieveMessagesByCandidate(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	log := store.NewMessageLog(dir)
	if _, err := log.Append(store.Message{From: "+50761234567", To: "123", Body: "Sí, me interesa", Type: store.MessageIncoming}); err != nil {
		t.Fatalf("append: %v", err)
	}
	r := New(Options{Messages: log, Logger: zap.NewNop()})

	res := r.Route(context.Background(), RetrieveMessages{Params: intent.Params{CandidateName: "Carlos Pérez"}}, turn("mensajes de Carlos Pérez", roster()))
	data, ok := res.Data.(MessagesData)
	if !ok || data.Count != 1 || data.Candidate != "Carlos Pérez" {
		t.Fatalf("unexpected data %#v", res.Data)
	}
}

func TestParseUnknownAction(t *testing.T) {
	t.Parallel()

	rec := intent.Record{Action: "dance", Intent: "dance"}
	if _, err := Parse(rec); !errors.Is(err, ErrUnknownAction) {
		t.Fatalf("expected ErrUnknownAction, got %v", err)
	}
	if a := ParseOrChat(rec); a.Name() != intent.ActionGeneralChat {
		t.Fatalf("expected general chat, got %s", a.Name())
	}

	multi, err := Parse(intent.Record{Action: intent.ActionRetrieveMultipleMessages})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rm, ok := multi.(RetrieveMessages); !ok || !rm.Multiple {
		t.Fatalf("expected the several numbers form, got %#v", multi)
	}
}

func TestShowCandidatesIsCapped(t *testing.T) {
	t.Parallel()

	candidates := make([]directory.Candidate, 0, 65)
	for i := 0; i < 65; i++ {
		candidates = append(candidates, directory.Candidate{ID: fmt.Sprintf("t%d", i), Name: fmt.Sprintf("Tester %d", i), Position: "Tester Manual"})
	}

	r := newRouter(t, nil)
	res := r.Route(context.Background(), ShowCandidates{}, turn("lista completa de candidatos", candidates))
	if !res.Success || res.Total != 65 || len(res.Candidates) != listCap {
		t.Fatalf("expected %d of 65, got %d of %d", listCap, len(res.Candidates), res.Total)
	}
	if res.Explanation == "" {
		t.Fatalf("expected an explanation")
	}
}

func TestShowBestCandidates(t *testing.T) {
	t.Parallel()

	r := newRouter(t, nil)
	a := ShowCandidates{intent.Params{CandidateName: "all", JobPosition: "Programador Full Stack", NumberOfCandidates: 2}}
	res := r.Route(context.Background(), a, turn("los 2 mejores full stack", roster()))

	if !res.NeedsAnalysis || len(res.Candidates) != 2 {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.Candidates[0].Name != "Carlos Pérez" {
		t.Fatalf("expected the strongest candidate first, got %s", res.Candidates[0].Name)
	}
	if !strings.Contains(res.AnalysisPrompt, "Programador Full Stack") {
		t.Fatalf("analysis prompt does not name the position")
	}
}

func TestGenerateQuestionsUsesModelLines(t *testing.T) {
	t.Parallel()

	r := newRouter(t, stubGenerator{out: "1. ¿Cuándo puedes empezar?\n2) ¿Qué stack prefieres?\n\n"})
	res := r.Route(context.Background(), GenerateQuestions{intent.Params{CandidateName: "Carlos Pérez"}}, turn("preguntas para Carlos Pérez", roster()))

	questions, ok := res.Data.([]string)
	if !ok || len(questions) != 2 || questions[1] != "¿Qué stack prefieres?" {
		t.Fatalf("unexpected questions %#v", res.Data)
	}
	if len(res.Batch) != 1 || !strings.HasPrefix(res.Batch[0].Body, "Hola Carlos Pérez, te envío algunas preguntas") {
		t.Fatalf("unexpected batch %+v", res.Batch)
	}
}

func TestDefaultScore(t *testing.T) {
	t.Parallel()

	c := roster()
	tests := []struct {
		name   string
		c      directory.Candidate
		expect float64
	}{
		{name: "complete profile", c: c[0], expect: 61},
		{name: "years only", c: c[1], expect: 14},
		{name: "months", c: directory.Candidate{Experience: "8 meses"}, expect: 4},
		{name: "empty", c: directory.Candidate{}, expect: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := DefaultScore(tt.c, "Programador Full Stack"); got != tt.expect {
				t.Fatalf("expected %v, got %v", tt.expect, got)
			}
		})
	}
}

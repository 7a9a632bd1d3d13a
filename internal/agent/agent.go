package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spigell/talent-agent/internal/ai"
	"github.com/spigell/talent-agent/internal/directory"
	"github.com/spigell/talent-agent/internal/dispatch"
	"github.com/spigell/talent-agent/internal/intent"
	"github.com/spigell/talent-agent/internal/logger"
	"github.com/spigell/talent-agent/internal/memory"
	"github.com/spigell/talent-agent/internal/router"
	"github.com/spigell/talent-agent/internal/store"
	"go.uber.org/zap"
)

const (
	defaultHistoryLimit = 20
	analysisSystem      = "You are an expert HR recruiter and candidate analyst. Provide detailed, professional analysis " +
		"of candidates based on their skills, experience, salary expectations and overall fit. Be specific and actionable."
)

// Directory supplies the candidate list of a recruiter.
type Directory interface {
	Fetch(ctx context.Context, token, userID string) []directory.Candidate
	Cached(token, userID string) []directory.Candidate
}

// ChatLog persists the recruiter side of conversations.
type ChatLog interface {
	Append(ctx context.Context, t store.ChatTurn) (store.ChatTurn, error)
	History(ctx context.Context, conversationID string, limit int) ([]store.ChatTurn, error)
}

// Batcher delivers dispatch batches.
type Batcher interface {
	SendBatch(ctx context.Context, items []dispatch.Item) []dispatch.Result
}

// ConfirmFunc approves a batch before it is sent. Returning false cancels the send.
type ConfirmFunc func(ctx context.Context, res router.Result) bool

type Options struct {
	Resolver     intent.Resolver
	Fallback     intent.Resolver
	Directory    Directory
	Router       *router.Router
	Dispatcher   Batcher
	Memory       *memory.Store
	Locker       *memory.Locker
	Chats        ChatLog
	Analyst      ai.Generator
	Confirm      ConfirmFunc
	HistoryLimit int
	Now          func() time.Time
	Logger       *zap.Logger
}

// Agent runs one recruiter turn end to end.
type Agent struct {
	resolver     intent.Resolver
	fallback     intent.Resolver
	directory    Directory
	router       *router.Router
	dispatcher   Batcher
	memory       *memory.Store
	locker       *memory.Locker
	chats        ChatLog
	analyst      ai.Generator
	confirm      ConfirmFunc
	historyLimit int
	now          func() time.Time
	logger       *zap.Logger
}

func New(opts Options) *Agent {
	a := &Agent{
		resolver:     opts.Resolver,
		fallback:     opts.Fallback,
		directory:    opts.Directory,
		router:       opts.Router,
		dispatcher:   opts.Dispatcher,
		memory:       opts.Memory,
		locker:       opts.Locker,
		chats:        opts.Chats,
		analyst:      opts.Analyst,
		confirm:      opts.Confirm,
		historyLimit: opts.HistoryLimit,
		now:          opts.Now,
		logger:       logger.OrNop(opts.Logger),
	}
	if a.fallback == nil {
		a.fallback = intent.Rules{}
	}
	if a.resolver == nil {
		a.resolver = a.fallback
	}
	if a.router == nil {
		a.router = router.New(router.Options{Logger: a.logger})
	}
	if a.memory == nil {
		a.memory = memory.NewStore()
	}
	if a.locker == nil {
		a.locker = memory.NewLocker()
	}
	if a.historyLimit <= 0 {
		a.historyLimit = defaultHistoryLimit
	}
	if a.now == nil {
		a.now = time.Now
	}
	return a
}

// Request is one recruiter prompt.
type Request struct {
	Prompt         string `json:"prompt"`
	ConversationID string `json:"conversationId,omitempty"`
	UserID         string `json:"userId,omitempty"`
	Token          string `json:"-"`
	Language       string `json:"language,omitempty"`
}

// Response is the outcome of a turn.
type Response struct {
	Success        bool              `json:"success"`
	ConversationID string            `json:"conversationId"`
	Intent         intent.Record     `json:"intentData"`
	Result         router.Result     `json:"result"`
	Outcomes       []dispatch.Result `json:"outcomes,omitempty"`
	Timestamp      time.Time         `json:"timestamp"`
}

// Process runs a turn: resolve the intent, load the directory when needed, route, analyse,
// dispatch, then remember and log the exchange. Turns of one conversation run one at a time.
func (a *Agent) Process(ctx context.Context, req Request) Response {
	if req.ConversationID == "" {
		req.ConversationID = uuid.NewString()
	}
	unlock := a.locker.Lock(req.ConversationID)
	defer unlock()

	log := a.logger.With(logger.ConversationFields(req.ConversationID, "")...)

	remembered, _ := a.memory.Get(req.ConversationID)
	history := a.history(ctx, req.ConversationID, log)

	hints := intent.Hints{Context: remembered}
	if a.directory != nil {
		hints.Candidates = a.directory.Cached(req.Token, req.UserID)
	}

	rec, err := a.resolver.Resolve(ctx, req.Prompt, hints)
	if err != nil {
		log.Warn("intent resolution failed, falling back to rules", zap.Error(err))
		rec, _ = a.fallback.Resolve(ctx, req.Prompt, hints)
	}
	if rec.OriginalPrompt == "" {
		rec.OriginalPrompt = req.Prompt
	}
	lang := req.Language
	if lang == "" {
		lang = rec.Language
	}
	if lang == "" {
		lang = intent.DetectLanguage(req.Prompt)
	}
	log = a.logger.With(logger.ConversationFields(req.ConversationID, string(rec.Action))...).
		With(zap.String("source", string(rec.Source)))
	log.Info("intent resolved", zap.String("intent", rec.Intent))

	var candidates []directory.Candidate
	if a.directory != nil && rec.Action.NeedsDirectory() {
		candidates = a.directory.Fetch(ctx, req.Token, req.UserID)
	}

	action := router.ParseOrChat(rec)
	res := a.router.Route(ctx, action, router.Turn{
		Record:     rec,
		Context:    remembered,
		Candidates: candidates,
		History:    history,
		Language:   lang,
	})

	if res.Success && res.NeedsAnalysis {
		a.analyse(ctx, &res, lang, log)
	}

	var outcomes []dispatch.Result
	if res.Success && len(res.Batch) > 0 {
		outcomes = a.dispatch(ctx, &res, lang, log)
	}

	if res.Explanation == "" {
		res.Explanation = res.Message
	}

	if res.Success && res.Kind == "" && len(res.Candidates) > 0 {
		a.memory.Save(req.ConversationID, memory.Context{
			LastAction:  string(rec.Action),
			LastIntent:  rec.Intent,
			LastPrompt:  req.Prompt,
			JobPosition: firstNonEmpty(res.JobPosition, rec.Params().JobPosition),
			Candidates:  res.Candidates,
			Unfiltered:  res.Unfiltered,
			Timestamp:   a.now(),
		})
		log.Debug("conversation context saved", zap.Int("candidates", len(res.Candidates)))
	}

	a.record(ctx, req.ConversationID, req.Prompt, res, log)

	return Response{
		Success:        true,
		ConversationID: req.ConversationID,
		Intent:         rec,
		Result:         res,
		Outcomes:       outcomes,
		Timestamp:      a.now(),
	}
}

// Forget drops what the assistant remembers about a conversation.
func (a *Agent) Forget(conversationID string) {
	a.memory.Delete(conversationID)
}

func (a *Agent) history(ctx context.Context, conversationID string, log *zap.Logger) []store.ChatTurn {
	if a.chats == nil {
		return nil
	}
	turns, err := a.chats.History(ctx, conversationID, a.historyLimit)
	if err != nil {
		log.Warn("reading chat history failed", zap.Error(err))
		return nil
	}
	return turns
}

func (a *Agent) analyse(ctx context.Context, res *router.Result, lang string, log *zap.Logger) {
	res.NeedsAnalysis = false
	if a.analyst != nil {
		out, err := a.analyst.GenerateContent(ctx, analysisSystem, res.AnalysisPrompt)
		if err == nil && strings.TrimSpace(out) != "" {
			res.Message = strings.TrimSpace(out)
			res.Explanation = res.Message
			return
		}
		log.Warn("candidate analysis failed", zap.String("kind", string(router.KindUpstreamLLM)), zap.Error(err))
	}

	lines := make([]string, 0, len(res.Candidates))
	for i, c := range res.Candidates {
		lines = append(lines, fmt.Sprintf("%d. %s (%s) - %s", i+1, c.Name, c.Position, c.Experience))
	}
	if lang == intent.LanguageEN {
		res.Message = "I could not analyze the candidates right now. Here they are without analysis:\n\n" + strings.Join(lines, "\n")
	} else {
		res.Message = "No pude analizar los candidatos en este momento. Estos son los candidatos sin análisis:\n\n" + strings.Join(lines, "\n")
	}
	res.Explanation = res.Message
}

func (a *Agent) dispatch(ctx context.Context, res *router.Result, lang string, log *zap.Logger) []dispatch.Result {
	if a.dispatcher == nil {
		log.Warn("no dispatcher configured, batch not sent", zap.Int("items", len(res.Batch)))
		res.Kind = router.KindInvalidRequest
		res.Explanation = pick(lang, "El envío de mensajes no está configurado.", "Message sending is not configured.")
		return nil
	}

	if a.confirm != nil && res.BatchKind != router.BatchSingle && !a.confirm(ctx, *res) {
		log.Info("batch cancelled by the user", zap.Int("items", len(res.Batch)))
		res.Batch = nil
		res.Candidates = nil
		res.Explanation = pick(lang, "Envío cancelado.", "Send cancelled.")
		return nil
	}

	outcomes := a.dispatcher.SendBatch(ctx, res.Batch)
	sent, failed := dispatch.Summary(outcomes)
	log.Info("batch dispatched", zap.Int("sent", sent), zap.Int("failed", failed))
	res.Explanation = router.ExplainDispatch(*res, outcomes, lang)
	return outcomes
}

func (a *Agent) record(ctx context.Context, conversationID, prompt string, res router.Result, log *zap.Logger) {
	if a.chats == nil {
		return
	}
	answer := res.Explanation
	if answer == "" {
		answer = res.Message
	}
	for _, t := range []store.ChatTurn{
		{ConversationID: conversationID, Sender: store.SenderUser, Message: prompt},
		{ConversationID: conversationID, Sender: store.SenderAI, Message: answer},
	} {
		if t.Message == "" {
			continue
		}
		if _, err := a.chats.Append(ctx, t); err != nil {
			log.Warn("storing chat turn failed", zap.String("sender", t.Sender), zap.Error(err))
		}
	}
}

func pick(lang, es, en string) string {
	if lang == intent.LanguageEN {
		return en
	}
	return es
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

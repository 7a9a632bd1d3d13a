package router

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spigell/talent-agent/internal/ai"
	"github.com/spigell/talent-agent/internal/directory"
	"github.com/spigell/talent-agent/internal/filtering"
	"github.com/spigell/talent-agent/internal/intent"
	"github.com/spigell/talent-agent/internal/logger"
	"github.com/spigell/talent-agent/internal/matcher"
	"github.com/spigell/talent-agent/internal/store"
	"github.com/spigell/talent-agent/internal/utils"
	"go.uber.org/zap"
)

const (
	// ReferenceTemplate is the provider template used to contact references.
	ReferenceTemplate = "referencia_laboral"

	listCap            = 60
	defaultBestCount   = 3
	recentHistory      = 4
	narrativeSlice     = 10
	maxPreviewLength   = 200
	defaultGreeting    = "Hola"
	fallbackReference  = "el candidato"
	analysisSystemRole = "Eres un asistente de reclutamiento. Responde de forma clara y concisa."
)

// Options configures a Router. Only Messages and References are required for the message
// handlers; everything else has a usable default.
type Options struct {
	Generator         ai.Generator
	Positions         intent.PositionMatcher
	Messages          *store.MessageLog
	References        *store.ReferenceLog
	Phones            matcher.PhoneNormalizer
	Score             filtering.ScoreFunc
	ReferenceTemplate string
	Now               func() time.Time
	Logger            *zap.Logger
}

// Router executes actions against the loaded directory.
type Router struct {
	generator  ai.Generator
	positions  intent.PositionMatcher
	messages   *store.MessageLog
	references *store.ReferenceLog
	phones     matcher.PhoneNormalizer
	score      filtering.ScoreFunc
	template   string
	now        func() time.Time
	logger     *zap.Logger
}

func New(opts Options) *Router {
	r := &Router{
		generator:  opts.Generator,
		positions:  opts.Positions,
		messages:   opts.Messages,
		references: opts.References,
		phones:     opts.Phones,
		score:      opts.Score,
		template:   opts.ReferenceTemplate,
		now:        opts.Now,
		logger:     logger.OrNop(opts.Logger),
	}
	if r.positions == nil {
		r.positions = intent.KeywordPositions{}
	}
	if r.phones.CountryCode == "" {
		r.phones = matcher.NewPhoneNormalizer("")
	}
	if r.score == nil {
		r.score = DefaultScore
	}
	if r.template == "" {
		r.template = ReferenceTemplate
	}
	if r.now == nil {
		r.now = time.Now
	}
	return r
}

// Route runs the handler of a and fills in the explanation. It never panics on handler input
// and never returns an error: failures are described by the Result.
func (r *Router) Route(ctx context.Context, a Action, t Turn) Result {
	log := r.logger.With(zap.String("action", string(a.Name())))

	var res Result
	switch a := a.(type) {
	case SendMessage:
		res = r.sendMessage(ctx, a.Params, t)
	case SendReferenceMessage:
		res = r.sendReferenceMessage(ctx, a, t)
	case SendDirectReferenceMessage:
		res = r.sendDirectReferenceMessage(a, t)
	case ReceiveReferenceMessage:
		res = r.receiveReferenceMessage(a, t)
	case ProvideInfo:
		res = r.provideInfo(a, t)
	case AnalyzeMessages:
		res = r.analyzeMessages(ctx, a, t)
	case RetrieveMessages:
		res = r.retrieveMessages(a, t)
	case RetrieveReferenceResponses:
		res = r.retrieveReferenceResponses(t)
	case ShowCandidates:
		res = r.showCandidates(ctx, a, t)
	case ShowPositions:
		res = r.showPositions(t)
	case ShowReferences:
		res = r.showReferences(a, t)
	case GenerateQuestions:
		res = r.generateQuestions(ctx, a, t)
	case CompareCandidates:
		res = r.compareCandidates(ctx, a, t)
	case AnalyzeResume:
		res = r.analyzeResume(ctx, a, t)
	case ScheduleInterview:
		res = r.scheduleInterview(ctx, a, t)
	case AnalyzeAIHistory:
		res = r.analyzeAIHistory(ctx, t)
	case GeneralChat:
		res = r.generalChat(ctx, t)
	default:
		res = Fail(KindInvalidRequest, fmt.Sprintf("unsupported action %T", a))
	}

	res.Action = a.Name()
	if res.Success && res.Explanation == "" && len(res.Batch) == 0 {
		res.Explanation = explain(a.Name(), res, t.lang())
	}

	fields := []zap.Field{zap.Bool("success", res.Success), zap.Int("batch", len(res.Batch))}
	if res.Kind != "" {
		fields = append(fields, zap.String("kind", string(res.Kind)))
	}
	log.Info("action routed", fields...)
	return res
}

// ask sends one prompt to the generator. ok is false when no generator is configured or the call
// failed; the caller then degrades to deterministic text.
func (r *Router) ask(ctx context.Context, system, message string) (string, bool) {
	if r.generator == nil {
		return "", false
	}
	out, err := r.generator.GenerateContent(ctx, system, message)
	if err != nil {
		level := r.logger.Warn
		if errors.Is(err, ai.ErrQuota) {
			level = r.logger.Info
		}
		level("llm call failed, degrading",
			zap.String("kind", string(KindUpstreamLLM)),
			zap.String("prompt_preview", utils.TruncateForLog(message, maxPreviewLength)),
			zap.Error(err),
		)
		return "", false
	}
	out = strings.TrimSpace(out)
	return out, out != ""
}

func (r *Router) filterDeps() filtering.Deps {
	return filtering.Deps{Logger: r.logger, Phones: r.phones, Score: r.score}
}

// filter runs steps over candidates with the steps cfg gives nothing to do switched off.
func (r *Router) filter(ctx context.Context, cfg *filtering.Config, steps []filtering.Filter, candidates []directory.Candidate) (*filtering.Selection, map[string]float64, error) {
	if strings.TrimSpace(cfg.Position) == "" {
		filtering.DisableByName(steps, filtering.PositionFilterName, "no position requested")
	}
	if len(cfg.Exclude) == 0 {
		filtering.DisableByName(steps, filtering.ExcludeFilterName, "nothing to exclude")
	}
	if cfg.Limit <= 0 {
		filtering.DisableByName(steps, filtering.LimitFilterName, "no limit requested")
	}

	sel, scores, err := filtering.Run(ctx, cfg, r.filterDeps(), steps, filtering.NewSelection(candidates))
	r.logger.Debug("filters applied", zap.Any("steps", filtering.Describe(steps)), zap.Int("left", sel.Len()))
	return sel, scores, err
}

func tr(lang, es, en string) string {
	if lang == intent.LanguageEN {
		return en
	}
	return es
}

func orDefault(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}

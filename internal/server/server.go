package server

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/healthcheck"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	accesslog "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/spigell/talent-agent/internal/agent"
	"github.com/spigell/talent-agent/internal/directory"
	"github.com/spigell/talent-agent/internal/logger"
	"github.com/spigell/talent-agent/internal/matcher"
	"github.com/spigell/talent-agent/internal/store"
	"github.com/spigell/talent-agent/internal/whatsapp"
	"go.uber.org/zap"
)

const (
	appName           = "talent-agent"
	defaultRateLimit  = 30
	defaultRateWindow = time.Minute
	historyLimit      = 100
)

// Processor runs recruiter turns.
type Processor interface {
	Process(ctx context.Context, req agent.Request) agent.Response
	Forget(conversationID string)
}

// Directory is the cached candidate directory.
type Directory interface {
	Fetch(ctx context.Context, token, userID string) []directory.Candidate
	ClearCache()
	Stats() directory.CacheStats
}

// Conversations reads and deletes stored recruiter conversations.
type Conversations interface {
	History(ctx context.Context, conversationID string, limit int) ([]store.ChatTurn, error)
	Conversations(ctx context.Context) ([]store.ConversationInfo, error)
	Delete(ctx context.Context, conversationID string) (bool, error)
}

// Messenger sends WhatsApp messages and verifies webhook subscriptions.
type Messenger interface {
	SendText(ctx context.Context, to, body string) (string, error)
	Verify(mode, token, challenge string) (string, bool)
}

// Receiver handles messages delivered to the webhook.
type Receiver interface {
	Receive(in whatsapp.Incoming) (whatsapp.Received, error)
}

type Options struct {
	Agent         Processor
	Directory     Directory
	Conversations Conversations
	Messages      *store.MessageLog
	References    *store.ReferenceLog
	WhatsApp      Messenger
	Inbox         Receiver
	Phones        matcher.PhoneNormalizer
	RateLimit     int
	RateWindow    time.Duration
	AccessLog     bool
	Now           func() time.Time
	Logger        *zap.Logger
}

// Server exposes the assistant over HTTP.
type Server struct {
	app           *fiber.App
	agent         Processor
	directory     Directory
	conversations Conversations
	messages      *store.MessageLog
	references    *store.ReferenceLog
	whatsapp      Messenger
	inbox         Receiver
	phones        matcher.PhoneNormalizer
	now           func() time.Time
	logger        *zap.Logger
}

func New(opts Options) *Server {
	s := &Server{
		agent:         opts.Agent,
		directory:     opts.Directory,
		conversations: opts.Conversations,
		messages:      opts.Messages,
		references:    opts.References,
		whatsapp:      opts.WhatsApp,
		inbox:         opts.Inbox,
		phones:        opts.Phones,
		now:           opts.Now,
		logger:        logger.OrNop(opts.Logger),
	}
	if s.phones.CountryCode == "" {
		s.phones = matcher.NewPhoneNormalizer("")
	}
	if s.now == nil {
		s.now = time.Now
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = defaultRateLimit
	}
	if opts.RateWindow <= 0 {
		opts.RateWindow = defaultRateWindow
	}

	s.app = fiber.New(fiber.Config{
		AppName:               appName,
		DisableStartupMessage: true,
		UnescapePath:          true,
		ErrorHandler:          errorHandler(s.logger),
	})

	if opts.AccessLog {
		s.app.Use(accesslog.New())
	}
	s.app.Use(cors.New(cors.Config{AllowOrigins: "*"}))
	s.app.Use(recover.New())
	s.app.Use(compress.New(compress.Config{Level: compress.LevelBestSpeed}))
	s.app.Use(healthcheck.New())
	s.app.Use(helmet.New(helmet.Config{CrossOriginResourcePolicy: "cross-origin"}))

	s.routes(s.app.Group("/api"), rateLimiter(opts.RateLimit, opts.RateWindow))
	return s
}

func rateLimiter(requests int, window time.Duration) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:               requests,
		Expiration:        window,
		LimiterMiddleware: limiter.SlidingWindow{},
		LimitReached: func(c *fiber.Ctx) error {
			return fail(c, fiber.StatusTooManyRequests, "Demasiadas solicitudes, intenta de nuevo en un momento.", nil)
		},
	})
}

func (s *Server) routes(api fiber.Router, limit fiber.Handler) {
	api.Post("/process-prompt", limit, s.processPrompt)
	api.Get("/health", s.health)

	api.Get("/conversations", s.listConversations)
	api.Get("/conversations/:id", s.conversation)
	api.Delete("/conversations/:id", s.deleteConversation)

	api.Post("/whatsapp/send", s.sendWhatsApp)
	api.Get("/whatsapp/messages", s.allMessages)
	api.Get("/whatsapp/retrieve-messages", s.retrieveMessages)
	api.Post("/whatsapp/retrieve-multiple-messages", s.retrieveMultipleMessages)
	api.Get("/whatsapp/webhook", s.verifyWebhook)
	api.Post("/whatsapp/webhook", s.receiveWebhook)
	api.Get("/whatsapp/references/structured", s.structuredReferences)
	api.Post("/whatsapp/references/structured", s.saveReference)

	api.Get("/cache/stats", s.cacheStats)
	api.Post("/cache/clear", s.clearCache)

	api.Get("/candidates/:name?", s.candidates)
}

// App returns the underlying fiber application.
func (s *Server) App() *fiber.App { return s.app }

// Listen serves on addr until ctx is cancelled.
func (s *Server) Listen(ctx context.Context, addr string) error {
	errc := make(chan error, 1)
	go func() {
		errc <- s.app.Listen(addr)
	}()

	s.logger.Info("http server started", zap.String("addr", addr))
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		s.logger.Info("shutting down the http server")
		return s.app.ShutdownWithTimeout(10 * time.Second)
	}
}

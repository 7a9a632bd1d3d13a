package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spigell/talent-agent/internal/agent"
	"github.com/spigell/talent-agent/internal/ai"
	"github.com/spigell/talent-agent/internal/ai/gemini"
	"github.com/spigell/talent-agent/internal/ai/openai"
	"github.com/spigell/talent-agent/internal/directory"
	"github.com/spigell/talent-agent/internal/dispatch"
	"github.com/spigell/talent-agent/internal/intent"
	"github.com/spigell/talent-agent/internal/logger"
	"github.com/spigell/talent-agent/internal/matcher"
	"github.com/spigell/talent-agent/internal/router"
	"github.com/spigell/talent-agent/internal/secrets"
	"github.com/spigell/talent-agent/internal/store"
	"github.com/spigell/talent-agent/internal/whatsapp"
	"go.uber.org/zap"
)

const (
	providerGemini = "gemini"
	providerOpenAI = "openai"
	providerNone   = "none"

	intentModeLLM   = "llm"
	intentModeRules = "rules"

	chatDatabase = "chat.db"
)

// components is everything a command needs to serve recruiter turns.
type components struct {
	agent      *agent.Agent
	directory  *directory.Service
	chats      *store.ChatStore
	messages   *store.MessageLog
	references *store.ReferenceLog
	whatsapp   *whatsapp.Client
	inbox      *whatsapp.Inbox
	phones     matcher.PhoneNormalizer
}

func (c *components) Close() error {
	if c.chats == nil {
		return nil
	}
	return c.chats.Close()
}

// build wires the assistant from config. WhatsApp is optional unless requireWhatsApp is set.
func build(ctx context.Context, config *Config, confirm agent.ConfirmFunc, requireWhatsApp bool, log *zap.Logger) (*components, error) {
	if err := os.MkdirAll(config.Storage.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating storage dir %q: %w", config.Storage.Dir, err)
	}

	c := &components{
		messages:   store.NewMessageLog(config.Storage.Dir),
		references: store.NewReferenceLog(config.Storage.Dir),
		phones:     matcher.NewPhoneNormalizer(config.Phone.DefaultCountryCode),
	}

	dsn := config.Storage.DSN
	if dsn == "" && config.Storage.Driver == store.DriverSQLite {
		dsn = filepath.Join(config.Storage.Dir, chatDatabase)
	}
	chats, err := store.NewChatStore(config.Storage.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening chat storage: %w", err)
	}
	c.chats = chats

	generator, err := newGenerator(ctx, config.AI, log)
	if err != nil {
		c.Close()
		return nil, err
	}

	rules := intent.Rules{CountryCode: c.phones.CountryCode}
	var resolver intent.Resolver = rules
	var positions intent.PositionMatcher = intent.KeywordPositions{}
	if generator != nil {
		positions = intent.NewLLMPositions(generator, log)
		if config.Intent.Mode != intentModeRules {
			maxLog := 0
			if config.AI != nil {
				maxLog = config.AI.MaxLogLength
			}
			resolver = intent.NewLLMResolver(generator, rules, log, maxLog)
		}
	}
	log.Info("intent resolution configured",
		zap.String("mode", config.Intent.Mode),
		zap.Bool("llm", generator != nil && config.Intent.Mode != intentModeRules),
	)

	upstream := directory.NewClient(config.Directory.UserAPI, config.Directory.ResultsAPI, config.Directory.Timeout, log)
	c.directory = directory.NewService(upstream, directory.NewCache(config.Directory.TTL, nil), log)

	var batcher agent.Batcher
	wa, err := newWhatsApp(config.WhatsApp, c.messages, log)
	switch {
	case err == nil:
		c.whatsapp = wa
		c.inbox = whatsapp.NewInbox(wa.PhoneNumberID(), c.messages, c.references, log)
		batcher = dispatch.New(wa, config.Dispatch.Interval, log)
	case requireWhatsApp:
		c.Close()
		return nil, err
	default:
		log.Warn("whatsapp is disabled, messages will not be sent", zap.Error(err))
		c.inbox = whatsapp.NewInbox("", c.messages, c.references, log)
	}

	rt := router.New(router.Options{
		Generator:         generator,
		Positions:         positions,
		Messages:          c.messages,
		References:        c.references,
		Phones:            c.phones,
		ReferenceTemplate: config.WhatsApp.ReferenceTemplate,
		Logger:            log,
	})

	c.agent = agent.New(agent.Options{
		Resolver:   resolver,
		Fallback:   rules,
		Directory:  c.directory,
		Router:     rt,
		Dispatcher: batcher,
		Chats:      c.chats,
		Analyst:    generator,
		Confirm:    confirm,
		Logger:     log,
	})
	return c, nil
}

// newGenerator returns a nil generator when the provider is none.
func newGenerator(ctx context.Context, config *AIConfig, log *zap.Logger) (ai.Generator, error) {
	if config == nil || config.Provider == providerNone || config.Provider == "" {
		log.Info("running without a language model")
		return nil, nil
	}

	switch config.Provider {
	case providerGemini:
		gc := config.Gemini
		if gc == nil {
			gc = &GeminiConfig{}
		}
		key, err := secrets.Load(secrets.Source{Name: "gemini api key", Value: gc.APIKey, Env: "GEMINI_API_KEY", File: gc.APIKeyFile})
		if err != nil {
			return nil, err
		}
		g, err := gemini.NewGenerator(ctx, key, gc.Model, gc.MaxRetries, logger.WithCommonFields(log, providerGemini, gc.Model))
		if err != nil {
			return nil, fmt.Errorf("creating gemini generator: %w", err)
		}
		return g, nil
	case providerOpenAI:
		oc := config.OpenAI
		if oc == nil {
			oc = &OpenAIConfig{}
		}
		key, err := secrets.Load(secrets.Source{Name: "openai api key", Value: oc.APIKey, Env: "OPENAI_API_KEY", File: oc.APIKeyFile})
		if err != nil {
			return nil, err
		}
		g, err := openai.NewGenerator(key, oc.Model, oc.BaseURL, logger.WithCommonFields(log, providerOpenAI, oc.Model))
		if err != nil {
			return nil, fmt.Errorf("creating openai generator: %w", err)
		}
		return g, nil
	default:
		return nil, fmt.Errorf("unsupported ai provider %q", config.Provider)
	}
}

func newWhatsApp(config WhatsAppConfig, messages *store.MessageLog, log *zap.Logger) (*whatsapp.Client, error) {
	token, err := secrets.Optional(secrets.Source{Name: "whatsapp token", Value: config.Token, Env: "WHATSAPP_TOKEN", File: config.TokenFile})
	if err != nil {
		return nil, err
	}
	return whatsapp.New(whatsapp.Config{
		Token:         token,
		PhoneNumberID: config.PhoneNumberID,
		APIVersion:    config.APIVersion,
		BaseURL:       config.BaseURL,
		VerifyToken:   config.VerifyToken,
	}, messages, log)
}

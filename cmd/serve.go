package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/spigell/talent-agent/internal/logger"
	"github.com/spigell/talent-agent/internal/server"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Run: func(_ *cobra.Command, _ []string) {
		serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("addr", "a", "", "listen address, overrides server.addr")
	viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
}

func serve() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the talent-agent", zap.String("version", version))

	// the config was just decoded, marshalling it back cannot fail
	pretty, _ := json.MarshalIndent(redacted(config), "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	c, err := build(ctx, config, nil, true, logger)
	if err != nil {
		logger.Fatal("building the assistant", zap.Error(err),
			zap.String("hint", "set WHATSAPP_TOKEN and WHATSAPP_PHONE_NUMBER_ID or the whatsapp section of the configuration file"),
		)
	}
	defer c.Close()

	srv := server.New(server.Options{
		Agent:         c.agent,
		Directory:     c.directory,
		Conversations: c.chats,
		Messages:      c.messages,
		References:    c.references,
		WhatsApp:      c.whatsapp,
		Inbox:         c.inbox,
		Phones:        c.phones,
		RateLimit:     config.Server.RateLimit.Max,
		RateWindow:    config.Server.RateLimit.Window,
		AccessLog:     config.Server.AccessLog,
		Logger:        logger,
	})

	if err := srv.Listen(ctx, config.Server.Addr); err != nil {
		logger.Fatal("serving http", zap.Error(err))
	}
	logger.Info("exiting", zap.String("reason", "shutdown requested"))
}

func redacted(config *Config) Config {
	out := *config
	out.WhatsApp.Token = mask(out.WhatsApp.Token)
	out.WhatsApp.VerifyToken = mask(out.WhatsApp.VerifyToken)
	if config.AI != nil {
		ai := *config.AI
		if ai.Gemini != nil {
			g := *ai.Gemini
			g.APIKey = mask(g.APIKey)
			ai.Gemini = &g
		}
		if ai.OpenAI != nil {
			o := *ai.OpenAI
			o.APIKey = mask(o.APIKey)
			ai.OpenAI = &o
		}
		out.AI = &ai
	}
	out.Storage.DSN = mask(out.Storage.DSN)
	return out
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	return "***"
}

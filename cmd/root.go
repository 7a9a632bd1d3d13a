package cmd

import (
	"errors"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app = "talent-agent"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Directory DirectoryConfig `mapstructure:"directory"`
	WhatsApp  WhatsAppConfig  `mapstructure:"whatsapp"`
	AI        *AIConfig       `mapstructure:"ai"`
	Intent    IntentConfig    `mapstructure:"intent"`
	Phone     PhoneConfig     `mapstructure:"phone"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Dispatch  DispatchConfig  `mapstructure:"dispatch"`
}

type ServerConfig struct {
	Addr      string          `mapstructure:"addr"`
	AccessLog bool            `mapstructure:"access-log"`
	RateLimit RateLimitConfig `mapstructure:"rate-limit"`
}

type RateLimitConfig struct {
	Max    int           `mapstructure:"max"`
	Window time.Duration `mapstructure:"window"`
}

type DirectoryConfig struct {
	UserAPI    string        `mapstructure:"user-api"`
	ResultsAPI string        `mapstructure:"results-api"`
	TTL        time.Duration `mapstructure:"ttl"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

type WhatsAppConfig struct {
	Token             string `mapstructure:"token"`
	TokenFile         string `mapstructure:"token-file"`
	PhoneNumberID     string `mapstructure:"phone-number-id"`
	VerifyToken       string `mapstructure:"verify-token"`
	APIVersion        string `mapstructure:"api-version"`
	BaseURL           string `mapstructure:"base-url"`
	ReferenceTemplate string `mapstructure:"reference-template"`
}

type AIConfig struct {
	Provider     string        `mapstructure:"provider"`
	MaxLogLength int           `mapstructure:"max-log-length"`
	Gemini       *GeminiConfig `mapstructure:"gemini"`
	OpenAI       *OpenAIConfig `mapstructure:"openai"`
}

type GeminiConfig struct {
	APIKey     string `mapstructure:"api-key"`
	APIKeyFile string `mapstructure:"api-key-file"`
	Model      string `mapstructure:"model"`
	MaxRetries int    `mapstructure:"max-retries"`
}

type OpenAIConfig struct {
	APIKey     string `mapstructure:"api-key"`
	APIKeyFile string `mapstructure:"api-key-file"`
	Model      string `mapstructure:"model"`
	BaseURL    string `mapstructure:"base-url"`
}

type IntentConfig struct {
	Mode string `mapstructure:"mode"`
}

type PhoneConfig struct {
	DefaultCountryCode string `mapstructure:"default-country-code"`
}

type StorageConfig struct {
	Dir    string `mapstructure:"dir"`
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

type DispatchConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "talent-agent is a recruitment assistant that answers recruiter prompts and messages candidates over WhatsApp",
	}

	envBindings = map[string]string{
		"whatsapp.token":           "WHATSAPP_TOKEN",
		"whatsapp.phone-number-id": "WHATSAPP_PHONE_NUMBER_ID",
		"whatsapp.verify-token":    "WHATSAPP_VERIFY_TOKEN",
		"ai.gemini.api-key":        "GEMINI_API_KEY",
		"ai.openai.api-key":        "OPENAI_API_KEY",
		"directory.user-api":       "USER_API_URL",
		"directory.results-api":    "RESULTS_API_URL",
		"storage.dsn":              "DATABASE_URL",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	for key, env := range envBindings {
		if err := viper.BindEnv(key, env); err != nil {
			log.Fatalf("binding %s environment variable: %v", env, err)
		}
	}

	viper.SetDefault("server.addr", ":3000")
	viper.SetDefault("server.rate-limit.max", 30)
	viper.SetDefault("server.rate-limit.window", time.Minute)
	viper.SetDefault("directory.ttl", 5*time.Minute)
	viper.SetDefault("directory.timeout", 30*time.Second)
	viper.SetDefault("ai.provider", "gemini")
	viper.SetDefault("intent.mode", "llm")
	viper.SetDefault("phone.default-country-code", "507")
	viper.SetDefault("storage.dir", "data")
	viper.SetDefault("storage.driver", "sqlite3")
	viper.SetDefault("dispatch.interval", time.Second)

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is talent-agent.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func initConfig() {
	// A missing .env is normal outside of local development.
	_ = godotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	// Everything can come from the environment, so only an explicit or broken config file is fatal.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	if config.AI != nil {
		config.AI.Provider = strings.ToLower(strings.TrimSpace(config.AI.Provider))
	}
	config.Intent.Mode = strings.ToLower(strings.TrimSpace(config.Intent.Mode))

	return config, nil
}

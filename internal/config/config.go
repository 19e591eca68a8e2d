package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/orgsignal/decision-cli/internal/conflict"
	"github.com/orgsignal/decision-cli/internal/ingest"
	"github.com/orgsignal/decision-cli/internal/retrieval"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig      `yaml:"store" mapstructure:"store"`
	Server    ServerConfig     `yaml:"server" mapstructure:"server"`
	Anthropic AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Conflict  conflict.Config  `yaml:"conflict" mapstructure:"conflict"`
	Retrieval retrieval.Config `yaml:"retrieval" mapstructure:"retrieval"`
	Ingest    ingest.Config    `yaml:"ingest" mapstructure:"ingest"`
	Log       LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int    `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int    `yaml:"min_conns" mapstructure:"min_conns"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// AnthropicConfig holds Anthropic API settings for brief generation.
type AnthropicConfig struct {
	Key       string  `yaml:"key" mapstructure:"key"`
	Model     string  `yaml:"model" mapstructure:"model"`
	MaxTokens int     `yaml:"max_tokens" mapstructure:"max_tokens"`
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit"` // requests per second
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("DECISION")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "decisions.db")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_tokens", 1024)
	v.SetDefault("anthropic.rate_limit", 1.0)
	v.SetDefault("ingest.concurrency", 4)
	v.SetDefault("conflict.red_weight", 10)
	v.SetDefault("conflict.unresolved_weight", 5)
	v.SetDefault("retrieval.importance_critical", 2.0)
	v.SetDefault("retrieval.importance_strategic", 1.5)
	v.SetDefault("retrieval.importance_medium", 1.0)
	v.SetDefault("retrieval.importance_low", 0.7)
	v.SetDefault("retrieval.recency_under_1mo", 1.0)
	v.SetDefault("retrieval.recency_under_3mo", 0.95)
	v.SetDefault("retrieval.recency_under_6mo", 0.85)
	v.SetDefault("retrieval.recency_under_12mo", 0.75)
	v.SetDefault("retrieval.recency_older", 0.6)
	v.SetDefault("retrieval.recency_missing", 0.8)
	v.SetDefault("retrieval.chars_per_token", 0.25)
	v.SetDefault("retrieval.min_results", 3)
	v.SetDefault("retrieval.max_results", 10)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks that the configuration required for the given mode is
// present. Modes: "store" (any command touching the database), "serve",
// "brief".
func (c *Config) Validate(mode string) error {
	var missing []string

	checkStore := func() {
		switch c.Store.Driver {
		case "postgres", "sqlite":
		default:
			missing = append(missing, "store.driver must be postgres or sqlite")
		}
		if c.Store.DatabaseURL == "" {
			missing = append(missing, "store.database_url is required")
		}
	}

	switch mode {
	case "store":
		checkStore()
	case "serve":
		checkStore()
		if c.Server.Port <= 0 {
			missing = append(missing, "server.port must be > 0")
		}
	case "brief":
		checkStore()
		if c.Anthropic.Key == "" {
			missing = append(missing, "anthropic.key is required")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if c.Retrieval.CharsPerToken < 0 {
		missing = append(missing, "retrieval.chars_per_token must be >= 0")
	}
	if c.Conflict.RedWeight < 0 || c.Conflict.UnresolvedWeight < 0 {
		missing = append(missing, "conflict weights must be >= 0")
	}
	if c.Ingest.Concurrency < 0 {
		missing = append(missing, "ingest.concurrency must be >= 0")
	}

	if len(missing) > 0 {
		return eris.New("config: " + strings.Join(missing, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}

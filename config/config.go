// Package config loads daemon configuration from a YAML file and the
// environment. Every key can be overridden with an AGENTHUB_-prefixed
// environment variable, e.g. AGENTHUB_MODEL_PROVIDER.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full daemon configuration.
type Config struct {
	// Definitions is the path to the YAML file holding agent and cron
	// definitions. Required for the daemon.
	Definitions string `mapstructure:"definitions"`
	// WatchDefinitions reloads the definitions file when it changes on disk.
	WatchDefinitions bool `mapstructure:"watch_definitions"`
	// DefaultAgent handles inbound platform messages.
	DefaultAgent string `mapstructure:"default_agent"`

	Model    ModelConfig    `mapstructure:"model"`
	Dispatch DispatchConfig `mapstructure:"dispatch"`
	NATS     NATSConfig     `mapstructure:"nats"`
	WS       WSConfig       `mapstructure:"ws"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Log      LogConfig      `mapstructure:"log"`
}

// ModelConfig selects and tunes the chat model backend.
type ModelConfig struct {
	// Provider is "openai" or "anthropic".
	Provider string `mapstructure:"provider"`
	// Name overrides the provider's default model.
	Name string `mapstructure:"name"`
}

// DispatchConfig tunes the queue pipeline.
type DispatchConfig struct {
	MaxRetries             int           `mapstructure:"max_retries"`
	CleanupThreshold       int           `mapstructure:"cleanup_threshold"`
	PollInterval           time.Duration `mapstructure:"poll_interval"`
	SuperviseInterval      time.Duration `mapstructure:"supervise_interval"`
	BackgroundHistoryDepth int           `mapstructure:"background_history_depth"`
}

// NATSConfig configures the NATS platform connection. Enabled when URL is
// non-empty.
type NATSConfig struct {
	URL            string   `mapstructure:"url"`
	InboxSubject   string   `mapstructure:"inbox_subject"`
	OutboxPrefix   string   `mapstructure:"outbox_prefix"`
	AllowedSenders []string `mapstructure:"allowed_senders"`
}

// WSConfig configures the websocket platform connection. Enabled when URL is
// non-empty.
type WSConfig struct {
	URL            string   `mapstructure:"url"`
	AllowedSenders []string `mapstructure:"allowed_senders"`
}

// MetricsConfig configures the Prometheus scrape endpoint. Empty Addr
// disables it.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// LogConfig configures the structured logger.
type LogConfig struct {
	// Level is debug, info, warn or error.
	Level string `mapstructure:"level"`
	// Format is "json" or "text".
	Format string `mapstructure:"format"`
}

// Load reads configuration from path (optional; when empty, agenthub.yaml in
// the working directory is used if present), the environment and built-in
// defaults, in ascending priority of defaults < file < environment.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("watch_definitions", true)
	v.SetDefault("default_agent", "assistant")
	v.SetDefault("model.provider", "openai")
	v.SetDefault("dispatch.max_retries", 3)
	v.SetDefault("dispatch.cleanup_threshold", 32)
	v.SetDefault("dispatch.poll_interval", time.Minute)
	v.SetDefault("dispatch.supervise_interval", 5*time.Second)
	v.SetDefault("dispatch.background_history_depth", 8)
	v.SetDefault("nats.inbox_subject", "agenthub.inbox")
	v.SetDefault("nats.outbox_prefix", "agenthub.outbox")
	v.SetDefault("metrics.addr", ":9090")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetEnvPrefix("AGENTHUB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("agenthub")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

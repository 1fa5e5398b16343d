// Package config loads and validates jobradar configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/jobradar/jobradar/internal/radar"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Feeds       []radar.Feed      `mapstructure:"feeds"`
	Fetch       FetchConfig       `mapstructure:"fetch"`
	SmartFilter SmartFilterConfig `mapstructure:"smart_filter"`
	Storage     StorageConfig     `mapstructure:"storage"`
	Server      ServerConfig      `mapstructure:"server"`
	Render      RenderConfig      `mapstructure:"render"`
	Notify      NotifyConfig      `mapstructure:"notify"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

// FetchConfig governs the fetch cycle and outbound HTTP behavior.
type FetchConfig struct {
	Concurrency         int    `mapstructure:"concurrency"`
	TimeoutSeconds      int    `mapstructure:"timeout_seconds"`
	CycleTimeoutSeconds int    `mapstructure:"cycle_timeout_seconds"`
	MaxRetries          int    `mapstructure:"max_retries"`
	UserAgent           string `mapstructure:"user_agent"`
}

// SmartFilterConfig controls the relevance gate in front of storage.
type SmartFilterConfig struct {
	Enabled    bool     `mapstructure:"enabled"`
	MinScore   int      `mapstructure:"min_score"`
	Categories []string `mapstructure:"categories"`
}

// StorageConfig selects and configures the persistence backend.
type StorageConfig struct {
	Driver string `mapstructure:"driver"`
	Path   string `mapstructure:"path"`
	DSN    string `mapstructure:"dsn"`
}

// ServerConfig controls the read API server.
type ServerConfig struct {
	Port          int    `mapstructure:"port"`
	APIKey        string `mapstructure:"api_key"`
	FetchSchedule string `mapstructure:"fetch_schedule"`
}

// RenderConfig configures the headless rendering subsystem.
type RenderConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	MaxParallel       int  `mapstructure:"max_parallel"`
	NavTimeoutSeconds int  `mapstructure:"nav_timeout_seconds"`
}

// NotifyConfig holds settings for the new-job notification sinks.
type NotifyConfig struct {
	Telegram TelegramConfig `mapstructure:"telegram"`
	PubSub   PubSubConfig   `mapstructure:"pubsub"`
}

// TelegramConfig configures the Telegram bot sink.
type TelegramConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Token   string `mapstructure:"token"`
	ChatID  string `mapstructure:"chat_id"`
}

// PubSubConfig configures the Pub/Sub sink for downstream consumers.
type PubSubConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from the given file (or the default search
// paths when path is empty), layered with JOBRADAR_ environment
// variables, then validates it.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("JOBRADAR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("jobradar")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.jobradar")
	}
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	applyFeedDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("fetch.concurrency", 4)
	v.SetDefault("fetch.timeout_seconds", 15)
	v.SetDefault("fetch.cycle_timeout_seconds", 600)
	v.SetDefault("fetch.max_retries", 3)
	v.SetDefault("fetch.user_agent", "jobradar/1.0 (+https://github.com/jobradar/jobradar)")
	v.SetDefault("smart_filter.enabled", true)
	v.SetDefault("smart_filter.min_score", 1)
	v.SetDefault("storage.driver", "sqlite")
	v.SetDefault("storage.path", "jobs.db")
	v.SetDefault("server.port", 8080)
	v.SetDefault("render.enabled", false)
	v.SetDefault("render.max_parallel", 1)
	v.SetDefault("render.nav_timeout_seconds", 25)
	v.SetDefault("logging.development", true)
}

func applyFeedDefaults(cfg *Config) {
	for i := range cfg.Feeds {
		feed := &cfg.Feeds[i]
		if feed.Parser == "" {
			feed.Parser = string(feed.Format)
		}
		if feed.Identity == "" {
			feed.Identity = radar.IdentityURL
		}
		if feed.RetryAfterSeconds <= 0 {
			feed.RetryAfterSeconds = 30
		}
	}
}

// Validate enforces required values before any fetch starts.
func (c Config) Validate() error {
	if len(c.Feeds) == 0 {
		return fmt.Errorf("at least one feed must be configured")
	}
	seen := make(map[string]struct{}, len(c.Feeds))
	for _, feed := range c.Feeds {
		if feed.Name == "" {
			return fmt.Errorf("feed name is required")
		}
		if _, dup := seen[feed.Name]; dup {
			return fmt.Errorf("duplicate feed name %q", feed.Name)
		}
		seen[feed.Name] = struct{}{}
		if feed.URL == "" {
			return fmt.Errorf("feed %s: url is required", feed.Name)
		}
		switch feed.Format {
		case radar.FormatRSS, radar.FormatJSON, radar.FormatHTML:
		default:
			return fmt.Errorf("feed %s: unknown format %q", feed.Name, feed.Format)
		}
		if feed.Render && feed.Format != radar.FormatHTML {
			return fmt.Errorf("feed %s: render requires the html format", feed.Name)
		}
		if err := validateParser(feed); err != nil {
			return err
		}
		switch feed.Identity {
		case radar.IdentityURL, radar.IdentityTitle:
		default:
			return fmt.Errorf("feed %s: unknown identity mode %q", feed.Name, feed.Identity)
		}
		if feed.RequestsPerMinute < 0 {
			return fmt.Errorf("feed %s: requests_per_minute must be >= 0", feed.Name)
		}
	}
	if c.Fetch.Concurrency <= 0 {
		return fmt.Errorf("fetch.concurrency must be > 0")
	}
	if c.Fetch.TimeoutSeconds <= 0 {
		return fmt.Errorf("fetch.timeout_seconds must be > 0")
	}
	if c.SmartFilter.MinScore < 0 || c.SmartFilter.MinScore > 10 {
		return fmt.Errorf("smart_filter.min_score must be within 0..10")
	}
	switch c.Storage.Driver {
	case "memory":
	case "sqlite":
		if c.Storage.Path == "" {
			return fmt.Errorf("storage.path is required for the sqlite driver")
		}
	case "postgres":
		if c.Storage.DSN == "" {
			return fmt.Errorf("storage.dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown storage.driver %q", c.Storage.Driver)
	}
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Render.Enabled && c.Render.MaxParallel <= 0 {
		return fmt.Errorf("render.max_parallel must be > 0 when rendering is enabled")
	}
	if c.Notify.Telegram.Enabled && (c.Notify.Telegram.Token == "" || c.Notify.Telegram.ChatID == "") {
		return fmt.Errorf("notify.telegram requires token and chat_id when enabled")
	}
	if c.Notify.PubSub.Enabled && (c.Notify.PubSub.ProjectID == "" || c.Notify.PubSub.TopicName == "") {
		return fmt.Errorf("notify.pubsub requires project_id and topic_name when enabled")
	}
	return nil
}

// Extractor names accepted for html feeds. "html" (the format-level
// default) lets the parser infer the extractor from the feed URL.
var htmlParsers = map[string]struct{}{
	"html":           {},
	"generic":        {},
	"remoteok":       {},
	"weworkremotely": {},
	"workingnomads":  {},
}

func validateParser(feed radar.Feed) error {
	switch feed.Format {
	case radar.FormatHTML:
		if _, ok := htmlParsers[feed.Parser]; !ok {
			return fmt.Errorf("feed %s: unknown html parser %q", feed.Name, feed.Parser)
		}
	default:
		if feed.Parser != string(feed.Format) {
			return fmt.Errorf("feed %s: parser %q does not match format %q", feed.Name, feed.Parser, feed.Format)
		}
	}
	return nil
}

// RequestTimeout converts the HTTP timeout setting into a duration.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.Fetch.TimeoutSeconds) * time.Second
}

// CycleTimeout returns the overall fetch-cycle budget; zero disables it.
func (c Config) CycleTimeout() time.Duration {
	return time.Duration(c.Fetch.CycleTimeoutSeconds) * time.Second
}

// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	DB       DBConfig       `mapstructure:"db"`
	Scrape   ScrapeConfig   `mapstructure:"scrape"`
	Breaker  BreakerConfig  `mapstructure:"breaker"`
	Scoring  ScoringConfig  `mapstructure:"scoring"`
	Search   SearchConfig   `mapstructure:"search"`
	Snapshot SnapshotConfig `mapstructure:"snapshot"`
	Events   EventsConfig   `mapstructure:"events"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// DBConfig controls access to the relational database. An empty DSN runs
// the service on in-memory stores.
type DBConfig struct {
	DSN      string `mapstructure:"dsn"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

// ScrapeConfig governs the scrape worker pool and fetchers.
type ScrapeConfig struct {
	Concurrency     int     `mapstructure:"concurrency"`
	QueueDepth      int     `mapstructure:"queue_depth"`
	UserAgent       string  `mapstructure:"user_agent"`
	TimeoutSeconds  int     `mapstructure:"timeout_seconds"`
	RatePerHost     float64 `mapstructure:"rate_per_host"`
	BurstPerHost    int     `mapstructure:"burst_per_host"`
	HeadlessEnabled bool    `mapstructure:"headless_enabled"`
	NavTimeoutSec   int     `mapstructure:"nav_timeout_seconds"`
}

// BreakerConfig holds circuit breaker policy constants.
type BreakerConfig struct {
	OpenThreshold       int `mapstructure:"open_threshold"`
	CooldownBaseSeconds int `mapstructure:"cooldown_base_seconds"`
	RestartCap          int `mapstructure:"restart_cap"`
}

// ScoringConfig controls score recomputation.
type ScoringConfig struct {
	RecomputeParallelism int `mapstructure:"recompute_parallelism"`
}

// SearchConfig bounds intelligence search responses.
type SearchConfig struct {
	MaxExcerpts  int `mapstructure:"max_excerpts"`
	DefaultLimit int `mapstructure:"default_limit"`
	MaxLimit     int `mapstructure:"max_limit"`
}

// SnapshotConfig sets where raw fetched pages are archived.
type SnapshotConfig struct {
	Provider  string `mapstructure:"provider"` // memory | local | gcs
	LocalDir  string `mapstructure:"local_dir"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	Prefix    string `mapstructure:"prefix"`
}

// EventsConfig selects the lead-update publisher.
type EventsConfig struct {
	Provider  string `mapstructure:"provider"` // memory | pubsub
	ProjectID string `mapstructure:"project_id"`
	Topic     string `mapstructure:"topic"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("LEADENGINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("logging.development", true)
	v.SetDefault("db.max_conns", 8)
	v.SetDefault("db.min_conns", 1)
	v.SetDefault("scrape.concurrency", 4)
	v.SetDefault("scrape.queue_depth", 64)
	v.SetDefault("scrape.user_agent", "readyrobots-leadengine/0.1")
	v.SetDefault("scrape.timeout_seconds", 30)
	v.SetDefault("scrape.rate_per_host", 0.5)
	v.SetDefault("scrape.burst_per_host", 1)
	v.SetDefault("scrape.headless_enabled", false)
	v.SetDefault("scrape.nav_timeout_seconds", 25)
	v.SetDefault("breaker.open_threshold", 5)
	v.SetDefault("breaker.cooldown_base_seconds", 600)
	v.SetDefault("breaker.restart_cap", 6)
	v.SetDefault("scoring.recompute_parallelism", 4)
	v.SetDefault("search.max_excerpts", 4)
	v.SetDefault("search.default_limit", 30)
	v.SetDefault("search.max_limit", 100)
	v.SetDefault("snapshot.provider", "memory")
	v.SetDefault("snapshot.prefix", "pages")
	v.SetDefault("events.provider", "memory")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Scrape.Concurrency <= 0 {
		return fmt.Errorf("scrape.concurrency must be > 0")
	}
	if c.Scrape.TimeoutSeconds <= 0 {
		return fmt.Errorf("scrape.timeout_seconds must be > 0")
	}
	if c.Breaker.OpenThreshold <= 0 {
		return fmt.Errorf("breaker.open_threshold must be > 0")
	}
	if c.Breaker.CooldownBaseSeconds <= 0 {
		return fmt.Errorf("breaker.cooldown_base_seconds must be > 0")
	}
	if c.Scoring.RecomputeParallelism <= 0 {
		return fmt.Errorf("scoring.recompute_parallelism must be > 0")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	if c.Snapshot.Provider == "gcs" && c.Snapshot.GCSBucket == "" {
		return fmt.Errorf("snapshot.gcs_bucket must be set for the gcs provider")
	}
	if c.Events.Provider == "pubsub" && (c.Events.ProjectID == "" || c.Events.Topic == "") {
		return fmt.Errorf("events.project_id and events.topic must be set for the pubsub provider")
	}
	return nil
}

// FetchTimeout converts the scrape timeout into a duration.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.Scrape.TimeoutSeconds) * time.Second
}

// CooldownBase converts the breaker cooldown base into a duration.
func (c Config) CooldownBase() time.Duration {
	return time.Duration(c.Breaker.CooldownBaseSeconds) * time.Second
}

package config

import "time"

// Config represents the application configuration
type Config struct {
	Database DatabaseConfig `toml:"database"`
	Scoring  ScoringConfig  `toml:"scoring"`
	Worker   WorkerConfig   `toml:"worker"`
	Cache    CacheConfig    `toml:"cache"`
	Logging  LoggingConfig  `toml:"logging"`
	Metrics  MetricsConfig  `toml:"metrics"`
	MCP      MCPConfig      `toml:"mcp"`
}

// DatabaseConfig contains database settings
type DatabaseConfig struct {
	Path string `toml:"path"`
}

// ScoringConfig controls when users are queued for recalculation.
// The scoring constants themselves live in the database.
type ScoringConfig struct {
	MatchReadyThreshold int `toml:"match_ready_threshold"`
	// OnboardingQuestions force an immediate resync the first time a user
	// reaches the threshold by answering one of them
	OnboardingQuestions []string `toml:"onboarding_questions"`
	InlineOnboarding    bool     `toml:"inline_onboarding"`
}

// WorkerConfig contains incremental worker budgets
type WorkerConfig struct {
	MaxItems        int `toml:"max_items"`
	MaxSeconds      int `toml:"max_seconds"`
	IntervalSeconds int `toml:"interval_seconds"`
}

// MaxDuration returns the per-tick time budget
func (w WorkerConfig) MaxDuration() time.Duration {
	return time.Duration(w.MaxSeconds) * time.Second
}

// Interval returns the time between scheduled ticks
func (w WorkerConfig) Interval() time.Duration {
	return time.Duration(w.IntervalSeconds) * time.Second
}

// CacheConfig contains score cache settings
type CacheConfig struct {
	Backend    string `toml:"backend"`
	TTLSeconds int    `toml:"ttl_seconds"`
	RedisAddr  string `toml:"redis_addr"`
	RedisDB    int    `toml:"redis_db"`
	KeyPrefix  string `toml:"key_prefix"`
}

// TTL returns the entry lifetime as a duration
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

// LoggingConfig contains logger settings
type LoggingConfig struct {
	Mode  string `toml:"mode"`
	Level string `toml:"level"`
}

// MetricsConfig contains the ops HTTP listener settings
type MetricsConfig struct {
	Addr string `toml:"addr"`
}

// MCPConfig contains MCP server settings
type MCPConfig struct {
	Enabled   bool   `toml:"enabled"`
	Transport string `toml:"transport"`
}

// Default returns a Config with sensible defaults
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path: "~/.local/share/matchcompat/matchcompat.db",
		},
		Scoring: ScoringConfig{
			MatchReadyThreshold: 10,
			OnboardingQuestions: []string{},
			InlineOnboarding:    true,
		},
		Worker: WorkerConfig{
			MaxItems:        50,
			MaxSeconds:      240,
			IntervalSeconds: 300,
		},
		Cache: CacheConfig{
			Backend:    "memory",
			TTLSeconds: 3600,
			RedisAddr:  "localhost:6379",
			KeyPrefix:  "matchcompat:",
		},
		Logging: LoggingConfig{
			Mode:  "dev",
			Level: "info",
		},
		Metrics: MetricsConfig{
			Addr: ":9464",
		},
		MCP: MCPConfig{
			Enabled:   true,
			Transport: "stdio",
		},
	}
}

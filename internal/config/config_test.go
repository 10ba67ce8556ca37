package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Scoring.MatchReadyThreshold != 10 {
		t.Errorf("expected MatchReadyThreshold=10, got %d", cfg.Scoring.MatchReadyThreshold)
	}

	if cfg.Worker.MaxItems != 50 {
		t.Errorf("expected MaxItems=50, got %d", cfg.Worker.MaxItems)
	}

	if cfg.Cache.Backend != "memory" {
		t.Errorf("expected Backend=memory, got %s", cfg.Cache.Backend)
	}

	if cfg.Cache.TTL() != time.Hour {
		t.Errorf("expected TTL=1h, got %v", cfg.Cache.TTL())
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid default config",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name: "missing database path",
			modify: func(c *Config) {
				c.Database.Path = ""
			},
			wantErr: true,
		},
		{
			name: "negative threshold",
			modify: func(c *Config) {
				c.Scoring.MatchReadyThreshold = -1
			},
			wantErr: true,
		},
		{
			name: "zero max items",
			modify: func(c *Config) {
				c.Worker.MaxItems = 0
			},
			wantErr: true,
		},
		{
			name: "unknown cache backend",
			modify: func(c *Config) {
				c.Cache.Backend = "memcached"
			},
			wantErr: true,
		},
		{
			name: "redis without address",
			modify: func(c *Config) {
				c.Cache.Backend = "redis"
				c.Cache.RedisAddr = ""
			},
			wantErr: true,
		},
		{
			name: "disabled cache ignores ttl",
			modify: func(c *Config) {
				c.Cache.Backend = "none"
				c.Cache.TTLSeconds = 0
			},
			wantErr: false,
		},
		{
			name: "invalid logging mode",
			modify: func(c *Config) {
				c.Logging.Mode = "verbose"
			},
			wantErr: true,
		},
		{
			name: "invalid mcp transport",
			modify: func(c *Config) {
				c.MCP.Transport = "http"
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)

			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateJoinsErrors(t *testing.T) {
	cfg := Default()
	cfg.Worker.MaxItems = 0
	cfg.Logging.Mode = "loud"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "worker.max_items") || !strings.Contains(err.Error(), "logging.mode") {
		t.Errorf("expected both problems reported, got %v", err)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[database]
path = "` + filepath.Join(dir, "data.db") + `"

[scoring]
match_ready_threshold = 3
onboarding_questions = ["q-age", "q-kids"]

[worker]
max_items = 5
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Scoring.MatchReadyThreshold != 3 {
		t.Errorf("expected threshold 3, got %d", cfg.Scoring.MatchReadyThreshold)
	}
	if len(cfg.Scoring.OnboardingQuestions) != 2 {
		t.Errorf("expected 2 onboarding questions, got %v", cfg.Scoring.OnboardingQuestions)
	}
	if cfg.Worker.MaxItems != 5 {
		t.Errorf("expected max items 5, got %d", cfg.Worker.MaxItems)
	}
	// Unset values keep their defaults
	if cfg.Worker.MaxSeconds != 240 {
		t.Errorf("expected default max seconds, got %d", cfg.Worker.MaxSeconds)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err == nil || !strings.Contains(err.Error(), "config init") {
		t.Errorf("expected a hint to run config init, got %v", err)
	}
}

func TestExpandPath(t *testing.T) {
	home, _ := os.UserHomeDir()

	tests := []struct {
		input    string
		expected string
	}{
		{"~/test", filepath.Join(home, "test")},
		{"/absolute/path", "/absolute/path"},
		{"relative/path", "relative/path"},
	}

	for _, tt := range tests {
		result, err := expandPath(tt.input)
		if err != nil {
			t.Errorf("expandPath(%q) error: %v", tt.input, err)
		}
		if result != tt.expected {
			t.Errorf("expandPath(%q) = %q, want %q", tt.input, result, tt.expected)
		}
	}
}

func TestWorkerDurations(t *testing.T) {
	w := WorkerConfig{MaxSeconds: 90, IntervalSeconds: 300}
	if w.MaxDuration() != 90*time.Second {
		t.Errorf("MaxDuration() = %v", w.MaxDuration())
	}
	if w.Interval() != 5*time.Minute {
		t.Errorf("Interval() = %v", w.Interval())
	}
}

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	// Expand path
	expandedPath, err := expandPath(path)
	if err != nil {
		return nil, fmt.Errorf("failed to expand config path: %w", err)
	}

	// Read file
	data, err := os.ReadFile(expandedPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s (run 'matchcompat config init' to create)", expandedPath)
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	// Parse TOML
	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Expand paths in config
	if err := cfg.expandPaths(); err != nil {
		return nil, fmt.Errorf("failed to expand paths: %w", err)
	}

	// Validate
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// expandPath expands ~ to home directory
func expandPath(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	return filepath.Join(home, path[1:]), nil
}

// expandPaths expands ~ in all path fields
func (c *Config) expandPaths() error {
	var err error

	c.Database.Path, err = expandPath(c.Database.Path)
	if err != nil {
		return err
	}

	return nil
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	// Database validation
	if c.Database.Path == "" {
		errs = append(errs, errors.New("database.path is required"))
	}

	// Scoring validation
	if c.Scoring.MatchReadyThreshold < 0 {
		errs = append(errs, errors.New("scoring.match_ready_threshold must not be negative"))
	}

	// Worker validation
	if c.Worker.MaxItems < 1 {
		errs = append(errs, errors.New("worker.max_items must be at least 1"))
	}
	if c.Worker.MaxSeconds < 1 {
		errs = append(errs, errors.New("worker.max_seconds must be at least 1"))
	}
	if c.Worker.IntervalSeconds < 1 {
		errs = append(errs, errors.New("worker.interval_seconds must be at least 1"))
	}

	// Cache validation
	validBackends := map[string]bool{"memory": true, "redis": true, "none": true}
	if !validBackends[c.Cache.Backend] {
		errs = append(errs, fmt.Errorf("cache.backend must be 'memory', 'redis' or 'none', got '%s'", c.Cache.Backend))
	}
	if c.Cache.Backend != "none" && c.Cache.TTLSeconds < 1 {
		errs = append(errs, errors.New("cache.ttl_seconds must be at least 1"))
	}
	if c.Cache.Backend == "redis" && c.Cache.RedisAddr == "" {
		errs = append(errs, errors.New("cache.redis_addr is required for the redis backend"))
	}

	// Logging validation
	validModes := map[string]bool{"dev": true, "prod": true}
	if !validModes[c.Logging.Mode] {
		errs = append(errs, fmt.Errorf("logging.mode must be 'dev' or 'prod', got '%s'", c.Logging.Mode))
	}

	// MCP validation
	if c.MCP.Transport != "stdio" {
		errs = append(errs, fmt.Errorf("mcp.transport must be 'stdio', got '%s'", c.MCP.Transport))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// EnsureDirectories creates necessary directories for the database
func (c *Config) EnsureDirectories() error {
	dir := filepath.Dir(c.Database.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}

// Package testsupport provides shared fixtures for package tests: temp-dir
// configs, store helpers, and fake external collaborators.
package testsupport

import (
	"path/filepath"
	"testing"

	"launchpro/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Store.Path = filepath.Join(base, "campaigns.db")
	cfg.Store.LockDir = filepath.Join(base, "locks")
	cfg.API.Bind = "127.0.0.1:0"
	cfg.API.Token = "test-token"
	cfg.Approval.BaseURL = "http://approval.invalid"
	cfg.Approval.APIKey = "test"
	cfg.Platforms = []config.Platform{
		{Name: "alpha", BaseURL: "http://alpha.invalid", APIKey: "test"},
		{Name: "beta", BaseURL: "http://beta.invalid", APIKey: "test"},
	}
	cfg.AI.BaseURL = "http://aigen.invalid"
	cfg.AI.APIKey = "test"
	cfg.DesignTasks.Enabled = true
	cfg.DesignTasks.BaseURL = "http://design.invalid"
	cfg.DesignTasks.APIKey = "test"

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithPlatforms overrides the configured target platforms.
func WithPlatforms(platforms ...config.Platform) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Platforms = platforms
	}
}

// WithWorkers overrides the worker tuning section.
func WithWorkers(workers config.Workers) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Workers = workers
	}
}

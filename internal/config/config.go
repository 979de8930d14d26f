package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Store contains campaign database configuration.
type Store struct {
	Path    string `toml:"path"`
	LockDir string `toml:"lock_dir"`
}

// API contains the trigger server bind address and the trusted-caller token.
type API struct {
	Bind  string `toml:"bind"`
	Token string `toml:"token"`
}

// Workers contains stage worker batch sizes, thresholds, and time budgets.
type Workers struct {
	ArticleMaxAgeHours      int `toml:"article_max_age_hours"`
	TrackingTimeoutMinutes  int `toml:"tracking_timeout_minutes"`
	TrackingBatchSize       int `toml:"tracking_batch_size"`
	TrackingConcurrency     int `toml:"tracking_concurrency"`
	ProcessorBatchSize      int `toml:"processor_batch_size"`
	GenerationStuckMinutes  int `toml:"generation_stuck_minutes"`
	GenerationMaxRetries    int `toml:"generation_max_retries"`
	ApprovalBudgetMinutes   int `toml:"approval_budget_minutes"`
	TrackingBudgetMinutes   int `toml:"tracking_budget_minutes"`
	ProcessorBudgetMinutes  int `toml:"processor_budget_minutes"`
	DesignSyncBudgetMinutes int `toml:"design_sync_budget_minutes"`
}

// Approval contains configuration for the content approval service.
type Approval struct {
	BaseURL        string `toml:"base_url"`
	APIKey         string `toml:"api_key"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Platform contains configuration for one ad platform client. The first
// configured platform is the primary: the approval poller creates the remote
// campaign there and the tracking poller reads its tracking link.
type Platform struct {
	Name           string `toml:"name"`
	BaseURL        string `toml:"base_url"`
	APIKey         string `toml:"api_key"`
	RequestTimeout int    `toml:"request_timeout"`
}

// AI contains configuration for the AI content generation service.
type AI struct {
	BaseURL        string `toml:"base_url"`
	APIKey         string `toml:"api_key"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	RetryAttempts  int    `toml:"retry_attempts"`
}

// DesignTasks contains configuration for the external design task service.
type DesignTasks struct {
	Enabled        bool   `toml:"enabled"`
	BaseURL        string `toml:"base_url"`
	APIKey         string `toml:"api_key"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	CampaignLive   bool   `toml:"campaign_live"`
	CampaignFailed bool   `toml:"campaign_failed"`
	DesignReady    bool   `toml:"design_ready"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
	Dir    string `toml:"dir"`
}

// Config encapsulates all configuration values for LaunchPro workers.
type Config struct {
	Store         Store         `toml:"store"`
	API           API           `toml:"api"`
	Workers       Workers       `toml:"workers"`
	Approval      Approval      `toml:"approval"`
	Platforms     []Platform    `toml:"platforms"`
	AI            AI            `toml:"ai"`
	DesignTasks   DesignTasks   `toml:"design_tasks"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration
// file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/launchpro/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("launchpro.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories the store and lock files live in.
func (c *Config) EnsureDirectories() error {
	dirs := []string{filepath.Dir(c.Store.Path), c.Store.LockDir}
	if strings.TrimSpace(c.Logging.Dir) != "" {
		dirs = append(dirs, c.Logging.Dir)
	}
	for _, dir := range dirs {
		if dir == "" || dir == "." {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// PrimaryPlatform returns the first configured platform.
func (c *Config) PrimaryPlatform() (Platform, bool) {
	if len(c.Platforms) == 0 {
		return Platform{}, false
	}
	return c.Platforms[0], true
}

// PlatformNames returns the configured platform names in order.
func (c *Config) PlatformNames() []string {
	names := make([]string, 0, len(c.Platforms))
	for _, p := range c.Platforms {
		names = append(names, p.Name)
	}
	return names
}

// ArticleMaxAge returns the approval deadline for a pending article.
func (c *Config) ArticleMaxAge() time.Duration {
	return time.Duration(c.Workers.ArticleMaxAgeHours) * time.Hour
}

// TrackingTimeout returns how long a campaign may wait for its tracking link.
func (c *Config) TrackingTimeout() time.Duration {
	return time.Duration(c.Workers.TrackingTimeoutMinutes) * time.Minute
}

// GenerationStuckThreshold returns how long a generating_ai campaign may go
// untouched before the processor reclaims it.
func (c *Config) GenerationStuckThreshold() time.Duration {
	return time.Duration(c.Workers.GenerationStuckMinutes) * time.Minute
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file with defaults to the
// specified location.
func CreateSample(path string) error {
	cfg := Default()
	raw, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal sample config: %w", err)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

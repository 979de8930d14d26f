package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateStore(); err != nil {
		return err
	}
	if err := c.validateWorkers(); err != nil {
		return err
	}
	if err := c.validatePlatforms(); err != nil {
		return err
	}
	if err := c.validateDesignTasks(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateStore() error {
	if strings.TrimSpace(c.Store.Path) == "" {
		return errors.New("store.path must be set")
	}
	return nil
}

func (c *Config) validateWorkers() error {
	if err := ensurePositiveMap(map[string]int{
		"workers.article_max_age_hours":      c.Workers.ArticleMaxAgeHours,
		"workers.tracking_timeout_minutes":   c.Workers.TrackingTimeoutMinutes,
		"workers.tracking_batch_size":        c.Workers.TrackingBatchSize,
		"workers.tracking_concurrency":       c.Workers.TrackingConcurrency,
		"workers.processor_batch_size":       c.Workers.ProcessorBatchSize,
		"workers.generation_stuck_minutes":   c.Workers.GenerationStuckMinutes,
		"workers.approval_budget_minutes":    c.Workers.ApprovalBudgetMinutes,
		"workers.tracking_budget_minutes":    c.Workers.TrackingBudgetMinutes,
		"workers.processor_budget_minutes":   c.Workers.ProcessorBudgetMinutes,
		"workers.design_sync_budget_minutes": c.Workers.DesignSyncBudgetMinutes,
	}); err != nil {
		return err
	}
	if c.Workers.GenerationMaxRetries < 0 {
		return errors.New("workers.generation_max_retries must not be negative")
	}
	return nil
}

func (c *Config) validatePlatforms() error {
	seen := make(map[string]struct{}, len(c.Platforms))
	for _, platform := range c.Platforms {
		if platform.Name == "" {
			return errors.New("platforms entries require a name")
		}
		if _, dup := seen[platform.Name]; dup {
			return fmt.Errorf("platform %q configured twice", platform.Name)
		}
		seen[platform.Name] = struct{}{}
	}
	return nil
}

func (c *Config) validateDesignTasks() error {
	if !c.DesignTasks.Enabled {
		return nil
	}
	if strings.TrimSpace(c.DesignTasks.BaseURL) == "" {
		return errors.New("design_tasks.base_url must be set when design_tasks.enabled is true")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for name, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	return nil
}

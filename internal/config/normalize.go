package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizeStore(); err != nil {
		return err
	}
	c.normalizeAPI()
	c.normalizeApproval()
	c.normalizePlatforms()
	c.normalizeAI()
	c.normalizeDesignTasks()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizeStore() error {
	var err error
	if c.Store.Path, err = expandPath(c.Store.Path); err != nil {
		return fmt.Errorf("store.path: %w", err)
	}
	if c.Store.LockDir, err = expandPath(c.Store.LockDir); err != nil {
		return fmt.Errorf("store.lock_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeAPI() {
	c.API.Bind = strings.TrimSpace(c.API.Bind)
	c.API.Token = strings.TrimSpace(c.API.Token)
	if c.API.Token == "" {
		if value, ok := os.LookupEnv("LAUNCHPRO_API_TOKEN"); ok {
			c.API.Token = strings.TrimSpace(value)
		}
	}
}

func (c *Config) normalizeApproval() {
	c.Approval.BaseURL = strings.TrimRight(strings.TrimSpace(c.Approval.BaseURL), "/")
	c.Approval.APIKey = strings.TrimSpace(c.Approval.APIKey)
	if c.Approval.APIKey == "" {
		if value, ok := os.LookupEnv("LAUNCHPRO_APPROVAL_API_KEY"); ok {
			c.Approval.APIKey = strings.TrimSpace(value)
		}
	}
}

func (c *Config) normalizePlatforms() {
	for i := range c.Platforms {
		c.Platforms[i].Name = strings.ToLower(strings.TrimSpace(c.Platforms[i].Name))
		c.Platforms[i].BaseURL = strings.TrimRight(strings.TrimSpace(c.Platforms[i].BaseURL), "/")
		c.Platforms[i].APIKey = strings.TrimSpace(c.Platforms[i].APIKey)
		if c.Platforms[i].RequestTimeout <= 0 {
			c.Platforms[i].RequestTimeout = 30
		}
	}
}

func (c *Config) normalizeAI() {
	c.AI.BaseURL = strings.TrimRight(strings.TrimSpace(c.AI.BaseURL), "/")
	c.AI.APIKey = strings.TrimSpace(c.AI.APIKey)
	if c.AI.APIKey == "" {
		if value, ok := os.LookupEnv("LAUNCHPRO_AI_API_KEY"); ok {
			c.AI.APIKey = strings.TrimSpace(value)
		}
	}
}

func (c *Config) normalizeDesignTasks() {
	c.DesignTasks.BaseURL = strings.TrimRight(strings.TrimSpace(c.DesignTasks.BaseURL), "/")
	c.DesignTasks.APIKey = strings.TrimSpace(c.DesignTasks.APIKey)
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Dir != "" {
		if expanded, err := expandPath(c.Logging.Dir); err == nil {
			c.Logging.Dir = expanded
		}
	}
}

package config

// Default returns the baseline configuration before any file overrides.
func Default() Config {
	return Config{
		Store: Store{
			Path:    "~/.local/share/launchpro/campaigns.db",
			LockDir: "~/.local/share/launchpro/locks",
		},
		API: API{
			Bind: "127.0.0.1:8321",
		},
		Workers: Workers{
			ArticleMaxAgeHours:      24,
			TrackingTimeoutMinutes:  15,
			TrackingBatchSize:       10,
			TrackingConcurrency:     10,
			ProcessorBatchSize:      3,
			GenerationStuckMinutes:  10,
			GenerationMaxRetries:    2,
			ApprovalBudgetMinutes:   5,
			TrackingBudgetMinutes:   1,
			ProcessorBudgetMinutes:  15,
			DesignSyncBudgetMinutes: 5,
		},
		Approval: Approval{
			RequestTimeout: 30,
		},
		AI: AI{
			TimeoutSeconds: 120,
			RetryAttempts:  3,
		},
		DesignTasks: DesignTasks{
			RequestTimeout: 30,
		},
		Notifications: Notifications{
			RequestTimeout: 10,
			CampaignLive:   true,
			CampaignFailed: true,
			DesignReady:    true,
		},
		Logging: Logging{
			Format: "console",
			Level:  "info",
		},
	}
}

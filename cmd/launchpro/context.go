package main

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"launchpro/internal/campaign"
	"launchpro/internal/config"
	"launchpro/internal/logging"
	"launchpro/internal/notifications"
	"launchpro/internal/orchestrator"
	"launchpro/internal/services/adplatform"
	"launchpro/internal/services/aigen"
	"launchpro/internal/services/approval"
	"launchpro/internal/services/designtask"
	"launchpro/internal/workers"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// runtime bundles the wired application pieces the run and serve commands
// share.
type runtime struct {
	cfg      *config.Config
	store    *campaign.Store
	logger   *slog.Logger
	notifier notifications.Service

	approvalPoller *workers.ArticleApprovalPoller
	trackingPoller *workers.TrackingLinkPoller
	processor      *workers.CampaignProcessor
	designSyncer   *workers.DesignTaskSyncer
}

func (c *commandContext) buildRuntime() (*runtime, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	store, err := campaign.Open(cfg)
	if err != nil {
		return nil, err
	}

	registry, err := adplatform.NewRegistry(cfg.Platforms)
	if err != nil {
		store.Close()
		return nil, err
	}
	notifier := notifications.NewService(cfg)
	approvalClient := approval.NewClient(cfg.Approval)
	generator := aigen.NewClient(cfg.AI)
	designs := designtask.NewClient(cfg.DesignTasks)
	orch := orchestrator.New(store, generator, registry, logger)

	return &runtime{
		cfg:            cfg,
		store:          store,
		logger:         logger,
		notifier:       notifier,
		approvalPoller: workers.NewArticleApprovalPoller(store, approvalClient, registry, designs, notifier, cfg, logger),
		trackingPoller: workers.NewTrackingLinkPoller(store, registry, notifier, cfg, logger),
		processor:      workers.NewCampaignProcessor(store, orch, notifier, cfg, logger),
		designSyncer:   workers.NewDesignTaskSyncer(store, designs, notifier, cfg, logger),
	}, nil
}

func (r *runtime) Close() {
	if r != nil && r.store != nil {
		r.store.Close()
	}
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

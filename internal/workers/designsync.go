package workers

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"launchpro/internal/campaign"
	"launchpro/internal/config"
	"launchpro/internal/logging"
	"launchpro/internal/notifications"
	"launchpro/internal/services/designtask"
)

// DesignTaskFetcher reads one remote design task; satisfied by
// designtask.Client.
type DesignTaskFetcher interface {
	GetTaskByID(ctx context.Context, taskID string) (designtask.Task, error)
}

// DesignTaskSyncer mirrors external design task state onto the local task
// record. It deliberately never changes campaign status: the hand-off out of
// awaiting_design stays a manual decision.
type DesignTaskSyncer struct {
	store    *campaign.Store
	designs  DesignTaskFetcher
	notifier notifications.Service
	cfg      *config.Config
	logger   *slog.Logger
	now      func() time.Time
}

// NewDesignTaskSyncer builds the syncer.
func NewDesignTaskSyncer(store *campaign.Store, designs DesignTaskFetcher, notifier notifications.Service, cfg *config.Config, logger *slog.Logger) *DesignTaskSyncer {
	return &DesignTaskSyncer{
		store:    store,
		designs:  designs,
		notifier: notifier,
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "design-syncer"),
		now:      time.Now,
	}
}

// RunOnce syncs every awaiting_design campaign that has a design task.
func (s *DesignTaskSyncer) RunOnce(ctx context.Context) (Summary, error) {
	started := s.now()
	summary := Summary{Worker: "design-syncer", BatchID: uuid.NewString()}
	log := s.logger.With(logging.String(logging.FieldBatchID, summary.BatchID))

	campaigns, err := s.store.List(ctx, campaign.StatusAwaitingDesign)
	if err != nil {
		return summary, err
	}
	summary.Scanned = len(campaigns)

	for _, c := range campaigns {
		switch s.sync(ctx, c, log) {
		case outcomeSucceeded:
			summary.Succeeded++
		case outcomeFailed:
			summary.Failed++
		default:
			summary.Skipped++
		}
	}

	summary.Duration = s.now().Sub(started)
	log.Info("design sync finished",
		logging.Int("scanned", summary.Scanned),
		logging.Int("succeeded", summary.Succeeded),
		logging.Int("skipped", summary.Skipped),
		logging.Duration("duration", summary.Duration))
	return summary, nil
}

func (s *DesignTaskSyncer) sync(ctx context.Context, c *campaign.Campaign, log *slog.Logger) outcome {
	clog := log.With(logging.Int64(logging.FieldCampaignID, c.ID))
	began := time.Now()

	task, err := s.store.DesignTaskForCampaign(ctx, c.ID)
	if err != nil {
		clog.Error("load design task", logging.Error(err))
		return outcomeSkipped
	}
	if task == nil || task.ExternalID == "" {
		clog.Warn("awaiting_design campaign has no design task")
		return outcomeSkipped
	}
	if task.Status == campaign.DesignTaskCompleted {
		return outcomeSkipped
	}

	remote, err := s.designs.GetTaskByID(ctx, task.ExternalID)
	if err != nil {
		clog.Warn("design task fetch failed, retrying next cycle", logging.Error(err))
		return outcomeSkipped
	}

	if string(remote.Status) == task.Status && remote.DeliveryLink == task.DeliveryLink {
		return outcomeSkipped
	}
	task.Status = string(remote.Status)
	task.DeliveryLink = remote.DeliveryLink
	if err := s.store.UpdateDesignTask(ctx, task); err != nil {
		clog.Error("persist design task", logging.Error(err))
		return outcomeSkipped
	}

	if task.Status != campaign.DesignTaskCompleted {
		clog.Info("design task updated", logging.String("status", task.Status))
		return outcomeSucceeded
	}

	auditTransition(ctx, s.store, clog, campaign.AuditEntry{
		CampaignID: c.ID,
		EventKind:  "design_task_completed",
		Component:  "design-syncer",
		FromStatus: c.Status,
		ToStatus:   c.Status,
		Message:    "external design task delivered",
		DetailJSON: detailJSON(map[string]any{
			"external_id":   task.ExternalID,
			"delivery_link": task.DeliveryLink,
		}),
		Duration: time.Since(began),
	})
	if err := s.notifier.NotifyDesignReady(ctx, c.Name, task.DeliveryLink); err != nil {
		clog.Warn("design notification failed", logging.Error(err))
	}
	clog.Info("design task delivered", logging.String("delivery_link", task.DeliveryLink))
	return outcomeSucceeded
}

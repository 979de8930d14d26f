package workers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"launchpro/internal/campaign"
	"launchpro/internal/config"
	"launchpro/internal/logging"
	"launchpro/internal/notifications"
	"launchpro/internal/orchestrator"
)

// CampaignOrchestrator runs the generation and launch sequence for one
// claimed campaign; satisfied by orchestrator.Orchestrator.
type CampaignOrchestrator interface {
	Run(ctx context.Context, c *campaign.Campaign, platforms []*campaign.Platform) (orchestrator.Result, error)
}

// CampaignProcessor claims ready campaigns and drives them to a terminal
// state through the orchestrator. The store's conditional claim is the only
// concurrency-safety mechanism; a lost claim is a silent skip, never an
// error.
type CampaignProcessor struct {
	store        *campaign.Store
	orchestrator CampaignOrchestrator
	notifier     notifications.Service
	cfg          *config.Config
	logger       *slog.Logger
	now          func() time.Time
}

// NewCampaignProcessor builds the processor.
func NewCampaignProcessor(store *campaign.Store, orch CampaignOrchestrator, notifier notifications.Service, cfg *config.Config, logger *slog.Logger) *CampaignProcessor {
	return &CampaignProcessor{
		store:        store,
		orchestrator: orch,
		notifier:     notifier,
		cfg:          cfg,
		logger:       logging.NewComponentLogger(logger, "processor"),
		now:          time.Now,
	}
}

// SetClock overrides the processor's clock; tests only.
func (p *CampaignProcessor) SetClock(now func() time.Time) {
	if now != nil {
		p.now = now
	}
}

// RunOnce selects a bounded batch of ready campaigns, claims each, and
// processes claimed ones concurrently and independently.
func (p *CampaignProcessor) RunOnce(ctx context.Context) (Summary, error) {
	started := p.now()
	summary := Summary{Worker: "processor", BatchID: uuid.NewString()}
	log := p.logger.With(logging.String(logging.FieldBatchID, summary.BatchID))

	stuckBefore := p.now().UTC().Add(-p.cfg.GenerationStuckThreshold())
	ready, err := p.store.ReadyForProcessing(ctx, p.cfg.Workers.ProcessorBatchSize, stuckBefore)
	if err != nil {
		return summary, err
	}
	summary.Scanned = len(ready)

	outcomes := make([]outcome, len(ready))
	indexOf := make(map[int64]int, len(ready))
	for i, c := range ready {
		indexOf[c.ID] = i
	}
	forEach(ctx, p.cfg.Workers.ProcessorBatchSize, ready, func(ctx context.Context, c *campaign.Campaign) {
		outcomes[indexOf[c.ID]] = p.processOne(ctx, c, log)
	})
	for _, out := range outcomes {
		switch out {
		case outcomeSucceeded:
			summary.Succeeded++
		case outcomeFailed:
			summary.Failed++
		default:
			summary.Skipped++
		}
	}

	summary.Duration = p.now().Sub(started)
	log.Info("processor batch finished",
		logging.Int("scanned", summary.Scanned),
		logging.Int("succeeded", summary.Succeeded),
		logging.Int("failed", summary.Failed),
		logging.Int("skipped", summary.Skipped),
		logging.Duration("duration", summary.Duration))
	return summary, nil
}

func (p *CampaignProcessor) processOne(ctx context.Context, c *campaign.Campaign, log *slog.Logger) outcome {
	clog := log.With(logging.Int64(logging.FieldCampaignID, c.ID))
	began := time.Now()
	expected := c.Status
	reclaim := expected == campaign.StatusGeneratingAI

	if expected == campaign.StatusArticleApproved && !c.HasRealTrackingLink() {
		clog.Info("tracking link not yet confirmed, skipping")
		return outcomeSkipped
	}

	claimed, err := p.store.ClaimForGeneration(ctx, c.ID, expected, c.UpdatedAt)
	if err != nil {
		clog.Error("claim attempt failed", logging.Error(err))
		return outcomeSkipped
	}
	if !claimed {
		clog.Info("already claimed by another worker, skipping")
		return outcomeSkipped
	}

	claimMessage := "claimed for generation"
	if reclaim {
		claimMessage = "reclaimed stuck campaign"
	}
	auditTransition(ctx, p.store, clog, campaign.AuditEntry{
		CampaignID: c.ID,
		EventKind:  "claimed_for_generation",
		Component:  "processor",
		FromStatus: expected,
		ToStatus:   campaign.StatusGeneratingAI,
		Message:    claimMessage,
		DetailJSON: detailJSON(map[string]any{
			"reclaim": reclaim,
			"retries": c.GenerationRetries,
		}),
		Duration: time.Since(began),
	})

	if reclaim {
		// Checked before the bump: the terminal counter never exceeds the bound.
		if c.GenerationRetries >= p.cfg.Workers.GenerationMaxRetries {
			return p.failCampaign(ctx, c, "generation_retries_exhausted",
				fmt.Sprintf("gave up after %d retries", p.cfg.Workers.GenerationMaxRetries), "", began, clog)
		}
		retries, err := p.store.BumpGenerationRetries(ctx, c.ID)
		if err != nil {
			clog.Error("bump retry counter", logging.Error(err))
			return outcomeSkipped
		}
		c.GenerationRetries = retries
		clog.Info("reclaimed stuck campaign", logging.Int("retries", retries))
	}

	platforms, err := p.store.PlatformsFor(ctx, c.ID)
	if err != nil {
		clog.Error("load platform rows", logging.Error(err))
		return outcomeSkipped
	}

	result, runErr := p.orchestrator.Run(ctx, c, platforms)
	if runErr != nil {
		return p.recover(ctx, c, runErr, began, clog)
	}
	return p.activate(ctx, c, result, began, clog)
}

// activate marks the campaign live after a successful orchestration pass. A
// partial launch still activates; the unlaunched platform rows stay flagged
// for manual follow-up.
func (p *CampaignProcessor) activate(ctx context.Context, c *campaign.Campaign, result orchestrator.Result, began time.Time, clog *slog.Logger) outcome {
	now := p.now().UTC()
	c.Status = campaign.StatusActive
	c.LaunchedAt = &now
	c.ClearFailure()
	if err := p.store.Update(ctx, c); err != nil {
		clog.Error("persist activation", logging.Error(err))
		return outcomeSkipped
	}

	auditTransition(ctx, p.store, clog, campaign.AuditEntry{
		CampaignID: c.ID,
		EventKind:  "campaign_activated",
		Component:  "processor",
		FromStatus: campaign.StatusGeneratingAI,
		ToStatus:   campaign.StatusActive,
		Message:    "orchestration completed, campaign live",
		DetailJSON: detailJSON(map[string]any{
			"launched":   result.Launched,
			"failed":     result.Failed,
			"generation": len(result.Creative.Copy) > 0,
		}),
		Duration: time.Since(began),
	})
	if err := p.notifier.NotifyCampaignLive(ctx, c.Name, c.TrackingLink); err != nil {
		clog.Warn("live notification failed", logging.Error(err))
	}
	if result.Failed > 0 {
		if err := p.notifier.NotifyPartialLaunch(ctx, c.Name, result.Launched, result.Failed); err != nil {
			clog.Warn("partial launch notification failed", logging.Error(err))
		}
	}
	clog.Info("campaign active",
		logging.Int("launched", result.Launched),
		logging.Int("failed", result.Failed))
	return outcomeSucceeded
}

// recover decides the terminal outcome after an orchestration error. The
// persisted state is re-read first: evidence that the critical side effect
// already happened (a recorded remote id, an already-active status, or a
// confirmed tracking link) converts the failure into an activation instead of
// risking a duplicate-creation retry.
func (p *CampaignProcessor) recover(ctx context.Context, c *campaign.Campaign, runErr error, began time.Time, clog *slog.Logger) outcome {
	fresh, err := p.store.GetByID(ctx, c.ID)
	if err != nil || fresh == nil {
		clog.Error("re-read campaign state", logging.Error(err))
		fresh = c
	}
	hasRemote, err := p.store.HasAnyRemoteCampaign(ctx, c.ID)
	if err != nil {
		clog.Error("check remote campaign evidence", logging.Error(err))
	}

	if hasRemote || fresh.Status == campaign.StatusActive || fresh.HasRealTrackingLink() {
		now := p.now().UTC()
		fresh.Status = campaign.StatusActive
		if fresh.LaunchedAt == nil {
			fresh.LaunchedAt = &now
		}
		fresh.ClearFailure()
		if err := p.store.Update(ctx, fresh); err != nil {
			clog.Error("persist recovery activation", logging.Error(err))
			return outcomeSkipped
		}
		auditTransition(ctx, p.store, clog, campaign.AuditEntry{
			CampaignID: c.ID,
			EventKind:  "post_success_recovery",
			Component:  "processor",
			FromStatus: campaign.StatusGeneratingAI,
			ToStatus:   campaign.StatusActive,
			Message:    "orchestration error after completed side effect, forcing active",
			DetailJSON: detailJSON(map[string]any{
				"error":             runErr.Error(),
				"has_remote_id":     hasRemote,
				"had_tracking_link": fresh.HasRealTrackingLink(),
			}),
			Duration: time.Since(began),
		})
		clog.Warn("masked post-success failure", logging.Error(runErr))
		if err := p.notifier.NotifyCampaignLive(ctx, fresh.Name, fresh.TrackingLink); err != nil {
			clog.Warn("live notification failed", logging.Error(err))
		}
		return outcomeSucceeded
	}

	step := "orchestration"
	var stepErr *orchestrator.StepError
	if errors.As(runErr, &stepErr) {
		step = stepErr.Step
	}
	return p.failCampaign(ctx, fresh, step, "orchestration failed", runErr.Error(), began, clog)
}

func (p *CampaignProcessor) failCampaign(ctx context.Context, c *campaign.Campaign, step, message, technical string, began time.Time, clog *slog.Logger) outcome {
	// The claim already moved the stored status to generating_ai even when
	// the in-memory copy still shows the pre-claim value.
	from := campaign.StatusGeneratingAI
	c.SetFailure(step, message, technical, p.now().UTC())
	if err := p.store.Update(ctx, c); err != nil {
		clog.Error("persist campaign failure", logging.Error(err))
		return outcomeSkipped
	}
	auditTransition(ctx, p.store, clog, campaign.AuditEntry{
		CampaignID: c.ID,
		EventKind:  step,
		Component:  "processor",
		FromStatus: from,
		ToStatus:   campaign.StatusFailed,
		Message:    message,
		DetailJSON: detailJSON(map[string]any{
			"technical_details": c.ErrorDetail.TechnicalDetails,
			"retries":           c.GenerationRetries,
		}),
		IsError:  true,
		Duration: time.Since(began),
	})
	if err := p.notifier.NotifyCampaignFailed(ctx, c.Name, step, message); err != nil {
		clog.Warn("failure notification failed", logging.Error(err))
	}
	clog.Info("campaign failed", logging.String("step", step))
	return outcomeFailed
}

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
	"launchpro/internal/services/adplatform"
)

// TrackingLinkPoller waits for the remote campaign's tracking URL to
// materialize. It only observes external systems; racing invocations can
// duplicate a status write but never a side effect.
type TrackingLinkPoller struct {
	store     *campaign.Store
	platforms PlatformResolver
	notifier  notifications.Service
	cfg       *config.Config
	logger    *slog.Logger
	now       func() time.Time
}

// NewTrackingLinkPoller builds the poller.
func NewTrackingLinkPoller(store *campaign.Store, platforms PlatformResolver, notifier notifications.Service, cfg *config.Config, logger *slog.Logger) *TrackingLinkPoller {
	return &TrackingLinkPoller{
		store:     store,
		platforms: platforms,
		notifier:  notifier,
		cfg:       cfg,
		logger:    logging.NewComponentLogger(logger, "tracking-poller"),
		now:       time.Now,
	}
}

// SetClock overrides the poller's clock; tests only.
func (p *TrackingLinkPoller) SetClock(now func() time.Time) {
	if now != nil {
		p.now = now
	}
}

// RunOnce polls one batch of awaiting_tracking campaigns, oldest poll-start
// first, with one concurrent status check each.
func (p *TrackingLinkPoller) RunOnce(ctx context.Context) (Summary, error) {
	started := p.now()
	summary := Summary{Worker: "tracking-poller", BatchID: uuid.NewString()}
	log := p.logger.With(logging.String(logging.FieldBatchID, summary.BatchID))

	campaigns, err := p.store.AwaitingTracking(ctx, p.cfg.Workers.TrackingBatchSize)
	if err != nil {
		return summary, err
	}
	summary.Scanned = len(campaigns)

	outcomes := make([]outcome, len(campaigns))
	indexOf := make(map[int64]int, len(campaigns))
	for i, c := range campaigns {
		indexOf[c.ID] = i
	}
	forEach(ctx, p.cfg.Workers.TrackingConcurrency, campaigns, func(ctx context.Context, c *campaign.Campaign) {
		outcomes[indexOf[c.ID]] = p.poll(ctx, c, log)
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
	log.Info("tracking batch finished",
		logging.Int("scanned", summary.Scanned),
		logging.Int("succeeded", summary.Succeeded),
		logging.Int("failed", summary.Failed),
		logging.Int("skipped", summary.Skipped),
		logging.Duration("duration", summary.Duration))
	return summary, nil
}

func (p *TrackingLinkPoller) poll(ctx context.Context, c *campaign.Campaign, log *slog.Logger) outcome {
	clog := log.With(logging.Int64(logging.FieldCampaignID, c.ID))
	now := p.now().UTC()
	began := time.Now()
	from := c.Status
	c.TrackingPollAttempts++

	if TrackingExpired(now, c.TrackingPollStartedAt, p.cfg.TrackingTimeout()) {
		c.SetFailure("tracking_link_timeout", "tracking link did not materialize in time", "", now)
		if err := p.store.Update(ctx, c); err != nil {
			clog.Error("persist tracking timeout", logging.Error(err))
			return outcomeSkipped
		}
		auditTransition(ctx, p.store, clog, campaign.AuditEntry{
			CampaignID: c.ID,
			EventKind:  "tracking_link_timeout",
			Component:  "tracking-poller",
			FromStatus: from,
			ToStatus:   c.Status,
			Message:    "tracking link wait exceeded deadline",
			DetailJSON: detailJSON(map[string]any{
				"attempts":        c.TrackingPollAttempts,
				"poll_started_at": c.TrackingPollStartedAt,
			}),
			IsError:  true,
			Duration: time.Since(began),
		})
		if err := p.notifier.NotifyTrackingTimeout(ctx, c.Name, c.TrackingPollAttempts); err != nil {
			clog.Warn("timeout notification failed", logging.Error(err))
		}
		return outcomeFailed
	}

	client, ok := p.platforms.Primary()
	if !ok || c.RemoteCampaignID == "" {
		clog.Warn("no platform client or remote id for tracking poll")
		return p.persistAttempt(ctx, c, clog)
	}

	status, err := client.GetCampaignStatus(ctx, c.RemoteCampaignID)
	if err != nil {
		clog.Warn("status check failed, retrying next cycle", logging.Error(err))
		return p.persistAttempt(ctx, c, clog)
	}

	if campaign.IsRealTrackingLink(status.TrackingLink) && status.Status == adplatform.RemoteActive {
		c.TrackingLink = status.TrackingLink
		if status.DirectLink != "" {
			c.DirectLink = status.DirectLink
		}
		c.Status = campaign.StatusArticleApproved
		c.ClearFailure()
		if err := p.store.Update(ctx, c); err != nil {
			clog.Error("persist tracking link", logging.Error(err))
			return outcomeSkipped
		}
		auditTransition(ctx, p.store, clog, campaign.AuditEntry{
			CampaignID: c.ID,
			EventKind:  "tracking_link_recorded",
			Component:  "tracking-poller",
			FromStatus: from,
			ToStatus:   c.Status,
			Message:    "tracking link confirmed, campaign ready for processing",
			DetailJSON: detailJSON(map[string]any{
				"tracking_link": c.TrackingLink,
				"attempts":      c.TrackingPollAttempts,
			}),
			Duration: time.Since(began),
		})
		clog.Info("tracking link recorded", logging.Int("attempts", c.TrackingPollAttempts))
		return outcomeSucceeded
	}

	return p.persistAttempt(ctx, c, clog)
}

func (p *TrackingLinkPoller) persistAttempt(ctx context.Context, c *campaign.Campaign, clog *slog.Logger) outcome {
	if err := p.store.Update(ctx, c); err != nil {
		clog.Error("persist poll attempt", logging.Error(err))
	}
	return outcomeSkipped
}

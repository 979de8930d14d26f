package workers

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"launchpro/internal/campaign"
	"launchpro/internal/config"
	"launchpro/internal/logging"
	"launchpro/internal/notifications"
	"launchpro/internal/services/adplatform"
	"launchpro/internal/services/approval"
)

// ApprovalChecker reports the state of one content approval request.
type ApprovalChecker interface {
	Check(ctx context.Context, requestID string) (approval.Result, error)
}

// DesignTaskCreator orders an external design task for a campaign.
type DesignTaskCreator interface {
	CreateTask(ctx context.Context, campaignName, articleLink, brief string) (string, error)
}

// PlatformResolver resolves ad platform clients; satisfied by
// adplatform.Registry.
type PlatformResolver interface {
	Lookup(name string) (adplatform.Client, bool)
	Primary() (adplatform.Client, bool)
}

// ArticleApprovalPoller moves pending_article campaigns forward once the
// content approval workflow decides. Approved campaigns get their remote
// campaign created on the primary platform before routing to the design or
// tracking path.
type ArticleApprovalPoller struct {
	store     *campaign.Store
	checker   ApprovalChecker
	platforms PlatformResolver
	designs   DesignTaskCreator
	notifier  notifications.Service
	cfg       *config.Config
	logger    *slog.Logger
	now       func() time.Time
}

// NewArticleApprovalPoller builds the poller.
func NewArticleApprovalPoller(store *campaign.Store, checker ApprovalChecker, platforms PlatformResolver, designs DesignTaskCreator, notifier notifications.Service, cfg *config.Config, logger *slog.Logger) *ArticleApprovalPoller {
	return &ArticleApprovalPoller{
		store:     store,
		checker:   checker,
		platforms: platforms,
		designs:   designs,
		notifier:  notifier,
		cfg:       cfg,
		logger:    logging.NewComponentLogger(logger, "approval-poller"),
		now:       time.Now,
	}
}

// SetClock overrides the poller's clock; tests only.
func (p *ArticleApprovalPoller) SetClock(now func() time.Time) {
	if now != nil {
		p.now = now
	}
}

// RunOnce processes the full matched set of pending campaigns, one approval
// check each. Re-running against an already-transitioned campaign is a no-op
// via the status-guarded query.
func (p *ArticleApprovalPoller) RunOnce(ctx context.Context) (Summary, error) {
	started := p.now()
	summary := Summary{Worker: "approval-poller", BatchID: uuid.NewString()}
	log := p.logger.With(logging.String(logging.FieldBatchID, summary.BatchID))

	campaigns, err := p.store.PendingArticle(ctx)
	if err != nil {
		return summary, err
	}
	summary.Scanned = len(campaigns)

	for _, c := range campaigns {
		switch p.process(ctx, c, log) {
		case outcomeSucceeded:
			summary.Succeeded++
		case outcomeFailed:
			summary.Failed++
		default:
			summary.Skipped++
		}
	}

	summary.Duration = p.now().Sub(started)
	log.Info("approval batch finished",
		logging.Int("scanned", summary.Scanned),
		logging.Int("succeeded", summary.Succeeded),
		logging.Int("failed", summary.Failed),
		logging.Int("skipped", summary.Skipped),
		logging.Duration("duration", summary.Duration))
	return summary, nil
}

type outcome int

const (
	outcomeSkipped outcome = iota
	outcomeSucceeded
	outcomeFailed
)

func (p *ArticleApprovalPoller) process(ctx context.Context, c *campaign.Campaign, log *slog.Logger) outcome {
	clog := log.With(logging.Int64(logging.FieldCampaignID, c.ID))
	now := p.now().UTC()
	began := time.Now()

	result, err := p.checker.Check(ctx, c.ArticleRequestID)
	if err != nil {
		if ApprovalExpired(now, c.CreatedAt, p.cfg.ArticleMaxAge()) {
			out := p.failApproval(ctx, c, "approval_timeout", "no approval decision within deadline", err.Error(), began, clog)
			if nerr := p.notifier.NotifyApprovalTimeout(ctx, c.Name, now.Sub(c.CreatedAt)); nerr != nil {
				clog.Warn("timeout notification failed", logging.Error(nerr))
			}
			return out
		}
		clog.Warn("approval check failed, retrying next cycle", logging.Error(err))
		return outcomeSkipped
	}

	switch result.Status {
	case approval.StatusRejected:
		out := p.failApproval(ctx, c, "article_rejected", "article rejected by approval workflow", result.RejectionReason, began, clog)
		if err := p.notifier.NotifyArticleRejected(ctx, c.Name, result.RejectionReason); err != nil {
			clog.Warn("rejection notification failed", logging.Error(err))
		}
		return out
	case approval.StatusPublished:
		return p.launchApproved(ctx, c, result, began, clog)
	default:
		if ApprovalExpired(now, c.CreatedAt, p.cfg.ArticleMaxAge()) {
			out := p.failApproval(ctx, c, "approval_timeout", "no approval decision within deadline", "", began, clog)
			if err := p.notifier.NotifyApprovalTimeout(ctx, c.Name, now.Sub(c.CreatedAt)); err != nil {
				clog.Warn("timeout notification failed", logging.Error(err))
			}
			return out
		}
		return outcomeSkipped
	}
}

// launchApproved creates the remote campaign on the primary platform and
// routes the campaign to the design or tracking path. The idempotency key and
// the in-flight marker hit the store before the external create call; a crash
// in between leaves a later invocation resending the same key instead of
// minting a duplicate remote campaign.
func (p *ArticleApprovalPoller) launchApproved(ctx context.Context, c *campaign.Campaign, result approval.Result, began time.Time, clog *slog.Logger) outcome {
	from := c.Status
	now := p.now().UTC()

	primary, ok := p.platforms.Primary()
	if !ok {
		return p.failApproval(ctx, c, "remote_creation", "no ad platform configured", "", began, clog)
	}

	key := strings.TrimSpace(c.RemoteCreationKey)
	if key == "" {
		key = uuid.NewString()
	}
	if err := p.store.MarkRemoteCreationStarted(ctx, c.ID, key, now); err != nil {
		clog.Error("persist creation marker", logging.Error(err))
		return outcomeSkipped
	}
	if err := p.store.SetPlatformCreating(ctx, c.ID, primary.Name(), key); err != nil {
		clog.Error("mark primary platform creating", logging.Error(err))
		return outcomeSkipped
	}
	c.RemoteCreationKey = key
	startedAt := now
	c.RemoteCreationStartedAt = &startedAt
	c.ApprovedContentID = result.ApprovedContentID

	remoteID, err := primary.CreateCampaign(ctx, adplatform.CreateRequest{
		Name:              c.Name,
		OfferRef:          c.OfferRef,
		Country:           c.Country,
		ApprovedContentID: c.ApprovedContentID,
		IdempotencyKey:    key,
	})
	if err != nil {
		// Status stays pending_article; the persisted key makes the next
		// attempt safe against duplicates.
		clog.Warn("remote campaign creation failed, retrying next cycle", logging.Error(err))
		return outcomeSkipped
	}
	c.RemoteCampaignID = remoteID
	if err := p.store.SetPlatformRemote(ctx, c.ID, primary.Name(), remoteID); err != nil {
		clog.Error("record primary remote id", logging.Error(err))
		return outcomeSkipped
	}

	// Best effort: some platforms hand out links immediately.
	if status, err := primary.GetCampaignStatus(ctx, remoteID); err == nil {
		if status.TrackingLink != "" {
			c.TrackingLink = status.TrackingLink
		}
		if status.DirectLink != "" {
			c.DirectLink = status.DirectLink
		}
	}

	if c.NeedsDesign {
		taskID, err := p.designs.CreateTask(ctx, c.Name, c.DirectLink, c.OfferRef)
		if err != nil {
			// A design-required campaign must not silently skip the design
			// step.
			out := p.failApproval(ctx, c, "design_task", "design task creation failed", err.Error(), began, clog)
			if nerr := p.notifier.NotifyCampaignFailed(ctx, c.Name, "design_task", err.Error()); nerr != nil {
				clog.Warn("failure notification failed", logging.Error(nerr))
			}
			return out
		}
		if _, err := p.store.NewDesignTask(ctx, c.ID, taskID); err != nil {
			clog.Error("persist design task", logging.Error(err))
			return p.failApproval(ctx, c, "design_task", "design task persistence failed", err.Error(), began, clog)
		}
		c.Status = campaign.StatusAwaitingDesign
	} else {
		// The poll timer must persist in the same write as the status flip;
		// an awaiting_tracking row always carries a started-at.
		c.Status = campaign.StatusAwaitingTracking
		pollStart := now
		c.TrackingPollStartedAt = &pollStart
		c.TrackingPollAttempts = 0
	}
	c.ClearFailure()
	if err := p.store.Update(ctx, c); err != nil {
		clog.Error("persist approval transition", logging.Error(err))
		return outcomeSkipped
	}

	auditTransition(ctx, p.store, clog, campaign.AuditEntry{
		CampaignID: c.ID,
		EventKind:  "article_approved",
		Component:  "approval-poller",
		FromStatus: from,
		ToStatus:   c.Status,
		Message:    "article approved, remote campaign created",
		DetailJSON: detailJSON(map[string]any{
			"remote_campaign_id":  remoteID,
			"approved_content_id": c.ApprovedContentID,
			"platform":            primary.Name(),
			"needs_design":        c.NeedsDesign,
		}),
		Duration: time.Since(began),
	})
	clog.Info("campaign approved",
		logging.String("remote_campaign_id", remoteID),
		logging.String("next_status", string(c.Status)))
	return outcomeSucceeded
}

func (p *ArticleApprovalPoller) failApproval(ctx context.Context, c *campaign.Campaign, step, message, technical string, began time.Time, clog *slog.Logger) outcome {
	from := c.Status
	c.SetFailure(step, message, technical, p.now().UTC())
	if err := p.store.Update(ctx, c); err != nil {
		clog.Error("persist approval failure", logging.Error(err))
		return outcomeSkipped
	}
	auditTransition(ctx, p.store, clog, campaign.AuditEntry{
		CampaignID: c.ID,
		EventKind:  step,
		Component:  "approval-poller",
		FromStatus: from,
		ToStatus:   c.Status,
		Message:    message,
		DetailJSON: detailJSON(map[string]any{"technical_details": technical}),
		IsError:    true,
		Duration:   time.Since(began),
	})
	clog.Info("campaign failed at approval", logging.String("step", step))
	return outcomeFailed
}

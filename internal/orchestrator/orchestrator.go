// Package orchestrator coordinates the single processing pass that takes a
// claimed campaign through AI content generation and per-platform ad launch.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"launchpro/internal/campaign"
	"launchpro/internal/logging"
	"launchpro/internal/services"
	"launchpro/internal/services/adplatform"
	"launchpro/internal/services/aigen"
)

// Generator produces ad creative from a campaign briefing.
type Generator interface {
	Generate(ctx context.Context, briefing aigen.Briefing) (aigen.Creative, error)
}

// PlatformResolver resolves ad platform clients by name. The first configured
// platform is the primary.
type PlatformResolver interface {
	Lookup(name string) (adplatform.Client, bool)
	Primary() (adplatform.Client, bool)
}

// PlatformResult is the outcome of one platform's create+launch attempt.
type PlatformResult struct {
	Platform string
	RemoteID string
	Success  bool
	Error    string
}

// StepError tags an orchestration failure with the step that produced it, so
// the caller can persist a meaningful step name in the error payload.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string { return e.Step + ": " + e.Err.Error() }

func (e *StepError) Unwrap() error { return e.Err }

// Result aggregates one orchestration pass.
type Result struct {
	Creative  aigen.Creative
	Platforms []PlatformResult
	Launched  int
	Failed    int
}

// Orchestrator runs the generation and launch sequence for one campaign at a
// time. It owns the campaign_platforms rows while a pass is in flight; the
// campaign row itself stays with the calling worker.
type Orchestrator struct {
	store     *campaign.Store
	generator Generator
	platforms PlatformResolver
	logger    *slog.Logger
}

// New builds an orchestrator.
func New(store *campaign.Store, generator Generator, platforms PlatformResolver, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		store:     store,
		generator: generator,
		platforms: platforms,
		logger:    logging.NewComponentLogger(logger, "orchestrator"),
	}
}

// Run generates creative for the campaign and launches it on every target
// platform in configured order. Remote campaign ids are persisted the moment
// they are known, before any launch attempt, so a later recovery pass can see
// that the external side effect happened even if this invocation dies.
//
// Run returns an error only when generation fails or no platform launches;
// a partial launch is a success with Failed > 0.
func (o *Orchestrator) Run(ctx context.Context, c *campaign.Campaign, platforms []*campaign.Platform) (Result, error) {
	var result Result
	if c == nil {
		return result, fmt.Errorf("orchestrate: campaign is nil")
	}
	if len(platforms) == 0 {
		return result, services.Wrap(services.ErrConfiguration, "orchestrator", "run", "campaign has no target platforms", nil)
	}

	log := o.logger.With(logging.Int64(logging.FieldCampaignID, c.ID))

	briefing, err := o.buildBriefing(ctx, c)
	if err != nil {
		return result, &StepError{Step: "ai_generation", Err: err}
	}

	creative, err := o.generator.Generate(ctx, briefing)
	if err != nil {
		return result, &StepError{Step: "ai_generation", Err: err}
	}
	result.Creative = creative
	log.Info("creative generated",
		logging.Int("keywords", len(creative.Keywords)),
		logging.Int("images", len(creative.Images)),
		logging.Int("videos", len(creative.Videos)))

	launchCreative := adplatform.Creative{
		Copy:       creative.Copy,
		Keywords:   creative.Keywords,
		Images:     creative.Images,
		Videos:     creative.Videos,
		LandingURL: landingURL(c),
	}

	for _, row := range platforms {
		outcome := o.launchPlatform(ctx, c, row, launchCreative, log)
		result.Platforms = append(result.Platforms, outcome)
		if outcome.Success {
			result.Launched++
		} else {
			result.Failed++
		}
	}

	if result.Launched == 0 {
		err := services.Wrap(services.ErrExternal, "orchestrator", "launch",
			fmt.Sprintf("all %d platform launches failed: %s", result.Failed, firstError(result.Platforms)), nil)
		return result, &StepError{Step: "platform_launch", Err: err}
	}
	return result, nil
}

func (o *Orchestrator) buildBriefing(ctx context.Context, c *campaign.Campaign) (aigen.Briefing, error) {
	briefing := aigen.Briefing{
		CampaignName:      c.Name,
		OfferRef:          c.OfferRef,
		Country:           c.Country,
		ApprovedContentID: c.ApprovedContentID,
		ArticleLink:       c.DirectLink,
	}
	task, err := o.store.DesignTaskForCampaign(ctx, c.ID)
	if err != nil {
		return briefing, fmt.Errorf("load design task: %w", err)
	}
	if task != nil {
		briefing.DesignLink = task.DeliveryLink
	}
	return briefing, nil
}

// launchPlatform creates the remote campaign when the row has none, then
// launches the ad. All failures are recorded on the platform row and folded
// into the returned result; nothing here fails the whole pass.
func (o *Orchestrator) launchPlatform(ctx context.Context, c *campaign.Campaign, row *campaign.Platform, creative adplatform.Creative, log *slog.Logger) PlatformResult {
	outcome := PlatformResult{Platform: row.Name}
	plog := log.With(logging.String(logging.FieldPlatform, row.Name))

	client, ok := o.platforms.Lookup(row.Name)
	if !ok {
		outcome.Error = fmt.Sprintf("platform %q not configured", row.Name)
		o.recordLaunchFailure(ctx, c.ID, row.Name, outcome.Error, plog)
		return outcome
	}

	remoteID := strings.TrimSpace(row.RemoteCampaignID)
	if remoteID == "" {
		var err error
		remoteID, err = o.ensureRemoteCampaign(ctx, c, row, client)
		if err != nil {
			outcome.Error = err.Error()
			o.recordLaunchFailure(ctx, c.ID, row.Name, outcome.Error, plog)
			return outcome
		}
	}
	outcome.RemoteID = remoteID

	launch, err := client.LaunchAd(ctx, remoteID, creative)
	if err != nil {
		outcome.Error = err.Error()
		o.recordLaunchFailure(ctx, c.ID, row.Name, outcome.Error, plog)
		return outcome
	}
	if !launch.Success {
		outcome.Error = launch.Error
		if outcome.Error == "" {
			outcome.Error = "platform reported launch failure"
		}
		o.recordLaunchFailure(ctx, c.ID, row.Name, outcome.Error, plog)
		return outcome
	}

	if err := o.store.SetPlatformLaunched(ctx, c.ID, row.Name); err != nil {
		plog.Error("record launch", logging.Error(err))
		outcome.Error = err.Error()
		return outcome
	}
	outcome.Success = true
	plog.Info("ad launched", logging.String("remote_campaign_id", remoteID))
	return outcome
}

// ensureRemoteCampaign returns the remote campaign id for one platform row,
// creating the remote campaign when needed. The primary platform reuses the
// id the approval poller already created. The id is persisted on the row
// before this function returns.
func (o *Orchestrator) ensureRemoteCampaign(ctx context.Context, c *campaign.Campaign, row *campaign.Platform, client adplatform.Client) (string, error) {
	if primary, ok := o.platforms.Primary(); ok && primary.Name() == client.Name() && strings.TrimSpace(c.RemoteCampaignID) != "" {
		if err := o.store.SetPlatformRemote(ctx, c.ID, row.Name, c.RemoteCampaignID); err != nil {
			return "", fmt.Errorf("record primary remote id: %w", err)
		}
		return c.RemoteCampaignID, nil
	}

	key := strings.TrimSpace(row.IdempotencyKey)
	if key == "" {
		key = uuid.NewString()
	}
	// The key and in-flight marker go to disk before the external call so a
	// retry resends the same creation instead of minting a duplicate.
	if err := o.store.SetPlatformCreating(ctx, c.ID, row.Name, key); err != nil {
		return "", fmt.Errorf("mark platform creating: %w", err)
	}

	remoteID, err := client.CreateCampaign(ctx, adplatform.CreateRequest{
		Name:              c.Name,
		OfferRef:          c.OfferRef,
		Country:           c.Country,
		ApprovedContentID: c.ApprovedContentID,
		IdempotencyKey:    key,
	})
	if err != nil {
		return "", fmt.Errorf("create remote campaign: %w", err)
	}
	if err := o.store.SetPlatformRemote(ctx, c.ID, row.Name, remoteID); err != nil {
		return "", fmt.Errorf("record remote id: %w", err)
	}
	return remoteID, nil
}

func (o *Orchestrator) recordLaunchFailure(ctx context.Context, campaignID int64, platform, message string, log *slog.Logger) {
	log.Warn("platform launch failed", logging.String("reason", message))
	if err := o.store.SetPlatformLaunchFailed(ctx, campaignID, platform, message); err != nil {
		log.Error("record launch failure", logging.Error(err))
	}
}

func landingURL(c *campaign.Campaign) string {
	if c.HasRealTrackingLink() {
		return c.TrackingLink
	}
	return c.DirectLink
}

func firstError(results []PlatformResult) string {
	for _, r := range results {
		if !r.Success && r.Error != "" {
			return fmt.Sprintf("%s: %s", r.Platform, r.Error)
		}
	}
	return "unknown"
}

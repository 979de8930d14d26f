package orchestrator_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"launchpro/internal/campaign"
	"launchpro/internal/orchestrator"
	"launchpro/internal/testsupport"
)

type fixture struct {
	store *campaign.Store
	alpha *testsupport.FakePlatform
	beta  *testsupport.FakePlatform
	gen   *testsupport.FakeGenerator
	orch  *orchestrator.Orchestrator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	f := &fixture{
		store: store,
		alpha: testsupport.NewFakePlatform("alpha"),
		beta:  testsupport.NewFakePlatform("beta"),
		gen:   &testsupport.FakeGenerator{},
	}
	registry := testsupport.NewRegistry(t, f.alpha, f.beta)
	f.orch = orchestrator.New(store, f.gen, registry, slog.Default())
	return f
}

func (f *fixture) claimedCampaign(t *testing.T) (*campaign.Campaign, []*campaign.Platform) {
	t.Helper()
	ctx := context.Background()
	c := testsupport.NewCampaign(t, f.store, campaign.NewCampaignParams{})
	c.Status = campaign.StatusGeneratingAI
	c.TrackingLink = "https://track.example/c/1"
	c.ApprovedContentID = "content-1"
	c.RemoteCampaignID = "remote-alpha"
	if err := f.store.Update(ctx, c); err != nil {
		t.Fatalf("Update: %v", err)
	}
	platforms, err := f.store.PlatformsFor(ctx, c.ID)
	if err != nil {
		t.Fatalf("PlatformsFor: %v", err)
	}
	return c, platforms
}

func TestRunLaunchesEveryPlatform(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c, platforms := f.claimedCampaign(t)

	result, err := f.orch.Run(ctx, c, platforms)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Launched != 2 || result.Failed != 0 {
		t.Fatalf("result = %+v", result)
	}
	if result.Creative.Copy == "" {
		t.Fatalf("creative missing from result")
	}
	if f.alpha.LaunchCount() != 1 || f.beta.LaunchCount() != 1 {
		t.Fatalf("launch counts alpha=%d beta=%d", f.alpha.LaunchCount(), f.beta.LaunchCount())
	}

	rows, err := f.store.PlatformsFor(ctx, c.ID)
	if err != nil {
		t.Fatalf("PlatformsFor: %v", err)
	}
	for _, row := range rows {
		if row.Status != campaign.PlatformLaunched {
			t.Fatalf("platform %s status = %s, want launched", row.Name, row.Status)
		}
		if row.RemoteCampaignID == "" {
			t.Fatalf("platform %s missing remote id", row.Name)
		}
	}
}

func TestRunPrimaryReusesRemoteCampaign(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c, platforms := f.claimedCampaign(t)

	if _, err := f.orch.Run(ctx, c, platforms); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if f.alpha.CreateCount() != 0 {
		t.Fatalf("primary create calls = %d, the id from approval must be reused", f.alpha.CreateCount())
	}
	if f.beta.CreateCount() != 1 {
		t.Fatalf("secondary create calls = %d, want 1", f.beta.CreateCount())
	}

	rows, err := f.store.PlatformsFor(ctx, c.ID)
	if err != nil {
		t.Fatalf("PlatformsFor: %v", err)
	}
	for _, row := range rows {
		if row.Name == "alpha" && row.RemoteCampaignID != "remote-alpha" {
			t.Fatalf("primary row remote id = %q, want remote-alpha", row.RemoteCampaignID)
		}
	}
}

func TestRunSecondaryCreateUsesPersistedKey(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c, platforms := f.claimedCampaign(t)

	if _, err := f.orch.Run(ctx, c, platforms); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(f.beta.Creates) != 1 {
		t.Fatalf("beta creates = %d", len(f.beta.Creates))
	}
	key := f.beta.Creates[0].IdempotencyKey
	if key == "" {
		t.Fatalf("secondary create must carry an idempotency key")
	}

	rows, err := f.store.PlatformsFor(ctx, c.ID)
	if err != nil {
		t.Fatalf("PlatformsFor: %v", err)
	}
	for _, row := range rows {
		if row.Name == "beta" && row.IdempotencyKey != key {
			t.Fatalf("persisted key %q, sent %q", row.IdempotencyKey, key)
		}
	}
}

func TestRunPartialLaunchIsSuccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c, platforms := f.claimedCampaign(t)
	f.beta.LaunchErr = errors.New("quota exceeded")

	result, err := f.orch.Run(ctx, c, platforms)
	if err != nil {
		t.Fatalf("partial launch must not error: %v", err)
	}
	if result.Launched != 1 || result.Failed != 1 {
		t.Fatalf("result = %+v", result)
	}

	rows, err := f.store.PlatformsFor(ctx, c.ID)
	if err != nil {
		t.Fatalf("PlatformsFor: %v", err)
	}
	for _, row := range rows {
		switch row.Name {
		case "alpha":
			if row.Status != campaign.PlatformLaunched {
				t.Fatalf("alpha status = %s", row.Status)
			}
		case "beta":
			if row.Status != campaign.PlatformLaunchFailed || row.ErrorMessage == "" {
				t.Fatalf("beta row = %+v", row)
			}
		}
	}
}

func TestRunAllLaunchesFailedReturnsStepError(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c, platforms := f.claimedCampaign(t)
	f.alpha.LaunchErr = errors.New("down")
	f.beta.LaunchErr = errors.New("down")

	_, err := f.orch.Run(ctx, c, platforms)
	if err == nil {
		t.Fatalf("expected error when no platform launches")
	}
	var stepErr *orchestrator.StepError
	if !errors.As(err, &stepErr) || stepErr.Step != "platform_launch" {
		t.Fatalf("err = %v, want platform_launch step error", err)
	}
}

func TestRunGenerationFailureReturnsStepError(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c, platforms := f.claimedCampaign(t)
	f.gen.Err = errors.New("model overloaded")

	_, err := f.orch.Run(ctx, c, platforms)
	if err == nil {
		t.Fatalf("expected generation error")
	}
	var stepErr *orchestrator.StepError
	if !errors.As(err, &stepErr) || stepErr.Step != "ai_generation" {
		t.Fatalf("err = %v, want ai_generation step error", err)
	}
	if f.alpha.LaunchCount() != 0 || f.beta.LaunchCount() != 0 {
		t.Fatalf("no platform may launch after a generation failure")
	}
}

func TestRunRejectsEmptyPlatformList(t *testing.T) {
	f := newFixture(t)
	c, _ := f.claimedCampaign(t)

	if _, err := f.orch.Run(context.Background(), c, nil); err == nil {
		t.Fatalf("expected error for empty platform list")
	}
	if _, err := f.orch.Run(context.Background(), nil, nil); err == nil {
		t.Fatalf("expected error for nil campaign")
	}
}

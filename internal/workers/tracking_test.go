package workers_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"launchpro/internal/campaign"
	"launchpro/internal/services/adplatform"
	"launchpro/internal/testsupport"
	"launchpro/internal/workers"
)

type trackingFixture struct {
	store    *campaign.Store
	alpha    *testsupport.FakePlatform
	notifier *testsupport.RecordingNotifier
	poller   *workers.TrackingLinkPoller
}

func newTrackingFixture(t *testing.T) *trackingFixture {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	f := &trackingFixture{
		store:    store,
		alpha:    testsupport.NewFakePlatform("alpha"),
		notifier: &testsupport.RecordingNotifier{},
	}
	registry := testsupport.NewRegistry(t, f.alpha)
	f.poller = workers.NewTrackingLinkPoller(store, registry, f.notifier, cfg, slog.Default())
	return f
}

func (f *trackingFixture) awaitingCampaign(t *testing.T, pollStart time.Time) *campaign.Campaign {
	t.Helper()
	ctx := context.Background()
	c := testsupport.NewCampaign(t, f.store, campaign.NewCampaignParams{Platforms: []string{"alpha"}})
	c.Status = campaign.StatusAwaitingTracking
	c.RemoteCampaignID = "remote-alpha"
	if err := f.store.Update(ctx, c); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if err := f.store.StartTrackingPoll(ctx, c.ID, pollStart); err != nil {
		t.Fatalf("StartTrackingPoll: %v", err)
	}
	fresh, err := f.store.GetByID(ctx, c.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	return fresh
}

func TestTrackingLinkRecorded(t *testing.T) {
	f := newTrackingFixture(t)
	ctx := context.Background()
	c := f.awaitingCampaign(t, time.Now().UTC())
	f.alpha.Status = adplatform.CampaignStatus{
		Status:       adplatform.RemoteActive,
		TrackingLink: "https://track.example/c/1",
		DirectLink:   "https://news.example/a/1",
	}

	summary, err := f.poller.RunOnce(ctx)
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if summary.Succeeded != 1 {
		t.Fatalf("summary = %+v", summary)
	}

	fresh, err := f.store.GetByID(ctx, c.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if fresh.Status != campaign.StatusArticleApproved {
		t.Fatalf("status = %s, want article_approved", fresh.Status)
	}
	if fresh.TrackingLink != "https://track.example/c/1" {
		t.Fatalf("tracking link = %q", fresh.TrackingLink)
	}
	if fresh.DirectLink != "https://news.example/a/1" {
		t.Fatalf("direct link = %q", fresh.DirectLink)
	}
	if fresh.TrackingPollAttempts != 1 {
		t.Fatalf("attempts = %d, want 1", fresh.TrackingPollAttempts)
	}
	if !hasEvent(auditEvents(t, f.store, c.ID), "tracking_link_recorded") {
		t.Fatalf("tracking_link_recorded audit entry missing")
	}
}

func TestTrackingTimeoutFailsCampaign(t *testing.T) {
	f := newTrackingFixture(t)
	ctx := context.Background()
	c := f.awaitingCampaign(t, time.Now().UTC().Add(-16*time.Minute))

	summary, err := f.poller.RunOnce(ctx)
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if summary.Failed != 1 {
		t.Fatalf("summary = %+v", summary)
	}

	fresh, err := f.store.GetByID(ctx, c.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if fresh.Status != campaign.StatusFailed {
		t.Fatalf("status = %s, want failed", fresh.Status)
	}
	if fresh.ErrorDetail == nil || fresh.ErrorDetail.Step != "tracking_link_timeout" {
		t.Fatalf("error detail = %+v", fresh.ErrorDetail)
	}
	if len(f.notifier.EventsNamed("tracking_timeout")) != 1 {
		t.Fatalf("timeout notification missing")
	}
}

func TestTrackingPlaceholderLinkKeepsWaiting(t *testing.T) {
	f := newTrackingFixture(t)
	ctx := context.Background()
	c := f.awaitingCampaign(t, time.Now().UTC())
	f.alpha.Status = adplatform.CampaignStatus{Status: adplatform.RemoteActive, TrackingLink: "pending"}

	summary, err := f.poller.RunOnce(ctx)
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if summary.Skipped != 1 {
		t.Fatalf("summary = %+v", summary)
	}

	fresh, err := f.store.GetByID(ctx, c.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if fresh.Status != campaign.StatusAwaitingTracking {
		t.Fatalf("status = %s, want awaiting_tracking", fresh.Status)
	}
	if fresh.TrackingPollAttempts != 1 {
		t.Fatalf("attempts = %d, want 1 persisted", fresh.TrackingPollAttempts)
	}
}

func TestTrackingInactiveRemoteKeepsWaiting(t *testing.T) {
	f := newTrackingFixture(t)
	ctx := context.Background()
	c := f.awaitingCampaign(t, time.Now().UTC())
	f.alpha.Status = adplatform.CampaignStatus{Status: "paused", TrackingLink: "https://track.example/c/1"}

	summary, err := f.poller.RunOnce(ctx)
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if summary.Skipped != 1 {
		t.Fatalf("a real link on a non-active remote must keep waiting, summary = %+v", summary)
	}

	fresh, err := f.store.GetByID(ctx, c.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if fresh.Status != campaign.StatusAwaitingTracking {
		t.Fatalf("status = %s, want awaiting_tracking", fresh.Status)
	}
}

func TestTrackingStatusErrorRetriesNextCycle(t *testing.T) {
	f := newTrackingFixture(t)
	ctx := context.Background()
	c := f.awaitingCampaign(t, time.Now().UTC())
	f.alpha.StatusErr = errors.New("platform unavailable")

	summary, err := f.poller.RunOnce(ctx)
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if summary.Skipped != 1 {
		t.Fatalf("summary = %+v", summary)
	}

	fresh, err := f.store.GetByID(ctx, c.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if fresh.Status != campaign.StatusAwaitingTracking {
		t.Fatalf("status = %s, want awaiting_tracking", fresh.Status)
	}
	if fresh.TrackingPollAttempts != 1 {
		t.Fatalf("attempts = %d, want 1", fresh.TrackingPollAttempts)
	}
}

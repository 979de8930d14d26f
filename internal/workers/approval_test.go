package workers_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"launchpro/internal/campaign"
	"launchpro/internal/services/approval"
	"launchpro/internal/testsupport"
	"launchpro/internal/workers"
)

type approvalFixture struct {
	store    *campaign.Store
	checker  *testsupport.FakeApproval
	alpha    *testsupport.FakePlatform
	beta     *testsupport.FakePlatform
	designs  *testsupport.FakeDesigns
	notifier *testsupport.RecordingNotifier
	poller   *workers.ArticleApprovalPoller
}

func newApprovalFixture(t *testing.T) *approvalFixture {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	f := &approvalFixture{
		store:    store,
		checker:  &testsupport.FakeApproval{Results: map[string]approval.Result{}},
		alpha:    testsupport.NewFakePlatform("alpha"),
		beta:     testsupport.NewFakePlatform("beta"),
		designs:  &testsupport.FakeDesigns{},
		notifier: &testsupport.RecordingNotifier{},
	}
	registry := testsupport.NewRegistry(t, f.alpha, f.beta)
	f.poller = workers.NewArticleApprovalPoller(store, f.checker, registry, f.designs, f.notifier, cfg, slog.Default())
	return f
}

func auditEvents(t *testing.T, store *campaign.Store, campaignID int64) []string {
	t.Helper()
	entries, err := store.AuditEntries(context.Background(), campaignID)
	if err != nil {
		t.Fatalf("AuditEntries: %v", err)
	}
	events := make([]string, len(entries))
	for i, entry := range entries {
		events[i] = entry.EventKind
	}
	return events
}

func hasEvent(events []string, kind string) bool {
	for _, event := range events {
		if event == kind {
			return true
		}
	}
	return false
}

func TestApprovalPublishedCreatesRemoteCampaign(t *testing.T) {
	f := newApprovalFixture(t)
	ctx := context.Background()
	c := testsupport.NewCampaign(t, f.store, campaign.NewCampaignParams{ArticleRequestID: "req-1"})
	f.checker.Results["req-1"] = approval.Result{Status: approval.StatusPublished, ApprovedContentID: "content-1"}
	f.alpha.Status.TrackingLink = "pending"
	f.alpha.Status.DirectLink = "https://news.example/a/1"

	summary, err := f.poller.RunOnce(ctx)
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if summary.Scanned != 1 || summary.Succeeded != 1 {
		t.Fatalf("summary = %+v", summary)
	}

	fresh, err := f.store.GetByID(ctx, c.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if fresh.Status != campaign.StatusAwaitingTracking {
		t.Fatalf("status = %s, want awaiting_tracking", fresh.Status)
	}
	if fresh.RemoteCampaignID != "remote-alpha" {
		t.Fatalf("remote campaign id = %q", fresh.RemoteCampaignID)
	}
	if fresh.ApprovedContentID != "content-1" {
		t.Fatalf("approved content id = %q", fresh.ApprovedContentID)
	}
	if fresh.RemoteCreationKey == "" || fresh.RemoteCreationStartedAt == nil {
		t.Fatalf("creation marker missing: key=%q started=%v", fresh.RemoteCreationKey, fresh.RemoteCreationStartedAt)
	}
	if fresh.TrackingPollStartedAt == nil || fresh.TrackingPollAttempts != 0 {
		t.Fatalf("tracking poll not armed: %+v", fresh)
	}
	if fresh.DirectLink != "https://news.example/a/1" {
		t.Fatalf("direct link = %q", fresh.DirectLink)
	}

	if f.alpha.CreateCount() != 1 {
		t.Fatalf("primary create calls = %d, want 1", f.alpha.CreateCount())
	}
	if f.beta.CreateCount() != 0 {
		t.Fatalf("secondary platform must not be created at approval time")
	}
	if key := f.alpha.Creates[0].IdempotencyKey; key != fresh.RemoteCreationKey {
		t.Fatalf("idempotency key sent %q, persisted %q", key, fresh.RemoteCreationKey)
	}

	platforms, err := f.store.PlatformsFor(ctx, c.ID)
	if err != nil {
		t.Fatalf("PlatformsFor: %v", err)
	}
	if platforms[0].Status != campaign.PlatformCreated || platforms[0].RemoteCampaignID != "remote-alpha" {
		t.Fatalf("primary platform row = %+v", platforms[0])
	}

	if !hasEvent(auditEvents(t, f.store, c.ID), "article_approved") {
		t.Fatalf("article_approved audit entry missing")
	}
}

func TestApprovalPublishedWithDesignRoutesToDesign(t *testing.T) {
	f := newApprovalFixture(t)
	ctx := context.Background()
	c := testsupport.NewCampaign(t, f.store, campaign.NewCampaignParams{ArticleRequestID: "req-d", NeedsDesign: true})
	f.checker.Results["req-d"] = approval.Result{Status: approval.StatusPublished, ApprovedContentID: "content-d"}
	f.designs.NextID = "task-99"

	if _, err := f.poller.RunOnce(ctx); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}

	fresh, err := f.store.GetByID(ctx, c.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if fresh.Status != campaign.StatusAwaitingDesign {
		t.Fatalf("status = %s, want awaiting_design", fresh.Status)
	}
	if fresh.TrackingPollStartedAt != nil {
		t.Fatalf("design path must not arm the tracking poll")
	}

	task, err := f.store.DesignTaskForCampaign(ctx, c.ID)
	if err != nil {
		t.Fatalf("DesignTaskForCampaign: %v", err)
	}
	if task == nil || task.ExternalID != "task-99" {
		t.Fatalf("design task = %+v", task)
	}
}

func TestApprovalRejectedFailsCampaign(t *testing.T) {
	f := newApprovalFixture(t)
	ctx := context.Background()
	c := testsupport.NewCampaign(t, f.store, campaign.NewCampaignParams{ArticleRequestID: "req-r"})
	f.checker.Results["req-r"] = approval.Result{Status: approval.StatusRejected, RejectionReason: "off brand"}

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
	if fresh.ErrorDetail == nil || fresh.ErrorDetail.Step != "article_rejected" {
		t.Fatalf("error detail = %+v", fresh.ErrorDetail)
	}
	if f.alpha.CreateCount() != 0 {
		t.Fatalf("rejected campaign must not create a remote campaign")
	}
	if len(f.notifier.EventsNamed("article_rejected")) != 1 {
		t.Fatalf("rejection notification missing")
	}
}

func TestApprovalPendingExpiresAfterDeadline(t *testing.T) {
	f := newApprovalFixture(t)
	ctx := context.Background()
	c := testsupport.NewCampaign(t, f.store, campaign.NewCampaignParams{ArticleRequestID: "req-slow"})

	f.poller.SetClock(func() time.Time { return time.Now().Add(25 * time.Hour) })
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
	if fresh.ErrorDetail == nil || fresh.ErrorDetail.Step != "approval_timeout" {
		t.Fatalf("error detail = %+v", fresh.ErrorDetail)
	}
	if len(f.notifier.EventsNamed("approval_timeout")) != 1 {
		t.Fatalf("timeout notification missing")
	}
}

func TestApprovalPendingWithinDeadlineSkips(t *testing.T) {
	f := newApprovalFixture(t)
	ctx := context.Background()
	c := testsupport.NewCampaign(t, f.store, campaign.NewCampaignParams{ArticleRequestID: "req-wait"})

	summary, err := f.poller.RunOnce(ctx)
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if summary.Skipped != 1 || summary.Failed != 0 {
		t.Fatalf("summary = %+v", summary)
	}

	fresh, err := f.store.GetByID(ctx, c.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if fresh.Status != campaign.StatusPendingArticle {
		t.Fatalf("status = %s, want pending_article", fresh.Status)
	}
}

func TestApprovalCreateRetryReusesIdempotencyKey(t *testing.T) {
	f := newApprovalFixture(t)
	ctx := context.Background()
	c := testsupport.NewCampaign(t, f.store, campaign.NewCampaignParams{ArticleRequestID: "req-flaky"})
	f.checker.Results["req-flaky"] = approval.Result{Status: approval.StatusPublished, ApprovedContentID: "content-f"}
	f.alpha.CreateErr = errors.New("platform unavailable")

	summary, err := f.poller.RunOnce(ctx)
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if summary.Skipped != 1 {
		t.Fatalf("create failure must skip for retry, summary = %+v", summary)
	}

	fresh, err := f.store.GetByID(ctx, c.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if fresh.Status != campaign.StatusPendingArticle {
		t.Fatalf("status = %s, want pending_article for retry", fresh.Status)
	}
	if fresh.RemoteCreationKey == "" {
		t.Fatalf("idempotency key must be persisted before the create call")
	}
	firstKey := fresh.RemoteCreationKey

	f.alpha.CreateErr = nil
	if _, err := f.poller.RunOnce(ctx); err != nil {
		t.Fatalf("RunOnce retry: %v", err)
	}
	if f.alpha.CreateCount() != 2 {
		t.Fatalf("create calls = %d, want 2", f.alpha.CreateCount())
	}
	if f.alpha.Creates[0].IdempotencyKey != firstKey || f.alpha.Creates[1].IdempotencyKey != firstKey {
		t.Fatalf("retry must resend the same idempotency key: %q vs %q",
			f.alpha.Creates[0].IdempotencyKey, f.alpha.Creates[1].IdempotencyKey)
	}

	fresh, err = f.store.GetByID(ctx, c.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if fresh.Status != campaign.StatusAwaitingTracking {
		t.Fatalf("status after retry = %s, want awaiting_tracking", fresh.Status)
	}
}

func TestApprovalDesignTaskFailureFailsCampaign(t *testing.T) {
	f := newApprovalFixture(t)
	ctx := context.Background()
	c := testsupport.NewCampaign(t, f.store, campaign.NewCampaignParams{ArticleRequestID: "req-dt", NeedsDesign: true})
	f.checker.Results["req-dt"] = approval.Result{Status: approval.StatusPublished, ApprovedContentID: "content-dt"}
	f.designs.CreateErr = errors.New("design service down")

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
	if fresh.ErrorDetail == nil || fresh.ErrorDetail.Step != "design_task" {
		t.Fatalf("error detail = %+v", fresh.ErrorDetail)
	}
	if len(f.notifier.EventsNamed("campaign_failed")) != 1 {
		t.Fatalf("failure notification missing")
	}
}

func TestApprovalCheckErrorSkipsUntilDeadline(t *testing.T) {
	f := newApprovalFixture(t)
	ctx := context.Background()
	c := testsupport.NewCampaign(t, f.store, campaign.NewCampaignParams{ArticleRequestID: "req-err"})
	f.checker.Err = errors.New("approval service unreachable")

	summary, err := f.poller.RunOnce(ctx)
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if summary.Skipped != 1 {
		t.Fatalf("summary = %+v", summary)
	}

	f.poller.SetClock(func() time.Time { return time.Now().Add(25 * time.Hour) })
	summary, err = f.poller.RunOnce(ctx)
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if summary.Failed != 1 {
		t.Fatalf("expired campaign with failing checker must fail, summary = %+v", summary)
	}

	fresh, err := f.store.GetByID(ctx, c.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if fresh.ErrorDetail == nil || fresh.ErrorDetail.Step != "approval_timeout" {
		t.Fatalf("error detail = %+v", fresh.ErrorDetail)
	}
	if len(f.notifier.EventsNamed("approval_timeout")) != 1 {
		t.Fatalf("timeout notification missing on the error path")
	}
}

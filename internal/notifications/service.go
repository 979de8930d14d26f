package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"launchpro/internal/config"
)

const userAgent = "LaunchPro-Go/0.1.0"

// Service defines the notification surface exposed to workers and the
// orchestrator.
type Service interface {
	NotifyCampaignLive(ctx context.Context, campaignName, trackingLink string) error
	NotifyCampaignFailed(ctx context.Context, campaignName, step, reason string) error
	NotifyPartialLaunch(ctx context.Context, campaignName string, launched, failed int) error
	NotifyArticleRejected(ctx context.Context, campaignName, reason string) error
	NotifyApprovalTimeout(ctx context.Context, campaignName string, age time.Duration) error
	NotifyTrackingTimeout(ctx context.Context, campaignName string, attempts int) error
	NotifyDesignReady(ctx context.Context, campaignName, deliveryLink string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		settings: cfg.Notifications,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	settings config.Notifications
}

func (n *ntfyService) NotifyCampaignLive(ctx context.Context, campaignName, trackingLink string) error {
	if !n.settings.CampaignLive {
		return nil
	}
	campaignName = strings.TrimSpace(campaignName)
	trackingLink = strings.TrimSpace(trackingLink)
	message := fmt.Sprintf("Campaign live: %s", campaignName)
	if trackingLink != "" {
		message = fmt.Sprintf("%s\nTracking: %s", message, trackingLink)
	}
	data := payload{
		title:    "LaunchPro - Campaign Live",
		message:  message,
		tags:     []string{"launchpro", "campaign", "live"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyCampaignFailed(ctx context.Context, campaignName, step, reason string) error {
	if !n.settings.CampaignFailed {
		return nil
	}
	campaignName = strings.TrimSpace(campaignName)
	step = strings.TrimSpace(step)
	reason = strings.TrimSpace(reason)
	if step == "" {
		step = "unknown"
	}
	if reason == "" {
		reason = "unknown"
	}
	data := payload{
		title:    "LaunchPro - Campaign Failed",
		message:  fmt.Sprintf("Campaign failed: %s\nStep: %s\nReason: %s", campaignName, step, reason),
		tags:     []string{"launchpro", "campaign", "failed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyPartialLaunch(ctx context.Context, campaignName string, launched, failed int) error {
	if !n.settings.CampaignFailed {
		return nil
	}
	campaignName = strings.TrimSpace(campaignName)
	data := payload{
		title:   "LaunchPro - Partial Launch",
		message: fmt.Sprintf("Campaign %s launched on %d platform(s), %d failed", campaignName, launched, failed),
		tags:    []string{"launchpro", "campaign", "partial"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyArticleRejected(ctx context.Context, campaignName, reason string) error {
	campaignName = strings.TrimSpace(campaignName)
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "no reason given"
	}
	data := payload{
		title:   "LaunchPro - Article Rejected",
		message: fmt.Sprintf("Article rejected for %s: %s", campaignName, reason),
		tags:    []string{"launchpro", "article", "rejected"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyApprovalTimeout(ctx context.Context, campaignName string, age time.Duration) error {
	campaignName = strings.TrimSpace(campaignName)
	age = age.Round(time.Minute)
	if age < 0 {
		age = 0
	}
	data := payload{
		title:   "LaunchPro - Approval Timeout",
		message: fmt.Sprintf("No approval decision for %s after %s", campaignName, age),
		tags:    []string{"launchpro", "approval", "timeout"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyTrackingTimeout(ctx context.Context, campaignName string, attempts int) error {
	campaignName = strings.TrimSpace(campaignName)
	data := payload{
		title:    "LaunchPro - Tracking Timeout",
		message:  fmt.Sprintf("Tracking link missing for %s after %d polls\nManual review required", campaignName, attempts),
		tags:     []string{"launchpro", "tracking", "timeout"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyDesignReady(ctx context.Context, campaignName, deliveryLink string) error {
	if !n.settings.DesignReady {
		return nil
	}
	campaignName = strings.TrimSpace(campaignName)
	deliveryLink = strings.TrimSpace(deliveryLink)
	message := fmt.Sprintf("Design delivered for %s", campaignName)
	if deliveryLink != "" {
		message = fmt.Sprintf("%s\nAssets: %s", message, deliveryLink)
	}
	data := payload{
		title:   "LaunchPro - Design Ready",
		message: message,
		tags:    []string{"launchpro", "design", "ready"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "LaunchPro - Test",
		message:  "Notification system test",
		tags:     []string{"launchpro", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyCampaignLive(context.Context, string, string) error         { return nil }
func (noopService) NotifyCampaignFailed(context.Context, string, string, string) error { return nil }
func (noopService) NotifyPartialLaunch(context.Context, string, int, int) error      { return nil }
func (noopService) NotifyArticleRejected(context.Context, string, string) error      { return nil }
func (noopService) NotifyApprovalTimeout(context.Context, string, time.Duration) error {
	return nil
}
func (noopService) NotifyTrackingTimeout(context.Context, string, int) error { return nil }
func (noopService) NotifyDesignReady(context.Context, string, string) error  { return nil }
func (noopService) TestNotification(context.Context) error                   { return nil }

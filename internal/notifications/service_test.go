package notifications_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"launchpro/internal/config"
	"launchpro/internal/notifications"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.NotifyCampaignLive(context.Background(), "Example Campaign", "https://track.example/c/1"); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	tests := []struct {
		name           string
		notify         func(svc notifications.Service) error
		expectTitle    string
		expectMessage  string
		expectTags     string
		expectPriority string
	}{
		{
			name: "campaign live",
			notify: func(svc notifications.Service) error {
				return svc.NotifyCampaignLive(context.Background(), "Summer Promo", "https://track.example/c/7")
			},
			expectTitle:    "LaunchPro - Campaign Live",
			expectMessage:  "Campaign live: Summer Promo\nTracking: https://track.example/c/7",
			expectTags:     "launchpro,campaign,live",
			expectPriority: "high",
		},
		{
			name: "campaign failed",
			notify: func(svc notifications.Service) error {
				return svc.NotifyCampaignFailed(context.Background(), "Summer Promo", "ai_generation", "generator unavailable")
			},
			expectTitle:    "LaunchPro - Campaign Failed",
			expectMessage:  "Campaign failed: Summer Promo\nStep: ai_generation\nReason: generator unavailable",
			expectTags:     "launchpro,campaign,failed",
			expectPriority: "high",
		},
		{
			name: "article rejected",
			notify: func(svc notifications.Service) error {
				return svc.NotifyArticleRejected(context.Background(), "Summer Promo", "claims not substantiated")
			},
			expectTitle:   "LaunchPro - Article Rejected",
			expectMessage: "Article rejected for Summer Promo: claims not substantiated",
			expectTags:    "launchpro,article,rejected",
		},
		{
			name: "tracking timeout",
			notify: func(svc notifications.Service) error {
				return svc.NotifyTrackingTimeout(context.Background(), "Summer Promo", 14)
			},
			expectTitle:    "LaunchPro - Tracking Timeout",
			expectMessage:  "Tracking link missing for Summer Promo after 14 polls\nManual review required",
			expectTags:     "launchpro,tracking,timeout",
			expectPriority: "high",
		},
		{
			name: "design ready",
			notify: func(svc notifications.Service) error {
				return svc.NotifyDesignReady(context.Background(), "Summer Promo", "https://assets.example/d/9")
			},
			expectTitle:   "LaunchPro - Design Ready",
			expectMessage: "Design delivered for Summer Promo\nAssets: https://assets.example/d/9",
			expectTags:    "launchpro,design,ready",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var captured struct {
				title    string
				tags     string
				priority string
				body     string
			}

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Fatalf("unexpected method: %s", r.Method)
				}
				captured.title = r.Header.Get("Title")
				captured.tags = r.Header.Get("Tags")
				captured.priority = r.Header.Get("Priority")
				body, err := io.ReadAll(r.Body)
				if err != nil {
					t.Fatalf("read body: %v", err)
				}
				captured.body = string(body)
				_ = r.Body.Close()
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			cfg := config.Default()
			cfg.Notifications.NtfyTopic = server.URL
			cfg.Notifications.RequestTimeout = 5
			cfg.Notifications.CampaignLive = true
			cfg.Notifications.CampaignFailed = true
			cfg.Notifications.DesignReady = true

			svc := notifications.NewService(&cfg)
			if err := tc.notify(svc); err != nil {
				t.Fatalf("notification returned error: %v", err)
			}

			if captured.title != tc.expectTitle {
				t.Fatalf("expected title %q, got %q", tc.expectTitle, captured.title)
			}
			if captured.body != tc.expectMessage {
				t.Fatalf("expected message %q, got %q", tc.expectMessage, captured.body)
			}
			if captured.tags != tc.expectTags {
				t.Fatalf("expected tags %q, got %q", tc.expectTags, captured.tags)
			}
			if captured.priority != tc.expectPriority {
				t.Fatalf("expected priority %q, got %q", tc.expectPriority, captured.priority)
			}
		})
	}
}

func TestNtfyServiceHonorsEventToggles(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("unexpected call for disabled event: %s", r.URL.String())
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.CampaignLive = false
	cfg.Notifications.CampaignFailed = false
	cfg.Notifications.DesignReady = false

	svc := notifications.NewService(&cfg)
	ctx := context.Background()
	if err := svc.NotifyCampaignLive(ctx, "Summer Promo", ""); err != nil {
		t.Fatalf("expected no error for disabled live event, got %v", err)
	}
	if err := svc.NotifyCampaignFailed(ctx, "Summer Promo", "launch", "boom"); err != nil {
		t.Fatalf("expected no error for disabled failure event, got %v", err)
	}
	if err := svc.NotifyDesignReady(ctx, "Summer Promo", ""); err != nil {
		t.Fatalf("expected no error for disabled design event, got %v", err)
	}
}

// Package adplatform defines the per-platform ad client contract, an HTTP
// implementation, and the registry the orchestrator resolves platforms from.
package adplatform

import "context"

// CreateRequest carries everything a platform needs to create the remote
// campaign. IdempotencyKey is persisted before the call so a crashed worker
// can resend the same creation instead of minting a duplicate.
type CreateRequest struct {
	Name              string
	OfferRef          string
	Country           string
	ApprovedContentID string
	IdempotencyKey    string
}

// CampaignStatus is the remote campaign state a platform reports.
type CampaignStatus struct {
	Status       string
	TrackingLink string
	DirectLink   string
}

// RemoteActive is the platform-side status value for a serving campaign.
const RemoteActive = "active"

// Creative is the launch payload assembled from generated content.
type Creative struct {
	Copy     string
	Keywords []string
	Images   []string
	Videos   []string
	LandingURL string
}

// LaunchResult is the outcome of one ad launch attempt.
type LaunchResult struct {
	Success bool
	Error   string
}

// Client is the contract one ad platform exposes to this core.
type Client interface {
	Name() string
	CreateCampaign(ctx context.Context, req CreateRequest) (string, error)
	GetCampaignStatus(ctx context.Context, remoteID string) (CampaignStatus, error)
	LaunchAd(ctx context.Context, remoteID string, creative Creative) (LaunchResult, error)
}

package testsupport

import (
	"context"
	"testing"

	"launchpro/internal/campaign"
	"launchpro/internal/config"
)

// MustOpenStore opens a campaign.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *campaign.Store {
	t.Helper()

	store, err := campaign.Open(cfg)
	if err != nil {
		t.Fatalf("campaign.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewCampaign creates a campaign for tests using the provided store.
func NewCampaign(t testing.TB, store *campaign.Store, params campaign.NewCampaignParams) *campaign.Campaign {
	t.Helper()

	if params.Name == "" {
		params.Name = "Test Campaign"
	}
	if len(params.Platforms) == 0 {
		params.Platforms = []string{"alpha", "beta"}
	}
	c, err := store.NewCampaign(context.Background(), params)
	if err != nil {
		t.Fatalf("store.NewCampaign: %v", err)
	}
	return c
}

// SetStatus force-moves a campaign to a status for test setup.
func SetStatus(t testing.TB, store *campaign.Store, c *campaign.Campaign, status campaign.Status) *campaign.Campaign {
	t.Helper()

	c.Status = status
	if err := store.Update(context.Background(), c); err != nil {
		t.Fatalf("store.Update: %v", err)
	}
	fresh, err := store.GetByID(context.Background(), c.ID)
	if err != nil {
		t.Fatalf("store.GetByID: %v", err)
	}
	return fresh
}

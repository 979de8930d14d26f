package campaign

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// PlatformsFor returns the platform rows for a campaign in insertion order.
func (s *Store) PlatformsFor(ctx context.Context, campaignID int64) ([]*Platform, error) {
	rows, err := s.db.QueryContext(
		ensureContext(ctx),
		`SELECT `+platformColumns+` FROM campaign_platforms WHERE campaign_id = ? ORDER BY id`,
		campaignID,
	)
	if err != nil {
		return nil, fmt.Errorf("query platforms: %w", err)
	}
	defer rows.Close()

	var platforms []*Platform
	for rows.Next() {
		p, err := scanPlatform(rows)
		if err != nil {
			return nil, err
		}
		platforms = append(platforms, p)
	}
	return platforms, rows.Err()
}

// SetPlatformCreating records the creation in-flight marker and idempotency
// key for one campaign+platform pair before the external create call.
func (s *Store) SetPlatformCreating(ctx context.Context, campaignID int64, platform, idempotencyKey string) error {
	if idempotencyKey == "" {
		return errors.New("idempotency key is required")
	}
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE campaign_platforms
         SET status = ?, idempotency_key = ?, updated_at = ?
         WHERE campaign_id = ? AND platform = ?`,
		PlatformCreating,
		idempotencyKey,
		time.Now().UTC().Format(time.RFC3339Nano),
		campaignID,
		platform,
	); err != nil {
		return fmt.Errorf("mark platform creating: %w", err)
	}
	return nil
}

// SetPlatformRemote persists the platform-issued remote campaign id. This is
// the critical side effect the processor inspects during post-failure
// recovery, so it is written the moment the id is known.
func (s *Store) SetPlatformRemote(ctx context.Context, campaignID int64, platform, remoteID string) error {
	if remoteID == "" {
		return errors.New("remote campaign id is required")
	}
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE campaign_platforms
         SET remote_campaign_id = ?, status = ?, error_message = NULL, updated_at = ?
         WHERE campaign_id = ? AND platform = ?`,
		remoteID,
		PlatformCreated,
		time.Now().UTC().Format(time.RFC3339Nano),
		campaignID,
		platform,
	); err != nil {
		return fmt.Errorf("record platform remote id: %w", err)
	}
	return nil
}

// SetPlatformLaunched marks one campaign+platform pair as live.
func (s *Store) SetPlatformLaunched(ctx context.Context, campaignID int64, platform string) error {
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE campaign_platforms
         SET status = ?, error_message = NULL, updated_at = ?
         WHERE campaign_id = ? AND platform = ?`,
		PlatformLaunched,
		time.Now().UTC().Format(time.RFC3339Nano),
		campaignID,
		platform,
	); err != nil {
		return fmt.Errorf("mark platform launched: %w", err)
	}
	return nil
}

// SetPlatformLaunchFailed records a launch failure message for manual
// follow-up without touching the remote campaign id.
func (s *Store) SetPlatformLaunchFailed(ctx context.Context, campaignID int64, platform, message string) error {
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE campaign_platforms
         SET status = ?, error_message = ?, updated_at = ?
         WHERE campaign_id = ? AND platform = ?`,
		PlatformLaunchFailed,
		nullableString(message),
		time.Now().UTC().Format(time.RFC3339Nano),
		campaignID,
		platform,
	); err != nil {
		return fmt.Errorf("mark platform launch failed: %w", err)
	}
	return nil
}

// HasRecordedLaunch reports whether any platform row shows a completed
// launch.
func (s *Store) HasRecordedLaunch(ctx context.Context, campaignID int64) (bool, error) {
	return s.platformExists(ctx,
		`SELECT 1 FROM campaign_platforms WHERE campaign_id = ? AND status = ? LIMIT 1`,
		campaignID, PlatformLaunched)
}

// HasAnyRemoteCampaign reports whether any platform row carries a remote
// campaign id, evidence that the external create side effect completed.
func (s *Store) HasAnyRemoteCampaign(ctx context.Context, campaignID int64) (bool, error) {
	return s.platformExists(ctx,
		`SELECT 1 FROM campaign_platforms WHERE campaign_id = ? AND remote_campaign_id IS NOT NULL AND remote_campaign_id != '' LIMIT 1`,
		campaignID)
}

func (s *Store) platformExists(ctx context.Context, query string, args ...any) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ensureContext(ctx), query, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("platform existence check: %w", err)
	}
	return true, nil
}

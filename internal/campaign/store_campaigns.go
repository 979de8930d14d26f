package campaign

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// NewCampaignParams describes a campaign created by the intake flow.
type NewCampaignParams struct {
	Name             string
	OfferRef         string
	Country          string
	ArticleRequestID string
	NeedsDesign      bool
	Platforms        []string
}

// NewCampaign inserts a campaign in the initial draft status along with one
// platform row per target platform.
func (s *Store) NewCampaign(ctx context.Context, params NewCampaignParams) (*Campaign, error) {
	if params.Name == "" {
		return nil, errors.New("campaign name is required")
	}
	if len(params.Platforms) == 0 {
		return nil, errors.New("at least one target platform is required")
	}
	ctx = ensureContext(ctx)
	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin intake tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(
		ctx,
		`INSERT INTO campaigns (
            name, offer_ref, country, status, needs_design, article_request_id,
            created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		params.Name,
		nullableString(params.OfferRef),
		nullableString(params.Country),
		StatusPendingArticle,
		boolToInt(params.NeedsDesign),
		nullableString(params.ArticleRequestID),
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert campaign: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	for _, platform := range params.Platforms {
		if _, err := tx.ExecContext(
			ctx,
			`INSERT INTO campaign_platforms (campaign_id, platform, status, updated_at)
             VALUES (?, ?, ?, ?)`,
			id, platform, PlatformPending, timestamp,
		); err != nil {
			return nil, fmt.Errorf("insert platform %s: %w", platform, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit intake: %w", err)
	}
	return s.GetByID(ctx, id)
}

// GetByID fetches a campaign by identifier.
func (s *Store) GetByID(ctx context.Context, id int64) (*Campaign, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+campaignColumns+` FROM campaigns WHERE id = ?`, id)
	c, err := scanCampaign(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get campaign: %w", err)
	}
	return c, nil
}

// Update persists changes to an existing campaign unconditionally. Workers use
// it only when transitioning out of a status they alone own; the claim path
// goes through ClaimForGeneration instead.
func (s *Store) Update(ctx context.Context, c *Campaign) error {
	if c == nil {
		return errors.New("campaign is nil")
	}
	c.UpdatedAt = time.Now().UTC()

	var errorJSON any
	if c.ErrorDetail != nil {
		raw, err := json.Marshal(c.ErrorDetail)
		if err != nil {
			return fmt.Errorf("marshal error detail: %w", err)
		}
		errorJSON = string(raw)
	}

	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE campaigns
         SET name = ?, offer_ref = ?, country = ?, status = ?, needs_design = ?,
             article_request_id = ?, approved_content_id = ?, remote_campaign_id = ?,
             remote_creation_key = ?, remote_creation_started_at = ?,
             tracking_link = ?, direct_link = ?, tracking_poll_started_at = ?,
             tracking_poll_attempts = ?, generation_retries = ?, error_json = ?,
             launched_at = ?, updated_at = ?
         WHERE id = ?`,
		c.Name,
		nullableString(c.OfferRef),
		nullableString(c.Country),
		c.Status,
		boolToInt(c.NeedsDesign),
		nullableString(c.ArticleRequestID),
		nullableString(c.ApprovedContentID),
		nullableString(c.RemoteCampaignID),
		nullableString(c.RemoteCreationKey),
		nullableTime(c.RemoteCreationStartedAt),
		nullableString(c.TrackingLink),
		nullableString(c.DirectLink),
		nullableTime(c.TrackingPollStartedAt),
		c.TrackingPollAttempts,
		c.GenerationRetries,
		errorJSON,
		nullableTime(c.LaunchedAt),
		c.UpdatedAt.Format(time.RFC3339Nano),
		c.ID,
	); err != nil {
		return fmt.Errorf("update campaign: %w", err)
	}
	return nil
}

// List returns campaigns filtered by status set, oldest first. With no status
// it returns everything.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Campaign, error) {
	ctx = ensureContext(ctx)
	var (
		rows *sql.Rows
		err  error
	)

	baseQuery := `SELECT ` + campaignColumns + ` FROM campaigns`
	orderClause := ` ORDER BY created_at`

	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(statuses))
		args := make([]any, len(statuses))
		for i, status := range statuses {
			args[i] = status
		}
		query := baseQuery + ` WHERE status IN (` + placeholders + `)` + orderClause
		rows, err = s.db.QueryContext(ctx, query, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list campaigns: %w", err)
	}
	defer rows.Close()

	return collectCampaigns(rows)
}

// PendingArticle returns pending_article campaigns that carry an article
// request reference. Campaigns without one belong to the intake flow and are
// never touched by the approval poller.
func (s *Store) PendingArticle(ctx context.Context) ([]*Campaign, error) {
	rows, err := s.db.QueryContext(
		ensureContext(ctx),
		`SELECT `+campaignColumns+` FROM campaigns
         WHERE status = ? AND article_request_id IS NOT NULL AND article_request_id != ''
         ORDER BY created_at`,
		StatusPendingArticle,
	)
	if err != nil {
		return nil, fmt.Errorf("query pending article: %w", err)
	}
	defer rows.Close()

	return collectCampaigns(rows)
}

// AwaitingTracking returns a batch of awaiting_tracking campaigns, oldest
// poll-start first.
func (s *Store) AwaitingTracking(ctx context.Context, limit int) ([]*Campaign, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(
		ensureContext(ctx),
		`SELECT `+campaignColumns+` FROM campaigns
         WHERE status = ?
         ORDER BY tracking_poll_started_at, id
         LIMIT ?`,
		StatusAwaitingTracking,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query awaiting tracking: %w", err)
	}
	defer rows.Close()

	return collectCampaigns(rows)
}

// ReadyForProcessing selects campaigns eligible for the processor: approved
// campaigns with a tracking link recorded, plus generating_ai campaigns not
// touched since stuckBefore (crash/timeout recovery). Campaigns that already
// have a recorded platform launch never qualify.
func (s *Store) ReadyForProcessing(ctx context.Context, limit int, stuckBefore time.Time) ([]*Campaign, error) {
	if limit <= 0 {
		limit = 3
	}
	rows, err := s.db.QueryContext(
		ensureContext(ctx),
		`SELECT `+campaignColumns+` FROM campaigns c
         WHERE (
             (c.status = ? AND c.tracking_link IS NOT NULL AND c.tracking_link != '')
             OR (c.status = ? AND c.updated_at < ?)
         )
         AND NOT EXISTS (
             SELECT 1 FROM campaign_platforms p
             WHERE p.campaign_id = c.id AND p.status = ?
         )
         ORDER BY c.created_at
         LIMIT ?`,
		StatusArticleApproved,
		StatusGeneratingAI,
		stuckBefore.UTC().Format(time.RFC3339Nano),
		PlatformLaunched,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query ready campaigns: %w", err)
	}
	defer rows.Close()

	return collectCampaigns(rows)
}

// StartTrackingPoll records the tracking-poll start timestamp and resets the
// attempt counter together, preserving the pairing invariant.
func (s *Store) StartTrackingPoll(ctx context.Context, id int64, now time.Time) error {
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE campaigns
         SET tracking_poll_started_at = ?, tracking_poll_attempts = 0, updated_at = ?
         WHERE id = ?`,
		now.UTC().Format(time.RFC3339Nano),
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
	); err != nil {
		return fmt.Errorf("start tracking poll: %w", err)
	}
	return nil
}

// MarkRemoteCreationStarted persists the creation in-flight marker and its
// idempotency key before the external create call, so a crashed poller leaves
// enough evidence for a later invocation to resend instead of duplicating.
func (s *Store) MarkRemoteCreationStarted(ctx context.Context, id int64, key string, now time.Time) error {
	if key == "" {
		return errors.New("idempotency key is required")
	}
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE campaigns
         SET remote_creation_key = ?, remote_creation_started_at = ?, updated_at = ?
         WHERE id = ?`,
		key,
		now.UTC().Format(time.RFC3339Nano),
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
	); err != nil {
		return fmt.Errorf("mark remote creation started: %w", err)
	}
	return nil
}

// Health returns aggregated campaign counts per lifecycle bucket.
func (s *Store) Health(ctx context.Context) (HealthSummary, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), `SELECT status, COUNT(1) FROM campaigns GROUP BY status`)
	if err != nil {
		return HealthSummary{}, fmt.Errorf("query health: %w", err)
	}
	defer rows.Close()

	var summary HealthSummary
	for rows.Next() {
		var statusStr string
		var count int
		if err := rows.Scan(&statusStr, &count); err != nil {
			return HealthSummary{}, fmt.Errorf("scan health row: %w", err)
		}
		summary.Total += count
		switch Status(statusStr) {
		case StatusPendingArticle:
			summary.Pending += count
		case StatusGeneratingAI:
			summary.Generating += count
		case StatusActive:
			summary.Active += count
		case StatusFailed:
			summary.Failed += count
		default:
			summary.InFlight += count
		}
	}
	return summary, rows.Err()
}

func collectCampaigns(rows *sql.Rows) ([]*Campaign, error) {
	var campaigns []*Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		campaigns = append(campaigns, c)
	}
	return campaigns, rows.Err()
}

package campaign

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"
)

const campaignColumns = "id, name, offer_ref, country, status, needs_design, article_request_id, approved_content_id, remote_campaign_id, remote_creation_key, remote_creation_started_at, tracking_link, direct_link, tracking_poll_started_at, tracking_poll_attempts, generation_retries, error_json, launched_at, created_at, updated_at"

func scanCampaign(scanner interface{ Scan(dest ...any) error }) (*Campaign, error) {
	var (
		id                 int64
		name               sql.NullString
		offerRef           sql.NullString
		country            sql.NullString
		statusStr          string
		needsDesign        sql.NullInt64
		articleRequestID   sql.NullString
		approvedContentID  sql.NullString
		remoteCampaignID   sql.NullString
		remoteCreationKey  sql.NullString
		remoteCreatedRaw   sql.NullString
		trackingLink       sql.NullString
		directLink         sql.NullString
		trackingStartedRaw sql.NullString
		trackingAttempts   sql.NullInt64
		generationRetries  sql.NullInt64
		errorJSON          sql.NullString
		launchedRaw        sql.NullString
		createdRaw         sql.NullString
		updatedRaw         sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&name,
		&offerRef,
		&country,
		&statusStr,
		&needsDesign,
		&articleRequestID,
		&approvedContentID,
		&remoteCampaignID,
		&remoteCreationKey,
		&remoteCreatedRaw,
		&trackingLink,
		&directLink,
		&trackingStartedRaw,
		&trackingAttempts,
		&generationRetries,
		&errorJSON,
		&launchedRaw,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	c := &Campaign{
		ID:                id,
		Name:              name.String,
		OfferRef:          offerRef.String,
		Country:           country.String,
		Status:            Status(statusStr),
		ArticleRequestID:  articleRequestID.String,
		ApprovedContentID: approvedContentID.String,
		RemoteCampaignID:  remoteCampaignID.String,
		RemoteCreationKey: remoteCreationKey.String,
		TrackingLink:      trackingLink.String,
		DirectLink:        directLink.String,
	}
	if needsDesign.Valid {
		c.NeedsDesign = needsDesign.Int64 != 0
	}
	if trackingAttempts.Valid {
		c.TrackingPollAttempts = int(trackingAttempts.Int64)
	}
	if generationRetries.Valid {
		c.GenerationRetries = int(generationRetries.Int64)
	}
	if errorJSON.Valid && errorJSON.String != "" {
		var detail ErrorDetail
		if err := json.Unmarshal([]byte(errorJSON.String), &detail); err == nil {
			c.ErrorDetail = &detail
		}
	}

	if created, err := parseTimeString(createdRaw.String); err == nil {
		c.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		c.UpdatedAt = updated
	}
	c.RemoteCreationStartedAt = parseOptionalTime(remoteCreatedRaw)
	c.TrackingPollStartedAt = parseOptionalTime(trackingStartedRaw)
	c.LaunchedAt = parseOptionalTime(launchedRaw)
	return c, nil
}

const platformColumns = "id, campaign_id, platform, remote_campaign_id, status, idempotency_key, error_message, updated_at"

func scanPlatform(scanner interface{ Scan(dest ...any) error }) (*Platform, error) {
	var (
		id             int64
		campaignID     int64
		platformName   string
		remoteID       sql.NullString
		statusStr      string
		idempotencyKey sql.NullString
		errorMessage   sql.NullString
		updatedRaw     sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&campaignID,
		&platformName,
		&remoteID,
		&statusStr,
		&idempotencyKey,
		&errorMessage,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	p := &Platform{
		ID:               id,
		CampaignID:       campaignID,
		Name:             platformName,
		RemoteCampaignID: remoteID.String,
		Status:           PlatformStatus(statusStr),
		IdempotencyKey:   idempotencyKey.String,
		ErrorMessage:     errorMessage.String,
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		p.UpdatedAt = updated
	}
	return p, nil
}

func parseOptionalTime(value sql.NullString) *time.Time {
	if !value.Valid || value.String == "" {
		return nil
	}
	t, err := parseTimeString(value.String)
	if err != nil {
		return nil
	}
	return &t
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return value.UTC().Format(time.RFC3339Nano)
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}

package campaign

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const auditColumns = "id, campaign_id, event_kind, component, from_status, to_status, message, detail_json, is_error, duration_ms, created_at"

// AppendAudit writes one immutable audit entry. Entries are never mutated or
// deleted by this core.
func (s *Store) AppendAudit(ctx context.Context, entry AuditEntry) error {
	if entry.CampaignID == 0 {
		return errors.New("audit entry requires a campaign id")
	}
	if entry.EventKind == "" {
		return errors.New("audit entry requires an event kind")
	}
	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	if err := s.execWithoutResultRetry(
		ctx,
		`INSERT INTO audit_log (
            campaign_id, event_kind, component, from_status, to_status,
            message, detail_json, is_error, duration_ms, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.CampaignID,
		entry.EventKind,
		entry.Component,
		nullableString(string(entry.FromStatus)),
		nullableString(string(entry.ToStatus)),
		nullableString(entry.Message),
		nullableString(entry.DetailJSON),
		boolToInt(entry.IsError),
		entry.Duration.Milliseconds(),
		createdAt.Format(time.RFC3339Nano),
	); err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}

// AuditEntries returns the time-ordered trail for one campaign.
func (s *Store) AuditEntries(ctx context.Context, campaignID int64) ([]*AuditEntry, error) {
	rows, err := s.db.QueryContext(
		ensureContext(ctx),
		`SELECT `+auditColumns+` FROM audit_log WHERE campaign_id = ? ORDER BY id`,
		campaignID,
	)
	if err != nil {
		return nil, fmt.Errorf("query audit trail: %w", err)
	}
	defer rows.Close()

	var entries []*AuditEntry
	for rows.Next() {
		entry, err := scanAuditEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func scanAuditEntry(scanner interface{ Scan(dest ...any) error }) (*AuditEntry, error) {
	var (
		id         int64
		campaignID int64
		eventKind  string
		component  sql.NullString
		fromStatus sql.NullString
		toStatus   sql.NullString
		message    sql.NullString
		detailJSON sql.NullString
		isError    sql.NullInt64
		durationMS sql.NullInt64
		createdRaw sql.NullString
	)
	if err := scanner.Scan(
		&id,
		&campaignID,
		&eventKind,
		&component,
		&fromStatus,
		&toStatus,
		&message,
		&detailJSON,
		&isError,
		&durationMS,
		&createdRaw,
	); err != nil {
		return nil, err
	}
	entry := &AuditEntry{
		ID:         id,
		CampaignID: campaignID,
		EventKind:  eventKind,
		Component:  component.String,
		FromStatus: Status(fromStatus.String),
		ToStatus:   Status(toStatus.String),
		Message:    message.String,
		DetailJSON: detailJSON.String,
	}
	if isError.Valid {
		entry.IsError = isError.Int64 != 0
	}
	if durationMS.Valid {
		entry.Duration = time.Duration(durationMS.Int64) * time.Millisecond
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		entry.CreatedAt = created
	}
	return entry, nil
}

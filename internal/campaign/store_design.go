package campaign

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const designColumns = "id, campaign_id, external_id, status, delivery_link, created_at, updated_at"

// NewDesignTask creates the 1:1 companion record for a campaign that needs
// custom creative.
func (s *Store) NewDesignTask(ctx context.Context, campaignID int64, externalID string) (*DesignTask, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO design_tasks (campaign_id, external_id, status, created_at, updated_at)
         VALUES (?, ?, 'open', ?, ?)`,
		campaignID,
		nullableString(externalID),
		now,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert design task: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.designTaskByID(ctx, id)
}

// DesignTaskForCampaign returns the companion design task, or nil when the
// campaign has none.
func (s *Store) DesignTaskForCampaign(ctx context.Context, campaignID int64) (*DesignTask, error) {
	row := s.db.QueryRowContext(
		ensureContext(ctx),
		`SELECT `+designColumns+` FROM design_tasks WHERE campaign_id = ?`,
		campaignID,
	)
	task, err := scanDesignTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get design task: %w", err)
	}
	return task, nil
}

// UpdateDesignTask persists external status and delivery link changes.
func (s *Store) UpdateDesignTask(ctx context.Context, task *DesignTask) error {
	if task == nil {
		return errors.New("design task is nil")
	}
	task.UpdatedAt = time.Now().UTC()
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE design_tasks
         SET external_id = ?, status = ?, delivery_link = ?, updated_at = ?
         WHERE id = ?`,
		nullableString(task.ExternalID),
		task.Status,
		nullableString(task.DeliveryLink),
		task.UpdatedAt.Format(time.RFC3339Nano),
		task.ID,
	); err != nil {
		return fmt.Errorf("update design task: %w", err)
	}
	return nil
}

func (s *Store) designTaskByID(ctx context.Context, id int64) (*DesignTask, error) {
	row := s.db.QueryRowContext(
		ensureContext(ctx),
		`SELECT `+designColumns+` FROM design_tasks WHERE id = ?`,
		id,
	)
	task, err := scanDesignTask(row)
	if err != nil {
		return nil, fmt.Errorf("get design task: %w", err)
	}
	return task, nil
}

func scanDesignTask(scanner interface{ Scan(dest ...any) error }) (*DesignTask, error) {
	var (
		id           int64
		campaignID   int64
		externalID   sql.NullString
		status       string
		deliveryLink sql.NullString
		createdRaw   sql.NullString
		updatedRaw   sql.NullString
	)
	if err := scanner.Scan(&id, &campaignID, &externalID, &status, &deliveryLink, &createdRaw, &updatedRaw); err != nil {
		return nil, err
	}
	task := &DesignTask{
		ID:           id,
		CampaignID:   campaignID,
		ExternalID:   externalID.String,
		Status:       status,
		DeliveryLink: deliveryLink.String,
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		task.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		task.UpdatedAt = updated
	}
	return task, nil
}

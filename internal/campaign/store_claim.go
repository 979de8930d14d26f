package campaign

import (
	"context"
	"fmt"
	"time"
)

// ClaimForGeneration attempts the exclusive claim that grants one worker
// invocation the right to process a campaign. It is a single atomic
// compare-and-set: the status moves to generating_ai only when the stored
// status and updated_at still equal the values read at selection time. The
// updated_at guard keeps reclaims of stuck generating_ai rows exclusive too,
// since the winner rewrites the timestamp. Zero rows affected means another
// worker won the claim. No other code path may ever set generating_ai.
func (s *Store) ClaimForGeneration(ctx context.Context, id int64, expected Status, observedUpdatedAt time.Time) (bool, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE campaigns SET status = ?, updated_at = ? WHERE id = ? AND status = ? AND updated_at = ?`,
		StatusGeneratingAI,
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
		expected,
		observedUpdatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return false, fmt.Errorf("claim campaign %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claim rows affected: %w", err)
	}
	return affected == 1, nil
}

// BumpGenerationRetries increments the first-class retry counter for a
// campaign reclaimed from a stuck generating_ai state.
func (s *Store) BumpGenerationRetries(ctx context.Context, id int64) (int, error) {
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE campaigns SET generation_retries = generation_retries + 1, updated_at = ? WHERE id = ?`,
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
	); err != nil {
		return 0, fmt.Errorf("bump generation retries: %w", err)
	}
	var retries int
	if err := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT generation_retries FROM campaigns WHERE id = ?`, id,
	).Scan(&retries); err != nil {
		return 0, fmt.Errorf("read generation retries: %w", err)
	}
	return retries, nil
}

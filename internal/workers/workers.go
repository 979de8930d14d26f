package workers

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"launchpro/internal/campaign"
	"launchpro/internal/logging"
)

// Summary aggregates one worker invocation. Per-item failures never cross the
// worker boundary; they surface here as counts.
type Summary struct {
	Worker    string
	BatchID   string
	Scanned   int
	Succeeded int
	Failed    int
	Skipped   int
	Duration  time.Duration
}

// auditTransition appends one audit entry for a worker-driven transition.
// Transitions outside the state machine's edge set are still recorded, loudly,
// so the trail exposes bugs instead of hiding them.
func auditTransition(ctx context.Context, store *campaign.Store, logger *slog.Logger, entry campaign.AuditEntry) {
	if entry.FromStatus != "" && entry.ToStatus != "" && entry.FromStatus != entry.ToStatus {
		if !campaign.CanTransition(entry.FromStatus, entry.ToStatus) {
			logger.Error("transition outside state machine",
				logging.Int64(logging.FieldCampaignID, entry.CampaignID),
				logging.String("from", string(entry.FromStatus)),
				logging.String("to", string(entry.ToStatus)))
		}
	}
	if err := store.AppendAudit(ctx, entry); err != nil {
		logger.Error("append audit entry",
			logging.Int64(logging.FieldCampaignID, entry.CampaignID),
			logging.Error(err))
	}
}

// detailJSON encodes structured audit detail, returning empty on failure so a
// marshal problem never blocks a transition.
func detailJSON(detail map[string]any) string {
	if len(detail) == 0 {
		return ""
	}
	raw, err := json.Marshal(detail)
	if err != nil {
		return ""
	}
	return string(raw)
}

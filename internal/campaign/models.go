package campaign

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a campaign.
type Status string

const (
	StatusPendingArticle   Status = "pending_article"
	StatusArticleApproved  Status = "article_approved"
	StatusAwaitingDesign   Status = "awaiting_design"
	StatusAwaitingTracking Status = "awaiting_tracking"
	StatusGeneratingAI     Status = "generating_ai"
	StatusActive           Status = "active"
	StatusFailed           Status = "failed"
)

var allStatuses = []Status{
	StatusPendingArticle,
	StatusArticleApproved,
	StatusAwaitingDesign,
	StatusAwaitingTracking,
	StatusGeneratingAI,
	StatusActive,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether a status admits no further automatic transition.
func (s Status) IsTerminal() bool {
	return s == StatusActive || s == StatusFailed
}

// PlatformStatus tracks the launch lifecycle of one campaign+platform pair.
type PlatformStatus string

const (
	PlatformPending      PlatformStatus = "pending"
	PlatformCreating     PlatformStatus = "creating"
	PlatformCreated      PlatformStatus = "created"
	PlatformLaunched     PlatformStatus = "launched"
	PlatformLaunchFailed PlatformStatus = "launch_failed"
)

// ErrorDetail is the structured error payload persisted on a failed or
// retry-pending campaign. It is cleared whenever the campaign re-enters a
// healthy non-terminal status.
type ErrorDetail struct {
	Step             string    `json:"step"`
	Message          string    `json:"message"`
	Timestamp        time.Time `json:"timestamp"`
	TechnicalDetails string    `json:"technical_details,omitempty"`
}

// Campaign is the unit of work progressing from content approval through AI
// generation to live deployment.
type Campaign struct {
	ID                      int64
	Name                    string
	OfferRef                string
	Country                 string
	Status                  Status
	NeedsDesign             bool
	ArticleRequestID        string
	ApprovedContentID       string
	RemoteCampaignID        string
	RemoteCreationKey       string
	RemoteCreationStartedAt *time.Time
	TrackingLink            string
	DirectLink              string
	TrackingPollStartedAt   *time.Time
	TrackingPollAttempts    int
	GenerationRetries       int
	ErrorDetail             *ErrorDetail
	LaunchedAt              *time.Time
	CreatedAt               time.Time
	UpdatedAt               time.Time
}

// Platform is one row per target ad platform, child of a campaign. Created at
// intake, mutated only during launch.
type Platform struct {
	ID               int64
	CampaignID       int64
	Name             string
	RemoteCampaignID string
	Status           PlatformStatus
	IdempotencyKey   string
	ErrorMessage     string
	UpdatedAt        time.Time
}

// DesignTask tracks an external creative-production ticket for campaigns
// flagged as needing custom creative.
type DesignTask struct {
	ID           int64
	CampaignID   int64
	ExternalID   string
	Status       string
	DeliveryLink string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// DesignTaskCompleted is the external status value that marks a creative
// ticket as delivered.
const DesignTaskCompleted = "completed"

// trackingPlaceholders are link values platforms return before the real
// tracking URL materializes.
var trackingPlaceholders = []string{"pending", "placeholder", "n/a"}

// IsRealTrackingLink reports whether a link is a confirmed tracking URL
// rather than an empty or placeholder value.
func IsRealTrackingLink(link string) bool {
	trimmed := strings.ToLower(strings.TrimSpace(link))
	if trimmed == "" {
		return false
	}
	for _, placeholder := range trackingPlaceholders {
		if trimmed == placeholder || strings.Contains(trimmed, "{"+placeholder+"}") {
			return false
		}
	}
	return strings.HasPrefix(trimmed, "http://") || strings.HasPrefix(trimmed, "https://")
}

// HasRealTrackingLink reports whether the campaign carries a confirmed
// tracking URL.
func (c *Campaign) HasRealTrackingLink() bool {
	return c != nil && IsRealTrackingLink(c.TrackingLink)
}

// SetFailure records the structured error payload for a terminal or
// retry-pending failure.
func (c *Campaign) SetFailure(step, message, technical string, now time.Time) {
	c.Status = StatusFailed
	c.ErrorDetail = &ErrorDetail{
		Step:             step,
		Message:          message,
		Timestamp:        now.UTC(),
		TechnicalDetails: truncateDetail(technical),
	}
}

// ClearFailure removes the error payload on successful re-entry to a healthy
// status.
func (c *Campaign) ClearFailure() {
	c.ErrorDetail = nil
}

const maxTechnicalDetail = 500

func truncateDetail(detail string) string {
	detail = strings.TrimSpace(detail)
	if len(detail) <= maxTechnicalDetail {
		return detail
	}
	return detail[:maxTechnicalDetail]
}

// HealthSummary describes aggregated campaign counts per lifecycle bucket.
type HealthSummary struct {
	Total      int
	Pending    int
	InFlight   int
	Generating int
	Active     int
	Failed     int
}

// AuditEntry is one append-only record of a worker-driven transition.
type AuditEntry struct {
	ID         int64
	CampaignID int64
	EventKind  string
	Component  string
	FromStatus Status
	ToStatus   Status
	Message    string
	DetailJSON string
	IsError    bool
	Duration   time.Duration
	CreatedAt  time.Time
}

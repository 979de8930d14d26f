package workers

import "time"

// Time guards are pure functions of (now, recorded timestamp, threshold) so
// tests inject now instead of mocking a clock.

// ApprovalExpired reports whether a pending article has waited past the
// approval deadline.
func ApprovalExpired(now, createdAt time.Time, maxAge time.Duration) bool {
	if maxAge <= 0 || createdAt.IsZero() {
		return false
	}
	return now.Sub(createdAt) > maxAge
}

// TrackingExpired reports whether a campaign has waited past the tracking-link
// deadline. A campaign with no recorded poll start never expires.
func TrackingExpired(now time.Time, pollStartedAt *time.Time, timeout time.Duration) bool {
	if timeout <= 0 || pollStartedAt == nil || pollStartedAt.IsZero() {
		return false
	}
	return now.Sub(*pollStartedAt) > timeout
}

// GenerationStuck reports whether a generating_ai campaign has gone untouched
// long enough to be reclaimed.
func GenerationStuck(now, updatedAt time.Time, threshold time.Duration) bool {
	if threshold <= 0 || updatedAt.IsZero() {
		return false
	}
	return now.Sub(updatedAt) > threshold
}

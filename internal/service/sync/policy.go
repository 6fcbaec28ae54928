package sync

import "time"

// ShouldRefreshToken reports whether the access token is old enough to
// refresh. Fail-open: a missing timestamp means refresh.
func ShouldRefreshToken(tokenUpdatedAt time.Time, threshold time.Duration) bool {
	if tokenUpdatedAt.IsZero() {
		return true
	}
	return time.Since(tokenUpdatedAt) >= threshold
}

// ShouldSync reports whether the merchant's data is due for a sync.
// Fail-open: never-synced merchants always sync.
func ShouldSync(lastSyncAt *time.Time, threshold time.Duration) bool {
	if lastSyncAt == nil || lastSyncAt.IsZero() {
		return true
	}
	return time.Since(*lastSyncAt) >= threshold
}

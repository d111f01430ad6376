package common

import "time"

// FreshnessQuote is how long a cached quote is treated as current.
const FreshnessQuote = 24 * time.Hour

// IsFresh returns true if the given timestamp is within the TTL
func IsFresh(updated time.Time, ttl time.Duration) bool {
	if updated.IsZero() {
		return false
	}
	return time.Since(updated) < ttl
}

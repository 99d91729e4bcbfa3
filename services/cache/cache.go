package cache

import (
	"time"
)

// CacheService represents a generic cache service.
// The pipeline uses it for per-host fetch-block keys: when the target
// site answers 429 a block key is set and fetching pauses until it
// expires.
type CacheService interface {
	// Get retrieves a value from the cache
	Get(key string) ([]byte, error)

	// Set stores a value in the cache with an expiration time
	Set(key string, value []byte, expiration time.Duration) error

	// Delete removes a value from the cache
	Delete(key string) error
}

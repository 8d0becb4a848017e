// Package cache stores upstream responses under a request-derived key, each
// entry expiring after a fixed time-to-live.
package cache

import (
	"context"
	"time"

	"github.com/hskang9/turbo-s/internal/model"
)

// Store is a concurrently accessible key/value store with per-entry expiry.
//
// Implementations must be safe for concurrent use. Get never returns an entry
// whose TTL has elapsed. Set replaces any prior entry for the key.
// Returned responses are shared and must be treated as read-only.
type Store interface {
	Get(ctx context.Context, key string) (*model.CachedResponse, bool, error)
	Set(ctx context.Context, key string, resp *model.CachedResponse, ttl time.Duration) error
}

// Package cache provides byte-level key/value caching for registry metadata.
//
// A [Cache] stores opaque bytes with an optional TTL. Backends:
//
//   - [FileCache]: one JSON file per entry under a directory (CLI default)
//   - [NullCache]: never stores anything
//   - [Scoped]: prefixes every key of another cache
//   - rediscache.Cache and mongocache.Cache in the subpackages, for shared
//     deployments of the HTTP server
//
// Callers that cache structured values marshal them themselves; see
// httputil.Client.Cached.
package cache

import (
	"context"
	"time"
)

// Cache is a key/value store with per-entry expiry.
//
// Get reports a miss as (nil, false, nil); expired entries are misses.
// A ttl of 0 means the entry never expires. Implementations must be safe
// for concurrent use.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

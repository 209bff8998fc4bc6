// Package cache memoizes derived per-document data between runs.
//
// The styling pass itself is stateless. The only thing worth keeping across
// runs is geometry derived from path data (region bounding boxes used to
// place labels), which is expensive to recompute for detailed maps and
// depends only on the document bytes. Entries are therefore keyed by the
// document content hash, so a changed map never sees stale geometry.
//
// Three backends are provided:
//   - [NullCache]: caching disabled
//   - [FileCache]: JSON entries under a directory (CLI default)
//   - [RedisCache]: shared cache for batch jobs rendering many maps
package cache

import (
	"context"
	"time"
)

// DefaultTTL is how long geometry entries stay valid.
const DefaultTTL = 30 * 24 * time.Hour

// Cache stores opaque byte values under string keys.
type Cache interface {
	// Get returns the value for key and whether it was found.
	// Expired or corrupt entries are reported as misses.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores data under key. A ttl of zero means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Close releases backend resources.
	Close() error
}

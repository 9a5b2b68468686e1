// Package cache defines the TTL cache collaborator for fetch results.
//
// The cache is external to the fetch core: the fetcher stays a pure
// function of its query and never depends on cache presence for
// correctness. Entries are (value, insertion time) pairs expired by TTL.
package cache

import (
	"context"
	"time"
)

type Interface interface {
	// Get returns the value and whether a live (non-expired) entry exists.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	// DelPrefix removes every key under a prefix; invalidation events are
	// scoped to a zone, not to exact keys.
	DelPrefix(ctx context.Context, prefix string) (int, error)
}

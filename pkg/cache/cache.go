// Package cache stores remote image probe results.
//
// Probing an image costs a network round trip, and the same avatar URL tends
// to show up on many cards. Backends:
//
//   - [NullCache]: stores nothing (default)
//   - [FileCache]: one JSON file per key, for the CLI
//   - [RedisCache]: shared cache for server deployments
//   - [MongoCache]: shared cache with TTL index
//
// Cache failures are never fatal to a card: callers log them and probe
// again. Generated cards themselves are never cached.
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented key/value store with per-entry TTL.
type Cache interface {
	// Get returns the value for key. hit is false on a miss or an expired
	// entry; err is reserved for backend failures.
	Get(ctx context.Context, key string) (data []byte, hit bool, err error)

	// Set stores data under key. A ttl of 0 means no expiration.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend connections.
	Close() error
}

// NullCache never stores anything; every Get is a miss.
type NullCache struct{}

// NewNullCache returns a cache that disables probe memoization.
func NewNullCache() Cache { return NullCache{} }

func (NullCache) Get(context.Context, string) ([]byte, bool, error)        { return nil, false, nil }
func (NullCache) Set(context.Context, string, []byte, time.Duration) error { return nil }
func (NullCache) Delete(context.Context, string) error                     { return nil }
func (NullCache) Close() error                                             { return nil }

var _ Cache = NullCache{}

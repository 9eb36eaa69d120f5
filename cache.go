package keel

import (
	"context"
	"strconv"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// Cache is the interface for caching query results. Hosts implement this
// with their preferred backend (Redis, Memcached, in-memory) and key it
// with CacheKey, which folds the projection and filters into the key.
// No package in this repository reads or writes through a Cache; package
// engine executes every finder directly against its connection.
type Cache interface {
	// Get retrieves a value from the cache. Returns nil, nil if absent.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores a value with an optional TTL; ttl == 0 means no expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Delete removes a single key.
	Delete(ctx context.Context, key string) error
	// DeletePrefix removes every key sharing the given prefix, e.g. to
	// invalidate a model's cached finders after a mutation on it.
	DeletePrefix(ctx context.Context, prefix string) error
	// Clear removes every cached value. The test-mode reset hook
	// (package testmode) does not call it.
	Clear(ctx context.Context) error
}

// CacheKey generates a cache key for a finder.
type CacheKey struct {
	Model      string
	Operation  string
	Predicates string
	OrderBy    string
	Select     string
	Include    string
	Take       int
	Skip       int
}

// String returns the string representation of the cache key.
func (k CacheKey) String() string {
	return k.Model + ":" + k.Operation + ":" + k.Predicates + ":" + k.OrderBy + ":" + k.Select + ":" + k.Include +
		":" + strconv.Itoa(k.Take) + ":" + strconv.Itoa(k.Skip)
}

// EncodeCacheValue serializes a cacheable payload with msgpack, rather
// than encoding/json, because cached payloads are
// internal-only: msgpack round-trips Go's numeric widths exactly, which
// JSON's float64-only number model does not.
func EncodeCacheValue(v any) ([]byte, error) {
	return msgpack.Marshal(v)
}

// DecodeCacheValue deserializes a payload written by EncodeCacheValue.
func DecodeCacheValue(data []byte, out any) error {
	return msgpack.Unmarshal(data, out)
}

package kv

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a key does not exist (or has expired).
	ErrNotFound = errors.New("kv: key not found")
	// ErrUnavailable wraps every transport-level store failure.
	ErrUnavailable = errors.New("kv: store unavailable")
)

// NoExpiry is returned by TTL for keys that exist without an expiry.
const NoExpiry time.Duration = -1

// Store is the string-keyed store contract. Implementations must serialize
// operations per key; no cross-key ordering is assumed.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// SetNX stores value only when key is absent and reports whether it did.
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) (int64, error)
	// CompareAndDelete deletes key only while it holds value.
	CompareAndDelete(ctx context.Context, key, value string) (bool, error)
	Exists(ctx context.Context, key string) (bool, error)
	Incr(ctx context.Context, key string) (int64, error)
	// IncrWithTTL increments key and, when the increment created it, applies ttl
	// in the same atomic step.
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// TTL returns the remaining lifetime, NoExpiry for persistent keys, or
	// ErrNotFound when the key is absent.
	TTL(ctx context.Context, key string) (time.Duration, error)
	// Scan returns every key matching a glob pattern. O(n); admin paths only.
	Scan(ctx context.Context, pattern string) ([]string, error)
	Ping(ctx context.Context) error
}

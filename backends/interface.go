package backends

import (
	"context"
	"time"
)

// Backend is the KV adapter contract the admission engine runs against.
//
// Every method is expected to be non-blocking beyond a single store round
// trip and to respect ctx cancellation. Implementations never return a
// partially-applied write; a failed Set/HSet/Incr leaves the prior value in
// place. The admission facade treats any error from a Backend as a store
// failure: admission fails open, stats recording logs and drops it, and
// read operations return it wrapped in a StatsError. IsHealthError is
// available to tell connectivity failures apart from other errors; the
// admission path does not call it.
type Backend interface {
	// Get returns the string value for key. found is false if the key is
	// absent or expired.
	Get(ctx context.Context, key string) (value string, found bool, err error)

	// Set stores value for key. A zero ttl means no expiration.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Incr atomically increments the integer counter at key by 1, creating
	// it at 1 if absent, and returns the new value.
	Incr(ctx context.Context, key string) (int64, error)

	// Expire sets or refreshes the TTL on an existing key. A no-op if the
	// key does not exist.
	Expire(ctx context.Context, key string, ttl time.Duration) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Exists reports whether key is present and unexpired.
	Exists(ctx context.Context, key string) (bool, error)

	// Keys returns all keys matching a glob pattern (Redis-style: '*' and
	// '?' wildcards). Intended for the admission facade's reset_user and
	// get_user_stats bucket enumeration, not the request hot path.
	Keys(ctx context.Context, pattern string) ([]string, error)

	// HGet returns a single hash field value. found is false if the hash
	// or the field is absent.
	HGet(ctx context.Context, key, field string) (value string, found bool, err error)

	// HSet writes one or more hash fields in a single call.
	HSet(ctx context.Context, key string, fields map[string]string) error

	// HGetAll returns every field of the hash at key, or an empty map if
	// absent.
	HGetAll(ctx context.Context, key string) (map[string]string, error)

	// Close releases resources held by the backend (connections, pools,
	// background goroutines).
	Close() error
}

// Package bucket implements the token-bucket admission algorithm against a
// backends.Backend, per spec §4.3: load the persisted hash, apply
// continuous refill since last_refill, admit or reject, and persist the
// result with a refreshed TTL.
package bucket

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/ajiwo/admitgate/backends"
	"github.com/ajiwo/admitgate/internal/keys"
)

// TTL is the fixed idle expiration for a bucket hash, refreshed on every
// write. A bucket that sees no traffic for this long self-garbage-collects.
const TTL = time.Hour

// Result is the outcome of an admission attempt.
type Result struct {
	Admitted bool
	// Tokens is the token count persisted after this step, already floored
	// to match what a subsequent read will see.
	Tokens int
}

// Admit runs one admission step for (userID, endpoint, method) against
// backend, given the resolved (rpm, burst) parameters and the current time.
//
// It never returns a non-nil error for a transient store failure in a way
// that the caller must propagate to the requester: a failed HGetAll, HSet or
// TTL refresh is returned so the admission facade can apply fail-open and
// log, but Admit
// itself performs no retries per spec §4.3's "no atomicity across
// load/update" tolerance.
func Admit(ctx context.Context, be backends.Backend, userID, endpoint, method string, rpm, burst int, now time.Time) (Result, error) {
	key := keys.Bucket(userID, endpoint, method)
	maxTokens := float64(burst)
	refillRate := float64(rpm) / 60.0
	nowSeconds := float64(now.Unix()) + float64(now.Nanosecond())/1e9

	fields, err := be.HGetAll(ctx, key)
	if err != nil {
		return Result{}, fmt.Errorf("bucket: load %q: %w", key, err)
	}

	var tokens float64
	if len(fields) == 0 {
		// Absent bucket: initialize full, then immediately consume 1 for
		// this request (spec §4.3 step 1).
		tokens = maxTokens
	} else if state, ok := decode(fields); ok {
		elapsed := nowSeconds - state.LastRefill
		if elapsed < 0 {
			elapsed = 0
		}
		tokens = math.Min(maxTokens, state.Tokens+elapsed*refillRate)
	} else {
		// Malformed hash: treat as absent per spec §7.
		tokens = maxTokens
	}

	admitted := tokens >= 1
	if admitted {
		tokens -= 1
	}

	if err := persist(ctx, be, key, State{Tokens: tokens, LastRefill: nowSeconds}); err != nil {
		return Result{}, fmt.Errorf("bucket: persist %q: %w", key, err)
	}

	return Result{Admitted: admitted, Tokens: max(int(tokens), 0)}, nil
}

// Peek computes the same refill formula as Admit without consuming a token
// or touching the store (spec §4.5 get_remaining: "No stats update, no TTL
// refresh").
func Peek(ctx context.Context, be backends.Backend, userID, endpoint, method string, rpm, burst int, now time.Time) (remaining int, maxTokens int, refillRate float64, err error) {
	key := keys.Bucket(userID, endpoint, method)
	maxTokensF := float64(burst)
	rate := float64(rpm) / 60.0
	nowSeconds := float64(now.Unix()) + float64(now.Nanosecond())/1e9

	fields, err := be.HGetAll(ctx, key)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("bucket: load %q: %w", key, err)
	}

	if len(fields) == 0 {
		return burst, burst, rate, nil
	}

	state, ok := decode(fields)
	if !ok {
		return burst, burst, rate, nil
	}

	elapsed := nowSeconds - state.LastRefill
	if elapsed < 0 {
		elapsed = 0
	}
	tokens := math.Min(maxTokensF, state.Tokens+elapsed*rate)
	return max(int(tokens), 0), burst, rate, nil
}

// hashExpirer is implemented by backends whose hash values live in storage
// separate from string keys, so a generic Expire against the bucket's key
// would touch the wrong table. backends/postgres implements it (bucket
// state lives in ratelimit_kv_hash, not ratelimit_kv); backends/memory and
// backends/redis key hash and string values off the same map/Redis key, so
// their Expire already covers both.
type hashExpirer interface {
	ExpireHash(ctx context.Context, key string, ttl time.Duration) error
}

func persist(ctx context.Context, be backends.Backend, key string, s State) error {
	if err := be.HSet(ctx, key, encode(s)); err != nil {
		return err
	}
	if he, ok := be.(hashExpirer); ok {
		return he.ExpireHash(ctx, key, TTL)
	}
	return be.Expire(ctx, key, TTL)
}

// Reset deletes the bucket hash stored at key (a key built by keys.Bucket),
// used by ResetUser's per-key cleanup.
func Reset(ctx context.Context, be backends.Backend, key string) error {
	return be.Delete(ctx, key)
}

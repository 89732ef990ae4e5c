// Package stats implements the statistics recorder: best-effort per-minute
// admission counters keyed by scope (spec §4.4).
package stats

import (
	"context"
	"strconv"
	"time"

	"github.com/ajiwo/admitgate/backends"
	"github.com/ajiwo/admitgate/internal/keys"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// TTL is the fixed expiration for every stats counter, refreshed on every
// increment.
const TTL = time.Hour

// MinuteCounts is the (total, allowed, blocked) triple for one scope at one
// minute bucket.
type MinuteCounts struct {
	Minute  int64
	Total   int64
	Allowed int64
	Blocked int64
}

// pipeliner is implemented by backends that can coalesce the
// total+outcome increment-and-expire pairs for several scopes into one
// round trip (spec §5: "implementers should coalesce into pipelined
// batches where the store supports it"). backends/redis implements it;
// for other backends Record increments the scopes concurrently through an
// errgroup, one goroutine per scope.
type pipeliner interface {
	IncrScopesPipelined(ctx context.Context, scopeKeys []string, outcomeSuffix string, ttl time.Duration) error
}

// Recorder increments and queries admission counters.
type Recorder struct {
	backend backends.Backend
	logger  zerolog.Logger
}

// New builds a Recorder over backend. A zero zerolog.Logger discards all
// output, matching the teacher's "logging is opt-in" posture.
func New(backend backends.Backend, logger zerolog.Logger) *Recorder {
	return &Recorder{backend: backend, logger: logger}
}

// Record increments the three scopes' (global, user, endpoint/method)
// counters for one admission decision. Failures are logged and swallowed;
// the caller's admission outcome is never affected (spec §4.4: "a failure
// is logged and swallowed").
func (r *Recorder) Record(ctx context.Context, userID, endpoint, method string, allowed bool) {
	minute := minuteBucket(time.Now())
	scopeKeys := []string{
		keys.ScopeGlobal(minute),
		keys.ScopeUser(userID, minute),
		keys.ScopeEndpoint(endpoint, method, minute),
	}
	outcome := "blocked"
	if allowed {
		outcome = "allowed"
	}

	if pl, ok := r.backend.(pipeliner); ok {
		if err := pl.IncrScopesPipelined(ctx, scopeKeys, outcome, TTL); err != nil {
			r.logger.Warn().Err(err).Msg("stats: pipelined increment failed, decision unaffected")
		}
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, base := range scopeKeys {
		base := base
		g.Go(func() error {
			r.incrAndExpire(gctx, base+":total")
			r.incrAndExpire(gctx, base+":"+outcome)
			return nil
		})
	}
	_ = g.Wait() // incrAndExpire never returns an error to the group; it logs internally.
}

func (r *Recorder) incrAndExpire(ctx context.Context, key string) {
	if _, err := r.backend.Incr(ctx, key); err != nil {
		r.logger.Warn().Err(err).Str("key", key).Msg("stats: increment failed, decision unaffected")
		return
	}
	if err := r.backend.Expire(ctx, key, TTL); err != nil {
		r.logger.Warn().Err(err).Str("key", key).Msg("stats: ttl refresh failed")
	}
}

// Global returns the global triple for each of the five most recent minute
// buckets [m, m-1, m-2, m-3, m-4], newest first. Missing counters read as
// zero (spec §4.4).
func (r *Recorder) Global(ctx context.Context) ([5]MinuteCounts, error) {
	return r.fiveMinutes(ctx, func(minute int64) string { return keys.ScopeGlobal(minute) })
}

// User returns the same shape scoped to a single user.
func (r *Recorder) User(ctx context.Context, userID string) ([5]MinuteCounts, error) {
	return r.fiveMinutes(ctx, func(minute int64) string { return keys.ScopeUser(userID, minute) })
}

func (r *Recorder) fiveMinutes(ctx context.Context, scopeKey func(minute int64) string) ([5]MinuteCounts, error) {
	now := minuteBucket(time.Now())
	var out [5]MinuteCounts
	for i := range out {
		minute := now - int64(i)
		base := scopeKey(minute)
		total, err := r.readCounter(ctx, base+":total")
		if err != nil {
			return out, err
		}
		allowed, err := r.readCounter(ctx, base+":allowed")
		if err != nil {
			return out, err
		}
		blocked, err := r.readCounter(ctx, base+":blocked")
		if err != nil {
			return out, err
		}
		out[i] = MinuteCounts{Minute: minute, Total: total, Allowed: allowed, Blocked: blocked}
	}
	return out, nil
}

func (r *Recorder) readCounter(ctx context.Context, key string) (int64, error) {
	val, found, err := r.backend.Get(ctx, key)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, nil
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, nil
	}
	return n, nil
}

func minuteBucket(t time.Time) int64 {
	return t.Unix() / 60
}

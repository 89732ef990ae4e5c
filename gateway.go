// Package admitgate implements an HTTP API gateway admission engine: a
// token-bucket policy enforced per (user, endpoint, method), persisted to a
// shared key-value store so multiple gateway instances converge on one
// view of each bucket.
package admitgate

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ajiwo/admitgate/backends"
	"github.com/ajiwo/admitgate/internal/bucket"
	"github.com/ajiwo/admitgate/internal/health"
	"github.com/ajiwo/admitgate/internal/keys"
	"github.com/ajiwo/admitgate/internal/resolve"
	"github.com/ajiwo/admitgate/internal/stats"
	"github.com/rs/zerolog"
)

// Remaining is the result of GetRemaining: a point-in-time view of a
// bucket's capacity without consuming a token (spec §4.5).
type Remaining struct {
	RemainingTokens   int
	MaxTokens         int
	RefillRatePerSec  float64
	RequestsPerMinute int
}

// UserStats is the result of GetUserStats: the five-minute counter window
// plus a snapshot of the user's current buckets, keyed by "endpoint:method"
// (spec §4.4).
type UserStats struct {
	Minutes [5]stats.MinuteCounts
	Buckets map[string]bucket.State
}

// Gateway is the admission facade. It is safe for concurrent use from
// multiple goroutines; the configuration snapshot is held as an
// atomic.Pointer swapped whole by UpdateConfig and Reload (spec §5).
type Gateway struct {
	backend backends.Backend
	logger  zerolog.Logger
	stats   *stats.Recorder
	watcher *health.Watcher

	snapshot atomic.Pointer[ConfigSnapshot]
}

// New constructs a Gateway. WithBackend is required; every other option
// has a safe default. New hydrates the configuration snapshot from the
// store (falling back to the built-in default on read failure or
// absence), matching spec §4.5's prescribed start-time hydration, unless
// WithoutHydration is given.
func New(opts ...Option) (*Gateway, error) {
	cfg := defaultGatewayConfig()
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}
	if cfg.backend == nil {
		return nil, ErrNilBackend
	}

	g := &Gateway{
		backend: cfg.backend,
		logger:  cfg.logger,
		stats:   stats.New(cfg.backend, cfg.logger),
	}

	initial := defaultConfig()
	if cfg.initialSnapshot != nil {
		initial = *cfg.initialSnapshot
	}
	g.snapshot.Store(&initial)

	if !cfg.skipHydration {
		g.Reload(context.Background())
	}

	g.watcher = health.NewWatcher(cfg.backend, cfg.logger,
		health.WithInterval(cfg.healthInterval),
		health.WithTimeout(cfg.healthTimeout),
	)
	g.watcher.Start()

	return g, nil
}

// IsAllowed resolves bucket parameters for (userID, endpoint, method), runs
// the bucket engine, records stats, and returns the admit decision. It
// never returns an error: any store failure during load or update is
// logged and treated as admit (spec §4.3, §7 fail-open).
func (g *Gateway) IsAllowed(ctx context.Context, userID, endpoint, method string) bool {
	rpm, burst := resolve.Resolve(g.currentSnapshot(), userID, endpoint, method)

	if ctx.Err() != nil {
		g.logger.Warn().Err(ctx.Err()).Msg("admitgate: context cancelled before admission, failing open")
		return true
	}

	res, err := bucket.Admit(ctx, g.backend, userID, endpoint, method, rpm, burst, time.Now())
	admitted := true
	if err != nil {
		g.logger.Warn().Err(err).Str("user_id", userID).Str("endpoint", endpoint).Msg("admitgate: bucket store error, failing open")
	} else {
		admitted = res.Admitted
	}

	g.stats.Record(ctx, userID, endpoint, method, admitted)
	return admitted
}

// GetRemaining reads the bucket without mutating it or refreshing its TTL,
// applying the same refill formula Admit would (spec §4.5).
func (g *Gateway) GetRemaining(ctx context.Context, userID, endpoint, method string) (Remaining, error) {
	rpm, burst := resolve.Resolve(g.currentSnapshot(), userID, endpoint, method)

	remaining, maxTokens, rate, err := bucket.Peek(ctx, g.backend, userID, endpoint, method, rpm, burst, time.Now())
	if err != nil {
		return Remaining{}, &StatsError{Op: "get_remaining", Err: err}
	}

	return Remaining{
		RemainingTokens:   remaining,
		MaxTokens:         maxTokens,
		RefillRatePerSec:  rate,
		RequestsPerMinute: rpm,
	}, nil
}

// ResetUser enumerates and deletes every bucket belonging to userID.
// Best-effort: a failure to enumerate or delete any one bucket is logged
// and does not abort the remaining deletions (spec §4.5).
func (g *Gateway) ResetUser(ctx context.Context, userID string) {
	bucketKeys, err := g.backend.Keys(ctx, keys.BucketGlob(userID))
	if err != nil {
		g.logger.Warn().Err(err).Str("user_id", userID).Msg("admitgate: reset_user enumeration failed")
		return
	}
	for _, key := range bucketKeys {
		if err := bucket.Reset(ctx, g.backend, key); err != nil {
			g.logger.Warn().Err(err).Str("key", key).Msg("admitgate: reset_user delete failed")
		}
	}
}

// GetStats returns the global five-minute counter window (spec §4.4).
func (g *Gateway) GetStats(ctx context.Context) ([5]stats.MinuteCounts, error) {
	counts, err := g.stats.Global(ctx)
	if err != nil {
		return counts, &StatsError{Op: "get_stats", Err: err}
	}
	return counts, nil
}

// GetUserStats returns the five-minute counter window scoped to userID,
// plus a snapshot of that user's current bucket hashes keyed by
// "endpoint:method" (spec §4.4).
func (g *Gateway) GetUserStats(ctx context.Context, userID string) (UserStats, error) {
	counts, err := g.stats.User(ctx, userID)
	if err != nil {
		return UserStats{}, &StatsError{Op: "get_user_stats", Err: err}
	}

	bucketKeys, err := g.backend.Keys(ctx, keys.BucketGlob(userID))
	if err != nil {
		return UserStats{}, &StatsError{Op: "get_user_stats", Err: err}
	}

	snapshot := make(map[string]bucket.State, len(bucketKeys))
	for _, key := range bucketKeys {
		fields, err := g.backend.HGetAll(ctx, key)
		if err != nil {
			g.logger.Warn().Err(err).Str("key", key).Msg("admitgate: get_user_stats bucket read failed")
			continue
		}
		state, ok := bucket.DecodeState(fields)
		if !ok {
			continue
		}
		snapshot[keys.EndpointMethodSuffix(key, userID)] = state
	}

	return UserStats{Minutes: counts, Buckets: snapshot}, nil
}

// UpdateConfig validates and replaces the in-process configuration
// snapshot. The caller is responsible for persisting snapshot to the store
// under internal/keys.ConfigKey separately; UpdateConfig only swaps the
// facade's in-memory view (spec §4.5).
func (g *Gateway) UpdateConfig(snapshot ConfigSnapshot) error {
	if err := snapshot.Validate(); err != nil {
		return err
	}
	g.snapshot.Store(&snapshot)
	return nil
}

// Reload re-reads the configuration snapshot from the store, falling back
// to the built-in default on read failure or absence (spec §7).
func (g *Gateway) Reload(ctx context.Context) {
	raw, found, err := g.backend.Get(ctx, keys.ConfigKey)
	if err != nil {
		g.logger.Warn().Err(err).Msg("admitgate: config hydration failed, keeping built-in defaults")
		return
	}
	if !found {
		return
	}
	snapshot, err := unmarshalConfig(raw)
	if err != nil {
		g.logger.Warn().Err(err).Msg("admitgate: config snapshot malformed, keeping built-in defaults")
		return
	}
	if err := snapshot.Validate(); err != nil {
		g.logger.Warn().Err(err).Msg("admitgate: persisted config snapshot invalid, keeping built-in defaults")
		return
	}
	g.snapshot.Store(&snapshot)
}

// PersistConfig marshals snapshot and writes it to the store under
// internal/keys.ConfigKey, the counterpart to Reload for admin surfaces
// that want the store to remain the source of truth across restarts.
func (g *Gateway) PersistConfig(ctx context.Context, snapshot ConfigSnapshot) error {
	if err := snapshot.Validate(); err != nil {
		return err
	}
	raw, err := marshalConfig(snapshot)
	if err != nil {
		return fmt.Errorf("admitgate: marshal config: %w", err)
	}
	return g.backend.Set(ctx, keys.ConfigKey, raw, 0)
}

// Ping probes backend connectivity without affecting admission behavior,
// for a chassis /healthz endpoint (spec §12, supplemented feature).
func (g *Gateway) Ping(ctx context.Context) error {
	return health.Ping(ctx, g.backend, "")
}

// Close stops the background health watcher and closes the backend.
func (g *Gateway) Close() error {
	if g.watcher != nil {
		g.watcher.Stop()
	}
	return g.backend.Close()
}

func (g *Gateway) currentSnapshot() resolve.Snapshot {
	c := g.snapshot.Load()
	endpoints := make(map[string]map[string]resolve.Limit, len(c.Endpoints))
	for path, methods := range c.Endpoints {
		m := make(map[string]resolve.Limit, len(methods))
		for method, limit := range methods {
			m[method] = resolve.Limit(limit)
		}
		endpoints[path] = m
	}
	overrides := make(map[string]resolve.Limit, len(c.UserOverrides))
	for user, limit := range c.UserOverrides {
		overrides[user] = resolve.Limit(limit)
	}
	return resolve.Snapshot{
		DefaultRequestsPerMinute: c.DefaultRequestsPerMinute,
		DefaultBurstSize:         c.DefaultBurstSize,
		Endpoints:                endpoints,
		UserOverrides:            overrides,
	}
}

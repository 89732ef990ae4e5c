// Package health adapts the backend connectivity probe used by
// Gateway.Ping and an optional background watcher that logs transitions
// between healthy and unhealthy.
package health

import (
	"context"
	"time"

	"github.com/ajiwo/admitgate/backends"
	"github.com/rs/zerolog"
)

// Config controls the background watcher's cadence. A zero Interval
// disables the watcher; Ping remains usable either way.
type Config struct {
	Interval time.Duration
	Timeout  time.Duration
	TestKey  string
}

// DefaultConfig matches the cadence the teacher shipped for its own
// connectivity probe.
func DefaultConfig() Config {
	return Config{
		Interval: 10 * time.Second,
		Timeout:  2 * time.Second,
		TestKey:  "__admitgate_health__",
	}
}

// Option configures a Watcher.
type Option func(*Config)

// WithInterval overrides the watcher's polling interval.
func WithInterval(interval time.Duration) Option {
	return func(c *Config) { c.Interval = interval }
}

// WithTimeout overrides the per-probe timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Config) { c.Timeout = timeout }
}

// Ping performs a single connectivity probe against backend: a Get of an
// arbitrary key. A "not found" result is itself evidence the store
// answered, so only a transport/operational error is reported: Ping
// returns nil whenever the backend answers, whether or not the probe key
// exists.
func Ping(ctx context.Context, be backends.Backend, testKey string) error {
	if testKey == "" {
		testKey = "__admitgate_health__"
	}
	_, _, err := be.Get(ctx, testKey)
	return err
}

// Watcher polls Ping on an interval and logs state transitions, so a
// long-lived Gateway surfaces backend outages in its logs even when no
// caller happens to invoke Ping during the outage.
type Watcher struct {
	backend backends.Backend
	config  Config
	logger  zerolog.Logger
	stop    chan struct{}
	done    chan struct{}
}

// NewWatcher builds a Watcher; call Start to begin polling.
func NewWatcher(backend backends.Backend, logger zerolog.Logger, opts ...Option) *Watcher {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Watcher{
		backend: backend,
		config:  cfg,
		logger:  logger,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Start launches the polling goroutine. A zero Interval is a no-op.
func (w *Watcher) Start() {
	if w.config.Interval <= 0 {
		close(w.done)
		return
	}
	go w.run()
}

// Stop halts the polling goroutine and waits for it to exit.
func (w *Watcher) Stop() {
	close(w.stop)
	<-w.done
}

func (w *Watcher) run() {
	defer close(w.done)
	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	healthy := true
	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), w.config.Timeout)
			err := Ping(ctx, w.backend, w.config.TestKey)
			cancel()

			if err != nil && healthy {
				healthy = false
				w.logger.Warn().Err(err).Msg("health: backend became unreachable")
			} else if err == nil && !healthy {
				healthy = true
				w.logger.Info().Msg("health: backend recovered")
			}
		case <-w.stop:
			return
		}
	}
}

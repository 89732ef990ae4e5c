package admitgate

import (
	"fmt"
	"time"

	"github.com/ajiwo/admitgate/backends"
	"github.com/rs/zerolog"
)

// Option configures a Gateway at construction time.
type Option func(*gatewayConfig) error

type gatewayConfig struct {
	backend         backends.Backend
	logger          zerolog.Logger
	healthInterval  time.Duration
	healthTimeout   time.Duration
	skipHydration   bool
	initialSnapshot *ConfigSnapshot
}

func defaultGatewayConfig() gatewayConfig {
	return gatewayConfig{
		logger:         zerolog.Nop(),
		healthInterval: 10 * time.Second,
		healthTimeout:  2 * time.Second,
	}
}

// WithBackend sets the KV Adapter the gateway persists bucket, stats, and
// configuration state to. Required unless WithBackendName is used instead.
func WithBackend(backend backends.Backend) Option {
	return func(c *gatewayConfig) error {
		if backend == nil {
			return ErrNilBackend
		}
		c.backend = backend
		return nil
	}
}

// WithBackendName resolves a backend by its registered name (backends.Create)
// instead of constructing one directly, for callers that select a backend
// from configuration (a flag, an environment variable, a config file) rather
// than at compile time. name must have been registered by importing the
// corresponding backends/<name> package, which registers itself on import
// via init; config is passed through to that backend's factory unchanged.
func WithBackendName(name string, config any) Option {
	return func(c *gatewayConfig) error {
		backend, err := backends.Create(name, config)
		if err != nil {
			return fmt.Errorf("admitgate: resolve backend %q: %w", name, err)
		}
		c.backend = backend
		return nil
	}
}

// WithLogger attaches a zerolog.Logger used at the points spec.md names as
// "logged": KV adapter failures, stats recording failures, config
// hydration failures. The default discards all output.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *gatewayConfig) error {
		c.logger = logger
		return nil
	}
}

// WithHealthCheckInterval overrides the background health watcher's
// polling cadence. Zero disables the watcher.
func WithHealthCheckInterval(interval time.Duration) Option {
	return func(c *gatewayConfig) error {
		c.healthInterval = interval
		return nil
	}
}

// WithHealthCheckTimeout overrides the per-probe timeout for the
// background health watcher.
func WithHealthCheckTimeout(timeout time.Duration) Option {
	return func(c *gatewayConfig) error {
		c.healthTimeout = timeout
		return nil
	}
}

// WithInitialConfig seeds the in-process snapshot without reading the
// store first, useful for tests. New still attempts to hydrate from the
// store afterward unless combined with WithoutHydration.
func WithInitialConfig(snapshot ConfigSnapshot) Option {
	return func(c *gatewayConfig) error {
		c.initialSnapshot = &snapshot
		return nil
	}
}

// WithoutHydration skips the store read New otherwise performs on
// startup, keeping whatever WithInitialConfig supplied (or the built-in
// default). Intended for tests that want full control over timing.
func WithoutHydration() Option {
	return func(c *gatewayConfig) error {
		c.skipHydration = true
		return nil
	}
}

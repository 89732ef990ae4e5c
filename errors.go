package admitgate

import "errors"

// ErrInvalidConfig is returned by UpdateConfig when the supplied snapshot
// is missing default_requests_per_minute or endpoints (spec §6: "accepted
// only if ... present").
var ErrInvalidConfig = errors.New("admitgate: invalid configuration snapshot")

// ErrNilBackend is returned by New when no backend was configured.
var ErrNilBackend = errors.New("admitgate: backend is required")

// StatsError wraps an unrecoverable read failure from GetStats,
// GetUserStats, or GetRemaining, matching spec §7's "a sentinel error
// object is returned, not raised" as an idiomatic typed error value.
type StatsError struct {
	Op  string
	Err error
}

func (e *StatsError) Error() string {
	return "admitgate: " + e.Op + ": " + e.Err.Error()
}

func (e *StatsError) Unwrap() error {
	return e.Err
}

package admitgate

import "encoding/json"

// Limit is a (requests_per_minute, burst_size) pair. A zero field means
// "not set" and falls back per the resolver's precedence (internal/resolve).
type Limit struct {
	RequestsPerMinute int `json:"requests_per_minute"`
	BurstSize         int `json:"burst_size"`
}

// ConfigSnapshot is the JSON-shaped configuration persisted at
// internal/keys.ConfigKey (spec §6). It is replaced atomically by
// UpdateConfig and Reload.
type ConfigSnapshot struct {
	DefaultRequestsPerMinute int                       `json:"default_requests_per_minute"`
	DefaultBurstSize         int                       `json:"default_burst_size"`
	Endpoints                map[string]map[string]Limit `json:"endpoints"`
	UserOverrides            map[string]Limit            `json:"user_overrides"`
}

// defaultConfig is the built-in fallback used when no snapshot has ever
// been persisted, or when hydration fails (spec §7: "keep the built-in
// defaults in memory").
func defaultConfig() ConfigSnapshot {
	return ConfigSnapshot{
		DefaultRequestsPerMinute: 60,
		DefaultBurstSize:         10,
		Endpoints:                map[string]map[string]Limit{},
		UserOverrides:            map[string]Limit{},
	}
}

// Validate reports ErrInvalidConfig if default_requests_per_minute is
// non-positive or endpoints is nil, matching spec §6's acceptance rule.
func (c ConfigSnapshot) Validate() error {
	if c.DefaultRequestsPerMinute <= 0 {
		return ErrInvalidConfig
	}
	if c.Endpoints == nil {
		return ErrInvalidConfig
	}
	return nil
}

func marshalConfig(c ConfigSnapshot) (string, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func unmarshalConfig(data string) (ConfigSnapshot, error) {
	var c ConfigSnapshot
	if err := json.Unmarshal([]byte(data), &c); err != nil {
		return ConfigSnapshot{}, err
	}
	return c, nil
}

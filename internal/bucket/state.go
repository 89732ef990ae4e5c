package bucket

import "strconv"

// State is the decoded form of a bucket hash: tokens is the count
// materialized at last_refill, a wall-clock Unix timestamp in seconds.
type State struct {
	Tokens     float64
	LastRefill float64
}

// DecodeState exposes decode to callers outside the package (the
// admission facade's get_user_stats bucket snapshot) that need the same
// absent-on-parse-failure semantics Admit and Peek use internally.
func DecodeState(fields map[string]string) (State, bool) {
	return decode(fields)
}

// decode parses a bucket hash's "tokens" and "last_refill" fields. It
// returns ok=false on any parse failure so the caller can treat the bucket
// as absent per spec §7, rather than propagating a parse error into the
// admission path.
func decode(fields map[string]string) (State, bool) {
	tokensStr, ok := fields["tokens"]
	if !ok {
		return State{}, false
	}
	lastRefillStr, ok := fields["last_refill"]
	if !ok {
		return State{}, false
	}

	tokens, err := strconv.ParseFloat(tokensStr, 64)
	if err != nil {
		return State{}, false
	}
	lastRefill, err := strconv.ParseFloat(lastRefillStr, 64)
	if err != nil {
		return State{}, false
	}

	return State{Tokens: tokens, LastRefill: lastRefill}, true
}

// encode renders a state as the hash fields persisted to the store. Tokens
// are truncated toward zero on every write (spec §4.3's deliberate
// fidelity/space tradeoff: refill arithmetic stays real-valued in memory,
// but what's durable is an integer token count), while last_refill is kept
// full precision so refill math stays accurate across reads.
func encode(s State) map[string]string {
	return map[string]string{
		"tokens":      strconv.FormatInt(int64(s.Tokens), 10),
		"last_refill": strconv.FormatFloat(s.LastRefill, 'f', -1, 64),
	}
}

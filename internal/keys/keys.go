// Package keys centralizes the store key layout (spec §6) so the bucket
// engine, stats recorder, and admission facade never hand-format a key
// differently from one another.
package keys

import (
	"strconv"
	"strings"
	"sync"
)

// ConfigKey is the fixed key under which the active configuration snapshot
// is persisted.
const ConfigKey = "rate_limit_config"

// builderPool reduces allocations for the key concatenation done on every
// admission (bucket key plus three stats scope keys).
var builderPool = sync.Pool{
	New: func() any { return &strings.Builder{} },
}

func get() *strings.Builder {
	sb := builderPool.Get().(*strings.Builder)
	sb.Reset()
	return sb
}

func put(sb *strings.Builder) {
	builderPool.Put(sb)
}

// Bucket returns the hash key for a (user, endpoint, method) bucket:
// "bucket:{user_id}:{endpoint}:{method}".
func Bucket(userID, endpoint, method string) string {
	sb := get()
	defer put(sb)
	sb.Grow(len("bucket::::") + len(userID) + len(endpoint) + len(method))
	sb.WriteString("bucket:")
	sb.WriteString(userID)
	sb.WriteByte(':')
	sb.WriteString(endpoint)
	sb.WriteByte(':')
	sb.WriteString(method)
	return sb.String()
}

// BucketGlob returns the glob pattern matching every bucket key belonging
// to userID, for reset_user and get_user_stats.
func BucketGlob(userID string) string {
	return "bucket:" + userID + ":*"
}

// ScopeGlobal returns the "global" stats scope prefix for minute m.
func ScopeGlobal(minute int64) string {
	return scope("global", minute)
}

// ScopeUser returns the "user:{id}" stats scope prefix for minute m.
func ScopeUser(userID string, minute int64) string {
	return scope("user:"+userID, minute)
}

// ScopeEndpoint returns the "endpoint:{path}:{method}" stats scope prefix
// for minute m.
func ScopeEndpoint(endpoint, method string, minute int64) string {
	return scope("endpoint:"+endpoint+":"+method, minute)
}

// scope formats "stats:{scopeName}:{minute}", the common prefix shared by a
// scope's three counters ({prefix}:total, {prefix}:allowed, {prefix}:blocked).
func scope(scopeName string, minute int64) string {
	sb := get()
	defer put(sb)
	sb.WriteString("stats:")
	sb.WriteString(scopeName)
	sb.WriteByte(':')
	sb.WriteString(strconv.FormatInt(minute, 10))
	return sb.String()
}

// EndpointMethodSuffix extracts the "{endpoint}:{method}" substring from a
// bucket key produced by Bucket, for keying get_user_stats results per
// spec §4.4.
func EndpointMethodSuffix(bucketKey, userID string) string {
	return strings.TrimPrefix(bucketKey, "bucket:"+userID+":")
}

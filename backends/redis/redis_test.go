package redis

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func setupRedisTest(t *testing.T) (*Backend, func()) {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	b, err := New(Config{Addr: addr})
	if err != nil {
		return nil, func() {}
	}

	teardown := func() {
		_ = b.GetClient().FlushAll(t.Context())
		_ = b.Close()
	}
	return b, teardown
}

func TestBackend_StringAndHashRoundTrip(t *testing.T) {
	ctx := t.Context()
	b, teardown := setupRedisTest(t)
	defer teardown()
	if b == nil {
		t.Skip("redis not available, skipping integration test")
	}

	_, found, err := b.Get(ctx, "nonexistent")
	require.NoError(t, err)
	require.False(t, found)

	require.NoError(t, b.Set(ctx, "k", "v", time.Hour))
	val, found, err := b.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "v", val)

	require.NoError(t, b.HSet(ctx, "bucket:u1:/x:GET", map[string]string{"tokens": "9", "last_refill": "123.0"}))
	all, err := b.HGetAll(ctx, "bucket:u1:/x:GET")
	require.NoError(t, err)
	require.Equal(t, map[string]string{"tokens": "9", "last_refill": "123.0"}, all)

	n, err := b.Incr(ctx, "stats:global:1000:total")
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	require.NoError(t, b.Expire(ctx, "k", time.Minute))

	keys, err := b.Keys(ctx, "bucket:u1:*")
	require.NoError(t, err)
	require.Contains(t, keys, "bucket:u1:/x:GET")
}

func TestBackend_IncrScopesPipelined(t *testing.T) {
	ctx := t.Context()
	b, teardown := setupRedisTest(t)
	defer teardown()
	if b == nil {
		t.Skip("redis not available, skipping integration test")
	}

	require.NoError(t, b.IncrScopesPipelined(ctx, []string{"stats:global:500", "stats:user:u1:500"}, "allowed", time.Hour))

	val, found, err := b.Get(ctx, "stats:global:500:total")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "1", val)

	val, found, err = b.Get(ctx, "stats:user:u1:500:allowed")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "1", val)
}

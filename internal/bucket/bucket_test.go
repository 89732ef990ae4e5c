package bucket

import (
	"testing"
	"testing/synctest"
	"time"

	"github.com/ajiwo/admitgate/backends/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdmit_BurstThenReject(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		be := memory.New()
		defer be.Close()

		for i := range 10 {
			res, err := Admit(t.Context(), be, "u1", "/x", "GET", 60, 10, time.Now())
			require.NoError(t, err)
			assert.True(t, res.Admitted, "request %d should be admitted", i+1)
		}

		res, err := Admit(t.Context(), be, "u1", "/x", "GET", 60, 10, time.Now())
		require.NoError(t, err)
		assert.False(t, res.Admitted, "11th request within the burst window should be rejected")
	})
}

func TestAdmit_RefillsOverTime(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		be := memory.New()
		defer be.Close()

		for range 10 {
			_, err := Admit(t.Context(), be, "u1", "/x", "GET", 60, 10, time.Now())
			require.NoError(t, err)
		}

		res, err := Admit(t.Context(), be, "u1", "/x", "GET", 60, 10, time.Now())
		require.NoError(t, err)
		assert.False(t, res.Admitted)

		time.Sleep(time.Second)
		res, err = Admit(t.Context(), be, "u1", "/x", "GET", 60, 10, time.Now())
		require.NoError(t, err)
		assert.True(t, res.Admitted, "after 1s at 60rpm exactly one token should have refilled")
		assert.Equal(t, 0, res.Tokens)
	})
}

func TestAdmit_NeverExceedsBurstCeiling(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		be := memory.New()
		defer be.Close()

		_, err := Admit(t.Context(), be, "u1", "/x", "GET", 60, 10, time.Now())
		require.NoError(t, err)

		time.Sleep(time.Hour)
		res, err := Admit(t.Context(), be, "u1", "/x", "GET", 60, 10, time.Now())
		require.NoError(t, err)
		assert.True(t, res.Admitted)
		assert.LessOrEqual(t, res.Tokens, 10)
	})
}

func TestAdmit_DistinctEndpointsHaveIndependentBuckets(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		be := memory.New()
		defer be.Close()

		for range 10 {
			_, err := Admit(t.Context(), be, "u1", "/a", "GET", 60, 10, time.Now())
			require.NoError(t, err)
		}
		res, err := Admit(t.Context(), be, "u1", "/a", "GET", 60, 10, time.Now())
		require.NoError(t, err)
		assert.False(t, res.Admitted)

		res, err = Admit(t.Context(), be, "u1", "/b", "GET", 60, 10, time.Now())
		require.NoError(t, err)
		assert.True(t, res.Admitted, "a different endpoint must not share the exhausted bucket")
	})
}

func TestAdmit_MalformedHashTreatedAsAbsent(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		be := memory.New()
		defer be.Close()

		require.NoError(t, be.HSet(t.Context(), "bucket:u1:/x:GET", map[string]string{
			"tokens":      "not-a-number",
			"last_refill": "also-not-a-number",
		}))

		res, err := Admit(t.Context(), be, "u1", "/x", "GET", 60, 10, time.Now())
		require.NoError(t, err)
		assert.True(t, res.Admitted)
		assert.Equal(t, 9, res.Tokens)
	})
}

func TestPeek_DoesNotConsumeOrPersist(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		be := memory.New()
		defer be.Close()

		remaining, max, rate, err := Peek(t.Context(), be, "u1", "/x", "GET", 60, 10, time.Now())
		require.NoError(t, err)
		assert.Equal(t, 10, remaining)
		assert.Equal(t, 10, max)
		assert.Equal(t, 1.0, rate)

		found, err := be.Exists(t.Context(), "bucket:u1:/x:GET")
		require.NoError(t, err)
		assert.False(t, found, "peek must not create a bucket entry")

		_, err = Admit(t.Context(), be, "u1", "/x", "GET", 60, 10, time.Now())
		require.NoError(t, err)

		remaining, _, _, err = Peek(t.Context(), be, "u1", "/x", "GET", 60, 10, time.Now())
		require.NoError(t, err)
		assert.Equal(t, 9, remaining)
	})
}

func TestReset_DeletesBucket(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		be := memory.New()
		defer be.Close()

		_, err := Admit(t.Context(), be, "u1", "/x", "GET", 60, 10, time.Now())
		require.NoError(t, err)

		require.NoError(t, Reset(t.Context(), be, "bucket:u1:/x:GET"))

		res, err := Admit(t.Context(), be, "u1", "/x", "GET", 60, 10, time.Now())
		require.NoError(t, err)
		assert.Equal(t, 9, res.Tokens, "bucket should be fully replenished after reset")
	})
}

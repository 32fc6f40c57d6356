package redisclient

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestClient(t *testing.T) *Client {
	t.Helper()

	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("Integration test - requires TEST_REDIS_ADDR")
	}

	client, err := NewClient(addr, "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client
}

func TestJSONCacheRoundTrip(t *testing.T) {
	c := openTestClient(t)
	ctx := context.Background()
	key := "test:" + uuid.NewString()

	var out []string
	hit, err := c.GetJSON(ctx, key, &out)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, c.SetJSON(ctx, key, []string{"a", "b"}, time.Minute))

	hit, err = c.GetJSON(ctx, key, &out)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, []string{"a", "b"}, out)
}

func TestBumpVersion(t *testing.T) {
	c := openTestClient(t)
	ctx := context.Background()
	ns := "test-ns:" + uuid.NewString()

	v0, err := c.Version(ctx, ns)
	require.NoError(t, err)
	assert.Equal(t, int64(0), v0)

	require.NoError(t, c.BumpVersion(ctx, ns))
	v1, err := c.Version(ctx, ns)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v1)
}

func TestAllowFixedWindow(t *testing.T) {
	c := openTestClient(t)
	ctx := context.Background()
	key := "test:" + uuid.NewString()

	for i := 0; i < 3; i++ {
		allowed, remaining, _, err := c.Allow(ctx, key, 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed)
		assert.Equal(t, int64(2-i), remaining)
	}

	allowed, _, ttl, err := c.Allow(ctx, key, 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Greater(t, ttl, time.Duration(0))

	n, err := c.rdb.Exists(ctx, "ratelimit:"+key).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestRevokeToken(t *testing.T) {
	c := openTestClient(t)
	ctx := context.Background()
	jti := uuid.NewString()

	revoked, err := c.IsTokenRevoked(ctx, jti)
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, c.RevokeToken(ctx, jti, time.Minute))
	revoked, err = c.IsTokenRevoked(ctx, jti)
	require.NoError(t, err)
	assert.True(t, revoked)
}

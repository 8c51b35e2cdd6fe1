package rbac

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestCacheTTLBounds(t *testing.T) {
	_, client := newRedis(t)
	for _, ttl := range []time.Duration{0, -time.Second, MaxCacheTTL + time.Second} {
		_, err := NewRedisCache(client, ttl)
		assert.ErrorIs(t, err, ErrInvalidCacheTTL, ttl)
		_, err = NewMemoryCache(8, ttl)
		assert.ErrorIs(t, err, ErrInvalidCacheTTL, ttl)
	}
	_, err := NewRedisCache(client, MaxCacheTTL)
	assert.NoError(t, err)
	_, err = NewRedisCache(nil, time.Minute)
	assert.Error(t, err)
}

func TestRedisCacheRoundTrip(t *testing.T) {
	mr, client := newRedis(t)
	cache, err := NewRedisCache(client, 2*time.Minute)
	require.NoError(t, err)
	ctx := context.Background()

	_, found, err := cache.Get(ctx, "acme", 5)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, cache.Set(ctx, "acme", 5, []string{"nas.view", "radius.users.view"}))
	perms, found, err := cache.Get(ctx, "acme", 5)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []string{"nas.view", "radius.users.view"}, perms)

	key := "openradius:authz:perms:acme:0:5"
	assert.True(t, mr.Exists(key))
	assert.Equal(t, 2*time.Minute, mr.TTL(key))

	mr.FastForward(3 * time.Minute)
	_, found, err = cache.Get(ctx, "acme", 5)
	require.NoError(t, err)
	assert.False(t, found, "entries expire with the revocation window")
}

func TestRedisCacheInvalidation(t *testing.T) {
	_, client := newRedis(t)
	cache, err := NewRedisCache(client, time.Minute)
	require.NoError(t, err)
	ctx := context.Background()

	sub := client.Subscribe(ctx, InvalidationChannel)
	t.Cleanup(func() { _ = sub.Close() })
	_, err = sub.Receive(ctx)
	require.NoError(t, err)
	messages := sub.Channel()

	require.NoError(t, cache.Set(ctx, "acme", 5, []string{"nas.view"}))
	require.NoError(t, cache.Set(ctx, "acme", 6, []string{"nas.view"}))
	require.NoError(t, cache.Set(ctx, "globex", 5, []string{"nas.view"}))

	require.NoError(t, cache.Invalidate(ctx, "acme", 5))
	_, found, _ := cache.Get(ctx, "acme", 5)
	assert.False(t, found)
	_, found, _ = cache.Get(ctx, "acme", 6)
	assert.True(t, found)
	assert.Equal(t, "acme/5", (<-messages).Payload)

	require.NoError(t, cache.InvalidateTenant(ctx, "acme"))
	ver, err := cache.Version(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, int64(1), ver)
	_, found, _ = cache.Get(ctx, "acme", 6)
	assert.False(t, found, "a version bump hides every entry of the workspace")
	_, found, _ = cache.Get(ctx, "globex", 5)
	assert.True(t, found)
	assert.Equal(t, "acme", (<-messages).Payload)
}

func TestRedisCacheSkipsStaleGeneration(t *testing.T) {
	mr, client := newRedis(t)
	cache, err := NewRedisCache(client, time.Minute)
	require.NoError(t, err)
	ctx := context.Background()

	gen, err := cache.Generation(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, "0:0", gen)

	require.NoError(t, cache.Invalidate(ctx, "acme", 5))
	stored, err := cache.SetIfGeneration(ctx, "acme", 5, gen, []string{"nas.view"})
	require.NoError(t, err)
	assert.False(t, stored)
	assert.False(t, mr.Exists("openradius:authz:perms:acme:0:5"))

	gen, err = cache.Generation(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, "0:1", gen)
	require.NoError(t, cache.InvalidateTenant(ctx, "acme"))
	stored, err = cache.SetIfGeneration(ctx, "acme", 5, gen, []string{"nas.view"})
	require.NoError(t, err)
	assert.False(t, stored, "a version bump also retires the generation")

	gen, err = cache.Generation(ctx, "acme")
	require.NoError(t, err)
	stored, err = cache.SetIfGeneration(ctx, "acme", 5, gen, []string{"nas.view"})
	require.NoError(t, err)
	assert.True(t, stored)
	assert.True(t, mr.Exists("openradius:authz:perms:acme:1:5"))
	assert.Equal(t, time.Minute, mr.TTL("openradius:authz:perms:acme:1:5"))

	gen, err = cache.Generation(ctx, "globex")
	require.NoError(t, err)
	require.NoError(t, cache.Invalidate(ctx, "acme", 6))
	stored, err = cache.SetIfGeneration(ctx, "globex", 5, gen, []string{"nas.view"})
	require.NoError(t, err)
	assert.True(t, stored, "other workspaces are unaffected")
}

func TestMemoryCacheSkipsStaleGeneration(t *testing.T) {
	cache, err := NewMemoryCache(8, time.Minute)
	require.NoError(t, err)
	ctx := context.Background()

	gen, err := cache.Generation(ctx, "acme")
	require.NoError(t, err)
	require.NoError(t, cache.Invalidate(ctx, "acme", 5))
	stored, err := cache.SetIfGeneration(ctx, "acme", 5, gen, []string{"nas.view"})
	require.NoError(t, err)
	assert.False(t, stored)
	assert.Zero(t, cache.Len())

	gen, _ = cache.Generation(ctx, "acme")
	stored, err = cache.SetIfGeneration(ctx, "acme", 5, gen, []string{"nas.view"})
	require.NoError(t, err)
	assert.True(t, stored)
	assert.Equal(t, 1, cache.Len())
}

func TestRedisCacheUnavailable(t *testing.T) {
	mr, client := newRedis(t)
	cache, err := NewRedisCache(client, time.Minute)
	require.NoError(t, err)
	mr.Close()

	_, _, err = cache.Get(context.Background(), "acme", 5)
	assert.Error(t, err)
	assert.Error(t, cache.Set(context.Background(), "acme", 5, nil))
}

func TestMemoryCacheExpiry(t *testing.T) {
	cache, err := NewMemoryCache(0, 50*time.Millisecond)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "acme", 5, []string{"nas.view"}))
	perms, found, err := cache.Get(ctx, "acme", 5)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []string{"nas.view"}, perms)

	assert.Eventually(t, func() bool {
		_, found, _ := cache.Get(ctx, "acme", 5)
		return !found
	}, time.Second, 10*time.Millisecond)
}

func TestMemoryCacheInvalidateTenant(t *testing.T) {
	cache, err := NewMemoryCache(8, time.Minute)
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, cache.Set(ctx, "acme", 5, nil))
	require.NoError(t, cache.Set(ctx, "acme", 6, nil))
	require.NoError(t, cache.Set(ctx, "globex", 5, nil))

	require.NoError(t, cache.InvalidateTenant(ctx, "acme"))
	assert.Equal(t, 1, cache.Len())
	_, found, _ := cache.Get(ctx, "globex", 5)
	assert.True(t, found)
}

func TestMemoryCacheFollowsRedisInvalidations(t *testing.T) {
	_, client := newRedis(t)
	publisher, err := NewRedisCache(client, time.Minute)
	require.NoError(t, err)
	local, err := NewMemoryCache(8, time.Minute)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	require.NoError(t, local.ListenForInvalidation(ctx, client))

	require.NoError(t, local.Set(ctx, "acme", 5, []string{"nas.view"}))
	require.NoError(t, local.Set(ctx, "acme", 6, []string{"nas.view"}))
	require.NoError(t, local.Set(ctx, "globex", 6, []string{"nas.view"}))

	require.NoError(t, publisher.Invalidate(ctx, "acme", 5))
	assert.Eventually(t, func() bool { return local.Len() == 2 }, time.Second, 10*time.Millisecond)

	require.NoError(t, publisher.InvalidateTenant(ctx, "acme"))
	assert.Eventually(t, func() bool { return local.Len() == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, client.Publish(ctx, InvalidationChannel, "../etc").Err())
	require.NoError(t, client.Publish(ctx, InvalidationChannel, "globex/x").Err())
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, local.Len(), "malformed payloads are ignored")
}

func TestParseInvalidation(t *testing.T) {
	tid, userID, ok := parseInvalidation("acme/42")
	assert.True(t, ok)
	assert.Equal(t, "acme", tid.String())
	assert.Equal(t, int64(42), userID)

	tid, userID, ok = parseInvalidation("acme")
	assert.True(t, ok)
	assert.Equal(t, "acme", tid.String())
	assert.Zero(t, userID)

	for _, bad := range []string{"", "acme/0", "acme/-1", "a b/1", "acme/x"} {
		_, _, ok := parseInvalidation(bad)
		assert.False(t, ok, bad)
	}
}

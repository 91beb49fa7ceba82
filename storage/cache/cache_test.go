package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darulhuda/madrasa/core"
	"github.com/darulhuda/madrasa/core/auth"
)

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func TestMemoryStore(t *testing.T) {
	c := &clock{now: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)}
	s := NewMemoryStore(c.Now)
	ctx := context.Background()

	_, err := s.Get(ctx, "k")
	assert.Equal(t, ErrMiss, err)

	require.NoError(t, s.Set(ctx, "k", []byte("v"), time.Minute))
	require.NoError(t, s.Set(ctx, "forever", []byte("v"), 0))
	val, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), val)

	ok, err := s.SetNX(ctx, "k", []byte("other"), time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	c.now = c.now.Add(30 * time.Second)
	ttl, err := s.TTL(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, ttl)

	ok, err = s.Expire(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	c.now = c.now.Add(59 * time.Second)
	_, err = s.Get(ctx, "k")
	assert.NoError(t, err, "expiry was extended")

	c.now = c.now.Add(time.Second)
	_, err = s.Get(ctx, "k")
	assert.Equal(t, ErrMiss, err)
	ok, err = s.Expire(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
	_, err = s.TTL(ctx, "k")
	assert.Equal(t, ErrMiss, err)

	ttl, err = s.TTL(ctx, "forever")
	require.NoError(t, err)
	assert.Zero(t, ttl)

	require.NoError(t, s.Delete(ctx, "forever"))
	_, err = s.Get(ctx, "forever")
	assert.Equal(t, ErrMiss, err)
	assert.NoError(t, s.Ping(ctx))
}

func TestThrottle(t *testing.T) {
	c := &clock{now: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)}
	th := NewThrottle(NewMemoryStore(c.Now))
	ctx := context.Background()

	ok, _, err := th.Allow(ctx, "a", time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)

	c.now = c.now.Add(15 * time.Minute)
	ok, remaining, err := th.Allow(ctx, "a", time.Hour)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 45*time.Minute, remaining)

	ok, _, err = th.Allow(ctx, "b", time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)

	c.now = c.now.Add(45 * time.Minute)
	ok, _, err = th.Allow(ctx, "a", time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, th.Release(ctx, "a"))
	ok, _, err = th.Allow(ctx, "a", time.Hour)
	require.NoError(t, err)
	assert.True(t, ok, "released events are allowed again")
}

func TestLockoutStore(t *testing.T) {
	store := NewLockoutStore(NewMemoryStore())
	ctx := context.Background()

	st, err := store.Load(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, auth.LockoutState{}, st)

	until := time.Date(2026, 3, 1, 1, 0, 0, 0, time.UTC)
	require.NoError(t, store.Save(ctx, "k", auth.LockoutState{Failures: 5, LockedUntil: until}, time.Hour))
	st, err = store.Load(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, 5, st.Failures)
	assert.True(t, until.Equal(st.LockedUntil))

	require.NoError(t, store.Clear(ctx, "k"))
	st, err = store.Load(ctx, "k")
	require.NoError(t, err)
	assert.Zero(t, st.Failures)
}

func TestUnlockStore(t *testing.T) {
	c := &clock{now: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)}
	store := NewUnlockStore(NewMemoryStore(c.Now))
	ctx := context.Background()

	ok, err := store.Touch(ctx, "sid", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "locked sessions are not unlocked by a touch")

	require.NoError(t, store.SetUnlocked(ctx, "sid", time.Minute))
	ok, err = store.IsUnlocked(ctx, "sid")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, store.ClearUnlocked(ctx, "sid"))
	ok, err = store.IsUnlocked(ctx, "sid")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStore_closed(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	require.NoError(t, client.Close())
	s := NewRedisStore(client, "madrasa:")
	ctx := context.Background()

	_, err := s.Get(ctx, "k")
	assert.True(t, core.IsShutdown(err), err)
	_, err = s.SetNX(ctx, "k", []byte("v"), time.Minute)
	assert.True(t, core.IsShutdown(err), err)
	assert.True(t, core.IsShutdown(NewThrottle(s).Release(ctx, "contact:203.0.113.7")))
}

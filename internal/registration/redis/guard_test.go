package redis

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"ms-registration/internal/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestRedis connects a client to an in-memory miniredis server.
func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to create miniredis: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	if err := client.Ping(context.Background()).Err(); err != nil {
		mr.Close()
		t.Fatalf("Failed to connect to miniredis: %v", err)
	}
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return client, mr
}

func TestClaimOnce(t *testing.T) {
	client, mr := setupTestRedis(t)
	g := NewEventGuard(client, 0, logger.NewTestLogger(io.Discard))
	ctx := context.Background()

	ok, err := g.Claim(ctx, "evt_1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = g.Claim(ctx, "evt_1")
	require.NoError(t, err)
	assert.False(t, ok, "second delivery should be rejected")

	assert.Equal(t, DefaultEventTTL, mr.TTL("stripe_event:evt_1"))

	seen, err := g.Seen(ctx, "evt_1")
	require.NoError(t, err)
	assert.True(t, seen)
}

func TestClaimExpires(t *testing.T) {
	client, mr := setupTestRedis(t)
	g := NewEventGuard(client, time.Minute, logger.NewTestLogger(io.Discard))
	ctx := context.Background()

	ok, _ := g.Claim(ctx, "evt_2")
	require.True(t, ok)

	mr.FastForward(2 * time.Minute)

	ok, err := g.Claim(ctx, "evt_2")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRelease(t *testing.T) {
	client, _ := setupTestRedis(t)
	g := NewEventGuard(client, 0, logger.NewTestLogger(io.Discard))
	ctx := context.Background()

	_, _ = g.Claim(ctx, "evt_3")
	require.NoError(t, g.Release(ctx, "evt_3"))

	seen, err := g.Seen(ctx, "evt_3")
	require.NoError(t, err)
	assert.False(t, seen)
}

func TestEmptyEventIDAlwaysClaimable(t *testing.T) {
	client, _ := setupTestRedis(t)
	g := NewEventGuard(client, 0, logger.NewTestLogger(io.Discard))

	for i := 0; i < 2; i++ {
		ok, err := g.Claim(context.Background(), "")
		require.NoError(t, err)
		assert.True(t, ok)
	}
}

func TestConcurrentClaims(t *testing.T) {
	client, _ := setupTestRedis(t)
	g := NewEventGuard(client, 0, logger.NewTestLogger(io.Discard))

	const attempts = 20
	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, err := g.Claim(context.Background(), "evt_race"); err == nil && ok {
				atomic.AddInt32(&wins, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins, fmt.Sprintf("exactly one of %d claims should win", attempts))
}

func TestClaimRedisDown(t *testing.T) {
	client, mr := setupTestRedis(t)
	g := NewEventGuard(client, 0, logger.NewTestLogger(io.Discard))
	mr.Close()

	_, err := g.Claim(context.Background(), "evt_4")
	assert.Error(t, err)
}

package ratelimit

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func allowN(t *testing.T, l Limiter, key string, n int) []bool {
	t.Helper()
	out := make([]bool, 0, n)
	for i := 0; i < n; i++ {
		ok, err := l.Allow(context.Background(), key)
		require.NoError(t, err)
		out = append(out, ok)
	}
	return out
}

func TestMemoryFixedWindow(t *testing.T) {
	m := NewMemory(5, 200*time.Millisecond)

	assert.Equal(t, []bool{true, true, true, true, true, false, false}, allowN(t, m, "10.0.0.1", 7))

	// Other clients have their own window.
	assert.Equal(t, []bool{true}, allowN(t, m, "10.0.0.2", 1))

	time.Sleep(250 * time.Millisecond)
	assert.Equal(t, []bool{true, true, true, true, true, false}, allowN(t, m, "10.0.0.1", 6))
}

func TestMemoryWindowDoesNotSlide(t *testing.T) {
	m := NewMemory(2, 300*time.Millisecond)

	assert.Equal(t, []bool{true}, allowN(t, m, "k", 1))
	time.Sleep(150 * time.Millisecond)
	// Rejected hits do not push the reset out.
	assert.Equal(t, []bool{true, false, false}, allowN(t, m, "k", 3))
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, []bool{true}, allowN(t, m, "k", 1))
}

func newMiniredis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisFixedWindow(t *testing.T) {
	mr, client := newMiniredis(t)

	r, err := NewRedis(client, "pair", 5, time.Minute)
	require.NoError(t, err)

	assert.Equal(t, []bool{true, true, true, true, true, false}, allowN(t, r, "10.0.0.1", 6))
	assert.Equal(t, []bool{true}, allowN(t, r, "10.0.0.2", 1))
	assert.Equal(t, time.Minute, mr.TTL("pair:10.0.0.1"))

	mr.FastForward(time.Minute)
	assert.Equal(t, []bool{true}, allowN(t, r, "10.0.0.1", 1))
}

// cancelAfter cancels the caller's context as soon as a command returns, the
// way a client disconnecting mid-request would.
type cancelAfter struct {
	cancel context.CancelFunc
}

func (h *cancelAfter) DialHook(next redis.DialHook) redis.DialHook { return next }

func (h *cancelAfter) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		err := next(ctx, cmd)
		if h.cancel != nil {
			h.cancel()
		}
		return err
	}
}

func (h *cancelAfter) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return next
}

func TestRedisWindowExpiresWhenCallerCancels(t *testing.T) {
	mr, client := newMiniredis(t)

	r, err := NewRedis(client, "rl", 5, time.Minute)
	require.NoError(t, err)

	hook := &cancelAfter{}
	client.AddHook(hook)

	for i := 0; i < 7; i++ {
		ctx, cancel := context.WithCancel(context.Background())
		hook.cancel = cancel
		_, _ = r.Allow(ctx, "1.2.3.4")
		cancel()
	}
	hook.cancel = nil

	assert.Equal(t, time.Minute, mr.TTL("rl:1.2.3.4"))

	mr.FastForward(time.Minute)
	ok, err := r.Allow(context.Background(), "1.2.3.4")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisUnavailable(t *testing.T) {
	mr, client := newMiniredis(t)

	r, err := NewRedis(client, "pair", 5, time.Minute)
	require.NoError(t, err)
	mr.Close()

	_, err = r.Allow(context.Background(), "10.0.0.1")
	assert.Error(t, err)

	_, err = NewRedis(client, "pair", 5, time.Minute)
	assert.ErrorContains(t, err, "redis limiter store")
}

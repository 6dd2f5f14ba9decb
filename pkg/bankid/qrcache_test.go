package bankid

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T, clock *fakeClock, opts ...QRCacheOption) *QRCache {
	t.Helper()
	opts = append([]QRCacheOption{WithClock(clock.Now)}, opts...)
	c := NewQRCache(t.Context(), opts...)
	t.Cleanup(c.Shutdown)
	return c
}

func TestQRCache_AddGet(t *testing.T) {
	clock := newFakeClock()
	c := newTestCache(t, clock)

	c.Add("A", "tok", "sec")

	g, ok := c.Get("A")
	require.True(t, ok)
	assert.False(t, g.IsExpired())

	code, err := g.NextCode()
	require.NoError(t, err)
	assert.Equal(t, "bankid.tok.0."+ComputeAuthCode([]byte("sec"), 0), code)
}

func TestQRCache_AddReplaces(t *testing.T) {
	clock := newFakeClock()
	c := newTestCache(t, clock)

	c.Add("A", "old", "sec")
	clock.Advance(20 * time.Second)
	c.Add("A", "new", "sec")

	g, ok := c.Get("A")
	require.True(t, ok)
	assert.Equal(t, 0, g.ElapsedSeconds())

	code, err := g.NextCode()
	require.NoError(t, err)
	assert.Contains(t, code, "bankid.new.0.")
	assert.Equal(t, 1, c.Len())
}

func TestQRCache_Remove(t *testing.T) {
	clock := newFakeClock()
	c := newTestCache(t, clock)

	c.Add("A", "tok", "sec")
	c.Remove("A")

	_, ok := c.Get("A")
	assert.False(t, ok)

	assert.NotPanics(t, func() {
		c.Remove("A")
		c.Remove("never-added")
	})
	_, ok = c.Get("A")
	assert.False(t, ok)
}

func TestQRCache_GetEvictsExpired(t *testing.T) {
	clock := newFakeClock()
	// keep the sweeper out of the way
	c := newTestCache(t, clock, WithSweepInterval(time.Hour))

	c.Add("A", "tok", "sec")
	c.Add("B", "tok", "sec")
	clock.Advance(29 * time.Second)

	_, ok := c.Get("A")
	assert.True(t, ok)

	clock.Advance(time.Second)
	assert.Equal(t, 2, c.Len())

	_, ok = c.Get("A")
	assert.False(t, ok)
	assert.Equal(t, 1, c.Len(), "expired entry must be removed on read")
}

func TestQRCache_SweepRemovesExpired(t *testing.T) {
	clock := newFakeClock()
	c := newTestCache(t, clock, WithSweepInterval(10*time.Millisecond))

	c.Add("A", "tok", "sec")
	clock.Advance(10 * time.Second)
	c.Add("B", "tok", "sec")

	clock.Advance(25 * time.Second)

	assert.Eventually(t, func() bool {
		return c.Len() == 1
	}, time.Second, 5*time.Millisecond)

	_, ok := c.Get("A")
	assert.False(t, ok)
	_, ok = c.Get("B")
	assert.True(t, ok)
}

func TestQRCache_Sweep(t *testing.T) {
	clock := newFakeClock()
	c := newTestCache(t, clock, WithSweepInterval(time.Hour))

	c.Add("A", "tok", "sec")
	c.Add("B", "tok", "sec")
	clock.Advance(30 * time.Second)
	c.Add("C", "tok", "sec")

	assert.Equal(t, 2, c.sweep())
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, 0, c.sweep())
}

func TestQRCache_Shutdown(t *testing.T) {
	t.Run("returns promptly and is idempotent", func(t *testing.T) {
		c := NewQRCache(t.Context(), WithSweepInterval(time.Hour))

		assert.True(t, c.Running())

		start := time.Now()
		c.Shutdown()
		c.Shutdown()
		assert.Less(t, time.Since(start), time.Second)
		assert.False(t, c.Running())
	})

	t.Run("concurrent callers", func(t *testing.T) {
		c := NewQRCache(t.Context())

		var wg sync.WaitGroup
		for range 10 {
			wg.Go(c.Shutdown)
		}

		done := make(chan struct{})
		go func() {
			wg.Wait()
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("Shutdown did not return")
		}
	})

	t.Run("stops on context cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(t.Context())
		c := NewQRCache(ctx, WithSweepInterval(time.Hour))

		cancel()

		select {
		case <-c.done:
		case <-time.After(2 * time.Second):
			t.Fatal("sweeper did not stop")
		}
		c.Shutdown()
	})

	t.Run("cache stays usable after shutdown", func(t *testing.T) {
		c := NewQRCache(t.Context())
		c.Shutdown()

		c.Add("A", "tok", "sec")
		_, ok := c.Get("A")
		assert.True(t, ok)
	})
}

func TestQRCache_Concurrency(t *testing.T) {
	clock := newFakeClock()
	c := newTestCache(t, clock, WithSweepInterval(time.Millisecond))

	var wg sync.WaitGroup
	for i := range 16 {
		wg.Go(func() {
			ref := fmt.Sprintf("order-%d", i%4)
			for range 200 {
				c.Add(ref, "tok", "sec")
				if g, ok := c.Get(ref); ok {
					_, _ = g.NextCode()
				}
				if i%3 == 0 {
					c.Remove(ref)
				}
				clock.Advance(100 * time.Millisecond)
			}
		})
	}
	wg.Wait()

	assert.LessOrEqual(t, c.Len(), 4)
}

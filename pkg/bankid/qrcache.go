package bankid

import (
	"context"
	"sync"
	"time"

	slogctx "github.com/veqryn/slog-context"
)

// DefaultSweepInterval is how often expired generators are swept.
const DefaultSweepInterval = 5 * time.Second

// OrderRegistry is the part of the QR cache the client needs.
type OrderRegistry interface {
	Add(orderRef, qrStartToken, qrStartSecret string)
	Remove(orderRef string)
}

type QRCacheOption func(*QRCache)

// WithSweepInterval overrides DefaultSweepInterval.
func WithSweepInterval(d time.Duration) QRCacheOption {
	return func(c *QRCache) {
		if d > 0 {
			c.sweepInterval = d
		}
	}
}

// WithClock replaces the time source of the cache and its generators.
func WithClock(now func() time.Time) QRCacheOption {
	return func(c *QRCache) {
		if now != nil {
			c.now = now
		}
	}
}

// QRCache holds at most one live QRGenerator per orderRef. Expired generators
// are evicted when read and by a background sweep.
type QRCache struct {
	mu         sync.Mutex
	generators map[string]*QRGenerator

	now           func() time.Time
	sweepInterval time.Duration

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

var _ OrderRegistry = (*QRCache)(nil)

// NewQRCache creates the cache and starts its sweeper. The sweeper stops on
// Shutdown or when ctx is done.
func NewQRCache(ctx context.Context, opts ...QRCacheOption) *QRCache {
	c := &QRCache{
		generators:    make(map[string]*QRGenerator),
		now:           time.Now,
		sweepInterval: DefaultSweepInterval,
		stop:          make(chan struct{}),
		done:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	go c.sweepLoop(ctx)

	return c
}

// Add creates a generator for orderRef, replacing any previous one.
func (c *QRCache) Add(orderRef, qrStartToken, qrStartSecret string) {
	g := newQRGenerator(qrStartToken, qrStartSecret, c.now)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.generators[orderRef] = g
}

// Get returns the live generator for orderRef. An expired generator is
// removed and reported as absent.
func (c *QRCache) Get(orderRef string) (*QRGenerator, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	g, ok := c.generators[orderRef]
	if !ok {
		return nil, false
	}
	if g.IsExpired() {
		delete(c.generators, orderRef)
		return nil, false
	}
	return g, true
}

// Remove evicts orderRef. Removing an absent key is a no-op.
func (c *QRCache) Remove(orderRef string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.generators, orderRef)
}

// Len returns the number of registered generators, expired or not.
func (c *QRCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.generators)
}

// Running reports whether the sweeper is still active.
func (c *QRCache) Running() bool {
	select {
	case <-c.done:
		return false
	default:
		return true
	}
}

// Shutdown stops the sweeper and waits for it to exit. It is safe to call
// more than once and from several goroutines.
func (c *QRCache) Shutdown() {
	c.stopOnce.Do(func() {
		close(c.stop)
	})
	<-c.done
}

func (c *QRCache) sweepLoop(ctx context.Context) {
	defer close(c.done)

	ticker := time.NewTicker(c.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := c.sweep(); n > 0 {
				slogctx.Debug(ctx, "Swept expired QR generators", "count", n)
			}
		case <-c.stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (c *QRCache) sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for orderRef, g := range c.generators {
		if g.IsExpired() {
			delete(c.generators, orderRef)
			removed++
		}
	}
	return removed
}

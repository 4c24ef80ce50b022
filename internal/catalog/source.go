package catalog

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"storefront-service/internal/domain"
)

// CachingSource shares one remote catalog between sessions. A successful
// fetch is reused for ttl; concurrent misses collapse into a single call that
// is not bound to any one caller's context.
type CachingSource struct {
	next Source
	ttl  time.Duration
	now  func() time.Time
	sfg  singleflight.Group

	mu         sync.RWMutex
	products   []domain.Product
	fetchedAt  time.Time
	generation uint64
}

func NewCachingSource(next Source, ttl time.Duration) *CachingSource {
	return &CachingSource{next: next, ttl: ttl, now: time.Now}
}

func (c *CachingSource) FetchProducts(ctx context.Context) ([]domain.Product, error) {
	c.mu.RLock()
	if c.products != nil && c.now().Sub(c.fetchedAt) < c.ttl {
		products := append([]domain.Product{}, c.products...)
		c.mu.RUnlock()
		return products, nil
	}
	generation := c.generation
	c.mu.RUnlock()

	fetchCtx := context.WithoutCancel(ctx)
	ch := c.sfg.DoChan("products", func() (interface{}, error) {
		products, err := c.next.FetchProducts(fetchCtx)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		if c.generation == generation {
			c.products = append([]domain.Product{}, products...)
			c.fetchedAt = c.now()
		}
		c.mu.Unlock()
		return products, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return append([]domain.Product{}, res.Val.([]domain.Product)...), nil
	}
}

// Invalidate drops the cached catalog, e.g. after an admin edit. A fetch
// already in flight is not cached and later callers start a new one.
func (c *CachingSource) Invalidate() {
	c.mu.Lock()
	c.products = nil
	c.generation++
	c.mu.Unlock()
	c.sfg.Forget("products")
}

package rbac

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"

	"github.com/platinummonkey/permgate/pkg/observability"
)

// Subscriber is implemented by stores that announce committed changes
type Subscriber interface {
	Subscribe(fn func())
}

// CachingResolver memoizes successful resolutions in a size and TTL bounded
// LRU. Concurrent misses for one user share a single resolution. Purge drops
// every entry and stops in-flight resolutions from caching their results, so a
// context resolved before a state change is never served after it.
type CachingResolver struct {
	inner   ContextResolver
	cache   *expirable.LRU[string, *UserContext]
	group   singleflight.Group
	metrics *observability.Metrics

	mu  sync.Mutex
	gen uint64
}

// NewCachingResolver wraps inner with a cache of at most size entries, each
// kept for ttl. size <= 0 means unbounded and ttl <= 0 means no expiry.
func NewCachingResolver(inner ContextResolver, size int, ttl time.Duration, metrics *observability.Metrics) *CachingResolver {
	if size < 0 {
		size = 0
	}
	return &CachingResolver{
		inner:   inner,
		cache:   expirable.NewLRU[string, *UserContext](size, nil, ttl),
		metrics: metrics,
	}
}

// Watch purges the cache whenever any of the stores changes
func (c *CachingResolver) Watch(stores ...Subscriber) {
	for _, s := range stores {
		s.Subscribe(c.Purge)
	}
}

// Resolve returns a cached context or resolves and caches a new one. Errors
// are never cached.
func (c *CachingResolver) Resolve(ctx context.Context, userID string) (*UserContext, error) {
	c.mu.Lock()
	gen := c.gen
	c.mu.Unlock()

	if uc, ok := c.cache.Get(userID); ok {
		c.metrics.RecordCacheLookup(true)
		return uc, nil
	}
	c.metrics.RecordCacheLookup(false)

	key := strconv.FormatUint(gen, 10) + "/" + userID
	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		uc, err := c.inner.Resolve(ctx, userID)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		if c.gen == gen {
			c.cache.Add(userID, uc)
		}
		c.mu.Unlock()

		return uc, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*UserContext), nil
}

// Purge drops every cached context
func (c *CachingResolver) Purge() {
	c.mu.Lock()
	c.gen++
	c.cache.Purge()
	c.mu.Unlock()
	c.metrics.RecordCachePurge()
}

// Len returns the number of cached contexts
func (c *CachingResolver) Len() int {
	return c.cache.Len()
}

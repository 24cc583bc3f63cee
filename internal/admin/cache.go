package admin

import (
	"context"
	"strconv"
	"sync"
	"time"

	shardedcache "github.com/simp-lee/cache"
	"golang.org/x/sync/singleflight"

	"github.com/simp-lee/gymadmin/internal/metrics"
)

// Cache defaults.
const (
	DefaultCacheTTL     = 30 * time.Second
	DefaultCacheMaxSize = 512
)

// QueryCache holds list results by QueryKey, one cache group per resource.
//
// Each fetch is stamped with the generation of its key and the epoch of its
// resource. The stamp is part of the flight key, so a fetch that starts after
// an invalidation never joins one that started before it, and a result whose
// stamp was invalidated while it was in flight is returned to its callers but
// never stored.
type QueryCache struct {
	ttl   time.Duration
	store shardedcache.CacheInterface

	flights   singleflight.Group
	closeOnce sync.Once

	mu     sync.Mutex
	gens   map[string]uint64
	epochs map[string]uint64
}

// NewQueryCache creates a cache. Non-positive arguments use the defaults.
func NewQueryCache(ttl time.Duration, maxSize int) *QueryCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if maxSize <= 0 {
		maxSize = DefaultCacheMaxSize
	}
	return &QueryCache{
		ttl: ttl,
		// A single shard keeps MaxSize a bound on the whole cache.
		store: shardedcache.NewCache(shardedcache.Options{
			MaxSize:           maxSize,
			DefaultExpiration: ttl,
			CleanupInterval:   max(ttl, time.Minute),
			ShardCount:        1,
		}),
		gens:   make(map[string]uint64),
		epochs: make(map[string]uint64),
	}
}

// Fetch returns the cached value for key or loads it with fetch. Concurrent
// callers for the same key share one fetch; a caller whose ctx ends stops
// waiting without cancelling the shared fetch.
func Fetch[T any](ctx context.Context, c *QueryCache, key QueryKey, fetch func(context.Context) (T, error)) (T, error) {
	var zero T
	k := key.String()

	c.mu.Lock()
	if v, ok := c.bucket(key.Resource).Get(k); ok {
		if tv, ok := v.(T); ok {
			c.mu.Unlock()
			metrics.QueryCacheLookups.WithLabelValues(key.Resource, "hit").Inc()
			return tv, nil
		}
	}
	gen, epoch := c.gens[k], c.epochs[key.Resource]
	c.mu.Unlock()

	flight := k + "#" + strconv.FormatUint(gen, 10) + "." + strconv.FormatUint(epoch, 10)
	ch := c.flights.DoChan(flight, func() (any, error) {
		v, err := fetch(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		c.put(k, key.Resource, v, gen, epoch)
		return v, nil
	})

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		outcome := "miss"
		if res.Shared {
			outcome = "shared"
		}
		metrics.QueryCacheLookups.WithLabelValues(key.Resource, outcome).Inc()
		if res.Err != nil {
			return zero, res.Err
		}
		v, _ := res.Val.(T)
		return v, nil
	}
}

func (c *QueryCache) bucket(resource string) shardedcache.Group {
	return c.store.Group(resource)
}

func (c *QueryCache) put(k, resource string, v any, gen, epoch uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gens[k] != gen || c.epochs[resource] != epoch {
		metrics.QueryCacheLookups.WithLabelValues(resource, "stale").Inc()
		return
	}
	c.bucket(resource).SetWithExpiration(k, v, c.ttl)
}

// Invalidate drops one key and makes any fetch of it still in flight stale.
func (c *QueryCache) Invalidate(key QueryKey) {
	k := key.String()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gens[k]++
	c.bucket(key.Resource).Delete(k)
}

// InvalidateResource drops every page of resource, in every locale.
func (c *QueryCache) InvalidateResource(resource string) {
	c.mu.Lock()
	c.epochs[resource]++
	c.bucket(resource).Clear()
	c.mu.Unlock()
	metrics.QueryCacheInvalidations.WithLabelValues(resource).Inc()
}

// Len returns the number of stored entries, including expired ones not yet
// swept.
func (c *QueryCache) Len() int {
	return c.store.Count()
}

// Close stops the background sweeper. It is safe to call more than once.
func (c *QueryCache) Close() {
	c.closeOnce.Do(c.store.Close)
}

package geo

import (
	"context"
	"sync"
)

// Stats counts cache activity.
type Stats struct {
	Size    int   `json:"size"`
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
	Private int64 `json:"private"`
}

// Cache memoizes lookups per IP for the lifetime of the Cache. Failures are
// stored like successes unless the context was cancelled during the lookup, so a serial caller hands each address to the Resolver
// at most once. Entries never expire and are never replaced: if two goroutines
// miss on the same address at once, the first stored result wins.
type Cache struct {
	mu           sync.RWMutex
	resolver     Resolver
	items        map[string]Result
	skipPrivate  bool
	hits, misses int64
	private      int64
}

// Option configures a Cache.
type Option func(*Cache)

// WithPrivateShortCircuit answers Private for private and loopback addresses
// without calling the resolver.
func WithPrivateShortCircuit(on bool) Option {
	return func(c *Cache) { c.skipPrivate = on }
}

// NewCache wraps r. A nil resolver behaves like Nop.
func NewCache(r Resolver, opts ...Option) *Cache {
	if r == nil {
		r = Nop
	}
	c := &Cache{
		resolver: r,
		items:    make(map[string]Result),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Lookup returns the cached result for ip, resolving and storing it on a miss.
func (c *Cache) Lookup(ctx context.Context, ip string) Result {
	c.mu.Lock()
	if res, ok := c.items[ip]; ok {
		c.hits++
		c.mu.Unlock()
		return res
	}
	c.misses++
	c.mu.Unlock()

	var res Result
	if c.skipPrivate && IsPrivate(ip) {
		res = Result{Kind: Private}
	} else {
		res = c.resolver.Resolve(ctx, ip)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	// A lookup cut short by cancellation says nothing about the address.
	if res.Kind == Failed && ctx.Err() != nil {
		return res
	}
	if res.Kind == Private {
		c.private++
	}
	// Keep whatever was stored first.
	if prev, ok := c.items[ip]; ok {
		return prev
	}
	c.items[ip] = res
	return res
}

// Get returns the cached result for ip without resolving.
func (c *Cache) Get(ip string) (Result, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	res, ok := c.items[ip]
	return res, ok
}

// Len returns the number of cached addresses.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Stats returns a snapshot of the cache counters.
func (c *Cache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Stats{
		Size:    len(c.items),
		Hits:    c.hits,
		Misses:  c.misses,
		Private: c.private,
	}
}

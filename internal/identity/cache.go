package identity

import (
	"context"
	"log/slog"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
)

// CachedResolver remembers resolved accounts for a limited time. Failed
// lookups are not cached.
type CachedResolver struct {
	next   Resolver
	cache  *expirable.LRU[string, *Account]
	hits   prometheus.Counter
	misses prometheus.Counter
}

// CacheOption configures a CachedResolver
type CacheOption func(*CachedResolver)

// WithRegisterer exposes cache hit and miss counters on reg
func WithRegisterer(reg prometheus.Registerer) CacheOption {
	return func(c *CachedResolver) {
		if reg == nil {
			return
		}
		c.hits = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sms_identity_cache_hits_total",
			Help: "Number of account lookups answered from the cache.",
		})
		c.misses = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sms_identity_cache_misses_total",
			Help: "Number of account lookups that went to the identity service.",
		})
		for _, collector := range []prometheus.Collector{c.hits, c.misses} {
			if err := reg.Register(collector); err != nil {
				slog.Warn("Failed to register identity cache metric", "error", err)
			}
		}
	}
}

// NewCachedResolver wraps next with an LRU cache of the given size and entry TTL
func NewCachedResolver(next Resolver, size int, ttl time.Duration, opts ...CacheOption) *CachedResolver {
	c := &CachedResolver{
		next:  next,
		cache: expirable.NewLRU[string, *Account](size, nil, ttl),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ResolveAccount implements Resolver
func (c *CachedResolver) ResolveAccount(ctx context.Context, personID string) (*Account, error) {
	if account, ok := c.cache.Get(personID); ok {
		if c.hits != nil {
			c.hits.Inc()
		}
		return account, nil
	}
	if c.misses != nil {
		c.misses.Inc()
	}

	account, err := c.next.ResolveAccount(ctx, personID)
	if err != nil {
		return nil, err
	}
	c.cache.Add(personID, account)
	return account, nil
}

// Purge drops every cached account
func (c *CachedResolver) Purge() {
	c.cache.Purge()
}

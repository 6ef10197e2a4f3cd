package openweather

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/weather-alert-dashboard/internal/domain"
	"github.com/couchcryptid/weather-alert-dashboard/internal/observability"
)

// CachedProvider wraps a Provider with an explicit TTL memoization layer.
// The cache key is derived from the full normalized location query, so two
// different locations can never alias to the same entry.
type CachedProvider struct {
	inner   Provider
	ttl     time.Duration
	clock   clockwork.Clock
	metrics *observability.Metrics

	mu      sync.Mutex
	entries map[string]memoEntry
}

type memoEntry struct {
	conditions domain.Conditions
	storedAt   time.Time
}

// NewCachedProvider creates a memoization decorator around a provider.
// A nil clock selects real time.
func NewCachedProvider(inner Provider, ttl time.Duration, clock clockwork.Clock, metrics *observability.Metrics) *CachedProvider {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &CachedProvider{
		inner:   inner,
		ttl:     ttl,
		clock:   clock,
		metrics: metrics,
		entries: make(map[string]memoEntry),
	}
}

// CurrentConditions returns the memoized conditions for the location when the
// entry is younger than the TTL, otherwise fetches fresh ones. Errors are
// never cached.
func (c *CachedProvider) CurrentConditions(ctx context.Context, location string) (domain.Conditions, error) {
	key := memoKey(location)

	c.mu.Lock()
	entry, ok := c.entries[key]
	if ok && c.clock.Since(entry.storedAt) < c.ttl {
		c.mu.Unlock()
		c.record("hit")
		return entry.conditions, nil
	}
	c.mu.Unlock()

	c.record("miss")
	cond, err := c.inner.CurrentConditions(ctx, location)
	if err != nil {
		return domain.Conditions{}, err
	}

	c.mu.Lock()
	c.entries[key] = memoEntry{conditions: cond, storedAt: c.clock.Now()}
	c.mu.Unlock()
	return cond, nil
}

func (c *CachedProvider) record(result string) {
	if c.metrics != nil {
		c.metrics.WeatherMemoization.WithLabelValues(result).Inc()
	}
}

// memoKey normalizes the location query so case and surrounding whitespace
// do not fragment the cache.
func memoKey(location string) string {
	return strings.ToLower(strings.Join(strings.Fields(location), " "))
}

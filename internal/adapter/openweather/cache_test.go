package openweather

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/weather-alert-dashboard/internal/domain"
	"github.com/couchcryptid/weather-alert-dashboard/internal/observability"
)

type countingProvider struct {
	calls int
	cond  domain.Conditions
	err   error
}

func (p *countingProvider) CurrentConditions(_ context.Context, _ string) (domain.Conditions, error) {
	p.calls++
	return p.cond, p.err
}

func TestCachedProvider_Hit(t *testing.T) {
	inner := &countingProvider{cond: domain.Conditions{Temperature: 25, Source: "OpenWeatherMap"}}
	cached := NewCachedProvider(inner, 5*time.Minute, clockwork.NewFakeClock(), observability.NewMetricsForTesting())

	c1, err := cached.CurrentConditions(context.Background(), "Cordoba,AR")
	require.NoError(t, err)
	c2, err := cached.CurrentConditions(context.Background(), "Cordoba,AR")
	require.NoError(t, err)

	assert.Equal(t, c1, c2)
	assert.Equal(t, 1, inner.calls, "second lookup should be served from memory")
}

func TestCachedProvider_DifferentLocationsMiss(t *testing.T) {
	inner := &countingProvider{cond: domain.Conditions{Temperature: 25}}
	cached := NewCachedProvider(inner, 5*time.Minute, clockwork.NewFakeClock(), nil)

	_, _ = cached.CurrentConditions(context.Background(), "Cordoba,AR")
	_, _ = cached.CurrentConditions(context.Background(), "Rosario,AR")

	assert.Equal(t, 2, inner.calls)
}

func TestCachedProvider_KeyNormalization(t *testing.T) {
	inner := &countingProvider{cond: domain.Conditions{Temperature: 25}}
	cached := NewCachedProvider(inner, 5*time.Minute, clockwork.NewFakeClock(), nil)

	_, _ = cached.CurrentConditions(context.Background(), "Cordoba,AR")
	_, _ = cached.CurrentConditions(context.Background(), "  CORDOBA,AR ")

	assert.Equal(t, 1, inner.calls)
}

func TestCachedProvider_TTLExpiry(t *testing.T) {
	clk := clockwork.NewFakeClock()
	inner := &countingProvider{cond: domain.Conditions{Temperature: 25}}
	cached := NewCachedProvider(inner, 5*time.Minute, clk, nil)

	_, _ = cached.CurrentConditions(context.Background(), "Cordoba,AR")
	clk.Advance(5*time.Minute + time.Second)
	_, _ = cached.CurrentConditions(context.Background(), "Cordoba,AR")

	assert.Equal(t, 2, inner.calls)
}

func TestCachedProvider_ErrorsNotCached(t *testing.T) {
	inner := &countingProvider{err: errors.New("upstream down")}
	cached := NewCachedProvider(inner, 5*time.Minute, clockwork.NewFakeClock(), nil)

	_, err := cached.CurrentConditions(context.Background(), "Cordoba,AR")
	require.Error(t, err)

	inner.err = nil
	inner.cond = domain.Conditions{Temperature: 30}
	cond, err := cached.CurrentConditions(context.Background(), "Cordoba,AR")
	require.NoError(t, err)
	assert.Equal(t, 30.0, cond.Temperature)
	assert.Equal(t, 2, inner.calls)
}

package provider

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// Default rate limits per provider (requests per second).
var defaultRateLimits = map[SourceName]rate.Limit{
	SourceMusicBrainz: 1,
	SourceDiscogs:     1,
	SourceSpotify:     5,
	SourceDeezer:      5,
	SourceBeatport:    2,
}

// RateLimiterMap holds one rate.Limiter per provider, created once at startup
// and shared by every matching run.
type RateLimiterMap struct {
	mu       sync.RWMutex
	limiters map[SourceName]*rate.Limiter
}

// NewRateLimiterMap creates all provider rate limiters.
func NewRateLimiterMap() *RateLimiterMap {
	m := &RateLimiterMap{
		limiters: make(map[SourceName]*rate.Limiter, len(defaultRateLimits)),
	}
	for name, limit := range defaultRateLimits {
		m.limiters[name] = rate.NewLimiter(limit, 1)
	}
	return m
}

// SetLimit replaces the limit for one provider. Used by tests to remove
// throttling and by configuration to honour higher account quotas.
func (m *RateLimiterMap) SetLimit(name SourceName, limit rate.Limit, burst int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.limiters[name] = rate.NewLimiter(limit, burst)
}

// Wait blocks until the rate limiter for the given provider allows a request,
// or the context is canceled.
func (m *RateLimiterMap) Wait(ctx context.Context, name SourceName) error {
	m.mu.RLock()
	limiter, ok := m.limiters[name]
	m.mu.RUnlock()
	if !ok {
		return nil
	}
	return limiter.Wait(ctx)
}

// Unlimited returns a RateLimiterMap that never throttles.
func Unlimited() *RateLimiterMap {
	m := &RateLimiterMap{limiters: make(map[SourceName]*rate.Limiter)}
	for name := range defaultRateLimits {
		m.limiters[name] = rate.NewLimiter(rate.Inf, 1)
	}
	return m
}

// Package ratelimit throttles outbound provider calls with one token bucket
// per provider name.
package ratelimit

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/time/rate"
)

// Limit is a sustained rate with a burst allowance.
type Limit struct {
	RequestsPerSecond float64
	Burst             int
}

// ProviderLimiter lazily creates a limiter per provider.
type ProviderLimiter struct {
	mu       sync.RWMutex
	limiters map[string]*rate.Limiter
	defaults Limit
}

// NewProviderLimiter uses def for providers that have no override. A
// non-positive rate disables throttling.
func NewProviderLimiter(def Limit) *ProviderLimiter {
	return &ProviderLimiter{
		limiters: make(map[string]*rate.Limiter),
		defaults: def,
	}
}

func newLimiter(l Limit) *rate.Limiter {
	if l.RequestsPerSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	burst := l.Burst
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(l.RequestsPerSecond), burst)
}

func (p *ProviderLimiter) limiter(provider string) *rate.Limiter {
	p.mu.RLock()
	l, ok := p.limiters[provider]
	p.mu.RUnlock()
	if ok {
		return l
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if l, ok = p.limiters[provider]; ok {
		return l
	}
	l = newLimiter(p.defaults)
	p.limiters[provider] = l
	return l
}

// Set overrides the limit for one provider.
func (p *ProviderLimiter) Set(provider string, l Limit) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.limiters[provider] = newLimiter(l)
}

// allow reports whether a call may happen now without waiting.
func (p *ProviderLimiter) allow(provider string) bool {
	return p.limiter(provider).Allow()
}

// Wait blocks until provider has a token or ctx is done.
func (p *ProviderLimiter) Wait(ctx context.Context, provider string) error {
	if err := p.limiter(provider).Wait(ctx); err != nil {
		return fmt.Errorf("rate limit %s: %w", provider, err)
	}
	return nil
}

// Package ratelimit spaces out requests to the same upstream host.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter enforces a minimum delay between requests that share a key
// (usually a host name). Keys are independent of each other.
type Limiter struct {
	mu        sync.Mutex
	limiters  map[string]*rate.Limiter
	minDelay  time.Duration
	overrides map[string]time.Duration
}

// New creates a limiter with minDelay between requests per key. overrides
// sets a different delay for specific keys.
func New(minDelay time.Duration, overrides map[string]time.Duration) *Limiter {
	return &Limiter{
		limiters:  make(map[string]*rate.Limiter),
		minDelay:  minDelay,
		overrides: overrides,
	}
}

// Wait blocks until a request for key may proceed. Returns an error if the
// context is cancelled while waiting.
func (l *Limiter) Wait(ctx context.Context, key string) error {
	if err := l.limiter(key).Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait for %s: %w", key, err)
	}
	return nil
}

func (l *Limiter) limiter(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if lim, ok := l.limiters[key]; ok {
		return lim
	}
	delay := l.minDelay
	if d, ok := l.overrides[key]; ok {
		delay = d
	}
	every := rate.Inf
	if delay > 0 {
		every = rate.Every(delay)
	}
	lim := rate.NewLimiter(every, 1)
	l.limiters[key] = lim
	return lim
}

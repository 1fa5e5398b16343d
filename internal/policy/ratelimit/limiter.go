// Package ratelimit implements per-feed token bucket rate limiting.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/jobradar/jobradar/internal/metrics"
	"github.com/jobradar/jobradar/internal/radar"
)

// Limiter manages one token bucket per feed. Buckets replenish at the
// feed's requests_per_minute; a feed with no budget configured is
// unlimited. Exceeding the budget makes the caller wait, never fail.
type Limiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	budgets  map[string]int
}

// New creates a Limiter seeded with the configured feeds.
func New(feeds []radar.Feed) *Limiter {
	budgets := make(map[string]int, len(feeds))
	for _, feed := range feeds {
		budgets[feed.Name] = feed.RequestsPerMinute
	}
	return &Limiter{
		limiters: make(map[string]*rate.Limiter),
		budgets:  budgets,
	}
}

// Wait blocks until the feed's bucket has a token, respecting the
// context. Burst is kept at 1 so request spacing stays even.
func (l *Limiter) Wait(ctx context.Context, feed string) error {
	limiter := l.limiterFor(feed)

	start := time.Now()
	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait for %s: %w", feed, err)
	}
	if delay := time.Since(start); delay > time.Millisecond {
		metrics.ObserveRateLimitDelay(feed, delay)
	}
	return nil
}

func (l *Limiter) limiterFor(feed string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	limiter, exists := l.limiters[feed]
	if !exists {
		limiter = rate.NewLimiter(limitFor(l.budgets[feed]), 1)
		l.limiters[feed] = limiter
	}
	return limiter
}

func limitFor(perMinute int) rate.Limit {
	if perMinute <= 0 {
		return rate.Inf
	}
	return rate.Limit(float64(perMinute) / 60.0)
}

// Package retry classifies fetch failures and schedules bounded
// retries for the transient ones.
package retry

import (
	"errors"
	"math/rand"
	"time"

	"github.com/jobradar/jobradar/internal/radar"
)

// DefaultMaxAttempts bounds retries per feed per cycle.
const DefaultMaxAttempts = 3

// Policy decides whether a failed fetch attempt is retried and how
// long to wait before the next attempt.
type Policy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// New returns a Policy with the given attempt bound; zero or negative
// falls back to DefaultMaxAttempts.
func New(maxAttempts int) Policy {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return Policy{
		MaxAttempts:    maxAttempts,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     30 * time.Second,
	}
}

// ShouldRetry reports whether the attempt (1-based) may be repeated.
// Permanent failures never retry regardless of remaining budget.
func (p Policy) ShouldRetry(attempt int, err error) bool {
	if attempt >= p.MaxAttempts {
		return false
	}
	return radar.IsTransient(err)
}

// Backoff returns how long to wait before the next attempt. A server
// Retry-After wins; otherwise the feed's configured retry_after; as a
// last resort, jittered exponential backoff from the attempt number.
func (p Policy) Backoff(attempt int, err error, feed radar.Feed) time.Duration {
	var fe *radar.FetchError
	if errors.As(err, &fe) && fe.RetryAfter > 0 {
		return fe.RetryAfter
	}
	if feed.RetryAfterSeconds > 0 {
		return feed.RetryAfter()
	}
	return p.exponential(attempt)
}

func (p Policy) exponential(attempt int) time.Duration {
	backoff := p.InitialBackoff
	for i := 1; i < attempt; i++ {
		backoff *= 2
		if backoff >= p.MaxBackoff {
			backoff = p.MaxBackoff
			break
		}
	}
	// Up to 25% jitter keeps parallel feeds from retrying in lockstep.
	jitter := time.Duration(rand.Int63n(int64(backoff)/4 + 1))
	return backoff + jitter
}

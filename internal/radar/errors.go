package radar

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"time"
)

// ParseError reports a payload the declared parser variant could not
// recognize structurally. Zero matches is not a ParseError.
type ParseError struct {
	Feed string
	Msg  string
	Err  error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse %s: %s: %v", e.Feed, e.Msg, e.Err)
	}
	return fmt.Sprintf("parse %s: %s", e.Feed, e.Msg)
}

func (e *ParseError) Unwrap() error { return e.Err }

// FetchError reports a failed payload retrieval. Transient failures
// (timeouts, 429, 5xx) are retried; permanent ones are not.
type FetchError struct {
	Feed       string
	StatusCode int
	Transient  bool
	RetryAfter time.Duration
	Err        error
}

func (e *FetchError) Error() string {
	kind := "permanent"
	if e.Transient {
		kind = "transient"
	}
	if e.StatusCode > 0 {
		return fmt.Sprintf("fetch %s: %s failure (status %d): %v", e.Feed, kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s: %s failure: %v", e.Feed, kind, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// IsTransient reports whether err should be retried. Typed FetchErrors
// carry their own classification; otherwise network timeouts and
// temporary errors qualify, context cancellation never does.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Transient
	}
	var ue *url.Error
	if errors.As(err, &ue) && ue.Timeout() {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return ne.Timeout()
	}
	return false
}

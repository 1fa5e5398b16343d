package radar

import (
	"context"
	"time"
)

// Parser turns a raw feed payload into normalized jobs. Zero jobs is a
// valid result; a structurally unrecognizable payload is a *ParseError.
type Parser interface {
	Parse(payload []byte, feed Feed) ([]Job, error)
}

// Fetcher retrieves a feed's raw payload over plain HTTP.
type Fetcher interface {
	Fetch(ctx context.Context, feed Feed) ([]byte, error)
}

// Renderer retrieves a page through a headless browser and returns the
// rendered DOM. Treated as an opaque fetch step by the HTML parser.
type Renderer interface {
	Render(ctx context.Context, url string, headers map[string]string) ([]byte, error)
}

// Limiter gates outbound requests per feed.
type Limiter interface {
	Wait(ctx context.Context, feed string) error
}

// Scorer assigns a relevance score (0..10) and the matching category
// tags. Total over any job: malformed input scores zero, never errors.
type Scorer interface {
	Score(job Job) (int, []string)
}

// Store reconciles normalized jobs against durable storage and serves
// the read API.
type Store interface {
	Upsert(ctx context.Context, job Job) (Outcome, error)
	Search(ctx context.Context, q Query) (SearchPage, error)
	FilterOptions(ctx context.Context) (FilterOptions, error)
	Close() error
}

// Notifier consumes the inserted subset of a cycle. Delivery failures
// must not affect the pipeline.
type Notifier interface {
	Notify(ctx context.Context, jobs []Job) error
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

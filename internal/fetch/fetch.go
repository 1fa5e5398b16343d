// Package fetch implements the plain-HTTP feed fetcher using gocolly.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/jobradar/jobradar/internal/radar"
)

// Config controls collector behavior.
type Config struct {
	UserAgent string
	Timeout   time.Duration
}

// Fetcher implements radar.Fetcher using the Colly collector. Each
// Fetch clones the base collector so per-feed headers never leak
// between requests.
type Fetcher struct {
	cfg           Config
	logger        *zap.Logger
	baseCollector *colly.Collector
}

// New builds a Fetcher.
func New(cfg Config, logger *zap.Logger) *Fetcher {
	c := colly.NewCollector(colly.Async(false))
	c.WithTransport(newHTTPTransport())

	return &Fetcher{
		cfg:           cfg,
		logger:        logger,
		baseCollector: c,
	}
}

// Fetch executes a single HTTP GET for the feed URL and returns the
// raw payload. HTTP failures come back as *radar.FetchError with the
// transient/permanent classification already applied.
func (f *Fetcher) Fetch(ctx context.Context, feed radar.Feed) ([]byte, error) {
	collector := f.buildCollector(feed)
	f.logger.Debug("fetching feed",
		zap.String("feed", feed.Name),
		zap.String("url", feed.URL))

	var (
		body     []byte
		fetchErr error
	)
	collector.OnResponse(func(r *colly.Response) {
		body = append([]byte(nil), r.Body...)
	})
	collector.OnError(func(r *colly.Response, err error) {
		fetchErr = classify(feed, r, err)
	})

	if err := f.runCollector(ctx, collector, feed); err != nil {
		return nil, err
	}
	if fetchErr != nil {
		return nil, fetchErr
	}
	return body, nil
}

func (f *Fetcher) buildCollector(feed radar.Feed) *colly.Collector {
	collector := f.baseCollector.Clone()
	collector.IgnoreRobotsTxt = true
	if f.cfg.UserAgent != "" {
		collector.UserAgent = f.cfg.UserAgent
	}
	timeout := f.cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	collector.SetRequestTimeout(timeout)

	collector.OnRequest(func(r *colly.Request) {
		for key, value := range feed.Headers {
			r.Headers.Set(key, value)
		}
	})
	return collector
}

func (f *Fetcher) runCollector(ctx context.Context, collector *colly.Collector, feed radar.Feed) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(feed.URL)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("fetch %s canceled: %w", feed.Name, ctx.Err())
	case err := <-done:
		if err != nil {
			// Visit errors without an OnError callback are URL-level
			// problems (malformed URL, unsupported scheme): permanent.
			return &radar.FetchError{Feed: feed.Name, Err: err}
		}
		return nil
	}
}

// classify maps an HTTP failure onto the retry taxonomy: 429 and 5xx
// are transient, other 4xx are permanent, transport errors follow
// their timeout flag.
func classify(feed radar.Feed, r *colly.Response, err error) error {
	fe := &radar.FetchError{Feed: feed.Name, Err: err}
	if r != nil {
		fe.StatusCode = r.StatusCode
	}
	switch {
	case fe.StatusCode == http.StatusTooManyRequests:
		fe.Transient = true
		fe.RetryAfter = parseRetryAfter(r)
	case fe.StatusCode >= 500:
		fe.Transient = true
	case fe.StatusCode >= 400:
		fe.Transient = false
	default:
		var ne net.Error
		if errors.As(err, &ne) {
			fe.Transient = ne.Timeout()
		}
	}
	return fe
}

func parseRetryAfter(r *colly.Response) time.Duration {
	if r == nil || r.Headers == nil {
		return 0
	}
	raw := r.Headers.Get("Retry-After")
	if raw == "" {
		return 0
	}
	if secs, err := strconv.Atoi(raw); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(raw); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}

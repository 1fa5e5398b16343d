// Package pipeline drives one fetch cycle across all configured feeds:
// rate-limited fetch, parse, score, reconcile into storage, and
// notification of newly inserted jobs. One feed's failure never
// affects another's processing.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jobradar/jobradar/internal/metrics"
	"github.com/jobradar/jobradar/internal/policy/retry"
	"github.com/jobradar/jobradar/internal/radar"
)

// Options control one cycle.
type Options struct {
	SmartFilter bool
	MinScore    int
	Categories  []string
	// FeedLimit caps the records taken per feed; zero means no cap.
	FeedLimit    int
	Concurrency  int
	CycleTimeout time.Duration
	MaxRetries   int
}

// Pipeline wires the cycle collaborators together.
type Pipeline struct {
	feeds    []radar.Feed
	parsers  ParserRegistry
	fetcher  radar.Fetcher
	renderer radar.Renderer
	limiter  radar.Limiter
	scorer   radar.Scorer
	store    radar.Store
	notifier radar.Notifier
	clock    radar.Clock
	logger   *zap.Logger
}

// ParserRegistry resolves the parser variant for a feed.
type ParserRegistry interface {
	For(feed radar.Feed) (radar.Parser, error)
}

// New builds a Pipeline. renderer and notifier may be nil; a nil
// renderer fails feeds that require rendering, a nil notifier drops
// the inserted set silently.
func New(
	feeds []radar.Feed,
	parsers ParserRegistry,
	fetcher radar.Fetcher,
	renderer radar.Renderer,
	limiter radar.Limiter,
	scorer radar.Scorer,
	store radar.Store,
	notifier radar.Notifier,
	clock radar.Clock,
	logger *zap.Logger,
) *Pipeline {
	return &Pipeline{
		feeds:    feeds,
		parsers:  parsers,
		fetcher:  fetcher,
		renderer: renderer,
		limiter:  limiter,
		scorer:   scorer,
		store:    store,
		notifier: notifier,
		clock:    clock,
		logger:   logger,
	}
}

// RunCycle processes every configured feed once and always returns one
// FetchResult per feed. Only a configuration-level failure (no feeds)
// returns an error.
func (p *Pipeline) RunCycle(ctx context.Context, opts Options) (radar.CycleSummary, error) {
	if len(p.feeds) == 0 {
		return radar.CycleSummary{}, fmt.Errorf("no feeds configured")
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	if opts.CycleTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.CycleTimeout)
		defer cancel()
	}

	started := p.clock.Now()
	policy := retry.New(opts.MaxRetries)
	results := make([]radar.FetchResult, len(p.feeds))

	var (
		insertedMu sync.Mutex
		inserted   []radar.Job
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)
	for i, feed := range p.feeds {
		g.Go(func() error {
			result, newJobs := p.processFeed(gctx, feed, opts, policy)
			results[i] = result
			if len(newJobs) > 0 {
				insertedMu.Lock()
				inserted = append(inserted, newJobs...)
				insertedMu.Unlock()
			}
			return nil
		})
	}
	// Workers never return errors; Wait only synchronizes.
	_ = g.Wait()

	summary := radar.CycleSummary{
		Results:  results,
		Inserted: inserted,
		Started:  started,
		Duration: p.clock.Now().Sub(started),
	}
	p.notify(ctx, inserted)
	return summary, nil
}

// processFeed runs one feed's fetch-parse-score-persist sequence. All
// failures, panics included, are converted into the FetchResult.
func (p *Pipeline) processFeed(ctx context.Context, feed radar.Feed, opts Options, policy retry.Policy) (result radar.FetchResult, inserted []radar.Job) {
	result = radar.FetchResult{Feed: feed.Name, Status: radar.StatusOK}
	start := time.Now()
	metrics.IncActiveFetches()
	defer func() {
		metrics.DecActiveFetches()
		if r := recover(); r != nil {
			p.logger.Error("feed worker panic",
				zap.String("feed", feed.Name),
				zap.Any("panic", r))
			result = radar.FetchResult{
				Feed:   feed.Name,
				Status: radar.StatusFailed,
				Error:  fmt.Sprintf("panic: %v", r),
			}
			inserted = nil
		}
		metrics.ObserveFeedFetch(feed.Name, string(result.Status), time.Since(start))
	}()

	jobs, err := p.fetchAndParse(ctx, feed, policy)
	if err != nil {
		p.logger.Warn("feed failed",
			zap.String("feed", feed.Name),
			zap.Error(err))
		result.Status = radar.StatusFailed
		result.Error = err.Error()
		return result, nil
	}
	result.Fetched = len(jobs)
	metrics.ObserveJobsFetched(feed.Name, len(jobs))

	if opts.FeedLimit > 0 && len(jobs) > opts.FeedLimit {
		jobs = jobs[:opts.FeedLimit]
	}

	kept := p.gate(feed, jobs, opts)
	result.Kept = len(kept)

	// Upserts preserve the parser's emission order. The first
	// persistence error marks the feed partial; earlier records stay.
	for _, job := range kept {
		outcome, err := p.store.Upsert(ctx, job)
		if err != nil {
			p.logger.Error("persist failed",
				zap.String("feed", feed.Name),
				zap.String("title", job.Title),
				zap.Error(err))
			result.Status = radar.StatusPartial
			result.Error = err.Error()
			break
		}
		result.Persisted++
		metrics.ObserveUpsert(feed.Name, string(outcome))
		if outcome == radar.OutcomeInserted {
			result.Inserted++
			inserted = append(inserted, job)
		}
	}

	p.logger.Info("feed processed",
		zap.String("feed", feed.Name),
		zap.String("status", string(result.Status)),
		zap.Int("fetched", result.Fetched),
		zap.Int("kept", result.Kept),
		zap.Int("persisted", result.Persisted),
		zap.Int("inserted", result.Inserted))
	return result, inserted
}

func (p *Pipeline) fetchAndParse(ctx context.Context, feed radar.Feed, policy retry.Policy) ([]radar.Job, error) {
	parser, err := p.parsers.For(feed)
	if err != nil {
		return nil, err
	}

	payload, err := p.fetchWithRetry(ctx, feed, policy)
	if err != nil {
		return nil, err
	}

	jobs, err := parser.Parse(payload, feed)
	if err != nil {
		return nil, err
	}
	return jobs, nil
}

func (p *Pipeline) fetchWithRetry(ctx context.Context, feed radar.Feed, policy retry.Policy) ([]byte, error) {
	var lastErr error
	for attempt := 1; ; attempt++ {
		if err := p.limiter.Wait(ctx, feed.Name); err != nil {
			return nil, err
		}

		payload, err := p.fetchOnce(ctx, feed)
		if err == nil {
			return payload, nil
		}
		lastErr = err

		if !policy.ShouldRetry(attempt, err) {
			return nil, lastErr
		}
		backoff := policy.Backoff(attempt, err, feed)
		p.logger.Warn("retrying feed fetch",
			zap.String("feed", feed.Name),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", backoff),
			zap.Error(err))
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("fetch %s canceled: %w", feed.Name, ctx.Err())
		case <-time.After(backoff):
		}
	}
}

func (p *Pipeline) fetchOnce(ctx context.Context, feed radar.Feed) ([]byte, error) {
	if feed.Render {
		if p.renderer == nil {
			return nil, fmt.Errorf("feed %s requires rendering but no renderer is configured", feed.Name)
		}
		return p.renderer.Render(ctx, feed.URL, feed.Headers)
	}
	return p.fetcher.Fetch(ctx, feed)
}

// gate scores every job and, when smart filtering is on, drops the
// irrelevant ones before they reach storage. Scoring happens either
// way so persisted records always carry score and categories.
func (p *Pipeline) gate(feed radar.Feed, jobs []radar.Job, opts Options) []radar.Job {
	kept := jobs[:0]
	for _, job := range jobs {
		job.Score, job.Categories = p.scorer.Score(job)
		if opts.SmartFilter && !relevant(job, opts) {
			metrics.ObserveFiltered(feed.Name)
			continue
		}
		kept = append(kept, job)
	}
	return kept
}

func relevant(job radar.Job, opts Options) bool {
	if job.Score < opts.MinScore {
		return false
	}
	if len(opts.Categories) == 0 {
		return true
	}
	for _, want := range opts.Categories {
		for _, have := range job.Categories {
			if have == want {
				return true
			}
		}
	}
	return false
}

func (p *Pipeline) notify(ctx context.Context, inserted []radar.Job) {
	if p.notifier == nil || len(inserted) == 0 {
		return
	}
	if err := p.notifier.Notify(ctx, inserted); err != nil {
		p.logger.Warn("notification delivery failed",
			zap.Int("jobs", len(inserted)),
			zap.Error(err))
	}
}

package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/jobradar/jobradar/internal/fetch"
	"github.com/jobradar/jobradar/internal/notify"
	"github.com/jobradar/jobradar/internal/parser"
	"github.com/jobradar/jobradar/internal/pipeline"
	"github.com/jobradar/jobradar/internal/policy/ratelimit"
	"github.com/jobradar/jobradar/internal/radar"
	"github.com/jobradar/jobradar/internal/render"
	"github.com/jobradar/jobradar/internal/score"
	"github.com/jobradar/jobradar/internal/store/memory"
	"github.com/jobradar/jobradar/internal/store/postgres"
	"github.com/jobradar/jobradar/internal/store/sqlite"

	"github.com/jobradar/jobradar/internal/clock/system"
)

// buildStore opens the configured persistence backend.
func buildStore(ctx context.Context) (radar.Store, error) {
	clock := system.New()
	identities := identityModes()

	switch cfg.Storage.Driver {
	case "memory":
		return memory.New(clock, identities), nil
	case "sqlite":
		return sqlite.New(cfg.Storage.Path, clock, identities)
	case "postgres":
		return postgres.New(ctx, cfg.Storage.DSN, clock, identities)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

func identityModes() map[string]radar.IdentityMode {
	modes := make(map[string]radar.IdentityMode, len(cfg.Feeds))
	for _, feed := range cfg.Feeds {
		modes[feed.Name] = feed.Identity
	}
	return modes
}

// buildPipeline assembles the fetch cycle around the given store. The
// returned cleanup releases the renderer and notifier resources.
func buildPipeline(ctx context.Context, store radar.Store) (*pipeline.Pipeline, func(), error) {
	fetcher := fetch.New(fetch.Config{
		UserAgent: cfg.Fetch.UserAgent,
		Timeout:   cfg.RequestTimeout(),
	}, logger)

	var (
		renderer radar.Renderer
		cleanups []func()
	)
	if cfg.Render.Enabled {
		r, err := render.New(render.Config{
			MaxParallel:       cfg.Render.MaxParallel,
			UserAgent:         cfg.Fetch.UserAgent,
			NavigationTimeout: time.Duration(cfg.Render.NavTimeoutSeconds) * time.Second,
		}, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("init renderer: %w", err)
		}
		renderer = r
		cleanups = append(cleanups, r.Close)
	}

	notifier, err := buildNotifier(ctx, &cleanups)
	if err != nil {
		runCleanups(cleanups)
		return nil, nil, err
	}

	p := pipeline.New(
		cfg.Feeds,
		parser.NewRegistry(logger),
		fetcher,
		renderer,
		ratelimit.New(cfg.Feeds),
		score.New(cfg.SmartFilter.Categories),
		store,
		notifier,
		system.New(),
		logger,
	)
	return p, func() { runCleanups(cleanups) }, nil
}

func buildNotifier(ctx context.Context, cleanups *[]func()) (radar.Notifier, error) {
	channels := []radar.Notifier{notify.NewLog(logger)}

	if cfg.Notify.Telegram.Enabled {
		channels = append(channels, notify.NewTelegram(cfg.Notify.Telegram.Token, cfg.Notify.Telegram.ChatID))
	}
	if cfg.Notify.PubSub.Enabled {
		ps, err := notify.NewPubSub(ctx, cfg.Notify.PubSub.ProjectID, cfg.Notify.PubSub.TopicName)
		if err != nil {
			return nil, fmt.Errorf("init pubsub notifier: %w", err)
		}
		*cleanups = append(*cleanups, func() { _ = ps.Close() })
		channels = append(channels, ps)
	}

	return notify.NewMulti(logger, channels...), nil
}

func runCleanups(cleanups []func()) {
	for i := len(cleanups) - 1; i >= 0; i-- {
		cleanups[i]()
	}
}

func pipelineOptions() pipeline.Options {
	return pipeline.Options{
		SmartFilter:  cfg.SmartFilter.Enabled,
		MinScore:     cfg.SmartFilter.MinScore,
		Categories:   cfg.SmartFilter.Categories,
		Concurrency:  cfg.Fetch.Concurrency,
		CycleTimeout: cfg.CycleTimeout(),
		MaxRetries:   cfg.Fetch.MaxRetries,
	}
}

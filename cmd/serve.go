package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jobradar/jobradar/internal/api"
)

func newServeCmd() *cobra.Command {
	var fetchOnStart bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serves the job API, optionally running scheduled fetch cycles",
		Long: `Starts the HTTP API on the configured port. When server.fetch_schedule
is set (cron syntax), fetch cycles run in the background on that
schedule; --fetch-on-start runs one cycle immediately.`,

		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			store, err := buildStore(ctx)
			if err != nil {
				return fmt.Errorf("open storage: %w", err)
			}
			defer func() {
				if cerr := store.Close(); cerr != nil {
					logger.Warn("close storage", zap.Error(cerr))
				}
			}()

			p, cleanup, err := buildPipeline(ctx, store)
			if err != nil {
				return err
			}
			defer cleanup()

			runCycle := func() {
				summary, err := p.RunCycle(ctx, pipelineOptions())
				if err != nil {
					logger.Error("fetch cycle failed", zap.Error(err))
					return
				}
				logger.Info("fetch cycle complete",
					zap.Int("feeds", len(summary.Results)),
					zap.Int("new_jobs", len(summary.Inserted)),
					zap.Duration("duration", summary.Duration))
			}

			var scheduler *cron.Cron
			if cfg.Server.FetchSchedule != "" {
				scheduler = cron.New()
				if _, err := scheduler.AddFunc(cfg.Server.FetchSchedule, runCycle); err != nil {
					return fmt.Errorf("invalid fetch schedule %q: %w", cfg.Server.FetchSchedule, err)
				}
				scheduler.Start()
				defer scheduler.Stop()
				logger.Info("fetch scheduler started", zap.String("schedule", cfg.Server.FetchSchedule))
			}
			if fetchOnStart {
				go runCycle()
			}

			srv := &http.Server{
				Addr: fmt.Sprintf(":%d", cfg.Server.Port),
				Handler: api.NewServer(store, logger, api.Config{
					APIKey:         cfg.Server.APIKey,
					RequestTimeout: cfg.RequestTimeout(),
				}).Handler(),
				ReadHeaderTimeout: 5 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Info("API server listening", zap.Int("port", cfg.Server.Port))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
			}()

			select {
			case err := <-errCh:
				return fmt.Errorf("serve API: %w", err)
			case <-ctx.Done():
			}

			logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("shutdown API server: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&fetchOnStart, "fetch-on-start", false, "run one fetch cycle immediately on startup")

	return cmd
}

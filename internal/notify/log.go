package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/jobradar/jobradar/internal/radar"
)

// Log writes one structured line per new job. Always configured; the
// cheapest way to see what a cycle discovered.
type Log struct {
	logger *zap.Logger
}

// NewLog returns a logging notifier.
func NewLog(logger *zap.Logger) *Log {
	return &Log{logger: logger}
}

// Notify logs each job at info level.
func (l *Log) Notify(_ context.Context, jobs []radar.Job) error {
	for _, job := range jobs {
		l.logger.Info("new job",
			zap.String("title", job.Title),
			zap.String("company", job.Company),
			zap.String("source", job.Source),
			zap.String("url", job.URL),
			zap.Int("score", job.Score),
			zap.Strings("categories", job.Categories))
	}
	return nil
}

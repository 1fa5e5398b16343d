// Package notify delivers newly discovered jobs to outbound channels.
// Delivery is best effort: a failing channel never affects the fetch
// pipeline or the other channels.
package notify

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/jobradar/jobradar/internal/radar"
)

// Multi fans one notification out to several channels. Every channel
// is attempted even when earlier ones fail.
type Multi struct {
	channels []radar.Notifier
	logger   *zap.Logger
}

// NewMulti builds a fan-out notifier. Nil channels are skipped.
func NewMulti(logger *zap.Logger, channels ...radar.Notifier) *Multi {
	active := make([]radar.Notifier, 0, len(channels))
	for _, c := range channels {
		if c != nil {
			active = append(active, c)
		}
	}
	return &Multi{channels: active, logger: logger}
}

// Notify delivers to every channel and returns the joined failures.
func (m *Multi) Notify(ctx context.Context, jobs []radar.Job) error {
	if len(jobs) == 0 {
		return nil
	}
	var errs []error
	for _, c := range m.channels {
		if err := c.Notify(ctx, jobs); err != nil {
			m.logger.Warn("notification channel failed",
				zap.Int("jobs", len(jobs)),
				zap.Error(err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

package worker

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// TokenPurger deletes refresh tokens that can no longer be used.
type TokenPurger interface {
	PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

// TokenCleanupWorker periodically removes expired and revoked refresh tokens.
type TokenCleanupWorker struct {
	purger   TokenPurger
	logger   *logrus.Entry
	interval time.Duration
	now      func() time.Time
}

func NewTokenCleanupWorker(purger TokenPurger, interval time.Duration, logger *logrus.Entry) *TokenCleanupWorker {
	if interval <= 0 {
		interval = time.Hour
	}
	return &TokenCleanupWorker{
		purger:   purger,
		logger:   logger,
		interval: interval,
		now:      time.Now,
	}
}

// Start runs until ctx is cancelled. One sweep happens immediately.
func (w *TokenCleanupWorker) Start(ctx context.Context) {
	w.logger.Info("Starting token cleanup worker...")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.sweep(ctx)
	for {
		select {
		case <-ticker.C:
			w.sweep(ctx)
		case <-ctx.Done():
			w.logger.Info("Stopping token cleanup worker...")
			return
		}
	}
}

func (w *TokenCleanupWorker) sweep(ctx context.Context) int64 {
	removed, err := w.purger.PurgeExpired(ctx, w.now())
	if err != nil {
		if ctx.Err() == nil {
			w.logger.WithError(err).Error("token cleanup failed")
		}
		return 0
	}
	if removed > 0 {
		w.logger.WithField("removed", removed).Info("purged refresh tokens")
	}
	return removed
}

package pipeline

import (
	"context"
	"log/slog"
	"time"
)

// Syncer runs one full import pass across all linked wallets. Satisfied by
// service.SyncService.
type Syncer interface {
	SyncAll(ctx context.Context) error
}

// SyncLoop periodically imports new trades for every linked wallet.
type SyncLoop struct {
	syncer   Syncer
	interval time.Duration
	logger   *slog.Logger
}

// NewSyncLoop creates a SyncLoop that runs a full sync every interval.
func NewSyncLoop(syncer Syncer, interval time.Duration, logger *slog.Logger) *SyncLoop {
	return &SyncLoop{
		syncer:   syncer,
		interval: interval,
		logger:   logger.With(slog.String("component", "sync_loop")),
	}
}

// Run performs an immediate sync pass and then repeats on the configured
// interval until the context is cancelled. A failed pass is logged and the
// loop keeps going.
func (l *SyncLoop) Run(ctx context.Context) error {
	l.logger.Info("sync loop started", slog.Duration("interval", l.interval))

	if err := l.syncer.SyncAll(ctx); err != nil {
		l.logger.Error("sync pass failed", slog.String("error", err.Error()))
	}

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			l.logger.Info("sync loop stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := l.syncer.SyncAll(ctx); err != nil {
				l.logger.Error("sync pass failed", slog.String("error", err.Error()))
			}
		}
	}
}

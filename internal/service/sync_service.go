package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/tradejournal/internal/domain"
	"github.com/alanyoungcy/tradejournal/internal/notify"
)

// Notifier delivers filtered operator notifications. Satisfied by
// notify.Notifier.
type Notifier interface {
	Notify(ctx context.Context, event, title, message string) error
}

// SyncService imports new trades from a feed into the immutable trade log and
// triggers position recomputation. Every run is recorded as a SyncJob.
type SyncService struct {
	wallets   domain.WalletStore
	trades    domain.TradeStore
	jobs      domain.SyncJobStore
	feed      domain.TradeFeed
	positions *PositionService
	bus       domain.SignalBus
	notifier  Notifier
	logger    *slog.Logger
}

// NewSyncService creates a SyncService with all required dependencies.
func NewSyncService(
	wallets domain.WalletStore,
	trades domain.TradeStore,
	jobs domain.SyncJobStore,
	feed domain.TradeFeed,
	positions *PositionService,
	bus domain.SignalBus,
	notifier Notifier,
	logger *slog.Logger,
) *SyncService {
	return &SyncService{
		wallets:   wallets,
		trades:    trades,
		jobs:      jobs,
		feed:      feed,
		positions: positions,
		bus:       bus,
		notifier:  notifier,
		logger:    logger,
	}
}

// SyncWallet imports a wallet's new trades since the last recorded block time
// and rebuilds its positions. The returned job carries the import counters;
// failures are recorded on the job before the error is returned.
func (s *SyncService) SyncWallet(ctx context.Context, address string) (domain.SyncJob, error) {
	wallet, err := s.wallets.GetByAddress(ctx, address)
	if err != nil {
		return domain.SyncJob{}, fmt.Errorf("sync_service: get wallet %s: %w", address, err)
	}

	job := domain.SyncJob{
		ID:            uuid.New().String(),
		WalletAddress: wallet.Address,
		Source:        s.feed.Name(),
		Status:        domain.SyncJobStatusRunning,
		StartedAt:     time.Now().UTC(),
	}
	if err := s.jobs.Create(ctx, job); err != nil {
		return domain.SyncJob{}, fmt.Errorf("sync_service: create job: %w", err)
	}

	job, err = s.run(ctx, job, wallet)
	if err != nil {
		if failErr := s.jobs.Fail(ctx, job.ID, err.Error()); failErr != nil {
			s.logger.ErrorContext(ctx, "sync_service: mark job failed",
				slog.String("job_id", job.ID),
				slog.String("error", failErr.Error()),
			)
		}
		return job, err
	}

	if err := s.jobs.Complete(ctx, job.ID, job.TradesImported, job.PositionsBuilt, job.Warnings); err != nil {
		return job, fmt.Errorf("sync_service: complete job %s: %w", job.ID, err)
	}
	return job, nil
}

func (s *SyncService) run(ctx context.Context, job domain.SyncJob, wallet domain.Wallet) (domain.SyncJob, error) {
	since, err := s.trades.GetLastBlockTime(ctx, wallet.Address)
	if err != nil {
		return job, fmt.Errorf("sync_service: last block time for %s: %w", wallet.Address, err)
	}

	fetched, err := s.feed.FetchTrades(ctx, wallet, since)
	if err != nil {
		return job, fmt.Errorf("sync_service: fetch trades for %s: %w", wallet.Address, err)
	}

	for i, t := range fetched {
		if err := t.Validate(); err != nil {
			return job, fmt.Errorf("sync_service: fetched trade %d (%s): %w", i, t.Signature, err)
		}
	}

	inserted, err := s.trades.InsertBatch(ctx, fetched)
	if err != nil {
		return job, fmt.Errorf("sync_service: insert trades for %s: %w", wallet.Address, err)
	}
	job.TradesImported = int(inserted)

	if inserted > 0 {
		evt, _ := json.Marshal(map[string]any{
			"event":    "trades_imported",
			"wallet":   wallet.Address,
			"imported": inserted,
			"source":   s.feed.Name(),
		})
		if pubErr := s.bus.Publish(ctx, "journal.trades", evt); pubErr != nil {
			s.logger.WarnContext(ctx, "sync_service: publish event failed",
				slog.String("wallet", wallet.Address),
				slog.String("error", pubErr.Error()),
			)
		}
	}

	// Recompute even when nothing new arrived so cached prices refresh
	// unrealized P&L on open positions.
	res, err := s.positions.Recompute(ctx, wallet.Address)
	if err != nil {
		return job, fmt.Errorf("sync_service: recompute after sync: %w", err)
	}
	job.PositionsBuilt = res.Positions
	job.Warnings = len(res.Warnings)

	s.logger.InfoContext(ctx, "sync_service: wallet synced",
		slog.String("wallet", wallet.Address),
		slog.String("job_id", job.ID),
		slog.Int("fetched", len(fetched)),
		slog.Int64("imported", inserted),
		slog.Int("positions", res.Positions),
	)

	s.notifySync(ctx, wallet, job, res)
	return job, nil
}

func (s *SyncService) notifySync(ctx context.Context, wallet domain.Wallet, job domain.SyncJob, res RecomputeResult) {
	if s.notifier == nil {
		return
	}

	if job.TradesImported > 0 {
		msg := fmt.Sprintf("wallet %s: %d trades imported, %d positions (%d open)",
			wallet.Address, job.TradesImported, res.Positions, res.Open)
		if err := s.notifier.Notify(ctx, notify.EventSyncCompleted, "Sync completed", msg); err != nil {
			s.logger.WarnContext(ctx, "sync_service: notify failed",
				slog.String("error", err.Error()))
		}
	}

	for _, w := range res.Warnings {
		if w.Code != domain.WarnOversell {
			continue
		}
		msg := fmt.Sprintf("wallet %s %s: %s", wallet.Address, w.Symbol, w.Detail)
		if err := s.notifier.Notify(ctx, notify.EventOversellWarning, "Oversell detected", msg); err != nil {
			s.logger.WarnContext(ctx, "sync_service: notify failed",
				slog.String("error", err.Error()))
		}
	}
}

// SyncAll syncs every linked wallet sequentially. One wallet failing is
// logged and does not stop the rest; the first error is returned at the end.
func (s *SyncService) SyncAll(ctx context.Context) error {
	wallets, err := s.wallets.List(ctx)
	if err != nil {
		return fmt.Errorf("sync_service: list wallets: %w", err)
	}

	var firstErr error
	for _, w := range wallets {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if _, err := s.SyncWallet(ctx, w.Address); err != nil {
			s.logger.ErrorContext(ctx, "sync_service: wallet sync failed",
				slog.String("wallet", w.Address),
				slog.String("error", err.Error()),
			)
			if s.notifier != nil {
				msg := fmt.Sprintf("wallet %s: %v", w.Address, err)
				if nerr := s.notifier.Notify(ctx, notify.EventError, "Sync failed", msg); nerr != nil {
					s.logger.WarnContext(ctx, "sync_service: notify failed",
						slog.String("error", nerr.Error()))
				}
			}
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// RecentJobs returns a wallet's latest sync jobs.
func (s *SyncService) RecentJobs(ctx context.Context, wallet string, limit int) ([]domain.SyncJob, error) {
	jobs, err := s.jobs.ListRecent(ctx, wallet, limit)
	if err != nil {
		return nil, fmt.Errorf("sync_service: list jobs for %s: %w", wallet, err)
	}
	return jobs, nil
}

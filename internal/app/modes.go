package app

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/tradejournal/internal/domain"
	"github.com/alanyoungcy/tradejournal/internal/feed"
	"github.com/alanyoungcy/tradejournal/internal/notify"
	"github.com/alanyoungcy/tradejournal/internal/pipeline"
	"github.com/alanyoungcy/tradejournal/internal/service"
)

// positionService builds the position service from wired dependencies.
func (a *App) positionService(deps *Dependencies) *service.PositionService {
	return service.NewPositionService(
		deps.TradeStore,
		deps.PositionStore,
		deps.WalletStore,
		deps.PriceCache,
		deps.LockManager,
		deps.SignalBus,
		deps.AuditStore,
		a.logger,
	)
}

// syncService builds the sync service on top of the S3 drop-folder feed.
func (a *App) syncService(deps *Dependencies, positions *service.PositionService) *service.SyncService {
	importFeed := feed.NewS3ImportFeed(
		deps.BlobReader,
		a.cfg.Sync.DropPrefix,
		a.cfg.Sync.ImportedPrefix,
		a.logger,
	)
	return service.NewSyncService(
		deps.WalletStore,
		deps.TradeStore,
		deps.SyncJobStore,
		importFeed,
		positions,
		deps.SignalBus,
		deps.Notifier,
		a.logger,
	)
}

// controlService builds the operator control-folder processor.
func (a *App) controlService(deps *Dependencies) *service.ControlService {
	wallets := service.NewWalletService(deps.WalletStore, deps.AuditStore, a.logger)
	mistakes := service.NewMistakeService(deps.MistakeStore, deps.PositionStore, a.logger)
	return service.NewControlService(
		deps.BlobReader,
		wallets,
		mistakes,
		a.cfg.Sync.ControlPrefix,
		a.cfg.Sync.ImportedPrefix,
		a.logger,
	)
}

// controlledSyncer applies pending control actions before each import pass,
// so a wallet link dropped alongside its trade files takes effect in the same
// cycle. A failed control pass is logged; the import still runs.
type controlledSyncer struct {
	controls *service.ControlService
	syncer   *service.SyncService
	logger   *slog.Logger
}

func (c *controlledSyncer) SyncAll(ctx context.Context) error {
	if err := c.controls.Process(ctx); err != nil {
		c.logger.ErrorContext(ctx, "control pass failed", slog.String("error", err.Error()))
	}
	return c.syncer.SyncAll(ctx)
}

// SyncMode runs the periodic trade import loop, plus the live price feed and
// the archival cron when those are enabled. It blocks until the context is
// cancelled.
func (a *App) SyncMode(ctx context.Context, deps *Dependencies) error {
	positions := a.positionService(deps)
	syncer := &controlledSyncer{
		controls: a.controlService(deps),
		syncer:   a.syncService(deps, positions),
		logger:   a.logger,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		loop := pipeline.NewSyncLoop(syncer, a.cfg.Sync.Interval.Duration, a.logger)
		return loop.Run(ctx)
	})

	if a.cfg.PriceFeed.Enabled {
		priceFeed := feed.NewPriceWSFeed(
			a.cfg.PriceFeed.WsURL,
			a.cfg.PriceFeed.Symbols,
			deps.PriceCache,
			a.logger,
		)
		g.Go(func() error {
			defer priceFeed.Close()
			return priceFeed.Run(ctx)
		})
	}

	if a.cfg.Archive.Enabled {
		archiver := pipeline.NewArchiver(deps.Archiver, deps.TradeStore, a.cfg.Archive.RetentionDays, a.logger)
		g.Go(func() error {
			return archiver.RunCron(ctx, a.cfg.Archive.Cron)
		})
	}

	return g.Wait()
}

// RecomputeMode rebuilds positions for every linked wallet once and exits.
func (a *App) RecomputeMode(ctx context.Context, deps *Dependencies) error {
	positions := a.positionService(deps)
	if err := positions.RecomputeAll(ctx); err != nil {
		return fmt.Errorf("app: recompute: %w", err)
	}
	a.logger.InfoContext(ctx, "recompute complete")
	return nil
}

// ReportMode logs aggregated performance metrics and per-wallet mistake
// summaries, writes a position snapshot per wallet to object storage, and
// exits. When notification channels are configured, a digest is also pushed
// to them.
func (a *App) ReportMode(ctx context.Context, deps *Dependencies) error {
	positions := a.positionService(deps)
	walletSvc := service.NewWalletService(deps.WalletStore, deps.AuditStore, a.logger)
	mistakes := service.NewMistakeService(deps.MistakeStore, deps.PositionStore, a.logger)

	combined, err := positions.CombinedMetrics(ctx)
	if err != nil {
		return fmt.Errorf("app: report: combined metrics: %w", err)
	}

	a.logger.InfoContext(ctx, "portfolio metrics",
		slog.Int("total_positions", combined.TotalPositions),
		slog.Int("open_positions", combined.OpenPositions),
		slog.Int("closed_positions", combined.ClosedPositions),
		slog.String("realized_pnl", combined.TotalRealizedPnL.String()),
		slog.String("unrealized_pnl", combined.TotalUnrealizedPnL.String()),
		slog.String("net_pnl", combined.TotalNetPnL.String()),
		slog.Float64("win_rate", combined.PositionWinRate),
		slog.String("total_fees", combined.TotalFees.String()),
	)

	wallets, err := walletSvc.List(ctx)
	if err != nil {
		return fmt.Errorf("app: report: list wallets: %w", err)
	}

	for _, w := range wallets {
		m, err := positions.WalletMetrics(ctx, w.Address)
		if err != nil {
			a.logger.ErrorContext(ctx, "wallet metrics failed",
				slog.String("wallet", w.Address),
				slog.String("error", err.Error()),
			)
			continue
		}
		a.logger.InfoContext(ctx, "wallet metrics",
			slog.String("wallet", w.Address),
			slog.Int("total_positions", m.TotalPositions),
			slog.Int("open_positions", m.OpenPositions),
			slog.String("net_pnl", m.TotalNetPnL.String()),
			slog.Float64("win_rate", m.PositionWinRate),
		)

		summary, err := mistakes.Summary(ctx, w.Address)
		if err != nil {
			a.logger.ErrorContext(ctx, "mistake summary failed",
				slog.String("wallet", w.Address),
				slog.String("error", err.Error()),
			)
			continue
		}
		for _, s := range summary {
			a.logger.InfoContext(ctx, "mistake summary",
				slog.String("wallet", w.Address),
				slog.String("category", string(s.Category)),
				slog.Int("count", s.Count),
			)
		}

		recent, err := mistakes.ListForWallet(ctx, w.Address, domain.ListOpts{Limit: 5})
		if err != nil {
			a.logger.ErrorContext(ctx, "recent mistakes load failed",
				slog.String("wallet", w.Address),
				slog.String("error", err.Error()),
			)
			continue
		}
		for _, m := range recent {
			a.logger.InfoContext(ctx, "recent mistake",
				slog.String("wallet", w.Address),
				slog.Int64("id", m.ID),
				slog.String("position_id", m.PositionID),
				slog.String("category", string(m.Category)),
				slog.String("note", m.Note),
			)
		}

		walletPositions, err := positions.ListPositions(ctx, w.Address, domain.ListOpts{})
		if err != nil {
			a.logger.ErrorContext(ctx, "position snapshot load failed",
				slog.String("wallet", w.Address),
				slog.String("error", err.Error()),
			)
			continue
		}
		if len(walletPositions) > 0 {
			exportPath, err := deps.Archiver.ExportPositions(ctx, w.Address, walletPositions)
			if err != nil {
				a.logger.ErrorContext(ctx, "position snapshot export failed",
					slog.String("wallet", w.Address),
					slog.String("error", err.Error()),
				)
				continue
			}
			a.logger.InfoContext(ctx, "position snapshot exported",
				slog.String("wallet", w.Address),
				slog.String("path", exportPath),
			)
		}
	}

	msg := fmt.Sprintf(
		"positions: %d (%d open) | net P&L: %s | win rate: %.1f%% (%d samples)",
		combined.TotalPositions,
		combined.OpenPositions,
		combined.TotalNetPnL.StringFixed(2),
		combined.PositionWinRate,
		combined.WinRateSamples,
	)
	if err := deps.Notifier.Notify(ctx, notify.EventReport, "Portfolio Report", msg); err != nil {
		a.logger.ErrorContext(ctx, "report notification failed", slog.String("error", err.Error()))
	}

	return nil
}

// ArchiveMode executes a single archive run and exits.
func (a *App) ArchiveMode(ctx context.Context, deps *Dependencies) error {
	archiver := pipeline.NewArchiver(deps.Archiver, deps.TradeStore, a.cfg.Archive.RetentionDays, a.logger)
	if err := archiver.Run(ctx); err != nil {
		return fmt.Errorf("app: archive: %w", err)
	}
	return nil
}

// FullMode runs everything: an initial recompute pass, then the sync loop,
// the live price feed, and the archival cron when enabled.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	positions := a.positionService(deps)
	if err := positions.RecomputeAll(ctx); err != nil {
		a.logger.ErrorContext(ctx, "initial recompute failed", slog.String("error", err.Error()))
	}
	return a.SyncMode(ctx, deps)
}

// Package service orchestrates the journal's use cases on top of the pure
// engine and the storage interfaces.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/tradejournal/internal/domain"
	"github.com/alanyoungcy/tradejournal/internal/engine"
)

const (
	// recomputeLockTTL bounds how long a stuck recompute can hold a wallet.
	recomputeLockTTL = 5 * time.Minute

	// recomputeConcurrency bounds the fan-out of RecomputeAll.
	recomputeConcurrency = 4
)

// PositionService rebuilds derived positions from the trade log. The engine
// itself is pure; this service owns the surrounding concerns: per-wallet
// locking, loading trades in replay order, price prefetching, persistence,
// and event publication.
type PositionService struct {
	trades    domain.TradeStore
	positions domain.PositionStore
	wallets   domain.WalletStore
	prices    domain.PriceCache
	locks     domain.LockManager
	bus       domain.SignalBus
	audit     domain.AuditStore
	logger    *slog.Logger
}

// NewPositionService creates a PositionService with all required dependencies.
func NewPositionService(
	trades domain.TradeStore,
	positions domain.PositionStore,
	wallets domain.WalletStore,
	prices domain.PriceCache,
	locks domain.LockManager,
	bus domain.SignalBus,
	audit domain.AuditStore,
	logger *slog.Logger,
) *PositionService {
	return &PositionService{
		trades:    trades,
		positions: positions,
		wallets:   wallets,
		prices:    prices,
		locks:     locks,
		bus:       bus,
		audit:     audit,
		logger:    logger,
	}
}

// RecomputeResult summarises one wallet rebuild.
type RecomputeResult struct {
	Wallet    string
	Positions int
	Open      int
	Warnings  []domain.Warning
}

// Recompute replays a wallet's full trade history through the FIFO engine and
// atomically replaces its derived positions. Replaying the same history
// yields the same result, so the operation is safe to repeat.
//
// Returns domain.ErrLockHeld when another recompute for the wallet is already
// in flight.
func (s *PositionService) Recompute(ctx context.Context, wallet string) (RecomputeResult, error) {
	unlock, err := s.locks.Acquire(ctx, "recompute:"+wallet, recomputeLockTTL)
	if err != nil {
		return RecomputeResult{}, fmt.Errorf("position_service: lock wallet %s: %w", wallet, err)
	}
	defer unlock()

	trades, err := s.trades.ListByWalletAsc(ctx, wallet)
	if err != nil {
		return RecomputeResult{}, fmt.Errorf("position_service: load trades for %s: %w", wallet, err)
	}

	priceOf := s.priceLookup(ctx, trades)

	res, err := engine.Compute(trades, priceOf)
	if err != nil {
		return RecomputeResult{}, fmt.Errorf("position_service: compute positions for %s: %w", wallet, err)
	}

	if err := s.positions.ReplaceForWallet(ctx, wallet, res.Positions, res.PositionTrades); err != nil {
		return RecomputeResult{}, fmt.Errorf("position_service: store positions for %s: %w", wallet, err)
	}

	open := 0
	for _, p := range res.Positions {
		if p.Status == domain.PositionStatusOpen {
			open++
		}
	}

	for _, w := range res.Warnings {
		if auditErr := s.audit.Log(ctx, "recompute.warning", map[string]any{
			"wallet":   wallet,
			"code":     string(w.Code),
			"symbol":   w.Symbol,
			"trade_id": w.TradeID,
			"detail":   w.Detail,
		}); auditErr != nil {
			s.logger.WarnContext(ctx, "position_service: audit warning failed",
				slog.String("wallet", wallet),
				slog.String("error", auditErr.Error()),
			)
		}
	}

	evt, _ := json.Marshal(map[string]any{
		"event":     "positions_recomputed",
		"wallet":    wallet,
		"positions": len(res.Positions),
		"open":      open,
		"warnings":  len(res.Warnings),
	})
	if pubErr := s.bus.Publish(ctx, "journal.positions", evt); pubErr != nil {
		s.logger.WarnContext(ctx, "position_service: publish event failed",
			slog.String("wallet", wallet),
			slog.String("error", pubErr.Error()),
		)
	}

	s.logger.InfoContext(ctx, "position_service: wallet recomputed",
		slog.String("wallet", wallet),
		slog.Int("trades", len(trades)),
		slog.Int("positions", len(res.Positions)),
		slog.Int("open", open),
		slog.Int("warnings", len(res.Warnings)),
	)

	return RecomputeResult{
		Wallet:    wallet,
		Positions: len(res.Positions),
		Open:      open,
		Warnings:  res.Warnings,
	}, nil
}

// RecomputeAll rebuilds every linked wallet. Wallets are independent, so the
// fan-out runs on a bounded errgroup; a wallet whose lock is held is skipped
// rather than failed.
func (s *PositionService) RecomputeAll(ctx context.Context) error {
	wallets, err := s.wallets.List(ctx)
	if err != nil {
		return fmt.Errorf("position_service: list wallets: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(recomputeConcurrency)

	for _, w := range wallets {
		w := w
		g.Go(func() error {
			_, err := s.Recompute(gctx, w.Address)
			if errors.Is(err, domain.ErrLockHeld) {
				s.logger.InfoContext(gctx, "position_service: recompute already in flight, skipping",
					slog.String("wallet", w.Address),
				)
				return nil
			}
			return err
		})
	}

	return g.Wait()
}

// priceLookup prefetches current prices for every symbol the wallet has
// touched and returns the engine's lookup function. A cold or unreachable
// cache degrades to no prices, which only zeroes unrealized P&L.
func (s *PositionService) priceLookup(ctx context.Context, trades []domain.Trade) engine.PriceFunc {
	symbolSet := map[string]struct{}{}
	for _, t := range trades {
		if t.TokenIn != "" {
			symbolSet[t.TokenIn] = struct{}{}
		}
		if t.TokenOut != "" {
			symbolSet[t.TokenOut] = struct{}{}
		}
	}
	symbols := make([]string, 0, len(symbolSet))
	for sym := range symbolSet {
		symbols = append(symbols, sym)
	}

	cached, err := s.prices.GetPrices(ctx, symbols)
	if err != nil {
		s.logger.WarnContext(ctx, "position_service: price prefetch failed, unrealized pnl will be zero",
			slog.String("error", err.Error()),
		)
		return engine.NoPrices
	}

	return func(symbol string) (decimal.Decimal, bool) {
		price, ok := cached[symbol]
		return price, ok
	}
}

// GetPosition returns one position with its attributed trades.
func (s *PositionService) GetPosition(ctx context.Context, id string) (domain.Position, []domain.PositionTrade, error) {
	pos, err := s.positions.GetByID(ctx, id)
	if err != nil {
		return domain.Position{}, nil, fmt.Errorf("position_service: get position %s: %w", id, err)
	}
	trades, err := s.positions.ListTrades(ctx, id)
	if err != nil {
		return domain.Position{}, nil, fmt.Errorf("position_service: list trades for position %s: %w", id, err)
	}
	return pos, trades, nil
}

// ListPositions returns a wallet's positions with pagination.
func (s *PositionService) ListPositions(ctx context.Context, wallet string, opts domain.ListOpts) ([]domain.Position, error) {
	positions, err := s.positions.ListByWallet(ctx, wallet, opts)
	if err != nil {
		return nil, fmt.Errorf("position_service: list positions for %s: %w", wallet, err)
	}
	return positions, nil
}

// ListOpen returns a wallet's open positions.
func (s *PositionService) ListOpen(ctx context.Context, wallet string) ([]domain.Position, error) {
	positions, err := s.positions.ListOpen(ctx, wallet)
	if err != nil {
		return nil, fmt.Errorf("position_service: list open positions for %s: %w", wallet, err)
	}
	return positions, nil
}

// WalletMetrics aggregates performance metrics over a wallet's positions.
func (s *PositionService) WalletMetrics(ctx context.Context, wallet string) (domain.PositionMetrics, error) {
	positions, err := s.positions.ListByWallet(ctx, wallet, domain.ListOpts{})
	if err != nil {
		return domain.PositionMetrics{}, fmt.Errorf("position_service: metrics for %s: %w", wallet, err)
	}
	return engine.Aggregate(positions), nil
}

// CombinedMetrics merges per-wallet metrics across all linked wallets.
// Ratio fields are re-derived from the underlying counts, never averaged.
func (s *PositionService) CombinedMetrics(ctx context.Context) (domain.PositionMetrics, error) {
	wallets, err := s.wallets.List(ctx)
	if err != nil {
		return domain.PositionMetrics{}, fmt.Errorf("position_service: list wallets for metrics: %w", err)
	}

	parts := make([]domain.PositionMetrics, 0, len(wallets))
	for _, w := range wallets {
		m, err := s.WalletMetrics(ctx, w.Address)
		if err != nil {
			return domain.PositionMetrics{}, err
		}
		parts = append(parts, m)
	}
	return engine.MergeMetrics(parts...), nil
}

package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/tradejournal/internal/domain"
)

// PositionStore implements domain.PositionStore using PostgreSQL.
type PositionStore struct {
	pool *pgxpool.Pool
}

// NewPositionStore creates a new PositionStore backed by the given pool.
func NewPositionStore(pool *pgxpool.Pool) *PositionStore {
	return &PositionStore{pool: pool}
}

const positionSelectCols = `id, wallet_address, symbol, status, open_date, close_date,
	total_quantity, total_bought, total_sold, avg_entry_price, avg_exit_price,
	realized_pnl, unrealized_pnl, fees`

// ReplaceForWallet swaps a wallet's entire derived position set in a single
// transaction: delete everything, reinsert from the latest engine run. Readers
// never see a half-replaced set.
func (s *PositionStore) ReplaceForWallet(ctx context.Context, wallet string, positions []domain.Position, positionTrades []domain.PositionTrade) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin replace positions: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`DELETE FROM position_trades
		 WHERE position_id IN (SELECT id FROM positions WHERE wallet_address = $1)`, wallet,
	); err != nil {
		return fmt.Errorf("postgres: clear position trades for %s: %w", wallet, err)
	}
	if _, err := tx.Exec(ctx,
		`DELETE FROM positions WHERE wallet_address = $1`, wallet,
	); err != nil {
		return fmt.Errorf("postgres: clear positions for %s: %w", wallet, err)
	}

	const insertPosition = `
		INSERT INTO positions (
			id, wallet_address, symbol, status, open_date, close_date,
			total_quantity, total_bought, total_sold, avg_entry_price,
			avg_exit_price, realized_pnl, unrealized_pnl, fees, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10,
			$11, $12, $13, $14, NOW()
		)`
	const insertPositionTrade = `
		INSERT INTO position_trades (
			position_id, trade_id, role, quantity, price, cost_basis, fees, ts
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	batch := &pgx.Batch{}
	for _, p := range positions {
		batch.Queue(insertPosition,
			p.ID, p.WalletAddress, p.Symbol, string(p.Status), p.OpenDate, p.CloseDate,
			p.TotalQuantity, p.TotalBought, p.TotalSold, p.AvgEntryPrice,
			nullDec(p.AvgExitPrice), p.RealizedPnL, p.UnrealizedPnL, p.Fees,
		)
	}
	for _, pt := range positionTrades {
		batch.Queue(insertPositionTrade,
			pt.PositionID, pt.TradeID, string(pt.Role),
			pt.Quantity, pt.Price, pt.CostBasis, pt.Fees, pt.Timestamp,
		)
	}

	br := tx.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return fmt.Errorf("postgres: insert position batch item %d: %w", i, err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("postgres: close position batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit replace positions for %s: %w", wallet, err)
	}
	return nil
}

func scanPosition(row pgx.Row) (domain.Position, error) {
	var (
		p       domain.Position
		status  string
		avgExit decimal.NullDecimal
	)
	err := row.Scan(
		&p.ID, &p.WalletAddress, &p.Symbol, &status, &p.OpenDate, &p.CloseDate,
		&p.TotalQuantity, &p.TotalBought, &p.TotalSold, &p.AvgEntryPrice, &avgExit,
		&p.RealizedPnL, &p.UnrealizedPnL, &p.Fees,
	)
	if err != nil {
		return domain.Position{}, err
	}
	p.Status = domain.PositionStatus(status)
	p.AvgExitPrice = decPtr(avgExit)
	return p, nil
}

func scanPositionRows(rows pgx.Rows) ([]domain.Position, error) {
	var positions []domain.Position
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, err
		}
		positions = append(positions, p)
	}
	return positions, rows.Err()
}

// GetByID retrieves a single position.
func (s *PositionStore) GetByID(ctx context.Context, id string) (domain.Position, error) {
	p, err := scanPosition(s.pool.QueryRow(ctx,
		`SELECT `+positionSelectCols+` FROM positions WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Position{}, domain.ErrNotFound
		}
		return domain.Position{}, fmt.Errorf("postgres: get position %s: %w", id, err)
	}
	return p, nil
}

// ListByWallet returns a wallet's positions, newest opened first.
func (s *PositionStore) ListByWallet(ctx context.Context, wallet string, opts domain.ListOpts) ([]domain.Position, error) {
	query := `SELECT ` + positionSelectCols + ` FROM positions WHERE wallet_address = $1`
	args := []any{wallet}
	argIdx := 2

	if opts.Since != nil {
		query += fmt.Sprintf(" AND open_date >= $%d", argIdx)
		args = append(args, *opts.Since)
		argIdx++
	}
	if opts.Until != nil {
		query += fmt.Sprintf(" AND open_date <= $%d", argIdx)
		args = append(args, *opts.Until)
		argIdx++
	}

	query += " ORDER BY open_date DESC"

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list positions by wallet: %w", err)
	}
	defer rows.Close()

	positions, err := scanPositionRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan positions by wallet: %w", err)
	}
	return positions, nil
}

// ListOpen returns a wallet's currently open positions, oldest opened first.
func (s *PositionStore) ListOpen(ctx context.Context, wallet string) ([]domain.Position, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+positionSelectCols+` FROM positions
		 WHERE wallet_address = $1 AND status = 'open'
		 ORDER BY open_date ASC`, wallet)
	if err != nil {
		return nil, fmt.Errorf("postgres: list open positions: %w", err)
	}
	defer rows.Close()

	positions, err := scanPositionRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan open positions: %w", err)
	}
	return positions, nil
}

// ListTrades returns the attributed trades of a position in time order.
func (s *PositionStore) ListTrades(ctx context.Context, positionID string) ([]domain.PositionTrade, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT position_id, trade_id, role, quantity, price, cost_basis, fees, ts
		 FROM position_trades WHERE position_id = $1 ORDER BY ts ASC, trade_id ASC`, positionID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list position trades: %w", err)
	}
	defer rows.Close()

	var trades []domain.PositionTrade
	for rows.Next() {
		var (
			pt   domain.PositionTrade
			role string
		)
		if err := rows.Scan(
			&pt.PositionID, &pt.TradeID, &role,
			&pt.Quantity, &pt.Price, &pt.CostBasis, &pt.Fees, &pt.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan position trade: %w", err)
		}
		pt.Role = domain.TradeRole(role)
		trades = append(trades, pt)
	}
	return trades, rows.Err()
}

// Compile-time interface check.
var _ domain.PositionStore = (*PositionStore)(nil)

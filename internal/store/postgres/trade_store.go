package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/tradejournal/internal/domain"
)

// TradeStore implements domain.TradeStore using PostgreSQL.
type TradeStore struct {
	pool *pgxpool.Pool
}

// NewTradeStore creates a new TradeStore backed by the given connection pool.
func NewTradeStore(pool *pgxpool.Pool) *TradeStore {
	return &TradeStore{pool: pool}
}

const tradeSelectCols = `id, signature, wallet_address, trade_type, token_in, token_out,
	amount_in, amount_out, price_in, price_out, fees, block_time, success, source`

func nullDec(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}

func decPtr(nd decimal.NullDecimal) *decimal.Decimal {
	if !nd.Valid {
		return nil
	}
	d := nd.Decimal
	return &d
}

func scanTradeRows(rows pgx.Rows) ([]domain.Trade, error) {
	var trades []domain.Trade
	for rows.Next() {
		var (
			t                tradeRow
			priceIn, priceOut decimal.NullDecimal
		)
		if err := rows.Scan(
			&t.ID, &t.Signature, &t.WalletAddress, &t.Type,
			&t.TokenIn, &t.TokenOut, &t.AmountIn, &t.AmountOut,
			&priceIn, &priceOut, &t.Fees, &t.BlockTime, &t.Success, &t.Source,
		); err != nil {
			return nil, err
		}
		trades = append(trades, domain.Trade{
			ID: t.ID, Signature: t.Signature, WalletAddress: t.WalletAddress,
			Type: domain.TradeType(t.Type), TokenIn: t.TokenIn, TokenOut: t.TokenOut,
			AmountIn: t.AmountIn, AmountOut: t.AmountOut,
			PriceIn: decPtr(priceIn), PriceOut: decPtr(priceOut),
			Fees: t.Fees, BlockTime: t.BlockTime, Success: t.Success, Source: t.Source,
		})
	}
	return trades, rows.Err()
}

// tradeRow carries scan targets whose types differ from the domain struct.
type tradeRow struct {
	ID            int64
	Signature     string
	WalletAddress string
	Type          string
	TokenIn       string
	TokenOut      string
	AmountIn      decimal.Decimal
	AmountOut     decimal.Decimal
	Fees          decimal.Decimal
	BlockTime     time.Time
	Success       bool
	Source        string
}

// InsertBatch inserts trades using a pgx batch, skipping duplicates by
// signature via ON CONFLICT DO NOTHING. It returns the number actually
// inserted, so callers can tell fresh trades from re-imports.
func (s *TradeStore) InsertBatch(ctx context.Context, trades []domain.Trade) (int64, error) {
	if len(trades) == 0 {
		return 0, nil
	}

	const query = `
		INSERT INTO trades (
			signature, wallet_address, trade_type, token_in, token_out,
			amount_in, amount_out, price_in, price_out, fees,
			block_time, success, source
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9, $10,
			$11, $12, $13
		) ON CONFLICT (signature) DO NOTHING`

	batch := &pgx.Batch{}
	for _, t := range trades {
		batch.Queue(query,
			t.Signature, t.WalletAddress, string(t.Type), t.TokenIn, t.TokenOut,
			t.AmountIn, t.AmountOut, nullDec(t.PriceIn), nullDec(t.PriceOut), t.Fees,
			t.BlockTime, t.Success, t.Source,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	var inserted int64
	for i := range trades {
		tag, err := br.Exec()
		if err != nil {
			return inserted, fmt.Errorf("postgres: insert trade batch item %d: %w", i, err)
		}
		inserted += tag.RowsAffected()
	}
	return inserted, nil
}

// ListByWalletAsc returns a wallet's full trade history ordered by
// (block_time, id) ascending — the replay order the position engine expects,
// with the serial id as the deterministic tie-break for same-block trades.
func (s *TradeStore) ListByWalletAsc(ctx context.Context, wallet string) ([]domain.Trade, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+tradeSelectCols+` FROM trades
		 WHERE wallet_address = $1
		 ORDER BY block_time ASC, id ASC`, wallet)
	if err != nil {
		return nil, fmt.Errorf("postgres: list trades for replay: %w", err)
	}
	defer rows.Close()

	trades, err := scanTradeRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan trades for replay: %w", err)
	}
	return trades, nil
}

// GetLastBlockTime returns the newest trade block time recorded for a wallet,
// or the zero time when no trades exist.
func (s *TradeStore) GetLastBlockTime(ctx context.Context, wallet string) (time.Time, error) {
	var ts *time.Time
	err := s.pool.QueryRow(ctx,
		`SELECT MAX(block_time) FROM trades WHERE wallet_address = $1`, wallet,
	).Scan(&ts)
	if err != nil {
		return time.Time{}, fmt.Errorf("postgres: get last block time for %s: %w", wallet, err)
	}
	if ts == nil {
		return time.Time{}, nil
	}
	return *ts, nil
}

// ListByWallet returns trades for a wallet, newest first, with pagination and
// optional time filtering.
func (s *TradeStore) ListByWallet(ctx context.Context, wallet string, opts domain.ListOpts) ([]domain.Trade, error) {
	query := `SELECT ` + tradeSelectCols + ` FROM trades WHERE wallet_address = $1`
	args := []any{wallet}
	argIdx := 2

	if opts.Since != nil {
		query += fmt.Sprintf(" AND block_time >= $%d", argIdx)
		args = append(args, *opts.Since)
		argIdx++
	}
	if opts.Until != nil {
		query += fmt.Sprintf(" AND block_time <= $%d", argIdx)
		args = append(args, *opts.Until)
		argIdx++
	}

	query += " ORDER BY block_time DESC"

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
		return nil, fmt.Errorf("postgres: list trades by wallet: %w", err)
	}
	defer rows.Close()

	trades, err := scanTradeRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan trades by wallet: %w", err)
	}
	return trades, nil
}

// ListBefore returns all trades with block_time strictly before the given
// time, oldest first (for archiving).
func (s *TradeStore) ListBefore(ctx context.Context, before time.Time) ([]domain.Trade, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+tradeSelectCols+` FROM trades WHERE block_time < $1 ORDER BY block_time ASC`, before)
	if err != nil {
		return nil, fmt.Errorf("postgres: list trades before: %w", err)
	}
	defer rows.Close()
	return scanTradeRows(rows)
}

// DeleteBefore deletes all trades with block_time before the given time and
// returns the number deleted.
func (s *TradeStore) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM trades WHERE block_time < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete trades before: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Compile-time interface check.
var _ domain.TradeStore = (*TradeStore)(nil)

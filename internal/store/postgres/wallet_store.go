package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/tradejournal/internal/domain"
)

// WalletStore implements domain.WalletStore using PostgreSQL.
type WalletStore struct {
	pool *pgxpool.Pool
}

// NewWalletStore creates a new WalletStore backed by the given connection pool.
func NewWalletStore(pool *pgxpool.Pool) *WalletStore {
	return &WalletStore{pool: pool}
}

// Create inserts a linked wallet. Re-linking an existing address returns
// domain.ErrAlreadyExists.
func (s *WalletStore) Create(ctx context.Context, w domain.Wallet) error {
	const query = `
		INSERT INTO wallets (address, label, chain, source, created_at)
		VALUES ($1, $2, $3, $4, NOW())`

	_, err := s.pool.Exec(ctx, query, w.Address, w.Label, w.Chain, w.Source)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("postgres: create wallet %s: %w", w.Address, err)
	}
	return nil
}

// GetByAddress retrieves a wallet by its address.
func (s *WalletStore) GetByAddress(ctx context.Context, address string) (domain.Wallet, error) {
	var w domain.Wallet
	err := s.pool.QueryRow(ctx,
		`SELECT address, label, chain, source, created_at FROM wallets WHERE address = $1`,
		address,
	).Scan(&w.Address, &w.Label, &w.Chain, &w.Source, &w.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Wallet{}, domain.ErrNotFound
		}
		return domain.Wallet{}, fmt.Errorf("postgres: get wallet %s: %w", address, err)
	}
	return w, nil
}

// List returns all linked wallets ordered by creation time.
func (s *WalletStore) List(ctx context.Context) ([]domain.Wallet, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT address, label, chain, source, created_at FROM wallets ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list wallets: %w", err)
	}
	defer rows.Close()

	var wallets []domain.Wallet
	for rows.Next() {
		var w domain.Wallet
		if err := rows.Scan(&w.Address, &w.Label, &w.Chain, &w.Source, &w.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan wallet: %w", err)
		}
		wallets = append(wallets, w)
	}
	return wallets, rows.Err()
}

// Delete unlinks a wallet; its trades and positions cascade away with it.
func (s *WalletStore) Delete(ctx context.Context, address string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM wallets WHERE address = $1`, address)
	if err != nil {
		return fmt.Errorf("postgres: delete wallet %s: %w", address, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Compile-time interface check.
var _ domain.WalletStore = (*WalletStore)(nil)

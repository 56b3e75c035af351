package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/tradejournal/internal/domain"
)

// MistakeStore implements domain.MistakeStore using PostgreSQL.
type MistakeStore struct {
	pool *pgxpool.Pool
}

// NewMistakeStore creates a new MistakeStore backed by the given pool.
func NewMistakeStore(pool *pgxpool.Pool) *MistakeStore {
	return &MistakeStore{pool: pool}
}

// Create journals a mistake and returns its id.
func (s *MistakeStore) Create(ctx context.Context, m domain.Mistake) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO mistakes (wallet_address, position_id, category, note, created_at)
		 VALUES ($1, $2, $3, $4, NOW())
		 RETURNING id`,
		m.WalletAddress, m.PositionID, string(m.Category), m.Note,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("postgres: create mistake: %w", err)
	}
	return id, nil
}

// Delete removes a journaled mistake.
func (s *MistakeStore) Delete(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM mistakes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("postgres: delete mistake %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

const mistakeSelectCols = `id, wallet_address, position_id, category, note, created_at`

func (s *MistakeStore) scanMistakes(ctx context.Context, query string, args ...any) ([]domain.Mistake, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var mistakes []domain.Mistake
	for rows.Next() {
		var (
			m        domain.Mistake
			category string
		)
		if err := rows.Scan(&m.ID, &m.WalletAddress, &m.PositionID, &category, &m.Note, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.Category = domain.MistakeCategory(category)
		mistakes = append(mistakes, m)
	}
	return mistakes, rows.Err()
}

// ListByPosition returns the mistakes journaled against a position.
func (s *MistakeStore) ListByPosition(ctx context.Context, positionID string) ([]domain.Mistake, error) {
	mistakes, err := s.scanMistakes(ctx,
		`SELECT `+mistakeSelectCols+` FROM mistakes WHERE position_id = $1 ORDER BY created_at ASC`,
		positionID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list mistakes by position: %w", err)
	}
	return mistakes, nil
}

// ListByWallet returns a wallet's journaled mistakes, newest first.
func (s *MistakeStore) ListByWallet(ctx context.Context, wallet string, opts domain.ListOpts) ([]domain.Mistake, error) {
	query := `SELECT ` + mistakeSelectCols + ` FROM mistakes WHERE wallet_address = $1 ORDER BY created_at DESC`
	args := []any{wallet}
	argIdx := 2

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}

	mistakes, err := s.scanMistakes(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list mistakes by wallet: %w", err)
	}
	return mistakes, nil
}

// SummarizeByWallet counts a wallet's mistakes per category, most frequent
// first, for the recurring-pattern report.
func (s *MistakeStore) SummarizeByWallet(ctx context.Context, wallet string) ([]domain.MistakeSummary, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT category, COUNT(*) FROM mistakes
		 WHERE wallet_address = $1
		 GROUP BY category
		 ORDER BY COUNT(*) DESC, category ASC`, wallet)
	if err != nil {
		return nil, fmt.Errorf("postgres: summarize mistakes: %w", err)
	}
	defer rows.Close()

	var summaries []domain.MistakeSummary
	for rows.Next() {
		var (
			category string
			count    int
		)
		if err := rows.Scan(&category, &count); err != nil {
			return nil, fmt.Errorf("postgres: scan mistake summary: %w", err)
		}
		summaries = append(summaries, domain.MistakeSummary{
			Category: domain.MistakeCategory(category),
			Count:    count,
		})
	}
	return summaries, rows.Err()
}

// Compile-time interface check.
var _ domain.MistakeStore = (*MistakeStore)(nil)

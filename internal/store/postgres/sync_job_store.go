package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/tradejournal/internal/domain"
)

// SyncJobStore implements domain.SyncJobStore using PostgreSQL.
type SyncJobStore struct {
	pool *pgxpool.Pool
}

// NewSyncJobStore creates a new SyncJobStore backed by the given pool.
func NewSyncJobStore(pool *pgxpool.Pool) *SyncJobStore {
	return &SyncJobStore{pool: pool}
}

// Create records a new import job in the running state.
func (s *SyncJobStore) Create(ctx context.Context, job domain.SyncJob) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO sync_jobs (id, wallet_address, source, status, started_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		job.ID, job.WalletAddress, job.Source, string(domain.SyncJobStatusRunning), job.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: create sync job: %w", err)
	}
	return nil
}

// Complete marks a job as finished with its import counters.
func (s *SyncJobStore) Complete(ctx context.Context, id string, tradesImported, positionsBuilt, warnings int) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE sync_jobs
		 SET status = $2, trades_imported = $3, positions_built = $4, warnings = $5, finished_at = NOW()
		 WHERE id = $1`,
		id, string(domain.SyncJobStatusCompleted), tradesImported, positionsBuilt, warnings,
	)
	if err != nil {
		return fmt.Errorf("postgres: complete sync job %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Fail marks a job as failed with the reason.
func (s *SyncJobStore) Fail(ctx context.Context, id string, reason string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE sync_jobs SET status = $2, error = $3, finished_at = NOW() WHERE id = $1`,
		id, string(domain.SyncJobStatusFailed), reason,
	)
	if err != nil {
		return fmt.Errorf("postgres: fail sync job %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

const syncJobSelectCols = `id, wallet_address, source, status, trades_imported,
	positions_built, warnings, error, started_at, finished_at`

func scanSyncJob(row pgx.Row) (domain.SyncJob, error) {
	var (
		job    domain.SyncJob
		status string
	)
	err := row.Scan(
		&job.ID, &job.WalletAddress, &job.Source, &status, &job.TradesImported,
		&job.PositionsBuilt, &job.Warnings, &job.Error, &job.StartedAt, &job.FinishedAt,
	)
	if err != nil {
		return domain.SyncJob{}, err
	}
	job.Status = domain.SyncJobStatus(status)
	return job, nil
}

// GetByID retrieves a single job record.
func (s *SyncJobStore) GetByID(ctx context.Context, id string) (domain.SyncJob, error) {
	job, err := scanSyncJob(s.pool.QueryRow(ctx,
		`SELECT `+syncJobSelectCols+` FROM sync_jobs WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.SyncJob{}, domain.ErrNotFound
		}
		return domain.SyncJob{}, fmt.Errorf("postgres: get sync job %s: %w", id, err)
	}
	return job, nil
}

// ListRecent returns a wallet's latest import jobs, newest started first.
func (s *SyncJobStore) ListRecent(ctx context.Context, wallet string, limit int) ([]domain.SyncJob, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+syncJobSelectCols+` FROM sync_jobs
		 WHERE wallet_address = $1
		 ORDER BY started_at DESC
		 LIMIT $2`, wallet, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list sync jobs: %w", err)
	}
	defer rows.Close()

	var jobs []domain.SyncJob
	for rows.Next() {
		job, err := scanSyncJob(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan sync job: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// Compile-time interface check.
var _ domain.SyncJobStore = (*SyncJobStore)(nil)

package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination and filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// WalletStore persists linked wallets.
type WalletStore interface {
	Create(ctx context.Context, w Wallet) error
	GetByAddress(ctx context.Context, address string) (Wallet, error)
	List(ctx context.Context) ([]Wallet, error)
	Delete(ctx context.Context, address string) error
}

// TradeStore persists the immutable trade log.
type TradeStore interface {
	// InsertBatch inserts trades, silently skipping duplicates by signature.
	InsertBatch(ctx context.Context, trades []Trade) (int64, error)
	// ListByWalletAsc returns a wallet's full trade history in chronological
	// order with IDs as the tie-break, the exact order the engine replays.
	ListByWalletAsc(ctx context.Context, wallet string) ([]Trade, error)
	// GetLastBlockTime returns the newest block time recorded for a wallet,
	// or the zero time if none exist.
	GetLastBlockTime(ctx context.Context, wallet string) (time.Time, error)
	ListByWallet(ctx context.Context, wallet string, opts ListOpts) ([]Trade, error)
	// ListBefore and DeleteBefore support cold-storage archival.
	ListBefore(ctx context.Context, before time.Time) ([]Trade, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// PositionStore persists derived positions. Positions are recomputable state:
// a recompute replaces a wallet's entire set atomically rather than mutating
// rows in place.
type PositionStore interface {
	ReplaceForWallet(ctx context.Context, wallet string, positions []Position, positionTrades []PositionTrade) error
	GetByID(ctx context.Context, id string) (Position, error)
	ListByWallet(ctx context.Context, wallet string, opts ListOpts) ([]Position, error)
	ListOpen(ctx context.Context, wallet string) ([]Position, error)
	ListTrades(ctx context.Context, positionID string) ([]PositionTrade, error)
}

// MistakeStore persists journaled trading mistakes.
type MistakeStore interface {
	Create(ctx context.Context, m Mistake) (int64, error)
	Delete(ctx context.Context, id int64) error
	ListByPosition(ctx context.Context, positionID string) ([]Mistake, error)
	ListByWallet(ctx context.Context, wallet string, opts ListOpts) ([]Mistake, error)
	SummarizeByWallet(ctx context.Context, wallet string) ([]MistakeSummary, error)
}

// SyncJobStore persists import job records.
type SyncJobStore interface {
	Create(ctx context.Context, job SyncJob) error
	Complete(ctx context.Context, id string, tradesImported, positionsBuilt, warnings int) error
	Fail(ctx context.Context, id string, reason string) error
	GetByID(ctx context.Context, id string) (SyncJob, error)
	ListRecent(ctx context.Context, wallet string, limit int) ([]SyncJob, error)
}

// AuditEntry is a single audit log row.
type AuditEntry struct {
	ID        int64
	Event     string
	Detail    map[string]any
	CreatedAt time.Time
}

// AuditStore persists an append-only audit log.
type AuditStore interface {
	Log(ctx context.Context, event string, detail map[string]any) error
	List(ctx context.Context, opts ListOpts) ([]AuditEntry, error)
}

package domain

import "time"

// SyncJobStatus tracks the import job lifecycle.
type SyncJobStatus string

const (
	SyncJobStatusRunning   SyncJobStatus = "running"
	SyncJobStatusCompleted SyncJobStatus = "completed"
	SyncJobStatusFailed    SyncJobStatus = "failed"
)

// SyncJob records one import run for a wallet: how many trades came in, how
// many positions the recompute produced, and any failure reason.
type SyncJob struct {
	ID             string
	WalletAddress  string
	Source         string
	Status         SyncJobStatus
	TradesImported int
	PositionsBuilt int
	Warnings       int
	Error          string
	StartedAt      time.Time
	FinishedAt     *time.Time
}

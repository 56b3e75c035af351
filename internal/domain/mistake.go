package domain

import "time"

// MistakeCategory is the self-reported classification of a journaled trading
// mistake.
type MistakeCategory string

const (
	MistakeFOMO          MistakeCategory = "fomo"
	MistakeOversize      MistakeCategory = "oversize"
	MistakeNoStopLoss    MistakeCategory = "no_stop_loss"
	MistakeEarlyExit     MistakeCategory = "early_exit"
	MistakeLateExit      MistakeCategory = "late_exit"
	MistakeRevengeTrade  MistakeCategory = "revenge_trade"
	MistakeNoThesis      MistakeCategory = "no_thesis"
	MistakeOtherCategory MistakeCategory = "other"
)

// Mistake is a journal entry the user attaches to a position after the fact.
type Mistake struct {
	ID            int64
	WalletAddress string
	PositionID    string
	Category      MistakeCategory
	Note          string
	CreatedAt     time.Time
}

// MistakeSummary counts journaled mistakes per category for one wallet.
type MistakeSummary struct {
	Category MistakeCategory
	Count    int
}

package domain

import (
	"context"
	"time"
)

// TradeFeed supplies new trades for a wallet since a given block time. The
// journal core treats the feed as an external collaborator: provider-specific
// API clients live outside this repo, and the in-repo implementation imports
// provider export files from an object-storage drop folder.
type TradeFeed interface {
	// Name identifies the feed (matched against Wallet.Source).
	Name() string
	// FetchTrades returns trades for the wallet with BlockTime strictly
	// after since, in any order. The caller validates and deduplicates.
	FetchTrades(ctx context.Context, wallet Wallet, since time.Time) ([]Trade, error)
}

// Package engine reconstructs trading positions from a wallet's raw trade log.
//
// The engine is a pure, synchronous computation: it takes an in-memory list of
// trades and an injected price lookup, and returns positions, lot-level
// entry/exit attribution, and data-quality warnings. It performs no I/O and
// holds no state between calls; replaying the same trade log always yields the
// same result. Loading trades and persisting results are the caller's job.
//
// Cost basis is first-in-first-out: the oldest acquired units are matched to
// the earliest disposed units, one lot at a time.
package engine

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/tradejournal/internal/domain"
)

// PriceFunc looks up the current USD price for a symbol. The second return is
// false when no price is available, in which case open positions report zero
// unrealized P&L instead of failing.
type PriceFunc func(symbol string) (decimal.Decimal, bool)

// NoPrices is a PriceFunc with no data; every open position values at zero
// unrealized P&L.
func NoPrices(string) (decimal.Decimal, bool) { return decimal.Zero, false }

// epsilon absorbs residual dust when deciding whether a position's remaining
// quantity has reached zero.
var epsilon = decimal.New(1, -9)

// feeScale is the rounding scale for pro-rata fee allocation across lots.
var feeScale int32 = 8

// Result is the full output of one recompute for a wallet.
type Result struct {
	Positions      []domain.Position
	PositionTrades []domain.PositionTrade
	Warnings       []domain.Warning
}

// Compute replays a single wallet's trades and rebuilds its positions.
//
// Trades may arrive in any order; they are sorted by (BlockTime, ID), with the
// ID — assigned in ingestion order — as the deterministic tie-break for
// same-timestamp trades. Failed trades move no quantity and are skipped.
// A swap contributes an exit leg to the spent symbol's stream and an entry leg
// to the received symbol's stream atomically: both legs carry the swap's trade
// ID, timestamp and fee.
//
// Invalid input (a trade with no timestamp, or negative quantities, prices or
// fees) fails the whole batch before any matching happens. Data-quality
// problems found during matching (oversells, missing prices) are returned as
// warnings alongside the result instead.
func Compute(trades []domain.Trade, priceOf PriceFunc) (Result, error) {
	if priceOf == nil {
		priceOf = NoPrices
	}

	for _, t := range trades {
		if err := t.Validate(); err != nil {
			return Result{}, fmt.Errorf("engine: %w", err)
		}
	}

	ordered := make([]domain.Trade, len(trades))
	copy(ordered, trades)
	sort.SliceStable(ordered, func(i, j int) bool {
		if !ordered[i].BlockTime.Equal(ordered[j].BlockTime) {
			return ordered[i].BlockTime.Before(ordered[j].BlockTime)
		}
		return ordered[i].ID < ordered[j].ID
	})

	streams := splitLegs(ordered)

	// Deterministic output order regardless of map iteration.
	symbols := make([]string, 0, len(streams))
	for sym := range streams {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	wallet := ""
	if len(ordered) > 0 {
		wallet = ordered[0].WalletAddress
	}

	var res Result
	for _, sym := range symbols {
		mr := matchSymbol(wallet, sym, streams[sym], priceOf)
		res.Positions = append(res.Positions, mr.positions...)
		res.PositionTrades = append(res.PositionTrades, mr.positionTrades...)
		res.Warnings = append(res.Warnings, mr.warnings...)
	}
	return res, nil
}

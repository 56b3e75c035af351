package domain

import "github.com/shopspring/decimal"

// PositionMetrics is a read-only aggregate over a set of positions.
//
// PositionWinRate is the percentage of closed positions with positive net P&L,
// excluding positions that closed exactly flat (zero net P&L counts as neither
// win nor loss). WinRateSamples is the effective denominator, kept so metrics
// from different wallets can be merged count-weighted instead of averaging
// per-wallet rates naively.
type PositionMetrics struct {
	TotalPositions  int
	OpenPositions   int
	ClosedPositions int

	TotalRealizedPnL   decimal.Decimal
	TotalUnrealizedPnL decimal.Decimal
	TotalNetPnL        decimal.Decimal

	PositionWinRate float64 // percent
	WinRateSamples  int
	Wins            int

	AvgPositionDurationHours float64 // closed positions only
	AvgPositionSizeUSD       decimal.Decimal

	LargestWin  decimal.Decimal
	LargestLoss decimal.Decimal
	TotalFees   decimal.Decimal
}

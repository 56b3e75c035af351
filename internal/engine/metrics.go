package engine

import (
	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/tradejournal/internal/domain"
)

// Aggregate computes summary metrics over a set of positions, typically one
// wallet's. Pure function, no I/O.
//
// Win rate is computed over closed positions only, and a position that closed
// exactly flat (zero net P&L) counts as neither win nor loss: it is excluded
// from both numerator and denominator. Average duration likewise covers
// closed positions only, so the result does not depend on when the
// aggregation runs.
func Aggregate(positions []domain.Position) domain.PositionMetrics {
	m := domain.PositionMetrics{
		TotalRealizedPnL:   decimal.Zero,
		TotalUnrealizedPnL: decimal.Zero,
		TotalNetPnL:        decimal.Zero,
		AvgPositionSizeUSD: decimal.Zero,
		LargestWin:         decimal.Zero,
		LargestLoss:        decimal.Zero,
		TotalFees:          decimal.Zero,
	}

	var (
		durationHours float64
		sizeTotal     = decimal.Zero
	)

	for _, p := range positions {
		m.TotalPositions++
		m.TotalRealizedPnL = m.TotalRealizedPnL.Add(p.RealizedPnL)
		m.TotalUnrealizedPnL = m.TotalUnrealizedPnL.Add(p.UnrealizedPnL)
		m.TotalFees = m.TotalFees.Add(p.Fees)
		sizeTotal = sizeTotal.Add(p.EntryNotional())

		if p.Status == domain.PositionStatusOpen {
			m.OpenPositions++
			continue
		}

		m.ClosedPositions++
		durationHours += p.CloseDate.Sub(p.OpenDate).Hours()

		net := p.NetPnL()
		switch {
		case net.IsPositive():
			m.Wins++
			m.WinRateSamples++
			if net.GreaterThan(m.LargestWin) {
				m.LargestWin = net
			}
		case net.IsNegative():
			m.WinRateSamples++
			if net.LessThan(m.LargestLoss) {
				m.LargestLoss = net
			}
		}
	}

	m.TotalNetPnL = m.TotalRealizedPnL.Add(m.TotalUnrealizedPnL)
	if m.WinRateSamples > 0 {
		m.PositionWinRate = float64(m.Wins) / float64(m.WinRateSamples) * 100
	}
	if m.ClosedPositions > 0 {
		m.AvgPositionDurationHours = durationHours / float64(m.ClosedPositions)
	}
	if m.TotalPositions > 0 {
		m.AvgPositionSizeUSD = sizeTotal.Div(decimal.NewFromInt(int64(m.TotalPositions)))
	}
	return m
}

// MergeMetrics combines per-wallet metrics into one aggregate, the way the
// dashboard rolls wallets up. Rate-like fields (win rate, average duration,
// average size) are recombined count-weighted from the underlying tallies —
// never an arithmetic mean of per-wallet rates.
func MergeMetrics(parts ...domain.PositionMetrics) domain.PositionMetrics {
	out := domain.PositionMetrics{
		TotalRealizedPnL:   decimal.Zero,
		TotalUnrealizedPnL: decimal.Zero,
		TotalNetPnL:        decimal.Zero,
		AvgPositionSizeUSD: decimal.Zero,
		LargestWin:         decimal.Zero,
		LargestLoss:        decimal.Zero,
		TotalFees:          decimal.Zero,
	}

	var (
		durationHoursTotal float64
		sizeTotal          = decimal.Zero
	)

	for _, p := range parts {
		out.TotalPositions += p.TotalPositions
		out.OpenPositions += p.OpenPositions
		out.ClosedPositions += p.ClosedPositions
		out.Wins += p.Wins
		out.WinRateSamples += p.WinRateSamples

		out.TotalRealizedPnL = out.TotalRealizedPnL.Add(p.TotalRealizedPnL)
		out.TotalUnrealizedPnL = out.TotalUnrealizedPnL.Add(p.TotalUnrealizedPnL)
		out.TotalFees = out.TotalFees.Add(p.TotalFees)

		durationHoursTotal += p.AvgPositionDurationHours * float64(p.ClosedPositions)
		sizeTotal = sizeTotal.Add(p.AvgPositionSizeUSD.Mul(decimal.NewFromInt(int64(p.TotalPositions))))

		if p.LargestWin.GreaterThan(out.LargestWin) {
			out.LargestWin = p.LargestWin
		}
		if p.LargestLoss.LessThan(out.LargestLoss) {
			out.LargestLoss = p.LargestLoss
		}
	}

	out.TotalNetPnL = out.TotalRealizedPnL.Add(out.TotalUnrealizedPnL)
	if out.WinRateSamples > 0 {
		out.PositionWinRate = float64(out.Wins) / float64(out.WinRateSamples) * 100
	}
	if out.ClosedPositions > 0 {
		out.AvgPositionDurationHours = durationHoursTotal / float64(out.ClosedPositions)
	}
	if out.TotalPositions > 0 {
		out.AvgPositionSizeUSD = sizeTotal.Div(decimal.NewFromInt(int64(out.TotalPositions)))
	}
	return out
}

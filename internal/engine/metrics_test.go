package engine

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/tradejournal/internal/domain"
)

func closedPosition(symbol string, realized string, openOffset, closeOffset int) domain.Position {
	closeDate := at(closeOffset)
	return domain.Position{
		ID: "pos-" + symbol, WalletAddress: testWallet, Symbol: symbol,
		Status:        domain.PositionStatusClosed,
		OpenDate:      at(openOffset),
		CloseDate:     &closeDate,
		TotalBought:   dec("10"),
		TotalSold:     dec("10"),
		AvgEntryPrice: dec("1"),
		RealizedPnL:   dec(realized),
		UnrealizedPnL: decimal.Zero,
		Fees:          decimal.Zero,
	}
}

func TestAggregate(t *testing.T) {
	open := domain.Position{
		ID: "pos-open", WalletAddress: testWallet, Symbol: "OPN",
		Status:        domain.PositionStatusOpen,
		OpenDate:      at(0),
		TotalQuantity: dec("4"),
		TotalBought:   dec("4"),
		AvgEntryPrice: dec("2"),
		RealizedPnL:   decimal.Zero,
		UnrealizedPnL: dec("3"),
		Fees:          dec("0.25"),
	}
	positions := []domain.Position{
		closedPosition("AAA", "10", 0, 2),  // win, 2h
		closedPosition("BBB", "-4", 0, 6),  // loss, 6h
		closedPosition("CCC", "0", 0, 4),   // flat: neither win nor loss
		open,
	}

	m := Aggregate(positions)

	assert.Equal(t, 4, m.TotalPositions)
	assert.Equal(t, 1, m.OpenPositions)
	assert.Equal(t, 3, m.ClosedPositions)

	assert.True(t, m.TotalRealizedPnL.Equal(dec("6")))
	assert.True(t, m.TotalUnrealizedPnL.Equal(dec("3")))
	assert.True(t, m.TotalNetPnL.Equal(dec("9")))
	assert.True(t, m.TotalFees.Equal(dec("0.25")))

	// The flat close is excluded from both sides of the win rate.
	assert.Equal(t, 2, m.WinRateSamples)
	assert.Equal(t, 1, m.Wins)
	assert.InDelta(t, 50.0, m.PositionWinRate, 1e-9)

	// Closed positions only: (2 + 6 + 4) / 3.
	assert.InDelta(t, 4.0, m.AvgPositionDurationHours, 1e-9)

	// Entry notionals: 10, 10, 10, 8 → avg 9.5.
	assert.True(t, m.AvgPositionSizeUSD.Equal(dec("9.5")), "got %s", m.AvgPositionSizeUSD)

	assert.True(t, m.LargestWin.Equal(dec("10")))
	assert.True(t, m.LargestLoss.Equal(dec("-4")))
}

func TestAggregate_Empty(t *testing.T) {
	m := Aggregate(nil)
	assert.Equal(t, 0, m.TotalPositions)
	assert.Zero(t, m.PositionWinRate)
	assert.Zero(t, m.AvgPositionDurationHours)
	assert.True(t, m.TotalNetPnL.IsZero())
}

func TestAggregate_DurationFromClosedPositionsOnly(t *testing.T) {
	stale := domain.Position{
		ID: "pos-stale", WalletAddress: testWallet, Symbol: "STL",
		Status:        domain.PositionStatusOpen,
		OpenDate:      at(-24 * 30), // open for a month and counting
		TotalQuantity: dec("1"),
		TotalBought:   dec("1"),
		AvgEntryPrice: dec("1"),
	}
	positions := []domain.Position{
		closedPosition("AAA", "1", 0, 3),
		stale,
	}

	m := Aggregate(positions)

	// The open position's age never leaks into the average; only the closed
	// position's 3h lifetime counts.
	assert.Equal(t, 1, m.ClosedPositions)
	assert.InDelta(t, 3.0, m.AvgPositionDurationHours, 1e-9)
}

func TestMergeMetrics_CountWeighted(t *testing.T) {
	// Wallet A: 1 closed win of 2h. Wallet B: 3 closed (2 wins, 1 loss), 10h avg.
	a := Aggregate([]domain.Position{
		closedPosition("AAA", "5", 0, 2),
	})
	b := Aggregate([]domain.Position{
		closedPosition("BBB", "3", 0, 10),
		closedPosition("CCC", "7", 0, 14),
		closedPosition("DDD", "-2", 0, 6),
	})

	m := MergeMetrics(a, b)

	assert.Equal(t, 4, m.TotalPositions)
	assert.Equal(t, 4, m.ClosedPositions)

	// 3 wins out of 4 decisive closes = 75%. A naive mean of the per-wallet
	// rates (100% and 66.7%) would give 83.3%.
	require.Equal(t, 4, m.WinRateSamples)
	assert.InDelta(t, 75.0, m.PositionWinRate, 1e-9)

	// (2 + 10 + 14 + 6) / 4 = 8h, weighted by closed counts.
	assert.InDelta(t, 8.0, m.AvgPositionDurationHours, 1e-9)

	assert.True(t, m.TotalRealizedPnL.Equal(dec("13")))
	assert.True(t, m.LargestWin.Equal(dec("7")))
	assert.True(t, m.LargestLoss.Equal(dec("-2")))
}

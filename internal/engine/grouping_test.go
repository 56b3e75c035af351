package engine

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/tradejournal/internal/domain"
)

func TestSplitLegs_SwapProducesBothLegs(t *testing.T) {
	swap := domain.Trade{
		ID: 7, WalletAddress: testWallet, Type: domain.TradeTypeSwap,
		TokenIn: "AAA", TokenOut: "BBB",
		AmountIn: dec("3"), AmountOut: dec("6"),
		PriceIn: decp("2"), PriceOut: decp("1"),
		Fees: dec("0.10"), BlockTime: at(0), Success: true,
	}

	streams := splitLegs([]domain.Trade{swap})
	require.Len(t, streams, 2)

	aaa := streams["AAA"]
	require.Len(t, aaa, 1)
	assert.Equal(t, legExit, aaa[0].kind)
	assert.Equal(t, int64(7), aaa[0].tradeID)
	assert.True(t, aaa[0].qty.Equal(dec("3")))

	bbb := streams["BBB"]
	require.Len(t, bbb, 1)
	assert.Equal(t, legEntry, bbb[0].kind)
	assert.Equal(t, int64(7), bbb[0].tradeID)
	assert.True(t, bbb[0].fees.Equal(aaa[0].fees), "swap legs share the trade fee")
	assert.True(t, bbb[0].ts.Equal(aaa[0].ts), "swap legs share the trade timestamp")
}

func TestSplitLegs_SkipsFailedAndZeroQuantity(t *testing.T) {
	failed := domain.Trade{
		ID: 1, Type: domain.TradeTypeBuy, TokenOut: "TOK",
		AmountOut: dec("5"), BlockTime: at(0), Success: false,
	}
	zero := domain.Trade{
		ID: 2, Type: domain.TradeTypeSell, TokenIn: "TOK",
		AmountIn: decimal.Zero, BlockTime: at(1), Success: true,
	}

	streams := splitLegs([]domain.Trade{failed, zero})
	assert.Empty(t, streams)
}

func TestSplitLegs_PreservesWalletOrder(t *testing.T) {
	trades := []domain.Trade{
		buy(1, at(0), "TOK", "1", "1"),
		sell(2, at(1), "TOK", "1", "2"),
		buy(3, at(2), "TOK", "2", "3"),
	}

	streams := splitLegs(trades)
	tok := streams["TOK"]
	require.Len(t, tok, 3)
	assert.Equal(t, []int64{1, 2, 3}, []int64{tok[0].tradeID, tok[1].tradeID, tok[2].tradeID})
}

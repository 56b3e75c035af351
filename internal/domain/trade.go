package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// TradeType classifies how a trade moves token quantity.
type TradeType string

const (
	TradeTypeBuy  TradeType = "buy"
	TradeTypeSell TradeType = "sell"
	TradeTypeSwap TradeType = "swap"
)

// Trade is a single recorded fill from the import feed. Trades are immutable
// once recorded; positions are always derived by replaying them.
//
// AmountIn/AmountOut are the non-negative quantities of the two sides of the
// swap. PriceIn/PriceOut are optional USD unit prices at execution time: a nil
// price means the trade cannot be realized-priced and is excluded from P&L
// aggregation, though it still moves position quantity.
type Trade struct {
	ID            int64
	Signature     string // on-chain tx signature / provider fill id, dedupe key
	WalletAddress string
	Type          TradeType
	TokenIn       string // symbol disposed of (spent)
	TokenOut      string // symbol acquired (received)
	AmountIn      decimal.Decimal
	AmountOut     decimal.Decimal
	PriceIn       *decimal.Decimal
	PriceOut      *decimal.Decimal
	Fees          decimal.Decimal // USD
	BlockTime     time.Time
	Success       bool
	Source        string // "zerion", "okx", "manual"
}

// Validate rejects trades the position engine must never see: a missing
// timestamp makes the log unsortable, and negative quantities, prices or fees
// have no defined FIFO semantics. Callers treat a failure as fatal for the
// whole batch.
func (t Trade) Validate() error {
	switch t.Type {
	case TradeTypeBuy, TradeTypeSell, TradeTypeSwap:
	default:
		return fmt.Errorf("%w: trade %d has unknown type %q", ErrInvalidTrade, t.ID, t.Type)
	}
	if t.BlockTime.IsZero() {
		return fmt.Errorf("%w: trade %d has no block time", ErrInvalidTrade, t.ID)
	}
	if t.AmountIn.IsNegative() || t.AmountOut.IsNegative() {
		return fmt.Errorf("%w: trade %d has negative amount", ErrInvalidTrade, t.ID)
	}
	if t.PriceIn != nil && t.PriceIn.IsNegative() {
		return fmt.Errorf("%w: trade %d has negative price_in", ErrInvalidTrade, t.ID)
	}
	if t.PriceOut != nil && t.PriceOut.IsNegative() {
		return fmt.Errorf("%w: trade %d has negative price_out", ErrInvalidTrade, t.ID)
	}
	if t.Fees.IsNegative() {
		return fmt.Errorf("%w: trade %d has negative fees", ErrInvalidTrade, t.ID)
	}
	return nil
}

package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PositionStatus tracks whether a position is open or closed.
type PositionStatus string

const (
	PositionStatusOpen   PositionStatus = "open"
	PositionStatusClosed PositionStatus = "closed"
)

// Lot is an open quantity of a token acquired by a single trade. Quantity is
// consumed FIFO by later disposals and never goes negative; price and fees are
// fixed at acquisition. Priced is false when the acquiring trade carried no
// USD price, in which case the lot moves quantity but is excluded from P&L.
type Lot struct {
	Quantity      decimal.Decimal
	Price         decimal.Decimal
	Fees          decimal.Decimal
	Priced        bool
	SourceTradeID int64
	Timestamp     time.Time
}

// Position is one continuous holding interval of a token in a wallet: from the
// first acquisition after a zero balance until the balance returns to zero.
// A new acquisition after a close always starts a fresh Position; closed
// positions are never reopened.
type Position struct {
	ID            string
	WalletAddress string
	Symbol        string
	Status        PositionStatus
	OpenDate      time.Time
	CloseDate     *time.Time
	TotalQuantity decimal.Decimal // net remaining; positive = long remainder
	TotalBought   decimal.Decimal // all quantity ever acquired into this position
	TotalSold     decimal.Decimal // all quantity matched out of this position
	AvgEntryPrice decimal.Decimal // quantity-weighted over priced entry legs
	AvgExitPrice  *decimal.Decimal
	RealizedPnL   decimal.Decimal
	UnrealizedPnL decimal.Decimal
	Fees          decimal.Decimal // sum of fees across constituent trades
}

// EntryNotional is the USD size of the position at open: everything bought,
// valued at the average entry price.
func (p Position) EntryNotional() decimal.Decimal {
	return p.AvgEntryPrice.Mul(p.TotalBought)
}

// NetPnL is realized plus unrealized P&L.
func (p Position) NetPnL() decimal.Decimal {
	return p.RealizedPnL.Add(p.UnrealizedPnL)
}

// Duration returns how long the position has been (or was) held.
func (p Position) Duration(now time.Time) time.Duration {
	if p.CloseDate != nil {
		return p.CloseDate.Sub(p.OpenDate)
	}
	return now.Sub(p.OpenDate)
}

// TradeRole marks which side of a position a trade contributed to.
type TradeRole string

const (
	TradeRoleEntry TradeRole = "entry"
	TradeRoleExit  TradeRole = "exit"
)

// PositionTrade links a trade to the position it was attributed to. Quantity
// is the portion of the trade attributed to this position; for exits,
// CostBasis is the quantity-weighted average cost of the FIFO lots the
// disposal matched against.
type PositionTrade struct {
	PositionID string
	TradeID    int64
	Role       TradeRole
	Quantity   decimal.Decimal
	Price      decimal.Decimal
	CostBasis  decimal.Decimal
	Fees       decimal.Decimal
	Timestamp  time.Time
}

package engine

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/tradejournal/internal/domain"
)

// legKind marks whether a leg adds or removes quantity of its symbol.
type legKind int

const (
	legEntry legKind = iota
	legExit
)

// leg is the part of a trade that affects one symbol. A buy or sell produces a
// single leg; a swap between two tracked symbols produces an exit leg for the
// spent token and an entry leg for the received token, both pointing at the
// same trade.
type leg struct {
	tradeID int64
	kind    legKind
	qty     decimal.Decimal
	price   *decimal.Decimal
	fees    decimal.Decimal
	ts      time.Time
}

// splitLegs fans a chronologically sorted trade list out into per-symbol leg
// streams. Each stream preserves the wallet-level trade order. Failed trades
// and zero-quantity legs are dropped here; they move no quantity.
func splitLegs(trades []domain.Trade) map[string][]leg {
	streams := make(map[string][]leg)

	push := func(symbol string, l leg) {
		if symbol == "" || l.qty.IsZero() {
			return
		}
		streams[symbol] = append(streams[symbol], l)
	}

	for _, t := range trades {
		if !t.Success {
			continue
		}
		switch t.Type {
		case domain.TradeTypeBuy:
			push(t.TokenOut, leg{
				tradeID: t.ID, kind: legEntry,
				qty: t.AmountOut, price: t.PriceOut, fees: t.Fees, ts: t.BlockTime,
			})
		case domain.TradeTypeSell:
			push(t.TokenIn, leg{
				tradeID: t.ID, kind: legExit,
				qty: t.AmountIn, price: t.PriceIn, fees: t.Fees, ts: t.BlockTime,
			})
		case domain.TradeTypeSwap:
			push(t.TokenIn, leg{
				tradeID: t.ID, kind: legExit,
				qty: t.AmountIn, price: t.PriceIn, fees: t.Fees, ts: t.BlockTime,
			})
			push(t.TokenOut, leg{
				tradeID: t.ID, kind: legEntry,
				qty: t.AmountOut, price: t.PriceOut, fees: t.Fees, ts: t.BlockTime,
			})
		}
	}
	return streams
}

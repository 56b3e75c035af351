package engine

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/tradejournal/internal/domain"
)

// positionNamespace seeds deterministic position IDs. Replaying the same
// trade log must yield byte-identical positions, so IDs are derived from the
// stream identity rather than drawn randomly.
var positionNamespace = uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

func positionID(wallet, symbol string, openDate time.Time, seq int) string {
	name := fmt.Sprintf("%s/%s/%d/%d", wallet, symbol, openDate.UnixNano(), seq)
	return uuid.NewSHA1(positionNamespace, []byte(name)).String()
}

// openPosition accumulates state for the position currently being built for
// one (wallet, symbol) stream.
type openPosition struct {
	id       string
	openDate time.Time

	totalBought decimal.Decimal
	totalSold   decimal.Decimal

	// Weighted entry/exit averages run over priced legs only; unpriced legs
	// move quantity but contribute no cost or proceeds.
	entryCost      decimal.Decimal
	entryPricedQty decimal.Decimal
	exitValue      decimal.Decimal
	exitPricedQty  decimal.Decimal

	realized decimal.Decimal
	fees     decimal.Decimal
}

func newOpenPosition(wallet, symbol string, openDate time.Time, seq int) *openPosition {
	return &openPosition{id: positionID(wallet, symbol, openDate, seq), openDate: openDate}
}

type matchResult struct {
	positions      []domain.Position
	positionTrades []domain.PositionTrade
	warnings       []domain.Warning
}

// matchSymbol runs the FIFO lot matcher over one symbol's leg stream.
//
// Entries push lots onto the back of the queue; exits consume lots from the
// front, oldest first. A position opens at the first acquisition after a zero
// balance and closes the moment consumption brings the remaining quantity back
// to zero — a later acquisition then starts a brand-new position, it never
// reopens the closed one.
func matchSymbol(wallet, symbol string, legs []leg, priceOf PriceFunc) matchResult {
	var (
		res   matchResult
		queue []domain.Lot
		cur   *openPosition
		seq   int
	)

	for _, l := range legs {
		switch l.kind {
		case legEntry:
			if cur == nil {
				cur = newOpenPosition(wallet, symbol, l.ts, seq)
				seq++
			}
			lot := domain.Lot{
				Quantity:      l.qty,
				Fees:          l.fees,
				SourceTradeID: l.tradeID,
				Timestamp:     l.ts,
			}
			if l.price != nil {
				lot.Price = *l.price
				lot.Priced = true
				cur.entryCost = cur.entryCost.Add(l.qty.Mul(*l.price))
				cur.entryPricedQty = cur.entryPricedQty.Add(l.qty)
			} else {
				res.warnings = append(res.warnings, domain.Warning{
					Code: domain.WarnMissingPrice, Symbol: symbol, TradeID: l.tradeID,
					Detail: "acquisition has no USD price; excluded from P&L",
				})
			}
			queue = append(queue, lot)
			cur.totalBought = cur.totalBought.Add(l.qty)
			cur.fees = cur.fees.Add(l.fees)

			entryPrice := decimal.Zero
			if l.price != nil {
				entryPrice = *l.price
			}
			res.positionTrades = append(res.positionTrades, domain.PositionTrade{
				PositionID: cur.id,
				TradeID:    l.tradeID,
				Role:       domain.TradeRoleEntry,
				Quantity:   l.qty,
				Price:      entryPrice,
				Fees:       l.fees,
				Timestamp:  l.ts,
			})

		case legExit:
			if cur == nil || len(queue) == 0 {
				// Disposal against an empty book: missing or out-of-order
				// history. Nothing to match, so the whole quantity is
				// reported unmatched and ignored.
				res.warnings = append(res.warnings, domain.Warning{
					Code: domain.WarnOversell, Symbol: symbol, TradeID: l.tradeID,
					Detail: fmt.Sprintf("disposal of %s with no open lots; unmatched quantity %s ignored", l.qty, l.qty),
				})
				continue
			}

			queue = consumeLots(cur, symbol, l, queue, &res)

			// Close once the book is empty (within dust tolerance). A
			// residual below epsilon is floating dust from partial fills,
			// not a real holding.
			if remainingQuantity(queue).LessThanOrEqual(epsilon) {
				queue = queue[:0]
				closed := l.ts
				res.positions = append(res.positions, finalize(cur, wallet, symbol, nil, &closed, priceOf))
				cur = nil
			}
		}
	}

	if cur != nil {
		res.positions = append(res.positions, finalize(cur, wallet, symbol, queue, nil, priceOf))
	}
	return res
}

// consumeLots matches one disposal leg against the front of the lot queue and
// returns the queue with consumed lots popped. Realized P&L accumulates into
// cur; the disposal's fees are allocated pro-rata by consumed quantity across
// the lots it touches, with the last lot absorbing the rounding remainder.
func consumeLots(cur *openPosition, symbol string, l leg, queue []domain.Lot, res *matchResult) []domain.Lot {
	available := remainingQuantity(queue)
	consumeTotal := decimal.Min(l.qty, available)

	if l.qty.GreaterThan(available) {
		res.warnings = append(res.warnings, domain.Warning{
			Code: domain.WarnOversell, Symbol: symbol, TradeID: l.tradeID,
			Detail: fmt.Sprintf("disposal of %s exceeds held %s; unmatched quantity %s ignored",
				l.qty, available, l.qty.Sub(available)),
		})
	}
	if l.price == nil {
		res.warnings = append(res.warnings, domain.Warning{
			Code: domain.WarnMissingPrice, Symbol: symbol, TradeID: l.tradeID,
			Detail: "disposal has no USD price; excluded from P&L",
		})
	}

	var (
		left          = consumeTotal
		feesAllocated decimal.Decimal
		matchedCost   decimal.Decimal
		matchedQty    decimal.Decimal
	)
	for left.IsPositive() && len(queue) > 0 {
		lot := &queue[0]
		take := decimal.Min(left, lot.Quantity)

		last := take.Equal(left)
		var feeShare decimal.Decimal
		if last {
			feeShare = l.fees.Sub(feesAllocated)
		} else {
			feeShare = l.fees.Mul(take).Div(consumeTotal).Round(feeScale)
		}
		feesAllocated = feesAllocated.Add(feeShare)

		// Only a priced lot matched by a priced disposal contributes to
		// realized P&L; anything else moved quantity without a defined
		// dollar outcome.
		if l.price != nil && lot.Priced {
			cur.realized = cur.realized.Add(take.Mul(l.price.Sub(lot.Price)).Sub(feeShare))
			matchedCost = matchedCost.Add(take.Mul(lot.Price))
			matchedQty = matchedQty.Add(take)
		}

		lot.Quantity = lot.Quantity.Sub(take)
		left = left.Sub(take)
		if lot.Quantity.LessThanOrEqual(epsilon) {
			queue = queue[1:]
		}
	}

	cur.totalSold = cur.totalSold.Add(consumeTotal)
	cur.fees = cur.fees.Add(l.fees)

	exitPrice := decimal.Zero
	if l.price != nil {
		exitPrice = *l.price
		cur.exitValue = cur.exitValue.Add(consumeTotal.Mul(exitPrice))
		cur.exitPricedQty = cur.exitPricedQty.Add(consumeTotal)
	}
	costBasis := decimal.Zero
	if matchedQty.IsPositive() {
		costBasis = matchedCost.Div(matchedQty)
	}
	res.positionTrades = append(res.positionTrades, domain.PositionTrade{
		PositionID: cur.id,
		TradeID:    l.tradeID,
		Role:       domain.TradeRoleExit,
		Quantity:   consumeTotal,
		Price:      exitPrice,
		CostBasis:  costBasis,
		Fees:       l.fees,
		Timestamp:  l.ts,
	})
	return queue
}

// finalize converts accumulated state into a Position. queue holds the
// surviving lots for an open position; closeDate is set for a closed one.
func finalize(cur *openPosition, wallet, symbol string, queue []domain.Lot, closeDate *time.Time, priceOf PriceFunc) domain.Position {
	p := domain.Position{
		ID:            cur.id,
		WalletAddress: wallet,
		Symbol:        symbol,
		Status:        domain.PositionStatusOpen,
		OpenDate:      cur.openDate,
		TotalBought:   cur.totalBought,
		TotalSold:     cur.totalSold,
		RealizedPnL:   cur.realized,
		Fees:          cur.fees,
	}
	if cur.entryPricedQty.IsPositive() {
		p.AvgEntryPrice = cur.entryCost.Div(cur.entryPricedQty)
	}
	if cur.exitPricedQty.IsPositive() {
		avgExit := cur.exitValue.Div(cur.exitPricedQty)
		p.AvgExitPrice = &avgExit
	}

	if closeDate != nil {
		p.Status = domain.PositionStatusClosed
		p.CloseDate = closeDate
		p.TotalQuantity = decimal.Zero
		return p
	}

	p.TotalQuantity = remainingQuantity(queue)
	// No priced entry means no cost basis; marking to market would report the
	// whole notional as paper profit, so unrealized stays zero and the
	// missing_price warnings carry the explanation.
	if price, ok := priceOf(symbol); ok && cur.entryPricedQty.IsPositive() {
		p.UnrealizedPnL = price.Sub(p.AvgEntryPrice).Mul(p.TotalQuantity)
	}
	return p
}

func remainingQuantity(queue []domain.Lot) decimal.Decimal {
	total := decimal.Zero
	for _, lot := range queue {
		total = total.Add(lot.Quantity)
	}
	return total
}

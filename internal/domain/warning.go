package domain

import "fmt"

// WarningCode classifies non-fatal data-quality findings from a recompute.
type WarningCode string

const (
	// WarnOversell: a disposal exceeded the quantity held in open lots.
	// Consumption is capped at what was available and the shortfall ignored;
	// it usually means the trade history is missing earlier acquisitions.
	WarnOversell WarningCode = "oversell"
	// WarnMissingPrice: a trade leg carried no USD price, so it moved
	// quantity but was excluded from P&L aggregation.
	WarnMissingPrice WarningCode = "missing_price"
)

// Warning is a non-fatal data-quality finding attached to a recompute result.
// Computation continues past warnings; they exist so the data problem can be
// surfaced to the user rather than silently absorbed.
type Warning struct {
	Code    WarningCode
	Symbol  string
	TradeID int64
	Detail  string
}

func (w Warning) String() string {
	return fmt.Sprintf("%s [%s, trade %d]: %s", w.Code, w.Symbol, w.TradeID, w.Detail)
}

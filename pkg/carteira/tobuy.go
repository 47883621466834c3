package carteira

import "github.com/dustin/go-humanize"

// ToBuyState classifies the allocation calculator result.
type ToBuyState int

const (
	// ToBuyKnown means Units holds a whole-unit count (possibly zero).
	ToBuyKnown ToBuyState = iota
	// ToBuyUnknown means a purchase cannot be sized without a price.
	ToBuyUnknown
	// ToBuyNotApplicable marks removed allocations; rendered as "-".
	ToBuyNotApplicable
)

// ToBuy is the result of sizing a purchase toward a target allocation.
type ToBuy struct {
	State ToBuyState
	Units int64
}

// ToBuyQuantity computes how many whole units must be bought to reach the
// ideal percentage of the target portfolio value, given the current net
// balance and the asset's last price. Never returns a negative count and
// never rounds up.
func ToBuyQuantity(idealPercentage *Amount, targetValue, currentNetBalance Amount, lastPrice *Amount, removed bool) ToBuy {
	if removed {
		return ToBuy{State: ToBuyNotApplicable}
	}
	if lastPrice == nil || !lastPrice.IsPositive() {
		return ToBuy{State: ToBuyUnknown}
	}
	if idealPercentage == nil || !idealPercentage.IsPositive() {
		return ToBuy{State: ToBuyKnown, Units: 0}
	}

	goal := idealPercentage.Times(targetValue).DivBy(NewAmountFromInt(100))
	delta := goal.Minus(currentNetBalance)
	units := delta.DivBy(*lastPrice)
	if !units.IsPositive() {
		return ToBuy{State: ToBuyKnown, Units: 0}
	}
	return ToBuy{State: ToBuyKnown, Units: units.Floor().IntPart()}
}

// FormatToBuy renders a ToBuy for display: "-" when not applicable, empty when
// unknown, otherwise a thousands-grouped unit count.
func FormatToBuy(tb ToBuy) string {
	switch tb.State {
	case ToBuyNotApplicable:
		return "-"
	case ToBuyUnknown:
		return ""
	}
	return humanize.Comma(tb.Units) + " un."
}

package carteira

import "sort"

// crossingRowData carries typed values through assembly and ordering; the
// JSON-facing CrossingRow is produced last so masking can swap gated fields.
type crossingRowData struct {
	asset      AssetRef
	code       string
	name       string
	class      string
	status     string
	ideal      Amount
	lastPrice  *Amount
	balance    Amount
	netBalance Amount
	quantity   Amount
	invested   Amount
	netCost    Amount
	profit     Amount
	profitPct  Amount
	toBuy      ToBuy
	removed    bool
}

// BuildCrossing joins target allocations against open positions and removal
// history into the comparison view. Premium fields are masked when the
// entitlement collaborator denies full access.
func (c *Core) BuildCrossing(targetValue Amount) (*Crossing, error) {
	allocations, err := c.GetTargetAllocations()
	if err != nil {
		return nil, err
	}
	openPositions, err := c.GetPositions(PositionFilter{})
	if err != nil {
		return nil, err
	}
	removed, err := c.GetRemovedAllocations()
	if err != nil {
		return nil, err
	}
	index, err := c.loadAssetIndex()
	if err != nil {
		return nil, err
	}
	return assembleCrossing(allocations, openPositions, removed, index, targetValue, c.entitlements.FullAccess()), nil
}

func assembleCrossing(
	allocations []TargetAllocation,
	openPositions []Position,
	removed []RemovedAllocation,
	index map[AssetRef]assetInfo,
	targetValue Amount,
	hasFullAccess bool,
) *Crossing {
	byAsset := map[AssetRef]*crossingRowData{}
	for _, a := range allocations {
		info := index[a.Asset]
		byAsset[a.Asset] = &crossingRowData{
			asset:     a.Asset,
			code:      info.Code,
			name:      info.Name,
			class:     info.Class,
			status:    StatusNotPositioned,
			ideal:     a.Percentage,
			lastPrice: info.LastPrice,
		}
	}

	// Latest removal per asset; GetRemovedAllocations is already newest-first.
	removedLatest := map[AssetRef]RemovedAllocation{}
	for _, r := range removed {
		if _, ok := removedLatest[r.Asset]; !ok {
			removedLatest[r.Asset] = r
		}
	}

	for _, p := range openPositions {
		row, targeted := byAsset[p.Asset]
		if !targeted {
			history, wasRemoved := removedLatest[p.Asset]
			if !wasRemoved {
				// Held but never targeted and never explicitly removed:
				// silently dropped.
				continue
			}
			info := index[p.Asset]
			row = &crossingRowData{
				asset:     p.Asset,
				code:      info.Code,
				name:      info.Name,
				class:     info.Class,
				status:    StatusUnwindPosition,
				ideal:     history.Percentage,
				lastPrice: info.LastPrice,
				removed:   true,
			}
			byAsset[p.Asset] = row
		} else if !row.removed {
			row.status = StatusPositioned
		}

		// The same asset can be held open in several accounts; the row
		// aggregates across all of them.
		row.quantity = row.quantity.Plus(p.QuantityCurrent)
		row.invested = row.invested.Plus(p.TotalPurchased)
		row.netCost = row.netCost.Plus(p.TotalPurchased.Minus(p.TotalSold))
		if p.Balance != nil {
			row.balance = row.balance.Plus(*p.Balance)
		}
		if p.NetBalance != nil {
			row.netBalance = row.netBalance.Plus(*p.NetBalance)
		}
		if p.Profit != nil {
			row.profit = row.profit.Plus(*p.Profit)
		}
		if row.netCost.IsPositive() {
			row.profitPct = row.profit.DivBy(row.netCost).Times(NewAmountFromInt(100))
		} else {
			row.profitPct = Amount{}
		}
		row.toBuy = ToBuyQuantity(amountPtr(row.ideal), targetValue, row.netBalance, row.lastPrice, row.removed)
	}

	rows := make([]*crossingRowData, 0, len(byAsset))
	for _, row := range byAsset {
		rows = append(rows, row)
	}
	sortCrossingRows(rows)

	// Rows without a live position size their purchase from a zero balance.
	for _, row := range rows {
		if row.status == StatusNotPositioned {
			row.toBuy = ToBuyQuantity(amountPtr(row.ideal), targetValue, Amount{}, row.lastPrice, false)
		}
	}

	summary := summarizeCrossing(rows, targetValue)

	out := &Crossing{Rows: make([]CrossingRow, 0, len(rows))}
	for _, row := range rows {
		out.Rows = append(out.Rows, renderCrossingRow(row, hasFullAccess))
	}
	out.Summary = renderCrossingSummary(summary, hasFullAccess)
	return out
}

// Fixed-income rows sort before equities; within equities, REIT/ETF rows sort
// after plain stocks; within each bucket by (code, name) ascending.
func sortCrossingRows(rows []*crossingRowData) {
	bucket := func(row *crossingRowData) int {
		if row.asset.Kind == KindInstrument {
			return 0
		}
		if row.class == ClassStock {
			return 1
		}
		return 2
	}
	sort.SliceStable(rows, func(i, j int) bool {
		bi, bj := bucket(rows[i]), bucket(rows[j])
		if bi != bj {
			return bi < bj
		}
		if rows[i].code != rows[j].code {
			return rows[i].code < rows[j].code
		}
		return rows[i].name < rows[j].name
	})
}

type crossingTotals struct {
	targetValue    Amount
	positioned     int
	notPositioned  int
	unwind         int
	invested       Amount
	currentValue   Amount
	totalProfit    Amount
	avgProfitPct   Amount
	profitable     int
	loss           int
	wellPositioned int
}

func summarizeCrossing(rows []*crossingRowData, targetValue Amount) crossingTotals {
	totals := crossingTotals{targetValue: targetValue}
	pctSum := Amount{}
	pctCount := 0

	for _, row := range rows {
		switch row.status {
		case StatusPositioned:
			totals.positioned++
		case StatusNotPositioned:
			totals.notPositioned++
		case StatusUnwindPosition:
			totals.unwind++
		}

		totals.invested = totals.invested.Plus(row.invested)
		totals.currentValue = totals.currentValue.Plus(row.balance)
		totals.totalProfit = totals.totalProfit.Plus(row.profit)

		if !row.profitPct.IsZero() {
			pctSum = pctSum.Plus(row.profitPct)
			pctCount++
		}
		if row.profitPct.IsPositive() {
			totals.profitable++
		} else if row.profitPct.IsNegative() {
			totals.loss++
		}

		if row.ideal.IsPositive() {
			goal := row.ideal.Times(targetValue).DivBy(NewAmountFromInt(100))
			if goal.IsPositive() {
				ratio := row.balance.DivBy(goal)
				if !ratio.LessThan(NewAmount(0.95).Decimal) && !ratio.GreaterThan(NewAmount(1.05).Decimal) {
					totals.wellPositioned++
				}
			}
		}
	}

	if pctCount > 0 {
		totals.avgProfitPct = pctSum.DivBy(NewAmountFromInt(int64(pctCount)))
	}
	return totals
}

func renderCrossingRow(row *crossingRowData, hasFullAccess bool) CrossingRow {
	out := CrossingRow{
		Asset:           row.asset,
		EquityID:        row.asset.equityID(),
		InstrumentID:    row.asset.instrumentID(),
		Code:            row.code,
		Name:            row.name,
		Class:           row.class,
		Status:          row.status,
		IdealPercentage: row.ideal,
		LastPrice:       row.lastPrice,
		Balance:         row.balance,
		NetBalance:      row.netBalance,
	}

	if !hasFullAccess {
		out.QuantityCurrent = LockedValue
		out.ToBuyQuantity = LockedValue
		out.ToBuyFormatted = LockedValue
		out.Profit = LockedValue
		out.ProfitPercentage = LockedValue
		return out
	}

	out.QuantityCurrent = row.quantity
	if row.toBuy.State == ToBuyKnown {
		out.ToBuyQuantity = row.toBuy.Units
	} else {
		out.ToBuyQuantity = nil
	}
	out.ToBuyFormatted = FormatToBuy(row.toBuy)
	out.Profit = row.profit
	out.ProfitPercentage = row.profitPct
	return out
}

func renderCrossingSummary(totals crossingTotals, hasFullAccess bool) CrossingSummary {
	out := CrossingSummary{
		TargetValue:  totals.targetValue,
		Invested:     totals.invested,
		CurrentValue: totals.currentValue,
	}

	if !hasFullAccess {
		out.Result = LockedValue
		out.Positioned = LockedValue
		out.NotPositioned = LockedValue
		out.UnwindPositions = LockedValue
		out.AverageProfitPercentage = LockedValue
		out.ProfitableCount = LockedValue
		out.LossCount = LockedValue
		out.WellPositionedCount = LockedValue
		out.TotalProfit = LockedValue
		return out
	}

	out.Result = totals.currentValue.Minus(totals.invested)
	out.Positioned = totals.positioned
	out.NotPositioned = totals.notPositioned
	out.UnwindPositions = totals.unwind
	out.AverageProfitPercentage = totals.avgProfitPct
	out.ProfitableCount = totals.profitable
	out.LossCount = totals.loss
	out.WellPositionedCount = totals.wellPositioned
	out.TotalProfit = totals.totalProfit
	return out
}

package carteira

import (
	"database/sql"
	"fmt"
	"strings"
)

// PositionFilter controls position queries.
type PositionFilter struct {
	AccountID     int64
	IncludeClosed bool
}

// GetPositions returns positions with derived financial fields computed
// against the last known prices and manual net-balance overrides.
func (c *Core) GetPositions(filter PositionFilter) ([]Position, error) {
	query := strings.Builder{}
	query.WriteString(`
		SELECT id, account_id, equity_id, instrument_id,
			quantity_current, quantity_purchased, quantity_sold,
			total_purchased, total_sold,
			average_purchase_price, average_selling_price, closed
		FROM positions
		WHERE 1=1
	`)
	params := []any{}
	if filter.AccountID > 0 {
		query.WriteString(" AND account_id = ?")
		params = append(params, filter.AccountID)
	}
	if !filter.IncludeClosed {
		query.WriteString(" AND closed = 0")
	}
	query.WriteString(" ORDER BY id")

	rows, err := c.db.Query(query.String(), params...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var positions []Position
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, err
		}
		positions = append(positions, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	index, err := c.loadAssetIndex()
	if err != nil {
		return nil, err
	}
	overrides, err := c.latestNetBalanceOverrides()
	if err != nil {
		return nil, err
	}

	for i := range positions {
		p := &positions[i]
		info := index[p.Asset]
		computeDerived(p, info, overrides[p.ID])
	}
	return positions, nil
}

// GetPosition returns one position with derived fields.
func (c *Core) GetPosition(id int64) (*Position, error) {
	p, err := scanPosition(c.db.QueryRow(`
		SELECT id, account_id, equity_id, instrument_id,
			quantity_current, quantity_purchased, quantity_sold,
			total_purchased, total_sold,
			average_purchase_price, average_selling_price, closed
		FROM positions WHERE id = ?
	`, id))
	if err == sql.ErrNoRows {
		return nil, NewError(ErrCodeNotFound, fmt.Sprintf("position not found: %d", id))
	}
	if err != nil {
		return nil, WrapError(ErrCodeDatabase, "load position", err)
	}

	index, err := c.loadAssetIndex()
	if err != nil {
		return nil, err
	}
	overrides, err := c.latestNetBalanceOverrides()
	if err != nil {
		return nil, err
	}
	computeDerived(p, index[p.Asset], overrides[p.ID])
	return p, nil
}

// GetEntries returns a position's ledger in replay order.
func (c *Core) GetEntries(positionID int64) ([]LedgerEntry, error) {
	rows, err := c.db.Query(`
		SELECT id, position_id, operation, date, quantity, price, total_value, created_at
		FROM entries
		WHERE position_id = ?
		ORDER BY date ASC, id ASC
	`, positionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []LedgerEntry
	for rows.Next() {
		var e LedgerEntry
		var createdAt sql.NullString
		if err := rows.Scan(&e.ID, &e.PositionID, &e.Operation, &e.Date, &e.Quantity, &e.Price, &e.TotalValue, &createdAt); err != nil {
			return nil, err
		}
		if createdAt.Valid {
			e.CreatedAt = &createdAt.String
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// computeDerived fills the read-only financial fields: balance against the
// last known price, net balance (manual override wins), profit and profit
// percentage.
func computeDerived(p *Position, info assetInfo, override *Amount) {
	if p.AssetLabel == "" {
		if info.Code != "" {
			p.AssetLabel = info.Code
		} else {
			p.AssetLabel = p.Asset.String()
		}
	}
	p.LastPrice = info.LastPrice

	balance := Amount{}
	if p.QuantityCurrent.IsPositive() && info.LastPrice != nil {
		balance = p.QuantityCurrent.Times(*info.LastPrice)
	}
	p.Balance = amountPtr(balance)

	if override != nil {
		p.NetBalance = override
	} else {
		p.NetBalance = amountPtr(balance)
	}

	var profit Amount
	if p.QuantityCurrent.IsPositive() {
		profit = balance.Minus(p.TotalPurchased)
	} else {
		profit = p.TotalSold.Minus(p.TotalPurchased)
	}
	p.Profit = amountPtr(profit)

	denominator := p.TotalPurchased.Minus(p.TotalSold)
	if denominator.IsPositive() {
		p.ProfitPercentage = amountPtr(profit.DivBy(denominator).Times(NewAmountFromInt(100)))
	} else {
		p.ProfitPercentage = amountPtr(Amount{})
	}
}

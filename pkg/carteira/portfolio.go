package carteira

import "sort"

// GetPortfolioHistory returns cumulative buy/sell cash flow over time across
// all positions.
func (c *Core) GetPortfolioHistory(limit int) ([]PortfolioPoint, error) {
	if limit <= 0 {
		limit = 1000
	}
	rows, err := c.db.Query(`
		SELECT date, operation, total_value
		FROM entries
		ORDER BY date DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byDate := map[string]Amount{}
	for rows.Next() {
		var date, operation string
		var total Amount
		if err := rows.Scan(&date, &operation, &total); err != nil {
			return nil, err
		}
		if operation == OperationBuy {
			byDate[date] = byDate[date].Plus(total)
		} else if operation == OperationSell {
			byDate[date] = byDate[date].Minus(total)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	dates := make([]string, 0, len(byDate))
	for d := range byDate {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	var cumulative []PortfolioPoint
	var running Amount
	for _, d := range dates {
		running = running.Plus(byDate[d])
		cumulative = append(cumulative, PortfolioPoint{Date: d, Value: running})
	}
	return cumulative, nil
}

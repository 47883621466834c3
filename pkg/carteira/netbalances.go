package carteira

import (
	"database/sql"
	"fmt"
)

// SetNetBalance records a manual net-balance override for a position on a
// date. One override per (position, date); the latest date wins on read.
func (c *Core) SetNetBalance(positionID int64, date string, value Amount) (int64, error) {
	if date == "" {
		date = c.todayISO()
	}
	var exists int
	err := c.db.QueryRow("SELECT 1 FROM positions WHERE id = ?", positionID).Scan(&exists)
	if err == sql.ErrNoRows {
		return 0, NewError(ErrCodeNotFound, fmt.Sprintf("position not found: %d", positionID))
	}
	if err != nil {
		return 0, WrapError(ErrCodeDatabase, "lookup position", err)
	}

	_, err = c.db.Exec(`
		INSERT INTO net_balances (position_id, date, value)
		VALUES (?, ?, ?)
		ON CONFLICT(position_id, date) DO UPDATE SET value = excluded.value
	`, positionID, date, value)
	if err != nil {
		return 0, WrapError(ErrCodeDatabase, "save net balance", err)
	}

	// LastInsertId is meaningless on the conflict-update path.
	var id int64
	err = c.db.QueryRow(
		"SELECT id FROM net_balances WHERE position_id = ? AND date = ?",
		positionID, date,
	).Scan(&id)
	if err != nil {
		return 0, WrapError(ErrCodeDatabase, "load net balance id", err)
	}
	return id, nil
}

// GetNetBalances returns a position's overrides, most recent first.
func (c *Core) GetNetBalances(positionID int64) ([]NetBalance, error) {
	rows, err := c.db.Query(`
		SELECT id, position_id, date, value
		FROM net_balances
		WHERE position_id = ?
		ORDER BY date DESC
	`, positionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var balances []NetBalance
	for rows.Next() {
		var nb NetBalance
		if err := rows.Scan(&nb.ID, &nb.PositionID, &nb.Date, &nb.Value); err != nil {
			return nil, err
		}
		balances = append(balances, nb)
	}
	return balances, rows.Err()
}

// latestNetBalanceOverrides returns the most recent override per position.
func (c *Core) latestNetBalanceOverrides() (map[int64]*Amount, error) {
	rows, err := c.db.Query(`
		SELECT nb.position_id, nb.value
		FROM net_balances nb
		WHERE nb.date = (
			SELECT MAX(date) FROM net_balances WHERE position_id = nb.position_id
		)
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := map[int64]*Amount{}
	for rows.Next() {
		var positionID int64
		var value Amount
		if err := rows.Scan(&positionID, &value); err != nil {
			return nil, err
		}
		result[positionID] = amountPtr(value)
	}
	return result, rows.Err()
}

// AddEarning records a dividend or interest payment for a position.
func (c *Core) AddEarning(earning Earning) (int64, error) {
	if earning.Date == "" {
		earning.Date = c.todayISO()
	}
	if earning.Kind == "" {
		earning.Kind = "dividend"
	}
	var exists int
	err := c.db.QueryRow("SELECT 1 FROM positions WHERE id = ?", earning.PositionID).Scan(&exists)
	if err == sql.ErrNoRows {
		return 0, NewError(ErrCodeNotFound, fmt.Sprintf("position not found: %d", earning.PositionID))
	}
	if err != nil {
		return 0, WrapError(ErrCodeDatabase, "lookup position", err)
	}

	result, err := c.db.Exec(`
		INSERT INTO earnings (position_id, date, kind, value)
		VALUES (?, ?, ?, ?)
	`, earning.PositionID, earning.Date, earning.Kind, earning.Value)
	if err != nil {
		return 0, WrapError(ErrCodeDatabase, "insert earning", err)
	}
	return result.LastInsertId()
}

// GetEarnings returns a position's earnings, most recent first.
func (c *Core) GetEarnings(positionID int64) ([]Earning, error) {
	rows, err := c.db.Query(`
		SELECT id, position_id, date, kind, value
		FROM earnings
		WHERE position_id = ?
		ORDER BY date DESC, id DESC
	`, positionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var earnings []Earning
	for rows.Next() {
		var e Earning
		if err := rows.Scan(&e.ID, &e.PositionID, &e.Date, &e.Kind, &e.Value); err != nil {
			return nil, err
		}
		earnings = append(earnings, e)
	}
	return earnings, rows.Err()
}

package carteira

import (
	"context"
	"database/sql"
	"fmt"
)

// SetTargetAllocation creates or updates the desired percentage for an asset.
func (c *Core) SetTargetAllocation(ctx context.Context, ref AssetRef, percentage Amount) (int64, error) {
	if !ref.Valid() {
		return 0, NewError(ErrCodeInvalidInput, "exactly one of equity_id or instrument_id is required")
	}
	if percentage.IsNegative() || percentage.GreaterThan(NewAmountFromInt(100).Decimal) {
		return 0, NewError(ErrCodeValidation, "percentage must be between 0 and 100")
	}

	var id int64
	err := c.WithTx(ctx, func(tx *sql.Tx) error {
		ok, err := assetExistsTx(tx, ref)
		if err != nil {
			return WrapError(ErrCodeDatabase, "lookup asset", err)
		}
		if !ok {
			return NewError(ErrCodeNotFound, fmt.Sprintf("asset not found: %s", ref))
		}

		existing, err := findAllocationTx(tx, ref)
		if err != nil {
			return err
		}
		if existing > 0 {
			if _, err := tx.Exec("UPDATE target_allocations SET percentage = ? WHERE id = ?", percentage, existing); err != nil {
				return WrapError(ErrCodeDatabase, "update allocation", err)
			}
			id = existing
			return nil
		}

		res, err := tx.Exec(`
			INSERT INTO target_allocations (equity_id, instrument_id, percentage)
			VALUES (?, ?, ?)
		`, nullInt64(ref.equityID()), nullInt64(ref.instrumentID()), percentage)
		if err != nil {
			return WrapError(ErrCodeDatabase, "insert allocation", err)
		}
		id, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// GetTargetAllocations returns all target allocations.
func (c *Core) GetTargetAllocations() ([]TargetAllocation, error) {
	rows, err := c.db.Query("SELECT id, equity_id, instrument_id, percentage FROM target_allocations ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var allocations []TargetAllocation
	for rows.Next() {
		var a TargetAllocation
		var equityID, instrumentID sql.NullInt64
		if err := rows.Scan(&a.ID, &equityID, &instrumentID, &a.Percentage); err != nil {
			return nil, err
		}
		if equityID.Valid {
			a.EquityID = int64Ptr(equityID.Int64)
		}
		if instrumentID.Valid {
			a.InstrumentID = int64Ptr(instrumentID.Int64)
		}
		a.Asset = assetRefFromIDs(a.EquityID, a.InstrumentID)
		allocations = append(allocations, a)
	}
	return allocations, rows.Err()
}

// DeleteTargetAllocation removes a target allocation. With saveHistory the
// allocation is recorded as a removed allocation carrying the same percentage
// and an optional reason, distinguishable from earlier removals by deleted_at.
func (c *Core) DeleteTargetAllocation(ctx context.Context, id int64, saveHistory bool, reason *string) error {
	return c.WithTx(ctx, func(tx *sql.Tx) error {
		var equityID, instrumentID sql.NullInt64
		var percentage Amount
		err := tx.QueryRow(
			"SELECT equity_id, instrument_id, percentage FROM target_allocations WHERE id = ?", id,
		).Scan(&equityID, &instrumentID, &percentage)
		if err == sql.ErrNoRows {
			return NewError(ErrCodeNotFound, fmt.Sprintf("allocation not found: %d", id))
		}
		if err != nil {
			return WrapError(ErrCodeDatabase, "load allocation", err)
		}

		if _, err := tx.Exec("DELETE FROM target_allocations WHERE id = ?", id); err != nil {
			return WrapError(ErrCodeDatabase, "delete allocation", err)
		}

		if saveHistory {
			_, err := tx.Exec(`
				INSERT INTO removed_allocations (equity_id, instrument_id, percentage, reason, deleted_at)
				VALUES (?, ?, ?, ?, ?)
			`, equityID, instrumentID, percentage, nullString(reason), c.now().Format("2006-01-02 15:04:05"))
			if err != nil {
				return WrapError(ErrCodeDatabase, "save removed allocation", err)
			}
		}
		return nil
	})
}

// GetRemovedAllocations returns removal history, most recent first.
func (c *Core) GetRemovedAllocations() ([]RemovedAllocation, error) {
	rows, err := c.db.Query(`
		SELECT id, equity_id, instrument_id, percentage, reason, deleted_at
		FROM removed_allocations
		ORDER BY deleted_at DESC, id DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var removed []RemovedAllocation
	for rows.Next() {
		var r RemovedAllocation
		var equityID, instrumentID sql.NullInt64
		var reason sql.NullString
		if err := rows.Scan(&r.ID, &equityID, &instrumentID, &r.Percentage, &reason, &r.DeletedAt); err != nil {
			return nil, err
		}
		if equityID.Valid {
			r.EquityID = int64Ptr(equityID.Int64)
		}
		if instrumentID.Valid {
			r.InstrumentID = int64Ptr(instrumentID.Int64)
		}
		r.Asset = assetRefFromIDs(r.EquityID, r.InstrumentID)
		if reason.Valid {
			r.Reason = &reason.String
		}
		removed = append(removed, r)
	}
	return removed, rows.Err()
}

func findAllocationTx(tx *sql.Tx, ref AssetRef) (int64, error) {
	var query string
	switch ref.Kind {
	case KindEquity:
		query = "SELECT id FROM target_allocations WHERE equity_id = ?"
	case KindInstrument:
		query = "SELECT id FROM target_allocations WHERE instrument_id = ?"
	}
	var id int64
	err := tx.QueryRow(query, ref.ID).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, WrapError(ErrCodeDatabase, "lookup allocation", err)
	}
	return id, nil
}

package carteira

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
)

// ApplyEntry applies one ledger entry to the position's running totals.
// For sells, the oversell guard runs and fails before any field mutation.
func ApplyEntry(p *Position, e *LedgerEntry) error {
	if e.Operation == OperationSell && e.Quantity.GreaterThan(p.QuantityCurrent.Decimal) {
		label := p.AssetLabel
		if label == "" {
			label = p.Asset.String()
		}
		return newInsufficientQuantity(label, e.Quantity, p.QuantityCurrent)
	}
	accumulate(p, e)
	return nil
}

// accumulate folds one entry into the running totals without re-validating the
// oversell invariant. Recompute replays history through this path faithfully.
func accumulate(p *Position, e *LedgerEntry) {
	switch e.Operation {
	case OperationBuy:
		p.QuantityCurrent = p.QuantityCurrent.Plus(e.Quantity)
		p.QuantityPurchased = p.QuantityPurchased.Plus(e.Quantity)
		p.TotalPurchased = p.TotalPurchased.Plus(e.TotalValue)
		p.AveragePurchasePrice = p.TotalPurchased.DivBy(p.QuantityPurchased)
	case OperationSell:
		p.QuantityCurrent = p.QuantityCurrent.Minus(e.Quantity)
		p.QuantitySold = p.QuantitySold.Plus(e.Quantity)
		p.TotalSold = p.TotalSold.Plus(e.TotalValue)
		p.AverageSellingPrice = p.TotalSold.DivBy(p.QuantitySold)
		p.Closed = p.QuantityCurrent.IsZero()
	}
}

// CreateEntry finds or creates the open position for (account, asset), applies
// the entry and persists both inside one transaction. On insufficient quantity
// nothing is written.
func (c *Core) CreateEntry(ctx context.Context, req EntryRequest) (*LedgerEntry, error) {
	var created *LedgerEntry
	err := c.WithTx(ctx, func(tx *sql.Tx) error {
		entry, err := c.createEntryTx(tx, req)
		if err != nil {
			return err
		}
		created = entry
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// CreateEntries processes a batch of new entries. Entries submitted together
// are reordered to insertion-reverse-then-date-ascending before being applied.
// With BatchAtomic any failure rolls the whole batch back; with BatchPartial
// earlier successes stay committed and failures are reported per entry.
func (c *Core) CreateEntries(ctx context.Context, reqs []EntryRequest, policy BatchPolicy) (BatchResult, error) {
	ordered := make([]EntryRequest, len(reqs))
	for i, req := range reqs {
		ordered[len(reqs)-1-i] = req
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Date < ordered[j].Date
	})

	var result BatchResult

	if policy == BatchAtomic {
		err := c.WithTx(ctx, func(tx *sql.Tx) error {
			for _, req := range ordered {
				entry, err := c.createEntryTx(tx, req)
				if err != nil {
					return err
				}
				result.Created = append(result.Created, entry.ID)
			}
			return nil
		})
		if err != nil {
			return BatchResult{}, err
		}
		return result, nil
	}

	// Partial: one transaction per entry, so a failing entry does not roll
	// back siblings that already succeeded.
	for _, req := range ordered {
		entry, err := c.CreateEntry(ctx, req)
		if err != nil {
			result.Failed = append(result.Failed, err.Error())
			continue
		}
		result.Created = append(result.Created, entry.ID)
	}
	return result, nil
}

func (c *Core) createEntryTx(tx *sql.Tx, req EntryRequest) (*LedgerEntry, error) {
	req.Asset = assetRefFromIDs(req.EquityID, req.InstrumentID)
	if err := c.validateEntryRequest(tx, &req); err != nil {
		return nil, err
	}

	position, err := getOrCreatePositionTx(tx, req.AccountID, req.Asset)
	if err != nil {
		return nil, err
	}
	position.AssetLabel = assetLabelTx(tx, req.Asset)

	entry, err := buildEntry(req)
	if err != nil {
		return nil, err
	}
	entry.PositionID = position.ID

	if err := ApplyEntry(position, entry); err != nil {
		return nil, err
	}

	res, err := tx.Exec(`
		INSERT INTO entries (position_id, operation, date, quantity, price, total_value)
		VALUES (?, ?, ?, ?, ?, ?)
	`, entry.PositionID, entry.Operation, entry.Date, entry.Quantity, entry.Price, entry.TotalValue)
	if err != nil {
		return nil, WrapError(ErrCodeDatabase, "insert entry", err)
	}
	entry.ID, err = res.LastInsertId()
	if err != nil {
		return nil, WrapError(ErrCodeDatabase, "insert entry", err)
	}

	if err := savePositionTx(tx, position); err != nil {
		return nil, err
	}

	c.logEntryOperationTx(tx, "entry_create", position.AssetLabel, entry)
	return entry, nil
}

// UpdateEntry applies new fields to an entry, persists it and fully recomputes
// the owning position from its complete ledger. The incremental apply path is
// not used because an edit can change ordering-relevant fields (date).
func (c *Core) UpdateEntry(ctx context.Context, id int64, req EntryRequest) error {
	return c.WithTx(ctx, func(tx *sql.Tx) error {
		entry, position, err := loadEntryTx(tx, id)
		if err != nil {
			return err
		}

		if req.Operation != "" {
			if !isValidOperation(req.Operation) {
				return NewError(ErrCodeInvalidInput, fmt.Sprintf("invalid operation: %s", req.Operation))
			}
			entry.Operation = req.Operation
		}
		if req.Date != "" {
			entry.Date = req.Date
		}
		if req.Quantity.IsPositive() {
			entry.Quantity = req.Quantity
		}
		if !entry.Quantity.IsPositive() {
			return NewError(ErrCodeValidation, "quantity must be positive")
		}
		switch position.Asset.Kind {
		case KindEquity:
			if req.Price != nil {
				entry.Price = *req.Price
			}
			entry.TotalValue = entry.Quantity.Times(entry.Price)
		case KindInstrument:
			if req.InvestedValue != nil {
				entry.TotalValue = *req.InvestedValue
			}
			entry.Price = entry.TotalValue.DivBy(entry.Quantity)
		}

		_, err = tx.Exec(`
			UPDATE entries SET operation = ?, date = ?, quantity = ?, price = ?, total_value = ?
			WHERE id = ?
		`, entry.Operation, entry.Date, entry.Quantity, entry.Price, entry.TotalValue, entry.ID)
		if err != nil {
			return WrapError(ErrCodeDatabase, "update entry", err)
		}

		if err := recomputeTx(tx, position); err != nil {
			return err
		}
		c.logEntryOperationTx(tx, "entry_update", position.AssetLabel, entry)
		return nil
	})
}

// DeleteEntry deletes an entry. When the owning position has no entries left,
// the position and its net-balance overrides and earnings are deleted too;
// otherwise the position is recomputed.
func (c *Core) DeleteEntry(ctx context.Context, id int64) error {
	return c.WithTx(ctx, func(tx *sql.Tx) error {
		entry, position, err := loadEntryTx(tx, id)
		if err != nil {
			return err
		}

		if _, err := tx.Exec("DELETE FROM entries WHERE id = ?", id); err != nil {
			return WrapError(ErrCodeDatabase, "delete entry", err)
		}

		var remaining int
		if err := tx.QueryRow("SELECT COUNT(*) FROM entries WHERE position_id = ?", position.ID).Scan(&remaining); err != nil {
			return WrapError(ErrCodeDatabase, "count entries", err)
		}

		if remaining == 0 {
			for _, query := range []string{
				"DELETE FROM net_balances WHERE position_id = ?",
				"DELETE FROM earnings WHERE position_id = ?",
				"DELETE FROM positions WHERE id = ?",
			} {
				if _, err := tx.Exec(query, position.ID); err != nil {
					return WrapError(ErrCodeDatabase, "cascade position delete", err)
				}
			}
			c.logEntryOperationTx(tx, "entry_delete", position.AssetLabel, entry)
			return nil
		}

		if err := recomputeTx(tx, position); err != nil {
			return err
		}
		c.logEntryOperationTx(tx, "entry_delete", position.AssetLabel, entry)
		return nil
	})
}

// Recompute rebuilds a position's cumulative fields from its full ledger.
func (c *Core) Recompute(ctx context.Context, positionID int64) error {
	return c.WithTx(ctx, func(tx *sql.Tx) error {
		position, err := loadPositionTx(tx, positionID)
		if err != nil {
			return err
		}
		return recomputeTx(tx, position)
	})
}

// recomputeTx resets the position, replays all its entries ordered by
// (date asc, creation asc) and persists the final state. The replay is
// faithful: it does not re-validate the oversell invariant per step, but a
// negative final quantity is a consistency violation and nothing is persisted.
func recomputeTx(tx *sql.Tx, position *Position) error {
	position.QuantityCurrent = Amount{}
	position.QuantityPurchased = Amount{}
	position.QuantitySold = Amount{}
	position.TotalPurchased = Amount{}
	position.TotalSold = Amount{}
	position.AveragePurchasePrice = Amount{}
	position.AverageSellingPrice = Amount{}
	position.Closed = false

	rows, err := tx.Query(`
		SELECT id, position_id, operation, date, quantity, price, total_value
		FROM entries
		WHERE position_id = ?
		ORDER BY date ASC, id ASC
	`, position.ID)
	if err != nil {
		return WrapError(ErrCodeDatabase, "load entries", err)
	}
	defer rows.Close()

	applied := 0
	for rows.Next() {
		var e LedgerEntry
		if err := rows.Scan(&e.ID, &e.PositionID, &e.Operation, &e.Date, &e.Quantity, &e.Price, &e.TotalValue); err != nil {
			return WrapError(ErrCodeDatabase, "scan entry", err)
		}
		accumulate(position, &e)
		applied++
	}
	if err := rows.Err(); err != nil {
		return WrapError(ErrCodeDatabase, "load entries", err)
	}

	if position.QuantityCurrent.IsNegative() {
		return NewError(ErrCodeConsistency, fmt.Sprintf(
			"recompute of position %d produced negative quantity %s",
			position.ID, position.QuantityCurrent.String(),
		))
	}
	position.Closed = position.QuantityCurrent.IsZero() && applied > 0

	return savePositionTx(tx, position)
}

// getOrCreatePositionTx returns the unique open position for (account, asset),
// creating a zeroed one when none exists. Callers hold the write transaction,
// which serializes concurrent creators.
func getOrCreatePositionTx(tx *sql.Tx, accountID int64, ref AssetRef) (*Position, error) {
	var fkColumn string
	switch ref.Kind {
	case KindEquity:
		fkColumn = "equity_id"
	case KindInstrument:
		fkColumn = "instrument_id"
	default:
		return nil, NewError(ErrCodeInvalidInput, "asset reference is required")
	}

	query := fmt.Sprintf(`
		SELECT id, account_id, equity_id, instrument_id,
			quantity_current, quantity_purchased, quantity_sold,
			total_purchased, total_sold,
			average_purchase_price, average_selling_price, closed
		FROM positions
		WHERE account_id = ? AND closed = 0 AND %s = ?
	`, fkColumn)

	position, err := scanPosition(tx.QueryRow(query, accountID, ref.ID))
	if err == nil {
		return position, nil
	}
	if err != sql.ErrNoRows {
		return nil, WrapError(ErrCodeDatabase, "lookup position", err)
	}

	res, err := tx.Exec(`
		INSERT INTO positions (account_id, equity_id, instrument_id)
		VALUES (?, ?, ?)
	`, accountID, nullInt64(ref.equityID()), nullInt64(ref.instrumentID()))
	if err != nil {
		return nil, WrapError(ErrCodeDatabase, "create position", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, WrapError(ErrCodeDatabase, "create position", err)
	}

	return &Position{
		ID:           id,
		AccountID:    accountID,
		Asset:        ref,
		EquityID:     ref.equityID(),
		InstrumentID: ref.instrumentID(),
	}, nil
}

func (c *Core) validateEntryRequest(tx *sql.Tx, req *EntryRequest) error {
	if !isValidOperation(req.Operation) {
		return NewError(ErrCodeInvalidInput, fmt.Sprintf("invalid operation: %s", req.Operation))
	}
	if !req.Asset.Valid() {
		return NewError(ErrCodeInvalidInput, "exactly one of equity_id or instrument_id is required")
	}
	if !req.Quantity.IsPositive() {
		return NewError(ErrCodeValidation, "quantity must be positive")
	}
	switch req.Asset.Kind {
	case KindEquity:
		if req.Price == nil || !req.Price.IsPositive() {
			return NewError(ErrCodeValidation, "price must be positive for equity entries")
		}
	case KindInstrument:
		if req.InvestedValue == nil || !req.InvestedValue.IsPositive() {
			return NewError(ErrCodeValidation, "invested_value must be positive for instrument entries")
		}
	}
	if req.Date == "" {
		req.Date = c.todayISO()
	}

	ok, err := accountExistsTx(tx, req.AccountID)
	if err != nil {
		return WrapError(ErrCodeDatabase, "lookup account", err)
	}
	if !ok {
		return NewError(ErrCodeNotFound, fmt.Sprintf("account not found: %d", req.AccountID))
	}
	ok, err = assetExistsTx(tx, req.Asset)
	if err != nil {
		return WrapError(ErrCodeDatabase, "lookup asset", err)
	}
	if !ok {
		return NewError(ErrCodeNotFound, fmt.Sprintf("asset not found: %s", req.Asset))
	}
	return nil
}

func buildEntry(req EntryRequest) (*LedgerEntry, error) {
	entry := &LedgerEntry{
		Operation: req.Operation,
		Date:      req.Date,
		Quantity:  req.Quantity,
	}
	switch req.Asset.Kind {
	case KindEquity:
		entry.Price = *req.Price
		entry.TotalValue = req.Quantity.Times(entry.Price)
	case KindInstrument:
		entry.TotalValue = *req.InvestedValue
		entry.Price = entry.TotalValue.DivBy(req.Quantity)
	}
	return entry, nil
}

func savePositionTx(tx *sql.Tx, p *Position) error {
	closed := 0
	if p.Closed {
		closed = 1
	}
	_, err := tx.Exec(`
		UPDATE positions SET
			quantity_current = ?, quantity_purchased = ?, quantity_sold = ?,
			total_purchased = ?, total_sold = ?,
			average_purchase_price = ?, average_selling_price = ?, closed = ?
		WHERE id = ?
	`,
		p.QuantityCurrent, p.QuantityPurchased, p.QuantitySold,
		p.TotalPurchased, p.TotalSold,
		p.AveragePurchasePrice, p.AverageSellingPrice, closed,
		p.ID,
	)
	if err != nil {
		return WrapError(ErrCodeDatabase, "save position", err)
	}
	return nil
}

func loadEntryTx(tx *sql.Tx, id int64) (*LedgerEntry, *Position, error) {
	var e LedgerEntry
	err := tx.QueryRow(`
		SELECT id, position_id, operation, date, quantity, price, total_value
		FROM entries WHERE id = ?
	`, id).Scan(&e.ID, &e.PositionID, &e.Operation, &e.Date, &e.Quantity, &e.Price, &e.TotalValue)
	if err == sql.ErrNoRows {
		return nil, nil, NewError(ErrCodeNotFound, fmt.Sprintf("entry not found: %d", id))
	}
	if err != nil {
		return nil, nil, WrapError(ErrCodeDatabase, "load entry", err)
	}

	position, err := loadPositionTx(tx, e.PositionID)
	if err != nil {
		return nil, nil, err
	}
	return &e, position, nil
}

func loadPositionTx(tx *sql.Tx, id int64) (*Position, error) {
	position, err := scanPosition(tx.QueryRow(`
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
	position.AssetLabel = assetLabelTx(tx, position.Asset)
	return position, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPosition(row rowScanner) (*Position, error) {
	var p Position
	var equityID, instrumentID sql.NullInt64
	var closed int
	err := row.Scan(
		&p.ID, &p.AccountID, &equityID, &instrumentID,
		&p.QuantityCurrent, &p.QuantityPurchased, &p.QuantitySold,
		&p.TotalPurchased, &p.TotalSold,
		&p.AveragePurchasePrice, &p.AverageSellingPrice, &closed,
	)
	if err != nil {
		return nil, err
	}
	if equityID.Valid {
		p.EquityID = int64Ptr(equityID.Int64)
	}
	if instrumentID.Valid {
		p.InstrumentID = int64Ptr(instrumentID.Int64)
	}
	p.Asset = assetRefFromIDs(p.EquityID, p.InstrumentID)
	p.Closed = closed != 0
	return &p, nil
}

func (c *Core) logEntryOperationTx(tx *sql.Tx, operation, assetLabel string, entry *LedgerEntry) {
	_, err := tx.Exec(`
		INSERT INTO operation_logs (operation_type, asset, details, new_value)
		VALUES (?, ?, ?, ?)
	`, operation, assetLabel,
		fmt.Sprintf("%s %s x %s on %s", entry.Operation, entry.Quantity.String(), assetLabel, entry.Date),
		entry.TotalValue)
	if err != nil {
		c.logger.Warn("operation log write failed", "operation", operation, "err", err)
	}
}

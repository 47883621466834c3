package carteira

import (
	"database/sql"
	"fmt"
)

// AddEquity inserts a new equity and returns its ID.
func (c *Core) AddEquity(equity Equity) (int64, error) {
	ticker := normalizeTicker(equity.Ticker)
	if ticker == "" {
		return 0, NewError(ErrCodeInvalidInput, "ticker is required")
	}
	class := normalizeClass(equity.Class)
	if class == "" {
		class = ClassStock
	}
	if !isValidClass(class) {
		return 0, NewError(ErrCodeInvalidInput, fmt.Sprintf("invalid class: %s", class))
	}
	name := equity.Name
	if name == "" {
		name = ticker
	}
	result, err := c.db.Exec(`
		INSERT INTO equities (ticker, name, class)
		VALUES (?, ?, ?)
	`, ticker, name, class)
	if err != nil {
		return 0, WrapError(ErrCodeDatabase, "insert equity", err)
	}
	return result.LastInsertId()
}

// GetEquities returns all equities ordered by ticker.
func (c *Core) GetEquities() ([]Equity, error) {
	rows, err := c.db.Query(`
		SELECT id, ticker, name, class, last_price, price_updated_at
		FROM equities ORDER BY ticker
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var equities []Equity
	for rows.Next() {
		var e Equity
		var price sql.NullFloat64
		var updatedAt sql.NullString
		if err := rows.Scan(&e.ID, &e.Ticker, &e.Name, &e.Class, &price, &updatedAt); err != nil {
			return nil, err
		}
		if price.Valid {
			e.LastPrice = amountPtr(NewAmount(price.Float64))
		}
		if updatedAt.Valid {
			e.PriceUpdatedAt = &updatedAt.String
		}
		equities = append(equities, e)
	}
	return equities, rows.Err()
}

// AddInstrument inserts a new fixed-income instrument and returns its ID.
func (c *Core) AddInstrument(instrument Instrument) (int64, error) {
	if instrument.Name == "" {
		return 0, NewError(ErrCodeInvalidInput, "instrument name is required")
	}
	result, err := c.db.Exec(`
		INSERT INTO instruments (name, due_date)
		VALUES (?, ?)
	`, instrument.Name, nullString(instrument.DueDate))
	if err != nil {
		return 0, WrapError(ErrCodeDatabase, "insert instrument", err)
	}
	return result.LastInsertId()
}

// GetInstruments returns all instruments ordered by name.
func (c *Core) GetInstruments() ([]Instrument, error) {
	rows, err := c.db.Query(`
		SELECT id, name, due_date, last_price, price_updated_at
		FROM instruments ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var instruments []Instrument
	for rows.Next() {
		var i Instrument
		var dueDate, updatedAt sql.NullString
		var price sql.NullFloat64
		if err := rows.Scan(&i.ID, &i.Name, &dueDate, &price, &updatedAt); err != nil {
			return nil, err
		}
		if dueDate.Valid {
			i.DueDate = &dueDate.String
		}
		if price.Valid {
			i.LastPrice = amountPtr(NewAmount(price.Float64))
		}
		if updatedAt.Valid {
			i.PriceUpdatedAt = &updatedAt.String
		}
		instruments = append(instruments, i)
	}
	return instruments, rows.Err()
}

// UpdateAssetPrice records the last known price for an asset. The price
// ingestion subsystem (or the user, manually) calls this; the core never
// fetches prices itself.
func (c *Core) UpdateAssetPrice(ref AssetRef, price Amount) error {
	if !ref.Valid() {
		return NewError(ErrCodeInvalidInput, "asset reference is required")
	}
	if !price.IsPositive() {
		return NewError(ErrCodeInvalidInput, "price must be positive")
	}

	var table string
	switch ref.Kind {
	case KindEquity:
		table = "equities"
	case KindInstrument:
		table = "instruments"
	}

	var old sql.NullFloat64
	err := c.db.QueryRow(fmt.Sprintf("SELECT last_price FROM %s WHERE id = ?", table), ref.ID).Scan(&old)
	if err == sql.ErrNoRows {
		return NewError(ErrCodeNotFound, fmt.Sprintf("asset not found: %s", ref))
	}
	if err != nil {
		return WrapError(ErrCodeDatabase, "lookup asset", err)
	}

	_, err = c.db.Exec(
		fmt.Sprintf("UPDATE %s SET last_price = ?, price_updated_at = ? WHERE id = ?", table),
		price, c.now().Format("2006-01-02 15:04:05"), ref.ID,
	)
	if err != nil {
		return WrapError(ErrCodeDatabase, "update price", err)
	}

	label, _ := c.assetLabel(ref)
	var oldValue *Amount
	if old.Valid {
		oldValue = amountPtr(NewAmount(old.Float64))
	}
	_, _ = c.AddOperationLog(OperationLog{
		Operation: "price_update",
		Asset:     &label,
		OldValue:  oldValue,
		NewValue:  amountPtr(price),
	})
	return nil
}

// assetInfo is the joined view of an asset used by crossing and position reads.
type assetInfo struct {
	Code      string
	Name      string
	Class     string
	LastPrice *Amount
}

// loadAssetIndex returns every known asset keyed by reference.
func (c *Core) loadAssetIndex() (map[AssetRef]assetInfo, error) {
	index := map[AssetRef]assetInfo{}

	equities, err := c.GetEquities()
	if err != nil {
		return nil, err
	}
	for _, e := range equities {
		index[NewEquityRef(e.ID)] = assetInfo{
			Code:      e.Ticker,
			Name:      e.Name,
			Class:     e.Class,
			LastPrice: e.LastPrice,
		}
	}

	instruments, err := c.GetInstruments()
	if err != nil {
		return nil, err
	}
	for _, i := range instruments {
		index[NewInstrumentRef(i.ID)] = assetInfo{
			Code:      i.Name,
			Name:      i.Name,
			Class:     "instrument",
			LastPrice: i.LastPrice,
		}
	}
	return index, nil
}

// assetLabel returns the user-facing label for an asset: the equity ticker or
// the instrument name.
func (c *Core) assetLabel(ref AssetRef) (string, error) {
	switch ref.Kind {
	case KindEquity:
		var ticker string
		err := c.db.QueryRow("SELECT ticker FROM equities WHERE id = ?", ref.ID).Scan(&ticker)
		if err == sql.ErrNoRows {
			return "", NewError(ErrCodeNotFound, fmt.Sprintf("equity not found: %d", ref.ID))
		}
		return ticker, err
	case KindInstrument:
		var name string
		err := c.db.QueryRow("SELECT name FROM instruments WHERE id = ?", ref.ID).Scan(&name)
		if err == sql.ErrNoRows {
			return "", NewError(ErrCodeNotFound, fmt.Sprintf("instrument not found: %d", ref.ID))
		}
		return name, err
	}
	return "", NewError(ErrCodeInvalidInput, "invalid asset reference")
}

func assetLabelTx(tx *sql.Tx, ref AssetRef) string {
	var label string
	switch ref.Kind {
	case KindEquity:
		_ = tx.QueryRow("SELECT ticker FROM equities WHERE id = ?", ref.ID).Scan(&label)
	case KindInstrument:
		_ = tx.QueryRow("SELECT name FROM instruments WHERE id = ?", ref.ID).Scan(&label)
	}
	if label == "" {
		label = ref.String()
	}
	return label
}

func assetExistsTx(tx *sql.Tx, ref AssetRef) (bool, error) {
	var query string
	switch ref.Kind {
	case KindEquity:
		query = "SELECT 1 FROM equities WHERE id = ?"
	case KindInstrument:
		query = "SELECT 1 FROM instruments WHERE id = ?"
	default:
		return false, nil
	}
	var exists int
	err := tx.QueryRow(query, ref.ID).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

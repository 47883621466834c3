package carteira

import (
	"database/sql"
	"fmt"
)

func initDatabase(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := exec(tx, `
		CREATE TABLE IF NOT EXISTS accounts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			broker TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return err
	}

	if err := exec(tx, `
		CREATE TABLE IF NOT EXISTS equities (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			ticker TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL,
			class TEXT NOT NULL DEFAULT 'stock' CHECK(class IN ('stock', 'reit', 'etf')),
			last_price REAL,
			price_updated_at DATETIME
		)
	`); err != nil {
		return err
	}

	if err := exec(tx, `
		CREATE TABLE IF NOT EXISTS instruments (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE,
			due_date TEXT,
			last_price REAL,
			price_updated_at DATETIME
		)
	`); err != nil {
		return err
	}

	if err := exec(tx, `
		CREATE TABLE IF NOT EXISTS positions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			account_id INTEGER NOT NULL REFERENCES accounts(id),
			equity_id INTEGER REFERENCES equities(id),
			instrument_id INTEGER REFERENCES instruments(id),
			quantity_current REAL NOT NULL DEFAULT 0,
			quantity_purchased REAL NOT NULL DEFAULT 0,
			quantity_sold REAL NOT NULL DEFAULT 0,
			total_purchased REAL NOT NULL DEFAULT 0,
			total_sold REAL NOT NULL DEFAULT 0,
			average_purchase_price REAL NOT NULL DEFAULT 0,
			average_selling_price REAL NOT NULL DEFAULT 0,
			closed INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			CHECK ((equity_id IS NULL) != (instrument_id IS NULL))
		)
	`); err != nil {
		return err
	}

	// At most one open position per (account, asset).
	if err := exec(tx, `
		CREATE UNIQUE INDEX IF NOT EXISTS idx_positions_open_equity
		ON positions(account_id, equity_id)
		WHERE closed = 0 AND equity_id IS NOT NULL
	`); err != nil {
		return err
	}
	if err := exec(tx, `
		CREATE UNIQUE INDEX IF NOT EXISTS idx_positions_open_instrument
		ON positions(account_id, instrument_id)
		WHERE closed = 0 AND instrument_id IS NOT NULL
	`); err != nil {
		return err
	}

	if err := exec(tx, `
		CREATE TABLE IF NOT EXISTS entries (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			position_id INTEGER NOT NULL REFERENCES positions(id),
			operation TEXT NOT NULL CHECK(operation IN ('C', 'V')),
			date TEXT NOT NULL,
			quantity REAL NOT NULL,
			price REAL NOT NULL DEFAULT 0,
			total_value REAL NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return err
	}
	if err := exec(tx, `
		CREATE INDEX IF NOT EXISTS idx_entries_position_date
		ON entries(position_id, date, id)
	`); err != nil {
		return err
	}

	if err := exec(tx, `
		CREATE TABLE IF NOT EXISTS target_allocations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			equity_id INTEGER REFERENCES equities(id),
			instrument_id INTEGER REFERENCES instruments(id),
			percentage REAL NOT NULL CHECK(percentage >= 0 AND percentage <= 100),
			CHECK ((equity_id IS NULL) != (instrument_id IS NULL))
		)
	`); err != nil {
		return err
	}

	if err := exec(tx, `
		CREATE TABLE IF NOT EXISTS removed_allocations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			equity_id INTEGER REFERENCES equities(id),
			instrument_id INTEGER REFERENCES instruments(id),
			percentage REAL NOT NULL,
			reason TEXT,
			deleted_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			CHECK ((equity_id IS NULL) != (instrument_id IS NULL))
		)
	`); err != nil {
		return err
	}

	if err := exec(tx, `
		CREATE TABLE IF NOT EXISTS net_balances (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			position_id INTEGER NOT NULL REFERENCES positions(id),
			date TEXT NOT NULL,
			value REAL NOT NULL,
			UNIQUE(position_id, date)
		)
	`); err != nil {
		return err
	}

	if err := exec(tx, `
		CREATE TABLE IF NOT EXISTS earnings (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			position_id INTEGER NOT NULL REFERENCES positions(id),
			date TEXT NOT NULL,
			kind TEXT NOT NULL DEFAULT 'dividend',
			value REAL NOT NULL
		)
	`); err != nil {
		return err
	}

	if err := exec(tx, `
		CREATE TABLE IF NOT EXISTS operation_logs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			operation_type TEXT NOT NULL,
			asset TEXT,
			details TEXT,
			old_value REAL,
			new_value REAL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return err
	}

	return tx.Commit()
}

func exec(tx *sql.Tx, query string) error {
	if _, err := tx.Exec(query); err != nil {
		return fmt.Errorf("schema: %w", err)
	}
	return nil
}

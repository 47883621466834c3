package carteira

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// setupTestDB creates a temporary database for testing and returns a Core
// instance with a fixed clock. The caller should defer cleanup() to remove
// the temp file.
func setupTestDB(t *testing.T) (*Core, func()) {
	t.Helper()
	return setupTestDBWithOptions(t, Options{})
}

func setupTestDBWithOptions(t *testing.T, opts Options) (*Core, func()) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "carteira-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}

	opts.DBPath = filepath.Join(tmpDir, "test.db")
	if opts.Now == nil {
		fixed := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
		opts.Now = func() time.Time { return fixed }
	}
	core, err := OpenWithOptions(opts)
	if err != nil {
		os.RemoveAll(tmpDir)
		t.Fatalf("failed to open test db: %v", err)
	}

	cleanup := func() {
		core.Close()
		os.RemoveAll(tmpDir)
	}

	return core, cleanup
}

// testAccount creates a broker account and returns its ID.
func testAccount(t *testing.T, core *Core, name string) int64 {
	t.Helper()
	id, err := core.AddAccount(Account{Name: name})
	if err != nil {
		t.Fatalf("failed to create test account: %v", err)
	}
	return id
}

// testEquity creates an equity and returns its ID.
func testEquity(t *testing.T, core *Core, ticker, class string) int64 {
	t.Helper()
	id, err := core.AddEquity(Equity{Ticker: ticker, Name: ticker + " Inc", Class: class})
	if err != nil {
		t.Fatalf("failed to create test equity: %v", err)
	}
	return id
}

// testInstrument creates a fixed-income instrument and returns its ID.
func testInstrument(t *testing.T, core *Core, name string) int64 {
	t.Helper()
	id, err := core.AddInstrument(Instrument{Name: name})
	if err != nil {
		t.Fatalf("failed to create test instrument: %v", err)
	}
	return id
}

// testBuyEntry creates a buy entry for an equity and returns it.
func testBuyEntry(t *testing.T, core *Core, accountID, equityID int64, date string, qty, price float64) *LedgerEntry {
	t.Helper()
	entry, err := core.CreateEntry(context.Background(), EntryRequest{
		AccountID: accountID,
		EquityID:  &equityID,
		Operation: OperationBuy,
		Date:      date,
		Quantity:  NewAmount(qty),
		Price:     amountPtr(NewAmount(price)),
	})
	if err != nil {
		t.Fatalf("failed to create test buy entry: %v", err)
	}
	return entry
}

// testSellEntry creates a sell entry for an equity and returns it.
func testSellEntry(t *testing.T, core *Core, accountID, equityID int64, date string, qty, price float64) *LedgerEntry {
	t.Helper()
	entry, err := core.CreateEntry(context.Background(), EntryRequest{
		AccountID: accountID,
		EquityID:  &equityID,
		Operation: OperationSell,
		Date:      date,
		Quantity:  NewAmount(qty),
		Price:     amountPtr(NewAmount(price)),
	})
	if err != nil {
		t.Fatalf("failed to create test sell entry: %v", err)
	}
	return entry
}

// openPositionFor returns the single open position for (account, equity).
func openPositionFor(t *testing.T, core *Core, accountID, equityID int64) *Position {
	t.Helper()
	positions, err := core.GetPositions(PositionFilter{AccountID: accountID})
	if err != nil {
		t.Fatalf("failed to load positions: %v", err)
	}
	for i := range positions {
		if positions[i].EquityID != nil && *positions[i].EquityID == equityID {
			return &positions[i]
		}
	}
	t.Fatalf("no open position for account %d equity %d", accountID, equityID)
	return nil
}

// assertAmountEquals fails the test if the amount does not equal want.
func assertAmountEquals(t *testing.T, got Amount, want float64, msg string) {
	t.Helper()
	if !floatEquals(got.InexactFloat64(), want, 0.0001) {
		t.Errorf("%s: got %s, want %.4f", msg, got.String(), want)
	}
}

// floatEquals checks if two floats are approximately equal.
func floatEquals(a, b, epsilon float64) bool {
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	return diff < epsilon
}

// assertNoError fails the test if err is not nil.
func assertNoError(t *testing.T, err error, msg string) {
	t.Helper()
	if err != nil {
		t.Fatalf("%s: unexpected error: %v", msg, err)
	}
}

// assertError fails the test if err is nil.
func assertError(t *testing.T, err error, msg string) {
	t.Helper()
	if err == nil {
		t.Fatalf("%s: expected error but got nil", msg)
	}
}

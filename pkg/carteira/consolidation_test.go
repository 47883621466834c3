package carteira

import (
	"context"
	"errors"
	"testing"
)

func TestCreateEntry_BuyAccumulates(t *testing.T) {
	core, cleanup := setupTestDB(t)
	defer cleanup()

	accountID := testAccount(t, core, "XP")
	equityID := testEquity(t, core, "PETR4", ClassStock)

	entry := testBuyEntry(t, core, accountID, equityID, "2024-01-10", 10, 15.50)
	if entry.ID <= 0 {
		t.Fatalf("expected positive entry ID, got %d", entry.ID)
	}
	assertAmountEquals(t, entry.TotalValue, 155.0, "entry total value")

	p := openPositionFor(t, core, accountID, equityID)
	assertAmountEquals(t, p.QuantityCurrent, 10, "quantity_current")
	assertAmountEquals(t, p.QuantityPurchased, 10, "quantity_purchased")
	assertAmountEquals(t, p.TotalPurchased, 155.0, "total_purchased")
	assertAmountEquals(t, p.AveragePurchasePrice, 15.50, "average_purchase_price")
	if p.Closed {
		t.Error("position should be open after a buy")
	}
}

func TestCreateEntry_WeightedAverage(t *testing.T) {
	core, cleanup := setupTestDB(t)
	defer cleanup()

	accountID := testAccount(t, core, "XP")
	equityID := testEquity(t, core, "PETR4", ClassStock)

	testBuyEntry(t, core, accountID, equityID, "2024-01-10", 10, 15.50)
	testSellEntry(t, core, accountID, equityID, "2024-02-10", 4, 20.0)

	p := openPositionFor(t, core, accountID, equityID)
	assertAmountEquals(t, p.QuantityCurrent, 6, "quantity_current")
	assertAmountEquals(t, p.QuantityPurchased, 10, "quantity_purchased")
	assertAmountEquals(t, p.QuantitySold, 4, "quantity_sold")
	// Selling never changes the purchase average.
	assertAmountEquals(t, p.AveragePurchasePrice, 15.50, "average_purchase_price")
	assertAmountEquals(t, p.AverageSellingPrice, 20.0, "average_selling_price")
	assertAmountEquals(t, p.TotalSold, 80.0, "total_sold")
}

func TestCreateEntry_OversellRejected(t *testing.T) {
	core, cleanup := setupTestDB(t)
	defer cleanup()

	accountID := testAccount(t, core, "XP")
	equityID := testEquity(t, core, "VALE3", ClassStock)

	testBuyEntry(t, core, accountID, equityID, "2024-01-10", 5, 60.0)

	_, err := core.CreateEntry(context.Background(), EntryRequest{
		AccountID: accountID,
		EquityID:  &equityID,
		Operation: OperationSell,
		Date:      "2024-01-11",
		Quantity:  NewAmount(8),
		Price:     amountPtr(NewAmount(65.0)),
	})
	assertError(t, err, "oversell")

	var insufficientErr *InsufficientQuantityError
	if !errors.As(err, &insufficientErr) {
		t.Fatalf("expected InsufficientQuantityError, got %T: %v", err, err)
	}
	if insufficientErr.AssetLabel != "VALE3" {
		t.Errorf("expected asset label VALE3, got %s", insufficientErr.AssetLabel)
	}
	assertAmountEquals(t, insufficientErr.Requested, 8, "requested quantity")
	assertAmountEquals(t, insufficientErr.Available, 5, "available quantity")

	// No fields changed and no entry was written.
	p := openPositionFor(t, core, accountID, equityID)
	assertAmountEquals(t, p.QuantityCurrent, 5, "quantity_current unchanged")
	assertAmountEquals(t, p.QuantitySold, 0, "quantity_sold unchanged")
	entries, err := core.GetEntries(p.ID)
	assertNoError(t, err, "GetEntries")
	if len(entries) != 1 {
		t.Errorf("expected 1 entry, got %d", len(entries))
	}
}

func TestPositionCloses_NewBuyOpensNewPosition(t *testing.T) {
	core, cleanup := setupTestDB(t)
	defer cleanup()

	accountID := testAccount(t, core, "XP")
	equityID := testEquity(t, core, "ITUB4", ClassStock)

	testBuyEntry(t, core, accountID, equityID, "2024-01-10", 10, 30.0)
	testSellEntry(t, core, accountID, equityID, "2024-03-10", 10, 35.0)

	all, err := core.GetPositions(PositionFilter{AccountID: accountID, IncludeClosed: true})
	assertNoError(t, err, "GetPositions")
	if len(all) != 1 {
		t.Fatalf("expected 1 position, got %d", len(all))
	}
	if !all[0].Closed {
		t.Fatal("position should be closed after selling everything")
	}
	assertAmountEquals(t, all[0].QuantityCurrent, 0, "quantity_current")

	// A new buy creates a fresh open position; the closed one stays closed.
	testBuyEntry(t, core, accountID, equityID, "2024-04-01", 3, 31.0)

	all, err = core.GetPositions(PositionFilter{AccountID: accountID, IncludeClosed: true})
	assertNoError(t, err, "GetPositions after reopen buy")
	if len(all) != 2 {
		t.Fatalf("expected 2 positions, got %d", len(all))
	}
	closedCount, openCount := 0, 0
	for _, p := range all {
		if p.Closed {
			closedCount++
		} else {
			openCount++
			assertAmountEquals(t, p.QuantityCurrent, 3, "new position quantity")
		}
	}
	if closedCount != 1 || openCount != 1 {
		t.Errorf("expected 1 closed and 1 open, got %d closed %d open", closedCount, openCount)
	}
}

func TestRecompute_Idempotent(t *testing.T) {
	core, cleanup := setupTestDB(t)
	defer cleanup()

	accountID := testAccount(t, core, "XP")
	equityID := testEquity(t, core, "BBDC4", ClassStock)

	testBuyEntry(t, core, accountID, equityID, "2024-01-10", 10, 12.0)
	testBuyEntry(t, core, accountID, equityID, "2024-02-10", 5, 14.0)
	testSellEntry(t, core, accountID, equityID, "2024-03-10", 7, 15.0)

	p := openPositionFor(t, core, accountID, equityID)

	assertNoError(t, core.Recompute(context.Background(), p.ID), "first recompute")
	first, err := core.GetPosition(p.ID)
	assertNoError(t, err, "GetPosition after first recompute")

	assertNoError(t, core.Recompute(context.Background(), p.ID), "second recompute")
	second, err := core.GetPosition(p.ID)
	assertNoError(t, err, "GetPosition after second recompute")

	checks := []struct {
		name string
		a, b Amount
	}{
		{"quantity_current", first.QuantityCurrent, second.QuantityCurrent},
		{"quantity_purchased", first.QuantityPurchased, second.QuantityPurchased},
		{"quantity_sold", first.QuantitySold, second.QuantitySold},
		{"total_purchased", first.TotalPurchased, second.TotalPurchased},
		{"total_sold", first.TotalSold, second.TotalSold},
		{"average_purchase_price", first.AveragePurchasePrice, second.AveragePurchasePrice},
		{"average_selling_price", first.AverageSellingPrice, second.AverageSellingPrice},
	}
	for _, check := range checks {
		if !check.a.Equal(check.b.Decimal) {
			t.Errorf("%s differs between recomputes: %s vs %s", check.name, check.a.String(), check.b.String())
		}
	}
	if first.Closed != second.Closed {
		t.Errorf("closed differs between recomputes: %v vs %v", first.Closed, second.Closed)
	}

	assertAmountEquals(t, first.QuantityCurrent, 8, "quantity_current")
	assertAmountEquals(t, first.TotalPurchased, 190.0, "total_purchased")
	assertAmountEquals(t, first.AveragePurchasePrice, 190.0/15.0, "average_purchase_price")
}

func TestRecompute_ConsistencyViolation(t *testing.T) {
	core, cleanup := setupTestDB(t)
	defer cleanup()

	accountID := testAccount(t, core, "XP")
	equityID := testEquity(t, core, "WEGE3", ClassStock)

	testBuyEntry(t, core, accountID, equityID, "2024-01-10", 10, 40.0)
	sell := testSellEntry(t, core, accountID, equityID, "2024-02-10", 10, 45.0)

	// Corrupt the ledger behind the accumulator's back so replay oversells.
	_, err := core.db.Exec("UPDATE entries SET quantity = 15 WHERE id = ?", sell.ID)
	assertNoError(t, err, "corrupt entry")

	positions, err := core.GetPositions(PositionFilter{AccountID: accountID, IncludeClosed: true})
	assertNoError(t, err, "GetPositions")
	if len(positions) != 1 {
		t.Fatalf("expected 1 position, got %d", len(positions))
	}

	err = core.Recompute(context.Background(), positions[0].ID)
	assertError(t, err, "recompute over corrupted ledger")
	if !IsErrorCode(err, ErrCodeConsistency) {
		t.Errorf("expected %s, got %v", ErrCodeConsistency, err)
	}
}

func TestUpdateEntry_RecomputesPosition(t *testing.T) {
	core, cleanup := setupTestDB(t)
	defer cleanup()

	accountID := testAccount(t, core, "XP")
	equityID := testEquity(t, core, "PETR4", ClassStock)

	buy := testBuyEntry(t, core, accountID, equityID, "2024-01-10", 10, 15.0)
	testSellEntry(t, core, accountID, equityID, "2024-02-10", 4, 18.0)

	err := core.UpdateEntry(context.Background(), buy.ID, EntryRequest{
		Quantity: NewAmount(20),
		Price:    amountPtr(NewAmount(16.0)),
	})
	assertNoError(t, err, "UpdateEntry")

	p := openPositionFor(t, core, accountID, equityID)
	assertAmountEquals(t, p.QuantityCurrent, 16, "quantity_current after edit")
	assertAmountEquals(t, p.TotalPurchased, 320.0, "total_purchased after edit")
	assertAmountEquals(t, p.AveragePurchasePrice, 16.0, "average_purchase_price after edit")
}

func TestDeleteEntry_Cascade(t *testing.T) {
	core, cleanup := setupTestDB(t)
	defer cleanup()

	accountID := testAccount(t, core, "XP")
	equityID := testEquity(t, core, "PETR4", ClassStock)

	entry := testBuyEntry(t, core, accountID, equityID, "2024-01-10", 10, 15.0)
	p := openPositionFor(t, core, accountID, equityID)

	_, err := core.SetNetBalance(p.ID, "2024-01-15", NewAmount(160.0))
	assertNoError(t, err, "SetNetBalance")
	_, err = core.AddEarning(Earning{PositionID: p.ID, Date: "2024-01-20", Value: NewAmount(2.5)})
	assertNoError(t, err, "AddEarning")

	// Deleting the only entry deletes the position and its dependents.
	assertNoError(t, core.DeleteEntry(context.Background(), entry.ID), "DeleteEntry")

	_, err = core.GetPosition(p.ID)
	if !IsErrorCode(err, ErrCodeNotFound) {
		t.Errorf("expected NOT_FOUND after cascade, got %v", err)
	}
	balances, err := core.GetNetBalances(p.ID)
	assertNoError(t, err, "GetNetBalances")
	if len(balances) != 0 {
		t.Errorf("expected net balances to cascade, got %d", len(balances))
	}
	earnings, err := core.GetEarnings(p.ID)
	assertNoError(t, err, "GetEarnings")
	if len(earnings) != 0 {
		t.Errorf("expected earnings to cascade, got %d", len(earnings))
	}
}

func TestDeleteEntry_RecomputesRemaining(t *testing.T) {
	core, cleanup := setupTestDB(t)
	defer cleanup()

	accountID := testAccount(t, core, "XP")
	equityID := testEquity(t, core, "PETR4", ClassStock)

	testBuyEntry(t, core, accountID, equityID, "2024-01-10", 10, 15.0)
	second := testBuyEntry(t, core, accountID, equityID, "2024-02-10", 6, 18.0)

	assertNoError(t, core.DeleteEntry(context.Background(), second.ID), "DeleteEntry")

	p := openPositionFor(t, core, accountID, equityID)
	assertAmountEquals(t, p.QuantityCurrent, 10, "quantity_current")
	assertAmountEquals(t, p.TotalPurchased, 150.0, "total_purchased")
	assertAmountEquals(t, p.AveragePurchasePrice, 15.0, "average_purchase_price")
}

func TestCreateEntries_BatchReorderedBeforeReplay(t *testing.T) {
	core, cleanup := setupTestDB(t)
	defer cleanup()

	accountID := testAccount(t, core, "XP")
	equityID := testEquity(t, core, "PETR4", ClassStock)

	// Submitted sell-first; the batch is reordered by date before replay, so
	// the earlier-dated buy lands first and the sell succeeds.
	reqs := []EntryRequest{
		{
			AccountID: accountID, EquityID: &equityID,
			Operation: OperationSell, Date: "2024-02-01",
			Quantity: NewAmount(4), Price: amountPtr(NewAmount(18.0)),
		},
		{
			AccountID: accountID, EquityID: &equityID,
			Operation: OperationBuy, Date: "2024-01-01",
			Quantity: NewAmount(10), Price: amountPtr(NewAmount(15.0)),
		},
	}

	result, err := core.CreateEntries(context.Background(), reqs, BatchAtomic)
	assertNoError(t, err, "CreateEntries")
	if len(result.Created) != 2 {
		t.Fatalf("expected 2 created entries, got %d", len(result.Created))
	}

	p := openPositionFor(t, core, accountID, equityID)
	assertAmountEquals(t, p.QuantityCurrent, 6, "quantity_current")
}

func TestCreateEntries_PartialPolicyKeepsSiblings(t *testing.T) {
	core, cleanup := setupTestDB(t)
	defer cleanup()

	accountID := testAccount(t, core, "XP")
	equityID := testEquity(t, core, "PETR4", ClassStock)

	reqs := []EntryRequest{
		{
			AccountID: accountID, EquityID: &equityID,
			Operation: OperationBuy, Date: "2024-01-01",
			Quantity: NewAmount(10), Price: amountPtr(NewAmount(15.0)),
		},
		{
			AccountID: accountID, EquityID: &equityID,
			Operation: OperationSell, Date: "2024-01-02",
			Quantity: NewAmount(50), Price: amountPtr(NewAmount(16.0)),
		},
		{
			AccountID: accountID, EquityID: &equityID,
			Operation: OperationSell, Date: "2024-01-03",
			Quantity: NewAmount(2), Price: amountPtr(NewAmount(17.0)),
		},
	}

	result, err := core.CreateEntries(context.Background(), reqs, BatchPartial)
	assertNoError(t, err, "CreateEntries partial")
	if len(result.Created) != 2 {
		t.Errorf("expected 2 created entries, got %d", len(result.Created))
	}
	if len(result.Failed) != 1 {
		t.Errorf("expected 1 failure, got %d", len(result.Failed))
	}

	p := openPositionFor(t, core, accountID, equityID)
	assertAmountEquals(t, p.QuantityCurrent, 8, "quantity_current")
}

func TestCreateEntries_AtomicPolicyRollsBack(t *testing.T) {
	core, cleanup := setupTestDB(t)
	defer cleanup()

	accountID := testAccount(t, core, "XP")
	equityID := testEquity(t, core, "PETR4", ClassStock)

	reqs := []EntryRequest{
		{
			AccountID: accountID, EquityID: &equityID,
			Operation: OperationBuy, Date: "2024-01-01",
			Quantity: NewAmount(10), Price: amountPtr(NewAmount(15.0)),
		},
		{
			AccountID: accountID, EquityID: &equityID,
			Operation: OperationSell, Date: "2024-01-02",
			Quantity: NewAmount(50), Price: amountPtr(NewAmount(16.0)),
		},
	}

	_, err := core.CreateEntries(context.Background(), reqs, BatchAtomic)
	assertError(t, err, "CreateEntries atomic")

	positions, err := core.GetPositions(PositionFilter{AccountID: accountID, IncludeClosed: true})
	assertNoError(t, err, "GetPositions")
	if len(positions) != 0 {
		t.Errorf("expected no positions after atomic rollback, got %d", len(positions))
	}
}

func TestCreateEntry_InstrumentDerivesPrice(t *testing.T) {
	core, cleanup := setupTestDB(t)
	defer cleanup()

	accountID := testAccount(t, core, "XP")
	instrumentID := testInstrument(t, core, "Tesouro Selic 2029")

	entry, err := core.CreateEntry(context.Background(), EntryRequest{
		AccountID:     accountID,
		InstrumentID:  &instrumentID,
		Operation:     OperationBuy,
		Date:          "2024-01-10",
		Quantity:      NewAmount(2),
		InvestedValue: amountPtr(NewAmount(250.0)),
	})
	assertNoError(t, err, "CreateEntry instrument")
	assertAmountEquals(t, entry.Price, 125.0, "derived unit price")
	assertAmountEquals(t, entry.TotalValue, 250.0, "invested value")
}

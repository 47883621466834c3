package carteira

import "testing"

func TestToBuyQuantity_FloorsTowardTarget(t *testing.T) {
	// 25% of 10000 is 2500; at 35 per unit that is 71.43 units, floored.
	ideal := NewAmount(25)
	price := NewAmount(35)
	tb := ToBuyQuantity(amountPtr(ideal), NewAmount(10000), NewAmount(0), amountPtr(price), false)
	if tb.State != ToBuyKnown {
		t.Fatalf("expected known state, got %v", tb.State)
	}
	if tb.Units != 71 {
		t.Errorf("expected 71 units, got %d", tb.Units)
	}
}

func TestToBuyQuantity_NeverNegative(t *testing.T) {
	// Already above the ideal slice: nothing to buy, never a negative count.
	ideal := NewAmount(10)
	price := NewAmount(20)
	tb := ToBuyQuantity(amountPtr(ideal), NewAmount(10000), NewAmount(5000), amountPtr(price), false)
	if tb.State != ToBuyKnown {
		t.Fatalf("expected known state, got %v", tb.State)
	}
	if tb.Units != 0 {
		t.Errorf("expected 0 units, got %d", tb.Units)
	}
}

func TestToBuyQuantity_ExactFit(t *testing.T) {
	// 10% of 1000 is 100; at 25 per unit that is exactly 4.
	ideal := NewAmount(10)
	price := NewAmount(25)
	tb := ToBuyQuantity(amountPtr(ideal), NewAmount(1000), NewAmount(0), amountPtr(price), false)
	if tb.Units != 4 {
		t.Errorf("expected 4 units, got %d", tb.Units)
	}
}

func TestToBuyQuantity_MissingPrice(t *testing.T) {
	ideal := NewAmount(25)
	tb := ToBuyQuantity(amountPtr(ideal), NewAmount(10000), NewAmount(0), nil, false)
	if tb.State != ToBuyUnknown {
		t.Errorf("expected unknown state without a price, got %v", tb.State)
	}

	zero := NewAmount(0)
	tb = ToBuyQuantity(amountPtr(ideal), NewAmount(10000), NewAmount(0), amountPtr(zero), false)
	if tb.State != ToBuyUnknown {
		t.Errorf("expected unknown state with zero price, got %v", tb.State)
	}
}

func TestToBuyQuantity_ZeroIdeal(t *testing.T) {
	zero := NewAmount(0)
	price := NewAmount(30)
	tb := ToBuyQuantity(amountPtr(zero), NewAmount(10000), NewAmount(0), amountPtr(price), false)
	if tb.State != ToBuyKnown || tb.Units != 0 {
		t.Errorf("expected 0 known units for zero ideal, got %v/%d", tb.State, tb.Units)
	}

	tb = ToBuyQuantity(nil, NewAmount(10000), NewAmount(0), amountPtr(price), false)
	if tb.State != ToBuyKnown || tb.Units != 0 {
		t.Errorf("expected 0 known units for nil ideal, got %v/%d", tb.State, tb.Units)
	}
}

func TestToBuyQuantity_RemovedAllocation(t *testing.T) {
	ideal := NewAmount(25)
	price := NewAmount(35)
	tb := ToBuyQuantity(amountPtr(ideal), NewAmount(10000), NewAmount(0), amountPtr(price), true)
	if tb.State != ToBuyNotApplicable {
		t.Errorf("expected not-applicable state for removed allocation, got %v", tb.State)
	}
}

func TestFormatToBuy(t *testing.T) {
	tests := []struct {
		name string
		tb   ToBuy
		want string
	}{
		{"not applicable", ToBuy{State: ToBuyNotApplicable}, "-"},
		{"unknown", ToBuy{State: ToBuyUnknown}, ""},
		{"zero", ToBuy{State: ToBuyKnown, Units: 0}, "0 un."},
		{"small", ToBuy{State: ToBuyKnown, Units: 71}, "71 un."},
		{"grouped", ToBuy{State: ToBuyKnown, Units: 1234}, "1,234 un."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatToBuy(tt.tb); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

package carteira

import "fmt"

// Entry operations. "C" is a buy (compra), "V" a sell (venda).
const (
	OperationBuy  = "C"
	OperationSell = "V"
)

var Operations = []string{OperationBuy, OperationSell}

// Equity classes.
const (
	ClassStock = "stock"
	ClassREIT  = "reit"
	ClassETF   = "etf"
)

var EquityClasses = []string{ClassStock, ClassREIT, ClassETF}

// AssetKind distinguishes the two mutually exclusive asset families.
type AssetKind string

const (
	KindEquity     AssetKind = "equity"
	KindInstrument AssetKind = "instrument"
)

// AssetRef identifies exactly one asset: an equity ticker or a fixed-income
// instrument. The zero value is invalid; use NewEquityRef/NewInstrumentRef.
// AssetRef is comparable and usable as a map key.
type AssetRef struct {
	Kind AssetKind
	ID   int64
}

// NewEquityRef builds a reference to an equity by ID.
func NewEquityRef(id int64) AssetRef {
	return AssetRef{Kind: KindEquity, ID: id}
}

// NewInstrumentRef builds a reference to a fixed-income instrument by ID.
func NewInstrumentRef(id int64) AssetRef {
	return AssetRef{Kind: KindInstrument, ID: id}
}

// IsZero reports whether the reference is unset.
func (r AssetRef) IsZero() bool {
	return r.Kind == "" || r.ID == 0
}

// Valid reports whether the reference names a known kind and a positive ID.
func (r AssetRef) Valid() bool {
	return (r.Kind == KindEquity || r.Kind == KindInstrument) && r.ID > 0
}

func (r AssetRef) String() string {
	return fmt.Sprintf("%s:%d", r.Kind, r.ID)
}

// equityID returns the equity FK value for persistence, nil for instruments.
func (r AssetRef) equityID() *int64 {
	if r.Kind == KindEquity {
		id := r.ID
		return &id
	}
	return nil
}

// instrumentID returns the instrument FK value for persistence, nil for equities.
func (r AssetRef) instrumentID() *int64 {
	if r.Kind == KindInstrument {
		id := r.ID
		return &id
	}
	return nil
}

// Account represents a broker account.
type Account struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	Broker    *string `json:"broker"`
	CreatedAt *string `json:"created_at"`
}

// Equity represents a listed asset: a plain stock or a REIT/ETF share.
type Equity struct {
	ID             int64   `json:"id"`
	Ticker         string  `json:"ticker"`
	Name           string  `json:"name"`
	Class          string  `json:"class"`
	LastPrice      *Amount `json:"last_price"`
	PriceUpdatedAt *string `json:"price_updated_at"`
}

// Instrument represents a fixed-income instrument ("treasure").
type Instrument struct {
	ID             int64   `json:"id"`
	Name           string  `json:"name"`
	DueDate        *string `json:"due_date"`
	LastPrice      *Amount `json:"last_price"`
	PriceUpdatedAt *string `json:"price_updated_at"`
}

// Position is the running accumulation of ledger entries for one
// (account, asset) pair. At most one open position exists per pair.
type Position struct {
	ID                   int64    `json:"id"`
	AccountID            int64    `json:"account_id"`
	Asset                AssetRef `json:"-"`
	EquityID             *int64   `json:"equity_id"`
	InstrumentID         *int64   `json:"instrument_id"`
	QuantityCurrent      Amount   `json:"quantity_current"`
	QuantityPurchased    Amount   `json:"quantity_purchased"`
	QuantitySold         Amount   `json:"quantity_sold"`
	TotalPurchased       Amount   `json:"total_purchased"`
	TotalSold            Amount   `json:"total_sold"`
	AveragePurchasePrice Amount   `json:"average_purchase_price"`
	AverageSellingPrice  Amount   `json:"average_selling_price"`
	Closed               bool     `json:"closed"`

	// Derived on read, never stored.
	AssetLabel       string  `json:"asset_label,omitempty"`
	LastPrice        *Amount `json:"last_price,omitempty"`
	Balance          *Amount `json:"balance,omitempty"`
	NetBalance       *Amount `json:"net_balance,omitempty"`
	Profit           *Amount `json:"profit,omitempty"`
	ProfitPercentage *Amount `json:"profit_percentage,omitempty"`
}

// LedgerEntry is a single buy or sell belonging to one position.
// Equity entries carry a unit price and total value; instrument entries carry
// the invested value with the unit price derived from it.
type LedgerEntry struct {
	ID         int64   `json:"id"`
	PositionID int64   `json:"position_id"`
	Operation  string  `json:"operation"`
	Date       string  `json:"date"`
	Quantity   Amount  `json:"quantity"`
	Price      Amount  `json:"price"`
	TotalValue Amount  `json:"total_value"`
	CreatedAt  *string `json:"created_at"`
}

// EntryRequest defines inputs to create or update a ledger entry.
type EntryRequest struct {
	AccountID     int64    `json:"account_id"`
	Asset         AssetRef `json:"-"`
	EquityID      *int64   `json:"equity_id"`
	InstrumentID  *int64   `json:"instrument_id"`
	Operation     string   `json:"operation"`
	Date          string   `json:"date"`
	Quantity      Amount   `json:"quantity"`
	Price         *Amount  `json:"price"`
	InvestedValue *Amount  `json:"invested_value"`
}

// BatchPolicy controls how a batch of entries reacts to one entry failing.
type BatchPolicy string

const (
	// BatchAtomic rolls the whole batch back on the first failure.
	BatchAtomic BatchPolicy = "atomic"
	// BatchPartial keeps entries that succeeded before the failure.
	BatchPartial BatchPolicy = "partial"
)

// BatchResult reports per-entry outcomes for a batch submission.
type BatchResult struct {
	Created []int64  `json:"created"`
	Failed  []string `json:"failed,omitempty"`
}

// TargetAllocation is the desired percentage weight for one asset.
type TargetAllocation struct {
	ID           int64    `json:"id"`
	Asset        AssetRef `json:"-"`
	EquityID     *int64   `json:"equity_id"`
	InstrumentID *int64   `json:"instrument_id"`
	Percentage   Amount   `json:"percentage"`
}

// RemovedAllocation is a soft-deleted former target allocation kept for history.
type RemovedAllocation struct {
	ID           int64    `json:"id"`
	Asset        AssetRef `json:"-"`
	EquityID     *int64   `json:"equity_id"`
	InstrumentID *int64   `json:"instrument_id"`
	Percentage   Amount   `json:"percentage"`
	Reason       *string  `json:"reason"`
	DeletedAt    string   `json:"deleted_at"`
}

// NetBalance is a manual net-balance override for a position on a date.
type NetBalance struct {
	ID         int64  `json:"id"`
	PositionID int64  `json:"position_id"`
	Date       string `json:"date"`
	Value      Amount `json:"value"`
}

// Earning is a dividend or interest payment attached to a position.
type Earning struct {
	ID         int64  `json:"id"`
	PositionID int64  `json:"position_id"`
	Date       string `json:"date"`
	Kind       string `json:"kind"`
	Value      Amount `json:"value"`
}

// Crossing row statuses.
const (
	StatusPositioned     = "positioned"
	StatusNotPositioned  = "not_positioned"
	StatusUnwindPosition = "unwind_position"
)

// LockedValue is the sentinel substituted for premium fields when the caller
// lacks full access. The key set of the response never changes.
const LockedValue = "locked"

// CrossingRow is one line of the target-vs-actual comparison. Gated fields are
// typed any so masking can swap the value for LockedValue without changing the
// response shape.
type CrossingRow struct {
	Asset           AssetRef `json:"-"`
	EquityID        *int64   `json:"equity_id"`
	InstrumentID    *int64   `json:"instrument_id"`
	Code            string   `json:"code"`
	Name            string   `json:"name"`
	Class           string   `json:"class"`
	Status          string   `json:"status"`
	IdealPercentage Amount   `json:"ideal_percentage"`
	LastPrice       *Amount  `json:"last_price"`
	Balance         Amount   `json:"balance"`
	NetBalance      Amount   `json:"net_balance"`

	QuantityCurrent  any `json:"quantity_current"`
	ToBuyQuantity    any `json:"to_buy_quantity"`
	ToBuyFormatted   any `json:"to_buy_formatted"`
	Profit           any `json:"profit"`
	ProfitPercentage any `json:"profit_percentage"`
}

// CrossingSummary aggregates the ordered rows. Gated fields are typed any for
// the same masking reason as CrossingRow.
type CrossingSummary struct {
	TargetValue  Amount `json:"target_value"`
	Invested     Amount `json:"invested"`
	CurrentValue Amount `json:"current_value"`

	Result                  any `json:"result"`
	Positioned              any `json:"positioned"`
	NotPositioned           any `json:"not_positioned"`
	UnwindPositions         any `json:"unwind_positions"`
	AverageProfitPercentage any `json:"average_profit_percentage"`
	ProfitableCount         any `json:"profitable_count"`
	LossCount               any `json:"loss_count"`
	WellPositionedCount     any `json:"well_positioned_count"`
	TotalProfit             any `json:"total_profit"`
}

// Crossing is the full comparison payload.
type Crossing struct {
	Rows    []CrossingRow   `json:"rows"`
	Summary CrossingSummary `json:"summary"`
}

// OperationLog represents an audit log record.
type OperationLog struct {
	ID        int64   `json:"id"`
	Operation string  `json:"operation_type"`
	Asset     *string `json:"asset"`
	Details   *string `json:"details"`
	OldValue  *Amount `json:"old_value"`
	NewValue  *Amount `json:"new_value"`
	CreatedAt *string `json:"created_at"`
}

// PortfolioPoint represents a cumulative portfolio cash-flow point.
type PortfolioPoint struct {
	Date  string `json:"date"`
	Value Amount `json:"value"`
}

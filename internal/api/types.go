package api

import "carteira/pkg/carteira"

type entryPayload struct {
	AccountID     int64            `json:"account_id"`
	EquityID      *int64           `json:"equity_id"`
	InstrumentID  *int64           `json:"instrument_id"`
	Operation     string           `json:"operation"`
	Date          string           `json:"date"`
	Quantity      carteira.Amount  `json:"quantity"`
	Price         *carteira.Amount `json:"price"`
	InvestedValue *carteira.Amount `json:"invested_value"`
}

func (p entryPayload) toRequest() carteira.EntryRequest {
	return carteira.EntryRequest{
		AccountID:     p.AccountID,
		EquityID:      p.EquityID,
		InstrumentID:  p.InstrumentID,
		Operation:     p.Operation,
		Date:          p.Date,
		Quantity:      p.Quantity,
		Price:         p.Price,
		InvestedValue: p.InvestedValue,
	}
}

type batchEntriesPayload struct {
	Entries []entryPayload `json:"entries"`
}

type accountPayload struct {
	Name   string  `json:"name"`
	Broker *string `json:"broker"`
}

type equityPayload struct {
	Ticker string `json:"ticker"`
	Name   string `json:"name"`
	Class  string `json:"class"`
}

type instrumentPayload struct {
	Name    string  `json:"name"`
	DueDate *string `json:"due_date"`
}

type pricePayload struct {
	Price carteira.Amount `json:"price"`
}

type allocationPayload struct {
	EquityID     *int64          `json:"equity_id"`
	InstrumentID *int64          `json:"instrument_id"`
	Percentage   carteira.Amount `json:"percentage"`
}

type deleteAllocationPayload struct {
	SaveHistory bool    `json:"save_history"`
	Reason      *string `json:"reason"`
}

type netBalancePayload struct {
	Date  string          `json:"date"`
	Value carteira.Amount `json:"value"`
}

type earningPayload struct {
	Date  string          `json:"date"`
	Kind  string          `json:"kind"`
	Value carteira.Amount `json:"value"`
}

type crossingAdvicePayload struct {
	APIKey       string          `json:"api_key"`
	Model        string          `json:"model"`
	TargetValue  carteira.Amount `json:"target_value"`
	CustomPrompt string          `json:"custom_prompt"`
}

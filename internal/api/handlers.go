package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"carteira/pkg/carteira"
)

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) getPositions(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := carteira.PositionFilter{
		AccountID:     int64(parseInt(query.Get("account_id"))),
		IncludeClosed: query.Get("include_closed") == "1" || query.Get("include_closed") == "true",
	}
	result, err := h.core.GetPositions(filter)
	if err != nil {
		writeErrorResponse(w, http.StatusInternalServerError, err)
		return
	}
	writeSuccess(w, result)
}

func (h *handler) getPosition(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	result, err := h.core.GetPosition(id)
	if err != nil {
		writeErrorResponse(w, http.StatusInternalServerError, err)
		return
	}
	writeSuccess(w, result)
}

func (h *handler) getEntries(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	result, err := h.core.GetEntries(id)
	if err != nil {
		writeErrorResponse(w, http.StatusInternalServerError, err)
		return
	}
	writeSuccess(w, result)
}

func (h *handler) recomputePosition(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.core.Recompute(r.Context(), id); err != nil {
		writeErrorResponse(w, http.StatusInternalServerError, err)
		return
	}
	writeSuccessWithMessage(w, "recomputed", nil)
}

func (h *handler) createEntry(w http.ResponseWriter, r *http.Request) {
	var payload entryPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	entry, err := h.core.CreateEntry(r.Context(), payload.toRequest())
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err)
		return
	}
	writeSuccess(w, entry)
}

func (h *handler) createEntries(w http.ResponseWriter, r *http.Request) {
	var payload batchEntriesPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(payload.Entries) == 0 {
		writeError(w, http.StatusBadRequest, "entries are required")
		return
	}

	policy := carteira.BatchAtomic
	if r.URL.Query().Get("policy") == string(carteira.BatchPartial) {
		policy = carteira.BatchPartial
	}

	reqs := make([]carteira.EntryRequest, 0, len(payload.Entries))
	for _, p := range payload.Entries {
		reqs = append(reqs, p.toRequest())
	}
	result, err := h.core.CreateEntries(r.Context(), reqs, policy)
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err)
		return
	}
	writeSuccess(w, result)
}

func (h *handler) updateEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var payload entryPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.core.UpdateEntry(r.Context(), id, payload.toRequest()); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err)
		return
	}
	writeSuccessWithMessage(w, "updated", nil)
}

func (h *handler) deleteEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.core.DeleteEntry(r.Context(), id); err != nil {
		writeErrorResponse(w, http.StatusInternalServerError, err)
		return
	}
	writeSuccessWithMessage(w, "deleted", nil)
}

func (h *handler) getCrossing(w http.ResponseWriter, r *http.Request) {
	targetValue, err := parseAmount(r.URL.Query().Get("target_value"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid target_value")
		return
	}
	result, err := h.core.BuildCrossing(targetValue)
	if err != nil {
		writeErrorResponse(w, http.StatusInternalServerError, err)
		return
	}
	writeSuccess(w, result)
}

func (h *handler) getCrossingAdvice(w http.ResponseWriter, r *http.Request) {
	var payload crossingAdvicePayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	result, err := h.core.GetCrossingAdvice(r.Context(), carteira.CrossingAdviceRequest{
		APIKey:       payload.APIKey,
		Model:        payload.Model,
		TargetValue:  payload.TargetValue,
		CustomPrompt: payload.CustomPrompt,
	})
	if err != nil {
		h.logger.Error("crossing advice failed", "model", payload.Model, "err", err)
		writeErrorResponse(w, http.StatusBadRequest, err)
		return
	}
	writeSuccess(w, result)
}

func (h *handler) getAllocations(w http.ResponseWriter, r *http.Request) {
	result, err := h.core.GetTargetAllocations()
	if err != nil {
		writeErrorResponse(w, http.StatusInternalServerError, err)
		return
	}
	writeSuccess(w, result)
}

func (h *handler) setAllocation(w http.ResponseWriter, r *http.Request) {
	var payload allocationPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ref := assetRefFromPayload(payload.EquityID, payload.InstrumentID)
	id, err := h.core.SetTargetAllocation(r.Context(), ref, payload.Percentage)
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err)
		return
	}
	writeSuccess(w, map[string]int64{"id": id})
}

func (h *handler) deleteAllocation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	payload := deleteAllocationPayload{SaveHistory: true}
	if r.Body != nil && r.ContentLength > 0 {
		if err := decodeJSON(r, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	if err := h.core.DeleteTargetAllocation(r.Context(), id, payload.SaveHistory, payload.Reason); err != nil {
		writeErrorResponse(w, http.StatusInternalServerError, err)
		return
	}
	writeSuccessWithMessage(w, "deleted", nil)
}

func (h *handler) getRemovedAllocations(w http.ResponseWriter, r *http.Request) {
	result, err := h.core.GetRemovedAllocations()
	if err != nil {
		writeErrorResponse(w, http.StatusInternalServerError, err)
		return
	}
	writeSuccess(w, result)
}

func (h *handler) getAccounts(w http.ResponseWriter, r *http.Request) {
	result, err := h.core.GetAccounts()
	if err != nil {
		writeErrorResponse(w, http.StatusInternalServerError, err)
		return
	}
	writeSuccess(w, result)
}

func (h *handler) addAccount(w http.ResponseWriter, r *http.Request) {
	var payload accountPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	id, err := h.core.AddAccount(carteira.Account{Name: payload.Name, Broker: payload.Broker})
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err)
		return
	}
	writeSuccess(w, map[string]int64{"id": id})
}

func (h *handler) deleteAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	deleted, message, err := h.core.DeleteAccount(id)
	if err != nil {
		writeErrorResponse(w, http.StatusInternalServerError, err)
		return
	}
	if !deleted {
		writeError(w, http.StatusBadRequest, message)
		return
	}
	writeSuccessWithMessage(w, message, nil)
}

func (h *handler) getEquities(w http.ResponseWriter, r *http.Request) {
	result, err := h.core.GetEquities()
	if err != nil {
		writeErrorResponse(w, http.StatusInternalServerError, err)
		return
	}
	writeSuccess(w, result)
}

func (h *handler) addEquity(w http.ResponseWriter, r *http.Request) {
	var payload equityPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	id, err := h.core.AddEquity(carteira.Equity{
		Ticker: payload.Ticker,
		Name:   payload.Name,
		Class:  payload.Class,
	})
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err)
		return
	}
	writeSuccess(w, map[string]int64{"id": id})
}

func (h *handler) updateEquityPrice(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var payload pricePayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.core.UpdateAssetPrice(carteira.NewEquityRef(id), payload.Price); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err)
		return
	}
	writeSuccessWithMessage(w, "updated", nil)
}

func (h *handler) getInstruments(w http.ResponseWriter, r *http.Request) {
	result, err := h.core.GetInstruments()
	if err != nil {
		writeErrorResponse(w, http.StatusInternalServerError, err)
		return
	}
	writeSuccess(w, result)
}

func (h *handler) addInstrument(w http.ResponseWriter, r *http.Request) {
	var payload instrumentPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	id, err := h.core.AddInstrument(carteira.Instrument{
		Name:    payload.Name,
		DueDate: payload.DueDate,
	})
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err)
		return
	}
	writeSuccess(w, map[string]int64{"id": id})
}

func (h *handler) updateInstrumentPrice(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var payload pricePayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.core.UpdateAssetPrice(carteira.NewInstrumentRef(id), payload.Price); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err)
		return
	}
	writeSuccessWithMessage(w, "updated", nil)
}

func (h *handler) setNetBalance(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var payload netBalancePayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	balanceID, err := h.core.SetNetBalance(id, payload.Date, payload.Value)
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err)
		return
	}
	writeSuccess(w, map[string]int64{"id": balanceID})
}

func (h *handler) getNetBalances(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	result, err := h.core.GetNetBalances(id)
	if err != nil {
		writeErrorResponse(w, http.StatusInternalServerError, err)
		return
	}
	writeSuccess(w, result)
}

func (h *handler) addEarning(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var payload earningPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	earningID, err := h.core.AddEarning(carteira.Earning{
		PositionID: id,
		Date:       payload.Date,
		Kind:       payload.Kind,
		Value:      payload.Value,
	})
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err)
		return
	}
	writeSuccess(w, map[string]int64{"id": earningID})
}

func (h *handler) getEarnings(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	result, err := h.core.GetEarnings(id)
	if err != nil {
		writeErrorResponse(w, http.StatusInternalServerError, err)
		return
	}
	writeSuccess(w, result)
}

func (h *handler) getOperationLogs(w http.ResponseWriter, r *http.Request) {
	limit := parseIntDefault(r.URL.Query().Get("limit"), 50)
	offset := parseIntDefault(r.URL.Query().Get("offset"), 0)
	result, err := h.core.GetOperationLogs(limit, offset)
	if err != nil {
		writeErrorResponse(w, http.StatusInternalServerError, err)
		return
	}
	writeSuccess(w, result)
}

func (h *handler) getPortfolioHistory(w http.ResponseWriter, r *http.Request) {
	limit := parseIntDefault(r.URL.Query().Get("limit"), 1000)
	result, err := h.core.GetPortfolioHistory(limit)
	if err != nil {
		writeErrorResponse(w, http.StatusInternalServerError, err)
		return
	}
	writeSuccess(w, result)
}

// Helpers.

func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

func parseInt(value string) int {
	if value == "" {
		return 0
	}
	i, _ := strconv.Atoi(value)
	return i
}

func parseIntDefault(value string, fallback int) int {
	if value == "" {
		return fallback
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return i
}

func parseAmount(value string) (carteira.Amount, error) {
	if value == "" {
		return carteira.Amount{}, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return carteira.Amount{}, err
	}
	return carteira.NewAmount(f), nil
}

func assetRefFromPayload(equityID, instrumentID *int64) carteira.AssetRef {
	switch {
	case equityID != nil && instrumentID == nil:
		return carteira.NewEquityRef(*equityID)
	case instrumentID != nil && equityID == nil:
		return carteira.NewInstrumentRef(*instrumentID)
	}
	return carteira.AssetRef{}
}

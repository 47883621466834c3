package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"carteira/pkg/carteira"
)

func TestWriteSuccess(t *testing.T) {
	rr := httptest.NewRecorder()
	writeSuccess(rr, map[string]string{"ok": "yes"})

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	var resp Response
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Code != 0 {
		t.Fatalf("expected code 0, got %d", resp.Code)
	}
	data, ok := resp.Data.(map[string]any)
	if !ok || data["ok"] != "yes" {
		t.Fatalf("unexpected data payload: %v", resp.Data)
	}
}

func TestWriteErrorResponse_StructuredError(t *testing.T) {
	rr := httptest.NewRecorder()
	writeErrorResponse(rr, http.StatusInternalServerError, carteira.NewError(carteira.ErrCodeNotFound, "position not found"))

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 from error code mapping, got %d", rr.Code)
	}
	var resp ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.ErrorCode != string(carteira.ErrCodeNotFound) {
		t.Fatalf("expected error code NOT_FOUND, got %s", resp.ErrorCode)
	}
}

func TestWriteErrorResponse_PlainError(t *testing.T) {
	rr := httptest.NewRecorder()
	writeErrorResponse(rr, http.StatusBadRequest, errors.New("boom"))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for plain error, got %d", rr.Code)
	}
	var resp ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.ErrorCode != "" {
		t.Fatalf("expected empty error code, got %s", resp.ErrorCode)
	}
}

func TestMapErrorCodeToHTTPStatus(t *testing.T) {
	tests := []struct {
		code carteira.ErrorCode
		want int
	}{
		{carteira.ErrCodeInvalidInput, http.StatusBadRequest},
		{carteira.ErrCodeValidation, http.StatusBadRequest},
		{carteira.ErrCodeNotFound, http.StatusNotFound},
		{carteira.ErrCodeDuplicate, http.StatusConflict},
		{carteira.ErrCodeInsufficientQuantity, http.StatusUnprocessableEntity},
		{carteira.ErrCodeConsistency, http.StatusConflict},
		{carteira.ErrCodeDatabase, http.StatusInternalServerError},
		{carteira.ErrCodeInternal, http.StatusInternalServerError},
		{carteira.ErrorCode("UNKNOWN"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := mapErrorCodeToHTTPStatus(tt.code); got != tt.want {
			t.Errorf("%s: got %d, want %d", tt.code, got, tt.want)
		}
	}
}

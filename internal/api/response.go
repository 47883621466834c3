package api

import (
	"errors"
	"net/http"

	"carteira/pkg/carteira"
)

// Response represents a successful API response with unified format.
type Response struct {
	Code    int    `json:"code"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// ErrorResponse represents an error API response with structured information.
type ErrorResponse struct {
	Code      int    `json:"code"`
	Message   string `json:"message"`
	ErrorCode string `json:"error_code,omitempty"`
}

// writeSuccess writes a successful response with data.
func writeSuccess(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, Response{
		Code: 0,
		Data: data,
	})
}

// writeSuccessWithMessage writes a successful response with data and message.
func writeSuccessWithMessage(w http.ResponseWriter, message string, data any) {
	writeJSON(w, http.StatusOK, Response{
		Code:    0,
		Message: message,
		Data:    data,
	})
}

// writeErrorResponse writes an error response, mapping structured business
// errors to HTTP status codes.
func writeErrorResponse(w http.ResponseWriter, httpStatus int, err error) {
	response := ErrorResponse{
		Code:    httpStatus,
		Message: err.Error(),
	}

	var coreErr *carteira.Error
	if errors.As(err, &coreErr) {
		response.ErrorCode = string(coreErr.Code)
		httpStatus = mapErrorCodeToHTTPStatus(coreErr.Code)
		response.Code = httpStatus
	}
	var insufficientErr *carteira.InsufficientQuantityError
	if errors.As(err, &insufficientErr) {
		response.ErrorCode = string(insufficientErr.Code)
		httpStatus = mapErrorCodeToHTTPStatus(insufficientErr.Code)
		response.Code = httpStatus
	}

	writeJSON(w, httpStatus, response)
}

// mapErrorCodeToHTTPStatus maps business error codes to HTTP status codes.
func mapErrorCodeToHTTPStatus(code carteira.ErrorCode) int {
	switch code {
	case carteira.ErrCodeInvalidInput, carteira.ErrCodeValidation:
		return http.StatusBadRequest
	case carteira.ErrCodeNotFound:
		return http.StatusNotFound
	case carteira.ErrCodeDuplicate:
		return http.StatusConflict
	case carteira.ErrCodeInsufficientQuantity:
		return http.StatusUnprocessableEntity
	case carteira.ErrCodeConsistency:
		return http.StatusConflict
	case carteira.ErrCodeDatabase, carteira.ErrCodeInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

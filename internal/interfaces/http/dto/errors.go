package dto

import (
	"net/http"
	"strings"
)

// Error codes exposed on the HTTP surface. Domain error codes pass
// through unchanged so API consumers see the same vocabulary the domain
// speaks.
const (
	ErrCodeInternal   = "INTERNAL_ERROR"
	ErrCodeBadRequest = "BAD_REQUEST"
	ErrCodeNotFound   = "NOT_FOUND"
	ErrCodeValidation = "VALIDATION_ERROR"
)

// domainErrorStatus maps domain error codes to HTTP status codes.
// Codes absent from the map fall back by prefix: INVALID_* is a client
// error, everything else is internal.
var domainErrorStatus = map[string]int{
	ErrCodeNotFound:          http.StatusNotFound,
	"ALREADY_EXISTS":         http.StatusConflict,
	"ALREADY_MEMBER":         http.StatusConflict,
	"NOT_MEMBER":             http.StatusConflict,
	"DOCUMENT_IN_USE":        http.StatusConflict,
	"CONCURRENCY_CONFLICT":   http.StatusConflict,
	"INVALID_STATE":          http.StatusUnprocessableEntity,
	"AMBIGUOUS_GROUP_STATE":  http.StatusUnprocessableEntity,
	"NOT_PARTIAL":            http.StatusUnprocessableEntity,
	"NO_INVOICES":            http.StatusBadRequest,
	"NO_SUGGESTIONS":         http.StatusBadRequest,
	ErrCodeBadRequest:        http.StatusBadRequest,
	ErrCodeValidation:        http.StatusBadRequest,
	ErrCodeInternal:          http.StatusInternalServerError,
}

// GetHTTPStatus returns the HTTP status for a domain error code
func GetHTTPStatus(code string) int {
	if status, ok := domainErrorStatus[code]; ok {
		return status
	}
	if strings.HasPrefix(code, "INVALID_") {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

package httpx

import "net/http"

const (
	StatusOK                 = http.StatusOK
	StatusCreated            = http.StatusCreated
	StatusNoContent          = http.StatusNoContent
	StatusBadRequest         = http.StatusBadRequest
	StatusUnauthorized       = http.StatusUnauthorized       // Missing, unknown or dead token
	StatusForbidden          = http.StatusForbidden          // Authenticated but lacks permission
	StatusNotFound           = http.StatusNotFound           // Route disabled or absent
	StatusInternalError      = http.StatusInternalServerError
	StatusServiceUnavailable = http.StatusServiceUnavailable // Store unreachable
	StatusGatewayTimeout     = http.StatusGatewayTimeout     // Request context ended mid-operation
)

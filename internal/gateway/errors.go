package gateway

import (
	"fmt"
	"net/http"

	"studio/internal/domain"
)

// APIError is a non-success backend outcome carrying the HTTP status and a
// best-effort extracted detail string.
type APIError struct {
	Status int
	Detail string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("backend: %s (http %d)", e.Detail, e.Status)
	}
	return fmt.Sprintf("backend: http %d", e.Status)
}

// Unwrap exposes the distinguished auth and quota conditions so callers can
// match them with errors.Is without inspecting status codes.
func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusUnauthorized:
		return domain.ErrUnauthorized
	case http.StatusPaymentRequired:
		return domain.ErrInsufficientBalance
	}
	return nil
}

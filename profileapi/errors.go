package profileapi

import (
	"fmt"

	"github.com/tripwell/tripauth"
)

// TransportError wraps failures that never produced an HTTP status: broken
// connections, marshalling problems, cancelled contexts.
type TransportError struct {
	Message string
}

func (e *TransportError) Error() string {
	return e.Message
}

// APIError represents a non-2xx API response.
type APIError struct {
	StatusCode int    `json:"status_code"`
	Reason     string `json:"error"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("[%d] %s: %s", e.StatusCode, e.Reason, e.Message)
}

// IsNotFound returns true if the error is a 404.
func IsNotFound(err error) bool {
	if e, ok := err.(*APIError); ok {
		return e.StatusCode == 404
	}
	return false
}

// IsUnauthorized returns true if the error is a 401.
func IsUnauthorized(err error) bool {
	if e, ok := err.(*APIError); ok {
		return e.StatusCode == 401
	}
	return false
}

// mapReason lifts machine-readable response reasons into the orchestrator's
// sentinel errors so callers can branch with errors.Is irrespective of
// transport.
func mapReason(err error) error {
	apiErr, ok := err.(*APIError)
	if !ok {
		return err
	}
	switch apiErr.Reason {
	case ReasonCodeMismatch:
		return tripauth.ErrCodeInvalid
	case ReasonCodeExpired:
		return tripauth.ErrCodeExpired
	case ReasonNoPendingCode:
		return tripauth.ErrNoPendingCode
	case ReasonSameEmail:
		return tripauth.ErrSecondaryEmailMatchesPrimary
	case ReasonMailDispatch:
		return tripauth.ErrMailDispatch
	case ReasonNotConfigured:
		return tripauth.ErrMFAConfig
	}
	return err
}

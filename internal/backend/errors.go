package backend

import (
	"errors"
	"fmt"
	"net/http"
)

// Relational error code for a unique-constraint violation. The backend
// reports it in the structured error payload; conflict detection keys on this
// code, never on the human-readable message text.
const codeUniqueViolation = "23505"

// Error is a structured failure reported by the backend. Message is surfaced
// to the user verbatim; Code carries the backend's machine-readable error
// code when present.
type Error struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
	Hint    string `json:"hint,omitempty"`
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("backend request failed with status %d", e.Status)
}

// IsConflict reports whether err is the backend's unique-violation conflict:
// someone else already created the row for the same key.
func IsConflict(err error) bool {
	var berr *Error
	if !errors.As(err, &berr) {
		return false
	}
	return berr.Code == codeUniqueViolation || berr.Status == http.StatusConflict
}

// IsNotFound reports whether err is a missing-row response.
func IsNotFound(err error) bool {
	var berr *Error
	return errors.As(err, &berr) && berr.Status == http.StatusNotFound
}

// IsUnauthorized reports whether err is a rejected or expired credential.
func IsUnauthorized(err error) bool {
	var berr *Error
	return errors.As(err, &berr) && berr.Status == http.StatusUnauthorized
}

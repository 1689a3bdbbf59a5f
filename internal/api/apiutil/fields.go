package apiutil

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/clubpadel/courtside/internal/catalog"
)

const dateQueryKey = "date"

func RequiredStringField(raw string, field string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", FieldError{Field: field, Reason: "is required"}
	}
	return raw, nil
}

// ParseDateField validates an ISO calendar date (YYYY-MM-DD).
func ParseDateField(raw string, field string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", FieldError{Field: field, Reason: "is required"}
	}
	if _, err := catalog.ParseISODate(raw); err != nil {
		return "", FieldError{Field: field, Reason: "must be a valid date (YYYY-MM-DD)"}
	}
	return raw, nil
}

func DateFromQuery(r *http.Request) (string, error) {
	return ParseDateField(r.URL.Query().Get(dateQueryKey), dateQueryKey)
}

// ParseTimeField validates a slot boundary time and normalizes it to HH:MM.
func ParseTimeField(raw string, field string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", FieldError{Field: field, Reason: "is required"}
	}
	normalized := catalog.NormalizeTime(raw)
	if _, err := time.Parse("15:04", normalized); err != nil {
		return "", FieldError{Field: field, Reason: "must be a valid time (HH:MM)"}
	}
	return normalized, nil
}

func RequiredIDField(raw string, field string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", FieldError{Field: field, Reason: "is required"}
	}
	if strings.ContainsAny(raw, " \t\n") {
		return "", FieldError{Field: field, Reason: fmt.Sprintf("%q is not a valid identifier", raw)}
	}
	return raw, nil
}

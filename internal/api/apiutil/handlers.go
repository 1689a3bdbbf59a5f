package apiutil

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/clubpadel/courtside/internal/api/authz"
	"github.com/clubpadel/courtside/internal/backend"
)

type FieldError struct {
	Field  string
	Reason string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

type HandlerError struct {
	Status  int
	Message string
	Err     error
}

func (e HandlerError) Error() string {
	return e.Message
}

func (e HandlerError) Unwrap() error {
	return e.Err
}

func DecodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return fmt.Errorf("missing request body")
	}
	defer r.Body.Close()

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		return err
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

// DecodeOptionalJSON decodes like DecodeJSON but leaves dst zero-valued when
// the request has no body. Used by actions whose body fields are all optional.
func DecodeOptionalJSON(r *http.Request, dst any) error {
	if r.Body == nil || r.Body == http.NoBody {
		return nil
	}
	defer r.Body.Close()

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func WriteJSON(w http.ResponseWriter, status int, payload any) error {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	if err := encoder.Encode(payload); err != nil {
		return err
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err := w.Write(buf.Bytes())
	return err
}

type errorPayload struct {
	Error string `json:"error"`
}

// WriteError maps an error to an HTTP response. Backend errors keep their
// upstream message verbatim so the member sees what the backend said;
// everything unrecognized collapses to a generic 500 without leaking
// internals.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	logger := log.Ctx(r.Context())

	var handlerErr HandlerError
	if errors.As(err, &handlerErr) {
		if handlerErr.Status >= http.StatusInternalServerError {
			logger.Error().Err(handlerErr.Err).Msg(handlerErr.Message)
		}
		_ = WriteJSON(w, handlerErr.Status, errorPayload{Error: handlerErr.Message})
		return
	}

	var fieldErr FieldError
	if errors.As(err, &fieldErr) {
		_ = WriteJSON(w, http.StatusBadRequest, errorPayload{Error: fieldErr.Error()})
		return
	}

	var backendErr *backend.Error
	if errors.As(err, &backendErr) {
		status := backendErr.Status
		if status < http.StatusBadRequest {
			status = http.StatusBadGateway
		}
		_ = WriteJSON(w, status, errorPayload{Error: backendErr.Message})
		return
	}

	switch {
	case errors.Is(err, authz.ErrUnauthenticated):
		_ = WriteJSON(w, http.StatusUnauthorized, errorPayload{Error: "unauthorized"})
	case errors.Is(err, authz.ErrForbidden), errors.Is(err, authz.ErrInactive), errors.Is(err, authz.ErrNotRegistered):
		_ = WriteJSON(w, http.StatusForbidden, errorPayload{Error: err.Error()})
	default:
		logger.Error().Err(err).Msg("Unhandled request error")
		_ = WriteJSON(w, http.StatusInternalServerError, errorPayload{Error: "internal error"})
	}
}

// RequireSession resolves the request session or writes a 401.
func RequireSession(w http.ResponseWriter, r *http.Request) (authz.Session, bool) {
	sess, ok := authz.SessionFromContext(r.Context())
	if !ok {
		WriteError(w, r, authz.ErrUnauthenticated)
		return authz.Session{}, false
	}
	return sess, true
}

package apiutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/clubpadel/courtside/internal/api/authz"
	"github.com/clubpadel/courtside/internal/backend"
)

func TestDecodeJSONRejectsUnknownFields(t *testing.T) {
	body := strings.NewReader(`{"date":"2026-09-01","bogus":true}`)
	req := httptest.NewRequest(http.MethodPost, "/", body)

	var dst struct {
		Date string `json:"date"`
	}
	if err := DecodeJSON(req, &dst); err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestDecodeJSONRejectsTrailingGarbage(t *testing.T) {
	body := strings.NewReader(`{"date":"2026-09-01"}{"again":true}`)
	req := httptest.NewRequest(http.MethodPost, "/", body)

	var dst struct {
		Date string `json:"date"`
	}
	if err := DecodeJSON(req, &dst); err == nil {
		t.Fatal("expected error for trailing JSON")
	}
}

func TestDecodeOptionalJSON(t *testing.T) {
	var dst struct {
		MemberUserID string `json:"member_user_id"`
	}

	// No body at all leaves the destination zero-valued.
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	if err := DecodeOptionalJSON(req, &dst); err != nil {
		t.Fatalf("empty body: %v", err)
	}
	if dst.MemberUserID != "" {
		t.Fatalf("expected zero value, got %q", dst.MemberUserID)
	}

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"member_user_id":"u-1"}`))
	if err := DecodeOptionalJSON(req, &dst); err != nil {
		t.Fatalf("with body: %v", err)
	}
	if dst.MemberUserID != "u-1" {
		t.Fatalf("expected u-1, got %q", dst.MemberUserID)
	}

	// A body that is present must still be valid.
	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"bogus":true}`))
	if err := DecodeOptionalJSON(req, &dst); err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestWriteErrorBackendMessageVerbatim(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", nil)

	WriteError(rec, req, &backend.Error{
		Status:  http.StatusBadRequest,
		Code:    "P0001",
		Message: "reservation is full",
	})

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Error != "reservation is full" {
		t.Fatalf("expected verbatim backend message, got %q", payload.Error)
	}
}

func TestWriteErrorBackendWithoutStatusIsBadGateway(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	WriteError(rec, req, &backend.Error{Message: "connection reset"})

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
}

func TestWriteErrorAuthz(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"unauthenticated", authz.ErrUnauthenticated, http.StatusUnauthorized},
		{"forbidden", authz.ErrForbidden, http.StatusForbidden},
		{"inactive", authz.ErrInactive, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			WriteError(rec, req, tt.err)
			if rec.Code != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, rec.Code)
			}
		})
	}
}

func TestRequireSession(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if _, ok := RequireSession(rec, req); ok {
		t.Fatal("expected unauthenticated request to fail")
	}
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(authz.ContextWithSession(req.Context(), authz.Session{UserID: "u-1", AccessToken: "tok"}))
	sess, ok := RequireSession(rec, req)
	if !ok || sess.UserID != "u-1" {
		t.Fatalf("expected session, got %+v ok=%v", sess, ok)
	}
}

func TestParseDateField(t *testing.T) {
	if _, err := ParseDateField("2026-09-01", "date"); err != nil {
		t.Fatalf("valid date rejected: %v", err)
	}
	if _, err := ParseDateField("09/01/2026", "date"); err == nil {
		t.Fatal("expected error for non-ISO date")
	}
	if _, err := ParseDateField("", "date"); err == nil {
		t.Fatal("expected error for empty date")
	}
}

func TestParseTimeFieldNormalizes(t *testing.T) {
	got, err := ParseTimeField("17:00:00", "slot_start")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "17:00" {
		t.Fatalf("expected 17:00, got %q", got)
	}
	if _, err := ParseTimeField("5pm", "slot_start"); err == nil {
		t.Fatal("expected error for invalid time")
	}
}

package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/clubpadel/courtside/internal/api/authz"
	"github.com/clubpadel/courtside/internal/backend/backendtest"
	"github.com/clubpadel/courtside/internal/ratelimit"
)

func setupHandlers(t *testing.T) (*backendtest.FakeAuth, *backendtest.Fake) {
	t.Helper()
	fakeAuth := backendtest.NewAuth()
	fakeStore := backendtest.New()

	prevAuth, prevStore := authenticator, store
	prevLimiter := loginLimiter
	authenticator = fakeAuth
	store = fakeStore
	loginLimiter = ratelimit.New(1000, 1000, time.Minute)
	setTestConfig(t)
	t.Cleanup(func() {
		authenticator, store, loginLimiter = prevAuth, prevStore, prevLimiter
	})
	return fakeAuth, fakeStore
}

func postLogin(t *testing.T, body string) *httptest.ResponseRecorder {
	t.Helper()
	return postLoginFrom(t, "192.0.2.1:1234", body)
}

func postLoginFrom(t *testing.T, remoteAddr, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(body))
	req.RemoteAddr = remoteAddr
	rec := httptest.NewRecorder()
	HandleLogin(rec, req)
	return rec
}

func TestHandleLoginSuccess(t *testing.T) {
	fakeAuth, fakeStore := setupHandlers(t)
	fakeAuth.AddAccount("ana@club.test", "passw0rd", "u-ana", "tok-ana")
	fakeStore.AddMember("u-ana", "Ana García López", "member", true)

	rec := postLogin(t, `{"email":"ana@club.test","password":"passw0rd"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp sessionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Authenticated || resp.UserID != "u-ana" || resp.FullName != "Ana García López" {
		t.Fatalf("unexpected response: %+v", resp)
	}

	var found bool
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookieName && c.Value != "" {
			found = true
		}
	}
	if !found {
		t.Fatal("expected session cookie on successful login")
	}
}

func TestHandleLoginBadCredentials(t *testing.T) {
	fakeAuth, fakeStore := setupHandlers(t)
	fakeAuth.AddAccount("ana@club.test", "passw0rd", "u-ana", "tok-ana")
	fakeStore.AddMember("u-ana", "Ana García López", "member", true)

	rec := postLogin(t, `{"email":"ana@club.test","password":"wrong"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Invalid login credentials") {
		t.Fatalf("expected backend message verbatim, got %s", rec.Body.String())
	}
}

func TestHandleLoginInactiveMemberRejected(t *testing.T) {
	fakeAuth, fakeStore := setupHandlers(t)
	fakeAuth.AddAccount("ana@club.test", "passw0rd", "u-ana", "tok-ana")
	fakeStore.AddMember("u-ana", "Ana García López", "member", false)

	rec := postLogin(t, `{"email":"ana@club.test","password":"passw0rd"}`)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestHandleLoginUnregisteredUserRejected(t *testing.T) {
	fakeAuth, _ := setupHandlers(t)
	fakeAuth.AddAccount("ghost@club.test", "passw0rd", "u-ghost", "tok-ghost")

	rec := postLogin(t, `{"email":"ghost@club.test","password":"passw0rd"}`)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestHandleLoginValidation(t *testing.T) {
	setupHandlers(t)

	tests := []struct {
		name string
		body string
	}{
		{"missing email", `{"password":"x"}`},
		{"missing password", `{"email":"a@b.c"}`},
		{"unknown field", `{"email":"a@b.c","password":"x","extra":1}`},
		{"not json", `email=a`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postLogin(t, tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
		})
	}
}

func TestHandleLoginRateLimitedPerClient(t *testing.T) {
	fakeAuth, fakeStore := setupHandlers(t)
	fakeAuth.AddAccount("ana@club.test", "passw0rd", "u-ana", "tok-ana")
	fakeStore.AddMember("u-ana", "Ana García López", "member", true)
	loginLimiter = ratelimit.New(0, 1, time.Minute)

	body := `{"email":"ana@club.test","password":"passw0rd"}`
	if rec := postLoginFrom(t, "10.0.0.8:1111", body); rec.Code != http.StatusOK {
		t.Fatalf("first attempt: expected 200, got %d", rec.Code)
	}
	if rec := postLoginFrom(t, "10.0.0.8:2222", body); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("same client: expected 429, got %d", rec.Code)
	}

	// A different client keeps its own bucket.
	if rec := postLoginFrom(t, "10.0.0.9:3333", body); rec.Code != http.StatusOK {
		t.Fatalf("other client: expected 200, got %d", rec.Code)
	}
}

func TestHandleLogout(t *testing.T) {
	fakeAuth, _ := setupHandlers(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
	req = req.WithContext(authz.ContextWithSession(req.Context(), authz.Session{UserID: "u-1", AccessToken: "tok-1"}))
	rec := httptest.NewRecorder()
	HandleLogout(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if len(fakeAuth.SignedOut) != 1 || fakeAuth.SignedOut[0] != "tok-1" {
		t.Fatalf("expected backend sign-out with tok-1, got %v", fakeAuth.SignedOut)
	}
	cookie := sessionCookie(t, rec)
	if cookie.MaxAge != -1 {
		t.Fatal("expected session cookie cleared")
	}
}

func TestHandleSession(t *testing.T) {
	_, fakeStore := setupHandlers(t)
	fakeStore.AddMember("u-ana", "Ana García", "admin", true)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/session", nil)
	rec := httptest.NewRecorder()
	HandleSession(rec, req)
	var resp sessionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Authenticated {
		t.Fatal("expected unauthenticated response without session")
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/session", nil)
	req = req.WithContext(authz.ContextWithSession(req.Context(), authz.Session{UserID: "u-ana", AccessToken: "tok"}))
	rec = httptest.NewRecorder()
	HandleSession(rec, req)
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Authenticated || resp.Role != "admin" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

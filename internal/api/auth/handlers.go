package auth

import (
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/clubpadel/courtside/internal/api/apiutil"
	"github.com/clubpadel/courtside/internal/api/authz"
	"github.com/clubpadel/courtside/internal/backend"
	"github.com/clubpadel/courtside/internal/ratelimit"
)

var (
	authenticator backend.Authenticator
	store         backend.Store
	secretKey     string
	environment   string
	loginLimiter  *ratelimit.Limiter
	initOnce      sync.Once
)

// More restrictive than the search limiter; limits are per client IP so one
// noisy client cannot lock everyone else out.
const (
	loginRPS   = 1
	loginBurst = 5
)

func InitHandlers(a backend.Authenticator, s backend.Store, secret, env string) {
	initOnce.Do(func() {
		authenticator = a
		store = s
		secretKey = secret
		environment = env
		loginLimiter = ratelimit.New(loginRPS, loginBurst, 15*time.Minute)
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Authenticated bool   `json:"authenticated"`
	UserID        string `json:"user_id,omitempty"`
	FullName      string `json:"full_name,omitempty"`
	Role          string `json:"role,omitempty"`
}

func HandleLogin(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if authenticator == nil || store == nil {
		logger.Error().Msg("Auth handlers not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	if !loginLimiter.Allow(ratelimit.ClientIP(r)) {
		http.Error(w, "Too many login attempts", http.StatusTooManyRequests)
		return
	}

	var req loginRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteError(w, r, apiutil.HandlerError{Status: http.StatusBadRequest, Message: "invalid request body", Err: err})
		return
	}

	email, err := apiutil.RequiredStringField(req.Email, "email")
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	if req.Password == "" {
		apiutil.WriteError(w, r, apiutil.FieldError{Field: "password", Reason: "is required"})
		return
	}

	sess, err := authenticator.SignIn(r.Context(), email, req.Password)
	if err != nil {
		logger.Warn().Err(err).Msg("Sign-in rejected")
		apiutil.WriteError(w, r, err)
		return
	}

	authSession := authz.Session{UserID: sess.UserID, AccessToken: sess.AccessToken}
	ctx := authz.ContextWithSession(r.Context(), authSession)

	profile, err := store.MemberProfile(ctx, sess.UserID)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load member profile after sign-in")
		apiutil.WriteError(w, r, err)
		return
	}
	if err := authz.RequireMember(profile); err != nil {
		logger.Warn().Str("user_id", sess.UserID).Err(err).Msg("Sign-in blocked by membership gate")
		apiutil.WriteError(w, r, err)
		return
	}

	if err := SetSessionCookie(w, authSession, sess.ExpiresIn); err != nil {
		logger.Error().Err(err).Msg("Failed to set session cookie")
		apiutil.WriteError(w, r, apiutil.HandlerError{Status: http.StatusInternalServerError, Message: "failed to establish session", Err: err})
		return
	}

	_ = apiutil.WriteJSON(w, http.StatusOK, sessionResponse{
		Authenticated: true,
		UserID:        profile.UserID,
		FullName:      profile.FullName,
		Role:          profile.Role,
	})
}

func HandleLogout(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	// Upstream sign-out is best effort. The cookie is gone either way.
	if sess, ok := authz.SessionFromContext(r.Context()); ok && authenticator != nil {
		if err := authenticator.SignOut(r.Context(), sess.AccessToken); err != nil {
			logger.Warn().Err(err).Msg("Backend sign-out failed")
		}
	}

	ClearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

func HandleSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := authz.SessionFromContext(r.Context())
	if !ok {
		_ = apiutil.WriteJSON(w, http.StatusOK, sessionResponse{Authenticated: false})
		return
	}

	profile, err := store.MemberProfile(r.Context(), sess.UserID)
	if err != nil || authz.RequireMember(profile) != nil {
		ClearSessionCookie(w)
		_ = apiutil.WriteJSON(w, http.StatusOK, sessionResponse{Authenticated: false})
		return
	}

	_ = apiutil.WriteJSON(w, http.StatusOK, sessionResponse{
		Authenticated: true,
		UserID:        profile.UserID,
		FullName:      profile.FullName,
		Role:          profile.Role,
	})
}

// Package authz carries the signed-in member's session through request
// contexts and holds the routing-guard checks. The checks here are advisory
// UI routing only. Real authorization lives in the backend's row-level
// permissions and remote procedures, never in this package.
package authz

import (
	"context"
	"errors"

	"github.com/clubpadel/courtside/internal/backend"
)

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
	ErrInactive        = errors.New("member is inactive")
	ErrNotRegistered   = errors.New("member is not registered with the club")
)

const RoleAdmin = "admin"

// Session identifies the signed-in member for the duration of one request.
// It is resolved once by the auth middleware and threaded explicitly into
// handlers; nothing re-queries the session ad hoc.
type Session struct {
	UserID      string
	AccessToken string
}

type sessionContextKey struct{}

// ContextWithSession attaches the session and its backend token to ctx.
func ContextWithSession(ctx context.Context, sess Session) context.Context {
	ctx = backend.ContextWithToken(ctx, sess.AccessToken)
	return context.WithValue(ctx, sessionContextKey{}, sess)
}

// SessionFromContext retrieves the Session stored in ctx.
// ok is false when the request is unauthenticated.
func SessionFromContext(ctx context.Context) (Session, bool) {
	if ctx == nil {
		return Session{}, false
	}
	sess, ok := ctx.Value(sessionContextKey{}).(Session)
	return sess, ok
}

// RequireMember checks the member-area gate: the profile must exist and be
// active.
func RequireMember(profile *backend.MemberProfile) error {
	if profile == nil {
		return ErrNotRegistered
	}
	if !profile.IsActive {
		return ErrInactive
	}
	return nil
}

// RequireAdmin checks the admin-screen gate on top of RequireMember.
func RequireAdmin(profile *backend.MemberProfile) error {
	if err := RequireMember(profile); err != nil {
		return err
	}
	if profile.Role != RoleAdmin {
		return ErrForbidden
	}
	return nil
}

// IsAdmin reports whether the profile passes the admin gate.
func IsAdmin(profile *backend.MemberProfile) bool {
	return RequireAdmin(profile) == nil
}

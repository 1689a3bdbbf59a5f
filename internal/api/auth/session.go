package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/clubpadel/courtside/internal/api/authz"
)

const (
	sessionCookieName = "courtside_session"
	sessionTTL        = 8 * time.Hour
)

var errAuthConfigMissing = errors.New("auth configuration missing")

// sessionPayload is the signed cookie body. The backend access token rides
// inside the signature so every request can re-present it upstream.
type sessionPayload struct {
	UserID      string `json:"user_id"`
	AccessToken string `json:"access_token"`
	ExpiresAt   int64  `json:"exp"`
}

func isSecureCookie() bool {
	return environment != "development"
}

// SetSessionCookie writes the signed session cookie after a successful
// backend sign-in. When the backend reports a shorter token lifetime the
// cookie expires with the token.
func SetSessionCookie(w http.ResponseWriter, sess authz.Session, expiresIn int64) error {
	if w == nil {
		return errors.New("session requires response writer")
	}
	if secretKey == "" {
		return errAuthConfigMissing
	}

	ttl := sessionTTL
	if expiresIn > 0 && time.Duration(expiresIn)*time.Second < ttl {
		ttl = time.Duration(expiresIn) * time.Second
	}
	expiresAt := time.Now().Add(ttl)

	payload, err := json.Marshal(sessionPayload{
		UserID:      sess.UserID,
		AccessToken: sess.AccessToken,
		ExpiresAt:   expiresAt.Unix(),
	})
	if err != nil {
		return err
	}

	encodedPayload := base64.RawURLEncoding.EncodeToString(payload)
	signature, err := signPayload(encodedPayload)
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    encodedPayload + "." + signature,
		Path:     "/",
		HttpOnly: true,
		Secure:   isSecureCookie(),
		SameSite: http.SameSiteLaxMode,
		Expires:  expiresAt,
		MaxAge:   int(ttl.Seconds()),
	})

	return nil
}

func ClearSessionCookie(w http.ResponseWriter) {
	if w == nil {
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   isSecureCookie(),
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
	})
}

// SessionFromRequest verifies the session cookie and returns the session it
// carries. A missing cookie returns (nil, nil); a tampered or expired cookie
// returns an error.
func SessionFromRequest(r *http.Request) (*authz.Session, error) {
	if r == nil {
		return nil, nil
	}
	if secretKey == "" {
		return nil, errAuthConfigMissing
	}

	cookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		if errors.Is(err, http.ErrNoCookie) {
			return nil, nil
		}
		return nil, err
	}

	parts := strings.SplitN(cookie.Value, ".", 2)
	if len(parts) != 2 {
		return nil, errors.New("invalid session cookie")
	}

	encodedPayload := parts[0]
	signature := parts[1]
	expectedSignature, err := signPayload(encodedPayload)
	if err != nil {
		return nil, err
	}

	if !hmac.Equal([]byte(signature), []byte(expectedSignature)) {
		return nil, errors.New("invalid session cookie signature")
	}

	raw, err := base64.RawURLEncoding.DecodeString(encodedPayload)
	if err != nil {
		return nil, err
	}

	var payload sessionPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, err
	}

	if payload.ExpiresAt <= time.Now().Unix() {
		return nil, errors.New("session expired")
	}

	return &authz.Session{
		UserID:      payload.UserID,
		AccessToken: payload.AccessToken,
	}, nil
}

func signPayload(payload string) (string, error) {
	if secretKey == "" {
		return "", errAuthConfigMissing
	}

	mac := hmac.New(sha256.New, []byte(secretKey))
	_, _ = mac.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil)), nil
}

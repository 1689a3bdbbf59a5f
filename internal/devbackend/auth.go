package devbackend

import (
	"encoding/json"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
	User        struct {
		ID string `json:"id"`
	} `json:"user"`
}

// POST /auth/v1/token?grant_type=password
func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("grant_type") != "password" {
		s.writeError(w, http.StatusBadRequest, "unsupported_grant_type", "only the password grant is supported")
		return
	}

	var creds struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		s.writeError(w, http.StatusBadRequest, "", "invalid body")
		return
	}

	var account struct {
		UserID       string `db:"user_id"`
		PasswordHash string `db:"password_hash"`
	}
	err := s.store.db.GetContext(r.Context(), &account,
		`SELECT user_id, password_hash FROM members WHERE email = ?`, creds.Email)
	if err != nil || bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(creds.Password)) != nil {
		s.writeError(w, http.StatusBadRequest, "invalid_grant", "Invalid login credentials")
		return
	}

	token, expiresIn, err := s.store.issueToken(account.UserID, s.signingKey)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "", err.Error())
		return
	}

	var resp tokenResponse
	resp.AccessToken = token
	resp.TokenType = "bearer"
	resp.ExpiresIn = expiresIn
	resp.User.ID = account.UserID
	s.writeRows(w, http.StatusOK, resp)
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return token
	}
	return ""
}

// GET /auth/v1/user
func (s *Server) handleUser(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		s.writeError(w, http.StatusUnauthorized, "", "missing bearer token")
		return
	}

	userID, err := s.store.verifyToken(r.Context(), token, s.signingKey)
	if err != nil {
		s.writeError(w, http.StatusUnauthorized, "", "invalid token")
		return
	}

	s.writeRows(w, http.StatusOK, map[string]string{"id": userID})
}

// POST /auth/v1/logout
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		s.writeError(w, http.StatusUnauthorized, "", "missing bearer token")
		return
	}

	if err := s.store.revokeToken(r.Context(), token); err != nil {
		s.writeError(w, http.StatusInternalServerError, "", err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

package backendtest

import (
	"context"
	"net/http"
	"sync"

	"github.com/clubpadel/courtside/internal/backend"
)

// FakeAuth is an in-memory backend.Authenticator keyed by email.
type FakeAuth struct {
	mu sync.Mutex

	// Accounts maps email to the password and session it signs in to.
	Accounts map[string]FakeAccount
	// SignInErr, when set, fails every sign-in attempt.
	SignInErr error

	SignedOut []string
}

type FakeAccount struct {
	Password string
	Session  backend.Session
}

func NewAuth() *FakeAuth {
	return &FakeAuth{Accounts: map[string]FakeAccount{}}
}

func (a *FakeAuth) AddAccount(email, password, userID, token string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Accounts[email] = FakeAccount{
		Password: password,
		Session:  backend.Session{AccessToken: token, UserID: userID, ExpiresIn: 3600},
	}
}

func (a *FakeAuth) SignIn(ctx context.Context, email, password string) (backend.Session, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.SignInErr != nil {
		return backend.Session{}, a.SignInErr
	}
	account, ok := a.Accounts[email]
	if !ok || account.Password != password {
		return backend.Session{}, &backend.Error{
			Status:  http.StatusBadRequest,
			Code:    "invalid_grant",
			Message: "Invalid login credentials",
		}
	}
	return account.Session, nil
}

func (a *FakeAuth) User(ctx context.Context, accessToken string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, account := range a.Accounts {
		if account.Session.AccessToken == accessToken {
			return account.Session.UserID, nil
		}
	}
	return "", &backend.Error{Status: http.StatusUnauthorized, Message: "invalid token"}
}

func (a *FakeAuth) SignOut(ctx context.Context, accessToken string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.SignedOut = append(a.SignedOut, accessToken)
	return nil
}

var _ backend.Authenticator = (*FakeAuth)(nil)

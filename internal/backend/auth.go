package backend

import (
	"context"
	"net/http"
)

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signInResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
	User        struct {
		ID string `json:"id"`
	} `json:"user"`
}

type userResponse struct {
	ID string `json:"id"`
}

// SignIn exchanges a credential pair for a backend session.
func (c *Rest) SignIn(ctx context.Context, email, password string) (Session, error) {
	req, err := c.newRequest(ctx, http.MethodPost,
		c.baseURL+"/auth/v1/token?grant_type=password",
		signInRequest{Email: email, Password: password},
	)
	if err != nil {
		return Session{}, err
	}

	var resp signInResponse
	if err := c.do(req, &resp); err != nil {
		return Session{}, err
	}
	return Session{
		AccessToken: resp.AccessToken,
		UserID:      resp.User.ID,
		ExpiresIn:   resp.ExpiresIn,
	}, nil
}

// User resolves an access token to its user id, verifying the token with the
// backend.
func (c *Rest) User(ctx context.Context, accessToken string) (string, error) {
	req, err := c.newRequest(withToken(ctx, accessToken), http.MethodGet, c.baseURL+"/auth/v1/user", nil)
	if err != nil {
		return "", err
	}

	var resp userResponse
	if err := c.do(req, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

// SignOut revokes an access token. A failed revocation is reported to the
// caller but the local session is discarded regardless.
func (c *Rest) SignOut(ctx context.Context, accessToken string) error {
	req, err := c.newRequest(withToken(ctx, accessToken), http.MethodPost, c.baseURL+"/auth/v1/logout", nil)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

func withToken(ctx context.Context, token string) context.Context {
	if token == "" {
		return ctx
	}
	return ContextWithToken(ctx, token)
}

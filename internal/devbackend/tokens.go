package devbackend

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
)

const tokenTTL = time.Hour

type tokenClaims struct {
	jwt.RegisteredClaims
}

func (s *Store) issueToken(userID string, signingKey []byte) (string, int64, error) {
	now := time.Now()
	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(signingKey)
	if err != nil {
		return "", 0, fmt.Errorf("sign token: %w", err)
	}
	return signed, int64(tokenTTL.Seconds()), nil
}

// verifyToken checks the signature, expiry, and the revocation list, and
// returns the subject user id.
func (s *Store) verifyToken(ctx context.Context, raw string, signingKey []byte) (string, error) {
	var claims tokenClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return signingKey, nil
	})
	if err != nil {
		return "", err
	}

	var revoked int
	if err := s.db.GetContext(ctx, &revoked,
		`SELECT COUNT(*) FROM revoked_tokens WHERE token = ?`, raw); err != nil {
		return "", err
	}
	if revoked > 0 {
		return "", fmt.Errorf("token revoked")
	}

	return claims.Subject, nil
}

func (s *Store) revokeToken(ctx context.Context, raw string) error {
	expiresAt := time.Now().Add(tokenTTL).Unix()
	var claims tokenClaims
	if _, _, err := jwt.NewParser().ParseUnverified(raw, &claims); err == nil && claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Unix()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO revoked_tokens (token, expires_at) VALUES (?, ?)`,
		raw, expiresAt)
	return err
}

// StartTokenSweeper prunes expired entries from the revocation list on an
// interval. The returned scheduler should be shut down with the server.
func (s *Store) StartTokenSweeper() (gocron.Scheduler, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(15*time.Minute),
		gocron.NewTask(func() {
			res, err := s.db.Exec(`DELETE FROM revoked_tokens WHERE expires_at < ?`, time.Now().Unix())
			if err != nil {
				log.Error().Err(err).Msg("Token sweep failed")
				return
			}
			if n, _ := res.RowsAffected(); n > 0 {
				log.Debug().Int64("pruned", n).Msg("Pruned expired revoked tokens")
			}
		}),
	)
	if err != nil {
		return nil, err
	}

	scheduler.Start()
	return scheduler, nil
}

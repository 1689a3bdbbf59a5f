package devbackend

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// SeedMember inserts or updates a member account.
func (s *Store) SeedMember(ctx context.Context, email, password, fullName, role string, active bool) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}

	userID := uuid.NewString()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO members (user_id, email, password_hash, full_name, role, is_active)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(email) DO UPDATE SET
		     password_hash = excluded.password_hash,
		     full_name = excluded.full_name,
		     role = excluded.role,
		     is_active = excluded.is_active`,
		userID, email, string(hash), fullName, role, boolToInt(active))
	if err != nil {
		return "", err
	}

	// The conflict path keeps the original id; read it back.
	var storedID string
	if err := s.db.GetContext(ctx, &storedID,
		`SELECT user_id FROM members WHERE email = ?`, email); err != nil {
		return "", err
	}
	return storedID, nil
}

// SeedCourts ensures the given court names exist with ids 1..n.
func (s *Store) SeedCourts(ctx context.Context, names ...string) error {
	for i, name := range names {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO courts (id, name) VALUES (?, ?)
			 ON CONFLICT(id) DO UPDATE SET name = excluded.name`,
			i+1, name)
		if err != nil {
			return err
		}
	}
	return nil
}

// SeedDefaults loads a small demo club: three courts, one admin, and a
// couple of members. Passwords are fixed for local development.
func (s *Store) SeedDefaults(ctx context.Context) error {
	if err := s.SeedCourts(ctx, "Pista 1", "Pista 2", "Pista 3"); err != nil {
		return err
	}

	seeds := []struct {
		email, password, fullName, role string
		active                          bool
	}{
		{"admin@club.local", "admin123", "Carmen Ruiz Delgado", "admin", true},
		{"ana@club.local", "ana12345", "Ana García López", "member", true},
		{"luis@club.local", "luis1234", "Luis Martín Pérez", "member", true},
		{"baja@club.local", "baja1234", "Socio Dado de Baja", "member", false},
	}
	for _, seed := range seeds {
		if _, err := s.SeedMember(ctx, seed.email, seed.password, seed.fullName, seed.role, seed.active); err != nil {
			return err
		}
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

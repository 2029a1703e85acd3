package store

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/pavelanni/proctor/internal/model"
)

const authSessionTTL = 24 * time.Hour

// CreateAuthSession issues an opaque token for a freshly authenticated user.
func (s *Store) CreateAuthSession(userID int64) (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	token := hex.EncodeToString(b)

	now := time.Now()
	_, err := s.db.Exec(
		`INSERT INTO auth_sessions (id, user_id, created_at, expires_at) VALUES (?, ?, ?, ?)`,
		token, userID, now, now.Add(authSessionTTL),
	)
	if err != nil {
		return "", err
	}
	return token, nil
}

// SessionUser resolves a session token straight to its user in one joined
// query. Expired tokens, unknown tokens, and disabled accounts all resolve
// to nil; the predicate keeps a deactivated user locked out mid-session.
func (s *Store) SessionUser(token string) (*model.User, error) {
	return scanUser(s.db.QueryRow(
		`SELECT u.id, u.email, u.display_name, u.password_hash, u.role,
		        u.department, u.class, u.active, u.created_at
		 FROM auth_sessions a
		 JOIN users u ON u.id = a.user_id
		 WHERE a.id = ? AND a.expires_at > ? AND u.active = 1`,
		token, time.Now(),
	))
}

// DeleteAuthSession removes a session token (logout).
func (s *Store) DeleteAuthSession(token string) error {
	_, err := s.db.Exec(`DELETE FROM auth_sessions WHERE id = ?`, token)
	return err
}

// cleanupExpiredSessions drops stale rows. Runs once at store open; expired
// tokens are already unusable through the SessionUser predicate.
func (s *Store) cleanupExpiredSessions() error {
	_, err := s.db.Exec(`DELETE FROM auth_sessions WHERE expires_at < ?`, time.Now())
	return err
}

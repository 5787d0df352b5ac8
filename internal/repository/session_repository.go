package repository

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"time"
)

// SessionRepo is the server-side session-token registry consulted when a
// request authenticates with the legacy session cookie. Only SHA-256 hashes
// of session tokens are stored ('token_hash' column).
type SessionRepo struct{ DB *sql.DB }

func NewSessionRepo(db *sql.DB) *SessionRepo { return &SessionRepo{DB: db} }

// HashSessionToken returns the hex SHA-256 digest of a raw session token.
func HashSessionToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// Store inserts a session registry row for a user.
func (r *SessionRepo) Store(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO user_sessions (user_id, token_hash, expires_at) VALUES (?,?,?)",
		userID, tokenHash, exp)
	return err
}

// Validate reports whether the user has a non-revoked, non-expired registry
// entry for the presented session token. ErrNotFound means the registry has
// no matching row at all; the caller decides how much to trust that.
func (r *SessionRepo) Validate(ctx context.Context, userID uint64, rawToken string) (bool, error) {
	var (
		expiresAt time.Time
		revokedAt sql.NullTime
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT expires_at, revoked_at FROM user_sessions WHERE user_id=? AND token_hash=? LIMIT 1",
		userID, HashSessionToken(rawToken)).Scan(&expiresAt, &revokedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return false, ErrNotFound
	}
	if err != nil {
		return false, err
	}
	if revokedAt.Valid || time.Now().UTC().After(expiresAt) {
		return false, nil
	}
	return true, nil
}

// RevokeAllForUser revokes all of a user's active sessions.
func (r *SessionRepo) RevokeAllForUser(ctx context.Context, userID uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE user_sessions SET revoked_at=NOW() WHERE user_id=? AND revoked_at IS NULL",
		userID)
	return err
}

package repository

import (
	"context"
	"database/sql"
	"errors"
)

// NicknameRepo stores per-user display nicknames, one row per user.
type NicknameRepo struct{ DB *sql.DB }

func NewNicknameRepo(db *sql.DB) *NicknameRepo { return &NicknameRepo{DB: db} }

// Set upserts the user's nickname.
func (r *NicknameRepo) Set(ctx context.Context, userID uint64, nickname string) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO user_nicknames (user_id, nickname) VALUES (?,?)
		 ON DUPLICATE KEY UPDATE nickname = VALUES(nickname)`,
		userID, nickname)
	return err
}

// Get returns the user's nickname, or ErrNotFound when none is stored.
func (r *NicknameRepo) Get(ctx context.Context, userID uint64) (string, error) {
	var nick string
	err := r.DB.QueryRowContext(ctx,
		"SELECT nickname FROM user_nicknames WHERE user_id=? LIMIT 1",
		userID).Scan(&nick)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	return nick, err
}

// Display resolves the name shown for a user: the stored nickname when
// present, falling back to the login name.
func (r *NicknameRepo) Display(ctx context.Context, userID uint64, fallback string) string {
	nick, err := r.Get(ctx, userID)
	if err != nil || nick == "" {
		return fallback
	}
	return nick
}

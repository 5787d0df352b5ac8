package repository

import (
	"context"
	"database/sql"

	"github.com/cruxgym/crux-api/internal/model"
)

// LikeRepo stores route likes as pure set membership on (user_id, route_id).
type LikeRepo struct{ DB *sql.DB }

func NewLikeRepo(db *sql.DB) *LikeRepo { return &LikeRepo{DB: db} }

// Like adds a like. Liking an already-liked route is a no-op success: the
// upsert touches the duplicate row without changing it.
func (r *LikeRepo) Like(ctx context.Context, userID, routeID uint64) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO likes (user_id, route_id) VALUES (?,?)
		 ON DUPLICATE KEY UPDATE id=id`,
		userID, routeID)
	return err
}

// Unlike removes a like if present. Deleting a non-existent like succeeds.
func (r *LikeRepo) Unlike(ctx context.Context, userID, routeID uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"DELETE FROM likes WHERE user_id=? AND route_id=?", userID, routeID)
	return err
}

// Liked reports whether the user has liked the route.
func (r *LikeRepo) Liked(ctx context.Context, userID, routeID uint64) (bool, error) {
	var n int
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM likes WHERE user_id=? AND route_id=?",
		userID, routeID).Scan(&n)
	return n > 0, err
}

// ListForUser returns the user's likes, newest first.
func (r *LikeRepo) ListForUser(ctx context.Context, userID uint64) ([]model.Like, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id, user_id, route_id, created_at FROM likes WHERE user_id=? ORDER BY created_at DESC",
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Like
	for rows.Next() {
		var l model.Like
		if err := rows.Scan(&l.ID, &l.UserID, &l.RouteID, &l.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/cruxgym/crux-api/internal/model"
)

// ProjectRepo stores the routes a user is working toward sending. Membership
// is unique per (user_id, route_id); a send deletes the row (see
// TickRepo.MarkSend).
type ProjectRepo struct{ DB *sql.DB }

func NewProjectRepo(db *sql.DB) *ProjectRepo { return &ProjectRepo{DB: db} }

// Add upserts a project. An existing project wins: the duplicate branch keeps
// the stored notes so re-adding is a no-op success returning current state.
func (r *ProjectRepo) Add(ctx context.Context, userID, routeID uint64, notes string) (model.Project, error) {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO projects (user_id, route_id, notes) VALUES (?,?,?)
		 ON DUPLICATE KEY UPDATE id=id`,
		userID, routeID, notes)
	if err != nil {
		return model.Project{}, err
	}
	return r.Get(ctx, userID, routeID)
}

// Remove deletes a project if present; removing a non-project succeeds.
func (r *ProjectRepo) Remove(ctx context.Context, userID, routeID uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"DELETE FROM projects WHERE user_id=? AND route_id=?", userID, routeID)
	return err
}

// Get loads the project row for a pair.
func (r *ProjectRepo) Get(ctx context.Context, userID, routeID uint64) (model.Project, error) {
	var p model.Project
	err := r.DB.QueryRowContext(ctx,
		`SELECT id, user_id, route_id, COALESCE(notes,''), created_at, updated_at
		 FROM projects WHERE user_id=? AND route_id=? LIMIT 1`,
		userID, routeID).
		Scan(&p.ID, &p.UserID, &p.RouteID, &p.Notes, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Project{}, ErrNotFound
	}
	return p, err
}

// Exists reports whether the route is a project for the user.
func (r *ProjectRepo) Exists(ctx context.Context, userID, routeID uint64) (bool, error) {
	var n int
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM projects WHERE user_id=? AND route_id=?",
		userID, routeID).Scan(&n)
	return n > 0, err
}

// ListForUser returns the user's projects with route name, grade and wall
// section joined in, newest first.
func (r *ProjectRepo) ListForUser(ctx context.Context, userID uint64) ([]ProjectView, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT p.id, p.route_id, COALESCE(p.notes,''), p.created_at,
		        COALESCE(r.name,''), COALESCE(g.french_name,''), COALESCE(r.wall_section,'')
		 FROM projects p
		 LEFT JOIN routes r ON p.route_id = r.id
		 LEFT JOIN grades g ON r.grade_id = g.id
		 WHERE p.user_id=?
		 ORDER BY p.created_at DESC`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ProjectView
	for rows.Next() {
		var v ProjectView
		if err := rows.Scan(&v.ID, &v.RouteID, &v.Notes, &v.CreatedAt,
			&v.RouteName, &v.RouteGrade, &v.WallSection); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// ProjectView is a project row denormalized for list responses.
type ProjectView struct {
	ID          uint64    `json:"id"`
	RouteID     uint64    `json:"route_id"`
	Notes       string    `json:"notes"`
	CreatedAt   time.Time `json:"created_at"`
	RouteName   string    `json:"route_name"`
	RouteGrade  string    `json:"route_grade"`
	WallSection string    `json:"wall_section"`
}

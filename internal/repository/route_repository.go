package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/cruxgym/crux-api/internal/model"
)

// RouteRepo provides CRUD and aggregate reads for climbing routes. Routes
// reference the grade/lane/hold-color tables; deleting a route cascades to
// every dependent interaction row so no orphaned ticks or likes survive.
type RouteRepo struct{ DB *sql.DB }

func NewRouteRepo(db *sql.DB) *RouteRepo { return &RouteRepo{DB: db} }

// RouteFilter narrows List results. Zero values mean "no filter".
type RouteFilter struct {
	WallSection string
	GradeID     uint64
	LaneID      uint64
}

const routeColumns = `id, COALESCE(name,''), grade_id, COALESCE(route_setter,''),
	COALESCE(wall_section,''), lane_id, hold_color_id, COALESCE(description,''),
	active, created_at`

// List returns active routes newest first, optionally filtered by wall
// section, grade and lane.
func (r *RouteRepo) List(ctx context.Context, f RouteFilter) ([]model.Route, error) {
	q := "SELECT " + routeColumns + " FROM routes WHERE active=1"
	args := []interface{}{}
	if f.WallSection != "" {
		q += " AND wall_section=?"
		args = append(args, f.WallSection)
	}
	if f.GradeID != 0 {
		q += " AND grade_id=?"
		args = append(args, f.GradeID)
	}
	if f.LaneID != 0 {
		q += " AND lane_id=?"
		args = append(args, f.LaneID)
	}
	q += " ORDER BY created_at DESC"

	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Route
	for rows.Next() {
		var rt model.Route
		if err := rows.Scan(&rt.ID, &rt.Name, &rt.GradeID, &rt.RouteSetter,
			&rt.WallSection, &rt.LaneID, &rt.HoldColorID, &rt.Description,
			&rt.Active, &rt.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rt)
	}
	return out, rows.Err()
}

// GetByID loads one route regardless of its active flag.
func (r *RouteRepo) GetByID(ctx context.Context, id uint64) (model.Route, error) {
	var rt model.Route
	err := r.DB.QueryRowContext(ctx,
		"SELECT "+routeColumns+" FROM routes WHERE id=? LIMIT 1", id).
		Scan(&rt.ID, &rt.Name, &rt.GradeID, &rt.RouteSetter,
			&rt.WallSection, &rt.LaneID, &rt.HoldColorID, &rt.Description,
			&rt.Active, &rt.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Route{}, ErrNotFound
	}
	return rt, err
}

// Create inserts a route and returns its id. New routes are active.
func (r *RouteRepo) Create(ctx context.Context, rt model.Route) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO routes (name, grade_id, route_setter, wall_section, lane_id, hold_color_id, description, active)
		 VALUES (?,?,?,?,?,?,?,1)`,
		rt.Name, rt.GradeID, rt.RouteSetter, rt.WallSection, rt.LaneID, rt.HoldColorID, rt.Description)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	return uint64(id), err
}

// Delete removes a route and all dependent interaction rows in one
// transaction. Returns ErrNotFound when the route does not exist.
func (r *RouteRepo) Delete(ctx context.Context, id uint64) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range []string{"ticks", "likes", "projects", "comments", "warnings", "grade_proposals"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE route_id=?", id); err != nil {
			return err
		}
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM routes WHERE id=?", id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}

// Stats aggregates interaction counts for one route. Scalar subqueries keep
// it a single round trip.
func (r *RouteRepo) Stats(ctx context.Context, routeID uint64) (model.RouteStats, error) {
	var s model.RouteStats
	err := r.DB.QueryRowContext(ctx,
		`SELECT
			(SELECT COUNT(*) FROM likes WHERE route_id=?),
			(SELECT COUNT(*) FROM comments WHERE route_id=?),
			(SELECT COUNT(*) FROM ticks WHERE route_id=?),
			(SELECT COUNT(*) FROM warnings WHERE route_id=?),
			(SELECT COUNT(*) FROM grade_proposals WHERE route_id=?),
			(SELECT COUNT(*) FROM projects WHERE route_id=?)`,
		routeID, routeID, routeID, routeID, routeID, routeID).
		Scan(&s.Likes, &s.Comments, &s.Ticks, &s.Warnings, &s.GradeProposals, &s.Projects)
	return s, err
}

// UserFlags reports the viewing user's relationship to a route (liked,
// ticked, project) for list and detail responses.
func (r *RouteRepo) UserFlags(ctx context.Context, userID, routeID uint64) (liked, ticked, project bool, err error) {
	err = r.DB.QueryRowContext(ctx,
		`SELECT
			EXISTS(SELECT 1 FROM likes WHERE user_id=? AND route_id=?),
			EXISTS(SELECT 1 FROM ticks WHERE user_id=? AND route_id=?),
			EXISTS(SELECT 1 FROM projects WHERE user_id=? AND route_id=?)`,
		userID, routeID, userID, routeID, userID, routeID).
		Scan(&liked, &ticked, &project)
	return
}

// Exists reports whether a route row exists.
func (r *RouteRepo) Exists(ctx context.Context, id uint64) (bool, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM routes WHERE id=?", id).Scan(&n)
	return n > 0, err
}

package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/cruxgym/crux-api/internal/model"
)

// ReferenceRepo reads the small reference tables: grades, lanes and hold
// colors, plus the distinct wall sections derived from routes. All of these
// are CRUD-only data maintained by staff and cached aggressively upstream.
type ReferenceRepo struct{ DB *sql.DB }

func NewReferenceRepo(db *sql.DB) *ReferenceRepo { return &ReferenceRepo{DB: db} }

// Grades returns the full grade scale ordered by difficulty.
func (r *ReferenceRepo) Grades(ctx context.Context) ([]model.Grade, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id, french_name, value, COALESCE(color,'') FROM grades ORDER BY value ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Grade
	for rows.Next() {
		var g model.Grade
		if err := rows.Scan(&g.ID, &g.Name, &g.Value, &g.Color); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// GradeByName resolves a human-readable grade ("6a+") to its row. An
// unresolvable name is ErrInvalidGrade: proposals and filters must reference
// a real grade.
func (r *ReferenceRepo) GradeByName(ctx context.Context, name string) (model.Grade, error) {
	var g model.Grade
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, french_name, value, COALESCE(color,'') FROM grades WHERE french_name=? LIMIT 1",
		name).Scan(&g.ID, &g.Name, &g.Value, &g.Color)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Grade{}, ErrInvalidGrade
	}
	return g, err
}

// GradeByID loads one grade row. Missing ids are ErrInvalidGrade, same as
// unresolvable names.
func (r *ReferenceRepo) GradeByID(ctx context.Context, id uint64) (model.Grade, error) {
	var g model.Grade
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, french_name, value, COALESCE(color,'') FROM grades WHERE id=? LIMIT 1",
		id).Scan(&g.ID, &g.Name, &g.Value, &g.Color)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Grade{}, ErrInvalidGrade
	}
	return g, err
}

// GradeColors returns the grade to display color mapping keyed by grade name.
func (r *ReferenceRepo) GradeColors(ctx context.Context) (map[string]string, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT french_name, COALESCE(color,'') FROM grades ORDER BY value ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	colors := make(map[string]string)
	for rows.Next() {
		var name, color string
		if err := rows.Scan(&name, &color); err != nil {
			return nil, err
		}
		colors[name] = color
	}
	return colors, rows.Err()
}

// Lanes returns all lanes ordered by number.
func (r *ReferenceRepo) Lanes(ctx context.Context) ([]model.Lane, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id, number, COALESCE(name,'') FROM lanes ORDER BY number ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Lane
	for rows.Next() {
		var l model.Lane
		if err := rows.Scan(&l.ID, &l.Number, &l.Name); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// HoldColors returns all hold colors.
func (r *ReferenceRepo) HoldColors(ctx context.Context) ([]model.HoldColor, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id, name, COALESCE(hex,'') FROM hold_colors ORDER BY name ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.HoldColor
	for rows.Next() {
		var h model.HoldColor
		if err := rows.Scan(&h.ID, &h.Name, &h.Hex); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// WallSections returns the distinct non-empty wall sections present on
// routes, alphabetically.
func (r *ReferenceRepo) WallSections(ctx context.Context) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT DISTINCT wall_section FROM routes
		 WHERE wall_section IS NOT NULL AND wall_section <> ''
		 ORDER BY wall_section`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

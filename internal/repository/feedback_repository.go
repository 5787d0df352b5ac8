package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/cruxgym/crux-api/internal/model"
)

// FeedbackRepo covers the append-mostly per-route user records: comments,
// safety warnings and grade proposals. Proposals are the only upsert: one
// row per (user, route), updated in place on re-proposal.
type FeedbackRepo struct{ DB *sql.DB }

func NewFeedbackRepo(db *sql.DB) *FeedbackRepo { return &FeedbackRepo{DB: db} }

// AddComment appends a comment and returns its id.
func (r *FeedbackRepo) AddComment(ctx context.Context, userID, routeID uint64, content string) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO comments (user_id, route_id, content) VALUES (?,?,?)",
		userID, routeID, content)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	return uint64(id), err
}

// AddWarning appends a safety warning with status "open" and returns its id.
func (r *FeedbackRepo) AddWarning(ctx context.Context, userID, routeID uint64, warningType, description string) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO warnings (user_id, route_id, warning_type, description, status) VALUES (?,?,?,?, 'open')",
		userID, routeID, warningType, description)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	return uint64(id), err
}

// ProposeGrade upserts the user's grade proposal for a route: a second
// proposal replaces the first rather than accumulating.
func (r *FeedbackRepo) ProposeGrade(ctx context.Context, userID, routeID, gradeID uint64, reasoning string) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO grade_proposals (user_id, route_id, proposed_grade_id, reasoning)
		 VALUES (?,?,?,?)
		 ON DUPLICATE KEY UPDATE
			proposed_grade_id = VALUES(proposed_grade_id),
			reasoning = VALUES(reasoning)`,
		userID, routeID, gradeID, reasoning)
	return err
}

// ListComments returns a route's comments newest first, with the author's
// display name joined in (nickname when set, username otherwise).
func (r *FeedbackRepo) ListComments(ctx context.Context, routeID uint64) ([]CommentView, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT c.id, c.user_id, c.route_id, c.content, c.created_at,
		        COALESCE(NULLIF(n.nickname,''), u.username, '')
		 FROM comments c
		 LEFT JOIN users u ON c.user_id = u.id
		 LEFT JOIN user_nicknames n ON c.user_id = n.user_id
		 WHERE c.route_id=?
		 ORDER BY c.created_at DESC`,
		routeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []CommentView
	for rows.Next() {
		var v CommentView
		if err := rows.Scan(&v.ID, &v.UserID, &v.RouteID, &v.Content, &v.CreatedAt, &v.Author); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// CommentView is a comment row denormalized for list responses.
type CommentView struct {
	ID        uint64    `json:"id"`
	UserID    uint64    `json:"user_id"`
	RouteID   uint64    `json:"route_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	Author    string    `json:"author"`
}

// GetProposal loads the user's proposal for a route.
func (r *FeedbackRepo) GetProposal(ctx context.Context, userID, routeID uint64) (model.GradeProposal, error) {
	var p model.GradeProposal
	err := r.DB.QueryRowContext(ctx,
		`SELECT id, user_id, route_id, proposed_grade_id, COALESCE(reasoning,''), created_at, updated_at
		 FROM grade_proposals WHERE user_id=? AND route_id=? LIMIT 1`,
		userID, routeID).
		Scan(&p.ID, &p.UserID, &p.RouteID, &p.ProposedGradeID, &p.Reasoning, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.GradeProposal{}, ErrNotFound
	}
	return p, err
}

// ProposalsForUser returns all of a user's grade proposals with the route and
// both grade names joined in, newest first.
func (r *FeedbackRepo) ProposalsForUser(ctx context.Context, userID uint64) ([]ProposalView, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT p.id, p.route_id, COALESCE(rt.name,''),
		        COALESCE(cg.french_name,''), COALESCE(pg.french_name,''),
		        COALESCE(p.reasoning,''), p.created_at
		 FROM grade_proposals p
		 LEFT JOIN routes rt ON p.route_id = rt.id
		 LEFT JOIN grades cg ON rt.grade_id = cg.id
		 LEFT JOIN grades pg ON p.proposed_grade_id = pg.id
		 WHERE p.user_id=?
		 ORDER BY p.created_at DESC`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ProposalView
	for rows.Next() {
		var v ProposalView
		if err := rows.Scan(&v.ID, &v.RouteID, &v.RouteName,
			&v.CurrentGrade, &v.ProposedGrade, &v.Reasoning, &v.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// ProposalView is a grade proposal denormalized for list responses.
type ProposalView struct {
	ID            uint64    `json:"id"`
	RouteID       uint64    `json:"route_id"`
	RouteName     string    `json:"route_name"`
	CurrentGrade  string    `json:"current_grade"`
	ProposedGrade string    `json:"proposed_grade"`
	Reasoning     string    `json:"reasoning"`
	CreatedAt     time.Time `json:"created_at"`
}

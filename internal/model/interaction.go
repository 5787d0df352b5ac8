package model

import "time"

// Like marks that a user likes a route. Existence is the whole state; liking
// is idempotent set membership keyed on (user_id, route_id).
type Like struct {
	ID        uint64    `json:"id"`
	UserID    uint64    `json:"user_id"`
	RouteID   uint64    `json:"route_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Project is a route the user is actively working toward sending. A project
// row is deleted when any style of the route is sent; a route cannot be both
// a project and sent.
type Project struct {
	ID        uint64    `json:"id"`
	UserID    uint64    `json:"user_id"`
	RouteID   uint64    `json:"route_id"`
	Notes     string    `json:"notes"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Comment is an append-only per-route user comment.
type Comment struct {
	ID        uint64    `json:"id"`
	UserID    uint64    `json:"user_id"`
	RouteID   uint64    `json:"route_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// GradeProposal is a user's suggested re-grade of a route, unique per
// (user, route) with update-in-place semantics.
type GradeProposal struct {
	ID              uint64    `json:"id"`
	UserID          uint64    `json:"user_id"`
	RouteID         uint64    `json:"route_id"`
	ProposedGradeID uint64    `json:"proposed_grade_id"`
	Reasoning       string    `json:"reasoning"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Warning reports a safety issue on a route (spinning hold, worn rope, ...).
// Status defaults to "open" and is managed by staff out of band.
type Warning struct {
	ID          uint64    `json:"id"`
	UserID      uint64    `json:"user_id"`
	RouteID     uint64    `json:"route_id"`
	WarningType string    `json:"warning_type"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

package model

import "time"

// Route is a climbing route on the gym wall. Grade, lane and hold color are
// foreign references into small reference tables; WallSection is free text.
// Name may be empty (unnamed routes are legal). Routes are soft-retired by
// clearing Active.
type Route struct {
	ID          uint64    `json:"id"`
	Name        string    `json:"name"`
	GradeID     uint64    `json:"grade_id"`
	RouteSetter string    `json:"route_setter"`
	WallSection string    `json:"wall_section"`
	LaneID      *uint64   `json:"lane_id"`
	HoldColorID *uint64   `json:"hold_color_id"`
	Description string    `json:"description"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
}

// Grade is one entry of the French grade scale reference table. Value orders
// grades by difficulty (6a+ sorts between 6a and 6b).
type Grade struct {
	ID    uint64  `json:"id"`
	Name  string  `json:"name"`
	Value float64 `json:"value"`
	Color string  `json:"color"`
}

// Lane is a numbered rope lane on the wall.
type Lane struct {
	ID     uint64 `json:"id"`
	Number uint32 `json:"number"`
	Name   string `json:"name"`
}

// HoldColor is a named hold color used when setting routes.
type HoldColor struct {
	ID   uint64 `json:"id"`
	Name string `json:"name"`
	Hex  string `json:"hex"`
}

// RouteStats aggregates per-route interaction counts for list/detail views.
type RouteStats struct {
	Likes          uint64 `json:"likes_count"`
	Comments       uint64 `json:"comments_count"`
	Ticks          uint64 `json:"ticks_count"`
	Warnings       uint64 `json:"warnings_count"`
	GradeProposals uint64 `json:"grade_proposals_count"`
	Projects       uint64 `json:"projects_count"`
}

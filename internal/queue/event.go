// Package queue defines message payloads exchanged over the message broker.
package queue

// RouteSentQueue and RouteWarningQueue are the durable queue names for route
// activity events.
const (
	RouteSentQueue    = "route.sent"
	RouteWarningQueue = "route.warning"
)

// RouteSentEvent is published when a climber records a send. It carries enough
// context for downstream consumers to log or notify without querying the
// primary database.
type RouteSentEvent struct {
	UserID      uint64 `json:"user_id"`
	Username    string `json:"username"`
	RouteID     uint64 `json:"route_id"`
	RouteName   string `json:"route_name"`
	Grade       string `json:"grade"`
	WallSection string `json:"wall_section"`
	SendType    string `json:"send_type"`
	Flash       bool   `json:"flash"`
	SentAt      string `json:"sent_at"`
}

// RouteWarningEvent is published when a climber reports a problem with a
// route (spinning hold, broken foothold). Staff tooling consumes these.
type RouteWarningEvent struct {
	WarningID   uint64 `json:"warning_id"`
	UserID      uint64 `json:"user_id"`
	RouteID     uint64 `json:"route_id"`
	RouteName   string `json:"route_name"`
	WallSection string `json:"wall_section"`
	Description string `json:"description"`
	ReportedAt  string `json:"reported_at"`
}

package model

import "time"

// User represents an application user record as stored in the `users` table.
// The password hash is opaque to everything except the repository layer,
// which verifies it with bcrypt. Handlers expose a separate public view with
// JSON tags; this struct is internal.
type User struct {
	ID           uint64    // users.id
	Username     string    // users.username
	Email        string    // users.email
	PasswordHash string    // users.password_hash
	IsActive     bool      // users.is_active
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}

// Role represents a row in the `roles` table. Roles are process-wide
// reference data: a slug for gating, an id that doubles as precedence input,
// and a capability list stored as comma-separated text in the database but
// exposed to the rest of the code as a set (see repository.ParseCapabilities).
type Role struct {
	ID           uint64 // roles.id
	Name         string // roles.name
	Slug         string // roles.slug (unique)
	Description  string // roles.description
	Capabilities string // roles.capabilities (comma-separated, storage form)
	IsActive     bool   // roles.is_active
}

// UserRole joins users to roles. Assignments are soft-deleted by flipping
// IsActive; rows are never removed so the audit trail (who assigned what,
// when) survives.
type UserRole struct {
	ID         uint64    // user_roles.id
	UserID     uint64    // user_roles.user_id
	RoleID     uint64    // user_roles.role_id
	AssignedBy uint64    // user_roles.assigned_by
	AssignedAt time.Time // user_roles.assigned_at
	IsActive   bool      // user_roles.is_active
}

// Nickname is a per-user display name independent of the identity store's
// login name. Unique per user; upserted in place.
type Nickname struct {
	ID        uint64    // user_nicknames.id
	UserID    uint64    // user_nicknames.user_id (unique)
	Nickname  string    // user_nicknames.nickname
	CreatedAt time.Time // user_nicknames.created_at
	UpdatedAt time.Time // user_nicknames.updated_at
}

// UserSession is a server-side session-token registry entry, consulted when
// authenticating via the legacy session cookie. Only a SHA-256 hash of the
// session token is stored.
type UserSession struct {
	ID        uint64     // user_sessions.id
	UserID    uint64     // user_sessions.user_id
	TokenHash string     // user_sessions.token_hash
	ExpiresAt time.Time  // user_sessions.expires_at
	RevokedAt *time.Time // user_sessions.revoked_at (nullable)
	CreatedAt time.Time  // user_sessions.created_at
}

package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/cruxgym/crux-api/internal/model"
)

// Role slugs with fixed gating semantics. Anything else sorts after member.
const (
	RoleAdmin       = "admin"
	RoleRouteSetter = "route_setter"
	RoleMember      = "member"
)

// RoleRepo resolves roles and capability sets for users. Role assignments
// are soft-deleted (is_active flag); only active assignments to active roles
// count.
type RoleRepo struct{ DB *sql.DB }

func NewRoleRepo(db *sql.DB) *RoleRepo { return &RoleRepo{DB: db} }

// rolePrecedence orders slugs for primary-role selection: admin wins over
// route_setter wins over member; unknown slugs sort last.
func rolePrecedence(slug string) int {
	switch slug {
	case RoleAdmin:
		return 1
	case RoleRouteSetter:
		return 2
	case RoleMember:
		return 3
	}
	return 4
}

// primarySlug picks the highest-precedence slug, defaulting to member when
// the list is empty.
func primarySlug(slugs []string) string {
	best := ""
	bestRank := int(^uint(0) >> 1)
	for _, s := range slugs {
		if r := rolePrecedence(s); r < bestRank {
			best, bestRank = s, r
		}
	}
	if best == "" {
		return RoleMember
	}
	return best
}

// ParseCapabilities expands the comma-separated storage form of a capability
// list into a set. Core logic only ever sees the set; the text form exists
// at the storage edge only.
func ParseCapabilities(stored string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, c := range strings.Split(stored, ",") {
		c = strings.TrimSpace(c)
		if c != "" {
			set[c] = struct{}{}
		}
	}
	return set
}

// activeSlugs returns the slugs of all active roles actively assigned to the
// user.
func (r *RoleRepo) activeSlugs(ctx context.Context, userID uint64) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT r.slug FROM user_roles ur
		 JOIN roles r ON ur.role_id = r.id
		 WHERE ur.user_id=? AND ur.is_active=1 AND r.is_active=1`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var slugs []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		slugs = append(slugs, s)
	}
	return slugs, rows.Err()
}

// PrimaryRole returns the user's highest-precedence active role slug. A user
// with no active assignment is healed lazily: a member assignment is inserted
// and "member" returned, mirroring the ensure-user-has-role behavior on
// login.
func (r *RoleRepo) PrimaryRole(ctx context.Context, userID uint64) (string, error) {
	slugs, err := r.activeSlugs(ctx, userID)
	if err != nil {
		return "", err
	}
	if len(slugs) == 0 {
		if err := r.EnsureDefaultRole(ctx, userID); err != nil {
			return "", err
		}
		return RoleMember, nil
	}
	return primarySlug(slugs), nil
}

// Capabilities unions the capability sets of all active roles assigned to
// the user, not just the primary one.
func (r *RoleRepo) Capabilities(ctx context.Context, userID uint64) (map[string]struct{}, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT COALESCE(r.capabilities, '') FROM user_roles ur
		 JOIN roles r ON ur.role_id = r.id
		 WHERE ur.user_id=? AND ur.is_active=1 AND r.is_active=1`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	caps := make(map[string]struct{})
	for rows.Next() {
		var stored string
		if err := rows.Scan(&stored); err != nil {
			return nil, err
		}
		for c := range ParseCapabilities(stored) {
			caps[c] = struct{}{}
		}
	}
	return caps, rows.Err()
}

// HasCapability reports whether any of the user's active roles grants the
// capability.
func (r *RoleRepo) HasCapability(ctx context.Context, userID uint64, capability string) (bool, error) {
	caps, err := r.Capabilities(ctx, userID)
	if err != nil {
		return false, err
	}
	_, ok := caps[capability]
	return ok, nil
}

// CanManageRoutes is true for admins and route setters.
func (r *RoleRepo) CanManageRoutes(ctx context.Context, userID uint64) (bool, error) {
	slug, err := r.PrimaryRole(ctx, userID)
	if err != nil {
		return false, err
	}
	return slug == RoleAdmin || slug == RoleRouteSetter, nil
}

// CanAdminister is true only for the top precedence tier.
func (r *RoleRepo) CanAdminister(ctx context.Context, userID uint64) (bool, error) {
	slug, err := r.PrimaryRole(ctx, userID)
	if err != nil {
		return false, err
	}
	return slug == RoleAdmin, nil
}

// EnsureDefaultRole assigns the member role to a user that has no active
// assignment. The upsert re-activates a soft-deleted member row rather than
// violating the (user_id, role_id) unique key. assigned_by records the user
// itself for self-service assignments.
func (r *RoleRepo) EnsureDefaultRole(ctx context.Context, userID uint64) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO user_roles (user_id, role_id, assigned_by, is_active)
		 SELECT ?, r.id, ?, 1 FROM roles r WHERE r.slug=?
		 ON DUPLICATE KEY UPDATE is_active=1`,
		userID, userID, RoleMember)
	return err
}

// AssignRole activates a role assignment recording the assigning actor.
func (r *RoleRepo) AssignRole(ctx context.Context, userID, roleID, assignedBy uint64) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO user_roles (user_id, role_id, assigned_by, is_active)
		 VALUES (?,?,?,1)
		 ON DUPLICATE KEY UPDATE is_active=1, assigned_by=VALUES(assigned_by)`,
		userID, roleID, assignedBy)
	return err
}

// RevokeRole soft-deletes a role assignment.
func (r *RoleRepo) RevokeRole(ctx context.Context, userID, roleID uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE user_roles SET is_active=0 WHERE user_id=? AND role_id=?",
		userID, roleID)
	return err
}

// GetBySlug loads a role row by its unique slug.
func (r *RoleRepo) GetBySlug(ctx context.Context, slug string) (model.Role, error) {
	var role model.Role
	err := r.DB.QueryRowContext(ctx,
		`SELECT id, name, slug, COALESCE(description,''), COALESCE(capabilities,''), is_active
		 FROM roles WHERE slug=? LIMIT 1`, slug).
		Scan(&role.ID, &role.Name, &role.Slug, &role.Description, &role.Capabilities, &role.IsActive)
	if err == sql.ErrNoRows {
		return model.Role{}, ErrNotFound
	}
	return role, err
}

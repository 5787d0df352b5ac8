package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/cruxgym/crux-api/internal/model"
)

// TickRepo persists per-(user, route) interaction records. Every mutation is
// a single INSERT ... ON DUPLICATE KEY UPDATE keyed on the unique
// (user_id, route_id) index, so concurrent writers for the same pair never
// lose updates: the increment and the flash-clearing check happen inside one
// atomic statement rather than a read-then-write.
//
// MySQL evaluates ON DUPLICATE KEY UPDATE assignments left to right, so an
// assignment that reads a column updated earlier in the same clause sees the
// new value. The flash checks below depend on this: the attempt counter is
// bumped first, then the flash flag is re-derived from the updated total.
type TickRepo struct{ DB *sql.DB }

func NewTickRepo(db *sql.DB) *TickRepo { return &TickRepo{DB: db} }

const tickColumns = `id, user_id, route_id, top_rope_attempts, lead_attempts,
	top_rope_send, top_rope_flash, lead_send, lead_flash,
	COALESCE(notes,''), created_at, updated_at`

// Get loads the tick row for a (user, route) pair.
func (r *TickRepo) Get(ctx context.Context, userID, routeID uint64) (model.Tick, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+tickColumns+" FROM ticks WHERE user_id=? AND route_id=? LIMIT 1",
		userID, routeID)
	return scanTick(row)
}

// ListForUser returns all of a user's ticks, newest first.
func (r *TickRepo) ListForUser(ctx context.Context, userID uint64) ([]model.Tick, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+tickColumns+" FROM ticks WHERE user_id=? ORDER BY updated_at DESC",
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Tick
	for rows.Next() {
		t, err := scanTickRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// AddAttempts atomically increments the attempt counter for one style and
// clears that style's flash flag when the new total exceeds one. Notes
// follow the last-non-empty-wins policy. The row is created when absent.
// The post-state row is re-read and returned.
func (r *TickRepo) AddAttempts(ctx context.Context, userID, routeID uint64, style model.Style, count uint32, notes string) (model.Tick, error) {
	col := "top_rope"
	if style == model.StyleLead {
		col = "lead"
	}
	topRope, lead := uint32(0), uint32(0)
	if style == model.StyleLead {
		lead = count
	} else {
		topRope = count
	}
	q := fmt.Sprintf(`INSERT INTO ticks
		(user_id, route_id, top_rope_attempts, lead_attempts, notes)
		VALUES (?,?,?,?,?)
		ON DUPLICATE KEY UPDATE
			%[1]s_attempts = %[1]s_attempts + VALUES(%[1]s_attempts),
			%[1]s_flash = IF(%[1]s_attempts > 1, 0, %[1]s_flash),
			notes = IF(VALUES(notes) <> '', VALUES(notes), notes)`, col)
	if _, err := r.DB.ExecContext(ctx, q, userID, routeID, topRope, lead, notes); err != nil {
		return model.Tick{}, err
	}
	return r.Get(ctx, userID, routeID)
}

// MarkSend records a send and, in the same transaction, removes any project
// row for the pair: a sent route cannot remain a project. Plain styles keep
// existing attempt counts (raised to at least 1); flash variants force the
// style's attempts to 1 and zero the other style's, recording the
// first-attempt send atomically with the send itself.
func (r *TickRepo) MarkSend(ctx context.Context, userID, routeID uint64, st model.SendType, notes string) (model.Tick, error) {
	var q string
	switch st {
	case model.SendTopRope:
		q = `INSERT INTO ticks (user_id, route_id, top_rope_attempts, lead_attempts, top_rope_send, notes)
			VALUES (?,?,1,0,1,?)
			ON DUPLICATE KEY UPDATE
				top_rope_send = 1,
				top_rope_attempts = GREATEST(top_rope_attempts, 1),
				notes = IF(VALUES(notes) <> '', VALUES(notes), notes)`
	case model.SendLead:
		q = `INSERT INTO ticks (user_id, route_id, top_rope_attempts, lead_attempts, lead_send, notes)
			VALUES (?,?,0,1,1,?)
			ON DUPLICATE KEY UPDATE
				lead_send = 1,
				lead_attempts = GREATEST(lead_attempts, 1),
				notes = IF(VALUES(notes) <> '', VALUES(notes), notes)`
	case model.SendFlash:
		q = `INSERT INTO ticks (user_id, route_id, top_rope_attempts, lead_attempts, top_rope_send, top_rope_flash, notes)
			VALUES (?,?,1,0,1,1,?)
			ON DUPLICATE KEY UPDATE
				top_rope_send = 1,
				top_rope_flash = 1,
				top_rope_attempts = 1,
				lead_attempts = 0,
				notes = IF(VALUES(notes) <> '', VALUES(notes), notes)`
	case model.SendLeadFlash:
		q = `INSERT INTO ticks (user_id, route_id, top_rope_attempts, lead_attempts, lead_send, lead_flash, notes)
			VALUES (?,?,0,1,1,1,?)
			ON DUPLICATE KEY UPDATE
				lead_send = 1,
				lead_flash = 1,
				lead_attempts = 1,
				top_rope_attempts = 0,
				notes = IF(VALUES(notes) <> '', VALUES(notes), notes)`
	default:
		return model.Tick{}, fmt.Errorf("unknown send type %q", st)
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return model.Tick{}, err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, q, userID, routeID, notes); err != nil {
		return model.Tick{}, err
	}
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM projects WHERE user_id=? AND route_id=?",
		userID, routeID); err != nil {
		return model.Tick{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.Tick{}, err
	}
	return r.Get(ctx, userID, routeID)
}

// UnmarkSend clears only the send flag for a style. Attempt counts and flash
// flags survive; clients display attempt history after an unsend. Returns
// ErrNotFound when no tick row exists for the pair.
func (r *TickRepo) UnmarkSend(ctx context.Context, userID, routeID uint64, style model.Style) (model.Tick, error) {
	col := "top_rope_send"
	if style == model.StyleLead {
		col = "lead_send"
	}
	_, err := r.DB.ExecContext(ctx,
		fmt.Sprintf("UPDATE ticks SET %s=0 WHERE user_id=? AND route_id=?", col),
		userID, routeID)
	if err != nil {
		return model.Tick{}, err
	}
	// Re-read distinguishes a missing row (404) from a flag that was
	// already clear (idempotent success).
	return r.Get(ctx, userID, routeID)
}

// UpdateNotes upserts notes only, leaving all counters and flags untouched.
// A zeroed row is created when none exists (notes-only creation path).
// Unlike the attempt/send paths this is an explicit notes write, so an empty
// value does overwrite.
func (r *TickRepo) UpdateNotes(ctx context.Context, userID, routeID uint64, notes string) (model.Tick, error) {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO ticks (user_id, route_id, notes) VALUES (?,?,?)
		 ON DUPLICATE KEY UPDATE notes = VALUES(notes)`,
		userID, routeID, notes)
	if err != nil {
		return model.Tick{}, err
	}
	return r.Get(ctx, userID, routeID)
}

// Delete removes the tick row for a pair. Missing rows are not an error.
func (r *TickRepo) Delete(ctx context.Context, userID, routeID uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"DELETE FROM ticks WHERE user_id=? AND route_id=?", userID, routeID)
	return err
}

func scanTick(row *sql.Row) (model.Tick, error) {
	var t model.Tick
	err := row.Scan(&t.ID, &t.UserID, &t.RouteID,
		&t.TopRopeAttempts, &t.LeadAttempts,
		&t.TopRopeSend, &t.TopRopeFlash, &t.LeadSend, &t.LeadFlash,
		&t.Notes, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Tick{}, ErrNotFound
	}
	return t, err
}

func scanTickRows(rows *sql.Rows) (model.Tick, error) {
	var t model.Tick
	err := rows.Scan(&t.ID, &t.UserID, &t.RouteID,
		&t.TopRopeAttempts, &t.LeadAttempts,
		&t.TopRopeSend, &t.TopRopeFlash, &t.LeadSend, &t.LeadFlash,
		&t.Notes, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

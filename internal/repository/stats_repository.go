package repository

import (
	"context"
	"database/sql"
	"errors"
	"math"
)

// UserStats is the aggregate climbing profile returned by GET /user/stats.
type UserStats struct {
	TotalTicks      uint64  `json:"total_ticks"`
	TotalLikes      uint64  `json:"total_likes"`
	TotalComments   uint64  `json:"total_comments"`
	TotalProjects   uint64  `json:"total_projects"`
	TotalSends      uint64  `json:"total_sends"`
	TopRopeSends    uint64  `json:"top_rope_sends"`
	LeadSends       uint64  `json:"lead_sends"`
	TotalFlashes    uint64  `json:"total_flashes"`
	TotalAttempts   uint64  `json:"total_attempts"`
	AverageAttempts float64 `json:"average_attempts"`
	FavoriteGrade   *string `json:"favorite_grade"`
	AverageGrade    *string `json:"average_grade"`
}

// StatsRepo computes read-only aggregates over the interaction tables.
type StatsRepo struct{ DB *sql.DB }

func NewStatsRepo(db *sql.DB) *StatsRepo { return &StatsRepo{DB: db} }

// ForUser builds the user's stats: plain counts, per-style send totals,
// the most-climbed grade and the grade closest to the user's average
// difficulty.
func (r *StatsRepo) ForUser(ctx context.Context, userID uint64) (UserStats, error) {
	var s UserStats
	err := r.DB.QueryRowContext(ctx,
		`SELECT
			(SELECT COUNT(*) FROM ticks WHERE user_id=?),
			(SELECT COUNT(*) FROM likes WHERE user_id=?),
			(SELECT COUNT(*) FROM comments WHERE user_id=?),
			(SELECT COUNT(*) FROM projects WHERE user_id=?)`,
		userID, userID, userID, userID).
		Scan(&s.TotalTicks, &s.TotalLikes, &s.TotalComments, &s.TotalProjects)
	if err != nil {
		return UserStats{}, err
	}

	err = r.DB.QueryRowContext(ctx,
		`SELECT
			COALESCE(SUM(top_rope_send = 1 OR lead_send = 1), 0),
			COALESCE(SUM(top_rope_send), 0),
			COALESCE(SUM(lead_send), 0),
			COALESCE(SUM(top_rope_flash = 1 OR lead_flash = 1), 0),
			COALESCE(SUM(top_rope_attempts + lead_attempts), 0)
		 FROM ticks WHERE user_id=?`, userID).
		Scan(&s.TotalSends, &s.TopRopeSends, &s.LeadSends, &s.TotalFlashes, &s.TotalAttempts)
	if err != nil {
		return UserStats{}, err
	}
	if s.TotalTicks > 0 {
		s.AverageAttempts = math.Round(float64(s.TotalAttempts)/float64(s.TotalTicks)*100) / 100
	}

	// Most-climbed grade.
	var favorite string
	err = r.DB.QueryRowContext(ctx,
		`SELECT g.french_name
		 FROM ticks t
		 JOIN routes r ON t.route_id = r.id
		 JOIN grades g ON r.grade_id = g.id
		 WHERE t.user_id=?
		 GROUP BY r.grade_id, g.french_name
		 ORDER BY COUNT(*) DESC
		 LIMIT 1`, userID).Scan(&favorite)
	switch {
	case err == nil:
		s.FavoriteGrade = &favorite
	case !errors.Is(err, sql.ErrNoRows):
		return UserStats{}, err
	}

	// Grade closest to the average climbed difficulty.
	var avgValue sql.NullFloat64
	err = r.DB.QueryRowContext(ctx,
		`SELECT AVG(g.value)
		 FROM ticks t
		 JOIN routes r ON t.route_id = r.id
		 JOIN grades g ON r.grade_id = g.id
		 WHERE t.user_id=?`, userID).Scan(&avgValue)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return UserStats{}, err
	}
	if avgValue.Valid {
		var closest string
		err = r.DB.QueryRowContext(ctx,
			"SELECT french_name FROM grades ORDER BY ABS(value - ?) LIMIT 1",
			avgValue.Float64).Scan(&closest)
		if err == nil {
			s.AverageGrade = &closest
		} else if !errors.Is(err, sql.ErrNoRows) {
			return UserStats{}, err
		}
	}
	return s, nil
}

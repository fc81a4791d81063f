package repository

import (
	"context"
	"fmt"
)

func (s *PG) CourseStats(ctx context.Context) (*CourseStats, error) {
	stats := &CourseStats{DayCompletions: make(map[int]int64)}

	err := s.db.QueryRow(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE has_access),
		       COUNT(*) FILTER (WHERE course_completed_at IS NOT NULL)
		FROM users`).Scan(&stats.TotalUsers, &stats.PaidUsers, &stats.FinishedUsers)
	if err != nil {
		return nil, fmt.Errorf("user stats: %w", err)
	}

	err = s.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0) FROM payments WHERE status = 'succeeded'`).
		Scan(&stats.Revenue)
	if err != nil {
		return nil, fmt.Errorf("revenue: %w", err)
	}

	rows, err := s.db.Query(ctx, `
		SELECT day_number, COUNT(*) FROM progress
		WHERE tasks_completed GROUP BY day_number ORDER BY day_number`)
	if err != nil {
		return nil, fmt.Errorf("day completions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var day int
		var count int64
		if err := rows.Scan(&day, &count); err != nil {
			return nil, err
		}
		stats.DayCompletions[day] = count
	}
	return stats, rows.Err()
}

package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/neovoice/escapebot/internal/domain"
)

const progressColumns = `id, user_id, day_number, video_watched, brief_read,
	tasks_completed, total_tasks, completed_tasks, correct_answers,
	started_at, completed_at`

func scanProgress(row pgx.Row) (*domain.Progress, error) {
	var p domain.Progress
	err := row.Scan(
		&p.ID, &p.UserID, &p.DayNumber, &p.VideoWatched, &p.BriefRead,
		&p.TasksCompleted, &p.TotalTasks, &p.CompletedTasks, &p.CorrectAnswers,
		&p.StartedAt, &p.CompletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrProgressNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *PG) CreateProgress(ctx context.Context, arg CreateProgressParams) (*domain.Progress, error) {
	// Re-entering a day another handler just created must not fail.
	row := s.db.QueryRow(ctx, `
		INSERT INTO progress (user_id, day_number, total_tasks, started_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, day_number) DO UPDATE SET total_tasks = EXCLUDED.total_tasks
		RETURNING `+progressColumns,
		arg.UserID, arg.DayNumber, arg.TotalTasks, arg.StartedAt,
	)
	p, err := scanProgress(row)
	if err != nil {
		return nil, fmt.Errorf("create progress: %w", err)
	}
	return p, nil
}

func (s *PG) ProgressByDay(ctx context.Context, userID int64, day int) (*domain.Progress, error) {
	return scanProgress(s.db.QueryRow(ctx, `
		SELECT `+progressColumns+` FROM progress
		WHERE user_id = $1 AND day_number = $2`, userID, day))
}

func (s *PG) ListProgress(ctx context.Context, userID int64) ([]domain.Progress, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+progressColumns+` FROM progress
		WHERE user_id = $1 ORDER BY day_number`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []domain.Progress
	for rows.Next() {
		p, err := scanProgress(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *p)
	}
	return list, rows.Err()
}

func (s *PG) CompleteProgress(ctx context.Context, userID int64, day int, at time.Time) error {
	_, err := s.db.Exec(ctx, `
		UPDATE progress
		SET tasks_completed = TRUE, completed_at = COALESCE(completed_at, $3)
		WHERE user_id = $1 AND day_number = $2`, userID, day, at)
	return err
}

func (s *PG) MarkMaterialViewed(ctx context.Context, userID int64, day int, material Material) error {
	var column string
	switch material {
	case MaterialVideo:
		column = "video_watched"
	case MaterialBrief:
		column = "brief_read"
	default:
		return fmt.Errorf("unknown material %q", material)
	}
	_, err := s.db.Exec(ctx,
		`UPDATE progress SET `+column+` = TRUE WHERE user_id = $1 AND day_number = $2`,
		userID, day)
	return err
}

func (s *PG) BumpProgressCounters(ctx context.Context, userID int64, day int) error {
	_, err := s.db.Exec(ctx, `
		UPDATE progress
		SET completed_tasks = completed_tasks + 1, correct_answers = correct_answers + 1
		WHERE user_id = $1 AND day_number = $2`, userID, day)
	return err
}

func (s *PG) ResetProgress(ctx context.Context, userID int64, day int) error {
	_, err := s.db.Exec(ctx, `
		UPDATE progress
		SET tasks_completed = FALSE, completed_tasks = 0, correct_answers = 0,
		    completed_at = NULL
		WHERE user_id = $1 AND day_number = $2`, userID, day)
	return err
}

package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/neovoice/escapebot/internal/domain"
)

const userColumns = `id, telegram_id, username, first_name, last_name, email,
	has_access, is_admin, current_day, completed_days, liberation_code,
	timezone, last_activity, last_unlock_notification,
	course_started_at, course_completed_at, created_at, updated_at`

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	var username, firstName, lastName, email *string
	err := row.Scan(
		&u.ID, &u.TelegramID, &username, &firstName, &lastName, &email,
		&u.HasAccess, &u.IsAdmin, &u.CurrentDay, &u.CompletedDays, &u.Code,
		&u.Timezone, &u.LastActivity, &u.LastUnlockNotification,
		&u.CourseStartedAt, &u.CourseCompletedAt, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	if username != nil {
		u.Username = *username
	}
	if firstName != nil {
		u.FirstName = *firstName
	}
	if lastName != nil {
		u.LastName = *lastName
	}
	if email != nil {
		u.Email = *email
	}
	return &u, nil
}

func (s *PG) CreateUser(ctx context.Context, arg CreateUserParams) (*domain.User, error) {
	row := s.db.QueryRow(ctx, `
		INSERT INTO users (telegram_id, username, first_name, last_name, timezone, is_admin, liberation_code)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+userColumns,
		arg.TelegramID, arg.Username, arg.FirstName, arg.LastName, arg.Timezone, arg.IsAdmin, arg.Code,
	)
	u, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

func (s *PG) UserByTelegramID(ctx context.Context, telegramID int64) (*domain.User, error) {
	return scanUser(s.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE telegram_id = $1`, telegramID))
}

func (s *PG) UserByID(ctx context.Context, id int64) (*domain.User, error) {
	return scanUser(s.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (s *PG) UserByIDForUpdate(ctx context.Context, id int64) (*domain.User, error) {
	return scanUser(s.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`, id))
}

func (s *PG) UpdateUserInfo(ctx context.Context, id int64, firstName, lastName, username string) error {
	_, err := s.db.Exec(ctx, `
		UPDATE users SET first_name = $2, last_name = $3, username = $4, updated_at = NOW()
		WHERE id = $1`, id, firstName, lastName, username)
	return err
}

func (s *PG) UpdateUserEmail(ctx context.Context, id int64, email string) error {
	_, err := s.db.Exec(ctx,
		`UPDATE users SET email = $2, updated_at = NOW() WHERE id = $1`, id, email)
	return err
}

func (s *PG) TouchUserActivity(ctx context.Context, id int64, at time.Time) error {
	_, err := s.db.Exec(ctx,
		`UPDATE users SET last_activity = $2, updated_at = NOW() WHERE id = $1`, id, at)
	return err
}

// SetUserCurrentDay only ever raises the unlocked day; current_day never
// decreases.
func (s *PG) SetUserCurrentDay(ctx context.Context, id int64, day int) error {
	_, err := s.db.Exec(ctx, `
		UPDATE users SET current_day = GREATEST(current_day, $2), updated_at = NOW()
		WHERE id = $1`, id, day)
	return err
}

func (s *PG) GrantUserAccess(ctx context.Context, id int64, startedAt time.Time) error {
	_, err := s.db.Exec(ctx, `
		UPDATE users
		SET has_access = TRUE, current_day = GREATEST(current_day, 1),
		    course_started_at = COALESCE(course_started_at, $2), updated_at = NOW()
		WHERE id = $1`, id, startedAt)
	return err
}

func (s *PG) SetUserCode(ctx context.Context, id int64, code string, completedDays int) error {
	_, err := s.db.Exec(ctx, `
		UPDATE users SET liberation_code = $2, completed_days = $3, updated_at = NOW()
		WHERE id = $1`, id, code, completedDays)
	return err
}

func (s *PG) SetCourseCompleted(ctx context.Context, id int64, at time.Time) error {
	_, err := s.db.Exec(ctx, `
		UPDATE users SET course_completed_at = COALESCE(course_completed_at, $2), updated_at = NOW()
		WHERE id = $1`, id, at)
	return err
}

func (s *PG) SetLastUnlockNotification(ctx context.Context, id int64, at time.Time) error {
	_, err := s.db.Exec(ctx,
		`UPDATE users SET last_unlock_notification = $2, updated_at = NOW() WHERE id = $1`, id, at)
	return err
}

func (s *PG) listUsers(ctx context.Context, query string, args ...any) ([]domain.User, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

func (s *PG) ListUnlockCandidates(ctx context.Context, courseDays int) ([]domain.User, error) {
	return s.listUsers(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE has_access = TRUE
		  AND course_completed_at IS NULL
		  AND current_day > 0 AND current_day < $1
		ORDER BY id`, courseDays)
}

func (s *PG) ListInactiveUsers(ctx context.Context, cutoff time.Time, courseDays int) ([]domain.User, error) {
	return s.listUsers(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE has_access = TRUE
		  AND course_completed_at IS NULL
		  AND current_day > 0 AND current_day <= $2
		  AND last_activity < $1
		ORDER BY id`, cutoff, courseDays)
}

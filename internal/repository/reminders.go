package repository

import (
	"context"
	"fmt"

	"github.com/neovoice/escapebot/internal/domain"
)

func (s *PG) CountReminders(ctx context.Context, userID int64) (int, error) {
	var count int
	err := s.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM reminders WHERE user_id = $1`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count reminders: %w", err)
	}
	return count, nil
}

func (s *PG) CreateReminder(ctx context.Context, arg CreateReminderParams) (*domain.Reminder, error) {
	var r domain.Reminder
	err := s.db.QueryRow(ctx, `
		INSERT INTO reminders (user_id, day_number, reminder_type, message_text, sent_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, user_id, day_number, reminder_type, message_text, sent_at`,
		arg.UserID, arg.DayNumber, arg.ReminderType, arg.MessageText, arg.SentAt,
	).Scan(&r.ID, &r.UserID, &r.DayNumber, &r.ReminderType, &r.MessageText, &r.SentAt)
	if err != nil {
		return nil, fmt.Errorf("create reminder: %w", err)
	}
	return &r, nil
}

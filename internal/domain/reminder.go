package domain

import "time"

// Reminder is an append-only log entry for one inactivity message. The
// escalation ladder is driven purely by counting a user's rows.
type Reminder struct {
	ID        int64
	UserID    int64
	DayNumber int

	ReminderType string
	MessageText  string
	SentAt       time.Time
}

package domain

import "time"

// Progress is one user's state for one course day. A row is created lazily
// when the day is entered and becomes immutable once TasksCompleted is set,
// except by an explicit day reset.
type Progress struct {
	ID        int64
	UserID    int64
	DayNumber int

	VideoWatched   bool
	BriefRead      bool
	TasksCompleted bool

	TotalTasks     int
	CompletedTasks int
	CorrectAnswers int

	StartedAt   time.Time
	CompletedAt *time.Time
}

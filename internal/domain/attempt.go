package domain

import "time"

type TaskKind string

const (
	TaskKindChoice TaskKind = "choice"
	TaskKindVoice  TaskKind = "voice"
	TaskKindDialog TaskKind = "dialog"
)

// TaskAttempt is the single row kept per (user, day, task). Attempts grows
// monotonically; IsCorrect may flip false→true but never back.
type TaskAttempt struct {
	ID         int64
	UserID     int64
	DayNumber  int
	TaskNumber int

	TaskType  TaskKind
	IsCorrect bool
	Attempts  int

	UserAnswer    string
	CorrectAnswer string

	// Voice submissions only.
	VoiceFileID    string
	VoiceDuration  float64
	RecognizedText string

	CreatedAt   time.Time
	CompletedAt *time.Time
}

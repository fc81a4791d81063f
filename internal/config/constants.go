package config

import "time"

const (
	// Task retry budget per (user, day, task)
	MaxTaskAttempts = 3

	// Voice submission bounds (seconds)
	VoiceMinDuration = 1
	VoiceMaxDuration = 30

	// Placeholder for unfilled completion-code positions
	CodePlaceholder = '_'

	// True status is always pulled from the provider; a webhook body is a
	// hint to re-check, never trusted on its own.
	ProviderQueryTimeout = 30 * time.Second

	// Speech transcription timeout
	TranscribeTimeout = 60 * time.Second

	// Scheduler cadence
	UnlockJobInterval   = 1 * time.Hour
	ReminderJobInterval = 1 * time.Hour
	DailyCleanupAt      = "03:00"
	JobTimeout          = 10 * time.Minute

	// Telegram limits
	MaxTelegramMessageLen = 4096
)

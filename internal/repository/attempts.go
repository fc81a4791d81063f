package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/neovoice/escapebot/internal/domain"
)

const attemptColumns = `id, user_id, day_number, task_number, task_type,
	is_correct, attempts, user_answer, correct_answer,
	voice_file_id, voice_duration, recognized_text, created_at, completed_at`

func scanAttempt(row pgx.Row) (*domain.TaskAttempt, error) {
	var a domain.TaskAttempt
	var userAnswer, correctAnswer, voiceFileID, recognizedText *string
	var voiceDuration *float64
	err := row.Scan(
		&a.ID, &a.UserID, &a.DayNumber, &a.TaskNumber, &a.TaskType,
		&a.IsCorrect, &a.Attempts, &userAnswer, &correctAnswer,
		&voiceFileID, &voiceDuration, &recognizedText, &a.CreatedAt, &a.CompletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTaskNotFound
		}
		return nil, err
	}
	if userAnswer != nil {
		a.UserAnswer = *userAnswer
	}
	if correctAnswer != nil {
		a.CorrectAnswer = *correctAnswer
	}
	if voiceFileID != nil {
		a.VoiceFileID = *voiceFileID
	}
	if voiceDuration != nil {
		a.VoiceDuration = *voiceDuration
	}
	if recognizedText != nil {
		a.RecognizedText = *recognizedText
	}
	return &a, nil
}

func (s *PG) AttemptByTask(ctx context.Context, userID int64, day, task int) (*domain.TaskAttempt, error) {
	return scanAttempt(s.db.QueryRow(ctx, `
		SELECT `+attemptColumns+` FROM task_attempts
		WHERE user_id = $1 AND day_number = $2 AND task_number = $3`,
		userID, day, task))
}

func (s *PG) CreateAttempt(ctx context.Context, arg CreateAttemptParams) (*domain.TaskAttempt, error) {
	row := s.db.QueryRow(ctx, `
		INSERT INTO task_attempts (user_id, day_number, task_number, task_type,
			is_correct, attempts, user_answer, correct_answer,
			voice_file_id, voice_duration, recognized_text, completed_at)
		VALUES ($1, $2, $3, $4, $5, 1, $6, $7, $8, $9, $10, $11)
		RETURNING `+attemptColumns,
		arg.UserID, arg.DayNumber, arg.TaskNumber, arg.TaskType,
		arg.IsCorrect, arg.UserAnswer, arg.CorrectAnswer,
		arg.VoiceFileID, arg.VoiceDuration, arg.RecognizedText, arg.CompletedAt,
	)
	a, err := scanAttempt(row)
	if err != nil {
		return nil, fmt.Errorf("create attempt: %w", err)
	}
	return a, nil
}

func (s *PG) UpdateAttempt(ctx context.Context, arg UpdateAttemptParams) (*domain.TaskAttempt, error) {
	row := s.db.QueryRow(ctx, `
		UPDATE task_attempts
		SET is_correct = $2, attempts = $3, user_answer = $4,
		    voice_file_id = COALESCE(NULLIF($5, ''), voice_file_id),
		    voice_duration = CASE WHEN $6 > 0 THEN $6 ELSE voice_duration END,
		    recognized_text = COALESCE(NULLIF($7, ''), recognized_text),
		    completed_at = COALESCE(completed_at, $8)
		WHERE id = $1
		RETURNING `+attemptColumns,
		arg.ID, arg.IsCorrect, arg.Attempts, arg.UserAnswer,
		arg.VoiceFileID, arg.VoiceDuration, arg.RecognizedText, arg.CompletedAt,
	)
	a, err := scanAttempt(row)
	if err != nil {
		return nil, fmt.Errorf("update attempt: %w", err)
	}
	return a, nil
}

func (s *PG) LatestAttempt(ctx context.Context, userID int64) (*domain.TaskAttempt, error) {
	return scanAttempt(s.db.QueryRow(ctx, `
		SELECT `+attemptColumns+` FROM task_attempts
		WHERE user_id = $1 ORDER BY created_at DESC, id DESC LIMIT 1`, userID))
}

func (s *PG) DeleteDayAttempts(ctx context.Context, userID int64, day int) error {
	_, err := s.db.Exec(ctx,
		`DELETE FROM task_attempts WHERE user_id = $1 AND day_number = $2`,
		userID, day)
	return err
}

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/neovoice/escapebot/internal/content"
	"github.com/neovoice/escapebot/internal/domain"
	"github.com/neovoice/escapebot/internal/repository"
)

// AttemptPayload carries the answer being recorded; voice fields are only
// set for voice tasks.
type AttemptPayload struct {
	Answer         string
	CorrectAnswer  string
	VoiceFileID    string
	VoiceDuration  float64
	RecognizedText string
}

// AttemptResult is what callers need to render "attempts remaining".
type AttemptResult struct {
	Attempts     int
	IsCorrect    bool
	Remaining    int
	LimitReached bool
	// FirstCorrect is set on the submission that flipped the task from
	// incorrect to correct.
	FirstCorrect bool
}

// AttemptService keeps exactly one row per (user, day, task) and feeds the
// progress counters on the first correct answer.
type AttemptService struct {
	store   repository.Store
	catalog *content.Catalog
	cap     int
}

func NewAttemptService(store repository.Store, catalog *content.Catalog, attemptCap int) *AttemptService {
	return &AttemptService{store: store, catalog: catalog, cap: attemptCap}
}

// RecordAttempt upserts the attempt row. The retry cap is enforced here:
// while a task is still incorrect, submission cap+1 is rejected with
// ErrAttemptLimit and nothing is recorded. Once the task is correct the cap
// stops mattering and further submissions are recorded without reverting
// correctness. A transient persistence error is retried once.
func (s *AttemptService) RecordAttempt(ctx context.Context, telegramID int64, day, task int, kind domain.TaskKind, isCorrect bool, payload AttemptPayload) (AttemptResult, error) {
	result, err := s.recordOnce(ctx, telegramID, day, task, kind, isCorrect, payload)
	if err != nil && !errors.Is(err, domain.ErrUserNotFound) && !errors.Is(err, domain.ErrAttemptLimit) {
		slog.Warn("record attempt failed, retrying once",
			"error", err, "telegram_id", telegramID, "day", day, "task", task)
		result, err = s.recordOnce(ctx, telegramID, day, task, kind, isCorrect, payload)
	}
	return result, err
}

func (s *AttemptService) recordOnce(ctx context.Context, telegramID int64, day, task int, kind domain.TaskKind, isCorrect bool, payload AttemptPayload) (AttemptResult, error) {
	var result AttemptResult

	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		user, err := tx.UserByTelegramID(ctx, telegramID)
		if err != nil {
			return err
		}

		existing, err := tx.AttemptByTask(ctx, user.ID, day, task)
		switch {
		case err == nil:
			return s.update(ctx, tx, user, existing, isCorrect, payload, &result)
		case errors.Is(err, domain.ErrTaskNotFound):
			return s.create(ctx, tx, user, day, task, kind, isCorrect, payload, &result)
		default:
			return fmt.Errorf("get attempt: %w", err)
		}
	})
	return result, err
}

func (s *AttemptService) create(ctx context.Context, tx repository.Store, user *domain.User, day, task int, kind domain.TaskKind, isCorrect bool, payload AttemptPayload, result *AttemptResult) error {
	var completedAt *time.Time
	if isCorrect {
		now := time.Now().UTC()
		completedAt = &now
	}

	attempt, err := tx.CreateAttempt(ctx, repository.CreateAttemptParams{
		UserID:         user.ID,
		DayNumber:      day,
		TaskNumber:     task,
		TaskType:       kind,
		IsCorrect:      isCorrect,
		UserAnswer:     payload.Answer,
		CorrectAnswer:  payload.CorrectAnswer,
		VoiceFileID:    payload.VoiceFileID,
		VoiceDuration:  payload.VoiceDuration,
		RecognizedText: payload.RecognizedText,
		CompletedAt:    completedAt,
	})
	if err != nil {
		return err
	}

	if isCorrect {
		if err := s.creditProgress(ctx, tx, user.ID, day); err != nil {
			return err
		}
		result.FirstCorrect = true
	}
	s.fill(result, attempt)
	return nil
}

func (s *AttemptService) update(ctx context.Context, tx repository.Store, user *domain.User, existing *domain.TaskAttempt, isCorrect bool, payload AttemptPayload, result *AttemptResult) error {
	if !existing.IsCorrect && existing.Attempts >= s.cap {
		s.fill(result, existing)
		result.LimitReached = true
		return domain.ErrAttemptLimit
	}

	// Correctness never reverts on the same row.
	newCorrect := existing.IsCorrect || isCorrect
	firstCorrect := !existing.IsCorrect && isCorrect

	var completedAt *time.Time
	if firstCorrect {
		now := time.Now().UTC()
		completedAt = &now
	}

	attempt, err := tx.UpdateAttempt(ctx, repository.UpdateAttemptParams{
		ID:             existing.ID,
		IsCorrect:      newCorrect,
		Attempts:       existing.Attempts + 1,
		UserAnswer:     payload.Answer,
		VoiceFileID:    payload.VoiceFileID,
		VoiceDuration:  payload.VoiceDuration,
		RecognizedText: payload.RecognizedText,
		CompletedAt:    completedAt,
	})
	if err != nil {
		return err
	}

	// The prior-correctness check makes the counter bump idempotent: a
	// repeated correct submission must not double-count.
	if firstCorrect {
		if err := s.creditProgress(ctx, tx, user.ID, existing.DayNumber); err != nil {
			return err
		}
		result.FirstCorrect = true
	}
	s.fill(result, attempt)
	return nil
}

func (s *AttemptService) creditProgress(ctx context.Context, tx repository.Store, userID int64, day int) error {
	if _, err := tx.ProgressByDay(ctx, userID, day); err != nil {
		if !errors.Is(err, domain.ErrProgressNotFound) {
			return err
		}
		if _, err := tx.CreateProgress(ctx, repository.CreateProgressParams{
			UserID:    userID,
			DayNumber: day,
			StartedAt: time.Now().UTC(),
		}); err != nil {
			return err
		}
	}
	return tx.BumpProgressCounters(ctx, userID, day)
}

func (s *AttemptService) fill(result *AttemptResult, attempt *domain.TaskAttempt) {
	result.Attempts = attempt.Attempts
	result.IsCorrect = attempt.IsCorrect
	result.Remaining = s.cap - attempt.Attempts
	if result.Remaining < 0 {
		result.Remaining = 0
	}
	if !attempt.IsCorrect && attempt.Attempts >= s.cap {
		result.LimitReached = true
	}
}

// Attempts returns the current attempt count for a task, 0 when none exist.
func (s *AttemptService) Attempts(ctx context.Context, telegramID int64, day, task int) (int, error) {
	user, err := s.store.UserByTelegramID(ctx, telegramID)
	if err != nil {
		return 0, err
	}
	attempt, err := s.store.AttemptByTask(ctx, user.ID, day, task)
	if err != nil {
		if errors.Is(err, domain.ErrTaskNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return attempt.Attempts, nil
}

func (s *AttemptService) TaskCompleted(ctx context.Context, telegramID int64, day, task int) (bool, error) {
	user, err := s.store.UserByTelegramID(ctx, telegramID)
	if err != nil {
		return false, err
	}
	attempt, err := s.store.AttemptByTask(ctx, user.ID, day, task)
	if err != nil {
		if errors.Is(err, domain.ErrTaskNotFound) {
			return false, nil
		}
		return false, err
	}
	return attempt.IsCorrect, nil
}

// ResetDayAttempts wipes a day's attempt rows and progress counters. This is
// an explicit user- or operator-triggered restart, never automatic.
func (s *AttemptService) ResetDayAttempts(ctx context.Context, telegramID int64, day int) error {
	return s.store.WithTx(ctx, func(tx repository.Store) error {
		user, err := tx.UserByTelegramID(ctx, telegramID)
		if err != nil {
			return err
		}
		if err := tx.DeleteDayAttempts(ctx, user.ID, day); err != nil {
			return fmt.Errorf("delete attempts: %w", err)
		}
		if err := tx.ResetProgress(ctx, user.ID, day); err != nil {
			return fmt.Errorf("reset progress: %w", err)
		}
		// The day is no longer completed, so its code letter must clear.
		return storeRebuiltCode(ctx, tx, s.catalog, user.ID)
	})
}

package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/neovoice/escapebot/internal/content"
	"github.com/neovoice/escapebot/internal/domain"
	"github.com/neovoice/escapebot/internal/repository"
)

// ProgressService is the per-user day state machine: LOCKED → STARTED →
// COMPLETED. It owns the current unlocked day and the completion code.
type ProgressService struct {
	store   repository.Store
	catalog *content.Catalog
}

func NewProgressService(store repository.Store, catalog *content.Catalog) *ProgressService {
	return &ProgressService{store: store, catalog: catalog}
}

// CanAccessDay has no side effects; a false result must not trigger an
// auto-unlock anywhere.
func (s *ProgressService) CanAccessDay(user *domain.User, day int) bool {
	return user.HasAccess && day >= 1 && day <= user.CurrentDay
}

// EnterDay moves a day to STARTED for the user, creating the progress row
// lazily. Revisiting an already-started day is a no-op returning the
// existing row.
func (s *ProgressService) EnterDay(ctx context.Context, telegramID int64, day int) (*domain.Progress, error) {
	user, err := s.store.UserByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, err
	}
	if !user.HasAccess {
		return nil, domain.ErrNoAccess
	}
	if day < 1 || day > user.CurrentDay {
		return nil, domain.ErrDayLocked
	}

	progress, err := s.store.ProgressByDay(ctx, user.ID, day)
	if err == nil {
		return progress, nil
	}
	if !errors.Is(err, domain.ErrProgressNotFound) {
		return nil, fmt.Errorf("get progress: %w", err)
	}

	progress, err = s.store.CreateProgress(ctx, repository.CreateProgressParams{
		UserID:     user.ID,
		DayNumber:  day,
		TotalTasks: len(s.catalog.Tasks(day)),
		StartedAt:  time.Now().UTC(),
	})
	if err != nil {
		return nil, err
	}

	if user.CurrentDay < day {
		if err := s.store.SetUserCurrentDay(ctx, user.ID, day); err != nil {
			return nil, fmt.Errorf("raise current day: %w", err)
		}
	}
	return progress, nil
}

// CompleteDay marks a day COMPLETED and rebuilds the completion code. It is
// idempotent: completing an already-completed day converges to the same user
// state and the same code string. The code is always recomputed by scanning
// every completed day, never by patching a single character, so out-of-order
// completions cannot cause drift.
func (s *ProgressService) CompleteDay(ctx context.Context, telegramID int64, day int) (*domain.User, error) {
	var result *domain.User

	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		user, err := tx.UserByTelegramID(ctx, telegramID)
		if err != nil {
			return err
		}

		if _, err := tx.ProgressByDay(ctx, user.ID, day); err != nil {
			return err
		}

		now := time.Now().UTC()
		if err := tx.CompleteProgress(ctx, user.ID, day, now); err != nil {
			return fmt.Errorf("complete progress: %w", err)
		}

		if err := storeRebuiltCode(ctx, tx, s.catalog, user.ID); err != nil {
			return err
		}

		if day < s.catalog.CourseDays() {
			if err := tx.SetUserCurrentDay(ctx, user.ID, day+1); err != nil {
				return fmt.Errorf("advance day: %w", err)
			}
		} else if err := tx.SetCourseCompleted(ctx, user.ID, now); err != nil {
			return fmt.Errorf("mark course completed: %w", err)
		}

		result, err = tx.UserByID(ctx, user.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// storeRebuiltCode derives the code string from scratch and persists it:
// position i-1 is filled with LetterForDay(i) iff day i has a completed
// progress row. Both day completion and day reset converge through this.
func storeRebuiltCode(ctx context.Context, tx repository.Store, catalog *content.Catalog, userID int64) error {
	all, err := tx.ListProgress(ctx, userID)
	if err != nil {
		return fmt.Errorf("list progress: %w", err)
	}

	code := []byte(catalog.CodeTemplate())
	completed := 0
	for _, p := range all {
		if !p.TasksCompleted {
			continue
		}
		completed++
		letter := catalog.LetterForDay(p.DayNumber)
		if letter != "" {
			code[p.DayNumber-1] = letter[0]
		}
	}

	if err := tx.SetUserCode(ctx, userID, string(code), completed); err != nil {
		return fmt.Errorf("store code: %w", err)
	}
	return nil
}

// ResolveActiveDay is the day a free-form submission belongs to: the most
// recent attempt's day, falling back to the user's current day. Users
// revisiting an earlier day keep submitting against that day.
func (s *ProgressService) ResolveActiveDay(ctx context.Context, user *domain.User) int {
	attempt, err := s.store.LatestAttempt(ctx, user.ID)
	if err == nil {
		return attempt.DayNumber
	}
	return user.CurrentDay
}

func (s *ProgressService) MarkMaterialViewed(ctx context.Context, telegramID int64, day int, material repository.Material) error {
	user, err := s.store.UserByTelegramID(ctx, telegramID)
	if err != nil {
		return err
	}
	return s.store.MarkMaterialViewed(ctx, user.ID, day, material)
}

// Overview aggregates one user's standing for the /progress view.
type Overview struct {
	User           *domain.User
	TotalTasks     int
	CompletedTasks int
	CorrectAnswers int
	Accuracy       float64
	Records        []domain.Progress
}

func (s *ProgressService) Overview(ctx context.Context, telegramID int64) (*Overview, error) {
	user, err := s.store.UserByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, err
	}
	records, err := s.store.ListProgress(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("list progress: %w", err)
	}

	o := &Overview{User: user, Records: records}
	for _, p := range records {
		o.TotalTasks += p.TotalTasks
		o.CompletedTasks += p.CompletedTasks
		o.CorrectAnswers += p.CorrectAnswers
	}
	if o.TotalTasks > 0 {
		o.Accuracy = float64(o.CorrectAnswers) / float64(o.TotalTasks) * 100
	}
	return o, nil
}

// Stats exposes the admin aggregation view.
func (s *ProgressService) Stats(ctx context.Context) (*repository.CourseStats, error) {
	return s.store.CourseStats(ctx)
}

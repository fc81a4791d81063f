package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neovoice/escapebot/internal/domain"
)

func TestRecordAttemptCountsDown(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	catalog := testCatalog(t)
	user := seedUser(t, store, catalog, 100)
	svc := NewAttemptService(store, catalog, 3)

	r1, err := svc.RecordAttempt(ctx, user.TelegramID, 1, 1, domain.TaskKindChoice, false, AttemptPayload{Answer: "3", CorrectAnswer: "4"})
	require.NoError(t, err)
	assert.Equal(t, 1, r1.Attempts)
	assert.Equal(t, 2, r1.Remaining)
	assert.False(t, r1.LimitReached)

	r2, err := svc.RecordAttempt(ctx, user.TelegramID, 1, 1, domain.TaskKindChoice, false, AttemptPayload{Answer: "3"})
	require.NoError(t, err)
	assert.Equal(t, 2, r2.Attempts)
	assert.Equal(t, 1, r2.Remaining)

	r3, err := svc.RecordAttempt(ctx, user.TelegramID, 1, 1, domain.TaskKindChoice, false, AttemptPayload{Answer: "3"})
	require.NoError(t, err)
	assert.Equal(t, 3, r3.Attempts)
	assert.Equal(t, 0, r3.Remaining)
	assert.True(t, r3.LimitReached)
}

func TestRecordAttemptEnforcesCap(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	catalog := testCatalog(t)
	user := seedUser(t, store, catalog, 101)
	svc := NewAttemptService(store, catalog, 3)

	for i := 0; i < 3; i++ {
		_, err := svc.RecordAttempt(ctx, user.TelegramID, 1, 1, domain.TaskKindChoice, false, AttemptPayload{Answer: "3"})
		require.NoError(t, err)
	}

	// Fourth incorrect-streak submission is rejected outright.
	_, err := svc.RecordAttempt(ctx, user.TelegramID, 1, 1, domain.TaskKindChoice, true, AttemptPayload{Answer: "4"})
	require.ErrorIs(t, err, domain.ErrAttemptLimit)

	// Nothing was recorded past the cap.
	n, err := svc.Attempts(ctx, user.TelegramID, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestRecordAttemptRemainingNeverNegative(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	catalog := testCatalog(t)
	user := seedUser(t, store, catalog, 102)
	svc := NewAttemptService(store, catalog, 1)

	r, err := svc.RecordAttempt(ctx, user.TelegramID, 1, 1, domain.TaskKindChoice, false, AttemptPayload{Answer: "3"})
	require.NoError(t, err)
	assert.Equal(t, 0, r.Remaining)
	assert.True(t, r.LimitReached)
}

func TestRecordAttemptFirstCorrectCreditsProgressOnce(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	catalog := testCatalog(t)
	user := seedUser(t, store, catalog, 103)
	svc := NewAttemptService(store, catalog, 3)

	r1, err := svc.RecordAttempt(ctx, user.TelegramID, 1, 1, domain.TaskKindChoice, true, AttemptPayload{Answer: "4"})
	require.NoError(t, err)
	assert.True(t, r1.FirstCorrect)

	// A repeat correct submission must not double-count.
	r2, err := svc.RecordAttempt(ctx, user.TelegramID, 1, 1, domain.TaskKindChoice, true, AttemptPayload{Answer: "4"})
	require.NoError(t, err)
	assert.False(t, r2.FirstCorrect)

	p, err := store.ProgressByDay(ctx, user.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, p.CompletedTasks)
	assert.Equal(t, 1, p.CorrectAnswers)
}

func TestRecordAttemptCorrectnessNeverReverts(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	catalog := testCatalog(t)
	user := seedUser(t, store, catalog, 104)
	svc := NewAttemptService(store, catalog, 3)

	_, err := svc.RecordAttempt(ctx, user.TelegramID, 1, 1, domain.TaskKindChoice, true, AttemptPayload{Answer: "4"})
	require.NoError(t, err)

	// An incorrect submission after a correct one keeps the task solved.
	r, err := svc.RecordAttempt(ctx, user.TelegramID, 1, 1, domain.TaskKindChoice, false, AttemptPayload{Answer: "3"})
	require.NoError(t, err)
	assert.True(t, r.IsCorrect)

	done, err := svc.TaskCompleted(ctx, user.TelegramID, 1, 1)
	require.NoError(t, err)
	assert.True(t, done)
}

func TestRecordAttemptCapStopsMatteringOnceCorrect(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	catalog := testCatalog(t)
	user := seedUser(t, store, catalog, 105)
	svc := NewAttemptService(store, catalog, 3)

	_, err := svc.RecordAttempt(ctx, user.TelegramID, 1, 1, domain.TaskKindChoice, true, AttemptPayload{Answer: "4"})
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, err := svc.RecordAttempt(ctx, user.TelegramID, 1, 1, domain.TaskKindChoice, false, AttemptPayload{Answer: "3"})
		require.NoError(t, err)
	}

	n, err := svc.Attempts(ctx, user.TelegramID, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, 6, n)
}

func TestResetDayAttemptsClearsCodeLetter(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	catalog := testCatalog(t)
	user := seedUser(t, store, catalog, 106)
	attempts := NewAttemptService(store, catalog, 3)
	progress := NewProgressService(store, catalog)

	_, err := progress.EnterDay(ctx, user.TelegramID, 1)
	require.NoError(t, err)
	for task := 1; task <= 2; task++ {
		_, err := attempts.RecordAttempt(ctx, user.TelegramID, 1, task, domain.TaskKindChoice, true, AttemptPayload{Answer: "4"})
		require.NoError(t, err)
	}
	_, err = progress.CompleteDay(ctx, user.TelegramID, 1)
	require.NoError(t, err)

	after, err := store.UserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "L_________", after.Code)

	require.NoError(t, attempts.ResetDayAttempts(ctx, user.TelegramID, 1))

	after, err = store.UserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "__________", after.Code)
	assert.Equal(t, 0, after.CompletedDays)

	_, err = store.AttemptByTask(ctx, user.ID, 1, 1)
	assert.ErrorIs(t, err, domain.ErrTaskNotFound)
}

// Package repository persists course state in Postgres. Services depend on
// the Store interface so tests can swap in an in-memory implementation.
package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/neovoice/escapebot/internal/domain"
)

type CreateUserParams struct {
	TelegramID int64
	Username   string
	FirstName  string
	LastName   string
	Timezone   string
	IsAdmin    bool
	Code       string
}

type CreateProgressParams struct {
	UserID     int64
	DayNumber  int
	TotalTasks int
	StartedAt  time.Time
}

type CreateAttemptParams struct {
	UserID         int64
	DayNumber      int
	TaskNumber     int
	TaskType       domain.TaskKind
	IsCorrect      bool
	UserAnswer     string
	CorrectAnswer  string
	VoiceFileID    string
	VoiceDuration  float64
	RecognizedText string
	CompletedAt    *time.Time
}

type UpdateAttemptParams struct {
	ID             int64
	IsCorrect      bool
	Attempts       int
	UserAnswer     string
	VoiceFileID    string
	VoiceDuration  float64
	RecognizedText string
	CompletedAt    *time.Time
}

type CreatePaymentParams struct {
	UserID        int64
	PaymentID     string
	Amount        decimal.Decimal
	Currency      string
	Description   string
	PaymentMethod string
	Metadata      map[string]string
}

type CreateReminderParams struct {
	UserID       int64
	DayNumber    int
	ReminderType string
	MessageText  string
	SentAt       time.Time
}

// Material is a viewable day sub-resource tracked on the progress row.
type Material string

const (
	MaterialVideo Material = "video"
	MaterialBrief Material = "brief"
)

// CourseStats is the admin aggregation view.
type CourseStats struct {
	TotalUsers     int64
	PaidUsers      int64
	FinishedUsers  int64
	Revenue        decimal.Decimal
	DayCompletions map[int]int64
}

// Store is the persistence surface of the engine. Not-found conditions are
// reported as the domain sentinel errors, regardless of the backing
// implementation.
type Store interface {
	CreateUser(ctx context.Context, arg CreateUserParams) (*domain.User, error)
	UserByTelegramID(ctx context.Context, telegramID int64) (*domain.User, error)
	UserByID(ctx context.Context, id int64) (*domain.User, error)
	// UserByIDForUpdate locks the user row for the duration of the
	// enclosing transaction.
	UserByIDForUpdate(ctx context.Context, id int64) (*domain.User, error)
	UpdateUserInfo(ctx context.Context, id int64, firstName, lastName, username string) error
	UpdateUserEmail(ctx context.Context, id int64, email string) error
	TouchUserActivity(ctx context.Context, id int64, at time.Time) error
	SetUserCurrentDay(ctx context.Context, id int64, day int) error
	GrantUserAccess(ctx context.Context, id int64, startedAt time.Time) error
	SetUserCode(ctx context.Context, id int64, code string, completedDays int) error
	SetCourseCompleted(ctx context.Context, id int64, at time.Time) error
	SetLastUnlockNotification(ctx context.Context, id int64, at time.Time) error
	ListUnlockCandidates(ctx context.Context, courseDays int) ([]domain.User, error)
	ListInactiveUsers(ctx context.Context, cutoff time.Time, courseDays int) ([]domain.User, error)

	CreateProgress(ctx context.Context, arg CreateProgressParams) (*domain.Progress, error)
	ProgressByDay(ctx context.Context, userID int64, day int) (*domain.Progress, error)
	ListProgress(ctx context.Context, userID int64) ([]domain.Progress, error)
	CompleteProgress(ctx context.Context, userID int64, day int, at time.Time) error
	MarkMaterialViewed(ctx context.Context, userID int64, day int, material Material) error
	BumpProgressCounters(ctx context.Context, userID int64, day int) error
	ResetProgress(ctx context.Context, userID int64, day int) error

	AttemptByTask(ctx context.Context, userID int64, day, task int) (*domain.TaskAttempt, error)
	CreateAttempt(ctx context.Context, arg CreateAttemptParams) (*domain.TaskAttempt, error)
	UpdateAttempt(ctx context.Context, arg UpdateAttemptParams) (*domain.TaskAttempt, error)
	LatestAttempt(ctx context.Context, userID int64) (*domain.TaskAttempt, error)
	DeleteDayAttempts(ctx context.Context, userID int64, day int) error

	CreatePayment(ctx context.Context, arg CreatePaymentParams) (*domain.Payment, error)
	PaymentByProviderID(ctx context.Context, paymentID string) (*domain.Payment, error)
	ListPendingPayments(ctx context.Context, userID int64) ([]domain.Payment, error)
	SetPaymentStatus(ctx context.Context, id int64, status domain.PaymentStatus, paidAt *time.Time) error

	CountReminders(ctx context.Context, userID int64) (int, error)
	CreateReminder(ctx context.Context, arg CreateReminderParams) (*domain.Reminder, error)

	CourseStats(ctx context.Context) (*CourseStats, error)

	// WithTx runs fn against a Store bound to one transaction; any error
	// rolls everything back.
	WithTx(ctx context.Context, fn func(Store) error) error
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PG is the pgx-backed Store.
type PG struct {
	db   querier
	pool *pgxpool.Pool
}

func NewPG(pool *pgxpool.Pool) *PG {
	return &PG{db: pool, pool: pool}
}

func (s *PG) WithTx(ctx context.Context, fn func(Store) error) error {
	if s.pool == nil {
		// Already inside a transaction; reuse it.
		return fn(s)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&PG{db: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

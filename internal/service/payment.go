package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/neovoice/escapebot/internal/domain"
	"github.com/neovoice/escapebot/internal/repository"
)

// ProviderPayment is the provider's authoritative view of one payment.
type ProviderPayment struct {
	ID              string
	Status          string
	Paid            bool
	Amount          decimal.Decimal
	Currency        string
	ConfirmationURL string
	PaidAt          *time.Time
	Metadata        map[string]string
}

type ProviderPaymentRequest struct {
	Amount      decimal.Decimal
	Currency    string
	Description string
	ReturnURL   string
	Metadata    map[string]string
}

// PaymentProvider abstracts the payment backend; the YooKassa client is the
// production implementation.
type PaymentProvider interface {
	CreatePayment(ctx context.Context, req ProviderPaymentRequest) (*ProviderPayment, error)
	PaymentStatus(ctx context.Context, id string) (*ProviderPayment, error)
}

// Notifier is the single messaging primitive the engine needs.
type Notifier interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}

// ReconcileOutcome is the converged result of a reconciliation attempt.
type ReconcileOutcome int

const (
	OutcomeNotPaid ReconcileOutcome = iota
	OutcomeGranted
	OutcomeAlreadyHadAccess
	OutcomeUnknownPayment
)

func (o ReconcileOutcome) String() string {
	switch o {
	case OutcomeGranted:
		return "granted"
	case OutcomeAlreadyHadAccess:
		return "already_had_access"
	case OutcomeUnknownPayment:
		return "unknown_payment"
	default:
		return "not_paid"
	}
}

// PaymentConfig is the slice of configuration the reconciler needs.
type PaymentConfig struct {
	CourseName  string
	CoursePrice int
	Currency    string
	CourseDays  int
	ReturnURL   string
}

// PaymentService normalizes the two payment-confirmation channels — the
// provider's webhook push and the on-demand pull check — into one idempotent
// access grant.
type PaymentService struct {
	store    repository.Store
	provider PaymentProvider
	notifier Notifier
	cfg      PaymentConfig
}

func NewPaymentService(store repository.Store, provider PaymentProvider, notifier Notifier, cfg PaymentConfig) *PaymentService {
	return &PaymentService{store: store, provider: provider, notifier: notifier, cfg: cfg}
}

// CreateCoursePayment initiates a payment with the provider and persists a
// pending record. The returned payment carries the confirmation URL.
func (s *PaymentService) CreateCoursePayment(ctx context.Context, user *domain.User) (*domain.Payment, string, error) {
	amount := decimal.NewFromInt(int64(s.cfg.CoursePrice))

	provPayment, err := s.provider.CreatePayment(ctx, ProviderPaymentRequest{
		Amount:      amount,
		Currency:    s.cfg.Currency,
		Description: fmt.Sprintf("%s — %d дней", s.cfg.CourseName, s.cfg.CourseDays),
		ReturnURL:   s.cfg.ReturnURL,
		Metadata:    map[string]string{"telegram_id": fmt.Sprintf("%d", user.TelegramID)},
	})
	if err != nil {
		return nil, "", fmt.Errorf("create provider payment: %w", err)
	}

	payment, err := s.store.CreatePayment(ctx, repository.CreatePaymentParams{
		UserID:        user.ID,
		PaymentID:     provPayment.ID,
		Amount:        amount,
		Currency:      s.cfg.Currency,
		Description:   fmt.Sprintf("Course purchase: %s", s.cfg.CourseName),
		PaymentMethod: "yookassa",
		Metadata:      map[string]string{"telegram_id": fmt.Sprintf("%d", user.TelegramID)},
	})
	if err != nil {
		return nil, "", fmt.Errorf("store payment: %w", err)
	}

	return payment, provPayment.ConfirmationURL, nil
}

// GrantAccessIfPaid reconciles one payment identifier to at most one access
// grant. It is safe to call any number of times from either channel, in any
// order. The provider is queried before the transaction opens so no user
// lock is held across the network call, and the webhook body is never
// trusted on its own.
func (s *PaymentService) GrantAccessIfPaid(ctx context.Context, paymentID string) (ReconcileOutcome, error) {
	record, err := s.store.PaymentByProviderID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, domain.ErrPaymentNotFound) {
			// A push can outrun the local pending record; nothing to
			// reconcile yet.
			slog.Warn("payment notification for unknown payment", "payment_id", paymentID)
			return OutcomeUnknownPayment, nil
		}
		return OutcomeNotPaid, fmt.Errorf("get payment: %w", err)
	}

	status, err := s.provider.PaymentStatus(ctx, paymentID)
	if err != nil {
		return OutcomeNotPaid, fmt.Errorf("query provider: %w", err)
	}

	if !status.Paid {
		if status.Status == "canceled" && record.Status == domain.PaymentStatusPending {
			if err := s.store.SetPaymentStatus(ctx, record.ID, domain.PaymentStatusCanceled, nil); err != nil {
				return OutcomeNotPaid, fmt.Errorf("mark canceled: %w", err)
			}
			slog.Info("payment canceled", "payment_id", paymentID)
		}
		return OutcomeNotPaid, nil
	}

	paidAt := time.Now().UTC()
	if status.PaidAt != nil {
		paidAt = status.PaidAt.UTC()
	}

	outcome := OutcomeNotPaid
	var user *domain.User

	// The grant and the payment-status write commit together: a crash can
	// never leave a user paid-but-locked or unlocked-but-pending.
	err = s.store.WithTx(ctx, func(tx repository.Store) error {
		user, err = tx.UserByIDForUpdate(ctx, record.UserID)
		if err != nil {
			return err
		}

		if user.HasAccess {
			outcome = OutcomeAlreadyHadAccess
			return nil
		}

		if err := tx.GrantUserAccess(ctx, user.ID, paidAt); err != nil {
			return fmt.Errorf("grant access: %w", err)
		}
		if err := tx.SetPaymentStatus(ctx, record.ID, domain.PaymentStatusSucceeded, &paidAt); err != nil {
			return fmt.Errorf("mark succeeded: %w", err)
		}
		outcome = OutcomeGranted
		return nil
	})
	if err != nil {
		return OutcomeNotPaid, err
	}

	if outcome == OutcomeGranted {
		slog.Info("access granted", "telegram_id", user.TelegramID, "payment_id", paymentID)
		s.sendSuccessMessage(ctx, user)
	}
	return outcome, nil
}

// CheckPendingPayments is the pull channel: on user re-entry (or a manual
// status command) every pending record is re-checked against the provider.
func (s *PaymentService) CheckPendingPayments(ctx context.Context, telegramID int64) (ReconcileOutcome, error) {
	user, err := s.store.UserByTelegramID(ctx, telegramID)
	if err != nil {
		return OutcomeNotPaid, err
	}
	if user.HasAccess {
		return OutcomeAlreadyHadAccess, nil
	}

	pending, err := s.store.ListPendingPayments(ctx, user.ID)
	if err != nil {
		return OutcomeNotPaid, fmt.Errorf("list pending payments: %w", err)
	}

	for _, p := range pending {
		outcome, err := s.GrantAccessIfPaid(ctx, p.PaymentID)
		if err != nil {
			slog.Error("reconcile pending payment", "error", err, "payment_id", p.PaymentID)
			continue
		}
		if outcome == OutcomeGranted || outcome == OutcomeAlreadyHadAccess {
			return outcome, nil
		}
	}
	return OutcomeNotPaid, nil
}

func (s *PaymentService) sendSuccessMessage(ctx context.Context, user *domain.User) {
	if s.notifier == nil {
		return
	}
	name := user.FirstName
	if name == "" {
		name = "Субъект X"
	}
	text := fmt.Sprintf(
		"🎉 *Оплата прошла успешно!*\n\n"+
			"Добро пожаловать в *%s*, %s!\n\n"+
			"✅ Теперь у тебя есть полный доступ ко всем %d дням\n"+
			"🔓 Твой путь к свободе начинается сейчас\n\n"+
			"🎬 День 1 готов — команда /day",
		s.cfg.CourseName, name, s.cfg.CourseDays,
	)
	if err := s.notifier.SendMessage(ctx, user.TelegramID, text); err != nil {
		slog.Error("send payment success message", "error", err, "telegram_id", user.TelegramID)
	}
}

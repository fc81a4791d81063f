package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/neovoice/escapebot/internal/domain"
)

const paymentColumns = `id, user_id, payment_id, amount, currency, status,
	description, payment_method, paid_at, metadata, created_at, updated_at`

func scanPayment(row pgx.Row) (*domain.Payment, error) {
	var p domain.Payment
	var description, method *string
	err := row.Scan(
		&p.ID, &p.UserID, &p.PaymentID, &p.Amount, &p.Currency, &p.Status,
		&description, &method, &p.PaidAt, &p.Metadata, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPaymentNotFound
		}
		return nil, err
	}
	if description != nil {
		p.Description = *description
	}
	if method != nil {
		p.PaymentMethod = *method
	}
	return &p, nil
}

func (s *PG) CreatePayment(ctx context.Context, arg CreatePaymentParams) (*domain.Payment, error) {
	row := s.db.QueryRow(ctx, `
		INSERT INTO payments (user_id, payment_id, amount, currency, description, payment_method, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+paymentColumns,
		arg.UserID, arg.PaymentID, arg.Amount, arg.Currency,
		arg.Description, arg.PaymentMethod, arg.Metadata,
	)
	p, err := scanPayment(row)
	if err != nil {
		return nil, fmt.Errorf("create payment: %w", err)
	}
	return p, nil
}

func (s *PG) PaymentByProviderID(ctx context.Context, paymentID string) (*domain.Payment, error) {
	return scanPayment(s.db.QueryRow(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE payment_id = $1`, paymentID))
}

func (s *PG) ListPendingPayments(ctx context.Context, userID int64) ([]domain.Payment, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+paymentColumns+` FROM payments
		WHERE user_id = $1 AND status = 'pending'
		ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []domain.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *p)
	}
	return list, rows.Err()
}

// SetPaymentStatus refuses to move a record out of a terminal status;
// pending→{succeeded|canceled|failed} is one-way.
func (s *PG) SetPaymentStatus(ctx context.Context, id int64, status domain.PaymentStatus, paidAt *time.Time) error {
	_, err := s.db.Exec(ctx, `
		UPDATE payments
		SET status = $2, paid_at = COALESCE(paid_at, $3), updated_at = NOW()
		WHERE id = $1 AND status = 'pending'`, id, status, paidAt)
	return err
}

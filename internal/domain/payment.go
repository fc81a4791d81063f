package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusSucceeded PaymentStatus = "succeeded"
	PaymentStatusCanceled  PaymentStatus = "canceled"
	PaymentStatusFailed    PaymentStatus = "failed"
)

// Terminal reports whether the status allows no further transitions.
func (s PaymentStatus) Terminal() bool {
	return s == PaymentStatusSucceeded || s == PaymentStatusCanceled || s == PaymentStatusFailed
}

type Payment struct {
	ID     int64
	UserID int64

	// PaymentID is the provider's identifier, unique across all records.
	PaymentID string
	Amount    decimal.Decimal
	Currency  string
	Status    PaymentStatus

	Description   string
	PaymentMethod string
	PaidAt        *time.Time
	Metadata      map[string]string

	CreatedAt time.Time
	UpdatedAt time.Time
}

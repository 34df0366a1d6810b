package domain

import (
	"fmt"
	"time"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusPaid      PaymentStatus = "PAID"
	PaymentStatusCancelled PaymentStatus = "CANCELLED"
	PaymentStatusFailed    PaymentStatus = "FAILED"
)

func ParsePaymentStatus(s string) (PaymentStatus, error) {
	switch status := PaymentStatus(s); status {
	case PaymentStatusPending, PaymentStatusPaid, PaymentStatusCancelled, PaymentStatusFailed:
		return status, nil
	default:
		return "", fmt.Errorf("invalid payment status: %q", s)
	}
}

const PaymentMethodCheckout = "CHECKOUT"

type Payment struct {
	ID          int64
	BookingID   int64
	AmountCents int64
	Method      string
	Status      PaymentStatus
	// SessionRef is the provider checkout session; TransactionRef the settled charge.
	// Both are written once.
	SessionRef     string
	TransactionRef string
	CardLast4      string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

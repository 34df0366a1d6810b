package domain

import (
	"fmt"
	"time"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "PENDING"
	BookingStatusConfirmed BookingStatus = "CONFIRMED"
	BookingStatusApproved  BookingStatus = "APPROVED"
	BookingStatusRejected  BookingStatus = "REJECTED"
	BookingStatusCancelled BookingStatus = "CANCELLED"
)

// Trigger names the channel a status change arrives through.
type Trigger int

const (
	TriggerPayment Trigger = iota + 1
	TriggerAdmin
)

func ParseBookingStatus(s string) (BookingStatus, error) {
	switch status := BookingStatus(s); status {
	case BookingStatusPending, BookingStatusConfirmed, BookingStatusApproved,
		BookingStatusRejected, BookingStatusCancelled:
		return status, nil
	default:
		return "", fmt.Errorf("invalid booking status: %q", s)
	}
}

// IsTerminal reports whether no automatic (payment driven) transition leaves s.
func (s BookingStatus) IsTerminal() bool {
	switch s {
	case BookingStatusPending:
		return false
	case BookingStatusConfirmed, BookingStatusApproved, BookingStatusRejected, BookingStatusCancelled:
		return true
	default:
		return true
	}
}

// CanTransitionTo reports whether the booking may move to target through trigger.
// Payment outcomes only move a pending booking. Admin labels apply over any status and
// are stored beside it, so the payment lifecycle is never overwritten.
func (s BookingStatus) CanTransitionTo(target BookingStatus, trigger Trigger) bool {
	switch trigger {
	case TriggerPayment:
		if s != BookingStatusPending {
			return false
		}
		switch target {
		case BookingStatusConfirmed, BookingStatusCancelled:
			return true
		case BookingStatusPending, BookingStatusApproved, BookingStatusRejected:
			return false
		default:
			return false
		}
	case TriggerAdmin:
		if _, err := ParseBookingStatus(string(s)); err != nil {
			return false
		}
		switch target {
		case BookingStatusApproved, BookingStatusRejected:
			return true
		case BookingStatusPending, BookingStatusConfirmed, BookingStatusCancelled:
			return false
		default:
			return false
		}
	default:
		return false
	}
}

// Booking.Status follows the payment lifecycle (pending, confirmed, cancelled).
// AdminLabel is approved, rejected or empty and never changes Status.
type Booking struct {
	ID              int64
	UserID          string
	CarID           int64
	StartDate       time.Time
	EndDate         time.Time
	TotalPriceCents int64
	Status          BookingStatus
	AdminLabel      BookingStatus
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (b *Booking) Range() DateRange {
	return DateRange{Start: b.StartDate, End: b.EndDate}
}

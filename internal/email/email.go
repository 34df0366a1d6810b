package email

import (
	"context"
	"fmt"

	"github.com/Domenick1991/carrental/internal/kafka"
	"go.uber.org/zap"
)

// Sender turns booking events into customer notifications. Delivery is a log line; a
// mail transport plugs in behind Send.
type Sender struct {
	log *zap.Logger
}

func NewSender(log *zap.Logger) *Sender {
	return &Sender{log: log}
}

func (s *Sender) Send(ctx context.Context, event kafka.BookingEvent) error {
	subject, ok := Subject(event.Type)
	if !ok {
		s.log.Debug("no notification for event", zap.String("type", event.Type))
		return nil
	}

	s.log.Info("notify customer",
		zap.String("user_id", event.UserID),
		zap.String("subject", subject),
		zap.Int64("booking_id", event.BookingID),
		zap.Int64("car_id", event.CarID),
		zap.String("dates", fmt.Sprintf("%s..%s", event.StartDate, event.EndDate)),
	)
	return nil
}

func Subject(eventType string) (string, bool) {
	switch eventType {
	case kafka.EventBookingCreated:
		return "Your booking is waiting for payment", true
	case kafka.EventBookingConfirmed:
		return "Your booking is confirmed", true
	case kafka.EventBookingCancelled:
		return "Your booking was cancelled", true
	case kafka.EventBookingApproved:
		return "Your booking was approved", true
	case kafka.EventBookingRejected:
		return "Your booking was rejected", true
	default:
		return "", false
	}
}

package booking

import (
	"context"

	"github.com/Domenick1991/carrental/internal/domain"
	"github.com/Domenick1991/carrental/internal/kafka"
	"go.uber.org/zap"
)

type Producer interface {
	PublishWithRetry(ctx context.Context, topic, key string, value any, maxRetries int) error
}

// EventPublisher sends booking events to every configured topic. Publishing is best
// effort: failures are logged after the last retry and never reach the caller.
type EventPublisher struct {
	producer Producer
	topics   []string
	retries  int
	log      *zap.Logger
}

func NewEventPublisher(producer Producer, log *zap.Logger, retries int, topics ...string) *EventPublisher {
	nonEmpty := make([]string, 0, len(topics))
	for _, t := range topics {
		if t != "" {
			nonEmpty = append(nonEmpty, t)
		}
	}
	return &EventPublisher{producer: producer, topics: nonEmpty, retries: retries, log: log}
}

func (p *EventPublisher) BookingChanged(ctx context.Context, eventType string, b *domain.Booking) {
	if p == nil || p.producer == nil || b == nil {
		return
	}
	event := kafka.NewBookingEvent(eventType, b)
	for _, topic := range p.topics {
		if err := p.producer.PublishWithRetry(ctx, topic, event.Key(), event, p.retries); err != nil {
			p.log.Warn("publish booking event",
				zap.String("type", eventType),
				zap.Int64("booking_id", b.ID),
				zap.String("topic", topic),
				zap.Error(err))
		}
	}
}

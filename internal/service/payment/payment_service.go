package payment

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Domenick1991/carrental/config"
	"github.com/Domenick1991/carrental/internal/domain"
	"github.com/Domenick1991/carrental/internal/kafka"
	gateway "github.com/Domenick1991/carrental/internal/payment"
	"github.com/Domenick1991/carrental/internal/repository"
	"github.com/Domenick1991/carrental/internal/service/booking"
	"go.uber.org/zap"
)

const sweepBatch = 100

type PaymentUseCase interface {
	InitiateCheckout(ctx context.Context, bookingID, amountCents int64) (*CheckoutHandle, error)
	Reconcile(ctx context.Context, sessionRef string) (*ReconciliationResult, error)
	Cancel(ctx context.Context, paymentID int64) (*domain.Payment, error)
	SweepStale(ctx context.Context, olderThan time.Duration) (*SweepReport, error)
}

type CheckoutHandle struct {
	PaymentID   int64
	SessionRef  string
	RedirectURL string
}

type ReconciliationResult struct {
	PaymentID      int64
	BookingID      int64
	PaymentStatus  domain.PaymentStatus
	BookingStatus  domain.BookingStatus
	ProviderStatus gateway.SessionStatus
	Paid           bool
}

type SweepReport struct {
	Checked   int
	Paid      int
	Cancelled int
	Failed    int
}

type PaymentService struct {
	bookings repository.BookingRepository
	payments repository.PaymentRepository
	checker  *booking.Checker
	provider gateway.Provider
	events   *booking.EventPublisher
	cfg      config.PaymentConfig
	log      *zap.Logger
	now      func() time.Time
}

func NewPaymentService(
	bookings repository.BookingRepository,
	payments repository.PaymentRepository,
	provider gateway.Provider,
	events *booking.EventPublisher,
	cfg config.PaymentConfig,
	log *zap.Logger,
) *PaymentService {
	return &PaymentService{
		bookings: bookings,
		payments: payments,
		checker:  booking.NewChecker(bookings),
		provider: provider,
		events:   events,
		cfg:      cfg,
		log:      log,
		now:      time.Now,
	}
}

// InitiateCheckout opens a hosted checkout for a pending booking. The payment row it
// creates is deleted again when the provider call fails.
func (s *PaymentService) InitiateCheckout(ctx context.Context, bookingID, amountCents int64) (*CheckoutHandle, error) {
	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.Status != domain.BookingStatusPending {
		return nil, fmt.Errorf("booking %d is %s: %w", b.ID, b.Status, domain.ErrConflict)
	}
	if amountCents != b.TotalPriceCents {
		return nil, domain.NewValidationError("amount", fmt.Sprintf("amount must equal the booking total of %d", b.TotalPriceCents))
	}

	free, err := s.checker.IsAvailable(ctx, b.CarID, b.Range())
	if err != nil {
		return nil, err
	}
	if !free {
		return nil, fmt.Errorf("car %d is already booked for %s: %w", b.CarID, b.Range(), domain.ErrConflict)
	}

	p := &domain.Payment{
		BookingID:   b.ID,
		AmountCents: amountCents,
		Method:      domain.PaymentMethodCheckout,
	}
	if err := s.payments.Create(ctx, p); err != nil {
		return nil, err
	}

	session, err := s.provider.CreateCheckoutSession(ctx, gateway.CheckoutRequest{
		AmountCents: amountCents,
		Currency:    s.cfg.Currency,
		Description: fmt.Sprintf("Car rental #%d %s", b.ID, b.Range()),
		Metadata: map[string]string{
			"payment_id": strconv.FormatInt(p.ID, 10),
			"booking_id": strconv.FormatInt(b.ID, 10),
		},
		SuccessURL: appendQuery(s.cfg.SuccessURL, "session_id", gateway.SessionPlaceholder),
		CancelURL:  appendQuery(s.cfg.CancelURL, "payment_id", strconv.FormatInt(p.ID, 10)),
	})
	if err != nil {
		s.rollbackPayment(ctx, p.ID)
		return nil, fmt.Errorf("%w: %w", domain.ErrExternalService, err)
	}

	if err := s.payments.AttachSession(ctx, p.ID, session.ID); err != nil {
		s.rollbackPayment(ctx, p.ID)
		return nil, fmt.Errorf("store checkout session: %w", err)
	}

	s.log.Info("checkout started",
		zap.Int64("payment_id", p.ID),
		zap.Int64("booking_id", b.ID),
		zap.String("session_ref", session.ID))
	return &CheckoutHandle{PaymentID: p.ID, SessionRef: session.ID, RedirectURL: session.URL}, nil
}

func (s *PaymentService) rollbackPayment(ctx context.Context, id int64) {
	if err := s.payments.Delete(context.WithoutCancel(ctx), id); err != nil {
		s.log.Error("delete payment after failed checkout", zap.Int64("payment_id", id), zap.Error(err))
	}
}

// Reconcile asks the provider for the state of a checkout session and applies it. It is
// safe to call repeatedly; a payment already paid is reported as is.
func (s *PaymentService) Reconcile(ctx context.Context, sessionRef string) (*ReconciliationResult, error) {
	p, err := s.payments.GetBySessionRef(ctx, sessionRef)
	if err != nil {
		return nil, err
	}
	if p.Status == domain.PaymentStatusPaid {
		b, err := s.bookings.GetByID(ctx, p.BookingID)
		if err != nil {
			return nil, err
		}
		return result(p, b, gateway.SessionPaid), nil
	}

	state, err := s.provider.GetSessionStatus(ctx, sessionRef)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrExternalService, err)
	}

	switch state.Status {
	case gateway.SessionPaid:
		last4 := s.cardLast4(ctx, state.PaymentReference)
		out, err := s.payments.Settle(ctx, p.ID, state.PaymentReference, last4)
		if err != nil {
			if errors.Is(err, domain.ErrConflict) {
				s.log.Error("paid checkout could not confirm booking",
					zap.Int64("payment_id", p.ID),
					zap.Int64("booking_id", p.BookingID),
					zap.Error(err))
			}
			return nil, err
		}
		if out.BookingConfirmed {
			s.events.BookingChanged(ctx, kafka.EventBookingConfirmed, out.Booking)
		}
		s.log.Info("payment settled", zap.Int64("payment_id", p.ID), zap.Bool("applied", out.Applied))
		return result(out.Payment, out.Booking, state.Status), nil

	case gateway.SessionExpired:
		out, err := s.payments.Void(ctx, p.ID, domain.PaymentStatusCancelled)
		if err != nil {
			return nil, err
		}
		s.cancelled(ctx, out)
		return result(out.Payment, out.Booking, state.Status), nil

	case gateway.SessionOpen:
		b, err := s.bookings.GetByID(ctx, p.BookingID)
		if err != nil {
			return nil, err
		}
		return result(p, b, state.Status), nil

	default:
		return nil, fmt.Errorf("%w: unknown session status %q", domain.ErrExternalService, state.Status)
	}
}

// cardLast4 never fails; a missing summary only means the receipt has no card digits.
func (s *PaymentService) cardLast4(ctx context.Context, paymentRef string) string {
	if paymentRef == "" {
		return ""
	}
	summary, err := s.provider.GetInstrumentSummary(ctx, paymentRef)
	if err != nil {
		s.log.Warn("fetch instrument summary", zap.String("payment_ref", paymentRef), zap.Error(err))
		return ""
	}
	return summary.Last4
}

// Cancel voids a pending payment. Any other status is left alone.
func (s *PaymentService) Cancel(ctx context.Context, paymentID int64) (*domain.Payment, error) {
	out, err := s.payments.Void(ctx, paymentID, domain.PaymentStatusCancelled)
	if err != nil {
		return nil, err
	}
	s.cancelled(ctx, out)
	return out.Payment, nil
}

func (s *PaymentService) cancelled(ctx context.Context, out *repository.PaymentOutcome) {
	if !out.Applied {
		return
	}
	s.log.Info("payment voided", zap.Int64("payment_id", out.Payment.ID), zap.String("status", string(out.Payment.Status)))
	if out.Booking != nil && out.Booking.Status == domain.BookingStatusCancelled {
		s.events.BookingChanged(ctx, kafka.EventBookingCancelled, out.Booking)
	}
}

// SweepStale reconciles pending checkouts untouched for olderThan. The provider decides;
// a checkout nobody came back from stays pending until the provider expires it. Payments
// left pending are marked polled so the next batch reaches newer ones.
func (s *PaymentService) SweepStale(ctx context.Context, olderThan time.Duration) (*SweepReport, error) {
	stale, err := s.payments.ListStalePending(ctx, s.now().Add(-olderThan), sweepBatch)
	if err != nil {
		return nil, err
	}

	report := &SweepReport{}
	for _, p := range stale {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		report.Checked++

		res, err := s.Reconcile(ctx, p.SessionRef)
		if err != nil {
			report.Failed++
			s.log.Warn("reconcile stale payment", zap.Int64("payment_id", p.ID), zap.Error(err))
			s.markPolled(ctx, p.ID)
			continue
		}
		switch res.PaymentStatus {
		case domain.PaymentStatusPaid:
			report.Paid++
		case domain.PaymentStatusCancelled, domain.PaymentStatusFailed:
			report.Cancelled++
		case domain.PaymentStatusPending:
			s.markPolled(ctx, p.ID)
		}
	}
	return report, nil
}

func (s *PaymentService) markPolled(ctx context.Context, id int64) {
	if err := s.payments.MarkPolled(ctx, id); err != nil {
		s.log.Warn("mark payment polled", zap.Int64("payment_id", id), zap.Error(err))
	}
}

func result(p *domain.Payment, b *domain.Booking, providerStatus gateway.SessionStatus) *ReconciliationResult {
	res := &ReconciliationResult{
		PaymentID:      p.ID,
		BookingID:      p.BookingID,
		PaymentStatus:  p.Status,
		ProviderStatus: providerStatus,
		Paid:           p.Status == domain.PaymentStatusPaid,
	}
	if b != nil {
		res.BookingStatus = b.Status
	}
	return res
}

// appendQuery adds key=value to base without escaping value, so provider placeholders
// survive.
func appendQuery(base, key, value string) string {
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + key + "=" + value
}

var _ PaymentUseCase = (*PaymentService)(nil)

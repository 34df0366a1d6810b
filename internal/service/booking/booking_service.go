package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/carrental/internal/domain"
	"github.com/Domenick1991/carrental/internal/kafka"
	"github.com/Domenick1991/carrental/internal/repository"
	"go.uber.org/zap"
)

type BookingUseCase interface {
	DraftScreen(ctx context.Context, carID int64) (*DraftScreen, error)
	Propose(ctx context.Context, sessionID string, input ProposeInput) (*domain.Draft, error)
	PayScreen(ctx context.Context, sessionID string) (*PayScreen, error)
	Materialize(ctx context.Context, sessionID, userID string) (*domain.Booking, error)
	MyBookings(ctx context.Context, userID string) ([]domain.Booking, error)
	Confirmation(ctx context.Context, userID string, bookingID int64) (*Confirmation, error)
	List(ctx context.Context) ([]domain.Booking, error)
	Approve(ctx context.Context, id int64) (*domain.Booking, error)
	Reject(ctx context.Context, id int64) (*domain.Booking, error)
}

type DraftStore interface {
	SaveDraft(ctx context.Context, sessionID string, draft *domain.Draft, ttl time.Duration) error
	GetDraft(ctx context.Context, sessionID string) (*domain.Draft, error)
	DeleteDraft(ctx context.Context, sessionID string) error
}

type Catalog interface {
	GetByID(ctx context.Context, id int64) (*domain.Car, error)
}

type PaymentReader interface {
	LatestForBooking(ctx context.Context, bookingID int64) (*domain.Payment, error)
}

type ProposeInput struct {
	CarID     int64
	StartDate time.Time
	EndDate   time.Time
}

type DraftScreen struct {
	Car           *domain.Car
	EarliestStart time.Time
}

type PayScreen struct {
	Draft *domain.Draft
	Car   *domain.Car
}

// Confirmation is a booking with its most recent payment, nil when checkout never
// started.
type Confirmation struct {
	Booking *domain.Booking
	Payment *domain.Payment
}

type BookingService struct {
	bookings repository.BookingRepository
	payments PaymentReader
	cars     Catalog
	drafts   DraftStore
	checker  *Checker
	events   *EventPublisher
	draftTTL time.Duration
	log      *zap.Logger
	now      func() time.Time
}

type BookingServiceOption func(*BookingService)

func WithClock(now func() time.Time) BookingServiceOption {
	return func(s *BookingService) {
		s.now = now
	}
}

func NewBookingService(
	bookings repository.BookingRepository,
	payments PaymentReader,
	cars Catalog,
	drafts DraftStore,
	events *EventPublisher,
	draftTTL time.Duration,
	log *zap.Logger,
	opts ...BookingServiceOption,
) *BookingService {
	service := &BookingService{
		bookings: bookings,
		payments: payments,
		cars:     cars,
		drafts:   drafts,
		checker:  NewChecker(bookings),
		events:   events,
		draftTTL: draftTTL,
		log:      log,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

func (s *BookingService) today() time.Time {
	return domain.Date(s.now())
}

func (s *BookingService) DraftScreen(ctx context.Context, carID int64) (*DraftScreen, error) {
	car, err := s.cars.GetByID(ctx, carID)
	if err != nil {
		return nil, err
	}

	earliest := s.today()
	latest, err := s.bookings.LatestConfirmedEnd(ctx, carID)
	if err != nil {
		return nil, err
	}
	if latest != nil && latest.After(earliest) {
		earliest = domain.Date(*latest)
	}
	return &DraftScreen{Car: car, EarliestStart: earliest}, nil
}

// Propose validates a requested rental and stores it as the session's only draft. Checks
// run in a fixed order and stop at the first failure.
func (s *BookingService) Propose(ctx context.Context, sessionID string, input ProposeInput) (*domain.Draft, error) {
	if sessionID == "" {
		return nil, domain.ErrSessionExpired
	}

	car, err := s.cars.GetByID(ctx, input.CarID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NewValidationError("car_id", "car does not exist")
		}
		return nil, err
	}
	if !car.Available {
		return nil, domain.NewValidationError("car_id", "car is not available for rent")
	}

	r := domain.NewDateRange(input.StartDate, input.EndDate)
	free, err := s.checker.IsAvailable(ctx, car.ID, r)
	if err != nil {
		return nil, err
	}
	if !free {
		return nil, fmt.Errorf("car %d is already booked for %s: %w", car.ID, r, domain.ErrConflict)
	}
	if !r.Valid() {
		return nil, domain.NewValidationError("end_date", "end date must be after start date")
	}
	if r.Start.Before(s.today()) {
		return nil, domain.NewValidationError("start_date", "start date cannot be in the past")
	}

	days := r.Days()
	if days < 1 {
		return nil, domain.NewValidationError("end_date", "rental must last at least one day")
	}

	draft := &domain.Draft{
		CarID:           car.ID,
		StartDate:       r.Start,
		EndDate:         r.End,
		Days:            days,
		TotalPriceCents: int64(days) * car.PriceCents,
	}
	if err := s.drafts.SaveDraft(ctx, sessionID, draft, s.draftTTL); err != nil {
		return nil, fmt.Errorf("save draft: %w", err)
	}
	return draft, nil
}

func (s *BookingService) loadDraft(ctx context.Context, sessionID string) (*domain.Draft, error) {
	if sessionID == "" {
		return nil, domain.ErrSessionExpired
	}
	draft, err := s.drafts.GetDraft(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load draft: %w", err)
	}
	if draft == nil {
		return nil, domain.ErrSessionExpired
	}
	return draft, nil
}

// recheck verifies the drafted dates have not slipped into the past and the drafted car
// is still rentable for them.
func (s *BookingService) recheck(ctx context.Context, draft *domain.Draft) (*domain.Car, error) {
	if draft.StartDate.Before(s.today()) {
		return nil, domain.NewValidationError("start_date", "start date cannot be in the past")
	}

	car, err := s.cars.GetByID(ctx, draft.CarID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("car %d was removed: %w", draft.CarID, domain.ErrConflict)
		}
		return nil, err
	}
	if !car.Available {
		return nil, fmt.Errorf("car %d is no longer available: %w", car.ID, domain.ErrConflict)
	}

	free, err := s.checker.IsAvailable(ctx, car.ID, draft.Range())
	if err != nil {
		return nil, err
	}
	if !free {
		return nil, fmt.Errorf("car %d is already booked for %s: %w", car.ID, draft.Range(), domain.ErrConflict)
	}
	return car, nil
}

// PayScreen shows the session's draft. The draft stays in place for Materialize.
func (s *BookingService) PayScreen(ctx context.Context, sessionID string) (*PayScreen, error) {
	draft, err := s.loadDraft(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	car, err := s.recheck(ctx, draft)
	if err != nil {
		return nil, err
	}
	return &PayScreen{Draft: draft, Car: car}, nil
}

// Materialize turns the session's draft into a pending booking for userID. A draft that
// fails the re-check is discarded.
func (s *BookingService) Materialize(ctx context.Context, sessionID, userID string) (*domain.Booking, error) {
	if userID == "" {
		return nil, domain.NewValidationError("user_id", "user is required")
	}
	draft, err := s.loadDraft(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if _, err := s.recheck(ctx, draft); err != nil {
		var verr *domain.ValidationError
		if errors.Is(err, domain.ErrConflict) || errors.As(err, &verr) {
			s.discardDraft(ctx, sessionID)
		}
		return nil, err
	}

	booking := &domain.Booking{
		UserID:          userID,
		CarID:           draft.CarID,
		StartDate:       draft.StartDate,
		EndDate:         draft.EndDate,
		TotalPriceCents: draft.TotalPriceCents,
	}
	if err := s.bookings.CreatePending(ctx, booking); err != nil {
		return nil, err
	}
	s.discardDraft(ctx, sessionID)

	s.log.Info("booking created",
		zap.Int64("booking_id", booking.ID),
		zap.Int64("car_id", booking.CarID),
		zap.String("range", booking.Range().String()))
	s.events.BookingChanged(ctx, kafka.EventBookingCreated, booking)
	return booking, nil
}

func (s *BookingService) discardDraft(ctx context.Context, sessionID string) {
	if err := s.drafts.DeleteDraft(ctx, sessionID); err != nil {
		s.log.Warn("delete draft", zap.Error(err))
	}
}

func (s *BookingService) MyBookings(ctx context.Context, userID string) ([]domain.Booking, error) {
	if userID == "" {
		return nil, domain.NewValidationError("user_id", "user is required")
	}
	return s.bookings.ListByUser(ctx, userID)
}

// Confirmation is only visible to the booking owner; anyone else gets ErrNotFound.
func (s *BookingService) Confirmation(ctx context.Context, userID string, bookingID int64) (*Confirmation, error) {
	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.UserID != userID {
		return nil, fmt.Errorf("booking %d: %w", bookingID, domain.ErrNotFound)
	}

	p, err := s.payments.LatestForBooking(ctx, bookingID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		p = nil
	case err != nil:
		return nil, err
	}
	return &Confirmation{Booking: b, Payment: p}, nil
}

func (s *BookingService) List(ctx context.Context) ([]domain.Booking, error) {
	return s.bookings.List(ctx)
}

// Approve and Reject set the administrative label. The lifecycle status and payments
// are left alone, so a confirmed booking keeps its car.
func (s *BookingService) Approve(ctx context.Context, id int64) (*domain.Booking, error) {
	return s.label(ctx, id, domain.BookingStatusApproved, kafka.EventBookingApproved)
}

func (s *BookingService) Reject(ctx context.Context, id int64) (*domain.Booking, error) {
	return s.label(ctx, id, domain.BookingStatusRejected, kafka.EventBookingRejected)
}

func (s *BookingService) label(ctx context.Context, id int64, label domain.BookingStatus, eventType string) (*domain.Booking, error) {
	b, err := s.bookings.SetAdminLabel(ctx, id, label)
	if err != nil {
		return nil, err
	}
	s.log.Info("booking labelled", zap.Int64("booking_id", id), zap.String("label", string(label)), zap.String("status", string(b.Status)))
	s.events.BookingChanged(ctx, eventType, b)
	return b, nil
}

var _ BookingUseCase = (*BookingService)(nil)

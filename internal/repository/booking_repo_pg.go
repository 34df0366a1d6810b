package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Domenick1991/carrental/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type BookingRepository interface {
	CreatePending(ctx context.Context, booking *domain.Booking) error
	GetByID(ctx context.Context, id int64) (*domain.Booking, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Booking, error)
	List(ctx context.Context) ([]domain.Booking, error)
	HasConfirmedOverlap(ctx context.Context, carID int64, r domain.DateRange) (bool, error)
	LatestConfirmedEnd(ctx context.Context, carID int64) (*time.Time, error)
	SetAdminLabel(ctx context.Context, id int64, label domain.BookingStatus) (*domain.Booking, error)
}

type PGBookingRepository struct {
	db *pgxpool.Pool
}

func NewBookingRepository(db *pgxpool.Pool) BookingRepository {
	return &PGBookingRepository{db: db}
}

const bookingColumns = `id, user_id, car_id, start_date, end_date, total_price_cents, status, COALESCE(admin_label, ''), created_at, updated_at`

func scanBooking(row pgx.Row) (*domain.Booking, error) {
	var b domain.Booking
	if err := row.Scan(&b.ID, &b.UserID, &b.CarID, &b.StartDate, &b.EndDate, &b.TotalPriceCents, &b.Status, &b.AdminLabel, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	return &b, nil
}

func collectBookings(rows pgx.Rows) ([]domain.Booking, error) {
	defer rows.Close()

	bookings := make([]domain.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}

func (r *PGBookingRepository) CreatePending(ctx context.Context, booking *domain.Booking) error {
	booking.Status = domain.BookingStatusPending
	err := r.db.QueryRow(ctx, `INSERT INTO bookings (user_id, car_id, start_date, end_date, total_price_cents, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`,
		booking.UserID, booking.CarID, booking.StartDate, booking.EndDate, booking.TotalPriceCents, booking.Status).
		Scan(&booking.ID, &booking.CreatedAt, &booking.UpdatedAt)
	return mapError(err, "create booking")
}

func (r *PGBookingRepository) GetByID(ctx context.Context, id int64) (*domain.Booking, error) {
	b, err := scanBooking(r.db.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id=$1`, id))
	if err != nil {
		return nil, mapError(err, "get booking")
	}
	return b, nil
}

func (r *PGBookingRepository) ListByUser(ctx context.Context, userID string) ([]domain.Booking, error) {
	rows, err := r.db.Query(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE user_id=$1 ORDER BY start_date DESC`, userID)
	if err != nil {
		return nil, err
	}
	return collectBookings(rows)
}

func (r *PGBookingRepository) List(ctx context.Context) ([]domain.Booking, error) {
	rows, err := r.db.Query(ctx, `SELECT `+bookingColumns+` FROM bookings ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	return collectBookings(rows)
}

func (r *PGBookingRepository) HasConfirmedOverlap(ctx context.Context, carID int64, dr domain.DateRange) (bool, error) {
	return confirmedOverlapExists(ctx, r.db, carID, dr, 0)
}

func (r *PGBookingRepository) LatestConfirmedEnd(ctx context.Context, carID int64) (*time.Time, error) {
	var end *time.Time
	err := r.db.QueryRow(ctx, `SELECT max(end_date) FROM bookings WHERE car_id=$1 AND status=$2 AND end_date >= current_date`,
		carID, domain.BookingStatusConfirmed).Scan(&end)
	if err != nil {
		return nil, err
	}
	return end, nil
}

// SetAdminLabel records an administrative label. The lifecycle status, and with it the
// car's confirmed hold, is left as it is.
func (r *PGBookingRepository) SetAdminLabel(ctx context.Context, id int64, label domain.BookingStatus) (*domain.Booking, error) {
	if label != domain.BookingStatusApproved && label != domain.BookingStatusRejected {
		return nil, fmt.Errorf("status %s is not an administrative label", label)
	}
	b, err := scanBooking(r.db.QueryRow(ctx, `UPDATE bookings SET admin_label=$1, updated_at=now() WHERE id=$2 RETURNING `+bookingColumns, label, id))
	if err != nil {
		return nil, mapError(err, "set booking label")
	}
	return b, nil
}

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// confirmedOverlapExists checks the half-open overlap start < b.end AND end > b.start
// against confirmed bookings of the car, ignoring excludeID.
func confirmedOverlapExists(ctx context.Context, q querier, carID int64, dr domain.DateRange, excludeID int64) (bool, error) {
	var exists bool
	err := q.QueryRow(ctx, `SELECT EXISTS (
			SELECT 1 FROM bookings
			WHERE car_id=$1 AND status=$2 AND id<>$3 AND $4::date < end_date AND $5::date > start_date
		)`, carID, domain.BookingStatusConfirmed, excludeID, dr.Start, dr.End).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check overlap: %w", err)
	}
	return exists, nil
}

// confirmBookingTx moves a locked pending booking to confirmed inside tx. Confirms for
// the same car are serialised with a transaction scoped advisory lock so two overlapping
// confirmations cannot both see an empty overlap set.
func confirmBookingTx(ctx context.Context, tx pgx.Tx, b *domain.Booking) (*domain.Booking, error) {
	if !b.Status.CanTransitionTo(domain.BookingStatusConfirmed, domain.TriggerPayment) {
		return nil, fmt.Errorf("booking %d is %s: %w", b.ID, b.Status, domain.ErrConflict)
	}
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended('car:' || $1::text, 0))`, b.CarID); err != nil {
		return nil, fmt.Errorf("lock car %d: %w", b.CarID, err)
	}

	overlap, err := confirmedOverlapExists(ctx, tx, b.CarID, b.Range(), b.ID)
	if err != nil {
		return nil, err
	}
	if overlap {
		return nil, fmt.Errorf("car %d is already booked for %s: %w", b.CarID, b.Range(), domain.ErrConflict)
	}

	updated, err := scanBooking(tx.QueryRow(ctx, `UPDATE bookings SET status=$1, updated_at=now() WHERE id=$2 AND status=$3 RETURNING `+bookingColumns,
		domain.BookingStatusConfirmed, b.ID, domain.BookingStatusPending))
	if err != nil {
		return nil, mapError(err, "confirm booking")
	}
	return updated, nil
}

func lockBooking(ctx context.Context, tx pgx.Tx, id int64) (*domain.Booking, error) {
	b, err := scanBooking(tx.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id=$1 FOR UPDATE`, id))
	if err != nil {
		return nil, mapError(err, "lock booking")
	}
	return b, nil
}

var _ BookingRepository = (*PGBookingRepository)(nil)

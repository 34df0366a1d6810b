package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/carrental/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PaymentOutcome is the state of a payment and its booking after a settle or void.
// Applied is false when the call found the payment already past pending and changed
// nothing.
type PaymentOutcome struct {
	Payment          *domain.Payment
	Booking          *domain.Booking
	Applied          bool
	BookingConfirmed bool
}

type PaymentRepository interface {
	Create(ctx context.Context, payment *domain.Payment) error
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (*domain.Payment, error)
	GetBySessionRef(ctx context.Context, sessionRef string) (*domain.Payment, error)
	LatestForBooking(ctx context.Context, bookingID int64) (*domain.Payment, error)
	AttachSession(ctx context.Context, id int64, sessionRef string) error
	Settle(ctx context.Context, id int64, transactionRef, cardLast4 string) (*PaymentOutcome, error)
	Void(ctx context.Context, id int64, status domain.PaymentStatus) (*PaymentOutcome, error)
	ListStalePending(ctx context.Context, before time.Time, limit int) ([]domain.Payment, error)
	MarkPolled(ctx context.Context, id int64) error
}

type PGPaymentRepository struct {
	db *pgxpool.Pool
}

func NewPaymentRepository(db *pgxpool.Pool) PaymentRepository {
	return &PGPaymentRepository{db: db}
}

const paymentColumns = `id, booking_id, amount_cents, method, status, COALESCE(session_ref, ''), COALESCE(transaction_ref, ''), COALESCE(card_last4, ''), created_at, updated_at`

func scanPayment(row pgx.Row) (*domain.Payment, error) {
	var p domain.Payment
	if err := row.Scan(&p.ID, &p.BookingID, &p.AmountCents, &p.Method, &p.Status, &p.SessionRef, &p.TransactionRef, &p.CardLast4, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PGPaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	payment.Status = domain.PaymentStatusPending
	err := r.db.QueryRow(ctx, `INSERT INTO payments (booking_id, amount_cents, method, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`,
		payment.BookingID, payment.AmountCents, payment.Method, payment.Status).
		Scan(&payment.ID, &payment.CreatedAt, &payment.UpdatedAt)
	return mapError(err, "create payment")
}

func (r *PGPaymentRepository) Delete(ctx context.Context, id int64) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM payments WHERE id=$1 AND status=$2`, id, domain.PaymentStatusPending)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("delete payment %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (r *PGPaymentRepository) GetByID(ctx context.Context, id int64) (*domain.Payment, error) {
	p, err := scanPayment(r.db.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id=$1`, id))
	if err != nil {
		return nil, mapError(err, "get payment")
	}
	return p, nil
}

func (r *PGPaymentRepository) GetBySessionRef(ctx context.Context, sessionRef string) (*domain.Payment, error) {
	p, err := scanPayment(r.db.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE session_ref=$1`, sessionRef))
	if err != nil {
		return nil, mapError(err, "get payment by session")
	}
	return p, nil
}

func (r *PGPaymentRepository) LatestForBooking(ctx context.Context, bookingID int64) (*domain.Payment, error) {
	p, err := scanPayment(r.db.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE booking_id=$1 ORDER BY created_at DESC, id DESC LIMIT 1`, bookingID))
	if err != nil {
		return nil, mapError(err, "latest payment")
	}
	return p, nil
}

// AttachSession stores the provider session reference. It never overwrites one that
// is already set.
func (r *PGPaymentRepository) AttachSession(ctx context.Context, id int64, sessionRef string) error {
	cmd, err := r.db.Exec(ctx, `UPDATE payments SET session_ref=$2, updated_at=now() WHERE id=$1 AND session_ref IS NULL`, id, sessionRef)
	if err != nil {
		return mapError(err, "attach session")
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("attach session to payment %d: %w", id, domain.ErrConflict)
	}
	return nil
}

// Settle marks a pending payment paid and confirms its pending booking in one
// transaction. A booking conflict rolls back both rows. Settling an already paid
// payment is a no-op.
func (r *PGPaymentRepository) Settle(ctx context.Context, id int64, transactionRef, cardLast4 string) (*PaymentOutcome, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	p, err := lockPayment(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	b, err := lockBooking(ctx, tx, p.BookingID)
	if err != nil {
		return nil, err
	}

	switch p.Status {
	case domain.PaymentStatusPaid:
		return &PaymentOutcome{Payment: p, Booking: b}, tx.Commit(ctx)
	case domain.PaymentStatusCancelled, domain.PaymentStatusFailed:
		return nil, fmt.Errorf("payment %d is %s: %w", p.ID, p.Status, domain.ErrConflict)
	case domain.PaymentStatusPending:
	default:
		return nil, fmt.Errorf("payment %d has unknown status %q", p.ID, p.Status)
	}

	out := &PaymentOutcome{Booking: b, Applied: true}
	if b.Status == domain.BookingStatusPending {
		confirmed, err := confirmBookingTx(ctx, tx, b)
		if err != nil {
			return nil, err
		}
		out.Booking = confirmed
		out.BookingConfirmed = true
	}

	out.Payment, err = scanPayment(tx.QueryRow(ctx, `UPDATE payments
		SET status=$2,
		    transaction_ref=COALESCE(transaction_ref, NULLIF($3, '')),
		    card_last4=COALESCE(NULLIF($4, ''), card_last4),
		    updated_at=now()
		WHERE id=$1 AND status=$5
		RETURNING `+paymentColumns, p.ID, domain.PaymentStatusPaid, transactionRef, cardLast4, domain.PaymentStatusPending))
	if err != nil {
		return nil, mapError(err, "mark payment paid")
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, mapError(err, "commit settle")
	}
	return out, nil
}

// Void moves a pending payment to status (cancelled or failed). Its booking is cancelled
// too when it is still pending and no other live payment remains for it. Payments that
// are no longer pending are left untouched.
func (r *PGPaymentRepository) Void(ctx context.Context, id int64, status domain.PaymentStatus) (*PaymentOutcome, error) {
	if status != domain.PaymentStatusCancelled && status != domain.PaymentStatusFailed {
		return nil, fmt.Errorf("cannot void payment into %s", status)
	}

	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	p, err := lockPayment(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	b, err := lockBooking(ctx, tx, p.BookingID)
	if err != nil {
		return nil, err
	}
	if p.Status != domain.PaymentStatusPending {
		return &PaymentOutcome{Payment: p, Booking: b}, tx.Commit(ctx)
	}

	out := &PaymentOutcome{Booking: b, Applied: true}
	out.Payment, err = scanPayment(tx.QueryRow(ctx, `UPDATE payments SET status=$2, updated_at=now() WHERE id=$1 RETURNING `+paymentColumns, p.ID, status))
	if err != nil {
		return nil, mapError(err, "void payment")
	}

	if b.Status.CanTransitionTo(domain.BookingStatusCancelled, domain.TriggerPayment) {
		cancelled, err := scanBooking(tx.QueryRow(ctx, `UPDATE bookings SET status=$2, updated_at=now()
			WHERE id=$1 AND status=$3 AND NOT EXISTS (
				SELECT 1 FROM payments WHERE booking_id=$1 AND status IN ($4, $5)
			)
			RETURNING `+bookingColumns, b.ID, domain.BookingStatusCancelled, domain.BookingStatusPending, domain.PaymentStatusPending, domain.PaymentStatusPaid))
		switch {
		case err == nil:
			out.Booking = cancelled
		case !errors.Is(err, pgx.ErrNoRows):
			return nil, mapError(err, "cancel booking")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return out, nil
}

// ListStalePending returns pending checkouts untouched since before, least recently
// touched first.
func (r *PGPaymentRepository) ListStalePending(ctx context.Context, before time.Time, limit int) ([]domain.Payment, error) {
	rows, err := r.db.Query(ctx, `SELECT `+paymentColumns+` FROM payments
		WHERE status=$1 AND session_ref IS NOT NULL AND updated_at < $2
		ORDER BY updated_at, id
		LIMIT $3`, domain.PaymentStatusPending, before, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	payments := make([]domain.Payment, 0)
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, *p)
	}
	return payments, rows.Err()
}

// MarkPolled moves a still pending payment to the back of the sweep queue.
func (r *PGPaymentRepository) MarkPolled(ctx context.Context, id int64) error {
	_, err := r.db.Exec(ctx, `UPDATE payments SET updated_at=now() WHERE id=$1 AND status=$2`, id, domain.PaymentStatusPending)
	return err
}

func lockPayment(ctx context.Context, tx pgx.Tx, id int64) (*domain.Payment, error) {
	p, err := scanPayment(tx.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id=$1 FOR UPDATE`, id))
	if err != nil {
		return nil, mapError(err, "lock payment")
	}
	return p, nil
}

var _ PaymentRepository = (*PGPaymentRepository)(nil)

package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Domenick1991/carrental/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
)

func newTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	ctr, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("rental"),
		tcpostgres.WithUsername("rental"),
		tcpostgres.WithPassword("rental"),
		tcpostgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, Migrate(ctx, pool))
	return pool
}

func seedCar(t *testing.T, pool *pgxpool.Pool, priceCents int64) int64 {
	t.Helper()
	var id int64
	err := pool.QueryRow(context.Background(),
		`INSERT INTO cars (brand, model, year, plate_number, price_cents) VALUES ('Toyota', 'Corolla', 2022, $1, $2) RETURNING id`,
		time.Now().Format("150405.000000"), priceCents).Scan(&id)
	require.NoError(t, err)
	return id
}

func date(s string) time.Time {
	d, err := domain.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func pendingWithPayment(t *testing.T, bookings BookingRepository, payments PaymentRepository, carID int64, start, end string, ref string) (*domain.Booking, *domain.Payment) {
	t.Helper()
	ctx := context.Background()
	b := &domain.Booking{UserID: "user-1", CarID: carID, StartDate: date(start), EndDate: date(end), TotalPriceCents: 10000}
	require.NoError(t, bookings.CreatePending(ctx, b))

	p := &domain.Payment{BookingID: b.ID, AmountCents: b.TotalPriceCents, Method: domain.PaymentMethodCheckout}
	require.NoError(t, payments.Create(ctx, p))
	require.NoError(t, payments.AttachSession(ctx, p.ID, ref))
	return b, p
}

func TestPostgres_SettleConfirmsOnceAndIsIdempotent(t *testing.T) {
	pool := newTestPool(t)
	ctx := context.Background()
	bookings := NewBookingRepository(pool)
	payments := NewPaymentRepository(pool)
	carID := seedCar(t, pool, 5000)

	b, p := pendingWithPayment(t, bookings, payments, carID, "2030-06-05", "2030-06-07", "cs_1")

	out, err := payments.Settle(ctx, p.ID, "pi_1", "4242")
	require.NoError(t, err)
	assert.True(t, out.Applied)
	assert.True(t, out.BookingConfirmed)
	assert.Equal(t, domain.PaymentStatusPaid, out.Payment.Status)
	assert.Equal(t, "pi_1", out.Payment.TransactionRef)
	assert.Equal(t, domain.BookingStatusConfirmed, out.Booking.Status)

	again, err := payments.Settle(ctx, p.ID, "pi_other", "")
	require.NoError(t, err)
	assert.False(t, again.Applied)
	assert.Equal(t, "pi_1", again.Payment.TransactionRef)
	assert.Equal(t, domain.BookingStatusConfirmed, again.Booking.Status)

	stored, err := bookings.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusConfirmed, stored.Status)
}

func TestPostgres_ConcurrentOverlappingSettlesOnlyOneWins(t *testing.T) {
	pool := newTestPool(t)
	ctx := context.Background()
	bookings := NewBookingRepository(pool)
	payments := NewPaymentRepository(pool)
	carID := seedCar(t, pool, 5000)

	_, p1 := pendingWithPayment(t, bookings, payments, carID, "2030-06-01", "2030-06-05", "cs_a")
	_, p2 := pendingWithPayment(t, bookings, payments, carID, "2030-06-03", "2030-06-07", "cs_b")

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, id := range []int64{p1.ID, p2.ID} {
		wg.Add(1)
		go func(i int, id int64) {
			defer wg.Done()
			_, errs[i] = payments.Settle(ctx, id, "pi", "")
		}(i, id)
	}
	wg.Wait()

	var ok, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, domain.ErrConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, conflicts)

	overlap, err := bookings.HasConfirmedOverlap(ctx, carID, domain.NewDateRange(date("2030-06-03"), date("2030-06-04")))
	require.NoError(t, err)
	assert.True(t, overlap)
}

func TestPostgres_AdjacentRangesDoNotOverlap(t *testing.T) {
	pool := newTestPool(t)
	ctx := context.Background()
	bookings := NewBookingRepository(pool)
	payments := NewPaymentRepository(pool)
	carID := seedCar(t, pool, 5000)

	_, p := pendingWithPayment(t, bookings, payments, carID, "2030-06-01", "2030-06-05", "cs_adj")
	_, err := payments.Settle(ctx, p.ID, "pi", "")
	require.NoError(t, err)

	overlap, err := bookings.HasConfirmedOverlap(ctx, carID, domain.NewDateRange(date("2030-06-05"), date("2030-06-07")))
	require.NoError(t, err)
	assert.False(t, overlap)

	end, err := bookings.LatestConfirmedEnd(ctx, carID)
	require.NoError(t, err)
	require.NotNil(t, end)
	assert.True(t, end.Equal(date("2030-06-05")))
}

func TestPostgres_VoidOnlyTouchesPending(t *testing.T) {
	pool := newTestPool(t)
	ctx := context.Background()
	bookings := NewBookingRepository(pool)
	payments := NewPaymentRepository(pool)
	carID := seedCar(t, pool, 5000)

	b, p := pendingWithPayment(t, bookings, payments, carID, "2030-07-01", "2030-07-03", "cs_void")

	out, err := payments.Void(ctx, p.ID, domain.PaymentStatusCancelled)
	require.NoError(t, err)
	assert.True(t, out.Applied)
	assert.Equal(t, domain.PaymentStatusCancelled, out.Payment.Status)
	assert.Equal(t, domain.BookingStatusCancelled, out.Booking.Status)

	again, err := payments.Void(ctx, p.ID, domain.PaymentStatusCancelled)
	require.NoError(t, err)
	assert.False(t, again.Applied)

	_, err = payments.Settle(ctx, p.ID, "pi", "")
	assert.ErrorIs(t, err, domain.ErrConflict)

	stored, err := bookings.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusCancelled, stored.Status)
}

func TestPostgres_AttachSessionIsWriteOnce(t *testing.T) {
	pool := newTestPool(t)
	ctx := context.Background()
	bookings := NewBookingRepository(pool)
	payments := NewPaymentRepository(pool)
	carID := seedCar(t, pool, 5000)

	_, p := pendingWithPayment(t, bookings, payments, carID, "2030-08-01", "2030-08-03", "cs_once")

	err := payments.AttachSession(ctx, p.ID, "cs_twice")
	assert.ErrorIs(t, err, domain.ErrConflict)

	found, err := payments.GetBySessionRef(ctx, "cs_once")
	require.NoError(t, err)
	assert.Equal(t, p.ID, found.ID)

	_, err = payments.GetBySessionRef(ctx, "cs_twice")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPostgres_ApprovedConfirmedBookingStillBlocksCar(t *testing.T) {
	pool := newTestPool(t)
	ctx := context.Background()
	bookings := NewBookingRepository(pool)
	payments := NewPaymentRepository(pool)
	carID := seedCar(t, pool, 5000)

	first, p1 := pendingWithPayment(t, bookings, payments, carID, "2030-09-01", "2030-09-05", "cs_label_1")
	_, p2 := pendingWithPayment(t, bookings, payments, carID, "2030-09-03", "2030-09-07", "cs_label_2")

	_, err := payments.Settle(ctx, p1.ID, "pi_1", "")
	require.NoError(t, err)

	labelled, err := bookings.SetAdminLabel(ctx, first.ID, domain.BookingStatusApproved)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusConfirmed, labelled.Status)
	assert.Equal(t, domain.BookingStatusApproved, labelled.AdminLabel)

	_, err = payments.Settle(ctx, p2.ID, "pi_2", "")
	assert.ErrorIs(t, err, domain.ErrConflict)

	overlap, err := bookings.HasConfirmedOverlap(ctx, carID, domain.NewDateRange(date("2030-09-02"), date("2030-09-03")))
	require.NoError(t, err)
	assert.True(t, overlap)
}

func TestPostgres_PaidAfterApprovalIsConfirmed(t *testing.T) {
	pool := newTestPool(t)
	ctx := context.Background()
	bookings := NewBookingRepository(pool)
	payments := NewPaymentRepository(pool)
	carID := seedCar(t, pool, 5000)

	b, p := pendingWithPayment(t, bookings, payments, carID, "2030-10-01", "2030-10-03", "cs_pre_approved")
	_, err := bookings.SetAdminLabel(ctx, b.ID, domain.BookingStatusApproved)
	require.NoError(t, err)

	out, err := payments.Settle(ctx, p.ID, "pi_1", "")
	require.NoError(t, err)
	assert.True(t, out.BookingConfirmed)
	assert.Equal(t, domain.BookingStatusConfirmed, out.Booking.Status)
	assert.Equal(t, domain.BookingStatusApproved, out.Booking.AdminLabel)

	overlap, err := bookings.HasConfirmedOverlap(ctx, carID, domain.NewDateRange(date("2030-10-02"), date("2030-10-04")))
	require.NoError(t, err)
	assert.True(t, overlap)
}

func TestPostgres_PolledPaymentsMoveToBackOfSweep(t *testing.T) {
	pool := newTestPool(t)
	ctx := context.Background()
	bookings := NewBookingRepository(pool)
	payments := NewPaymentRepository(pool)
	carID := seedCar(t, pool, 5000)

	_, older := pendingWithPayment(t, bookings, payments, carID, "2030-11-01", "2030-11-03", "cs_sweep_1")
	_, newer := pendingWithPayment(t, bookings, payments, carID, "2030-11-05", "2030-11-07", "cs_sweep_2")
	_, err := pool.Exec(ctx, `UPDATE payments SET updated_at = now() - interval '2 hours' WHERE id=$1`, older.ID)
	require.NoError(t, err)
	_, err = pool.Exec(ctx, `UPDATE payments SET updated_at = now() - interval '1 hour' WHERE id=$1`, newer.ID)
	require.NoError(t, err)

	cutoff := time.Now().Add(-30 * time.Minute)
	batch, err := payments.ListStalePending(ctx, cutoff, 1)
	require.NoError(t, err)
	require.Len(t, batch, 1)
	assert.Equal(t, older.ID, batch[0].ID)

	require.NoError(t, payments.MarkPolled(ctx, older.ID))

	batch, err = payments.ListStalePending(ctx, cutoff, 10)
	require.NoError(t, err)
	require.Len(t, batch, 1)
	assert.Equal(t, newer.ID, batch[0].ID)
}

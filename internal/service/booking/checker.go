package booking

import (
	"context"

	"github.com/Domenick1991/carrental/internal/domain"
	"github.com/Domenick1991/carrental/internal/repository"
)

// Checker answers whether a car is free for a range. Only confirmed bookings block;
// pending ones do not. The answer is advisory, the settle transaction has the final
// word.
type Checker struct {
	bookings repository.BookingRepository
}

func NewChecker(bookings repository.BookingRepository) *Checker {
	return &Checker{bookings: bookings}
}

func (c *Checker) IsAvailable(ctx context.Context, carID int64, r domain.DateRange) (bool, error) {
	if !r.Valid() {
		return false, domain.NewValidationError("end_date", "end date must be after start date")
	}
	overlap, err := c.bookings.HasConfirmedOverlap(ctx, carID, r)
	if err != nil {
		return false, err
	}
	return !overlap, nil
}

package domain

import "time"

type Car struct {
	ID          int64
	Brand       string
	Model       string
	Year        int
	PlateNumber string
	PriceCents  int64
	Available   bool
	CategoryID  *int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

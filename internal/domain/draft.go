package domain

import "time"

// Draft is a booking proposal held per session between the create and pay screens.
// It has no identity and is never persisted in the database.
type Draft struct {
	CarID           int64     `json:"car_id"`
	StartDate       time.Time `json:"start_date"`
	EndDate         time.Time `json:"end_date"`
	Days            int       `json:"days"`
	TotalPriceCents int64     `json:"total_price_cents"`
}

func (d *Draft) Range() DateRange {
	return DateRange{Start: d.StartDate, End: d.EndDate}
}

package api

import (
	"time"

	"github.com/Domenick1991/carrental/internal/domain"
	"github.com/Domenick1991/carrental/internal/service/booking"
	"github.com/Domenick1991/carrental/internal/service/payment"
)

type carResponse struct {
	ID          int64  `json:"id"`
	Brand       string `json:"brand"`
	Model       string `json:"model"`
	Year        int    `json:"year"`
	PlateNumber string `json:"plate_number"`
	PriceCents  int64  `json:"price_cents"`
	Available   bool   `json:"available"`
	CategoryID  *int64 `json:"category_id,omitempty"`
}

func toCarResponse(c *domain.Car) carResponse {
	return carResponse{
		ID:          c.ID,
		Brand:       c.Brand,
		Model:       c.Model,
		Year:        c.Year,
		PlateNumber: c.PlateNumber,
		PriceCents:  c.PriceCents,
		Available:   c.Available,
		CategoryID:  c.CategoryID,
	}
}

type bookingResponse struct {
	ID              int64  `json:"id"`
	UserID          string `json:"user_id"`
	CarID           int64  `json:"car_id"`
	StartDate       string `json:"start_date"`
	EndDate         string `json:"end_date"`
	TotalPriceCents int64  `json:"total_price_cents"`
	Status          string `json:"status"`
	AdminLabel      string `json:"admin_label,omitempty"`
	CreatedAt       string `json:"created_at"`
}

func toBookingResponse(b *domain.Booking) bookingResponse {
	return bookingResponse{
		ID:              b.ID,
		UserID:          b.UserID,
		CarID:           b.CarID,
		StartDate:       b.StartDate.Format(domain.DateLayout),
		EndDate:         b.EndDate.Format(domain.DateLayout),
		TotalPriceCents: b.TotalPriceCents,
		Status:          string(b.Status),
		AdminLabel:      string(b.AdminLabel),
		CreatedAt:       b.CreatedAt.Format(time.RFC3339),
	}
}

func toBookingResponses(bookings []domain.Booking) []bookingResponse {
	out := make([]bookingResponse, 0, len(bookings))
	for i := range bookings {
		out = append(out, toBookingResponse(&bookings[i]))
	}
	return out
}

type draftResponse struct {
	CarID           int64  `json:"car_id"`
	StartDate       string `json:"start_date"`
	EndDate         string `json:"end_date"`
	Days            int    `json:"days"`
	TotalPriceCents int64  `json:"total_price_cents"`
}

func toDraftResponse(d *domain.Draft) draftResponse {
	return draftResponse{
		CarID:           d.CarID,
		StartDate:       d.StartDate.Format(domain.DateLayout),
		EndDate:         d.EndDate.Format(domain.DateLayout),
		Days:            d.Days,
		TotalPriceCents: d.TotalPriceCents,
	}
}

type draftScreenResponse struct {
	Car           carResponse `json:"car"`
	EarliestStart string      `json:"earliest_start"`
}

func toDraftScreenResponse(s *booking.DraftScreen) draftScreenResponse {
	return draftScreenResponse{
		Car:           toCarResponse(s.Car),
		EarliestStart: s.EarliestStart.Format(domain.DateLayout),
	}
}

type payScreenResponse struct {
	Draft draftResponse `json:"draft"`
	Car   carResponse   `json:"car"`
}

type paymentResponse struct {
	ID          int64  `json:"id"`
	BookingID   int64  `json:"booking_id"`
	AmountCents int64  `json:"amount_cents"`
	Method      string `json:"method"`
	Status      string `json:"status"`
	CardLast4   string `json:"card_last4,omitempty"`
}

func toPaymentResponse(p *domain.Payment) *paymentResponse {
	if p == nil {
		return nil
	}
	return &paymentResponse{
		ID:          p.ID,
		BookingID:   p.BookingID,
		AmountCents: p.AmountCents,
		Method:      p.Method,
		Status:      string(p.Status),
		CardLast4:   p.CardLast4,
	}
}

type confirmationResponse struct {
	Booking bookingResponse  `json:"booking"`
	Payment *paymentResponse `json:"payment,omitempty"`
}

type reconciliationResponse struct {
	PaymentID      int64  `json:"payment_id"`
	BookingID      int64  `json:"booking_id"`
	PaymentStatus  string `json:"payment_status"`
	BookingStatus  string `json:"booking_status"`
	ProviderStatus string `json:"provider_status"`
	Paid           bool   `json:"paid"`
}

func toReconciliationResponse(r *payment.ReconciliationResult) reconciliationResponse {
	return reconciliationResponse{
		PaymentID:      r.PaymentID,
		BookingID:      r.BookingID,
		PaymentStatus:  string(r.PaymentStatus),
		BookingStatus:  string(r.BookingStatus),
		ProviderStatus: string(r.ProviderStatus),
		Paid:           r.Paid,
	}
}

package api

import (
	"net/http"

	"github.com/Domenick1991/carrental/internal/domain"
	"github.com/Domenick1991/carrental/internal/service/booking"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const payScreenPath = "/api/bookings/pay"

type BookingHandler struct {
	service booking.BookingUseCase
	log     *zap.Logger
}

type proposeRequest struct {
	CarID     int64  `json:"car_id" form:"car_id" binding:"required"`
	StartDate string `json:"start_date" form:"start_date" binding:"required"`
	EndDate   string `json:"end_date" form:"end_date" binding:"required"`
}

func NewBookingHandler(service booking.BookingUseCase, log *zap.Logger) *BookingHandler {
	return &BookingHandler{service: service, log: log}
}

// Register mounts the booking flow on the api root: the draft screen lives under
// /cars/:id/book, everything else under /bookings.
func (h *BookingHandler) Register(router *gin.RouterGroup) {
	router.GET("/cars/:id/book", h.draftScreen)

	bookings := router.Group("/bookings")
	bookings.POST("/draft", h.propose)
	bookings.GET("/pay", h.payScreen)
	bookings.POST("", h.materialize)
	bookings.GET("/mine", h.mine)
	bookings.GET("/:id", h.confirmation)
}

func (h *BookingHandler) draftScreen(c *gin.Context) {
	carID, ok := pathID(c, "id")
	if !ok {
		return
	}
	screen, err := h.service.DraftScreen(c.Request.Context(), carID)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, toDraftScreenResponse(screen))
}

func (h *BookingHandler) propose(c *gin.Context) {
	var req proposeRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	start, err := domain.ParseDate(req.StartDate)
	if err != nil {
		writeError(c, h.log, domain.NewValidationError("start_date", "expected YYYY-MM-DD"))
		return
	}
	end, err := domain.ParseDate(req.EndDate)
	if err != nil {
		writeError(c, h.log, domain.NewValidationError("end_date", "expected YYYY-MM-DD"))
		return
	}

	_, err = h.service.Propose(c.Request.Context(), sessionID(c), booking.ProposeInput{
		CarID:     req.CarID,
		StartDate: start,
		EndDate:   end,
	})
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.Redirect(http.StatusSeeOther, payScreenPath)
}

func (h *BookingHandler) payScreen(c *gin.Context) {
	screen, err := h.service.PayScreen(c.Request.Context(), sessionID(c))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, payScreenResponse{
		Draft: toDraftResponse(screen.Draft),
		Car:   toCarResponse(screen.Car),
	})
}

func (h *BookingHandler) materialize(c *gin.Context) {
	b, err := h.service.Materialize(c.Request.Context(), sessionID(c), userID(c))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, toBookingResponse(b))
}

func (h *BookingHandler) mine(c *gin.Context) {
	list, err := h.service.MyBookings(c.Request.Context(), userID(c))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, toBookingResponses(list))
}

func (h *BookingHandler) confirmation(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	conf, err := h.service.Confirmation(c.Request.Context(), userID(c), id)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, confirmationResponse{
		Booking: toBookingResponse(conf.Booking),
		Payment: toPaymentResponse(conf.Payment),
	})
}

package api

import (
	"context"
	"net/http"

	"github.com/Domenick1991/carrental/internal/domain"
	"github.com/Domenick1991/carrental/internal/service/booking"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AdminHandler exposes the back office booking list and labels. Access control sits in
// front of the service.
type AdminHandler struct {
	service booking.BookingUseCase
	log     *zap.Logger
}

func NewAdminHandler(service booking.BookingUseCase, log *zap.Logger) *AdminHandler {
	return &AdminHandler{service: service, log: log}
}

func (h *AdminHandler) Register(router *gin.RouterGroup) {
	router.GET("/bookings", h.list)
	router.POST("/bookings/:id/approve", h.approve)
	router.POST("/bookings/:id/reject", h.reject)
}

func (h *AdminHandler) list(c *gin.Context) {
	list, err := h.service.List(c.Request.Context())
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, toBookingResponses(list))
}

func (h *AdminHandler) approve(c *gin.Context) {
	h.label(c, h.service.Approve)
}

func (h *AdminHandler) reject(c *gin.Context) {
	h.label(c, h.service.Reject)
}

func (h *AdminHandler) label(c *gin.Context, apply func(ctx context.Context, id int64) (*domain.Booking, error)) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	b, err := apply(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, toBookingResponse(b))
}

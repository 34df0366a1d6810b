package api

import (
	"net/http"

	"github.com/Domenick1991/carrental/internal/domain"
	"github.com/Domenick1991/carrental/internal/service/payment"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type PaymentHandler struct {
	service payment.PaymentUseCase
	log     *zap.Logger
}

type checkoutRequest struct {
	BookingID   int64 `json:"booking_id" form:"booking_id" binding:"required"`
	AmountCents int64 `json:"amount_cents" form:"amount_cents" binding:"required"`
}

func NewPaymentHandler(service payment.PaymentUseCase, log *zap.Logger) *PaymentHandler {
	return &PaymentHandler{service: service, log: log}
}

func (h *PaymentHandler) Register(router *gin.RouterGroup) {
	router.POST("/checkout", h.checkout)
	router.GET("/success", h.success)
	router.GET("/cancel", h.cancel)
	router.POST("/cancel", h.cancel)
}

func (h *PaymentHandler) checkout(c *gin.Context) {
	var req checkoutRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	handle, err := h.service.InitiateCheckout(c.Request.Context(), req.BookingID, req.AmountCents)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.Redirect(http.StatusSeeOther, handle.RedirectURL)
}

// success is where the provider sends the customer back. The session id in the query is
// only a lookup key; the provider is asked for the real state.
func (h *PaymentHandler) success(c *gin.Context) {
	ref := c.Query("session_id")
	if ref == "" {
		writeError(c, h.log, domain.NewValidationError("session_id", "is required"))
		return
	}

	res, err := h.service.Reconcile(c.Request.Context(), ref)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, toReconciliationResponse(res))
}

func (h *PaymentHandler) cancel(c *gin.Context) {
	id, err := queryID(c, "payment_id")
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	p, err := h.service.Cancel(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, toPaymentResponse(p))
}

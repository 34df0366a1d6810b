package api

import (
	"errors"
	"net/http"

	"github.com/Domenick1991/carrental/internal/domain"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func statusFor(err error) int {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrSessionExpired):
		return http.StatusGone
	case errors.Is(err, domain.ErrExternalService):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeError maps domain errors onto HTTP statuses. Unexpected errors are logged and
// hidden from the client.
func writeError(c *gin.Context, log *zap.Logger, err error) {
	status := statusFor(err)

	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(status, errorResponse{Error: verr.Message, Field: verr.Field})
	case status == http.StatusInternalServerError:
		log.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(status, errorResponse{Error: "internal error"})
	case status == http.StatusBadGateway:
		log.Warn("payment provider failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(status, errorResponse{Error: domain.ErrExternalService.Error()})
	default:
		c.JSON(status, errorResponse{Error: err.Error()})
	}
}

package api

import (
	"net/http"
	"strconv"

	"github.com/Domenick1991/carrental/internal/domain"
	"github.com/Domenick1991/carrental/internal/service/cars"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type CarHandler struct {
	service cars.CarUseCase
	log     *zap.Logger
}

func NewCarHandler(service cars.CarUseCase, log *zap.Logger) *CarHandler {
	return &CarHandler{service: service, log: log}
}

func (h *CarHandler) Register(router *gin.RouterGroup) {
	router.GET("", h.list)
	router.GET("/:id", h.get)
}

func (h *CarHandler) list(c *gin.Context) {
	list, err := h.service.ListAvailable(c.Request.Context())
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	resp := make([]carResponse, 0, len(list))
	for i := range list {
		resp = append(resp, toCarResponse(&list[i]))
	}
	c.JSON(http.StatusOK, resp)
}

func (h *CarHandler) get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	car, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, toCarResponse(car))
}

// pathID parses a positive int64 path parameter and answers 400 itself when it is not
// one.
func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid id", Field: name})
		return 0, false
	}
	return id, true
}

func queryID(c *gin.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Query(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.NewValidationError(name, "must be a positive integer")
	}
	return id, nil
}

package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/Domenick1991/carrental/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCarHandler_list(t *testing.T) {
	mockService := &MockCarUseCase{}
	handler := NewCarHandler(mockService, zap.NewNop())
	c, w := newContext("GET", "/api/cars", nil)

	cars := []domain.Car{
		{ID: 1, Brand: "Toyota", Model: "Corolla", Year: 2022, PriceCents: 5000, Available: true},
	}
	mockService.On("ListAvailable", c.Request.Context()).Return(cars, nil)

	handler.list(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp []carResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp, 1)
	assert.Equal(t, int64(5000), resp[0].PriceCents)
	mockService.AssertExpectations(t)
}

func TestCarHandler_list_Error(t *testing.T) {
	mockService := &MockCarUseCase{}
	handler := NewCarHandler(mockService, zap.NewNop())
	c, w := newContext("GET", "/api/cars", nil)

	mockService.On("ListAvailable", c.Request.Context()).Return(nil, errors.New("connection refused"))

	handler.list(c)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "connection refused")
}

func TestCarHandler_get(t *testing.T) {
	mockService := &MockCarUseCase{}
	handler := NewCarHandler(mockService, zap.NewNop())
	c, w := newContext("GET", "/api/cars/1", nil)
	c.Params = gin.Params{{Key: "id", Value: "1"}}

	mockService.On("GetByID", c.Request.Context(), int64(1)).Return(&domain.Car{ID: 1, Model: "Corolla"}, nil)

	handler.get(c)

	assert.Equal(t, http.StatusOK, w.Code)
	mockService.AssertExpectations(t)
}

func TestCarHandler_get_NotFound(t *testing.T) {
	mockService := &MockCarUseCase{}
	handler := NewCarHandler(mockService, zap.NewNop())
	c, w := newContext("GET", "/api/cars/99", nil)
	c.Params = gin.Params{{Key: "id", Value: "99"}}

	mockService.On("GetByID", c.Request.Context(), int64(99)).Return(nil, domain.ErrNotFound)

	handler.get(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

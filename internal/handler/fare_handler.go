package handler

import (
	"context"
	"net/http"

	"github.com/Kilat-Ride/service-fare/internal/application"
	"github.com/Kilat-Ride/service-fare/internal/pkg/response"
	"github.com/gin-gonic/gin"
)

// FareEstimator is the fare use case the handler serves.
type FareEstimator interface {
	Estimate(ctx context.Context, req application.EstimateRequest) (*application.FareEstimateDTO, error)
}

// FareHandler handles HTTP requests for fare estimates.
type FareHandler struct {
	service FareEstimator
}

// NewFareHandler creates a new FareHandler.
func NewFareHandler(service FareEstimator) *FareHandler {
	return &FareHandler{service: service}
}

// RegisterRoutes registers the fare routes on the given router group.
func (h *FareHandler) RegisterRoutes(r *gin.RouterGroup) {
	fares := r.Group("/api/v1/fares")
	{
		fares.POST("/estimate", h.Estimate)
	}
}

// Estimate handles POST /api/v1/fares/estimate. The estimate is written without the
// success envelope.
func (h *FareHandler) Estimate(c *gin.Context) {
	var req application.EstimateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	result, err := h.service.Estimate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

package handler

import (
	"context"

	"github.com/Kilat-Ride/service-fare/internal/application"
	"github.com/Kilat-Ride/service-fare/internal/pkg/middleware"
	"github.com/Kilat-Ride/service-fare/internal/pkg/response"
	"github.com/gin-gonic/gin"
)

// ProfileUseCases is the profile and vehicle API served by ProfileHandler.
type ProfileUseCases interface {
	CreateProfile(ctx context.Context, req application.CreateProfileRequest) (*application.ProfileDTO, error)
	GetProfile(ctx context.Context, userID string) (*application.ProfileDTO, error)
	SetPermanentAddress(ctx context.Context, callerID, userID string, req application.LocationInput) (*application.ProfileDTO, error)
	UpdateLiveLocation(ctx context.Context, callerID, userID string, req application.LocationInput) (*application.ProfileDTO, error)
	GoOffline(ctx context.Context, callerID, userID string) error
	AttachVehicle(ctx context.Context, callerID, userID string, req application.AttachVehicleRequest) (*application.ProfileDTO, error)
	RegisterVehicle(ctx context.Context, ownerID string, req application.RegisterVehicleRequest) (*application.VehicleDTO, error)
	GetMyVehicles(ctx context.Context, ownerID string) ([]application.VehicleDTO, error)
}

// ProfileHandler handles HTTP requests for users and vehicles.
type ProfileHandler struct {
	service ProfileUseCases
}

// NewProfileHandler creates a new ProfileHandler.
func NewProfileHandler(service ProfileUseCases) *ProfileHandler {
	return &ProfileHandler{service: service}
}

// RegisterRoutes registers the profile and vehicle routes.
func (h *ProfileHandler) RegisterRoutes(r *gin.RouterGroup) {
	identity := middleware.IdentityMiddleware()

	profiles := r.Group("/api/v1/profiles")
	{
		profiles.POST("", h.CreateProfile)
		profiles.GET("/:id", identity, h.GetProfile)
		profiles.PUT("/:id/address", identity, h.SetPermanentAddress)
		profiles.PUT("/:id/location", identity, h.UpdateLiveLocation)
		profiles.DELETE("/:id/location", identity, h.GoOffline)
		profiles.PUT("/:id/vehicle", identity, h.AttachVehicle)
	}

	vehicles := r.Group("/api/v1/vehicles")
	vehicles.Use(identity)
	{
		vehicles.POST("", h.RegisterVehicle)
		vehicles.GET("", h.GetMyVehicles)
	}
}

// CreateProfile handles POST /api/v1/profiles.
func (h *ProfileHandler) CreateProfile(c *gin.Context) {
	var req application.CreateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.CreateProfile(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, result)
}

// GetProfile handles GET /api/v1/profiles/:id.
func (h *ProfileHandler) GetProfile(c *gin.Context) {
	result, err := h.service.GetProfile(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// SetPermanentAddress handles PUT /api/v1/profiles/:id/address.
func (h *ProfileHandler) SetPermanentAddress(c *gin.Context) {
	callerID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
		return
	}

	var req application.LocationInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.SetPermanentAddress(c.Request.Context(), callerID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// UpdateLiveLocation handles PUT /api/v1/profiles/:id/location.
func (h *ProfileHandler) UpdateLiveLocation(c *gin.Context) {
	callerID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
		return
	}

	var req application.LocationInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.UpdateLiveLocation(c.Request.Context(), callerID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// GoOffline handles DELETE /api/v1/profiles/:id/location.
func (h *ProfileHandler) GoOffline(c *gin.Context) {
	callerID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
		return
	}

	if err := h.service.GoOffline(c.Request.Context(), callerID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{"message": "driver is offline"})
}

// AttachVehicle handles PUT /api/v1/profiles/:id/vehicle.
func (h *ProfileHandler) AttachVehicle(c *gin.Context) {
	callerID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
		return
	}

	var req application.AttachVehicleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.AttachVehicle(c.Request.Context(), callerID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// RegisterVehicle handles POST /api/v1/vehicles.
func (h *ProfileHandler) RegisterVehicle(c *gin.Context) {
	ownerID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
		return
	}

	var req application.RegisterVehicleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.RegisterVehicle(c.Request.Context(), ownerID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, result)
}

// GetMyVehicles handles GET /api/v1/vehicles.
func (h *ProfileHandler) GetMyVehicles(c *gin.Context) {
	ownerID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
		return
	}

	result, err := h.service.GetMyVehicles(c.Request.Context(), ownerID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

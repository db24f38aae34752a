package handler

import (
	"context"
	"strconv"

	"github.com/Kilat-Ride/service-fare/internal/application"
	"github.com/Kilat-Ride/service-fare/internal/pkg/domain"
	"github.com/Kilat-Ride/service-fare/internal/pkg/middleware"
	"github.com/Kilat-Ride/service-fare/internal/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// BookingUseCases is the booking API served by BookingHandler.
type BookingUseCases interface {
	CreateBooking(ctx context.Context, passengerID string, req application.CreateBookingRequest) (*application.BookingDTO, error)
	AcceptBooking(ctx context.Context, bookingID uuid.UUID, driverID string) (*application.BookingDTO, error)
	StartRide(ctx context.Context, bookingID uuid.UUID, driverID string) (*application.BookingDTO, error)
	CompleteRide(ctx context.Context, bookingID uuid.UUID, driverID string, req application.CompleteRideRequest) (*application.BookingDTO, error)
	CancelBooking(ctx context.Context, bookingID uuid.UUID, userID, reason string) (*application.BookingDTO, error)
	GetBooking(ctx context.Context, bookingID uuid.UUID, userID string) (*application.BookingDTO, error)
	GetMyBookings(ctx context.Context, userID string, asDriver bool, page, limit int) (*domain.PaginatedResult[application.BookingDTO], error)
}

// BookingHandler handles HTTP requests for ride booking operations.
type BookingHandler struct {
	service BookingUseCases
}

// NewBookingHandler creates a new BookingHandler.
func NewBookingHandler(service BookingUseCases) *BookingHandler {
	return &BookingHandler{service: service}
}

// RegisterRoutes registers all booking routes on the given router group.
func (h *BookingHandler) RegisterRoutes(r *gin.RouterGroup) {
	bookings := r.Group("/api/v1/bookings")
	bookings.Use(middleware.IdentityMiddleware())
	{
		bookings.POST("", h.CreateBooking)
		bookings.GET("", h.ListBookings)
		bookings.GET("/:id", h.GetBooking)
		bookings.POST("/:id/accept", h.AcceptBooking)
		bookings.POST("/:id/start", h.StartRide)
		bookings.POST("/:id/complete", h.CompleteRide)
		bookings.POST("/:id/cancel", h.CancelBooking)
	}
}

// CreateBooking handles POST /api/v1/bookings.
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
		return
	}

	var req application.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.CreateBooking(c.Request.Context(), userID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, result)
}

// ListBookings handles GET /api/v1/bookings. Passengers see the rides they booked;
// ?as=driver lists the rides assigned to the caller instead.
func (h *BookingHandler) ListBookings(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
		return
	}

	page, limit := parsePagination(c)
	asDriver := c.Query("as") == "driver"

	result, err := h.service.GetMyBookings(c.Request.Context(), userID, asDriver, page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Paginated(c, result.Items, result.Total, result.Page, result.Limit)
}

// GetBooking handles GET /api/v1/bookings/:id.
func (h *BookingHandler) GetBooking(c *gin.Context) {
	bookingID, userID, ok := bookingAndCaller(c)
	if !ok {
		return
	}

	result, err := h.service.GetBooking(c.Request.Context(), bookingID, userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// AcceptBooking handles POST /api/v1/bookings/:id/accept.
func (h *BookingHandler) AcceptBooking(c *gin.Context) {
	bookingID, driverID, ok := bookingAndCaller(c)
	if !ok {
		return
	}

	result, err := h.service.AcceptBooking(c.Request.Context(), bookingID, driverID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// StartRide handles POST /api/v1/bookings/:id/start.
func (h *BookingHandler) StartRide(c *gin.Context) {
	bookingID, driverID, ok := bookingAndCaller(c)
	if !ok {
		return
	}

	result, err := h.service.StartRide(c.Request.Context(), bookingID, driverID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// CompleteRide handles POST /api/v1/bookings/:id/complete.
func (h *BookingHandler) CompleteRide(c *gin.Context) {
	bookingID, driverID, ok := bookingAndCaller(c)
	if !ok {
		return
	}

	var req application.CompleteRideRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}
	}

	result, err := h.service.CompleteRide(c.Request.Context(), bookingID, driverID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// CancelBooking handles POST /api/v1/bookings/:id/cancel.
func (h *BookingHandler) CancelBooking(c *gin.Context) {
	bookingID, userID, ok := bookingAndCaller(c)
	if !ok {
		return
	}

	var body application.CancelBookingRequest
	_ = c.ShouldBindJSON(&body)

	result, err := h.service.CancelBooking(c.Request.Context(), bookingID, userID, body.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// bookingAndCaller parses :id and the caller identity, writing the error response on failure.
func bookingAndCaller(c *gin.Context) (uuid.UUID, string, bool) {
	bookingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid booking ID")
		return uuid.Nil, "", false
	}
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
		return uuid.Nil, "", false
	}
	return bookingID, userID, true
}

// parsePagination extracts page and limit query parameters with defaults.
func parsePagination(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	return page, limit
}

package handler

import (
	"context"

	"github.com/Kilat-Ride/service-fare/internal/application"
	"github.com/Kilat-Ride/service-fare/internal/pkg/domain"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type mockFareEstimator struct {
	mock.Mock
}

func (m *mockFareEstimator) Estimate(ctx context.Context, req application.EstimateRequest) (*application.FareEstimateDTO, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*application.FareEstimateDTO), args.Error(1)
}

type mockBookingUseCases struct {
	mock.Mock
}

func (m *mockBookingUseCases) booking(args mock.Arguments) (*application.BookingDTO, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*application.BookingDTO), args.Error(1)
}

func (m *mockBookingUseCases) CreateBooking(ctx context.Context, passengerID string, req application.CreateBookingRequest) (*application.BookingDTO, error) {
	return m.booking(m.Called(ctx, passengerID, req))
}

func (m *mockBookingUseCases) AcceptBooking(ctx context.Context, bookingID uuid.UUID, driverID string) (*application.BookingDTO, error) {
	return m.booking(m.Called(ctx, bookingID, driverID))
}

func (m *mockBookingUseCases) StartRide(ctx context.Context, bookingID uuid.UUID, driverID string) (*application.BookingDTO, error) {
	return m.booking(m.Called(ctx, bookingID, driverID))
}

func (m *mockBookingUseCases) CompleteRide(ctx context.Context, bookingID uuid.UUID, driverID string, req application.CompleteRideRequest) (*application.BookingDTO, error) {
	return m.booking(m.Called(ctx, bookingID, driverID, req))
}

func (m *mockBookingUseCases) CancelBooking(ctx context.Context, bookingID uuid.UUID, userID, reason string) (*application.BookingDTO, error) {
	return m.booking(m.Called(ctx, bookingID, userID, reason))
}

func (m *mockBookingUseCases) GetBooking(ctx context.Context, bookingID uuid.UUID, userID string) (*application.BookingDTO, error) {
	return m.booking(m.Called(ctx, bookingID, userID))
}

func (m *mockBookingUseCases) GetMyBookings(ctx context.Context, userID string, asDriver bool, page, limit int) (*domain.PaginatedResult[application.BookingDTO], error) {
	args := m.Called(ctx, userID, asDriver, page, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PaginatedResult[application.BookingDTO]), args.Error(1)
}

type mockProfileUseCases struct {
	mock.Mock
}

func (m *mockProfileUseCases) profile(args mock.Arguments) (*application.ProfileDTO, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*application.ProfileDTO), args.Error(1)
}

func (m *mockProfileUseCases) CreateProfile(ctx context.Context, req application.CreateProfileRequest) (*application.ProfileDTO, error) {
	return m.profile(m.Called(ctx, req))
}

func (m *mockProfileUseCases) GetProfile(ctx context.Context, userID string) (*application.ProfileDTO, error) {
	return m.profile(m.Called(ctx, userID))
}

func (m *mockProfileUseCases) SetPermanentAddress(ctx context.Context, callerID, userID string, req application.LocationInput) (*application.ProfileDTO, error) {
	return m.profile(m.Called(ctx, callerID, userID, req))
}

func (m *mockProfileUseCases) UpdateLiveLocation(ctx context.Context, callerID, userID string, req application.LocationInput) (*application.ProfileDTO, error) {
	return m.profile(m.Called(ctx, callerID, userID, req))
}

func (m *mockProfileUseCases) GoOffline(ctx context.Context, callerID, userID string) error {
	return m.Called(ctx, callerID, userID).Error(0)
}

func (m *mockProfileUseCases) AttachVehicle(ctx context.Context, callerID, userID string, req application.AttachVehicleRequest) (*application.ProfileDTO, error) {
	return m.profile(m.Called(ctx, callerID, userID, req))
}

func (m *mockProfileUseCases) RegisterVehicle(ctx context.Context, ownerID string, req application.RegisterVehicleRequest) (*application.VehicleDTO, error) {
	args := m.Called(ctx, ownerID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*application.VehicleDTO), args.Error(1)
}

func (m *mockProfileUseCases) GetMyVehicles(ctx context.Context, ownerID string) ([]application.VehicleDTO, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]application.VehicleDTO), args.Error(1)
}

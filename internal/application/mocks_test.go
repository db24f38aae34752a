package application

import (
	"context"
	"time"

	"github.com/Kilat-Ride/service-fare/internal/domain/booking"
	"github.com/Kilat-Ride/service-fare/internal/domain/fare"
	"github.com/Kilat-Ride/service-fare/internal/domain/party"
	"github.com/Kilat-Ride/service-fare/internal/pkg/kafka"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockUserRepo mocks party.UserRepository.
type MockUserRepo struct {
	mock.Mock
}

func (m *MockUserRepo) FindByID(ctx context.Context, id string) (*party.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*party.User), args.Error(1)
}

func (m *MockUserRepo) Save(ctx context.Context, user *party.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepo) Update(ctx context.Context, user *party.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepo) UpdateCurrentLocation(ctx context.Context, id string, loc party.LiveLocation) (bool, error) {
	args := m.Called(ctx, id, loc)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserRepo) ClearCurrentLocation(ctx context.Context, id string, at time.Time) (bool, error) {
	args := m.Called(ctx, id, at)
	return args.Bool(0), args.Error(1)
}

// MockVehicleRepo mocks party.VehicleRepository.
type MockVehicleRepo struct {
	mock.Mock
}

func (m *MockVehicleRepo) FindByID(ctx context.Context, id string) (*party.Vehicle, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*party.Vehicle), args.Error(1)
}

func (m *MockVehicleRepo) FindByOwnerID(ctx context.Context, ownerID string) ([]*party.Vehicle, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*party.Vehicle), args.Error(1)
}

func (m *MockVehicleRepo) Save(ctx context.Context, vehicle *party.Vehicle) error {
	args := m.Called(ctx, vehicle)
	return args.Error(0)
}

// MockDistanceProvider mocks fare.DistanceProvider.
type MockDistanceProvider struct {
	mock.Mock
}

func (m *MockDistanceProvider) Distance(ctx context.Context, origin, destination, mode string) (fare.Distance, error) {
	args := m.Called(ctx, origin, destination, mode)
	return args.Get(0).(fare.Distance), args.Error(1)
}

// MockBookingRepo mocks booking.BookingRepository.
type MockBookingRepo struct {
	mock.Mock
}

func (m *MockBookingRepo) FindByID(ctx context.Context, id uuid.UUID) (*booking.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.Booking), args.Error(1)
}

func (m *MockBookingRepo) FindByNumber(ctx context.Context, number string) (*booking.Booking, error) {
	args := m.Called(ctx, number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.Booking), args.Error(1)
}

func (m *MockBookingRepo) FindByPassengerID(ctx context.Context, passengerID string, page, limit int) ([]*booking.Booking, int64, error) {
	args := m.Called(ctx, passengerID, page, limit)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*booking.Booking), args.Get(1).(int64), args.Error(2)
}

func (m *MockBookingRepo) FindByDriverID(ctx context.Context, driverID string, page, limit int) ([]*booking.Booking, int64, error) {
	args := m.Called(ctx, driverID, page, limit)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*booking.Booking), args.Get(1).(int64), args.Error(2)
}

func (m *MockBookingRepo) Save(ctx context.Context, bk *booking.Booking) error {
	args := m.Called(ctx, bk)
	return args.Error(0)
}

func (m *MockBookingRepo) Update(ctx context.Context, bk *booking.Booking) error {
	args := m.Called(ctx, bk)
	return args.Error(0)
}

// MockPublisher mocks EventPublisher.
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishEvent(ctx context.Context, topic string, ce kafka.CloudEvent) error {
	args := m.Called(ctx, topic, ce)
	return args.Error(0)
}

// MockQuoter mocks FareQuoter.
type MockQuoter struct {
	mock.Mock
}

func (m *MockQuoter) Quote(ctx context.Context, req EstimateRequest) (fare.Estimate, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(fare.Estimate), args.Error(1)
}

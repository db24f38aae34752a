package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Kilat-Ride/service-fare/internal/domain/fare"
	"github.com/Kilat-Ride/service-fare/internal/domain/geo"
	"github.com/Kilat-Ride/service-fare/internal/domain/party"
	"github.com/Kilat-Ride/service-fare/internal/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var (
	liveAt    = geo.Point{Lat: 3.139, Lng: 101.6869}
	homeAt    = geo.Point{Lat: 3.0738, Lng: 101.5183}
	garageAt  = geo.Point{Lat: 3.1478, Lng: 101.6953}
	pickupAt  = geo.Point{Lat: 3.1579, Lng: 101.7116}
	dropoffAt = geo.Point{Lat: 2.7456, Lng: 101.7072}
)

type fareFixture struct {
	users     *MockUserRepo
	vehicles  *MockVehicleRepo
	distances *MockDistanceProvider
	logs      *observer.ObservedLogs
	svc       *FareService
}

func newFareFixture(t *testing.T, parallel bool) *fareFixture {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	f := &fareFixture{
		users:     new(MockUserRepo),
		vehicles:  new(MockVehicleRepo),
		distances: new(MockDistanceProvider),
		logs:      logs,
	}
	f.svc = NewFareService(f.users, f.vehicles, f.distances, fare.NewPerKmPricing(),
		FareConfig{Mode: "driving", LookupTimeout: time.Second, ParallelLegs: parallel}, zap.New(core))
	return f
}

func (f *fareFixture) expectLeg(from, to geo.Point, meters, seconds int64) *mock.Call {
	return f.distances.On("Distance", mock.Anything, from.LatLng(), to.LatLng(), "driving").
		Return(fare.Distance{Meters: meters, Seconds: seconds}, nil).Once()
}

func newDriver(id string, profile *party.DriverProfile, live *geo.Point, home *geo.Point) *party.User {
	var loc *party.LiveLocation
	if live != nil {
		loc = &party.LiveLocation{Point: *live, UpdatedAt: time.Now()}
	}
	var addr *party.Address
	if home != nil {
		addr = &party.Address{Line: "home", Point: *home}
	}
	return party.ReconstructUser(id, "Driver "+id, id+"@example.com", "", []party.Role{party.RoleDriver},
		profile, loc, addr, 1, time.Now(), time.Now())
}

func newOwner(id string, garage *geo.Point) *party.User {
	var addr *party.Address
	if garage != nil {
		addr = &party.Address{Line: "garage", Point: *garage}
	}
	return party.ReconstructUser(id, "Owner "+id, id+"@example.com", "", []party.Role{party.RoleOwner},
		nil, nil, addr, 1, time.Now(), time.Now())
}

func ptr(v float64) *float64 { return &v }

func loc(p geo.Point) *LocationInput {
	return &LocationInput{Coordinates: &Coordinates{Lat: ptr(p.Lat), Lng: ptr(p.Lng)}}
}

func estimateReq(bookingType, driverID string) EstimateRequest {
	return EstimateRequest{
		BookingType: bookingType,
		Pickup:      loc(pickupAt),
		Dropoff:     loc(dropoffAt),
		DriverID:    driverID,
	}
}

func ownVehicle() *party.Vehicle {
	return party.ReconstructVehicle("v-1", "d-1", "WXY 1234", "Myvi", 1.2, time.Now(), time.Now())
}

func rentedVehicle() *party.Vehicle {
	return party.ReconstructVehicle("v-2", "o-1", "VBN 42", "Axia", 0.85, time.Now(), time.Now())
}

func TestEstimate_InstantTwoLegsSum(t *testing.T) {
	f := newFareFixture(t, false)
	driver := newDriver("d-1", &party.DriverProfile{VehicleID: "v-1", VehicleType: party.VehicleOwn}, &liveAt, &homeAt)
	f.users.On("FindByID", mock.Anything, "d-1").Return(driver, nil)
	f.vehicles.On("FindByID", mock.Anything, "v-1").Return(ownVehicle(), nil)
	f.expectLeg(liveAt, pickupAt, 2000, 300)
	f.expectLeg(pickupAt, dropoffAt, 15000, 1200)

	got, err := f.svc.Estimate(context.Background(), estimateReq("instant", "d-1"))
	require.NoError(t, err)

	assert.Equal(t, int64(17000), got.EstimatedDistance)
	assert.Equal(t, int64(1500), got.EstimatedDuration)
	assert.Equal(t, "20.40", got.TotalFare)
	assert.Equal(t, "Driver to Pickup -> Pickup to Dropoff", got.Route)
	assert.Equal(t, "v-1", got.VehicleID)
	require.Len(t, got.Legs, 2)
	assert.Equal(t, fare.LegDriverToPickup, got.Legs[0].Label)
	assert.Equal(t, fare.LegPickupToDropoff, got.Legs[1].Label)
	f.distances.AssertExpectations(t)
}

func TestEstimate_InstantRentedVehicleSkipsOwner(t *testing.T) {
	f := newFareFixture(t, false)
	driver := newDriver("d-1", &party.DriverProfile{VehicleID: "v-2", VehicleType: party.VehicleRented}, &liveAt, nil)
	f.users.On("FindByID", mock.Anything, "d-1").Return(driver, nil)
	f.vehicles.On("FindByID", mock.Anything, "v-2").Return(rentedVehicle(), nil)
	f.expectLeg(liveAt, pickupAt, 1000, 100)
	f.expectLeg(pickupAt, dropoffAt, 1000, 100)

	got, err := f.svc.Estimate(context.Background(), estimateReq("instant", "d-1"))
	require.NoError(t, err)
	assert.Len(t, got.Legs, 2)
	f.users.AssertNotCalled(t, "FindByID", mock.Anything, "o-1")
}

func TestEstimate_AdvanceOwnVehicleHasNoGarage(t *testing.T) {
	f := newFareFixture(t, false)
	driver := newDriver("d-1", &party.DriverProfile{VehicleID: "v-1", VehicleType: party.VehicleOwn}, nil, &homeAt)
	f.users.On("FindByID", mock.Anything, "d-1").Return(driver, nil)
	f.vehicles.On("FindByID", mock.Anything, "v-1").Return(ownVehicle(), nil)
	f.expectLeg(homeAt, pickupAt, 21000, 1500)
	f.expectLeg(pickupAt, dropoffAt, 15000, 1200)

	got, err := f.svc.Estimate(context.Background(), estimateReq("advance", "d-1"))
	require.NoError(t, err)

	require.Len(t, got.Legs, 2)
	assert.Equal(t, "Driver's Home -> Passenger's Pickup -> Passenger's Dropoff", got.Route)
	assert.NotContains(t, got.Route, fare.LabelOwnerGarage)
	assert.Equal(t, int64(36000), got.EstimatedDistance)
	assert.Equal(t, "43.20", got.TotalFare)
}

func TestEstimate_AdvanceRentedVehicleVisitsGarage(t *testing.T) {
	f := newFareFixture(t, false)
	driver := newDriver("d-1", &party.DriverProfile{VehicleID: "v-2", VehicleType: party.VehicleRented}, nil, &homeAt)
	f.users.On("FindByID", mock.Anything, "d-1").Return(driver, nil)
	f.users.On("FindByID", mock.Anything, "o-1").Return(newOwner("o-1", &garageAt), nil)
	f.vehicles.On("FindByID", mock.Anything, "v-2").Return(rentedVehicle(), nil)
	f.expectLeg(homeAt, garageAt, 9000, 900)
	f.expectLeg(garageAt, pickupAt, 3345, 400)
	f.expectLeg(pickupAt, dropoffAt, 0, 0)

	got, err := f.svc.Estimate(context.Background(), estimateReq("advance", "d-1"))
	require.NoError(t, err)

	require.Len(t, got.Legs, 3)
	assert.Equal(t, "Driver's Home -> Owner's Garage -> Passenger's Pickup -> Passenger's Dropoff", got.Route)
	assert.Equal(t, fare.LabelOwnerGarage, got.Legs[0].To.Label)
	assert.Equal(t, garageAt.Lat, got.Legs[0].To.Lat)
	assert.Equal(t, garageAt.Lng, got.Legs[0].To.Lng)
	assert.Equal(t, int64(12345), got.EstimatedDistance)
	assert.Equal(t, int64(1300), got.EstimatedDuration)
	// 12.345 km at 0.85 is 10.49325.
	assert.Equal(t, "10.49", got.TotalFare)
	f.distances.AssertExpectations(t)
}

func TestEstimate_InstantWithoutLiveLocationMakesNoLookups(t *testing.T) {
	f := newFareFixture(t, false)
	driver := newDriver("d-1", &party.DriverProfile{VehicleID: "v-1", VehicleType: party.VehicleOwn}, nil, &homeAt)
	f.users.On("FindByID", mock.Anything, "d-1").Return(driver, nil)
	f.vehicles.On("FindByID", mock.Anything, "v-1").Return(ownVehicle(), nil)

	_, err := f.svc.Estimate(context.Background(), estimateReq("instant", "d-1"))

	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.KindPrecondition))
	assert.Equal(t, "driver's live location unavailable", err.Error())
	f.distances.AssertNotCalled(t, "Distance", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestEstimate_UnknownBookingTypeFailsBeforeAnyLookup(t *testing.T) {
	f := newFareFixture(t, false)

	_, err := f.svc.Estimate(context.Background(), estimateReq("teleport", "d-1"))

	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.KindValidation))
	f.users.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
	f.vehicles.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
	f.distances.AssertNotCalled(t, "Distance", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestEstimate_RequestValidation(t *testing.T) {
	tests := []struct {
		name string
		req  EstimateRequest
	}{
		{"missing booking type", EstimateRequest{Pickup: loc(pickupAt), Dropoff: loc(dropoffAt), DriverID: "d-1"}},
		{"missing driver", EstimateRequest{BookingType: "instant", Pickup: loc(pickupAt), Dropoff: loc(dropoffAt)}},
		{"missing pickup", EstimateRequest{BookingType: "instant", Dropoff: loc(dropoffAt), DriverID: "d-1"}},
		{"missing dropoff coordinates", EstimateRequest{BookingType: "advance", Pickup: loc(pickupAt), Dropoff: &LocationInput{Address: "KLIA"}, DriverID: "d-1"}},
		{"missing longitude", EstimateRequest{BookingType: "instant", Pickup: &LocationInput{Coordinates: &Coordinates{Lat: ptr(3)}}, Dropoff: loc(dropoffAt), DriverID: "d-1"}},
		{"latitude out of range", EstimateRequest{BookingType: "instant", Pickup: loc(geo.Point{Lat: 95, Lng: 10}), Dropoff: loc(dropoffAt), DriverID: "d-1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFareFixture(t, false)
			_, err := f.svc.Estimate(context.Background(), tt.req)
			assert.True(t, domain.IsKind(err, domain.KindValidation), "got %v", err)
			f.users.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
		})
	}
}

// newGarageLegFailure wires an advance rented booking whose second leg has no route.
func newGarageLegFailure(t *testing.T, parallel bool) *fareFixture {
	t.Helper()
	f := newFareFixture(t, parallel)
	driver := newDriver("d-1", &party.DriverProfile{VehicleID: "v-2", VehicleType: party.VehicleRented}, nil, &homeAt)
	f.users.On("FindByID", mock.Anything, "d-1").Return(driver, nil)
	f.users.On("FindByID", mock.Anything, "o-1").Return(newOwner("o-1", &garageAt), nil)
	f.vehicles.On("FindByID", mock.Anything, "v-2").Return(rentedVehicle(), nil)
	f.expectLeg(homeAt, garageAt, 9000, 900)
	f.distances.On("Distance", mock.Anything, garageAt.LatLng(), pickupAt.LatLng(), "driving").
		Return(fare.Distance{}, domain.NewUpstreamError("distance lookup failed", errors.New("element status ZERO_RESULTS"))).Once()
	third := f.expectLeg(pickupAt, dropoffAt, 15000, 1200)
	if parallel {
		third.Maybe()
	}
	return f
}

func TestEstimate_SecondLegFailureReturnsNoPartialResult(t *testing.T) {
	for _, parallel := range []bool{false, true} {
		name := "sequential"
		if parallel {
			name = "parallel"
		}
		t.Run(name+"/estimate", func(t *testing.T) {
			f := newGarageLegFailure(t, parallel)

			got, err := f.svc.Estimate(context.Background(), estimateReq("advance", "d-1"))

			require.Error(t, err)
			assert.Nil(t, got)
			assert.True(t, domain.IsKind(err, domain.KindUpstream))
			assert.Contains(t, err.Error(), "ZERO_RESULTS")
			if !parallel {
				f.distances.AssertNumberOfCalls(t, "Distance", 2)
			}
		})

		t.Run(name+"/quote", func(t *testing.T) {
			f := newGarageLegFailure(t, parallel)

			est, err := f.svc.Quote(context.Background(), estimateReq("advance", "d-1"))

			require.Error(t, err)
			assert.True(t, domain.IsKind(err, domain.KindUpstream))
			assert.Zero(t, est.DistanceMeters)
			assert.Zero(t, est.DurationSeconds)
			assert.Empty(t, est.Legs)
			if !parallel {
				f.distances.AssertNumberOfCalls(t, "Distance", 2)
			}
		})
	}
}

func TestEstimate_SequentialStopsAtFirstFailure(t *testing.T) {
	f := newFareFixture(t, false)
	driver := newDriver("d-1", &party.DriverProfile{VehicleID: "v-1", VehicleType: party.VehicleOwn}, &liveAt, nil)
	f.users.On("FindByID", mock.Anything, "d-1").Return(driver, nil)
	f.vehicles.On("FindByID", mock.Anything, "v-1").Return(ownVehicle(), nil)
	f.distances.On("Distance", mock.Anything, liveAt.LatLng(), pickupAt.LatLng(), "driving").
		Return(fare.Distance{}, errors.New("dial tcp: connection refused")).Once()

	_, err := f.svc.Estimate(context.Background(), estimateReq("instant", "d-1"))

	assert.True(t, domain.IsKind(err, domain.KindUpstream), "plain provider errors become upstream errors")
	f.distances.AssertNumberOfCalls(t, "Distance", 1)
}

func TestEstimate_LookupTimeout(t *testing.T) {
	f := newFareFixture(t, false)
	f.svc.cfg.LookupTimeout = 10 * time.Millisecond
	driver := newDriver("d-1", &party.DriverProfile{VehicleID: "v-1", VehicleType: party.VehicleOwn}, &liveAt, nil)
	f.users.On("FindByID", mock.Anything, "d-1").Return(driver, nil)
	f.vehicles.On("FindByID", mock.Anything, "v-1").Return(ownVehicle(), nil)
	f.distances.On("Distance", mock.Anything, liveAt.LatLng(), pickupAt.LatLng(), "driving").
		Run(func(args mock.Arguments) {
			<-args.Get(0).(context.Context).Done()
		}).
		Return(fare.Distance{}, context.DeadlineExceeded).Once()

	_, err := f.svc.Estimate(context.Background(), estimateReq("instant", "d-1"))

	assert.True(t, domain.IsKind(err, domain.KindUpstream))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestEstimate_CallerCancellationAbandonsRemainingLegs(t *testing.T) {
	f := newFareFixture(t, false)
	f.svc.cfg.LookupTimeout = time.Minute
	driver := newDriver("d-1", &party.DriverProfile{VehicleID: "v-1", VehicleType: party.VehicleOwn}, &liveAt, nil)
	f.users.On("FindByID", mock.Anything, "d-1").Return(driver, nil)
	f.vehicles.On("FindByID", mock.Anything, "v-1").Return(ownVehicle(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.distances.On("Distance", mock.Anything, liveAt.LatLng(), pickupAt.LatLng(), "driving").
		Run(func(args mock.Arguments) {
			cancel()
			<-args.Get(0).(context.Context).Done()
		}).
		Return(fare.Distance{}, context.Canceled).Once()

	got, err := f.svc.Estimate(ctx, estimateReq("instant", "d-1"))

	require.Error(t, err)
	assert.Nil(t, got)
	assert.ErrorIs(t, err, context.Canceled)
	f.distances.AssertNumberOfCalls(t, "Distance", 1)
	f.distances.AssertNotCalled(t, "Distance", mock.Anything, pickupAt.LatLng(), dropoffAt.LatLng(), "driving")
}

func TestEstimate_OutOfRangeStoredPointFailsBeforeLookup(t *testing.T) {
	bad := geo.Point{Lat: 200, Lng: 10}

	t.Run("live location", func(t *testing.T) {
		f := newFareFixture(t, false)
		driver := newDriver("d-1", &party.DriverProfile{VehicleID: "v-1", VehicleType: party.VehicleOwn}, &bad, nil)
		f.users.On("FindByID", mock.Anything, "d-1").Return(driver, nil)
		f.vehicles.On("FindByID", mock.Anything, "v-1").Return(ownVehicle(), nil)

		_, err := f.svc.Estimate(context.Background(), estimateReq("instant", "d-1"))

		assert.True(t, domain.IsKind(err, domain.KindValidation), "got %v", err)
		assert.Contains(t, err.Error(), "live location")
		f.distances.AssertNotCalled(t, "Distance", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("driver home", func(t *testing.T) {
		f := newFareFixture(t, false)
		driver := newDriver("d-1", &party.DriverProfile{VehicleID: "v-1", VehicleType: party.VehicleOwn}, nil, &geo.Point{Lat: 3, Lng: 181})
		f.users.On("FindByID", mock.Anything, "d-1").Return(driver, nil)
		f.vehicles.On("FindByID", mock.Anything, "v-1").Return(ownVehicle(), nil)

		_, err := f.svc.Estimate(context.Background(), estimateReq("advance", "d-1"))

		assert.True(t, domain.IsKind(err, domain.KindValidation), "got %v", err)
		assert.Contains(t, err.Error(), "longitude out of range")
		f.distances.AssertNotCalled(t, "Distance", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("owner garage", func(t *testing.T) {
		f := newFareFixture(t, false)
		driver := newDriver("d-1", &party.DriverProfile{VehicleID: "v-2", VehicleType: party.VehicleRented}, nil, &homeAt)
		f.users.On("FindByID", mock.Anything, "d-1").Return(driver, nil)
		f.users.On("FindByID", mock.Anything, "o-1").Return(newOwner("o-1", &bad), nil)
		f.vehicles.On("FindByID", mock.Anything, "v-2").Return(rentedVehicle(), nil)

		_, err := f.svc.Estimate(context.Background(), estimateReq("advance", "d-1"))

		assert.True(t, domain.IsKind(err, domain.KindValidation), "got %v", err)
		assert.Contains(t, err.Error(), "owner's permanent address")
		f.distances.AssertNotCalled(t, "Distance", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestEstimate_NotFound(t *testing.T) {
	t.Run("driver missing", func(t *testing.T) {
		f := newFareFixture(t, false)
		f.users.On("FindByID", mock.Anything, "d-9").Return(nil, domain.NewNotFoundError("User", "d-9"))

		_, err := f.svc.Estimate(context.Background(), estimateReq("instant", "d-9"))
		assert.True(t, domain.IsKind(err, domain.KindNotFound))
		assert.Equal(t, "Driver not found: d-9", err.Error())
	})

	t.Run("user is not a driver", func(t *testing.T) {
		f := newFareFixture(t, false)
		f.users.On("FindByID", mock.Anything, "o-1").Return(newOwner("o-1", &garageAt), nil)

		_, err := f.svc.Estimate(context.Background(), estimateReq("instant", "o-1"))
		assert.True(t, domain.IsKind(err, domain.KindNotFound))
	})

	t.Run("driver has no vehicle", func(t *testing.T) {
		f := newFareFixture(t, false)
		f.users.On("FindByID", mock.Anything, "d-1").Return(newDriver("d-1", nil, &liveAt, nil), nil)

		_, err := f.svc.Estimate(context.Background(), estimateReq("instant", "d-1"))
		assert.True(t, domain.IsKind(err, domain.KindNotFound))
		f.vehicles.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
	})

	t.Run("vehicle record missing", func(t *testing.T) {
		f := newFareFixture(t, false)
		driver := newDriver("d-1", &party.DriverProfile{VehicleID: "v-1", VehicleType: party.VehicleOwn}, &liveAt, nil)
		f.users.On("FindByID", mock.Anything, "d-1").Return(driver, nil)
		f.vehicles.On("FindByID", mock.Anything, "v-1").Return(nil, domain.NewNotFoundError("Vehicle", "v-1"))

		_, err := f.svc.Estimate(context.Background(), estimateReq("instant", "d-1"))
		assert.True(t, domain.IsKind(err, domain.KindNotFound))
	})

	t.Run("owner missing for rented vehicle", func(t *testing.T) {
		f := newFareFixture(t, false)
		driver := newDriver("d-1", &party.DriverProfile{VehicleID: "v-2", VehicleType: party.VehicleRented}, nil, &homeAt)
		f.users.On("FindByID", mock.Anything, "d-1").Return(driver, nil)
		f.users.On("FindByID", mock.Anything, "o-1").Return(nil, domain.NewNotFoundError("User", "o-1"))
		f.vehicles.On("FindByID", mock.Anything, "v-2").Return(rentedVehicle(), nil)

		_, err := f.svc.Estimate(context.Background(), estimateReq("advance", "d-1"))
		assert.True(t, domain.IsKind(err, domain.KindNotFound))
		assert.Equal(t, "Owner not found: o-1", err.Error())
		f.distances.AssertNotCalled(t, "Distance", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("owner without permanent address", func(t *testing.T) {
		f := newFareFixture(t, false)
		driver := newDriver("d-1", &party.DriverProfile{VehicleID: "v-2", VehicleType: party.VehicleRented}, nil, &homeAt)
		f.users.On("FindByID", mock.Anything, "d-1").Return(driver, nil)
		f.users.On("FindByID", mock.Anything, "o-1").Return(newOwner("o-1", nil), nil)
		f.vehicles.On("FindByID", mock.Anything, "v-2").Return(rentedVehicle(), nil)

		_, err := f.svc.Estimate(context.Background(), estimateReq("advance", "d-1"))
		assert.True(t, domain.IsKind(err, domain.KindNotFound))
	})
}

func TestEstimate_AdvanceWithoutHomeAddress(t *testing.T) {
	f := newFareFixture(t, false)
	driver := newDriver("d-1", &party.DriverProfile{VehicleID: "v-2", VehicleType: party.VehicleRented}, &liveAt, nil)
	f.users.On("FindByID", mock.Anything, "d-1").Return(driver, nil)
	f.vehicles.On("FindByID", mock.Anything, "v-2").Return(rentedVehicle(), nil)

	_, err := f.svc.Estimate(context.Background(), estimateReq("advance", "d-1"))

	assert.True(t, domain.IsKind(err, domain.KindPrecondition))
	f.users.AssertNotCalled(t, "FindByID", mock.Anything, "o-1")
}

func TestEstimate_StoreFailureIsInternal(t *testing.T) {
	f := newFareFixture(t, false)
	f.users.On("FindByID", mock.Anything, "d-1").Return(nil, errors.New("server selection timeout"))

	_, err := f.svc.Estimate(context.Background(), estimateReq("instant", "d-1"))

	require.Error(t, err)
	assert.Equal(t, domain.KindInternal, domain.KindOf(err))
}

func TestEstimate_ZeroDistanceBookingIsAllowed(t *testing.T) {
	f := newFareFixture(t, false)
	driver := newDriver("d-1", &party.DriverProfile{VehicleID: "v-1", VehicleType: party.VehicleOwn}, &pickupAt, nil)
	f.users.On("FindByID", mock.Anything, "d-1").Return(driver, nil)
	f.vehicles.On("FindByID", mock.Anything, "v-1").Return(ownVehicle(), nil)
	f.distances.On("Distance", mock.Anything, pickupAt.LatLng(), pickupAt.LatLng(), "driving").
		Return(fare.Distance{}, nil).Twice()

	req := estimateReq("instant", "d-1")
	req.Dropoff = loc(pickupAt)
	got, err := f.svc.Estimate(context.Background(), req)

	require.NoError(t, err)
	assert.Zero(t, got.EstimatedDistance)
	assert.Equal(t, "0.00", got.TotalFare)
}

func TestEstimate_FailuresAreLoggedWithContext(t *testing.T) {
	f := newFareFixture(t, false)

	_, err := f.svc.Estimate(context.Background(), estimateReq("teleport", "d-7"))
	require.Error(t, err)

	entries := f.logs.FilterMessage("fare estimate rejected").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "teleport", fields["booking_type"])
	assert.Equal(t, "d-7", fields["driver_id"])
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
}

func TestEstimate_UpstreamFailureLoggedAsError(t *testing.T) {
	f := newFareFixture(t, false)
	driver := newDriver("d-1", &party.DriverProfile{VehicleID: "v-1", VehicleType: party.VehicleOwn}, &liveAt, nil)
	f.users.On("FindByID", mock.Anything, "d-1").Return(driver, nil)
	f.vehicles.On("FindByID", mock.Anything, "v-1").Return(ownVehicle(), nil)
	f.distances.On("Distance", mock.Anything, mock.Anything, mock.Anything, "driving").
		Return(fare.Distance{}, domain.NewUpstreamError("distance lookup failed", errors.New("maps: OVER_QUERY_LIMIT - "))).Once()

	_, err := f.svc.Estimate(context.Background(), estimateReq("instant", "d-1"))
	require.Error(t, err)

	entries := f.logs.FilterMessage("fare estimate failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
	assert.Equal(t, "d-1", entries[0].ContextMap()["driver_id"])
}

package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Kilat-Ride/service-fare/internal/domain/fare"
	"github.com/Kilat-Ride/service-fare/internal/domain/geo"
	"github.com/Kilat-Ride/service-fare/internal/domain/party"
	"github.com/Kilat-Ride/service-fare/internal/pkg/domain"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Coordinates is a lat/lng pair as sent by clients. Pointers distinguish missing from zero.
type Coordinates struct {
	Lat *float64 `json:"lat"`
	Lng *float64 `json:"lng"`
}

// LocationInput is a passenger pickup or dropoff.
type LocationInput struct {
	Address     string       `json:"address"`
	Coordinates *Coordinates `json:"coordinates"`
}

// EstimateRequest is the fare estimate request body.
type EstimateRequest struct {
	BookingType string         `json:"bookingType"`
	Pickup      *LocationInput `json:"pickup"`
	Dropoff     *LocationInput `json:"dropoff"`
	DriverID    string         `json:"driverId"`
}

// WaypointDTO is a labelled point on the route.
type WaypointDTO struct {
	Label string  `json:"label"`
	Lat   float64 `json:"lat"`
	Lng   float64 `json:"lng"`
}

// LegDTO is one resolved leg.
type LegDTO struct {
	Label    string      `json:"label"`
	From     WaypointDTO `json:"from"`
	To       WaypointDTO `json:"to"`
	Distance int64       `json:"distance"`
	Duration int64       `json:"duration"`
}

// FareEstimateDTO is the public estimate contract.
type FareEstimateDTO struct {
	EstimatedDistance int64    `json:"estimatedDistance"`
	EstimatedDuration int64    `json:"estimatedDuration"`
	TotalFare         string   `json:"totalFare"`
	Route             string   `json:"route"`
	VehicleID         string   `json:"vehicleId"`
	Legs              []LegDTO `json:"legs"`
}

// FareConfig tunes leg resolution.
type FareConfig struct {
	Mode          string
	LookupTimeout time.Duration
	ParallelLegs  bool
}

// estimateInput is a validated EstimateRequest.
type estimateInput struct {
	bookingType fare.BookingType
	pickup      geo.Point
	dropoff     geo.Point
	driverID    string
}

// FareService runs the fare estimation pipeline.
type FareService struct {
	users     party.UserRepository
	vehicles  party.VehicleRepository
	distances fare.DistanceProvider
	pricing   fare.PricingStrategy
	cfg       FareConfig
	logger    *zap.Logger
}

// NewFareService creates a new FareService.
func NewFareService(
	users party.UserRepository,
	vehicles party.VehicleRepository,
	distances fare.DistanceProvider,
	pricing fare.PricingStrategy,
	cfg FareConfig,
	logger *zap.Logger,
) *FareService {
	if cfg.Mode == "" {
		cfg.Mode = fare.DefaultMode
	}
	return &FareService{
		users:     users,
		vehicles:  vehicles,
		distances: distances,
		pricing:   pricing,
		cfg:       cfg,
		logger:    logger,
	}
}

// Estimate prices a proposed booking and renders the public contract.
func (s *FareService) Estimate(ctx context.Context, req EstimateRequest) (*FareEstimateDTO, error) {
	est, err := s.Quote(ctx, req)
	if err != nil {
		return nil, err
	}
	result := toFareEstimateDTO(est)
	return &result, nil
}

// Quote prices a proposed booking. Every failure is logged with the booking type and driver.
func (s *FareService) Quote(ctx context.Context, req EstimateRequest) (fare.Estimate, error) {
	est, err := s.quote(ctx, req)
	if err != nil {
		fields := []zap.Field{
			zap.String("booking_type", req.BookingType),
			zap.String("driver_id", req.DriverID),
			zap.String("error_kind", string(domain.KindOf(err))),
			zap.Error(err),
		}
		switch domain.KindOf(err) {
		case domain.KindUpstream, domain.KindInternal:
			s.logger.Error("fare estimate failed", fields...)
		default:
			s.logger.Warn("fare estimate rejected", fields...)
		}
		return fare.Estimate{}, err
	}

	s.logger.Info("fare estimated",
		zap.String("booking_type", req.BookingType),
		zap.String("driver_id", req.DriverID),
		zap.String("vehicle_id", est.VehicleID),
		zap.Int("legs", len(est.Legs)),
		zap.Int64("distance_m", est.DistanceMeters),
		zap.Int64("fare_cents", est.FareCents),
	)
	return est, nil
}

func (s *FareService) quote(ctx context.Context, req EstimateRequest) (fare.Estimate, error) {
	in, err := validateEstimateRequest(req)
	if err != nil {
		return fare.Estimate{}, err
	}

	driver, profile, err := s.resolveDriver(ctx, in.driverID)
	if err != nil {
		return fare.Estimate{}, err
	}

	vehicle, err := s.resolveVehicle(ctx, profile)
	if err != nil {
		return fare.Estimate{}, err
	}

	origin, err := driverOrigin(in.bookingType, driver)
	if err != nil {
		return fare.Estimate{}, err
	}

	garage, err := s.resolveOwnerIfRented(ctx, in.bookingType, profile, vehicle)
	if err != nil {
		return fare.Estimate{}, err
	}

	plan := buildLegs(in, origin, garage)

	legs, err := s.resolveLegs(ctx, plan.Legs)
	if err != nil {
		return fare.Estimate{}, err
	}

	meters, seconds := fare.Totals(legs)

	cents, err := s.pricing.Calculate(meters, vehicle.PerKmRate())
	if err != nil {
		return fare.Estimate{}, domain.NewInternalError("fare computation failed", err)
	}

	return fare.Estimate{
		BookingType:     in.bookingType,
		DistanceMeters:  meters,
		DurationSeconds: seconds,
		FareCents:       cents,
		Route:           plan.Route,
		Legs:            legs,
		VehicleID:       vehicle.ID(),
	}, nil
}

// validateEstimateRequest runs before any collaborator is touched.
func validateEstimateRequest(req EstimateRequest) (estimateInput, error) {
	if req.BookingType == "" {
		return estimateInput{}, domain.NewValidationError("bookingType is required")
	}
	bookingType, err := fare.ParseBookingType(req.BookingType)
	if err != nil {
		return estimateInput{}, err
	}
	if req.DriverID == "" {
		return estimateInput{}, domain.NewValidationError("driverId is required")
	}
	pickup, err := locationPoint("pickup", req.Pickup)
	if err != nil {
		return estimateInput{}, err
	}
	dropoff, err := locationPoint("dropoff", req.Dropoff)
	if err != nil {
		return estimateInput{}, err
	}
	return estimateInput{
		bookingType: bookingType,
		pickup:      pickup,
		dropoff:     dropoff,
		driverID:    req.DriverID,
	}, nil
}

func locationPoint(field string, loc *LocationInput) (geo.Point, error) {
	if loc == nil || loc.Coordinates == nil || loc.Coordinates.Lat == nil || loc.Coordinates.Lng == nil {
		return geo.Point{}, domain.NewValidationError(fmt.Sprintf("%s coordinates are required", field))
	}
	p, err := geo.NewPoint(*loc.Coordinates.Lat, *loc.Coordinates.Lng)
	if err != nil {
		return geo.Point{}, domain.NewValidationError(fmt.Sprintf("%s: %s", field, err.Error()))
	}
	return p, nil
}

func (s *FareService) resolveDriver(ctx context.Context, driverID string) (*party.User, party.DriverProfile, error) {
	user, err := s.users.FindByID(ctx, driverID)
	if err != nil {
		if domain.IsKind(err, domain.KindNotFound) {
			return nil, party.DriverProfile{}, domain.NewNotFoundError("Driver", driverID)
		}
		return nil, party.DriverProfile{}, fmt.Errorf("failed to load driver: %w", err)
	}

	profile, ok := user.AsDriver()
	if !ok {
		if user.HasRole(party.RoleDriver) {
			return nil, party.DriverProfile{}, domain.NewNotFoundError("Vehicle for driver", driverID)
		}
		return nil, party.DriverProfile{}, domain.NewNotFoundError("Driver", driverID)
	}
	return user, profile, nil
}

func (s *FareService) resolveVehicle(ctx context.Context, profile party.DriverProfile) (*party.Vehicle, error) {
	vehicle, err := s.vehicles.FindByID(ctx, profile.VehicleID)
	if err != nil {
		if domain.IsKind(err, domain.KindNotFound) {
			return nil, domain.NewNotFoundError("Vehicle", profile.VehicleID)
		}
		return nil, fmt.Errorf("failed to load vehicle: %w", err)
	}
	return vehicle, nil
}

// driverOrigin picks the first waypoint: the live location for instant bookings,
// the permanent address for advance ones.
func driverOrigin(bookingType fare.BookingType, driver *party.User) (geo.Point, error) {
	switch bookingType {
	case fare.BookingInstant:
		loc := driver.CurrentLocation()
		if loc == nil {
			return geo.Point{}, domain.NewPreconditionError("driver's live location unavailable")
		}
		return storedPoint("driver's live location", loc.Point)
	case fare.BookingAdvance:
		addr := driver.PermanentAddress()
		if addr == nil {
			return geo.Point{}, domain.NewPreconditionError("driver's permanent address unavailable")
		}
		return storedPoint("driver's permanent address", addr.Point)
	default:
		return geo.Point{}, domain.NewValidationError(fmt.Sprintf("invalid bookingType: %q", bookingType))
	}
}

// resolveOwnerIfRented returns the owner's garage for advance bookings on rented vehicles, else nil.
func (s *FareService) resolveOwnerIfRented(
	ctx context.Context,
	bookingType fare.BookingType,
	profile party.DriverProfile,
	vehicle *party.Vehicle,
) (*geo.Point, error) {
	if bookingType != fare.BookingAdvance || profile.VehicleType != party.VehicleRented {
		return nil, nil
	}
	ownerID := vehicle.OwnerID()
	if ownerID == "" {
		return nil, domain.NewNotFoundError("Owner of vehicle", vehicle.ID())
	}

	owner, err := s.users.FindByID(ctx, ownerID)
	if err != nil {
		if domain.IsKind(err, domain.KindNotFound) {
			return nil, domain.NewNotFoundError("Owner", ownerID)
		}
		return nil, fmt.Errorf("failed to load owner: %w", err)
	}
	addr := owner.PermanentAddress()
	if addr == nil {
		return nil, domain.NewNotFoundError("Owner's permanent address", ownerID)
	}
	garage, err := storedPoint("owner's permanent address", addr.Point)
	if err != nil {
		return nil, err
	}
	return &garage, nil
}

// storedPoint range-checks a waypoint read from the directory.
func storedPoint(what string, p geo.Point) (geo.Point, error) {
	if err := p.Validate(); err != nil {
		return geo.Point{}, domain.NewValidationError(fmt.Sprintf("%s: %s", what, err.Error()))
	}
	return p, nil
}

func buildLegs(in estimateInput, origin geo.Point, garage *geo.Point) fare.Plan {
	if in.bookingType == fare.BookingInstant {
		return fare.PlanInstant(origin, in.pickup, in.dropoff)
	}
	return fare.PlanAdvance(origin, garage, in.pickup, in.dropoff)
}

// resolveLegs looks up every leg. Endpoints are fixed by the plan, so legs may run
// concurrently; either way the first failure aborts the whole estimate.
func (s *FareService) resolveLegs(ctx context.Context, planned []fare.Leg) ([]fare.Leg, error) {
	legs := make([]fare.Leg, len(planned))
	copy(legs, planned)

	if !s.cfg.ParallelLegs {
		for i := range legs {
			if err := s.resolveLeg(ctx, &legs[i]); err != nil {
				return nil, err
			}
		}
		return legs, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := range legs {
		leg := &legs[i]
		g.Go(func() error {
			return s.resolveLeg(gctx, leg)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return legs, nil
}

func (s *FareService) resolveLeg(ctx context.Context, leg *fare.Leg) error {
	origin, destination := leg.From.Point.LatLng(), leg.To.Point.LatLng()
	if err := geo.ValidateLatLng(origin); err != nil {
		return err
	}
	if err := geo.ValidateLatLng(destination); err != nil {
		return err
	}

	if s.cfg.LookupTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.LookupTimeout)
		defer cancel()
	}

	d, err := s.distances.Distance(ctx, origin, destination, s.cfg.Mode)
	if err != nil {
		s.logger.Debug("leg lookup failed",
			zap.String("leg", leg.Label),
			zap.String("origin", origin),
			zap.String("destination", destination),
			zap.Error(err),
		)
		var appErr *domain.AppError
		if errors.As(err, &appErr) {
			return err
		}
		return domain.NewUpstreamError(fmt.Sprintf("distance lookup failed for %s", leg.Label), err)
	}
	if d.Meters < 0 || d.Seconds < 0 {
		return domain.NewUpstreamError("distance lookup failed",
			fmt.Errorf("negative result for %s: %dm %ds", leg.Label, d.Meters, d.Seconds))
	}

	leg.DistanceMeters = d.Meters
	leg.DurationSeconds = d.Seconds
	return nil
}

func toFareEstimateDTO(est fare.Estimate) FareEstimateDTO {
	legs := make([]LegDTO, len(est.Legs))
	for i, l := range est.Legs {
		legs[i] = LegDTO{
			Label:    l.Label,
			From:     WaypointDTO{Label: l.From.Label, Lat: l.From.Point.Lat, Lng: l.From.Point.Lng},
			To:       WaypointDTO{Label: l.To.Label, Lat: l.To.Point.Lat, Lng: l.To.Point.Lng},
			Distance: l.DistanceMeters,
			Duration: l.DurationSeconds,
		}
	}
	return FareEstimateDTO{
		EstimatedDistance: est.DistanceMeters,
		EstimatedDuration: est.DurationSeconds,
		TotalFare:         est.TotalFare(),
		Route:             est.Route,
		VehicleID:         est.VehicleID,
		Legs:              legs,
	}
}

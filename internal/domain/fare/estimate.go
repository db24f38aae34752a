package fare

import "context"

// DefaultMode is the travel mode used when none is configured.
const DefaultMode = "driving"

// Distance is the lookup result for one leg.
type Distance struct {
	Meters  int64
	Seconds int64
}

// DistanceProvider resolves the road distance and travel time between two "lat,lng" strings.
type DistanceProvider interface {
	Distance(ctx context.Context, origin, destination, mode string) (Distance, error)
}

// Estimate is the priced result of a resolved plan.
type Estimate struct {
	BookingType     BookingType
	DistanceMeters  int64
	DurationSeconds int64
	FareCents       int64
	Route           string
	Legs            []Leg
	VehicleID       string
}

// TotalFare returns the fare formatted with two decimal places.
func (e Estimate) TotalFare() string {
	return FormatAmount(e.FareCents)
}

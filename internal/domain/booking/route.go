package booking

import (
	"github.com/Kilat-Ride/service-fare/internal/domain/fare"
	"github.com/Kilat-Ride/service-fare/internal/domain/geo"
)

// Stop is a passenger pickup or dropoff.
type Stop struct {
	Address string    `json:"address"`
	Point   geo.Point `json:"point"`
}

// RouteSummary is the value object recording the route a booking was priced on.
type RouteSummary struct {
	Description     string     `json:"description"`
	DistanceMeters  int64      `json:"distance_meters"`
	DurationSeconds int64      `json:"duration_seconds"`
	Legs            []fare.Leg `json:"legs"`
}

// RouteSummaryFromEstimate copies the route portion of an estimate.
func RouteSummaryFromEstimate(est fare.Estimate) RouteSummary {
	legs := make([]fare.Leg, len(est.Legs))
	copy(legs, est.Legs)
	return RouteSummary{
		Description:     est.Route,
		DistanceMeters:  est.DistanceMeters,
		DurationSeconds: est.DurationSeconds,
		Legs:            legs,
	}
}

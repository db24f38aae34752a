package fare

import (
	"strings"

	"github.com/Kilat-Ride/service-fare/internal/domain/geo"
)

// Waypoint labels used in route descriptions.
const (
	LabelDriverLocation   = "Driver's Location"
	LabelDriverHome       = "Driver's Home"
	LabelOwnerGarage      = "Owner's Garage"
	LabelPassengerPickup  = "Passenger's Pickup"
	LabelPassengerDropoff = "Passenger's Dropoff"
)

const routeSeparator = " -> "

// Leg labels.
const (
	LegDriverToPickup  = "Driver to Pickup"
	LegHomeToGarage    = "Home to Garage"
	LegGarageToPickup  = "Garage to Pickup"
	LegHomeToPickup    = "Home to Pickup"
	LegPickupToDropoff = "Pickup to Dropoff"
)

// Waypoint is a labelled stop on the route.
type Waypoint struct {
	Label string    `json:"label"`
	Point geo.Point `json:"point"`
}

// Leg is one point-to-point segment. Distance and duration are zero until resolved.
type Leg struct {
	Label           string   `json:"label"`
	From            Waypoint `json:"from"`
	To              Waypoint `json:"to"`
	DistanceMeters  int64    `json:"distanceMeters"`
	DurationSeconds int64    `json:"durationSeconds"`
}

// Plan is the ordered list of legs for a booking, fixed before any lookup runs.
type Plan struct {
	BookingType BookingType
	Waypoints   []Waypoint
	Legs        []Leg
	Route       string
}

// PlanInstant builds the two-leg route from the driver's live location.
func PlanInstant(driverLocation, pickup, dropoff geo.Point) Plan {
	start := Waypoint{Label: LabelDriverLocation, Point: driverLocation}
	pick := Waypoint{Label: LabelPassengerPickup, Point: pickup}
	drop := Waypoint{Label: LabelPassengerDropoff, Point: dropoff}

	legs := []Leg{
		{Label: LegDriverToPickup, From: start, To: pick},
		{Label: LegPickupToDropoff, From: pick, To: drop},
	}
	return Plan{
		BookingType: BookingInstant,
		Waypoints:   []Waypoint{start, pick, drop},
		Legs:        legs,
		Route:       joinLegLabels(legs),
	}
}

// PlanAdvance builds the route from the driver's home. A non-nil garage inserts
// a leg to collect the rented vehicle before the pickup.
func PlanAdvance(home geo.Point, garage *geo.Point, pickup, dropoff geo.Point) Plan {
	current := Waypoint{Label: LabelDriverHome, Point: home}
	waypoints := []Waypoint{current}
	var legs []Leg

	toPickup := LegHomeToPickup
	if garage != nil {
		g := Waypoint{Label: LabelOwnerGarage, Point: *garage}
		legs = append(legs, Leg{Label: LegHomeToGarage, From: current, To: g})
		waypoints = append(waypoints, g)
		current = g
		toPickup = LegGarageToPickup
	}

	pick := Waypoint{Label: LabelPassengerPickup, Point: pickup}
	drop := Waypoint{Label: LabelPassengerDropoff, Point: dropoff}
	legs = append(legs,
		Leg{Label: toPickup, From: current, To: pick},
		Leg{Label: LegPickupToDropoff, From: pick, To: drop},
	)
	waypoints = append(waypoints, pick, drop)

	return Plan{
		BookingType: BookingAdvance,
		Waypoints:   waypoints,
		Legs:        legs,
		Route:       joinWaypointLabels(waypoints),
	}
}

func joinLegLabels(legs []Leg) string {
	labels := make([]string, len(legs))
	for i, l := range legs {
		labels[i] = l.Label
	}
	return strings.Join(labels, routeSeparator)
}

func joinWaypointLabels(waypoints []Waypoint) string {
	labels := make([]string, len(waypoints))
	for i, w := range waypoints {
		labels[i] = w.Label
	}
	return strings.Join(labels, routeSeparator)
}

// Totals sums distance and duration over legs in order.
func Totals(legs []Leg) (distanceMeters, durationSeconds int64) {
	for _, l := range legs {
		distanceMeters += l.DistanceMeters
		durationSeconds += l.DurationSeconds
	}
	return distanceMeters, durationSeconds
}

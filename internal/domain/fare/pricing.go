package fare

import (
	"fmt"
	"math"
)

// PricingStrategy turns a resolved distance into a fare in minor currency units.
type PricingStrategy interface {
	Calculate(distanceMeters int64, perKmRate float64) (int64, error)
}

// PerKmPricing charges the vehicle's per-kilometre rate with no base fare or surcharges.
type PerKmPricing struct{}

// NewPerKmPricing creates a new PerKmPricing.
func NewPerKmPricing() *PerKmPricing {
	return &PerKmPricing{}
}

// Calculate returns round(distance/1000 * rate, 2 decimals) in cents, rounding half away from zero.
func (PerKmPricing) Calculate(distanceMeters int64, perKmRate float64) (int64, error) {
	if distanceMeters < 0 {
		return 0, fmt.Errorf("distance cannot be negative")
	}
	if math.IsNaN(perKmRate) || math.IsInf(perKmRate, 0) || perKmRate < 0 {
		return 0, fmt.Errorf("per-km rate must be a non-negative number")
	}
	return FareCents(distanceMeters, perKmRate), nil
}

// FareCents computes the fare in cents for a distance in meters at perKmRate currency units per km.
func FareCents(distanceMeters int64, perKmRate float64) int64 {
	cents := float64(distanceMeters) * perKmRate / 10
	// Snap to micro-cents first so float error cannot move a value off a half-cent tie.
	snapped := math.Round(cents*1e6) / 1e6
	return int64(math.Round(snapped))
}

// FormatAmount renders cents as a decimal string with exactly two places.
func FormatAmount(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}

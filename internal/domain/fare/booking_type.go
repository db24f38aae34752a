package fare

import (
	"fmt"

	"github.com/Kilat-Ride/service-fare/internal/pkg/domain"
)

// BookingType selects the leg construction policy.
type BookingType string

const (
	BookingInstant BookingType = "instant"
	BookingAdvance BookingType = "advance"
)

// IsValid returns true if the booking type is recognized.
func (t BookingType) IsValid() bool {
	return t == BookingInstant || t == BookingAdvance
}

// String returns the string representation of the booking type.
func (t BookingType) String() string {
	return string(t)
}

// ParseBookingType converts s to a BookingType, returning a validation error if unknown.
func ParseBookingType(s string) (BookingType, error) {
	t := BookingType(s)
	if !t.IsValid() {
		return "", domain.NewValidationError(fmt.Sprintf("invalid bookingType: %q", s))
	}
	return t, nil
}

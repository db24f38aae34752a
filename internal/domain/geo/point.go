package geo

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/Kilat-Ride/service-fare/internal/pkg/domain"
)

// latLngPattern is the only coordinate string shape the distance lookup accepts.
var latLngPattern = regexp.MustCompile(`^-?\d+(\.\d+)?,-?\d+(\.\d+)?$`)

// Point is a WGS84 coordinate.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// NewPoint builds a validated point.
func NewPoint(lat, lng float64) (Point, error) {
	p := Point{Lat: lat, Lng: lng}
	if err := p.Validate(); err != nil {
		return Point{}, err
	}
	return p, nil
}

// Validate rejects non-finite or out-of-range coordinates.
func (p Point) Validate() error {
	if math.IsNaN(p.Lat) || math.IsInf(p.Lat, 0) || p.Lat < -90 || p.Lat > 90 {
		return domain.NewValidationError(fmt.Sprintf("latitude out of range: %v", p.Lat))
	}
	if math.IsNaN(p.Lng) || math.IsInf(p.Lng, 0) || p.Lng < -180 || p.Lng > 180 {
		return domain.NewValidationError(fmt.Sprintf("longitude out of range: %v", p.Lng))
	}
	return nil
}

// LatLng formats the point as "lat,lng" without exponent notation.
func (p Point) LatLng() string {
	return strconv.FormatFloat(p.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(p.Lng, 'f', -1, 64)
}

// Equal reports whether both coordinates match exactly.
func (p Point) Equal(o Point) bool {
	return p.Lat == o.Lat && p.Lng == o.Lng
}

// ValidateLatLng checks a "lat,lng" string before it is sent upstream.
func ValidateLatLng(s string) error {
	if !latLngPattern.MatchString(s) {
		return domain.NewValidationError(fmt.Sprintf("invalid coordinates format: %q", s))
	}
	return nil
}

// ParseLatLng parses a "lat,lng" string into a validated point.
func ParseLatLng(s string) (Point, error) {
	if err := ValidateLatLng(s); err != nil {
		return Point{}, err
	}
	latStr, lngStr, _ := strings.Cut(s, ",")
	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return Point{}, domain.NewValidationError(fmt.Sprintf("invalid latitude: %q", latStr))
	}
	lng, err := strconv.ParseFloat(lngStr, 64)
	if err != nil {
		return Point{}, domain.NewValidationError(fmt.Sprintf("invalid longitude: %q", lngStr))
	}
	return NewPoint(lat, lng)
}

package geo

import (
	"fmt"
	"math"

	"github.com/iyhunko/mechanic-matching/internal/apperror"
)

const (
	// EarthRadiusKm is the mean Earth radius used by the Haversine formula.
	EarthRadiusKm = 6371.0

	// AverageSpeedKmh is the assumed travel speed for arrival estimates.
	AverageSpeedKmh = 60.0
)

// Point is a coordinate in decimal degrees.
type Point struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// NewPoint validates and returns a Point.
func NewPoint(lat, lon float64) (Point, error) {
	p := Point{Latitude: lat, Longitude: lon}
	if err := p.Validate(); err != nil {
		return Point{}, err
	}
	return p, nil
}

// Validate checks latitude is within [-90, 90] and longitude within [-180, 180].
func (p Point) Validate() error {
	if math.IsNaN(p.Latitude) || p.Latitude < -90 || p.Latitude > 90 {
		return apperror.NewFieldValidation("latitude", "must be between -90 and 90")
	}
	if math.IsNaN(p.Longitude) || p.Longitude < -180 || p.Longitude > 180 {
		return apperror.NewFieldValidation("longitude", "must be between -180 and 180")
	}
	return nil
}

// Distance returns the great-circle distance between a and b in kilometers.
func Distance(a, b Point) (float64, error) {
	if err := a.Validate(); err != nil {
		return 0, err
	}
	if err := b.Validate(); err != nil {
		return 0, err
	}

	lat1 := toRadians(a.Latitude)
	lat2 := toRadians(b.Latitude)
	dLat := toRadians(b.Latitude - a.Latitude)
	dLon := toRadians(b.Longitude - a.Longitude)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return EarthRadiusKm * c, nil
}

// EstimatedArrivalMinutes converts a distance to minutes of travel at AverageSpeedKmh.
func EstimatedArrivalMinutes(distanceKm float64) int {
	return int(math.Round(distanceKm / AverageSpeedKmh * 60))
}

// WithinRadius reports whether distanceKm lies inside radiusKm, inclusive.
func WithinRadius(distanceKm, radiusKm float64) bool {
	return distanceKm <= radiusKm
}

// FormatDistance renders a distance in meters below one kilometer and in kilometers otherwise.
func FormatDistance(distanceKm float64) string {
	if distanceKm < 1 {
		return fmt.Sprintf("%d m", int(math.Round(distanceKm*1000)))
	}
	return fmt.Sprintf("%.1f km", distanceKm)
}

// Box is a latitude/longitude rectangle enclosing a search circle. It is used as a
// coarse prefilter in storage queries before the exact Haversine check.
type Box struct {
	Center       Point
	MinLatitude  float64
	MaxLatitude  float64
	MinLongitude float64
	MaxLongitude float64
}

// BoundingBox returns the rectangle enclosing the circle of radiusKm around center.
// Near the poles or across the antimeridian the longitude span widens to the full range.
func BoundingBox(center Point, radiusKm float64) Box {
	dLat := radiusKm / EarthRadiusKm * 180 / math.Pi
	box := Box{
		Center:       center,
		MinLatitude:  math.Max(center.Latitude-dLat, -90),
		MaxLatitude:  math.Min(center.Latitude+dLat, 90),
		MinLongitude: -180,
		MaxLongitude: 180,
	}

	// widest longitude offset reached by the circle
	ratio := math.Sin(radiusKm/EarthRadiusKm) / math.Cos(toRadians(center.Latitude))
	if ratio >= 1 {
		return box
	}
	dLon := math.Asin(ratio) * 180 / math.Pi
	if center.Longitude-dLon < -180 || center.Longitude+dLon > 180 {
		return box
	}
	box.MinLongitude = center.Longitude - dLon
	box.MaxLongitude = center.Longitude + dLon
	return box
}

// Contains reports whether p lies inside the box.
func (b Box) Contains(p Point) bool {
	return p.Latitude >= b.MinLatitude && p.Latitude <= b.MaxLatitude &&
		p.Longitude >= b.MinLongitude && p.Longitude <= b.MaxLongitude
}

// Round rounds v to the given number of decimal places.
func Round(v float64, places int) float64 {
	pow := math.Pow(10, float64(places))
	return math.Round(v*pow) / pow
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

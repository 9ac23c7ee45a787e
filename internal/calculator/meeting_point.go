package calculator

import (
	"errors"
	"fmt"
	"math"

	"github.com/mmynk/splitorder/internal/models"
)

// ErrInvalidInput is returned for an empty or malformed coordinate set.
var ErrInvalidInput = errors.New("invalid input")

const (
	earthRadiusKm = 6371.0

	maxIterations   = 100
	convergenceKm   = 1e-6
	degreesToRadian = math.Pi / 180
)

// Haversine returns the great-circle distance between a and b in kilometres.
func Haversine(a, b models.Coordinate) float64 {
	lat1 := a.Latitude * degreesToRadian
	lat2 := b.Latitude * degreesToRadian
	dLat := (b.Latitude - a.Latitude) * degreesToRadian
	dLon := (b.Longitude - a.Longitude) * degreesToRadian

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(math.Min(1, h)))
}

// ResolveMeetingPoint approximates the geometric median of points under
// haversine distance with Weiszfeld's method and reports how far participants
// would travel to it.
//
// Algorithm:
// - Start from the arithmetic mean of all coordinates
// - Re-weight every point by 1/distance to the current estimate, skipping
//   points that sit exactly on it
// - Stop after 100 iterations or once the estimate moves less than 1e-6 km
func ResolveMeetingPoint(points []models.Coordinate) (models.MeetingPoint, error) {
	if len(points) == 0 {
		return models.MeetingPoint{}, fmt.Errorf("%w: at least one coordinate is required", ErrInvalidInput)
	}
	for i, p := range points {
		if err := validateCoordinate(p); err != nil {
			return models.MeetingPoint{}, fmt.Errorf("%w: coordinate %d: %v", ErrInvalidInput, i, err)
		}
	}

	estimate := mean(points)
	for range maxIterations {
		next, ok := weiszfeldStep(points, estimate)
		if !ok {
			// Every point coincides with the estimate.
			break
		}
		step := Haversine(estimate, next)
		estimate = next
		if step < convergenceKm {
			break
		}
	}

	var total, maxDist float64
	for _, p := range points {
		d := Haversine(estimate, p)
		total += d
		maxDist = math.Max(maxDist, d)
	}

	return models.MeetingPoint{
		Latitude:        estimate.Latitude,
		Longitude:       estimate.Longitude,
		AverageDistance: total / float64(len(points)),
		MaxDistance:     maxDist,
	}, nil
}

// weiszfeldStep computes the next estimate. It reports false when no point
// carries a defined weight.
func weiszfeldStep(points []models.Coordinate, estimate models.Coordinate) (models.Coordinate, bool) {
	var latSum, lonSum, weightSum float64
	for _, p := range points {
		d := Haversine(estimate, p)
		if d == 0 {
			continue
		}
		w := 1 / d
		latSum += w * p.Latitude
		lonSum += w * p.Longitude
		weightSum += w
	}
	if weightSum == 0 {
		return estimate, false
	}
	return models.Coordinate{
		Latitude:  latSum / weightSum,
		Longitude: lonSum / weightSum,
	}, true
}

func mean(points []models.Coordinate) models.Coordinate {
	var lat, lon float64
	for _, p := range points {
		lat += p.Latitude
		lon += p.Longitude
	}
	n := float64(len(points))
	return models.Coordinate{Latitude: lat / n, Longitude: lon / n}
}

func validateCoordinate(c models.Coordinate) error {
	if math.IsNaN(c.Latitude) || math.IsNaN(c.Longitude) ||
		math.IsInf(c.Latitude, 0) || math.IsInf(c.Longitude, 0) {
		return fmt.Errorf("coordinates must be finite")
	}
	if c.Latitude < -90 || c.Latitude > 90 {
		return fmt.Errorf("latitude %v out of range", c.Latitude)
	}
	if c.Longitude < -180 || c.Longitude > 180 {
		return fmt.Errorf("longitude %v out of range", c.Longitude)
	}
	return nil
}

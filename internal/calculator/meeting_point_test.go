package calculator

import (
	"errors"
	"math"
	"testing"

	"github.com/mmynk/splitorder/internal/models"
)

func totalDistance(from models.Coordinate, points []models.Coordinate) float64 {
	var sum float64
	for _, p := range points {
		sum += Haversine(from, p)
	}
	return sum
}

func TestHaversine(t *testing.T) {
	tests := []struct {
		name string
		a, b models.Coordinate
		want float64
	}{
		{"same point", models.Coordinate{Latitude: 12.9, Longitude: 77.6}, models.Coordinate{Latitude: 12.9, Longitude: 77.6}, 0},
		{"ten degrees along equator", models.Coordinate{}, models.Coordinate{Longitude: 10}, earthRadiusKm * 10 * math.Pi / 180},
		{"pole to pole", models.Coordinate{Latitude: 90}, models.Coordinate{Latitude: -90}, earthRadiusKm * math.Pi},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Haversine(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-6 {
				t.Errorf("Haversine(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestResolveMeetingPoint(t *testing.T) {
	t.Run("collinear points resolve to the middle one", func(t *testing.T) {
		points := []models.Coordinate{{Latitude: 0, Longitude: 0}, {Latitude: 0, Longitude: 10}, {Latitude: 0, Longitude: 20}}

		got, err := ResolveMeetingPoint(points)
		if err != nil {
			t.Fatalf("ResolveMeetingPoint failed: %v", err)
		}

		if math.Abs(got.Latitude) > 1e-6 || math.Abs(got.Longitude-10) > 1e-6 {
			t.Errorf("median = (%v, %v), want (0, 10)", got.Latitude, got.Longitude)
		}

		center := models.Coordinate{Latitude: got.Latitude, Longitude: got.Longitude}
		wantAvg := totalDistance(center, points) / 3
		if math.Abs(got.AverageDistance-wantAvg) > 1e-9 {
			t.Errorf("AverageDistance = %v, want %v", got.AverageDistance, wantAvg)
		}

		// Two points sit one leg away and one sits at the median.
		leg := Haversine(models.Coordinate{}, models.Coordinate{Longitude: 10})
		if math.Abs(got.MaxDistance-leg) > 1e-6 {
			t.Errorf("MaxDistance = %v, want %v", got.MaxDistance, leg)
		}
		if math.Abs(got.MaxDistance-1.5*got.AverageDistance) > 1e-6 {
			t.Errorf("MaxDistance = %v, want 1.5 x AverageDistance (%v)", got.MaxDistance, got.AverageDistance)
		}
	})

	t.Run("single point", func(t *testing.T) {
		got, err := ResolveMeetingPoint([]models.Coordinate{{Latitude: 12.9, Longitude: 77.6}})
		if err != nil {
			t.Fatalf("ResolveMeetingPoint failed: %v", err)
		}
		if got.Latitude != 12.9 || got.Longitude != 77.6 {
			t.Errorf("point = (%v, %v), want (12.9, 77.6)", got.Latitude, got.Longitude)
		}
		if got.AverageDistance != 0 || got.MaxDistance != 0 {
			t.Errorf("distances = (%v, %v), want zeros", got.AverageDistance, got.MaxDistance)
		}
	})

	t.Run("coincident points do not produce NaN", func(t *testing.T) {
		got, err := ResolveMeetingPoint([]models.Coordinate{{Latitude: 5, Longitude: 5}, {Latitude: 5, Longitude: 5}, {Latitude: 5, Longitude: 5}})
		if err != nil {
			t.Fatalf("ResolveMeetingPoint failed: %v", err)
		}
		if math.IsNaN(got.Latitude) || math.IsNaN(got.Longitude) {
			t.Fatalf("got NaN estimate: %+v", got)
		}
		if got.Latitude != 5 || got.Longitude != 5 {
			t.Errorf("point = (%v, %v), want (5, 5)", got.Latitude, got.Longitude)
		}
	})

	t.Run("symmetric square resolves to its centre", func(t *testing.T) {
		got, err := ResolveMeetingPoint([]models.Coordinate{{Latitude: 1, Longitude: 1}, {Latitude: 1, Longitude: -1}, {Latitude: -1, Longitude: 1}, {Latitude: -1, Longitude: -1}})
		if err != nil {
			t.Fatalf("ResolveMeetingPoint failed: %v", err)
		}
		if math.Abs(got.Latitude) > 1e-9 || math.Abs(got.Longitude) > 1e-9 {
			t.Errorf("centre = (%v, %v), want (0, 0)", got.Latitude, got.Longitude)
		}
		if math.Abs(got.MaxDistance-got.AverageDistance) > 1e-9 {
			t.Errorf("expected equal distances, got avg=%v max=%v", got.AverageDistance, got.MaxDistance)
		}
	})

	t.Run("median beats the mean when one participant is far away", func(t *testing.T) {
		points := []models.Coordinate{
			{Latitude: 12.97, Longitude: 77.59},
			{Latitude: 12.98, Longitude: 77.60},
			{Latitude: 12.96, Longitude: 77.61},
			{Latitude: 13.20, Longitude: 77.90},
		}

		got, err := ResolveMeetingPoint(points)
		if err != nil {
			t.Fatalf("ResolveMeetingPoint failed: %v", err)
		}

		median := models.Coordinate{Latitude: got.Latitude, Longitude: got.Longitude}
		if totalDistance(median, points) > totalDistance(mean(points), points) {
			t.Errorf("median total distance %v exceeds mean total distance %v",
				totalDistance(median, points), totalDistance(mean(points), points))
		}
	})
}

func TestResolveMeetingPoint_InvalidInput(t *testing.T) {
	tests := []struct {
		name   string
		points []models.Coordinate
	}{
		{"empty", nil},
		{"latitude out of range", []models.Coordinate{{Latitude: 91, Longitude: 0}}},
		{"longitude out of range", []models.Coordinate{{Latitude: 0, Longitude: -181}}},
		{"NaN", []models.Coordinate{{Latitude: math.NaN(), Longitude: 0}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ResolveMeetingPoint(tt.points)
			if !errors.Is(err, ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

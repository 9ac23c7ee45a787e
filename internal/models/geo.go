package models

// Coordinate is a participant location in decimal degrees. Never persisted.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// MeetingPoint is a suggested pickup location and how far participants travel to it.
// Distances are great-circle kilometres.
type MeetingPoint struct {
	Latitude        float64 `json:"latitude"`
	Longitude       float64 `json:"longitude"`
	AverageDistance float64 `json:"average_distance"`
	MaxDistance     float64 `json:"max_distance"`
}

package models

import "fmt"

// LocationSource tells how a job's site coordinates were captured.
type LocationSource string

const (
	LocationGeocoded LocationSource = "geocoded"
	LocationDropPin  LocationSource = "drop_pin"
)

type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func (c Coordinates) Validate() error {
	if c.Latitude < -90 || c.Latitude > 90 {
		return NewValidationError("latitude", fmt.Sprintf("latitude %v out of range", c.Latitude))
	}
	if c.Longitude < -180 || c.Longitude > 180 {
		return NewValidationError("longitude", fmt.Sprintf("longitude %v out of range", c.Longitude))
	}
	return nil
}

// JobLocation is a captured site pin for a job.
type JobLocation struct {
	JobID       string         `json:"jobId"`
	Coordinates Coordinates    `json:"coordinates"`
	Source      LocationSource `json:"source"`
	PlaceName   string         `json:"placeName,omitempty"`
}

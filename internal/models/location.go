package models

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"
)

// TimeLayout is the human-readable capture time stamped on every sample
const TimeLayout = "15:04:05"

// ErrInvalidCoordinates is returned when a sample lies outside the valid lat/lng ranges
var ErrInvalidCoordinates = errors.New("invalid coordinates")

// LocationSample represents one observed position
type LocationSample struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Accuracy  float64 `json:"accuracy,omitempty"` // Meters, 0 when unknown
	Altitude  float64 `json:"altitude,omitempty"`
	Timestamp string  `json:"timestamp"` // Format: 15:04:05
}

// NewLocationSample creates a sample stamped with the given capture time
func NewLocationSample(lat, lng float64, at time.Time) LocationSample {
	return LocationSample{
		Latitude:  lat,
		Longitude: lng,
		Timestamp: at.Format(TimeLayout),
	}
}

// Validate checks that the coordinates are within [-90,90] / [-180,180]
func (s LocationSample) Validate() error {
	if math.IsNaN(s.Latitude) || s.Latitude < -90 || s.Latitude > 90 {
		return fmt.Errorf("%w: latitude %v", ErrInvalidCoordinates, s.Latitude)
	}
	if math.IsNaN(s.Longitude) || s.Longitude < -180 || s.Longitude > 180 {
		return fmt.Errorf("%w: longitude %v", ErrInvalidCoordinates, s.Longitude)
	}
	return nil
}

// LocationUpdate is the display form of a sample kept in the tracker history
type LocationUpdate struct {
	Lat  string `json:"lat"`
	Lng  string `json:"lng"`
	Time string `json:"time"`
}

// FormatUpdate renders a sample with 6-decimal fixed coordinates
func FormatUpdate(s LocationSample) LocationUpdate {
	return LocationUpdate{
		Lat:  strconv.FormatFloat(s.Latitude, 'f', 6, 64),
		Lng:  strconv.FormatFloat(s.Longitude, 'f', 6, 64),
		Time: s.Timestamp,
	}
}

// TrackerState is a point-in-time snapshot of the location tracker
type TrackerState struct {
	IsTracking      bool             `json:"isTracking"`
	Current         *LocationSample  `json:"current,omitempty"`
	History         []LocationUpdate `json:"history"`
	ResolvedAddress *string          `json:"resolvedAddress,omitempty"`
	LastError       *string          `json:"lastError,omitempty"`
}

package models

import "time"

// TrackPoint represents a recorded GPS fix stored for replay
type TrackPoint struct {
	ID        int64   `json:"id" db:"id"`
	DataTime  int64   `json:"dataTime" db:"data_time"` // Unix timestamp in seconds
	Latitude  float64 `json:"latitude" db:"latitude"`
	Longitude float64 `json:"longitude" db:"longitude"`
	Accuracy  float64 `json:"accuracy" db:"accuracy"`
	Altitude  float64 `json:"altitude" db:"altitude"`
}

// Sample converts the stored point into a tracker sample
func (p TrackPoint) Sample() LocationSample {
	s := NewLocationSample(p.Latitude, p.Longitude, time.Unix(p.DataTime, 0))
	s.Accuracy = p.Accuracy
	s.Altitude = p.Altitude
	return s
}

package provider

import (
	"time"

	"github.com/jengzang/location-tracker/internal/models"
	"github.com/jengzang/location-tracker/internal/spatial"
)

// UpdateFilter gates samples by elapsed time and distance from the last accepted sample.
// It is not safe for concurrent use.
type UpdateFilter struct {
	minDistance float64
	minInterval time.Duration
	last        *models.LocationSample
	lastAt      time.Time
}

// NewUpdateFilter creates a filter for the given tracking configuration
func NewUpdateFilter(cfg models.TrackingConfig) *UpdateFilter {
	return &UpdateFilter{
		minDistance: cfg.MinDistanceMeters,
		minInterval: cfg.MinInterval(),
	}
}

// newDistanceFilter ignores time, for providers that already emit on a ticker
func newDistanceFilter(cfg models.TrackingConfig) *UpdateFilter {
	return &UpdateFilter{minDistance: cfg.MinDistanceMeters}
}

// Accept reports whether s should be emitted and records it if so.
// The first sample is always accepted.
func (f *UpdateFilter) Accept(s models.LocationSample, at time.Time) bool {
	if f.last != nil {
		if f.minInterval > 0 && at.Sub(f.lastAt) < f.minInterval {
			return false
		}
		if f.minDistance > 0 && spatial.DistanceMeters(*f.last, s) < f.minDistance {
			return false
		}
	}
	sample := s
	f.last = &sample
	f.lastAt = at
	return true
}

// Reset forgets the last accepted sample
func (f *UpdateFilter) Reset() {
	f.last = nil
	f.lastAt = time.Time{}
}

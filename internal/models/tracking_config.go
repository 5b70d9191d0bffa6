package models

import (
	"fmt"
	"time"
)

// Accuracy is the requested provider accuracy level
type Accuracy string

// Accuracy levels, lowest to best
const (
	AccuracyLowest            Accuracy = "lowest"
	AccuracyLow               Accuracy = "low"
	AccuracyBalanced          Accuracy = "balanced"
	AccuracyHigh              Accuracy = "high"
	AccuracyHighest           Accuracy = "highest"
	AccuracyBestForNavigation Accuracy = "best_for_navigation"
)

// Valid reports whether a is a known accuracy level
func (a Accuracy) Valid() bool {
	switch a {
	case AccuracyLowest, AccuracyLow, AccuracyBalanced, AccuracyHigh, AccuracyHighest, AccuracyBestForNavigation:
		return true
	}
	return false
}

// ForegroundService describes the persistent notice shown while tracking runs in the background
type ForegroundService struct {
	NotificationTitle string `json:"notificationTitle"`
	NotificationBody  string `json:"notificationBody"`
	NotificationColor string `json:"notificationColor"`
}

// TrackingConfig represents the cadence and filter requested from a provider
type TrackingConfig struct {
	Accuracy          Accuracy           `json:"accuracy" yaml:"accuracy" validate:"omitempty,oneof=lowest low balanced high highest best_for_navigation"`
	MinDistanceMeters float64            `json:"minDistanceMeters" yaml:"minDistanceMeters" validate:"gte=0"`
	MinIntervalMs     int64              `json:"minIntervalMs" yaml:"minIntervalMs" validate:"gte=0"`
	ForegroundService *ForegroundService `json:"foregroundService,omitempty" yaml:"-"`
}

// DefaultTrackingConfig returns high accuracy updates every 5 seconds or 10 meters
func DefaultTrackingConfig() TrackingConfig {
	return TrackingConfig{
		Accuracy:          AccuracyHigh,
		MinDistanceMeters: 10,
		MinIntervalMs:     5000,
	}
}

// MinInterval returns the configured interval as a duration
func (c TrackingConfig) MinInterval() time.Duration {
	return time.Duration(c.MinIntervalMs) * time.Millisecond
}

// Validate checks the configuration values
func (c TrackingConfig) Validate() error {
	if c.Accuracy != "" && !c.Accuracy.Valid() {
		return fmt.Errorf("unknown accuracy: %s", c.Accuracy)
	}
	if c.MinDistanceMeters < 0 {
		return fmt.Errorf("minDistanceMeters must be >= 0, got %v", c.MinDistanceMeters)
	}
	if c.MinIntervalMs < 0 {
		return fmt.Errorf("minIntervalMs must be >= 0, got %d", c.MinIntervalMs)
	}
	return nil
}

package provider

import (
	"context"
	"errors"

	"github.com/jengzang/location-tracker/internal/models"
)

// PermissionStatus is the outcome of a location permission request
type PermissionStatus string

// Permission outcomes
const (
	PermissionGranted      PermissionStatus = "granted"
	PermissionDenied       PermissionStatus = "denied"
	PermissionUndetermined PermissionStatus = "undetermined"
)

var (
	// ErrTaskNotRunning is returned when stopping a task that was never started
	ErrTaskNotRunning = errors.New("location task not running")
	// ErrNoFix is returned when the provider has no position to report
	ErrNoFix = errors.New("no position fix available")
	// ErrRecordingExhausted is emitted when a non-looping replay reaches the end of its track
	ErrRecordingExhausted = errors.New("recorded track exhausted")
)

// Event is delivered to subscribers for every emitted update.
// Err is set when the provider can no longer deliver updates for TaskID.
type Event struct {
	TaskID string
	Sample models.LocationSample
	Err    error
}

// Provider senses device position and emits updates once a task is started
type Provider interface {
	RequestPermission(ctx context.Context) (PermissionStatus, error)
	RequestBackgroundPermission(ctx context.Context) (PermissionStatus, error)
	CurrentFix(ctx context.Context, accuracy models.Accuracy) (models.LocationSample, error)
	StartUpdates(ctx context.Context, taskID string, cfg models.TrackingConfig) error
	StopUpdates(ctx context.Context, taskID string) error
	// Subscribe registers fn for all events; the returned func removes it
	Subscribe(fn func(Event)) (unsubscribe func())
}

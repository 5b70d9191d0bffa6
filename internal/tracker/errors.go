package tracker

import "errors"

var (
	// ErrPermissionDenied is returned when foreground location access is refused
	ErrPermissionDenied = errors.New("foreground location permission denied")
	// ErrBackgroundPermissionDenied is recorded, not returned, when background access is refused
	ErrBackgroundPermissionDenied = errors.New("background location permission denied")
	// ErrNoCurrentLocation is returned by Start before any fix is known
	ErrNoCurrentLocation = errors.New("no current location available")
	// ErrLocationUnavailable is returned when the provider cannot produce a fix
	ErrLocationUnavailable = errors.New("error getting location")
	// ErrTrackingStartFailed matches every *TrackingStartError
	ErrTrackingStartFailed = errors.New("failed to start tracking")
	// ErrTrackingStopFailed matches every *TrackingStopError
	ErrTrackingStopFailed = errors.New("failed to stop tracking")
	// ErrProviderFailure is recorded when the provider ends a running task with an error
	ErrProviderFailure = errors.New("location provider failed")
	// ErrGeocodeUnavailable marks absorbed geocoding failures in logs
	ErrGeocodeUnavailable = errors.New("geocoding unavailable")
	// ErrClosed is returned by operations on a closed tracker
	ErrClosed = errors.New("tracker closed")
)

// TrackingStartError reports why the provider refused to start updates
type TrackingStartError struct {
	Reason string
}

func (e *TrackingStartError) Error() string {
	return ErrTrackingStartFailed.Error() + ": " + e.Reason
}

func (e *TrackingStartError) Unwrap() error {
	return ErrTrackingStartFailed
}

// TrackingStopError reports why the provider refused to stop updates
type TrackingStopError struct {
	Reason string
}

func (e *TrackingStopError) Error() string {
	return ErrTrackingStopFailed.Error() + ": " + e.Reason
}

func (e *TrackingStopError) Unwrap() error {
	return ErrTrackingStopFailed
}

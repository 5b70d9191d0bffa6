package geocoding

import "context"

// Geocoding API status values
const (
	StatusOK            = "OK"
	StatusZeroResults   = "ZERO_RESULTS"
	StatusRequestDenied = "REQUEST_DENIED"
)

// Result is the outcome of a reverse geocoding lookup
type Result struct {
	Status           string `json:"status"`
	FormattedAddress string `json:"formatted_address,omitempty"`
}

// OK reports whether the lookup produced an address
func (r Result) OK() bool {
	return r.Status == StatusOK && r.FormattedAddress != ""
}

// Geocoder resolves coordinates to a human-readable address.
// A returned error means the service could not be reached or answered garbage;
// a non-OK Status is a valid answer.
type Geocoder interface {
	Reverse(ctx context.Context, lat, lng float64) (Result, error)
}

// GeocoderFunc adapts a function to the Geocoder interface
type GeocoderFunc func(ctx context.Context, lat, lng float64) (Result, error)

// Reverse calls f
func (f GeocoderFunc) Reverse(ctx context.Context, lat, lng float64) (Result, error) {
	return f(ctx, lat, lng)
}

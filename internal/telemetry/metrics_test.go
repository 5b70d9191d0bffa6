package telemetry

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitMetrics_Idempotent(t *testing.T) {
	InitMetrics()
	InitMetrics()

	SamplesReceived.Inc()
	GeocodeRequests.WithLabelValues("ok").Inc()

	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["location_tracker_samples_received_total"])
	assert.True(t, names["location_tracker_geocode_requests_total"])
	assert.True(t, names["location_tracker_tracking_active"])
}

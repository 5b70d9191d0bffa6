package tracker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jengzang/location-tracker/internal/geocoding"
	"github.com/jengzang/location-tracker/internal/models"
	"github.com/jengzang/location-tracker/internal/notification"
	"github.com/jengzang/location-tracker/internal/provider"
)

type fakeProvider struct {
	provider.Emitter

	mu         sync.Mutex
	foreground provider.PermissionStatus
	background provider.PermissionStatus
	fix        models.LocationSample
	fixErr     error
	startErr   error
	startFault error // emitted as a task error before StartUpdates returns
	stopErr    error
	started    []models.TrackingConfig
	stops      int
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		foreground: provider.PermissionGranted,
		background: provider.PermissionGranted,
		fix:        models.LocationSample{Latitude: 37.7749, Longitude: -122.4194, Timestamp: "10:00:00"},
	}
}

func (p *fakeProvider) RequestPermission(ctx context.Context) (provider.PermissionStatus, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.foreground, nil
}

func (p *fakeProvider) RequestBackgroundPermission(ctx context.Context) (provider.PermissionStatus, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.background, nil
}

func (p *fakeProvider) CurrentFix(ctx context.Context, accuracy models.Accuracy) (models.LocationSample, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fix, p.fixErr
}

func (p *fakeProvider) StartUpdates(ctx context.Context, taskID string, cfg models.TrackingConfig) error {
	p.mu.Lock()
	if p.startErr != nil {
		p.mu.Unlock()
		return p.startErr
	}
	p.started = append(p.started, cfg)
	fault := p.startFault
	p.mu.Unlock()

	if fault != nil {
		p.Emit(provider.Event{TaskID: taskID, Err: fault})
	}
	return nil
}

func (p *fakeProvider) StopUpdates(ctx context.Context, taskID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopErr != nil {
		return p.stopErr
	}
	p.stops++
	return nil
}

func (p *fakeProvider) emit(lat, lng float64, ts string) {
	p.Emit(provider.Event{
		TaskID: DefaultTaskID,
		Sample: models.LocationSample{Latitude: lat, Longitude: lng, Timestamp: ts},
	})
}

// gatedGeocoder blocks each lookup until its latitude is released
type gatedGeocoder struct {
	mu    sync.Mutex
	gates map[float64]chan geocoding.Result
}

func newGatedGeocoder() *gatedGeocoder {
	return &gatedGeocoder{gates: make(map[float64]chan geocoding.Result)}
}

func (g *gatedGeocoder) gate(lat float64) chan geocoding.Result {
	g.mu.Lock()
	defer g.mu.Unlock()
	ch, ok := g.gates[lat]
	if !ok {
		ch = make(chan geocoding.Result, 1)
		g.gates[lat] = ch
	}
	return ch
}

func (g *gatedGeocoder) Reverse(ctx context.Context, lat, lng float64) (geocoding.Result, error) {
	select {
	case res := <-g.gate(lat):
		return res, nil
	case <-ctx.Done():
		return geocoding.Result{}, ctx.Err()
	}
}

func (g *gatedGeocoder) release(lat float64, address string) {
	g.gate(lat) <- geocoding.Result{Status: geocoding.StatusOK, FormattedAddress: address}
}

func staticGeocoder(res geocoding.Result, err error) geocoding.Geocoder {
	return geocoding.GeocoderFunc(func(ctx context.Context, lat, lng float64) (geocoding.Result, error) {
		return res, err
	})
}

type recordingNotifier struct {
	mu    sync.Mutex
	posts []notification.Content
}

func (n *recordingNotifier) Post(content notification.Content) (string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.posts = append(n.posts, content)
	return fmt.Sprintf("n-%d", len(n.posts)), nil
}

func okGeocoder() geocoding.Geocoder {
	return staticGeocoder(geocoding.Result{Status: geocoding.StatusOK, FormattedAddress: "1 Market St"}, nil)
}

func startedTracker(t *testing.T, p *fakeProvider, g geocoding.Geocoder) *Tracker {
	t.Helper()
	tr := New(p, g, Options{})
	t.Cleanup(func() { tr.Close() })

	_, err := tr.Initialize(context.Background())
	require.NoError(t, err)
	require.NoError(t, tr.Start(context.Background(), models.DefaultTrackingConfig()))
	return tr
}

func TestInitialize(t *testing.T) {
	p := newFakeProvider()
	tr := New(p, okGeocoder(), Options{})
	defer tr.Close()

	fix, err := tr.Initialize(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 37.7749, fix.Latitude)

	tr.Wait()
	state := tr.State()
	require.NotNil(t, state.Current)
	assert.Equal(t, fix, *state.Current)
	require.NotNil(t, state.ResolvedAddress)
	assert.Equal(t, "1 Market St", *state.ResolvedAddress)
	assert.False(t, state.IsTracking)
	assert.Empty(t, state.History)
	assert.Nil(t, state.LastError)
}

func TestInitialize_PermissionDenied(t *testing.T) {
	p := newFakeProvider()
	p.foreground = provider.PermissionDenied
	tr := New(p, okGeocoder(), Options{})
	defer tr.Close()

	_, err := tr.Initialize(context.Background())
	assert.ErrorIs(t, err, ErrPermissionDenied)

	state := tr.State()
	assert.Nil(t, state.Current)
	require.NotNil(t, state.LastError)
	assert.Equal(t, ErrPermissionDenied.Error(), *state.LastError)
}

func TestInitialize_BackgroundDeniedStillFetchesFix(t *testing.T) {
	p := newFakeProvider()
	p.background = provider.PermissionDenied
	tr := New(p, okGeocoder(), Options{})
	defer tr.Close()

	_, err := tr.Initialize(context.Background())
	require.NoError(t, err)

	state := tr.State()
	assert.NotNil(t, state.Current)
	require.NotNil(t, state.LastError)
	assert.Equal(t, ErrBackgroundPermissionDenied.Error(), *state.LastError)
}

func TestInitialize_FixUnavailable(t *testing.T) {
	p := newFakeProvider()
	p.fixErr = provider.ErrNoFix
	tr := New(p, okGeocoder(), Options{})
	defer tr.Close()

	_, err := tr.Initialize(context.Background())
	assert.ErrorIs(t, err, ErrLocationUnavailable)
	assert.Nil(t, tr.State().Current)
}

func TestReinitialize_ClearsError(t *testing.T) {
	p := newFakeProvider()
	p.foreground = provider.PermissionDenied
	tr := New(p, okGeocoder(), Options{})
	defer tr.Close()

	_, err := tr.Initialize(context.Background())
	require.Error(t, err)

	p.mu.Lock()
	p.foreground = provider.PermissionGranted
	p.mu.Unlock()

	_, err = tr.Reinitialize(context.Background())
	require.NoError(t, err)
	tr.Wait()

	state := tr.State()
	assert.Nil(t, state.LastError)
	assert.NotNil(t, state.Current)
	assert.NotNil(t, state.ResolvedAddress)
}

func TestStart_RequiresCurrentLocation(t *testing.T) {
	p := newFakeProvider()
	tr := New(p, okGeocoder(), Options{})
	defer tr.Close()

	err := tr.Start(context.Background(), models.DefaultTrackingConfig())
	assert.ErrorIs(t, err, ErrNoCurrentLocation)
	assert.False(t, tr.State().IsTracking)
	assert.Empty(t, p.started)
}

func TestStart_PostsForegroundNotice(t *testing.T) {
	p := newFakeProvider()
	notifier := &recordingNotifier{}
	tr := New(p, okGeocoder(), Options{Notifier: notifier})
	defer tr.Close()

	_, err := tr.Initialize(context.Background())
	require.NoError(t, err)
	require.NoError(t, tr.Start(context.Background(), models.TrackingConfig{MinDistanceMeters: 10, MinIntervalMs: 5000}))
	assert.True(t, tr.State().IsTracking)

	require.Len(t, p.started, 1)
	cfg := p.started[0]
	assert.Equal(t, models.AccuracyHigh, cfg.Accuracy)
	require.NotNil(t, cfg.ForegroundService)
	assert.Equal(t, "Location Tracking", cfg.ForegroundService.NotificationTitle)
	assert.Equal(t, "Latitude: 37.774900", cfg.ForegroundService.NotificationBody)
	assert.Equal(t, "#ff0000", cfg.ForegroundService.NotificationColor)

	require.Len(t, notifier.posts, 1)
	assert.Equal(t, "Location Tracking", notifier.posts[0].Title)

	// Second start while tracking is a no-op
	require.NoError(t, tr.Start(context.Background(), models.DefaultTrackingConfig()))
	assert.Len(t, p.started, 1)
}

func TestStart_ProviderRejects(t *testing.T) {
	p := newFakeProvider()
	p.startErr = errors.New("foreground service not allowed")
	tr := New(p, okGeocoder(), Options{})
	defer tr.Close()

	_, err := tr.Initialize(context.Background())
	require.NoError(t, err)

	err = tr.Start(context.Background(), models.DefaultTrackingConfig())
	assert.ErrorIs(t, err, ErrTrackingStartFailed)
	var startErr *TrackingStartError
	require.ErrorAs(t, err, &startErr)
	assert.Equal(t, "foreground service not allowed", startErr.Reason)

	state := tr.State()
	assert.False(t, state.IsTracking)
	require.NotNil(t, state.LastError)

	// Updates are not accepted after a failed start
	p.emit(1, 1, "10:00:01")
	assert.Empty(t, tr.State().History)
}

func TestStart_ProviderErrorWhileStarting(t *testing.T) {
	p := newFakeProvider()
	p.startFault = errors.New("gps lost")
	tr := New(p, okGeocoder(), Options{})
	defer tr.Close()

	_, err := tr.Initialize(context.Background())
	require.NoError(t, err)

	err = tr.Start(context.Background(), models.DefaultTrackingConfig())
	assert.ErrorIs(t, err, ErrTrackingStartFailed)
	var startErr *TrackingStartError
	require.ErrorAs(t, err, &startErr)
	assert.Contains(t, startErr.Reason, "gps lost")

	state := tr.State()
	assert.False(t, state.IsTracking)
	require.NotNil(t, state.LastError)
	assert.Contains(t, *state.LastError, "gps lost")
	assert.Equal(t, 1, p.stops, "the half-started task is released")

	p.emit(1, 1, "10:00:01")
	assert.Empty(t, tr.State().History)

	// A later start succeeds once the provider recovers
	p.mu.Lock()
	p.startFault = nil
	p.mu.Unlock()
	require.NoError(t, tr.Start(context.Background(), models.DefaultTrackingConfig()))
	assert.True(t, tr.State().IsTracking)
}

func TestStart_InvalidConfig(t *testing.T) {
	p := newFakeProvider()
	tr := New(p, okGeocoder(), Options{})
	defer tr.Close()

	_, err := tr.Initialize(context.Background())
	require.NoError(t, err)

	err = tr.Start(context.Background(), models.TrackingConfig{MinIntervalMs: -1})
	assert.ErrorIs(t, err, ErrTrackingStartFailed)
	assert.Empty(t, p.started)
}

func TestStop(t *testing.T) {
	p := newFakeProvider()
	tr := startedTracker(t, p, okGeocoder())

	require.NoError(t, tr.Stop(context.Background()))
	assert.False(t, tr.State().IsTracking)
	assert.Equal(t, 1, p.stops)

	// Stopping while idle does not reach the provider
	require.NoError(t, tr.Stop(context.Background()))
	assert.Equal(t, 1, p.stops)
}

func TestStop_WhenNeverStarted(t *testing.T) {
	p := newFakeProvider()
	tr := New(p, okGeocoder(), Options{})
	defer tr.Close()

	require.NoError(t, tr.Stop(context.Background()))
	assert.Equal(t, 0, p.stops)
}

func TestStop_ProviderFailureKeepsTracking(t *testing.T) {
	p := newFakeProvider()
	tr := startedTracker(t, p, okGeocoder())

	p.mu.Lock()
	p.stopErr = errors.New("service unavailable")
	p.mu.Unlock()

	err := tr.Stop(context.Background())
	assert.ErrorIs(t, err, ErrTrackingStopFailed)
	assert.True(t, tr.State().IsTracking)

	p.emit(2, 2, "10:00:02")
	assert.Len(t, tr.State().History, 1)

	p.mu.Lock()
	p.stopErr = nil
	p.mu.Unlock()
	require.NoError(t, tr.Stop(context.Background()))
}

func TestStop_TaskAlreadyGone(t *testing.T) {
	p := newFakeProvider()
	tr := startedTracker(t, p, okGeocoder())

	p.mu.Lock()
	p.stopErr = fmt.Errorf("stop: %w", provider.ErrTaskNotRunning)
	p.mu.Unlock()

	require.NoError(t, tr.Stop(context.Background()))
	assert.False(t, tr.State().IsTracking)
}

func TestHistoryIsBoundedNewestFirst(t *testing.T) {
	p := newFakeProvider()
	tr := startedTracker(t, p, okGeocoder())

	for i := 1; i <= 12; i++ {
		p.emit(float64(i), float64(i), fmt.Sprintf("10:00:%02d", i))
	}
	tr.Wait()

	state := tr.State()
	require.Len(t, state.History, DefaultHistorySize)
	assert.Equal(t, "12.000000", state.History[0].Lat)
	assert.Equal(t, "10:00:12", state.History[0].Time)
	assert.Equal(t, "3.000000", state.History[9].Lat)

	require.NotNil(t, state.Current)
	assert.Equal(t, 12.0, state.Current.Latitude)
}

func TestHistoryShorterThanLimit(t *testing.T) {
	p := newFakeProvider()
	tr := startedTracker(t, p, okGeocoder())

	for i := 1; i <= 3; i++ {
		p.emit(float64(i), 0, "10:00:00")
	}

	history := tr.State().History
	require.Len(t, history, 3)
	assert.Equal(t, "3.000000", history[0].Lat)
	assert.Equal(t, "1.000000", history[2].Lat)
}

func TestAddressFollowsNewestSample(t *testing.T) {
	p := newFakeProvider()
	g := newGatedGeocoder()
	g.release(p.fix.Latitude, "Initial")
	tr := startedTracker(t, p, g)

	p.emit(10, 10, "10:00:10")
	p.emit(20, 20, "10:00:20")

	// Newer lookup completes first, the older one afterwards
	g.release(20, "Address B")
	g.release(10, "Address A")
	tr.Wait()

	state := tr.State()
	require.NotNil(t, state.ResolvedAddress)
	assert.Equal(t, "Address B", *state.ResolvedAddress)
	assert.Equal(t, 20.0, state.Current.Latitude)
}

func TestAddressNotAvailable(t *testing.T) {
	p := newFakeProvider()
	tr := New(p, staticGeocoder(geocoding.Result{Status: geocoding.StatusZeroResults}, nil), Options{})
	defer tr.Close()

	_, err := tr.Initialize(context.Background())
	require.NoError(t, err)
	tr.Wait()

	state := tr.State()
	require.NotNil(t, state.ResolvedAddress)
	assert.Equal(t, AddressNotAvailable, *state.ResolvedAddress)
}

func TestAddressFetchError(t *testing.T) {
	p := newFakeProvider()
	tr := New(p, staticGeocoder(geocoding.Result{}, errors.New("connection refused")), Options{})
	defer tr.Close()

	_, err := tr.Initialize(context.Background())
	require.NoError(t, err)
	tr.Wait()

	state := tr.State()
	require.NotNil(t, state.ResolvedAddress)
	assert.Equal(t, AddressFetchError, *state.ResolvedAddress)
	assert.Nil(t, state.LastError)
}

func TestNilGeocoder(t *testing.T) {
	p := newFakeProvider()
	tr := New(p, nil, Options{})
	defer tr.Close()

	_, err := tr.Initialize(context.Background())
	require.NoError(t, err)
	tr.Wait()

	require.NotNil(t, tr.State().ResolvedAddress)
	assert.Equal(t, AddressNotAvailable, *tr.State().ResolvedAddress)
}

func TestEventsAfterStopAreDropped(t *testing.T) {
	p := newFakeProvider()
	tr := startedTracker(t, p, okGeocoder())

	p.emit(1, 1, "10:00:01")
	require.NoError(t, tr.Stop(context.Background()))
	p.emit(2, 2, "10:00:02")

	state := tr.State()
	require.Len(t, state.History, 1)
	assert.Equal(t, 1.0, state.Current.Latitude)
}

func TestEventsForOtherTasksAreIgnored(t *testing.T) {
	p := newFakeProvider()
	tr := startedTracker(t, p, okGeocoder())

	p.Emit(provider.Event{TaskID: "other-task", Sample: models.LocationSample{Latitude: 5}})
	assert.Empty(t, tr.State().History)
}

func TestInvalidSamplesAreDropped(t *testing.T) {
	p := newFakeProvider()
	tr := startedTracker(t, p, okGeocoder())

	p.emit(95, 0, "10:00:01")
	assert.Empty(t, tr.State().History)
}

func TestProviderErrorEndsTracking(t *testing.T) {
	p := newFakeProvider()
	tr := startedTracker(t, p, okGeocoder())

	p.Emit(provider.Event{TaskID: DefaultTaskID, Err: errors.New("gps lost")})

	state := tr.State()
	assert.False(t, state.IsTracking)
	require.NotNil(t, state.LastError)
	assert.Contains(t, *state.LastError, "gps lost")

	p.emit(1, 1, "10:00:01")
	assert.Empty(t, tr.State().History)
}

func TestClose(t *testing.T) {
	p := newFakeProvider()
	tr := New(p, okGeocoder(), Options{})

	_, err := tr.Initialize(context.Background())
	require.NoError(t, err)
	require.NoError(t, tr.Start(context.Background(), models.DefaultTrackingConfig()))

	require.NoError(t, tr.Close())
	assert.Equal(t, 1, p.stops)
	assert.Equal(t, 0, p.Subscribers())
	assert.False(t, tr.State().IsTracking)

	require.NoError(t, tr.Close())
	assert.ErrorIs(t, tr.Start(context.Background(), models.DefaultTrackingConfig()), ErrClosed)
	_, err = tr.Initialize(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}

func TestCloseCancelsPendingLookups(t *testing.T) {
	p := newFakeProvider()
	g := newGatedGeocoder()
	tr := New(p, g, Options{})

	_, err := tr.Initialize(context.Background())
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		tr.Close()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not return with a pending lookup")
	}
	assert.Nil(t, tr.State().ResolvedAddress)
}

func TestCloseReleasesInitializeWaitingForFix(t *testing.T) {
	push := provider.NewPush()
	tr := New(push, okGeocoder(), Options{})

	initErr := make(chan error, 1)
	go func() {
		_, err := tr.Initialize(context.Background())
		initErr <- err
	}()
	time.Sleep(20 * time.Millisecond)

	closed := make(chan error, 1)
	go func() { closed <- tr.Close() }()

	select {
	case err := <-closed:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Close blocked behind Initialize")
	}

	select {
	case err := <-initErr:
		assert.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Initialize did not return after Close")
	}
	assert.Nil(t, tr.State().Current)
}

func TestWatch(t *testing.T) {
	p := newFakeProvider()
	tr := New(p, okGeocoder(), Options{})
	defer tr.Close()

	var mu sync.Mutex
	var states []models.TrackerState
	unwatch := tr.Watch(func(s models.TrackerState) {
		mu.Lock()
		states = append(states, s)
		mu.Unlock()
	})

	_, err := tr.Initialize(context.Background())
	require.NoError(t, err)
	tr.Wait()

	mu.Lock()
	require.NotEmpty(t, states)
	last := states[len(states)-1]
	seen := len(states)
	mu.Unlock()
	require.NotNil(t, last.ResolvedAddress)
	assert.Equal(t, "1 Market St", *last.ResolvedAddress)

	unwatch()
	unwatch()
	require.NoError(t, tr.Start(context.Background(), models.DefaultTrackingConfig()))

	mu.Lock()
	assert.Equal(t, seen, len(states))
	mu.Unlock()
}

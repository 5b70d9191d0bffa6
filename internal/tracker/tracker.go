package tracker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/jengzang/location-tracker/internal/geocoding"
	"github.com/jengzang/location-tracker/internal/models"
	"github.com/jengzang/location-tracker/internal/notification"
	"github.com/jengzang/location-tracker/internal/provider"
	"github.com/jengzang/location-tracker/internal/telemetry"
)

const (
	// DefaultTaskID names the provider task used for continuous updates
	DefaultTaskID = "background-location-task"
	// DefaultHistorySize bounds the recent-update history
	DefaultHistorySize = 10

	// AddressNotAvailable is shown when the geocoder answers with a non-OK status
	AddressNotAvailable = "Address not available"
	// AddressFetchError is shown when the geocoder cannot be reached
	AddressFetchError = "Error fetching address"
)

// Notifier posts the foreground-service notice when tracking starts
type Notifier interface {
	Post(content notification.Content) (string, error)
}

// Options configures a Tracker
type Options struct {
	TaskID         string
	HistorySize    int
	FixAccuracy    models.Accuracy // Accuracy used by Initialize
	GeocodeTimeout time.Duration
	Notifier       Notifier
}

func (o *Options) applyDefaults() {
	if o.TaskID == "" {
		o.TaskID = DefaultTaskID
	}
	if o.HistorySize <= 0 {
		o.HistorySize = DefaultHistorySize
	}
	if o.FixAccuracy == "" {
		o.FixAccuracy = models.AccuracyBalanced
	}
	if o.GeocodeTimeout <= 0 {
		o.GeocodeTimeout = 10 * time.Second
	}
}

// Tracker subscribes to a location provider, keeps the latest fix, a bounded
// history and the address of the latest fix.
//
// Every sample made current gets a sequence number. An address lookup only
// lands if its sequence number is still the current one, so a slow lookup for
// an older sample never overwrites the address of a newer one.
type Tracker struct {
	provider provider.Provider
	geocoder geocoding.Geocoder
	opts     Options

	ctx         context.Context
	cancel      context.CancelFunc
	unsubscribe func()
	inflight    sync.WaitGroup

	// ctrl serializes Initialize, Start, Stop and Close. It is never held by the
	// event handler, so provider calls made under it cannot deadlock with delivery.
	ctrl sync.Mutex

	// publishMu keeps observer deliveries in snapshot order
	publishMu sync.Mutex

	mu        sync.Mutex
	closed    bool
	tracking  bool
	accepting bool
	current   *models.LocationSample
	seq       uint64
	history   *History
	address   *string
	lastErr   error
	watchers  map[int]func(models.TrackerState)
	nextWatch int
}

// New creates a tracker and subscribes it to p. Call Close to release the subscription.
func New(p provider.Provider, g geocoding.Geocoder, opts Options) *Tracker {
	opts.applyDefaults()
	if g == nil {
		g = geocoding.GeocoderFunc(func(ctx context.Context, lat, lng float64) (geocoding.Result, error) {
			return geocoding.Result{Status: geocoding.StatusRequestDenied}, nil
		})
	}

	ctx, cancel := context.WithCancel(context.Background())
	t := &Tracker{
		provider: p,
		geocoder: g,
		opts:     opts,
		ctx:      ctx,
		cancel:   cancel,
		history:  NewHistory(opts.HistorySize),
		watchers: make(map[int]func(models.TrackerState)),
	}
	t.unsubscribe = p.Subscribe(t.handleEvent)
	return t
}

// Initialize requests location access and fetches one fix, which becomes current.
// A refused background permission is recorded in the state but does not fail the call.
func (t *Tracker) Initialize(ctx context.Context) (models.LocationSample, error) {
	t.ctrl.Lock()
	defer t.ctrl.Unlock()

	if t.isClosed() {
		return models.LocationSample{}, ErrClosed
	}
	ctx, release := t.bounded(ctx)
	defer release()
	t.setLastError(nil)

	status, err := t.provider.RequestPermission(ctx)
	if err != nil {
		err = fmt.Errorf("failed to request location permission: %w", err)
		t.setLastError(err)
		return models.LocationSample{}, err
	}
	if status != provider.PermissionGranted {
		log.Printf("Foreground location permission %s", status)
		t.setLastError(ErrPermissionDenied)
		return models.LocationSample{}, ErrPermissionDenied
	}

	if bg, err := t.provider.RequestBackgroundPermission(ctx); err != nil || bg != provider.PermissionGranted {
		log.Printf("Background location permission not granted (status=%s, err=%v)", bg, err)
		t.setLastError(ErrBackgroundPermissionDenied)
	}

	fix, err := t.provider.CurrentFix(ctx, t.opts.FixAccuracy)
	if err == nil {
		err = fix.Validate()
	}
	if err != nil {
		err = fmt.Errorf("%w: %v", ErrLocationUnavailable, err)
		t.setLastError(err)
		return models.LocationSample{}, err
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return models.LocationSample{}, ErrClosed
	}
	seq := t.makeCurrentLocked(fix)
	t.inflight.Add(1)
	t.mu.Unlock()

	go t.resolveAddress(seq, fix)
	t.publish()

	log.Printf("Tracker initialized at (%.6f, %.6f)", fix.Latitude, fix.Longitude)
	return fix, nil
}

// Reinitialize clears the last error and address, then runs Initialize again
func (t *Tracker) Reinitialize(ctx context.Context) (models.LocationSample, error) {
	t.mu.Lock()
	t.address = nil
	t.lastErr = nil
	t.mu.Unlock()
	return t.Initialize(ctx)
}

// Start asks the provider for continuous updates using cfg. The current fix is
// required. Calling Start while already tracking is a no-op.
func (t *Tracker) Start(ctx context.Context, cfg models.TrackingConfig) error {
	t.ctrl.Lock()
	defer t.ctrl.Unlock()

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return ErrClosed
	}
	if t.tracking {
		t.mu.Unlock()
		return nil
	}
	if t.current == nil {
		t.lastErr = ErrNoCurrentLocation
		t.mu.Unlock()
		t.publish()
		return ErrNoCurrentLocation
	}
	current := *t.current
	t.accepting = true
	t.mu.Unlock()

	if cfg.Accuracy == "" {
		cfg.Accuracy = models.AccuracyHigh
	}
	if cfg.ForegroundService == nil {
		notice := ForegroundNotice(current)
		cfg.ForegroundService = &notice
	}

	ctx, release := t.bounded(ctx)
	defer release()

	err := cfg.Validate()
	if err == nil {
		err = t.provider.StartUpdates(ctx, t.opts.TaskID, cfg)
	}
	if err != nil {
		startErr := &TrackingStartError{Reason: err.Error()}
		t.mu.Lock()
		t.accepting = false
		t.lastErr = startErr
		t.mu.Unlock()
		t.publish()
		log.Printf("Tracking error: %v", err)
		return startErr
	}

	// A provider error delivered while StartUpdates ran has already cleared accepting
	t.mu.Lock()
	if !t.accepting {
		reason := "location task ended while starting"
		if t.lastErr != nil {
			reason = t.lastErr.Error()
		}
		t.mu.Unlock()
		if err := t.provider.StopUpdates(ctx, t.opts.TaskID); err != nil && !errors.Is(err, provider.ErrTaskNotRunning) {
			log.Printf("Failed to release task %s after provider error: %v", t.opts.TaskID, err)
		}
		log.Printf("Tracking error: %s", reason)
		return &TrackingStartError{Reason: reason}
	}
	t.tracking = true
	t.mu.Unlock()
	telemetry.TrackingActive.Set(1)
	t.publish()

	if t.opts.Notifier != nil {
		fs := cfg.ForegroundService
		if _, err := t.opts.Notifier.Post(notification.Content{
			Title: fs.NotificationTitle,
			Body:  fs.NotificationBody,
			Color: fs.NotificationColor,
		}); err != nil {
			log.Printf("Failed to post tracking notice: %v", err)
		}
	}

	log.Printf("Tracking started (task %s, accuracy %s, every %dms / %.0fm)",
		t.opts.TaskID, cfg.Accuracy, cfg.MinIntervalMs, cfg.MinDistanceMeters)
	return nil
}

// Stop asks the provider to end continuous updates. Calling Stop while not
// tracking is a no-op.
func (t *Tracker) Stop(ctx context.Context) error {
	t.ctrl.Lock()
	defer t.ctrl.Unlock()

	t.mu.Lock()
	tracking := t.tracking
	t.accepting = false
	t.mu.Unlock()
	if !tracking {
		return nil
	}

	ctx, release := t.bounded(ctx)
	defer release()

	if err := t.provider.StopUpdates(ctx, t.opts.TaskID); err != nil && !errors.Is(err, provider.ErrTaskNotRunning) {
		stopErr := &TrackingStopError{Reason: err.Error()}
		t.mu.Lock()
		t.accepting = t.tracking
		t.lastErr = stopErr
		t.mu.Unlock()
		t.publish()
		log.Printf("Stop tracking error: %v", err)
		return stopErr
	}

	t.mu.Lock()
	t.tracking = false
	t.accepting = false
	t.mu.Unlock()
	telemetry.TrackingActive.Set(0)
	t.publish()

	log.Printf("Tracking stopped (task %s)", t.opts.TaskID)
	return nil
}

// State returns a snapshot of the tracker state
func (t *Tracker) State() models.TrackerState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

// Watch calls fn with a snapshot after every state change; the returned func removes it.
// fn must not call Watch or the disposer it returned.
func (t *Tracker) Watch(fn func(models.TrackerState)) func() {
	t.mu.Lock()
	id := t.nextWatch
	t.nextWatch++
	t.watchers[id] = fn
	t.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			t.mu.Lock()
			delete(t.watchers, id)
			t.mu.Unlock()
		})
	}
}

// Wait blocks until all in-flight address lookups have completed
func (t *Tracker) Wait() {
	t.inflight.Wait()
}

// Close releases the provider subscription, stops a running task and waits
// for in-flight lookups. Events delivered after Close are ignored.
func (t *Tracker) Close() error {
	// Cancel first so a control call blocked on the provider releases ctrl
	t.cancel()

	t.ctrl.Lock()
	defer t.ctrl.Unlock()

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	wasTracking := t.tracking
	t.tracking = false
	t.accepting = false
	t.mu.Unlock()

	t.unsubscribe()

	var err error
	if wasTracking {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if stopErr := t.provider.StopUpdates(stopCtx, t.opts.TaskID); stopErr != nil && !errors.Is(stopErr, provider.ErrTaskNotRunning) {
			err = fmt.Errorf("failed to stop updates on close: %w", stopErr)
		}
		cancel()
		telemetry.TrackingActive.Set(0)
	}

	t.inflight.Wait()
	return err
}

// handleEvent runs on the provider's delivery goroutine
func (t *Tracker) handleEvent(ev provider.Event) {
	if ev.TaskID != t.opts.TaskID {
		return
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}

	if ev.Err != nil {
		wasTracking := t.tracking
		t.tracking = false
		t.accepting = false
		t.lastErr = fmt.Errorf("%w: %v", ErrProviderFailure, ev.Err)
		t.mu.Unlock()
		if wasTracking {
			telemetry.TrackingActive.Set(0)
		}
		log.Printf("Location task error: %v", ev.Err)
		t.publish()
		return
	}

	if !t.accepting {
		t.mu.Unlock()
		telemetry.SamplesDropped.WithLabelValues("not_tracking").Inc()
		return
	}
	if err := ev.Sample.Validate(); err != nil {
		t.mu.Unlock()
		telemetry.SamplesDropped.WithLabelValues("invalid").Inc()
		log.Printf("Dropping location update: %v", err)
		return
	}

	sample := ev.Sample
	seq := t.makeCurrentLocked(sample)
	t.history.Push(models.FormatUpdate(sample))
	t.inflight.Add(1)
	t.mu.Unlock()

	telemetry.SamplesReceived.Inc()
	go t.resolveAddress(seq, sample)
	t.publish()
}

// resolveAddress looks up the address of sample and applies it only if sample is still current
func (t *Tracker) resolveAddress(seq uint64, sample models.LocationSample) {
	defer t.inflight.Done()

	ctx, cancel := context.WithTimeout(t.ctx, t.opts.GeocodeTimeout)
	defer cancel()

	var address string
	result, err := t.geocoder.Reverse(ctx, sample.Latitude, sample.Longitude)
	switch {
	case err != nil:
		log.Printf("Geocoding error: %v", fmt.Errorf("%w: %v", ErrGeocodeUnavailable, err))
		telemetry.GeocodeRequests.WithLabelValues("error").Inc()
		address = AddressFetchError
	case !result.OK():
		telemetry.GeocodeRequests.WithLabelValues("not_available").Inc()
		address = AddressNotAvailable
	default:
		telemetry.GeocodeRequests.WithLabelValues("ok").Inc()
		address = result.FormattedAddress
	}

	t.mu.Lock()
	if t.closed || seq != t.seq {
		t.mu.Unlock()
		telemetry.StaleAddressesDiscarded.Inc()
		return
	}
	t.address = &address
	t.mu.Unlock()
	t.publish()
}

// makeCurrentLocked sets sample as current and returns its sequence number
func (t *Tracker) makeCurrentLocked(sample models.LocationSample) uint64 {
	t.seq++
	t.current = &sample
	return t.seq
}

// bounded derives a context from ctx that is also cancelled when the tracker closes
func (t *Tracker) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(t.ctx, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

func (t *Tracker) setLastError(err error) {
	t.mu.Lock()
	t.lastErr = err
	t.mu.Unlock()
	t.publish()
}

func (t *Tracker) isClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

// publish sends the latest snapshot to every watcher
func (t *Tracker) publish() {
	t.publishMu.Lock()
	defer t.publishMu.Unlock()

	t.mu.Lock()
	if len(t.watchers) == 0 {
		t.mu.Unlock()
		return
	}
	state := t.snapshotLocked()
	fns := make([]func(models.TrackerState), 0, len(t.watchers))
	for _, fn := range t.watchers {
		fns = append(fns, fn)
	}
	t.mu.Unlock()

	for _, fn := range fns {
		fn(state)
	}
}

func (t *Tracker) snapshotLocked() models.TrackerState {
	state := models.TrackerState{
		IsTracking: t.tracking,
		History:    t.history.Items(),
	}
	if t.current != nil {
		current := *t.current
		state.Current = &current
	}
	if t.address != nil {
		address := *t.address
		state.ResolvedAddress = &address
	}
	if t.lastErr != nil {
		msg := t.lastErr.Error()
		state.LastError = &msg
	}
	return state
}

// ForegroundNotice builds the persistent notice shown while tracking
func ForegroundNotice(current models.LocationSample) models.ForegroundService {
	return models.ForegroundService{
		NotificationTitle: "Location Tracking",
		NotificationBody:  fmt.Sprintf("Latitude: %.6f", current.Latitude),
		NotificationColor: "#ff0000",
	}
}

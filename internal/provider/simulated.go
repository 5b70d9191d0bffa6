package provider

import (
	"context"
	"fmt"
	"log"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/jengzang/location-tracker/internal/models"
	"github.com/jengzang/location-tracker/internal/spatial"
)

const defaultSimulatedInterval = time.Second

// SimulatedOptions configures a Simulated provider
type SimulatedOptions struct {
	OriginLat  float64
	OriginLng  float64
	StepMeters float64 // Distance walked per tick
	Seed       int64

	Foreground PermissionStatus // Empty means granted
	Background PermissionStatus // Empty means granted

	// RejectStart makes StartUpdates fail with this error
	RejectStart error
}

// Simulated walks randomly from an origin and emits one position per interval
type Simulated struct {
	Emitter

	opts  SimulatedOptions
	tasks taskRunner
	now   func() time.Time

	mu      sync.Mutex
	lat     float64
	lng     float64
	heading float64
	rnd     *rand.Rand
}

// NewSimulated creates a simulated provider
func NewSimulated(opts SimulatedOptions) *Simulated {
	if opts.StepMeters <= 0 {
		opts.StepMeters = 15
	}
	rnd := rand.New(rand.NewSource(opts.Seed))
	return &Simulated{
		opts:    opts,
		now:     time.Now,
		lat:     opts.OriginLat,
		lng:     opts.OriginLng,
		heading: rnd.Float64() * 360,
		rnd:     rnd,
	}
}

// RequestPermission returns the configured foreground permission
func (p *Simulated) RequestPermission(ctx context.Context) (PermissionStatus, error) {
	return permissionOrGranted(p.opts.Foreground), nil
}

// RequestBackgroundPermission returns the configured background permission
func (p *Simulated) RequestBackgroundPermission(ctx context.Context) (PermissionStatus, error) {
	return permissionOrGranted(p.opts.Background), nil
}

// CurrentFix returns the current simulated position
func (p *Simulated) CurrentFix(ctx context.Context, accuracy models.Accuracy) (models.LocationSample, error) {
	if err := ctx.Err(); err != nil {
		return models.LocationSample{}, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sampleLocked(), nil
}

// StartUpdates begins emitting positions for taskID
func (p *Simulated) StartUpdates(ctx context.Context, taskID string, cfg models.TrackingConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if p.opts.RejectStart != nil {
		return p.opts.RejectStart
	}

	interval := cfg.MinInterval()
	if interval <= 0 {
		interval = defaultSimulatedInterval
	}
	filter := newDistanceFilter(cfg)

	p.tasks.start(taskID, func(ctx context.Context) {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s := p.step()
				if filter.Accept(s, p.now()) && ctx.Err() == nil {
					p.Emit(Event{TaskID: taskID, Sample: s})
				}
			}
		}
	})

	log.Printf("Simulated provider started task %s (interval %v, min distance %.1fm)", taskID, interval, cfg.MinDistanceMeters)
	return nil
}

// StopUpdates stops emitting positions for taskID
func (p *Simulated) StopUpdates(ctx context.Context, taskID string) error {
	if err := p.tasks.stop(taskID); err != nil {
		return fmt.Errorf("failed to stop task %s: %w", taskID, err)
	}
	log.Printf("Simulated provider stopped task %s", taskID)
	return nil
}

// Close stops every running task
func (p *Simulated) Close() {
	p.tasks.stopAll()
}

// step advances the walk by one stride with a small random turn
func (p *Simulated) step() models.LocationSample {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.heading = math.Mod(p.heading+p.rnd.NormFloat64()*20+360, 360)
	p.lat, p.lng = spatial.Destination(p.lat, p.lng, p.heading, p.opts.StepMeters)
	return p.sampleLocked()
}

func (p *Simulated) sampleLocked() models.LocationSample {
	s := models.NewLocationSample(p.lat, p.lng, p.now())
	s.Accuracy = 5
	return s
}

func permissionOrGranted(s PermissionStatus) PermissionStatus {
	if s == "" {
		return PermissionGranted
	}
	return s
}

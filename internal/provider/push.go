package provider

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/jengzang/location-tracker/internal/models"
)

// Push receives samples from a device (WebSocket or HTTP) and emits them to running tasks
type Push struct {
	Emitter

	now func() time.Time

	// deliverMu keeps emission in the order the filters accepted samples
	deliverMu sync.Mutex

	mu         sync.Mutex
	foreground PermissionStatus
	background PermissionStatus
	last       *models.LocationSample
	fixReady   chan struct{}
	tasks      map[string]*UpdateFilter
}

// NewPush creates a push provider with both permissions granted
func NewPush() *Push {
	return &Push{
		now:        time.Now,
		foreground: PermissionGranted,
		background: PermissionGranted,
		fixReady:   make(chan struct{}),
		tasks:      make(map[string]*UpdateFilter),
	}
}

// SetPermissions records the permission state reported by the device
func (p *Push) SetPermissions(foreground, background PermissionStatus) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.foreground = foreground
	p.background = background
}

// RequestPermission returns the device's foreground permission
func (p *Push) RequestPermission(ctx context.Context) (PermissionStatus, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.foreground, nil
}

// RequestBackgroundPermission returns the device's background permission
func (p *Push) RequestBackgroundPermission(ctx context.Context) (PermissionStatus, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.background, nil
}

// CurrentFix returns the last pushed sample, waiting for the first one if needed
func (p *Push) CurrentFix(ctx context.Context, accuracy models.Accuracy) (models.LocationSample, error) {
	p.mu.Lock()
	if p.last != nil {
		s := *p.last
		p.mu.Unlock()
		return s, nil
	}
	ready := p.fixReady
	p.mu.Unlock()

	select {
	case <-ctx.Done():
		return models.LocationSample{}, fmt.Errorf("%w: %v", ErrNoFix, ctx.Err())
	case <-ready:
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return *p.last, nil
}

// StartUpdates begins forwarding pushed samples to taskID
func (p *Push) StartUpdates(ctx context.Context, taskID string, cfg models.TrackingConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.foreground != PermissionGranted {
		return fmt.Errorf("foreground location permission is %s", p.foreground)
	}
	p.tasks[taskID] = NewUpdateFilter(cfg)
	log.Printf("Push provider started task %s", taskID)
	return nil
}

// StopUpdates stops forwarding samples to taskID
func (p *Push) StopUpdates(ctx context.Context, taskID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.tasks[taskID]; !ok {
		return fmt.Errorf("failed to stop task %s: %w", taskID, ErrTaskNotRunning)
	}
	delete(p.tasks, taskID)
	log.Printf("Push provider stopped task %s", taskID)
	return nil
}

// Deliver accepts one sample from the device and returns the number of tasks it was emitted to
func (p *Push) Deliver(s models.LocationSample) (int, error) {
	if err := s.Validate(); err != nil {
		return 0, err
	}
	if s.Timestamp == "" {
		s.Timestamp = p.now().Format(models.TimeLayout)
	}

	p.deliverMu.Lock()
	defer p.deliverMu.Unlock()

	p.mu.Lock()
	sample := s
	if p.last == nil {
		close(p.fixReady)
	}
	p.last = &sample

	now := p.now()
	var targets []string
	for taskID, filter := range p.tasks {
		if filter.Accept(s, now) {
			targets = append(targets, taskID)
		}
	}
	p.mu.Unlock()

	for _, taskID := range targets {
		p.Emit(Event{TaskID: taskID, Sample: s})
	}
	return len(targets), nil
}

// Fail reports a device-side failure and ends every running task
func (p *Push) Fail(reason string) {
	p.deliverMu.Lock()
	defer p.deliverMu.Unlock()

	p.mu.Lock()
	targets := make([]string, 0, len(p.tasks))
	for taskID := range p.tasks {
		targets = append(targets, taskID)
	}
	p.tasks = make(map[string]*UpdateFilter)
	p.mu.Unlock()

	log.Printf("Push provider failure reported by device: %s", reason)
	for _, taskID := range targets {
		p.Emit(Event{TaskID: taskID, Err: errors.New(reason)})
	}
}

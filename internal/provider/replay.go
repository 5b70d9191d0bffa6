package provider

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jengzang/location-tracker/internal/models"
)

const defaultReplayInterval = time.Second

// SampleSource returns recorded samples in capture order; limit <= 0 means all
type SampleSource interface {
	RecordedSamples(ctx context.Context, limit int) ([]models.LocationSample, error)
}

// Replay plays back a recorded track, one sample per interval
type Replay struct {
	Emitter

	source SampleSource
	loop   bool
	tasks  taskRunner
	now    func() time.Time
}

// NewReplay creates a replay provider. With loop set the track restarts at its end,
// otherwise an ErrRecordingExhausted event ends the task.
func NewReplay(source SampleSource, loop bool) *Replay {
	return &Replay{source: source, loop: loop, now: time.Now}
}

// RequestPermission always grants access to recorded data
func (p *Replay) RequestPermission(ctx context.Context) (PermissionStatus, error) {
	return PermissionGranted, nil
}

// RequestBackgroundPermission always grants access to recorded data
func (p *Replay) RequestBackgroundPermission(ctx context.Context) (PermissionStatus, error) {
	return PermissionGranted, nil
}

// CurrentFix returns the first recorded sample
func (p *Replay) CurrentFix(ctx context.Context, accuracy models.Accuracy) (models.LocationSample, error) {
	samples, err := p.source.RecordedSamples(ctx, 1)
	if err != nil {
		return models.LocationSample{}, fmt.Errorf("failed to load recorded fix: %w", err)
	}
	if len(samples) == 0 {
		return models.LocationSample{}, ErrNoFix
	}
	return samples[0], nil
}

// StartUpdates loads the track and begins playback for taskID
func (p *Replay) StartUpdates(ctx context.Context, taskID string, cfg models.TrackingConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	samples, err := p.source.RecordedSamples(ctx, 0)
	if err != nil {
		return fmt.Errorf("failed to load recorded track: %w", err)
	}
	if len(samples) == 0 {
		return ErrNoFix
	}

	interval := cfg.MinInterval()
	if interval <= 0 {
		interval = defaultReplayInterval
	}
	filter := newDistanceFilter(cfg)

	p.tasks.start(taskID, func(ctx context.Context) {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		i := 0
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			if i == len(samples) {
				if !p.loop {
					p.tasks.finish(ctx, taskID)
					log.Printf("Replay of task %s reached the end of %d recorded samples", taskID, len(samples))
					p.Emit(Event{TaskID: taskID, Err: ErrRecordingExhausted})
					return
				}
				i = 0
				filter.Reset()
			}

			s := samples[i]
			i++
			if filter.Accept(s, p.now()) && ctx.Err() == nil {
				p.Emit(Event{TaskID: taskID, Sample: s})
			}
		}
	})

	log.Printf("Replay provider started task %s with %d samples (loop=%v)", taskID, len(samples), p.loop)
	return nil
}

// StopUpdates stops playback for taskID
func (p *Replay) StopUpdates(ctx context.Context, taskID string) error {
	if err := p.tasks.stop(taskID); err != nil {
		return fmt.Errorf("failed to stop task %s: %w", taskID, err)
	}
	return nil
}

// Close stops every running playback
func (p *Replay) Close() {
	p.tasks.stopAll()
}

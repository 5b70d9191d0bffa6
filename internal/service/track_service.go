package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/jengzang/location-tracker/internal/models"
	"github.com/jengzang/location-tracker/internal/repository"
)

// ErrInvalidFilter is returned for filters that can never match
var ErrInvalidFilter = errors.New("invalid track point filter")

// TrackService handles business logic for recorded track points
type TrackService struct {
	trackRepo *repository.TrackRepository
	now       func() time.Time
}

// NewTrackService creates a new track service
func NewTrackService(trackRepo *repository.TrackRepository) *TrackService {
	return &TrackService{
		trackRepo: trackRepo,
		now:       time.Now,
	}
}

// Record stores pushed samples. A sample's device timestamp is used when it parses,
// otherwise the sample is stamped with the current time.
func (s *TrackService) Record(ctx context.Context, samples []models.LocationSample) error {
	if len(samples) == 0 {
		return nil
	}

	now := s.now()
	points := make([]models.TrackPoint, 0, len(samples))
	for _, sample := range samples {
		points = append(points, models.TrackPoint{
			DataTime:  captureTime(sample.Timestamp, now).Unix(),
			Latitude:  sample.Latitude,
			Longitude: sample.Longitude,
			Accuracy:  sample.Accuracy,
			Altitude:  sample.Altitude,
		})
	}

	if err := s.trackRepo.InsertPoints(ctx, points); err != nil {
		return fmt.Errorf("failed to record track points: %w", err)
	}
	return nil
}

// captureTime places a clock-only timestamp on the most recent day not after now
func captureTime(ts string, now time.Time) time.Time {
	clock, err := time.ParseInLocation(models.TimeLayout, ts, now.Location())
	if err != nil {
		return now
	}
	at := time.Date(now.Year(), now.Month(), now.Day(),
		clock.Hour(), clock.Minute(), clock.Second(), 0, now.Location())
	if at.After(now) {
		at = at.AddDate(0, 0, -1)
	}
	return at
}

// GetTrackPoints retrieves recorded points with filtering and pagination
func (s *TrackService) GetTrackPoints(ctx context.Context, filter models.TrackPointFilter) (*models.TrackPointsResponse, error) {
	// Validate filter
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 100
	}
	if filter.PageSize > 1000 {
		filter.PageSize = 1000
	}
	if filter.EndTime > 0 && filter.StartTime > filter.EndTime {
		return nil, fmt.Errorf("%w: startTime must not be after endTime", ErrInvalidFilter)
	}

	points, total, err := s.trackRepo.ListTrackPoints(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to get track points: %w", err)
	}
	if points == nil {
		points = []models.TrackPoint{}
	}

	totalPages := int(math.Ceil(float64(total) / float64(filter.PageSize)))

	return &models.TrackPointsResponse{
		Data:       points,
		Total:      total,
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		TotalPages: totalPages,
	}, nil
}

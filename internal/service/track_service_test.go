package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jengzang/location-tracker/internal/database"
	"github.com/jengzang/location-tracker/internal/models"
	"github.com/jengzang/location-tracker/internal/repository"
)

func newTestService(t *testing.T) *TrackService {
	t.Helper()
	db, err := database.Open(database.Config{Path: filepath.Join(t.TempDir(), "tracks.db")})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	s := NewTrackService(repository.NewTrackRepository(db))
	s.now = func() time.Time { return time.Unix(1737553340, 0) }
	return s
}

func TestTrackService_RecordAndList(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	require.NoError(t, s.Record(ctx, []models.LocationSample{
		{Latitude: 22.54, Longitude: 114.05, Accuracy: 8},
		{Latitude: 22.55, Longitude: 114.06, Altitude: 3},
	}))
	require.NoError(t, s.Record(ctx, nil))

	page, err := s.GetTrackPoints(ctx, models.TrackPointFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 100, page.PageSize)
	assert.Equal(t, 1, page.TotalPages)
	require.Len(t, page.Data, 2)
	assert.Equal(t, int64(1737553340), page.Data[0].DataTime)
	assert.Equal(t, 8.0, page.Data[0].Accuracy)
}

func TestTrackService_RecordKeepsDeviceTimestamps(t *testing.T) {
	s := newTestService(t)
	now := time.Date(2025, 1, 22, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, s.Record(ctx, []models.LocationSample{
		{Latitude: 1, Longitude: 1, Timestamp: "11:59:50"},
		{Latitude: 2, Longitude: 2, Timestamp: "11:59:55"},
		{Latitude: 3, Longitude: 3, Timestamp: "23:30:00"},
		{Latitude: 4, Longitude: 4, Timestamp: "soon"},
	}))

	page, err := s.GetTrackPoints(ctx, models.TrackPointFilter{})
	require.NoError(t, err)
	require.Len(t, page.Data, 4)

	byLat := make(map[float64]int64, len(page.Data))
	for _, p := range page.Data {
		byLat[p.Latitude] = p.DataTime
	}
	assert.Equal(t, now.Add(-10*time.Second).Unix(), byLat[1])
	assert.Equal(t, now.Add(-5*time.Second).Unix(), byLat[2])
	// A clock after now belongs to the previous day
	assert.Equal(t, time.Date(2025, 1, 21, 23, 30, 0, 0, time.UTC).Unix(), byLat[3])
	assert.Equal(t, now.Unix(), byLat[4])
}

func TestTrackService_RecordRejectsInvalid(t *testing.T) {
	s := newTestService(t)

	err := s.Record(context.Background(), []models.LocationSample{{Latitude: 120}})
	assert.ErrorIs(t, err, models.ErrInvalidCoordinates)
}

func TestTrackService_Pagination(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	samples := make([]models.LocationSample, 5)
	for i := range samples {
		samples[i] = models.LocationSample{Latitude: float64(i), Longitude: 0}
	}
	require.NoError(t, s.Record(ctx, samples))

	page, err := s.GetTrackPoints(ctx, models.TrackPointFilter{Page: 3, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, page.TotalPages)
	assert.Len(t, page.Data, 1)

	page, err = s.GetTrackPoints(ctx, models.TrackPointFilter{Page: 9, PageSize: 2})
	require.NoError(t, err)
	assert.NotNil(t, page.Data)
	assert.Empty(t, page.Data)

	_, err = s.GetTrackPoints(ctx, models.TrackPointFilter{StartTime: 10, EndTime: 5})
	assert.ErrorIs(t, err, ErrInvalidFilter)
}

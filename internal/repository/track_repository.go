package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jengzang/location-tracker/internal/database"
	"github.com/jengzang/location-tracker/internal/models"
)

// TrackRepository handles database operations for recorded track points
type TrackRepository struct {
	db *sql.DB
}

// NewTrackRepository creates a new track repository
func NewTrackRepository(db *sql.DB) *TrackRepository {
	return &TrackRepository{db: db}
}

// InsertPoints stores points in a single transaction and fills in their IDs
func (r *TrackRepository) InsertPoints(ctx context.Context, points []models.TrackPoint) error {
	return database.Transaction(r.db, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO track_points
			(data_time, latitude, longitude, accuracy, altitude) VALUES (?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		for i := range points {
			p := &points[i]
			if err := p.Sample().Validate(); err != nil {
				return fmt.Errorf("track point %d: %w", i, err)
			}
			res, err := stmt.ExecContext(ctx, p.DataTime, p.Latitude, p.Longitude, p.Accuracy, p.Altitude)
			if err != nil {
				return fmt.Errorf("failed to insert track point %d: %w", i, err)
			}
			if p.ID, err = res.LastInsertId(); err != nil {
				return fmt.Errorf("failed to get last insert id: %w", err)
			}
		}
		return nil
	})
}

// GetTrackPoints returns points ordered by capture time; limit <= 0 returns all
func (r *TrackRepository) GetTrackPoints(ctx context.Context, limit int) ([]models.TrackPoint, error) {
	query := `SELECT id, data_time, latitude, longitude, accuracy, altitude
		FROM track_points
		ORDER BY data_time ASC, id ASC`
	var args []interface{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query track points: %w", err)
	}
	defer rows.Close()

	return scanTrackPoints(rows)
}

func scanTrackPoints(rows *sql.Rows) ([]models.TrackPoint, error) {
	var points []models.TrackPoint
	for rows.Next() {
		var p models.TrackPoint
		if err := rows.Scan(&p.ID, &p.DataTime, &p.Latitude, &p.Longitude, &p.Accuracy, &p.Altitude); err != nil {
			return nil, fmt.Errorf("failed to scan track point: %w", err)
		}
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate track points: %w", err)
	}
	return points, nil
}

// ListTrackPoints returns one page of points matching filter and the total match count.
// filter.Page and filter.PageSize must be positive.
func (r *TrackRepository) ListTrackPoints(ctx context.Context, filter models.TrackPointFilter) ([]models.TrackPoint, int64, error) {
	where := " WHERE 1=1"
	var args []interface{}
	if filter.StartTime > 0 {
		where += " AND data_time >= ?"
		args = append(args, filter.StartTime)
	}
	if filter.EndTime > 0 {
		where += " AND data_time <= ?"
		args = append(args, filter.EndTime)
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM track_points"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count track points: %w", err)
	}

	query := `SELECT id, data_time, latitude, longitude, accuracy, altitude FROM track_points` +
		where + ` ORDER BY data_time ASC, id ASC LIMIT ? OFFSET ?`
	args = append(args, filter.PageSize, (filter.Page-1)*filter.PageSize)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query track points: %w", err)
	}
	defer rows.Close()

	points, err := scanTrackPoints(rows)
	if err != nil {
		return nil, 0, err
	}
	return points, total, nil
}

// RecordedSamples returns stored points as tracker samples, oldest first
func (r *TrackRepository) RecordedSamples(ctx context.Context, limit int) ([]models.LocationSample, error) {
	points, err := r.GetTrackPoints(ctx, limit)
	if err != nil {
		return nil, err
	}
	samples := make([]models.LocationSample, 0, len(points))
	for _, p := range points {
		samples = append(samples, p.Sample())
	}
	return samples, nil
}

// Count returns the number of stored points
func (r *TrackRepository) Count(ctx context.Context) (int64, error) {
	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM track_points`).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count track points: %w", err)
	}
	return total, nil
}

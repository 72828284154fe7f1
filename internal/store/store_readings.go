package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"aerium-backend/internal/model"
)

func (s *gormStore) CreateReading(ctx context.Context, reading *model.Reading) error {
	if reading.RecordedAt.IsZero() {
		reading.RecordedAt = time.Now().UTC()
	}
	if err := s.db.WithContext(ctx).Create(reading).Error; err != nil {
		return fmt.Errorf("failed to create reading for sensor %d: %w", reading.SensorID, err)
	}
	return nil
}

func (s *gormStore) LatestReading(ctx context.Context, sensorID int64) (*model.Reading, error) {
	var reading model.Reading
	err := s.db.WithContext(ctx).
		Where("sensor_id = ?", sensorID).
		Order("recorded_at DESC").
		First(&reading).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &reading, nil
}

func (s *gormStore) ListReadings(ctx context.Context, sensorID int64, since time.Time, limit int) ([]model.Reading, error) {
	query := s.db.WithContext(ctx).
		Where("sensor_id = ?", sensorID).
		Order("recorded_at DESC")
	if !since.IsZero() {
		query = query.Where("recorded_at >= ?", since)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	var readings []model.Reading
	if err := query.Find(&readings).Error; err != nil {
		return nil, err
	}
	return readings, nil
}

func (s *gormStore) ListReadingsForSensors(ctx context.Context, sensorIDs []int64, since time.Time) ([]model.Reading, error) {
	if len(sensorIDs) == 0 {
		return nil, nil
	}
	var readings []model.Reading
	err := s.db.WithContext(ctx).
		Where("sensor_id IN ?", sensorIDs).
		Where("recorded_at >= ?", since).
		Order("recorded_at").
		Find(&readings).Error
	if err != nil {
		return nil, err
	}
	return readings, nil
}

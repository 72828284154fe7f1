package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"aerium-backend/internal/model"
)

func (s *gormStore) CreateAlert(ctx context.Context, alert *model.Alert) error {
	if err := s.db.WithContext(ctx).Create(alert).Error; err != nil {
		return fmt.Errorf("failed to create alert for sensor %d: %w", alert.SensorID, err)
	}
	return nil
}

func (s *gormStore) GetAlert(ctx context.Context, id int64) (*model.Alert, error) {
	var alert model.Alert
	err := s.db.WithContext(ctx).First(&alert, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &alert, nil
}

func (s *gormStore) ListAlerts(ctx context.Context, filter AlertFilter) ([]model.Alert, error) {
	query := s.db.WithContext(ctx).Model(&model.Alert{})

	if filter.UserID != 0 {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.SensorID != 0 {
		query = query.Where("sensor_id = ?", filter.SensorID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Severity != "" {
		query = query.Where("alert_type = ?", filter.Severity)
	}
	if !filter.Since.IsZero() {
		query = query.Where("created_at >= ?", filter.Since)
	}

	query = query.Order("created_at DESC")
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var alerts []model.Alert
	if err := query.Find(&alerts).Error; err != nil {
		return nil, err
	}
	return alerts, nil
}

func (s *gormStore) UpdateAlert(ctx context.Context, alert *model.Alert) error {
	if err := s.db.WithContext(ctx).Save(alert).Error; err != nil {
		return fmt.Errorf("failed to update alert %d: %w", alert.ID, err)
	}
	return nil
}

func (s *gormStore) DeleteAlert(ctx context.Context, id int64) error {
	result := s.db.WithContext(ctx).Delete(&model.Alert{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete alert %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *gormStore) GetAlertStats(ctx context.Context, userID int64, since time.Time) (*AlertStats, error) {
	base := func() *gorm.DB {
		q := s.db.WithContext(ctx).Model(&model.Alert{}).Where("created_at >= ?", since)
		if userID != 0 {
			q = q.Where("user_id = ?", userID)
		}
		return q
	}

	stats := &AlertStats{
		BySeverity: make(map[string]int64),
		ByMetric:   make(map[string]int64),
	}

	if err := base().Count(&stats.Total).Error; err != nil {
		return nil, err
	}
	if err := base().Where("status = ?", model.AlertStatusTriggered).Count(&stats.Triggered).Error; err != nil {
		return nil, err
	}
	if err := base().Where("status = ?", model.AlertStatusAcknowledged).Count(&stats.Acknowledged).Error; err != nil {
		return nil, err
	}
	if err := base().Where("status = ?", model.AlertStatusResolved).Count(&stats.Resolved).Error; err != nil {
		return nil, err
	}

	for _, severity := range []string{model.AlertSeverityInfo, model.AlertSeverityWarning, model.AlertSeverityCritical} {
		var n int64
		if err := base().Where("alert_type = ?", severity).Count(&n).Error; err != nil {
			return nil, err
		}
		stats.BySeverity[severity] = n
	}
	for _, metric := range []string{model.AlertMetricCO2, model.AlertMetricTemperature, model.AlertMetricHumidity} {
		var n int64
		if err := base().Where("metric = ?", metric).Count(&n).Error; err != nil {
			return nil, err
		}
		stats.ByMetric[metric] = n
	}

	return stats, nil
}

// --- Push subscriptions ---

func (s *gormStore) UpsertSubscription(ctx context.Context, sub *model.PushSubscription) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "endpoint"}},
		DoUpdates: clause.AssignmentColumns([]string{"p256dh", "auth", "user_id"}),
	}).Create(sub).Error
}

func (s *gormStore) GetSubscription(ctx context.Context, endpoint string) (*model.PushSubscription, error) {
	var sub model.PushSubscription
	err := s.db.WithContext(ctx).Where("endpoint = ?", endpoint).First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (s *gormStore) DeleteSubscription(ctx context.Context, endpoint string) error {
	return s.db.WithContext(ctx).Where("endpoint = ?", endpoint).Delete(&model.PushSubscription{}).Error
}

func (s *gormStore) ListSubscriptionsForUser(ctx context.Context, userID int64) ([]model.PushSubscription, error) {
	var subs []model.PushSubscription
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Find(&subs).Error; err != nil {
		return nil, err
	}
	return subs, nil
}

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"aerium-backend/internal/model"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// SensorFilter narrows ListSensors. A zero UserID means no owner restriction
// (admin view).
type SensorFilter struct {
	UserID int64
	Search string
	Status string
	Type   string
	Active *bool
	Sort   string
	Limit  int
}

// AlertFilter narrows ListAlerts. Zero values are ignored.
type AlertFilter struct {
	UserID   int64
	SensorID int64
	Status   string
	Severity string
	Since    time.Time
	Limit    int
}

// AlertStats aggregates alert counts for a period.
type AlertStats struct {
	Total        int64            `json:"totalAlerts"`
	Triggered    int64            `json:"triggered"`
	Acknowledged int64            `json:"acknowledged"`
	Resolved     int64            `json:"resolved"`
	BySeverity   map[string]int64 `json:"byType"`
	ByMetric     map[string]int64 `json:"byMetric"`
}

// Store defines the interface for all database operations.
type Store interface {
	DB() *gorm.DB

	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	UpdateUser(ctx context.Context, user *model.User) error
	ListUsers(ctx context.Context) ([]model.User, error)

	CreateSensor(ctx context.Context, sensor *model.Sensor) error
	GetSensor(ctx context.Context, id int64) (*model.Sensor, error)
	GetSensorByAPIKey(ctx context.Context, key string) (*model.Sensor, error)
	ListSensors(ctx context.Context, filter SensorFilter) ([]model.Sensor, error)
	UpdateSensor(ctx context.Context, sensor *model.Sensor) error
	DeleteSensor(ctx context.Context, id int64) error

	CreateReading(ctx context.Context, reading *model.Reading) error
	LatestReading(ctx context.Context, sensorID int64) (*model.Reading, error)
	ListReadings(ctx context.Context, sensorID int64, since time.Time, limit int) ([]model.Reading, error)
	ListReadingsForSensors(ctx context.Context, sensorIDs []int64, since time.Time) ([]model.Reading, error)

	CreateAlert(ctx context.Context, alert *model.Alert) error
	GetAlert(ctx context.Context, id int64) (*model.Alert, error)
	ListAlerts(ctx context.Context, filter AlertFilter) ([]model.Alert, error)
	UpdateAlert(ctx context.Context, alert *model.Alert) error
	DeleteAlert(ctx context.Context, id int64) error
	GetAlertStats(ctx context.Context, userID int64, since time.Time) (*AlertStats, error)

	CreateAuditLog(ctx context.Context, entry *model.AuditLog) error

	UpsertSubscription(ctx context.Context, sub *model.PushSubscription) error
	GetSubscription(ctx context.Context, endpoint string) (*model.PushSubscription, error)
	DeleteSubscription(ctx context.Context, endpoint string) error
	ListSubscriptionsForUser(ctx context.Context, userID int64) ([]model.PushSubscription, error)
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) DB() *gorm.DB {
	return s.db
}

// --- Users ---

func (s *gormStore) CreateUser(ctx context.Context, user *model.User) error {
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (s *gormStore) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	var user model.User
	err := s.db.WithContext(ctx).First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *gormStore) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *gormStore) UpdateUser(ctx context.Context, user *model.User) error {
	if err := s.db.WithContext(ctx).Save(user).Error; err != nil {
		return fmt.Errorf("failed to update user %d: %w", user.ID, err)
	}
	return nil
}

func (s *gormStore) ListUsers(ctx context.Context) ([]model.User, error) {
	var users []model.User
	if err := s.db.WithContext(ctx).Order("created_at").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// --- Sensors ---

func (s *gormStore) CreateSensor(ctx context.Context, sensor *model.Sensor) error {
	if err := s.db.WithContext(ctx).Create(sensor).Error; err != nil {
		return fmt.Errorf("failed to create sensor: %w", err)
	}
	return nil
}

func (s *gormStore) GetSensor(ctx context.Context, id int64) (*model.Sensor, error) {
	var sensor model.Sensor
	err := s.db.WithContext(ctx).First(&sensor, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sensor, nil
}

func (s *gormStore) GetSensorByAPIKey(ctx context.Context, key string) (*model.Sensor, error) {
	var sensor model.Sensor
	err := s.db.WithContext(ctx).Where("api_key = ?", key).First(&sensor).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sensor, nil
}

func (s *gormStore) ListSensors(ctx context.Context, filter SensorFilter) ([]model.Sensor, error) {
	query := s.db.WithContext(ctx).Model(&model.Sensor{})

	if filter.UserID != 0 {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		query = query.Where("name LIKE ? OR location LIKE ?", pattern, pattern)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Type != "" {
		query = query.Where("sensor_type = ?", filter.Type)
	}
	if filter.Active != nil {
		query = query.Where("is_live = ?", *filter.Active)
	}

	switch filter.Sort {
	case "updated_at":
		query = query.Order("updated_at DESC")
	case "status":
		query = query.Order("status")
	default:
		query = query.Order("name")
	}

	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var sensors []model.Sensor
	if err := query.Find(&sensors).Error; err != nil {
		return nil, err
	}
	return sensors, nil
}

func (s *gormStore) UpdateSensor(ctx context.Context, sensor *model.Sensor) error {
	if err := s.db.WithContext(ctx).Save(sensor).Error; err != nil {
		return fmt.Errorf("failed to update sensor %d: %w", sensor.ID, err)
	}
	return nil
}

// DeleteSensor removes the sensor together with its readings and alerts.
// Sqlite does not always enforce the declared cascades, so the dependent rows
// are deleted explicitly inside one transaction.
func (s *gormStore) DeleteSensor(ctx context.Context, id int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("sensor_id = ?", id).Delete(&model.Reading{}).Error; err != nil {
			return fmt.Errorf("failed to delete readings for sensor %d: %w", id, err)
		}
		if err := tx.Where("sensor_id = ?", id).Delete(&model.Alert{}).Error; err != nil {
			return fmt.Errorf("failed to delete alerts for sensor %d: %w", id, err)
		}
		result := tx.Delete(&model.Sensor{}, id)
		if result.Error != nil {
			return fmt.Errorf("failed to delete sensor %d: %w", id, result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// --- Audit log ---

func (s *gormStore) CreateAuditLog(ctx context.Context, entry *model.AuditLog) error {
	return s.db.WithContext(ctx).Create(entry).Error
}

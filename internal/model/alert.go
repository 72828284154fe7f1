package model

import "time"

// Alert severity values.
const (
	AlertSeverityInfo     = "info"
	AlertSeverityWarning  = "warning"
	AlertSeverityCritical = "critical"
)

// Alert metric values.
const (
	AlertMetricCO2         = "co2"
	AlertMetricTemperature = "temperature"
	AlertMetricHumidity    = "humidity"
)

// Alert status lifecycle: triggered -> acknowledged -> resolved.
const (
	AlertStatusTriggered    = "triggered"
	AlertStatusAcknowledged = "acknowledged"
	AlertStatusResolved     = "resolved"
)

// Alert records a threshold violation and its acknowledgement lifecycle.
type Alert struct {
	ID             int64      `gorm:"primaryKey" json:"id"`
	SensorID       int64      `gorm:"index;not null" json:"sensor_id"`
	UserID         int64      `gorm:"index;not null" json:"user_id"`
	Severity       string     `gorm:"column:alert_type;size:50;not null" json:"severity"`
	Metric         string     `gorm:"size:100;not null" json:"metric"`
	Value          float64    `gorm:"column:metric_value;not null" json:"value"`
	Threshold      float64    `gorm:"column:threshold_value" json:"threshold"`
	Message        string     `gorm:"size:500;not null" json:"message"`
	Status         string     `gorm:"size:50;not null;default:triggered" json:"status"`
	AcknowledgedAt *time.Time `json:"acknowledged_at,omitempty"`
	ResolvedAt     *time.Time `json:"resolved_at,omitempty"`
	CreatedAt      time.Time  `gorm:"index" json:"created_at"`

	// Associations
	Sensor Sensor `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

// TableName keeps the historical table name.
func (Alert) TableName() string {
	return "alert_history"
}

// ValidAlertStatus reports whether s is a known alert status.
func ValidAlertStatus(s string) bool {
	switch s {
	case AlertStatusTriggered, AlertStatusAcknowledged, AlertStatusResolved:
		return true
	}
	return false
}

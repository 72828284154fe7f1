package model

import "time"

// Sensor status values. Status is a cached view of the most recent reading's
// CO2 level, recomputed by the ingestion path only.
const (
	SensorStatusOnline  = "online"
	SensorStatusOffline = "offline"
	SensorStatusWarning = "warning"
)

// Sensor type values.
const (
	SensorTypeReal       = "real"
	SensorTypeSimulation = "simulation"
)

// Sensor represents a physical or simulated air-quality sensor.
type Sensor struct {
	ID       int64  `gorm:"primaryKey" json:"id"`
	UserID   int64  `gorm:"index;not null" json:"user_id"`
	Name     string `gorm:"size:255;not null" json:"name"`
	Location string `gorm:"size:255;not null" json:"location"`
	Status   string `gorm:"size:50;not null;default:online" json:"status"`
	Type     string `gorm:"column:sensor_type;size:50;not null;default:simulation" json:"sensor_type"`
	Battery  int    `gorm:"not null;default:100" json:"battery"`
	IsLive   bool   `gorm:"not null;default:true" json:"is_live"`
	// APIKey authenticates pushes on the external ingestion endpoint.
	APIKey    string    `gorm:"uniqueIndex;size:36;not null" json:"api_key"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Associations
	Readings []Reading `gorm:"foreignKey:SensorID;constraint:OnDelete:CASCADE" json:"-"`
}

// ValidSensorStatus reports whether s is a known sensor status.
func ValidSensorStatus(s string) bool {
	switch s {
	case SensorStatusOnline, SensorStatusOffline, SensorStatusWarning:
		return true
	}
	return false
}

package model

import "time"

// Reading is one immutable measurement from a sensor.
type Reading struct {
	ID          int64     `gorm:"primaryKey" json:"id"`
	SensorID    int64     `gorm:"index:idx_readings_sensor_recorded,priority:1;not null" json:"sensor_id"`
	CO2         float64   `gorm:"not null" json:"co2"`
	Temperature float64   `gorm:"not null" json:"temperature"`
	Humidity    float64   `gorm:"not null" json:"humidity"`
	RecordedAt  time.Time `gorm:"index:idx_readings_sensor_recorded,priority:2;not null" json:"recorded_at"`
}

// Package ingest is the reading-ingestion and threshold-evaluation pipeline.
// Every accepted reading is persisted, reflected into the owning sensor's
// status, checked against the configured thresholds, and broadcast to
// connected clients.
package ingest

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"aerium-backend/config"
	"aerium-backend/internal/model"
	"aerium-backend/internal/notification"
	"aerium-backend/internal/store"
)

// Below this CO2 level a sensor is considered healthy again.
const co2RecoveredPPM = 1000

// Dispatcher receives notification jobs for triggered alerts.
type Dispatcher interface {
	Dispatch(job notification.Job)
}

// Broadcaster publishes stored readings to live clients.
type Broadcaster interface {
	BroadcastReading(sensor *model.Sensor, reading *model.Reading)
}

// Pipeline wires persistence, threshold evaluation, notification dispatch and
// fan-out. Safe for concurrent use.
type Pipeline struct {
	store      store.Store
	thresholds *config.ThresholdConfig
	notifier   Dispatcher
	hub        Broadcaster
	logger     *zap.Logger
}

// NewPipeline builds the ingestion pipeline. notifier and hub may be nil
// (tests, or a deployment without those channels).
func NewPipeline(st store.Store, thresholds *config.ThresholdConfig, notifier Dispatcher, hub Broadcaster, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		store:      st,
		thresholds: thresholds,
		notifier:   notifier,
		hub:        hub,
		logger:     logger,
	}
}

// Ingest persists one reading for the sensor and runs the full pipeline:
// status update, threshold evaluation, alert rows, notifications, broadcast.
// The returned reading carries its assigned ID and timestamp.
func (p *Pipeline) Ingest(ctx context.Context, sensor *model.Sensor, co2, temperature, humidity float64) (*model.Reading, error) {
	reading := &model.Reading{
		SensorID:    sensor.ID,
		CO2:         co2,
		Temperature: temperature,
		Humidity:    humidity,
		RecordedAt:  time.Now().UTC(),
	}
	if err := p.store.CreateReading(ctx, reading); err != nil {
		return nil, err
	}

	p.updateStatus(ctx, sensor, co2)
	p.checkThresholds(ctx, sensor, reading)

	if p.hub != nil {
		p.hub.BroadcastReading(sensor, reading)
	}
	return reading, nil
}

// updateStatus recomputes the sensor's cached status from the CO2 level.
// Between the recovered and warning bounds the status is left untouched.
func (p *Pipeline) updateStatus(ctx context.Context, sensor *model.Sensor, co2 float64) {
	switch {
	case co2 > p.thresholds.CO2PPM:
		sensor.Status = model.SensorStatusWarning
	case co2 < co2RecoveredPPM:
		sensor.Status = model.SensorStatusOnline
	}
	sensor.UpdatedAt = time.Now().UTC()

	if err := p.store.UpdateSensor(ctx, sensor); err != nil {
		p.logger.Error("failed to update sensor status",
			zap.Int64("sensor_id", sensor.ID), zap.Error(err))
	}
}

// checkThresholds evaluates each metric independently; every violation
// produces its own alert row and notification job. Repeated violations are
// not deduplicated here, matching the product behavior; the notifier applies
// the configured send interval to outbound messages.
func (p *Pipeline) checkThresholds(ctx context.Context, sensor *model.Sensor, reading *model.Reading) {
	t := p.thresholds

	if reading.CO2 > t.CO2PPM {
		p.raise(ctx, sensor, model.Alert{
			Metric:    model.AlertMetricCO2,
			Severity:  model.AlertSeverityCritical,
			Value:     reading.CO2,
			Threshold: t.CO2PPM,
			Message:   fmt.Sprintf("CO2 level %.0f ppm exceeds threshold %.0f ppm", reading.CO2, t.CO2PPM),
		})
	}

	if reading.Temperature < t.TempMinC || reading.Temperature > t.TempMaxC {
		threshold := t.TempMaxC
		if reading.Temperature < t.TempMinC {
			threshold = t.TempMinC
		}
		p.raise(ctx, sensor, model.Alert{
			Metric:    model.AlertMetricTemperature,
			Severity:  model.AlertSeverityWarning,
			Value:     reading.Temperature,
			Threshold: threshold,
			Message:   fmt.Sprintf("Temperature %.1f°C outside range [%.1f, %.1f]", reading.Temperature, t.TempMinC, t.TempMaxC),
		})
	}

	if reading.Humidity > t.HumidityPct {
		p.raise(ctx, sensor, model.Alert{
			Metric:    model.AlertMetricHumidity,
			Severity:  model.AlertSeverityWarning,
			Value:     reading.Humidity,
			Threshold: t.HumidityPct,
			Message:   fmt.Sprintf("Humidity level %.0f%% exceeds threshold %.0f%%", reading.Humidity, t.HumidityPct),
		})
	}
}

func (p *Pipeline) raise(ctx context.Context, sensor *model.Sensor, alert model.Alert) {
	alert.SensorID = sensor.ID
	alert.UserID = sensor.UserID
	alert.Status = model.AlertStatusTriggered
	alert.CreatedAt = time.Now().UTC()

	if err := p.store.CreateAlert(ctx, &alert); err != nil {
		p.logger.Error("failed to store alert",
			zap.Int64("sensor_id", sensor.ID),
			zap.String("metric", alert.Metric),
			zap.Error(err))
		return
	}

	p.logger.Info("alert triggered",
		zap.Int64("sensor_id", sensor.ID),
		zap.String("metric", alert.Metric),
		zap.Float64("value", alert.Value),
		zap.Float64("threshold", alert.Threshold))

	if p.notifier != nil {
		p.notifier.Dispatch(notification.Job{Alert: alert, Sensor: *sensor})
	}
}

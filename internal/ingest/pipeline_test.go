package ingest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"aerium-backend/config"
	"aerium-backend/internal/model"
	"aerium-backend/internal/notification"
	"aerium-backend/internal/store"
)

type recordingDispatcher struct {
	jobs []notification.Job
}

func (d *recordingDispatcher) Dispatch(job notification.Job) {
	d.jobs = append(d.jobs, job)
}

func newTestPipeline(t *testing.T) (*Pipeline, store.Store, *recordingDispatcher) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.User{}, &model.Sensor{}, &model.Reading{}, &model.Alert{}))

	st := store.NewGormStore(db)
	thresholds := &config.ThresholdConfig{
		CO2PPM:      1200,
		TempMinC:    15,
		TempMaxC:    28,
		HumidityPct: 80,
	}
	dispatcher := &recordingDispatcher{}
	return NewPipeline(st, thresholds, dispatcher, nil, zap.NewNop()), st, dispatcher
}

func seedSensor(t *testing.T, st store.Store) *model.Sensor {
	t.Helper()
	sensor := &model.Sensor{
		UserID: 1,
		Name:   "Open Space Dev",
		Status: model.SensorStatusOnline,
		Type:   model.SensorTypeSimulation,
		IsLive: true,
		APIKey: "test-key",
	}
	require.NoError(t, st.CreateSensor(context.Background(), sensor))
	return sensor
}

func TestHighCO2TriggersWarningAndOneAlert(t *testing.T) {
	pipeline, st, dispatcher := newTestPipeline(t)
	sensor := seedSensor(t, st)
	ctx := context.Background()

	reading, err := pipeline.Ingest(ctx, sensor, 1300, 22, 50)
	require.NoError(t, err)
	assert.NotZero(t, reading.ID)

	stored, err := st.GetSensor(ctx, sensor.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SensorStatusWarning, stored.Status)

	alerts, err := st.ListAlerts(ctx, store.AlertFilter{SensorID: sensor.ID})
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, model.AlertMetricCO2, alerts[0].Metric)
	assert.Equal(t, model.AlertSeverityCritical, alerts[0].Severity)
	assert.Equal(t, model.AlertStatusTriggered, alerts[0].Status)
	assert.Equal(t, 1300.0, alerts[0].Value)
	assert.Equal(t, 1200.0, alerts[0].Threshold)

	require.Len(t, dispatcher.jobs, 1)
	assert.Equal(t, sensor.ID, dispatcher.jobs[0].Sensor.ID)
}

func TestLowCO2RecoversStatusWithoutAlert(t *testing.T) {
	pipeline, st, dispatcher := newTestPipeline(t)
	sensor := seedSensor(t, st)
	ctx := context.Background()

	// Trip the warning first, then recover.
	_, err := pipeline.Ingest(ctx, sensor, 1300, 22, 50)
	require.NoError(t, err)

	_, err = pipeline.Ingest(ctx, sensor, 900, 22, 50)
	require.NoError(t, err)

	stored, err := st.GetSensor(ctx, sensor.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SensorStatusOnline, stored.Status)

	// Only the first ingest produced an alert.
	alerts, err := st.ListAlerts(ctx, store.AlertFilter{SensorID: sensor.ID})
	require.NoError(t, err)
	assert.Len(t, alerts, 1)
	assert.Len(t, dispatcher.jobs, 1)
}

func TestIntermediateCO2LeavesStatusUntouched(t *testing.T) {
	pipeline, st, _ := newTestPipeline(t)
	sensor := seedSensor(t, st)
	ctx := context.Background()

	_, err := pipeline.Ingest(ctx, sensor, 1300, 22, 50)
	require.NoError(t, err)

	// Between recovered and warning bounds nothing changes.
	_, err = pipeline.Ingest(ctx, sensor, 1100, 22, 50)
	require.NoError(t, err)

	stored, err := st.GetSensor(ctx, sensor.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SensorStatusWarning, stored.Status)
}

func TestTemperatureOutOfRangeRaisesWarning(t *testing.T) {
	pipeline, st, _ := newTestPipeline(t)
	sensor := seedSensor(t, st)
	ctx := context.Background()

	_, err := pipeline.Ingest(ctx, sensor, 600, 12, 50)
	require.NoError(t, err)

	alerts, err := st.ListAlerts(ctx, store.AlertFilter{SensorID: sensor.ID})
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, model.AlertMetricTemperature, alerts[0].Metric)
	assert.Equal(t, model.AlertSeverityWarning, alerts[0].Severity)
	assert.Equal(t, 15.0, alerts[0].Threshold, "low side uses the minimum bound")
}

func TestEveryViolationGetsItsOwnAlertRow(t *testing.T) {
	pipeline, st, dispatcher := newTestPipeline(t)
	sensor := seedSensor(t, st)
	ctx := context.Background()

	// CO2, temperature and humidity all out of bounds at once.
	_, err := pipeline.Ingest(ctx, sensor, 1400, 30, 90)
	require.NoError(t, err)

	alerts, err := st.ListAlerts(ctx, store.AlertFilter{SensorID: sensor.ID})
	require.NoError(t, err)
	assert.Len(t, alerts, 3)
	assert.Len(t, dispatcher.jobs, 3)

	metrics := map[string]bool{}
	for _, a := range alerts {
		metrics[a.Metric] = true
	}
	assert.True(t, metrics[model.AlertMetricCO2])
	assert.True(t, metrics[model.AlertMetricTemperature])
	assert.True(t, metrics[model.AlertMetricHumidity])
}

func TestRepeatedViolationsAreNotDeduplicated(t *testing.T) {
	pipeline, st, _ := newTestPipeline(t)
	sensor := seedSensor(t, st)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := pipeline.Ingest(ctx, sensor, 1300, 22, 50)
		require.NoError(t, err)
	}

	alerts, err := st.ListAlerts(ctx, store.AlertFilter{SensorID: sensor.ID})
	require.NoError(t, err)
	assert.Len(t, alerts, 3)
}

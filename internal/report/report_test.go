package report

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aerium-backend/internal/model"
)

func sampleAlerts(n int) []model.Alert {
	alerts := make([]model.Alert, n)
	for i := range alerts {
		alerts[i] = model.Alert{
			ID:        int64(i + 1),
			SensorID:  7,
			UserID:    1,
			Metric:    model.AlertMetricCO2,
			Severity:  model.AlertSeverityCritical,
			Value:     1300,
			Threshold: 1200,
			Message:   "CO2 level 1300 ppm exceeds threshold 1200 ppm",
			Status:    model.AlertStatusTriggered,
			CreatedAt: time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC),
		}
	}
	return alerts
}

func TestCSVStartsWithBOMAndHeader(t *testing.T) {
	data, err := CSV(sampleAlerts(2))
	require.NoError(t, err)

	require.True(t, bytes.HasPrefix(data, []byte("\xEF\xBB\xBF")), "missing UTF-8 BOM")

	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, []byte("\xEF\xBB\xBF"))))
	records, err := r.ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3, "header plus two rows")

	assert.Equal(t, []string{"id", "sensor_id", "metric", "severity", "status", "value", "threshold", "message", "created_at"}, records[0])
	assert.Equal(t, "co2", records[1][2])
	assert.Equal(t, "1300.0", records[1][5])
	assert.Equal(t, "2025-06-15T10:00:00Z", records[1][8])
}

func TestCSVEscapesCommasInMessages(t *testing.T) {
	alerts := sampleAlerts(1)
	alerts[0].Message = "high, and rising"

	data, err := CSV(alerts)
	require.NoError(t, err)

	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, []byte("\xEF\xBB\xBF"))))
	records, err := r.ReadAll()
	require.NoError(t, err)
	assert.Equal(t, "high, and rising", records[1][7])
}

func TestPDFIsWellFormed(t *testing.T) {
	period := Period{
		From: time.Date(2025, 5, 15, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC),
	}

	data, err := PDF(sampleAlerts(3), period)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "%PDF-"), "not a PDF document")
	assert.Greater(t, len(data), 1000)
}

func TestPDFCapsDetailRows(t *testing.T) {
	data, err := PDF(sampleAlerts(120), Period{From: time.Now().AddDate(0, -1, 0), To: time.Now()})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(data), "%PDF-"))

	// The overflow document must still be bounded: a capped table renders far
	// fewer objects than 120 rows would.
	full, err := PDF(sampleAlerts(pdfMaxRows), Period{From: time.Now().AddDate(0, -1, 0), To: time.Now()})
	require.NoError(t, err)
	assert.Less(t, len(data), len(full)+5000, fmt.Sprintf("capped report unexpectedly large: %d bytes", len(data)))
}

func TestEmptyReportRenders(t *testing.T) {
	csvData, err := CSV(nil)
	require.NoError(t, err)
	assert.Contains(t, string(csvData), "id,sensor_id")

	pdfData, err := PDF(nil, Period{From: time.Now().AddDate(0, 0, -7), To: time.Now()})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(pdfData), "%PDF-"))
}

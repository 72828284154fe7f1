// Package report renders alert exports as CSV and PDF documents.
package report

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"

	"aerium-backend/internal/model"
)

// Detail tables in PDF reports are capped to keep the document readable.
const pdfMaxRows = 50

// Period describes the time range a report covers.
type Period struct {
	From time.Time
	To   time.Time
}

// CSV renders the alert list as a CSV document. The output starts with a
// UTF-8 BOM so spreadsheet applications detect the encoding.
func CSV(alerts []model.Alert) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("\xEF\xBB\xBF")

	w := csv.NewWriter(&buf)
	header := []string{"id", "sensor_id", "metric", "severity", "status", "value", "threshold", "message", "created_at"}
	if err := w.Write(header); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	for _, a := range alerts {
		record := []string{
			fmt.Sprintf("%d", a.ID),
			fmt.Sprintf("%d", a.SensorID),
			a.Metric,
			a.Severity,
			a.Status,
			fmt.Sprintf("%.1f", a.Value),
			fmt.Sprintf("%.1f", a.Threshold),
			a.Message,
			a.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("write csv record: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

// PDF renders the alert list as a PDF document with a summary block and a
// detail table capped at pdfMaxRows rows.
func PDF(alerts []model.Alert, period Period) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Aerium Alert Report", false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, "Aerium Alert Report")
	pdf.Ln(8)

	pdf.SetFont("Helvetica", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Period: %s to %s",
		period.From.UTC().Format("2006-01-02 15:04"),
		period.To.UTC().Format("2006-01-02 15:04")))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Generated: %s", time.Now().UTC().Format("2006-01-02 15:04")))
	pdf.Ln(8)

	counts := map[string]int{}
	for _, a := range alerts {
		counts[a.Severity]++
	}
	pdf.SetFont("Helvetica", "B", 11)
	pdf.Cell(0, 6, "Summary")
	pdf.Ln(6)
	pdf.SetFont("Helvetica", "", 10)
	pdf.Cell(0, 5, fmt.Sprintf("Total alerts: %d (critical: %d, warning: %d, info: %d)",
		len(alerts),
		counts[model.AlertSeverityCritical],
		counts[model.AlertSeverityWarning],
		counts[model.AlertSeverityInfo]))
	pdf.Ln(8)

	pdf.SetFont("Helvetica", "B", 11)
	pdf.Cell(0, 6, "Alerts")
	pdf.Ln(6)

	widths := []float64{12, 18, 26, 20, 24, 20, 20, 50}
	headers := []string{"ID", "Sensor", "Metric", "Severity", "Status", "Value", "Limit", "Time"}
	pdf.SetFont("Helvetica", "B", 8)
	pdf.SetFillColor(230, 230, 230)
	for i, h := range headers {
		pdf.CellFormat(widths[i], 6, h, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 8)
	rows := alerts
	if len(rows) > pdfMaxRows {
		rows = rows[:pdfMaxRows]
	}
	for _, a := range rows {
		cells := []string{
			fmt.Sprintf("%d", a.ID),
			fmt.Sprintf("%d", a.SensorID),
			a.Metric,
			a.Severity,
			a.Status,
			fmt.Sprintf("%.1f", a.Value),
			fmt.Sprintf("%.1f", a.Threshold),
			a.CreatedAt.UTC().Format("2006-01-02 15:04"),
		}
		for i, c := range cells {
			pdf.CellFormat(widths[i], 5, c, "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}
	if len(alerts) > pdfMaxRows {
		pdf.Ln(2)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.Cell(0, 5, fmt.Sprintf("Showing first %d of %d alerts. Export CSV for the full list.", pdfMaxRows, len(alerts)))
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"aerium-backend/internal/model"
	"aerium-backend/internal/report"
	"aerium-backend/internal/store"
)

// reportWindow resolves the ?days parameter into a report period and loads
// the matching alerts. Writes the error response itself on failure.
func (h *Handler) reportWindow(c *gin.Context) ([]model.Alert, report.Period, bool) {
	user := h.currentUser(c)
	days := queryInt(c, "days", 30)
	if days <= 0 || days > 365 {
		days = 30
	}

	period := report.Period{
		From: time.Now().AddDate(0, 0, -days),
		To:   time.Now(),
	}
	filter := store.AlertFilter{Since: period.From}
	if !user.IsAdmin() {
		filter.UserID = user.ID
	}

	alerts, err := h.store.ListAlerts(c.Request.Context(), filter)
	if err != nil {
		h.serverError(c, err)
		return nil, period, false
	}
	return alerts, period, true
}

// ExportCSV streams the alert report as a CSV attachment.
func (h *Handler) ExportCSV(c *gin.Context) {
	alerts, period, ok := h.reportWindow(c)
	if !ok {
		return
	}

	data, err := report.CSV(alerts)
	if err != nil {
		h.serverError(c, err)
		return
	}

	name := fmt.Sprintf("aerium_alerts_%s.csv", period.To.Format("2006-01-02"))
	c.Header("Content-Disposition", "attachment; filename="+name)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", data)
}

// ExportPDF streams the alert report as a PDF attachment.
func (h *Handler) ExportPDF(c *gin.Context) {
	alerts, period, ok := h.reportWindow(c)
	if !ok {
		return
	}

	data, err := report.PDF(alerts, period)
	if err != nil {
		h.serverError(c, err)
		return
	}

	name := fmt.Sprintf("aerium_alerts_%s.pdf", period.To.Format("2006-01-02"))
	c.Header("Content-Disposition", "attachment; filename="+name)
	c.Data(http.StatusOK, "application/pdf", data)
}

// ReportStats returns the aggregate numbers behind the report for dashboards.
func (h *Handler) ReportStats(c *gin.Context) {
	h.AlertStats(c)
}

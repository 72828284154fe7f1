package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"aerium-backend/internal/analytics"
	"aerium-backend/internal/model"
	"aerium-backend/internal/store"
)

// userReadings loads the recent readings of all sensors visible to the
// caller, oldest first. Writes the error response itself on failure.
func (h *Handler) userReadings(c *gin.Context, days int) ([]model.Reading, bool) {
	user := h.currentUser(c)

	filter := store.SensorFilter{}
	if !user.IsAdmin() {
		filter.UserID = user.ID
	}
	sensors, err := h.store.ListSensors(c.Request.Context(), filter)
	if err != nil {
		h.serverError(c, err)
		return nil, false
	}
	ids := make([]int64, len(sensors))
	for i, s := range sensors {
		ids[i] = s.ID
	}

	since := time.Now().AddDate(0, 0, -days)
	readings, err := h.store.ListReadingsForSensors(c.Request.Context(), ids, since)
	if err != nil {
		h.serverError(c, err)
		return nil, false
	}
	return readings, true
}

// Predict extrapolates each metric linearly for the requested horizon.
func (h *Handler) Predict(c *gin.Context) {
	hours, ok := pathID(c, "hours")
	if !ok {
		return
	}
	if hours > 72 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "prediction horizon is capped at 72 hours"})
		return
	}

	readings, ok := h.userReadings(c, 7)
	if !ok {
		return
	}
	predictions := analytics.Predict(readings, int(hours))
	if predictions == nil {
		c.JSON(http.StatusOK, gin.H{"predictions": []analytics.Prediction{}, "message": "not enough data"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"predictions": predictions, "based_on": len(readings)})
}

// Anomalies flags readings that deviate more than two standard deviations
// from the metric mean.
func (h *Handler) Anomalies(c *gin.Context) {
	days := queryInt(c, "days", 7)
	if days <= 0 || days > 90 {
		days = 7
	}
	readings, ok := h.userReadings(c, days)
	if !ok {
		return
	}

	anomalies := analytics.DetectAnomalies(readings)
	if anomalies == nil {
		anomalies = []analytics.Anomaly{}
	}
	c.JSON(http.StatusOK, gin.H{"anomalies": anomalies, "reading_count": len(readings)})
}

// Insights returns per-metric summaries and smoothed CO2 values.
func (h *Handler) Insights(c *gin.Context) {
	days := queryInt(c, "days", 7)
	if days <= 0 || days > 90 {
		days = 7
	}
	readings, ok := h.userReadings(c, days)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"summaries":     analytics.Summarize(readings),
		"co2_smoothed":  analytics.MovingAverage(readings, model.AlertMetricCO2, 6),
		"reading_count": len(readings),
	})
}

// Correlation returns Pearson coefficients between metric pairs. Pairs with a
// constant column are omitted entirely so the payload never carries NaN.
func (h *Handler) Correlation(c *gin.Context) {
	days := queryInt(c, "days", 7)
	if days <= 0 || days > 90 {
		days = 7
	}
	readings, ok := h.userReadings(c, days)
	if !ok {
		return
	}

	correlations := analytics.Correlate(readings)
	if correlations == nil {
		correlations = []analytics.Correlation{}
	}
	c.JSON(http.StatusOK, gin.H{"correlations": correlations, "reading_count": len(readings)})
}

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"aerium-backend/internal/model"
	"aerium-backend/internal/store"
)

type updateAlertRequest struct {
	Status string `json:"status" binding:"required"`
}

// ListAlerts returns the caller's recent alerts.
func (h *Handler) ListAlerts(c *gin.Context) {
	user := h.currentUser(c)

	filter := store.AlertFilter{
		Status: c.Query("status"),
		Limit:  queryInt(c, "limit", 50),
	}
	if !user.IsAdmin() {
		filter.UserID = user.ID
	}

	alerts, err := h.store.ListAlerts(c.Request.Context(), filter)
	if err != nil {
		h.serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, alerts)
}

// ListAlertHistory returns alerts filtered by period, status, severity and
// sensor.
func (h *Handler) ListAlertHistory(c *gin.Context) {
	user := h.currentUser(c)

	days := queryInt(c, "days", 7)
	if days <= 0 || days > 365 {
		days = 7
	}
	filter := store.AlertFilter{
		Status:   c.Query("status"),
		Severity: c.Query("type"),
		SensorID: int64(queryInt(c, "sensor_id", 0)),
		Since:    time.Now().AddDate(0, 0, -days),
		Limit:    queryInt(c, "limit", 100),
	}
	if !user.IsAdmin() {
		filter.UserID = user.ID
	}

	alerts, err := h.store.ListAlerts(c.Request.Context(), filter)
	if err != nil {
		h.serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"alerts": alerts, "days": days})
}

// UpdateAlert applies a status transition to an alert.
func (h *Handler) UpdateAlert(c *gin.Context) {
	var req updateAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !model.ValidAlertStatus(req.Status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
		return
	}
	h.transitionAlert(c, req.Status)
}

// AcknowledgeAlert marks an alert as acknowledged.
func (h *Handler) AcknowledgeAlert(c *gin.Context) {
	h.transitionAlert(c, model.AlertStatusAcknowledged)
}

// ResolveAlert marks an alert as resolved.
func (h *Handler) ResolveAlert(c *gin.Context) {
	h.transitionAlert(c, model.AlertStatusResolved)
}

func (h *Handler) transitionAlert(c *gin.Context, status string) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	alert, ok := h.ownedAlert(c, id)
	if !ok {
		return
	}

	now := time.Now()
	alert.Status = status
	switch status {
	case model.AlertStatusAcknowledged:
		if alert.AcknowledgedAt == nil {
			alert.AcknowledgedAt = &now
		}
	case model.AlertStatusResolved:
		if alert.ResolvedAt == nil {
			alert.ResolvedAt = &now
		}
	}

	if err := h.store.UpdateAlert(c.Request.Context(), alert); err != nil {
		h.serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, alert)
}

// DeleteAlert removes one alert row.
func (h *Handler) DeleteAlert(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if _, ok := h.ownedAlert(c, id); !ok {
		return
	}

	if err := h.store.DeleteAlert(c.Request.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "alert not found"})
			return
		}
		h.serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "alert deleted"})
}

// AlertStats returns aggregate alert counts for the period.
func (h *Handler) AlertStats(c *gin.Context) {
	user := h.currentUser(c)
	days := queryInt(c, "days", 7)
	if days <= 0 || days > 365 {
		days = 7
	}

	userID := user.ID
	if user.IsAdmin() {
		userID = 0
	}
	stats, err := h.store.GetAlertStats(c.Request.Context(), userID, time.Now().AddDate(0, 0, -days))
	if err != nil {
		h.serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// ownedAlert loads the alert and enforces ownership, writing the error
// response itself on failure.
func (h *Handler) ownedAlert(c *gin.Context, id int64) (*model.Alert, bool) {
	alert, err := h.store.GetAlert(c.Request.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "alert not found"})
		return nil, false
	}
	if err != nil {
		h.serverError(c, err)
		return nil, false
	}
	user := h.currentUser(c)
	if !user.IsAdmin() && alert.UserID != user.ID {
		c.JSON(http.StatusForbidden, gin.H{"error": "not your alert"})
		return nil, false
	}
	return alert, true
}

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"aerium-backend/internal/model"
	"aerium-backend/internal/store"
	"aerium-backend/internal/ws"
)

// Simulation sensors whose latest reading is older than this get a fresh
// generated reading when listed.
const simStaleAfter = 60 * time.Second

type createSensorRequest struct {
	Name     string `json:"name" binding:"required"`
	Location string `json:"location"`
	Type     string `json:"sensor_type"`
	IsLive   *bool  `json:"is_live"`
}

type updateSensorRequest struct {
	Name     *string `json:"name"`
	Location *string `json:"location"`
	Status   *string `json:"status"`
	IsLive   *bool   `json:"is_live"`
}

// sensorResponse embeds the latest reading alongside the sensor row.
type sensorResponse struct {
	model.Sensor
	LatestReading *model.Reading `json:"latest_reading,omitempty"`
}

// ListSensors returns the caller's sensors with their latest readings.
// Admins see every sensor. Simulation sensors with stale data get a fresh
// generated reading first, so the dashboard never shows a dead simulation.
func (h *Handler) ListSensors(c *gin.Context) {
	user := h.currentUser(c)

	filter := store.SensorFilter{
		Search: c.Query("search"),
		Status: c.Query("status"),
		Type:   c.Query("sensor_type"),
		Sort:   c.Query("sort"),
		Limit:  queryInt(c, "limit", 0),
	}
	if !user.IsAdmin() {
		filter.UserID = user.ID
	}
	if raw := c.Query("active"); raw != "" {
		active := raw == "true" || raw == "1"
		filter.Active = &active
	}

	sensors, err := h.store.ListSensors(c.Request.Context(), filter)
	if err != nil {
		h.serverError(c, err)
		return
	}

	responses := make([]sensorResponse, 0, len(sensors))
	for i := range sensors {
		sensor := &sensors[i]
		latest, err := h.store.LatestReading(c.Request.Context(), sensor.ID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			h.serverError(c, err)
			return
		}
		if sensor.Type == model.SensorTypeSimulation && sensor.IsLive &&
			(latest == nil || time.Since(latest.RecordedAt) > simStaleAfter) {
			if fresh, err := h.refreshSimulation(c, sensor); err == nil {
				latest = fresh
			}
		}
		responses = append(responses, sensorResponse{Sensor: *sensor, LatestReading: latest})
	}
	c.JSON(http.StatusOK, responses)
}

// CreateSensor registers a new sensor owned by the caller.
func (h *Handler) CreateSensor(c *gin.Context) {
	var req createSensorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sensorType := req.Type
	if sensorType == "" {
		sensorType = model.SensorTypeSimulation
	}
	if sensorType != model.SensorTypeReal && sensorType != model.SensorTypeSimulation {
		c.JSON(http.StatusBadRequest, gin.H{"error": "sensor_type must be real or simulation"})
		return
	}

	sensor := &model.Sensor{
		UserID:   h.currentUser(c).ID,
		Name:     req.Name,
		Location: req.Location,
		Type:     sensorType,
		Status:   model.SensorStatusOnline,
		IsLive:   true,
		APIKey:   uuid.NewString(),
	}
	if req.IsLive != nil {
		sensor.IsLive = *req.IsLive
	}

	if err := h.store.CreateSensor(c.Request.Context(), sensor); err != nil {
		h.serverError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sensor)
}

// GetSensor returns one sensor with its latest reading.
func (h *Handler) GetSensor(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	sensor, ok := h.ownedSensor(c, id)
	if !ok {
		return
	}

	latest, err := h.store.LatestReading(c.Request.Context(), sensor.ID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		h.serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, sensorResponse{Sensor: *sensor, LatestReading: latest})
}

// UpdateSensor applies partial updates to a sensor.
func (h *Handler) UpdateSensor(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	sensor, ok := h.ownedSensor(c, id)
	if !ok {
		return
	}

	var req updateSensorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Name != nil {
		sensor.Name = *req.Name
	}
	if req.Location != nil {
		sensor.Location = *req.Location
	}
	if req.Status != nil {
		if !model.ValidSensorStatus(*req.Status) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
			return
		}
		sensor.Status = *req.Status
	}
	if req.IsLive != nil {
		sensor.IsLive = *req.IsLive
	}

	if err := h.store.UpdateSensor(c.Request.Context(), sensor); err != nil {
		h.serverError(c, err)
		return
	}
	h.hub.Broadcast(ws.EventSettingsUpdate, sensor, sensor.ID)
	c.JSON(http.StatusOK, sensor)
}

// DeleteSensor removes a sensor and all of its readings and alerts.
func (h *Handler) DeleteSensor(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if _, ok := h.ownedSensor(c, id); !ok {
		return
	}

	if err := h.store.DeleteSensor(c.Request.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "sensor not found"})
			return
		}
		h.serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "sensor deleted"})
}

// refreshSimulation generates one current reading for a simulation sensor
// and pushes it through the ingestion pipeline.
func (h *Handler) refreshSimulation(c *gin.Context, sensor *model.Sensor) (*model.Reading, error) {
	generated := h.simulator.Current(sensor.Name)
	return h.pipeline.Ingest(c.Request.Context(), sensor,
		generated.CO2, generated.Temperature, generated.Humidity)
}

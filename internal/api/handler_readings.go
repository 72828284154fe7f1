package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"aerium-backend/internal/model"
	"aerium-backend/internal/store"
)

// Simulation sensors regenerate their latest reading when it is older than
// this on the latest-reading endpoint.
const simLatestStaleAfter = 5 * time.Second

type ingestRequest struct {
	SensorID    int64    `json:"sensor_id" binding:"required"`
	CO2         float64  `json:"co2" binding:"required"`
	Temperature float64  `json:"temperature"`
	Humidity    *float64 `json:"humidity"`
}

type externalIngestRequest struct {
	CO2         float64  `json:"co2" binding:"required"`
	Temperature float64  `json:"temperature"`
	Humidity    *float64 `json:"humidity"`
}

// GetSensorReadings returns the reading history for one sensor. Simulation
// sensors without stored history answer with a generated series instead of an
// empty list.
func (h *Handler) GetSensorReadings(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	sensor, ok := h.ownedSensor(c, id)
	if !ok {
		return
	}

	hours := queryInt(c, "hours", 24)
	if hours <= 0 || hours > 24*30 {
		hours = 24
	}
	limit := queryInt(c, "limit", 0)
	since := time.Now().Add(-time.Duration(hours) * time.Hour)

	readings, err := h.store.ListReadings(c.Request.Context(), sensor.ID, since, limit)
	if err != nil {
		h.serverError(c, err)
		return
	}

	if len(readings) == 0 && sensor.Type == model.SensorTypeSimulation {
		series := h.simulator.Series(sensor.Name, hours)
		generated := make([]model.Reading, 0, len(series))
		for _, r := range series {
			generated = append(generated, model.Reading{
				SensorID:    sensor.ID,
				CO2:         r.CO2,
				Temperature: r.Temperature,
				Humidity:    r.Humidity,
				RecordedAt:  r.RecordedAt,
			})
		}
		c.JSON(http.StatusOK, gin.H{"sensor_id": sensor.ID, "readings": generated, "generated": true})
		return
	}

	c.JSON(http.StatusOK, gin.H{"sensor_id": sensor.ID, "readings": readings, "generated": false})
}

// GetLatestReading returns the most recent reading for one sensor. A stale
// simulation sensor gets a fresh reading generated and stored first.
func (h *Handler) GetLatestReading(c *gin.Context) {
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

	if sensor.Type == model.SensorTypeSimulation &&
		(latest == nil || time.Since(latest.RecordedAt) > simLatestStaleAfter) {
		fresh, err := h.refreshSimulation(c, sensor)
		if err != nil {
			h.serverError(c, err)
			return
		}
		latest = fresh
	}

	if latest == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no readings yet"})
		return
	}
	c.JSON(http.StatusOK, latest)
}

// IngestReading accepts a reading from an authenticated client and runs it
// through the ingestion pipeline.
func (h *Handler) IngestReading(c *gin.Context) {
	var req ingestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sensor, ok := h.ownedSensor(c, req.SensorID)
	if !ok {
		return
	}

	humidity := 0.0
	if req.Humidity != nil {
		humidity = *req.Humidity
	}
	reading, err := h.pipeline.Ingest(c.Request.Context(), sensor, req.CO2, req.Temperature, humidity)
	if err != nil {
		h.serverError(c, err)
		return
	}
	c.JSON(http.StatusCreated, reading)
}

// ExternalIngest accepts a reading from a hardware sensor authenticated by
// its API key. Only real sensors may push here.
func (h *Handler) ExternalIngest(c *gin.Context) {
	key := c.Param("api_key")
	sensor, err := h.store.GetSensorByAPIKey(c.Request.Context(), key)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unknown api key"})
		return
	}
	if err != nil {
		h.serverError(c, err)
		return
	}
	if sensor.Type != model.SensorTypeReal {
		c.JSON(http.StatusBadRequest, gin.H{"error": "only real sensors may push readings"})
		return
	}

	var req externalIngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	humidity := 0.0
	if req.Humidity != nil {
		humidity = *req.Humidity
	}
	reading, err := h.pipeline.Ingest(c.Request.Context(), sensor, req.CO2, req.Temperature, humidity)
	if err != nil {
		h.serverError(c, err)
		return
	}
	c.JSON(http.StatusCreated, reading)
}

// AggregateReadings returns per-metric averages over the caller's sensors for
// the last 24 hours.
func (h *Handler) AggregateReadings(c *gin.Context) {
	user := h.currentUser(c)

	filter := store.SensorFilter{}
	if !user.IsAdmin() {
		filter.UserID = user.ID
	}
	sensors, err := h.store.ListSensors(c.Request.Context(), filter)
	if err != nil {
		h.serverError(c, err)
		return
	}
	ids := make([]int64, len(sensors))
	for i, s := range sensors {
		ids[i] = s.ID
	}

	since := time.Now().Add(-24 * time.Hour)
	readings, err := h.store.ListReadingsForSensors(c.Request.Context(), ids, since)
	if err != nil {
		h.serverError(c, err)
		return
	}

	var co2, temp, hum float64
	for _, r := range readings {
		co2 += r.CO2
		temp += r.Temperature
		hum += r.Humidity
	}
	n := float64(len(readings))
	resp := gin.H{
		"sensor_count":    len(sensors),
		"reading_count":   len(readings),
		"avg_co2":         0.0,
		"avg_temperature": 0.0,
		"avg_humidity":    0.0,
	}
	if n > 0 {
		resp["avg_co2"] = co2 / n
		resp["avg_temperature"] = temp / n
		resp["avg_humidity"] = hum / n
	}
	c.JSON(http.StatusOK, resp)
}

// Package ws fans readings out to connected clients over WebSocket.
// Delivery is best effort and at most once: slow clients drop messages.
package ws

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"aerium-backend/internal/model"
)

// Event names sent by the server.
const (
	EventCO2Update      = "co2_update"
	EventSensorReading  = "sensor_reading"
	EventStatus         = "status"
	EventSettingsUpdate = "settings_update"
)

// Event names accepted from clients.
const (
	EventRequestData     = "request_data"
	EventSubscribeSensor = "subscribe_sensor"
)

// Envelope is the wire format for every event in either direction.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// ReadingPayload is the body of co2_update and sensor_reading events.
type ReadingPayload struct {
	SensorID    int64   `json:"sensor_id"`
	SensorName  string  `json:"sensor_name,omitempty"`
	PPM         float64 `json:"ppm"`
	CO2         float64 `json:"co2"`
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
	Timestamp   string  `json:"timestamp"`
}

// Hub tracks live connections and broadcasts events to them.
type Hub struct {
	mu     sync.RWMutex
	conns  map[*Connection]struct{}
	logger *zap.Logger
}

// NewHub builds an empty hub.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		conns:  make(map[*Connection]struct{}),
		logger: logger,
	}
}

func (h *Hub) add(c *Connection) {
	h.mu.Lock()
	h.conns[c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) remove(c *Connection) {
	h.mu.Lock()
	delete(h.conns, c)
	h.mu.Unlock()
}

// ClientCount returns the number of live connections.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// Broadcast sends an event to every connection, honoring per-connection
// sensor subscriptions when the payload carries a sensor ID.
func (h *Hub) Broadcast(event string, data any, sensorID int64) {
	msg, err := Marshal(event, data)
	if err != nil {
		h.logger.Error("failed to marshal broadcast", zap.String("event", event), zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.conns {
		if sensorID != 0 && !c.wants(sensorID) {
			continue
		}
		c.Send(msg)
	}
}

// BroadcastReading publishes one stored reading as both the legacy co2_update
// event and the richer sensor_reading event.
func (h *Hub) BroadcastReading(sensor *model.Sensor, reading *model.Reading) {
	payload := ReadingPayload{
		SensorID:    sensor.ID,
		SensorName:  sensor.Name,
		PPM:         reading.CO2,
		CO2:         reading.CO2,
		Temperature: reading.Temperature,
		Humidity:    reading.Humidity,
		Timestamp:   reading.RecordedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
	h.Broadcast(EventCO2Update, payload, sensor.ID)
	h.Broadcast(EventSensorReading, payload, sensor.ID)
}

// Marshal wraps data into the event envelope.
func Marshal(event string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: event, Data: raw})
}

package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"aerium-backend/internal/auth"
	"aerium-backend/internal/model"
	"aerium-backend/internal/store"
)

// Server upgrades HTTP connections and attaches them to the hub. The bearer
// token rides in the `token` query parameter because browsers cannot set
// headers on WebSocket upgrades.
type Server struct {
	hub          *Hub
	tokens       *auth.Manager
	store        store.Store
	logger       *zap.Logger
	writeTimeout time.Duration
	upgrader     websocket.Upgrader
}

// NewServer builds the WebSocket endpoint.
func NewServer(hub *Hub, tokens *auth.Manager, st store.Store, logger *zap.Logger) *Server {
	return &Server{
		hub:          hub,
		tokens:       tokens,
		store:        st,
		logger:       logger,
		writeTimeout: 10 * time.Second,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// HandleWS is the HTTP handler for the /ws endpoint.
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	userID, err := s.tokens.Verify(token, auth.TokenKindAccess)
	if err != nil {
		http.Error(w, "invalid or missing token", http.StatusUnauthorized)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", zap.Error(err))
		return
	}

	// Not r.Context(): net/http cancels that as soon as this handler
	// returns, which would kill the pumps of the hijacked socket.
	ctx, cancel := context.WithCancel(context.Background())
	connection := newConnection(userID, conn, s.writeTimeout, s.logger,
		s.replyLatestReadings,
		func(c *Connection) {
			s.hub.remove(c)
			cancel()
		})
	s.hub.add(connection)

	if msg, err := Marshal(EventStatus, map[string]any{"connected": true}); err == nil {
		connection.Send(msg)
	}

	go connection.Start(ctx)
	s.logger.Info("websocket client connected", zap.Int64("user_id", userID))
}

// replyLatestReadings answers a request_data event with the newest reading of
// each sensor the user can see.
func (s *Server) replyLatestReadings(ctx context.Context, c *Connection) {
	user, err := s.store.GetUserByID(ctx, c.UserID())
	if err != nil {
		s.logger.Error("request_data from unknown user", zap.Int64("user_id", c.UserID()), zap.Error(err))
		return
	}

	filter := store.SensorFilter{UserID: user.ID}
	if user.IsAdmin() {
		filter.UserID = 0
	}
	sensors, err := s.store.ListSensors(ctx, filter)
	if err != nil {
		s.logger.Error("failed to list sensors for request_data", zap.Error(err))
		return
	}

	var payloads []ReadingPayload
	for i := range sensors {
		sensor := &sensors[i]
		reading, err := s.store.LatestReading(ctx, sensor.ID)
		if err != nil {
			continue
		}
		payloads = append(payloads, readingPayload(sensor, reading))
	}

	if msg, err := Marshal(EventSensorReading, payloads); err == nil {
		c.Send(msg)
	}
}

func readingPayload(sensor *model.Sensor, reading *model.Reading) ReadingPayload {
	return ReadingPayload{
		SensorID:    sensor.ID,
		SensorName:  sensor.Name,
		PPM:         reading.CO2,
		CO2:         reading.CO2,
		Temperature: reading.Temperature,
		Humidity:    reading.Humidity,
		Timestamp:   reading.RecordedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
}

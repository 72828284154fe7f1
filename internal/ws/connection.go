package ws

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	readLimit    = 64 * 1024
	pongWait     = 60 * time.Second
	pingInterval = 30 * time.Second
)

// Connection wraps one client socket with buffered writes and a sensor
// subscription filter.
type Connection struct {
	userID       int64
	ws           *websocket.Conn
	send         chan []byte
	closed       atomic.Bool
	sensorFilter atomic.Int64 // 0 means all sensors
	logger       *zap.Logger
	writeTimeout time.Duration
	onRequest    func(ctx context.Context, c *Connection)
	onClose      func(c *Connection)
}

func newConnection(userID int64, ws *websocket.Conn, writeTimeout time.Duration, logger *zap.Logger,
	onRequest func(context.Context, *Connection), onClose func(*Connection)) *Connection {
	return &Connection{
		userID:       userID,
		ws:           ws,
		send:         make(chan []byte, 32),
		logger:       logger,
		writeTimeout: writeTimeout,
		onRequest:    onRequest,
		onClose:      onClose,
	}
}

// UserID returns the authenticated user behind this connection.
func (c *Connection) UserID() int64 {
	return c.userID
}

// Start launches the write pump and runs the read pump until the socket
// closes.
func (c *Connection) Start(ctx context.Context) {
	go c.writePump(ctx)
	c.readPump(ctx)
}

func (c *Connection) readPump(ctx context.Context) {
	defer c.cleanup()
	c.ws.SetReadLimit(readLimit)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		_, message, err := c.ws.ReadMessage()
		if err != nil {
			c.logger.Debug("connection read closed", zap.Int64("user_id", c.userID), zap.Error(err))
			return
		}
		c.handleMessage(ctx, message)
	}
}

func (c *Connection) handleMessage(ctx context.Context, raw []byte) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		c.logger.Warn("discarding malformed client event", zap.Error(err))
		return
	}

	switch env.Event {
	case EventRequestData:
		if c.onRequest != nil {
			c.onRequest(ctx, c)
		}
	case EventSubscribeSensor:
		var body struct {
			SensorID int64 `json:"sensor_id"`
		}
		if err := json.Unmarshal(env.Data, &body); err != nil {
			c.logger.Warn("discarding malformed subscribe_sensor payload", zap.Error(err))
			return
		}
		c.sensorFilter.Store(body.SensorID)
		if msg, err := Marshal(EventStatus, map[string]any{"subscribed": body.SensorID}); err == nil {
			c.Send(msg)
		}
	default:
		c.logger.Debug("ignoring unknown client event", zap.String("event", env.Event))
	}
}

func (c *Connection) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-c.send:
			if !ok {
				_ = c.write(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.write(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Send enqueues a message, dropping it when the buffer is full.
func (c *Connection) Send(msg []byte) {
	if c.closed.Load() {
		return
	}
	// cleanup can close send between the load above and the select below.
	defer func() {
		_ = recover()
	}()
	select {
	case c.send <- msg:
	default:
		c.logger.Warn("dropping outgoing message, buffer full", zap.Int64("user_id", c.userID))
	}
}

func (c *Connection) wants(sensorID int64) bool {
	filter := c.sensorFilter.Load()
	return filter == 0 || filter == sensorID
}

func (c *Connection) write(messageType int, data []byte) error {
	c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	return c.ws.WriteMessage(messageType, data)
}

func (c *Connection) cleanup() {
	if c.closed.Swap(true) {
		return
	}
	close(c.send)
	_ = c.ws.Close()
	if c.onClose != nil {
		c.onClose(c)
	}
}

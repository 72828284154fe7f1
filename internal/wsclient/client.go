// Package wsclient implements a reconnecting client for the /ws endpoint,
// used by the monitor CLI and useful for headless integrations.
package wsclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"aerium-backend/internal/ws"
)

const (
	initialBackoff = time.Second
	maxBackoff     = 30 * time.Second
	writeTimeout   = 10 * time.Second
)

// EventHandler processes one server event payload.
type EventHandler func(data json.RawMessage)

// Client maintains a websocket connection, reconnecting with capped
// exponential backoff when it drops.
type Client struct {
	serverURL string
	token     string
	logger    *zap.Logger

	mu       sync.Mutex
	conn     *websocket.Conn
	handlers map[string]EventHandler
	onStatus func(connected bool)
}

// New creates a client for the given base URL (http:// or https://) and
// access token.
func New(serverURL, token string, logger *zap.Logger) *Client {
	return &Client{
		serverURL: serverURL,
		token:     token,
		logger:    logger,
		handlers:  make(map[string]EventHandler),
	}
}

// On registers a handler for one server event. Must be called before Run.
func (c *Client) On(event string, handler EventHandler) {
	c.handlers[event] = handler
}

// OnStatus registers a connection status callback. Must be called before Run.
func (c *Client) OnStatus(fn func(connected bool)) {
	c.onStatus = fn
}

// Run connects and processes events until the context is cancelled,
// reconnecting on failure. It always returns ctx.Err().
func (c *Client) Run(ctx context.Context) error {
	backoff := initialBackoff
	for {
		connected, err := c.runOnce(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if connected {
			// A session was established, so the next retry starts fresh.
			backoff = initialBackoff
		}
		c.logger.Warn("connection lost, reconnecting",
			zap.Duration("backoff", backoff),
			zap.Error(err))

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

// runOnce reports whether a connection was established in addition to the
// error that ended the session.
func (c *Client) runOnce(ctx context.Context) (bool, error) {
	wsURL, err := c.endpoint()
	if err != nil {
		return false, err
	}

	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, wsURL, nil)
	cancel()
	if err != nil {
		return false, fmt.Errorf("dial %s: %w", wsURL, err)
	}
	defer conn.Close()

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	if c.onStatus != nil {
		c.onStatus(true)
	}
	defer func() {
		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()
		if c.onStatus != nil {
			c.onStatus(false)
		}
	}()

	// Close the socket when the context ends so ReadMessage unblocks.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return true, err
		}
		var envelope ws.Envelope
		if err := json.Unmarshal(raw, &envelope); err != nil {
			c.logger.Warn("malformed server message", zap.Error(err))
			continue
		}
		if handler, ok := c.handlers[envelope.Event]; ok {
			handler(envelope.Data)
		}
	}
}

// Subscribe narrows the live stream to one sensor. Zero means all sensors.
func (c *Client) Subscribe(sensorID int64) error {
	return c.send(ws.EventSubscribeSensor, map[string]int64{"sensor_id": sensorID})
}

// RequestData asks the server to resend the latest readings.
func (c *Client) RequestData() error {
	return c.send(ws.EventRequestData, nil)
}

func (c *Client) send(event string, data any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return fmt.Errorf("not connected")
	}

	msg, err := ws.Marshal(event, data)
	if err != nil {
		return err
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, msg)
}

func (c *Client) endpoint() (string, error) {
	u, err := url.Parse(c.serverURL)
	if err != nil {
		return "", fmt.Errorf("parse server url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	u.Path = "/ws"
	q := u.Query()
	q.Set("token", c.token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

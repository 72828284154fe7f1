package wsclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"aerium-backend/internal/ws"
)

func wsEchoServer(t *testing.T, accept func(*websocket.Conn)) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		accept(conn)
	}))
}

// A session that connects and then drops must be reported as connected so Run
// restarts its backoff from the initial delay.
func TestRunOnceReportsEstablishedSession(t *testing.T) {
	ts := wsEchoServer(t, func(conn *websocket.Conn) {
		conn.Close()
	})
	defer ts.Close()

	c := New(ts.URL, "tok", zap.NewNop())
	connected, err := c.runOnce(context.Background())
	require.Error(t, err)
	assert.True(t, connected)
}

func TestRunOnceReportsDialFailure(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	c := New("http://127.0.0.1:1", "tok", zap.NewNop())
	connected, err := c.runOnce(ctx)
	require.Error(t, err)
	assert.False(t, connected)
}

func TestDispatchesRegisteredHandlers(t *testing.T) {
	ts := wsEchoServer(t, func(conn *websocket.Conn) {
		msg, err := ws.Marshal(ws.EventStatus, map[string]any{"connected": true})
		if err == nil {
			conn.WriteMessage(websocket.TextMessage, msg)
		}
		time.Sleep(100 * time.Millisecond)
		conn.Close()
	})
	defer ts.Close()

	got := make(chan string, 1)
	c := New(ts.URL, "tok", zap.NewNop())
	c.On(ws.EventStatus, func(data json.RawMessage) {
		got <- string(data)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, _ = c.runOnce(ctx)

	select {
	case data := <-got:
		assert.JSONEq(t, `{"connected":true}`, data)
	default:
		t.Fatal("status handler was not invoked")
	}
}

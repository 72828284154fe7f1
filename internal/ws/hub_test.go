package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"aerium-backend/config"
	"aerium-backend/internal/auth"
	"aerium-backend/internal/model"
	"aerium-backend/internal/store"
)

func newTestServer(t *testing.T) (*Server, *Hub, store.Store, *auth.Manager) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.User{}, &model.Sensor{}, &model.Reading{}))
	st := store.NewGormStore(db)

	tokens := auth.NewManager(&config.AuthConfig{
		JWTSecret:       "test-secret",
		AccessTokenTTL:  time.Hour,
		RefreshTokenTTL: time.Hour,
	})
	hub := NewHub(zap.NewNop())
	return NewServer(hub, tokens, st, zap.NewNop()), hub, st, tokens
}

func dial(t *testing.T, httpURL, token string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(httpURL, "http") + "?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) Envelope {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	var env Envelope
	require.NoError(t, json.Unmarshal(raw, &env))
	return env
}

func TestRejectsMissingToken(t *testing.T) {
	server, _, _, _ := newTestServer(t)
	ts := httptest.NewServer(http.HandlerFunc(server.HandleWS))
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http")
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestConnectSendsStatusEvent(t *testing.T) {
	server, hub, _, tokens := newTestServer(t)
	ts := httptest.NewServer(http.HandlerFunc(server.HandleWS))
	defer ts.Close()

	token, err := tokens.IssueAccess(1)
	require.NoError(t, err)

	conn := dial(t, ts.URL, token)
	defer conn.Close()

	env := readEnvelope(t, conn)
	assert.Equal(t, EventStatus, env.Event)
	assert.JSONEq(t, `{"connected":true}`, string(env.Data))

	// The hub registers the connection before the status event is queued.
	assert.Equal(t, 1, hub.ClientCount())
}

func TestBroadcastReadingReachesClient(t *testing.T) {
	server, hub, _, tokens := newTestServer(t)
	ts := httptest.NewServer(http.HandlerFunc(server.HandleWS))
	defer ts.Close()

	token, err := tokens.IssueAccess(1)
	require.NoError(t, err)
	conn := dial(t, ts.URL, token)
	defer conn.Close()

	readEnvelope(t, conn) // connected status

	sensor := &model.Sensor{ID: 7, Name: "Open Space Dev"}
	reading := &model.Reading{SensorID: 7, CO2: 812, Temperature: 22.3, Humidity: 51, RecordedAt: time.Now().UTC()}
	hub.BroadcastReading(sensor, reading)

	// Both the legacy co2_update and the full sensor_reading go out.
	first := readEnvelope(t, conn)
	second := readEnvelope(t, conn)
	events := []string{first.Event, second.Event}
	assert.Contains(t, events, EventCO2Update)
	assert.Contains(t, events, EventSensorReading)

	var payload ReadingPayload
	require.NoError(t, json.Unmarshal(second.Data, &payload))
	assert.Equal(t, int64(7), payload.SensorID)
	assert.Equal(t, 812.0, payload.CO2)
	assert.Equal(t, 812.0, payload.PPM)
}

func TestBroadcastAfterHandlerReturns(t *testing.T) {
	server, hub, _, tokens := newTestServer(t)
	ts := httptest.NewServer(http.HandlerFunc(server.HandleWS))
	defer ts.Close()

	token, err := tokens.IssueAccess(1)
	require.NoError(t, err)
	conn := dial(t, ts.URL, token)
	defer conn.Close()

	readEnvelope(t, conn) // connected status

	// HandleWS returned long ago; the pumps must not die with its request
	// context.
	time.Sleep(300 * time.Millisecond)

	hub.BroadcastReading(&model.Sensor{ID: 4, Name: "Bureau Principal"},
		&model.Reading{SensorID: 4, CO2: 655, RecordedAt: time.Now().UTC()})

	env := readEnvelope(t, conn)
	assert.Equal(t, EventCO2Update, env.Event)
}

func TestSendDuringCleanupDoesNotPanic(t *testing.T) {
	// A broadcast can pass the closed check right as cleanup closes the
	// send channel.
	c := &Connection{send: make(chan []byte, 1), logger: zap.NewNop()}
	close(c.send)
	assert.NotPanics(t, func() { c.Send([]byte(`{}`)) })
}

func TestSubscribeSensorFiltersBroadcasts(t *testing.T) {
	server, hub, _, tokens := newTestServer(t)
	ts := httptest.NewServer(http.HandlerFunc(server.HandleWS))
	defer ts.Close()

	token, err := tokens.IssueAccess(1)
	require.NoError(t, err)
	conn := dial(t, ts.URL, token)
	defer conn.Close()

	readEnvelope(t, conn) // connected status

	msg, err := Marshal(EventSubscribeSensor, map[string]int64{"sensor_id": 7})
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, msg))

	// The subscription is acknowledged before any filtered broadcast.
	ack := readEnvelope(t, conn)
	assert.Equal(t, EventStatus, ack.Event)
	assert.JSONEq(t, `{"subscribed":7}`, string(ack.Data))

	// A broadcast for another sensor is filtered out, one for sensor 7 is not.
	now := time.Now().UTC()
	hub.BroadcastReading(&model.Sensor{ID: 3, Name: "Other"}, &model.Reading{SensorID: 3, CO2: 500, RecordedAt: now})
	hub.BroadcastReading(&model.Sensor{ID: 7, Name: "Mine"}, &model.Reading{SensorID: 7, CO2: 900, RecordedAt: now})

	env := readEnvelope(t, conn)
	var payload ReadingPayload
	require.NoError(t, json.Unmarshal(env.Data, &payload))
	assert.Equal(t, int64(7), payload.SensorID)
}

func TestRequestDataRepliesWithLatestReadings(t *testing.T) {
	server, _, st, tokens := newTestServer(t)
	ts := httptest.NewServer(http.HandlerFunc(server.HandleWS))
	defer ts.Close()

	ctx := context.Background()
	user := &model.User{Email: "alice@example.com", PasswordHash: "x"}
	require.NoError(t, st.CreateUser(ctx, user))
	sensor := &model.Sensor{UserID: user.ID, Name: "Open Space Dev", Status: model.SensorStatusOnline, Type: model.SensorTypeSimulation, APIKey: "k"}
	require.NoError(t, st.CreateSensor(ctx, sensor))
	require.NoError(t, st.CreateReading(ctx, &model.Reading{SensorID: sensor.ID, CO2: 765, RecordedAt: time.Now().UTC()}))

	token, err := tokens.IssueAccess(user.ID)
	require.NoError(t, err)
	conn := dial(t, ts.URL, token)
	defer conn.Close()

	readEnvelope(t, conn) // connected status

	msg, err := Marshal(EventRequestData, nil)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, msg))

	env := readEnvelope(t, conn)
	assert.Equal(t, EventSensorReading, env.Event)

	var payloads []ReadingPayload
	require.NoError(t, json.Unmarshal(env.Data, &payloads))
	require.Len(t, payloads, 1)
	assert.Equal(t, sensor.ID, payloads[0].SensorID)
	assert.Equal(t, 765.0, payloads[0].CO2)
}

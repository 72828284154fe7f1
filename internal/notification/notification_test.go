package notification

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/SherClockHolmes/webpush-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"aerium-backend/config"
	"aerium-backend/internal/model"
	"aerium-backend/internal/store"
)

// fakeEmailSender records sent emails.
type fakeEmailSender struct {
	mu   sync.Mutex
	sent []string
}

func (f *fakeEmailSender) Send(to, subject, textBody, htmlBody string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, subject)
	return nil
}

func (f *fakeEmailSender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

// fakePushSender returns a canned HTTP response.
type fakePushSender struct {
	mu     sync.Mutex
	status int
	calls  int
}

func (f *fakePushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return &http.Response{
		StatusCode: f.status,
		Body:       io.NopCloser(bytes.NewReader(nil)),
	}, nil
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Mail.Enabled = true
	cfg.Push.PublicKey = "pub"
	cfg.Push.PrivateKey = "priv"
	cfg.Thresholds.SendInterval = 5 * time.Minute
	cfg.WorkerPool.Size = 1
	return cfg
}

func newSqliteStore(t *testing.T) store.Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.User{}, &model.Sensor{}, &model.Alert{}, &model.PushSubscription{}))
	return store.NewGormStore(db)
}

func makeJob(userID, sensorID int64) Job {
	return Job{
		Alert: model.Alert{
			ID:        1,
			SensorID:  sensorID,
			UserID:    userID,
			Metric:    model.AlertMetricCO2,
			Severity:  model.AlertSeverityCritical,
			Value:     1300,
			Threshold: 1200,
			Message:   "CO2 level 1300 ppm exceeds threshold 1200 ppm",
			CreatedAt: time.Now(),
		},
		Sensor: model.Sensor{ID: sensorID, UserID: userID, Name: "Open Space Dev"},
	}
}

func TestWorkerPoolDispatch(t *testing.T) {
	// A pool that is never started just queues; backed by a mock DB because
	// no queries run.
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{})
	require.NoError(t, err)

	wp := NewWorkerPool(testConfig(), store.NewGormStore(gormDB), zap.NewNop())
	wp.Dispatch(makeJob(1, 2))

	select {
	case job := <-wp.Jobs():
		assert.Equal(t, int64(2), job.Sensor.ID)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for job to be dispatched")
	}
}

func TestDeliverSendsEmailToOwner(t *testing.T) {
	st := newSqliteStore(t)
	user := &model.User{Email: "alice@example.com", PasswordHash: "x"}
	require.NoError(t, st.CreateUser(context.Background(), user))

	wp := NewWorkerPool(testConfig(), st, zap.NewNop())
	email := &fakeEmailSender{}
	wp.SetSenders(email, &fakePushSender{status: http.StatusCreated})

	wp.deliver(context.Background(), makeJob(user.ID, 2))

	require.Equal(t, 1, email.count())
	assert.Contains(t, email.sent[0], "High CO2")
	assert.Contains(t, email.sent[0], "Open Space Dev")
}

func TestCooldownSuppressesRepeatSends(t *testing.T) {
	st := newSqliteStore(t)
	user := &model.User{Email: "alice@example.com", PasswordHash: "x"}
	require.NoError(t, st.CreateUser(context.Background(), user))

	wp := NewWorkerPool(testConfig(), st, zap.NewNop())
	email := &fakeEmailSender{}
	wp.SetSenders(email, &fakePushSender{status: http.StatusCreated})

	job := makeJob(user.ID, 2)
	wp.deliver(context.Background(), job)
	wp.deliver(context.Background(), job)
	assert.Equal(t, 1, email.count(), "second send within the interval is suppressed")

	// A different metric on the same sensor is its own cooldown key.
	other := job
	other.Alert.Metric = model.AlertMetricHumidity
	wp.deliver(context.Background(), other)
	assert.Equal(t, 2, email.count())
}

func TestExpiredPushSubscriptionIsRemoved(t *testing.T) {
	st := newSqliteStore(t)
	ctx := context.Background()

	user := &model.User{Email: "alice@example.com", PasswordHash: "x"}
	require.NoError(t, st.CreateUser(ctx, user))
	require.NoError(t, st.UpsertSubscription(ctx, &model.PushSubscription{
		Endpoint: "https://push.example.com/gone",
		P256DH:   "p",
		Auth:     "a",
		UserID:   user.ID,
	}))

	wp := NewWorkerPool(testConfig(), st, zap.NewNop())
	push := &fakePushSender{status: http.StatusGone}
	wp.SetSenders(&fakeEmailSender{}, push)

	wp.deliver(ctx, makeJob(user.ID, 2))

	assert.Equal(t, 1, push.calls)
	_, err := st.GetSubscription(ctx, "https://push.example.com/gone")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestSaturatedQueueDropsJobs(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{})
	require.NoError(t, err)

	cfg := testConfig()
	cfg.WorkerPool.Size = 1 // queue capacity 4
	wp := NewWorkerPool(cfg, store.NewGormStore(gormDB), zap.NewNop())

	for i := 0; i < 10; i++ {
		wp.Dispatch(makeJob(1, int64(i)))
	}
	assert.Len(t, wp.Jobs(), 4, "overflow is dropped, not blocked on")
}

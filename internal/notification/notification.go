package notification

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"aerium-backend/config"
	"aerium-backend/internal/model"
	"aerium-backend/internal/store"
)

// EmailSender sends a single alert email.
type EmailSender interface {
	Send(to, subject, textBody, htmlBody string) error
}

// PushSender sends a single web push notification.
type PushSender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// GomailSender is the real EmailSender backed by an SMTP dialer.
type GomailSender struct {
	dialer *gomail.Dialer
	from   string
}

// NewGomailSender builds an SMTP sender from the mail configuration.
func NewGomailSender(cfg *config.MailConfig) *GomailSender {
	return &GomailSender{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

func (s *GomailSender) Send(to, subject, textBody, htmlBody string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", s.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", textBody)
	if htmlBody != "" {
		msg.AddAlternative("text/html", htmlBody)
	}
	return s.dialer.DialAndSend(msg)
}

// WebPushSender is the real PushSender using the webpush library.
type WebPushSender struct{}

func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// Job carries one triggered alert through the pool.
type Job struct {
	Alert  model.Alert
	Sensor model.Sensor
}

// WorkerPool dispatches alert notifications over email and web push.
// Delivery is best effort: failures are logged and dropped, never retried.
type WorkerPool struct {
	size    int
	jobs    chan Job
	store   store.Store
	mailCfg *config.MailConfig
	webpush *webpush.Options
	email   EmailSender
	push    PushSender
	logger  *zap.Logger

	// cooldown suppresses repeat sends per sensor+metric for the configured
	// interval. Alert rows are still written for every violation; only the
	// outbound notifications are throttled.
	cooldown time.Duration
	mu       sync.Mutex
	lastSent map[string]time.Time
}

// NewWorkerPool creates a notification pool. Pass a nil webpush options to
// disable the push channel.
func NewWorkerPool(cfg *config.Config, st store.Store, logger *zap.Logger) *WorkerPool {
	size := cfg.WorkerPool.Size
	wp := &WorkerPool{
		size:     size,
		jobs:     make(chan Job, size*4),
		store:    st,
		mailCfg:  &cfg.Mail,
		logger:   logger,
		cooldown: cfg.Thresholds.SendInterval,
		lastSent: make(map[string]time.Time),
		push:     &WebPushSender{},
	}
	if cfg.Mail.Enabled {
		wp.email = NewGomailSender(&cfg.Mail)
	}
	if cfg.Push.PublicKey != "" && cfg.Push.PrivateKey != "" {
		wp.webpush = &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}
	}
	return wp
}

// SetSenders replaces the delivery backends, for tests.
func (wp *WorkerPool) SetSenders(email EmailSender, push PushSender) {
	wp.email = email
	wp.push = push
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	wp.logger.Debug("notification worker started", zap.Int("worker", id))
	for {
		select {
		case job := <-wp.jobs:
			wp.deliver(ctx, job)
		case <-ctx.Done():
			wp.logger.Debug("notification worker shutting down", zap.Int("worker", id))
			return
		}
	}
}

// Dispatch enqueues a job, dropping it if the pool is saturated.
func (wp *WorkerPool) Dispatch(job Job) {
	select {
	case wp.jobs <- job:
	default:
		wp.logger.Warn("notification queue full, dropping alert",
			zap.Int64("alert_id", job.Alert.ID),
			zap.Int64("sensor_id", job.Sensor.ID))
	}
}

// Jobs returns the jobs channel for testing.
func (wp *WorkerPool) Jobs() chan Job {
	return wp.jobs
}

func (wp *WorkerPool) deliver(ctx context.Context, job Job) {
	if !wp.shouldSend(job.Sensor.ID, job.Alert.Metric) {
		wp.logger.Debug("alert within send interval, suppressing notification",
			zap.Int64("sensor_id", job.Sensor.ID),
			zap.String("metric", job.Alert.Metric))
		return
	}

	user, err := wp.store.GetUserByID(ctx, job.Alert.UserID)
	if err != nil {
		wp.logger.Error("failed to load alert recipient",
			zap.Int64("user_id", job.Alert.UserID), zap.Error(err))
		return
	}

	wp.sendEmail(user, job)
	wp.sendPush(ctx, user.ID, job)
}

// shouldSend records the send attempt and reports whether the cooldown for
// this sensor+metric has elapsed.
func (wp *WorkerPool) shouldSend(sensorID int64, metric string) bool {
	key := fmt.Sprintf("%d/%s", sensorID, metric)
	now := time.Now()

	wp.mu.Lock()
	defer wp.mu.Unlock()
	if last, ok := wp.lastSent[key]; ok && now.Sub(last) < wp.cooldown {
		return false
	}
	wp.lastSent[key] = now
	return true
}

func (wp *WorkerPool) sendEmail(user *model.User, job Job) {
	if wp.email == nil || user.Email == "" {
		return
	}

	subject := fmt.Sprintf("Aerium Alert: %s on %s", alertLabel(job.Alert.Metric), job.Sensor.Name)
	text := fmt.Sprintf(
		"Hello,\n\nAn alert has been triggered on your sensor: %s\n\n"+
			"Alert Type: %s\nCurrent Value: %.1f\nThreshold: %.1f\nTimestamp: %s\n\n"+
			"Please check the Aerium dashboard for more details.\n",
		job.Sensor.Name,
		alertLabel(job.Alert.Metric),
		job.Alert.Value,
		job.Alert.Threshold,
		job.Alert.CreatedAt.Format("2006-01-02 15:04:05"),
	)
	html := fmt.Sprintf(
		"<html><body><h2>Aerium Alert</h2>"+
			"<p>An alert has been triggered on your sensor: <strong>%s</strong></p>"+
			"<table><tr><td><strong>Alert Type</strong></td><td>%s</td></tr>"+
			"<tr><td><strong>Current Value</strong></td><td>%.1f</td></tr>"+
			"<tr><td><strong>Threshold</strong></td><td>%.1f</td></tr></table>"+
			"</body></html>",
		job.Sensor.Name, alertLabel(job.Alert.Metric), job.Alert.Value, job.Alert.Threshold,
	)

	if err := wp.email.Send(user.Email, subject, text, html); err != nil {
		wp.logger.Error("failed to send alert email",
			zap.String("to", user.Email),
			zap.Int64("alert_id", job.Alert.ID),
			zap.Error(err))
		return
	}
	wp.logger.Info("alert email sent",
		zap.String("to", user.Email),
		zap.Int64("sensor_id", job.Sensor.ID),
		zap.String("metric", job.Alert.Metric))
}

func (wp *WorkerPool) sendPush(ctx context.Context, userID int64, job Job) {
	if wp.webpush == nil {
		return
	}

	subs, err := wp.store.ListSubscriptionsForUser(ctx, userID)
	if err != nil {
		wp.logger.Error("failed to load push subscriptions",
			zap.Int64("user_id", userID), zap.Error(err))
		return
	}

	payload := []byte(job.Alert.Message)
	for _, sub := range subs {
		wpSub := &webpush.Subscription{
			Endpoint: sub.Endpoint,
			Keys: webpush.Keys{
				P256dh: sub.P256DH,
				Auth:   sub.Auth,
			},
		}
		resp, err := wp.push.Send(payload, wpSub, wp.webpush)
		if err != nil {
			wp.logger.Error("failed to send push notification",
				zap.String("endpoint", sub.Endpoint), zap.Error(err))
			continue
		}
		resp.Body.Close()

		// Expired subscription, remove it.
		if resp.StatusCode == http.StatusGone {
			if err := wp.store.DeleteSubscription(ctx, sub.Endpoint); err != nil {
				wp.logger.Error("failed to delete expired subscription",
					zap.String("endpoint", sub.Endpoint), zap.Error(err))
			}
		}
	}
}

func alertLabel(metric string) string {
	switch metric {
	case model.AlertMetricCO2:
		return "High CO2"
	case model.AlertMetricTemperature:
		return "Temperature Alert"
	case model.AlertMetricHumidity:
		return "High Humidity"
	}
	return metric
}

package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"aerium-backend/internal/mw"
	"aerium-backend/internal/ws"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(h *Handler, wsServer *ws.Server, logger *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	cfg := h.cfg

	// Initialize middleware
	rateLimiter := mw.RateLimiter(rate.Limit(cfg.Server.RateLimitPerSec), cfg.Server.RateLimitBurst)

	cacheTTL := time.Duration(cfg.Server.CacheTTLSeconds) * time.Second
	cacheStore := cache.New(cacheTTL, 2*cacheTTL)
	caching := mw.Cache(cacheStore, cacheTTL)

	authed := mw.RequireAuth(h.tokens, h.store)
	audit := mw.Audit(h.store, logger)

	// API group
	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		api.GET("/health", h.Health)
		api.GET("/docs", h.Docs)

		auth := api.Group("/auth")
		{
			auth.POST("/register", h.Register)
			auth.POST("/login", h.Login)
			auth.POST("/refresh", h.Refresh)
			auth.GET("/me", authed, h.Me)
			auth.POST("/logout", authed, h.Logout)
		}

		sensors := api.Group("/sensors", authed, audit)
		{
			sensors.GET("", h.ListSensors)
			sensors.POST("", h.CreateSensor)
			sensors.GET("/:id", h.GetSensor)
			sensors.PUT("/:id", h.UpdateSensor)
			sensors.DELETE("/:id", h.DeleteSensor)
		}

		readings := api.Group("/readings")
		{
			readings.GET("/sensor/:id", authed, h.GetSensorReadings)
			readings.GET("/latest/:id", authed, h.GetLatestReading)
			readings.GET("/aggregate", authed, caching, h.AggregateReadings)
			readings.POST("", authed, audit, h.IngestReading)
			// Hardware sensors authenticate with their API key.
			readings.POST("/external/:api_key", h.ExternalIngest)
		}

		alerts := api.Group("/alerts", authed, audit)
		{
			alerts.GET("", h.ListAlerts)
			alerts.PUT("/:id", h.UpdateAlert)
			alerts.DELETE("/:id", h.DeleteAlert)
			alerts.GET("/history/list", h.ListAlertHistory)
			alerts.PUT("/history/acknowledge/:id", h.AcknowledgeAlert)
			alerts.PUT("/history/resolve/:id", h.ResolveAlert)
			alerts.GET("/history/stats", h.AlertStats)
		}

		users := api.Group("/users", authed, audit)
		{
			users.GET("/profile", h.GetProfile)
			users.PUT("/profile", h.UpdateProfile)
			users.POST("/change-password", h.ChangePassword)
			users.GET("", mw.RequireAdmin(), h.ListUsers)
		}

		reports := api.Group("/reports", authed)
		{
			reports.GET("/export/csv", h.ExportCSV)
			reports.GET("/export/pdf", h.ExportPDF)
			reports.GET("/stats", h.ReportStats)
		}

		analytics := api.Group("/analytics", authed, caching)
		{
			analytics.GET("/predict/:hours", h.Predict)
			analytics.GET("/anomalies", h.Anomalies)
			analytics.GET("/insights", h.Insights)
		}

		api.GET("/visualization/correlation", authed, caching, h.Correlation)

		api.GET("/subscriptions", authed, h.GetSubscription)
		api.PUT("/subscriptions", authed, h.PutSubscription)
		api.DELETE("/subscriptions", authed, h.DeleteSubscription)
		api.GET("/vapid_public_key", h.GetVAPIDPublicKey)
	}

	// WebSocket endpoint authenticates via token query param inside the
	// handler, before the upgrade.
	r.GET("/ws", gin.WrapF(wsServer.HandleWS))

	return r
}

// Health reports service liveness.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":     "ok",
		"ws_clients": h.hub.ClientCount(),
	})
}

// Docs returns a machine-readable index of the API surface.
func (h *Handler) Docs(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"name": "Aerium API",
		"endpoints": []string{
			"POST /api/auth/register",
			"POST /api/auth/login",
			"POST /api/auth/refresh",
			"GET /api/auth/me",
			"GET /api/sensors",
			"POST /api/sensors",
			"GET /api/readings/sensor/:id",
			"POST /api/readings",
			"POST /api/readings/external/:api_key",
			"GET /api/alerts",
			"GET /api/alerts/history/list",
			"GET /api/alerts/history/stats",
			"GET /api/users/profile",
			"GET /api/reports/export/csv",
			"GET /api/reports/export/pdf",
			"GET /api/analytics/predict/:hours",
			"GET /api/analytics/anomalies",
			"GET /api/analytics/insights",
			"GET /api/visualization/correlation",
			"GET /ws",
		},
	})
}

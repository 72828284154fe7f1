package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"aerium-backend/config"
	"aerium-backend/internal/auth"
	"aerium-backend/internal/ingest"
	"aerium-backend/internal/model"
	"aerium-backend/internal/mw"
	"aerium-backend/internal/sim"
	"aerium-backend/internal/store"
	"aerium-backend/internal/ws"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store     store.Store
	cfg       *config.Config
	tokens    *auth.Manager
	pipeline  *ingest.Pipeline
	simulator *sim.Simulator
	hub       *ws.Hub
	logger    *zap.Logger
}

// NewHandler creates a new API handler.
func NewHandler(s store.Store, cfg *config.Config, tokens *auth.Manager, pipeline *ingest.Pipeline, simulator *sim.Simulator, hub *ws.Hub, logger *zap.Logger) *Handler {
	return &Handler{
		store:     s,
		cfg:       cfg,
		tokens:    tokens,
		pipeline:  pipeline,
		simulator: simulator,
		hub:       hub,
		logger:    logger,
	}
}

// currentUser returns the authenticated user. The auth middleware guarantees
// it is present on protected routes.
func (h *Handler) currentUser(c *gin.Context) *model.User {
	return mw.CurrentUser(c)
}

// pathID parses the named path parameter as an int64 ID.
func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

// queryInt parses an integer query parameter, falling back to def when absent
// or malformed.
func queryInt(c *gin.Context, name string, def int) int {
	raw := c.Query(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

// ownedSensor loads the sensor and enforces ownership. Admins may access any
// sensor. Writes the error response itself and returns false on failure.
func (h *Handler) ownedSensor(c *gin.Context, id int64) (*model.Sensor, bool) {
	sensor, err := h.store.GetSensor(c.Request.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "sensor not found"})
		return nil, false
	}
	if err != nil {
		h.serverError(c, err)
		return nil, false
	}
	user := h.currentUser(c)
	if !user.IsAdmin() && sensor.UserID != user.ID {
		c.JSON(http.StatusForbidden, gin.H{"error": "not your sensor"})
		return nil, false
	}
	return sensor, true
}

func (h *Handler) serverError(c *gin.Context, err error) {
	h.logger.Error("request failed",
		zap.String("path", c.FullPath()),
		zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}

package handler

import (
	"net/http"
	"sync/atomic"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/weiawesome/wes-io-live/turn-service/internal/room"
	"github.com/weiawesome/wes-io-live/turn-service/pkg/log"
	"github.com/weiawesome/wes-io-live/turn-service/pkg/response"
)

// Handler serves the read-only HTTP API.
type Handler struct {
	registry *room.Registry
	metrics  http.Handler
	draining atomic.Bool
}

// NewHandler creates a new HTTP handler. A nil metrics handler leaves
// /metrics unrouted.
func NewHandler(registry *room.Registry, metrics http.Handler) *Handler {
	return &Handler{
		registry: registry,
		metrics:  metrics,
	}
}

// NewRouter builds the gin engine with every route of both handlers.
func NewRouter(logger zerolog.Logger, h *Handler, ws *WSHandler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), log.GinMiddleware(logger, "/health", "/metrics"))
	h.RegisterRoutes(r)
	if ws != nil {
		ws.RegisterRoutes(r)
	}
	return r
}

// RegisterRoutes registers all routes.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.Health)
	if h.metrics != nil {
		r.GET("/metrics", gin.WrapH(h.metrics))
	}

	api := r.Group("/api/v1")
	{
		api.GET("/rooms/:id", h.GetRoom)
		api.GET("/stats", h.GetStats)
	}
}

// SetDraining makes /health report unavailable so load balancers stop
// sending new connections during shutdown.
func (h *Handler) SetDraining(draining bool) {
	h.draining.Store(draining)
}

func (h *Handler) Health(c *gin.Context) {
	if h.draining.Load() {
		response.Unavailable(c, "shutting down")
		return
	}
	response.Success(c, gin.H{"status": "ok"})
}

// GetRoom returns a snapshot of one live room.
func (h *Handler) GetRoom(c *gin.Context) {
	snap, ok := h.registry.Lookup(c.Param("id"))
	if !ok {
		response.NotFound(c, "room not found")
		return
	}
	response.Success(c, snap)
}

// GetStats returns counts across all rooms.
func (h *Handler) GetStats(c *gin.Context) {
	response.Success(c, h.registry.Stats())
}

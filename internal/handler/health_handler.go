package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/location-tracker/internal/tracker"
)

// HealthHandler reports service liveness
type HealthHandler struct {
	tracker  *tracker.Tracker
	provider string
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(t *tracker.Tracker, providerKind string) *HealthHandler {
	return &HealthHandler{tracker: t, provider: providerKind}
}

// Health handles GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"message":  "Location tracker is running",
		"provider": h.provider,
		"tracking": h.tracker.State().IsTracking,
	})
}

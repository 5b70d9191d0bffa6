package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/location-tracker/internal/models"
	"github.com/jengzang/location-tracker/internal/notification"
	"github.com/jengzang/location-tracker/internal/tracker"
	"github.com/jengzang/location-tracker/pkg/response"
)

// TrackerHandler handles HTTP requests for the location tracker
type TrackerHandler struct {
	tracker  *tracker.Tracker
	center   *notification.Center
	defaults models.TrackingConfig
}

// NewTrackerHandler creates a new tracker handler. defaults is used by Start when no body is sent.
func NewTrackerHandler(t *tracker.Tracker, center *notification.Center, defaults models.TrackingConfig) *TrackerHandler {
	return &TrackerHandler{
		tracker:  t,
		center:   center,
		defaults: defaults,
	}
}

// GetState handles GET /api/v1/tracker
func (h *TrackerHandler) GetState(c *gin.Context) {
	response.Success(c, h.tracker.State())
}

// GetHistory handles GET /api/v1/tracker/history
func (h *TrackerHandler) GetHistory(c *gin.Context) {
	history := h.tracker.State().History
	response.Success(c, gin.H{
		"data":  history,
		"count": len(history),
	})
}

// Initialize handles POST /api/v1/tracker/initialize
func (h *TrackerHandler) Initialize(c *gin.Context) {
	if _, err := h.tracker.Initialize(c.Request.Context()); err != nil {
		h.trackerError(c, err)
		return
	}
	response.Success(c, h.tracker.State())
}

// Reinitialize handles POST /api/v1/tracker/reinitialize
func (h *TrackerHandler) Reinitialize(c *gin.Context) {
	if _, err := h.tracker.Reinitialize(c.Request.Context()); err != nil {
		h.trackerError(c, err)
		return
	}
	response.Success(c, h.tracker.State())
}

// Start handles POST /api/v1/tracker/start with an optional TrackingConfig body
func (h *TrackerHandler) Start(c *gin.Context) {
	cfg := h.defaults
	// An empty body, chunked or not, keeps the defaults
	if err := json.NewDecoder(c.Request.Body).Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		response.BadRequest(c, "Invalid tracking config")
		return
	}

	if err := h.tracker.Start(c.Request.Context(), cfg); err != nil {
		h.trackerError(c, err)
		return
	}
	response.Success(c, h.tracker.State())
}

// Stop handles POST /api/v1/tracker/stop
func (h *TrackerHandler) Stop(c *gin.Context) {
	if err := h.tracker.Stop(c.Request.Context()); err != nil {
		h.trackerError(c, err)
		return
	}
	response.Success(c, h.tracker.State())
}

// Stream handles GET /api/v1/tracker/stream, pushing state snapshots and notifications
func (h *TrackerHandler) Stream(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	client := newWSClient(conn)
	unwatch := h.tracker.Watch(func(state models.TrackerState) {
		client.enqueue(WSMessage{Type: "state", Payload: state})
	})
	client.enqueue(WSMessage{Type: "state", Payload: h.tracker.State()})
	unsubscribe := func() {}
	if h.center != nil {
		unsubscribe = h.center.Subscribe(func(n notification.Notification) {
			client.enqueue(WSMessage{Type: "notification", Payload: n})
		})
	}

	log.Printf("Tracker stream connected: %s", conn.RemoteAddr())
	go client.writeLoop()

	// Reads only detect disconnects
	client.prepareRead()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	unwatch()
	unsubscribe()
	client.close()
	log.Printf("Tracker stream disconnected: %s", conn.RemoteAddr())
}

// trackerError maps tracker errors to HTTP statuses, attaching the current state
func (h *TrackerHandler) trackerError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, tracker.ErrPermissionDenied):
		status = http.StatusForbidden
	case errors.Is(err, tracker.ErrNoCurrentLocation):
		status = http.StatusConflict
	case errors.Is(err, tracker.ErrTrackingStartFailed), errors.Is(err, tracker.ErrTrackingStopFailed):
		status = http.StatusBadGateway
	case errors.Is(err, tracker.ErrLocationUnavailable):
		status = http.StatusServiceUnavailable
	case errors.Is(err, tracker.ErrClosed):
		status = http.StatusServiceUnavailable
	}
	response.ErrorWithData(c, status, err.Error(), h.tracker.State())
}

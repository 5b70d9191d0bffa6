package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/location-tracker/internal/notification"
	"github.com/jengzang/location-tracker/pkg/response"
)

// TestNotificationDelay is how long the test notification waits before delivery
const TestNotificationDelay = 2 * time.Second

// NotificationHandler handles device registration and test notifications
type NotificationHandler struct {
	center    *notification.Center
	testDelay time.Duration
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(center *notification.Center, testDelay time.Duration) *NotificationHandler {
	return &NotificationHandler{
		center:    center,
		testDelay: testDelay,
	}
}

// RegisterRequest identifies the device asking for a push token
type RegisterRequest struct {
	DeviceID string `json:"deviceId" binding:"required"`
}

// Register handles POST /api/v1/notifications/register
func (h *NotificationHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "deviceId is required")
		return
	}

	token, err := h.center.Register(req.DeviceID)
	if err != nil {
		h.centerError(c, err)
		return
	}
	response.Success(c, gin.H{
		"token":    token,
		"settings": h.center.Settings(),
	})
}

// SendTest handles POST /api/v1/notifications/test
func (h *NotificationHandler) SendTest(c *gin.Context) {
	id, err := h.center.Schedule(notification.TestContent(), h.testDelay)
	if err != nil {
		h.centerError(c, err)
		return
	}
	response.Accepted(c, gin.H{
		"id":      id,
		"delayMs": h.testDelay.Milliseconds(),
	})
}

func (h *NotificationHandler) centerError(c *gin.Context, err error) {
	if errors.Is(err, notification.ErrClosed) {
		response.Error(c, http.StatusServiceUnavailable, err.Error())
		return
	}
	response.BadRequest(c, err.Error())
}

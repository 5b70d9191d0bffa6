package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/location-tracker/internal/models"
	"github.com/jengzang/location-tracker/internal/service"
	"github.com/jengzang/location-tracker/pkg/response"
)

// TrackHandler handles HTTP requests for recorded track points
type TrackHandler struct {
	trackService *service.TrackService
}

// NewTrackHandler creates a new track handler
func NewTrackHandler(trackService *service.TrackService) *TrackHandler {
	return &TrackHandler{
		trackService: trackService,
	}
}

// GetTrackPoints handles GET /api/v1/tracks
func (h *TrackHandler) GetTrackPoints(c *gin.Context) {
	var filter models.TrackPointFilter

	// Parse query parameters
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.BadRequest(c, "Invalid query parameters")
		return
	}

	result, err := h.trackService.GetTrackPoints(c.Request.Context(), filter)
	if errors.Is(err, service.ErrInvalidFilter) {
		response.BadRequest(c, err.Error())
		return
	}
	if err != nil {
		response.InternalError(c, err.Error())
		return
	}

	response.Success(c, result)
}

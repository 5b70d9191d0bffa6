package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/location-tracker/internal/models"
	"github.com/jengzang/location-tracker/internal/provider"
	"github.com/jengzang/location-tracker/pkg/response"
)

// TrackRecorder stores pushed samples for later replay
type TrackRecorder interface {
	Record(ctx context.Context, samples []models.LocationSample) error
}

// ProviderHandler accepts device input for the push provider
type ProviderHandler struct {
	push     *provider.Push
	recorder TrackRecorder
}

// NewProviderHandler creates a new provider handler. recorder may be nil.
func NewProviderHandler(push *provider.Push, recorder TrackRecorder) *ProviderHandler {
	return &ProviderHandler{push: push, recorder: recorder}
}

// PermissionRequest is the permission state reported by the device
type PermissionRequest struct {
	Foreground provider.PermissionStatus `json:"foreground" binding:"required,oneof=granted denied undetermined"`
	Background provider.PermissionStatus `json:"background" binding:"required,oneof=granted denied undetermined"`
}

// devicePayload is what a device sends on the stream: a sample or a failure reason
type devicePayload struct {
	Type   string                `json:"type"`
	Sample models.LocationSample `json:"payload"`
	Reason string                `json:"reason,omitempty"`
}

// PostSamples handles POST /api/v1/provider/samples. The body is one sample or an array.
func (h *ProviderHandler) PostSamples(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		response.BadRequest(c, "Failed to read body")
		return
	}

	samples, err := decodeSamples(body)
	if err != nil {
		response.BadRequest(c, "Invalid sample payload")
		return
	}

	for i, s := range samples {
		if err := s.Validate(); err != nil {
			response.BadRequest(c, "Sample "+strconv.Itoa(i)+": "+err.Error())
			return
		}
	}

	emitted := 0
	for _, s := range samples {
		n, err := h.push.Deliver(s)
		if err != nil {
			response.InternalError(c, err.Error())
			return
		}
		emitted += n
	}
	h.record(c.Request.Context(), samples...)

	response.Success(c, gin.H{
		"accepted": len(samples),
		"emitted":  emitted,
	})
}

// SetPermission handles POST /api/v1/provider/permission
func (h *ProviderHandler) SetPermission(c *gin.Context) {
	var req PermissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid permission payload")
		return
	}

	h.push.SetPermissions(req.Foreground, req.Background)
	response.Success(c, req)
}

// Stream handles GET /api/v1/provider/stream, a device feed of samples and failures
func (h *ProviderHandler) Stream(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	client := newWSClient(conn)
	go client.writeLoop()
	client.prepareRead()
	log.Printf("Device stream connected: %s", conn.RemoteAddr())

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		var msg devicePayload
		if err := json.Unmarshal(data, &msg); err != nil {
			client.enqueue(WSMessage{Type: "error", Payload: "invalid message"})
			continue
		}

		switch msg.Type {
		case "sample":
			n, err := h.push.Deliver(msg.Sample)
			if err != nil {
				client.enqueue(WSMessage{Type: "error", Payload: err.Error()})
				continue
			}
			h.record(c.Request.Context(), msg.Sample)
			client.enqueue(WSMessage{Type: "ack", Payload: gin.H{"emitted": n}})
		case "error":
			h.push.Fail(msg.Reason)
			client.enqueue(WSMessage{Type: "ack"})
		default:
			client.enqueue(WSMessage{Type: "error", Payload: "unknown message type: " + msg.Type})
		}
	}

	client.close()
	log.Printf("Device stream disconnected: %s", conn.RemoteAddr())
}

// record stores samples; failures are logged and do not affect delivery
func (h *ProviderHandler) record(ctx context.Context, samples ...models.LocationSample) {
	if h.recorder == nil {
		return
	}
	if err := h.recorder.Record(ctx, samples); err != nil {
		log.Printf("Failed to record pushed samples: %v", err)
	}
}

func decodeSamples(body []byte) ([]models.LocationSample, error) {
	body = bytes.TrimSpace(body)
	if len(body) > 0 && body[0] == '[' {
		var samples []models.LocationSample
		if err := json.Unmarshal(body, &samples); err != nil {
			return nil, err
		}
		return samples, nil
	}

	var s models.LocationSample
	if err := json.Unmarshal(body, &s); err != nil {
		return nil, err
	}
	return []models.LocationSample{s}, nil
}

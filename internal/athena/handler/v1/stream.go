package v1

import (
	"net/http"
	"time"

	"github.com/gin-contrib/sse"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/kiosk404/athena/internal/athena/service/plugin"
	"github.com/kiosk404/athena/pkg/logger"
	"github.com/kiosk404/athena/pkg/utils/json"
)

const (
	streamBuffer    = 128
	streamKeepAlive = 15 * time.Second
)

// StreamHandler relays the private event bus as server-sent events.
type StreamHandler struct {
	registry  *plugin.Registry
	keepAlive time.Duration
}

// NewStreamHandler creates a new StreamHandler.
func NewStreamHandler(registry *plugin.Registry) *StreamHandler {
	return &StreamHandler{registry: registry, keepAlive: streamKeepAlive}
}

// Stream handles GET /v1/stream. Frames are dropped for a client that cannot
// keep up.
func (h *StreamHandler) Stream(c *gin.Context) {
	frames := make(chan StreamFrame, streamBuffer)
	unsubscribe := h.registry.SubscribePrivate(func(name string, data interface{}) {
		select {
		case frames <- StreamFrame{Name: name, Data: data}:
		default:
			logger.Debug("[Admin] stream client too slow, dropping %s", name)
		}
	})
	defer unsubscribe()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	w := c.Writer
	w.Flush()

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := w.WriteString(": keep-alive\n\n"); err != nil {
				return
			}
			w.Flush()
		case f := <-frames:
			data, err := json.MarshalString(f)
			if err != nil {
				logger.Warn("[Admin] encode stream frame %s: %v", f.Name, err)
				continue
			}
			if err := sse.Encode(w, sse.Event{Id: uuid.NewString(), Event: f.Name, Data: data}); err != nil {
				return
			}
			w.Flush()
		}
	}
}

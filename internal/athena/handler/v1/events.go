package v1

import (
	"github.com/gin-gonic/gin"
	"github.com/kiosk404/athena/internal/athena/service/plugin"
	"github.com/kiosk404/athena/internal/pkg/core"
	"github.com/kiosk404/athena/pkg/errorx"
)

// EventHandler lists and emits registered events.
type EventHandler struct {
	registry *plugin.Registry
}

// NewEventHandler creates a new EventHandler.
func NewEventHandler(registry *plugin.Registry) *EventHandler {
	return &EventHandler{registry: registry}
}

// List handles GET /v1/events.
func (h *EventHandler) List(c *gin.Context) {
	core.WriteResponse(c, nil, gin.H{"data": h.registry.Catalog().Events})
}

// Emit handles POST /v1/events/emit.
func (h *EventHandler) Emit(c *gin.Context) {
	var req EmitEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		core.WriteResponse(c, errorx.WrapC(err, ErrBind, "bind emit request"), nil)
		return
	}
	if req.Args == nil {
		req.Args = map[string]interface{}{}
	}

	if err := h.registry.EmitEvent(req.Name, req.Args); err != nil {
		core.WriteResponse(c, errorx.WrapC(err, eventCode(err), "emit event %q", req.Name), nil)
		return
	}

	core.WriteResponse(c, nil, StatusResponse{Status: "success"})
}

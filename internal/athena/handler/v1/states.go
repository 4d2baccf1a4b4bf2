package v1

import (
	"github.com/gin-gonic/gin"
	"github.com/kiosk404/athena/internal/athena/service/plugin"
	"github.com/kiosk404/athena/internal/pkg/core"
)

// StateHandler exposes the plugin state table.
type StateHandler struct {
	registry *plugin.Registry
}

// NewStateHandler creates a new StateHandler.
func NewStateHandler(registry *plugin.Registry) *StateHandler {
	return &StateHandler{registry: registry}
}

// List handles GET /v1/states. Loaded plugins are asked for a fresh state
// first.
func (h *StateHandler) List(c *gin.Context) {
	h.registry.GatherStates()
	core.WriteResponse(c, nil, StatesResponse{Data: h.registry.States()})
}

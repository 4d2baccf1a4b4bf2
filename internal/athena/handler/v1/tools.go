package v1

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/kiosk404/athena/internal/athena/service/plugin"
	"github.com/kiosk404/athena/internal/pkg/core"
	"github.com/kiosk404/athena/pkg/errorx"
)

// ToolHandler lists and invokes registered tools.
type ToolHandler struct {
	registry *plugin.Registry
}

// NewToolHandler creates a new ToolHandler.
func NewToolHandler(registry *plugin.Registry) *ToolHandler {
	return &ToolHandler{registry: registry}
}

// List handles GET /v1/tools.
func (h *ToolHandler) List(c *gin.Context) {
	core.WriteResponse(c, nil, gin.H{"data": h.registry.Catalog().Tools})
}

// Call handles POST /v1/tools/call.
func (h *ToolHandler) Call(c *gin.Context) {
	var req CallToolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		core.WriteResponse(c, errorx.WrapC(err, ErrBind, "bind tool call request"), nil)
		return
	}

	result, err := h.registry.CallTool(c.Request.Context(), req.Name, req.Args)
	if err != nil {
		core.WriteResponse(c, errorx.WrapC(err, toolCode(err), "call tool %q", req.Name), nil)
		return
	}

	core.WriteResponse(c, nil, CallToolResponse{
		ID:     uuid.NewString(),
		Name:   req.Name,
		Result: result,
	})
}

package v1

import (
	"github.com/gin-gonic/gin"
	"github.com/kiosk404/athena/internal/athena/service/plugin"
	"github.com/kiosk404/athena/internal/pkg/core"
	"github.com/kiosk404/athena/pkg/errorx"
	"github.com/kiosk404/athena/pkg/logger"
)

// PluginHandler handles the plugin lifecycle endpoints.
type PluginHandler struct {
	registry *plugin.Registry
}

// NewPluginHandler creates a new PluginHandler.
func NewPluginHandler(registry *plugin.Registry) *PluginHandler {
	return &PluginHandler{registry: registry}
}

// List handles GET /v1/plugins.
func (h *PluginHandler) List(c *gin.Context) {
	infos := h.registry.Plugins()
	resp := make([]PluginResponse, 0, len(infos))
	for _, info := range infos {
		item := PluginResponse{PluginInfo: info, Loaded: info.Phase == plugin.PhaseLoaded}
		if cfg, ok := h.registry.PluginConfig(info.Name); ok {
			item.Config = cfg
		}
		resp = append(resp, item)
	}
	core.WriteResponse(c, nil, gin.H{"data": resp})
}

// Load handles POST /v1/plugins/:name/load. The optional JSON body is the
// plugin configuration. A loaded plugin is reloaded with it.
func (h *PluginHandler) Load(c *gin.Context) {
	name := c.Param("name")
	cfg := plugin.Config{}
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&cfg); err != nil {
			core.WriteResponse(c, errorx.WrapC(err, ErrBind, "bind plugin config"), nil)
			return
		}
	}

	ctx := c.Request.Context()
	if h.registry.IsLoaded(name) {
		if err := h.registry.UnloadPlugin(ctx, name); err != nil {
			logger.Warn("[Admin] unload %q before reload: %v", name, err)
		}
	}
	if err := h.registry.LoadPlugin(ctx, name, cfg); err != nil {
		core.WriteResponse(c, errorx.WrapC(err, pluginCode(err, ErrPluginLoad), "load plugin %q", name), nil)
		return
	}

	core.WriteResponse(c, nil, StatusResponse{Status: "success"})
}

// Unload handles POST /v1/plugins/:name/unload.
func (h *PluginHandler) Unload(c *gin.Context) {
	name := c.Param("name")
	if err := h.registry.UnloadPlugin(c.Request.Context(), name); err != nil {
		core.WriteResponse(c, errorx.WrapC(err, pluginCode(err, ErrPluginUnload), "unload plugin %q", name), nil)
		return
	}

	core.WriteResponse(c, nil, StatusResponse{Status: "success"})
}

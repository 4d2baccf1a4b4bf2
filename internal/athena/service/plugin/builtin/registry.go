// Package builtin collects the plugins compiled into the athena binary.
package builtin

import (
	"github.com/kiosk404/athena/internal/athena/service/plugin"
	"github.com/kiosk404/athena/internal/athena/service/plugin/builtin/athena"
	"github.com/kiosk404/athena/internal/athena/service/plugin/builtin/calculator"
	"github.com/kiosk404/athena/internal/athena/service/plugin/builtin/cerebrum"
	"github.com/kiosk404/athena/internal/athena/service/plugin/builtin/clock"
	"github.com/kiosk404/athena/internal/athena/service/plugin/builtin/discord"
	"github.com/kiosk404/athena/internal/athena/service/plugin/builtin/filesystem"
	"github.com/kiosk404/athena/internal/athena/service/plugin/builtin/llmchat"
	"github.com/kiosk404/athena/internal/athena/service/plugin/builtin/longtermmemory"
	"github.com/kiosk404/athena/internal/athena/service/plugin/builtin/mcp"
	"github.com/kiosk404/athena/internal/athena/service/plugin/builtin/shell"
	"github.com/kiosk404/athena/internal/athena/service/plugin/builtin/shorttermmemory"
	"github.com/kiosk404/athena/internal/athena/service/plugin/builtin/system"
	"github.com/kiosk404/athena/internal/athena/service/plugin/builtin/webui"
)

// NewInTreeRegistry returns a factory registry holding every built-in plugin.
func NewInTreeRegistry() *plugin.InTreeRegistry {
	r := plugin.NewInTreeRegistry()
	r.MustRegister(athena.PluginName, athena.New)
	r.MustRegister(calculator.PluginName, calculator.New)
	r.MustRegister(cerebrum.PluginName, cerebrum.New)
	r.MustRegister(clock.PluginName, clock.New)
	r.MustRegister(discord.PluginName, discord.New)
	r.MustRegister(filesystem.PluginName, filesystem.New)
	r.MustRegister(llmchat.PluginName, llmchat.New)
	r.MustRegister(longtermmemory.PluginName, longtermmemory.New)
	r.MustRegister(mcp.PluginName, mcp.New)
	r.MustRegister(shell.PluginName, shell.New)
	r.MustRegister(shorttermmemory.PluginName, shorttermmemory.New)
	r.MustRegister(system.PluginName, system.New)
	r.MustRegister(webui.PluginName, webui.New)
	return r
}

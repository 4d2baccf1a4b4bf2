// Package athena exposes the registry to the model so it can extend itself.
package athena

import (
	"context"
	"fmt"
	"strings"

	"github.com/kiosk404/athena/internal/athena/service/plugin"
	"github.com/kiosk404/athena/pkg/logger"
)

const PluginName = "athena"

type athenaPlugin struct {
	api   plugin.API
	tools []plugin.ToolDefinition
}

// New is the plugin factory. The plugin takes no configuration.
func New(plugin.Config) (plugin.Plugin, error) {
	return &athenaPlugin{}, nil
}

func (p *athenaPlugin) Describe() string {
	if p.api == nil {
		return ""
	}
	return "You are made up of plugins, and you can change which ones are running. " +
		"These plugins are built in: " + strings.Join(p.api.Available(), ", ") + ". " +
		`Use "athena/list-plugins" to see which are loaded, "athena/load-plugin" to load or reload one ` +
		`with new configuration, and "athena/unload-plugin" to stop one. The args you pass become the plugin's configuration.`
}

func (p *athenaPlugin) Load(_ context.Context, api plugin.API) error {
	p.api = api
	p.tools = []plugin.ToolDefinition{
		{
			Name:        "athena/load-plugin",
			Description: "Loads a plugin. A plugin that is already loaded is reloaded with the new arguments.",
			Args: plugin.Args{
				"name": plugin.String("The name of the plugin to load.", true),
				"args": plugin.Object("The configuration to pass to the plugin.", false, nil),
			},
			Retvals: plugin.Args{
				"status": plugin.String("The status of the operation.", true),
			},
			Handler: p.loadPlugin,
			ExplainArgs: func(args map[string]interface{}) *plugin.Explanation {
				return &plugin.Explanation{Summary: fmt.Sprintf("Loading plugin %s...", plugin.StringArg(args, "name"))}
			},
		},
		{
			Name:        "athena/unload-plugin",
			Description: "Unloads a plugin.",
			Args: plugin.Args{
				"name": plugin.String("The name of the plugin to unload.", true),
			},
			Retvals: plugin.Args{
				"status": plugin.String("The status of the operation.", true),
			},
			Handler: p.unloadPlugin,
			ExplainArgs: func(args map[string]interface{}) *plugin.Explanation {
				return &plugin.Explanation{Summary: fmt.Sprintf("Unloading plugin %s...", plugin.StringArg(args, "name"))}
			},
		},
		{
			Name:        "athena/list-plugins",
			Description: "Lists every built-in plugin and whether it is loaded.",
			Args:        plugin.Args{},
			Retvals: plugin.Args{
				"plugins": plugin.Array("The plugins.", true, plugin.Object("A plugin.", true, plugin.Args{
					"name":   plugin.String("The name of the plugin.", true),
					"loaded": plugin.Boolean("Whether the plugin is loaded.", true),
				})),
			},
			Handler: p.listPlugins,
		},
	}
	return plugin.RegisterAll(api, nil, p.tools)
}

func (p *athenaPlugin) Unload(_ context.Context, api plugin.API) error {
	return plugin.DeregisterAll(api, nil, p.tools)
}

func (p *athenaPlugin) loadPlugin(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	name := plugin.StringArg(args, "name")
	if name == PluginName {
		return nil, fmt.Errorf("plugin %q cannot reload itself", PluginName)
	}
	cfg := plugin.Config{}
	if m, ok := args["args"].(map[string]interface{}); ok {
		cfg = m
	}

	if p.api.IsLoaded(name) {
		if err := p.api.UnloadPlugin(ctx, name); err != nil {
			logger.WarnX(PluginName, "[Athena] unload %q before reload: %v", name, err)
		}
	}
	if err := p.api.LoadPlugin(ctx, name, cfg); err != nil {
		return nil, err
	}
	return plugin.Status("success"), nil
}

func (p *athenaPlugin) unloadPlugin(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	name := plugin.StringArg(args, "name")
	if name == PluginName {
		return nil, fmt.Errorf("plugin %q cannot unload itself", PluginName)
	}
	if err := p.api.UnloadPlugin(ctx, name); err != nil {
		return nil, err
	}
	return plugin.Status("success"), nil
}

func (p *athenaPlugin) listPlugins(context.Context, map[string]interface{}) (interface{}, error) {
	names := p.api.Available()
	out := make([]interface{}, 0, len(names))
	for _, name := range names {
		out = append(out, map[string]interface{}{"name": name, "loaded": p.api.IsLoaded(name)})
	}
	return map[string]interface{}{"plugins": out}, nil
}

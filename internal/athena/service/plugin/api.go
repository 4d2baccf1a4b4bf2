package plugin

import (
	"context"
)

// API is the handle given to a plugin's Load and Unload. It is bound to one
// plugin: tools and events registered through it are owned by that plugin,
// and so are its bus subscriptions.
type API interface {
	// Name returns the name of the plugin holding this handle.
	Name() string

	RegisterTool(tool ToolDefinition) error
	DeregisterTool(name string) error
	RegisterEvent(event EventDefinition) error
	DeregisterEvent(name string) error

	CallTool(ctx context.Context, name string, args map[string]interface{}) (interface{}, error)
	EmitEvent(name string, args map[string]interface{}) error
	EmitPrivateEvent(name string, data interface{})

	// Subscribe and SubscribePrivate return a function that removes the subscription.
	Subscribe(handler EventHandler) (unsubscribe func())
	SubscribePrivate(handler PrivateHandler) (unsubscribe func())

	LoadPlugin(ctx context.Context, name string, cfg Config) error
	UnloadPlugin(ctx context.Context, name string) error
	IsLoaded(name string) bool
	// Available returns the names of every plugin that can be loaded.
	Available() []string
	// PluginsLoaded reports whether the startup plugin set has been loaded.
	PluginsLoaded() bool

	Catalog() Catalog
	Descriptions() []Description
}

// pluginAPIImpl implements API on top of the Registry.
type pluginAPIImpl struct {
	registry   *Registry
	pluginName string
}

var _ API = (*pluginAPIImpl)(nil)

func newPluginAPI(registry *Registry, pluginName string) *pluginAPIImpl {
	return &pluginAPIImpl{
		registry:   registry,
		pluginName: pluginName,
	}
}

func (a *pluginAPIImpl) Name() string {
	return a.pluginName
}

func (a *pluginAPIImpl) RegisterTool(tool ToolDefinition) error {
	return a.registry.registerTool(a.pluginName, tool)
}

func (a *pluginAPIImpl) DeregisterTool(name string) error {
	return a.registry.DeregisterTool(name)
}

func (a *pluginAPIImpl) RegisterEvent(event EventDefinition) error {
	return a.registry.registerEvent(a.pluginName, event)
}

func (a *pluginAPIImpl) DeregisterEvent(name string) error {
	return a.registry.DeregisterEvent(name)
}

func (a *pluginAPIImpl) CallTool(ctx context.Context, name string, args map[string]interface{}) (interface{}, error) {
	return a.registry.CallTool(ctx, name, args)
}

func (a *pluginAPIImpl) EmitEvent(name string, args map[string]interface{}) error {
	return a.registry.EmitEvent(name, args)
}

func (a *pluginAPIImpl) EmitPrivateEvent(name string, data interface{}) {
	a.registry.EmitPrivateEvent(name, data)
}

func (a *pluginAPIImpl) Subscribe(handler EventHandler) func() {
	return a.registry.domainBus.subscribe(a.pluginName, handler)
}

func (a *pluginAPIImpl) SubscribePrivate(handler PrivateHandler) func() {
	return a.registry.privateBus.subscribe(a.pluginName, handler)
}

func (a *pluginAPIImpl) LoadPlugin(ctx context.Context, name string, cfg Config) error {
	return a.registry.LoadPlugin(ctx, name, cfg)
}

func (a *pluginAPIImpl) UnloadPlugin(ctx context.Context, name string) error {
	return a.registry.UnloadPlugin(ctx, name)
}

func (a *pluginAPIImpl) IsLoaded(name string) bool {
	return a.registry.IsLoaded(name)
}

func (a *pluginAPIImpl) Available() []string {
	return a.registry.factories.Names()
}

func (a *pluginAPIImpl) PluginsLoaded() bool {
	return a.registry.PluginsLoaded()
}

func (a *pluginAPIImpl) Catalog() Catalog {
	return a.registry.Catalog()
}

func (a *pluginAPIImpl) Descriptions() []Description {
	return a.registry.Descriptions()
}

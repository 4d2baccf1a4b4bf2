package plugin

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/kiosk404/athena/pkg/logger"
)

// Registry is the central plugin registry. It owns the loaded plugin handles,
// the registered tools and events, the two buses and the in-memory state table.
//
// All fields live behind one RWMutex, which is never held while plugin code,
// tool handlers, explain hooks or subscribers run.
type Registry struct {
	mu sync.RWMutex

	factories *InTreeRegistry

	// plugins holds every handle that is not absent, keyed by plugin name.
	plugins map[string]*pluginEntry
	// loadOrder lists loaded plugins in the order they finished loading.
	loadOrder []string

	tools  map[string]*toolEntry
	events map[string]*eventEntry

	states map[string]StateBlob

	startup       []string
	startupConfig map[string]Config
	pluginsLoaded bool

	domainBus  bus[EventHandler]
	privateBus bus[PrivateHandler]
}

type pluginEntry struct {
	name   string
	phase  Phase
	plugin Plugin
	api    *pluginAPIImpl
	config Config
}

type toolEntry struct {
	def   ToolDefinition
	owner string
}

type eventEntry struct {
	def   EventDefinition
	owner string
}

// PluginInfo describes one plugin known to the registry.
type PluginInfo struct {
	Name   string   `json:"name"`
	Phase  Phase    `json:"phase"`
	Tools  []string `json:"tools,omitempty"`
	Events []string `json:"events,omitempty"`
}

// RegistryConfig holds the configuration for creating a Registry.
// Follows the Config -> Complete() -> New() pattern.
type RegistryConfig struct {
	// Factories resolves plugin names. Required.
	Factories *InTreeRegistry
	// Plugins is the ordered startup list used by LoadPlugins.
	Plugins []string
	// PluginConfigs holds the configuration of each startup plugin.
	PluginConfigs map[string]Config
	// States seeds the state table, usually from the persisted store.
	States map[string]StateBlob
}

// CompletedRegistryConfig is the completed registry configuration.
type CompletedRegistryConfig struct {
	*RegistryConfig
}

// Complete fills in defaults.
func (c *RegistryConfig) Complete() CompletedRegistryConfig {
	if c.Factories == nil {
		c.Factories = NewInTreeRegistry()
	}
	if c.PluginConfigs == nil {
		c.PluginConfigs = make(map[string]Config)
	}
	if c.States == nil {
		c.States = make(map[string]StateBlob)
	}
	return CompletedRegistryConfig{c}
}

// New creates a Registry from the completed configuration.
func (c CompletedRegistryConfig) New() *Registry {
	states := make(map[string]StateBlob, len(c.States))
	for name, blob := range c.States {
		states[name] = blob
	}
	configs := make(map[string]Config, len(c.PluginConfigs))
	for name, cfg := range c.PluginConfigs {
		configs[name] = cfg
	}
	return &Registry{
		factories:     c.Factories,
		plugins:       make(map[string]*pluginEntry),
		tools:         make(map[string]*toolEntry),
		events:        make(map[string]*eventEntry),
		states:        states,
		startup:       append([]string(nil), c.Plugins...),
		startupConfig: configs,
	}
}

// --- Plugin lifecycle ---

// LoadPlugins loads the startup plugins in order and stops at the first
// failure. On success it announces athena/plugins-loaded on the private bus.
func (r *Registry) LoadPlugins(ctx context.Context) error {
	for _, name := range r.startup {
		if err := r.LoadPlugin(ctx, name, r.startupConfig[name]); err != nil {
			return err
		}
	}

	r.mu.Lock()
	r.pluginsLoaded = true
	r.mu.Unlock()

	logger.Info("[Athena] %d plugins loaded", len(r.startup))
	r.EmitPrivateEvent(PrivatePluginsLoaded, nil)
	return nil
}

// UnloadPlugins unloads every loaded plugin in reverse load order. Failures
// are logged and do not stop the sequence.
func (r *Registry) UnloadPlugins(ctx context.Context) {
	r.mu.RLock()
	order := append([]string(nil), r.loadOrder...)
	r.mu.RUnlock()

	for i := len(order) - 1; i >= 0; i-- {
		if err := r.UnloadPlugin(ctx, order[i]); err != nil {
			logger.Error("[Athena] unload plugin %q failed: %v", order[i], err)
		}
	}
}

// LoadPlugin instantiates the plugin registered under name, loads it and
// restores its persisted state. Loading is atomic: if the factory, Load or
// SetState fails, everything the plugin registered is removed and the
// handle is evicted before the error is returned.
func (r *Registry) LoadPlugin(ctx context.Context, name string, cfg Config) error {
	factory, ok := r.factories.Get(name)
	if !ok {
		return fmt.Errorf("load plugin %q: %w", name, ErrUnknownPlugin)
	}
	if cfg == nil {
		cfg = Config{}
	}

	r.mu.Lock()
	if _, exists := r.plugins[name]; exists {
		r.mu.Unlock()
		return fmt.Errorf("load plugin %q: %w", name, ErrAlreadyLoaded)
	}
	entry := &pluginEntry{name: name, phase: PhaseLoading, config: cfg}
	r.plugins[name] = entry
	r.mu.Unlock()

	p, err := factory(cfg)
	if err != nil {
		r.evict(name)
		return fmt.Errorf("create plugin %q: %w", name, err)
	}
	api := newPluginAPI(r, name)

	r.mu.Lock()
	entry.plugin = p
	entry.api = api
	r.mu.Unlock()

	if err := p.Load(ctx, api); err != nil {
		r.rollback(name)
		return fmt.Errorf("load plugin %q: %w", name, err)
	}

	if st, ok := p.(Stateful); ok {
		r.mu.RLock()
		blob, has := r.states[name]
		r.mu.RUnlock()
		if has && blob != nil {
			if err := st.SetState(blob); err != nil {
				if uerr := p.Unload(ctx, api); uerr != nil {
					logger.Warn("[Athena] unload plugin %q after failed restore: %v", name, uerr)
				}
				r.rollback(name)
				return fmt.Errorf("restore state of plugin %q: %w", name, err)
			}
		}
	}

	r.mu.Lock()
	entry.phase = PhaseLoaded
	r.loadOrder = append(r.loadOrder, name)
	r.mu.Unlock()

	logger.Info("[Athena] loaded plugin %q", name)
	return nil
}

// UnloadPlugin gathers the plugin's state, calls its Unload and evicts the
// handle even when Unload fails. The Unload error is returned.
func (r *Registry) UnloadPlugin(ctx context.Context, name string) error {
	r.mu.Lock()
	entry, ok := r.plugins[name]
	if !ok || entry.phase != PhaseLoaded {
		r.mu.Unlock()
		return fmt.Errorf("unload plugin %q: %w", name, ErrNotLoaded)
	}
	entry.phase = PhaseUnloading
	r.mu.Unlock()

	if err := r.GatherState(name); err != nil {
		logger.Warn("[Athena] gather state of plugin %q before unload: %v", name, err)
	}

	unloadErr := entry.plugin.Unload(ctx, entry.api)

	if leaked := r.owned(name); len(leaked) > 0 {
		logger.Warn("[Athena] plugin %q left registrations behind after unload: %v", name, leaked)
	}
	if n := r.domainBus.dropOwner(name) + r.privateBus.dropOwner(name); n > 0 {
		logger.Debug("[Athena] dropped %d subscriptions left by plugin %q", n, name)
	}
	r.evict(name)

	if unloadErr != nil {
		return fmt.Errorf("unload plugin %q: %w", name, unloadErr)
	}
	logger.Info("[Athena] unloaded plugin %q", name)
	return nil
}

// rollback removes every registration and subscription of a plugin whose
// load failed, then evicts it.
func (r *Registry) rollback(name string) {
	r.mu.Lock()
	var removed []string
	for toolName, t := range r.tools {
		if t.owner == name {
			delete(r.tools, toolName)
			removed = append(removed, toolName)
		}
	}
	for eventName, e := range r.events {
		if e.owner == name {
			delete(r.events, eventName)
			removed = append(removed, eventName)
		}
	}
	r.mu.Unlock()

	r.domainBus.dropOwner(name)
	r.privateBus.dropOwner(name)
	r.evict(name)

	if len(removed) > 0 {
		sort.Strings(removed)
		logger.Warn("[Athena] rolled back registrations of plugin %q: %v", name, removed)
	}
}

func (r *Registry) evict(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.plugins, name)
	for i, n := range r.loadOrder {
		if n == name {
			r.loadOrder = append(r.loadOrder[:i:i], r.loadOrder[i+1:]...)
			break
		}
	}
}

// owned returns the tools and events currently owned by a plugin, sorted.
func (r *Registry) owned(name string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []string
	for toolName, t := range r.tools {
		if t.owner == name {
			out = append(out, toolName)
		}
	}
	for eventName, e := range r.events {
		if e.owner == name {
			out = append(out, eventName)
		}
	}
	sort.Strings(out)
	return out
}

// --- Tools and events ---

func (r *Registry) registerTool(owner string, tool ToolDefinition) error {
	if tool.Name == "" {
		return fmt.Errorf("register tool: empty name")
	}
	if tool.Handler == nil {
		return fmt.Errorf("register tool %q: nil handler", tool.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.tools[tool.Name]; ok {
		return fmt.Errorf("register tool %q (owned by %q): %w", tool.Name, existing.owner, ErrDuplicateTool)
	}
	r.tools[tool.Name] = &toolEntry{def: tool, owner: owner}
	return nil
}

// RegisterTool registers a tool with no owning plugin.
func (r *Registry) RegisterTool(tool ToolDefinition) error {
	return r.registerTool("", tool)
}

// DeregisterTool removes a tool regardless of which plugin registered it.
func (r *Registry) DeregisterTool(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tools[name]; !ok {
		return fmt.Errorf("deregister tool %q: %w", name, ErrUnknownTool)
	}
	delete(r.tools, name)
	return nil
}

func (r *Registry) registerEvent(owner string, event EventDefinition) error {
	if event.Name == "" {
		return fmt.Errorf("register event: empty name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.events[event.Name]; ok {
		return fmt.Errorf("register event %q (owned by %q): %w", event.Name, existing.owner, ErrDuplicateEvent)
	}
	r.events[event.Name] = &eventEntry{def: event, owner: owner}
	return nil
}

// RegisterEvent registers an event with no owning plugin.
func (r *Registry) RegisterEvent(event EventDefinition) error {
	return r.registerEvent("", event)
}

// DeregisterEvent removes an event regardless of which plugin registered it.
func (r *Registry) DeregisterEvent(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.events[name]; !ok {
		return fmt.Errorf("deregister event %q: %w", name, ErrUnknownEvent)
	}
	delete(r.events, name)
	return nil
}

// CallTool validates args, publishes the explain hooks and runs the handler.
// Handler errors are returned untouched.
func (r *Registry) CallTool(ctx context.Context, name string, args map[string]interface{}) (interface{}, error) {
	r.mu.RLock()
	entry, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("call tool %q: %w", name, ErrUnknownTool)
	}
	if args == nil {
		args = map[string]interface{}{}
	}
	if err := entry.def.Args.Validate(args); err != nil {
		return nil, fmt.Errorf("call tool %q: %w", name, err)
	}

	if entry.def.ExplainArgs != nil {
		if ex := entry.def.ExplainArgs(args); ex != nil {
			r.EmitPrivateEvent(PrivateToolCall, explained(name, ex))
		}
	}

	result, err := entry.def.Handler(ctx, args)
	if err != nil {
		return nil, err
	}

	if entry.def.ExplainRetvals != nil {
		if ex := entry.def.ExplainRetvals(args, result); ex != nil {
			r.EmitPrivateEvent(PrivateToolResult, explained(name, ex))
		}
	}
	return result, nil
}

// EmitEvent validates args and delivers the event synchronously to every
// subscriber, in subscription order.
func (r *Registry) EmitEvent(name string, args map[string]interface{}) error {
	r.mu.RLock()
	entry, ok := r.events[name]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("emit event %q: %w", name, ErrUnknownEvent)
	}
	if args == nil {
		args = map[string]interface{}{}
	}
	if err := entry.def.Args.Validate(args); err != nil {
		return fmt.Errorf("emit event %q: %w", name, err)
	}

	if entry.def.ExplainArgs != nil {
		if ex := entry.def.ExplainArgs(args); ex != nil {
			r.EmitPrivateEvent(PrivateEvent, explained(name, ex))
		}
	}

	for _, handler := range r.domainBus.handlers() {
		handler(name, args)
	}
	return nil
}

// EmitPrivateEvent delivers a control signal to every private subscriber.
// Private events need no registration.
func (r *Registry) EmitPrivateEvent(name string, data interface{}) {
	for _, handler := range r.privateBus.handlers() {
		handler(name, data)
	}
}

// Subscribe adds a domain event subscriber with no owning plugin.
func (r *Registry) Subscribe(handler EventHandler) func() {
	return r.domainBus.subscribe("", handler)
}

// SubscribePrivate adds a private event subscriber with no owning plugin.
func (r *Registry) SubscribePrivate(handler PrivateHandler) func() {
	return r.privateBus.subscribe("", handler)
}

func explained(name string, ex *Explanation) map[string]interface{} {
	return map[string]interface{}{
		"name":    name,
		"summary": ex.Summary,
		"details": ex.Details,
	}
}

// --- State ---

// GatherState pulls the state blob of one loaded plugin into the state table.
// A nil blob leaves the table untouched.
func (r *Registry) GatherState(name string) error {
	r.mu.RLock()
	entry, ok := r.plugins[name]
	r.mu.RUnlock()
	if !ok || entry.plugin == nil || entry.phase == PhaseLoading {
		return fmt.Errorf("gather state of plugin %q: %w", name, ErrNotLoaded)
	}
	st, ok := entry.plugin.(Stateful)
	if !ok {
		return nil
	}
	blob, err := st.State()
	if err != nil {
		return fmt.Errorf("gather state of plugin %q: %w", name, err)
	}
	if blob == nil {
		return nil
	}

	r.mu.Lock()
	r.states[name] = blob
	r.mu.Unlock()
	return nil
}

// GatherStates gathers the state of every loaded plugin, logging and
// skipping failures.
func (r *Registry) GatherStates() {
	r.mu.RLock()
	order := append([]string(nil), r.loadOrder...)
	r.mu.RUnlock()

	for _, name := range order {
		if err := r.GatherState(name); err != nil {
			logger.Warn("[Athena] %v", err)
		}
	}
}

// States returns a copy of the state table.
func (r *Registry) States() map[string]StateBlob {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]StateBlob, len(r.states))
	for name, blob := range r.states {
		out[name] = blob
	}
	return out
}

// SetStates merges blobs into the state table. They are used by the next
// load of each plugin.
func (r *Registry) SetStates(states map[string]StateBlob) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for name, blob := range states {
		r.states[name] = blob
	}
}

// --- Queries ---

// IsLoaded reports whether the plugin is in the loaded phase.
func (r *Registry) IsLoaded(name string) bool {
	return r.Phase(name) == PhaseLoaded
}

// Phase returns the lifecycle phase of a plugin.
func (r *Registry) Phase(name string) Phase {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if entry, ok := r.plugins[name]; ok {
		return entry.phase
	}
	return PhaseAbsent
}

// PluginsLoaded reports whether LoadPlugins has completed.
func (r *Registry) PluginsLoaded() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.pluginsLoaded
}

// LoadedPlugins returns the loaded plugin names in load order.
func (r *Registry) LoadedPlugins() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.loadOrder...)
}

// PluginConfig returns the configuration a live plugin was loaded with.
func (r *Registry) PluginConfig(name string) (Config, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.plugins[name]
	if !ok {
		return nil, false
	}
	return entry.config, true
}

// Available returns the names of every plugin that can be loaded.
func (r *Registry) Available() []string {
	return r.factories.Names()
}

// Plugins describes every available plugin with its phase and registrations.
func (r *Registry) Plugins() []PluginInfo {
	names := r.factories.Names()

	r.mu.RLock()
	defer r.mu.RUnlock()

	byOwner := make(map[string]*PluginInfo, len(names))
	infos := make([]PluginInfo, len(names))
	for i, name := range names {
		infos[i] = PluginInfo{Name: name, Phase: PhaseAbsent}
		if entry, ok := r.plugins[name]; ok {
			infos[i].Phase = entry.phase
		}
		byOwner[name] = &infos[i]
	}
	for toolName, t := range r.tools {
		if info, ok := byOwner[t.owner]; ok {
			info.Tools = append(info.Tools, toolName)
		}
	}
	for eventName, e := range r.events {
		if info, ok := byOwner[e.owner]; ok {
			info.Events = append(info.Events, eventName)
		}
	}
	for i := range infos {
		sort.Strings(infos[i].Tools)
		sort.Strings(infos[i].Events)
	}
	return infos
}

// Catalog returns every registered tool and event, sorted by name.
func (r *Registry) Catalog() Catalog {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c := Catalog{
		Tools:  make([]ToolSpec, 0, len(r.tools)),
		Events: make([]EventSpec, 0, len(r.events)),
	}
	for _, t := range r.tools {
		c.Tools = append(c.Tools, t.def.Spec())
	}
	for _, e := range r.events {
		c.Events = append(c.Events, e.def.Spec())
	}
	sort.Slice(c.Tools, func(i, j int) bool { return c.Tools[i].Name < c.Tools[j].Name })
	sort.Slice(c.Events, func(i, j int) bool { return c.Events[i].Name < c.Events[j].Name })
	return c
}

// Descriptions collects Describe() of every loaded plugin in load order,
// skipping empty ones.
func (r *Registry) Descriptions() []Description {
	r.mu.RLock()
	type described struct {
		name string
		d    Describer
	}
	var ds []described
	for _, name := range r.loadOrder {
		if d, ok := r.plugins[name].plugin.(Describer); ok {
			ds = append(ds, described{name: name, d: d})
		}
	}
	r.mu.RUnlock()

	out := make([]Description, 0, len(ds))
	for _, x := range ds {
		if text := x.d.Describe(); text != "" {
			out = append(out, Description{Plugin: x.name, Text: text})
		}
	}
	return out
}

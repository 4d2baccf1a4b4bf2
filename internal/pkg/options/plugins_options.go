package options

import (
	"fmt"
	"sort"

	"github.com/spf13/pflag"
)

// PluginsOptions holds the top-level configuration for the plugin runtime.
type PluginsOptions struct {
	// Load is the ordered list of plugins loaded at startup.
	// Empty means every enabled entry, sorted by name.
	Load []string `json:"load" mapstructure:"load"`
	// Entries holds per-plugin configuration keyed by plugin name.
	Entries map[string]PluginEntryConfig `json:"entries" mapstructure:"entries"`
	// Watch reloads plugins whose configuration changed on disk.
	Watch bool `json:"watch" mapstructure:"watch"`
}

// PluginEntryConfig holds per-plugin configuration.
type PluginEntryConfig struct {
	Enabled *bool                  `json:"enabled,omitempty" mapstructure:"enabled"`
	Config  map[string]interface{} `json:"config,omitempty" mapstructure:"config"`
}

// IsEnabled treats a missing flag as enabled.
func (e PluginEntryConfig) IsEnabled() bool {
	return e.Enabled == nil || *e.Enabled
}

// NewPluginsOptions returns a new instance of PluginsOptions.
func NewPluginsOptions() *PluginsOptions {
	return &PluginsOptions{
		Load:    []string{},
		Entries: make(map[string]PluginEntryConfig),
	}
}

// LoadOrder resolves the list of plugins to load, skipping disabled entries.
func (o *PluginsOptions) LoadOrder() []string {
	if len(o.Load) > 0 {
		order := make([]string, 0, len(o.Load))
		for _, name := range o.Load {
			if entry, ok := o.Entries[name]; ok && !entry.IsEnabled() {
				continue
			}
			order = append(order, name)
		}
		return order
	}

	order := make([]string, 0, len(o.Entries))
	for name, entry := range o.Entries {
		if entry.IsEnabled() {
			order = append(order, name)
		}
	}
	sort.Strings(order)
	return order
}

// ConfigOf returns the configuration blob for a plugin, never nil.
func (o *PluginsOptions) ConfigOf(name string) map[string]interface{} {
	if entry, ok := o.Entries[name]; ok && entry.Config != nil {
		return entry.Config
	}
	return map[string]interface{}{}
}

// Validate checks PluginsOptions fields.
func (o *PluginsOptions) Validate() []error {
	var errs []error

	seen := make(map[string]bool, len(o.Load))
	for _, name := range o.Load {
		if name == "" {
			errs = append(errs, fmt.Errorf("plugins.load contains an empty name"))
			continue
		}
		if seen[name] {
			errs = append(errs, fmt.Errorf("plugin %q listed twice in plugins.load", name))
		}
		seen[name] = true
		for _, c := range name {
			if !((c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '-' || c == '_') {
				errs = append(errs, fmt.Errorf("invalid character %q in plugin name %q", c, name))
				break
			}
		}
	}

	return errs
}

// AddFlags adds flags for the plugins options.
// Per-plugin configuration is only read from the configuration file.
func (o *PluginsOptions) AddFlags(fs *pflag.FlagSet) {
	fs.StringSliceVar(&o.Load, "plugins.load", o.Load, "Ordered, comma separated list of plugins to load.")
	fs.BoolVar(&o.Watch, "plugins.watch", o.Watch, "Reload plugins when their configuration file entry changes.")
}

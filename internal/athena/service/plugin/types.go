package plugin

import (
	"context"

	"github.com/go-viper/mapstructure/v2"
	"github.com/kiosk404/athena/pkg/utils/json"
)

// Plugin is the fundamental interface that all plugins must implement.
// A plugin registers its tools and events and subscribes to the buses in Load,
// and must undo all of it in Unload.
type Plugin interface {
	// Load is called once after the plugin is instantiated. The API handle is
	// bound to this plugin and stays valid until Unload returns.
	Load(ctx context.Context, api API) error

	// Unload releases everything acquired in Load.
	Unload(ctx context.Context, api API) error
}

// Describer is an optional interface for plugins contributing a paragraph to
// the model's system preamble. An empty string contributes nothing.
// Describe may read live plugin state.
type Describer interface {
	Describe() string
}

// StateBlob is an opaque, JSON encoded plugin state.
type StateBlob = json.RawMessage

// Stateful is an optional interface for plugins that persist state across
// restarts and reloads. A nil blob from State means nothing to persist.
// SetState is called once after Load, only if a blob exists for the plugin.
type Stateful interface {
	State() (StateBlob, error)
	SetState(blob StateBlob) error
}

// Factory creates a new, not yet loaded, instance of a plugin.
type Factory func(cfg Config) (Plugin, error)

// Config is the free-form configuration handed to a plugin factory.
type Config map[string]interface{}

// Decode decodes the configuration into out, a pointer to a struct tagged
// with mapstructure keys. Input is weakly typed so YAML integers and JSON
// floats decode alike, and duration strings decode into time.Duration.
func (c Config) Decode(out interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return err
	}
	return decoder.Decode(map[string]interface{}(c))
}

package options

import (
	genericoptions "github.com/kiosk404/athena/internal/pkg/options"
	"github.com/kiosk404/athena/internal/pkg/server"
	"github.com/kiosk404/athena/pkg/utils/cliflag"
	"github.com/kiosk404/athena/pkg/utils/json"
)

// Options is the full option set of the athena daemon.
type Options struct {
	GenericServerRunOptions *genericoptions.ServerRunOptions `json:"serving"  mapstructure:"serving"`
	LogOptions              *genericoptions.LogOptions       `json:"log"      mapstructure:"log"`
	StateOptions            *genericoptions.StateOptions     `json:"state"    mapstructure:"state"`
	PluginOptions           *genericoptions.PluginsOptions   `json:"plugins"  mapstructure:"plugins"`
}

func NewOptions() *Options {
	return &Options{
		GenericServerRunOptions: genericoptions.NewServerRunOptions(),
		LogOptions:              genericoptions.NewLogOptions(),
		StateOptions:            genericoptions.NewStateOptions(),
		PluginOptions:           genericoptions.NewPluginsOptions(),
	}
}

func (o *Options) Flags() (fss cliflag.NamedFlagSets) {
	o.GenericServerRunOptions.AddFlags(fss.FlagSet("generic"))
	o.LogOptions.AddFlags(fss.FlagSet("log"))
	o.StateOptions.AddFlags(fss.FlagSet("state"))
	o.PluginOptions.AddFlags(fss.FlagSet("plugins"))
	return fss
}

// ApplyTo applies the run options to the method receiver and returns self.
func (o *Options) ApplyTo(c *server.Config) error {
	return o.GenericServerRunOptions.ApplyTo(c)
}

// Validate checks every option group.
func (o *Options) Validate() []error {
	var errs []error
	errs = append(errs, o.GenericServerRunOptions.Validate()...)
	errs = append(errs, o.LogOptions.Validate()...)
	errs = append(errs, o.StateOptions.Validate()...)
	errs = append(errs, o.PluginOptions.Validate()...)
	return errs
}

func (o *Options) String() string {
	data, _ := json.Marshal(o)

	return string(data)
}

// Complete set default Options.
func (o *Options) Complete() error {
	if o.PluginOptions.Entries == nil {
		o.PluginOptions.Entries = make(map[string]genericoptions.PluginEntryConfig)
	}
	return nil
}

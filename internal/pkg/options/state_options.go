package options

import (
	"errors"
	"time"

	"github.com/spf13/pflag"
)

// StateOptions configures where plugin state blobs are persisted.
type StateOptions struct {
	// Path is the boltdb file holding plugin states.
	Path string `json:"path" mapstructure:"path"`
	// AutosaveInterval gathers and persists states periodically. Zero disables it.
	AutosaveInterval time.Duration `json:"autosave-interval" mapstructure:"autosave-interval"`
}

func NewStateOptions() *StateOptions {
	return &StateOptions{
		Path:             "data/state.db",
		AutosaveInterval: 5 * time.Minute,
	}
}

func (o *StateOptions) Validate() []error {
	var errs []error
	if o.Path == "" {
		errs = append(errs, errors.New("--state.path is required"))
	}
	if o.AutosaveInterval < 0 {
		errs = append(errs, errors.New("--state.autosave-interval must not be negative"))
	}
	return errs
}

func (o *StateOptions) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.Path, "state.path", o.Path, "Path of the boltdb file holding plugin states.")
	fs.DurationVar(&o.AutosaveInterval, "state.autosave-interval", o.AutosaveInterval,
		"Interval between periodic state saves. Zero disables autosave.")
}

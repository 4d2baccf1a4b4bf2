package config

import (
	"github.com/kiosk404/athena/internal/athena/options"
)

// Config is the running configuration structure of the athena daemon.
type Config struct {
	*options.Options
	// ConfigFile is the file the options were read from, watched for plugin changes.
	ConfigFile string
}

// CreateConfigFromOptions creates a running configuration instance based
// on the given options.
func CreateConfigFromOptions(opts *options.Options, configFile string) (*Config, error) {
	return &Config{Options: opts, ConfigFile: configFile}, nil
}

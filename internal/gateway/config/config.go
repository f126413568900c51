package config

import (
	"github.com/clinicore/clinicore/internal/gateway/options"
)

// Config is the running configuration structure of the clinicore gateway.
type Config struct {
	*options.Options
}

// CreateConfigFromOptions creates a running configuration instance based
// on the given options.
func CreateConfigFromOptions(opts *options.Options) (*Config, error) {
	return &Config{opts}, nil
}

package options

import (
	"github.com/spf13/pflag"
)

// AuthOptions configures gateway authentication.
type AuthOptions struct {
	// Enabled controls whether bearer authentication is enforced.
	Enabled bool `json:"enabled" mapstructure:"enabled"`

	// Token is the expected bearer token. The CLINICORE_GATEWAY_TOKEN
	// environment variable takes precedence when set.
	Token string `json:"token" mapstructure:"token"`
}

// NewAuthOptions returns the defaults.
func NewAuthOptions() *AuthOptions {
	return &AuthOptions{Enabled: true}
}

// AddFlags registers the auth flags.
func (o *AuthOptions) AddFlags(fs *pflag.FlagSet) {
	fs.BoolVar(&o.Enabled, "auth.enabled", o.Enabled, "Enforce bearer token authentication.")
	fs.StringVar(&o.Token, "auth.token", o.Token, "Expected bearer token (CLINICORE_GATEWAY_TOKEN overrides).")
}

// Validate checks the auth options.
func (o *AuthOptions) Validate() []error {
	return nil
}

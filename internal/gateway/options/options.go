package options

import (
	"github.com/spf13/pflag"

	genericoptions "github.com/clinicore/clinicore/internal/pkg/options"
	"github.com/clinicore/clinicore/pkg/utils/json"
)

// Options is the full option set of the clinicored gateway.
type Options struct {
	ServerRunOptions *genericoptions.ServerRunOptions `json:"server" mapstructure:"server"`
	ChatOptions      *genericoptions.ChatOptions      `json:"chat"   mapstructure:"chat"`
	AuthOptions      *genericoptions.AuthOptions      `json:"auth"   mapstructure:"auth"`
}

// NewOptions returns the defaults.
func NewOptions() *Options {
	return &Options{
		ServerRunOptions: genericoptions.NewServerRunOptions(),
		ChatOptions:      genericoptions.NewChatOptions(),
		AuthOptions:      genericoptions.NewAuthOptions(),
	}
}

// AddFlags registers all option flags.
func (o *Options) AddFlags(fs *pflag.FlagSet) {
	o.ServerRunOptions.AddFlags(fs)
	o.ChatOptions.AddFlags(fs)
	o.AuthOptions.AddFlags(fs)
}

// Complete fills in defaults after flags and config are parsed.
func (o *Options) Complete() error {
	return nil
}

// Validate checks all option sets.
func (o *Options) Validate() []error {
	var errs []error
	errs = append(errs, o.ServerRunOptions.Validate()...)
	errs = append(errs, o.ChatOptions.Validate()...)
	errs = append(errs, o.AuthOptions.Validate()...)
	return errs
}

func (o *Options) String() string {
	data, _ := json.Marshal(o)
	return string(data)
}

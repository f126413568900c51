package options

import (
	"fmt"

	"github.com/spf13/pflag"
)

// ServerRunOptions configures the HTTP serving surface.
type ServerRunOptions struct {
	// BindAddress is the IP the server listens on.
	BindAddress string `json:"bind_address" mapstructure:"bind_address"`

	// BindPort is the port the server listens on.
	BindPort int `json:"bind_port" mapstructure:"bind_port"`

	// Mode is the gin mode: debug, release, or test.
	Mode string `json:"mode" mapstructure:"mode"`

	// EnableProfiling exposes the pprof endpoints under /debug/pprof.
	EnableProfiling bool `json:"enable_profiling" mapstructure:"enable_profiling"`

	// Healthz exposes the /healthz liveness probe.
	Healthz bool `json:"healthz" mapstructure:"healthz"`
}

// NewServerRunOptions returns the defaults.
func NewServerRunOptions() *ServerRunOptions {
	return &ServerRunOptions{
		BindAddress:     "127.0.0.1",
		BindPort:        11990,
		Mode:            "release",
		EnableProfiling: false,
		Healthz:         true,
	}
}

// AddFlags registers the serving flags.
func (o *ServerRunOptions) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.BindAddress, "server.bind-address", o.BindAddress, "IP address the server listens on.")
	fs.IntVar(&o.BindPort, "server.bind-port", o.BindPort, "Port the server listens on.")
	fs.StringVar(&o.Mode, "server.mode", o.Mode, "Server mode: debug, release, or test.")
	fs.BoolVar(&o.EnableProfiling, "server.enable-profiling", o.EnableProfiling, "Expose pprof endpoints under /debug/pprof.")
	fs.BoolVar(&o.Healthz, "server.healthz", o.Healthz, "Expose the /healthz liveness probe.")
}

// Validate checks the serving options.
func (o *ServerRunOptions) Validate() []error {
	var errs []error
	if o.BindPort < 1 || o.BindPort > 65535 {
		errs = append(errs, fmt.Errorf("server.bind-port %d out of range [1, 65535]", o.BindPort))
	}
	switch o.Mode {
	case "debug", "release", "test":
	default:
		errs = append(errs, fmt.Errorf("server.mode %q is not one of debug, release, test", o.Mode))
	}
	return errs
}

// Address returns the host:port the server binds to.
func (o *ServerRunOptions) Address() string {
	return fmt.Sprintf("%s:%d", o.BindAddress, o.BindPort)
}

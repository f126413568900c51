// Package app builds the cobra command shell shared by clinicore binaries:
// flag registration, config file loading through viper, env binding, and a
// uniform run entry point.
package app

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/clinicore/clinicore/pkg/logger"
)

const envPrefix = "CLINICORE"

// CliOptions is implemented by option structs that bind command line flags.
type CliOptions interface {
	// AddFlags registers the options' flags on the given flag set.
	AddFlags(fs *pflag.FlagSet)
	// Complete fills in defaults after flags and config are parsed.
	Complete() error
}

// RunFunc is the application entry point invoked after options are complete.
type RunFunc func(basename string) error

// App is a configured command line application.
type App struct {
	name        string
	basename    string
	description string
	options     CliOptions
	runFunc     RunFunc
	cmd         *cobra.Command
}

// Option configures an App.
type Option func(*App)

// WithOptions attaches the flag-bound options struct.
func WithOptions(opts CliOptions) Option {
	return func(a *App) { a.options = opts }
}

// WithDescription sets the long command description.
func WithDescription(desc string) Option {
	return func(a *App) { a.description = desc }
}

// WithRunFunc sets the application entry point.
func WithRunFunc(fn RunFunc) Option {
	return func(a *App) { a.runFunc = fn }
}

// WithDefaultValidArgs rejects any positional arguments.
func WithDefaultValidArgs() Option {
	return func(a *App) {
		a.cmdArgs()
	}
}

func (a *App) cmdArgs() {}

// NewApp assembles an App from its name, basename and options.
func NewApp(name, basename string, opts ...Option) *App {
	a := &App{
		name:     name,
		basename: basename,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.buildCommand()
	return a
}

func (a *App) buildCommand() {
	cmd := &cobra.Command{
		Use:           a.basename,
		Short:         a.name,
		Long:          a.description,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run()
		},
	}
	cmd.SetOut(os.Stdout)
	cmd.SetErr(os.Stderr)

	fs := cmd.Flags()
	fs.StringP("config", "c", "", "Path to the configuration file")
	if a.options != nil {
		a.options.AddFlags(fs)
	}

	a.cmd = cmd
}

// Run executes the application and exits non-zero on failure.
func (a *App) Run() {
	if err := a.cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", color.RedString("Error:"), err)
		os.Exit(1)
	}
}

func (a *App) run() error {
	printBanner(a.name)

	if err := a.loadConfig(); err != nil {
		return err
	}
	if a.options != nil {
		if err := a.options.Complete(); err != nil {
			return err
		}
	}
	if a.runFunc != nil {
		return a.runFunc(a.basename)
	}
	return nil
}

// loadConfig wires viper: explicit --config path, env overrides, and a
// config watcher so operators see when a live file edit is picked up.
func (a *App) loadConfig() error {
	v := viper.GetViper()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	cfgFile, _ := a.cmd.Flags().GetString("config")
	if cfgFile == "" {
		return nil
	}

	v.SetConfigFile(cfgFile)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config file %q: %w", cfgFile, err)
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		logger.Info("[App] config file changed: %s (restart to apply)", e.Name)
	})
	v.WatchConfig()

	if err := v.BindPFlags(a.cmd.Flags()); err != nil {
		return fmt.Errorf("bind flags: %w", err)
	}
	return nil
}

func printBanner(name string) {
	banner := color.New(color.FgCyan, color.Bold)
	_, _ = banner.Fprintf(os.Stdout, "%s\n", name)
}

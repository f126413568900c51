// Package clinicored assembles the clinicore gateway daemon.
package clinicored

import (
	"fmt"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/viper"

	"github.com/clinicore/clinicore/internal/gateway"
	"github.com/clinicore/clinicore/internal/gateway/config"
	"github.com/clinicore/clinicore/internal/gateway/options"
	"github.com/clinicore/clinicore/pkg/app"
	"github.com/clinicore/clinicore/pkg/logger"
)

const appName = "clinicore gateway"

// NewApp builds the clinicored command line application.
func NewApp(basename string) *app.App {
	opts := options.NewOptions()
	application := app.NewApp(appName,
		basename,
		app.WithOptions(opts),
		app.WithDescription(heredoc.Doc(`
			The clinicore gateway serves the clinical assistant API: chat turns
			run as observable background tasks, tools pass through a test gate
			before they can be enabled, and specialists answer consultations
			during a turn.

			Turns are dispatched asynchronously and observed by polling or by
			a server-sent event stream that survives reconnects.`)),
		app.WithDefaultValidArgs(),
		app.WithRunFunc(run(opts)),
	)
	return application
}

func run(opts *options.Options) app.RunFunc {
	return func(basename string) error {
		logPath := fmt.Sprintf("%s/%s.log", basename, basename)
		if err := logger.InitLog(logPath); err != nil {
			return err
		}
		defer logger.FlushLog()

		// Config file and env values override the flag defaults.
		if err := viper.Unmarshal(opts); err != nil {
			return fmt.Errorf("unmarshal options: %w", err)
		}
		if errs := opts.Validate(); len(errs) > 0 {
			for _, err := range errs {
				logger.Error("[App] invalid option: %v", err)
			}
			return fmt.Errorf("invalid options: %v", errs)
		}
		logger.Info("[App] starting %s with options: %s", basename, opts)

		cfg, err := config.CreateConfigFromOptions(opts)
		if err != nil {
			return err
		}

		return gateway.Run(cfg)
	}
}

package gateway

import (
	"github.com/clinicore/clinicore/internal/gateway/config"
)

// Run starts the gateway and blocks until shutdown.
func Run(cfg *config.Config) error {
	server, err := createAPIServer(cfg)
	if err != nil {
		return err
	}

	return server.PrepareRun().Run()
}

package main

import (
	"os"

	"github.com/clinicore/clinicore/internal/clinictl/cmd"
)

func main() {
	command := cmd.NewClinictlCommand()
	if err := command.Execute(); err != nil {
		os.Exit(1)
	}
}

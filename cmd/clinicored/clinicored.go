package main

import (
	_ "go.uber.org/automaxprocs"

	"github.com/clinicore/clinicore/internal/clinicored"
)

func main() {
	clinicored.NewApp("clinicored").Run()
}

package main

import (
	"os"

	_ "time/tzdata"

	"github.com/lazypower/companion/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}

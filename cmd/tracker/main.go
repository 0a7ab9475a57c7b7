package main

import (
	"os"

	"github.com/pricelens/backend/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}

package main

import (
	"errors"
	"os"

	"github.com/Sternrassler/forge-miner/internal/cli"
)

// Set via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cli.Version = version
	if err := cli.Execute(); err != nil {
		if errors.Is(err, cli.ErrCancelled) {
			os.Exit(130)
		}
		os.Exit(1)
	}
}

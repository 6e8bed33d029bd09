// Package main is the entry point for the gizmo command.
package main

import (
	"fmt"
	"os"

	"github.com/junioryono/component/internal/cli"
)

// Build information injected via ldflags at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	versionString := fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date)
	if err := cli.Execute(versionString); err != nil {
		os.Exit(1)
	}
}

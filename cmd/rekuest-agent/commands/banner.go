package commands

import (
	"github.com/pterm/pterm"

	"github.com/arkitektio/rekuest-next/internal/version"
)

// printStartupBanner prints a short startup summary before run dials the
// server, mirroring cmd/qntx/commands's server startup messages built on
// pterm.Info/pterm.Success rather than a distinct banner widget.
func printStartupBanner(instanceID, transportURL string) {
	info := version.Get()
	pterm.Info.Printf("rekuest-agent %s (commit %s)\n", info.Version, info.Short())
	pterm.Info.Printf("instance:  %s\n", instanceID)
	pterm.Info.Printf("transport: %s\n", transportURL)
}

// Package commands implements the rekuest-agent CLI's subcommands,
// mirrored from cmd/qntx/commands's cobra-per-file layout and its
// global-verbosity-flag/logger-init PersistentPreRunE idiom.
package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arkitektio/rekuest-next/logger"
)

// RootCmd is the rekuest-agent entry point.
var RootCmd = &cobra.Command{
	Use:   "rekuest-agent",
	Short: "Rekuest-Next agent runtime",
	Long: `rekuest-agent runs the client-side control-plane loop for a
Rekuest-Next implementation provider: it dials the server over a
WebSocket control channel, announces its registered implementations and
replicated states, and dispatches ASSIGN/CANCEL/INTERRUPT/PAUSE/RESUME/
PROVIDE/UNPROVIDE as they arrive.

Available commands:
  run      - Connect and serve assignments until interrupted
  register - Print the registered implementations without connecting
  version  - Show build information`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbosity, _ := cmd.Flags().GetCount("verbose")
		if err := logger.InitializeWithLevel(logger.VerbosityToLevel(verbosity)); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
}

func init() {
	RootCmd.PersistentFlags().CountP("verbose", "v", "increase output verbosity (-v, -vv, -vvv)")
	RootCmd.AddCommand(RunCmd)
	RootCmd.AddCommand(RegisterCmd)
	RootCmd.AddCommand(VersionCmd)
}

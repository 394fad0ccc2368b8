package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewServeCmd creates the serve command: the long-running container
// entrypoint that restores on cold start and then keeps syncing.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run restore, scheduler, diagnostics endpoint, and agent",
		Long: `Serve is the container entrypoint. It runs in order:

  1. cold-start restore from the remote store (skipped when the remote
     marker is absent or not newer than the local one)
  2. the state tree watcher and the periodic backup scheduler
  3. the diagnostics HTTP endpoint
  4. the supervised agent process, when configured

It blocks until SIGINT or SIGTERM.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			container := GetContainer()
			if container == nil {
				return fmt.Errorf("application not initialized")
			}
			return container.Serve(cmd.Context())
		},
	}
}

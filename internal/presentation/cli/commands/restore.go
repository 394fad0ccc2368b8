package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewRestoreCmd creates the restore command: a one-shot cold-start restore.
func NewRestoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restore",
		Short: "Restore the state tree from the remote store",
		Long: `Restore downloads the remote state into the local tree.

It is a no-op when the remote store is unconfigured, when no remote
marker exists, or when the local marker is at least as recent as the
remote one. Known remote layouts are tried newest first.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			container := GetContainer()
			if container == nil {
				return fmt.Errorf("application not initialized")
			}
			formatter := GetFormatter()

			if err := container.Restorer().Run(cmd.Context()); err != nil {
				return fmt.Errorf("restore failed: %w", err)
			}

			formatter.Success("Restore finished")
			return nil
		},
	}
}

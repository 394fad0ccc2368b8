package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jbctechsolutions/clawsync/internal/infrastructure/config"
	"github.com/jbctechsolutions/clawsync/internal/presentation/cli/output"
)

// NewInitCmd creates the init command, which writes a starter config file.
func NewInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(force)
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing config file")

	return cmd
}

func runInit(force bool) error {
	formatter := output.NewFormatter()
	loader := config.NewLoader("")

	path := globalFlags.ConfigFile
	if path == "" {
		path = loader.DefaultConfigPath()
	}

	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("config file already exists: %s (use --force to overwrite)", path)
	}

	cfg := config.NewDefaultConfig()
	if err := loader.Save(cfg, path); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	formatter.Success("Wrote %s", path)
	formatter.Info("Set remote.bucket and credentials, or export R2_BUCKET, R2_ACCESS_KEY_ID, R2_SECRET_ACCESS_KEY")
	return nil
}

package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jbctechsolutions/clawsync/internal/infrastructure/storage"
	"github.com/jbctechsolutions/clawsync/internal/presentation/cli/output"
)

// SyncStatus represents the sync subsystem state for JSON output.
type SyncStatus struct {
	StateDir         string            `json:"state_dir"`
	HasConfig        bool              `json:"has_config"`
	RemoteConfigured bool              `json:"remote_configured"`
	LocalSync        string            `json:"local_sync,omitempty"`
	History          []storage.Attempt `json:"history,omitempty"`
}

// NewStatusCmd creates the status command.
func NewStatusCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show sync status and recent attempts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd, limit)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "number of history entries to show")

	return cmd
}

func runStatus(cmd *cobra.Command, limit int) error {
	container := GetContainer()
	if container == nil {
		return fmt.Errorf("application not initialized")
	}
	formatter := GetFormatter()

	tree := container.Tree()
	status := SyncStatus{
		StateDir:         tree.Root,
		HasConfig:        tree.HasConfig(),
		RemoteConfigured: container.RemoteStore().IsConfigured(),
		LocalSync:        strings.TrimSpace(tree.ReadMarker()),
	}

	if history := container.History(); history != nil {
		attempts, err := history.Recent(cmd.Context(), limit)
		if err != nil {
			return fmt.Errorf("failed to load history: %w", err)
		}
		status.History = attempts
	}

	if formatter.Format() == output.FormatJSON {
		return formatter.JSON(status)
	}

	formatter.Header("Sync Status")
	formatter.Item("State Dir", status.StateDir)
	formatter.Item("Config", boolWord(status.HasConfig, "present", "missing"))
	formatter.Item("Remote", boolWord(status.RemoteConfigured, "configured", "not configured"))
	if status.LocalSync != "" {
		formatter.Item("Last Sync", status.LocalSync)
	}

	if len(status.History) > 0 {
		formatter.Println("")
		formatter.Header("Recent Attempts")
		for _, a := range status.History {
			when := a.StartedAt.UTC().Format(time.RFC3339)
			if a.Result.Success {
				formatter.Success("%s  %s  %s", when, a.Channel, a.Duration.Round(time.Millisecond))
			} else {
				formatter.Error("%s  %s  %s", when, a.Channel, a.Result.Error)
			}
		}
	}

	return nil
}

func boolWord(v bool, yes, no string) string {
	if v {
		return yes
	}
	return no
}

package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	syncdomain "github.com/jbctechsolutions/clawsync/internal/domain/sync"
	"github.com/jbctechsolutions/clawsync/internal/presentation/cli/output"
)

// syncReport holds the one-shot push outcome for JSON output.
type syncReport struct {
	Result   syncdomain.Result `json:"result"`
	Channel  string            `json:"channel,omitempty"`
	Duration string            `json:"duration"`
}

// NewSyncCmd creates the sync command: a single push through the channel
// chain, independent of the scheduler.
func NewSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Push the state tree to the remote store once",
		RunE: func(cmd *cobra.Command, args []string) error {
			container := GetContainer()
			if container == nil {
				return fmt.Errorf("application not initialized")
			}
			formatter := GetFormatter()

			start := time.Now()
			result, channel := container.Dispatcher().Dispatch(cmd.Context())
			elapsed := time.Since(start).Round(time.Millisecond)

			if formatter.Format() == output.FormatJSON {
				if err := formatter.JSON(syncReport{
					Result:   result,
					Channel:  channel,
					Duration: elapsed.String(),
				}); err != nil {
					return err
				}
				if !result.Success {
					return fmt.Errorf("sync failed")
				}
				return nil
			}

			if result.Success {
				formatter.Success("Pushed via %s in %s", channel, elapsed)
				if result.LastSync != nil {
					formatter.Item("Last Sync", result.LastSync.UTC().Format(time.RFC3339))
				}
				return nil
			}

			formatter.Error("Push failed: %s", result.Error)
			if result.Details != "" {
				formatter.Item("Details", result.Details)
			}
			return fmt.Errorf("sync failed")
		},
	}
}

package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/maxmarket/maxd/internal/lifecycle"
	"github.com/maxmarket/maxd/internal/types"
	"github.com/maxmarket/maxd/internal/ui"
)

var showCmd = &cobra.Command{
	Use:   "show <discussion-id>",
	Short: "Show one discussion in detail",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireInitialized(); err != nil {
			return err
		}

		d, err := lifecycle.New(st).Get(rootCtx, args[0])
		if err != nil {
			return err
		}

		status, nerr := types.NormalizeStatus(string(d.Status))
		if nerr != nil {
			status = d.Status
		}

		fmt.Printf("%s %s\n", ui.StatusBadge(status), ui.Header(d.Title))
		fmt.Printf("  id:      %s\n", d.ID)
		fmt.Printf("  sector:  %s\n", d.SectorID)
		fmt.Printf("  created: %s\n", d.CreatedAt.Format(time.RFC3339))
		fmt.Printf("  updated: %s\n", d.UpdatedAt.Format(time.RFC3339))
		if d.DecidedAt != nil {
			fmt.Printf("  decided: %s\n", d.DecidedAt.Format(time.RFC3339))
		}
		if d.ClosedAt != nil {
			fmt.Printf("  closed:  %s\n", d.ClosedAt.Format(time.RFC3339))
		}

		if items := d.AllChecklistItems(); len(items) > 0 {
			fmt.Printf("\n%s\n", ui.Header("Checklist"))
			for _, item := range items {
				title := item.Title
				if title == "" {
					title = item.ID
				}
				fmt.Printf("  [%s] %s\n", ui.ChecklistBadge(item.Status), title)
				if item.RejectionReason != nil {
					fmt.Printf("      %s\n", ui.Muted(fmt.Sprintf("%s (%s)",
						item.RejectionReason.Reason, item.RejectionReason.ResolutionMethod)))
				}
			}
		}

		if len(d.Messages) > 0 {
			fmt.Printf("\n%s\n", ui.Header("Messages"))
			for _, m := range d.Messages {
				fmt.Printf("  %s %s: %s\n",
					ui.Muted(m.Timestamp.Format("01-02 15:04")), m.AgentName, m.Content)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(showCmd)
}

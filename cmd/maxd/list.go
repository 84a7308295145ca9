package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/maxmarket/maxd/internal/store"
	"github.com/maxmarket/maxd/internal/types"
	"github.com/maxmarket/maxd/internal/ui"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List discussions",
	Long: `List discussions with their lifecycle status.

Examples:
  maxd list
  maxd list --sector tech
  maxd list --status in_progress
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		sectorFilter, _ := cmd.Flags().GetString("sector")
		statusFilter, _ := cmd.Flags().GetString("status")

		if err := requireInitialized(); err != nil {
			return err
		}

		var wantStatus types.Status
		if statusFilter != "" {
			var err error
			wantStatus, err = types.NormalizeStatus(statusFilter)
			if err != nil {
				return err
			}
		}

		discussions, err := store.NewCollection[types.Discussion](st, store.CollectionDiscussions).Read(rootCtx)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
		shown := 0
		for i := range discussions {
			d := &discussions[i]
			if sectorFilter != "" && d.SectorID != sectorFilter {
				continue
			}
			status, err := types.NormalizeStatus(string(d.Status))
			if err != nil {
				status = d.Status // show raw value rather than hide the row
			}
			if statusFilter != "" && status != wantStatus {
				continue
			}
			pending := 0
			for _, item := range d.AllChecklistItems() {
				if item.Status.IsPending() {
					pending++
				}
			}
			extra := ""
			if pending > 0 {
				extra = ui.Muted(fmt.Sprintf("%d pending", pending))
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				d.ID, ui.StatusBadge(status), d.SectorID, d.Title, extra)
			shown++
		}
		if err := w.Flush(); err != nil {
			return err
		}
		if shown == 0 {
			fmt.Println(ui.Muted("No discussions found"))
		}
		return nil
	},
}

func init() {
	listCmd.Flags().String("sector", "", "Only discussions in this sector")
	listCmd.Flags().String("status", "", "Only discussions with this status (aliases accepted)")
	rootCmd.AddCommand(listCmd)
}

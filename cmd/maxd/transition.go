package main

import (
	"github.com/spf13/cobra"

	"github.com/maxmarket/maxd/internal/debug"
	"github.com/maxmarket/maxd/internal/lifecycle"
)

var transitionCmd = &cobra.Command{
	Use:   "transition <discussion-id> <status>",
	Short: "Move a discussion to a new lifecycle status",
	Long: `Move a discussion through its lifecycle. Legacy status aliases are
accepted (open, active, accepted, completed, ...). Moving to decided requires
at least one checklist item.

Examples:
  maxd transition d-123 in_progress
  maxd transition d-123 decided --reason "quorum reached"
`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		reason, _ := cmd.Flags().GetString("reason")

		if err := requireInitialized(); err != nil {
			return err
		}

		d, err := lifecycle.New(st).Transition(rootCtx, args[0], args[1], reason)
		if err != nil {
			return err
		}

		debug.PrintNormal("%s is now %s\n", d.ID, d.Status)
		return nil
	},
}

func init() {
	transitionCmd.Flags().String("reason", "", "Optional note recorded with the transition")
	rootCmd.AddCommand(transitionCmd)
}

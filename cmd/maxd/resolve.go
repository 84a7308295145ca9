package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/maxmarket/maxd/internal/audit"
	"github.com/maxmarket/maxd/internal/debug"
	"github.com/maxmarket/maxd/internal/ui"
	"github.com/maxmarket/maxd/internal/watchdog"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve [discussion-id]",
	Short: "Run one deadlock-watchdog pass",
	Long: `Scan pending checklist items and resolve the stuck ones. With a
discussion ID only that discussion is scanned; with --all every discussion is.

Without a decision evaluator attached, stuck items are auto-rejected on the
first pass. Resolutions are appended to the audit trail in the storage
directory.

Examples:
  maxd resolve d-123
  maxd resolve --all
  maxd resolve d-123 --trigger status_change
`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		all, _ := cmd.Flags().GetBool("all")
		triggerFlag, _ := cmd.Flags().GetString("trigger")

		if err := requireInitialized(); err != nil {
			return err
		}
		if len(args) == 0 && !all {
			return fmt.Errorf("give a discussion ID or --all")
		}

		trigger := watchdog.Trigger(triggerFlag)
		switch trigger {
		case watchdog.TriggerManagerEvaluation, watchdog.TriggerStatusChange:
		default:
			return fmt.Errorf("unknown trigger %q (want %s or %s)",
				triggerFlag, watchdog.TriggerManagerEvaluation, watchdog.TriggerStatusChange)
		}

		wd := watchdog.New(st, nil, audit.NewLog(cfg.StorageDir))

		var resolutions []audit.Resolution
		if all {
			resolutions = wd.ScanAll(rootCtx, trigger)
		} else {
			var err error
			resolutions, err = wd.DetectAndResolve(rootCtx, args[0], trigger)
			if err != nil {
				return err
			}
		}

		if len(resolutions) == 0 {
			debug.PrintNormal("Nothing to resolve\n")
			return nil
		}
		for _, r := range resolutions {
			fmt.Printf("%s %s %s\n", r.ItemID, ui.Muted(r.Method),
				ui.Muted(fmt.Sprintf("pending %s", r.TimePending)))
		}
		return nil
	},
}

func init() {
	resolveCmd.Flags().Bool("all", false, "Scan every discussion")
	resolveCmd.Flags().String("trigger", string(watchdog.TriggerManagerEvaluation), "What prompted the scan (manager_evaluation|status_change)")
	rootCmd.AddCommand(resolveCmd)
}

package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/maxmarket/maxd/internal/debug"
	"github.com/maxmarket/maxd/internal/market"
	"github.com/maxmarket/maxd/internal/store"
	"github.com/maxmarket/maxd/internal/types"
	"github.com/maxmarket/maxd/internal/ui"
)

var tickCmd = &cobra.Command{
	Use:   "tick",
	Short: "Advance sector prices by one step",
	Long: `Run one market tick: every sector gets a new price, a candle point,
and refreshed change metrics. --backfill generates starting history for
sectors that have none.

Examples:
  maxd tick
  maxd tick --backfill 288
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		backfill, _ := cmd.Flags().GetInt("backfill")

		if err := requireInitialized(); err != nil {
			return err
		}

		sim := market.NewSimulator(st, cfg.Market.CandleWindow)

		if backfill > 0 {
			filled, err := sim.Backfill(rootCtx, backfill)
			if err != nil {
				return err
			}
			debug.PrintNormal("Backfilled %d sectors\n", filled)
			return nil
		}

		n, err := sim.Tick(rootCtx)
		if err != nil {
			return err
		}
		if _, err := sim.RotateAgents(rootCtx); err != nil {
			return err
		}
		if n == 0 {
			debug.PrintNormal("No sectors to tick (run 'maxd seed' first)\n")
			return nil
		}

		sectors, err := store.NewCollection[types.Sector](st, store.CollectionSectors).Read(rootCtx)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
		for _, sec := range sectors {
			fmt.Fprintf(w, "%s\t%.2f\t%s\n",
				sec.Symbol, sec.CurrentPrice, ui.PriceDelta(sec.Change, sec.ChangePercent))
		}
		return w.Flush()
	},
}

func init() {
	tickCmd.Flags().Int("backfill", 0, "Generate this many starting candle points for empty sectors")
	rootCmd.AddCommand(tickCmd)
}

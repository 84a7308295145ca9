package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/maxmarket/maxd/internal/debug"
	"github.com/maxmarket/maxd/internal/seed"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Populate the store with a starter market",
	Long: `Generate sectors, agents, and discussions so the market has something to
trade. Refuses to overwrite an already-seeded store unless --force is given.

Examples:
  maxd seed
  maxd seed --agents 10 --discussions 5
  maxd seed --file fixtures.yaml --force
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		fixtureFile, _ := cmd.Flags().GetString("file")
		force, _ := cmd.Flags().GetBool("force")
		agents, _ := cmd.Flags().GetInt("agents")
		discussions, _ := cmd.Flags().GetInt("discussions")

		if err := st.EnsureDir(); err != nil {
			return err
		}

		res, err := seed.New(st).Run(rootCtx, seed.Options{
			AgentsPerSector:      agents,
			DiscussionsPerSector: discussions,
			Force:                force,
			FixtureFile:          fixtureFile,
		})
		if errors.Is(err, seed.ErrAlreadySeeded) {
			debug.PrintNormal("Store already seeded; use --force to overwrite\n")
			return nil
		}
		if err != nil {
			return err
		}

		debug.PrintNormal("Seeded %d sectors, %d agents, %d discussions\n",
			res.Sectors, res.Agents, res.Discussions)
		return nil
	},
}

func init() {
	seedCmd.Flags().String("file", "", "YAML fixture overriding the built-in dataset")
	seedCmd.Flags().Bool("force", false, "Overwrite existing data")
	seedCmd.Flags().Int("agents", 0, "Agents per sector (default 5)")
	seedCmd.Flags().Int("discussions", 0, "Discussions per sector (default 3)")
	rootCmd.AddCommand(seedCmd)
}

// maxd is the coordination core for the agent stock market: a file-backed
// store of sectors, agents, and discussions, plus the lifecycle and
// deadlock-watchdog machinery that keeps discussions moving.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/maxmarket/maxd/internal/config"
	"github.com/maxmarket/maxd/internal/debug"
	"github.com/maxmarket/maxd/internal/lockfile"
	"github.com/maxmarket/maxd/internal/store"
)

// Version is set at build time via -ldflags.
var Version = "dev"

var (
	storageDir  string
	verboseFlag bool
	quietFlag   bool

	cfg *config.Config
	st  *store.Store

	// Signal-aware context for graceful cancellation
	rootCtx    context.Context
	rootCancel context.CancelFunc
)

var rootCmd = &cobra.Command{
	Use:     "maxd",
	Short:   "maxd - agent stock market coordination core",
	Long:    `Discussions, sectors, and agents on a crash-safe file store, with a lifecycle state machine and a deadlock watchdog for stuck checklist items.`,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verboseFlag {
			debug.SetVerbose(true)
		}
		if quietFlag {
			debug.SetQuiet(true)
		}

		var err error
		cfg, err = config.Load(storageDir)
		if err != nil {
			return err
		}

		locks := lockfile.NewManager(cfg.LockOptions())
		st = store.New(cfg.StorageDir, locks)

		rootCtx, rootCancel = signal.NotifyContext(context.Background(),
			os.Interrupt, syscall.SIGTERM)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if rootCancel != nil {
			rootCancel()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&storageDir, "dir", "", "Storage directory (default: $MAXD_DIR or .maxd)")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Enable verbose/debug output")
	rootCmd.PersistentFlags().BoolVarP(&quietFlag, "quiet", "q", false, "Suppress non-essential output (errors only)")
}

// requireInitialized errors unless the storage directory exists. Commands
// that only read state use this instead of silently creating an empty dir.
func requireInitialized() error {
	if _, err := os.Stat(cfg.StorageDir); os.IsNotExist(err) {
		return fmt.Errorf("storage directory %s not found (run 'maxd init' first)", cfg.StorageDir)
	} else if err != nil {
		return err
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

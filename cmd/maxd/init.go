package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/maxmarket/maxd/internal/debug"
)

// defaultConfigYAML is written on init so operators have a template to edit.
const defaultConfigYAML = `# maxd configuration. Env vars with the MAXD_ prefix override these
# (MAXD_LOCK_TIMEOUT overrides lock.timeout).
lock:
  timeout: 10s
  stale_threshold: 30s
  initial_backoff: 100ms
  max_backoff: 2s
watchdog:
  scan_interval: 5m
  debounce: 2s
market:
  tick_interval: 5m
  candle_window: 288
`

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the storage directory and a starter config",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := st.EnsureDir(); err != nil {
			return err
		}

		cfgPath := filepath.Join(cfg.StorageDir, "config.yaml")
		if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
			if err := os.WriteFile(cfgPath, []byte(defaultConfigYAML), 0o600); err != nil {
				return fmt.Errorf("writing %s: %w", cfgPath, err)
			}
			debug.PrintNormal("Wrote %s\n", cfgPath)
		} else if err != nil {
			return err
		}

		debug.PrintNormal("Initialized storage in %s\n", cfg.StorageDir)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}

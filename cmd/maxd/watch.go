package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gofrs/flock"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/maxmarket/maxd/internal/audit"
	"github.com/maxmarket/maxd/internal/debug"
	"github.com/maxmarket/maxd/internal/market"
	"github.com/maxmarket/maxd/internal/store"
	"github.com/maxmarket/maxd/internal/watchdog"
)

// daemonLockFileName guards against two watch daemons on one storage dir.
const daemonLockFileName = ".maxd.daemon.lock"

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run the watchdog and market daemon",
	Long: `Run until interrupted:
  - watches the discussions file and runs a watchdog pass shortly after any
    change (status_change trigger, debounced)
  - runs a periodic full watchdog scan (manager_evaluation trigger)
  - advances sector prices on the market tick interval

Only one watcher may run per storage directory.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireInitialized(); err != nil {
			return err
		}

		daemonLock := flock.New(filepath.Join(cfg.StorageDir, daemonLockFileName))
		locked, err := daemonLock.TryLock()
		if err != nil {
			return fmt.Errorf("acquiring daemon lock: %w", err)
		}
		if !locked {
			return fmt.Errorf("another 'maxd watch' is already running for %s", cfg.StorageDir)
		}
		defer func() { _ = daemonLock.Unlock() }()

		wd := watchdog.New(st, nil, audit.NewLog(cfg.StorageDir))
		sim := market.NewSimulator(st, cfg.Market.CandleWindow)

		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			return fmt.Errorf("creating watcher: %w", err)
		}
		defer func() { _ = watcher.Close() }()
		if err := watcher.Add(cfg.StorageDir); err != nil {
			return fmt.Errorf("watching %s: %w", cfg.StorageDir, err)
		}

		debug.PrintNormal("Watching %s (Ctrl+C to stop)\n", cfg.StorageDir)

		discussionsFile := store.CollectionDiscussions + ".json"
		g, ctx := errgroup.WithContext(rootCtx)

		// Change-triggered scans, debounced. The scan's own writes re-arrive
		// as events; the follow-up pass finds nothing pending and writes
		// nothing, so the loop settles.
		g.Go(func() error {
			var debounce *time.Timer
			var scanC <-chan time.Time
			for {
				select {
				case <-ctx.Done():
					return nil
				case event, ok := <-watcher.Events:
					if !ok {
						return nil
					}
					if filepath.Base(event.Name) != discussionsFile {
						continue
					}
					if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
						continue
					}
					if debounce == nil {
						debounce = time.NewTimer(cfg.Watchdog.Debounce)
						scanC = debounce.C
					} else {
						debounce.Reset(cfg.Watchdog.Debounce)
					}
				case err, ok := <-watcher.Errors:
					if !ok {
						return nil
					}
					debug.Logf("watch: fsnotify error: %v", err)
				case <-scanC:
					resolved := wd.ScanAll(ctx, watchdog.TriggerStatusChange)
					if len(resolved) > 0 {
						debug.PrintNormal("Resolved %d stuck items (status change)\n", len(resolved))
					}
				}
			}
		})

		// Periodic full scan
		g.Go(func() error {
			ticker := time.NewTicker(cfg.Watchdog.ScanInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
					resolved := wd.ScanAll(ctx, watchdog.TriggerManagerEvaluation)
					if len(resolved) > 0 {
						debug.PrintNormal("Resolved %d stuck items (periodic scan)\n", len(resolved))
					}
				}
			}
		})

		// Market ticks
		g.Go(func() error {
			ticker := time.NewTicker(cfg.Market.TickInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
					if _, err := sim.Tick(ctx); err != nil {
						debug.Logf("watch: market tick failed: %v", err)
					}
					if _, err := sim.RotateAgents(ctx); err != nil {
						debug.Logf("watch: agent rotation failed: %v", err)
					}
				}
			}
		})

		err = g.Wait()
		debug.PrintNormal("Stopped\n")
		return err
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

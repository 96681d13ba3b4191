package commands

import (
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/teranos/vigil/checks"
	"github.com/teranos/vigil/errors"
	"github.com/teranos/vigil/logger"
	"github.com/teranos/vigil/sym"
)

// WatchCmd re-runs checks on an interval
var WatchCmd = &cobra.Command{
	Use:   "watch",
	Short: sym.Watch + " Run checks on an interval",
	Long: sym.Watch + ` watch — Run checks on an interval

Runs all checks immediately and then every interval until interrupted.
Edits to the checks file take effect on the next run; a file that fails to
parse is logged and the previous checks stay in effect.

Examples:
  vigil watch                    # Every run.watch_interval_seconds
  vigil watch --interval 15m     # Every 15 minutes`,
	RunE: runWatch,
}

func init() {
	WatchCmd.Flags().String("checks", "", "Checks file (default run.checks_file)")
	WatchCmd.Flags().Duration("interval", 0, "Time between runs (default run.watch_interval_seconds)")
	WatchCmd.Flags().Bool("json", false, "Print reports as JSON")
	WatchCmd.Flags().StringP("output", "o", "", "Write each report to a file instead of stdout")
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	path, defs, err := loadChecks(cmd, cfg)
	if err != nil {
		return err
	}

	interval, _ := cmd.Flags().GetDuration("interval")
	if interval == 0 {
		interval = time.Duration(cfg.Run.WatchIntervalSeconds) * time.Second
	}
	if interval <= 0 {
		return errors.NewConfigError("watch interval must be positive, got %s", interval)
	}

	opts, err := reportOptionsFromFlags(cmd, cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, err := newPipeline(ctx, cfg)
	if err != nil {
		return err
	}
	defer p.Close()

	log := logger.ComponentLogger("watch")

	var mu sync.Mutex
	current := defs
	watcher, err := checks.NewWatcher(path, func(reloaded []checks.Definition) {
		mu.Lock()
		current = reloaded
		mu.Unlock()
		log.Infow("Checks reloaded", logger.FieldFile, path, logger.FieldCount, len(reloaded))
	})
	if err != nil {
		return err
	}
	watcher.Start()
	defer watcher.Stop()

	runOnce := func() {
		mu.Lock()
		snapshot := current
		mu.Unlock()

		run := p.runner.Run(ctx, snapshot)
		if err := emitReport(ctx, cmd.OutOrStdout(), run, opts); err != nil {
			log.Errorw("Failed to emit report", logger.FieldRunID, run.ID, logger.FieldError, err)
		}
	}

	log.Infow("Watching", logger.FieldFile, path, "interval", interval.String())
	runOnce()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Infow("Watch stopped")
			return nil
		case <-ticker.C:
			runOnce()
		}
	}
}

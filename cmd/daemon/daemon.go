// Package daemon implements the long-running crawl daemon command.
package daemon

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/jonesrussell/eventcrawl/cmd/common"
	"github.com/jonesrussell/eventcrawl/internal/logger"
)

// defaultTickSchedule polls the run gate well below the smallest interval the
// run backoff can produce, so a due run never waits long for the next tick.
const defaultTickSchedule = "@every 15m"

// Command returns the daemon command: a cron loop around the run scheduler.
// Each tick is cheap — the run record gate answers "not due yet" without
// touching the scraper.
func Command() *cobra.Command {
	var schedule string

	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run the crawl scheduler periodically until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfgFile, _ := cmd.Flags().GetString("config")
			app, cleanup, err := common.Bootstrap(cfgFile)
			if err != nil {
				return err
			}
			defer cleanup()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return run(ctx, app, schedule)
		},
	}

	cmd.Flags().StringVar(&schedule, "schedule", defaultTickSchedule,
		"cron schedule for gate polling (standard cron spec or @every syntax)")

	return cmd
}

// run starts the cron loop and blocks until the context is cancelled. Runs
// never overlap: cron.SkipIfStillRunning drops a tick while the previous one
// is still crawling.
func run(ctx context.Context, app *common.App, schedule string) error {
	log := app.Logger

	c := cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DiscardLogger),
		cron.Recover(cron.DiscardLogger),
	))

	_, err := c.AddFunc(schedule, func() {
		if runErr := app.Runner.RunOnce(ctx); runErr != nil {
			// Already persisted in the run record; the next tick respects
			// the grown interval.
			log.Error("Crawl run failed", logger.Error(runErr))
		}
	})
	if err != nil {
		return fmt.Errorf("failed to parse schedule %q: %w", schedule, err)
	}

	log.Info("Crawl daemon started", logger.String("schedule", schedule))
	c.Start()

	<-ctx.Done()
	log.Info("Shutting down crawl daemon")

	// Let an in-flight run finish before returning.
	<-c.Stop().Done()
	return nil
}

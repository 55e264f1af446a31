// Package crawl implements the one-shot crawl command.
package crawl

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/jonesrussell/eventcrawl/cmd/common"
	"github.com/jonesrussell/eventcrawl/internal/crawler"
	"github.com/jonesrussell/eventcrawl/internal/logger"
)

// Command returns the crawl command. It runs the scheduler exactly once: the
// run record gate decides whether a crawl actually happens.
func Command() *cobra.Command {
	return &cobra.Command{
		Use:   "crawl",
		Short: "Run one gated crawl invocation",
		Long: `Run the crawl scheduler once. If the previous run's record says the
next run is not due yet, nothing happens; otherwise every configured city is
crawled and the adapted schedule is persisted.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfgFile, _ := cmd.Flags().GetString("config")
			app, cleanup, err := common.Bootstrap(cfgFile)
			if err != nil {
				return err
			}
			defer cleanup()

			runErr := app.Runner.RunOnce(cmd.Context())
			if runErr != nil {
				var capErr *crawler.CapabilityError
				if errors.As(runErr, &capErr) {
					// Already persisted in the run ledger; the grown interval
					// is the response, not a non-zero exit.
					app.Logger.Warn("Crawl aborted on capability failures",
						logger.String("capability", capErr.Capability.String()),
					)
					return nil
				}
				return runErr
			}
			return nil
		},
	}
}

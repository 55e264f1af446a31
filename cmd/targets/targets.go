// Package targets implements inspection commands for the URL ledger.
package targets

import (
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/jonesrussell/eventcrawl/cmd/common"
	"github.com/jonesrussell/eventcrawl/internal/database"
	"github.com/jonesrussell/eventcrawl/internal/domain"
)

// Command returns the targets command group.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "targets",
		Short: "Inspect the URL ledger",
	}

	cmd.AddCommand(listCommand())
	cmd.AddCommand(statsCommand())
	return cmd
}

// listCommand renders ledger targets in a table, newest first.
func listCommand() *cobra.Command {
	var filters database.TargetFilters

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tracked scrape targets",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfgFile, _ := cmd.Flags().GetString("config")
			app, cleanup, err := common.Bootstrap(cfgFile)
			if err != nil {
				return err
			}
			defer cleanup()

			targets, err := app.Targets.List(cmd.Context(), filters)
			if err != nil {
				return fmt.Errorf("failed to list targets: %w", err)
			}
			if len(targets) == 0 {
				fmt.Println("No targets tracked yet.")
				return nil
			}

			renderTargets(targets)
			return nil
		},
	}

	cmd.Flags().StringVar(&filters.City, "city", "", "filter by city")
	cmd.Flags().StringVar(&filters.Kind, "kind", "", "filter by kind (search_query, organizer_page, event_page)")
	cmd.Flags().StringVar(&filters.Status, "status", "", "filter by status")
	cmd.Flags().IntVar(&filters.Limit, "limit", 0, "maximum rows to show")

	return cmd
}

// statsCommand renders per-status counts for one city.
func statsCommand() *cobra.Command {
	var city string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show per-status target counts for a city",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfgFile, _ := cmd.Flags().GetString("config")
			app, cleanup, err := common.Bootstrap(cfgFile)
			if err != nil {
				return err
			}
			defer cleanup()

			if city == "" && len(app.Config.Crawl.Cities) > 0 {
				city = app.Config.Crawl.Cities[0]
			}

			stats, err := app.Targets.Stats(cmd.Context(), city)
			if err != nil {
				return fmt.Errorf("failed to get target stats: %w", err)
			}

			renderStats(city, stats)
			return nil
		},
	}

	cmd.Flags().StringVar(&city, "city", "", "city to report on (default: first configured city)")

	return cmd
}

// renderTargets prints the target table.
func renderTargets(targets []*domain.ScrapeTarget) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)

	t.AppendHeader(table.Row{"URL", "Kind", "City", "Status", "Next Visit", "Last Visit"})
	for _, target := range targets {
		t.AppendRow(table.Row{
			target.URL,
			target.Kind,
			target.City,
			target.Status,
			formatTime(target.NextVisitAt),
			formatTime(target.LastVisitedAt),
		})
	}
	t.Render()
}

// renderStats prints the per-status count table.
func renderStats(city string, stats *database.TargetStats) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.SetTitle(city)

	t.AppendHeader(table.Row{"Status", "Count"})
	t.AppendRows([]table.Row{
		{"unvisited", stats.Unvisited},
		{"visited", stats.Visited},
		{"retrying", stats.Retrying},
		{"stale", stats.Stale},
		{"expired", stats.Expired},
		{"rejected", stats.Rejected},
	})
	t.Render()
}

func formatTime(ts *time.Time) string {
	if ts == nil {
		return "-"
	}
	return ts.UTC().Format(time.RFC3339)
}

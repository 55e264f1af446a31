// Package common wires the crawler's components for the CLI commands.
package common

import (
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/eventcrawl/internal/catalog"
	"github.com/jonesrussell/eventcrawl/internal/clock"
	"github.com/jonesrussell/eventcrawl/internal/config"
	"github.com/jonesrussell/eventcrawl/internal/crawler"
	"github.com/jonesrussell/eventcrawl/internal/database"
	"github.com/jonesrussell/eventcrawl/internal/ledger"
	"github.com/jonesrussell/eventcrawl/internal/location"
	"github.com/jonesrussell/eventcrawl/internal/logger"
	"github.com/jonesrussell/eventcrawl/internal/metrics"
	"github.com/jonesrussell/eventcrawl/internal/runner"
	"github.com/jonesrussell/eventcrawl/internal/scraper"
)

// App holds the wired components shared by the CLI commands.
type App struct {
	Config  *config.Config
	Logger  logger.Logger
	DB      *sqlx.DB
	Targets *database.TargetRepository
	Runs    *database.RunRepository
	Runner  *runner.Runner
}

// Bootstrap loads configuration and connects every component. The returned
// cleanup closes the database connection and flushes the logger.
func Bootstrap(cfgFile string) (*App, func(), error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}

	db, err := database.NewPostgresConnection(cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	clk := clock.NewReal()
	m := metrics.NewMetrics(nil)

	targetRepo := database.NewTargetRepository(db)
	runRepo := database.NewRunRepository(db)

	orchestrator := crawler.NewOrchestrator(crawler.Params{
		Ledger:   ledger.NewManager(targetRepo, clk, cfg.Crawl, log),
		Scraper:  scraper.NewCollyScraper(scraper.Config{RequestTimeout: cfg.Crawl.ScrapeTimeout}, log),
		Catalog:  catalog.NewPostgresCatalog(db, clk),
		Resolver: location.NewNominatimResolver(location.Config{}, log),
		Clock:    clk,
		Config:   cfg.Crawl,
		Logger:   log,
		Metrics:  m,
	})

	app := &App{
		Config:  cfg,
		Logger:  log,
		DB:      db,
		Targets: targetRepo,
		Runs:    runRepo,
		Runner:  runner.NewRunner(runRepo, orchestrator, clk, cfg.Crawl, log, m),
	}

	cleanup := func() {
		if closeErr := db.Close(); closeErr != nil {
			log.Error("Failed to close database connection", logger.Error(closeErr))
		}
		_ = log.Sync()
	}
	return app, cleanup, nil
}

// Package runner is the top level of the adaptive scheduling stack: it
// decides whether a crawl runs at all, drives the orchestrator across all
// configured cities, and adapts the interval to the next run based on how
// this one went.
package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jonesrussell/eventcrawl/internal/clock"
	"github.com/jonesrussell/eventcrawl/internal/config"
	"github.com/jonesrussell/eventcrawl/internal/database"
	"github.com/jonesrussell/eventcrawl/internal/domain"
	"github.com/jonesrussell/eventcrawl/internal/logger"
	"github.com/jonesrussell/eventcrawl/internal/metrics"
)

// Orchestrator runs one crawl cycle for one city.
type Orchestrator interface {
	CrawlCity(ctx context.Context, city string) error
}

// RunRepository is the append-only run ledger.
type RunRepository interface {
	Latest(ctx context.Context) (*domain.RunRecord, error)
	Insert(ctx context.Context, record *domain.RunRecord) error
}

// Runner gates and executes full crawl runs.
type Runner struct {
	runs         RunRepository
	orchestrator Orchestrator
	clock        clock.Clock
	cfg          config.CrawlConfig
	logger       logger.Logger
	metrics      *metrics.Metrics
}

// NewRunner creates a run scheduler.
func NewRunner(
	runs RunRepository,
	orchestrator Orchestrator,
	clk clock.Clock,
	cfg config.CrawlConfig,
	log logger.Logger,
	m *metrics.Metrics,
) *Runner {
	return &Runner{
		runs:         runs,
		orchestrator: orchestrator,
		clock:        clk,
		cfg:          cfg,
		logger:       log,
		metrics:      m,
	}
}

// RunOnce executes one gated crawl run. Returns nil without crawling when the
// latest run record says the next run is not due yet. Each city's failure is
// isolated: remaining cities still run, and the first error is captured in
// the run record and returned after the record is persisted.
func (r *Runner) RunOnce(ctx context.Context) error {
	latest, err := r.runs.Latest(ctx)
	if err != nil && !errors.Is(err, database.ErrNoRuns) {
		return fmt.Errorf("read latest run record: %w", err)
	}

	now := r.clock.Now()
	if latest != nil && latest.NextRunAt.After(now) {
		r.logger.Debug("Crawl run not due yet",
			logger.Time("next_run_at", latest.NextRunAt),
		)
		return nil
	}

	runStart := now
	r.logger.Info("Starting crawl run",
		logger.Time("run_start", runStart),
		logger.Strings("cities", r.cfg.Cities),
	)

	var firstErr error
	for _, city := range r.cfg.Cities {
		if cityErr := r.orchestrator.CrawlCity(ctx, city); cityErr != nil {
			r.logger.Error("City cycle failed",
				logger.String("city", city),
				logger.Error(cityErr),
			)
			if firstErr == nil {
				firstErr = cityErr
			}
		}
	}

	runEnd := r.clock.Now()
	interval := nextRunInterval(r.previousInterval(latest), firstErr != nil, r.cfg.RunAdjustmentFactor)

	record := &domain.RunRecord{
		ID:        uuid.New().String(),
		RunStart:  runStart,
		RunEnd:    runEnd,
		NextRunAt: runEnd.Add(interval),
	}
	if firstErr != nil {
		message := firstErr.Error()
		record.ErrorMessage = &message
	}

	r.metrics.RecordRun(firstErr != nil, runEnd.Sub(runStart).Seconds())

	// The record must land before any error surfaces, or a failing run
	// would never back the schedule off.
	if insertErr := r.runs.Insert(ctx, record); insertErr != nil {
		return fmt.Errorf("persist run record: %w", insertErr)
	}

	r.logger.Info("Finished crawl run",
		logger.Time("run_end", runEnd),
		logger.Time("next_run_at", record.NextRunAt),
		logger.Bool("failed", record.Failed()),
	)
	return firstErr
}

// previousInterval reads the realized interval scheduled by the previous run.
// Falls back to the configured base interval when there is no previous record
// or the stored timestamps are out of order; a negative interval is an
// upstream bug and is never silently absolute-valued.
func (r *Runner) previousInterval(latest *domain.RunRecord) time.Duration {
	if latest == nil {
		return r.cfg.RunInterval
	}

	interval := latest.NextRunAt.Sub(latest.RunEnd)
	if interval <= 0 {
		r.logger.Warn("Invariant violation: previous run scheduled its successor before its own end, using base interval",
			logger.Time("run_end", latest.RunEnd),
			logger.Time("next_run_at", latest.NextRunAt),
		)
		return r.cfg.RunInterval
	}
	return interval
}

// nextRunInterval shrinks the interval after a healthy run and grows it after
// a failing one. Truncated to whole seconds so repeated adjustment cannot
// accumulate sub-second drift.
func nextRunInterval(previous time.Duration, failed bool, factor float64) time.Duration {
	multiplier := 1 - factor
	if failed {
		multiplier = 1 + factor
	}
	return time.Duration(float64(previous) * multiplier).Truncate(time.Second)
}

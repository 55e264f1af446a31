package runner_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/eventcrawl/internal/clock"
	"github.com/jonesrussell/eventcrawl/internal/config"
	"github.com/jonesrussell/eventcrawl/internal/database"
	"github.com/jonesrussell/eventcrawl/internal/domain"
	"github.com/jonesrussell/eventcrawl/internal/logger"
	"github.com/jonesrussell/eventcrawl/internal/metrics"
	"github.com/jonesrussell/eventcrawl/internal/runner"
)

var testNow = time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)

type fakeRunRepo struct {
	records []*domain.RunRecord
}

func (r *fakeRunRepo) Latest(_ context.Context) (*domain.RunRecord, error) {
	if len(r.records) == 0 {
		return nil, database.ErrNoRuns
	}
	latest := r.records[len(r.records)-1]
	copied := *latest
	return &copied, nil
}

func (r *fakeRunRepo) Insert(_ context.Context, record *domain.RunRecord) error {
	copied := *record
	r.records = append(r.records, &copied)
	return nil
}

type fakeOrchestrator struct {
	crawled []string
	errs    map[string]error
}

func (o *fakeOrchestrator) CrawlCity(_ context.Context, city string) error {
	o.crawled = append(o.crawled, city)
	return o.errs[city]
}

func newTestRunner(cities ...string) (*runner.Runner, *fakeRunRepo, *fakeOrchestrator, *clock.Fake) {
	cfg := config.CrawlConfig{
		SourceBaseURL: "https://social.example",
		Cities:        cities,
		SearchTerms:   []string{"salsa"},
	}
	cfg.SetDefaults()

	repo := &fakeRunRepo{}
	orchestrator := &fakeOrchestrator{errs: map[string]error{}}
	clk := clock.NewFake(testNow)
	r := runner.NewRunner(
		repo, orchestrator, clk, cfg,
		logger.NewNop(), metrics.NewMetrics(prometheus.NewRegistry()),
	)
	return r, repo, orchestrator, clk
}

func TestRunOnce_FirstRunUsesBaseInterval(t *testing.T) {
	r, repo, orchestrator, _ := newTestRunner("Karlsruhe")

	require.NoError(t, r.RunOnce(context.Background()))

	assert.Equal(t, []string{"Karlsruhe"}, orchestrator.crawled)
	require.Len(t, repo.records, 1)

	record := repo.records[0]
	assert.NotEmpty(t, record.ID)
	assert.False(t, record.Failed())
	// 6h base shrunk by 0.3 on success: next run 4.2h after run end.
	assert.Equal(t, record.RunEnd.Add(4*time.Hour+12*time.Minute), record.NextRunAt)
}

func TestRunOnce_FailureGrowsInterval(t *testing.T) {
	r, repo, orchestrator, _ := newTestRunner("Karlsruhe")
	cause := errors.New("capability event_fetch failed")
	orchestrator.errs["Karlsruhe"] = cause

	err := r.RunOnce(context.Background())
	require.ErrorIs(t, err, cause)

	// The record was persisted before the error surfaced.
	require.Len(t, repo.records, 1)
	record := repo.records[0]
	assert.True(t, record.Failed())
	require.NotNil(t, record.ErrorMessage)
	assert.Contains(t, *record.ErrorMessage, "event_fetch")
	// 6h base grown by 0.3 on failure: next run 7.8h after run end.
	assert.Equal(t, record.RunEnd.Add(7*time.Hour+48*time.Minute), record.NextRunAt)
}

func TestRunOnce_NotDueIsNoOp(t *testing.T) {
	r, repo, orchestrator, _ := newTestRunner("Karlsruhe")
	future := testNow.Add(time.Hour)
	repo.records = append(repo.records, &domain.RunRecord{
		ID:        "run-1",
		RunStart:  testNow.Add(-5 * time.Hour),
		RunEnd:    testNow.Add(-5 * time.Hour),
		NextRunAt: future,
	})

	require.NoError(t, r.RunOnce(context.Background()))

	assert.Empty(t, orchestrator.crawled)
	assert.Len(t, repo.records, 1)
}

func TestRunOnce_AdaptsPreviousRealizedInterval(t *testing.T) {
	r, repo, _, _ := newTestRunner("Karlsruhe")
	previousEnd := testNow.Add(-5 * time.Hour)
	repo.records = append(repo.records, &domain.RunRecord{
		ID:        "run-1",
		RunStart:  previousEnd,
		RunEnd:    previousEnd,
		NextRunAt: previousEnd.Add(4*time.Hour + 12*time.Minute),
	})

	require.NoError(t, r.RunOnce(context.Background()))

	require.Len(t, repo.records, 2)
	record := repo.records[1]
	// 4.2h realized interval shrunk again by 0.3: 2.94h.
	assert.Equal(t, record.RunEnd.Add(2*time.Hour+56*time.Minute+24*time.Second), record.NextRunAt)
}

func TestRunOnce_NegativeStoredIntervalFallsBackToBase(t *testing.T) {
	r, repo, _, _ := newTestRunner("Karlsruhe")
	previousEnd := testNow.Add(-5 * time.Hour)
	repo.records = append(repo.records, &domain.RunRecord{
		ID:        "run-1",
		RunStart:  previousEnd,
		RunEnd:    previousEnd,
		NextRunAt: previousEnd.Add(-time.Hour), // corrupted ordering
	})

	require.NoError(t, r.RunOnce(context.Background()))

	require.Len(t, repo.records, 2)
	record := repo.records[1]
	// The base 6h interval is used, shrunk on success.
	assert.Equal(t, record.RunEnd.Add(4*time.Hour+12*time.Minute), record.NextRunAt)
}

func TestRunOnce_CityFailuresAreIsolated(t *testing.T) {
	r, repo, orchestrator, _ := newTestRunner("Karlsruhe", "Stuttgart", "Mannheim")
	first := errors.New("karlsruhe abort")
	orchestrator.errs["Karlsruhe"] = first
	orchestrator.errs["Stuttgart"] = errors.New("stuttgart abort")

	err := r.RunOnce(context.Background())

	// All cities ran; the first error wins.
	assert.Equal(t, []string{"Karlsruhe", "Stuttgart", "Mannheim"}, orchestrator.crawled)
	require.ErrorIs(t, err, first)
	require.Len(t, repo.records, 1)
	assert.Contains(t, *repo.records[0].ErrorMessage, "karlsruhe")
}

func TestRunOnce_RunEndReflectsElapsedTime(t *testing.T) {
	cfg := config.CrawlConfig{
		SourceBaseURL: "https://social.example",
		Cities:        []string{"Karlsruhe"},
		SearchTerms:   []string{"salsa"},
	}
	cfg.SetDefaults()

	repo := &fakeRunRepo{}
	clk := clock.NewFake(testNow)
	slow := &slowOrchestrator{clock: clk, delay: 20 * time.Minute}
	r := runner.NewRunner(
		repo, slow, clk, cfg,
		logger.NewNop(), metrics.NewMetrics(prometheus.NewRegistry()),
	)

	require.NoError(t, r.RunOnce(context.Background()))

	require.Len(t, repo.records, 1)
	record := repo.records[0]
	assert.Equal(t, 20*time.Minute, record.RunEnd.Sub(record.RunStart))
	// The next run counts from the end of this one.
	assert.Equal(t, record.RunEnd.Add(4*time.Hour+12*time.Minute), record.NextRunAt)
}

// slowOrchestrator advances the fake clock to simulate crawl duration.
type slowOrchestrator struct {
	clock *clock.Fake
	delay time.Duration
}

func (o *slowOrchestrator) CrawlCity(_ context.Context, _ string) error {
	o.clock.Advance(o.delay)
	return nil
}

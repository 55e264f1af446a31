// Package ledger owns the lifecycle of every known scrape URL: status
// transitions, productivity tracking, and the adaptive revisit backoff.
// Nothing else writes scrape target rows.
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/jonesrussell/eventcrawl/internal/clock"
	"github.com/jonesrussell/eventcrawl/internal/config"
	"github.com/jonesrussell/eventcrawl/internal/database"
	"github.com/jonesrussell/eventcrawl/internal/domain"
	"github.com/jonesrussell/eventcrawl/internal/logger"
)

// TargetRepository is the persistence the ledger manager requires.
type TargetRepository interface {
	InsertIfAbsent(ctx context.Context, target *domain.ScrapeTarget) (bool, error)
	Get(ctx context.Context, url string) (*domain.ScrapeTarget, error)
	ListDue(ctx context.Context, city string, kind domain.TargetKind, now time.Time) ([]*domain.ScrapeTarget, error)
	UpdateVisit(ctx context.Context, url string, update database.VisitUpdate) error
	SweepExpired(ctx context.Context, city string, now time.Time) (int64, error)
}

// Manager implements the URL ledger: the single owner of scrape target state.
type Manager struct {
	repo   TargetRepository
	clock  clock.Clock
	cfg    config.CrawlConfig
	logger logger.Logger
}

// NewManager creates a ledger manager.
func NewManager(repo TargetRepository, clk clock.Clock, cfg config.CrawlConfig, log logger.Logger) *Manager {
	return &Manager{
		repo:   repo,
		clock:  clk,
		cfg:    cfg,
		logger: log,
	}
}

// UpsertIfAbsent records a newly discovered URL as unvisited. Returns
// (nil, nil) when the URL is already tracked: discovery races with itself
// across search terms and organizer pages, and the first writer wins.
func (m *Manager) UpsertIfAbsent(
	ctx context.Context,
	url string,
	kind domain.TargetKind,
	city string,
) (*domain.ScrapeTarget, error) {
	target := &domain.ScrapeTarget{
		URL:       url,
		Kind:      kind,
		City:      city,
		Status:    domain.StatusUnvisited,
		CreatedAt: m.clock.Now(),
	}

	inserted, err := m.repo.InsertIfAbsent(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("upsert target %s: %w", url, err)
	}
	if !inserted {
		return nil, nil
	}

	m.logger.Debug("Discovered new target",
		logger.String("url", url),
		logger.String("kind", string(kind)),
		logger.String("city", city),
	)
	return target, nil
}

// DueTargets returns all targets of the given kind and city due for a visit.
func (m *Manager) DueTargets(
	ctx context.Context,
	city string,
	kind domain.TargetKind,
) ([]*domain.ScrapeTarget, error) {
	targets, err := m.repo.ListDue(ctx, city, kind, m.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("list due targets for %s/%s: %w", city, kind, err)
	}
	return targets, nil
}

// RecordQueryOutcome applies a visit result to a search or organizer target.
// The revisit interval shrinks when the visit produced new events and grows
// when it did not; a target unproductive for longer than the stale window is
// retired entirely, unless this very visit was productive.
func (m *Manager) RecordQueryOutcome(ctx context.Context, url string, outcome domain.QueryOutcome) error {
	target, err := m.repo.Get(ctx, url)
	if err != nil {
		return fmt.Errorf("record query outcome for %s: %w", url, err)
	}
	if !target.Kind.IsQuery() {
		return fmt.Errorf("record query outcome for %s: target kind is %s", url, target.Kind)
	}

	now := m.clock.Now()
	productive := outcome == domain.OutcomeNewEventsFound

	previous := m.previousInterval(target, now)
	interval := nextQueryInterval(previous, productive, m.cfg.QueryAdjustmentFactor)

	update := database.VisitUpdate{
		Status:        domain.StatusVisited,
		LastVisitedAt: now,
	}
	if productive {
		update.LastProductiveAt = &now
	}

	if m.isStale(target, now, productive) {
		update.Status = domain.StatusStale
		update.NextVisitAt = nil
		m.logger.Info("Query target went stale",
			logger.String("url", url),
			logger.Duration("stale_window", m.cfg.StaleWindow),
		)
	} else {
		next := now.Add(interval)
		m.checkVisitOrdering(url, now, &next)
		update.NextVisitAt = &next
	}

	if updateErr := m.repo.UpdateVisit(ctx, url, update); updateErr != nil {
		return fmt.Errorf("record query outcome for %s: %w", url, updateErr)
	}

	m.logger.Debug("Recorded query outcome",
		logger.String("url", url),
		logger.String("outcome", string(outcome)),
		logger.String("status", string(update.Status)),
		logger.Duration("interval", interval),
	)
	return nil
}

// previousInterval reads the realized interval between the target's last
// visit and its scheduled next visit. Falls back to the configured initial
// interval on first visit; a negative stored interval is a computation bug
// upstream and is clamped to zero loudly, never absolute-valued away.
func (m *Manager) previousInterval(target *domain.ScrapeTarget, now time.Time) time.Duration {
	if target.LastVisitedAt == nil || target.NextVisitAt == nil {
		return m.cfg.InitialQueryInterval
	}

	interval := target.NextVisitAt.Sub(*target.LastVisitedAt)
	if interval < 0 {
		m.logger.Warn("Invariant violation: next visit scheduled before last visit, clamping interval to zero",
			logger.String("url", target.URL),
			logger.Time("last_visited_at", *target.LastVisitedAt),
			logger.Time("next_visit_at", *target.NextVisitAt),
			logger.Time("now", now),
		)
		return 0
	}
	return interval
}

// isStale reports whether a query target should be retired: unproductive for
// longer than the stale window, and not rescued by the current visit. The
// second condition guards against flagging a target stale solely because of
// a single visit landing on the boundary day.
func (m *Manager) isStale(target *domain.ScrapeTarget, now time.Time, productive bool) bool {
	if productive {
		return false
	}

	anchor := target.CreatedAt
	if target.LastProductiveAt != nil {
		anchor = *target.LastProductiveAt
	}
	return now.Sub(anchor) > m.cfg.StaleWindow
}

// RecordEventOutcome applies a first-discovery classification result to an
// event page target. Ingested events get a revisit schedule approaching the
// event start; terminal outcomes are never rescheduled. The event start time
// is recorded as the target's expiry for the sweep.
func (m *Manager) RecordEventOutcome(
	ctx context.Context,
	url string,
	city string,
	status domain.TargetStatus,
	eventStart *time.Time,
) error {
	// Discovery and classification can race across query targets; make sure
	// the row exists before transitioning it.
	if _, err := m.UpsertIfAbsent(ctx, url, domain.KindEventPage, city); err != nil {
		return err
	}

	return m.recordEventVisit(ctx, url, status, eventStart)
}

// RecordEventRevisit applies a refresh result to an already-ingested event
// page. An event start at or before now forces the target to expired
// regardless of the requested status.
func (m *Manager) RecordEventRevisit(
	ctx context.Context,
	url string,
	status domain.TargetStatus,
	eventStart *time.Time,
) error {
	if eventStart != nil && !eventStart.After(m.clock.Now()) {
		status = domain.StatusExpired
	}
	return m.recordEventVisit(ctx, url, status, eventStart)
}

// recordEventVisit is the shared transition for event page targets.
func (m *Manager) recordEventVisit(
	ctx context.Context,
	url string,
	status domain.TargetStatus,
	eventStart *time.Time,
) error {
	now := m.clock.Now()

	update := database.VisitUpdate{
		Status:        status,
		LastVisitedAt: now,
		Expiry:        eventStart,
	}

	switch status.Phase() {
	case domain.PhaseRevisitable:
		update.NextVisitAt = m.eventRevisitAt(url, now, eventStart)
		update.LastProductiveAt = &now
	case domain.PhaseAwaitingFirstRetry:
		next := now.Add(m.cfg.FirstRetryDelay)
		update.NextVisitAt = &next
	case domain.PhaseNew, domain.PhaseTerminal:
		// Terminal outcomes are never rescheduled; PhaseNew cannot be the
		// result of a visit.
		update.NextVisitAt = nil
	}

	m.checkVisitOrdering(url, now, update.NextVisitAt)

	if err := m.repo.UpdateVisit(ctx, url, update); err != nil {
		return fmt.Errorf("record event visit for %s: %w", url, err)
	}

	m.logger.Debug("Recorded event visit",
		logger.String("url", url),
		logger.String("status", string(status)),
	)
	return nil
}

// eventRevisitAt schedules the next visit a configured fraction of the way
// toward the event start. Returns nil when the event has started, or when the
// naive schedule would land inside the too-close-to-start window: from there
// the expiry sweep takes over, so a visit that close would be wasted.
func (m *Manager) eventRevisitAt(url string, now time.Time, eventStart *time.Time) *time.Time {
	if eventStart == nil {
		return nil
	}

	remaining := eventStart.Sub(now)
	if remaining <= 0 {
		return nil
	}

	next := now.Add(eventApproachDelta(remaining, m.cfg.EventApproachFactor))
	if next.After(eventStart.Add(-m.cfg.TooCloseWindow)) {
		m.logger.Debug("Next event visit would land too close to start, retiring from auto-revisit",
			logger.String("url", url),
			logger.Time("event_start", *eventStart),
		)
		return nil
	}

	return &next
}

// SweepExpiredEvents transitions all event targets for a city whose event
// start has passed into expired. Runs before due-target computation so an
// expired page is never handed to the orchestrator; safe to run repeatedly.
func (m *Manager) SweepExpiredEvents(ctx context.Context, city string) (int64, error) {
	swept, err := m.repo.SweepExpired(ctx, city, m.clock.Now())
	if err != nil {
		return 0, fmt.Errorf("sweep expired events for %s: %w", city, err)
	}

	if swept > 0 {
		m.logger.Info("Swept expired event targets",
			logger.String("city", city),
			logger.Int64("count", swept),
		)
	}
	return swept, nil
}

// checkVisitOrdering logs loudly when a computed next visit precedes the
// visit being recorded. This is a computation bug, not a data condition; the
// row is still written so the crawl can continue, but never silently.
func (m *Manager) checkVisitOrdering(url string, lastVisitedAt time.Time, nextVisitAt *time.Time) {
	if nextVisitAt != nil && nextVisitAt.Before(lastVisitedAt) {
		m.logger.Warn("Invariant violation: computed next visit before last visit",
			logger.String("url", url),
			logger.Time("last_visited_at", lastVisitedAt),
			logger.Time("next_visit_at", *nextVisitAt),
		)
	}
}

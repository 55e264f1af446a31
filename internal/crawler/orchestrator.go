// Package crawler drives one discovery and refresh cycle per city: expanding
// search and organizer targets into candidate event URLs, classifying and
// ingesting new events, refreshing known ones as their start time approaches,
// and containing scraper failures per capability.
package crawler

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/jonesrussell/eventcrawl/internal/catalog"
	"github.com/jonesrussell/eventcrawl/internal/clock"
	"github.com/jonesrussell/eventcrawl/internal/config"
	"github.com/jonesrussell/eventcrawl/internal/domain"
	"github.com/jonesrussell/eventcrawl/internal/location"
	"github.com/jonesrussell/eventcrawl/internal/logger"
	"github.com/jonesrussell/eventcrawl/internal/metrics"
	"github.com/jonesrussell/eventcrawl/internal/scraper"
)

// Ledger is the URL ledger surface the orchestrator drives. Implemented by
// ledger.Manager.
type Ledger interface {
	UpsertIfAbsent(ctx context.Context, url string, kind domain.TargetKind, city string) (*domain.ScrapeTarget, error)
	DueTargets(ctx context.Context, city string, kind domain.TargetKind) ([]*domain.ScrapeTarget, error)
	RecordQueryOutcome(ctx context.Context, url string, outcome domain.QueryOutcome) error
	RecordEventOutcome(ctx context.Context, url string, city string, status domain.TargetStatus, eventStart *time.Time) error
	RecordEventRevisit(ctx context.Context, url string, status domain.TargetStatus, eventStart *time.Time) error
	SweepExpiredEvents(ctx context.Context, city string) (int64, error)
}

// Params bundles the orchestrator's collaborators.
type Params struct {
	Ledger   Ledger
	Scraper  scraper.Scraper
	Catalog  catalog.Catalog
	Resolver location.Resolver
	Clock    clock.Clock
	Config   config.CrawlConfig
	Logger   logger.Logger
	Metrics  *metrics.Metrics
}

// Orchestrator runs one crawl cycle for one city at a time. It is not safe
// for concurrent use; the scraping source is rate limited and serial
// processing is what makes the ledger's backoff arithmetic meaningful.
type Orchestrator struct {
	ledger   Ledger
	scraper  scraper.Scraper
	catalog  catalog.Catalog
	resolver location.Resolver
	clock    clock.Clock
	cfg      config.CrawlConfig
	logger   logger.Logger
	metrics  *metrics.Metrics
}

// NewOrchestrator creates a crawl orchestrator.
func NewOrchestrator(p Params) *Orchestrator {
	return &Orchestrator{
		ledger:   p.Ledger,
		scraper:  p.Scraper,
		catalog:  p.Catalog,
		resolver: p.Resolver,
		clock:    p.Clock,
		cfg:      p.Config,
		logger:   p.Logger,
		metrics:  p.Metrics,
	}
}

// CrawlCity runs one full cycle for a city: sweep, seed, expand, refresh,
// sweep. A CapabilityError aborts the cycle; persistence errors propagate.
func (o *Orchestrator) CrawlCity(ctx context.Context, city string) error {
	o.logger.Info("Starting crawl cycle", logger.String("city", city))

	// Pre-pass so an already-expired event page is never handed out below.
	if err := o.sweep(ctx, city); err != nil {
		return err
	}

	if err := o.seed(ctx, city); err != nil {
		return err
	}

	tracker := newErrorTracker(o.cfg.CapabilityErrorThreshold)

	if err := o.expand(ctx, city, tracker); err != nil {
		return err
	}
	if err := o.refresh(ctx, city, tracker); err != nil {
		return err
	}

	if err := o.sweep(ctx, city); err != nil {
		return err
	}

	o.logger.Info("Finished crawl cycle", logger.String("city", city))
	return nil
}

// sweep expires event targets whose start time has passed.
func (o *Orchestrator) sweep(ctx context.Context, city string) error {
	swept, err := o.ledger.SweepExpiredEvents(ctx, city)
	if err != nil {
		return err
	}
	o.metrics.RecordTargetsSwept(city, swept)
	return nil
}

// seed ensures one search target exists per search term and category filter
// combination. Idempotent: known URLs are left untouched.
func (o *Orchestrator) seed(ctx context.Context, city string) error {
	filters := o.cfg.CategoryFilters
	if len(filters) == 0 {
		filters = []string{""}
	}

	for _, term := range o.cfg.SearchTerms {
		for _, filter := range filters {
			searchURL := buildSearchURL(o.cfg.SourceBaseURL, city, term, filter)
			if _, err := o.ledger.UpsertIfAbsent(ctx, searchURL, domain.KindSearchQuery, city); err != nil {
				return err
			}
		}
	}
	return nil
}

// buildSearchURL assembles the source site's event search URL for one term,
// city, and optional category filter.
func buildSearchURL(base, city, term, category string) string {
	query := url.Values{}
	query.Set("q", term)
	query.Set("location", city)
	if category != "" {
		query.Set("category", category)
	}
	return strings.TrimSuffix(base, "/") + "/events/search?" + query.Encode()
}

// expand processes every due search and organizer target: list candidate
// event URLs, classify the unseen ones, and feed the aggregate outcome back
// into the query target's backoff.
func (o *Orchestrator) expand(ctx context.Context, city string, tracker *errorTracker) error {
	kinds := []struct {
		kind       domain.TargetKind
		capability Capability
		list       func(context.Context, string) ([]string, error)
	}{
		{domain.KindSearchQuery, CapabilitySearchExpansion, o.scraper.ListEventURLsFromSearch},
		{domain.KindOrganizerPage, CapabilityOrganizerExpansion, o.scraper.ListEventURLsFromOrganizer},
	}

	for _, k := range kinds {
		targets, err := o.ledger.DueTargets(ctx, city, k.kind)
		if err != nil {
			return err
		}

		for _, target := range targets {
			candidates, listErr := o.listWithTimeout(ctx, k.list, target.URL)
			if listErr != nil {
				if fatal := o.recordFailure(tracker, k.capability, listErr); fatal != nil {
					return fatal
				}
				// The target stays due; a transient listing failure must not
				// grow its backoff interval.
				o.logger.Warn("Failed to expand query target",
					logger.String("url", target.URL),
					logger.Error(listErr),
				)
				continue
			}
			tracker.success(k.capability)
			o.metrics.RecordTargetVisited(city, string(k.kind))

			newEvents := 0
			for _, candidate := range candidates {
				ingested, classifyErr := o.classifyNewURL(ctx, city, candidate, tracker)
				if classifyErr != nil {
					return classifyErr
				}
				if ingested {
					newEvents++
				}
			}

			outcome := domain.OutcomeNoNewEventsFound
			if newEvents > 0 {
				outcome = domain.OutcomeNewEventsFound
			}
			if err := o.ledger.RecordQueryOutcome(ctx, target.URL, outcome); err != nil {
				return err
			}
		}
	}
	return nil
}

// refresh processes due event page targets. Already-ingested pages get a
// catalog refresh and a new revisit schedule; pages whose first attempt
// failed go through first-discovery classification again.
func (o *Orchestrator) refresh(ctx context.Context, city string, tracker *errorTracker) error {
	targets, err := o.ledger.DueTargets(ctx, city, domain.KindEventPage)
	if err != nil {
		return err
	}

	for _, target := range targets {
		var refreshErr error
		if target.Status == domain.StatusVisited {
			refreshErr = o.refreshEvent(ctx, city, target, tracker)
		} else {
			_, refreshErr = o.classifyTarget(ctx, city, target.URL, tracker)
		}
		if refreshErr != nil {
			return refreshErr
		}
	}
	return nil
}

// refreshEvent re-fetches one ingested event page, updates the catalog's
// mutable fields, and reschedules the next revisit. A start time now in the
// past expires the target via RecordEventRevisit.
func (o *Orchestrator) refreshEvent(
	ctx context.Context,
	city string,
	target *domain.ScrapeTarget,
	tracker *errorTracker,
) error {
	data, fetchErr := o.fetchWithTimeout(ctx, target.URL)
	if fetchErr != nil {
		if fatal := o.recordFailure(tracker, CapabilityEventFetch, fetchErr); fatal != nil {
			return fatal
		}
		// Still due next cycle; nothing to record.
		o.logger.Warn("Failed to refresh event page",
			logger.String("url", target.URL),
			logger.Error(fetchErr),
		)
		return nil
	}
	tracker.success(CapabilityEventFetch)
	o.metrics.RecordTargetVisited(city, string(domain.KindEventPage))

	if err := o.updateCatalogEvent(ctx, city, target, data); err != nil {
		return err
	}

	return o.ledger.RecordEventRevisit(ctx, target.URL, domain.StatusVisited, data.StartTime)
}

// updateCatalogEvent pushes refreshed mutable fields into the catalog. An
// event whose time or place changed since ingestion is stored as a fresh row.
func (o *Orchestrator) updateCatalogEvent(
	ctx context.Context,
	city string,
	target *domain.ScrapeTarget,
	data *domain.EventData,
) error {
	if data.Coordinates == nil || data.StartTime == nil {
		o.logger.Debug("Refreshed event page lost structured data, skipping catalog update",
			logger.String("url", target.URL),
		)
		return nil
	}
	if !data.StartTime.After(o.clock.Now()) {
		// RecordEventRevisit expires the target; the catalog row stands.
		return nil
	}

	existing, err := o.catalog.FindEventByCoordinatesAndTime(ctx, *data.Coordinates, *data.StartTime)
	if err != nil {
		if !isNotFound(err) {
			return err
		}
		if _, createErr := o.catalog.CreateEvent(ctx, eventParams(data)); createErr != nil {
			return createErr
		}
		o.metrics.RecordEventIngested(city)
		return nil
	}

	if err := o.catalog.UpdateEvent(ctx, existing.ID, eventParams(data)); err != nil {
		return err
	}
	o.metrics.RecordEventRefreshed(city)
	return nil
}

// recordFailure books one capability failure and escalates to a fatal
// CapabilityError when the consecutive count exceeds the threshold.
func (o *Orchestrator) recordFailure(tracker *errorTracker, c Capability, err error) error {
	o.metrics.RecordCapabilityFailure(c.String())
	fatal := tracker.failure(c, err)
	if fatal != nil {
		o.metrics.RecordCapabilityAbort(c.String())
		o.logger.Error("Capability failure threshold exceeded, aborting city cycle",
			logger.String("capability", c.String()),
			logger.Error(err),
		)
	}
	return fatal
}

// listWithTimeout runs one listing call under the configured scrape timeout.
func (o *Orchestrator) listWithTimeout(
	ctx context.Context,
	list func(context.Context, string) ([]string, error),
	pageURL string,
) ([]string, error) {
	callCtx, cancel := context.WithTimeout(ctx, o.cfg.ScrapeTimeout)
	defer cancel()
	return list(callCtx, pageURL)
}

// fetchWithTimeout runs one event fetch under the configured scrape timeout.
func (o *Orchestrator) fetchWithTimeout(ctx context.Context, eventURL string) (*domain.EventData, error) {
	callCtx, cancel := context.WithTimeout(ctx, o.cfg.ScrapeTimeout)
	defer cancel()
	return o.scraper.FetchEventData(callCtx, eventURL)
}

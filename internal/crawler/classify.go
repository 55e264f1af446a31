package crawler

import (
	"context"
	"errors"
	"strings"

	"github.com/jonesrussell/eventcrawl/internal/catalog"
	"github.com/jonesrussell/eventcrawl/internal/domain"
	"github.com/jonesrussell/eventcrawl/internal/logger"
)

// classifyNewURL runs the classification pipeline for a candidate URL found
// during expansion. URLs already tracked by the ledger are skipped; the
// returned bool reports whether a new catalog event was ingested.
func (o *Orchestrator) classifyNewURL(
	ctx context.Context,
	city string,
	eventURL string,
	tracker *errorTracker,
) (bool, error) {
	target, err := o.ledger.UpsertIfAbsent(ctx, eventURL, domain.KindEventPage, city)
	if err != nil {
		return false, err
	}
	if target == nil {
		// Already tracked; its own lifecycle decides when it is seen again.
		return false, nil
	}

	return o.classifyTarget(ctx, city, eventURL, tracker)
}

// classifyTarget fetches an event page and applies the rejection rules in
// fixed order: relevance, past event, missing location, coordinate
// resolution, proximity. An event passing all rules is ingested into the
// catalog; a rejection is a durable terminal outcome, never an error.
func (o *Orchestrator) classifyTarget(
	ctx context.Context,
	city string,
	eventURL string,
	tracker *errorTracker,
) (bool, error) {
	data, fetchErr := o.fetchWithTimeout(ctx, eventURL)
	if fetchErr != nil {
		if fatal := o.recordFailure(tracker, CapabilityEventFetch, fetchErr); fatal != nil {
			return false, fatal
		}
		if err := o.ledger.RecordEventOutcome(ctx, eventURL, city, domain.StatusFirstAttemptFailed, nil); err != nil {
			return false, err
		}
		return false, nil
	}
	tracker.success(CapabilityEventFetch)
	o.metrics.RecordTargetVisited(city, string(domain.KindEventPage))

	status, coords, ruleErr := o.applyRejectionRules(ctx, data)
	if ruleErr != nil {
		return false, ruleErr
	}
	if status != domain.StatusVisited {
		o.metrics.RecordRejection(city, string(status))
		o.logger.Debug("Rejected candidate event",
			logger.String("url", eventURL),
			logger.String("reason", string(status)),
		)
		if err := o.ledger.RecordEventOutcome(ctx, eventURL, city, status, data.StartTime); err != nil {
			return false, err
		}
		return false, nil
	}

	ingested, err := o.ingest(ctx, city, eventURL, data, coords)
	if err != nil {
		return false, err
	}

	if err := o.discoverOrganizer(ctx, city, eventURL, data, tracker); err != nil {
		return false, err
	}

	return ingested, nil
}

// applyRejectionRules evaluates the fixed-order classification rules and
// returns StatusVisited with resolved coordinates on a pass, or the specific
// rejection status. Resolver failures are rejections, not crawl errors; a
// failed proximity lookup is a persistence error and propagates instead of
// permanently rejecting the URL.
func (o *Orchestrator) applyRejectionRules(
	ctx context.Context,
	data *domain.EventData,
) (domain.TargetStatus, *domain.Coordinates, error) {
	if !o.isRelevant(data) {
		return domain.StatusNotRelevant, nil, nil
	}

	// An event without a parseable start time can never be scheduled or
	// deduplicated, so it fails the temporal rule too.
	if data.StartTime == nil || !data.StartTime.After(o.clock.Now()) {
		return domain.StatusInPast, nil, nil
	}

	if data.LocationName == "" && data.Coordinates == nil {
		return domain.StatusMissingLocation, nil, nil
	}

	coords := data.Coordinates
	if coords == nil {
		resolved, err := o.resolver.ResolveCoordinates(ctx, data.LocationName)
		if err != nil {
			o.logger.Debug("Coordinate resolution failed",
				logger.String("location", data.LocationName),
				logger.Error(err),
			)
			return domain.StatusMissingCoordinates, nil, nil
		}
		coords = resolved
	}

	groups, err := o.catalog.FindGroupsNear(ctx, *coords, o.cfg.ProximityRadiusKm)
	if err != nil {
		return "", nil, err
	}
	if len(groups) == 0 {
		return domain.StatusOutsideProximity, nil, nil
	}

	return domain.StatusVisited, coords, nil
}

// isRelevant reports whether the event mentions at least one configured
// relevance keyword in its name, location, or description.
func (o *Orchestrator) isRelevant(data *domain.EventData) bool {
	haystack := strings.ToLower(data.Name + " " + data.LocationName + " " + data.Description)
	for _, keyword := range o.cfg.RelevanceKeywords {
		if strings.Contains(haystack, strings.ToLower(keyword)) {
			return true
		}
	}
	return false
}

// ingest writes the event into the catalog and marks the URL visited. The
// catalog write comes first: if the ledger write then fails, the URL is
// parked as retryable instead of visited, and the catalog row stands — the
// dedup lookup absorbs the replay.
func (o *Orchestrator) ingest(
	ctx context.Context,
	city string,
	eventURL string,
	data *domain.EventData,
	coords *domain.Coordinates,
) (bool, error) {
	params := eventParams(data)
	params.Coordinates = *coords

	created := false
	existing, err := o.catalog.FindEventByCoordinatesAndTime(ctx, *coords, *data.StartTime)
	switch {
	case isNotFound(err):
		if _, createErr := o.catalog.CreateEvent(ctx, params); createErr != nil {
			return false, createErr
		}
		created = true
		o.metrics.RecordEventIngested(city)
	case err != nil:
		return false, err
	default:
		// The same event reachable through another URL: refresh, don't duplicate.
		if updateErr := o.catalog.UpdateEvent(ctx, existing.ID, params); updateErr != nil {
			return false, updateErr
		}
		o.metrics.RecordEventRefreshed(city)
	}

	if err := o.ledger.RecordEventOutcome(ctx, eventURL, city, domain.StatusVisited, data.StartTime); err != nil {
		o.logger.Warn("Ledger write failed after catalog ingest, parking URL for retry",
			logger.String("url", eventURL),
			logger.Error(err),
		)
		if parkErr := o.ledger.RecordEventOutcome(ctx, eventURL, city, domain.StatusFirstAttemptFailed, nil); parkErr != nil {
			return false, parkErr
		}
		return false, err
	}

	return created, nil
}

// discoverOrganizer cross-links the event's organizer page into the ledger so
// it is expanded on its own cadence. The scraper is only consulted when the
// event data did not already carry the organizer link.
func (o *Orchestrator) discoverOrganizer(
	ctx context.Context,
	city string,
	eventURL string,
	data *domain.EventData,
	tracker *errorTracker,
) error {
	organizerURL := data.OrganizerURL
	if organizerURL == "" {
		callCtx, cancel := context.WithTimeout(ctx, o.cfg.ScrapeTimeout)
		fetched, err := o.scraper.FetchOrganizerURL(callCtx, eventURL)
		cancel()
		if err != nil {
			if fatal := o.recordFailure(tracker, CapabilityOrganizerDiscovery, err); fatal != nil {
				return fatal
			}
			return nil
		}
		tracker.success(CapabilityOrganizerDiscovery)
		organizerURL = fetched
	}
	if organizerURL == "" {
		return nil
	}

	_, err := o.ledger.UpsertIfAbsent(ctx, organizerURL, domain.KindOrganizerPage, city)
	return err
}

// eventParams maps scraped event data to catalog write parameters. The
// caller fills Coordinates from the resolved value.
func eventParams(data *domain.EventData) catalog.EventParams {
	params := catalog.EventParams{
		Name:          data.Name,
		Description:   data.Description,
		LocationName:  data.LocationName,
		EndTime:       data.EndTime,
		InterestCount: data.InterestCount,
		SourceURL:     data.URL,
	}
	if data.StartTime != nil {
		params.StartTime = *data.StartTime
	}
	if data.Coordinates != nil {
		params.Coordinates = *data.Coordinates
	}
	return params
}

// isNotFound reports whether err is the catalog's not-found sentinel.
func isNotFound(err error) bool {
	return errors.Is(err, catalog.ErrEventNotFound)
}

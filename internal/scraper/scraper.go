// Package scraper defines the page-scraping collaborator consumed by the
// crawl orchestrator, plus a colly-backed implementation. The orchestrator
// only ever sees this interface; every call may fail transiently and the
// orchestrator's per-capability error counters decide what that means.
package scraper

import (
	"context"

	"github.com/jonesrussell/eventcrawl/internal/domain"
)

// Scraper lists and fetches event pages from the source site.
type Scraper interface {
	// ListEventURLsFromSearch returns candidate event URLs from a search
	// results page.
	ListEventURLsFromSearch(ctx context.Context, searchURL string) ([]string, error)
	// ListEventURLsFromOrganizer returns candidate event URLs from an
	// organizer's page.
	ListEventURLsFromOrganizer(ctx context.Context, organizerURL string) ([]string, error)
	// FetchOrganizerURL returns the organizer page linked from an event
	// page, or "" when the event has none.
	FetchOrganizerURL(ctx context.Context, eventURL string) (string, error)
	// FetchEventData extracts structured event data from an event page.
	FetchEventData(ctx context.Context, eventURL string) (*domain.EventData, error)
}

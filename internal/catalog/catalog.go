// Package catalog defines the event catalog collaborator consumed by the
// crawl orchestrator, plus a PostgreSQL-backed implementation. The public
// API serving these rows lives elsewhere; the crawler only writes events and
// reads group locations for the proximity filter.
package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/jonesrussell/eventcrawl/internal/domain"
)

// ErrEventNotFound is returned when no catalog event matches a lookup.
// Callers should check with errors.Is().
var ErrEventNotFound = errors.New("catalog event not found")

// EventParams carries the writable fields of a catalog event.
type EventParams struct {
	Name          string
	Description   string
	LocationName  string
	Coordinates   domain.Coordinates
	StartTime     time.Time
	EndTime       *time.Time
	InterestCount int
	SourceURL     string
}

// Catalog is the event store the orchestrator ingests into.
type Catalog interface {
	// FindEventByCoordinatesAndTime returns the event at the given place
	// and start time, or ErrEventNotFound. Used to dedup events reachable
	// through multiple URLs.
	FindEventByCoordinatesAndTime(ctx context.Context, coords domain.Coordinates, start time.Time) (*domain.Event, error)
	// CreateEvent ingests a new event.
	CreateEvent(ctx context.Context, params EventParams) (*domain.Event, error)
	// UpdateEvent overwrites an event's mutable fields.
	UpdateEvent(ctx context.Context, id string, params EventParams) error
	// IncrementInterest adjusts an event's interest count by delta.
	IncrementInterest(ctx context.Context, id string, delta int) error
	// FindGroupsNear returns all groups within radiusKm of coords.
	FindGroupsNear(ctx context.Context, coords domain.Coordinates, radiusKm float64) ([]*domain.Group, error)
}

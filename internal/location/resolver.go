// Package location resolves free-form location names to coordinates and
// coordinates back to city names. Resolution failures are classification
// signals for the crawl pipeline, never crawl-fatal.
package location

import (
	"context"
	"errors"

	"github.com/jonesrussell/eventcrawl/internal/domain"
)

// ErrLocationNotFound is returned when the geocoding backend has no result
// for a query. Callers should check with errors.Is().
var ErrLocationNotFound = errors.New("location not found")

// Resolver geocodes location names and reverse-geocodes coordinates.
type Resolver interface {
	// ResolveCoordinates returns the coordinates for a free-form location
	// name, or ErrLocationNotFound.
	ResolveCoordinates(ctx context.Context, name string) (*domain.Coordinates, error)
	// ResolveCityName returns the city containing the given coordinates,
	// or ErrLocationNotFound.
	ResolveCityName(ctx context.Context, coords domain.Coordinates) (string, error)
}

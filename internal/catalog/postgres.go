package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/eventcrawl/internal/clock"
	"github.com/jonesrussell/eventcrawl/internal/domain"
)

// coordEpsilon is the tolerance for matching event coordinates, roughly 50m
// at European latitudes. Two listings of the same event occasionally carry
// geocodes that differ in the last decimals.
const coordEpsilon = 0.0005

// eventSelectColumns lists columns for SELECT queries on events.
const eventSelectColumns = `id, name, description, location_name, latitude, longitude,
	start_time, end_time, interest_count, source_url, created_at, updated_at`

// groupSelectColumns lists columns for SELECT queries on groups.
const groupSelectColumns = `id, name, city, latitude, longitude, member_count`

// PostgresCatalog implements Catalog over the events and groups tables.
type PostgresCatalog struct {
	db    *sqlx.DB
	clock clock.Clock
}

// NewPostgresCatalog creates a new catalog backed by PostgreSQL.
func NewPostgresCatalog(db *sqlx.DB, clk clock.Clock) *PostgresCatalog {
	return &PostgresCatalog{db: db, clock: clk}
}

// FindEventByCoordinatesAndTime returns the event at the given place and
// start time, or ErrEventNotFound.
func (c *PostgresCatalog) FindEventByCoordinatesAndTime(
	ctx context.Context,
	coords domain.Coordinates,
	start time.Time,
) (*domain.Event, error) {
	query := `
		SELECT ` + eventSelectColumns + `
		FROM events
		WHERE ABS(latitude - $1) < $3
		  AND ABS(longitude - $2) < $3
		  AND start_time = $4
		LIMIT 1
	`

	var event domain.Event
	err := c.db.GetContext(ctx, &event, query, coords.Latitude, coords.Longitude, coordEpsilon, start)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to find event by coordinates and time: %w", err)
	}

	return &event, nil
}

// CreateEvent ingests a new event and returns the stored row.
func (c *PostgresCatalog) CreateEvent(ctx context.Context, params EventParams) (*domain.Event, error) {
	now := c.clock.Now()
	event := &domain.Event{
		ID:            uuid.New().String(),
		Name:          params.Name,
		Description:   params.Description,
		LocationName:  params.LocationName,
		Latitude:      params.Coordinates.Latitude,
		Longitude:     params.Coordinates.Longitude,
		StartTime:     params.StartTime,
		EndTime:       params.EndTime,
		InterestCount: params.InterestCount,
		SourceURL:     params.SourceURL,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	query := `
		INSERT INTO events (
			id, name, description, location_name, latitude, longitude,
			start_time, end_time, interest_count, source_url, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := c.db.ExecContext(
		ctx, query,
		event.ID, event.Name, event.Description, event.LocationName,
		event.Latitude, event.Longitude, event.StartTime, event.EndTime,
		event.InterestCount, event.SourceURL, event.CreatedAt, event.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}

	return event, nil
}

// UpdateEvent overwrites an event's mutable fields.
func (c *PostgresCatalog) UpdateEvent(ctx context.Context, id string, params EventParams) error {
	query := `
		UPDATE events
		SET name = $2, description = $3, location_name = $4,
		    latitude = $5, longitude = $6, start_time = $7, end_time = $8,
		    interest_count = $9, source_url = $10, updated_at = $11
		WHERE id = $1
	`

	result, err := c.db.ExecContext(
		ctx, query,
		id, params.Name, params.Description, params.LocationName,
		params.Coordinates.Latitude, params.Coordinates.Longitude,
		params.StartTime, params.EndTime, params.InterestCount,
		params.SourceURL, c.clock.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to update event: %w", err)
	}

	return requireRows(result, "update event")
}

// IncrementInterest adjusts an event's interest count by delta.
func (c *PostgresCatalog) IncrementInterest(ctx context.Context, id string, delta int) error {
	query := `
		UPDATE events
		SET interest_count = interest_count + $2, updated_at = $3
		WHERE id = $1
	`

	result, err := c.db.ExecContext(ctx, query, id, delta, c.clock.Now())
	if err != nil {
		return fmt.Errorf("failed to increment interest count: %w", err)
	}

	return requireRows(result, "increment interest count")
}

// FindGroupsNear returns all groups within radiusKm of coords, nearest
// first. Distance is great-circle via the haversine formula evaluated in SQL.
func (c *PostgresCatalog) FindGroupsNear(
	ctx context.Context,
	coords domain.Coordinates,
	radiusKm float64,
) ([]*domain.Group, error) {
	query := `
		SELECT ` + groupSelectColumns + `
		FROM groups
		WHERE 6371 * 2 * ASIN(SQRT(
			POWER(SIN(RADIANS(latitude - $1) / 2), 2) +
			COS(RADIANS($1)) * COS(RADIANS(latitude)) *
			POWER(SIN(RADIANS(longitude - $2) / 2), 2)
		)) <= $3
		ORDER BY 6371 * 2 * ASIN(SQRT(
			POWER(SIN(RADIANS(latitude - $1) / 2), 2) +
			COS(RADIANS($1)) * COS(RADIANS(latitude)) *
			POWER(SIN(RADIANS(longitude - $2) / 2), 2)
		)) ASC
	`

	var groups []*domain.Group
	err := c.db.SelectContext(ctx, &groups, query, coords.Latitude, coords.Longitude, radiusKm)
	if err != nil {
		return nil, fmt.Errorf("failed to find groups near coordinates: %w", err)
	}

	return groups, nil
}

// requireRows fails when an UPDATE matched no row.
func requireRows(result sql.Result, operation string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for %s: %w", operation, err)
	}
	if rows == 0 {
		return ErrEventNotFound
	}

	return nil
}

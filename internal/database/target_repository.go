package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/eventcrawl/internal/domain"
)

// ErrTargetNotFound is returned when a target URL has no ledger row.
// Callers should check with errors.Is().
var ErrTargetNotFound = errors.New("scrape target not found")

// Target repository constants.
const (
	defaultTargetLimit = 100

	// targetSelectColumns lists columns for SELECT queries on scrape_targets.
	targetSelectColumns = `url, kind, city, status, expiry, next_visit_at,
		last_visited_at, last_productive_at, created_at`
)

// TargetRepository handles database operations for the URL ledger.
// All timestamps are supplied by the caller so that scheduling decisions stay
// on the injected clock; the repository never calls NOW().
type TargetRepository struct {
	db *sqlx.DB
}

// NewTargetRepository creates a new target repository.
func NewTargetRepository(db *sqlx.DB) *TargetRepository {
	return &TargetRepository{db: db}
}

// InsertIfAbsent inserts a new target row. Returns false without error when a
// row with the same URL already exists: discovery races with itself across
// search terms and must be idempotent.
func (r *TargetRepository) InsertIfAbsent(ctx context.Context, target *domain.ScrapeTarget) (bool, error) {
	query := `
		INSERT INTO scrape_targets (url, kind, city, status, expiry, next_visit_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (url) DO NOTHING
	`

	result, err := r.db.ExecContext(
		ctx, query,
		target.URL, target.Kind, target.City, target.Status,
		target.Expiry, target.NextVisitAt, target.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert scrape target: %w", err)
	}

	n, affectedErr := result.RowsAffected()
	if affectedErr != nil {
		return false, fmt.Errorf("failed to read insert result: %w", affectedErr)
	}

	return n > 0, nil
}

// Get returns the target for a URL, or ErrTargetNotFound.
func (r *TargetRepository) Get(ctx context.Context, url string) (*domain.ScrapeTarget, error) {
	query := `SELECT ` + targetSelectColumns + ` FROM scrape_targets WHERE url = $1`

	var target domain.ScrapeTarget
	if err := r.db.GetContext(ctx, &target, query, url); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTargetNotFound
		}
		return nil, fmt.Errorf("failed to get scrape target: %w", err)
	}

	return &target, nil
}

// ListDue returns targets of the given kind and city that are due at now:
// never-visited targets plus revisitable ones whose next_visit_at has passed.
// Terminal statuses and NULL next_visit_at rows are never returned.
func (r *TargetRepository) ListDue(
	ctx context.Context,
	city string,
	kind domain.TargetKind,
	now time.Time,
) ([]*domain.ScrapeTarget, error) {
	query := `
		SELECT ` + targetSelectColumns + `
		FROM scrape_targets
		WHERE city = $1
		  AND kind = $2
		  AND (
			status = 'unvisited'
			OR (status IN ('visited', 'first_attempt_failed')
				AND next_visit_at IS NOT NULL
				AND next_visit_at <= $3)
		  )
		ORDER BY next_visit_at ASC NULLS FIRST, created_at ASC
	`

	var targets []*domain.ScrapeTarget
	if err := r.db.SelectContext(ctx, &targets, query, city, kind, now); err != nil {
		return nil, fmt.Errorf("failed to list due targets: %w", err)
	}

	if targets == nil {
		targets = []*domain.ScrapeTarget{}
	}

	return targets, nil
}

// VisitUpdate carries the fields a status transition writes. Nil pointer
// fields overwrite with NULL for NextVisitAt but are preserved for
// LastProductiveAt and Expiry (those only ever move forward on productive
// visits or first discovery).
type VisitUpdate struct {
	Status           domain.TargetStatus
	NextVisitAt      *time.Time
	LastVisitedAt    time.Time
	LastProductiveAt *time.Time
	Expiry           *time.Time
}

// UpdateVisit applies a status transition to a target row.
func (r *TargetRepository) UpdateVisit(ctx context.Context, url string, update VisitUpdate) error {
	query := `
		UPDATE scrape_targets
		SET status = $1,
			next_visit_at = $2,
			last_visited_at = $3,
			last_productive_at = COALESCE($4, last_productive_at),
			expiry = COALESCE($5, expiry)
		WHERE url = $6
	`

	result, execErr := r.db.ExecContext(
		ctx, query,
		update.Status, update.NextVisitAt, update.LastVisitedAt,
		update.LastProductiveAt, update.Expiry, url,
	)
	return execRequireRows(result, execErr, fmt.Errorf("%w: %s", ErrTargetNotFound, url))
}

// SweepExpired transitions all event-page targets for a city whose expiry has
// passed into expired, clearing next_visit_at. Returns the number of rows
// transitioned; running it twice in a row changes nothing the second time.
func (r *TargetRepository) SweepExpired(ctx context.Context, city string, now time.Time) (int64, error) {
	query := `
		UPDATE scrape_targets
		SET status = 'expired', next_visit_at = NULL
		WHERE city = $1
		  AND kind = 'event_page'
		  AND expiry IS NOT NULL
		  AND expiry <= $2
		  AND status <> 'expired'
	`

	result, err := r.db.ExecContext(ctx, query, city, now)
	if err != nil {
		return 0, fmt.Errorf("failed to sweep expired targets: %w", err)
	}

	n, affectedErr := result.RowsAffected()
	if affectedErr != nil {
		return 0, fmt.Errorf("failed to read sweep result: %w", affectedErr)
	}

	return n, nil
}

// TargetFilters represents filtering options for listing ledger targets.
type TargetFilters struct {
	City   string
	Kind   string
	Status string
	Limit  int
}

// List returns ledger targets for inspection tooling, newest first.
func (r *TargetRepository) List(ctx context.Context, filters TargetFilters) ([]*domain.ScrapeTarget, error) {
	whereClause, args := buildTargetWhere(filters)

	limit := filters.Limit
	if limit <= 0 {
		limit = defaultTargetLimit
	}
	args = append(args, limit)

	query := fmt.Sprintf(`
		SELECT %s
		FROM scrape_targets
		%s
		ORDER BY created_at DESC
		LIMIT $%d
	`, targetSelectColumns, whereClause, len(args))

	var targets []*domain.ScrapeTarget
	if err := r.db.SelectContext(ctx, &targets, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list scrape targets: %w", err)
	}

	if targets == nil {
		targets = []*domain.ScrapeTarget{}
	}

	return targets, nil
}

// buildTargetWhere builds the WHERE clause and args for target queries.
func buildTargetWhere(filters TargetFilters) (whereClause string, args []any) {
	var conditions []string
	args = []any{}
	argIndex := 1

	if filters.City != "" {
		conditions = append(conditions, fmt.Sprintf("city = $%d", argIndex))
		args = append(args, filters.City)
		argIndex++
	}

	if filters.Kind != "" {
		conditions = append(conditions, fmt.Sprintf("kind = $%d", argIndex))
		args = append(args, filters.Kind)
		argIndex++
	}

	if filters.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIndex))
		args = append(args, filters.Status)
	}

	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}
	return whereClause, args
}

// TargetStats contains per-status counts for one city's ledger.
type TargetStats struct {
	Unvisited int `json:"unvisited"`
	Visited   int `json:"visited"`
	Retrying  int `json:"retrying"`
	Stale     int `json:"stale"`
	Expired   int `json:"expired"`
	Rejected  int `json:"rejected"`
}

// Stats returns aggregate target counts for a city grouped by status.
func (r *TargetRepository) Stats(ctx context.Context, city string) (*TargetStats, error) {
	query := `SELECT status, COUNT(*) FROM scrape_targets WHERE city = $1 GROUP BY status`

	rows, err := r.db.QueryxContext(ctx, query, city)
	if err != nil {
		return nil, fmt.Errorf("failed to query target stats: %w", err)
	}
	defer rows.Close()

	stats := &TargetStats{}
	for rows.Next() {
		var status domain.TargetStatus
		var count int
		if scanErr := rows.Scan(&status, &count); scanErr != nil {
			return nil, fmt.Errorf("failed to scan target stats row: %w", scanErr)
		}
		assignTargetStat(stats, status, count)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("failed to iterate target stats: %w", rowsErr)
	}

	return stats, nil
}

// assignTargetStat assigns a count to the appropriate TargetStats field.
// Rejection sub-statuses are reported as one bucket.
func assignTargetStat(stats *TargetStats, status domain.TargetStatus, count int) {
	switch status {
	case domain.StatusUnvisited:
		stats.Unvisited = count
	case domain.StatusVisited:
		stats.Visited = count
	case domain.StatusFirstAttemptFailed:
		stats.Retrying = count
	case domain.StatusStale:
		stats.Stale = count
	case domain.StatusExpired:
		stats.Expired = count
	default:
		stats.Rejected += count
	}
}

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/eventcrawl/internal/domain"
)

// ErrNoRuns is returned by Latest when no crawl run has ever been recorded.
// Callers should check with errors.Is().
var ErrNoRuns = errors.New("no crawl runs recorded")

// runSelectColumns lists columns for SELECT queries on crawl_runs.
const runSelectColumns = `id, run_start, run_end, next_run_at, error_message`

// RunRepository handles database operations for the append-only run ledger.
type RunRepository struct {
	db *sqlx.DB
}

// NewRunRepository creates a new run repository.
func NewRunRepository(db *sqlx.DB) *RunRepository {
	return &RunRepository{db: db}
}

// Latest returns the most recent run record by run_start, or ErrNoRuns.
func (r *RunRepository) Latest(ctx context.Context) (*domain.RunRecord, error) {
	query := `
		SELECT ` + runSelectColumns + `
		FROM crawl_runs
		ORDER BY run_start DESC
		LIMIT 1
	`

	var record domain.RunRecord
	if err := r.db.GetContext(ctx, &record, query); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoRuns
		}
		return nil, fmt.Errorf("failed to get latest run record: %w", err)
	}

	return &record, nil
}

// Insert appends a run record. Records are never updated or deleted.
func (r *RunRepository) Insert(ctx context.Context, record *domain.RunRecord) error {
	query := `
		INSERT INTO crawl_runs (id, run_start, run_end, next_run_at, error_message)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.ExecContext(
		ctx, query,
		record.ID, record.RunStart, record.RunEnd, record.NextRunAt, record.ErrorMessage,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run record: %w", err)
	}

	return nil
}

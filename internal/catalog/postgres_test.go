package catalog_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/eventcrawl/internal/catalog"
	"github.com/jonesrussell/eventcrawl/internal/clock"
	"github.com/jonesrussell/eventcrawl/internal/domain"
)

var eventColumns = []string{
	"id", "name", "description", "location_name", "latitude", "longitude",
	"start_time", "end_time", "interest_count", "source_url", "created_at", "updated_at",
}

var groupColumns = []string{"id", "name", "city", "latitude", "longitude", "member_count"}

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}

	db := sqlx.NewDb(mockDB, "sqlmock")
	return db, mock, func() { db.Close() }
}

func expectationsMet(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled sqlmock expectations: %v", err)
	}
}

func testClock() *clock.Fake {
	return clock.NewFake(time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC))
}

func TestPostgresCatalog_FindEventByCoordinatesAndTime(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	cat := catalog.NewPostgresCatalog(db, testClock())

	start := time.Date(2026, 6, 20, 19, 0, 0, 0, time.UTC)
	now := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT .+ FROM events").
		WithArgs(49.0134, 8.4044, sqlmock.AnyArg(), start).
		WillReturnRows(
			sqlmock.NewRows(eventColumns).
				AddRow("ev-1", "Salsa Open Air", "Dancing at the castle", "Schlossplatz",
					49.0134, 8.4044, start, nil, 87, "https://social.example/events/123", now, now),
		)

	event, err := cat.FindEventByCoordinatesAndTime(
		context.Background(),
		domain.Coordinates{Latitude: 49.0134, Longitude: 8.4044},
		start,
	)
	if err != nil {
		t.Fatalf("FindEventByCoordinatesAndTime() error = %v", err)
	}
	if event.ID != "ev-1" {
		t.Errorf("expected event ev-1, got %s", event.ID)
	}

	expectationsMet(t, mock)
}

func TestPostgresCatalog_FindEventByCoordinatesAndTime_NotFound(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	cat := catalog.NewPostgresCatalog(db, testClock())

	start := time.Date(2026, 6, 20, 19, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT .+ FROM events").
		WithArgs(49.0134, 8.4044, sqlmock.AnyArg(), start).
		WillReturnRows(sqlmock.NewRows(eventColumns))

	_, err := cat.FindEventByCoordinatesAndTime(
		context.Background(),
		domain.Coordinates{Latitude: 49.0134, Longitude: 8.4044},
		start,
	)
	if !errors.Is(err, catalog.ErrEventNotFound) {
		t.Fatalf("error = %v, want ErrEventNotFound", err)
	}

	expectationsMet(t, mock)
}

func TestPostgresCatalog_CreateEvent(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	clk := testClock()
	cat := catalog.NewPostgresCatalog(db, clk)

	start := time.Date(2026, 6, 20, 19, 0, 0, 0, time.UTC)
	now := clk.Now()

	mock.ExpectExec("INSERT INTO events").
		WithArgs(
			sqlmock.AnyArg(), "Salsa Open Air", "Dancing at the castle", "Schlossplatz",
			49.0134, 8.4044, start, nil, 87, "https://social.example/events/123", now, now,
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	event, err := cat.CreateEvent(context.Background(), catalog.EventParams{
		Name:          "Salsa Open Air",
		Description:   "Dancing at the castle",
		LocationName:  "Schlossplatz",
		Coordinates:   domain.Coordinates{Latitude: 49.0134, Longitude: 8.4044},
		StartTime:     start,
		InterestCount: 87,
		SourceURL:     "https://social.example/events/123",
	})
	if err != nil {
		t.Fatalf("CreateEvent() error = %v", err)
	}
	if event.ID == "" {
		t.Error("expected generated event ID")
	}
	if !event.CreatedAt.Equal(now) {
		t.Errorf("expected CreatedAt %v, got %v", now, event.CreatedAt)
	}

	expectationsMet(t, mock)
}

func TestPostgresCatalog_UpdateEvent_NotFound(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	cat := catalog.NewPostgresCatalog(db, testClock())

	mock.ExpectExec("UPDATE events").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := cat.UpdateEvent(context.Background(), "missing", catalog.EventParams{
		Name:        "Renamed",
		Coordinates: domain.Coordinates{Latitude: 49, Longitude: 8},
		StartTime:   time.Date(2026, 6, 20, 19, 0, 0, 0, time.UTC),
	})
	if !errors.Is(err, catalog.ErrEventNotFound) {
		t.Fatalf("UpdateEvent() error = %v, want ErrEventNotFound", err)
	}

	expectationsMet(t, mock)
}

func TestPostgresCatalog_IncrementInterest(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	clk := testClock()
	cat := catalog.NewPostgresCatalog(db, clk)

	mock.ExpectExec("UPDATE events").
		WithArgs("ev-1", 5, clk.Now()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := cat.IncrementInterest(context.Background(), "ev-1", 5); err != nil {
		t.Fatalf("IncrementInterest() error = %v", err)
	}

	expectationsMet(t, mock)
}

func TestPostgresCatalog_FindGroupsNear(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	cat := catalog.NewPostgresCatalog(db, testClock())

	mock.ExpectQuery("SELECT .+ FROM groups").
		WithArgs(49.0134, 8.4044, 50.0).
		WillReturnRows(
			sqlmock.NewRows(groupColumns).
				AddRow("gr-1", "Salsa Karlsruhe", "Karlsruhe", 49.01, 8.40, 430).
				AddRow("gr-2", "Bachata Ettlingen", "Ettlingen", 48.94, 8.41, 120),
		)

	groups, err := cat.FindGroupsNear(
		context.Background(),
		domain.Coordinates{Latitude: 49.0134, Longitude: 8.4044},
		50.0,
	)
	if err != nil {
		t.Fatalf("FindGroupsNear() error = %v", err)
	}
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
	if groups[0].Name != "Salsa Karlsruhe" {
		t.Errorf("expected nearest group first, got %s", groups[0].Name)
	}

	expectationsMet(t, mock)
}

func TestPostgresCatalog_FindGroupsNear_Empty(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	cat := catalog.NewPostgresCatalog(db, testClock())

	mock.ExpectQuery("SELECT .+ FROM groups").
		WithArgs(35.6762, 139.6503, 50.0).
		WillReturnRows(sqlmock.NewRows(groupColumns))

	groups, err := cat.FindGroupsNear(
		context.Background(),
		domain.Coordinates{Latitude: 35.6762, Longitude: 139.6503},
		50.0,
	)
	if err != nil {
		t.Fatalf("FindGroupsNear() error = %v", err)
	}
	if len(groups) != 0 {
		t.Errorf("expected no groups, got %d", len(groups))
	}

	expectationsMet(t, mock)
}

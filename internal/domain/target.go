// Package domain provides the persisted models shared across the crawler.
package domain

import "time"

// TargetKind identifies what a tracked URL points at.
type TargetKind string

// Target kinds.
const (
	KindSearchQuery   TargetKind = "search_query"
	KindOrganizerPage TargetKind = "organizer_page"
	KindEventPage     TargetKind = "event_page"
)

// IsQuery reports whether the kind expands into candidate event URLs
// (search queries and organizer pages share the query lifecycle).
func (k TargetKind) IsQuery() bool {
	return k == KindSearchQuery || k == KindOrganizerPage
}

// TargetStatus is the lifecycle status of a scrape target.
type TargetStatus string

// Lifecycle statuses.
const (
	// StatusUnvisited marks a freshly discovered target, always due immediately.
	StatusUnvisited TargetStatus = "unvisited"
	// StatusVisited marks a successfully processed target, due again at NextVisitAt.
	StatusVisited TargetStatus = "visited"
	// StatusFirstAttemptFailed marks a target whose very first scrape failed.
	// Retried after a short delay rather than backed off.
	StatusFirstAttemptFailed TargetStatus = "first_attempt_failed"
	// StatusStale marks a query target retired after prolonged unproductivity.
	StatusStale TargetStatus = "stale"
	// StatusExpired marks an event page whose event start time has passed.
	StatusExpired TargetStatus = "expired"
)

// Terminal classification outcomes for event pages that were evaluated but
// rejected for durable reasons. The URL is never re-evaluated, but unlike
// StatusExpired these do not require the event time to have passed.
const (
	StatusNotRelevant        TargetStatus = "not_relevant"
	StatusInPast             TargetStatus = "in_past"
	StatusMissingLocation    TargetStatus = "missing_location"
	StatusMissingCoordinates TargetStatus = "missing_coordinates"
	StatusOutsideProximity   TargetStatus = "outside_proximity"
)

// Phase is the scheduling classification of a status. Every status maps to
// exactly one phase; due-target selection and transition checks key off the
// phase instead of ad hoc status set lookups.
type Phase int

// Scheduling phases.
const (
	// PhaseNew means the target has never been visited and is due immediately.
	PhaseNew Phase = iota
	// PhaseRevisitable means the target is rescheduled via NextVisitAt.
	PhaseRevisitable
	// PhaseAwaitingFirstRetry means the first visit failed and a short
	// fixed-delay retry is pending.
	PhaseAwaitingFirstRetry
	// PhaseTerminal means the target is never auto-scheduled again.
	PhaseTerminal
)

// Phase returns the scheduling phase for the status.
func (s TargetStatus) Phase() Phase {
	switch s {
	case StatusUnvisited:
		return PhaseNew
	case StatusVisited:
		return PhaseRevisitable
	case StatusFirstAttemptFailed:
		return PhaseAwaitingFirstRetry
	case StatusStale, StatusExpired,
		StatusNotRelevant, StatusInPast, StatusMissingLocation,
		StatusMissingCoordinates, StatusOutsideProximity:
		return PhaseTerminal
	default:
		// Unknown statuses are treated as terminal so a bad row can never
		// be handed to the orchestrator.
		return PhaseTerminal
	}
}

// Terminal reports whether the target is never auto-scheduled again.
func (s TargetStatus) Terminal() bool {
	return s.Phase() == PhaseTerminal
}

// Schedulable reports whether the target can appear in due-target queries.
func (s TargetStatus) Schedulable() bool {
	return s.Phase() != PhaseTerminal
}

// ScrapeTarget is one URL tracked by the ledger: a search query, an organizer
// page, or a single event page.
type ScrapeTarget struct {
	URL  string     `db:"url"  json:"url"`
	Kind TargetKind `db:"kind" json:"kind"`
	City string     `db:"city" json:"city"`

	Status TargetStatus `db:"status" json:"status"`

	// Expiry is the event start time for event pages; the target expires
	// once it passes. NULL for query targets.
	Expiry *time.Time `db:"expiry" json:"expiry,omitempty"`

	// NextVisitAt is when the target is due again. NULL means the target is
	// never visited again automatically.
	NextVisitAt *time.Time `db:"next_visit_at" json:"next_visit_at,omitempty"`

	// LastVisitedAt is the most recent scrape attempt.
	LastVisitedAt *time.Time `db:"last_visited_at" json:"last_visited_at,omitempty"`

	// LastProductiveAt is the most recent visit that yielded new information.
	LastProductiveAt *time.Time `db:"last_productive_at" json:"last_productive_at,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// QueryOutcome is the result of expanding a search or organizer target.
type QueryOutcome string

// Query outcomes.
const (
	OutcomeNewEventsFound   QueryOutcome = "new_events_found"
	OutcomeNoNewEventsFound QueryOutcome = "no_new_events_found"
)

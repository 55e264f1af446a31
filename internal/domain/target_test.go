package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jonesrussell/eventcrawl/internal/domain"
)

func TestTargetStatus_Phase(t *testing.T) {
	tests := []struct {
		name   string
		status domain.TargetStatus
		want   domain.Phase
	}{
		{"unvisited is new", domain.StatusUnvisited, domain.PhaseNew},
		{"visited is revisitable", domain.StatusVisited, domain.PhaseRevisitable},
		{"first attempt failed awaits retry", domain.StatusFirstAttemptFailed, domain.PhaseAwaitingFirstRetry},
		{"stale is terminal", domain.StatusStale, domain.PhaseTerminal},
		{"expired is terminal", domain.StatusExpired, domain.PhaseTerminal},
		{"not relevant is terminal", domain.StatusNotRelevant, domain.PhaseTerminal},
		{"in past is terminal", domain.StatusInPast, domain.PhaseTerminal},
		{"missing location is terminal", domain.StatusMissingLocation, domain.PhaseTerminal},
		{"missing coordinates is terminal", domain.StatusMissingCoordinates, domain.PhaseTerminal},
		{"outside proximity is terminal", domain.StatusOutsideProximity, domain.PhaseTerminal},
		{"unknown status is terminal", domain.TargetStatus("bogus"), domain.PhaseTerminal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.status.Phase())
		})
	}
}

func TestTargetStatus_Schedulable(t *testing.T) {
	assert.True(t, domain.StatusUnvisited.Schedulable())
	assert.True(t, domain.StatusVisited.Schedulable())
	assert.True(t, domain.StatusFirstAttemptFailed.Schedulable())

	assert.False(t, domain.StatusStale.Schedulable())
	assert.False(t, domain.StatusExpired.Schedulable())
	assert.False(t, domain.StatusOutsideProximity.Schedulable())
}

func TestTargetKind_IsQuery(t *testing.T) {
	assert.True(t, domain.KindSearchQuery.IsQuery())
	assert.True(t, domain.KindOrganizerPage.IsQuery())
	assert.False(t, domain.KindEventPage.IsQuery())
}

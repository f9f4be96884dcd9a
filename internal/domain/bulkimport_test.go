package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSessionStatusTransitions(t *testing.T) {
	assert.True(t, SessionStatusActive.CanTransitionTo(SessionStatusCompleted))
	assert.True(t, SessionStatusActive.CanTransitionTo(SessionStatusAbandoned))

	// Both end states are terminal.
	assert.False(t, SessionStatusCompleted.CanTransitionTo(SessionStatusActive))
	assert.False(t, SessionStatusCompleted.CanTransitionTo(SessionStatusAbandoned))
	assert.False(t, SessionStatusAbandoned.CanTransitionTo(SessionStatusActive))
	assert.False(t, SessionStatusAbandoned.CanTransitionTo(SessionStatusCompleted))
}

func TestDuplicatePolicyValid(t *testing.T) {
	assert.True(t, DuplicateReconfirm.Valid())
	assert.True(t, DuplicateReject.Valid())
	assert.False(t, DuplicatePolicy("").Valid())
	assert.False(t, DuplicatePolicy("ignore").Valid())
}

func TestSessionNextSequence(t *testing.T) {
	s := BulkImportSession{}
	assert.Equal(t, 1, s.NextSequence())

	s.TagsAdded = 3
	s.TagsFailed = 2
	assert.Equal(t, 6, s.NextSequence())
}

func TestSessionDuration(t *testing.T) {
	start := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	end := start.Add(90 * time.Second)

	open := BulkImportSession{StartedAt: start}
	assert.Equal(t, 2*time.Minute, open.Duration(start.Add(2*time.Minute)))

	closed := BulkImportSession{StartedAt: start, EndedAt: &end}
	assert.Equal(t, 90*time.Second, closed.Duration(start.Add(time.Hour)))
}

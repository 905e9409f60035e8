package stub

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusTransitions(t *testing.T) {
	tests := []struct {
		from Status
		to   Status
		want bool
	}{
		{StatusDraft, StatusActive, true},
		{StatusDraft, StatusArchived, true},
		{StatusDraft, StatusInactive, false},
		{StatusActive, StatusInactive, true},
		{StatusActive, StatusArchived, true},
		{StatusActive, StatusDraft, false},
		{StatusInactive, StatusActive, true},
		{StatusInactive, StatusArchived, true},
		{StatusInactive, StatusDraft, false},
		// Archived is terminal.
		{StatusArchived, StatusActive, false},
		{StatusArchived, StatusDraft, false},
		{StatusArchived, StatusInactive, false},
		// Self transitions are not transitions.
		{StatusActive, StatusActive, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransition(tt.to))
		})
	}
}

func TestStatusPredicates(t *testing.T) {
	assert.True(t, StatusActive.Matchable())
	assert.False(t, StatusDraft.Matchable())
	assert.False(t, StatusInactive.Matchable())
	assert.False(t, StatusArchived.Matchable())

	assert.True(t, StatusArchived.Archived())
	assert.False(t, StatusActive.Archived())

	assert.False(t, Status("paused").Valid())
	assert.False(t, StatusActive.CanTransition("paused"))
}

package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeStatus(t *testing.T) {
	tests := []struct {
		raw  string
		want Status
	}{
		{"created", StatusCreated},
		{"in_progress", StatusInProgress},
		{"decided", StatusDecided},
		{"closed", StatusClosed},
		// Legacy aliases
		{"open", StatusCreated},
		{"new", StatusCreated},
		{"active", StatusInProgress},
		{"discussing", StatusInProgress},
		{"in-progress", StatusInProgress},
		{"accepted", StatusDecided},
		{"finalized", StatusDecided},
		{"resolved", StatusDecided},
		{"completed", StatusClosed},
		{"archived", StatusClosed},
		{"done", StatusClosed},
		// Case and whitespace
		{"ACTIVE", StatusInProgress},
		{"  Closed  ", StatusClosed},
		{"ARCHIVED", StatusClosed},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := NormalizeStatus(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeStatusRejectsUnknown(t *testing.T) {
	for _, raw := range []string{"", "bogus", "pending", "closed!"} {
		_, err := NormalizeStatus(raw)
		assert.Error(t, err, "input %q", raw)
	}
}

func TestCanTransition(t *testing.T) {
	// Forward edges, including deciding straight from created
	assert.True(t, CanTransition(StatusCreated, StatusInProgress))
	assert.True(t, CanTransition(StatusCreated, StatusDecided))
	assert.True(t, CanTransition(StatusCreated, StatusClosed))
	assert.True(t, CanTransition(StatusInProgress, StatusDecided))
	assert.True(t, CanTransition(StatusInProgress, StatusClosed))
	assert.True(t, CanTransition(StatusDecided, StatusClosed))

	// Backward edges
	assert.False(t, CanTransition(StatusInProgress, StatusCreated))
	assert.False(t, CanTransition(StatusDecided, StatusInProgress))
	assert.False(t, CanTransition(StatusDecided, StatusCreated))
	assert.False(t, CanTransition(StatusClosed, StatusCreated))
	assert.False(t, CanTransition(StatusClosed, StatusInProgress))
	assert.False(t, CanTransition(StatusClosed, StatusDecided))

	// Self-transitions are always allowed, terminal included
	for _, s := range []Status{StatusCreated, StatusInProgress, StatusDecided, StatusClosed} {
		assert.True(t, CanTransition(s, s))
	}
}

func TestStatusTerminal(t *testing.T) {
	assert.True(t, StatusClosed.IsTerminal())
	assert.False(t, StatusDecided.IsTerminal())
}

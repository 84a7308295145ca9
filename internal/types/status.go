package types

import (
	"fmt"
	"strings"
)

// Status represents the lifecycle state of a discussion.
type Status string

// Canonical discussion statuses. The lifecycle only moves forward:
// created -> in_progress -> decided -> closed, with in_progress
// skippable and closed reachable from any non-terminal state.
const (
	StatusCreated    Status = "created"
	StatusInProgress Status = "in_progress"
	StatusDecided    Status = "decided"
	StatusClosed     Status = "closed"
)

// statusAliases maps legacy status spellings accumulated over earlier
// releases to canonical statuses. Lookup is case-insensitive.
var statusAliases = map[string]Status{
	"open":        StatusCreated,
	"new":         StatusCreated,
	"active":      StatusInProgress,
	"discussing":  StatusInProgress,
	"in-progress": StatusInProgress,
	"accepted":    StatusDecided,
	"finalized":   StatusDecided,
	"resolved":    StatusDecided,
	"completed":   StatusClosed,
	"archived":    StatusClosed,
	"done":        StatusClosed,
}

// IsValid checks if the status is one of the four canonical values.
func (s Status) IsValid() bool {
	switch s {
	case StatusCreated, StatusInProgress, StatusDecided, StatusClosed:
		return true
	}
	return false
}

// IsTerminal reports whether the status allows no further transitions.
func (s Status) IsTerminal() bool {
	return s == StatusClosed
}

// NormalizeStatus resolves a raw status string, including legacy aliases,
// to a canonical Status. Unrecognized input is an error rather than a
// silent default.
func NormalizeStatus(raw string) (Status, error) {
	key := strings.ToLower(strings.TrimSpace(raw))
	s := Status(key)
	if s.IsValid() {
		return s, nil
	}
	if canonical, ok := statusAliases[key]; ok {
		return canonical, nil
	}
	return "", fmt.Errorf("unrecognized discussion status: %q", raw)
}

// allowedTransitions defines the forward-only transition graph.
// Self-transitions are handled separately and are always a no-op.
// A discussion may be decided straight from created: a manager can settle
// a question before any agent debate starts, the checklist guard still
// applies either way.
var allowedTransitions = map[Status][]Status{
	StatusCreated:    {StatusInProgress, StatusDecided, StatusClosed},
	StatusInProgress: {StatusDecided, StatusClosed},
	StatusDecided:    {StatusClosed},
	StatusClosed:     {},
}

// CanTransition reports whether a discussion may move from one canonical
// status to another. A self-transition is always allowed.
func CanTransition(from, to Status) bool {
	if from == to {
		return true
	}
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

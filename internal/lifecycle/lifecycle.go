// Package lifecycle enforces the ordered status state machine for
// discussions.
//
// Statuses only move forward: created -> in_progress -> decided -> closed,
// where in_progress may be skipped for discussions settled without debate.
// Repeating the current status is always a successful no-op. A discussion
// cannot reach decided without at least one checklist item, draft or
// finalized. decidedAt and closedAt are stamped the first time their status
// is reached and never overwritten by later idempotent calls.
package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/maxmarket/maxd/internal/debug"
	"github.com/maxmarket/maxd/internal/store"
	"github.com/maxmarket/maxd/internal/types"
)

// InvalidTransitionError reports a status move that the transition graph
// forbids. The stored discussion is left unmodified.
type InvalidTransitionError struct {
	DiscussionID string
	From         types.Status
	To           types.Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("discussion %s: invalid transition %s -> %s", e.DiscussionID, e.From, e.To)
}

// PreconditionError reports a transition whose guard failed. The stored
// discussion is left unmodified.
type PreconditionError struct {
	DiscussionID string
	Reason       string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("discussion %s: %s", e.DiscussionID, e.Reason)
}

// Lifecycle applies status transitions through the durable store.
type Lifecycle struct {
	discussions store.Collection[types.Discussion]
	now         func() time.Time
}

// New creates a Lifecycle over the given store.
func New(s *store.Store) *Lifecycle {
	return &Lifecycle{
		discussions: store.NewCollection[types.Discussion](s, store.CollectionDiscussions),
		now:         time.Now,
	}
}

// Transition moves a discussion to the target status, applying alias
// normalization, the transition graph, and the decided guard. The whole
// load-check-mutate-persist cycle runs inside one atomic store update, so
// concurrent transitions against the same collection serialize.
//
// Invalid transitions and unmet preconditions are returned as typed errors
// with the stored record untouched.
func (l *Lifecycle) Transition(ctx context.Context, discussionID string, target string, reason string) (*types.Discussion, error) {
	targetStatus, err := types.NormalizeStatus(target)
	if err != nil {
		return nil, err
	}

	updated, err := store.Update(ctx, l.discussions,
		func(docs []types.Discussion) ([]types.Discussion, *types.Discussion, error) {
			idx := -1
			for i := range docs {
				if docs[i].ID == discussionID {
					idx = i
					break
				}
			}
			if idx < 0 {
				return nil, nil, fmt.Errorf("discussion %s: %w", discussionID, store.ErrNotFound)
			}

			d := &docs[idx]
			current, err := types.NormalizeStatus(string(d.Status))
			if err != nil {
				return nil, nil, fmt.Errorf("discussion %s has %w", discussionID, err)
			}

			// Self-transition: successful no-op; the write is skipped so
			// the stored record stays byte-for-byte identical.
			if current == targetStatus {
				debug.Logf("discussion %s already %s, no-op", discussionID, targetStatus)
				snapshot := *d
				return docs, &snapshot, store.ErrNoChange
			}

			if !types.CanTransition(current, targetStatus) {
				debug.Logf("rejected transition %s -> %s for discussion %s (reason given: %q)",
					current, targetStatus, discussionID, reason)
				return nil, nil, &InvalidTransitionError{DiscussionID: discussionID, From: current, To: targetStatus}
			}

			if targetStatus == types.StatusDecided && !d.HasChecklistItems() {
				debug.Logf("rejected decided transition for discussion %s: no checklist items", discussionID)
				return nil, nil, &PreconditionError{
					DiscussionID: discussionID,
					Reason:       "cannot be decided without at least one checklist item",
				}
			}

			now := l.now().UTC()
			d.Status = targetStatus
			d.UpdatedAt = now
			if targetStatus == types.StatusDecided && d.DecidedAt == nil {
				d.DecidedAt = &now
			}
			if targetStatus == types.StatusClosed && d.ClosedAt == nil {
				d.ClosedAt = &now
			}

			debug.Logf("discussion %s: %s -> %s (%s)", discussionID, current, targetStatus, reason)
			snapshot := *d
			return docs, &snapshot, nil
		})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Get loads a single discussion by ID.
func (l *Lifecycle) Get(ctx context.Context, discussionID string) (*types.Discussion, error) {
	docs, err := l.discussions.Read(ctx)
	if err != nil {
		return nil, err
	}
	for i := range docs {
		if docs[i].ID == discussionID {
			return &docs[i], nil
		}
	}
	return nil, fmt.Errorf("discussion %s: %w", discussionID, store.ErrNotFound)
}

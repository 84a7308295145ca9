// Package watchdog detects and resolves checklist items stuck in a pending
// state.
//
// An item "deadlocks" when its evaluator crashed, never voted, or lost a
// race, leaving it pending past the point normal evaluation should have
// resolved it. The watchdog guarantees liveness in two escalating steps:
// the first pass forces a fresh evaluation restricted to the item; if the
// item is still pending on a later pass (or no evaluator is configured),
// it is forced into a terminal rejected state with a structured rejection
// record.
//
// Escalation attempt counters live in memory on the Watchdog instance and
// reset on process restart; they are deliberately not persisted on the
// item record.
package watchdog

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/maxmarket/maxd/internal/audit"
	"github.com/maxmarket/maxd/internal/debug"
	"github.com/maxmarket/maxd/internal/store"
	"github.com/maxmarket/maxd/internal/types"
)

// Trigger identifies what prompted a watchdog pass.
type Trigger string

// Recognized triggers.
const (
	TriggerManagerEvaluation Trigger = "manager_evaluation"
	TriggerStatusChange      Trigger = "status_change"
)

// Resolution methods recorded on resolved items.
const (
	MethodForcedReevaluation = "forced_reevaluation"
	MethodAutoReject         = "auto-reject"
)

// RejectionReasonText is stamped on every auto-rejected item.
const RejectionReasonText = "Deadlock resolution"

// Evaluator is the external decision-evaluation collaborator. Reevaluate
// forces a fresh decision pass restricted to one checklist item; its side
// effect, if any, is mutating the item's status through the store.
type Evaluator interface {
	Reevaluate(ctx context.Context, discussionID, itemID string) error
}

// Watchdog scans discussions for deadlocked checklist items and resolves
// them. Safe for concurrent use.
type Watchdog struct {
	discussions store.Collection[types.Discussion]
	evaluator   Evaluator // may be nil: every stuck item is auto-rejected
	auditLog    *audit.Log
	now         func() time.Time

	mu       sync.Mutex
	attempts map[string]int // item ID -> escalation attempts this process
}

// New creates a Watchdog over the given store. evaluator and auditLog may
// be nil.
func New(s *store.Store, evaluator Evaluator, auditLog *audit.Log) *Watchdog {
	return &Watchdog{
		discussions: store.NewCollection[types.Discussion](s, store.CollectionDiscussions),
		evaluator:   evaluator,
		auditLog:    auditLog,
		now:         time.Now,
		attempts:    make(map[string]int),
	}
}

// AttemptCount returns the in-memory escalation count for an item.
func (w *Watchdog) AttemptCount(itemID string) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.attempts[itemID]
}

// ResetAttempts clears every escalation counter.
func (w *Watchdog) ResetAttempts() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.attempts = make(map[string]int)
}

func (w *Watchdog) bumpAttempt(itemID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.attempts[itemID]++
}

func (w *Watchdog) clearAttempt(itemID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.attempts, itemID)
}

// DetectAndResolve runs one watchdog pass over a single discussion and
// returns the resolutions it performed. Items resolved by a forced
// re-evaluation are recorded but not mutated here; items that already
// burned their re-evaluation attempt are terminally rejected and
// persisted. Re-running against an already-resolved item is a no-op that
// clears any stale counter.
func (w *Watchdog) DetectAndResolve(ctx context.Context, discussionID string, trigger Trigger) ([]audit.Resolution, error) {
	d, err := w.loadDiscussion(ctx, discussionID)
	if err != nil {
		return nil, err
	}

	now := w.now().UTC()
	var resolutions []audit.Resolution
	rejectPending := make(map[string]time.Duration) // item ID -> time pending

	ids := make([]string, 0, len(d.AllChecklistItems()))
	for _, item := range d.AllChecklistItems() {
		ids = append(ids, item.ID)
	}

	for _, id := range ids {
		// A forced re-evaluation may have resolved this item as a side
		// effect of an earlier iteration; always judge from the freshest
		// copy of the discussion.
		item := d.FindChecklistItem(id)
		if item == nil || !item.Status.IsPending() {
			// Already resolved; drop any stale counter left from a
			// previous pass.
			w.clearAttempt(id)
			continue
		}

		timePending := now.Sub(item.LastTouched())

		if w.AttemptCount(id) == 0 && w.evaluator != nil {
			debug.Logf("watchdog: forcing re-evaluation of item %s in discussion %s (pending %v)",
				id, discussionID, timePending)
			if err := w.evaluator.Reevaluate(ctx, discussionID, id); err != nil {
				debug.Logf("watchdog: re-evaluation of item %s failed: %v", id, err)
			}

			d, err = w.loadDiscussion(ctx, discussionID)
			if err != nil {
				return resolutions, err
			}
			fresh := d.FindChecklistItem(id)
			if fresh != nil && !fresh.Status.IsPending() {
				w.clearAttempt(id)
				resolutions = append(resolutions, audit.Resolution{
					ItemID:      id,
					Method:      MethodForcedReevaluation,
					TimePending: timePending,
				})
				continue
			}

			w.bumpAttempt(id)
			continue
		}

		// Second pass for this item, or no evaluator configured: force a
		// terminal rejection.
		rejectPending[id] = timePending
	}

	if len(rejectPending) > 0 {
		rejected, err := w.rejectItems(ctx, discussionID, rejectPending)
		if err != nil {
			return resolutions, err
		}
		resolutions = append(resolutions, rejected...)
	}

	if len(resolutions) > 0 && w.auditLog != nil {
		w.auditLog.Append(audit.Entry{
			DiscussionID: discussionID,
			Trigger:      string(trigger),
			Resolutions:  resolutions,
			Timestamp:    now,
		})
	}
	return resolutions, nil
}

// ScanAll runs DetectAndResolve across every discussion. A failure on one
// discussion is logged and does not abort the rest of the scan; the
// (possibly partial) resolution list is always returned.
func (w *Watchdog) ScanAll(ctx context.Context, trigger Trigger) []audit.Resolution {
	docs, err := w.discussions.Read(ctx)
	if err != nil {
		debug.Logf("watchdog: failed to list discussions: %v", err)
		return nil
	}

	var all []audit.Resolution
	for i := range docs {
		resolved, err := w.DetectAndResolve(ctx, docs[i].ID, trigger)
		if err != nil {
			debug.Logf("watchdog: scan of discussion %s failed: %v", docs[i].ID, err)
		}
		all = append(all, resolved...)
	}
	return all
}

func (w *Watchdog) loadDiscussion(ctx context.Context, discussionID string) (*types.Discussion, error) {
	docs, err := w.discussions.Read(ctx)
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

// rejectItems forces the given items into the terminal rejected state in
// one atomic update, stamping the structured rejection record and marking
// them non-revisable. Counters are cleared only after the write lands.
func (w *Watchdog) rejectItems(ctx context.Context, discussionID string, pending map[string]time.Duration) ([]audit.Resolution, error) {
	now := w.now().UTC()
	resolved, err := store.Update(ctx, w.discussions,
		func(docs []types.Discussion) ([]types.Discussion, []audit.Resolution, error) {
			var d *types.Discussion
			for i := range docs {
				if docs[i].ID == discussionID {
					d = &docs[i]
					break
				}
			}
			if d == nil {
				return nil, nil, fmt.Errorf("discussion %s: %w", discussionID, store.ErrNotFound)
			}

			var out []audit.Resolution
			for _, item := range d.AllChecklistItems() {
				timePending, wanted := pending[item.ID]
				if !wanted || !item.Status.IsPending() {
					continue
				}
				noRevise := false
				item.Status = types.ChecklistRejectedFinal
				item.CanRevise = &noRevise
				item.UpdatedAt = now
				item.RejectionReason = &types.RejectionReason{
					Reason:             RejectionReasonText,
					TimePendingSeconds: timePending.Seconds(),
					ResolutionMethod:   MethodAutoReject,
					RejectedAt:         now,
				}
				out = append(out, audit.Resolution{
					ItemID:      item.ID,
					Method:      MethodAutoReject,
					TimePending: timePending,
				})
				debug.Logf("watchdog: auto-rejected item %s in discussion %s after %v pending",
					item.ID, discussionID, timePending)
			}
			if len(out) == 0 {
				return docs, nil, store.ErrNoChange
			}
			return docs, out, nil
		})
	if err != nil {
		return nil, err
	}
	for _, r := range resolved {
		w.clearAttempt(r.ItemID)
	}
	return resolved, nil
}

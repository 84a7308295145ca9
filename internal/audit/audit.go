// Package audit appends watchdog resolution records to a JSONL trail.
//
// The trail is best-effort: a failed append is logged and swallowed, never
// surfaced to the operation that produced the record.
package audit

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/maxmarket/maxd/internal/debug"
)

// FileName is the audit trail file inside the storage directory.
const FileName = "watchdog-audit.jsonl"

// Resolution describes how one checklist item left the pending state.
// TimePending is serialized as milliseconds to match the field name.
type Resolution struct {
	ItemID      string        `json:"itemId"`
	Method      string        `json:"method"` // "forced_reevaluation" or "auto-reject"
	TimePending time.Duration `json:"-"`
}

type resolutionJSON struct {
	ItemID        string  `json:"itemId"`
	Method        string  `json:"method"`
	TimePendingMs float64 `json:"timePendingMs"`
}

func (r Resolution) MarshalJSON() ([]byte, error) {
	return json.Marshal(resolutionJSON{
		ItemID:        r.ItemID,
		Method:        r.Method,
		TimePendingMs: float64(r.TimePending) / float64(time.Millisecond),
	})
}

func (r *Resolution) UnmarshalJSON(data []byte) error {
	var v resolutionJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	r.ItemID = v.ItemID
	r.Method = v.Method
	r.TimePending = time.Duration(v.TimePendingMs * float64(time.Millisecond))
	return nil
}

// Entry is one audit record: everything a single watchdog pass resolved
// for one discussion.
type Entry struct {
	DiscussionID string       `json:"discussionId"`
	Trigger      string       `json:"trigger"`
	Resolutions  []Resolution `json:"resolutions"`
	Timestamp    time.Time    `json:"timestamp"`
}

// Log appends entries to a JSONL file, one record per line.
type Log struct {
	path string
	mu   sync.Mutex
}

// NewLog creates a Log writing into the given storage directory.
func NewLog(dir string) *Log {
	return &Log{path: filepath.Join(dir, FileName)}
}

// Path returns the on-disk location of the trail.
func (l *Log) Path() string { return l.path }

// Append writes one entry. Failures are logged, never returned.
func (l *Log) Append(e Entry) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	line, err := json.Marshal(&e)
	if err != nil {
		debug.Logf("audit: failed to marshal entry for %s: %v", e.DiscussionID, err)
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		debug.Logf("audit: failed to open %s: %v", l.path, err)
		return
	}
	defer f.Close()
	if _, err := f.Write(append(line, '\n')); err != nil {
		debug.Logf("audit: failed to append to %s: %v", l.path, err)
	}
}

// ReadAll loads every entry in the trail, skipping unparseable lines.
// Intended for tests and the CLI, not for hot paths.
func (l *Log) ReadAll() ([]Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	data, err := os.ReadFile(l.path) // #nosec G304 - path fixed at construction
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var entries []Entry
	for _, line := range bytes.Split(data, []byte("\n")) {
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		var e Entry
		if err := json.Unmarshal(line, &e); err != nil {
			debug.Logf("audit: skipping malformed line: %v", err)
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

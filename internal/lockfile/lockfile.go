// Package lockfile provides advisory per-path locking for the maxd store.
//
// Each data file gets a sibling ".lock" marker that is created with
// O_CREATE|O_EXCL, so only one cooperating process can hold it at a time.
// Contending acquirers retry with capped exponential backoff and jitter
// until the configured timeout elapses. Markers left behind by crashed
// holders are detected (dead pid, or marker older than the staleness
// threshold) and reclaimed by the next acquirer.
//
// Locking is cooperative: a process that writes the data files without
// going through this package can still corrupt them.
package lockfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/maxmarket/maxd/internal/debug"
)

// Mode selects the lock flavor requested by the caller.
//
// Both modes currently map to the same exclusive marker: the "read" mode
// exists so call sites document intent, not because shared access is
// granted. Keep that in mind before assuming concurrent readers.
type Mode int

const (
	// LockRead is requested by read-only operations.
	LockRead Mode = iota
	// LockWrite is requested by mutating operations.
	LockWrite
)

func (m Mode) String() string {
	if m == LockRead {
		return "read"
	}
	return "write"
}

// Default tuning, overridable per Manager via Options.
const (
	DefaultTimeout        = 10 * time.Second
	DefaultStaleThreshold = 30 * time.Second
	defaultInitialBackoff = 100 * time.Millisecond
	defaultMaxBackoff     = 2 * time.Second
)

// ErrLockBusy is returned by a single non-blocking acquisition attempt when
// another holder owns the marker.
var ErrLockBusy = errors.New("lock held by another process")

// TimeoutError is returned when a lock cannot be acquired within the
// configured budget after exhausting retries. It is fatal to the caller.
type TimeoutError struct {
	Resource string
	Elapsed  time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timed out acquiring lock for %s after %v", e.Resource, e.Elapsed)
}

// marker is the JSON payload written into the lock file. The pid and
// acquisition time drive staleness reclamation.
type marker struct {
	PID        int       `json:"pid"`
	Hostname   string    `json:"hostname,omitempty"`
	AcquiredAt time.Time `json:"acquiredAt"`
}

// Options tunes acquisition behavior.
type Options struct {
	// Timeout bounds the total wait for one Acquire call. Zero means
	// DefaultTimeout.
	Timeout time.Duration
	// StaleThreshold is the marker age past which a lock is presumed
	// abandoned. Zero means DefaultStaleThreshold.
	StaleThreshold time.Duration
	// InitialBackoff and MaxBackoff bound the retry schedule. Zero values
	// use the package defaults.
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// Manager hands out per-path advisory locks.
type Manager struct {
	opts Options
}

// NewManager creates a Manager with the given options.
func NewManager(opts Options) *Manager {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.StaleThreshold <= 0 {
		opts.StaleThreshold = DefaultStaleThreshold
	}
	if opts.InitialBackoff <= 0 {
		opts.InitialBackoff = defaultInitialBackoff
	}
	if opts.MaxBackoff <= 0 {
		opts.MaxBackoff = defaultMaxBackoff
	}
	return &Manager{opts: opts}
}

// Handle represents a held lock. Release is idempotent.
type Handle struct {
	path     string // marker file path
	resource string
	mode     Mode
	released bool
}

// LockPath returns the marker path guarding a resource path.
func LockPath(resource string) string {
	return resource + ".lock"
}

// Acquire obtains the lock guarding the given resource path, retrying with
// exponential backoff until it succeeds or the timeout budget is exhausted.
// The resource itself does not have to exist yet.
func (m *Manager) Acquire(ctx context.Context, resource string, mode Mode) (*Handle, error) {
	lockPath := LockPath(resource)
	start := time.Now()

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = m.opts.InitialBackoff
	bo.Multiplier = 2
	bo.MaxInterval = m.opts.MaxBackoff
	bo.MaxElapsedTime = m.opts.Timeout

	attempt := func() error {
		err := tryCreateMarker(lockPath)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrLockBusy) {
			return backoff.Permanent(err)
		}
		if m.reclaimIfStale(lockPath) {
			// Marker removed; retake on the spot rather than waiting
			// out another backoff interval.
			if err := tryCreateMarker(lockPath); err == nil {
				return nil
			}
		}
		return err
	}

	err := backoff.Retry(attempt, backoff.WithContext(bo, ctx))
	if err != nil {
		if errors.Is(err, ErrLockBusy) || errors.Is(err, context.DeadlineExceeded) {
			return nil, &TimeoutError{Resource: resource, Elapsed: time.Since(start)}
		}
		return nil, fmt.Errorf("acquiring lock for %s: %w", resource, err)
	}

	debug.Logf("acquired %s lock for %s after %v", mode, resource, time.Since(start))
	return &Handle{path: lockPath, resource: resource, mode: mode}, nil
}

// Release removes the lock marker. Safe to call multiple times. Failures
// are logged and swallowed so they can never mask the outcome of the
// operation the lock guarded.
func (h *Handle) Release() {
	if h == nil || h.released {
		return
	}
	h.released = true
	if err := os.Remove(h.path); err != nil && !os.IsNotExist(err) {
		debug.Logf("failed to release lock for %s: %v", h.resource, err)
		return
	}
	debug.Logf("released %s lock for %s", h.mode, h.resource)
}

// tryCreateMarker attempts a single non-blocking acquisition.
func tryCreateMarker(lockPath string) error {
	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		if os.IsExist(err) {
			return ErrLockBusy
		}
		return fmt.Errorf("creating lock marker %s: %w", lockPath, err)
	}
	defer f.Close()

	hostname, _ := os.Hostname()
	payload := marker{PID: os.Getpid(), Hostname: hostname, AcquiredAt: time.Now().UTC()}
	if err := json.NewEncoder(f).Encode(&payload); err != nil {
		// The marker exists and still excludes others; metadata is
		// best-effort and only degrades staleness detection.
		debug.Logf("failed to write lock metadata to %s: %v", lockPath, err)
	}
	return nil
}

// reclaimIfStale removes the marker when its holder is provably gone:
// the recorded pid is no longer running, or the marker has outlived the
// staleness threshold. Returns true if the marker was removed.
func (m *Manager) reclaimIfStale(lockPath string) bool {
	data, err := os.ReadFile(lockPath) // #nosec G304 - sibling of a store-controlled path
	if err != nil {
		// Racing holder may have just released; the next attempt will see it.
		return false
	}

	var mk marker
	age := time.Duration(0)
	if err := json.Unmarshal(data, &mk); err == nil && !mk.AcquiredAt.IsZero() {
		age = time.Since(mk.AcquiredAt)
		hostname, _ := os.Hostname()
		sameHost := mk.Hostname == "" || mk.Hostname == hostname
		// A dead holder on this host is reclaimable immediately; a live
		// (or unverifiable) holder only once the marker outlives the
		// staleness threshold.
		holderDead := sameHost && mk.PID > 0 && !isProcessRunning(mk.PID)
		if !holderDead && age < m.opts.StaleThreshold {
			return false
		}
	} else {
		// Unreadable metadata: fall back to file mtime for the age check.
		info, statErr := os.Stat(lockPath)
		if statErr != nil {
			return false
		}
		age = time.Since(info.ModTime())
		if age < m.opts.StaleThreshold {
			return false
		}
	}

	if err := os.Remove(lockPath); err != nil && !os.IsNotExist(err) {
		debug.Logf("failed to reclaim stale lock %s: %v", lockPath, err)
		return false
	}
	debug.Logf("reclaimed stale lock %s (holder pid %d, age %v)", lockPath, mk.PID, age)
	return true
}

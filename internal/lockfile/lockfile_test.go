package lockfile

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testManager(timeout time.Duration) *Manager {
	return NewManager(Options{
		Timeout:        timeout,
		StaleThreshold: time.Minute,
		InitialBackoff: 5 * time.Millisecond,
		MaxBackoff:     20 * time.Millisecond,
	})
}

func TestAcquireRelease(t *testing.T) {
	dir := t.TempDir()
	resource := filepath.Join(dir, "discussions.json")
	m := testManager(time.Second)

	h, err := m.Acquire(context.Background(), resource, LockWrite)
	require.NoError(t, err)
	require.FileExists(t, LockPath(resource))

	// Marker carries our pid
	data, err := os.ReadFile(LockPath(resource))
	require.NoError(t, err)
	var mk marker
	require.NoError(t, json.Unmarshal(data, &mk))
	assert.Equal(t, os.Getpid(), mk.PID)
	assert.False(t, mk.AcquiredAt.IsZero())

	h.Release()
	assert.NoFileExists(t, LockPath(resource))

	// Idempotent release
	h.Release()
}

func TestAcquireReadModeIsExclusive(t *testing.T) {
	dir := t.TempDir()
	resource := filepath.Join(dir, "sectors.json")
	m := testManager(150 * time.Millisecond)

	h, err := m.Acquire(context.Background(), resource, LockRead)
	require.NoError(t, err)
	defer h.Release()

	// A second acquisition, read or write, must time out.
	_, err = m.Acquire(context.Background(), resource, LockRead)
	var timeoutErr *TimeoutError
	require.ErrorAs(t, err, &timeoutErr)
	assert.Equal(t, resource, timeoutErr.Resource)
	assert.Greater(t, timeoutErr.Elapsed, time.Duration(0))
}

func TestAcquireContendedThenReleased(t *testing.T) {
	dir := t.TempDir()
	resource := filepath.Join(dir, "agents.json")
	m := testManager(2 * time.Second)

	h, err := m.Acquire(context.Background(), resource, LockWrite)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		h2, err := m.Acquire(context.Background(), resource, LockWrite)
		if err == nil {
			h2.Release()
		}
		done <- err
	}()

	time.Sleep(50 * time.Millisecond)
	h.Release()

	select {
	case err := <-done:
		require.NoError(t, err, "waiter should acquire after release")
	case <-time.After(3 * time.Second):
		t.Fatal("waiter never acquired the lock")
	}
}

func TestReclaimDeadHolder(t *testing.T) {
	dir := t.TempDir()
	resource := filepath.Join(dir, "discussions.json")
	m := testManager(time.Second)

	// Simulate a crashed holder: valid marker, pid that cannot exist.
	hostname, _ := os.Hostname()
	mk := marker{PID: 1 << 30, Hostname: hostname, AcquiredAt: time.Now().UTC()}
	data, err := json.Marshal(&mk)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(LockPath(resource), data, 0o600))

	h, err := m.Acquire(context.Background(), resource, LockWrite)
	require.NoError(t, err, "dead holder's marker should be reclaimed")
	h.Release()
}

func TestReclaimOldMarker(t *testing.T) {
	dir := t.TempDir()
	resource := filepath.Join(dir, "discussions.json")
	m := NewManager(Options{
		Timeout:        time.Second,
		StaleThreshold: 50 * time.Millisecond,
		InitialBackoff: 5 * time.Millisecond,
		MaxBackoff:     20 * time.Millisecond,
	})

	// A live pid (our own) but a marker past the staleness threshold.
	hostname, _ := os.Hostname()
	mk := marker{PID: os.Getpid(), Hostname: hostname, AcquiredAt: time.Now().Add(-time.Minute).UTC()}
	data, err := json.Marshal(&mk)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(LockPath(resource), data, 0o600))

	h, err := m.Acquire(context.Background(), resource, LockWrite)
	require.NoError(t, err, "stale marker should be force-acquired")
	h.Release()
}

func TestFreshLiveHolderNotReclaimed(t *testing.T) {
	dir := t.TempDir()
	resource := filepath.Join(dir, "discussions.json")
	m := testManager(150 * time.Millisecond)

	hostname, _ := os.Hostname()
	mk := marker{PID: os.Getpid(), Hostname: hostname, AcquiredAt: time.Now().UTC()}
	data, err := json.Marshal(&mk)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(LockPath(resource), data, 0o600))

	_, err = m.Acquire(context.Background(), resource, LockWrite)
	var timeoutErr *TimeoutError
	require.ErrorAs(t, err, &timeoutErr)
}

func TestUnreadableMarkerFallsBackToMtime(t *testing.T) {
	dir := t.TempDir()
	resource := filepath.Join(dir, "discussions.json")
	m := NewManager(Options{
		Timeout:        time.Second,
		StaleThreshold: 50 * time.Millisecond,
		InitialBackoff: 5 * time.Millisecond,
		MaxBackoff:     20 * time.Millisecond,
	})

	require.NoError(t, os.WriteFile(LockPath(resource), []byte("not json"), 0o600))
	old := time.Now().Add(-time.Minute)
	require.NoError(t, os.Chtimes(LockPath(resource), old, old))

	h, err := m.Acquire(context.Background(), resource, LockWrite)
	require.NoError(t, err)
	h.Release()
}

func TestAcquireCanceledContext(t *testing.T) {
	dir := t.TempDir()
	resource := filepath.Join(dir, "discussions.json")
	m := testManager(5 * time.Second)

	h, err := m.Acquire(context.Background(), resource, LockWrite)
	require.NoError(t, err)
	defer h.Release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	_, err = m.Acquire(ctx, resource, LockWrite)
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second, "canceled context must not wait out the full timeout")
}

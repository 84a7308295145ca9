package audit

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendAndReadAll(t *testing.T) {
	log := NewLog(t.TempDir())

	log.Append(Entry{
		DiscussionID: "disc-1",
		Trigger:      "manager_evaluation",
		Resolutions: []Resolution{
			{ItemID: "item-1", Method: "auto-reject", TimePending: 5 * time.Minute},
		},
	})
	log.Append(Entry{
		DiscussionID: "disc-2",
		Trigger:      "status_change",
		Resolutions: []Resolution{
			{ItemID: "item-2", Method: "forced_reevaluation", TimePending: time.Minute},
		},
	})

	entries, err := log.ReadAll()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "disc-1", entries[0].DiscussionID)
	assert.Equal(t, "auto-reject", entries[0].Resolutions[0].Method)
	assert.False(t, entries[0].Timestamp.IsZero())
	assert.Equal(t, "disc-2", entries[1].DiscussionID)
}

func TestTimePendingSerializedAsMilliseconds(t *testing.T) {
	dir := t.TempDir()
	log := NewLog(dir)

	log.Append(Entry{
		DiscussionID: "disc-1",
		Trigger:      "manager_evaluation",
		Resolutions: []Resolution{
			{ItemID: "item-1", Method: "auto-reject", TimePending: 5 * time.Minute},
		},
	})

	raw, err := os.ReadFile(filepath.Join(dir, FileName))
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"timePendingMs":300000`)

	entries, err := log.ReadAll()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 5*time.Minute, entries[0].Resolutions[0].TimePending)
}

func TestReadAllMissingFile(t *testing.T) {
	log := NewLog(t.TempDir())

	entries, err := log.ReadAll()
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestReadAllSkipsMalformedLines(t *testing.T) {
	dir := t.TempDir()
	log := NewLog(dir)
	log.Append(Entry{DiscussionID: "disc-1", Trigger: "manager_evaluation"})

	f, err := os.OpenFile(filepath.Join(dir, FileName), os.O_APPEND|os.O_WRONLY, 0o600)
	require.NoError(t, err)
	_, err = f.WriteString("{not json\n\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	log.Append(Entry{DiscussionID: "disc-2", Trigger: "status_change"})

	entries, err := log.ReadAll()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "disc-1", entries[0].DiscussionID)
	assert.Equal(t, "disc-2", entries[1].DiscussionID)
}

func TestAppendPreservesExplicitTimestamp(t *testing.T) {
	log := NewLog(t.TempDir())
	ts := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

	log.Append(Entry{DiscussionID: "disc-1", Trigger: "manager_evaluation", Timestamp: ts})

	entries, err := log.ReadAll()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, ts.Equal(entries[0].Timestamp))
}

func TestAppendUnwritableDirectoryIsSwallowed(t *testing.T) {
	log := NewLog(filepath.Join(t.TempDir(), "missing", "nested"))

	// Must not panic or error; the trail is best-effort.
	log.Append(Entry{DiscussionID: "disc-1", Trigger: "manager_evaluation"})

	entries, err := log.ReadAll()
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestConcurrentAppends(t *testing.T) {
	log := NewLog(t.TempDir())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			log.Append(Entry{DiscussionID: "disc-1", Trigger: "manager_evaluation"})
		}()
	}
	wg.Wait()

	entries, err := log.ReadAll()
	require.NoError(t, err)
	assert.Len(t, entries, 20)
}

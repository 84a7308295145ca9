package store

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/maxmarket/maxd/internal/lockfile"
)

type counterDoc struct {
	ID    string `json:"id"`
	Count int    `json:"count"`
}

func testStore(t *testing.T) *Store {
	t.Helper()
	locks := lockfile.NewManager(lockfile.Options{
		Timeout:        10 * time.Second,
		StaleThreshold: time.Minute,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     10 * time.Millisecond,
	})
	s := New(t.TempDir(), locks)
	require.NoError(t, s.EnsureDir())
	return s
}

func TestReadMissingCollectionDefaultsToEmpty(t *testing.T) {
	s := testStore(t)
	c := NewCollection[counterDoc](s, CollectionSectors)

	docs, err := c.Read(context.Background())
	require.NoError(t, err)
	assert.Empty(t, docs)
	assert.NotNil(t, docs)
}

func TestWriteReadRoundtrip(t *testing.T) {
	s := testStore(t)
	c := NewCollection[counterDoc](s, CollectionAgents)
	ctx := context.Background()

	want := []counterDoc{{ID: "a", Count: 1}, {ID: "b", Count: 2}}
	require.NoError(t, c.Write(ctx, want))

	got, err := c.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// File is valid indented JSON and no temp siblings remain.
	data, err := os.ReadFile(s.Path(CollectionAgents))
	require.NoError(t, err)
	assert.True(t, json.Valid(data))
	assertNoTempFiles(t, s.Dir())
}

func TestUpdateMutatorErrorLeavesFileUntouched(t *testing.T) {
	s := testStore(t)
	c := NewCollection[counterDoc](s, CollectionDiscussions)
	ctx := context.Background()

	require.NoError(t, c.Write(ctx, []counterDoc{{ID: "x", Count: 7}}))
	before, err := os.ReadFile(s.Path(CollectionDiscussions))
	require.NoError(t, err)

	boom := errors.New("mutator failed")
	_, err = Update(ctx, c, func(docs []counterDoc) ([]counterDoc, struct{}, error) {
		docs[0].Count = 999
		return docs, struct{}{}, boom
	})
	require.ErrorIs(t, err, boom)

	after, err := os.ReadFile(s.Path(CollectionDiscussions))
	require.NoError(t, err)
	assert.Equal(t, before, after, "aborted update must leave bytes identical")
	assertNoTempFiles(t, s.Dir())
}

func TestUpdateReturnsMutatorResult(t *testing.T) {
	s := testStore(t)
	c := NewCollection[counterDoc](s, CollectionSectors)
	ctx := context.Background()

	added, err := Update(ctx, c, func(docs []counterDoc) ([]counterDoc, string, error) {
		docs = append(docs, counterDoc{ID: "new", Count: 0})
		return docs, "new", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "new", added)

	docs, err := c.Read(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "new", docs[0].ID)
}

func TestConcurrentUpdatesLoseNothing(t *testing.T) {
	s := testStore(t)
	c := NewCollection[counterDoc](s, CollectionSectors)
	ctx := context.Background()

	require.NoError(t, c.Write(ctx, []counterDoc{{ID: "ctr", Count: 0}}))

	const n = 25
	var g errgroup.Group
	for i := 0; i < n; i++ {
		g.Go(func() error {
			_, err := Update(ctx, c, func(docs []counterDoc) ([]counterDoc, struct{}, error) {
				docs[0].Count++
				return docs, struct{}{}, nil
			})
			return err
		})
	}
	require.NoError(t, g.Wait())

	docs, err := c.Read(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, n, docs[0].Count, "every increment must survive")
}

func TestConcurrentUpdatesAcrossStores(t *testing.T) {
	// Two Store instances sharing one directory model two processes
	// contending on the same files.
	locks := lockfile.NewManager(lockfile.Options{
		Timeout:        10 * time.Second,
		StaleThreshold: time.Minute,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     10 * time.Millisecond,
	})
	dir := t.TempDir()
	s1 := New(dir, locks)
	s2 := New(dir, locks)
	require.NoError(t, s1.EnsureDir())

	c1 := NewCollection[counterDoc](s1, CollectionAgents)
	c2 := NewCollection[counterDoc](s2, CollectionAgents)
	ctx := context.Background()
	require.NoError(t, c1.Write(ctx, []counterDoc{{ID: "ctr", Count: 0}}))

	bump := func(c Collection[counterDoc]) error {
		_, err := Update(ctx, c, func(docs []counterDoc) ([]counterDoc, struct{}, error) {
			docs[0].Count++
			return docs, struct{}{}, nil
		})
		return err
	}

	var g errgroup.Group
	for i := 0; i < 10; i++ {
		g.Go(func() error { return bump(c1) })
		g.Go(func() error { return bump(c2) })
	}
	require.NoError(t, g.Wait())

	docs, err := c1.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, 20, docs[0].Count)
}

func TestReadCorruptCollection(t *testing.T) {
	s := testStore(t)
	require.NoError(t, os.WriteFile(s.Path(CollectionSectors), []byte("{truncated"), 0o600))

	c := NewCollection[counterDoc](s, CollectionSectors)
	_, err := c.Read(context.Background())
	var perr *PersistenceError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "decode", perr.Op)
}

func assertNoTempFiles(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		if strings.Contains(e.Name(), ".tmp-") {
			t.Errorf("leftover temp file: %s", filepath.Join(dir, e.Name()))
		}
	}
}

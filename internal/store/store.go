// Package store provides lock-guarded, crash-safe persistence for the maxd
// JSON document collections.
//
// Each named collection is one JSON array file under the storage directory
// (discussions.json, sectors.json, agents.json). Every read and write runs
// under the per-file advisory lock from internal/lockfile, and every write
// goes through a temp sibling plus atomic rename so no reader ever observes
// a truncated file. Update is the mandatory primitive for read-modify-write
// sequences: it spans the whole cycle with a single lock acquisition, which
// is what prevents lost updates between concurrent callers.
//
// There is no multi-collection transactionality: updating discussions and
// sectors are independent lock domains.
package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/maxmarket/maxd/internal/debug"
	"github.com/maxmarket/maxd/internal/lockfile"
)

// Well-known collection names.
const (
	CollectionDiscussions = "discussions"
	CollectionSectors     = "sectors"
	CollectionAgents      = "agents"
)

// ErrNotFound is returned when a requested entity does not exist in a
// collection.
var ErrNotFound = errors.New("not found")

// ErrNoChange can be returned by an Update mutator to skip the write while
// reporting success: the on-disk state already matches the desired outcome.
var ErrNoChange = errors.New("no change")

// PersistenceError is an I/O failure distinct from lock contention (disk
// full, permissions). Any partial temp file is cleaned up before it is
// returned.
type PersistenceError struct {
	Op         string // "read", "write", "rename"
	Collection string
	Err        error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Collection, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Store persists named JSON collections under a single directory.
type Store struct {
	dir   string
	locks *lockfile.Manager
}

// New creates a Store rooted at dir, guarded by the given lock manager.
func New(dir string, locks *lockfile.Manager) *Store {
	return &Store{dir: dir, locks: locks}
}

// Dir returns the storage directory.
func (s *Store) Dir() string { return s.dir }

// Path returns the on-disk file backing a collection.
func (s *Store) Path(name string) string {
	return filepath.Join(s.dir, name+".json")
}

// EnsureDir creates the storage directory if it does not exist.
func (s *Store) EnsureDir() error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return &PersistenceError{Op: "mkdir", Collection: s.dir, Err: err}
	}
	return nil
}

// Read returns the raw JSON bytes of a collection under a read lock.
// A missing file materializes as an empty array.
func (s *Store) Read(ctx context.Context, name string) ([]byte, error) {
	lock, err := s.locks.Acquire(ctx, s.Path(name), lockfile.LockRead)
	if err != nil {
		return nil, err
	}
	defer lock.Release()
	return s.readLocked(name)
}

// Write replaces the contents of a collection under a write lock. The data
// lands via a temp sibling and an atomic rename; on failure the temp file
// is removed and the previous contents stay intact.
func (s *Store) Write(ctx context.Context, name string, data []byte) error {
	lock, err := s.locks.Acquire(ctx, s.Path(name), lockfile.LockWrite)
	if err != nil {
		return err
	}
	defer lock.Release()
	return s.writeLocked(name, data)
}

// Update runs a read-modify-write cycle under one write lock acquisition.
// The mutator receives the current contents (empty array if the file is
// missing) and returns the replacement bytes. A mutator error aborts the
// write and leaves the prior on-disk state untouched.
func (s *Store) Update(ctx context.Context, name string, mutate func([]byte) ([]byte, error)) error {
	lock, err := s.locks.Acquire(ctx, s.Path(name), lockfile.LockWrite)
	if err != nil {
		return err
	}
	defer lock.Release()

	current, err := s.readLocked(name)
	if err != nil {
		return err
	}
	next, err := mutate(current)
	if errors.Is(err, ErrNoChange) {
		return nil
	}
	if err != nil {
		return err
	}
	return s.writeLocked(name, next)
}

// readLocked loads raw bytes assuming the caller already holds the lock.
func (s *Store) readLocked(name string) ([]byte, error) {
	data, err := os.ReadFile(s.Path(name)) // #nosec G304 - path derived from collection registry
	if os.IsNotExist(err) {
		debug.Logf("collection %s missing, defaulting to empty", name)
		return []byte("[]"), nil
	}
	if err != nil {
		return nil, &PersistenceError{Op: "read", Collection: name, Err: err}
	}
	if len(data) == 0 {
		return []byte("[]"), nil
	}
	return data, nil
}

// writeLocked persists bytes assuming the caller already holds the lock.
func (s *Store) writeLocked(name string, data []byte) error {
	target := s.Path(name)
	tmp, err := os.CreateTemp(s.dir, "."+name+".tmp-*")
	if err != nil {
		return &PersistenceError{Op: "write", Collection: name, Err: err}
	}
	tmpPath := tmp.Name()

	cleanup := func() {
		tmp.Close()
		if rmErr := os.Remove(tmpPath); rmErr != nil && !os.IsNotExist(rmErr) {
			debug.Logf("failed to remove temp file %s: %v", tmpPath, rmErr)
		}
	}

	if _, err := tmp.Write(data); err != nil {
		cleanup()
		return &PersistenceError{Op: "write", Collection: name, Err: err}
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return &PersistenceError{Op: "write", Collection: name, Err: err}
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return &PersistenceError{Op: "write", Collection: name, Err: err}
	}
	if err := os.Chmod(tmpPath, 0o600); err != nil {
		cleanup()
		return &PersistenceError{Op: "write", Collection: name, Err: err}
	}
	if err := os.Rename(tmpPath, target); err != nil {
		cleanup()
		return &PersistenceError{Op: "rename", Collection: name, Err: err}
	}
	return nil
}

package store

import (
	"context"
	"encoding/json"
	"errors"
)

// Collection is a typed handle over one named JSON array collection.
// It layers marshaling on top of the Store's raw lock-guarded primitives.
type Collection[T any] struct {
	store *Store
	name  string
}

// NewCollection binds a typed handle to a named collection.
func NewCollection[T any](s *Store, name string) Collection[T] {
	return Collection[T]{store: s, name: name}
}

// Name returns the collection name.
func (c Collection[T]) Name() string { return c.name }

// Read returns all documents in the collection under a read lock.
func (c Collection[T]) Read(ctx context.Context) ([]T, error) {
	data, err := c.store.Read(ctx, c.name)
	if err != nil {
		return nil, err
	}
	return decodeDocs[T](c.name, data)
}

// Write replaces the collection with the given documents.
func (c Collection[T]) Write(ctx context.Context, docs []T) error {
	data, err := encodeDocs(c.name, docs)
	if err != nil {
		return err
	}
	return c.store.Write(ctx, c.name, data)
}

// Update runs a typed read-modify-write cycle under a single lock
// acquisition. The mutator returns the replacement document set and a
// result that Update hands back to the caller; a mutator error aborts the
// write entirely.
func Update[T any, R any](ctx context.Context, c Collection[T], mutate func(docs []T) ([]T, R, error)) (R, error) {
	var result R
	err := c.store.Update(ctx, c.name, func(current []byte) ([]byte, error) {
		docs, err := decodeDocs[T](c.name, current)
		if err != nil {
			return nil, err
		}
		next, res, err := mutate(docs)
		if err != nil {
			if errors.Is(err, ErrNoChange) {
				result = res
			}
			return nil, err
		}
		result = res
		return encodeDocs(c.name, next)
	})
	if err != nil {
		var zero R
		return zero, err
	}
	return result, nil
}

func decodeDocs[T any](name string, data []byte) ([]T, error) {
	var docs []T
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, &PersistenceError{Op: "decode", Collection: name, Err: err}
	}
	if docs == nil {
		docs = []T{}
	}
	return docs, nil
}

func encodeDocs[T any](name string, docs []T) ([]byte, error) {
	if docs == nil {
		docs = []T{}
	}
	data, err := json.MarshalIndent(docs, "", "  ")
	if err != nil {
		return nil, &PersistenceError{Op: "encode", Collection: name, Err: err}
	}
	return data, nil
}

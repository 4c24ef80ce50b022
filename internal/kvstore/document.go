package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Document binds a Store and a key to one JSON-serializable value. It is the
// persistence adapter the state containers call after each mutation.
type Document[T any] struct {
	store Store
	key   string
}

func NewDocument[T any](store Store, key string) *Document[T] {
	return &Document[T]{store: store, key: key}
}

// Key returns the storage key of the document.
func (d *Document[T]) Key() string { return d.key }

// Save writes v as JSON.
func (d *Document[T]) Save(ctx context.Context, v T) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("kvstore: marshal %s failed: %w", d.key, err)
	}
	return d.store.Set(ctx, d.key, data)
}

// Load decodes the stored value. ok is false when nothing is stored yet.
func (d *Document[T]) Load(ctx context.Context) (v T, ok bool, err error) {
	data, err := d.LoadRaw(ctx)
	if errors.Is(err, ErrNotFound) {
		return v, false, nil
	}
	if err != nil {
		return v, false, err
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, false, fmt.Errorf("kvstore: unmarshal %s failed: %w", d.key, err)
	}
	return v, true, nil
}

// LoadRaw returns the stored bytes, or ErrNotFound.
func (d *Document[T]) LoadRaw(ctx context.Context) ([]byte, error) {
	return d.store.Get(ctx, d.key)
}

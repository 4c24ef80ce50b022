package kvstore

import (
	"context"
	"errors"
)

// Predefined errors for store operations
var (
	ErrNotFound     = errors.New("kvstore: key not found")
	ErrInvalidValue = errors.New("kvstore: value is not valid JSON")
)

// Store is durable key-value storage for JSON documents: session state and
// the store configuration.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error) // ErrNotFound when absent
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	Close() error
}

// Keys used for persisted client state.
const (
	StoreConfigKey = "store-config"
)

// CartKey is the key of the session's cart document.
func CartKey(sessionID string) string {
	return "session:" + sessionID + ":cart"
}

// ProductsKey is the key of the session's product-store cache document.
func ProductsKey(sessionID string) string {
	return "session:" + sessionID + ":products"
}

package store

import "context"

// WindowKeyedStore holds per-(window, key) state for the deduplicator
// and the window aggregator. Window state lives until the window is
// flushed or falls out of the retention period.
type WindowKeyedStore[K, V any] interface {
	Name() string
	Put(ctx context.Context, key K, value V, windowStartTs int64) error
	Get(ctx context.Context, key K, windowStartTs int64) (V, bool, error)
	Delete(ctx context.Context, key K, windowStartTs int64) error
	// IterWindow visits every key of one window in key order.
	IterWindow(windowStartTs int64, iterFunc func(key K, value V) error) error
	// DeleteWindow drops all state of one window.
	DeleteWindow(windowStartTs int64) error
}

// KeyValueStoreWithTTL is the byte-oriented store behind the late
// record reconciler. Entries expire after the configured TTL; a zero
// TTL keeps them forever.
type KeyValueStoreWithTTL interface {
	Name() string
	Get(ctx context.Context, key []byte) ([]byte, bool, error)
	Put(ctx context.Context, key []byte, value []byte) error
	Delete(ctx context.Context, key []byte) error
}

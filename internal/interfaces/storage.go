package interfaces

import (
	"context"
	"errors"
)

// ErrNotFound is returned by KeyValueStorage.Get for a missing key.
var ErrNotFound = errors.New("key not found")

// StorageManager provides access to the persisted client-side state.
// Implementations can be swapped (BadgerDB on disk, memory for tests).
type StorageManager interface {
	KeyValueStorage() KeyValueStorage
	Close() error
}

// KeyValueStorage provides basic key-value operations. The session manager
// and cart synchronizer persist the token, token expiry, and cart id here,
// each under its own key with independent clear semantics.
type KeyValueStorage interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	GetAll(ctx context.Context) (map[string]string, error)
}

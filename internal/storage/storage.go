package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Read when no asset exists under the key.
var ErrNotFound = errors.New("storage: asset not found")

// ErrInvalidKey is returned for empty keys and keys escaping the store root.
var ErrInvalidKey = errors.New("storage: invalid key")

// AssetStore persists uploaded source images by key.
type AssetStore interface {
	Write(ctx context.Context, key string, data []byte) (string, error)
	Read(ctx context.Context, key string) ([]byte, error)
	// Delete removes the asset. A missing asset is not an error.
	Delete(ctx context.Context, key string) error
}

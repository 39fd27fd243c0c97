package driven

import (
	"context"

	"github.com/ericfisherdev/keysync/internal/domain/model"
)

// KeyStore defines the driven port for encryption key persistence. Keys are
// never updated or deleted through this port.
type KeyStore interface {
	// List returns all keys in store iteration order (insertion order).
	List(ctx context.Context) ([]model.KeyMaterial, error)

	// ListByUpdatedDesc returns all keys, most recently updated first.
	ListByUpdatedDesc(ctx context.Context) ([]model.KeyMaterial, error)

	// Count returns the number of stored keys.
	Count(ctx context.Context) (int, error)

	// Create persists a key and returns it with ID and UpdatedAt assigned.
	// Name and Key must both be non-empty.
	Create(ctx context.Context, key model.KeyMaterial) (model.KeyMaterial, error)
}

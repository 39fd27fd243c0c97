// Package driven defines secondary port interfaces for external adapters.
package driven

import (
	"context"
	"errors"

	"github.com/ericfisherdev/keysync/internal/domain/model"
)

// ErrCredentialNotFound indicates the requested credential does not exist.
var ErrCredentialNotFound = errors.New("credential not found")

// CredentialStore defines the driven port for credential persistence. The
// payload is stored exactly as given; encryption happens in the application
// layer.
type CredentialStore interface {
	// List returns all credentials in store iteration order (ascending ID).
	List(ctx context.Context) ([]model.Credential, error)

	// Get returns the credential with the given ID, or ErrCredentialNotFound.
	Get(ctx context.Context, id int64) (model.Credential, error)

	// Create inserts a credential with the given ciphertext and returns it
	// with its store-assigned ID.
	Create(ctx context.Context, name, encryptedData string) (model.Credential, error)

	// CreateWithKey inserts a credential together with its association to
	// keyID. Either both rows are written or neither is, so the credential is
	// never visible without exactly one association.
	CreateWithKey(ctx context.Context, name, encryptedData, keyID string) (model.Credential, error)

	// UpdateIsEncryptionKeyLost sets the lost flag of a credential.
	UpdateIsEncryptionKeyLost(ctx context.Context, id int64, lost bool) error
}

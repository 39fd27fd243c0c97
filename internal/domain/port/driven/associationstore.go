package driven

import (
	"context"

	"github.com/ericfisherdev/keysync/internal/domain/model"
)

// AssociationStore defines the driven port for the credential to key mapping.
type AssociationStore interface {
	// FindByCredentialID returns every association row for the credential.
	FindByCredentialID(ctx context.Context, credentialID int64) ([]model.Association, error)

	// FindKeysByCredentialID returns the keys joined through the credential's
	// association rows.
	FindKeysByCredentialID(ctx context.Context, credentialID int64) ([]model.KeyMaterial, error)

	Create(ctx context.Context, keyID string, credentialID int64) error

	// UpdateKeyID points every association row of the credential at keyID.
	UpdateKeyID(ctx context.Context, keyID string, credentialID int64) error

	DeleteByKeyAndCredential(ctx context.Context, keyID string, credentialID int64) error
	DeleteByCredential(ctx context.Context, credentialID int64) error
}

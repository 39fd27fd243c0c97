package application

import (
	"context"
	"errors"
	"log/slog"

	"github.com/ericfisherdev/keysync/internal/domain/model"
	"github.com/ericfisherdev/keysync/internal/domain/port/driven"
)

// ErrCredentialNameRequired indicates a credential was stored without a name.
var ErrCredentialNameRequired = errors.New("credential name is required")

// CredentialService stores and reveals credential payloads on top of
// KeyService. Every credential it writes is persisted together with its
// association, so it is resolvable without a resync and a concurrent resync
// never sees it half written.
type CredentialService struct {
	keys        *KeyService
	credentials driven.CredentialStore
	logger      *slog.Logger
}

// NewCredentialService creates a new CredentialService with the required dependencies.
func NewCredentialService(
	keys *KeyService,
	credentials driven.CredentialStore,
	logger *slog.Logger,
) *CredentialService {
	return &CredentialService{
		keys:        keys,
		credentials: credentials,
		logger:      logger,
	}
}

// Store encrypts data with the latest key and persists it as a new credential.
func (s *CredentialService) Store(ctx context.Context, name string, data model.CredentialData) (model.Credential, error) {
	if name == "" {
		return model.Credential{}, wrap("store", ErrCredentialNameRequired)
	}

	result, err := s.keys.Encrypt(ctx, data)
	if err != nil {
		return model.Credential{}, wrap("store", err)
	}

	cred, err := s.credentials.CreateWithKey(ctx, name, result.Ciphertext, result.Key.ID)
	if err != nil {
		return model.Credential{}, wrap("store", err)
	}

	s.logger.Info("credential stored", "credential_id", cred.ID, "name", name, "key_id", result.Key.ID)
	return cred, nil
}

// Reveal loads the credential and decrypts it with its associated key.
func (s *CredentialService) Reveal(ctx context.Context, id int64) (model.CredentialData, error) {
	cred, err := s.credentials.Get(ctx, id)
	if err != nil {
		return nil, wrap("reveal", err)
	}
	data, err := s.keys.Decrypt(ctx, cred, nil)
	if err != nil {
		return nil, wrap("reveal", err)
	}
	return data, nil
}

// List returns every credential. Callers must not expose EncryptedData.
func (s *CredentialService) List(ctx context.Context) ([]model.Credential, error) {
	creds, err := s.credentials.List(ctx)
	if err != nil {
		return nil, wrap("list", err)
	}
	return creds, nil
}

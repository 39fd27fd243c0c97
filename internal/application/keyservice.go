// Package application contains use-case orchestration services.
package application

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/ericfisherdev/keysync/internal/domain/model"
	"github.com/ericfisherdev/keysync/internal/domain/port/driven"
)

// randomKeySize is the number of random bytes in a generated key before
// base64 encoding.
const randomKeySize = 24

// EncryptResult is the ciphertext of a credential payload together with the
// key that produced it, so the caller can record the association.
type EncryptResult struct {
	Ciphertext string
	Key        model.KeyMaterial
}

// KeyService admits and selects encryption keys, encrypts and decrypts
// credential payloads, and resyncs credential to key associations. It depends
// only on port interfaces.
//
// KeyService performs no locking. Callers must not run Init or Resync
// concurrently against the same stores.
type KeyService struct {
	keys         driven.KeyStore
	associations driven.AssociationStore
	credentials  driven.CredentialStore
	cipher       driven.Cipher
	source       driven.KeySource
	logger       *slog.Logger
	random       io.Reader
}

// NewKeyService creates a new KeyService with all required dependencies.
func NewKeyService(
	keys driven.KeyStore,
	associations driven.AssociationStore,
	credentials driven.CredentialStore,
	cipher driven.Cipher,
	source driven.KeySource,
	logger *slog.Logger,
) *KeyService {
	return &KeyService{
		keys:         keys,
		associations: associations,
		credentials:  credentials,
		cipher:       cipher,
		source:       source,
		logger:       logger,
		random:       rand.Reader,
	}
}

// Init admits keys and then resyncs every credential. A failure here is fatal
// to startup: without a key no credential can be stored or read.
func (s *KeyService) Init(ctx context.Context) (model.ResyncReport, error) {
	if _, err := s.Generate(ctx); err != nil {
		return model.ResyncReport{}, wrap("init", err)
	}
	report, err := s.Resync(ctx)
	if err != nil {
		return report, wrap("init", err)
	}
	return report, nil
}

// Generate admits the legacy file key and the override key when they are not
// already stored, then returns the latest key. If the store is still empty a
// random key is created. Calling Generate again with unchanged inputs admits
// nothing.
func (s *KeyService) Generate(ctx context.Context) (model.KeyMaterial, error) {
	key, err := s.generate(ctx)
	if err != nil {
		return model.KeyMaterial{}, wrap("generate", err)
	}
	return key, nil
}

func (s *KeyService) generate(ctx context.Context) (model.KeyMaterial, error) {
	stored, err := s.keys.List(ctx)
	if err != nil {
		return model.KeyMaterial{}, err
	}
	known := make(map[string]struct{}, len(stored))
	for _, k := range stored {
		known[k.Key] = struct{}{}
	}

	candidates := []struct {
		origin string
		secret string
	}{
		{origin: "legacy key file", secret: s.source.LegacyKey()},
		{origin: "override", secret: s.source.OverrideKey()},
	}
	for _, c := range candidates {
		if c.secret == "" {
			continue
		}
		if _, ok := known[c.secret]; ok {
			continue
		}

		name, err := s.nextName(ctx)
		if err != nil {
			return model.KeyMaterial{}, err
		}
		admitted, err := s.create(ctx, model.KeyMaterial{Name: name, Key: c.secret})
		if err != nil {
			return model.KeyMaterial{}, fmt.Errorf("admit %s key: %w", c.origin, err)
		}
		known[c.secret] = struct{}{}
		s.logger.Info("encryption key admitted", "origin", c.origin, "key_id", admitted.ID, "name", admitted.Name)
	}

	latest, err := s.latest(ctx)
	if err == nil {
		return latest, nil
	}
	if !errors.Is(err, ErrNoKeyAvailable) {
		return model.KeyMaterial{}, err
	}

	name, err := s.nextName(ctx)
	if err != nil {
		return model.KeyMaterial{}, err
	}
	created, err := s.create(ctx, model.KeyMaterial{Name: name})
	if err != nil {
		return model.KeyMaterial{}, fmt.Errorf("create initial key: %w", err)
	}
	s.logger.Info("encryption key generated", "key_id", created.ID, "name", created.Name)
	return created, nil
}

// nextName returns the decimal name for the next key: the current key count
// plus one.
func (s *KeyService) nextName(ctx context.Context) (string, error) {
	n, err := s.keys.Count(ctx)
	if err != nil {
		return "", err
	}
	return strconv.Itoa(n + 1), nil
}

// Create persists a new key. A missing Key is filled with random bytes; a
// missing Name fails with ErrNameRequired.
func (s *KeyService) Create(ctx context.Context, partial model.KeyMaterial) (model.KeyMaterial, error) {
	key, err := s.create(ctx, partial)
	if err != nil {
		return model.KeyMaterial{}, wrap("create", err)
	}
	return key, nil
}

func (s *KeyService) create(ctx context.Context, partial model.KeyMaterial) (model.KeyMaterial, error) {
	if partial.Name == "" {
		return model.KeyMaterial{}, ErrNameRequired
	}
	if partial.Key == "" {
		buf := make([]byte, randomKeySize)
		if _, err := io.ReadFull(s.random, buf); err != nil {
			return model.KeyMaterial{}, fmt.Errorf("generate random key: %w", err)
		}
		partial.Key = base64.StdEncoding.EncodeToString(buf)
	}
	return s.keys.Create(ctx, partial)
}

// Latest returns the most recently updated key, or ErrNoKeyAvailable when
// the store is empty.
func (s *KeyService) Latest(ctx context.Context) (model.KeyMaterial, error) {
	key, err := s.latest(ctx)
	if err != nil {
		return model.KeyMaterial{}, wrap("get", err)
	}
	return key, nil
}

func (s *KeyService) latest(ctx context.Context) (model.KeyMaterial, error) {
	keys, err := s.keys.ListByUpdatedDesc(ctx)
	if err != nil {
		return model.KeyMaterial{}, err
	}
	if len(keys) == 0 {
		return model.KeyMaterial{}, ErrNoKeyAvailable
	}
	return keys[0], nil
}

// ForCredential returns the key associated with the credential. It fails with
// ErrEncryptionKeyLost when there is no association and ErrMultipleEncryptions
// when there is more than one; it never picks among several.
func (s *KeyService) ForCredential(ctx context.Context, credentialID int64) (model.KeyMaterial, error) {
	key, err := s.forCredential(ctx, credentialID)
	if err != nil {
		return model.KeyMaterial{}, wrap("get", err)
	}
	return key, nil
}

func (s *KeyService) forCredential(ctx context.Context, credentialID int64) (model.KeyMaterial, error) {
	keys, err := s.associations.FindKeysByCredentialID(ctx, credentialID)
	if err != nil {
		return model.KeyMaterial{}, err
	}
	switch len(keys) {
	case 0:
		return model.KeyMaterial{}, fmt.Errorf("credential %d: %w", credentialID, ErrEncryptionKeyLost)
	case 1:
		return keys[0], nil
	default:
		return model.KeyMaterial{}, fmt.Errorf("credential %d is associated with %d keys: %w", credentialID, len(keys), ErrMultipleEncryptions)
	}
}

// Encrypt serializes data and encrypts it with the latest key. New writes
// never use an older key.
func (s *KeyService) Encrypt(ctx context.Context, data model.CredentialData) (EncryptResult, error) {
	result, err := s.encrypt(ctx, data)
	if err != nil {
		return EncryptResult{}, wrap("encrypt", err)
	}
	return result, nil
}

func (s *KeyService) encrypt(ctx context.Context, data model.CredentialData) (EncryptResult, error) {
	key, err := s.latest(ctx)
	if err != nil {
		return EncryptResult{}, err
	}
	// encoding/json sorts map keys, so equal payloads serialize identically.
	plaintext, err := json.Marshal(data)
	if err != nil {
		return EncryptResult{}, fmt.Errorf("marshal credential data: %w", err)
	}
	ciphertext, err := s.cipher.Encrypt(plaintext, key.Key)
	if err != nil {
		return EncryptResult{}, err
	}
	return EncryptResult{Ciphertext: ciphertext, Key: key}, nil
}

// Decrypt returns the structured payload of cred. When key is nil the key is
// resolved through the credential's association.
func (s *KeyService) Decrypt(ctx context.Context, cred model.Credential, key *model.KeyMaterial) (model.CredentialData, error) {
	var k model.KeyMaterial
	if key != nil {
		k = *key
	} else {
		resolved, err := s.forCredential(ctx, cred.ID)
		if err != nil {
			return nil, wrap("decrypt", err)
		}
		k = resolved
	}

	data, err := s.decryptWith(cred, k)
	if err != nil {
		return nil, wrap("decrypt", err)
	}
	return data, nil
}

func (s *KeyService) decryptWith(cred model.Credential, key model.KeyMaterial) (model.CredentialData, error) {
	plaintext, err := s.cipher.Decrypt(cred.EncryptedData, key.Key)
	if err != nil {
		return nil, fmt.Errorf("credential %d with key %q: %w: %v", cred.ID, key.Name, ErrDecryption, err)
	}

	var data model.CredentialData
	if err := json.Unmarshal(plaintext, &data); err != nil || data == nil {
		return nil, fmt.Errorf("credential %d with key %q: %w: payload is not a JSON object", cred.ID, key.Name, ErrDecryption)
	}
	return data, nil
}

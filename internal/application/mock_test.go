package application_test

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"github.com/ericfisherdev/keysync/internal/domain/model"
	"github.com/ericfisherdev/keysync/internal/domain/port/driven"
)

// --- In-memory implementations ---

var baseTime = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

type mockKeyStore struct {
	keys    []model.KeyMaterial
	creates int
	listErr error
}

func (m *mockKeyStore) List(_ context.Context) ([]model.KeyMaterial, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return append([]model.KeyMaterial(nil), m.keys...), nil
}

func (m *mockKeyStore) ListByUpdatedDesc(_ context.Context) ([]model.KeyMaterial, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	sorted := make([]model.KeyMaterial, 0, len(m.keys))
	for i := len(m.keys) - 1; i >= 0; i-- {
		sorted = append(sorted, m.keys[i])
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].UpdatedAt.After(sorted[j].UpdatedAt)
	})
	return sorted, nil
}

func (m *mockKeyStore) Count(_ context.Context) (int, error) {
	return len(m.keys), nil
}

func (m *mockKeyStore) Create(_ context.Context, key model.KeyMaterial) (model.KeyMaterial, error) {
	m.creates++
	key.ID = "key-" + strconv.Itoa(m.creates)
	if key.UpdatedAt.IsZero() {
		key.UpdatedAt = baseTime.Add(time.Duration(m.creates) * time.Second)
	}
	m.keys = append(m.keys, key)
	return key, nil
}

// add stores a key directly, bypassing the create counter used by admission tests.
func (m *mockKeyStore) add(name, secret string, updatedAt time.Time) model.KeyMaterial {
	key := model.KeyMaterial{ID: "stored-" + name, Name: name, Key: secret, UpdatedAt: updatedAt}
	m.keys = append(m.keys, key)
	return key
}

type mockAssociationStore struct {
	keys *mockKeyStore
	rows []model.Association
}

func (m *mockAssociationStore) FindByCredentialID(_ context.Context, credentialID int64) ([]model.Association, error) {
	var out []model.Association
	for _, a := range m.rows {
		if a.CredentialID == credentialID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *mockAssociationStore) FindKeysByCredentialID(ctx context.Context, credentialID int64) ([]model.KeyMaterial, error) {
	assocs, _ := m.FindByCredentialID(ctx, credentialID)
	var out []model.KeyMaterial
	for _, a := range assocs {
		for _, k := range m.keys.keys {
			if k.ID == a.KeyID {
				out = append(out, k)
			}
		}
	}
	return out, nil
}

func (m *mockAssociationStore) Create(_ context.Context, keyID string, credentialID int64) error {
	m.rows = append(m.rows, model.Association{CredentialID: credentialID, KeyID: keyID})
	return nil
}

func (m *mockAssociationStore) UpdateKeyID(_ context.Context, keyID string, credentialID int64) error {
	for i := range m.rows {
		if m.rows[i].CredentialID == credentialID {
			m.rows[i].KeyID = keyID
		}
	}
	return nil
}

func (m *mockAssociationStore) DeleteByKeyAndCredential(_ context.Context, keyID string, credentialID int64) error {
	kept := m.rows[:0]
	for _, a := range m.rows {
		if a.KeyID == keyID && a.CredentialID == credentialID {
			continue
		}
		kept = append(kept, a)
	}
	m.rows = kept
	return nil
}

func (m *mockAssociationStore) DeleteByCredential(_ context.Context, credentialID int64) error {
	kept := m.rows[:0]
	for _, a := range m.rows {
		if a.CredentialID == credentialID {
			continue
		}
		kept = append(kept, a)
	}
	m.rows = kept
	return nil
}

// keyIDsFor returns the key IDs associated with a credential.
func (m *mockAssociationStore) keyIDsFor(credentialID int64) []string {
	var ids []string
	for _, a := range m.rows {
		if a.CredentialID == credentialID {
			ids = append(ids, a.KeyID)
		}
	}
	return ids
}

type mockCredentialStore struct {
	assocs      *mockAssociationStore
	creds       []model.Credential
	flagUpdates int
	updateErr   error
	createErr   error
}

func (m *mockCredentialStore) List(_ context.Context) ([]model.Credential, error) {
	return append([]model.Credential(nil), m.creds...), nil
}

func (m *mockCredentialStore) Get(_ context.Context, id int64) (model.Credential, error) {
	for _, c := range m.creds {
		if c.ID == id {
			return c, nil
		}
	}
	return model.Credential{}, driven.ErrCredentialNotFound
}

func (m *mockCredentialStore) Create(_ context.Context, name, encryptedData string) (model.Credential, error) {
	cred := model.Credential{ID: int64(len(m.creds) + 1), Name: name, EncryptedData: encryptedData}
	m.creds = append(m.creds, cred)
	return cred, nil
}

// CreateWithKey writes the credential and its association together, or
// neither when createErr is set.
func (m *mockCredentialStore) CreateWithKey(ctx context.Context, name, encryptedData, keyID string) (model.Credential, error) {
	if m.createErr != nil {
		return model.Credential{}, m.createErr
	}
	cred, _ := m.Create(ctx, name, encryptedData)
	if err := m.assocs.Create(ctx, keyID, cred.ID); err != nil {
		return model.Credential{}, err
	}
	return cred, nil
}

func (m *mockCredentialStore) UpdateIsEncryptionKeyLost(_ context.Context, id int64, lost bool) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	for i := range m.creds {
		if m.creds[i].ID == id {
			m.creds[i].IsEncryptionKeyLost = lost
			m.flagUpdates++
			return nil
		}
	}
	return driven.ErrCredentialNotFound
}

func (m *mockCredentialStore) get(id int64) model.Credential {
	for _, c := range m.creds {
		if c.ID == id {
			return c
		}
	}
	return model.Credential{}
}

type mockKeySource struct {
	override string
	legacy   string
}

func (m mockKeySource) OverrideKey() string { return m.override }
func (m mockKeySource) LegacyKey() string   { return m.legacy }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

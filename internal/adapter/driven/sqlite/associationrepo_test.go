package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/keysync/internal/domain/model"
)

type associationFixture struct {
	repo   *AssociationRepo
	k1, k2 model.KeyMaterial
	credID int64
}

func setupAssociations(t *testing.T) associationFixture {
	t.Helper()

	db := setupTestDB(t)
	ctx := context.Background()
	keys := NewKeyRepo(db)

	k1, err := keys.Create(ctx, model.KeyMaterial{Name: "1", Key: "secret-1"})
	require.NoError(t, err)
	k2, err := keys.Create(ctx, model.KeyMaterial{Name: "2", Key: "secret-2"})
	require.NoError(t, err)

	cred, err := NewCredentialRepo(db).Create(ctx, "github", "ct")
	require.NoError(t, err)

	return associationFixture{repo: NewAssociationRepo(db), k1: k1, k2: k2, credID: cred.ID}
}

func TestAssociationRepo_CreateAndFind(t *testing.T) {
	f := setupAssociations(t)
	ctx := context.Background()

	require.NoError(t, f.repo.Create(ctx, f.k2.ID, f.credID))

	assocs, err := f.repo.FindByCredentialID(ctx, f.credID)
	require.NoError(t, err)
	require.Len(t, assocs, 1)
	assert.Equal(t, f.k2.ID, assocs[0].KeyID)
	assert.Equal(t, f.credID, assocs[0].CredentialID)

	keys, err := f.repo.FindKeysByCredentialID(ctx, f.credID)
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.Equal(t, f.k2.ID, keys[0].ID)
	assert.Equal(t, "secret-2", keys[0].Key)
}

func TestAssociationRepo_FindNone(t *testing.T) {
	f := setupAssociations(t)

	keys, err := f.repo.FindKeysByCredentialID(context.Background(), f.credID)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestAssociationRepo_AllowsDuplicateRows(t *testing.T) {
	f := setupAssociations(t)
	ctx := context.Background()

	require.NoError(t, f.repo.Create(ctx, f.k1.ID, f.credID))
	require.NoError(t, f.repo.Create(ctx, f.k2.ID, f.credID))

	keys, err := f.repo.FindKeysByCredentialID(ctx, f.credID)
	require.NoError(t, err)
	assert.Len(t, keys, 2)
}

func TestAssociationRepo_UpdateKeyID(t *testing.T) {
	f := setupAssociations(t)
	ctx := context.Background()

	require.NoError(t, f.repo.Create(ctx, f.k1.ID, f.credID))
	require.NoError(t, f.repo.UpdateKeyID(ctx, f.k2.ID, f.credID))

	assocs, err := f.repo.FindByCredentialID(ctx, f.credID)
	require.NoError(t, err)
	require.Len(t, assocs, 1)
	assert.Equal(t, f.k2.ID, assocs[0].KeyID)
}

func TestAssociationRepo_DeleteByKeyAndCredential(t *testing.T) {
	f := setupAssociations(t)
	ctx := context.Background()

	require.NoError(t, f.repo.Create(ctx, f.k1.ID, f.credID))
	require.NoError(t, f.repo.Create(ctx, f.k2.ID, f.credID))

	require.NoError(t, f.repo.DeleteByKeyAndCredential(ctx, f.k1.ID, f.credID))
	// Deleting again is a no-op.
	require.NoError(t, f.repo.DeleteByKeyAndCredential(ctx, f.k1.ID, f.credID))

	assocs, err := f.repo.FindByCredentialID(ctx, f.credID)
	require.NoError(t, err)
	require.Len(t, assocs, 1)
	assert.Equal(t, f.k2.ID, assocs[0].KeyID)
}

func TestAssociationRepo_DeleteByCredential(t *testing.T) {
	f := setupAssociations(t)
	ctx := context.Background()

	require.NoError(t, f.repo.Create(ctx, f.k1.ID, f.credID))
	require.NoError(t, f.repo.Create(ctx, f.k2.ID, f.credID))
	require.NoError(t, f.repo.DeleteByCredential(ctx, f.credID))

	assocs, err := f.repo.FindByCredentialID(ctx, f.credID)
	require.NoError(t, err)
	assert.Empty(t, assocs)
}

func TestAssociationRepo_RejectsUnknownKey(t *testing.T) {
	f := setupAssociations(t)

	err := f.repo.Create(context.Background(), "no-such-key", f.credID)
	assert.Error(t, err, "foreign key to encryption_keys must be enforced")
}

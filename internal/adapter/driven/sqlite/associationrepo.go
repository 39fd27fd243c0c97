package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/ericfisherdev/keysync/internal/domain/model"
	"github.com/ericfisherdev/keysync/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.AssociationStore = (*AssociationRepo)(nil)

// AssociationRepo is the SQLite implementation of the AssociationStore port
// interface, backed by the credential_keys table.
type AssociationRepo struct {
	db *DB
}

// NewAssociationRepo creates a new AssociationRepo backed by the given DB.
func NewAssociationRepo(db *DB) *AssociationRepo {
	return &AssociationRepo{db: db}
}

// FindByCredentialID returns every association row of the credential in
// insertion order.
func (r *AssociationRepo) FindByCredentialID(ctx context.Context, credentialID int64) ([]model.Association, error) {
	const query = `SELECT credential_id, key_id, created_at, updated_at FROM credential_keys WHERE credential_id = ? ORDER BY id`

	rows, err := r.db.Reader.QueryContext(ctx, query, credentialID)
	if err != nil {
		return nil, fmt.Errorf("find associations of credential %d: %w", credentialID, err)
	}
	defer rows.Close()

	var assocs []model.Association
	for rows.Next() {
		var a model.Association
		var createdAt, updatedAt string
		if err := rows.Scan(&a.CredentialID, &a.KeyID, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan association: %w", err)
		}
		if a.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		if a.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, fmt.Errorf("parse updated_at: %w", err)
		}
		assocs = append(assocs, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate associations: %w", err)
	}

	return assocs, nil
}

// FindKeysByCredentialID returns the keys joined through the credential's
// association rows, one per row.
func (r *AssociationRepo) FindKeysByCredentialID(ctx context.Context, credentialID int64) ([]model.KeyMaterial, error) {
	const query = `
		SELECT k.id, k.name, k.key, k.updated_at
		FROM credential_keys ck
		JOIN encryption_keys k ON k.id = ck.key_id
		WHERE ck.credential_id = ?
		ORDER BY ck.id`

	rows, err := r.db.Reader.QueryContext(ctx, query, credentialID)
	if err != nil {
		return nil, fmt.Errorf("find keys of credential %d: %w", credentialID, err)
	}
	defer rows.Close()

	var keys []model.KeyMaterial
	for rows.Next() {
		key, err := scanKey(rows)
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate keys: %w", err)
	}

	return keys, nil
}

// Create inserts an association row.
func (r *AssociationRepo) Create(ctx context.Context, keyID string, credentialID int64) error {
	const query = `INSERT INTO credential_keys (credential_id, key_id, created_at, updated_at) VALUES (?, ?, ?, ?)`

	now := formatTime(time.Now())
	if _, err := r.db.Writer.ExecContext(ctx, query, credentialID, keyID, now, now); err != nil {
		return fmt.Errorf("associate credential %d with key %s: %w", credentialID, keyID, err)
	}
	return nil
}

// UpdateKeyID points every association row of the credential at keyID.
func (r *AssociationRepo) UpdateKeyID(ctx context.Context, keyID string, credentialID int64) error {
	const query = `UPDATE credential_keys SET key_id = ?, updated_at = ? WHERE credential_id = ?`

	if _, err := r.db.Writer.ExecContext(ctx, query, keyID, formatTime(time.Now()), credentialID); err != nil {
		return fmt.Errorf("update key of credential %d: %w", credentialID, err)
	}
	return nil
}

// DeleteByKeyAndCredential removes the association between a key and a
// credential. Deleting a missing association is not an error.
func (r *AssociationRepo) DeleteByKeyAndCredential(ctx context.Context, keyID string, credentialID int64) error {
	const query = `DELETE FROM credential_keys WHERE key_id = ? AND credential_id = ?`

	if _, err := r.db.Writer.ExecContext(ctx, query, keyID, credentialID); err != nil {
		return fmt.Errorf("dissociate credential %d from key %s: %w", credentialID, keyID, err)
	}
	return nil
}

// DeleteByCredential removes every association row of the credential.
func (r *AssociationRepo) DeleteByCredential(ctx context.Context, credentialID int64) error {
	const query = `DELETE FROM credential_keys WHERE credential_id = ?`

	if _, err := r.db.Writer.ExecContext(ctx, query, credentialID); err != nil {
		return fmt.Errorf("delete associations of credential %d: %w", credentialID, err)
	}
	return nil
}

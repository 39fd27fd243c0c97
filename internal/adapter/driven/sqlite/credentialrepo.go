package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ericfisherdev/keysync/internal/domain/model"
	"github.com/ericfisherdev/keysync/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.CredentialStore = (*CredentialRepo)(nil)

// CredentialRepo is the SQLite implementation of the CredentialStore port interface.
// It stores ciphertext as given and never encrypts or decrypts.
type CredentialRepo struct {
	db *DB
}

// NewCredentialRepo creates a new CredentialRepo backed by the given DB.
func NewCredentialRepo(db *DB) *CredentialRepo {
	return &CredentialRepo{db: db}
}

const credentialColumns = `id, name, encrypted_data, is_encryption_key_lost, updated_at`

// List returns all credentials ordered by ID.
func (r *CredentialRepo) List(ctx context.Context) ([]model.Credential, error) {
	query := `SELECT ` + credentialColumns + ` FROM credentials ORDER BY id`
	rows, err := r.db.Reader.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list credentials: %w", err)
	}
	defer rows.Close()

	var creds []model.Credential
	for rows.Next() {
		cred, err := scanCredential(rows)
		if err != nil {
			return nil, err
		}
		creds = append(creds, cred)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate credentials: %w", err)
	}

	return creds, nil
}

// Get returns the credential with the given ID, or driven.ErrCredentialNotFound.
func (r *CredentialRepo) Get(ctx context.Context, id int64) (model.Credential, error) {
	query := `SELECT ` + credentialColumns + ` FROM credentials WHERE id = ?`
	cred, err := scanCredential(r.db.Reader.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Credential{}, fmt.Errorf("get credential %d: %w", id, driven.ErrCredentialNotFound)
	}
	if err != nil {
		return model.Credential{}, fmt.Errorf("get credential %d: %w", id, err)
	}
	return cred, nil
}

// Create inserts a credential and returns it with its assigned ID.
func (r *CredentialRepo) Create(ctx context.Context, name, encryptedData string) (model.Credential, error) {
	const query = `INSERT INTO credentials (name, encrypted_data, is_encryption_key_lost, updated_at) VALUES (?, ?, 0, ?)`

	now := time.Now().UTC()
	result, err := r.db.Writer.ExecContext(ctx, query, name, encryptedData, formatTime(now))
	if err != nil {
		return model.Credential{}, fmt.Errorf("create credential %q: %w", name, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return model.Credential{}, fmt.Errorf("get credential id: %w", err)
	}

	return model.Credential{
		ID:            id,
		Name:          name,
		EncryptedData: encryptedData,
		UpdatedAt:     now,
	}, nil
}

// CreateWithKey inserts a credential and its association to keyID in a
// single transaction.
func (r *CredentialRepo) CreateWithKey(ctx context.Context, name, encryptedData, keyID string) (model.Credential, error) {
	tx, err := r.db.Writer.BeginTx(ctx, nil)
	if err != nil {
		return model.Credential{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	const insertCredential = `INSERT INTO credentials (name, encrypted_data, is_encryption_key_lost, updated_at) VALUES (?, ?, 0, ?)`
	result, err := tx.ExecContext(ctx, insertCredential, name, encryptedData, formatTime(now))
	if err != nil {
		return model.Credential{}, fmt.Errorf("create credential %q: %w", name, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return model.Credential{}, fmt.Errorf("get credential id: %w", err)
	}

	const insertAssociation = `INSERT INTO credential_keys (credential_id, key_id, created_at, updated_at) VALUES (?, ?, ?, ?)`
	if _, err := tx.ExecContext(ctx, insertAssociation, id, keyID, formatTime(now), formatTime(now)); err != nil {
		return model.Credential{}, fmt.Errorf("associate credential %q with key %s: %w", name, keyID, err)
	}

	if err := tx.Commit(); err != nil {
		return model.Credential{}, fmt.Errorf("commit credential %q: %w", name, err)
	}

	return model.Credential{
		ID:            id,
		Name:          name,
		EncryptedData: encryptedData,
		UpdatedAt:     now,
	}, nil
}

// UpdateIsEncryptionKeyLost sets the lost flag of a credential.
func (r *CredentialRepo) UpdateIsEncryptionKeyLost(ctx context.Context, id int64, lost bool) error {
	const query = `UPDATE credentials SET is_encryption_key_lost = ? WHERE id = ?`

	result, err := r.db.Writer.ExecContext(ctx, query, lost, id)
	if err != nil {
		return fmt.Errorf("update lost flag of credential %d: %w", id, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("update lost flag of credential %d: %w", id, driven.ErrCredentialNotFound)
	}

	return nil
}

func scanCredential(s scanner) (model.Credential, error) {
	var cred model.Credential
	var updatedAt string
	if err := s.Scan(&cred.ID, &cred.Name, &cred.EncryptedData, &cred.IsEncryptionKeyLost, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Credential{}, err
		}
		return model.Credential{}, fmt.Errorf("scan credential: %w", err)
	}

	var err error
	cred.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return model.Credential{}, fmt.Errorf("parse updated_at for credential %d: %w", cred.ID, err)
	}
	return cred, nil
}

package sqlite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ericfisherdev/keysync/internal/domain/model"
	"github.com/ericfisherdev/keysync/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.KeyStore = (*KeyRepo)(nil)

// KeyRepo is the SQLite implementation of the KeyStore port interface.
// Store iteration order is insertion order.
type KeyRepo struct {
	db *DB
}

// NewKeyRepo creates a new KeyRepo backed by the given DB.
func NewKeyRepo(db *DB) *KeyRepo {
	return &KeyRepo{db: db}
}

// List returns all keys in insertion order.
func (r *KeyRepo) List(ctx context.Context) ([]model.KeyMaterial, error) {
	const query = `SELECT id, name, key, updated_at FROM encryption_keys ORDER BY seq`
	return r.query(ctx, query)
}

// ListByUpdatedDesc returns all keys, most recently updated first. Keys with
// equal timestamps are ordered newest insertion first.
func (r *KeyRepo) ListByUpdatedDesc(ctx context.Context) ([]model.KeyMaterial, error) {
	const query = `SELECT id, name, key, updated_at FROM encryption_keys ORDER BY updated_at DESC, seq DESC`
	return r.query(ctx, query)
}

// Count returns the number of stored keys.
func (r *KeyRepo) Count(ctx context.Context) (int, error) {
	const query = `SELECT COUNT(*) FROM encryption_keys`

	var n int
	if err := r.db.Reader.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("count encryption keys: %w", err)
	}
	return n, nil
}

// Create inserts a key with a new UUIDv7 ID. UpdatedAt defaults to now.
func (r *KeyRepo) Create(ctx context.Context, key model.KeyMaterial) (model.KeyMaterial, error) {
	if key.Name == "" || key.Key == "" {
		return model.KeyMaterial{}, errors.New("create encryption key: name and key are required")
	}

	id, err := uuid.NewV7()
	if err != nil {
		return model.KeyMaterial{}, fmt.Errorf("generate key id: %w", err)
	}
	key.ID = id.String()

	now := time.Now().UTC()
	if key.UpdatedAt.IsZero() {
		key.UpdatedAt = now
	}

	const query = `INSERT INTO encryption_keys (id, name, key, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`
	_, err = r.db.Writer.ExecContext(ctx, query, key.ID, key.Name, key.Key, formatTime(now), formatTime(key.UpdatedAt))
	if err != nil {
		return model.KeyMaterial{}, fmt.Errorf("create encryption key %q: %w", key.Name, err)
	}

	key.UpdatedAt = key.UpdatedAt.UTC()
	return key, nil
}

func (r *KeyRepo) query(ctx context.Context, query string) ([]model.KeyMaterial, error) {
	rows, err := r.db.Reader.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list encryption keys: %w", err)
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
		return nil, fmt.Errorf("iterate encryption keys: %w", err)
	}

	return keys, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanKey(s scanner) (model.KeyMaterial, error) {
	var key model.KeyMaterial
	var updatedAt string
	if err := s.Scan(&key.ID, &key.Name, &key.Key, &updatedAt); err != nil {
		return model.KeyMaterial{}, fmt.Errorf("scan encryption key: %w", err)
	}

	var err error
	key.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return model.KeyMaterial{}, fmt.Errorf("parse updated_at for key %q: %w", key.Name, err)
	}
	return key, nil
}

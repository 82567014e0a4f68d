package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

type KeyValueRepository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

type SQLiteKeyValueRepository struct {
	database *sql.DB
}

func NewKeyValueRepository(database *sql.DB) *SQLiteKeyValueRepository {
	return &SQLiteKeyValueRepository{database: database}
}

func (repository *SQLiteKeyValueRepository) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := repository.database.QueryRowContext(ctx,
		"SELECT value FROM kv_store WHERE key = ?", key,
	).Scan(&value)
	if err != nil {
		return nil, fmt.Errorf("getting key %s: %w", key, err)
	}
	return value, nil
}

func (repository *SQLiteKeyValueRepository) Set(ctx context.Context, key string, value []byte) error {
	now := time.Now()
	_, err := repository.database.ExecContext(ctx,
		`INSERT INTO kv_store (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, now,
	)
	if err != nil {
		return fmt.Errorf("setting key %s: %w", key, err)
	}
	return nil
}

func (repository *SQLiteKeyValueRepository) Delete(ctx context.Context, key string) error {
	_, err := repository.database.ExecContext(ctx, "DELETE FROM kv_store WHERE key = ?", key)
	if err != nil {
		return fmt.Errorf("deleting key %s: %w", key, err)
	}
	return nil
}

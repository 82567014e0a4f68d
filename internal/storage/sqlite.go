package storage

import (
	"context"
	"database/sql"
	"errors"

	"github.com/bensuskins/command-center/internal/repository"
)

// SQLiteStore keeps local values in the kv_store table.
type SQLiteStore struct {
	repository repository.KeyValueRepository
}

func NewSQLiteStore(keyValues repository.KeyValueRepository) *SQLiteStore {
	return &SQLiteStore{repository: keyValues}
}

func (store *SQLiteStore) Read(ctx context.Context, key string) ([]byte, error) {
	value, err := store.repository.Get(ctx, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrKeyNotFound
	}
	return value, err
}

func (store *SQLiteStore) Write(ctx context.Context, key string, value []byte) error {
	return store.repository.Set(ctx, key, value)
}

func (store *SQLiteStore) Erase(ctx context.Context, key string) error {
	return store.repository.Delete(ctx, key)
}

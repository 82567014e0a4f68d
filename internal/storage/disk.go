package storage

import (
	"context"
	"fmt"

	"github.com/peterbourgon/diskv/v3"
)

// DiskStore keeps one file per key under a base directory.
type DiskStore struct {
	disk *diskv.Diskv
}

func NewDiskStore(basePath string) *DiskStore {
	return &DiskStore{disk: diskv.New(diskv.Options{
		BasePath:     basePath,
		Transform:    func(string) []string { return []string{} },
		CacheSizeMax: 1024 * 1024,
	})}
}

func (store *DiskStore) Read(_ context.Context, key string) ([]byte, error) {
	if !store.disk.Has(key) {
		return nil, ErrKeyNotFound
	}
	value, err := store.disk.Read(key)
	if err != nil {
		return nil, fmt.Errorf("reading %s from disk: %w", key, err)
	}
	return value, nil
}

func (store *DiskStore) Write(_ context.Context, key string, value []byte) error {
	if err := store.disk.Write(key, value); err != nil {
		return fmt.Errorf("writing %s to disk: %w", key, err)
	}
	return nil
}

func (store *DiskStore) Erase(_ context.Context, key string) error {
	if !store.disk.Has(key) {
		return nil
	}
	if err := store.disk.Erase(key); err != nil {
		return fmt.Errorf("erasing %s from disk: %w", key, err)
	}
	return nil
}

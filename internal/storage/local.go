package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
)

const (
	KeyGroceryItems        = "grocery-items"
	KeyVehicles            = "vehicles"
	KeyMaintenanceRecords  = "maintenance-records"
	KeyRestaurants         = "restaurants"
	KeyGoogleCalendarToken = "google-calendar-token"
	KeyThemePreference     = "theme-preference"
	KeyAICallCount         = "ai-call-count"
)

var ErrKeyNotFound = errors.New("key not found")

// KeyValueStore is the raw byte-level backend under Local. Read returns
// ErrKeyNotFound for absent keys and Erase ignores them.
type KeyValueStore interface {
	Read(ctx context.Context, key string) ([]byte, error)
	Write(ctx context.Context, key string, value []byte) error
	Erase(ctx context.Context, key string) error
}

// Local stores JSON values under fixed string keys.
type Local struct {
	store KeyValueStore
}

func NewLocal(store KeyValueStore) *Local {
	return &Local{store: store}
}

// Get returns the decoded value for key. Absent keys, unreadable keys and
// values that do not decode into T are all reported as absent.
func Get[T any](ctx context.Context, local *Local, key string) (T, bool) {
	var value T

	raw, err := local.store.Read(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrKeyNotFound) {
			slog.Warn("reading local key", "key", key, "error", err)
		}
		return value, false
	}

	if err := json.Unmarshal(raw, &value); err != nil {
		slog.Warn("decoding local key", "key", key, "error", err)
		var zero T
		return zero, false
	}
	return value, true
}

func (local *Local) Set(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	if err := local.store.Write(ctx, key, raw); err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	return nil
}

func (local *Local) Remove(ctx context.Context, key string) error {
	if err := local.store.Erase(ctx, key); err != nil {
		return fmt.Errorf("removing %s: %w", key, err)
	}
	return nil
}

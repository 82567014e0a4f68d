package lists

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/bensuskins/command-center/internal/storage"
)

type Mode string

const (
	ModeLocal  Mode = "local"
	ModeRemote Mode = "remote"
)

var (
	ErrRemoteUnavailable = errors.New("remote backend not initialized")
	ErrNotFound          = errors.New("item not found")
	ErrRemoteWrite       = errors.New("remote write failed")
)

// Entity is implemented with value receivers by every list item type.
type Entity[T any] interface {
	EntityID() string
	WithEntityID(id string) T
}

// Backend persists list mutations. Implementations publish the new full
// list through the callback handed to Start.
type Backend[T Entity[T]] interface {
	Mode() Mode
	Start(ctx context.Context, publish func([]T)) error
	Insert(ctx context.Context, current []T, item T) (T, error)
	Update(ctx context.Context, current []T, id string, patch map[string]any) error
	Delete(ctx context.Context, current []T, id string) error
	Stop()
}

// LocalBackend rewrites the whole list under one key on every mutation.
type LocalBackend[T Entity[T]] struct {
	local   *storage.Local
	key     string
	publish func([]T)
	now     func() time.Time
}

func NewLocalBackend[T Entity[T]](local *storage.Local, key string) *LocalBackend[T] {
	return &LocalBackend[T]{local: local, key: key, now: time.Now}
}

func (backend *LocalBackend[T]) Mode() Mode { return ModeLocal }

func (backend *LocalBackend[T]) Start(ctx context.Context, publish func([]T)) error {
	backend.publish = publish
	items, ok := storage.Get[[]T](ctx, backend.local, backend.key)
	if !ok {
		items = []T{}
	}
	publish(items)
	return nil
}

func (backend *LocalBackend[T]) Insert(ctx context.Context, current []T, item T) (T, error) {
	stamp := backend.now().UTC().Format(time.RFC3339)
	stamped, err := applyPatch(item, map[string]any{"createdAt": stamp, "updatedAt": stamp})
	if err != nil {
		return item, err
	}
	stamped = stamped.WithEntityID(NextLocalID())

	next := make([]T, 0, len(current)+1)
	next = append(next, current...)
	next = append(next, stamped)
	return stamped, backend.save(ctx, next)
}

func (backend *LocalBackend[T]) Update(ctx context.Context, current []T, id string, patch map[string]any) error {
	next := make([]T, len(current))
	found := false
	for index, item := range current {
		if item.EntityID() != id {
			next[index] = item
			continue
		}
		fields := make(map[string]any, len(patch)+1)
		for key, value := range patch {
			fields[key] = value
		}
		fields["updatedAt"] = backend.now().UTC().Format(time.RFC3339)

		updated, err := applyPatch(item, fields)
		if err != nil {
			return err
		}
		next[index] = updated
		found = true
	}
	if !found {
		return fmt.Errorf("updating %s: %w", id, ErrNotFound)
	}
	return backend.save(ctx, next)
}

func (backend *LocalBackend[T]) Delete(ctx context.Context, current []T, id string) error {
	next := make([]T, 0, len(current))
	for _, item := range current {
		if item.EntityID() != id {
			next = append(next, item)
		}
	}
	return backend.save(ctx, next)
}

func (backend *LocalBackend[T]) Stop() {}

// Clear drops the persisted list. The published snapshot is left alone.
func (backend *LocalBackend[T]) Clear(ctx context.Context) error {
	return backend.local.Remove(ctx, backend.key)
}

func (backend *LocalBackend[T]) save(ctx context.Context, next []T) error {
	if err := backend.local.Set(ctx, backend.key, next); err != nil {
		return fmt.Errorf("saving %s: %w", backend.key, err)
	}
	if backend.publish != nil {
		backend.publish(next)
	}
	return nil
}

// RemoteBackend writes straight to a document collection. The published
// list only ever changes when the live subscription delivers a snapshot.
type RemoteBackend[T Entity[T]] struct {
	documents   *storage.Documents
	collection  string
	unsubscribe func()
}

func NewRemoteBackend[T Entity[T]](documents *storage.Documents, collection string) *RemoteBackend[T] {
	return &RemoteBackend[T]{documents: documents, collection: collection}
}

func (backend *RemoteBackend[T]) Mode() Mode { return ModeRemote }

func (backend *RemoteBackend[T]) Start(_ context.Context, publish func([]T)) error {
	unsubscribe, ok := storage.Subscribe(backend.documents, backend.collection, publish)
	if !ok {
		return ErrRemoteUnavailable
	}
	backend.unsubscribe = unsubscribe
	return nil
}

func (backend *RemoteBackend[T]) Insert(ctx context.Context, _ []T, item T) (T, error) {
	id, ok := backend.documents.Add(ctx, backend.collection, item)
	if !ok {
		return item, backend.writeError("adding to")
	}
	return item.WithEntityID(id), nil
}

func (backend *RemoteBackend[T]) Update(ctx context.Context, _ []T, id string, patch map[string]any) error {
	if !backend.documents.Update(ctx, backend.collection, id, patch) {
		return backend.writeError("updating")
	}
	return nil
}

func (backend *RemoteBackend[T]) Delete(ctx context.Context, _ []T, id string) error {
	if !backend.documents.Delete(ctx, backend.collection, id) {
		return backend.writeError("deleting from")
	}
	return nil
}

func (backend *RemoteBackend[T]) Stop() {
	if backend.unsubscribe != nil {
		backend.unsubscribe()
		backend.unsubscribe = nil
	}
}

func (backend *RemoteBackend[T]) writeError(verb string) error {
	if cause := backend.documents.Err(); cause != nil {
		return fmt.Errorf("%s %s: %w: %w", verb, backend.collection, ErrRemoteWrite, cause)
	}
	return fmt.Errorf("%s %s: %w", verb, backend.collection, ErrRemoteWrite)
}

var localIDs = struct {
	sync.Mutex
	last int64
}{}

// NextLocalID returns a millisecond timestamp string that is strictly
// greater than every identifier it returned before.
func NextLocalID() string {
	localIDs.Lock()
	defer localIDs.Unlock()

	millis := time.Now().UnixMilli()
	if millis <= localIDs.last {
		millis = localIDs.last + 1
	}
	localIDs.last = millis
	return strconv.FormatInt(millis, 10)
}

func applyPatch[T any](item T, patch map[string]any) (T, error) {
	encoded, err := json.Marshal(item)
	if err != nil {
		return item, fmt.Errorf("encoding item: %w", err)
	}
	fields := map[string]any{}
	if err := json.Unmarshal(encoded, &fields); err != nil {
		return item, fmt.Errorf("decoding item fields: %w", err)
	}
	for key, value := range patch {
		if key == "id" {
			continue
		}
		fields[key] = value
	}

	merged, err := json.Marshal(fields)
	if err != nil {
		return item, fmt.Errorf("encoding patched item: %w", err)
	}
	var patched T
	if err := json.Unmarshal(merged, &patched); err != nil {
		return item, fmt.Errorf("decoding patched item: %w", err)
	}
	return patched, nil
}

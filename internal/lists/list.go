package lists

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bensuskins/command-center/internal/signal"
	"github.com/bensuskins/command-center/internal/storage"
)

type Options struct {
	// Key is the local store key holding the list in local mode.
	Key string
	// Collection is the document collection used in remote mode.
	Collection string
	UseRemote  bool
}

// List is an observable list persisted either locally or remotely. All
// mutations go through one mutex, so callers never race each other. Migrate
// assumes no other mutation runs while it copies items.
type List[T Entity[T]] struct {
	mutex   sync.Mutex
	name    string
	items   *signal.Value[[]T]
	backend Backend[T]
	local   *LocalBackend[T]
	remote  *RemoteBackend[T]
}

func New[T Entity[T]](ctx context.Context, local *storage.Local, documents *storage.Documents, options Options) (*List[T], error) {
	list := &List[T]{
		name:   options.Key,
		items:  signal.New([]T{}),
		local:  NewLocalBackend[T](local, options.Key),
		remote: NewRemoteBackend[T](documents, options.Collection),
	}

	list.backend = list.local
	if options.UseRemote {
		if documents.Initialized() {
			list.backend = list.remote
		} else {
			slog.Warn("remote list requested without document store, using local", "list", options.Key)
		}
	}

	if err := list.backend.Start(ctx, list.publish); err != nil {
		return nil, fmt.Errorf("starting %s list: %w", options.Key, err)
	}
	return list, nil
}

func (list *List[T]) publish(items []T) {
	list.items.Set(items)
}

func (list *List[T]) Mode() Mode {
	list.mutex.Lock()
	defer list.mutex.Unlock()
	return list.backend.Mode()
}

// Items returns a copy of the current snapshot.
func (list *List[T]) Items() []T {
	current := list.items.Get()
	snapshot := make([]T, len(current))
	copy(snapshot, current)
	return snapshot
}

func (list *List[T]) Find(id string) (T, bool) {
	for _, item := range list.items.Get() {
		if item.EntityID() == id {
			return item, true
		}
	}
	var zero T
	return zero, false
}

// Subscribe calls fn with every new snapshot until the returned func is called.
func (list *List[T]) Subscribe(fn func([]T)) func() {
	return list.items.Subscribe(fn)
}

func (list *List[T]) Insert(ctx context.Context, item T) (T, error) {
	list.mutex.Lock()
	defer list.mutex.Unlock()

	inserted, err := list.backend.Insert(ctx, list.items.Get(), item)
	if err != nil {
		return inserted, fmt.Errorf("inserting into %s: %w", list.name, err)
	}
	return inserted, nil
}

func (list *List[T]) Update(ctx context.Context, id string, patch map[string]any) error {
	list.mutex.Lock()
	defer list.mutex.Unlock()

	if _, ok := list.Find(id); !ok {
		return fmt.Errorf("updating %s in %s: %w", id, list.name, ErrNotFound)
	}
	if err := list.backend.Update(ctx, list.items.Get(), id, patch); err != nil {
		return fmt.Errorf("updating %s in %s: %w", id, list.name, err)
	}
	return nil
}

func (list *List[T]) Delete(ctx context.Context, id string) error {
	list.mutex.Lock()
	defer list.mutex.Unlock()

	if err := list.backend.Delete(ctx, list.items.Get(), id); err != nil {
		return fmt.Errorf("deleting %s from %s: %w", id, list.name, err)
	}
	return nil
}

// Migrate copies every local item into the remote collection, one at a
// time, then clears the local key and switches to remote mode. An empty
// local list leaves everything untouched.
func (list *List[T]) Migrate(ctx context.Context) error {
	_, err := list.MigrateWith(ctx, nil)
	return err
}

// MigrateWith is Migrate with rewrite applied to each item before it is
// copied. It returns the remote id assigned to each local id. On failure the
// documents already copied are deleted and the list stays local.
func (list *List[T]) MigrateWith(ctx context.Context, rewrite func(T) T) (map[string]string, error) {
	list.mutex.Lock()
	defer list.mutex.Unlock()

	ids := make(map[string]string)
	if list.backend.Mode() == ModeRemote {
		return ids, nil
	}
	if !list.remote.documents.Initialized() {
		slog.Error("cannot migrate list", "list", list.name, "error", ErrRemoteUnavailable)
		return nil, ErrRemoteUnavailable
	}

	items := list.items.Get()
	if len(items) == 0 {
		return ids, nil
	}

	for _, item := range items {
		localID := item.EntityID()
		if rewrite != nil {
			item = rewrite(item)
		}
		inserted, err := list.remote.Insert(ctx, nil, item)
		if err != nil {
			list.rollback(ctx, ids)
			return nil, fmt.Errorf("migrating %s item %s: %w", list.name, localID, err)
		}
		ids[localID] = inserted.EntityID()
	}

	if err := list.remote.Start(ctx, list.publish); err != nil {
		list.rollback(ctx, ids)
		return nil, fmt.Errorf("subscribing to %s: %w", list.name, err)
	}
	list.backend = list.remote

	if err := list.local.Clear(ctx); err != nil {
		slog.Warn("clearing migrated local list", "list", list.name, "error", err)
	}

	slog.Info("migrated list to remote store", "list", list.name, "items", len(items))
	return ids, nil
}

// rollback deletes documents copied by a failed migration.
func (list *List[T]) rollback(ctx context.Context, ids map[string]string) {
	for _, remoteID := range ids {
		if err := list.remote.Delete(ctx, nil, remoteID); err != nil {
			slog.Error("rolling back migrated item", "list", list.name, "id", remoteID, "error", err)
		}
	}
}

func (list *List[T]) Close() {
	list.mutex.Lock()
	defer list.mutex.Unlock()
	list.backend.Stop()
}

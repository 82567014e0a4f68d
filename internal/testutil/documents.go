package testutil

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/bensuskins/command-center/internal/storage"
)

var ErrInjected = errors.New("injected failure")

// MemoryDocuments is an in-memory storage.DocumentDriver. Watchers are
// notified synchronously, once on registration and after every mutation.
type MemoryDocuments struct {
	mutex       sync.Mutex
	collections map[string]map[string]map[string]any
	watchers    map[string]map[int]func([]storage.Document)
	nextID      int
	nextWatcher int

	// Fail makes every subsequent operation return ErrInjected.
	Fail bool
	// Adds counts successful Add calls per collection.
	Adds map[string]int

	addLimit int
	limited  bool
}

func NewMemoryDocuments() *MemoryDocuments {
	return &MemoryDocuments{
		collections: make(map[string]map[string]map[string]any),
		watchers:    make(map[string]map[int]func([]storage.Document)),
		Adds:        make(map[string]int),
	}
}

func (memory *MemoryDocuments) SetFail(fail bool) {
	memory.mutex.Lock()
	defer memory.mutex.Unlock()
	memory.Fail = fail
}

// FailAddsAfter lets the next n Add calls succeed and fails every Add after
// them. Other operations are unaffected.
func (memory *MemoryDocuments) FailAddsAfter(n int) {
	memory.mutex.Lock()
	defer memory.mutex.Unlock()
	memory.addLimit = n
	memory.limited = true
}

// Seed stores a document directly without notifying watchers.
func (memory *MemoryDocuments) Seed(collection string, id string, data map[string]any) {
	memory.mutex.Lock()
	defer memory.mutex.Unlock()
	memory.collectionLocked(collection)[id] = copyFields(data)
}

func (memory *MemoryDocuments) Count(collection string) int {
	memory.mutex.Lock()
	defer memory.mutex.Unlock()
	return len(memory.collections[collection])
}

func (memory *MemoryDocuments) Get(collection string, id string) (map[string]any, bool) {
	memory.mutex.Lock()
	defer memory.mutex.Unlock()
	data, ok := memory.collections[collection][id]
	return copyFields(data), ok
}

func (memory *MemoryDocuments) List(_ context.Context, collection string) ([]storage.Document, error) {
	memory.mutex.Lock()
	defer memory.mutex.Unlock()
	if memory.Fail {
		return nil, ErrInjected
	}
	return memory.snapshotLocked(collection), nil
}

func (memory *MemoryDocuments) Watch(_ context.Context, collection string, onChange func([]storage.Document), onError func(error)) func() {
	memory.mutex.Lock()
	if memory.Fail {
		memory.mutex.Unlock()
		onError(ErrInjected)
		return func() {}
	}
	id := memory.nextWatcher
	memory.nextWatcher++
	if memory.watchers[collection] == nil {
		memory.watchers[collection] = make(map[int]func([]storage.Document))
	}
	memory.watchers[collection][id] = onChange
	snapshot := memory.snapshotLocked(collection)
	memory.mutex.Unlock()

	onChange(snapshot)

	return func() {
		memory.mutex.Lock()
		defer memory.mutex.Unlock()
		delete(memory.watchers[collection], id)
	}
}

func (memory *MemoryDocuments) Add(_ context.Context, collection string, data map[string]any) (string, error) {
	memory.mutex.Lock()
	if memory.Fail || (memory.limited && memory.addLimit <= 0) {
		memory.mutex.Unlock()
		return "", ErrInjected
	}
	if memory.limited {
		memory.addLimit--
	}
	memory.nextID++
	id := "doc-" + strconv.Itoa(memory.nextID)
	memory.collectionLocked(collection)[id] = copyFields(data)
	memory.Adds[collection]++
	memory.mutex.Unlock()

	memory.notify(collection)
	return id, nil
}

func (memory *MemoryDocuments) Update(_ context.Context, collection string, id string, patch map[string]any) error {
	memory.mutex.Lock()
	if memory.Fail {
		memory.mutex.Unlock()
		return ErrInjected
	}
	existing, ok := memory.collections[collection][id]
	if !ok {
		memory.mutex.Unlock()
		return fmt.Errorf("document %s/%s not found", collection, id)
	}
	for key, value := range patch {
		existing[key] = value
	}
	memory.mutex.Unlock()

	memory.notify(collection)
	return nil
}

func (memory *MemoryDocuments) Delete(_ context.Context, collection string, id string) error {
	memory.mutex.Lock()
	if memory.Fail {
		memory.mutex.Unlock()
		return ErrInjected
	}
	delete(memory.collections[collection], id)
	memory.mutex.Unlock()

	memory.notify(collection)
	return nil
}

func (memory *MemoryDocuments) notify(collection string) {
	memory.mutex.Lock()
	snapshot := memory.snapshotLocked(collection)
	ids := make([]int, 0, len(memory.watchers[collection]))
	for id := range memory.watchers[collection] {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	callbacks := make([]func([]storage.Document), 0, len(ids))
	for _, id := range ids {
		callbacks = append(callbacks, memory.watchers[collection][id])
	}
	memory.mutex.Unlock()

	for _, callback := range callbacks {
		callback(snapshot)
	}
}

func (memory *MemoryDocuments) collectionLocked(collection string) map[string]map[string]any {
	if memory.collections[collection] == nil {
		memory.collections[collection] = make(map[string]map[string]any)
	}
	return memory.collections[collection]
}

// snapshotLocked returns documents ordered by createdAt then id so tests see
// insertion order.
func (memory *MemoryDocuments) snapshotLocked(collection string) []storage.Document {
	documents := make([]storage.Document, 0, len(memory.collections[collection]))
	for id, data := range memory.collections[collection] {
		documents = append(documents, storage.Document{ID: id, Data: copyFields(data)})
	}
	sort.Slice(documents, func(i, j int) bool {
		left, _ := documents[i].Data["createdAt"].(string)
		right, _ := documents[j].Data["createdAt"].(string)
		if left != right {
			return left < right
		}
		return documentOrder(documents[i].ID) < documentOrder(documents[j].ID)
	})
	return documents
}

func documentOrder(id string) int {
	number, err := strconv.Atoi(strings.TrimPrefix(id, "doc-"))
	if err != nil {
		return 0
	}
	return number
}

func copyFields(data map[string]any) map[string]any {
	if data == nil {
		return nil
	}
	copied := make(map[string]any, len(data))
	for key, value := range data {
		copied[key] = value
	}
	return copied
}

// NewMemoryLocal returns a storage.Local backed by a map.
func NewMemoryLocal() (*storage.Local, *MemoryKeyValues) {
	store := &MemoryKeyValues{values: make(map[string][]byte)}
	return storage.NewLocal(store), store
}

type MemoryKeyValues struct {
	mutex  sync.Mutex
	values map[string][]byte

	// FailWrites makes Write return ErrInjected.
	FailWrites bool
}

func (store *MemoryKeyValues) Read(_ context.Context, key string) ([]byte, error) {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	value, ok := store.values[key]
	if !ok {
		return nil, storage.ErrKeyNotFound
	}
	return append([]byte(nil), value...), nil
}

func (store *MemoryKeyValues) Write(_ context.Context, key string, value []byte) error {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	if store.FailWrites {
		return ErrInjected
	}
	store.values[key] = append([]byte(nil), value...)
	return nil
}

func (store *MemoryKeyValues) Erase(_ context.Context, key string) error {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	delete(store.values, key)
	return nil
}

func (store *MemoryKeyValues) Has(key string) bool {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	_, ok := store.values[key]
	return ok
}

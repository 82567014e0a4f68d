package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bensuskins/command-center/internal/signal"
)

var ErrNotInitialized = errors.New("document store not initialized")

type Document struct {
	ID   string
	Data map[string]any
}

// DocumentDriver is the raw collection API of a document database.
type DocumentDriver interface {
	List(ctx context.Context, collection string) ([]Document, error)
	Watch(ctx context.Context, collection string, onChange func([]Document), onError func(error)) (stop func())
	Add(ctx context.Context, collection string, data map[string]any) (string, error)
	Update(ctx context.Context, collection string, id string, patch map[string]any) error
	Delete(ctx context.Context, collection string, id string) error
}

// Documents reports failures through a sticky error instead of returning
// them. A nil driver means the store was never configured.
type Documents struct {
	driver DocumentDriver
	errors *signal.Value[error]
	now    func() time.Time
}

func NewDocuments(driver DocumentDriver) *Documents {
	return &Documents{
		driver: driver,
		errors: signal.New[error](nil),
		now:    time.Now,
	}
}

func (documents *Documents) Initialized() bool {
	return documents != nil && documents.driver != nil
}

// Err returns the most recent failure. It stays set until ClearError.
func (documents *Documents) Err() error {
	return documents.errors.Get()
}

func (documents *Documents) Errors() *signal.Value[error] {
	return documents.errors
}

func (documents *Documents) ClearError() {
	documents.errors.Set(nil)
}

func (documents *Documents) fail(message string, err error) {
	slog.Error(message, "error", err)
	documents.errors.Set(fmt.Errorf("%s: %w", message, err))
}

func GetAll[T any](ctx context.Context, documents *Documents, collection string) []T {
	if !documents.Initialized() {
		documents.fail("getting collection "+collection, ErrNotInitialized)
		return []T{}
	}

	raw, err := documents.driver.List(ctx, collection)
	if err != nil {
		documents.fail("getting collection "+collection, err)
		return []T{}
	}

	items, err := decodeAll[T](raw)
	if err != nil {
		documents.fail("decoding collection "+collection, err)
		return []T{}
	}
	return items
}

// Subscribe delivers the whole collection to callback on every change. The
// second result is false when the store is not initialized.
func Subscribe[T any](documents *Documents, collection string, callback func([]T)) (func(), bool) {
	if !documents.Initialized() {
		slog.Warn("subscribing without document store", "collection", collection)
		return nil, false
	}

	stop := documents.driver.Watch(context.Background(), collection,
		func(raw []Document) {
			items, err := decodeAll[T](raw)
			if err != nil {
				documents.fail("decoding snapshot of "+collection, err)
				return
			}
			callback(items)
		},
		func(err error) {
			documents.fail("subscribing to collection "+collection, err)
		},
	)
	return stop, true
}

// Add stores data as a new document and returns its identifier.
func (documents *Documents) Add(ctx context.Context, collection string, data any) (string, bool) {
	if !documents.Initialized() {
		documents.fail("adding document to "+collection, ErrNotInitialized)
		return "", false
	}

	fields, err := toFields(data)
	if err != nil {
		documents.fail("encoding document for "+collection, err)
		return "", false
	}
	delete(fields, "id")
	stamp := documents.now().UTC().Format(time.RFC3339)
	fields["createdAt"] = stamp
	fields["updatedAt"] = stamp

	id, err := documents.driver.Add(ctx, collection, fields)
	if err != nil {
		documents.fail("adding document to "+collection, err)
		return "", false
	}
	return id, true
}

func (documents *Documents) Update(ctx context.Context, collection string, id string, patch map[string]any) bool {
	if !documents.Initialized() {
		documents.fail("updating document in "+collection, ErrNotInitialized)
		return false
	}

	fields := make(map[string]any, len(patch)+1)
	for key, value := range patch {
		if key == "id" {
			continue
		}
		fields[key] = value
	}
	fields["updatedAt"] = documents.now().UTC().Format(time.RFC3339)

	if err := documents.driver.Update(ctx, collection, id, fields); err != nil {
		documents.fail("updating document in "+collection, err)
		return false
	}
	return true
}

func (documents *Documents) Delete(ctx context.Context, collection string, id string) bool {
	if !documents.Initialized() {
		documents.fail("deleting document from "+collection, ErrNotInitialized)
		return false
	}

	if err := documents.driver.Delete(ctx, collection, id); err != nil {
		documents.fail("deleting document from "+collection, err)
		return false
	}
	return true
}

func decodeAll[T any](raw []Document) ([]T, error) {
	items := make([]T, 0, len(raw))
	for _, document := range raw {
		fields := make(map[string]any, len(document.Data)+1)
		for key, value := range document.Data {
			fields[key] = value
		}
		fields["id"] = document.ID

		encoded, err := json.Marshal(fields)
		if err != nil {
			return nil, fmt.Errorf("encoding document %s: %w", document.ID, err)
		}
		var item T
		if err := json.Unmarshal(encoded, &item); err != nil {
			return nil, fmt.Errorf("decoding document %s: %w", document.ID, err)
		}
		items = append(items, item)
	}
	return items, nil
}

func toFields(data any) (map[string]any, error) {
	if fields, ok := data.(map[string]any); ok {
		copied := make(map[string]any, len(fields))
		for key, value := range fields {
			copied[key] = value
		}
		return copied, nil
	}

	encoded, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	var fields map[string]any
	if err := json.Unmarshal(encoded, &fields); err != nil {
		return nil, err
	}
	if fields == nil {
		fields = map[string]any{}
	}
	return fields, nil
}

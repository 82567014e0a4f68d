package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

type FirestoreDriver struct {
	client *firestore.Client
}

func NewFirestoreDriver(ctx context.Context, projectID string, credentialsFile string) (*FirestoreDriver, error) {
	var options []option.ClientOption
	if credentialsFile != "" {
		options = append(options, option.WithCredentialsFile(credentialsFile))
	}

	client, err := firestore.NewClient(ctx, projectID, options...)
	if err != nil {
		return nil, fmt.Errorf("creating firestore client: %w", err)
	}
	return &FirestoreDriver{client: client}, nil
}

func (driver *FirestoreDriver) Close() error {
	return driver.client.Close()
}

func (driver *FirestoreDriver) List(ctx context.Context, collection string) ([]Document, error) {
	snapshots, err := driver.client.Collection(collection).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", collection, err)
	}
	return toDocuments(snapshots), nil
}

func (driver *FirestoreDriver) Watch(ctx context.Context, collection string, onChange func([]Document), onError func(error)) func() {
	ctx, cancel := context.WithCancel(ctx)
	snapshots := driver.client.Collection(collection).Snapshots(ctx)

	go func() {
		defer snapshots.Stop()
		for {
			snapshot, err := snapshots.Next()
			if err != nil {
				if ctx.Err() != nil || errors.Is(err, iterator.Done) {
					return
				}
				onError(fmt.Errorf("watching %s: %w", collection, err))
				return
			}

			documents, err := snapshot.Documents.GetAll()
			if err != nil {
				onError(fmt.Errorf("reading snapshot of %s: %w", collection, err))
				continue
			}
			slog.Debug("collection snapshot", "collection", collection, "documents", len(documents))
			onChange(toDocuments(documents))
		}
	}()

	return cancel
}

func (driver *FirestoreDriver) Add(ctx context.Context, collection string, data map[string]any) (string, error) {
	reference, _, err := driver.client.Collection(collection).Add(ctx, data)
	if err != nil {
		return "", fmt.Errorf("adding to %s: %w", collection, err)
	}
	return reference.ID, nil
}

func (driver *FirestoreDriver) Update(ctx context.Context, collection string, id string, patch map[string]any) error {
	updates := make([]firestore.Update, 0, len(patch))
	for key, value := range patch {
		updates = append(updates, firestore.Update{FieldPath: firestore.FieldPath{key}, Value: value})
	}
	if _, err := driver.client.Collection(collection).Doc(id).Update(ctx, updates); err != nil {
		return fmt.Errorf("updating %s/%s: %w", collection, id, err)
	}
	return nil
}

func (driver *FirestoreDriver) Delete(ctx context.Context, collection string, id string) error {
	if _, err := driver.client.Collection(collection).Doc(id).Delete(ctx); err != nil {
		return fmt.Errorf("deleting %s/%s: %w", collection, id, err)
	}
	return nil
}

func toDocuments(snapshots []*firestore.DocumentSnapshot) []Document {
	documents := make([]Document, 0, len(snapshots))
	for _, snapshot := range snapshots {
		documents = append(documents, Document{ID: snapshot.Ref.ID, Data: snapshot.Data()})
	}
	return documents
}

package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/bensuskins/command-center/internal/models"
	"github.com/google/uuid"
)

type ICalSubscriptionRepository interface {
	FindAll(ctx context.Context) ([]models.ICalSubscription, error)
	FindByID(ctx context.Context, id string) (models.ICalSubscription, error)
	Create(ctx context.Context, subscription models.ICalSubscription) (models.ICalSubscription, error)
	UpdateCache(ctx context.Context, id string, data string, fetchedAt time.Time) error
	Delete(ctx context.Context, id string) error
}

type SQLiteICalSubscriptionRepository struct {
	database *sql.DB
}

func NewICalSubscriptionRepository(database *sql.DB) *SQLiteICalSubscriptionRepository {
	return &SQLiteICalSubscriptionRepository{database: database}
}

const subscriptionColumns = "id, name, url, color_id, cached_data, last_fetched_at, created_at"

func scanSubscription(row rowScanner) (models.ICalSubscription, error) {
	var subscription models.ICalSubscription
	err := row.Scan(
		&subscription.ID, &subscription.Name, &subscription.URL, &subscription.ColorID,
		&subscription.CachedData, &subscription.LastFetchedAt, &subscription.CreatedAt,
	)
	return subscription, err
}

func (repository *SQLiteICalSubscriptionRepository) FindAll(ctx context.Context) ([]models.ICalSubscription, error) {
	rows, err := repository.database.QueryContext(ctx,
		"SELECT "+subscriptionColumns+" FROM ical_subscriptions ORDER BY created_at ASC",
	)
	if err != nil {
		return nil, fmt.Errorf("querying ical subscriptions: %w", err)
	}
	defer rows.Close()

	var subscriptions []models.ICalSubscription
	for rows.Next() {
		subscription, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning ical subscription: %w", err)
		}
		subscriptions = append(subscriptions, subscription)
	}
	return subscriptions, rows.Err()
}

func (repository *SQLiteICalSubscriptionRepository) FindByID(ctx context.Context, id string) (models.ICalSubscription, error) {
	subscription, err := scanSubscription(repository.database.QueryRowContext(ctx,
		"SELECT "+subscriptionColumns+" FROM ical_subscriptions WHERE id = ?", id,
	))
	if err != nil {
		return models.ICalSubscription{}, fmt.Errorf("finding ical subscription by id: %w", err)
	}
	return subscription, nil
}

func (repository *SQLiteICalSubscriptionRepository) Create(ctx context.Context, subscription models.ICalSubscription) (models.ICalSubscription, error) {
	if subscription.ID == "" {
		subscription.ID = uuid.New().String()
	}
	subscription.CreatedAt = time.Now()

	_, err := repository.database.ExecContext(ctx,
		"INSERT INTO ical_subscriptions (id, name, url, color_id, created_at) VALUES (?, ?, ?, ?, ?)",
		subscription.ID, subscription.Name, subscription.URL, subscription.ColorID, subscription.CreatedAt,
	)
	if err != nil {
		return models.ICalSubscription{}, fmt.Errorf("inserting ical subscription: %w", err)
	}
	return subscription, nil
}

func (repository *SQLiteICalSubscriptionRepository) UpdateCache(ctx context.Context, id string, data string, fetchedAt time.Time) error {
	_, err := repository.database.ExecContext(ctx,
		"UPDATE ical_subscriptions SET cached_data = ?, last_fetched_at = ? WHERE id = ?",
		data, fetchedAt, id,
	)
	if err != nil {
		return fmt.Errorf("updating ical subscription cache: %w", err)
	}
	return nil
}

func (repository *SQLiteICalSubscriptionRepository) Delete(ctx context.Context, id string) error {
	_, err := repository.database.ExecContext(ctx,
		"DELETE FROM ical_subscriptions WHERE id = ?", id,
	)
	if err != nil {
		return fmt.Errorf("deleting ical subscription: %w", err)
	}
	return nil
}

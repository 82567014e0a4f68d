package calendar

import (
	"context"
	"fmt"
	"time"

	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/bensuskins/command-center/internal/models"
)

const (
	googleSourceName = "google"
	maxResults       = 250
)

// Source supplies events whose interval intersects [from, to].
type Source interface {
	Name() string
	Events(ctx context.Context, from time.Time, to time.Time) ([]models.CalendarEvent, error)
}

type GoogleSource struct {
	service    *gcal.Service
	calendarID string
}

func NewGoogleSource(ctx context.Context, calendarID string, opts ...option.ClientOption) (*GoogleSource, error) {
	service, err := gcal.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating calendar service: %w", err)
	}
	if calendarID == "" {
		calendarID = "primary"
	}
	return &GoogleSource{service: service, calendarID: calendarID}, nil
}

func (source *GoogleSource) Name() string {
	return googleSourceName
}

// Events lists the window in one bounded request with recurring events
// expanded into instances.
func (source *GoogleSource) Events(ctx context.Context, from time.Time, to time.Time) ([]models.CalendarEvent, error) {
	result, err := source.service.Events.List(source.calendarID).
		TimeMin(from.Format(time.RFC3339)).
		TimeMax(to.Format(time.RFC3339)).
		ShowDeleted(false).
		SingleEvents(true).
		MaxResults(maxResults).
		OrderBy("startTime").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("listing events for %s: %w", source.calendarID, err)
	}

	events := make([]models.CalendarEvent, 0, len(result.Items))
	for _, item := range result.Items {
		events = append(events, models.CalendarEvent{
			ID:          item.Id,
			Summary:     item.Summary,
			Description: item.Description,
			Location:    item.Location,
			Start:       convertDateTime(item.Start),
			End:         convertDateTime(item.End),
			ColorID:     item.ColorId,
			HTMLLink:    item.HtmlLink,
			Source:      googleSourceName,
		})
	}
	return events, nil
}

func convertDateTime(value *gcal.EventDateTime) models.EventDateTime {
	if value == nil {
		return models.EventDateTime{}
	}
	return models.EventDateTime{Date: value.Date, DateTime: value.DateTime, TimeZone: value.TimeZone}
}

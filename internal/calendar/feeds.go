package calendar

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/teambition/rrule-go"

	"github.com/bensuskins/command-center/internal/models"
	"github.com/bensuskins/command-center/internal/repository"
)

const (
	feedSourceName        = "ical"
	maxOccurrencesPerFeed = 2000
)

// FeedSource reads subscribed iCal feeds, caching each body in the
// subscription row so a feed that is briefly down still renders.
type FeedSource struct {
	subRepo  repository.ICalSubscriptionRepository
	cacheTTL time.Duration
	client   *http.Client
	now      func() time.Time
}

func NewFeedSource(subRepo repository.ICalSubscriptionRepository) *FeedSource {
	return &FeedSource{
		subRepo:  subRepo,
		cacheTTL: 30 * time.Minute,
		client:   &http.Client{Timeout: 10 * time.Second},
		now:      time.Now,
	}
}

func (source *FeedSource) Name() string {
	return feedSourceName
}

func (source *FeedSource) RefreshByID(ctx context.Context, id string) error {
	sub, err := source.subRepo.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("finding subscription: %w", err)
	}
	data, err := source.fetchURL(ctx, sub.URL)
	if err != nil {
		return fmt.Errorf("fetching url: %w", err)
	}
	return source.subRepo.UpdateCache(ctx, sub.ID, data, source.now())
}

// RefreshAll refetches every feed, logging the ones that fail.
func (source *FeedSource) RefreshAll(ctx context.Context) error {
	subs, err := source.subRepo.FindAll(ctx)
	if err != nil {
		return fmt.Errorf("loading subscriptions: %w", err)
	}
	for _, sub := range subs {
		if err := source.RefreshByID(ctx, sub.ID); err != nil {
			slog.Warn("refreshing ical subscription", "name", sub.Name, "error", err)
		}
	}
	return nil
}

func (source *FeedSource) Events(ctx context.Context, from time.Time, to time.Time) ([]models.CalendarEvent, error) {
	subs, err := source.subRepo.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading subscriptions: %w", err)
	}

	var events []models.CalendarEvent
	for _, sub := range subs {
		subEvents, err := source.fetchSubscription(ctx, sub, from, to)
		if err != nil {
			slog.Warn("skipping ical subscription", "name", sub.Name, "error", err)
			continue
		}
		events = append(events, subEvents...)
	}
	return events, nil
}

func (source *FeedSource) fetchSubscription(ctx context.Context, sub models.ICalSubscription, from, to time.Time) ([]models.CalendarEvent, error) {
	needsFetch := sub.LastFetchedAt == nil || source.now().Sub(*sub.LastFetchedAt) > source.cacheTTL

	if needsFetch {
		data, err := source.fetchURL(ctx, sub.URL)
		if err != nil {
			slog.Warn("fetching ical url", "name", sub.Name, "error", err)
		} else {
			now := source.now()
			if updateErr := source.subRepo.UpdateCache(ctx, sub.ID, data, now); updateErr != nil {
				slog.Error("updating ical cache", "error", updateErr)
			}
			sub.CachedData = &data
			sub.LastFetchedAt = &now
		}
	}

	if sub.CachedData == nil {
		return nil, fmt.Errorf("no cached data for subscription %q", sub.Name)
	}

	colorID := ""
	if sub.ColorID != nil {
		colorID = *sub.ColorID
	}
	return ParseFeed(*sub.CachedData, sub.ID, colorID, from, to)
}

func (source *FeedSource) fetchURL(ctx context.Context, url string) (string, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}
	resp, err := source.client.Do(request)
	if err != nil {
		return "", fmt.Errorf("http get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading body: %w", err)
	}
	return string(data), nil
}

// ParseFeed converts a VCALENDAR body into events intersecting [from, to],
// expanding RRULEs into one event per occurrence.
func ParseFeed(data string, subscriptionID string, colorID string, from, to time.Time) ([]models.CalendarEvent, error) {
	cal, err := ical.ParseCalendar(strings.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parsing ical: %w", err)
	}

	var events []models.CalendarEvent
	for _, vevent := range cal.Events() {
		parsed, err := parseVEvent(vevent)
		if err != nil {
			slog.Debug("skipping ical event", "error", err)
			continue
		}
		for _, occurrence := range parsed.occurrences(from, to) {
			events = append(events, occurrence.toEvent(subscriptionID, colorID))
		}
	}
	return events, nil
}

type feedEvent struct {
	uid         string
	summary     string
	description string
	location    string
	start       time.Time
	end         time.Time
	allDay      bool
	rule        string
	exDates     []time.Time
	instance    bool
}

func parseVEvent(vevent *ical.VEvent) (feedEvent, error) {
	event := feedEvent{uid: "unknown", summary: "(No title)"}
	if prop := vevent.GetProperty(ical.ComponentPropertyUniqueId); prop != nil && prop.Value != "" {
		event.uid = prop.Value
	}
	if prop := vevent.GetProperty(ical.ComponentPropertySummary); prop != nil {
		event.summary = ical.FromText(prop.Value)
	}
	if prop := vevent.GetProperty(ical.ComponentPropertyDescription); prop != nil {
		event.description = ical.FromText(prop.Value)
	}
	if prop := vevent.GetProperty(ical.ComponentPropertyLocation); prop != nil {
		event.location = ical.FromText(prop.Value)
	}

	dtStartProp := vevent.GetProperty(ical.ComponentPropertyDtStart)
	if dtStartProp == nil {
		return feedEvent{}, fmt.Errorf("missing DTSTART for event %q", event.summary)
	}
	event.allDay = isAllDayProperty(dtStartProp)

	var err error
	if event.allDay {
		event.start, err = vevent.GetAllDayStartAt()
	} else {
		event.start, err = vevent.GetStartAt()
	}
	if err != nil {
		return feedEvent{}, fmt.Errorf("parsing DTSTART for event %q: %w", event.summary, err)
	}

	var end time.Time
	if event.allDay {
		end, err = vevent.GetAllDayEndAt()
	} else {
		end, err = vevent.GetEndAt()
	}
	switch {
	case err == nil && !end.Before(event.start):
		event.end = end
	case event.allDay:
		event.end = event.start.AddDate(0, 0, 1)
	default:
		event.end = event.start
	}

	if prop := vevent.GetProperty(ical.ComponentPropertyRrule); prop != nil {
		event.rule = prop.Value
	}
	for _, prop := range vevent.GetProperties(ical.ComponentPropertyExdate) {
		for _, part := range strings.Split(prop.Value, ",") {
			if exDate, err := parseICalTime(strings.TrimSpace(part), event.start.Location()); err == nil {
				event.exDates = append(event.exDates, exDate)
			}
		}
	}
	return event, nil
}

func (event feedEvent) occurrences(from, to time.Time) []feedEvent {
	if event.rule == "" {
		if event.start.After(to) || event.end.Before(from) {
			return nil
		}
		return []feedEvent{event}
	}

	rule, err := rrule.StrToRRule(event.rule)
	if err != nil {
		slog.Debug("skipping unparseable rrule", "uid", event.uid, "error", err)
		return nil
	}
	rule.DTStart(event.start)

	var set rrule.Set
	set.RRule(rule)
	for _, exDate := range event.exDates {
		set.ExDate(exDate)
	}

	duration := event.end.Sub(event.start)
	// Instances that started before the window can still overlap it.
	starts := set.Between(from.Add(-duration), to, true)
	if len(starts) > maxOccurrencesPerFeed {
		starts = starts[:maxOccurrencesPerFeed]
	}

	instances := make([]feedEvent, 0, len(starts))
	for _, start := range starts {
		instance := event
		instance.start = start
		instance.end = start.Add(duration)
		instance.instance = true
		instances = append(instances, instance)
	}
	return instances
}

func (event feedEvent) toEvent(subscriptionID string, colorID string) models.CalendarEvent {
	id := subscriptionID + "-" + event.uid
	if event.instance {
		id += "-" + event.start.UTC().Format("20060102T150405Z")
	}

	converted := models.CalendarEvent{
		ID:          id,
		Summary:     event.summary,
		Description: event.description,
		Location:    event.location,
		ColorID:     colorID,
		Source:      feedSourceName,
	}
	if event.allDay {
		converted.Start = models.EventDateTime{Date: event.start.Format(dateLayout)}
		converted.End = models.EventDateTime{Date: event.end.Format(dateLayout)}
	} else {
		converted.Start = models.EventDateTime{DateTime: event.start.Format(time.RFC3339)}
		converted.End = models.EventDateTime{DateTime: event.end.Format(time.RFC3339)}
	}
	return converted
}

func isAllDayProperty(prop *ical.IANAProperty) bool {
	for _, values := range prop.ICalParameters {
		for _, v := range values {
			if strings.EqualFold(v, "DATE") {
				return true
			}
		}
	}
	return !strings.Contains(prop.Value, "T")
}

func parseICalTime(value string, location *time.Location) (time.Time, error) {
	switch {
	case strings.HasSuffix(value, "Z"):
		return time.Parse("20060102T150405Z", value)
	case strings.Contains(value, "T"):
		return time.ParseInLocation("20060102T150405", value, location)
	default:
		return time.ParseInLocation("20060102", value, location)
	}
}

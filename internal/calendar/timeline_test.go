package calendar

import (
	"testing"
	"time"

	"github.com/bensuskins/command-center/internal/models"
)

func timedEvent(id, start, end string) models.CalendarEvent {
	return models.CalendarEvent{
		ID:      id,
		Summary: id,
		Start:   models.EventDateTime{DateTime: start},
		End:     models.EventDateTime{DateTime: end},
	}
}

func allDayEvent(id, start, end string) models.CalendarEvent {
	return models.CalendarEvent{
		ID:      id,
		Summary: id,
		Start:   models.EventDateTime{Date: start},
		End:     models.EventDateTime{Date: end},
	}
}

func TestResolveStart_DateOnlyIsLocalMidnight(t *testing.T) {
	zones := []*time.Location{
		time.UTC,
		time.FixedZone("west", -10*3600),
		time.FixedZone("east", 13*3600),
		time.FixedZone("half", 5*3600+1800),
	}
	event := allDayEvent("birthday", "2024-03-05", "2024-03-06")

	for _, zone := range zones {
		timeline := NewTimeline(zone)
		start, err := timeline.ResolveStart(event)
		if err != nil {
			t.Fatalf("%s: resolving start: %v", zone, err)
		}
		end, err := timeline.ResolveEnd(event)
		if err != nil {
			t.Fatalf("%s: resolving end: %v", zone, err)
		}

		if start.Year() != 2024 || start.Month() != time.March || start.Day() != 5 || start.Hour() != 0 || start.Minute() != 0 {
			t.Errorf("%s: expected local midnight 2024-03-05, got %v", zone, start)
		}
		if start.Location() != zone {
			t.Errorf("%s: expected start in %s, got %s", zone, zone, start.Location())
		}
		if end.Day() != 6 || end.Hour() != 0 {
			t.Errorf("%s: expected local midnight 2024-03-06, got %v", zone, end)
		}
	}
}

func TestResolveStart_DateTimeKeepsOffset(t *testing.T) {
	timeline := NewTimeline(time.UTC)
	values := []string{
		"2024-06-01T09:30:00+09:00",
		"2024-06-01T09:30:00-07:00",
		"2024-06-01T09:30:00Z",
	}

	for _, value := range values {
		resolved, err := timeline.ResolveStart(timedEvent("e", value, value))
		if err != nil {
			t.Fatalf("resolving %q: %v", value, err)
		}
		direct, _ := time.Parse(time.RFC3339, value)
		if !resolved.Equal(direct) {
			t.Errorf("expected %v, got %v", direct, resolved)
		}
		if got := resolved.Format(time.RFC3339); got != value {
			t.Errorf("expected round trip %q, got %q", value, got)
		}
	}
}

func TestResolveStart_MissingTime(t *testing.T) {
	timeline := NewTimeline(time.UTC)
	if _, err := timeline.ResolveStart(models.CalendarEvent{ID: "empty"}); err == nil {
		t.Error("expected error for event without date or dateTime")
	}
}

func TestProjectDay_SpansThreeDays(t *testing.T) {
	zone := time.FixedZone("test", -5*3600)
	timeline := NewTimeline(zone)
	events := []models.CalendarEvent{
		timedEvent("trip", "2024-03-10T15:00:00-05:00", "2024-03-12T10:30:00-05:00"),
	}

	tests := []struct {
		day            time.Time
		expectedStart  string
		expectedEnd    string
		expectedTop    float64
		expectedHeight float64
	}{
		{time.Date(2024, 3, 10, 12, 0, 0, 0, zone), "15:00", "23:59", 900, 539},
		{time.Date(2024, 3, 11, 12, 0, 0, 0, zone), "00:00", "23:59", 0, 1439},
		{time.Date(2024, 3, 12, 12, 0, 0, 0, zone), "00:00", "10:30", 0, 630},
	}

	for _, testCase := range tests {
		view := timeline.ProjectDay(events, testCase.day)
		if len(view.Timed) != 1 {
			t.Fatalf("%s: expected 1 timed event, got %d", testCase.day.Format("Jan 2"), len(view.Timed))
		}
		placed := view.Timed[0]
		if got := placed.Start.Format("15:04"); got != testCase.expectedStart {
			t.Errorf("%s: expected start %s, got %s", testCase.day.Format("Jan 2"), testCase.expectedStart, got)
		}
		if got := placed.End.Format("15:04"); got != testCase.expectedEnd {
			t.Errorf("%s: expected end %s, got %s", testCase.day.Format("Jan 2"), testCase.expectedEnd, got)
		}
		if placed.TopPosition != testCase.expectedTop {
			t.Errorf("%s: expected top %v, got %v", testCase.day.Format("Jan 2"), testCase.expectedTop, placed.TopPosition)
		}
		if placed.Height != testCase.expectedHeight {
			t.Errorf("%s: expected height %v, got %v", testCase.day.Format("Jan 2"), testCase.expectedHeight, placed.Height)
		}
	}

	if view := timeline.ProjectDay(events, time.Date(2024, 3, 13, 0, 0, 0, 0, zone)); len(view.Timed) != 0 {
		t.Errorf("expected no events the day after, got %d", len(view.Timed))
	}
}

func TestProjectDay_EndAtMidnightIsExclusive(t *testing.T) {
	zone := time.FixedZone("test", -5*3600)
	timeline := NewTimeline(zone)
	events := []models.CalendarEvent{
		allDayEvent("birthday", "2024-03-05", "2024-03-06"),
		timedEvent("late", "2024-03-05T22:00:00-05:00", "2024-03-06T00:00:00-05:00"),
	}

	view := timeline.ProjectDay(events, time.Date(2024, 3, 5, 12, 0, 0, 0, zone))
	if len(view.AllDay) != 1 || len(view.Timed) != 1 {
		t.Fatalf("expected both events on their own day, got %d all-day and %d timed", len(view.AllDay), len(view.Timed))
	}

	view = timeline.ProjectDay(events, time.Date(2024, 3, 6, 12, 0, 0, 0, zone))
	if len(view.AllDay) != 0 || len(view.Timed) != 0 {
		t.Errorf("expected nothing on the next day, got %d all-day and %d timed", len(view.AllDay), len(view.Timed))
	}
}

func TestProjectDay_DedupesAndClamps(t *testing.T) {
	zone := time.FixedZone("test", 2*3600)
	timeline := NewTimeline(zone)
	events := []models.CalendarEvent{
		timedEvent("late", "2024-05-01T22:00:00+02:00", "2024-05-02T01:00:00+02:00"),
		timedEvent("standup", "2024-05-01T09:00:00+02:00", "2024-05-01T09:15:00+02:00"),
		timedEvent("standup", "2024-05-01T09:00:00+02:00", "2024-05-01T09:15:00+02:00"),
		timedEvent("early", "2024-04-30T23:00:00+02:00", "2024-05-01T02:00:00+02:00"),
	}

	day := time.Date(2024, 5, 1, 0, 0, 0, 0, zone)
	dayStart, dayEnd := timeline.DayBounds(day)
	view := timeline.ProjectDay(events, day)

	seen := make(map[string]bool)
	for _, placed := range view.Timed {
		if seen[placed.Event.ID] {
			t.Errorf("event %q returned twice", placed.Event.ID)
		}
		seen[placed.Event.ID] = true
		if placed.Start.Before(dayStart) || placed.End.After(dayEnd) {
			t.Errorf("event %q not clamped: %v - %v", placed.Event.ID, placed.Start, placed.End)
		}
	}
	if len(view.Timed) != 3 {
		t.Fatalf("expected 3 events, got %d", len(view.Timed))
	}

	order := []string{view.Timed[0].Event.ID, view.Timed[1].Event.ID, view.Timed[2].Event.ID}
	expected := []string{"early", "standup", "late"}
	for i := range expected {
		if order[i] != expected[i] {
			t.Errorf("expected order %v, got %v", expected, order)
			break
		}
	}
}

func TestProjectDay_PositionsAndMinimumHeight(t *testing.T) {
	timeline := NewTimeline(time.UTC)
	events := []models.CalendarEvent{
		timedEvent("c", "2024-01-15T16:00:00Z", "2024-01-15T17:30:00Z"),
		timedEvent("a", "2024-01-15T08:00:00Z", "2024-01-15T08:05:00Z"),
		timedEvent("b", "2024-01-15T12:00:00Z", "2024-01-15T13:00:00Z"),
	}

	view := timeline.ProjectDay(events, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC))
	if len(view.Timed) != 3 {
		t.Fatalf("expected 3 events, got %d", len(view.Timed))
	}

	previous := -1.0
	for _, placed := range view.Timed {
		if placed.TopPosition <= previous {
			t.Errorf("expected increasing top positions, got %v after %v", placed.TopPosition, previous)
		}
		previous = placed.TopPosition
		if placed.Height < DefaultMinimumHeight {
			t.Errorf("event %q height %v below minimum", placed.Event.ID, placed.Height)
		}
	}
	if view.Timed[0].Height != DefaultMinimumHeight {
		t.Errorf("expected five minute event at minimum height, got %v", view.Timed[0].Height)
	}
	if view.Timed[2].Height != 90 {
		t.Errorf("expected 90 minute event at 90px, got %v", view.Timed[2].Height)
	}
}

func TestProjectDay_PartitionsAllDayEvents(t *testing.T) {
	timeline := NewTimeline(time.UTC)
	events := []models.CalendarEvent{
		allDayEvent("holiday", "2024-07-04", "2024-07-05"),
		timedEvent("bbq", "2024-07-04T17:00:00Z", "2024-07-04T20:00:00Z"),
	}

	view := timeline.ProjectDay(events, time.Date(2024, 7, 4, 0, 0, 0, 0, time.UTC))
	if len(view.AllDay) != 1 || view.AllDay[0].Event.ID != "holiday" {
		t.Errorf("expected holiday in the all-day row, got %v", view.AllDay)
	}
	if len(view.Timed) != 1 || view.Timed[0].Event.ID != "bbq" {
		t.Errorf("expected bbq on the timeline, got %v", view.Timed)
	}

	next := timeline.ProjectDay(events, time.Date(2024, 7, 5, 0, 0, 0, 0, time.UTC))
	if len(next.AllDay) != 0 {
		t.Errorf("expected single all-day event to end at midnight, got %v", next.AllDay)
	}
}

func TestProjectWeek_StartsOnSunday(t *testing.T) {
	timeline := NewTimeline(time.UTC)
	wednesday := time.Date(2024, 5, 15, 10, 0, 0, 0, time.UTC)

	days := timeline.ProjectWeek(nil, wednesday)
	if len(days) != 7 {
		t.Fatalf("expected 7 days, got %d", len(days))
	}
	if days[0].Date.Weekday() != time.Sunday || days[0].Date.Day() != 12 {
		t.Errorf("expected week to start Sunday May 12, got %v", days[0].Date)
	}
	if days[6].Date.Weekday() != time.Saturday {
		t.Errorf("expected week to end Saturday, got %v", days[6].Date.Weekday())
	}
}

func TestColor(t *testing.T) {
	tests := []struct {
		colorID  string
		expected string
	}{
		{"1", "#a4bdfc"},
		{"11", "#dc2127"},
		{"", DefaultColor},
		{"42", DefaultColor},
	}

	for _, testCase := range tests {
		if got := Color(models.CalendarEvent{ColorID: testCase.colorID}); got != testCase.expected {
			t.Errorf("Color(%q): expected %s, got %s", testCase.colorID, testCase.expected, got)
		}
	}
}

func TestIsAllDay(t *testing.T) {
	if !IsAllDay(allDayEvent("a", "2024-01-01", "2024-01-02")) {
		t.Error("expected date-only event to be all-day")
	}
	mixed := models.CalendarEvent{Start: models.EventDateTime{Date: "2024-01-01", DateTime: "2024-01-01T10:00:00Z"}}
	if IsAllDay(mixed) {
		t.Error("expected event with a dateTime start to be timed")
	}
}

func TestCurrentTimePosition(t *testing.T) {
	zone := time.FixedZone("test", 3*3600)
	timeline := NewTimeline(zone)

	now := time.Date(2024, 1, 1, 11, 30, 0, 0, time.UTC)
	if got := timeline.CurrentTimePosition(now); got != 870 {
		t.Errorf("expected 870, got %v", got)
	}
}

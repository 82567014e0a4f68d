package calendar

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/bensuskins/command-center/internal/models"
)

const (
	DefaultPixelsPerHour = 60
	DefaultMinimumHeight = 30
	DefaultColor         = "#2196F3"
	dateLayout           = "2006-01-02"
)

var ErrMissingTime = errors.New("event has no date or dateTime")

var colors = map[string]string{
	"1":  "#a4bdfc",
	"2":  "#7ae7bf",
	"3":  "#dbadff",
	"4":  "#ff887c",
	"5":  "#fbd75b",
	"6":  "#ffb878",
	"7":  "#46d6db",
	"8":  "#e1e1e1",
	"9":  "#5484ed",
	"10": "#51b749",
	"11": "#dc2127",
}

// TimelineEvent is an event placed on one day. Start and End are clamped to
// that day; TopPosition and Height are zero for all-day events.
type TimelineEvent struct {
	Event       models.CalendarEvent `json:"event"`
	Start       time.Time            `json:"start"`
	End         time.Time            `json:"end"`
	AllDay      bool                 `json:"allDay"`
	Color       string               `json:"color"`
	TopPosition float64              `json:"topPosition"`
	Height      float64              `json:"height"`
}

type DayView struct {
	Date   time.Time       `json:"date"`
	AllDay []TimelineEvent `json:"allDay"`
	Timed  []TimelineEvent `json:"timed"`
}

// Timeline lays events out on a vertical day grid in one location.
type Timeline struct {
	Location      *time.Location
	PixelsPerHour float64
	MinimumHeight float64
}

func NewTimeline(location *time.Location) Timeline {
	if location == nil {
		location = time.Local
	}
	return Timeline{Location: location, PixelsPerHour: DefaultPixelsPerHour, MinimumHeight: DefaultMinimumHeight}
}

func IsAllDay(event models.CalendarEvent) bool {
	return event.Start.Date != "" && event.Start.DateTime == ""
}

func Color(event models.CalendarEvent) string {
	if color, ok := colors[event.ColorID]; ok {
		return color
	}
	return DefaultColor
}

func (timeline Timeline) ResolveStart(event models.CalendarEvent) (time.Time, error) {
	return timeline.resolve(event.Start)
}

func (timeline Timeline) ResolveEnd(event models.CalendarEvent) (time.Time, error) {
	return timeline.resolve(event.End)
}

// resolve reads a date-only value as local midnight, never UTC, so all-day
// events stay on their calendar date in every zone.
func (timeline Timeline) resolve(value models.EventDateTime) (time.Time, error) {
	if value.Date != "" && value.DateTime == "" {
		parsed, err := time.ParseInLocation(dateLayout, value.Date, timeline.Location)
		if err != nil {
			return time.Time{}, fmt.Errorf("parsing date %q: %w", value.Date, err)
		}
		return parsed, nil
	}
	if value.DateTime == "" {
		return time.Time{}, ErrMissingTime
	}
	parsed, err := time.Parse(time.RFC3339, value.DateTime)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing dateTime %q: %w", value.DateTime, err)
	}
	return parsed, nil
}

// DayBounds returns local midnight and the last millisecond of date's day.
func (timeline Timeline) DayBounds(date time.Time) (time.Time, time.Time) {
	local := date.In(timeline.Location)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, timeline.Location)
	end := start.AddDate(0, 0, 1).Add(-time.Millisecond)
	return start, end
}

// ProjectDay places the events that touch date's day. Event ends are
// exclusive, so an event ending exactly at midnight is left off the next day.
func (timeline Timeline) ProjectDay(events []models.CalendarEvent, date time.Time) DayView {
	dayStart, dayEnd := timeline.DayBounds(date)
	view := DayView{Date: dayStart, AllDay: []TimelineEvent{}, Timed: []TimelineEvent{}}

	type candidate struct {
		event      models.CalendarEvent
		start, end time.Time
	}
	seen := make(map[string]bool)
	var candidates []candidate
	for _, event := range events {
		if event.ID != "" && seen[event.ID] {
			continue
		}
		start, err := timeline.ResolveStart(event)
		if err != nil {
			continue
		}
		end, err := timeline.ResolveEnd(event)
		if err != nil || end.Before(start) {
			end = start
		}
		startsInside := !start.Before(dayStart) && !start.After(dayEnd)
		// An event ending exactly at midnight has nothing left on this day.
		reachesInto := start.Before(dayStart) && end.After(dayStart)
		if !startsInside && !reachesInto {
			continue
		}
		seen[event.ID] = true
		candidates = append(candidates, candidate{event: event, start: start, end: end})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].start.Before(candidates[j].start)
	})

	for _, c := range candidates {
		start := maxTime(c.start, dayStart).In(timeline.Location)
		end := minTime(c.end, dayEnd).In(timeline.Location)
		placed := TimelineEvent{
			Event:  c.event,
			Start:  start,
			End:    end,
			AllDay: IsAllDay(c.event),
			Color:  Color(c.event),
		}
		if placed.AllDay {
			view.AllDay = append(view.AllDay, placed)
			continue
		}
		startMinutes := minutesIntoDay(start)
		durationMinutes := minutesIntoDay(end) - startMinutes
		placed.TopPosition = startMinutes * timeline.PixelsPerHour / 60
		placed.Height = max(durationMinutes*timeline.PixelsPerHour/60, timeline.MinimumHeight)
		view.Timed = append(view.Timed, placed)
	}
	return view
}

// ProjectWeek returns seven days starting from the Sunday on or before date.
func (timeline Timeline) ProjectWeek(events []models.CalendarEvent, date time.Time) []DayView {
	dayStart, _ := timeline.DayBounds(date)
	sunday := dayStart.AddDate(0, 0, -int(dayStart.Weekday()))

	days := make([]DayView, 0, 7)
	for offset := 0; offset < 7; offset++ {
		days = append(days, timeline.ProjectDay(events, sunday.AddDate(0, 0, offset)))
	}
	return days
}

func (timeline Timeline) CurrentTimePosition(now time.Time) float64 {
	return minutesIntoDay(now.In(timeline.Location)) * timeline.PixelsPerHour / 60
}

func minutesIntoDay(t time.Time) float64 {
	return float64(t.Hour()*60 + t.Minute())
}

func maxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}

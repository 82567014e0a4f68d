package calendar

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/bensuskins/command-center/internal/models"
)

const (
	exportName      = "Command Center"
	exportProductID = "-//Command Center//Calendar//EN"
	exportUIDSuffix = "@command-center"
)

// Export writes events as a published VCALENDAR. All-day events keep DATE
// values and timed events are written in UTC. Events whose times cannot be
// resolved are skipped.
func (timeline Timeline) Export(w io.Writer, events []models.CalendarEvent, stamp time.Time) error {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(exportProductID)
	cal.SetXWRCalName(exportName)

	for _, event := range events {
		start, err := timeline.ResolveStart(event)
		if err != nil {
			slog.Debug("skipping event in export", "event", event.ID, "error", err)
			continue
		}
		end, err := timeline.ResolveEnd(event)
		if err != nil {
			slog.Debug("skipping event in export", "event", event.ID, "error", err)
			continue
		}

		vevent := cal.AddEvent(event.ID + exportUIDSuffix)
		vevent.SetDtStampTime(stamp)
		vevent.SetSummary(event.Summary)
		if event.Description != "" {
			vevent.SetDescription(event.Description)
		}
		if event.Location != "" {
			vevent.SetLocation(event.Location)
		}
		if event.HTMLLink != "" {
			vevent.SetURL(event.HTMLLink)
		}
		if IsAllDay(event) {
			vevent.SetAllDayStartAt(start)
			vevent.SetAllDayEndAt(end)
		} else {
			vevent.SetStartAt(start)
			vevent.SetEndAt(end)
		}
	}

	if err := cal.SerializeTo(w); err != nil {
		return fmt.Errorf("writing calendar export: %w", err)
	}
	return nil
}

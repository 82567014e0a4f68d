package handlers

import (
	"bytes"
	"errors"
	"net/http"
	"time"

	"github.com/bensuskins/command-center/internal/calendar"
	"github.com/bensuskins/command-center/internal/models"
	"github.com/bensuskins/command-center/internal/services"
)

const (
	calendarStateCookie = "calendar_state"
	dateLayout          = "2006-01-02"
)

type CalendarHandler struct {
	calendarService *calendar.Service
	authService     *services.AuthService
}

func NewCalendarHandler(calendarService *calendar.Service, authService *services.AuthService) *CalendarHandler {
	return &CalendarHandler{calendarService: calendarService, authService: authService}
}

type calendarStatusResponse struct {
	Configured bool           `json:"configured"`
	State      calendar.State `json:"state"`
	Events     int            `json:"events"`
	Error      string         `json:"error,omitempty"`
}

func (handler *CalendarHandler) Status(w http.ResponseWriter, r *http.Request) {
	status := calendarStatusResponse{
		Configured: handler.calendarService.Configured(),
		State:      handler.calendarService.State(),
		Events:     len(handler.calendarService.Events()),
	}
	if err := handler.calendarService.Err(); err != nil {
		status.Error = err.Error()
	}
	writeJSON(w, http.StatusOK, status)
}

func (handler *CalendarHandler) Connect(w http.ResponseWriter, r *http.Request) {
	state, err := handler.authService.IssueState(w, calendarStateCookie)
	if err != nil {
		writeError(w, "starting calendar sign-in", err)
		return
	}

	url, err := handler.calendarService.BeginSignIn(r.Context(), state)
	if err != nil {
		writeError(w, "starting calendar sign-in", err)
		return
	}
	http.Redirect(w, r, url, http.StatusFound)
}

// Callback finishes the consent flow and sends the browser home either way.
// The outcome is visible through the status endpoint.
func (handler *CalendarHandler) Callback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := handler.authService.VerifyState(w, r, calendarStateCookie); err != nil {
		handler.calendarService.AbortSignIn(ctx, err)
		writeError(w, "completing calendar sign-in", err)
		return
	}

	if reason := r.URL.Query().Get("error"); reason != "" {
		handler.calendarService.AbortSignIn(ctx, errors.New("calendar consent denied: "+reason))
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	if err := handler.calendarService.CompleteSignIn(ctx, r.URL.Query().Get("code")); err != nil {
		writeError(w, "completing calendar sign-in", err)
		return
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

func (handler *CalendarHandler) Disconnect(w http.ResponseWriter, r *http.Request) {
	if err := handler.calendarService.SignOut(r.Context()); err != nil {
		writeError(w, "disconnecting calendar", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (handler *CalendarHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if err := handler.calendarService.Refresh(r.Context()); err != nil {
		writeError(w, "refreshing calendar", err)
		return
	}
	writeJSON(w, http.StatusOK, handler.calendarService.Events())
}

func (handler *CalendarHandler) ClearError(w http.ResponseWriter, r *http.Request) {
	handler.calendarService.ClearError()
	w.WriteHeader(http.StatusNoContent)
}

func (handler *CalendarHandler) Events(w http.ResponseWriter, r *http.Request) {
	events := handler.calendarService.Events()
	if events == nil {
		events = []models.CalendarEvent{}
	}
	writeJSON(w, http.StatusOK, events)
}

type dayResponse struct {
	calendar.DayView
	CurrentTimePosition *float64 `json:"currentTimePosition,omitempty"`
}

func (handler *CalendarHandler) Day(w http.ResponseWriter, r *http.Request) {
	date, today, ok := handler.parseDate(w, r)
	if !ok {
		return
	}

	response := dayResponse{DayView: handler.calendarService.ProjectDay(date)}
	if today {
		position := handler.calendarService.CurrentTimePosition()
		response.CurrentTimePosition = &position
	}
	writeJSON(w, http.StatusOK, response)
}

func (handler *CalendarHandler) Week(w http.ResponseWriter, r *http.Request) {
	date, _, ok := handler.parseDate(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, handler.calendarService.ProjectWeek(date))
}

// Export serves every cached event as an .ics feed for external calendar apps.
func (handler *CalendarHandler) Export(w http.ResponseWriter, r *http.Request) {
	var body bytes.Buffer
	if err := handler.calendarService.Timeline().Export(&body, handler.calendarService.Events(), time.Now()); err != nil {
		writeError(w, "exporting calendar", err)
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename=command-center.ics")
	w.Write(body.Bytes())
}

// parseDate reads ?date= in the timeline's zone, defaulting to today.
func (handler *CalendarHandler) parseDate(w http.ResponseWriter, r *http.Request) (time.Time, bool, bool) {
	location := handler.calendarService.Timeline().Location
	now := time.Now().In(location)

	raw := r.URL.Query().Get("date")
	if raw == "" {
		return now, true, true
	}

	date, err := time.ParseInLocation(dateLayout, raw, location)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "date must be YYYY-MM-DD"})
		return time.Time{}, false, false
	}
	return date, date.Format(dateLayout) == now.Format(dateLayout), true
}

package handlers

import (
	"net/http"
	"time"

	"github.com/bensuskins/command-center/internal/assistant"
	"github.com/bensuskins/command-center/internal/calendar"
	"github.com/bensuskins/command-center/internal/middleware"
	"github.com/bensuskins/command-center/internal/models"
	"github.com/bensuskins/command-center/internal/preferences"
	"github.com/bensuskins/command-center/internal/services"
)

type DashboardHandler struct {
	groceryService  *services.GroceryService
	vehicleService  *services.VehicleService
	calendarService *calendar.Service
	counter         *assistant.Counter
	themes          *preferences.Themes
	now             func() time.Time
}

func NewDashboardHandler(
	groceryService *services.GroceryService,
	vehicleService *services.VehicleService,
	calendarService *calendar.Service,
	counter *assistant.Counter,
	themes *preferences.Themes,
) *DashboardHandler {
	return &DashboardHandler{
		groceryService:  groceryService,
		vehicleService:  vehicleService,
		calendarService: calendarService,
		counter:         counter,
		themes:          themes,
		now:             time.Now,
	}
}

type dashboardResponse struct {
	User             models.User          `json:"user"`
	Theme            preferences.Theme    `json:"theme"`
	GroceriesActive  int                  `json:"groceriesActive"`
	Overdue          []services.Reminder  `json:"overdue"`
	Upcoming         []services.Reminder  `json:"upcoming"`
	CalendarState    calendar.State       `json:"calendarState"`
	Today            calendar.DayView     `json:"today"`
	CurrentTime      float64              `json:"currentTimePosition"`
	AICalls          int                  `json:"aiCalls"`
	RecentlyFinished []models.GroceryItem `json:"recentlyCompleted"`
}

const recentlyCompletedLimit = 5

func (handler *DashboardHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	now := handler.now()

	completed := handler.groceryService.Completed()
	if len(completed) > recentlyCompletedLimit {
		completed = completed[:recentlyCompletedLimit]
	}

	writeJSON(w, http.StatusOK, dashboardResponse{
		User:             middleware.GetUser(ctx),
		Theme:            handler.themes.Get(ctx),
		GroceriesActive:  len(handler.groceryService.Active()),
		Overdue:          handler.vehicleService.Overdue(now),
		Upcoming:         handler.vehicleService.Upcoming(now),
		CalendarState:    handler.calendarService.State(),
		Today:            handler.calendarService.ProjectDay(now),
		CurrentTime:      handler.calendarService.CurrentTimePosition(),
		AICalls:          handler.counter.Count(),
		RecentlyFinished: completed,
	})
}

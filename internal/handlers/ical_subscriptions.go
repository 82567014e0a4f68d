package handlers

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/bensuskins/command-center/internal/calendar"
	"github.com/bensuskins/command-center/internal/models"
	"github.com/bensuskins/command-center/internal/repository"
	"github.com/go-chi/chi/v5"
)

type ICalSubscriptionsHandler struct {
	subRepo         repository.ICalSubscriptionRepository
	feeds           *calendar.FeedSource
	calendarService *calendar.Service
}

func NewICalSubscriptionsHandler(subRepo repository.ICalSubscriptionRepository, feeds *calendar.FeedSource, calendarService *calendar.Service) *ICalSubscriptionsHandler {
	return &ICalSubscriptionsHandler{subRepo: subRepo, feeds: feeds, calendarService: calendarService}
}

func (h *ICalSubscriptionsHandler) List(w http.ResponseWriter, r *http.Request) {
	subs, err := h.subRepo.FindAll(r.Context())
	if err != nil {
		writeError(w, "loading calendar subscriptions", err)
		return
	}
	if subs == nil {
		subs = []models.ICalSubscription{}
	}
	writeJSON(w, http.StatusOK, subs)
}

func (h *ICalSubscriptionsHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var body struct {
		Name    string  `json:"name"`
		URL     string  `json:"url"`
		ColorID *string `json:"colorId"`
	}
	if err := readJSON(w, r, &body); err != nil {
		writeError(w, "creating calendar subscription", err)
		return
	}

	name := strings.TrimSpace(body.Name)
	feedURL := strings.TrimSpace(body.URL)
	if name == "" || feedURL == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name and url are required"})
		return
	}
	// webcal links are plain https feeds
	if strings.HasPrefix(feedURL, "webcal://") {
		feedURL = "https://" + strings.TrimPrefix(feedURL, "webcal://")
	}
	if parsed, err := url.Parse(feedURL); err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "url must be http or https"})
		return
	}

	sub, err := h.subRepo.Create(ctx, models.ICalSubscription{Name: name, URL: feedURL, ColorID: body.ColorID})
	if err != nil {
		writeError(w, "creating calendar subscription", err)
		return
	}
	h.reload(r)
	writeJSON(w, http.StatusCreated, sub)
}

func (h *ICalSubscriptionsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.subRepo.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, "deleting calendar subscription", err)
		return
	}
	h.reload(r)
	w.WriteHeader(http.StatusNoContent)
}

func (h *ICalSubscriptionsHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.feeds.RefreshByID(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, "refreshing calendar subscription", err)
		return
	}
	h.reload(r)
	w.WriteHeader(http.StatusNoContent)
}

// reload merges the changed feeds into the calendar cache. Failures land on
// the calendar's error signal.
func (h *ICalSubscriptionsHandler) reload(r *http.Request) {
	_ = h.calendarService.Refresh(r.Context())
}

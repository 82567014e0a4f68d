package handlers

import (
	"net/http"

	"github.com/bensuskins/command-center/internal/preferences"
)

type PreferencesHandler struct {
	themes *preferences.Themes
	links  []preferences.QuickLink
}

func NewPreferencesHandler(themes *preferences.Themes, links []preferences.QuickLink) *PreferencesHandler {
	return &PreferencesHandler{themes: themes, links: links}
}

func (handler *PreferencesHandler) Theme(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]preferences.Theme{"theme": handler.themes.Get(r.Context())})
}

func (handler *PreferencesHandler) SetTheme(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Theme preferences.Theme `json:"theme"`
	}
	if err := readJSON(w, r, &body); err != nil {
		writeError(w, "saving theme", err)
		return
	}
	if err := handler.themes.Set(r.Context(), body.Theme); err != nil {
		writeError(w, "saving theme", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]preferences.Theme{"theme": body.Theme})
}

func (handler *PreferencesHandler) ToggleTheme(w http.ResponseWriter, r *http.Request) {
	theme, err := handler.themes.Toggle(r.Context())
	if err != nil {
		writeError(w, "toggling theme", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]preferences.Theme{"theme": theme})
}

type linksResponse struct {
	Categories []string                `json:"categories"`
	Links      []preferences.QuickLink `json:"links"`
}

func (handler *PreferencesHandler) Links(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, linksResponse{
		Categories: preferences.LinkCategories(handler.links),
		Links:      preferences.FilterLinks(handler.links, r.URL.Query().Get("category")),
	})
}

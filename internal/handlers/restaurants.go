package handlers

import (
	"net/http"

	"github.com/bensuskins/command-center/internal/models"
	"github.com/bensuskins/command-center/internal/services"
	"github.com/go-chi/chi/v5"
)

type RestaurantHandler struct {
	restaurantService *services.RestaurantService
}

func NewRestaurantHandler(restaurantService *services.RestaurantService) *RestaurantHandler {
	return &RestaurantHandler{restaurantService: restaurantService}
}

type restaurantListResponse struct {
	Mode        string              `json:"mode"`
	Restaurants []models.Restaurant `json:"restaurants"`
}

func (handler *RestaurantHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, restaurantListResponse{
		Mode:        string(handler.restaurantService.Mode()),
		Restaurants: handler.restaurantService.Restaurants(),
	})
}

func (handler *RestaurantHandler) Create(w http.ResponseWriter, r *http.Request) {
	var restaurant models.Restaurant
	if err := readJSON(w, r, &restaurant); err != nil {
		writeError(w, "adding restaurant", err)
		return
	}

	created, err := handler.restaurantService.Add(r.Context(), restaurant)
	if err != nil {
		writeError(w, "adding restaurant", err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (handler *RestaurantHandler) Update(w http.ResponseWriter, r *http.Request) {
	var patch map[string]any
	if err := readJSON(w, r, &patch); err != nil {
		writeError(w, "updating restaurant", err)
		return
	}
	if err := handler.restaurantService.Update(r.Context(), chi.URLParam(r, "id"), patch); err != nil {
		writeError(w, "updating restaurant", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (handler *RestaurantHandler) ToggleFavorite(w http.ResponseWriter, r *http.Request) {
	if err := handler.restaurantService.ToggleFavorite(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, "toggling restaurant favorite", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (handler *RestaurantHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := handler.restaurantService.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, "deleting restaurant", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (handler *RestaurantHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Cuisine     string `json:"cuisine"`
		Preferences string `json:"preferences"`
		City        string `json:"city"`
	}
	if err := readJSON(w, r, &body); err != nil {
		writeError(w, "suggesting restaurants", err)
		return
	}

	text, err := handler.restaurantService.Suggest(r.Context(), body.Cuisine, body.Preferences, body.City)
	if err != nil {
		writeError(w, "suggesting restaurants", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"text": text})
}

func (handler *RestaurantHandler) Migrate(w http.ResponseWriter, r *http.Request) {
	if err := handler.restaurantService.Migrate(r.Context()); err != nil {
		writeError(w, "migrating restaurants", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"mode": string(handler.restaurantService.Mode())})
}

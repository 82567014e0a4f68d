package handlers

import (
	"net/http"

	"github.com/bensuskins/command-center/internal/models"
	"github.com/bensuskins/command-center/internal/services"
	"github.com/go-chi/chi/v5"
)

type GroceryHandler struct {
	groceryService *services.GroceryService
}

func NewGroceryHandler(groceryService *services.GroceryService) *GroceryHandler {
	return &GroceryHandler{groceryService: groceryService}
}

type groceryListResponse struct {
	Mode      string               `json:"mode"`
	Active    []models.GroceryItem `json:"active"`
	Completed []models.GroceryItem `json:"completed"`
}

func (handler *GroceryHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, groceryListResponse{
		Mode:      string(handler.groceryService.Mode()),
		Active:    handler.groceryService.Active(),
		Completed: handler.groceryService.Completed(),
	})
}

func (handler *GroceryHandler) Add(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name string `json:"name"`
	}
	if err := readJSON(w, r, &body); err != nil {
		writeError(w, "adding grocery item", err)
		return
	}

	item, err := handler.groceryService.Add(r.Context(), body.Name)
	if err != nil {
		writeError(w, "adding grocery item", err)
		return
	}
	if item == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (handler *GroceryHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	if err := handler.groceryService.Toggle(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, "toggling grocery item", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (handler *GroceryHandler) Update(w http.ResponseWriter, r *http.Request) {
	var patch map[string]any
	if err := readJSON(w, r, &patch); err != nil {
		writeError(w, "updating grocery item", err)
		return
	}
	if err := handler.groceryService.Update(r.Context(), chi.URLParam(r, "id"), patch); err != nil {
		writeError(w, "updating grocery item", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (handler *GroceryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := handler.groceryService.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, "deleting grocery item", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (handler *GroceryHandler) ClearCompleted(w http.ResponseWriter, r *http.Request) {
	if err := handler.groceryService.ClearCompleted(r.Context()); err != nil {
		writeError(w, "clearing completed items", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (handler *GroceryHandler) Migrate(w http.ResponseWriter, r *http.Request) {
	if err := handler.groceryService.Migrate(r.Context()); err != nil {
		writeError(w, "migrating grocery list", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"mode": string(handler.groceryService.Mode())})
}

func (handler *GroceryHandler) Sorted(w http.ResponseWriter, r *http.Request) {
	items, err := handler.groceryService.SortByStoreLayout(r.Context())
	if err != nil {
		writeError(w, "sorting grocery list", err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (handler *GroceryHandler) Location(w http.ResponseWriter, r *http.Request) {
	location, err := handler.groceryService.StoreLocation(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "finding store location", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"location": location})
}

func (handler *GroceryHandler) Locations(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, handler.groceryService.StoreLocations(r.Context()))
}

func (handler *GroceryHandler) Suggestions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, handler.groceryService.CompletedNames())
}

package handlers

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/bensuskins/command-center/internal/lists"
	"github.com/bensuskins/command-center/internal/models"
	"github.com/bensuskins/command-center/internal/services"
	"github.com/bensuskins/command-center/internal/storage"
	"github.com/bensuskins/command-center/internal/testutil"
	"github.com/go-chi/chi/v5"
)

func setupRestaurantRouter(t *testing.T, completer *scriptedCompleter) *chi.Mux {
	t.Helper()
	local, _ := testutil.NewMemoryLocal()
	list, err := lists.New[models.Restaurant](context.Background(), local, storage.NewDocuments(nil), lists.Options{Key: storage.KeyRestaurants})
	if err != nil {
		t.Fatalf("creating restaurant list: %v", err)
	}
	t.Cleanup(list.Close)
	if completer == nil {
		completer = failWith(errUnused)
	}
	handler := NewRestaurantHandler(services.NewRestaurantService(list, completer, "Minneapolis"))

	return newRouter(func(r chi.Router) {
		r.Get("/api/restaurants", handler.List)
		r.Post("/api/restaurants", handler.Create)
		r.Post("/api/restaurants/suggest", handler.Suggest)
		r.Post("/api/restaurants/{id}/favorite", handler.ToggleFavorite)
		r.Delete("/api/restaurants/{id}", handler.Delete)
	})
}

func TestRestaurantHandler_FavoritesSortFirst(t *testing.T) {
	router := setupRestaurantRouter(t, nil)

	serve(t, router, http.MethodPost, "/api/restaurants", models.Restaurant{Name: "Arby's", Cuisine: "fast food"})
	zen := decode[models.Restaurant](t, serve(t, router, http.MethodPost, "/api/restaurants", models.Restaurant{Name: "Zen Sushi", Cuisine: "japanese"}))

	if recorder := serve(t, router, http.MethodPost, "/api/restaurants/"+zen.ID+"/favorite", nil); recorder.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", recorder.Code)
	}

	list := decode[restaurantListResponse](t, serve(t, router, http.MethodGet, "/api/restaurants", nil))
	if len(list.Restaurants) != 2 || list.Restaurants[0].Name != "Zen Sushi" {
		t.Errorf("expected favorite first, got %+v", list.Restaurants)
	}
	if list.Restaurants[1].DeliveryApps == nil {
		t.Error("expected delivery apps to default to an empty list")
	}
}

func TestRestaurantHandler_SuggestUsesDefaultCity(t *testing.T) {
	completer := replyWith("1. Pho Place")
	router := setupRestaurantRouter(t, completer)

	recorder := serve(t, router, http.MethodPost, "/api/restaurants/suggest", map[string]string{"cuisine": "vietnamese"})
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", recorder.Code, recorder.Body.String())
	}
	if got := decode[map[string]string](t, recorder)["text"]; got != "1. Pho Place" {
		t.Errorf("expected suggestion text, got %q", got)
	}
	if len(completer.prompts) != 1 || !strings.Contains(completer.prompts[0], "Minneapolis") {
		t.Errorf("expected prompt to name the default city, got %v", completer.prompts)
	}
}

func TestRestaurantHandler_NameRequired(t *testing.T) {
	router := setupRestaurantRouter(t, nil)

	if recorder := serve(t, router, http.MethodPost, "/api/restaurants", models.Restaurant{Cuisine: "thai"}); recorder.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", recorder.Code)
	}
}

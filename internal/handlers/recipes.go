package handlers

import (
	"net/http"
	"strings"

	"github.com/bensuskins/command-center/internal/assistant"
	"github.com/bensuskins/command-center/internal/models"
	"github.com/bensuskins/command-center/internal/repository"
	"github.com/bensuskins/command-center/internal/services"
	"github.com/go-chi/chi/v5"
)

const defaultMealPlanDays = 7

type RecipeHandler struct {
	recipeRepo     repository.RecipeRepository
	recipeService  *services.RecipeService
	groceryService *services.GroceryService
}

func NewRecipeHandler(recipeRepo repository.RecipeRepository, recipeService *services.RecipeService, groceryService *services.GroceryService) *RecipeHandler {
	return &RecipeHandler{recipeRepo: recipeRepo, recipeService: recipeService, groceryService: groceryService}
}

func (handler *RecipeHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var recipes []models.Recipe
	var err error
	if query := strings.TrimSpace(r.URL.Query().Get("q")); query != "" {
		recipes, err = handler.recipeRepo.Search(ctx, query)
	} else {
		recipes, err = handler.recipeRepo.FindAll(ctx)
	}
	if err != nil {
		writeError(w, "loading recipes", err)
		return
	}
	if recipes == nil {
		recipes = []models.Recipe{}
	}
	writeJSON(w, http.StatusOK, recipes)
}

func (handler *RecipeHandler) Get(w http.ResponseWriter, r *http.Request) {
	recipe, err := handler.recipeRepo.FindByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "loading recipe", err)
		return
	}
	writeJSON(w, http.StatusOK, recipe)
}

func (handler *RecipeHandler) Create(w http.ResponseWriter, r *http.Request) {
	var recipe models.Recipe
	if err := readJSON(w, r, &recipe); err != nil {
		writeError(w, "creating recipe", err)
		return
	}

	created, err := handler.recipeService.Create(r.Context(), recipe)
	if err != nil {
		writeError(w, "creating recipe", err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (handler *RecipeHandler) Update(w http.ResponseWriter, r *http.Request) {
	var recipe models.Recipe
	if err := readJSON(w, r, &recipe); err != nil {
		writeError(w, "updating recipe", err)
		return
	}
	recipe.ID = chi.URLParam(r, "id")

	if err := handler.recipeService.Update(r.Context(), recipe); err != nil {
		writeError(w, "updating recipe", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (handler *RecipeHandler) ToggleFavorite(w http.ResponseWriter, r *http.Request) {
	favorite, err := handler.recipeRepo.ToggleFavorite(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "toggling recipe favorite", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"favorite": favorite})
}

func (handler *RecipeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := handler.recipeRepo.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, "deleting recipe", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (handler *RecipeHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Request    string `json:"request"`
		Background string `json:"background"`
	}
	if err := readJSON(w, r, &body); err != nil {
		writeError(w, "suggesting recipes", err)
		return
	}

	suggestions, err := handler.recipeService.Suggest(r.Context(), body.Request, body.Background)
	if err != nil {
		writeError(w, "suggesting recipes", err)
		return
	}
	writeJSON(w, http.StatusOK, suggestions)
}

func (handler *RecipeHandler) Import(w http.ResponseWriter, r *http.Request) {
	var suggestions []assistant.RecipeSuggestion
	if err := readJSON(w, r, &suggestions); err != nil {
		writeError(w, "importing recipes", err)
		return
	}

	created, err := handler.recipeService.ImportSuggestions(r.Context(), suggestions)
	if err != nil {
		writeError(w, "importing recipes", err)
		return
	}
	if created == nil {
		created = []models.Recipe{}
	}
	writeJSON(w, http.StatusCreated, created)
}

type groceriesResponse struct {
	Items []string             `json:"items"`
	Added []models.GroceryItem `json:"added,omitempty"`
}

// Groceries suggests items for the named recipes. With add set, each
// suggestion is also put on the grocery list.
func (handler *RecipeHandler) Groceries(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var body struct {
		Recipes []string `json:"recipes"`
		Add     bool     `json:"add"`
	}
	if err := readJSON(w, r, &body); err != nil {
		writeError(w, "suggesting groceries", err)
		return
	}

	existing := make([]string, 0)
	for _, item := range handler.groceryService.Active() {
		existing = append(existing, item.Name)
	}

	items, err := handler.recipeService.GroceriesFor(ctx, body.Recipes, existing)
	if err != nil {
		writeError(w, "suggesting groceries", err)
		return
	}

	response := groceriesResponse{Items: items}
	if body.Add {
		for _, name := range items {
			added, err := handler.groceryService.Add(ctx, name)
			if err != nil {
				writeError(w, "adding suggested groceries", err)
				return
			}
			if added != nil {
				response.Added = append(response.Added, *added)
			}
		}
	}
	writeJSON(w, http.StatusOK, response)
}

func (handler *RecipeHandler) MealPlan(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Preferences string `json:"preferences"`
		Days        int    `json:"days"`
	}
	if err := readJSON(w, r, &body); err != nil {
		writeError(w, "suggesting meal plan", err)
		return
	}
	if body.Days <= 0 {
		body.Days = defaultMealPlanDays
	}

	plan, err := handler.recipeService.MealPlan(r.Context(), body.Preferences, body.Days)
	if err != nil {
		writeError(w, "suggesting meal plan", err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

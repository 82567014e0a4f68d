package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bensuskins/command-center/internal/assistant"
	"github.com/bensuskins/command-center/internal/models"
	"github.com/bensuskins/command-center/internal/repository"
)

var ErrRecipeNameRequired = errors.New("recipe name is required")

type RecipeService struct {
	recipeRepo repository.RecipeRepository
	completer  assistant.Completer
}

func NewRecipeService(recipeRepo repository.RecipeRepository, completer assistant.Completer) *RecipeService {
	return &RecipeService{recipeRepo: recipeRepo, completer: completer}
}

func (service *RecipeService) Create(ctx context.Context, recipe models.Recipe) (models.Recipe, error) {
	recipe.Name = strings.TrimSpace(recipe.Name)
	if recipe.Name == "" {
		return models.Recipe{}, ErrRecipeNameRequired
	}
	return service.recipeRepo.Create(ctx, recipe)
}

func (service *RecipeService) Update(ctx context.Context, recipe models.Recipe) error {
	recipe.Name = strings.TrimSpace(recipe.Name)
	if recipe.Name == "" {
		return ErrRecipeNameRequired
	}
	return service.recipeRepo.Update(ctx, recipe)
}

// Suggest asks the assistant for recipes. Nothing is stored.
func (service *RecipeService) Suggest(ctx context.Context, request string, background string) ([]assistant.RecipeSuggestion, error) {
	suggestions, err := assistant.SuggestRecipes(ctx, service.completer, request, background)
	if err != nil {
		return nil, fmt.Errorf("suggesting recipes: %w", err)
	}
	return suggestions, nil
}

// ImportSuggestions stores each suggestion as a recipe, skipping nameless
// ones, and returns what was created.
func (service *RecipeService) ImportSuggestions(ctx context.Context, suggestions []assistant.RecipeSuggestion) ([]models.Recipe, error) {
	var created []models.Recipe
	for _, suggestion := range suggestions {
		if strings.TrimSpace(suggestion.Name) == "" {
			continue
		}
		recipe, err := service.Create(ctx, models.Recipe{
			Name:         suggestion.Name,
			Description:  suggestion.Description,
			PrepTime:     suggestion.PrepTime,
			CookTime:     suggestion.CookTime,
			Servings:     suggestion.Servings,
			Ingredients:  suggestion.Ingredients,
			Instructions: suggestion.Instructions,
			Tags:         suggestion.Tags,
		})
		if err != nil {
			return created, fmt.Errorf("importing %q: %w", suggestion.Name, err)
		}
		created = append(created, recipe)
	}
	return created, nil
}

// GroceriesFor suggests grocery items for the named recipes, leaving out
// anything already on the list.
func (service *RecipeService) GroceriesFor(ctx context.Context, recipeNames []string, existing []string) ([]string, error) {
	items, err := assistant.SuggestGroceries(ctx, service.completer, recipeNames, existing)
	if err != nil {
		return nil, fmt.Errorf("suggesting groceries: %w", err)
	}
	return items, nil
}

func (service *RecipeService) MealPlan(ctx context.Context, preferences string, days int) ([]assistant.MealPlanSuggestion, error) {
	plan, err := assistant.SuggestMealPlan(ctx, service.completer, preferences, days)
	if err != nil {
		return nil, fmt.Errorf("suggesting meal plan: %w", err)
	}
	return plan, nil
}

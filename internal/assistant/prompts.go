package assistant

import (
	"context"
	"fmt"
	"strings"
)

type RecipeSuggestion struct {
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	PrepTime     int      `json:"prepTime"`
	CookTime     int      `json:"cookTime"`
	Servings     int      `json:"servings"`
	Ingredients  []string `json:"ingredients"`
	Instructions []string `json:"instructions"`
	Tags         []string `json:"tags"`
}

type MealPlanSuggestion struct {
	Day       string   `json:"day"`
	Breakfast string   `json:"breakfast,omitempty"`
	Lunch     string   `json:"lunch,omitempty"`
	Dinner    string   `json:"dinner,omitempty"`
	Snacks    []string `json:"snacks,omitempty"`
}

// StoreSections is the walking order of a typical grocery store.
var StoreSections = []string{
	"Produce",
	"Bakery",
	"Deli/Meat",
	"Dairy",
	"Frozen",
	"Canned Goods",
	"Dry Goods",
	"Condiments",
	"Snacks",
	"Beverages",
	"Health/Beauty",
	"Household",
	"Other",
}

func RecipesPrompt(request string, background string) string {
	var builder strings.Builder
	if background != "" {
		builder.WriteString(background)
		builder.WriteString("\n\n")
	}
	fmt.Fprintf(&builder, `Generate 3 recipe suggestions based on: %s

Please respond with a JSON array of recipes in this exact format:
[
  {
    "name": "Recipe Name",
    "description": "Brief description",
    "prepTime": 15,
    "cookTime": 30,
    "servings": 4,
    "ingredients": ["ingredient 1", "ingredient 2"],
    "instructions": ["step 1", "step 2"],
    "tags": ["tag1", "tag2"]
  }
]

Only return valid JSON, no additional text.`, request)
	return builder.String()
}

func GroceriesPrompt(recipes []string, existing []string) string {
	existingText := ""
	if len(existing) > 0 {
		existingText = "\n\nExisting items (don't duplicate): " + strings.Join(existing, ", ")
	}
	return fmt.Sprintf(`Based on these planned recipes: %s%s

Generate a comprehensive grocery list. Return only a JSON array of strings, no additional text:
["item 1", "item 2", "item 3"]`, strings.Join(recipes, ", "), existingText)
}

func MealPlanPrompt(preferences string, days int) string {
	if days <= 0 {
		days = 7
	}
	return fmt.Sprintf(`Create a %d-day meal plan based on: %s

Return only a JSON array in this format, no additional text:
[
  {
    "day": "Monday",
    "breakfast": "meal name",
    "lunch": "meal name",
    "dinner": "meal name",
    "snacks": ["snack 1", "snack 2"]
  }
]`, days, preferences)
}

func RestaurantsPrompt(cuisine string, preferences string, city string) string {
	preferenceText := ""
	if preferences != "" {
		preferenceText = "Preferences: " + preferences
	}
	return fmt.Sprintf(`Suggest 3-5 %s restaurants or food delivery options near %s. %s

Provide brief descriptions and what makes each one special. Format as a simple text list.`, cuisine, city, preferenceText)
}

func CookingHelpPrompt(question string) string {
	return "You are a helpful cooking assistant. Answer this question briefly and practically: " + question
}

func WelcomePrompt() string {
	return "Write a very brief, friendly, and colloquial welcome message (maximum 15 words) for a family command center app that helps families manage their schedules, grocery lists, and daily activities. Make it warm and encouraging. Just return the message text, nothing else."
}

func StoreSectionsPrompt(items []string) string {
	return fmt.Sprintf(`Categorize these grocery items into store sections. For each item, choose ONE category from this list: %s.

Items: %s

Return ONLY a JSON object mapping each item name to its category. Example format:
{
  "milk": "Dairy",
  "apples": "Produce",
  "bread": "Bakery"
}`, strings.Join(StoreSections, ", "), strings.Join(items, ", "))
}

func StoreLocationPrompt(item string) string {
	return fmt.Sprintf(`In which aisle or section of a grocery store would I typically find "%s"? Give a brief, specific answer in one sentence. For example: "Produce section" or "Dairy aisle, near the milk" or "Baking aisle, with flour and sugar".`, item)
}

func SuggestRecipes(ctx context.Context, completer Completer, request string, background string) ([]RecipeSuggestion, error) {
	return SuggestStructured[[]RecipeSuggestion](ctx, completer, RecipesPrompt(request, background), ShapeArray)
}

func SuggestGroceries(ctx context.Context, completer Completer, recipes []string, existing []string) ([]string, error) {
	return SuggestStructured[[]string](ctx, completer, GroceriesPrompt(recipes, existing), ShapeArray)
}

func SuggestMealPlan(ctx context.Context, completer Completer, preferences string, days int) ([]MealPlanSuggestion, error) {
	return SuggestStructured[[]MealPlanSuggestion](ctx, completer, MealPlanPrompt(preferences, days), ShapeArray)
}

func CategorizeStoreSections(ctx context.Context, completer Completer, items []string) (map[string]string, error) {
	return SuggestStructured[map[string]string](ctx, completer, StoreSectionsPrompt(items), ShapeObject)
}

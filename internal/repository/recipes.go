package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/bensuskins/command-center/internal/models"
	"github.com/google/uuid"
)

type RecipeRepository interface {
	FindByID(ctx context.Context, id string) (models.Recipe, error)
	FindAll(ctx context.Context) ([]models.Recipe, error)
	Search(ctx context.Context, query string) ([]models.Recipe, error)
	Create(ctx context.Context, recipe models.Recipe) (models.Recipe, error)
	Update(ctx context.Context, recipe models.Recipe) error
	ToggleFavorite(ctx context.Context, id string) (bool, error)
	Delete(ctx context.Context, id string) error
}

type SQLiteRecipeRepository struct {
	database *sql.DB
}

func NewRecipeRepository(database *sql.DB) *SQLiteRecipeRepository {
	return &SQLiteRecipeRepository{database: database}
}

const recipeColumns = `id, name, description, prep_minutes, cook_minutes, servings,
	ingredients, instructions, tags, image_url, favorite, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecipe(row rowScanner) (models.Recipe, error) {
	var recipe models.Recipe
	var ingredientsJSON, instructionsJSON, tagsJSON string
	if err := row.Scan(
		&recipe.ID, &recipe.Name, &recipe.Description,
		&recipe.PrepTime, &recipe.CookTime, &recipe.Servings,
		&ingredientsJSON, &instructionsJSON, &tagsJSON,
		&recipe.ImageURL, &recipe.Favorite, &recipe.CreatedAt, &recipe.UpdatedAt,
	); err != nil {
		return models.Recipe{}, err
	}

	lists := []struct {
		name   string
		raw    string
		target *[]string
	}{
		{"ingredients", ingredientsJSON, &recipe.Ingredients},
		{"instructions", instructionsJSON, &recipe.Instructions},
		{"tags", tagsJSON, &recipe.Tags},
	}
	for _, list := range lists {
		if err := json.Unmarshal([]byte(list.raw), list.target); err != nil {
			return models.Recipe{}, fmt.Errorf("unmarshalling %s: %w", list.name, err)
		}
	}
	return recipe, nil
}

func (repository *SQLiteRecipeRepository) FindByID(ctx context.Context, id string) (models.Recipe, error) {
	recipe, err := scanRecipe(repository.database.QueryRowContext(ctx,
		"SELECT "+recipeColumns+" FROM recipes WHERE id = ?", id,
	))
	if err != nil {
		return models.Recipe{}, fmt.Errorf("finding recipe by id: %w", err)
	}
	return recipe, nil
}

func (repository *SQLiteRecipeRepository) FindAll(ctx context.Context) ([]models.Recipe, error) {
	return repository.query(ctx, "SELECT "+recipeColumns+" FROM recipes ORDER BY favorite DESC, name ASC")
}

// Search matches name, description and tags case-insensitively.
func (repository *SQLiteRecipeRepository) Search(ctx context.Context, query string) ([]models.Recipe, error) {
	pattern := "%" + strings.ToLower(strings.TrimSpace(query)) + "%"
	return repository.query(ctx,
		"SELECT "+recipeColumns+` FROM recipes
		WHERE lower(name) LIKE ? OR lower(description) LIKE ? OR lower(tags) LIKE ?
		ORDER BY favorite DESC, name ASC`,
		pattern, pattern, pattern,
	)
}

func (repository *SQLiteRecipeRepository) query(ctx context.Context, statement string, args ...any) ([]models.Recipe, error) {
	rows, err := repository.database.QueryContext(ctx, statement, args...)
	if err != nil {
		return nil, fmt.Errorf("finding recipes: %w", err)
	}
	defer rows.Close()

	var recipes []models.Recipe
	for rows.Next() {
		recipe, err := scanRecipe(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning recipe: %w", err)
		}
		recipes = append(recipes, recipe)
	}
	return recipes, rows.Err()
}

func encodeRecipeLists(recipe models.Recipe) (string, string, string, error) {
	encoded := make([]string, 0, 3)
	for _, list := range [][]string{recipe.Ingredients, recipe.Instructions, recipe.Tags} {
		if list == nil {
			list = []string{}
		}
		raw, err := json.Marshal(list)
		if err != nil {
			return "", "", "", fmt.Errorf("marshalling recipe list: %w", err)
		}
		encoded = append(encoded, string(raw))
	}
	return encoded[0], encoded[1], encoded[2], nil
}

func (repository *SQLiteRecipeRepository) Create(ctx context.Context, recipe models.Recipe) (models.Recipe, error) {
	if recipe.ID == "" {
		recipe.ID = uuid.New().String()
	}
	now := time.Now()
	recipe.CreatedAt = now
	recipe.UpdatedAt = now

	ingredients, instructions, tags, err := encodeRecipeLists(recipe)
	if err != nil {
		return models.Recipe{}, err
	}

	_, err = repository.database.ExecContext(ctx,
		"INSERT INTO recipes ("+recipeColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		recipe.ID, recipe.Name, recipe.Description, recipe.PrepTime, recipe.CookTime, recipe.Servings,
		ingredients, instructions, tags, recipe.ImageURL, recipe.Favorite,
		recipe.CreatedAt, recipe.UpdatedAt,
	)
	if err != nil {
		return models.Recipe{}, fmt.Errorf("creating recipe: %w", err)
	}
	return recipe, nil
}

func (repository *SQLiteRecipeRepository) Update(ctx context.Context, recipe models.Recipe) error {
	ingredients, instructions, tags, err := encodeRecipeLists(recipe)
	if err != nil {
		return err
	}

	result, err := repository.database.ExecContext(ctx,
		`UPDATE recipes SET name = ?, description = ?, prep_minutes = ?, cook_minutes = ?,
			servings = ?, ingredients = ?, instructions = ?, tags = ?, image_url = ?,
			favorite = ?, updated_at = ?
		WHERE id = ?`,
		recipe.Name, recipe.Description, recipe.PrepTime, recipe.CookTime,
		recipe.Servings, ingredients, instructions, tags, recipe.ImageURL,
		recipe.Favorite, time.Now(), recipe.ID,
	)
	if err != nil {
		return fmt.Errorf("updating recipe: %w", err)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return fmt.Errorf("updating recipe %s: %w", recipe.ID, sql.ErrNoRows)
	}
	return nil
}

// ToggleFavorite flips the favorite flag and returns the new value.
func (repository *SQLiteRecipeRepository) ToggleFavorite(ctx context.Context, id string) (bool, error) {
	var favorite bool
	err := repository.database.QueryRowContext(ctx,
		"UPDATE recipes SET favorite = NOT favorite, updated_at = ? WHERE id = ? RETURNING favorite",
		time.Now(), id,
	).Scan(&favorite)
	if err != nil {
		return false, fmt.Errorf("toggling recipe favorite: %w", err)
	}
	return favorite, nil
}

func (repository *SQLiteRecipeRepository) Delete(ctx context.Context, id string) error {
	_, err := repository.database.ExecContext(ctx, "DELETE FROM recipes WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting recipe: %w", err)
	}
	return nil
}

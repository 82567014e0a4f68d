package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/bensuskins/command-center/internal/assistant"
	"github.com/bensuskins/command-center/internal/lists"
	"github.com/bensuskins/command-center/internal/models"
)

const RestaurantCollection = "restaurants"

var ErrRestaurantNameRequired = errors.New("restaurant name is required")

type RestaurantService struct {
	list        *lists.List[models.Restaurant]
	completer   assistant.Completer
	defaultCity string
}

func NewRestaurantService(list *lists.List[models.Restaurant], completer assistant.Completer, defaultCity string) *RestaurantService {
	return &RestaurantService{list: list, completer: completer, defaultCity: defaultCity}
}

func (service *RestaurantService) Mode() lists.Mode {
	return service.list.Mode()
}

func (service *RestaurantService) Subscribe(fn func([]models.Restaurant)) func() {
	return service.list.Subscribe(fn)
}

// Restaurants returns favorites first, then by name.
func (service *RestaurantService) Restaurants() []models.Restaurant {
	restaurants := service.list.Items()
	sort.SliceStable(restaurants, func(i, j int) bool {
		if restaurants[i].Favorite != restaurants[j].Favorite {
			return restaurants[i].Favorite
		}
		return strings.ToLower(restaurants[i].Name) < strings.ToLower(restaurants[j].Name)
	})
	return restaurants
}

func (service *RestaurantService) Add(ctx context.Context, restaurant models.Restaurant) (models.Restaurant, error) {
	restaurant.Name = strings.TrimSpace(restaurant.Name)
	if restaurant.Name == "" {
		return models.Restaurant{}, ErrRestaurantNameRequired
	}
	if restaurant.DeliveryApps == nil {
		restaurant.DeliveryApps = []string{}
	}
	if restaurant.OrderLinks == nil {
		restaurant.OrderLinks = []models.OrderLink{}
	}

	created, err := service.list.Insert(ctx, restaurant)
	if err != nil {
		return models.Restaurant{}, fmt.Errorf("adding restaurant: %w", err)
	}
	return created, nil
}

func (service *RestaurantService) Update(ctx context.Context, id string, patch map[string]any) error {
	return service.list.Update(ctx, id, patch)
}

func (service *RestaurantService) Delete(ctx context.Context, id string) error {
	return service.list.Delete(ctx, id)
}

func (service *RestaurantService) ToggleFavorite(ctx context.Context, id string) error {
	restaurant, ok := service.list.Find(id)
	if !ok {
		return fmt.Errorf("toggling favorite %s: %w", id, lists.ErrNotFound)
	}
	return service.list.Update(ctx, id, map[string]any{"favorite": !restaurant.Favorite})
}

// Suggest asks the assistant for places serving cuisine, near city or the
// configured default city.
func (service *RestaurantService) Suggest(ctx context.Context, cuisine string, preferences string, city string) (string, error) {
	if strings.TrimSpace(city) == "" {
		city = service.defaultCity
	}
	text, err := service.completer.Complete(ctx, assistant.RestaurantsPrompt(cuisine, preferences, city))
	if err != nil {
		return "", fmt.Errorf("suggesting restaurants: %w", err)
	}
	return text, nil
}

func (service *RestaurantService) Migrate(ctx context.Context) error {
	return service.list.Migrate(ctx)
}

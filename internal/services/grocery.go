package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bensuskins/command-center/internal/assistant"
	"github.com/bensuskins/command-center/internal/lists"
	"github.com/bensuskins/command-center/internal/models"
)

const (
	GroceryCollection    = "groceryItems"
	defaultLocationDelay = 300 * time.Millisecond
)

type GroceryService struct {
	list          *lists.List[models.GroceryItem]
	completer     assistant.Completer
	locationDelay time.Duration

	mutex     sync.Mutex
	sections  map[string]string
	locations map[string]string
}

func NewGroceryService(list *lists.List[models.GroceryItem], completer assistant.Completer) *GroceryService {
	return &GroceryService{
		list:          list,
		completer:     completer,
		locationDelay: defaultLocationDelay,
		sections:      make(map[string]string),
		locations:     make(map[string]string),
	}
}

func (service *GroceryService) Mode() lists.Mode {
	return service.list.Mode()
}

func (service *GroceryService) Items() []models.GroceryItem {
	return service.list.Items()
}

func (service *GroceryService) Subscribe(fn func([]models.GroceryItem)) func() {
	return service.list.Subscribe(fn)
}

// Add inserts a new active item. Every existing item with the same
// lower-cased name, completed or not, is deleted first. A blank name is a
// no-op and returns nil.
func (service *GroceryService) Add(ctx context.Context, name string) (*models.GroceryItem, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return nil, nil
	}

	normalized := strings.ToLower(trimmed)
	for _, item := range service.list.Items() {
		if strings.ToLower(strings.TrimSpace(item.Name)) != normalized {
			continue
		}
		if err := service.list.Delete(ctx, item.ID); err != nil {
			return nil, fmt.Errorf("removing duplicate %q: %w", item.Name, err)
		}
	}

	item, err := service.list.Insert(ctx, models.GroceryItem{Name: trimmed})
	if err != nil {
		return nil, fmt.Errorf("adding grocery item: %w", err)
	}
	return &item, nil
}

func (service *GroceryService) Toggle(ctx context.Context, id string) error {
	item, ok := service.list.Find(id)
	if !ok {
		return fmt.Errorf("toggling %s: %w", id, lists.ErrNotFound)
	}
	return service.list.Update(ctx, id, map[string]any{"completed": !item.Completed})
}

func (service *GroceryService) Update(ctx context.Context, id string, patch map[string]any) error {
	if name, ok := patch["name"].(string); ok {
		patch["name"] = strings.TrimSpace(name)
	}
	return service.list.Update(ctx, id, patch)
}

func (service *GroceryService) Delete(ctx context.Context, id string) error {
	if err := service.list.Delete(ctx, id); err != nil {
		return err
	}
	service.mutex.Lock()
	delete(service.sections, id)
	delete(service.locations, id)
	service.mutex.Unlock()
	return nil
}

func (service *GroceryService) ClearCompleted(ctx context.Context) error {
	for _, item := range service.Completed() {
		if err := service.Delete(ctx, item.ID); err != nil {
			return fmt.Errorf("clearing completed items: %w", err)
		}
	}
	return nil
}

func (service *GroceryService) Active() []models.GroceryItem {
	active := []models.GroceryItem{}
	for _, item := range service.list.Items() {
		if !item.Completed {
			active = append(active, item)
		}
	}
	return active
}

func (service *GroceryService) Completed() []models.GroceryItem {
	completed := []models.GroceryItem{}
	for _, item := range service.list.Items() {
		if item.Completed {
			completed = append(completed, item)
		}
	}
	return completed
}

// CompletedNames lists previously bought items for autocomplete, one entry
// per lower-cased name.
func (service *GroceryService) CompletedNames() []string {
	seen := make(map[string]bool)
	names := []string{}
	for _, item := range service.Completed() {
		key := strings.ToLower(item.Name)
		if seen[key] {
			continue
		}
		seen[key] = true
		names = append(names, item.Name)
	}
	sort.Slice(names, func(i, j int) bool {
		return strings.ToLower(names[i]) < strings.ToLower(names[j])
	})
	return names
}

// Migrate moves the list to the remote store and rekeys the cached sections
// and locations by the new remote ids.
func (service *GroceryService) Migrate(ctx context.Context) error {
	ids, err := service.list.MigrateWith(ctx, nil)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}

	service.mutex.Lock()
	defer service.mutex.Unlock()
	service.sections = rekey(service.sections, ids)
	service.locations = rekey(service.locations, ids)
	return nil
}

// rekey keeps only entries whose id was migrated, under the new id.
func rekey(cache map[string]string, ids map[string]string) map[string]string {
	rekeyed := make(map[string]string, len(cache))
	for localID, value := range cache {
		if remoteID, ok := ids[localID]; ok {
			rekeyed[remoteID] = value
		}
	}
	return rekeyed
}

// SortByStoreLayout returns the active items ordered by store section.
// Items without a known section are categorized in one request first.
func (service *GroceryService) SortByStoreLayout(ctx context.Context) ([]models.GroceryItem, error) {
	active := service.Active()

	service.mutex.Lock()
	var pending []models.GroceryItem
	for _, item := range active {
		if _, ok := service.sections[item.ID]; !ok {
			pending = append(pending, item)
		}
	}
	service.mutex.Unlock()

	if len(pending) > 0 {
		names := make([]string, 0, len(pending))
		for _, item := range pending {
			names = append(names, item.Name)
		}
		categories, err := assistant.CategorizeStoreSections(ctx, service.completer, names)
		if err != nil {
			return nil, fmt.Errorf("categorizing grocery items: %w", err)
		}

		lowered := make(map[string]string, len(categories))
		for name, section := range categories {
			lowered[strings.ToLower(name)] = section
		}

		service.mutex.Lock()
		for _, item := range pending {
			section, ok := categories[item.Name]
			if !ok {
				section, ok = lowered[strings.ToLower(item.Name)]
			}
			if ok {
				service.sections[item.ID] = section
			}
		}
		service.mutex.Unlock()
	}

	service.mutex.Lock()
	defer service.mutex.Unlock()
	sort.SliceStable(active, func(i, j int) bool {
		return sectionIndex(service.sections[active[i].ID]) < sectionIndex(service.sections[active[j].ID])
	})
	return active, nil
}

func sectionIndex(section string) int {
	if section == "" {
		section = "Other"
	}
	for index, candidate := range assistant.StoreSections {
		if strings.EqualFold(candidate, section) {
			return index
		}
	}
	return len(assistant.StoreSections)
}

func (service *GroceryService) StoreLocation(ctx context.Context, id string) (string, error) {
	item, ok := service.list.Find(id)
	if !ok {
		return "", fmt.Errorf("finding location for %s: %w", id, lists.ErrNotFound)
	}

	service.mutex.Lock()
	location, known := service.locations[id]
	service.mutex.Unlock()
	if known {
		return location, nil
	}

	text, err := service.completer.Complete(ctx, assistant.StoreLocationPrompt(item.Name))
	if err != nil {
		return "", fmt.Errorf("finding location for %q: %w", item.Name, err)
	}
	location = strings.TrimSpace(text)

	service.mutex.Lock()
	service.locations[id] = location
	service.mutex.Unlock()
	return location, nil
}

// StoreLocations looks up every active item without a known location, one
// request at a time with a pause between requests. Failed lookups are
// logged and skipped.
func (service *GroceryService) StoreLocations(ctx context.Context) map[string]string {
	requested := 0
	for _, item := range service.Active() {
		service.mutex.Lock()
		_, known := service.locations[item.ID]
		service.mutex.Unlock()
		if known {
			continue
		}

		if requested > 0 {
			select {
			case <-ctx.Done():
				return service.knownLocations()
			case <-time.After(service.locationDelay):
			}
		}
		requested++

		if _, err := service.StoreLocation(ctx, item.ID); err != nil {
			slog.Warn("preloading store location", "item", item.Name, "error", err)
		}
	}
	return service.knownLocations()
}

func (service *GroceryService) knownLocations() map[string]string {
	service.mutex.Lock()
	defer service.mutex.Unlock()
	locations := make(map[string]string, len(service.locations))
	for id, location := range service.locations {
		locations[id] = location
	}
	return locations
}

package preferences

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/bensuskins/command-center/internal/storage"
)

type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

var ErrInvalidTheme = errors.New("theme must be light or dark")

func (theme Theme) Valid() bool {
	return theme == ThemeLight || theme == ThemeDark
}

// Themes persists the dashboard theme in the local store.
type Themes struct {
	mutex sync.Mutex
	local *storage.Local
}

func NewThemes(local *storage.Local) *Themes {
	return &Themes{local: local}
}

// Get returns the saved theme, falling back to light when nothing valid is stored.
func (themes *Themes) Get(ctx context.Context) Theme {
	theme, ok := storage.Get[Theme](ctx, themes.local, storage.KeyThemePreference)
	if !ok || !theme.Valid() {
		return ThemeLight
	}
	return theme
}

func (themes *Themes) Set(ctx context.Context, theme Theme) error {
	if !theme.Valid() {
		return ErrInvalidTheme
	}
	themes.mutex.Lock()
	defer themes.mutex.Unlock()
	if err := themes.local.Set(ctx, storage.KeyThemePreference, theme); err != nil {
		return fmt.Errorf("saving theme: %w", err)
	}
	return nil
}

func (themes *Themes) Toggle(ctx context.Context) (Theme, error) {
	themes.mutex.Lock()
	defer themes.mutex.Unlock()

	next := ThemeDark
	if themes.Get(ctx) == ThemeDark {
		next = ThemeLight
	}
	if err := themes.local.Set(ctx, storage.KeyThemePreference, next); err != nil {
		return "", fmt.Errorf("saving theme: %w", err)
	}
	return next, nil
}

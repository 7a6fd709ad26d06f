package store

import (
	"context"
	"fmt"
	"slices"

	"blogdesk/internal/models"
	"blogdesk/internal/observability"
	"blogdesk/internal/storage"
)

const resourceTheme = "theme"

var themeLog = observability.NewStoreLogger(resourceTheme)

// Theme returns the current UI theme.
func (s *Store) Theme() models.Theme {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.theme
}

func (s *Store) IsDarkMode() bool {
	return s.Theme() == models.ThemeDark
}

// OnThemeChange registers fn to run after every theme change. Listeners run
// outside the store lock, in registration order.
func (s *Store) OnThemeChange(fn func(models.Theme)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.themeListeners = append(s.themeListeners, fn)
}

// SetTheme switches to t and persists it. Unknown values select light.
func (s *Store) SetTheme(ctx context.Context, t models.Theme) {
	s.changeTheme(ctx, func(models.Theme) models.Theme { return models.ParseTheme(string(t)) })
}

// ToggleTheme flips between light and dark and returns the new theme.
func (s *Store) ToggleTheme(ctx context.Context) models.Theme {
	return s.changeTheme(ctx, models.Theme.Toggle)
}

func (s *Store) changeTheme(ctx context.Context, next func(models.Theme) models.Theme) models.Theme {
	s.persistMu.Lock()
	s.mu.Lock()
	theme := next(s.theme)
	s.theme = theme
	listeners := slices.Clone(s.themeListeners)
	s.mu.Unlock()

	s.persist(ctx, themeLog, storage.KeyTheme, string(theme))
	s.persistMu.Unlock()

	observability.RecordAction(resourceTheme, "set_theme", nil)
	for _, fn := range listeners {
		fn(theme)
	}
	return theme
}

// rehydrateTheme survives logout: the theme key is never cleared.
func (s *Store) rehydrateTheme(ctx context.Context) error {
	raw, ok, err := s.storage.Get(ctx, storage.KeyTheme)
	if err != nil {
		observability.StorageErrors.WithLabelValues("get").Inc()
		return fmt.Errorf("rehydrate theme: %w", err)
	}
	if !ok {
		return nil
	}
	s.mu.Lock()
	s.theme = models.ParseTheme(raw)
	s.mu.Unlock()
	return nil
}

package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"sync"

	"cryptoverse/internal/domain"
)

// ThemeService keeps the dark mode preference mirrored in durable storage.
type ThemeService struct {
	mu     sync.Mutex
	kv     domain.KeyValueStore
	dark   bool
	logger *slog.Logger
}

// NewThemeService loads the stored preference. An absent, unreadable or
// malformed value falls back to fallback.
func NewThemeService(ctx context.Context, kv domain.KeyValueStore, fallback bool, logger *slog.Logger) *ThemeService {
	if logger == nil {
		logger = slog.Default()
	}
	s := &ThemeService{
		kv:     kv,
		dark:   fallback,
		logger: logger.With("module", "theme"),
	}

	raw, found, err := kv.Get(ctx, domain.KeyDarkMode)
	switch {
	case err != nil:
		s.logger.Warn("Failed to read theme preference", slog.Any("error", err))
	case !found:
	default:
		var v bool
		if perr := json.Unmarshal([]byte(raw), &v); perr == nil {
			s.dark = v
		} else {
			s.logger.Warn("Malformed theme preference ignored", slog.String("value", raw))
		}
	}
	return s
}

// DarkMode reports whether dark mode is on.
func (s *ThemeService) DarkMode() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dark
}

// Toggle flips the preference and persists it. The new value is returned even
// when the write fails.
func (s *ThemeService) Toggle(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.dark = !s.dark
	if err := s.kv.Set(ctx, domain.KeyDarkMode, strconv.FormatBool(s.dark)); err != nil {
		s.logger.Warn("Theme preference not persisted", slog.Any("error", err))
		return s.dark, err
	}
	return s.dark, nil
}

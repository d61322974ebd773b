// Package settings serves keyed, possibly multi-valued configuration strings
// such as reminder templates.
package settings

import (
	"context"
	"log/slog"
	"slices"
	"strings"

	"github.com/hgbot/hgbot/internal/storage"
)

type Service struct {
	store  storage.SettingsReader
	logger *slog.Logger
}

func NewService(log *slog.Logger, store storage.SettingsReader) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		store:  store,
		logger: log.With(slog.String("service", "settings")),
	}
}

// Values returns the stored values of key in order, falling back to Defaults
// when nothing usable is stored or the store fails.
func (s *Service) Values(ctx context.Context, key string) []string {
	var stored []string
	if s.store != nil {
		values, err := s.store.ListSettingValues(ctx, key)
		if err != nil {
			s.logger.Warn("load setting failed, using defaults", slog.String("key", key), slog.Any("error", err))
		}
		for _, v := range values {
			if strings.TrimSpace(v) != "" {
				stored = append(stored, v)
			}
		}
	}
	if len(stored) > 0 {
		return stored
	}
	return slices.Clone(Defaults[key])
}

package store

import (
	"context"

	"github.com/AndreasArnolfo/Babyrons/internal/domain/models"
)

// SettingsPatch is a partial update for UpdateSettings.
type SettingsPatch struct {
	EnabledServices *[]models.ServiceType
	Theme           *models.Theme
	IsPro           *bool
}

// Settings returns a copy of the current settings.
func (s *Store) Settings() models.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings.Clone()
}

// ToggleService flips whether the given event type is offered.
func (s *Store) ToggleService(t models.ServiceType) {
	s.mu.Lock()
	if s.settings.ServiceEnabled(t) {
		kept := s.settings.EnabledServices[:0]
		for _, svc := range s.settings.EnabledServices {
			if svc != t {
				kept = append(kept, svc)
			}
		}
		s.settings.EnabledServices = kept
	} else {
		s.settings.EnabledServices = append(s.settings.EnabledServices, t)
	}
	s.persistSettings()
	updated := s.settings.Clone()
	userID := s.userID
	s.mu.Unlock()

	s.push("upsert settings", userID, func(ctx context.Context) error {
		return s.remote.UpsertSettings(ctx, userID, updated)
	})
}

// UpdateSettings merges the patch, persists and pushes.
func (s *Store) UpdateSettings(patch SettingsPatch) {
	s.mu.Lock()
	if patch.EnabledServices != nil {
		enabled := make([]models.ServiceType, len(*patch.EnabledServices))
		copy(enabled, *patch.EnabledServices)
		s.settings.EnabledServices = enabled
	}
	if patch.Theme != nil {
		s.settings.Theme = *patch.Theme
	}
	if patch.IsPro != nil {
		s.settings.IsPro = *patch.IsPro
	}
	s.persistSettings()
	updated := s.settings.Clone()
	userID := s.userID
	s.mu.Unlock()

	s.push("upsert settings", userID, func(ctx context.Context) error {
		return s.remote.UpsertSettings(ctx, userID, updated)
	})
}

package store

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/AndreasArnolfo/Babyrons/internal/domain/models"
)

// NewBaby carries the caller-supplied fields for AddBaby. Identity, color
// and creation timestamp are computed by the store.
type NewBaby struct {
	Name      string
	Gender    *string
	BirthDate *int64
	Photo     *string
}

// BabyPatch is a partial update for UpdateBaby. Nil fields are left
// untouched; the Clear flags null out the matching optional field.
type BabyPatch struct {
	Name           *string
	Gender         *string
	BirthDate      *int64
	Photo          *string
	ClearGender    bool
	ClearBirthDate bool
	ClearPhoto     bool
}

// Babies returns a copy of the baby collection, in creation order.
func (s *Store) Babies() []models.Baby {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Baby, 0, len(s.babies))
	for _, b := range s.babies {
		out = append(out, cloneBaby(b))
	}
	return out
}

// Baby returns the baby with the given id.
func (s *Store) Baby(id string) (models.Baby, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.babies {
		if b.ID == id {
			return cloneBaby(b), true
		}
	}
	return models.Baby{}, false
}

// HasBaby reports whether a baby with the given id is cached.
func (s *Store) HasBaby(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.babyIndex(id) >= 0
}

// babyIndex returns the position of id in s.babies, or -1. Callers hold s.mu.
func (s *Store) babyIndex(id string) int {
	for i, b := range s.babies {
		if b.ID == id {
			return i
		}
	}
	return -1
}

// AddBaby creates a baby from the supplied fields, persists it and pushes
// it to the remote gateway when an identity is set.
func (s *Store) AddBaby(input NewBaby) models.Baby {
	s.mu.Lock()
	baby := models.Baby{
		ID:        models.NewBabyID(),
		Name:      input.Name,
		Color:     models.ColorFor(input.Gender, len(s.babies)),
		Gender:    input.Gender,
		BirthDate: input.BirthDate,
		Photo:     input.Photo,
		CreatedAt: time.Now().UnixMilli(),
	}
	s.babies = append(s.babies, baby)
	s.persistBabies()
	userID := s.userID
	s.mu.Unlock()

	s.push("upsert baby", userID, func(ctx context.Context) error {
		return s.remote.UpsertBaby(ctx, userID, baby)
	})
	return cloneBaby(baby)
}

// UpdateBaby merges the patch into the existing record. Unknown ids are a
// warned no-op.
func (s *Store) UpdateBaby(id string, patch BabyPatch) bool {
	s.mu.Lock()
	i := s.babyIndex(id)
	if i < 0 {
		s.mu.Unlock()
		s.logger.Warn("update for unknown baby", zap.String("id", id))
		return false
	}
	applyBabyPatch(&s.babies[i], patch)
	updated := s.babies[i]
	s.persistBabies()
	userID := s.userID
	s.mu.Unlock()

	s.push("upsert baby", userID, func(ctx context.Context) error {
		return s.remote.UpsertBaby(ctx, userID, updated)
	})
	return true
}

// RemoveBaby deletes the baby and cascades to every event with a matching
// babyId, then requests the same cascade remotely.
func (s *Store) RemoveBaby(id string) {
	s.mu.Lock()
	i := s.babyIndex(id)
	if i >= 0 {
		s.babies = append(s.babies[:i], s.babies[i+1:]...)
	}
	kept := s.events[:0]
	for _, ev := range s.events {
		if ev.Base().BabyID != id {
			kept = append(kept, ev)
		}
	}
	s.events = kept
	s.persistBabies()
	s.persistEvents()
	userID := s.userID
	s.mu.Unlock()

	s.push("delete baby cascade", userID, func(ctx context.Context) error {
		return s.remote.DeleteBabyCascade(ctx, userID, id)
	})
}

func applyBabyPatch(b *models.Baby, patch BabyPatch) {
	if patch.Name != nil {
		b.Name = *patch.Name
	}
	if patch.Gender != nil {
		g := *patch.Gender
		b.Gender = &g
	}
	if patch.ClearGender {
		b.Gender = nil
	}
	if patch.BirthDate != nil {
		d := *patch.BirthDate
		b.BirthDate = &d
	}
	if patch.ClearBirthDate {
		b.BirthDate = nil
	}
	if patch.Photo != nil {
		p := *patch.Photo
		b.Photo = &p
	}
	if patch.ClearPhoto {
		b.Photo = nil
	}
}

package store

import (
	"context"

	"go.uber.org/zap"

	"github.com/AndreasArnolfo/Babyrons/internal/domain/models"
)

// Events returns a copy of the event collection, in insertion order.
func (s *Store) Events() []models.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Event, 0, len(s.events))
	for _, ev := range s.events {
		out = append(out, models.CloneEvent(ev))
	}
	return out
}

// EventsByBaby returns every event owned by the given baby.
func (s *Store) EventsByBaby(babyID string) []models.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Event
	for _, ev := range s.events {
		if ev.Base().BabyID == babyID {
			out = append(out, models.CloneEvent(ev))
		}
	}
	return out
}

// EventsByType returns every event of the given type.
func (s *Store) EventsByType(t models.ServiceType) []models.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Event
	for _, ev := range s.events {
		if ev.Type() == t {
			out = append(out, models.CloneEvent(ev))
		}
	}
	return out
}

// Event returns the event with the given id.
func (s *Store) Event(id string) (models.Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.eventIndex(id); i >= 0 {
		return models.CloneEvent(s.events[i]), true
	}
	return nil, false
}

// HasEvent reports whether an event with the given id is cached.
func (s *Store) HasEvent(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.eventIndex(id) >= 0
}

// OpenSleep returns the in-progress sleep event for a baby, if any.
func (s *Store) OpenSleep(babyID string) (*models.SleepEvent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ev := range s.events {
		sleep, ok := ev.(*models.SleepEvent)
		if ok && sleep.BabyID == babyID && sleep.InProgress() {
			c := *sleep
			return &c, true
		}
	}
	return nil, false
}

// eventIndex returns the position of id in s.events, or -1. Callers hold s.mu.
func (s *Store) eventIndex(id string) int {
	for i, ev := range s.events {
		if ev.Base().ID == id {
			return i
		}
	}
	return -1
}

// AddEvent stores the event under a freshly generated id with local
// provenance, persists and pushes. The caller owns type-specific
// validation (positive ml, med name, growth measurement, single open
// sleep per baby). The returned event carries the assigned id.
func (s *Store) AddEvent(ev models.Event) models.Event {
	ev = models.CloneEvent(ev)
	base := ev.Base()
	base.ID = models.NewEventID()
	base.CreatedBy = models.ProvenanceLocal

	s.mu.Lock()
	s.events = append(s.events, ev)
	s.persistEvents()
	userID := s.userID
	s.mu.Unlock()

	pushed := models.CloneEvent(ev)
	s.push("upsert event", userID, func(ctx context.Context) error {
		return s.remote.UpsertEvent(ctx, userID, pushed)
	})
	return models.CloneEvent(ev)
}

// UpdateEvent replaces the event with the same id. Unknown ids are a
// warned no-op.
func (s *Store) UpdateEvent(ev models.Event) bool {
	ev = models.CloneEvent(ev)
	id := ev.Base().ID

	s.mu.Lock()
	i := s.eventIndex(id)
	if i < 0 {
		s.mu.Unlock()
		s.logger.Warn("update for unknown event", zap.String("id", id))
		return false
	}
	// Provenance sticks to the cached record; updates do not change it.
	ev.Base().CreatedBy = s.events[i].Base().CreatedBy
	s.events[i] = ev
	s.persistEvents()
	userID := s.userID
	s.mu.Unlock()

	pushed := models.CloneEvent(ev)
	s.push("upsert event", userID, func(ctx context.Context) error {
		return s.remote.UpsertEvent(ctx, userID, pushed)
	})
	return true
}

// RemoveEvent deletes the event locally and requests the remote delete.
func (s *Store) RemoveEvent(id string) {
	s.mu.Lock()
	if i := s.eventIndex(id); i >= 0 {
		s.events = append(s.events[:i], s.events[i+1:]...)
		s.persistEvents()
	}
	userID := s.userID
	s.mu.Unlock()

	s.push("delete event", userID, func(ctx context.Context) error {
		return s.remote.DeleteEvent(ctx, userID, id)
	})
}

package store

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/AndreasArnolfo/Babyrons/internal/domain/models"
)

// ErrNoIdentity is returned by LoadFromRemote when no user id is set.
var ErrNoIdentity = errors.New("store: no user identity set")

// The ApplyRemote* entry points mirror the local mutations but never push
// back to the remote gateway; this asymmetry is what keeps a local write
// from echoing through the change feed and back out again. Each performs
// the existence pre-check its operation requires (insert needs absence,
// update and delete need presence) and silently no-ops otherwise —
// re-delivery and out-of-order arrival are expected, not errors.

// ApplyRemoteBabyInsert inserts a baby received from the change feed.
func (s *Store) ApplyRemoteBabyInsert(baby models.Baby) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.babyIndex(baby.ID) >= 0 {
		return false
	}
	s.babies = append(s.babies, baby)
	s.persistBabies()
	return true
}

// ApplyRemoteBabyUpdate replaces a cached baby with the feed's version.
func (s *Store) ApplyRemoteBabyUpdate(baby models.Baby) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.babyIndex(baby.ID)
	if i < 0 {
		return false
	}
	s.babies[i] = baby
	s.persistBabies()
	return true
}

// ApplyRemoteBabyDelete removes a baby and cascades to its events.
func (s *Store) ApplyRemoteBabyDelete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.babyIndex(id)
	if i < 0 {
		return false
	}
	s.babies = append(s.babies[:i], s.babies[i+1:]...)
	kept := s.events[:0]
	for _, ev := range s.events {
		if ev.Base().BabyID != id {
			kept = append(kept, ev)
		}
	}
	s.events = kept
	s.persistBabies()
	s.persistEvents()
	return true
}

// ApplyRemoteEventInsert inserts an event received from the change feed.
func (s *Store) ApplyRemoteEventInsert(ev models.Event) bool {
	ev = models.CloneEvent(ev)
	ev.Base().CreatedBy = models.ProvenanceRemote

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.eventIndex(ev.Base().ID) >= 0 {
		return false
	}
	s.events = append(s.events, ev)
	s.persistEvents()
	return true
}

// ApplyRemoteEventUpdate replaces a cached event with the feed's version.
func (s *Store) ApplyRemoteEventUpdate(ev models.Event) bool {
	ev = models.CloneEvent(ev)

	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.eventIndex(ev.Base().ID)
	if i < 0 {
		return false
	}
	ev.Base().CreatedBy = s.events[i].Base().CreatedBy
	s.events[i] = ev
	s.persistEvents()
	return true
}

// ApplyRemoteEventDelete removes an event received from the change feed.
func (s *Store) ApplyRemoteEventDelete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.eventIndex(id)
	if i < 0 {
		return false
	}
	s.events = append(s.events[:i], s.events[i+1:]...)
	s.persistEvents()
	return true
}

// LoadFromRemote fetches all three collections for the active identity,
// replaces the cache and persists. Fetch failures leave the local cache
// untouched for that collection. Afterwards it runs the one-time photo
// migration pass.
func (s *Store) LoadFromRemote(ctx context.Context) error {
	userID := s.UserID()
	if userID == "" {
		return ErrNoIdentity
	}
	if s.remote == nil {
		s.logger.Warn("remote backend not configured, skipping load")
		return nil
	}

	babies, err := s.remote.FetchBabies(ctx, userID)
	if err != nil {
		return err
	}
	events, err := s.remote.FetchEvents(ctx, userID)
	if err != nil {
		return err
	}
	settings, err := s.remote.FetchSettings(ctx, userID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.babies = babies
	s.events = events
	if settings != nil {
		s.settings = *settings
	}
	s.persistBabies()
	s.persistEvents()
	s.persistSettings()
	s.mu.Unlock()

	s.migratePhotos(ctx)
	return nil
}

// migratePhotos uploads any locally-referenced baby photo and rewrites
// the reference to the returned URL. Runs at most once per store.
func (s *Store) migratePhotos(ctx context.Context) {
	if s.photos == nil {
		return
	}
	s.mu.Lock()
	if s.photosMigrated {
		s.mu.Unlock()
		return
	}
	s.photosMigrated = true
	var pending []models.Baby
	for _, b := range s.babies {
		if b.HasLocalPhoto() {
			pending = append(pending, cloneBaby(b))
		}
	}
	s.mu.Unlock()

	if len(pending) == 0 {
		return
	}
	migrated := s.photos.Migrate(ctx, pending)
	if len(migrated) == 0 {
		return
	}

	s.mu.Lock()
	var updated []models.Baby
	for i := range s.babies {
		url, ok := migrated[s.babies[i].ID]
		if !ok {
			continue
		}
		u := url
		s.babies[i].Photo = &u
		updated = append(updated, s.babies[i])
	}
	s.persistBabies()
	userID := s.userID
	s.mu.Unlock()

	for _, baby := range updated {
		baby := baby
		s.push("upsert baby", userID, func(ctx context.Context) error {
			return s.remote.UpsertBaby(ctx, userID, baby)
		})
	}
	s.logger.Info("photo migration completed", zap.Int("migrated", len(updated)))
}

// Package store holds the single source of truth for babies, events and
// settings. Mutations update the in-memory cache, persist a full snapshot
// to the local durable store, and push to the remote gateway when a user
// identity is set. The local cache is always authoritative for this
// device: remote failures are logged and never roll anything back.
package store

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/AndreasArnolfo/Babyrons/internal/domain/models"
)

// Durable storage keys, one full-collection snapshot per key.
const (
	keyBabies   = "babies"
	keyEvents   = "events"
	keySettings = "settings"
)

const pushTimeout = 15 * time.Second

// KV is the synchronous local durable store.
type KV interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
}

// RemoteGateway is the remote backend boundary. A nil gateway means the
// backend is not configured and the store runs local-only.
type RemoteGateway interface {
	FetchBabies(ctx context.Context, userID string) ([]models.Baby, error)
	FetchEvents(ctx context.Context, userID string) ([]models.Event, error)
	FetchSettings(ctx context.Context, userID string) (*models.Settings, error)
	UpsertBaby(ctx context.Context, userID string, baby models.Baby) error
	DeleteBabyCascade(ctx context.Context, userID, babyID string) error
	UpsertEvent(ctx context.Context, userID string, ev models.Event) error
	DeleteEvent(ctx context.Context, userID, eventID string) error
	UpsertSettings(ctx context.Context, userID string, settings models.Settings) error
}

// PhotoMigrator moves locally-referenced photos to remote storage and
// returns the rewritten URL per baby id.
type PhotoMigrator interface {
	Migrate(ctx context.Context, babies []models.Baby) map[string]string
}

// Store is the state container. Construct one per process (or per test)
// with New; it is safe for concurrent use.
type Store struct {
	kv     KV
	remote RemoteGateway
	photos PhotoMigrator
	logger *zap.Logger

	mu       sync.Mutex
	babies   []models.Baby
	events   []models.Event
	settings models.Settings
	userID   string

	photosMigrated bool

	pushes sync.WaitGroup
}

// New builds a store and loads the three collections from the durable
// store. Missing or unreadable snapshots fall back to empty collections
// and default settings.
func New(kv KV, remote RemoteGateway, photos PhotoMigrator, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{
		kv:       kv,
		remote:   remote,
		photos:   photos,
		logger:   logger,
		settings: models.DefaultSettings(),
	}
	s.loadFromLocal()
	return s, nil
}

func (s *Store) loadFromLocal() {
	if raw, ok, err := s.kv.Get(keyBabies); err != nil {
		s.logger.Warn("read babies snapshot failed", zap.Error(err))
	} else if ok {
		var babies []models.Baby
		if err := json.Unmarshal([]byte(raw), &babies); err != nil {
			s.logger.Warn("decode babies snapshot failed", zap.Error(err))
		} else {
			s.babies = babies
		}
	}
	if raw, ok, err := s.kv.Get(keyEvents); err != nil {
		s.logger.Warn("read events snapshot failed", zap.Error(err))
	} else if ok {
		events, err := models.UnmarshalEvents([]byte(raw))
		if err != nil {
			s.logger.Warn("decode events snapshot failed", zap.Error(err))
		} else {
			s.events = events
		}
	}
	if raw, ok, err := s.kv.Get(keySettings); err != nil {
		s.logger.Warn("read settings snapshot failed", zap.Error(err))
	} else if ok {
		var settings models.Settings
		if err := json.Unmarshal([]byte(raw), &settings); err != nil {
			s.logger.Warn("decode settings snapshot failed", zap.Error(err))
		} else {
			s.settings = settings
		}
	}
}

// Close waits for in-flight remote pushes so they do not outlive the
// container.
func (s *Store) Close() {
	s.pushes.Wait()
}

// SetUserID associates (non-empty) or clears (empty) the active remote
// identity. It does not trigger a remote fetch; call LoadFromRemote.
func (s *Store) SetUserID(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userID = id
}

// UserID returns the active remote identity, or "" when none is set.
func (s *Store) UserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID
}

// persist* write a full-collection snapshot. Callers hold s.mu. Storage
// failures are logged and otherwise ignored; the cache stays mutated.

func (s *Store) persistBabies() {
	raw, err := json.Marshal(s.babies)
	if err != nil {
		s.logger.Error("encode babies snapshot failed", zap.Error(err))
		return
	}
	if err := s.kv.Set(keyBabies, string(raw)); err != nil {
		s.logger.Warn("persist babies failed", zap.Error(err))
	}
}

func (s *Store) persistEvents() {
	raw, err := models.MarshalEvents(s.events)
	if err != nil {
		s.logger.Error("encode events snapshot failed", zap.Error(err))
		return
	}
	if err := s.kv.Set(keyEvents, string(raw)); err != nil {
		s.logger.Warn("persist events failed", zap.Error(err))
	}
}

func (s *Store) persistSettings() {
	raw, err := json.Marshal(s.settings)
	if err != nil {
		s.logger.Error("encode settings snapshot failed", zap.Error(err))
		return
	}
	if err := s.kv.Set(keySettings, string(raw)); err != nil {
		s.logger.Warn("persist settings failed", zap.Error(err))
	}
}

// push schedules a fire-and-forget remote call. The caller's mutation has
// already landed locally; failures are logged and never surfaced.
func (s *Store) push(op, userID string, fn func(ctx context.Context) error) {
	if s.remote == nil || userID == "" {
		return
	}
	s.pushes.Add(1)
	go func() {
		defer s.pushes.Done()
		ctx, cancel := context.WithTimeout(context.Background(), pushTimeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			s.logger.Warn("remote push failed", zap.String("op", op), zap.Error(err))
		}
	}()
}

func cloneBaby(b models.Baby) models.Baby {
	out := b
	if b.Gender != nil {
		g := *b.Gender
		out.Gender = &g
	}
	if b.BirthDate != nil {
		d := *b.BirthDate
		out.BirthDate = &d
	}
	if b.Photo != nil {
		p := *b.Photo
		out.Photo = &p
	}
	return out
}

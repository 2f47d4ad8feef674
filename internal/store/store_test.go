package store_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/AndreasArnolfo/Babyrons/internal/domain/models"
	"github.com/AndreasArnolfo/Babyrons/internal/storage/sqlitekv"
	"github.com/AndreasArnolfo/Babyrons/internal/store"
)

func ptr[T any](v T) *T { return &v }

type fakeKV struct {
	mu   sync.Mutex
	data map[string]string
}

func newFakeKV() *fakeKV { return &fakeKV{data: make(map[string]string)} }

func (kv *fakeKV) Get(key string) (string, bool, error) {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	value, ok := kv.data[key]
	return value, ok, nil
}

func (kv *fakeKV) Set(key, value string) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	kv.data[key] = value
	return nil
}

type fakeGateway struct {
	mu             sync.Mutex
	upsertedBabies []models.Baby
	deletedBabies  []string
	upsertedEvents []models.Event
	deletedEvents  []string
	settingsWrites []models.Settings

	fetchBabies   []models.Baby
	fetchEvents   []models.Event
	fetchSettings *models.Settings
}

func (g *fakeGateway) FetchBabies(ctx context.Context, userID string) ([]models.Baby, error) {
	return g.fetchBabies, nil
}

func (g *fakeGateway) FetchEvents(ctx context.Context, userID string) ([]models.Event, error) {
	return g.fetchEvents, nil
}

func (g *fakeGateway) FetchSettings(ctx context.Context, userID string) (*models.Settings, error) {
	return g.fetchSettings, nil
}

func (g *fakeGateway) UpsertBaby(ctx context.Context, userID string, baby models.Baby) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.upsertedBabies = append(g.upsertedBabies, baby)
	return nil
}

func (g *fakeGateway) DeleteBabyCascade(ctx context.Context, userID, babyID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.deletedBabies = append(g.deletedBabies, babyID)
	return nil
}

func (g *fakeGateway) UpsertEvent(ctx context.Context, userID string, ev models.Event) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.upsertedEvents = append(g.upsertedEvents, ev)
	return nil
}

func (g *fakeGateway) DeleteEvent(ctx context.Context, userID, eventID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.deletedEvents = append(g.deletedEvents, eventID)
	return nil
}

func (g *fakeGateway) UpsertSettings(ctx context.Context, userID string, settings models.Settings) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.settingsWrites = append(g.settingsWrites, settings)
	return nil
}

func (g *fakeGateway) babyUpserts() []models.Baby {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]models.Baby, len(g.upsertedBabies))
	copy(out, g.upsertedBabies)
	return out
}

func (g *fakeGateway) eventUpserts() []models.Event {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]models.Event, len(g.upsertedEvents))
	copy(out, g.upsertedEvents)
	return out
}

type fakeMigrator struct {
	urls  map[string]string
	calls int
}

func (m *fakeMigrator) Migrate(ctx context.Context, babies []models.Baby) map[string]string {
	m.calls++
	out := make(map[string]string)
	for _, b := range babies {
		if url, ok := m.urls[b.ID]; ok {
			out[b.ID] = url
		}
	}
	return out
}

func newTestStore(t *testing.T, remote store.RemoteGateway) *store.Store {
	t.Helper()
	st, err := store.New(newFakeKV(), remote, nil, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(st.Close)
	return st
}

func bottle(babyID string, ml int, at int64) *models.BottleEvent {
	return &models.BottleEvent{
		EventBase: models.EventBase{BabyID: babyID, At: at},
		ML:        ml,
	}
}

func TestAddBabyDefaults(t *testing.T) {
	st := newTestStore(t, nil)

	baby := st.AddBaby(store.NewBaby{Name: "Léo", Gender: ptr(models.GenderMale)})

	require.NotEmpty(t, baby.ID)
	require.Equal(t, "Léo", baby.Name)
	require.Equal(t, "#9CC6E7", baby.Color)
	require.Equal(t, models.GenderMale, *baby.Gender)
	require.Nil(t, baby.BirthDate)
	require.Nil(t, baby.Photo)
	require.NotZero(t, baby.CreatedAt)

	babies := st.Babies()
	require.Len(t, babies, 1)
	require.Equal(t, baby, babies[0])
}

func TestAddEventAssignsDistinctIDs(t *testing.T) {
	st := newTestStore(t, nil)

	first := st.AddEvent(bottle("baby-1", 120, 42))
	second := st.AddEvent(bottle("baby-1", 120, 42))

	require.NotEqual(t, first.Base().ID, second.Base().ID)
	require.Len(t, st.Events(), 2)
	require.Equal(t, models.ProvenanceLocal, first.Base().CreatedBy)
}

func TestRemoteInsertEchoIsSuppressed(t *testing.T) {
	st := newTestStore(t, nil)

	local := st.AddEvent(bottle("baby-1", 120, 42))

	// The remote confirmation for our own write comes back through the
	// change feed with the same id; it must not duplicate or overwrite.
	echo := bottle("baby-1", 999, 99)
	echo.ID = local.Base().ID
	require.False(t, st.ApplyRemoteEventInsert(echo))

	events := st.Events()
	require.Len(t, events, 1)
	require.Equal(t, local, events[0])
}

func TestRemoveBabyCascades(t *testing.T) {
	st := newTestStore(t, nil)

	baby := st.AddBaby(store.NewBaby{Name: "Mia"})
	other := st.AddBaby(store.NewBaby{Name: "Tom"})
	for i := 0; i < 3; i++ {
		st.AddEvent(bottle(baby.ID, 100+i, int64(i)))
	}
	kept := st.AddEvent(bottle(other.ID, 50, 7))

	st.RemoveBaby(baby.ID)

	require.False(t, st.HasBaby(baby.ID))
	require.Empty(t, st.EventsByBaby(baby.ID))
	events := st.Events()
	require.Len(t, events, 1)
	require.Equal(t, kept.Base().ID, events[0].Base().ID)
}

func TestRemoteDeleteIsIdempotent(t *testing.T) {
	st := newTestStore(t, nil)

	ev := st.AddEvent(bottle("baby-1", 120, 42))

	require.True(t, st.ApplyRemoteEventDelete(ev.Base().ID))
	require.False(t, st.ApplyRemoteEventDelete(ev.Base().ID))
	require.Empty(t, st.Events())
}

func TestRemoteInsertAfterLocalDeleteResurrects(t *testing.T) {
	st := newTestStore(t, nil)

	baby := st.AddBaby(store.NewBaby{Name: "Zoe"})
	st.RemoveBaby(baby.ID)
	require.False(t, st.HasBaby(baby.ID))

	// A late insert notification for the deleted id passes the absence
	// check and re-inserts the record: the known resurrection race.
	require.True(t, st.ApplyRemoteBabyInsert(baby))
	require.True(t, st.HasBaby(baby.ID))
}

func TestToggleService(t *testing.T) {
	st := newTestStore(t, nil)

	require.True(t, st.Settings().ServiceEnabled(models.ServiceBottle))

	st.ToggleService(models.ServiceBottle)
	require.False(t, st.Settings().ServiceEnabled(models.ServiceBottle))

	st.ToggleService(models.ServiceBottle)
	require.True(t, st.Settings().ServiceEnabled(models.ServiceBottle))
}

func TestUpdateBabyPatch(t *testing.T) {
	st := newTestStore(t, nil)

	baby := st.AddBaby(store.NewBaby{Name: "Sam", BirthDate: ptr(int64(1000))})

	require.True(t, st.UpdateBaby(baby.ID, store.BabyPatch{
		Name:           ptr("Samuel"),
		Gender:         ptr(models.GenderMale),
		ClearBirthDate: true,
	}))

	updated, ok := st.Baby(baby.ID)
	require.True(t, ok)
	require.Equal(t, "Samuel", updated.Name)
	require.Equal(t, models.GenderMale, *updated.Gender)
	require.Nil(t, updated.BirthDate)

	require.False(t, st.UpdateBaby("baby-missing", store.BabyPatch{Name: ptr("x")}))
}

func TestPersistenceRoundTrip(t *testing.T) {
	kv, err := sqlitekv.Open(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	defer func() { _ = kv.Close() }()

	st, err := store.New(kv, nil, nil, zap.NewNop())
	require.NoError(t, err)

	baby := st.AddBaby(store.NewBaby{Name: "Léo", Gender: ptr(models.GenderFemale), Photo: ptr("https://cdn.example.com/l.jpg")})
	st.AddEvent(bottle(baby.ID, 120, 42))
	st.AddEvent(&models.SleepEvent{
		EventBase: models.EventBase{BabyID: baby.ID, At: 100},
		StartAt:   100,
	})
	st.ToggleService(models.ServiceGrowth)
	st.Close()

	reloaded, err := store.New(kv, nil, nil, zap.NewNop())
	require.NoError(t, err)
	defer reloaded.Close()

	require.Equal(t, st.Babies(), reloaded.Babies())
	require.Equal(t, st.Events(), reloaded.Events())
	require.Equal(t, st.Settings(), reloaded.Settings())
}

func TestLocalMutationsPushWhenIdentitySet(t *testing.T) {
	gateway := &fakeGateway{}
	st := newTestStore(t, gateway)
	st.SetUserID("user-1")

	baby := st.AddBaby(store.NewBaby{Name: "Nina"})
	ev := st.AddEvent(bottle(baby.ID, 90, 1))
	st.Close()

	require.Len(t, gateway.babyUpserts(), 1)
	require.Equal(t, baby.ID, gateway.babyUpserts()[0].ID)
	require.Len(t, gateway.eventUpserts(), 1)
	require.Equal(t, ev.Base().ID, gateway.eventUpserts()[0].Base().ID)
}

func TestNoPushWithoutIdentity(t *testing.T) {
	gateway := &fakeGateway{}
	st := newTestStore(t, gateway)

	st.AddBaby(store.NewBaby{Name: "Nina"})
	st.Close()

	require.Empty(t, gateway.babyUpserts())
}

func TestRemoteApplyNeverPushesBack(t *testing.T) {
	gateway := &fakeGateway{}
	st := newTestStore(t, gateway)
	st.SetUserID("user-1")

	st.ApplyRemoteBabyInsert(models.Baby{ID: "baby-r", Name: "Remote"})
	ev := bottle("baby-r", 60, 5)
	ev.ID = "event-r"
	st.ApplyRemoteEventInsert(ev)
	st.ApplyRemoteEventDelete("event-r")
	st.ApplyRemoteBabyDelete("baby-r")
	st.Close()

	require.Empty(t, gateway.babyUpserts())
	require.Empty(t, gateway.eventUpserts())
	require.Empty(t, gateway.deletedBabies)
	require.Empty(t, gateway.deletedEvents)
}

func TestLoadFromRemoteReplacesCache(t *testing.T) {
	remoteEvent := bottle("baby-r", 80, 9)
	remoteEvent.ID = "event-r"
	remoteEvent.CreatedBy = models.ProvenanceRemote
	gateway := &fakeGateway{
		fetchBabies:   []models.Baby{{ID: "baby-r", Name: "Remote", Color: "#98FFC1"}},
		fetchEvents:   []models.Event{remoteEvent},
		fetchSettings: &models.Settings{EnabledServices: []models.ServiceType{models.ServiceBottle}, Theme: models.ThemeDark, IsPro: true},
	}
	st := newTestStore(t, gateway)

	st.AddBaby(store.NewBaby{Name: "StaleLocal"})

	require.ErrorIs(t, st.LoadFromRemote(context.Background()), store.ErrNoIdentity)

	st.SetUserID("user-1")
	require.NoError(t, st.LoadFromRemote(context.Background()))

	babies := st.Babies()
	require.Len(t, babies, 1)
	require.Equal(t, "baby-r", babies[0].ID)
	require.Len(t, st.Events(), 1)
	require.Equal(t, models.ThemeDark, st.Settings().Theme)
	require.True(t, st.Settings().IsPro)
}

func TestLoadFromRemoteMigratesLocalPhotos(t *testing.T) {
	gateway := &fakeGateway{
		fetchBabies: []models.Baby{
			{ID: "baby-1", Name: "Pic", Photo: ptr("/data/photos/pic.jpg")},
			{ID: "baby-2", Name: "NoPic"},
		},
	}
	migrator := &fakeMigrator{urls: map[string]string{"baby-1": "https://cdn.example.com/pic.jpg"}}

	st, err := store.New(newFakeKV(), gateway, migrator, zap.NewNop())
	require.NoError(t, err)
	defer st.Close()
	st.SetUserID("user-1")

	require.NoError(t, st.LoadFromRemote(context.Background()))

	baby, ok := st.Baby("baby-1")
	require.True(t, ok)
	require.Equal(t, "https://cdn.example.com/pic.jpg", *baby.Photo)

	// Migration runs once per store lifetime.
	require.NoError(t, st.LoadFromRemote(context.Background()))
	require.Equal(t, 1, migrator.calls)

	st.Close()
	require.NotEmpty(t, gateway.babyUpserts())
}

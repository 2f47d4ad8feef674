package sync_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/AndreasArnolfo/Babyrons/internal/domain/models"
	"github.com/AndreasArnolfo/Babyrons/internal/store"
	syncpkg "github.com/AndreasArnolfo/Babyrons/internal/sync"
)

type fakeKV struct{ data map[string]string }

func newFakeKV() *fakeKV { return &fakeKV{data: make(map[string]string)} }

func (kv *fakeKV) Get(key string) (string, bool, error) {
	value, ok := kv.data[key]
	return value, ok, nil
}

func (kv *fakeKV) Set(key, value string) error {
	kv.data[key] = value
	return nil
}

// fakeFeed implements both feed interfaces over plain channels.
type fakeFeed struct {
	scope       string
	scopeErr    error
	babyChanges chan models.BabyChange
	evChanges   chan models.EventChange
}

func newFakeFeed(scope string) *fakeFeed {
	return &fakeFeed{
		scope:       scope,
		babyChanges: make(chan models.BabyChange, 16),
		evChanges:   make(chan models.EventChange, 16),
	}
}

func (f *fakeFeed) ResolveScopeValue(ctx context.Context, userID, email string) (string, error) {
	if f.scopeErr != nil {
		return "", f.scopeErr
	}
	return f.scope, nil
}

// WatchBabies mirrors the real gateway: the returned channel closes when
// ctx is cancelled or the source ends.
func (f *fakeFeed) WatchBabies(ctx context.Context, scope string) (<-chan models.BabyChange, error) {
	out := make(chan models.BabyChange)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case change, ok := <-f.babyChanges:
				if !ok {
					return
				}
				select {
				case out <- change:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func (f *fakeFeed) WatchEvents(ctx context.Context, scope string) (<-chan models.EventChange, error) {
	out := make(chan models.EventChange)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case change, ok := <-f.evChanges:
				if !ok {
					return
				}
				select {
				case out <- change:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.New(newFakeKV(), nil, nil, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(st.Close)
	return st
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func remoteBottle(id, babyID string, ml int) *models.BottleEvent {
	return &models.BottleEvent{
		EventBase: models.EventBase{ID: id, BabyID: babyID, At: 1, CreatedBy: models.ProvenanceRemote},
		ML:        ml,
	}
}

func TestListenerWithoutIdentityStaysUninitialized(t *testing.T) {
	st := newTestStore(t)
	feed := newFakeFeed("user-1")

	l := syncpkg.NewBabiesListener(feed, st, syncpkg.Identity{}, zap.NewNop())
	require.NoError(t, l.Start(context.Background()))
	require.Equal(t, syncpkg.StateUninitialized, l.State())

	l.Stop()
	require.Equal(t, syncpkg.StateTornDown, l.State())
}

func TestBabiesListenerAppliesInserts(t *testing.T) {
	st := newTestStore(t)
	feed := newFakeFeed("user-1")

	l := syncpkg.NewBabiesListener(feed, st, syncpkg.Identity{UserID: "user-1"}, zap.NewNop())
	require.NoError(t, l.Start(context.Background()))
	require.Equal(t, syncpkg.StateSubscribed, l.State())
	defer l.Stop()

	baby := models.Baby{ID: "baby-1", Name: "Remote", Color: "#98FFC1"}
	feed.babyChanges <- models.BabyChange{Op: models.ChangeInsert, ID: baby.ID, Baby: &baby, Scope: "user-1"}

	waitFor(t, func() bool { return st.HasBaby("baby-1") })
}

func TestEventsListenerSuppressesLocalEcho(t *testing.T) {
	st := newTestStore(t)
	feed := newFakeFeed("user-1")

	local := st.AddEvent(remoteBottle("", "baby-1", 120))

	l := syncpkg.NewEventsListener(feed, st, syncpkg.Identity{UserID: "user-1"}, zap.NewNop())
	require.NoError(t, l.Start(context.Background()))
	defer l.Stop()

	echo := remoteBottle(local.Base().ID, "baby-1", 999)
	feed.evChanges <- models.EventChange{Op: models.ChangeInsert, ID: echo.ID, Event: echo, Scope: "user-1"}

	// Give the echo time to be (not) applied, using a second change as a
	// barrier.
	marker := remoteBottle("event-marker", "baby-1", 1)
	feed.evChanges <- models.EventChange{Op: models.ChangeInsert, ID: marker.ID, Event: marker, Scope: "user-1"}
	waitFor(t, func() bool { return st.HasEvent("event-marker") })

	got, ok := st.Event(local.Base().ID)
	require.True(t, ok)
	require.Equal(t, 120, got.(*models.BottleEvent).ML)
	require.Len(t, st.Events(), 2)
}

func TestEventsListenerSynthesizesInsertFromEarlyUpdate(t *testing.T) {
	st := newTestStore(t)
	feed := newFakeFeed("user-1")

	l := syncpkg.NewEventsListener(feed, st, syncpkg.Identity{UserID: "user-1"}, zap.NewNop())
	require.NoError(t, l.Start(context.Background()))
	defer l.Stop()

	// Update delivered before its insert: the listener must synthesize
	// the record from the update payload.
	ev := remoteBottle("event-early", "baby-1", 80)
	feed.evChanges <- models.EventChange{Op: models.ChangeUpdate, ID: ev.ID, Event: ev, Scope: "user-1"}

	waitFor(t, func() bool { return st.HasEvent("event-early") })
	got, _ := st.Event("event-early")
	require.Equal(t, 80, got.(*models.BottleEvent).ML)

	// The insert arriving afterwards is a no-op.
	late := remoteBottle("event-early", "baby-1", 777)
	feed.evChanges <- models.EventChange{Op: models.ChangeInsert, ID: late.ID, Event: late, Scope: "user-1"}
	marker := remoteBottle("event-marker", "baby-1", 1)
	feed.evChanges <- models.EventChange{Op: models.ChangeInsert, ID: marker.ID, Event: marker, Scope: "user-1"}
	waitFor(t, func() bool { return st.HasEvent("event-marker") })

	got, _ = st.Event("event-early")
	require.Equal(t, 80, got.(*models.BottleEvent).ML)
}

func TestEventsListenerFiltersForeignDeletes(t *testing.T) {
	st := newTestStore(t)
	feed := newFakeFeed("user-1")

	mine := st.AddEvent(remoteBottle("", "baby-1", 100))

	l := syncpkg.NewEventsListener(feed, st, syncpkg.Identity{UserID: "user-1"}, zap.NewNop())
	require.NoError(t, l.Start(context.Background()))
	defer l.Stop()

	// Deletes arrive unscoped: one for an unknown foreign row, one for a
	// cached row.
	feed.evChanges <- models.EventChange{Op: models.ChangeDelete, ID: "event-foreign"}
	feed.evChanges <- models.EventChange{Op: models.ChangeDelete, ID: mine.Base().ID}

	waitFor(t, func() bool { return !st.HasEvent(mine.Base().ID) })
	require.Empty(t, st.Events())
}

func TestBabiesListenerDeleteCascades(t *testing.T) {
	st := newTestStore(t)
	feed := newFakeFeed("user-1")

	st.ApplyRemoteBabyInsert(models.Baby{ID: "baby-1", Name: "Remote"})
	st.ApplyRemoteEventInsert(remoteBottle("event-1", "baby-1", 50))

	l := syncpkg.NewBabiesListener(feed, st, syncpkg.Identity{UserID: "user-1"}, zap.NewNop())
	require.NoError(t, l.Start(context.Background()))
	defer l.Stop()

	feed.babyChanges <- models.BabyChange{Op: models.ChangeDelete, ID: "baby-1"}

	waitFor(t, func() bool { return !st.HasBaby("baby-1") })
	require.False(t, st.HasEvent("event-1"))
}

func TestListenerStopIsTerminal(t *testing.T) {
	st := newTestStore(t)
	feed := newFakeFeed("user-1")

	l := syncpkg.NewEventsListener(feed, st, syncpkg.Identity{UserID: "user-1"}, zap.NewNop())
	require.NoError(t, l.Start(context.Background()))

	close(feed.evChanges)
	l.Stop()
	require.Equal(t, syncpkg.StateTornDown, l.State())
}

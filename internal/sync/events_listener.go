package sync

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/AndreasArnolfo/Babyrons/internal/domain/models"
	"github.com/AndreasArnolfo/Babyrons/internal/store"
)

// EventsFeed is the subscription surface the events listener consumes.
type EventsFeed interface {
	ResolveScopeValue(ctx context.Context, userID, email string) (string, error)
	WatchEvents(ctx context.Context, scope string) (<-chan models.EventChange, error)
}

// EventsListener applies the events change feed to the state container.
// The two listeners are independent: no ordering holds across them, so an
// event may briefly reference a baby whose insert has not arrived yet.
type EventsListener struct {
	feed     EventsFeed
	store    *store.Store
	identity Identity
	logger   *zap.Logger

	mu     sync.Mutex
	state  State
	scope  string
	cancel context.CancelFunc
	done   chan struct{}
}

// NewEventsListener builds a listener; call Start to subscribe.
func NewEventsListener(feed EventsFeed, st *store.Store, identity Identity, logger *zap.Logger) *EventsListener {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventsListener{
		feed:     feed,
		store:    st,
		identity: identity,
		logger:   logger,
		state:    StateUninitialized,
		done:     make(chan struct{}),
	}
}

// State returns the listener's lifecycle state.
func (l *EventsListener) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

func (l *EventsListener) setState(s State) {
	l.mu.Lock()
	l.state = s
	l.mu.Unlock()
}

// Start resolves the scope value and opens the subscription.
func (l *EventsListener) Start(ctx context.Context) error {
	if l.identity.UserID == "" {
		l.logger.Info("no user identity, events feed not subscribed")
		close(l.done)
		return nil
	}
	l.setState(StateResolving)

	scope, err := l.feed.ResolveScopeValue(ctx, l.identity.UserID, l.identity.Email)
	if err != nil {
		l.logger.Warn("resolve scope failed", zap.Error(err))
		scope = l.identity.UserID
	}
	l.mu.Lock()
	l.scope = scope
	l.mu.Unlock()

	runCtx, cancel := context.WithCancel(context.Background())
	ch, err := l.feed.WatchEvents(runCtx, scope)
	if err != nil {
		cancel()
		close(l.done)
		l.logger.Warn("subscribe to events feed failed", zap.Error(err))
		return err
	}
	l.mu.Lock()
	l.cancel = cancel
	l.state = StateSubscribed
	l.mu.Unlock()
	l.logger.Info("events feed subscribed", zap.String("scope", scope))

	go func() {
		defer close(l.done)
		for change := range ch {
			l.apply(change)
		}
	}()
	return nil
}

// Stop tears the subscription down; terminal.
func (l *EventsListener) Stop() {
	l.mu.Lock()
	cancel := l.cancel
	l.cancel = nil
	l.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	<-l.done
	l.setState(StateTornDown)
}

func (l *EventsListener) apply(change models.EventChange) {
	switch change.Op {
	case models.ChangeInsert:
		if change.Event == nil {
			return
		}
		if !l.store.ApplyRemoteEventInsert(change.Event) {
			l.logger.Debug("event insert already applied", zap.String("id", change.ID))
		}
	case models.ChangeUpdate:
		if change.Event == nil {
			return
		}
		if !l.store.ApplyRemoteEventUpdate(change.Event) {
			// The feed does not guarantee total order across rows; an
			// update can land before its insert. Synthesize the record
			// from the update payload.
			l.store.ApplyRemoteEventInsert(change.Event)
		}
	case models.ChangeDelete:
		l.mu.Lock()
		scope := l.scope
		l.mu.Unlock()
		if l.store.HasEvent(change.ID) || (change.Scope != "" && change.Scope == scope) {
			l.store.ApplyRemoteEventDelete(change.ID)
		}
	}
}

package sync

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/AndreasArnolfo/Babyrons/internal/domain/models"
	"github.com/AndreasArnolfo/Babyrons/internal/store"
)

// BabiesFeed is the subscription surface the babies listener consumes.
type BabiesFeed interface {
	ResolveScopeValue(ctx context.Context, userID, email string) (string, error)
	WatchBabies(ctx context.Context, scope string) (<-chan models.BabyChange, error)
}

// BabiesListener applies the babies change feed to the state container.
type BabiesListener struct {
	feed     BabiesFeed
	store    *store.Store
	identity Identity
	logger   *zap.Logger

	mu     sync.Mutex
	state  State
	scope  string
	cancel context.CancelFunc
	done   chan struct{}
}

// NewBabiesListener builds a listener; call Start to subscribe.
func NewBabiesListener(feed BabiesFeed, st *store.Store, identity Identity, logger *zap.Logger) *BabiesListener {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BabiesListener{
		feed:     feed,
		store:    st,
		identity: identity,
		logger:   logger,
		state:    StateUninitialized,
		done:     make(chan struct{}),
	}
}

// State returns the listener's lifecycle state.
func (l *BabiesListener) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

func (l *BabiesListener) setState(s State) {
	l.mu.Lock()
	l.state = s
	l.mu.Unlock()
}

// Start resolves the scope value and opens the subscription. Without an
// identity the listener stays uninitialized; a later sign-in needs a
// fresh listener.
func (l *BabiesListener) Start(ctx context.Context) error {
	if l.identity.UserID == "" {
		l.logger.Info("no user identity, babies feed not subscribed")
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
	ch, err := l.feed.WatchBabies(runCtx, scope)
	if err != nil {
		cancel()
		close(l.done)
		l.logger.Warn("subscribe to babies feed failed", zap.Error(err))
		return err
	}
	l.mu.Lock()
	l.cancel = cancel
	l.state = StateSubscribed
	l.mu.Unlock()
	l.logger.Info("babies feed subscribed", zap.String("scope", scope))

	go func() {
		defer close(l.done)
		for change := range ch {
			l.apply(change)
		}
	}()
	return nil
}

// Stop tears the subscription down. In-flight notifications after
// teardown are dropped; the listener cannot be restarted.
func (l *BabiesListener) Stop() {
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

func (l *BabiesListener) apply(change models.BabyChange) {
	switch change.Op {
	case models.ChangeInsert:
		if change.Baby == nil {
			return
		}
		if !l.store.ApplyRemoteBabyInsert(*change.Baby) {
			l.logger.Debug("baby insert already applied", zap.String("id", change.ID))
		}
	case models.ChangeUpdate:
		if change.Baby == nil {
			return
		}
		if !l.store.ApplyRemoteBabyUpdate(*change.Baby) {
			// Update arrived before its insert; synthesize the record.
			l.store.ApplyRemoteBabyInsert(*change.Baby)
		}
	case models.ChangeDelete:
		// Deletes arrive unscoped. Apply only when the record is known
		// locally (then it belonged to this user) or the payload names
		// our scope; anything else is another user's row.
		l.mu.Lock()
		scope := l.scope
		l.mu.Unlock()
		if l.store.HasBaby(change.ID) || (change.Scope != "" && change.Scope == scope) {
			l.store.ApplyRemoteBabyDelete(change.ID)
		}
	}
}

// Package sync hosts the change-notification listeners: one subscription
// per remote collection, translating feed notifications into the store's
// from-remote entry points. Listeners never push back to the remote
// gateway, so a notification can never echo out again.
package sync

// State tracks a listener's lifecycle. A listener that finds no identity
// stays uninitialized for its whole lifecycle; torn-down is terminal.
type State string

const (
	StateUninitialized State = "uninitialized"
	StateResolving     State = "resolving-identity"
	StateSubscribed    State = "subscribed"
	StateTornDown      State = "torn-down"
)

// Identity is the externally-resolved user identity a listener scopes its
// subscription by.
type Identity struct {
	UserID string
	Email  string
}

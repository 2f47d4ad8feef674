package models

// ChangeOp discriminates a row-level change notification.
type ChangeOp string

const (
	ChangeInsert ChangeOp = "insert"
	ChangeUpdate ChangeOp = "update"
	ChangeDelete ChangeOp = "delete"
)

// BabyChange is one notification from the babies change feed. Baby is nil
// for deletes, which only carry the document key; Scope carries the row's
// user scoping value when the payload includes one.
type BabyChange struct {
	Op    ChangeOp
	ID    string
	Baby  *Baby
	Scope string
}

// EventChange is one notification from the events change feed.
type EventChange struct {
	Op    ChangeOp
	ID    string
	Event Event
	Scope string
}

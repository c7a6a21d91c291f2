package state

import "time"

// State identifies a step of a conversation.
type State string

// StateIdle means no conversation is active. Users without a session are idle.
const StateIdle State = "idle"

// Session is a snapshot of a user's conversation.
type Session struct {
	State State
	// Since is when State was entered.
	Since time.Time
}

// Manager stores conversation state per user. Implementations must be safe for
// concurrent use; Transition is the only primitive that may be used to claim a state.
type Manager interface {
	GetState(userID int64) State
	Session(userID int64) (Session, bool)
	SetState(userID int64, st State)
	HasState(userID int64) bool
	ClearState(userID int64) bool

	// Transition moves userID from one state to another only if it is currently in from,
	// and reports whether it did. Idle is a valid from and to.
	Transition(userID int64, from, to State) bool

	// Sweep resets every session that entered its state before cutoff and returns the
	// affected user ids.
	Sweep(cutoff time.Time) []int64
}

// Package prompt implements the prompt-capture conversation: /prompt arms a
// per-user flag, the next free-text message is taken as the image description.
package prompt

import (
	"time"

	"github.com/m3rciful/imagebot/core/telegram/state"
)

// StateAwaitingPrompt marks a user whose next free-text message is a prompt.
const StateAwaitingPrompt state.State = "awaiting_prompt"

// Tracker holds the per-user Idle/AwaitingPrompt state. All operations are
// safe for concurrent use; ConsumeIfWaiting and Cancel are compare-and-set.
type Tracker struct {
	states state.Manager
}

// NewTracker returns a Tracker over states, or over a fresh in-memory manager when nil.
func NewTracker(states state.Manager) *Tracker {
	if states == nil {
		states = state.NewMemoryManager()
	}
	return &Tracker{states: states}
}

// BeginWaiting arms userID. Callers check backend availability first.
func (t *Tracker) BeginWaiting(userID int64) {
	t.states.SetState(userID, StateAwaitingPrompt)
}

// IsWaiting reports whether userID is armed.
func (t *Tracker) IsWaiting(userID int64) bool {
	return t.states.GetState(userID) == StateAwaitingPrompt
}

// ConsumeIfWaiting disarms userID and reports whether it was armed. Of any
// number of concurrent calls for one armed user exactly one returns true.
func (t *Tracker) ConsumeIfWaiting(userID int64) bool {
	return t.states.Transition(userID, StateAwaitingPrompt, state.StateIdle)
}

// Cancel disarms userID and reports whether anything was pending.
func (t *Tracker) Cancel(userID int64) bool {
	return t.states.Transition(userID, StateAwaitingPrompt, state.StateIdle)
}

// Expire disarms users armed before cutoff and returns their ids.
func (t *Tracker) Expire(cutoff time.Time) []int64 {
	return t.states.Sweep(cutoff)
}

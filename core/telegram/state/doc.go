// Package state keeps per-user conversation state for multi-step dialogues.
// It knows nothing about the dialogues themselves; callers define their own
// State values and drive transitions.
package state

package state

import (
	"sync"
	"time"
)

type memoryManager struct {
	mu       sync.Mutex
	sessions map[int64]Session
	now      func() time.Time
}

// NewMemoryManager returns a Manager backed by a mutex guarded map. State is lost on restart.
func NewMemoryManager() Manager {
	return newMemoryManager(time.Now)
}

func newMemoryManager(now func() time.Time) *memoryManager {
	return &memoryManager{sessions: make(map[int64]Session), now: now}
}

func (m *memoryManager) GetState(userID int64) State {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[userID]; ok {
		return s.State
	}
	return StateIdle
}

func (m *memoryManager) Session(userID int64) (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[userID]
	return s, ok
}

func (m *memoryManager) SetState(userID int64, st State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setLocked(userID, st)
}

func (m *memoryManager) HasState(userID int64) bool {
	return m.GetState(userID) != StateIdle
}

// ClearState resets userID to idle and reports whether it was in another state.
func (m *memoryManager) ClearState(userID int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[userID]
	delete(m.sessions, userID)
	return ok && s.State != StateIdle
}

func (m *memoryManager) Transition(userID int64, from, to State) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	current := StateIdle
	if s, ok := m.sessions[userID]; ok {
		current = s.State
	}
	if current != from {
		return false
	}
	m.setLocked(userID, to)
	return true
}

func (m *memoryManager) Sweep(cutoff time.Time) []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	var expired []int64
	for id, s := range m.sessions {
		if s.Since.Before(cutoff) {
			delete(m.sessions, id)
			expired = append(expired, id)
		}
	}
	return expired
}

// setLocked stores st; idle sessions are not kept.
func (m *memoryManager) setLocked(userID int64, st State) {
	if st == StateIdle {
		delete(m.sessions, userID)
		return
	}
	m.sessions[userID] = Session{State: st, Since: m.now()}
}

package session

import (
	"github.com/yndnr/meshbbs-go/internal/core/domain"
	"github.com/yndnr/meshbbs-go/pkg/cmap"
)

// Store holds at most one State per sender.
type Store interface {
	// Get returns the sender's state, if any.
	Get(id domain.NodeID) (State, bool)

	// Set replaces the sender's state.
	Set(id domain.NodeID, st State)

	// Clear removes the sender's state.
	Clear(id domain.NodeID)

	// Len returns the number of senders with a state.
	Len() int
}

// MemoryStore is a Store backed by a sharded map.
type MemoryStore struct {
	states *cmap.Map[domain.NodeID, State]
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: cmap.New[domain.NodeID, State]()}
}

// Get returns a copy of the sender's state.
func (s *MemoryStore) Get(id domain.NodeID) (State, bool) {
	st, ok := s.states.Get(id)
	if !ok {
		return State{}, false
	}
	return st.Clone(), true
}

// Set stores a copy of st.
func (s *MemoryStore) Set(id domain.NodeID, st State) {
	s.states.Set(id, st.Clone())
}

// Clear removes the sender's state.
func (s *MemoryStore) Clear(id domain.NodeID) {
	s.states.Delete(id)
}

// Len returns the number of senders with a state.
func (s *MemoryStore) Len() int {
	return s.states.Count()
}

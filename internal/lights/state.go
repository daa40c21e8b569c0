package lights

import "sync"

// State holds one activation level per light. 0 is off, anything else is on.
type State struct {
	LeftIndicator  uint8
	RightIndicator uint8
	DayLight       uint8
}

// Shared is the lighting record shared between the dispatcher and the
// actuation tasks. Every access copies the whole record under one lock, so
// no reader ever sees a partially updated State.
//
// The lock is only held for the copy. Never call anything that blocks from
// inside Update.
type Shared struct {
	mu    sync.Mutex
	state State
}

func NewShared() *Shared {
	return &Shared{}
}

func (s *Shared) Load() State {
	s.mu.Lock()
	st := s.state
	s.mu.Unlock()
	return st
}

func (s *Shared) Store(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// Update applies fn to the record inside the critical section and returns
// the resulting state.
func (s *Shared) Update(fn func(*State)) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.state)
	return s.state
}

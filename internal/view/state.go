package view

import (
	"fmt"
	"sync"
)

// Screen is one of the named application screens.
type Screen string

const (
	ScreenLanding     Screen = "landing"
	ScreenOrgSelect   Screen = "orgSelect"
	ScreenAdminLogin  Screen = "adminLogin"
	ScreenAdmin       Screen = "admin"
	ScreenParent      Screen = "parent"
	ScreenReadingTest Screen = "readingTest"
	ScreenPrizes      Screen = "prizes"
)

// transitions lists the user-action-triggered moves between screens. There
// are no timed or automatic transitions.
var transitions = map[Screen][]Screen{
	ScreenLanding:     {ScreenOrgSelect, ScreenAdminLogin, ScreenParent},
	ScreenOrgSelect:   {ScreenLanding, ScreenParent, ScreenAdminLogin},
	ScreenAdminLogin:  {ScreenLanding, ScreenAdmin},
	ScreenAdmin:       {ScreenLanding, ScreenParent},
	ScreenParent:      {ScreenLanding, ScreenReadingTest, ScreenPrizes, ScreenAdminLogin},
	ScreenReadingTest: {ScreenParent, ScreenLanding},
	ScreenPrizes:      {ScreenParent, ScreenLanding},
}

// State is the per-session application state: current screen, selected
// tenant and selected kid. It is rebuilt from scratch on every new session;
// nothing persists across reloads.
type State struct {
	Screen        Screen
	OrgID         string
	SelectedKidID string
}

// NewState returns the initial application state
func NewState() *State {
	return &State{Screen: ScreenLanding}
}

// CanTransition reports whether moving from the current screen to the
// target is an allowed trigger
func (s *State) CanTransition(to Screen) bool {
	for _, next := range transitions[s.Screen] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition moves to the target screen, rejecting moves the screen graph
// does not allow
func (s *State) Transition(to Screen) error {
	if !s.CanTransition(to) {
		return fmt.Errorf("no transition from %s to %s", s.Screen, to)
	}
	s.Screen = to
	return nil
}

// Store owns the per-session view states. Sessions that were never seen
// start on the landing screen.
type Store struct {
	mu     sync.Mutex
	states map[string]*State
}

// NewStore creates an empty view-state store
func NewStore() *Store {
	return &Store{states: make(map[string]*State)}
}

// Get returns the state for a session, creating the initial state on first
// use
func (st *Store) Get(sessionID string) *State {
	st.mu.Lock()
	defer st.mu.Unlock()

	state, ok := st.states[sessionID]
	if !ok {
		state = NewState()
		st.states[sessionID] = state
	}
	return state
}

// Reset drops a session's state so the next request starts at landing
func (st *Store) Reset(sessionID string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.states, sessionID)
}

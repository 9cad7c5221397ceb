package view

import (
	"testing"
)

func TestInitialScreenIsLanding(t *testing.T) {
	state := NewState()
	if state.Screen != ScreenLanding {
		t.Errorf("initial screen = %s, want %s", state.Screen, ScreenLanding)
	}
}

func TestAllowedTransitions(t *testing.T) {
	tests := []struct {
		name string
		path []Screen
	}{
		{"parent flow", []Screen{ScreenOrgSelect, ScreenParent, ScreenReadingTest, ScreenParent}},
		{"prize shop and back", []Screen{ScreenOrgSelect, ScreenParent, ScreenPrizes, ScreenParent}},
		{"admin flow", []Screen{ScreenAdminLogin, ScreenAdmin, ScreenLanding}},
		{"org select back to landing", []Screen{ScreenOrgSelect, ScreenLanding}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := NewState()
			for _, next := range tt.path {
				if err := state.Transition(next); err != nil {
					t.Fatalf("transition to %s failed: %v", next, err)
				}
			}
		})
	}
}

func TestRejectedTransitions(t *testing.T) {
	tests := []struct {
		name string
		from Screen
		to   Screen
	}{
		{"landing straight to admin", ScreenLanding, ScreenAdmin},
		{"landing straight to prizes", ScreenLanding, ScreenPrizes},
		{"reading test to admin", ScreenReadingTest, ScreenAdmin},
		{"admin login to parent", ScreenAdminLogin, ScreenParent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := &State{Screen: tt.from}
			if err := state.Transition(tt.to); err == nil {
				t.Errorf("transition %s -> %s should be rejected", tt.from, tt.to)
			}
			if state.Screen != tt.from {
				t.Errorf("rejected transition mutated state to %s", state.Screen)
			}
		})
	}
}

func TestStoreIsolatesSessions(t *testing.T) {
	store := NewStore()

	a := store.Get("session-a")
	if err := a.Transition(ScreenOrgSelect); err != nil {
		t.Fatalf("transition failed: %v", err)
	}

	b := store.Get("session-b")
	if b.Screen != ScreenLanding {
		t.Errorf("fresh session screen = %s, want landing", b.Screen)
	}

	if got := store.Get("session-a").Screen; got != ScreenOrgSelect {
		t.Errorf("session-a screen = %s, want orgSelect", got)
	}
}

func TestStoreReset(t *testing.T) {
	store := NewStore()
	state := store.Get("session-a")
	state.Transition(ScreenOrgSelect)
	state.OrgID = "org-1"

	store.Reset("session-a")

	fresh := store.Get("session-a")
	if fresh.Screen != ScreenLanding || fresh.OrgID != "" {
		t.Errorf("reset session = %+v, want initial state", fresh)
	}
}

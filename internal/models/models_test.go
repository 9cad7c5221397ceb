package models

import (
	"testing"
)

func TestReadingLevelValid(t *testing.T) {
	tests := []struct {
		name  string
		level ReadingLevel
		want  bool
	}{
		{"kindergarten", "K", true},
		{"first grade", "1st", true},
		{"fifth grade", "5th", true},
		{"sixth grade not in set", "6th", false},
		{"empty", "", false},
		{"lowercase k", "k", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.level.Valid(); got != tt.want {
				t.Errorf("ReadingLevel(%q).Valid() = %v, want %v", tt.level, got, tt.want)
			}
		})
	}
}

func TestMoodValid(t *testing.T) {
	for _, m := range []Mood{MoodLoved, MoodGood, MoodOkay, MoodTough} {
		if !m.Valid() {
			t.Errorf("Mood(%q).Valid() = false, want true", m)
		}
	}
	if Mood("angry").Valid() {
		t.Error("unknown mood should not validate")
	}
}

func TestAuthProviderValid(t *testing.T) {
	for _, p := range []AuthProvider{AuthProviderInternal, AuthProviderGoogle, AuthProviderFacebook} {
		if !p.Valid() {
			t.Errorf("AuthProvider(%q).Valid() = false, want true", p)
		}
	}
	if AuthProvider("twitter").Valid() {
		t.Error("unknown provider should not validate")
	}
}

func TestWeeklyCompletionLookups(t *testing.T) {
	w := WeeklyCompletion{
		KidID:     "kid-1",
		WeekKey:   "2025-W35",
		BaseDone:  []int64{1, 2},
		AddedDone: []int64{10},
	}

	if !w.HasBase(1) || !w.HasBase(2) {
		t.Error("expected base goals 1 and 2 to be done")
	}
	if w.HasBase(3) {
		t.Error("base goal 3 should not be done")
	}
	if !w.HasAdded(10) {
		t.Error("expected added goal 10 to be done")
	}
	if w.HasAdded(1) {
		t.Error("added lookup must not consult the base set")
	}
}

func TestFamilyKidByID(t *testing.T) {
	f := Family{
		Code: "FAM1",
		Kids: []Kid{
			{ID: "a", Name: "Alex"},
			{ID: "b", Name: "Billie"},
		},
	}

	if kid := f.KidByID("b"); kid == nil || kid.Name != "Billie" {
		t.Errorf("KidByID(b) = %+v, want Billie", kid)
	}
	if kid := f.KidByID("missing"); kid != nil {
		t.Errorf("KidByID(missing) = %+v, want nil", kid)
	}
}

package service

import (
	"testing"
	"time"

	"readrise/internal/models"
)

func TestIsWeekComplete(t *testing.T) {
	base := []models.GradeGoal{
		{ID: 1, ReadingLevel: "2nd", Text: "Read for 15 minutes"},
		{ID: 2, ReadingLevel: "2nd", Text: "Write down one new word"},
	}
	added := []models.AddedGoal{
		{ID: 10, KidID: "k1", Text: "Finish chapter book"},
	}

	tests := []struct {
		name     string
		base     []models.GradeGoal
		added    []models.AddedGoal
		record   *models.WeeklyCompletion
		expected bool
	}{
		{
			name:     "no goals assigned is never complete",
			base:     nil,
			added:    nil,
			record:   &models.WeeklyCompletion{},
			expected: false,
		},
		{
			name:     "nothing checked",
			base:     base,
			added:    added,
			record:   &models.WeeklyCompletion{},
			expected: false,
		},
		{
			name:     "base done but added missing",
			base:     base,
			added:    added,
			record:   &models.WeeklyCompletion{BaseDone: []int64{1, 2}},
			expected: false,
		},
		{
			name:     "added done but base partial",
			base:     base,
			added:    added,
			record:   &models.WeeklyCompletion{BaseDone: []int64{1}, AddedDone: []int64{10}},
			expected: false,
		},
		{
			name:     "everything checked",
			base:     base,
			added:    added,
			record:   &models.WeeklyCompletion{BaseDone: []int64{1, 2}, AddedDone: []int64{10}},
			expected: true,
		},
		{
			name:     "stale checkmark does not substitute for an unchecked goal",
			base:     base,
			added:    nil,
			record:   &models.WeeklyCompletion{BaseDone: []int64{1, 99}},
			expected: false,
		},
		{
			name:     "stale checkmark alongside a full checklist is ignored",
			base:     base,
			added:    nil,
			record:   &models.WeeklyCompletion{BaseDone: []int64{1, 2, 99}},
			expected: true,
		},
		{
			name:     "only added goals assigned",
			base:     nil,
			added:    added,
			record:   &models.WeeklyCompletion{AddedDone: []int64{10}},
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := IsWeekComplete(tt.base, tt.added, tt.record)
			if result != tt.expected {
				t.Errorf("IsWeekComplete() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestCelebrationExpiry(t *testing.T) {
	current := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	s := &GoalService{
		celebrationTTL: 3500 * time.Millisecond,
		now:            func() time.Time { return current },
		celebrations:   make(map[string]time.Time),
	}

	if s.CelebrationActive("k1", "2025-W11") {
		t.Fatal("celebration active before any completion")
	}

	s.startCelebration("k1", "2025-W11")
	if !s.CelebrationActive("k1", "2025-W11") {
		t.Fatal("celebration not active immediately after start")
	}
	if s.CelebrationActive("k2", "2025-W11") {
		t.Error("celebration leaked to a different kid")
	}
	if s.CelebrationActive("k1", "2025-W12") {
		t.Error("celebration leaked to a different week")
	}

	current = current.Add(3 * time.Second)
	if !s.CelebrationActive("k1", "2025-W11") {
		t.Error("celebration expired before its display window")
	}

	current = current.Add(time.Second)
	if s.CelebrationActive("k1", "2025-W11") {
		t.Error("celebration still active after expiry")
	}

	// A fresh start after expiry arms a new window
	s.startCelebration("k1", "2025-W11")
	if !s.CelebrationActive("k1", "2025-W11") {
		t.Error("celebration not re-armed after a new start")
	}
}

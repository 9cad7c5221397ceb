package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"readrise/internal/models"
	"readrise/internal/repository"
)

var (
	ErrKidNotFound  = errors.New("kid not found")
	ErrGoalNotFound = errors.New("goal not found")
)

// defaultGradeGoals is the pre-seeded base-goal catalog per reading level.
var defaultGradeGoals = map[models.ReadingLevel][]string{
	"K":   {"Listen to a story", "Name the letters on one page", "Retell the story in your own words"},
	"1st": {"Read aloud for 10 minutes", "Sound out three new words", "Tell someone your favorite part"},
	"2nd": {"Read for 15 minutes", "Write down one new word and its meaning", "Read one page with no help"},
	"3rd": {"Read for 20 minutes", "Summarize a chapter", "Look up two unfamiliar words"},
	"4th": {"Read for 25 minutes", "Write three sentences about the story", "Compare two characters"},
	"5th": {"Read for 30 minutes", "Write a short book review", "Find the main idea of a chapter"},
}

// GoalStatus is the result of a goal-checklist mutation: whether the week
// is now fully complete and whether the celebration fired on this change.
type GoalStatus struct {
	Complete  bool
	Celebrate bool
}

// GoalService owns the goal catalogs, the weekly checklists and the
// completion derivation with its one-shot celebration.
type GoalService struct {
	goalRepo     *repository.GoalRepository
	kidRepo      *repository.KidRepository
	emailService *EmailService

	celebrationTTL time.Duration
	now            func() time.Time

	mu           sync.Mutex
	celebrations map[string]time.Time // (kid,week) -> expiry
}

// NewGoalService creates a new goal service. The email service may be nil
// for contexts that never celebrate (CLI tools, tests).
func NewGoalService(goalRepo *repository.GoalRepository, kidRepo *repository.KidRepository, emailService *EmailService, celebrationTTL time.Duration) *GoalService {
	return &GoalService{
		goalRepo:       goalRepo,
		kidRepo:        kidRepo,
		emailService:   emailService,
		celebrationTTL: celebrationTTL,
		now:            time.Now,
		celebrations:   make(map[string]time.Time),
	}
}

// SeedDefaultGradeGoals populates the base-goal catalog when it is empty
func (s *GoalService) SeedDefaultGradeGoals() error {
	count, err := s.goalRepo.CountGradeGoals()
	if err != nil {
		return fmt.Errorf("failed to check grade goal catalog: %w", err)
	}
	if count > 0 {
		return nil
	}

	for _, level := range models.ReadingLevels {
		for _, text := range defaultGradeGoals[level] {
			if _, err := s.goalRepo.CreateGradeGoal(level, text); err != nil {
				return fmt.Errorf("failed to seed grade goals: %w", err)
			}
		}
	}

	log.Println("Seeded default grade-goal catalog")
	return nil
}

// IsWeekComplete derives whether every required goal for the week is
// satisfied. A kid with zero assigned goals is never complete.
func IsWeekComplete(base []models.GradeGoal, added []models.AddedGoal, record *models.WeeklyCompletion) bool {
	if len(base)+len(added) == 0 {
		return false
	}
	for _, g := range base {
		if !record.HasBase(g.ID) {
			return false
		}
	}
	for _, g := range added {
		if !record.HasAdded(g.ID) {
			return false
		}
	}
	return true
}

// WeekComplete derives the completion state for one kid and week from
// storage
func (s *GoalService) WeekComplete(kid *models.Kid, weekKey string) (bool, error) {
	base, err := s.goalRepo.ListGradeGoals(kid.ReadingLevel)
	if err != nil {
		return false, err
	}
	added, err := s.goalRepo.ListAddedGoals(kid.ID)
	if err != nil {
		return false, err
	}
	record, err := s.goalRepo.GetWeeklyCompletion(kid.ID, weekKey)
	if err != nil {
		return false, err
	}
	return IsWeekComplete(base, added, record), nil
}

// SetGoalDone records or clears one checkbox on a kid's weekly checklist.
// Celebration fires exactly once per incomplete-to-complete edge: the
// previous state is derived before the write and compared to the state
// after it, so re-renders and repeated toggles while complete never
// re-trigger it.
func (s *GoalService) SetGoalDone(kidID, weekKey string, goalID int64, kind string, done bool) (*GoalStatus, error) {
	kid, err := s.kidRepo.GetKidByID(kidID)
	if err != nil {
		return nil, err
	}
	if kid == nil {
		return nil, ErrKidNotFound
	}

	wasComplete, err := s.WeekComplete(kid, weekKey)
	if err != nil {
		return nil, err
	}

	if err := s.goalRepo.SetGoalDone(kidID, weekKey, goalID, kind, done); err != nil {
		return nil, err
	}

	isComplete, err := s.WeekComplete(kid, weekKey)
	if err != nil {
		return nil, err
	}

	status := &GoalStatus{Complete: isComplete}
	if !wasComplete && isComplete {
		status.Celebrate = true
		s.startCelebration(kidID, weekKey)
		s.notifyCompletion(kid, weekKey)
	}

	return status, nil
}

// CelebrationActive reports whether the one-shot celebration for a kid's
// week is still within its display window. It clears itself by expiry; no
// timer fires.
func (s *GoalService) CelebrationActive(kidID, weekKey string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	expiry, ok := s.celebrations[celebrationKey(kidID, weekKey)]
	if !ok {
		return false
	}
	if s.now().After(expiry) {
		delete(s.celebrations, celebrationKey(kidID, weekKey))
		return false
	}
	return true
}

func (s *GoalService) startCelebration(kidID, weekKey string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.celebrations[celebrationKey(kidID, weekKey)] = s.now().Add(s.celebrationTTL)
}

func (s *GoalService) notifyCompletion(kid *models.Kid, weekKey string) {
	if s.emailService == nil || !s.emailService.IsEnabled() {
		return
	}
	// Fire and forget: a mail failure must never surface into the
	// checklist flow
	go func() {
		if err := s.emailService.SendGoalCompletionEmail(context.Background(), kid.Name, weekKey); err != nil {
			log.Printf("Failed to send goal completion email for kid %s: %v", kid.ID, err)
		}
	}()
}

func celebrationKey(kidID, weekKey string) string {
	return kidID + "|" + weekKey
}

// --- catalog management passthroughs ---

// GradeGoalsForLevel lists the base goals that apply to a reading level
func (s *GoalService) GradeGoalsForLevel(level models.ReadingLevel) ([]models.GradeGoal, error) {
	return s.goalRepo.ListGradeGoals(level)
}

// AllGradeGoals lists the complete base-goal catalog
func (s *GoalService) AllGradeGoals() ([]models.GradeGoal, error) {
	return s.goalRepo.ListAllGradeGoals()
}

// AddGradeGoal adds a base goal to one reading level's catalog
func (s *GoalService) AddGradeGoal(level models.ReadingLevel, text string) (*models.GradeGoal, error) {
	if !level.Valid() {
		return nil, fmt.Errorf("unknown reading level %q", level)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.New("goal text is required")
	}
	return s.goalRepo.CreateGradeGoal(level, text)
}

// RemoveGradeGoal removes a base goal from the catalog
func (s *GoalService) RemoveGradeGoal(goalID int64) error {
	return s.goalRepo.DeleteGradeGoal(goalID)
}

// AddedGoalsForKid lists the admin-added goals for one kid
func (s *GoalService) AddedGoalsForKid(kidID string) ([]models.AddedGoal, error) {
	return s.goalRepo.ListAddedGoals(kidID)
}

// AddKidGoal assigns an extra goal to one kid
func (s *GoalService) AddKidGoal(kidID, text string) (*models.AddedGoal, error) {
	kid, err := s.kidRepo.GetKidByID(kidID)
	if err != nil {
		return nil, err
	}
	if kid == nil {
		return nil, ErrKidNotFound
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.New("goal text is required")
	}
	return s.goalRepo.CreateAddedGoal(kidID, text)
}

// RemoveKidGoal removes one added goal
func (s *GoalService) RemoveKidGoal(goalID int64) error {
	return s.goalRepo.DeleteAddedGoal(goalID)
}

// WeeklyChecklist loads everything the parent checklist screen needs for
// one kid and week
func (s *GoalService) WeeklyChecklist(kidID, weekKey string) ([]models.GradeGoal, []models.AddedGoal, *models.WeeklyCompletion, error) {
	kid, err := s.kidRepo.GetKidByID(kidID)
	if err != nil {
		return nil, nil, nil, err
	}
	if kid == nil {
		return nil, nil, nil, ErrKidNotFound
	}

	base, err := s.goalRepo.ListGradeGoals(kid.ReadingLevel)
	if err != nil {
		return nil, nil, nil, err
	}
	added, err := s.goalRepo.ListAddedGoals(kidID)
	if err != nil {
		return nil, nil, nil, err
	}
	record, err := s.goalRepo.GetWeeklyCompletion(kidID, weekKey)
	if err != nil {
		return nil, nil, nil, err
	}

	return base, added, record, nil
}

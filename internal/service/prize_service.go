package service

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"readrise/internal/models"
	"readrise/internal/repository"
)

var (
	ErrPrizeNotFound       = errors.New("prize not found")
	ErrInsufficientPoints  = errors.New("not enough points for this prize")
	ErrPrizeTitleRequired  = errors.New("prize title is required")
	ErrPrizePointsRequired = errors.New("prize must cost at least one point")
)

// completedWeekBonus is awarded once per week whose goal checklist is
// fully complete, on top of one point per minute read.
const completedWeekBonus = 25

// defaultPrizes seeds a new organization's catalog
var defaultPrizes = []models.Prize{
	{Title: "Extra Recess", PointsRequired: 50, Description: "An extra recess period at school", Icon: "⚽"},
	{Title: "Pick a Prize Box", PointsRequired: 100, Description: "Choose anything from the prize box", Icon: "🎁"},
	{Title: "Pizza Party", PointsRequired: 200, Description: "Pizza party with a friend", Icon: "🍕"},
}

// PrizeService owns the prize catalog, the points derivation and
// redemptions
type PrizeService struct {
	prizeRepo *repository.PrizeRepository
	kidRepo   *repository.KidRepository
	goalRepo  *repository.GoalRepository
	logRepo   *repository.LogRepository
}

// NewPrizeService creates a new prize service
func NewPrizeService(prizeRepo *repository.PrizeRepository, kidRepo *repository.KidRepository, goalRepo *repository.GoalRepository, logRepo *repository.LogRepository) *PrizeService {
	return &PrizeService{
		prizeRepo: prizeRepo,
		kidRepo:   kidRepo,
		goalRepo:  goalRepo,
		logRepo:   logRepo,
	}
}

// SeedDefaultPrizes populates an organization's catalog when it is empty
func (s *PrizeService) SeedDefaultPrizes(orgID string) error {
	count, err := s.prizeRepo.CountPrizes(orgID)
	if err != nil {
		return fmt.Errorf("failed to check prize catalog: %w", err)
	}
	if count > 0 {
		return nil
	}

	for _, p := range defaultPrizes {
		prize := p
		prize.OrgID = orgID
		if err := s.prizeRepo.CreatePrize(&prize); err != nil {
			return fmt.Errorf("failed to seed prizes: %w", err)
		}
	}

	log.Printf("Seeded default prize catalog for org %q", orgID)
	return nil
}

// ListPrizes lists the organization's prize catalog ordered by cost
func (s *PrizeService) ListPrizes(orgID string) ([]models.Prize, error) {
	return s.prizeRepo.ListPrizes(orgID)
}

// AddPrize creates a prize in the organization's catalog
func (s *PrizeService) AddPrize(orgID, title, description, icon string, pointsRequired int) (*models.Prize, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrPrizeTitleRequired
	}
	if pointsRequired <= 0 {
		return nil, ErrPrizePointsRequired
	}

	prize := &models.Prize{
		OrgID:          orgID,
		Title:          title,
		PointsRequired: pointsRequired,
		Description:    strings.TrimSpace(description),
		Icon:           icon,
	}
	if err := s.prizeRepo.CreatePrize(prize); err != nil {
		return nil, fmt.Errorf("failed to create prize: %w", err)
	}
	return prize, nil
}

// RemovePrize deletes a prize from the catalog. Past redemptions keep
// their recorded point cost.
func (s *PrizeService) RemovePrize(prizeID int64) error {
	return s.prizeRepo.DeletePrize(prizeID)
}

// Points derives a kid's spendable balance: one point per minute read,
// plus a bonus per fully completed goal week, minus points already spent.
// A week with checkmarks but unmet requirements earns nothing.
func (s *PrizeService) Points(kidID string) (int, error) {
	kid, err := s.kidRepo.GetKidByID(kidID)
	if err != nil {
		return 0, err
	}
	if kid == nil {
		return 0, ErrKidNotFound
	}

	minutes, err := s.logRepo.MinutesTotal(kidID)
	if err != nil {
		return 0, err
	}
	weeks, err := s.completedWeeks(kid)
	if err != nil {
		return 0, err
	}
	spent, err := s.prizeRepo.PointsSpent(kidID)
	if err != nil {
		return 0, err
	}

	points := minutes + weeks*completedWeekBonus - spent
	if points < 0 {
		points = 0
	}
	return points, nil
}

// completedWeeks counts the weeks whose checklist is complete under the
// kid's current reading level and goal assignments
func (s *PrizeService) completedWeeks(kid *models.Kid) (int, error) {
	base, err := s.goalRepo.ListGradeGoals(kid.ReadingLevel)
	if err != nil {
		return 0, err
	}
	added, err := s.goalRepo.ListAddedGoals(kid.ID)
	if err != nil {
		return 0, err
	}
	weekKeys, err := s.goalRepo.ListWeekKeys(kid.ID)
	if err != nil {
		return 0, err
	}

	completed := 0
	for _, weekKey := range weekKeys {
		record, err := s.goalRepo.GetWeeklyCompletion(kid.ID, weekKey)
		if err != nil {
			return 0, err
		}
		if IsWeekComplete(base, added, record) {
			completed++
		}
	}
	return completed, nil
}

// Redeem spends a kid's points on a prize. The redemption records the
// prize's cost at redemption time.
func (s *PrizeService) Redeem(kidID string, prizeID int64) (*models.Prize, error) {
	kid, err := s.kidRepo.GetKidByID(kidID)
	if err != nil {
		return nil, err
	}
	if kid == nil {
		return nil, ErrKidNotFound
	}

	prize, err := s.prizeRepo.GetPrize(prizeID)
	if err != nil {
		return nil, err
	}
	if prize == nil {
		return nil, ErrPrizeNotFound
	}

	points, err := s.Points(kidID)
	if err != nil {
		return nil, err
	}
	if points < prize.PointsRequired {
		return nil, ErrInsufficientPoints
	}

	if err := s.prizeRepo.CreateRedemption(kidID, prizeID, prize.PointsRequired); err != nil {
		return nil, fmt.Errorf("failed to record redemption: %w", err)
	}

	log.Printf("Kid %s redeemed prize %q for %d points", kidID, prize.Title, prize.PointsRequired)
	return prize, nil
}

// Redemptions lists a kid's redemption history, most recent first
func (s *PrizeService) Redemptions(kidID string) ([]models.Redemption, error) {
	return s.prizeRepo.ListRedemptions(kidID)
}

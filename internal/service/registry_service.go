package service

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"

	"readrise/internal/models"
	"readrise/internal/repository"
	"readrise/internal/sync"
	"readrise/internal/textkey"
)

var (
	ErrFamilyNotFound = errors.New("family not found")
	ErrEmptyName      = errors.New("name is required")
	ErrEmptyCode      = errors.New("parent code is required")
)

// DuplicateNameError is returned when a kid's normalized name collides
// with a kid already registered anywhere in the system. It carries the
// family that holds the existing kid so the caller can say where.
type DuplicateNameError struct {
	Name       string
	FamilyCode string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("a kid named %q is already registered under parent code %s", e.Name, e.FamilyCode)
}

// KidInput carries the editable kid fields through the mutation gateway
type KidInput struct {
	Name         string
	Age          int
	Gender       string
	Ethnicity    string
	Grade        string
	ReadingLevel models.ReadingLevel
	School       string
}

// RegistryService is the single gateway for family and kid mutations.
// Every successful write publishes a fresh snapshot so connected screens
// converge without reloading.
type RegistryService struct {
	familyRepo    *repository.FamilyRepository
	kidRepo       *repository.KidRepository
	orgRepo       *repository.OrgRepository
	incentiveRepo *repository.IncentiveRepository
	hub           *sync.Hub
}

// NewRegistryService creates a new registry service
func NewRegistryService(familyRepo *repository.FamilyRepository, kidRepo *repository.KidRepository, orgRepo *repository.OrgRepository, incentiveRepo *repository.IncentiveRepository, hub *sync.Hub) *RegistryService {
	return &RegistryService{
		familyRepo:    familyRepo,
		kidRepo:       kidRepo,
		orgRepo:       orgRepo,
		incentiveRepo: incentiveRepo,
		hub:           hub,
	}
}

// publish pushes a rebuilt snapshot to the org's subscribers and to the
// all-orgs channel used by single-tenant deployments
func (s *RegistryService) publish(orgID string) {
	s.hub.Publish(orgID)
	if orgID != "" {
		s.hub.Publish("")
	}
}

// UpsertFamily creates or updates a family keyed by its parent code.
// Existing kids are preserved on update.
func (s *RegistryService) UpsertFamily(orgID, code, parentName string) (*models.Family, error) {
	code = strings.TrimSpace(code)
	parentName = strings.TrimSpace(parentName)
	if code == "" {
		return nil, ErrEmptyCode
	}
	if parentName == "" {
		return nil, ErrEmptyName
	}

	family, err := s.familyRepo.UpsertFamily(orgID, code, parentName)
	if err != nil {
		return nil, fmt.Errorf("failed to save family %s: %w", code, err)
	}

	s.publish(orgID)
	return family, nil
}

// GetFamily loads one family with its kids, or nil when the code is not
// registered
func (s *RegistryService) GetFamily(code string) (*models.Family, error) {
	return s.familyRepo.GetFamilyByCode(strings.TrimSpace(code))
}

// ListFamilies lists the families visible to an organization. An empty
// orgID lists everything.
func (s *RegistryService) ListFamilies(orgID string) ([]models.Family, error) {
	return s.familyRepo.ListFamilies(orgID)
}

// GetKid loads one kid together with its family. Both are nil when the
// kid is unknown.
func (s *RegistryService) GetKid(kidID string) (*models.Family, *models.Kid, error) {
	kid, err := s.kidRepo.GetKidByID(kidID)
	if err != nil {
		return nil, nil, err
	}
	if kid == nil {
		return nil, nil, nil
	}
	family, err := s.familyRepo.GetFamilyByCode(kid.FamilyCode)
	if err != nil {
		return nil, nil, err
	}
	return family, kid, nil
}

// AddKid registers a kid under a family. Kid names are unique across the
// whole registry after normalization; a collision reports the family that
// already holds the name.
func (s *RegistryService) AddKid(orgID, familyCode string, input KidInput) (*models.Kid, error) {
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return nil, ErrEmptyName
	}
	if !input.ReadingLevel.Valid() {
		return nil, fmt.Errorf("unknown reading level %q", input.ReadingLevel)
	}

	family, err := s.familyRepo.GetFamilyByCode(familyCode)
	if err != nil {
		return nil, err
	}
	if family == nil {
		return nil, ErrFamilyNotFound
	}

	existing, err := s.familyRepo.FindKidByNormalizedName(textkey.Normalize(input.Name))
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, &DuplicateNameError{Name: input.Name, FamilyCode: existing.FamilyCode}
	}

	kid := &models.Kid{
		ID:           uuid.New().String(),
		FamilyCode:   family.Code,
		OrgID:        orgID,
		Name:         input.Name,
		Age:          input.Age,
		Gender:       input.Gender,
		Ethnicity:    input.Ethnicity,
		Grade:        input.Grade,
		ReadingLevel: input.ReadingLevel,
		School:       strings.TrimSpace(input.School),
	}
	if err := s.kidRepo.CreateKid(kid); err != nil {
		return nil, fmt.Errorf("failed to add kid: %w", err)
	}

	if kid.School != "" {
		if err := s.orgRepo.AddSchool(orgID, kid.School); err != nil {
			log.Printf("Failed to register school %q: %v", kid.School, err)
		}
	}

	s.publish(orgID)
	return kid, nil
}

// UpdateKid updates a kid's profile fields. The name is not editable
// through this path; renames go through remove and re-add so the
// uniqueness check always applies.
func (s *RegistryService) UpdateKid(kidID string, input KidInput) (*models.Kid, error) {
	kid, err := s.kidRepo.GetKidByID(kidID)
	if err != nil {
		return nil, err
	}
	if kid == nil {
		return nil, ErrKidNotFound
	}
	if !input.ReadingLevel.Valid() {
		return nil, fmt.Errorf("unknown reading level %q", input.ReadingLevel)
	}

	kid.Age = input.Age
	kid.Gender = input.Gender
	kid.Ethnicity = input.Ethnicity
	kid.Grade = input.Grade
	kid.ReadingLevel = input.ReadingLevel
	kid.School = strings.TrimSpace(input.School)

	if err := s.kidRepo.UpdateKid(kid); err != nil {
		return nil, fmt.Errorf("failed to update kid: %w", err)
	}

	if kid.School != "" {
		if err := s.orgRepo.AddSchool(kid.OrgID, kid.School); err != nil {
			log.Printf("Failed to register school %q: %v", kid.School, err)
		}
	}

	s.publish(kid.OrgID)
	return kid, nil
}

// RemoveKid deletes a kid and all rows that reference it. Removing an
// unknown kid is a no-op.
func (s *RegistryService) RemoveKid(kidID string) error {
	kid, err := s.kidRepo.GetKidByID(kidID)
	if err != nil {
		return err
	}
	if kid == nil {
		return nil
	}

	deleted, err := s.kidRepo.DeleteKid(kidID)
	if err != nil {
		return fmt.Errorf("failed to remove kid: %w", err)
	}
	if deleted {
		s.publish(kid.OrgID)
	}
	return nil
}

// RemoveFamily deletes a family and cascades over its kids. Removing an
// unknown code is a no-op.
func (s *RegistryService) RemoveFamily(orgID, code string) error {
	kidIDs, err := s.familyRepo.DeleteFamily(strings.TrimSpace(code))
	if err != nil {
		return fmt.Errorf("failed to remove family %s: %w", code, err)
	}
	if kidIDs != nil {
		s.publish(orgID)
	}
	return nil
}

// Incentives lists the ordered incentive texts for one month
func (s *RegistryService) Incentives(orgID, monthKey string) ([]string, error) {
	list, err := s.incentiveRepo.GetMonth(orgID, monthKey)
	if err != nil {
		return nil, err
	}
	return list.Items, nil
}

// AddIncentive appends an incentive to the month's ordered list
func (s *RegistryService) AddIncentive(orgID, monthKey, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return errors.New("incentive text is required")
	}

	list, err := s.incentiveRepo.GetMonth(orgID, monthKey)
	if err != nil {
		return err
	}
	items := append(list.Items, text)
	if err := s.incentiveRepo.ReplaceMonth(orgID, monthKey, items); err != nil {
		return fmt.Errorf("failed to save incentives for %s: %w", monthKey, err)
	}

	s.publish(orgID)
	return nil
}

// RemoveIncentive removes the incentive at a position in the month's list.
// An out-of-range index is rejected before any write.
func (s *RegistryService) RemoveIncentive(orgID, monthKey string, index int) error {
	list, err := s.incentiveRepo.GetMonth(orgID, monthKey)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(list.Items) {
		return fmt.Errorf("no incentive at position %d", index)
	}

	items := append(list.Items[:index], list.Items[index+1:]...)
	if err := s.incentiveRepo.ReplaceMonth(orgID, monthKey, items); err != nil {
		return fmt.Errorf("failed to save incentives for %s: %w", monthKey, err)
	}

	s.publish(orgID)
	return nil
}

// ResetAll wipes every family visible to the organization along with the
// current month's incentive list. Deletion proceeds family by family and
// is not transactional: a mid-sequence failure leaves the earlier
// deletions in place.
func (s *RegistryService) ResetAll(orgID, monthKey string) error {
	families, err := s.familyRepo.ListFamilies(orgID)
	if err != nil {
		return err
	}

	for _, family := range families {
		if _, err := s.familyRepo.DeleteFamily(family.Code); err != nil {
			s.publish(orgID)
			return fmt.Errorf("reset stopped at family %s: %w", family.Code, err)
		}
	}

	if err := s.incentiveRepo.ReplaceMonth(orgID, monthKey, nil); err != nil {
		s.publish(orgID)
		return fmt.Errorf("reset cleared families but not incentives: %w", err)
	}

	log.Printf("Reset complete: removed %d families for org %q", len(families), orgID)
	s.publish(orgID)
	return nil
}

package service

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	"readrise/internal/database"
	"readrise/internal/models"
	"readrise/internal/repository"
)

// backupVersion is written into every export's meta block
const backupVersion = "1.0"

// BackupDocument is the complete portable backup structure
type BackupDocument struct {
	Families          []FamilyBackup      `json:"families"`
	AddedGoals        []AddedGoalBackup   `json:"addedGoals"`
	Logs              []LogBackup         `json:"logs"`
	WeeklyDone        []WeeklyDoneBackup  `json:"weeklyDone"`
	IncentivesByMonth map[string][]string `json:"incentivesByMonth"`
	Schools           []string            `json:"schools"`
	GradeGoals        []GradeGoalBackup   `json:"gradeGoals"`
	Meta              BackupMeta          `json:"meta"`
}

// BackupMeta identifies a backup document
type BackupMeta struct {
	Version    string    `json:"version"`
	ExportedAt time.Time `json:"exportedAt"`
}

// FamilyBackup represents a family with its kids
type FamilyBackup struct {
	Code       string      `json:"code"`
	ParentName string      `json:"parentName"`
	OrgID      string      `json:"orgId"`
	Kids       []KidBackup `json:"kids"`
}

// KidBackup represents a kid record
type KidBackup struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Age          int    `json:"age"`
	Gender       string `json:"gender"`
	Ethnicity    string `json:"ethnicity"`
	Grade        string `json:"grade"`
	ReadingLevel string `json:"readingLevel"`
	School       string `json:"school"`
}

// AddedGoalBackup represents a per-kid extra goal
type AddedGoalBackup struct {
	ID    int64  `json:"id"`
	KidID string `json:"kidId"`
	Text  string `json:"text"`
}

// LogBackup represents one reading-log entry
type LogBackup struct {
	ID       string    `json:"id"`
	KidID    string    `json:"kidId"`
	LoggedAt time.Time `json:"loggedAt"`
	Date     string    `json:"date"`
	Title    string    `json:"title"`
	Author   string    `json:"author"`
	Minutes  int       `json:"minutes"`
	Pages    int       `json:"pages"`
	Mood     string    `json:"mood"`
}

// WeeklyDoneBackup represents one kid's checklist state for one week
type WeeklyDoneBackup struct {
	KidID   string  `json:"kidId"`
	WeekKey string  `json:"weekKey"`
	Base    []int64 `json:"base"`
	Added   []int64 `json:"added"`
}

// GradeGoalBackup represents one base-goal catalog entry
type GradeGoalBackup struct {
	ID           int64  `json:"id"`
	ReadingLevel string `json:"readingLevel"`
	Text         string `json:"text"`
}

// RestoreResult summarizes a restore: families are imported
// independently, so one family can fail without aborting the rest
type RestoreResult struct {
	FamiliesRestored int
	FamiliesFailed   int
}

// BackupService exports and restores the portable backup document.
// Restore writes goal and log rows with their exported ids so checklist
// references survive the round trip; inserts go through the database
// layer directly rather than the id-generating repository paths.
type BackupService struct {
	db            *database.DB
	familyRepo    *repository.FamilyRepository
	kidRepo       *repository.KidRepository
	goalRepo      *repository.GoalRepository
	logRepo       *repository.LogRepository
	incentiveRepo *repository.IncentiveRepository
	orgRepo       *repository.OrgRepository
}

// NewBackupService creates a new backup service
func NewBackupService(db *database.DB, familyRepo *repository.FamilyRepository, kidRepo *repository.KidRepository, goalRepo *repository.GoalRepository, logRepo *repository.LogRepository, incentiveRepo *repository.IncentiveRepository, orgRepo *repository.OrgRepository) *BackupService {
	return &BackupService{
		db:            db,
		familyRepo:    familyRepo,
		kidRepo:       kidRepo,
		goalRepo:      goalRepo,
		logRepo:       logRepo,
		incentiveRepo: incentiveRepo,
		orgRepo:       orgRepo,
	}
}

// ExportDocument assembles the backup document for one organization. An
// empty orgID exports everything.
func (s *BackupService) ExportDocument(orgID string) (*BackupDocument, error) {
	doc := &BackupDocument{
		IncentivesByMonth: make(map[string][]string),
		Meta: BackupMeta{
			Version:    backupVersion,
			ExportedAt: time.Now(),
		},
	}

	families, err := s.familyRepo.ListFamilies(orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to export families: %w", err)
	}

	kidSet := make(map[string]bool)
	for _, family := range families {
		fb := FamilyBackup{
			Code:       family.Code,
			ParentName: family.ParentName,
			OrgID:      family.OrgID,
			Kids:       []KidBackup{},
		}
		for _, kid := range family.Kids {
			kidSet[kid.ID] = true
			fb.Kids = append(fb.Kids, KidBackup{
				ID:           kid.ID,
				Name:         kid.Name,
				Age:          kid.Age,
				Gender:       kid.Gender,
				Ethnicity:    kid.Ethnicity,
				Grade:        kid.Grade,
				ReadingLevel: string(kid.ReadingLevel),
				School:       kid.School,
			})
		}
		doc.Families = append(doc.Families, fb)
	}

	addedGoals, err := s.goalRepo.ListAllAddedGoals()
	if err != nil {
		return nil, fmt.Errorf("failed to export added goals: %w", err)
	}
	for _, g := range addedGoals {
		if !kidSet[g.KidID] {
			continue
		}
		doc.AddedGoals = append(doc.AddedGoals, AddedGoalBackup{ID: g.ID, KidID: g.KidID, Text: g.Text})
	}

	logs, err := s.logRepo.ListAllLogEntries()
	if err != nil {
		return nil, fmt.Errorf("failed to export reading logs: %w", err)
	}
	for _, e := range logs {
		if !kidSet[e.KidID] {
			continue
		}
		doc.Logs = append(doc.Logs, LogBackup{
			ID:       e.ID,
			KidID:    e.KidID,
			LoggedAt: e.LoggedAt,
			Date:     e.DisplayDate,
			Title:    e.Title,
			Author:   e.Author,
			Minutes:  e.Minutes,
			Pages:    e.Pages,
			Mood:     string(e.Mood),
		})
	}

	completions, err := s.goalRepo.ListAllWeeklyCompletions()
	if err != nil {
		return nil, fmt.Errorf("failed to export weekly completions: %w", err)
	}
	for _, c := range completions {
		if !kidSet[c.KidID] {
			continue
		}
		doc.WeeklyDone = append(doc.WeeklyDone, WeeklyDoneBackup{
			KidID:   c.KidID,
			WeekKey: c.WeekKey,
			Base:    c.BaseDone,
			Added:   c.AddedDone,
		})
	}

	months, err := s.incentiveRepo.ListMonths(orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to export incentives: %w", err)
	}
	for _, m := range months {
		doc.IncentivesByMonth[m.MonthKey] = m.Items
	}

	schools, err := s.orgRepo.ListSchools(orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to export schools: %w", err)
	}
	doc.Schools = schools

	gradeGoals, err := s.goalRepo.ListAllGradeGoals()
	if err != nil {
		return nil, fmt.Errorf("failed to export grade goals: %w", err)
	}
	for _, g := range gradeGoals {
		doc.GradeGoals = append(doc.GradeGoals, GradeGoalBackup{ID: g.ID, ReadingLevel: string(g.ReadingLevel), Text: g.Text})
	}

	return doc, nil
}

// ExportToWriter writes the backup document as indented JSON, used by the
// admin download handler and the CLI
func (s *BackupService) ExportToWriter(w io.Writer, orgID string) error {
	doc, err := s.ExportDocument(orgID)
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode backup: %w", err)
	}

	log.Printf("Backup exported: %d families, %d logs, %d weekly records",
		len(doc.Families), len(doc.Logs), len(doc.WeeklyDone))
	return nil
}

// Export writes the backup document to a file
func (s *BackupService) Export(outputPath, orgID string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	if err := s.ExportToWriter(file, orgID); err != nil {
		return err
	}

	log.Printf("Backup written to %s", outputPath)
	return nil
}

// Import restores a backup from a file
func (s *BackupService) Import(inputPath string) (*RestoreResult, error) {
	file, err := os.Open(inputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}
	defer file.Close()

	return s.ImportFromReader(file)
}

// ImportFromReader restores a backup from a reader (file uploads). A
// parse error aborts before any write. Families restore independently:
// one family failing is logged and counted but does not roll back the
// families already written.
func (s *BackupService) ImportFromReader(reader io.Reader) (*RestoreResult, error) {
	var doc BackupDocument
	decoder := json.NewDecoder(reader)
	if err := decoder.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse backup document: %w", err)
	}

	log.Printf("Restoring backup version %s exported at %s", doc.Meta.Version, doc.Meta.ExportedAt)

	if err := s.restoreGradeGoals(doc.GradeGoals); err != nil {
		return nil, err
	}

	// Index kid-keyed collections so each family restore touches only its
	// own kids
	goalsByKid := make(map[string][]AddedGoalBackup)
	for _, g := range doc.AddedGoals {
		goalsByKid[g.KidID] = append(goalsByKid[g.KidID], g)
	}
	logsByKid := make(map[string][]LogBackup)
	for _, e := range doc.Logs {
		logsByKid[e.KidID] = append(logsByKid[e.KidID], e)
	}
	weeksByKid := make(map[string][]WeeklyDoneBackup)
	for _, wd := range doc.WeeklyDone {
		weeksByKid[wd.KidID] = append(weeksByKid[wd.KidID], wd)
	}

	result := &RestoreResult{}
	for _, fb := range doc.Families {
		if err := s.restoreFamily(fb, goalsByKid, logsByKid, weeksByKid); err != nil {
			log.Printf("Failed to restore family %s: %v", fb.Code, err)
			result.FamiliesFailed++
			continue
		}
		result.FamiliesRestored++
	}

	for monthKey, items := range doc.IncentivesByMonth {
		orgID := ""
		if len(doc.Families) > 0 {
			orgID = doc.Families[0].OrgID
		}
		if err := s.incentiveRepo.ReplaceMonth(orgID, monthKey, items); err != nil {
			log.Printf("Failed to restore incentives for %s: %v", monthKey, err)
		}
	}

	for _, school := range doc.Schools {
		orgID := ""
		if len(doc.Families) > 0 {
			orgID = doc.Families[0].OrgID
		}
		if err := s.orgRepo.AddSchool(orgID, school); err != nil {
			log.Printf("Failed to restore school %q: %v", school, err)
		}
	}

	log.Printf("Restore finished: %d families restored, %d failed",
		result.FamiliesRestored, result.FamiliesFailed)
	return result, nil
}

// restoreGradeGoals replaces the base-goal catalog wholesale, keeping the
// exported ids so weekly checklist references stay valid
func (s *BackupService) restoreGradeGoals(goals []GradeGoalBackup) error {
	if len(goals) == 0 {
		return nil
	}

	if _, err := s.db.Exec("DELETE FROM grade_goals"); err != nil {
		return fmt.Errorf("failed to clear grade goals: %w", err)
	}
	for _, g := range goals {
		_, err := s.db.Exec(
			"INSERT INTO grade_goals (id, reading_level, text) VALUES (?, ?, ?)",
			g.ID, g.ReadingLevel, g.Text,
		)
		if err != nil {
			return fmt.Errorf("failed to restore grade goal %d: %w", g.ID, err)
		}
	}
	return nil
}

func (s *BackupService) restoreFamily(fb FamilyBackup, goalsByKid map[string][]AddedGoalBackup, logsByKid map[string][]LogBackup, weeksByKid map[string][]WeeklyDoneBackup) error {
	if _, err := s.familyRepo.UpsertFamily(fb.OrgID, fb.Code, fb.ParentName); err != nil {
		return err
	}

	for _, kb := range fb.Kids {
		kidID, err := s.restoreKid(fb, kb)
		if err != nil {
			return err
		}

		if err := s.restoreKidGoals(kidID, kb.ID, goalsByKid); err != nil {
			return err
		}
		if err := s.restoreKidLogs(kidID, kb.ID, logsByKid); err != nil {
			return err
		}
		if err := s.restoreKidWeeks(kidID, kb.ID, weeksByKid); err != nil {
			return err
		}
	}
	return nil
}

// restoreKid upserts one kid, keeping the exported id when it is free and
// generating a fresh one otherwise
func (s *BackupService) restoreKid(fb FamilyBackup, kb KidBackup) (string, error) {
	kid := &models.Kid{
		ID:           kb.ID,
		FamilyCode:   fb.Code,
		OrgID:        fb.OrgID,
		Name:         kb.Name,
		Age:          kb.Age,
		Gender:       kb.Gender,
		Ethnicity:    kb.Ethnicity,
		Grade:        kb.Grade,
		ReadingLevel: models.ReadingLevel(kb.ReadingLevel),
		School:       kb.School,
	}
	if kid.ID == "" {
		kid.ID = uuid.New().String()
	}

	existing, err := s.kidRepo.GetKidByID(kid.ID)
	if err != nil {
		return "", err
	}
	if existing != nil {
		if err := s.kidRepo.UpdateKid(kid); err != nil {
			return "", fmt.Errorf("failed to update kid %s: %w", kid.ID, err)
		}
		return kid.ID, nil
	}

	if err := s.kidRepo.CreateKid(kid); err != nil {
		return "", fmt.Errorf("failed to restore kid %q: %w", kb.Name, err)
	}
	return kid.ID, nil
}

func (s *BackupService) restoreKidGoals(kidID, backupKidID string, goalsByKid map[string][]AddedGoalBackup) error {
	if _, err := s.db.Exec("DELETE FROM added_goals WHERE kid_id = ?", kidID); err != nil {
		return fmt.Errorf("failed to clear added goals: %w", err)
	}
	for _, g := range goalsByKid[backupKidID] {
		_, err := s.db.Exec(
			"INSERT INTO added_goals (id, kid_id, text) VALUES (?, ?, ?)",
			g.ID, kidID, g.Text,
		)
		if err != nil {
			return fmt.Errorf("failed to restore added goal %d: %w", g.ID, err)
		}
	}
	return nil
}

func (s *BackupService) restoreKidLogs(kidID, backupKidID string, logsByKid map[string][]LogBackup) error {
	if _, err := s.db.Exec("DELETE FROM reading_logs WHERE kid_id = ?", kidID); err != nil {
		return fmt.Errorf("failed to clear reading logs: %w", err)
	}
	for _, e := range logsByKid[backupKidID] {
		id := e.ID
		if id == "" {
			id = uuid.New().String()
		}
		_, err := s.db.Exec(
			"INSERT INTO reading_logs (id, kid_id, logged_at, display_date, title, author, minutes, pages, mood) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
			id, kidID, e.LoggedAt, e.Date, e.Title, e.Author, e.Minutes, e.Pages, e.Mood,
		)
		if err != nil {
			return fmt.Errorf("failed to restore log entry %s: %w", id, err)
		}
	}
	return nil
}

func (s *BackupService) restoreKidWeeks(kidID, backupKidID string, weeksByKid map[string][]WeeklyDoneBackup) error {
	if _, err := s.db.Exec("DELETE FROM weekly_completions WHERE kid_id = ?", kidID); err != nil {
		return fmt.Errorf("failed to clear weekly completions: %w", err)
	}
	for _, wd := range weeksByKid[backupKidID] {
		for _, goalID := range wd.Base {
			if err := s.insertCompletion(kidID, wd.WeekKey, goalID, "base"); err != nil {
				return err
			}
		}
		for _, goalID := range wd.Added {
			if err := s.insertCompletion(kidID, wd.WeekKey, goalID, "added"); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *BackupService) insertCompletion(kidID, weekKey string, goalID int64, kind string) error {
	_, err := s.db.Exec(
		"INSERT INTO weekly_completions (kid_id, week_key, goal_id, goal_kind) VALUES (?, ?, ?, ?)",
		kidID, weekKey, goalID, kind,
	)
	if err != nil {
		return fmt.Errorf("failed to restore completion %s/%s: %w", kidID, weekKey, err)
	}
	return nil
}

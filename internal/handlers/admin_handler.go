package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"readrise/internal/models"
	"readrise/internal/repository"
	"readrise/internal/service"
	"readrise/internal/textkey"
)

// AdminHandler serves the admin dashboard: the roster, goal catalogs,
// incentives, prizes, reading tests and the backup tooling. Every route
// sits behind the admin token middleware; the org id on the token scopes
// what the admin sees.
type AdminHandler struct {
	registryService *service.RegistryService
	goalService     *service.GoalService
	readingService  *service.ReadingService
	prizeService    *service.PrizeService
	backupService   *service.BackupService
	exportService   *service.ExportService
	emailService    *service.EmailService
	orgRepo         *repository.OrgRepository
	now             func() time.Time
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(registryService *service.RegistryService, goalService *service.GoalService, readingService *service.ReadingService, prizeService *service.PrizeService, backupService *service.BackupService, exportService *service.ExportService, emailService *service.EmailService, orgRepo *repository.OrgRepository) *AdminHandler {
	return &AdminHandler{
		registryService: registryService,
		goalService:     goalService,
		readingService:  readingService,
		prizeService:    prizeService,
		backupService:   backupService,
		exportService:   exportService,
		emailService:    emailService,
		orgRepo:         orgRepo,
		now:             time.Now,
	}
}

func adminOrgID(r *http.Request) string {
	claims := GetAdminClaims(r.Context())
	if claims == nil {
		return ""
	}
	return claims.OrgID
}

// --- roster ---

// ListFamilies returns every family visible to the admin's organization
func (h *AdminHandler) ListFamilies(w http.ResponseWriter, r *http.Request) {
	families, err := h.registryService.ListFamilies(adminOrgID(r))
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "failed to list families", err)
		return
	}
	respondJSON(w, http.StatusOK, familyViews(families))
}

// UpsertFamily creates or renames a family
func (h *AdminHandler) UpsertFamily(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidFormData, "", err)
		return
	}

	family, err := h.registryService.UpsertFamily(adminOrgID(r), r.FormValue("code"), r.FormValue("parent_name"))
	if err != nil {
		if errors.Is(err, service.ErrEmptyCode) || errors.Is(err, service.ErrEmptyName) {
			respondWithError(w, http.StatusBadRequest, err.Error(), "", nil)
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Could not save the family. Please try again.", "failed to upsert family", err)
		return
	}

	respondJSON(w, http.StatusOK, familyView(family))
}

// DeleteFamily removes a family and everything under it. The confirm
// field gates the destructive path.
func (h *AdminHandler) DeleteFamily(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidFormData, "", err)
		return
	}
	if r.FormValue("confirm") != "true" {
		respondWithError(w, http.StatusBadRequest, "Deletion requires confirmation", "", nil)
		return
	}

	if err := h.registryService.RemoveFamily(adminOrgID(r), r.FormValue("code")); err != nil {
		respondWithError(w, http.StatusInternalServerError, "Could not remove the family. Please try again.", "failed to delete family", err)
		return
	}
	respondJSON(w, http.StatusOK, nil)
}

// AddKid registers a kid under a family
func (h *AdminHandler) AddKid(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidFormData, "", err)
		return
	}

	age, _ := strconv.Atoi(r.FormValue("age"))
	kid, err := h.registryService.AddKid(adminOrgID(r), r.FormValue("family_code"), service.KidInput{
		Name:         r.FormValue("name"),
		Age:          age,
		Gender:       r.FormValue("gender"),
		Ethnicity:    r.FormValue("ethnicity"),
		Grade:        r.FormValue("grade"),
		ReadingLevel: models.ReadingLevel(r.FormValue("reading_level")),
		School:       r.FormValue("school"),
	})
	if err != nil {
		var dup *service.DuplicateNameError
		switch {
		case errors.Is(err, service.ErrFamilyNotFound):
			respondWithError(w, http.StatusNotFound, "Family not found", "", nil)
		case errors.Is(err, service.ErrEmptyName):
			respondWithError(w, http.StatusBadRequest, "Kid name is required", "", nil)
		case errors.As(err, &dup):
			respondWithError(w, http.StatusConflict, dup.Error(), "", nil)
		default:
			respondWithError(w, http.StatusBadRequest, "Could not add the kid", "failed to add kid", err)
		}
		return
	}

	respondJSON(w, http.StatusCreated, kidView(kid))
}

// UpdateKid updates a kid's profile fields
func (h *AdminHandler) UpdateKid(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidFormData, "", err)
		return
	}

	age, _ := strconv.Atoi(r.FormValue("age"))
	kid, err := h.registryService.UpdateKid(r.PathValue("kidID"), service.KidInput{
		Age:          age,
		Gender:       r.FormValue("gender"),
		Ethnicity:    r.FormValue("ethnicity"),
		Grade:        r.FormValue("grade"),
		ReadingLevel: models.ReadingLevel(r.FormValue("reading_level")),
		School:       r.FormValue("school"),
	})
	if err != nil {
		if errors.Is(err, service.ErrKidNotFound) {
			respondWithError(w, http.StatusNotFound, "Kid not found", "", nil)
			return
		}
		respondWithError(w, http.StatusBadRequest, "Could not update the kid", "failed to update kid", err)
		return
	}

	respondJSON(w, http.StatusOK, kidView(kid))
}

// DeleteKid removes one kid and its history
func (h *AdminHandler) DeleteKid(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidFormData, "", err)
		return
	}
	if r.FormValue("confirm") != "true" {
		respondWithError(w, http.StatusBadRequest, "Deletion requires confirmation", "", nil)
		return
	}

	if err := h.registryService.RemoveKid(r.PathValue("kidID")); err != nil {
		respondWithError(w, http.StatusInternalServerError, "Could not remove the kid. Please try again.", "failed to delete kid", err)
		return
	}
	respondJSON(w, http.StatusOK, nil)
}

// --- goal catalogs ---

// ListGradeGoals returns the base-goal catalog across all reading levels
func (h *AdminHandler) ListGradeGoals(w http.ResponseWriter, r *http.Request) {
	goals, err := h.goalService.AllGradeGoals()
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "failed to list grade goals", err)
		return
	}
	respondJSON(w, http.StatusOK, goals)
}

// AddGradeGoal adds a base goal to one reading level's catalog
func (h *AdminHandler) AddGradeGoal(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidFormData, "", err)
		return
	}

	goal, err := h.goalService.AddGradeGoal(models.ReadingLevel(r.FormValue("reading_level")), r.FormValue("text"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error(), "", nil)
		return
	}
	respondJSON(w, http.StatusCreated, goal)
}

// DeleteGradeGoal removes a base goal from the catalog
func (h *AdminHandler) DeleteGradeGoal(w http.ResponseWriter, r *http.Request) {
	goalID, err := strconv.ParseInt(r.PathValue("goalID"), 10, 64)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid goal id", "", err)
		return
	}
	if err := h.goalService.RemoveGradeGoal(goalID); err != nil {
		respondWithError(w, http.StatusInternalServerError, "Could not remove the goal", "failed to delete grade goal", err)
		return
	}
	respondJSON(w, http.StatusOK, nil)
}

// ListKidGoals returns the extra goals assigned to one kid
func (h *AdminHandler) ListKidGoals(w http.ResponseWriter, r *http.Request) {
	goals, err := h.goalService.AddedGoalsForKid(r.PathValue("kidID"))
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "failed to list kid goals", err)
		return
	}
	respondJSON(w, http.StatusOK, goals)
}

// AddKidGoal assigns an extra goal to one kid
func (h *AdminHandler) AddKidGoal(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidFormData, "", err)
		return
	}

	goal, err := h.goalService.AddKidGoal(r.PathValue("kidID"), r.FormValue("text"))
	if err != nil {
		if errors.Is(err, service.ErrKidNotFound) {
			respondWithError(w, http.StatusNotFound, "Kid not found", "", nil)
			return
		}
		respondWithError(w, http.StatusBadRequest, err.Error(), "", nil)
		return
	}
	respondJSON(w, http.StatusCreated, goal)
}

// DeleteKidGoal removes one extra goal
func (h *AdminHandler) DeleteKidGoal(w http.ResponseWriter, r *http.Request) {
	goalID, err := strconv.ParseInt(r.PathValue("goalID"), 10, 64)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid goal id", "", err)
		return
	}
	if err := h.goalService.RemoveKidGoal(goalID); err != nil {
		respondWithError(w, http.StatusInternalServerError, "Could not remove the goal", "failed to delete kid goal", err)
		return
	}
	respondJSON(w, http.StatusOK, nil)
}

// --- incentives and schools ---

// ListIncentives returns the current month's incentive list
func (h *AdminHandler) ListIncentives(w http.ResponseWriter, r *http.Request) {
	monthKey := r.URL.Query().Get("month")
	if monthKey == "" {
		monthKey = textkey.MonthKey(h.now())
	}

	items, err := h.registryService.Incentives(adminOrgID(r), monthKey)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "failed to list incentives", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"monthKey": monthKey,
		"items":    items,
	})
}

// AddIncentive appends an incentive to the current month's list
func (h *AdminHandler) AddIncentive(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidFormData, "", err)
		return
	}

	monthKey := r.FormValue("month")
	if monthKey == "" {
		monthKey = textkey.MonthKey(h.now())
	}

	if err := h.registryService.AddIncentive(adminOrgID(r), monthKey, r.FormValue("text")); err != nil {
		respondWithError(w, http.StatusBadRequest, "Could not add the incentive", "failed to add incentive", err)
		return
	}
	respondJSON(w, http.StatusCreated, nil)
}

// RemoveIncentive removes the incentive at a position in the month's list
func (h *AdminHandler) RemoveIncentive(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidFormData, "", err)
		return
	}

	monthKey := r.FormValue("month")
	if monthKey == "" {
		monthKey = textkey.MonthKey(h.now())
	}
	index, err := strconv.Atoi(r.FormValue("index"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid position", "", err)
		return
	}

	if err := h.registryService.RemoveIncentive(adminOrgID(r), monthKey, index); err != nil {
		respondWithError(w, http.StatusBadRequest, "Could not remove the incentive", "failed to remove incentive", err)
		return
	}
	respondJSON(w, http.StatusOK, nil)
}

// ListSchools returns the organization's known school names
func (h *AdminHandler) ListSchools(w http.ResponseWriter, r *http.Request) {
	schools, err := h.orgRepo.ListSchools(adminOrgID(r))
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "failed to list schools", err)
		return
	}
	respondJSON(w, http.StatusOK, schools)
}

// AddSchool registers a school name for the organization
func (h *AdminHandler) AddSchool(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidFormData, "", err)
		return
	}
	if err := h.orgRepo.AddSchool(adminOrgID(r), r.FormValue("name")); err != nil {
		respondWithError(w, http.StatusBadRequest, "Could not add the school", "failed to add school", err)
		return
	}
	respondJSON(w, http.StatusCreated, nil)
}

// RemoveSchool removes a school name from the organization's list
func (h *AdminHandler) RemoveSchool(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidFormData, "", err)
		return
	}
	if err := h.orgRepo.RemoveSchool(adminOrgID(r), r.FormValue("name")); err != nil {
		respondWithError(w, http.StatusInternalServerError, "Could not remove the school", "failed to remove school", err)
		return
	}
	respondJSON(w, http.StatusOK, nil)
}

// --- prizes ---

// AddPrize creates a prize in the organization's catalog
func (h *AdminHandler) AddPrize(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidFormData, "", err)
		return
	}

	points, _ := strconv.Atoi(r.FormValue("points_required"))
	prize, err := h.prizeService.AddPrize(adminOrgID(r), r.FormValue("title"), r.FormValue("description"), r.FormValue("icon"), points)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error(), "", nil)
		return
	}
	respondJSON(w, http.StatusCreated, prize)
}

// DeletePrize removes a prize from the catalog
func (h *AdminHandler) DeletePrize(w http.ResponseWriter, r *http.Request) {
	prizeID, err := strconv.ParseInt(r.PathValue("prizeID"), 10, 64)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid prize id", "", err)
		return
	}
	if err := h.prizeService.RemovePrize(prizeID); err != nil {
		respondWithError(w, http.StatusInternalServerError, "Could not remove the prize", "failed to delete prize", err)
		return
	}
	respondJSON(w, http.StatusOK, nil)
}

// --- reading tests ---

// ListReadingSessions returns the recorded read-aloud transcripts
func (h *AdminHandler) ListReadingSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.readingService.Sessions(adminOrgID(r))
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "failed to list reading sessions", err)
		return
	}

	views := make([]SessionView, 0, len(sessions))
	for _, s := range sessions {
		views = append(views, SessionView{
			ID:         s.ID,
			KidID:      s.KidID,
			Transcript: s.Transcript,
			Date:       textkey.PrettyDate(s.Date),
		})
	}
	respondJSON(w, http.StatusOK, views)
}

// --- backup, export, reset ---

// ExportBackup streams the backup document as a download
func (h *AdminHandler) ExportBackup(w http.ResponseWriter, r *http.Request) {
	timestamp := h.now().Format("20060102_150405")
	filename := fmt.Sprintf("readrise_backup_%s.json", timestamp)
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))

	if err := h.backupService.ExportToWriter(w, adminOrgID(r)); err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to export backup", "failed to export backup", err)
		return
	}

	log.Printf("Backup exported for org %q", adminOrgID(r))
}

// ImportBackup restores a backup from an uploaded file
func (h *AdminHandler) ImportBackup(w http.ResponseWriter, r *http.Request) {
	// 10MB cap on the upload
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		respondWithError(w, http.StatusBadRequest, "Failed to parse upload", "", err)
		return
	}

	file, _, err := r.FormFile("backup_file")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Please select a backup file", "", err)
		return
	}
	defer file.Close()

	result, err := h.backupService.ImportFromReader(file)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Could not read that backup file", "failed to import backup", err)
		return
	}

	if h.emailService != nil && h.emailService.IsEnabled() {
		go func(restored, failed int) {
			if err := h.emailService.SendBackupRestoredEmail(context.Background(), restored, failed); err != nil {
				log.Printf("Failed to send restore notice: %v", err)
			}
		}(result.FamiliesRestored, result.FamiliesFailed)
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"familiesRestored": result.FamiliesRestored,
		"familiesFailed":   result.FamiliesFailed,
	})
}

// ExportCSV streams the roster spreadsheet as a download
func (h *AdminHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	timestamp := h.now().Format("20060102")
	filename := fmt.Sprintf("readrise_roster_%s.csv", timestamp)
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))

	if err := h.exportService.WriteRosterCSV(w, adminOrgID(r)); err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to export roster", "failed to export csv", err)
		return
	}
}

// ResetAll wipes every family and the current month's incentives
func (h *AdminHandler) ResetAll(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidFormData, "", err)
		return
	}
	if r.FormValue("confirm") != "true" {
		respondWithError(w, http.StatusBadRequest, "Reset requires confirmation", "", nil)
		return
	}

	if err := h.registryService.ResetAll(adminOrgID(r), textkey.MonthKey(h.now())); err != nil {
		respondWithError(w, http.StatusInternalServerError, "Reset did not finish. Some data may already be gone.", "reset failed", err)
		return
	}

	log.Printf("Admin reset completed for org %q", adminOrgID(r))
	respondJSON(w, http.StatusOK, nil)
}

// --- organizations ---

// UpsertOrganization creates or updates a tenant's branding and auth
// provider
func (h *AdminHandler) UpsertOrganization(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidFormData, "", err)
		return
	}

	org := &models.Organization{
		ID:           r.FormValue("id"),
		Name:         r.FormValue("name"),
		PrimaryColor: r.FormValue("primary_color"),
		AccentColor:  r.FormValue("accent_color"),
		LogoURL:      r.FormValue("logo_url"),
		AuthProvider: models.AuthProvider(r.FormValue("auth_provider")),
	}
	if org.ID == "" || org.Name == "" {
		respondWithError(w, http.StatusBadRequest, "Organization id and name are required", "", nil)
		return
	}
	if org.AuthProvider == "" {
		org.AuthProvider = models.AuthProviderInternal
	}
	if !org.AuthProvider.Valid() {
		respondWithError(w, http.StatusBadRequest, "Unknown auth provider", "", nil)
		return
	}

	if err := h.orgRepo.UpsertOrganization(org); err != nil {
		respondWithError(w, http.StatusInternalServerError, "Could not save the organization", "failed to upsert organization", err)
		return
	}

	if err := h.prizeService.SeedDefaultPrizes(org.ID); err != nil {
		log.Printf("Failed to seed prizes for org %q: %v", org.ID, err)
	}

	respondJSON(w, http.StatusOK, organizationView(org))
}

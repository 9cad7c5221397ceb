package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"readrise/internal/models"
	"readrise/internal/service"
	"readrise/internal/textkey"
	"readrise/internal/validation"
	"readrise/internal/view"
)

// ParentHandler serves the parent screens: the family roster, the weekly
// goal checklist, the reading log and the read-aloud test
type ParentHandler struct {
	registryService *service.RegistryService
	goalService     *service.GoalService
	readingService  *service.ReadingService
	prizeService    *service.PrizeService
	viewStore       *view.Store
	now             func() time.Time
}

// NewParentHandler creates a new parent handler
func NewParentHandler(registryService *service.RegistryService, goalService *service.GoalService, readingService *service.ReadingService, prizeService *service.PrizeService, viewStore *view.Store) *ParentHandler {
	return &ParentHandler{
		registryService: registryService,
		goalService:     goalService,
		readingService:  readingService,
		prizeService:    prizeService,
		viewStore:       viewStore,
		now:             time.Now,
	}
}

// Family returns the session family's roster
func (h *ParentHandler) Family(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	family, err := h.registryService.GetFamily(code)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "failed to load family", err)
		return
	}
	if family == nil {
		respondWithError(w, http.StatusNotFound, "We couldn't find that parent code", "", nil)
		return
	}
	respondJSON(w, http.StatusOK, familyView(family))
}

// SelectKid records which kid the parent screen is showing
func (h *ParentHandler) SelectKid(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidFormData, "", err)
		return
	}

	state := h.viewStore.Get(GetSessionID(r.Context()))
	state.SelectedKidID = r.FormValue("kid_id")
	respondJSON(w, http.StatusOK, nil)
}

// Checklist returns the kid's goal checklist for the current week
func (h *ParentHandler) Checklist(w http.ResponseWriter, r *http.Request) {
	kidID := r.PathValue("kidID")
	weekKey := textkey.WeekKey(h.now())

	base, added, record, err := h.goalService.WeeklyChecklist(kidID, weekKey)
	if err != nil {
		if errors.Is(err, service.ErrKidNotFound) {
			respondWithError(w, http.StatusNotFound, "Kid not found", "", nil)
			return
		}
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "failed to load checklist", err)
		return
	}

	complete := service.IsWeekComplete(base, added, record)
	celebrate := h.goalService.CelebrationActive(kidID, weekKey)
	respondJSON(w, http.StatusOK, checklistView(kidID, weekKey, base, added, record, complete, celebrate))
}

// ToggleGoal checks or unchecks one goal on the current week's checklist
// and reports whether that made the week complete
func (h *ParentHandler) ToggleGoal(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidFormData, "", err)
		return
	}

	kidID := r.PathValue("kidID")
	goalID, err := strconv.ParseInt(r.FormValue("goal_id"), 10, 64)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid goal id", "", err)
		return
	}
	kind := r.FormValue("kind")
	if kind != "base" && kind != "added" {
		respondWithError(w, http.StatusBadRequest, "Invalid goal kind", "", nil)
		return
	}
	done := r.FormValue("done") == "true"

	weekKey := textkey.WeekKey(h.now())
	status, err := h.goalService.SetGoalDone(kidID, weekKey, goalID, kind, done)
	if err != nil {
		if errors.Is(err, service.ErrKidNotFound) {
			respondWithError(w, http.StatusNotFound, "Kid not found", "", nil)
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Could not save your change. Please try again.", "failed to toggle goal", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"weekKey":   weekKey,
		"complete":  status.Complete,
		"celebrate": status.Celebrate,
	})
}

// Dashboard returns the per-kid dashboard: profile, derived reading
// stats, points, the reading log and this month's incentives
func (h *ParentHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	kidID := r.PathValue("kidID")

	_, kid, err := h.registryService.GetKid(kidID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "failed to load kid", err)
		return
	}
	if kid == nil {
		respondWithError(w, http.StatusNotFound, "Kid not found", "", nil)
		return
	}

	stats, err := h.readingService.Stats(kidID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "failed to derive stats", err)
		return
	}
	points, err := h.prizeService.Points(kidID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "failed to derive points", err)
		return
	}
	entries, err := h.readingService.Log(kidID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "failed to load reading log", err)
		return
	}

	now := h.now()
	incentives, err := h.registryService.Incentives(kid.OrgID, textkey.MonthKey(now))
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "failed to load incentives", err)
		return
	}

	respondJSON(w, http.StatusOK, DashboardView{
		Kid:        kidView(kid),
		Stats:      statsView(stats),
		Points:     points,
		Log:        logEntryViews(entries),
		Incentives: incentives,
		MonthLabel: textkey.MonthLabel(now),
	})
}

// LogReading appends a reading-log entry for a kid
func (h *ParentHandler) LogReading(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidFormData, "", err)
		return
	}

	kidID := r.PathValue("kidID")
	minutes, _ := strconv.Atoi(r.FormValue("minutes"))
	pages, _ := strconv.Atoi(r.FormValue("pages"))
	mood := models.Mood(r.FormValue("mood"))

	entry, err := h.readingService.LogReading(kidID, r.FormValue("title"), r.FormValue("author"), minutes, pages, mood)
	if err != nil {
		var verr validation.ValidationError
		switch {
		case errors.Is(err, service.ErrKidNotFound):
			respondWithError(w, http.StatusNotFound, "Kid not found", "", nil)
		case errors.As(err, &verr):
			respondWithError(w, http.StatusBadRequest, verr.Message, "", nil)
		default:
			respondWithError(w, http.StatusInternalServerError, "Could not save your entry. Please try again.", "failed to log reading", err)
		}
		return
	}

	respondJSON(w, http.StatusCreated, LogEntryView{
		ID:      entry.ID,
		Date:    entry.DisplayDate,
		Title:   entry.Title,
		Author:  entry.Author,
		Minutes: entry.Minutes,
		Pages:   entry.Pages,
		Mood:    string(entry.Mood),
	})
}

// RecordReadingTest stores a read-aloud transcript captured on the parent
// reading-test screen
func (h *ParentHandler) RecordReadingTest(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidFormData, "", err)
		return
	}

	kidID := r.PathValue("kidID")
	state := h.viewStore.Get(GetSessionID(r.Context()))

	session, err := h.readingService.RecordSession(kidID, state.OrgID, r.FormValue("transcript"))
	if err != nil {
		if errors.Is(err, service.ErrKidNotFound) {
			respondWithError(w, http.StatusNotFound, "Kid not found", "", nil)
			return
		}
		respondWithError(w, http.StatusBadRequest, "Could not save the reading test", "failed to record session", err)
		return
	}

	respondJSON(w, http.StatusCreated, SessionView{
		ID:         session.ID,
		KidID:      session.KidID,
		Transcript: session.Transcript,
		Date:       textkey.PrettyDate(session.Date),
	})
}

package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"readrise/internal/service"
	"readrise/internal/view"
)

// PrizesHandler serves the prize shop: the catalog, a kid's balance and
// redemptions
type PrizesHandler struct {
	prizeService *service.PrizeService
	viewStore    *view.Store
}

// NewPrizesHandler creates a new prizes handler
func NewPrizesHandler(prizeService *service.PrizeService, viewStore *view.Store) *PrizesHandler {
	return &PrizesHandler{
		prizeService: prizeService,
		viewStore:    viewStore,
	}
}

// Shop returns the prize catalog with the selected kid's spendable points
func (h *PrizesHandler) Shop(w http.ResponseWriter, r *http.Request) {
	state := h.viewStore.Get(GetSessionID(r.Context()))

	kidID := r.URL.Query().Get("kid_id")
	if kidID == "" {
		kidID = state.SelectedKidID
	}
	if kidID == "" {
		respondWithError(w, http.StatusBadRequest, "No kid selected", "", nil)
		return
	}

	prizes, err := h.prizeService.ListPrizes(state.OrgID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "failed to list prizes", err)
		return
	}
	points, err := h.prizeService.Points(kidID)
	if err != nil {
		if errors.Is(err, service.ErrKidNotFound) {
			respondWithError(w, http.StatusNotFound, "Kid not found", "", nil)
			return
		}
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "failed to derive points", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"kidId":  kidID,
		"points": points,
		"prizes": prizeViews(prizes),
	})
}

// Redeem spends a kid's points on a prize
func (h *PrizesHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidFormData, "", err)
		return
	}

	kidID := r.FormValue("kid_id")
	prizeID, err := strconv.ParseInt(r.FormValue("prize_id"), 10, 64)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid prize id", "", err)
		return
	}

	prize, err := h.prizeService.Redeem(kidID, prizeID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrKidNotFound):
			respondWithError(w, http.StatusNotFound, "Kid not found", "", nil)
		case errors.Is(err, service.ErrPrizeNotFound):
			respondWithError(w, http.StatusNotFound, "Prize not found", "", nil)
		case errors.Is(err, service.ErrInsufficientPoints):
			respondWithError(w, http.StatusConflict, "Not enough points yet. Keep reading!", "", nil)
		default:
			respondWithError(w, http.StatusInternalServerError, "Could not redeem right now. Please try again.", "failed to redeem prize", err)
		}
		return
	}

	points, err := h.prizeService.Points(kidID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "failed to derive points", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"redeemed": prize.Title,
		"points":   points,
	})
}

// History lists a kid's past redemptions
func (h *PrizesHandler) History(w http.ResponseWriter, r *http.Request) {
	kidID := r.PathValue("kidID")

	redemptions, err := h.prizeService.Redemptions(kidID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "failed to list redemptions", err)
		return
	}
	respondJSON(w, http.StatusOK, redemptions)
}

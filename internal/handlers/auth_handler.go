package handlers

import (
	"errors"
	"net/http"
	"time"

	"readrise/internal/security"
	"readrise/internal/service"
	"readrise/internal/view"
)

// AuthHandler handles entry flows: landing state, organization selection,
// parent entry by code and admin login
type AuthHandler struct {
	authService *service.AuthService
	viewStore   *view.Store
	csrf        *security.CSRFGenerator

	oauthProviders       map[string]OAuthProvider
	oauthRedirectBaseURL string
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *service.AuthService, viewStore *view.Store, csrf *security.CSRFGenerator, oauthProviders map[string]OAuthProvider, oauthRedirectBaseURL string) *AuthHandler {
	return &AuthHandler{
		authService:          authService,
		viewStore:            viewStore,
		csrf:                 csrf,
		oauthProviders:       oauthProviders,
		oauthRedirectBaseURL: oauthRedirectBaseURL,
	}
}

// State returns the session's current view state plus the CSRF token the
// client must echo on mutations
func (h *AuthHandler) State(w http.ResponseWriter, r *http.Request) {
	sessionID := GetSessionID(r.Context())
	state := h.viewStore.Get(sessionID)

	token, err := h.csrf.GenerateToken(sessionID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "failed to generate csrf token", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"screen":        state.Screen,
		"orgId":         state.OrgID,
		"selectedKidId": state.SelectedKidID,
		"csrfToken":     token,
	})
}

// Navigate moves the session to another screen. Moves the screen graph
// does not allow are rejected, so a client cannot jump into the admin
// dashboard from the landing page.
func (h *AuthHandler) Navigate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidFormData, "", err)
		return
	}

	state := h.viewStore.Get(GetSessionID(r.Context()))
	target := view.Screen(r.FormValue("screen"))

	// Screens with their own entry checks never open through plain
	// navigation
	if target == view.ScreenAdmin {
		respondWithError(w, http.StatusForbidden, "Admin requires login", "", nil)
		return
	}

	if err := state.Transition(target); err != nil {
		respondWithError(w, http.StatusBadRequest, "That screen is not reachable from here", "", err)
		return
	}
	if target == view.ScreenLanding {
		state.OrgID = ""
		state.SelectedKidID = ""
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"screen": state.Screen})
}

// Organizations lists the tenants for the organization picker
func (h *AuthHandler) Organizations(w http.ResponseWriter, r *http.Request) {
	orgs, err := h.authService.Organizations()
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "failed to list organizations", err)
		return
	}
	respondJSON(w, http.StatusOK, organizationViews(orgs))
}

// SelectOrg records the chosen tenant on the session
func (h *AuthHandler) SelectOrg(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidFormData, "", err)
		return
	}

	orgID := r.FormValue("org_id")
	org, err := h.authService.Organization(orgID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "failed to load organization", err)
		return
	}
	if org == nil {
		respondWithError(w, http.StatusNotFound, "Unknown organization", "", nil)
		return
	}

	state := h.viewStore.Get(GetSessionID(r.Context()))
	state.OrgID = org.ID
	state.SelectedKidID = ""

	respondJSON(w, http.StatusOK, organizationView(org))
}

// ParentEnter resolves a parent code and opens the parent screen
func (h *AuthHandler) ParentEnter(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidFormData, "", err)
		return
	}

	family, err := h.authService.ParentEntry(r.FormValue("code"))
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "failed to look up parent code", err)
		return
	}
	if family == nil {
		respondWithError(w, http.StatusNotFound, "We couldn't find that parent code", "", nil)
		return
	}

	state := h.viewStore.Get(GetSessionID(r.Context()))
	if err := state.Transition(view.ScreenParent); err != nil {
		respondWithError(w, http.StatusBadRequest, "That screen is not reachable from here", "", err)
		return
	}
	state.OrgID = family.OrgID
	state.SelectedKidID = ""
	if len(family.Kids) > 0 {
		state.SelectedKidID = family.Kids[0].ID
	}

	respondJSON(w, http.StatusOK, familyView(family))
}

// CheckOrgName is the organization-name gate shown before the admin login
// form. Passing it only opens the login screen; it grants nothing.
func (h *AuthHandler) CheckOrgName(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidFormData, "", err)
		return
	}

	if err := h.authService.CheckOrgName(r.FormValue("org_name")); err != nil {
		respondWithError(w, http.StatusForbidden, "That's not the organization we have on file", "", nil)
		return
	}

	state := h.viewStore.Get(GetSessionID(r.Context()))
	if state.Screen != view.ScreenAdminLogin {
		if err := state.Transition(view.ScreenAdminLogin); err != nil {
			respondWithError(w, http.StatusBadRequest, "That screen is not reachable from here", "", err)
			return
		}
	}

	respondJSON(w, http.StatusOK, nil)
}

// AdminLogin verifies the admin password, issues the session token cookie
// and opens the admin dashboard
func (h *AuthHandler) AdminLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidFormData, "", err)
		return
	}

	state := h.viewStore.Get(GetSessionID(r.Context()))

	token, err := h.authService.AdminLogin(state.OrgID, r.FormValue("password"))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			respondWithError(w, http.StatusUnauthorized, "Invalid password", "", nil)
		case errors.Is(err, service.ErrAdminNotConfigured):
			respondWithError(w, http.StatusServiceUnavailable, "Admin access is not configured", "", err)
		default:
			respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "admin login failed", err)
		}
		return
	}

	expires := time.Now().Add(h.authService.SessionDuration())
	http.SetCookie(w, security.CreateSessionCookie(r, AdminTokenCookieName, token, expires))

	if state.Screen != view.ScreenAdmin {
		if err := state.Transition(view.ScreenAdmin); err != nil {
			respondWithError(w, http.StatusBadRequest, "That screen is not reachable from here", "", err)
			return
		}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"screen": state.Screen})
}

// Logout clears the admin token and resets the session to the landing
// screen
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	sessionID := GetSessionID(r.Context())
	h.viewStore.Reset(sessionID)
	http.SetCookie(w, security.CreateDeleteCookie(r, AdminTokenCookieName))

	respondJSON(w, http.StatusOK, map[string]interface{}{"screen": view.ScreenLanding})
}

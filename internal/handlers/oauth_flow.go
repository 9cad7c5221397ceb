package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/facebook"
	"golang.org/x/oauth2/google"

	"readrise/internal/config"
	"readrise/internal/models"
	"readrise/internal/security"
	"readrise/internal/service"
	"readrise/internal/view"
)

// OAuthProvider defines provider configuration and metadata. Providers
// carry the org sign-in for organizations tagged google or facebook.
type OAuthProvider struct {
	Name        string
	Provider    models.AuthProvider
	Config      *oauth2.Config
	UserInfoURL string
}

type oauthUserInfo struct {
	Subject string
	Email   string
	Name    string
}

// BuildOAuthProviders assembles the provider table from configured
// client credentials. Providers without credentials are still listed so
// routes resolve, but start/callback reject them.
func BuildOAuthProviders(cfg *config.Config) map[string]OAuthProvider {
	return map[string]OAuthProvider{
		"google": {
			Name:     "google",
			Provider: models.AuthProviderGoogle,
			Config: &oauth2.Config{
				ClientID:     cfg.GoogleClientID,
				ClientSecret: cfg.GoogleClientSecret,
				Endpoint:     google.Endpoint,
				Scopes:       []string{"openid", "email", "profile"},
			},
			UserInfoURL: "https://www.googleapis.com/oauth2/v2/userinfo",
		},
		"facebook": {
			Name:     "facebook",
			Provider: models.AuthProviderFacebook,
			Config: &oauth2.Config{
				ClientID:     cfg.FacebookClientID,
				ClientSecret: cfg.FacebookClientSecret,
				Endpoint:     facebook.Endpoint,
				Scopes:       []string{"email", "public_profile"},
			},
			UserInfoURL: "https://graph.facebook.com/me?fields=id,name,email",
		},
	}
}

// StartOAuth initiates the admin OAuth flow for a provider. The session
// must already have an organization selected; its auth-provider tag is
// re-checked on the callback.
func (h *AuthHandler) StartOAuth(w http.ResponseWriter, r *http.Request) {
	providerKey := r.PathValue("provider")
	provider, ok := h.oauthProviders[providerKey]
	if !ok || provider.Config == nil || provider.Config.ClientID == "" || provider.Config.ClientSecret == "" {
		respondWithError(w, http.StatusBadRequest, "OAuth provider not configured", "", nil)
		return
	}

	state := h.viewStore.Get(GetSessionID(r.Context()))
	if state.OrgID == "" {
		respondWithError(w, http.StatusBadRequest, "Select an organization first", "", nil)
		return
	}

	oauthState := security.GenerateSessionID()
	h.setTempCookie(w, r, "oauth_state", oauthState, 10*time.Minute)
	h.setTempCookie(w, r, "oauth_provider", providerKey, 10*time.Minute)

	redirectURL := h.oauthRedirectURL(r, providerKey)
	oauthConfig := *provider.Config
	oauthConfig.RedirectURL = redirectURL

	authURL := oauthConfig.AuthCodeURL(oauthState, oauth2.AccessTypeOnline)
	http.Redirect(w, r, authURL, http.StatusFound)
}

// OAuthCallback handles the OAuth provider callback and issues the admin
// session on success
func (h *AuthHandler) OAuthCallback(w http.ResponseWriter, r *http.Request) {
	providerKey := r.PathValue("provider")
	provider, ok := h.oauthProviders[providerKey]
	if !ok || provider.Config == nil || provider.Config.ClientID == "" || provider.Config.ClientSecret == "" {
		respondWithError(w, http.StatusBadRequest, "OAuth provider not configured", "", nil)
		return
	}

	oauthState := r.URL.Query().Get("state")
	code := r.URL.Query().Get("code")
	if code == "" {
		respondWithError(w, http.StatusBadRequest, "Missing authorization code", "", nil)
		return
	}

	stateCookie, err := r.Cookie("oauth_state")
	if err != nil || stateCookie.Value == "" || stateCookie.Value != oauthState {
		respondWithError(w, http.StatusBadRequest, "Invalid OAuth state", "", nil)
		return
	}
	if providerCookie, err := r.Cookie("oauth_provider"); err == nil {
		if providerCookie.Value != providerKey {
			respondWithError(w, http.StatusBadRequest, "OAuth provider mismatch", "", nil)
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	redirectURL := h.oauthRedirectURL(r, providerKey)
	oauthConfig := *provider.Config
	oauthConfig.RedirectURL = redirectURL

	token, err := oauthConfig.Exchange(ctx, code)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Failed to exchange OAuth code", "oauth exchange failed", err)
		return
	}

	userInfo, err := fetchOAuthUserInfo(ctx, provider, token)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Could not read your profile from the provider", "oauth userinfo failed", err)
		return
	}

	h.clearTempCookie(w, r, "oauth_state")
	h.clearTempCookie(w, r, "oauth_provider")

	state := h.viewStore.Get(GetSessionID(r.Context()))
	adminToken, err := h.authService.OAuthAdminLogin(state.OrgID, provider.Provider, userInfo.Email)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrWrongAuthProvider):
			respondWithError(w, http.StatusForbidden, "This organization does not sign in with that provider", "", nil)
		case errors.Is(err, service.ErrEmailNotAllowed):
			respondWithError(w, http.StatusForbidden, "That account is not an admin here", "", nil)
		case errors.Is(err, service.ErrAdminNotConfigured):
			respondWithError(w, http.StatusServiceUnavailable, "Admin access is not configured", "", err)
		default:
			respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "oauth admin login failed", err)
		}
		return
	}

	expires := time.Now().Add(h.authService.SessionDuration())
	http.SetCookie(w, security.CreateSessionCookie(r, AdminTokenCookieName, adminToken, expires))

	// The provider round-trip satisfied the login step, so the session
	// lands on the admin screen regardless of where it started.
	state.Screen = view.ScreenAdmin

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func fetchOAuthUserInfo(ctx context.Context, provider OAuthProvider, token *oauth2.Token) (oauthUserInfo, error) {
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(token))
	resp, err := client.Get(provider.UserInfoURL)
	if err != nil {
		return oauthUserInfo{}, fmt.Errorf("failed to fetch %s user info: %w", provider.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return oauthUserInfo{}, fmt.Errorf("failed to fetch %s user info: status %d", provider.Name, resp.StatusCode)
	}

	var payload struct {
		ID    string `json:"id"`
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return oauthUserInfo{}, fmt.Errorf("failed to parse %s user info: %w", provider.Name, err)
	}
	if payload.Email == "" {
		return oauthUserInfo{}, errors.New("provider did not return an email")
	}

	return oauthUserInfo{Subject: payload.ID, Email: payload.Email, Name: payload.Name}, nil
}

func (h *AuthHandler) oauthRedirectURL(r *http.Request, providerKey string) string {
	baseURL := strings.TrimSpace(h.oauthRedirectBaseURL)
	if baseURL == "" {
		scheme := "http"
		if security.IsSecureRequest(r) {
			scheme = "https"
		}
		baseURL = fmt.Sprintf("%s://%s", scheme, r.Host)
	}
	return fmt.Sprintf("%s/auth/%s/callback", strings.TrimRight(baseURL, "/"), providerKey)
}

func (h *AuthHandler) setTempCookie(w http.ResponseWriter, r *http.Request, name, value string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   security.IsSecureRequest(r),
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(ttl),
		MaxAge:   int(ttl.Seconds()),
	})
}

func (h *AuthHandler) clearTempCookie(w http.ResponseWriter, r *http.Request, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   security.IsSecureRequest(r),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

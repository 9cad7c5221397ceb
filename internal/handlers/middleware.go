package handlers

import (
	"context"
	"log"
	"net/http"
	"time"

	"readrise/internal/security"
	"readrise/internal/service"
	"readrise/internal/view"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	AdminContextKey   ContextKey = "admin"
	SessionContextKey ContextKey = "session"
)

// Middleware holds dependencies for middleware functions
type Middleware struct {
	authService *service.AuthService
	viewStore   *view.Store
	csrf        *security.CSRFGenerator
}

// NewMiddleware creates a new middleware instance
func NewMiddleware(authService *service.AuthService, viewStore *view.Store, csrf *security.CSRFGenerator) *Middleware {
	return &Middleware{
		authService: authService,
		viewStore:   viewStore,
		csrf:        csrf,
	}
}

// EnsureSession guarantees every request carries a session id cookie. The
// session id keys the server-side view state and the CSRF token.
func (m *Middleware) EnsureSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := ""
		if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
			sessionID = cookie.Value
		}
		if sessionID == "" {
			sessionID = security.GenerateSessionID()
			http.SetCookie(w, security.CreateSessionCookie(r, SessionCookieName, sessionID, time.Now().Add(24*time.Hour)))
		}

		ctx := context.WithValue(r.Context(), SessionContextKey, sessionID)
		next(w, r.WithContext(ctx))
	}
}

// RequireAdmin validates the admin session token and puts its claims on
// the context. The token cookie, not the view state, is the boundary.
func (m *Middleware) RequireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return m.EnsureSession(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(AdminTokenCookieName)
		if err != nil || cookie.Value == "" {
			respondWithError(w, http.StatusUnauthorized, ErrUnauthorized, "", nil)
			return
		}

		claims, err := m.authService.ValidateAdminToken(cookie.Value)
		if err != nil {
			http.SetCookie(w, security.CreateDeleteCookie(r, AdminTokenCookieName))
			respondWithError(w, http.StatusUnauthorized, ErrUnauthorized, "invalid admin token", err)
			return
		}

		ctx := context.WithValue(r.Context(), AdminContextKey, claims)
		next(w, r.WithContext(ctx))
	})
}

// RequireCSRF validates the CSRF token on state-changing form posts
func (m *Middleware) RequireCSRF(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := GetSessionID(r.Context())
		token := r.Header.Get("X-CSRF-Token")
		if token == "" {
			token = r.FormValue("csrf_token")
		}
		if !m.csrf.ValidateToken(sessionID, token) {
			respondWithError(w, http.StatusForbidden, "Invalid CSRF token", "", nil)
			return
		}
		next(w, r)
	}
}

// RateLimit rejects requests over the limiter's budget, keyed by client IP
func RateLimit(limiter *security.RateLimiter, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow(security.GetClientIP(r)) {
			respondWithError(w, http.StatusTooManyRequests, "Too many attempts. Try again later.", "", nil)
			return
		}
		next(w, r)
	}
}

// Logging middleware logs HTTP requests
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		next.ServeHTTP(w, r)

		log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(start))
	})
}

// GetAdminClaims retrieves the admin claims from the request context
func GetAdminClaims(ctx context.Context) *security.AdminClaims {
	claims, ok := ctx.Value(AdminContextKey).(*security.AdminClaims)
	if !ok {
		return nil
	}
	return claims
}

// GetSessionID retrieves the session id from the request context
func GetSessionID(ctx context.Context) string {
	sessionID, _ := ctx.Value(SessionContextKey).(string)
	return sessionID
}

package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"readrise/internal/config"
	"readrise/internal/models"
	"readrise/internal/repository"
	"readrise/internal/security"
)

var (
	ErrOrgNameMismatch    = errors.New("organization name does not match")
	ErrInvalidCredentials = errors.New("invalid password")
	ErrAdminNotConfigured = errors.New("admin access is not configured")
	ErrWrongAuthProvider  = errors.New("organization does not use this sign-in provider")
	ErrEmailNotAllowed    = errors.New("email is not on the admin list")
)

// AuthService handles admin authentication and parent entry. The
// organization-name challenge before the admin login form is cosmetic;
// the password check and the signed session token are the boundary.
type AuthService struct {
	orgRepo    *repository.OrgRepository
	familyRepo *repository.FamilyRepository

	adminOrgName      string
	adminPasswordHash string
	adminEmails       []string
	jwtSecret         string
	sessionDuration   time.Duration
}

// NewAuthService creates a new auth service
func NewAuthService(orgRepo *repository.OrgRepository, familyRepo *repository.FamilyRepository, cfg *config.Config) *AuthService {
	return &AuthService{
		orgRepo:           orgRepo,
		familyRepo:        familyRepo,
		adminOrgName:      cfg.AdminOrgName,
		adminPasswordHash: cfg.AdminPasswordHash,
		adminEmails:       cfg.AdminEmails,
		jwtSecret:         cfg.JWTSecret,
		sessionDuration:   cfg.SessionDuration,
	}
}

// CheckOrgName performs the cosmetic organization-name gate shown before
// the admin login form. Comparison ignores case and surrounding space.
func (s *AuthService) CheckOrgName(name string) error {
	if !strings.EqualFold(strings.TrimSpace(name), s.adminOrgName) {
		return ErrOrgNameMismatch
	}
	return nil
}

// AdminLogin verifies the admin password and issues a session token
// scoped to the organization the admin is managing
func (s *AuthService) AdminLogin(orgID, password string) (string, error) {
	if s.adminPasswordHash == "" || s.jwtSecret == "" {
		return "", ErrAdminNotConfigured
	}

	if !security.CheckPassword(password, s.adminPasswordHash) {
		return "", ErrInvalidCredentials
	}

	token, err := security.SignAdminToken(s.jwtSecret, orgID, s.sessionDuration)
	if err != nil {
		return "", fmt.Errorf("failed to issue admin session: %w", err)
	}
	return token, nil
}

// OAuthAdminLogin issues an admin session after a successful OAuth
// exchange. The organization must be tagged with the provider the admin
// came back from, and the verified email must be on the admin list.
func (s *AuthService) OAuthAdminLogin(orgID string, provider models.AuthProvider, email string) (string, error) {
	if s.jwtSecret == "" || len(s.adminEmails) == 0 {
		return "", ErrAdminNotConfigured
	}

	org, err := s.orgRepo.GetOrganization(orgID)
	if err != nil {
		return "", fmt.Errorf("failed to load organization: %w", err)
	}
	if org == nil || org.AuthProvider != provider {
		return "", ErrWrongAuthProvider
	}

	allowed := false
	for _, adminEmail := range s.adminEmails {
		if strings.EqualFold(strings.TrimSpace(email), adminEmail) {
			allowed = true
			break
		}
	}
	if !allowed {
		return "", ErrEmailNotAllowed
	}

	token, err := security.SignAdminToken(s.jwtSecret, orgID, s.sessionDuration)
	if err != nil {
		return "", fmt.Errorf("failed to issue admin session: %w", err)
	}
	return token, nil
}

// ValidateAdminToken parses and validates an admin session token
func (s *AuthService) ValidateAdminToken(token string) (*security.AdminClaims, error) {
	return security.ParseAdminToken(s.jwtSecret, token)
}

// SessionDuration returns the admin session lifetime, used to set the
// cookie max age alongside the token expiry
func (s *AuthService) SessionDuration() time.Duration {
	return s.sessionDuration
}

// ParentEntry resolves a parent code to its family, or nil when the code
// is not registered
func (s *AuthService) ParentEntry(code string) (*models.Family, error) {
	return s.familyRepo.GetFamilyByCode(strings.TrimSpace(code))
}

// Organizations lists the tenants for the organization picker
func (s *AuthService) Organizations() ([]models.Organization, error) {
	return s.orgRepo.ListOrganizations()
}

// Organization loads one tenant, or nil when unknown
func (s *AuthService) Organization(orgID string) (*models.Organization, error) {
	return s.orgRepo.GetOrganization(orgID)
}

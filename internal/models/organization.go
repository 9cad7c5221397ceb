package models

import "time"

// AuthProvider identifies how an organization's admins sign in.
type AuthProvider string

const (
	AuthProviderInternal AuthProvider = "internal"
	AuthProviderGoogle   AuthProvider = "google"
	AuthProviderFacebook AuthProvider = "facebook"
)

// Valid reports whether the provider tag is one of the known values.
func (p AuthProvider) Valid() bool {
	switch p {
	case AuthProviderInternal, AuthProviderGoogle, AuthProviderFacebook:
		return true
	}
	return false
}

// Organization is a tenant. It scopes families, incentives and branding.
// An organization is selected once per session and is immutable afterwards.
type Organization struct {
	ID           string
	Name         string
	PrimaryColor string
	AccentColor  string
	LogoURL      string
	AuthProvider AuthProvider
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

package handlers

const (
	SessionCookieName    = "rr_session"
	AdminTokenCookieName = "admin_token"

	ErrInvalidFormData     = "Invalid form data"
	ErrUnauthorized        = "Unauthorized"
	ErrInternalServerError = "Internal server error"
	ErrNotFound            = "Not found"
)

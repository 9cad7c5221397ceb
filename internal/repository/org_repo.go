package repository

import (
	"database/sql"
	"fmt"
	"log"

	"readrise/internal/database"
	"readrise/internal/models"
)

// OrgRepository handles database operations for organizations and their
// org-scoped lookup lists (schools).
type OrgRepository struct {
	db *database.DB
}

// NewOrgRepository creates a new organization repository
func NewOrgRepository(db *database.DB) *OrgRepository {
	return &OrgRepository{db: db}
}

// GetOrganization retrieves an organization by id
func (r *OrgRepository) GetOrganization(orgID string) (*models.Organization, error) {
	query := `
		SELECT id, name, primary_color, accent_color, logo_url, auth_provider, created_at, updated_at
		FROM organizations WHERE id = ?
	`
	org := &models.Organization{}
	err := r.db.QueryRow(query, orgID).Scan(
		&org.ID,
		&org.Name,
		&org.PrimaryColor,
		&org.AccentColor,
		&org.LogoURL,
		&org.AuthProvider,
		&org.CreatedAt,
		&org.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}

	if !org.AuthProvider.Valid() {
		// Quarantine malformed rows instead of silently defaulting
		log.Printf("Quarantined organization %s: unknown auth provider %q", org.ID, org.AuthProvider)
		return nil, nil
	}

	return org, nil
}

// ListOrganizations retrieves all organizations for the org-select screen
func (r *OrgRepository) ListOrganizations() ([]models.Organization, error) {
	query := `
		SELECT id, name, primary_color, accent_color, logo_url, auth_provider, created_at, updated_at
		FROM organizations ORDER BY name ASC
	`
	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query organizations: %w", err)
	}
	defer rows.Close()

	var orgs []models.Organization
	for rows.Next() {
		var org models.Organization
		if err := rows.Scan(
			&org.ID,
			&org.Name,
			&org.PrimaryColor,
			&org.AccentColor,
			&org.LogoURL,
			&org.AuthProvider,
			&org.CreatedAt,
			&org.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan organization: %w", err)
		}
		if !org.AuthProvider.Valid() {
			log.Printf("Quarantined organization %s: unknown auth provider %q", org.ID, org.AuthProvider)
			continue
		}
		orgs = append(orgs, org)
	}

	return orgs, rows.Err()
}

// UpsertOrganization creates or updates an organization record
func (r *OrgRepository) UpsertOrganization(org *models.Organization) error {
	existing, err := r.GetOrganization(org.ID)
	if err != nil {
		return err
	}

	if existing == nil {
		query := `
			INSERT INTO organizations (id, name, primary_color, accent_color, logo_url, auth_provider)
			VALUES (?, ?, ?, ?, ?, ?)
		`
		_, err = r.db.Exec(query, org.ID, org.Name, org.PrimaryColor, org.AccentColor, org.LogoURL, org.AuthProvider)
	} else {
		query := `
			UPDATE organizations
			SET name = ?, primary_color = ?, accent_color = ?, logo_url = ?, auth_provider = ?,
			    updated_at = CURRENT_TIMESTAMP
			WHERE id = ?
		`
		_, err = r.db.Exec(query, org.Name, org.PrimaryColor, org.AccentColor, org.LogoURL, org.AuthProvider, org.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to upsert organization: %w", err)
	}
	return nil
}

// ListSchools retrieves the school names configured for an organization
func (r *OrgRepository) ListSchools(orgID string) ([]string, error) {
	query := "SELECT name FROM schools WHERE org_id = ? ORDER BY name ASC"
	rows, err := r.db.Query(query, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to query schools: %w", err)
	}
	defer rows.Close()

	var schools []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan school: %w", err)
		}
		schools = append(schools, name)
	}

	return schools, rows.Err()
}

// AddSchool adds a school name to an organization's list, ignoring duplicates
func (r *OrgRepository) AddSchool(orgID, name string) error {
	var count int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM schools WHERE org_id = ? AND name = ?", orgID, name).Scan(&count); err != nil {
		return fmt.Errorf("failed to check school: %w", err)
	}
	if count > 0 {
		return nil
	}
	if _, err := r.db.Exec("INSERT INTO schools (org_id, name) VALUES (?, ?)", orgID, name); err != nil {
		return fmt.Errorf("failed to add school: %w", err)
	}
	return nil
}

// RemoveSchool removes a school name from an organization's list
func (r *OrgRepository) RemoveSchool(orgID, name string) error {
	if _, err := r.db.Exec("DELETE FROM schools WHERE org_id = ? AND name = ?", orgID, name); err != nil {
		return fmt.Errorf("failed to remove school: %w", err)
	}
	return nil
}

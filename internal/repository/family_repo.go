package repository

import (
	"database/sql"
	"fmt"
	"log"

	"readrise/internal/database"
	"readrise/internal/models"
)

// FamilyRepository handles database operations for families and their
// contained kids
type FamilyRepository struct {
	db *database.DB
}

// NewFamilyRepository creates a new family repository
func NewFamilyRepository(db *database.DB) *FamilyRepository {
	return &FamilyRepository{db: db}
}

// UpsertFamily creates a family record or updates the parent name of an
// existing one. Contained kids are preserved on update.
func (r *FamilyRepository) UpsertFamily(orgID, code, parentName string) (*models.Family, error) {
	existing, err := r.GetFamilyByCode(code)
	if err != nil {
		return nil, err
	}

	if existing == nil {
		query := "INSERT INTO families (code, org_id, parent_name) VALUES (?, ?, ?)"
		if _, err := r.db.Exec(query, code, orgID, parentName); err != nil {
			return nil, fmt.Errorf("failed to create family: %w", err)
		}
	} else {
		query := "UPDATE families SET parent_name = ?, updated_at = CURRENT_TIMESTAMP WHERE code = ?"
		if _, err := r.db.Exec(query, parentName, code); err != nil {
			return nil, fmt.Errorf("failed to update family: %w", err)
		}
	}

	return r.GetFamilyByCode(code)
}

// GetFamilyByCode retrieves a family with its kids, or nil if absent
func (r *FamilyRepository) GetFamilyByCode(code string) (*models.Family, error) {
	query := "SELECT code, org_id, parent_name, created_at, updated_at FROM families WHERE code = ?"
	family := &models.Family{}
	err := r.db.QueryRow(query, code).Scan(
		&family.Code,
		&family.OrgID,
		&family.ParentName,
		&family.CreatedAt,
		&family.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get family: %w", err)
	}

	kids, err := r.getKids("WHERE family_code = ?", code)
	if err != nil {
		return nil, err
	}
	family.Kids = kids

	return family, nil
}

// ListFamilies retrieves every family in an organization with kids loaded.
// An empty orgID lists all families (single-tenant mode).
func (r *FamilyRepository) ListFamilies(orgID string) ([]models.Family, error) {
	query := "SELECT code, org_id, parent_name, created_at, updated_at FROM families"
	args := []interface{}{}
	if orgID != "" {
		query += " WHERE org_id = ?"
		args = append(args, orgID)
	}
	query += " ORDER BY code ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query families: %w", err)
	}
	defer rows.Close()

	var families []models.Family
	for rows.Next() {
		var family models.Family
		if err := rows.Scan(
			&family.Code,
			&family.OrgID,
			&family.ParentName,
			&family.CreatedAt,
			&family.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan family: %w", err)
		}
		families = append(families, family)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range families {
		kids, err := r.getKids("WHERE family_code = ?", families[i].Code)
		if err != nil {
			return nil, err
		}
		families[i].Kids = kids
	}

	return families, nil
}

// FindKidByNormalizedName returns the kid owning the given normalized name,
// searching across all families, or nil if the name is unused.
func (r *FamilyRepository) FindKidByNormalizedName(normalized string) (*models.Kid, error) {
	kids, err := r.getKids("WHERE normalized_name = ?", normalized)
	if err != nil {
		return nil, err
	}
	if len(kids) == 0 {
		return nil, nil
	}
	return &kids[0], nil
}

// DeleteFamily removes a family and cascades every contained kid's side
// tables (added goals, reading logs, weekly completions, reading sessions,
// redemptions) in one transaction. Returns the deleted kid ids; nil with no
// error means the family did not exist (no-op).
func (r *FamilyRepository) DeleteFamily(code string) ([]string, error) {
	family, err := r.GetFamilyByCode(code)
	if err != nil {
		return nil, err
	}
	if family == nil {
		return nil, nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	kidIDs := make([]string, 0, len(family.Kids))
	for _, kid := range family.Kids {
		if err := deleteKidCascade(tx, kid.ID); err != nil {
			return nil, err
		}
		kidIDs = append(kidIDs, kid.ID)
	}

	if _, err := tx.Exec("DELETE FROM families WHERE code = ?", code); err != nil {
		return nil, fmt.Errorf("failed to delete family: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return kidIDs, nil
}

// getKids loads kid rows matching a WHERE clause, ordered by their position
// within the family. Rows with an unknown reading level are quarantined.
func (r *FamilyRepository) getKids(where string, args ...interface{}) ([]models.Kid, error) {
	query := `
		SELECT id, family_code, org_id, name, age, gender, ethnicity, grade,
		       reading_level, school, created_at, updated_at
		FROM kids ` + where + `
		ORDER BY position ASC, created_at ASC
	`
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query kids: %w", err)
	}
	defer rows.Close()

	var kids []models.Kid
	for rows.Next() {
		var kid models.Kid
		if err := rows.Scan(
			&kid.ID,
			&kid.FamilyCode,
			&kid.OrgID,
			&kid.Name,
			&kid.Age,
			&kid.Gender,
			&kid.Ethnicity,
			&kid.Grade,
			&kid.ReadingLevel,
			&kid.School,
			&kid.CreatedAt,
			&kid.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan kid: %w", err)
		}
		if !kid.ReadingLevel.Valid() {
			log.Printf("Quarantined kid %s: unknown reading level %q", kid.ID, kid.ReadingLevel)
			continue
		}
		kids = append(kids, kid)
	}

	return kids, rows.Err()
}

// deleteKidCascade removes a kid row and every record keyed by its id.
// Shared by family and kid deletion so the cascade set stays in one place.
func deleteKidCascade(tx database.DBTX, kidID string) error {
	cascades := []string{
		"DELETE FROM added_goals WHERE kid_id = ?",
		"DELETE FROM weekly_completions WHERE kid_id = ?",
		"DELETE FROM reading_logs WHERE kid_id = ?",
		"DELETE FROM reading_sessions WHERE kid_id = ?",
		"DELETE FROM redemptions WHERE kid_id = ?",
		"DELETE FROM kids WHERE id = ?",
	}
	for _, query := range cascades {
		if _, err := tx.Exec(query, kidID); err != nil {
			return fmt.Errorf("failed to cascade kid delete: %w", err)
		}
	}
	return nil
}

package repository

import (
	"database/sql"
	"fmt"

	"readrise/internal/database"
	"readrise/internal/models"
	"readrise/internal/textkey"
)

// KidRepository handles database operations for kids
type KidRepository struct {
	db *database.DB
}

// NewKidRepository creates a new kid repository
func NewKidRepository(db *database.DB) *KidRepository {
	return &KidRepository{db: db}
}

// CreateKid appends a kid to a family's kid list. The normalized name is
// stored alongside the display name so cross-family uniqueness checks are a
// single indexed lookup.
func (r *KidRepository) CreateKid(kid *models.Kid) error {
	var position int
	posQuery := "SELECT COALESCE(MAX(position), -1) + 1 FROM kids WHERE family_code = ?"
	if err := r.db.QueryRow(posQuery, kid.FamilyCode).Scan(&position); err != nil {
		return fmt.Errorf("failed to compute kid position: %w", err)
	}

	query := `
		INSERT INTO kids (id, family_code, org_id, name, normalized_name, age,
		                  gender, ethnicity, grade, reading_level, school, position)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.Exec(query,
		kid.ID,
		kid.FamilyCode,
		kid.OrgID,
		kid.Name,
		textkey.Normalize(kid.Name),
		kid.Age,
		kid.Gender,
		kid.Ethnicity,
		kid.Grade,
		kid.ReadingLevel,
		kid.School,
		position,
	)
	if err != nil {
		return fmt.Errorf("failed to create kid: %w", err)
	}
	return nil
}

// GetKidByID retrieves a kid by id, or nil if absent
func (r *KidRepository) GetKidByID(kidID string) (*models.Kid, error) {
	query := `
		SELECT id, family_code, org_id, name, age, gender, ethnicity, grade,
		       reading_level, school, created_at, updated_at
		FROM kids WHERE id = ?
	`
	kid := &models.Kid{}
	err := r.db.QueryRow(query, kidID).Scan(
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
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get kid: %w", err)
	}

	return kid, nil
}

// UpdateKid updates a kid's editable fields. The normalized name is kept in
// step with the display name.
func (r *KidRepository) UpdateKid(kid *models.Kid) error {
	query := `
		UPDATE kids
		SET name = ?, normalized_name = ?, age = ?, gender = ?, ethnicity = ?,
		    grade = ?, reading_level = ?, school = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`
	_, err := r.db.Exec(query,
		kid.Name,
		textkey.Normalize(kid.Name),
		kid.Age,
		kid.Gender,
		kid.Ethnicity,
		kid.Grade,
		kid.ReadingLevel,
		kid.School,
		kid.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update kid: %w", err)
	}
	return nil
}

// DeleteKid removes a kid and every record keyed by its id in one
// transaction. Reports whether a kid was actually deleted.
func (r *KidRepository) DeleteKid(kidID string) (bool, error) {
	kid, err := r.GetKidByID(kidID)
	if err != nil {
		return false, err
	}
	if kid == nil {
		return false, nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := deleteKidCascade(tx, kidID); err != nil {
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return true, nil
}

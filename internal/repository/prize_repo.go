package repository

import (
	"database/sql"
	"fmt"

	"readrise/internal/database"
	"readrise/internal/models"
)

// PrizeRepository handles database operations for the prize shop
type PrizeRepository struct {
	db *database.DB
}

// NewPrizeRepository creates a new prize repository
func NewPrizeRepository(db *database.DB) *PrizeRepository {
	return &PrizeRepository{db: db}
}

// ListPrizes retrieves an organization's prize catalog, cheapest first
func (r *PrizeRepository) ListPrizes(orgID string) ([]models.Prize, error) {
	query := `
		SELECT id, org_id, title, points_required, description, icon
		FROM prizes
		WHERE org_id = ?
		ORDER BY points_required ASC, id ASC
	`
	rows, err := r.db.Query(query, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to query prizes: %w", err)
	}
	defer rows.Close()

	var prizes []models.Prize
	for rows.Next() {
		var p models.Prize
		if err := rows.Scan(&p.ID, &p.OrgID, &p.Title, &p.PointsRequired, &p.Description, &p.Icon); err != nil {
			return nil, fmt.Errorf("failed to scan prize: %w", err)
		}
		prizes = append(prizes, p)
	}

	return prizes, rows.Err()
}

// GetPrize retrieves one prize, or nil if absent
func (r *PrizeRepository) GetPrize(prizeID int64) (*models.Prize, error) {
	query := "SELECT id, org_id, title, points_required, description, icon FROM prizes WHERE id = ?"
	p := &models.Prize{}
	err := r.db.QueryRow(query, prizeID).Scan(&p.ID, &p.OrgID, &p.Title, &p.PointsRequired, &p.Description, &p.Icon)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get prize: %w", err)
	}
	return p, nil
}

// CreatePrize adds a prize to an organization's catalog
func (r *PrizeRepository) CreatePrize(prize *models.Prize) error {
	id, err := r.db.ExecReturningID(
		"INSERT INTO prizes (org_id, title, points_required, description, icon) VALUES (?, ?, ?, ?, ?)",
		prize.OrgID, prize.Title, prize.PointsRequired, prize.Description, prize.Icon,
	)
	if err != nil {
		return fmt.Errorf("failed to create prize: %w", err)
	}
	prize.ID = id
	return nil
}

// DeletePrize removes a prize from the catalog
func (r *PrizeRepository) DeletePrize(prizeID int64) error {
	if _, err := r.db.Exec("DELETE FROM prizes WHERE id = ?", prizeID); err != nil {
		return fmt.Errorf("failed to delete prize: %w", err)
	}
	return nil
}

// CountPrizes returns the catalog size for an organization, used to decide
// whether to seed defaults
func (r *PrizeRepository) CountPrizes(orgID string) (int, error) {
	var count int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM prizes WHERE org_id = ?", orgID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count prizes: %w", err)
	}
	return count, nil
}

// CreateRedemption records a kid spending points on a prize
func (r *PrizeRepository) CreateRedemption(kidID string, prizeID int64, points int) error {
	_, err := r.db.Exec(
		"INSERT INTO redemptions (kid_id, prize_id, points) VALUES (?, ?, ?)",
		kidID, prizeID, points,
	)
	if err != nil {
		return fmt.Errorf("failed to create redemption: %w", err)
	}
	return nil
}

// PointsSpent sums the points a kid has already redeemed
func (r *PrizeRepository) PointsSpent(kidID string) (int, error) {
	var total int
	err := r.db.QueryRow(
		"SELECT COALESCE(SUM(points), 0) FROM redemptions WHERE kid_id = ?", kidID,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to sum redeemed points: %w", err)
	}
	return total, nil
}

// ListRedemptions retrieves a kid's redemption history, most recent first
func (r *PrizeRepository) ListRedemptions(kidID string) ([]models.Redemption, error) {
	query := `
		SELECT id, kid_id, prize_id, points, redeemed_at
		FROM redemptions
		WHERE kid_id = ?
		ORDER BY redeemed_at DESC
	`
	rows, err := r.db.Query(query, kidID)
	if err != nil {
		return nil, fmt.Errorf("failed to query redemptions: %w", err)
	}
	defer rows.Close()

	var redemptions []models.Redemption
	for rows.Next() {
		var red models.Redemption
		if err := rows.Scan(&red.ID, &red.KidID, &red.PrizeID, &red.Points, &red.RedeemedAt); err != nil {
			return nil, fmt.Errorf("failed to scan redemption: %w", err)
		}
		redemptions = append(redemptions, red)
	}

	return redemptions, rows.Err()
}

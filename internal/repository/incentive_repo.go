package repository

import (
	"fmt"

	"readrise/internal/database"
	"readrise/internal/models"
)

// IncentiveRepository handles database operations for the per-month
// incentive lists
type IncentiveRepository struct {
	db *database.DB
}

// NewIncentiveRepository creates a new incentive repository
func NewIncentiveRepository(db *database.DB) *IncentiveRepository {
	return &IncentiveRepository{db: db}
}

// GetMonth retrieves the ordered incentive list for one month bucket. A
// month with no incentives yields an empty list, never nil items for
// callers that append.
func (r *IncentiveRepository) GetMonth(orgID, monthKey string) (*models.IncentiveList, error) {
	query := `
		SELECT item FROM incentives
		WHERE org_id = ? AND month_key = ?
		ORDER BY position ASC
	`
	rows, err := r.db.Query(query, orgID, monthKey)
	if err != nil {
		return nil, fmt.Errorf("failed to query incentives: %w", err)
	}
	defer rows.Close()

	list := &models.IncentiveList{OrgID: orgID, MonthKey: monthKey}
	for rows.Next() {
		var item string
		if err := rows.Scan(&item); err != nil {
			return nil, fmt.Errorf("failed to scan incentive: %w", err)
		}
		list.Items = append(list.Items, item)
	}

	return list, rows.Err()
}

// ReplaceMonth overwrites the incentive list for one month bucket in a
// single transaction. This is the write half of every read-modify-write.
func (r *IncentiveRepository) ReplaceMonth(orgID, monthKey string, items []string) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM incentives WHERE org_id = ? AND month_key = ?", orgID, monthKey); err != nil {
		return fmt.Errorf("failed to clear incentives: %w", err)
	}

	for i, item := range items {
		_, err := tx.Exec(
			"INSERT INTO incentives (org_id, month_key, position, item) VALUES (?, ?, ?, ?)",
			orgID, monthKey, i, item,
		)
		if err != nil {
			return fmt.Errorf("failed to insert incentive: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ListMonths retrieves every month bucket for an organization, used by the
// backup exporter
func (r *IncentiveRepository) ListMonths(orgID string) ([]models.IncentiveList, error) {
	query := `
		SELECT month_key, item FROM incentives
		WHERE org_id = ?
		ORDER BY month_key ASC, position ASC
	`
	rows, err := r.db.Query(query, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to query incentives: %w", err)
	}
	defer rows.Close()

	var lists []models.IncentiveList
	byMonth := map[string]int{}
	for rows.Next() {
		var monthKey, item string
		if err := rows.Scan(&monthKey, &item); err != nil {
			return nil, fmt.Errorf("failed to scan incentive: %w", err)
		}
		idx, ok := byMonth[monthKey]
		if !ok {
			lists = append(lists, models.IncentiveList{OrgID: orgID, MonthKey: monthKey})
			idx = len(lists) - 1
			byMonth[monthKey] = idx
		}
		lists[idx].Items = append(lists[idx].Items, item)
	}

	return lists, rows.Err()
}

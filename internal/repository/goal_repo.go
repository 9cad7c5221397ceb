package repository

import (
	"fmt"

	"readrise/internal/database"
	"readrise/internal/models"
)

// GoalRepository handles database operations for the grade-goal catalog,
// per-kid added goals and weekly completion records
type GoalRepository struct {
	db *database.DB
}

// NewGoalRepository creates a new goal repository
func NewGoalRepository(db *database.DB) *GoalRepository {
	return &GoalRepository{db: db}
}

// --- grade-goal catalog ---

// ListGradeGoals retrieves the base goals for one reading level
func (r *GoalRepository) ListGradeGoals(level models.ReadingLevel) ([]models.GradeGoal, error) {
	return r.queryGradeGoals("WHERE reading_level = ? ORDER BY id ASC", level)
}

// ListAllGradeGoals retrieves the full catalog, ordered by level then id
func (r *GoalRepository) ListAllGradeGoals() ([]models.GradeGoal, error) {
	return r.queryGradeGoals("ORDER BY reading_level ASC, id ASC")
}

func (r *GoalRepository) queryGradeGoals(clause string, args ...interface{}) ([]models.GradeGoal, error) {
	rows, err := r.db.Query("SELECT id, reading_level, text FROM grade_goals "+clause, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query grade goals: %w", err)
	}
	defer rows.Close()

	var goals []models.GradeGoal
	for rows.Next() {
		var g models.GradeGoal
		if err := rows.Scan(&g.ID, &g.ReadingLevel, &g.Text); err != nil {
			return nil, fmt.Errorf("failed to scan grade goal: %w", err)
		}
		goals = append(goals, g)
	}

	return goals, rows.Err()
}

// CreateGradeGoal adds a base goal to a reading level's catalog
func (r *GoalRepository) CreateGradeGoal(level models.ReadingLevel, text string) (*models.GradeGoal, error) {
	id, err := r.db.ExecReturningID("INSERT INTO grade_goals (reading_level, text) VALUES (?, ?)", level, text)
	if err != nil {
		return nil, fmt.Errorf("failed to create grade goal: %w", err)
	}
	return &models.GradeGoal{ID: id, ReadingLevel: level, Text: text}, nil
}

// DeleteGradeGoal removes a base goal from the catalog
func (r *GoalRepository) DeleteGradeGoal(goalID int64) error {
	if _, err := r.db.Exec("DELETE FROM grade_goals WHERE id = ?", goalID); err != nil {
		return fmt.Errorf("failed to delete grade goal: %w", err)
	}
	return nil
}

// CountGradeGoals returns the catalog size, used to decide whether to seed
func (r *GoalRepository) CountGradeGoals() (int, error) {
	var count int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM grade_goals").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count grade goals: %w", err)
	}
	return count, nil
}

// --- per-kid added goals ---

// ListAddedGoals retrieves the admin-added goals for one kid
func (r *GoalRepository) ListAddedGoals(kidID string) ([]models.AddedGoal, error) {
	rows, err := r.db.Query("SELECT id, kid_id, text FROM added_goals WHERE kid_id = ? ORDER BY id ASC", kidID)
	if err != nil {
		return nil, fmt.Errorf("failed to query added goals: %w", err)
	}
	defer rows.Close()

	var goals []models.AddedGoal
	for rows.Next() {
		var g models.AddedGoal
		if err := rows.Scan(&g.ID, &g.KidID, &g.Text); err != nil {
			return nil, fmt.Errorf("failed to scan added goal: %w", err)
		}
		goals = append(goals, g)
	}

	return goals, rows.Err()
}

// ListAllAddedGoals retrieves every added goal, used by the backup exporter
func (r *GoalRepository) ListAllAddedGoals() ([]models.AddedGoal, error) {
	rows, err := r.db.Query("SELECT id, kid_id, text FROM added_goals ORDER BY kid_id ASC, id ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query added goals: %w", err)
	}
	defer rows.Close()

	var goals []models.AddedGoal
	for rows.Next() {
		var g models.AddedGoal
		if err := rows.Scan(&g.ID, &g.KidID, &g.Text); err != nil {
			return nil, fmt.Errorf("failed to scan added goal: %w", err)
		}
		goals = append(goals, g)
	}

	return goals, rows.Err()
}

// CreateAddedGoal assigns a goal to one kid
func (r *GoalRepository) CreateAddedGoal(kidID, text string) (*models.AddedGoal, error) {
	id, err := r.db.ExecReturningID("INSERT INTO added_goals (kid_id, text) VALUES (?, ?)", kidID, text)
	if err != nil {
		return nil, fmt.Errorf("failed to create added goal: %w", err)
	}
	return &models.AddedGoal{ID: id, KidID: kidID, Text: text}, nil
}

// DeleteAddedGoal removes one added goal
func (r *GoalRepository) DeleteAddedGoal(goalID int64) error {
	if _, err := r.db.Exec("DELETE FROM added_goals WHERE id = ?", goalID); err != nil {
		return fmt.Errorf("failed to delete added goal: %w", err)
	}
	return nil
}

// --- weekly completions ---

// GetWeeklyCompletion retrieves the completion record for one kid and week.
// A kid with no checked goals gets an empty record, never nil.
func (r *GoalRepository) GetWeeklyCompletion(kidID, weekKey string) (*models.WeeklyCompletion, error) {
	rows, err := r.db.Query(
		"SELECT goal_id, goal_kind FROM weekly_completions WHERE kid_id = ? AND week_key = ?",
		kidID, weekKey,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query weekly completion: %w", err)
	}
	defer rows.Close()

	record := &models.WeeklyCompletion{KidID: kidID, WeekKey: weekKey}
	for rows.Next() {
		var goalID int64
		var kind string
		if err := rows.Scan(&goalID, &kind); err != nil {
			return nil, fmt.Errorf("failed to scan weekly completion: %w", err)
		}
		switch kind {
		case "base":
			record.BaseDone = append(record.BaseDone, goalID)
		case "added":
			record.AddedDone = append(record.AddedDone, goalID)
		}
	}

	return record, rows.Err()
}

// ListAllWeeklyCompletions retrieves every completion record grouped by kid
// and week, used by the backup exporter
func (r *GoalRepository) ListAllWeeklyCompletions() ([]models.WeeklyCompletion, error) {
	rows, err := r.db.Query(
		"SELECT kid_id, week_key, goal_id, goal_kind FROM weekly_completions ORDER BY kid_id ASC, week_key ASC",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query weekly completions: %w", err)
	}
	defer rows.Close()

	var records []models.WeeklyCompletion
	byKey := map[string]int{}
	for rows.Next() {
		var kidID, weekKey, kind string
		var goalID int64
		if err := rows.Scan(&kidID, &weekKey, &goalID, &kind); err != nil {
			return nil, fmt.Errorf("failed to scan weekly completion: %w", err)
		}

		key := kidID + "|" + weekKey
		idx, ok := byKey[key]
		if !ok {
			records = append(records, models.WeeklyCompletion{KidID: kidID, WeekKey: weekKey})
			idx = len(records) - 1
			byKey[key] = idx
		}
		switch kind {
		case "base":
			records[idx].BaseDone = append(records[idx].BaseDone, goalID)
		case "added":
			records[idx].AddedDone = append(records[idx].AddedDone, goalID)
		}
	}

	return records, rows.Err()
}

// SetGoalDone records or clears one goal checkbox for a kid's week
func (r *GoalRepository) SetGoalDone(kidID, weekKey string, goalID int64, kind string, done bool) error {
	if kind != "base" && kind != "added" {
		return fmt.Errorf("unknown goal kind %q", kind)
	}

	if !done {
		_, err := r.db.Exec(
			"DELETE FROM weekly_completions WHERE kid_id = ? AND week_key = ? AND goal_id = ? AND goal_kind = ?",
			kidID, weekKey, goalID, kind,
		)
		if err != nil {
			return fmt.Errorf("failed to clear goal completion: %w", err)
		}
		return nil
	}

	var count int
	err := r.db.QueryRow(
		"SELECT COUNT(*) FROM weekly_completions WHERE kid_id = ? AND week_key = ? AND goal_id = ? AND goal_kind = ?",
		kidID, weekKey, goalID, kind,
	).Scan(&count)
	if err != nil {
		return fmt.Errorf("failed to check goal completion: %w", err)
	}
	if count > 0 {
		return nil
	}

	_, err = r.db.Exec(
		"INSERT INTO weekly_completions (kid_id, week_key, goal_id, goal_kind) VALUES (?, ?, ?, ?)",
		kidID, weekKey, goalID, kind,
	)
	if err != nil {
		return fmt.Errorf("failed to record goal completion: %w", err)
	}
	return nil
}

// ListWeekKeys returns the distinct week keys that have any completion
// row for a kid. Whether each week's checklist is actually complete is
// decided per week by the goal derivation, not here.
func (r *GoalRepository) ListWeekKeys(kidID string) ([]string, error) {
	rows, err := r.db.Query(
		"SELECT DISTINCT week_key FROM weekly_completions WHERE kid_id = ? ORDER BY week_key",
		kidID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list week keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan week key: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

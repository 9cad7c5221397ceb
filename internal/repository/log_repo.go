package repository

import (
	"fmt"
	"log"

	"readrise/internal/database"
	"readrise/internal/models"
)

// LogRepository handles database operations for reading-log entries and
// reading-test sessions
type LogRepository struct {
	db *database.DB
}

// NewLogRepository creates a new log repository
func NewLogRepository(db *database.DB) *LogRepository {
	return &LogRepository{db: db}
}

// CreateLogEntry prepends a reading-log entry for a kid. Ordering is by
// logged_at descending, so insertion order does not matter.
func (r *LogRepository) CreateLogEntry(entry *models.ReadingLogEntry) error {
	query := `
		INSERT INTO reading_logs (id, kid_id, logged_at, display_date, title, author, minutes, pages, mood)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.Exec(query,
		entry.ID,
		entry.KidID,
		entry.LoggedAt,
		entry.DisplayDate,
		entry.Title,
		entry.Author,
		entry.Minutes,
		entry.Pages,
		entry.Mood,
	)
	if err != nil {
		return fmt.Errorf("failed to create log entry: %w", err)
	}
	return nil
}

// ListLogEntries retrieves a kid's reading log, most recent first. Rows
// with an unknown mood are quarantined.
func (r *LogRepository) ListLogEntries(kidID string) ([]models.ReadingLogEntry, error) {
	return r.queryLogEntries("WHERE kid_id = ? ORDER BY logged_at DESC", kidID)
}

// ListAllLogEntries retrieves every log entry, used by the backup exporter
func (r *LogRepository) ListAllLogEntries() ([]models.ReadingLogEntry, error) {
	return r.queryLogEntries("ORDER BY kid_id ASC, logged_at DESC")
}

func (r *LogRepository) queryLogEntries(clause string, args ...interface{}) ([]models.ReadingLogEntry, error) {
	query := `
		SELECT id, kid_id, logged_at, display_date, title, author, minutes, pages, mood
		FROM reading_logs ` + clause
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query reading logs: %w", err)
	}
	defer rows.Close()

	var entries []models.ReadingLogEntry
	for rows.Next() {
		var e models.ReadingLogEntry
		if err := rows.Scan(
			&e.ID,
			&e.KidID,
			&e.LoggedAt,
			&e.DisplayDate,
			&e.Title,
			&e.Author,
			&e.Minutes,
			&e.Pages,
			&e.Mood,
		); err != nil {
			return nil, fmt.Errorf("failed to scan reading log: %w", err)
		}
		if !e.Mood.Valid() {
			log.Printf("Quarantined reading log %s: unknown mood %q", e.ID, e.Mood)
			continue
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// MinutesTotal sums the minutes logged for a kid
func (r *LogRepository) MinutesTotal(kidID string) (int, error) {
	var total int
	err := r.db.QueryRow(
		"SELECT COALESCE(SUM(minutes), 0) FROM reading_logs WHERE kid_id = ?", kidID,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to sum minutes: %w", err)
	}
	return total, nil
}

// PagesTotal sums the pages logged for a kid
func (r *LogRepository) PagesTotal(kidID string) (int, error) {
	var total int
	err := r.db.QueryRow(
		"SELECT COALESCE(SUM(pages), 0) FROM reading_logs WHERE kid_id = ?", kidID,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to sum pages: %w", err)
	}
	return total, nil
}

// --- reading-test sessions ---

// AppendReadingSession stores a reading-test transcript. Sessions are
// append-only and never mutated.
func (r *LogRepository) AppendReadingSession(session *models.ReadingSession) error {
	query := "INSERT INTO reading_sessions (id, kid_id, org_id, transcript, date) VALUES (?, ?, ?, ?, ?)"
	_, err := r.db.Exec(query, session.ID, session.KidID, session.OrgID, session.Transcript, session.Date)
	if err != nil {
		return fmt.Errorf("failed to append reading session: %w", err)
	}
	return nil
}

// ListReadingSessions retrieves an organization's reading-test sessions,
// most recent first
func (r *LogRepository) ListReadingSessions(orgID string) ([]models.ReadingSession, error) {
	query := `
		SELECT id, kid_id, org_id, transcript, date
		FROM reading_sessions
		WHERE org_id = ?
		ORDER BY date DESC
	`
	rows, err := r.db.Query(query, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to query reading sessions: %w", err)
	}
	defer rows.Close()

	var sessions []models.ReadingSession
	for rows.Next() {
		var s models.ReadingSession
		if err := rows.Scan(&s.ID, &s.KidID, &s.OrgID, &s.Transcript, &s.Date); err != nil {
			return nil, fmt.Errorf("failed to scan reading session: %w", err)
		}
		sessions = append(sessions, s)
	}

	return sessions, rows.Err()
}

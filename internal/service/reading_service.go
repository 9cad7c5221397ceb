package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"readrise/internal/models"
	"readrise/internal/repository"
	"readrise/internal/textkey"
	"readrise/internal/validation"
)

// KidStats is the derived dashboard summary for one kid
type KidStats struct {
	MinutesTotal int
	PagesTotal   int
	UniqueBooks  int
}

// ReadingService owns reading-log entries, derived reading stats and the
// read-aloud session transcripts
type ReadingService struct {
	logRepo *repository.LogRepository
	kidRepo *repository.KidRepository
	now     func() time.Time
}

// NewReadingService creates a new reading service
func NewReadingService(logRepo *repository.LogRepository, kidRepo *repository.KidRepository) *ReadingService {
	return &ReadingService{
		logRepo: logRepo,
		kidRepo: kidRepo,
		now:     time.Now,
	}
}

// LogReading validates and appends one reading-log entry for a kid
func (s *ReadingService) LogReading(kidID, title, author string, minutes, pages int, mood models.Mood) (*models.ReadingLogEntry, error) {
	kid, err := s.kidRepo.GetKidByID(kidID)
	if err != nil {
		return nil, err
	}
	if kid == nil {
		return nil, ErrKidNotFound
	}

	title = strings.TrimSpace(title)
	author = strings.TrimSpace(author)
	if verr := validation.ValidateLogEntry(title, minutes, pages, mood); verr != nil {
		return nil, verr
	}

	now := s.now()
	entry := &models.ReadingLogEntry{
		ID:          uuid.New().String(),
		KidID:       kidID,
		LoggedAt:    now,
		DisplayDate: textkey.PrettyDate(now),
		Title:       title,
		Author:      author,
		Minutes:     minutes,
		Pages:       pages,
		Mood:        mood,
	}
	if err := s.logRepo.CreateLogEntry(entry); err != nil {
		return nil, fmt.Errorf("failed to save reading log: %w", err)
	}

	return entry, nil
}

// Log lists a kid's reading-log entries, most recent first
func (s *ReadingService) Log(kidID string) ([]models.ReadingLogEntry, error) {
	return s.logRepo.ListLogEntries(kidID)
}

// Stats derives the dashboard totals for one kid. Unique books are
// counted by normalized title and author, so retyped capitalization or
// stray punctuation does not double count a book.
func (s *ReadingService) Stats(kidID string) (*KidStats, error) {
	entries, err := s.logRepo.ListLogEntries(kidID)
	if err != nil {
		return nil, err
	}

	stats := &KidStats{}
	books := make(map[string]struct{})
	for _, e := range entries {
		stats.MinutesTotal += e.Minutes
		stats.PagesTotal += e.Pages
		books[textkey.BookKey(e.Title, e.Author)] = struct{}{}
	}
	stats.UniqueBooks = len(books)

	return stats, nil
}

// RecordSession appends a read-aloud session transcript. Transcripts are
// append-only; there is no edit or delete path.
func (s *ReadingService) RecordSession(kidID, orgID, transcript string) (*models.ReadingSession, error) {
	kid, err := s.kidRepo.GetKidByID(kidID)
	if err != nil {
		return nil, err
	}
	if kid == nil {
		return nil, ErrKidNotFound
	}

	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return nil, fmt.Errorf("transcript is empty")
	}

	session := &models.ReadingSession{
		ID:         uuid.New().String(),
		KidID:      kidID,
		OrgID:      orgID,
		Transcript: transcript,
		Date:       s.now(),
	}
	if err := s.logRepo.AppendReadingSession(session); err != nil {
		return nil, fmt.Errorf("failed to save reading session: %w", err)
	}

	return session, nil
}

// Sessions lists an organization's recorded read-aloud sessions
func (s *ReadingService) Sessions(orgID string) ([]models.ReadingSession, error) {
	return s.logRepo.ListReadingSessions(orgID)
}

package models

import "time"

// ReadingLevel is a pedagogical level, distinct from grade level. It drives
// which base-goal catalog applies to a kid.
type ReadingLevel string

// ReadingLevels is the fixed ordered set of levels, lowest first.
var ReadingLevels = []ReadingLevel{"K", "1st", "2nd", "3rd", "4th", "5th"}

// Valid reports whether the level is one of the fixed set.
func (l ReadingLevel) Valid() bool {
	for _, known := range ReadingLevels {
		if l == known {
			return true
		}
	}
	return false
}

// Kid is a child profile. The id is generated at creation time and is the
// key for every side table (added goals, reading logs, weekly completions).
type Kid struct {
	ID           string
	FamilyCode   string
	OrgID        string
	Name         string
	Age          int
	Gender       string
	Ethnicity    string
	Grade        string
	ReadingLevel ReadingLevel
	School       string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// KidWithStats combines a kid with derived reading statistics for the
// parent dashboard.
type KidWithStats struct {
	Kid          Kid
	MinutesTotal int
	PagesTotal   int
	UniqueBooks  int
	Points       int
	WeekComplete bool
}

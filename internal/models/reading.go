package models

import "time"

// Mood is how a kid felt about a reading session.
type Mood string

const (
	MoodLoved Mood = "loved"
	MoodGood  Mood = "good"
	MoodOkay  Mood = "okay"
	MoodTough Mood = "tough"
)

// Valid reports whether the mood is one of the four sentiment tags.
func (m Mood) Valid() bool {
	switch m {
	case MoodLoved, MoodGood, MoodOkay, MoodTough:
		return true
	}
	return false
}

// ReadingLogEntry is one logged reading session for a kid. Entries are kept
// most recent first.
type ReadingLogEntry struct {
	ID          string
	KidID       string
	LoggedAt    time.Time
	DisplayDate string
	Title       string
	Author      string
	Minutes     int
	Pages       int
	Mood        Mood
}

// ReadingSession is an append-only transcript captured during a reading
// test. Sessions are never mutated after creation.
type ReadingSession struct {
	ID         string
	KidID      string
	OrgID      string
	Transcript string
	Date       time.Time
}

package textkey

import (
	"fmt"
	"strings"
	"time"
	"unicode"
)

// WeekKey returns the ISO-8601 week bucket for a date, e.g. "2025-W34".
// Week 1 is the week containing the first Thursday of the year and weeks
// start on Monday, so the key is stable for every day of a Monday-Sunday
// week and never depends on locale.
func WeekKey(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%d", year, week)
}

// MonthKey returns the zero-padded month bucket for a date, e.g. "2025-08".
func MonthKey(t time.Time) string {
	return t.Format("2006-01")
}

// MonthLabel returns a human-readable month name for a month bucket,
// e.g. "August 2025".
func MonthLabel(t time.Time) string {
	return t.Format("January 2006")
}

// PrettyDate formats a timestamp for display in reading logs.
func PrettyDate(t time.Time) string {
	return t.Format("Mon, Jan 2 2006")
}

// Normalize canonicalizes free text for identity comparison: trim, lower
// case, collapse internal whitespace, and strip every rune that is not a
// letter, digit or space. Letters are Unicode-aware, so accents survive
// ("Café" and "cafe" stay distinct) while punctuation and casing do not.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(unicode.ToLower(r))
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// BookKey derives a case, whitespace and punctuation insensitive identity
// for a book, used to count unique books per kid.
func BookKey(title, author string) string {
	return Normalize(title) + "|" + Normalize(author)
}

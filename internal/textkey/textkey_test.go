package textkey

import (
	"regexp"
	"testing"
	"time"
)

func TestWeekKeyFormat(t *testing.T) {
	pattern := regexp.MustCompile(`^\d{4}-W\d{1,2}$`)

	dates := []time.Time{
		time.Date(2025, 8, 31, 12, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 12, 31, 23, 59, 59, 0, time.UTC),
		time.Date(2021, 1, 3, 0, 0, 0, 0, time.UTC),
	}

	for _, d := range dates {
		key := WeekKey(d)
		if !pattern.MatchString(key) {
			t.Errorf("WeekKey(%v) = %q, want match for %s", d, key, pattern)
		}
	}
}

func TestWeekKeyISOBoundaries(t *testing.T) {
	tests := []struct {
		name string
		date time.Time
		want string
	}{
		{
			// Jan 1 2021 is a Friday, ISO week 53 of 2020
			name: "january belongs to previous ISO year",
			date: time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC),
			want: "2020-W53",
		},
		{
			// Dec 29 2025 is a Monday, ISO week 1 of 2026
			name: "december belongs to next ISO year",
			date: time.Date(2025, 12, 29, 0, 0, 0, 0, time.UTC),
			want: "2026-W1",
		},
		{
			name: "midyear week",
			date: time.Date(2025, 8, 31, 0, 0, 0, 0, time.UTC),
			want: "2025-W35",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := WeekKey(tt.date); got != tt.want {
				t.Errorf("WeekKey(%v) = %q, want %q", tt.date, got, tt.want)
			}
		})
	}
}

func TestWeekKeyStableWithinWeek(t *testing.T) {
	// Monday through Sunday of the same ISO week share one key
	monday := time.Date(2025, 8, 25, 0, 0, 0, 0, time.UTC)
	want := WeekKey(monday)
	for day := 0; day < 7; day++ {
		d := monday.AddDate(0, 0, day)
		if got := WeekKey(d); got != want {
			t.Errorf("WeekKey(%v) = %q, want %q", d, got, want)
		}
	}
	if got := WeekKey(monday.AddDate(0, 0, 7)); got == want {
		t.Errorf("next Monday should start a new week, still got %q", got)
	}
}

func TestMonthKey(t *testing.T) {
	tests := []struct {
		date time.Time
		want string
	}{
		{time.Date(2025, 8, 31, 0, 0, 0, 0, time.UTC), "2025-08"},
		{time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), "2024-01"},
		{time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC), "2023-12"},
	}

	for _, tt := range tests {
		if got := MonthKey(tt.date); got != tt.want {
			t.Errorf("MonthKey(%v) = %q, want %q", tt.date, got, tt.want)
		}
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"trim and lower", "  Alex  ", "alex"},
		{"collapse internal whitespace", "Mary   Jane", "mary jane"},
		{"strip punctuation", "O'Brien, Jr.!", "obrien jr"},
		{"accents preserved", "  Café   Rouge!!", "café rouge"},
		{"digits kept", "Grade 3B", "grade 3b"},
		{"tabs and newlines", "a\tb\nc", "a b c"},
		{"empty", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.in); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeAccentsAreSignificant(t *testing.T) {
	if Normalize("Café  Rouge!") == Normalize("cafe rouge") {
		t.Error("accented and unaccented names should not collide")
	}
	if Normalize("  Café   Rouge!!") != Normalize("café rouge") {
		t.Error("whitespace and punctuation should not be significant")
	}
}

func TestBookKey(t *testing.T) {
	a := BookKey("The Hobbit", "J.R.R. Tolkien")
	b := BookKey("the hobbit", "jrr tolkien ")
	if a != b {
		t.Errorf("BookKey mismatch: %q vs %q", a, b)
	}

	if BookKey("The Hobbit", "J.R.R. Tolkien") == BookKey("The Hobbit", "Jane Doe") {
		t.Error("different authors must produce different keys")
	}
}

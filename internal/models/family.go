package models

import "time"

// Family is a parent/household record. The human-entered family code is the
// primary key; kids are contained in the family and belong to exactly one
// family at a time.
type Family struct {
	Code       string
	ParentName string
	OrgID      string
	Kids       []Kid
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// KidByID returns the contained kid with the given id, or nil.
func (f *Family) KidByID(kidID string) *Kid {
	for i := range f.Kids {
		if f.Kids[i].ID == kidID {
			return &f.Kids[i]
		}
	}
	return nil
}

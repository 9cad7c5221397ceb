package models

// GradeGoal is a default goal assigned to every kid at a reading level.
// The catalog is admin-configurable; defaults are seeded per level.
type GradeGoal struct {
	ID           int64
	ReadingLevel ReadingLevel
	Text         string
}

// AddedGoal is an admin-assigned goal specific to one kid.
type AddedGoal struct {
	ID    int64
	KidID string
	Text  string
}

// WeeklyCompletion records which goals a kid checked off during one ISO
// calendar week. Records accumulate indefinitely; there is no expiry.
type WeeklyCompletion struct {
	KidID     string
	WeekKey   string
	BaseDone  []int64
	AddedDone []int64
}

// HasBase reports whether the given base-goal id is checked off.
func (w *WeeklyCompletion) HasBase(goalID int64) bool {
	return containsID(w.BaseDone, goalID)
}

// HasAdded reports whether the given added-goal id is checked off.
func (w *WeeklyCompletion) HasAdded(goalID int64) bool {
	return containsID(w.AddedDone, goalID)
}

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

package models

import (
	"strconv"
	"time"
)

// Score is a numeric grade. The submissions collection stores it as text
// while the grades collection stores it as a number; both serializations
// live here so call sites never cast ad hoc.
type Score float64

// ParseScore converts the submissions collection's text representation back
// into a numeric score.
func ParseScore(text string) (Score, error) {
	value, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, err
	}

	return Score(value), nil
}

// StoreText renders the score for the text-typed grade column. The shortest
// exact representation is used so 8.5 round-trips as "8.5".
func (s Score) StoreText() string {
	return strconv.FormatFloat(float64(s), 'f', -1, 64)
}

// StoreNumber renders the score for the numeric-typed grades collection.
func (s Score) StoreNumber() float64 {
	return float64(s)
}

// InRange reports whether the score falls inside the accepted grading scale.
func (s Score) InRange() bool {
	return s >= 0 && s <= 10
}

// Grade is the denormalized per-(studentName, taskId) record kept in the
// grades collection. At most one exists per pair once synchronization settles.
type Grade struct {
	ID          string
	StudentName string
	TaskID      string
	LessonID    string
	LevelID     string
	CourseID    string
	SchoolID    string
	Score       Score
	SubmittedAt time.Time
	GradedAt    time.Time
	GradedBy    string
	Feedback    string
}

// Key identifies the grade's natural compound key.
func (g Grade) Key() GradeKey {
	return GradeKey{StudentName: g.StudentName, TaskID: g.TaskID}
}

// GradeKey is the compound natural key of a grade record.
type GradeKey struct {
	StudentName string
	TaskID      string
}

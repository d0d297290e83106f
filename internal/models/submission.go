package models

import "time"

// Submission status values as stored in the record store.
const (
	SubmissionStatusPending  = "pending"
	SubmissionStatusGraded   = "graded"
	SubmissionStatusReturned = "returned"
)

// Placeholder values written when gradable content cannot be stored as-is.
// These exact strings are shown to graders in the portal, do not change them.
const (
	CodeDrawingPlaceholder     = "[Respuesta con dibujo]"
	DrawingTooLargePlaceholder = "[Dibujo muy grande - no guardado]"
)

// Submission is one (student, task) attempt. Created by student action,
// mutated only by the grading operation, deleted only administratively.
type Submission struct {
	ID           string
	TaskID       string
	StudentName  string
	StudentEmail string
	LevelID      string
	LessonID     string
	CourseID     string
	SchoolID     string
	Code         string
	Output       string
	SubmittedAt  time.Time
	Status       string
	Grade        *Score
	Feedback     string
	GradedAt     *time.Time
	GradedBy     string
	Drawing      string
	Files        []Attachment
}

// Graded reports whether a grade has been recorded for the submission.
func (s Submission) Graded() bool {
	return s.Grade != nil
}

package dto

import (
	"time"

	"github.com/aulacode/tareas-api/internal/models"
)

// SubmissionCreateRequest is the JSON payload accepted by POST /submissions.
type SubmissionCreateRequest struct {
	TaskID       string              `json:"taskId" validate:"required"`
	StudentName  string              `json:"studentName" validate:"required"`
	StudentEmail string              `json:"studentEmail" validate:"omitempty,email"`
	LevelID      string              `json:"levelId"`
	LessonID     string              `json:"lessonId"`
	CourseID     string              `json:"courseId"`
	SchoolID     string              `json:"schoolId"`
	Code         string              `json:"code"`
	Output       string              `json:"output"`
	Drawing      string              `json:"drawing"`
	Files        []AttachmentPayload `json:"files"`
}

// AttachmentPayload is a client-supplied attachment descriptor; either an
// already-hosted url or inline base64 data.
type AttachmentPayload struct {
	Name string `json:"name"`
	Type string `json:"type"`
	URL  string `json:"url"`
	Data string `json:"data"`
}

// SubmissionGradeRequest is the JSON payload accepted by PATCH /submissions.
type SubmissionGradeRequest struct {
	ID       string   `json:"id" validate:"required"`
	Grade    *float64 `json:"grade" validate:"omitempty,gte=0,lte=10"`
	Feedback *string  `json:"feedback"`
	GradedBy *string  `json:"gradedBy"`
	Status   *string  `json:"status" validate:"omitempty,oneof=pending graded returned"`
}

// SubmissionFilter describes query string filters for listing submissions.
type SubmissionFilter struct {
	LevelID  string `query:"levelId"`
	Status   string `query:"status" validate:"omitempty,oneof=pending graded returned"`
	TaskID   string `query:"taskId"`
	CourseID string `query:"courseId"`
	SchoolID string `query:"schoolId"`
}

// SubmissionResponse is returned to API clients when viewing submissions.
type SubmissionResponse struct {
	ID           string              `json:"id"`
	TaskID       string              `json:"taskId"`
	StudentName  string              `json:"studentName"`
	StudentEmail string              `json:"studentEmail"`
	LevelID      string              `json:"levelId"`
	LessonID     string              `json:"lessonId"`
	CourseID     string              `json:"courseId"`
	SchoolID     string              `json:"schoolId"`
	Code         string              `json:"code"`
	Output       string              `json:"output"`
	SubmittedAt  time.Time           `json:"submittedAt"`
	Status       string              `json:"status"`
	Grade        *float64            `json:"grade"`
	Feedback     string              `json:"feedback"`
	GradedAt     *time.Time          `json:"gradedAt"`
	GradedBy     string              `json:"gradedBy"`
	Drawing      string              `json:"drawing,omitempty"`
	Files        []AttachmentPayload `json:"files,omitempty"`
}

// NewAttachments converts client payload descriptors into the domain shape.
func NewAttachments(payloads []AttachmentPayload) []models.Attachment {
	if len(payloads) == 0 {
		return nil
	}

	attachments := make([]models.Attachment, 0, len(payloads))
	for _, p := range payloads {
		attachments = append(attachments, models.Attachment{
			Name: p.Name,
			Type: p.Type,
			URL:  p.URL,
			Data: p.Data,
		})
	}

	return attachments
}

// NewSubmissionResponse converts a Submission into its API shape.
func NewSubmissionResponse(submission models.Submission) SubmissionResponse {
	response := SubmissionResponse{
		ID:           submission.ID,
		TaskID:       submission.TaskID,
		StudentName:  submission.StudentName,
		StudentEmail: submission.StudentEmail,
		LevelID:      submission.LevelID,
		LessonID:     submission.LessonID,
		CourseID:     submission.CourseID,
		SchoolID:     submission.SchoolID,
		Code:         submission.Code,
		Output:       submission.Output,
		SubmittedAt:  submission.SubmittedAt,
		Status:       submission.Status,
		Feedback:     submission.Feedback,
		GradedAt:     submission.GradedAt,
		GradedBy:     submission.GradedBy,
		Drawing:      submission.Drawing,
	}

	if submission.Grade != nil {
		grade := submission.Grade.StoreNumber()
		response.Grade = &grade
	}

	if len(submission.Files) > 0 {
		files := make([]AttachmentPayload, 0, len(submission.Files))
		for _, attachment := range submission.Files {
			files = append(files, AttachmentPayload{
				Name: attachment.Name,
				Type: attachment.Type,
				URL:  attachment.URL,
				Data: attachment.Data,
			})
		}
		response.Files = files
	}

	return response
}

// NewSubmissionResponseSlice converts submissions into their API shape.
func NewSubmissionResponseSlice(submissions []models.Submission) []SubmissionResponse {
	responses := make([]SubmissionResponse, 0, len(submissions))
	for _, submission := range submissions {
		responses = append(responses, NewSubmissionResponse(submission))
	}

	return responses
}

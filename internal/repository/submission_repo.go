package repository

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/aulacode/tareas-api/internal/models"
	"github.com/aulacode/tareas-api/internal/recordstore"
)

// ErrMissingID indicates an operation was invoked without a record id.
var ErrMissingID = errors.New("submission id is required")

// SubmissionFilter narrows submission queries. Empty predicates are skipped.
type SubmissionFilter struct {
	LevelID  string
	Status   string
	TaskID   string
	CourseID string
	SchoolID string
}

// GradePatch carries the grading mutation. Nil fields are left untouched.
type GradePatch struct {
	Grade    *models.Score
	Feedback *string
	GradedBy *string
	Status   *string
}

// SubmissionRepository defines data operations against the submissions collection.
type SubmissionRepository interface {
	// Create persists a submission. The returned bool reports degraded mode:
	// the store rejected the drawing/files columns and the record was saved
	// without them.
	Create(ctx context.Context, submission models.Submission) (models.Submission, bool, error)
	List(ctx context.Context, filter SubmissionFilter) ([]models.Submission, error)
	GetByID(ctx context.Context, id string) (models.Submission, error)
	Patch(ctx context.Context, id string, patch GradePatch) error
	Delete(ctx context.Context, id string) error
}

type submissionRepository struct {
	store  Store
	table  string
	logger zerolog.Logger
	now    func() time.Time
}

// NewSubmissionRepository instantiates the repository over the record store.
func NewSubmissionRepository(store Store, table string, logger zerolog.Logger) SubmissionRepository {
	return &submissionRepository{
		store:  store,
		table:  table,
		logger: logger.With().Str("component", "submission_repository").Logger(),
		now:    time.Now,
	}
}

func (r *submissionRepository) Create(ctx context.Context, submission models.Submission) (models.Submission, bool, error) {
	submittedAt := submission.SubmittedAt
	if submittedAt.IsZero() {
		submittedAt = r.now()
	}

	fields := map[string]interface{}{
		fieldTaskID:       submission.TaskID,
		fieldStudentName:  submission.StudentName,
		fieldStudentEmail: submission.StudentEmail,
		fieldLevelID:      submission.LevelID,
		fieldLessonID:     submission.LessonID,
		fieldCode:         submission.Code,
		fieldOutput:       submission.Output,
		fieldSubmittedAt:  submittedAt.UTC().Format(time.RFC3339),
		fieldStatus:       models.SubmissionStatusPending,
	}

	if submission.CourseID != "" {
		fields[fieldCourseID] = submission.CourseID
	}
	if submission.SchoolID != "" {
		fields[fieldSchoolID] = submission.SchoolID
	}

	// Optional columns are never submitted empty; the store treats an empty
	// string as a value, not an absence.
	if submission.Drawing != "" {
		fields[fieldDrawing] = submission.Drawing
	}
	if len(submission.Files) > 0 {
		encoded, err := models.EncodeAttachments(submission.Files)
		if err != nil {
			return models.Submission{}, false, err
		}
		fields[fieldFiles] = encoded
	}

	record, err := r.store.Create(ctx, r.table, fields)
	if err == nil {
		return mapSubmission(record), false, nil
	}

	if !recordstore.IsUnknownFieldError(err) {
		return models.Submission{}, false, err
	}

	// The collection schema may predate the drawing/files columns. Losing
	// the attachments beats losing the submission: retry once without them.
	r.logger.Warn().Err(err).Msg("store rejected attachment columns, retrying without them")
	delete(fields, fieldDrawing)
	delete(fields, fieldFiles)

	record, err = r.store.Create(ctx, r.table, fields)
	if err != nil {
		return models.Submission{}, false, err
	}

	return mapSubmission(record), true, nil
}

func (r *submissionRepository) List(ctx context.Context, filter SubmissionFilter) ([]models.Submission, error) {
	var predicates []string
	if filter.LevelID != "" {
		predicates = append(predicates, recordstore.Eq(fieldLevelID, filter.LevelID))
	}
	if filter.Status != "" {
		predicates = append(predicates, recordstore.Eq(fieldStatus, filter.Status))
	}
	if filter.TaskID != "" {
		predicates = append(predicates, recordstore.Eq(fieldTaskID, filter.TaskID))
	}
	if filter.CourseID != "" {
		predicates = append(predicates, recordstore.Eq(fieldCourseID, filter.CourseID))
	}
	if filter.SchoolID != "" {
		predicates = append(predicates, recordstore.Eq(fieldSchoolID, filter.SchoolID))
	}

	records, err := r.store.List(ctx, r.table, recordstore.ListOptions{
		Formula:   recordstore.And(predicates...),
		SortField: fieldSubmittedAt,
		SortDesc:  true,
	})
	if err != nil {
		return nil, err
	}

	submissions := make([]models.Submission, 0, len(records))
	for _, record := range records {
		submissions = append(submissions, mapSubmission(record))
	}

	return submissions, nil
}

func (r *submissionRepository) GetByID(ctx context.Context, id string) (models.Submission, error) {
	if id == "" {
		return models.Submission{}, ErrMissingID
	}

	record, err := r.store.Get(ctx, r.table, id)
	if err != nil {
		return models.Submission{}, err
	}

	return mapSubmission(record), nil
}

func (r *submissionRepository) Patch(ctx context.Context, id string, patch GradePatch) error {
	if id == "" {
		return ErrMissingID
	}

	fields := map[string]interface{}{}

	if patch.Grade != nil {
		// The submissions grade column is text-typed; the numeric form lives
		// only in the grades collection.
		fields[fieldGrade] = patch.Grade.StoreText()
		fields[fieldGradedAt] = r.now().UTC().Format(time.RFC3339)
	}
	if patch.Feedback != nil {
		fields[fieldFeedback] = *patch.Feedback
	}
	if patch.GradedBy != nil {
		fields[fieldGradedBy] = *patch.GradedBy
	}

	status := models.SubmissionStatusGraded
	if patch.Status != nil {
		status = *patch.Status
	}
	fields[fieldStatus] = status

	_, err := r.store.Update(ctx, r.table, id, fields)
	return err
}

func (r *submissionRepository) Delete(ctx context.Context, id string) error {
	if id == "" {
		return ErrMissingID
	}

	return r.store.Delete(ctx, r.table, id)
}

func mapSubmission(record recordstore.Record) models.Submission {
	fields := record.Fields

	submission := models.Submission{
		ID:           record.ID,
		TaskID:       stringField(fields, fieldTaskID),
		StudentName:  stringField(fields, fieldStudentName),
		StudentEmail: stringField(fields, fieldStudentEmail),
		LevelID:      stringField(fields, fieldLevelID),
		LessonID:     stringField(fields, fieldLessonID),
		CourseID:     stringField(fields, fieldCourseID),
		SchoolID:     stringField(fields, fieldSchoolID),
		Code:         stringField(fields, fieldCode),
		Output:       stringField(fields, fieldOutput),
		SubmittedAt:  timeField(fields, fieldSubmittedAt),
		Status:       stringField(fields, fieldStatus),
		Feedback:     stringField(fields, fieldFeedback),
		GradedBy:     stringField(fields, fieldGradedBy),
		Drawing:      stringField(fields, fieldDrawing),
		Files:        models.DecodeAttachments(stringField(fields, fieldFiles)),
	}

	if submission.Status == "" {
		submission.Status = models.SubmissionStatusPending
	}

	if raw := stringField(fields, fieldGrade); raw != "" {
		if score, err := models.ParseScore(raw); err == nil {
			submission.Grade = &score
		}
	}

	if gradedAt := timeField(fields, fieldGradedAt); !gradedAt.IsZero() {
		submission.GradedAt = &gradedAt
	}

	return submission
}

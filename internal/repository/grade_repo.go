package repository

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/aulacode/tareas-api/internal/models"
	"github.com/aulacode/tareas-api/internal/recordstore"
)

// GradeRepository persists denormalized grades keyed by (studentName, taskId).
type GradeRepository interface {
	// Upsert finds the grade record for the submission's (studentName, taskId)
	// pair and updates it in place, or creates it when none exists. The
	// returned bool reports creation. Pre-existing duplicates are not
	// reconciled; the first match wins.
	Upsert(ctx context.Context, grade models.Grade) (models.Grade, bool, error)
}

type gradeRepository struct {
	store  Store
	table  string
	logger zerolog.Logger

	// Serializes the search-then-write window per key within this process.
	// Concurrent upserts from other processes can still race; the store has
	// no unique constraint to fall back on.
	mu    sync.Mutex
	locks map[models.GradeKey]*sync.Mutex
}

// NewGradeRepository instantiates the repository over the record store.
func NewGradeRepository(store Store, table string, logger zerolog.Logger) GradeRepository {
	return &gradeRepository{
		store:  store,
		table:  table,
		logger: logger.With().Str("component", "grade_repository").Logger(),
		locks:  map[models.GradeKey]*sync.Mutex{},
	}
}

func (r *gradeRepository) Upsert(ctx context.Context, grade models.Grade) (models.Grade, bool, error) {
	lock := r.keyLock(grade.Key())
	lock.Lock()
	defer lock.Unlock()

	formula := recordstore.And(
		recordstore.Eq(fieldStudentName, grade.StudentName),
		recordstore.Eq(fieldTaskID, grade.TaskID),
	)

	matches, err := r.store.List(ctx, r.table, recordstore.ListOptions{Formula: formula})
	if err != nil {
		return models.Grade{}, false, err
	}

	fields := gradeFields(grade)

	if len(matches) > 0 {
		if len(matches) > 1 {
			r.logger.Warn().
				Str("student", grade.StudentName).
				Str("task", grade.TaskID).
				Int("duplicates", len(matches)).
				Msg("multiple grade records for key, updating first match")
		}

		record, err := r.store.Update(ctx, r.table, matches[0].ID, fields)
		if err != nil {
			return models.Grade{}, false, err
		}

		return mapGrade(record), false, nil
	}

	record, err := r.store.Create(ctx, r.table, fields)
	if err != nil {
		return models.Grade{}, false, err
	}

	return mapGrade(record), true, nil
}

func (r *gradeRepository) keyLock(key models.GradeKey) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()

	lock, ok := r.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		r.locks[key] = lock
	}

	return lock
}

func gradeFields(grade models.Grade) map[string]interface{} {
	fields := map[string]interface{}{
		fieldStudentName: grade.StudentName,
		fieldTaskID:      grade.TaskID,
		fieldLessonID:    grade.LessonID,
		fieldLevelID:     grade.LevelID,
		// The grades score column is numeric, unlike the submissions grade
		// column which is text.
		fieldScore:    grade.Score.StoreNumber(),
		fieldGradedAt: grade.GradedAt.UTC().Format(time.RFC3339),
	}

	if !grade.SubmittedAt.IsZero() {
		fields[fieldSubmittedAt] = grade.SubmittedAt.UTC().Format(time.RFC3339)
	}
	if grade.CourseID != "" {
		fields[fieldCourseID] = grade.CourseID
	}
	if grade.SchoolID != "" {
		fields[fieldSchoolID] = grade.SchoolID
	}
	if grade.Feedback != "" {
		fields[fieldFeedback] = grade.Feedback
	}
	if grade.GradedBy != "" {
		fields[fieldGradedBy] = grade.GradedBy
	}

	return fields
}

func mapGrade(record recordstore.Record) models.Grade {
	fields := record.Fields

	grade := models.Grade{
		ID:          record.ID,
		StudentName: stringField(fields, fieldStudentName),
		TaskID:      stringField(fields, fieldTaskID),
		LessonID:    stringField(fields, fieldLessonID),
		LevelID:     stringField(fields, fieldLevelID),
		CourseID:    stringField(fields, fieldCourseID),
		SchoolID:    stringField(fields, fieldSchoolID),
		SubmittedAt: timeField(fields, fieldSubmittedAt),
		GradedAt:    timeField(fields, fieldGradedAt),
		GradedBy:    stringField(fields, fieldGradedBy),
		Feedback:    stringField(fields, fieldFeedback),
	}

	if score, ok := numberField(fields, fieldScore); ok {
		grade.Score = models.Score(score)
	}

	return grade
}

package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/aulacode/tareas-api/internal/models"
	"github.com/aulacode/tareas-api/internal/repository"
)

type stubSubmissionRepo struct {
	created    models.Submission
	createErr  error
	degraded   bool
	createArgs []models.Submission

	listOut    []models.Submission
	listErr    error
	listFilter repository.SubmissionFilter

	stored models.Submission
	getErr error

	patchedID string
	patch     repository.GradePatch
	patchErr  error

	deletedID string
	deleteErr error
}

func (s *stubSubmissionRepo) Create(_ context.Context, submission models.Submission) (models.Submission, bool, error) {
	s.createArgs = append(s.createArgs, submission)
	if s.createErr != nil {
		return models.Submission{}, false, s.createErr
	}
	created := submission
	created.ID = "rec-new"
	created.Status = models.SubmissionStatusPending
	created.SubmittedAt = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	s.created = created
	return created, s.degraded, nil
}

func (s *stubSubmissionRepo) List(_ context.Context, filter repository.SubmissionFilter) ([]models.Submission, error) {
	s.listFilter = filter
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.listOut, nil
}

func (s *stubSubmissionRepo) GetByID(_ context.Context, id string) (models.Submission, error) {
	if s.getErr != nil {
		return models.Submission{}, s.getErr
	}
	return s.stored, nil
}

func (s *stubSubmissionRepo) Patch(_ context.Context, id string, patch repository.GradePatch) error {
	s.patchedID = id
	s.patch = patch
	return s.patchErr
}

func (s *stubSubmissionRepo) Delete(_ context.Context, id string) error {
	s.deletedID = id
	return s.deleteErr
}

type stubGradeRepo struct {
	upserted  []models.Grade
	created   bool
	upsertErr error
}

func (s *stubGradeRepo) Upsert(_ context.Context, grade models.Grade) (models.Grade, bool, error) {
	if s.upsertErr != nil {
		return models.Grade{}, false, s.upsertErr
	}
	s.upserted = append(s.upserted, grade)
	return grade, s.created, nil
}

func gradedSubmission() models.Submission {
	score := models.Score(8.5)
	gradedAt := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	return models.Submission{
		ID:          "rec1",
		TaskID:      "t1",
		StudentName: "Ana",
		LevelID:     "l1",
		LessonID:    "lesson-9",
		CourseID:    "c1",
		SubmittedAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		Status:      models.SubmissionStatusGraded,
		Grade:       &score,
		Feedback:    "Muy bien",
		GradedAt:    &gradedAt,
		GradedBy:    "profe@colegio.test",
	}
}

func TestSyncGradeRefetchesAndUpserts(t *testing.T) {
	submissions := &stubSubmissionRepo{stored: gradedSubmission()}
	grades := &stubGradeRepo{created: true}
	svc := NewGradeSyncService(submissions, grades, zerolog.Nop())

	require.NoError(t, svc.SyncGrade(context.Background(), "rec1"))
	require.Len(t, grades.upserted, 1)

	grade := grades.upserted[0]
	require.Equal(t, "Ana", grade.StudentName)
	require.Equal(t, "t1", grade.TaskID)
	// The grades collection mirrors taskId into lessonId.
	require.Equal(t, "t1", grade.LessonID)
	require.Equal(t, models.Score(8.5), grade.Score)
	require.Equal(t, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC), grade.SubmittedAt)
	require.Equal(t, time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC), grade.GradedAt)
	require.Equal(t, "profe@colegio.test", grade.GradedBy)
	require.Equal(t, "Muy bien", grade.Feedback)
}

func TestSyncGradeFailsWhenSubmissionHasNoGrade(t *testing.T) {
	submission := gradedSubmission()
	submission.Grade = nil
	submissions := &stubSubmissionRepo{stored: submission}
	grades := &stubGradeRepo{}
	svc := NewGradeSyncService(submissions, grades, zerolog.Nop())

	err := svc.SyncGrade(context.Background(), "rec1")
	require.ErrorIs(t, err, ErrSubmissionNotGraded)
	require.Empty(t, grades.upserted)
}

func TestSyncGradePropagatesRefetchFailure(t *testing.T) {
	submissions := &stubSubmissionRepo{getErr: errors.New("store unavailable")}
	svc := NewGradeSyncService(submissions, &stubGradeRepo{}, zerolog.Nop())

	require.Error(t, svc.SyncGrade(context.Background(), "rec1"))
}

func TestSyncGradePropagatesUpsertFailure(t *testing.T) {
	submissions := &stubSubmissionRepo{stored: gradedSubmission()}
	grades := &stubGradeRepo{upsertErr: errors.New("store unavailable")}
	svc := NewGradeSyncService(submissions, grades, zerolog.Nop())

	require.Error(t, svc.SyncGrade(context.Background(), "rec1"))
}

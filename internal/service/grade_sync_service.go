package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/aulacode/tareas-api/internal/models"
	"github.com/aulacode/tareas-api/internal/observability"
	"github.com/aulacode/tareas-api/internal/repository"
)

// ErrSubmissionNotGraded indicates the submission carries no grade to sync.
var ErrSubmissionNotGraded = errors.New("submission has no grade to synchronize")

// GradeSyncService propagates a freshly recorded grade into the grades
// collection. It runs strictly after the grading patch succeeded; its errors
// are for the caller to log, never to surface.
type GradeSyncService interface {
	SyncGrade(ctx context.Context, submissionID string) error
}

type gradeSyncService struct {
	submissions repository.SubmissionRepository
	grades      repository.GradeRepository
	logger      zerolog.Logger
	tracer      trace.Tracer
	now         func() time.Time
}

// NewGradeSyncService constructs the synchronization service.
func NewGradeSyncService(submissions repository.SubmissionRepository, grades repository.GradeRepository, logger zerolog.Logger) GradeSyncService {
	return &gradeSyncService{
		submissions: submissions,
		grades:      grades,
		logger:      logger.With().Str("component", "grade_sync_service").Logger(),
		tracer:      otel.Tracer("github.com/aulacode/tareas-api/internal/service/grade_sync"),
		now:         time.Now,
	}
}

func (s *gradeSyncService) SyncGrade(ctx context.Context, submissionID string) error {
	ctx, span := s.tracer.Start(ctx, "grade_sync.upsert")
	span.SetAttributes(attribute.String("sync.submission_id", submissionID))
	defer span.End()

	// The grading patch may not have returned the full record; re-fetch for
	// authoritative fields.
	submission, err := s.submissions.GetByID(ctx, submissionID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "submission_refetch_failed")
		observability.GradeSyncAttempts().WithLabelValues("refetch_failed").Inc()
		return err
	}

	if submission.Grade == nil {
		span.SetStatus(codes.Error, "submission_not_graded")
		observability.GradeSyncAttempts().WithLabelValues("not_graded").Inc()
		return ErrSubmissionNotGraded
	}

	gradedAt := s.now()
	if submission.GradedAt != nil {
		gradedAt = *submission.GradedAt
	}

	grade := models.Grade{
		StudentName: submission.StudentName,
		TaskID:      submission.TaskID,
		// The grades collection mirrors the task identity into lessonId.
		LessonID:    submission.TaskID,
		LevelID:     submission.LevelID,
		CourseID:    submission.CourseID,
		SchoolID:    submission.SchoolID,
		Score:       *submission.Grade,
		SubmittedAt: submission.SubmittedAt,
		GradedAt:    gradedAt,
		GradedBy:    submission.GradedBy,
		Feedback:    submission.Feedback,
	}

	synced, created, err := s.grades.Upsert(ctx, grade)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "grade_upsert_failed")
		observability.GradeSyncAttempts().WithLabelValues("upsert_failed").Inc()
		return err
	}

	outcome := "updated"
	if created {
		outcome = "created"
	}
	observability.GradeSyncAttempts().WithLabelValues(outcome).Inc()

	span.SetAttributes(
		attribute.Bool("sync.created", created),
		attribute.Float64("sync.score", synced.Score.StoreNumber()),
	)

	s.logger.Info().
		Str("submission_id", submissionID).
		Str("student", grade.StudentName).
		Str("task", grade.TaskID).
		Bool("created", created).
		Msg("grade synchronized")

	return nil
}

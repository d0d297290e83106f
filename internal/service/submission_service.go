package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/aulacode/tareas-api/internal/dto"
	"github.com/aulacode/tareas-api/internal/models"
	"github.com/aulacode/tareas-api/internal/repository"
)

var (
	// ErrMissingRequiredFields indicates taskId or studentName was absent.
	ErrMissingRequiredFields = errors.New("taskId and studentName are required")
	// ErrMissingSubmissionID indicates an operation lacked the record id.
	ErrMissingSubmissionID = errors.New("submission id is required")
	// ErrInvalidGrade indicates a grade outside the accepted scale.
	ErrInvalidGrade = errors.New("grade must be between 0 and 10")
)

const listCacheVersionKey = "submissions:list:version"

// SubmissionService orchestrates the submission pipeline: validation,
// attachment resolution, persistence and grade synchronization.
type SubmissionService interface {
	// Submit persists a new submission. The returned message reports normal
	// or degraded-mode success.
	Submit(ctx context.Context, payload dto.SubmissionCreateRequest) (dto.SubmissionResponse, string, error)
	List(ctx context.Context, filter dto.SubmissionFilter) ([]dto.SubmissionResponse, error)
	Grade(ctx context.Context, payload dto.SubmissionGradeRequest) error
	Delete(ctx context.Context, id string) error
}

type submissionService struct {
	submissions repository.SubmissionRepository
	resolver    *AttachmentResolver
	sync        GradeSyncService
	validator   *validator.Validate
	sanitizer   *bluemonday.Policy
	cache       *redis.Client
	cacheTTL    time.Duration
	logger      zerolog.Logger
	now         func() time.Time
}

// NewSubmissionService constructs the submission façade. The cache client is
// optional; nil disables list caching.
func NewSubmissionService(
	submissions repository.SubmissionRepository,
	resolver *AttachmentResolver,
	gradeSync GradeSyncService,
	validate *validator.Validate,
	cache *redis.Client,
	cacheTTL time.Duration,
	logger zerolog.Logger,
) SubmissionService {
	return &submissionService{
		submissions: submissions,
		resolver:    resolver,
		sync:        gradeSync,
		validator:   validate,
		sanitizer:   bluemonday.UGCPolicy(),
		cache:       cache,
		cacheTTL:    cacheTTL,
		logger:      logger.With().Str("component", "submission_service").Logger(),
		now:         time.Now,
	}
}

func (s *submissionService) Submit(ctx context.Context, payload dto.SubmissionCreateRequest) (dto.SubmissionResponse, string, error) {
	if payload.TaskID == "" || payload.StudentName == "" {
		return dto.SubmissionResponse{}, "", ErrMissingRequiredFields
	}

	if err := s.validator.Struct(payload); err != nil {
		return dto.SubmissionResponse{}, "", err
	}

	code := payload.Code
	if code == "" && payload.Drawing != "" {
		// A drawing-only answer still has gradable content; code must never
		// be silently empty in that case.
		code = models.CodeDrawingPlaceholder
	}

	resolved := s.resolver.Resolve(ctx, dto.NewAttachments(payload.Files), payload.Drawing,
		payload.LevelID, payload.StudentName, payload.TaskID)

	output := payload.Output
	if len(resolved.Manifest) > 0 {
		manifest := strings.Join(resolved.Manifest, "\n")
		if output != "" {
			output = output + "\n" + manifest
		} else {
			output = manifest
		}
	}

	submission := models.Submission{
		TaskID:       payload.TaskID,
		StudentName:  payload.StudentName,
		StudentEmail: payload.StudentEmail,
		LevelID:      payload.LevelID,
		LessonID:     payload.LessonID,
		CourseID:     payload.CourseID,
		SchoolID:     payload.SchoolID,
		Code:         code,
		Output:       output,
		Drawing:      resolved.Drawing,
		Files:        resolved.Files,
	}

	created, degraded, err := s.submissions.Create(ctx, submission)
	if err != nil {
		return dto.SubmissionResponse{}, "", err
	}

	s.invalidateListCache(ctx)

	message := "submission saved"
	if degraded {
		message = "submission saved without attachments (columns not supported by the collection)"
	}

	s.logger.Info().
		Str("submission_id", created.ID).
		Str("task", created.TaskID).
		Str("student", created.StudentName).
		Bool("degraded", degraded).
		Msg("submission created")

	return dto.NewSubmissionResponse(created), message, nil
}

func (s *submissionService) List(ctx context.Context, filter dto.SubmissionFilter) ([]dto.SubmissionResponse, error) {
	if err := s.validator.Struct(filter); err != nil {
		return nil, err
	}

	cacheKey := s.listCacheKey(ctx, filter)
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey).Result(); err == nil {
			var responses []dto.SubmissionResponse
			if unmarshalErr := json.Unmarshal([]byte(cached), &responses); unmarshalErr == nil {
				s.logger.Debug().Str("key", cacheKey).Msg("submission list cache hit")
				return responses, nil
			}
		} else if err != redis.Nil {
			s.logger.Warn().Err(err).Msg("failed to read submission list cache")
		}
	}

	submissions, err := s.submissions.List(ctx, repository.SubmissionFilter{
		LevelID:  filter.LevelID,
		Status:   filter.Status,
		TaskID:   filter.TaskID,
		CourseID: filter.CourseID,
		SchoolID: filter.SchoolID,
	})
	if err != nil {
		return nil, err
	}

	responses := dto.NewSubmissionResponseSlice(submissions)

	if s.cache != nil {
		if payload, err := json.Marshal(responses); err == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store submission list cache")
			}
		}
	}

	return responses, nil
}

func (s *submissionService) Grade(ctx context.Context, payload dto.SubmissionGradeRequest) error {
	if payload.ID == "" {
		return ErrMissingSubmissionID
	}

	if err := s.validator.Struct(payload); err != nil {
		return err
	}

	patch := repository.GradePatch{
		GradedBy: payload.GradedBy,
		Status:   payload.Status,
	}

	if payload.Grade != nil {
		score := models.Score(*payload.Grade)
		if !score.InRange() {
			return ErrInvalidGrade
		}
		patch.Grade = &score
	}

	if payload.Feedback != nil {
		sanitized := s.sanitizer.Sanitize(*payload.Feedback)
		patch.Feedback = &sanitized
	}

	if err := s.submissions.Patch(ctx, payload.ID, patch); err != nil {
		return err
	}

	s.invalidateListCache(ctx)

	// Synchronization is best-effort enrichment: it must never undo or fail
	// the grading operation that triggered it.
	if patch.Grade != nil {
		if err := s.syncGrade(ctx, payload.ID); err != nil {
			s.logger.Error().Err(err).
				Str("submission_id", payload.ID).
				Msg("grade synchronization failed, grading response unaffected")
		}
	}

	return nil
}

func (s *submissionService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return ErrMissingSubmissionID
	}

	if err := s.submissions.Delete(ctx, id); err != nil {
		return err
	}

	s.invalidateListCache(ctx)

	s.logger.Info().Str("submission_id", id).Msg("submission deleted")
	return nil
}

func (s *submissionService) syncGrade(ctx context.Context, submissionID string) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("grade sync panicked: %v", recovered)
		}
	}()

	return s.sync.SyncGrade(ctx, submissionID)
}

// listCacheKey namespaces cached lists under a version counter so every
// mutation invalidates all filter combinations with one INCR.
func (s *submissionService) listCacheKey(ctx context.Context, filter dto.SubmissionFilter) string {
	version := "0"
	if s.cache != nil {
		if value, err := s.cache.Get(ctx, listCacheVersionKey).Result(); err == nil {
			version = value
		}
	}

	return fmt.Sprintf("submissions:list:v%s:%s|%s|%s|%s|%s",
		version, filter.LevelID, filter.Status, filter.TaskID, filter.CourseID, filter.SchoolID)
}

func (s *submissionService) invalidateListCache(ctx context.Context) {
	if s.cache == nil {
		return
	}

	if err := s.cache.Incr(ctx, listCacheVersionKey).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to invalidate submission list cache")
	}
}

package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/aulacode/tareas-api/internal/dto"
	"github.com/aulacode/tareas-api/internal/models"
)

type stubSyncService struct {
	calls []string
	err   error
	panic bool
}

func (s *stubSyncService) SyncGrade(_ context.Context, submissionID string) error {
	if s.panic {
		panic("sync exploded")
	}
	s.calls = append(s.calls, submissionID)
	return s.err
}

func newTestService(submissions *stubSubmissionRepo, sync GradeSyncService, cache *redis.Client) SubmissionService {
	resolver := NewAttachmentResolver(nil, 0, 0, zerolog.Nop())
	validate := validator.New(validator.WithRequiredStructEnabled())
	return NewSubmissionService(submissions, resolver, sync, validate, cache, time.Minute, zerolog.Nop())
}

func TestSubmitRequiresTaskAndStudent(t *testing.T) {
	svc := newTestService(&stubSubmissionRepo{}, &stubSyncService{}, nil)

	_, _, err := svc.Submit(context.Background(), dto.SubmissionCreateRequest{TaskID: "t1"})
	require.ErrorIs(t, err, ErrMissingRequiredFields)

	_, _, err = svc.Submit(context.Background(), dto.SubmissionCreateRequest{StudentName: "Ana"})
	require.ErrorIs(t, err, ErrMissingRequiredFields)
}

func TestSubmitAcceptsBareSubmission(t *testing.T) {
	repo := &stubSubmissionRepo{}
	svc := newTestService(repo, &stubSyncService{}, nil)

	submission, message, err := svc.Submit(context.Background(), dto.SubmissionCreateRequest{
		TaskID:      "t1",
		StudentName: "Ana",
	})
	require.NoError(t, err)
	require.Equal(t, "submission saved", message)
	require.Equal(t, models.SubmissionStatusPending, submission.Status)
	require.Equal(t, "", repo.createArgs[0].Code)
}

func TestSubmitSubstitutesDrawingPlaceholderForEmptyCode(t *testing.T) {
	repo := &stubSubmissionRepo{}
	svc := newTestService(repo, &stubSyncService{}, nil)

	_, _, err := svc.Submit(context.Background(), dto.SubmissionCreateRequest{
		TaskID:      "t1",
		StudentName: "Ana",
		Drawing:     "iVBORw0KGgo=",
	})
	require.NoError(t, err)

	created := repo.createArgs[0]
	require.Equal(t, models.CodeDrawingPlaceholder, created.Code)
	require.Equal(t, "iVBORw0KGgo=", created.Drawing)
	require.Contains(t, created.Output, "🎨 Dibujo incluido")
}

func TestSubmitOversizedDrawingStoresPlaceholderAndManifest(t *testing.T) {
	repo := &stubSubmissionRepo{}
	svc := newTestService(repo, &stubSyncService{}, nil)

	_, _, err := svc.Submit(context.Background(), dto.SubmissionCreateRequest{
		TaskID:      "t1",
		StudentName: "Ana",
		Drawing:     strings.Repeat("i", DefaultMaxDrawingChars+1),
	})
	require.NoError(t, err)

	created := repo.createArgs[0]
	require.Equal(t, models.CodeDrawingPlaceholder, created.Code)
	require.Equal(t, models.DrawingTooLargePlaceholder, created.Drawing)
	require.Contains(t, created.Output, "🎨 Dibujo incluido")
}

func TestSubmitAppendsManifestToExistingOutput(t *testing.T) {
	repo := &stubSubmissionRepo{}
	svc := newTestService(repo, &stubSyncService{}, nil)

	_, _, err := svc.Submit(context.Background(), dto.SubmissionCreateRequest{
		TaskID:      "t1",
		StudentName: "Ana",
		Output:      "ejecución correcta",
		Files:       []dto.AttachmentPayload{{Name: "a.py", URL: "https://cdn.test/a.py"}},
	})
	require.NoError(t, err)

	output := repo.createArgs[0].Output
	require.True(t, strings.HasPrefix(output, "ejecución correcta\n"))
	require.Contains(t, output, "📎 1 archivo(s): a.py")
}

func TestSubmitReportsDegradedMessage(t *testing.T) {
	repo := &stubSubmissionRepo{degraded: true}
	svc := newTestService(repo, &stubSyncService{}, nil)

	_, message, err := svc.Submit(context.Background(), dto.SubmissionCreateRequest{
		TaskID:      "t1",
		StudentName: "Ana",
		Drawing:     "iVBORw0KGgo=",
	})
	require.NoError(t, err)
	require.Contains(t, message, "without attachments")
}

func TestSubmitSurfacesRepositoryFailure(t *testing.T) {
	repo := &stubSubmissionRepo{createErr: errors.New("store unavailable")}
	svc := newTestService(repo, &stubSyncService{}, nil)

	_, _, err := svc.Submit(context.Background(), dto.SubmissionCreateRequest{TaskID: "t1", StudentName: "Ana"})
	require.Error(t, err)
}

func TestGradeValidatesRange(t *testing.T) {
	repo := &stubSubmissionRepo{}
	svc := newTestService(repo, &stubSyncService{}, nil)

	grade := 11.0
	err := svc.Grade(context.Background(), dto.SubmissionGradeRequest{ID: "rec1", Grade: &grade})
	require.Error(t, err)
	require.Empty(t, repo.patchedID)
}

func TestGradeRequiresID(t *testing.T) {
	svc := newTestService(&stubSubmissionRepo{}, &stubSyncService{}, nil)

	grade := 9.0
	err := svc.Grade(context.Background(), dto.SubmissionGradeRequest{Grade: &grade})
	require.ErrorIs(t, err, ErrMissingSubmissionID)
}

func TestGradePatchesThenSynchronizes(t *testing.T) {
	repo := &stubSubmissionRepo{}
	sync := &stubSyncService{}
	svc := newTestService(repo, sync, nil)

	grade := 8.5
	feedback := "Muy bien"
	require.NoError(t, svc.Grade(context.Background(), dto.SubmissionGradeRequest{
		ID:       "rec1",
		Grade:    &grade,
		Feedback: &feedback,
	}))

	require.Equal(t, "rec1", repo.patchedID)
	require.NotNil(t, repo.patch.Grade)
	require.Equal(t, models.Score(8.5), *repo.patch.Grade)
	require.Equal(t, []string{"rec1"}, sync.calls)
}

func TestGradeWithoutScoreSkipsSynchronization(t *testing.T) {
	repo := &stubSubmissionRepo{}
	sync := &stubSyncService{}
	svc := newTestService(repo, sync, nil)

	feedback := "revisado"
	require.NoError(t, svc.Grade(context.Background(), dto.SubmissionGradeRequest{ID: "rec1", Feedback: &feedback}))
	require.Empty(t, sync.calls)
}

func TestGradeSyncFailureDoesNotFailGrading(t *testing.T) {
	repo := &stubSubmissionRepo{}
	sync := &stubSyncService{err: errors.New("grades collection unavailable")}
	svc := newTestService(repo, sync, nil)

	grade := 9.0
	require.NoError(t, svc.Grade(context.Background(), dto.SubmissionGradeRequest{ID: "rec1", Grade: &grade}))
	require.Equal(t, "rec1", repo.patchedID)
}

func TestGradeSyncPanicDoesNotFailGrading(t *testing.T) {
	repo := &stubSubmissionRepo{}
	sync := &stubSyncService{panic: true}
	svc := newTestService(repo, sync, nil)

	grade := 9.0
	require.NoError(t, svc.Grade(context.Background(), dto.SubmissionGradeRequest{ID: "rec1", Grade: &grade}))
}

func TestGradeSanitizesFeedbackMarkup(t *testing.T) {
	repo := &stubSubmissionRepo{}
	svc := newTestService(repo, &stubSyncService{}, nil)

	feedback := `Bien <script>alert("x")</script> hecho`
	require.NoError(t, svc.Grade(context.Background(), dto.SubmissionGradeRequest{ID: "rec1", Feedback: &feedback}))

	require.NotNil(t, repo.patch.Feedback)
	require.NotContains(t, *repo.patch.Feedback, "<script>")
	require.Contains(t, *repo.patch.Feedback, "Bien")
}

func TestGradePatchFailureSkipsSynchronization(t *testing.T) {
	repo := &stubSubmissionRepo{patchErr: errors.New("store unavailable")}
	sync := &stubSyncService{}
	svc := newTestService(repo, sync, nil)

	grade := 9.0
	require.Error(t, svc.Grade(context.Background(), dto.SubmissionGradeRequest{ID: "rec1", Grade: &grade}))
	require.Empty(t, sync.calls)
}

func TestListForwardsFilters(t *testing.T) {
	repo := &stubSubmissionRepo{}
	svc := newTestService(repo, &stubSyncService{}, nil)

	_, err := svc.List(context.Background(), dto.SubmissionFilter{Status: "pending", LevelID: "l1"})
	require.NoError(t, err)
	require.Equal(t, "pending", repo.listFilter.Status)
	require.Equal(t, "l1", repo.listFilter.LevelID)
}

func TestListRejectsUnknownStatus(t *testing.T) {
	svc := newTestService(&stubSubmissionRepo{}, &stubSyncService{}, nil)

	_, err := svc.List(context.Background(), dto.SubmissionFilter{Status: "archived"})
	require.Error(t, err)
}

func TestDeleteRequiresID(t *testing.T) {
	svc := newTestService(&stubSubmissionRepo{}, &stubSyncService{}, nil)
	require.ErrorIs(t, svc.Delete(context.Background(), ""), ErrMissingSubmissionID)
}

func TestListUsesCacheUntilInvalidated(t *testing.T) {
	server := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = cache.Close() })

	repo := &stubSubmissionRepo{listOut: []models.Submission{{ID: "rec1", TaskID: "t1", StudentName: "Ana"}}}
	svc := newTestService(repo, &stubSyncService{}, cache)

	first, err := svc.List(context.Background(), dto.SubmissionFilter{TaskID: "t1"})
	require.NoError(t, err)
	require.Len(t, first, 1)

	// Second read is served from cache; the repository result changes but
	// the response must not.
	repo.listOut = nil
	second, err := svc.List(context.Background(), dto.SubmissionFilter{TaskID: "t1"})
	require.NoError(t, err)
	require.Len(t, second, 1)

	// A mutation bumps the cache version, so the next list sees fresh data.
	require.NoError(t, svc.Delete(context.Background(), "rec1"))
	third, err := svc.List(context.Background(), dto.SubmissionFilter{TaskID: "t1"})
	require.NoError(t, err)
	require.Empty(t, third)
}

package repository

import (
	"context"
	"time"

	"github.com/aulacode/tareas-api/internal/recordstore"
)

// Store is the record-store surface the repositories depend on.
type Store interface {
	List(ctx context.Context, table string, opts recordstore.ListOptions) ([]recordstore.Record, error)
	Create(ctx context.Context, table string, fields map[string]interface{}) (recordstore.Record, error)
	Get(ctx context.Context, table, id string) (recordstore.Record, error)
	Update(ctx context.Context, table, id string, fields map[string]interface{}) (recordstore.Record, error)
	Delete(ctx context.Context, table, id string) error
}

// Column names shared by the submissions and grades collections.
const (
	fieldTaskID       = "taskId"
	fieldStudentName  = "studentName"
	fieldStudentEmail = "studentEmail"
	fieldLevelID      = "levelId"
	fieldLessonID     = "lessonId"
	fieldCourseID     = "courseId"
	fieldSchoolID     = "schoolId"
	fieldCode         = "code"
	fieldOutput       = "output"
	fieldSubmittedAt  = "submittedAt"
	fieldStatus       = "status"
	fieldGrade        = "grade"
	fieldScore        = "score"
	fieldFeedback     = "feedback"
	fieldGradedAt     = "gradedAt"
	fieldGradedBy     = "gradedBy"
	fieldDrawing      = "drawing"
	fieldFiles        = "files"
)

// The store returns loosely typed field maps; every access below defaults on
// absence or unexpected types instead of failing the whole mapping.

func stringField(fields map[string]interface{}, key string) string {
	if fields == nil {
		return ""
	}
	if value, ok := fields[key].(string); ok {
		return value
	}
	return ""
}

func numberField(fields map[string]interface{}, key string) (float64, bool) {
	if fields == nil {
		return 0, false
	}
	switch value := fields[key].(type) {
	case float64:
		return value, true
	case int:
		return float64(value), true
	default:
		return 0, false
	}
}

func timeField(fields map[string]interface{}, key string) time.Time {
	raw := stringField(fields, key)
	if raw == "" {
		return time.Time{}
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}
	}
	return parsed
}

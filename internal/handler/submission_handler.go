package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/aulacode/tareas-api/internal/dto"
	"github.com/aulacode/tareas-api/internal/recordstore"
	"github.com/aulacode/tareas-api/internal/repository"
	"github.com/aulacode/tareas-api/internal/service"
	"github.com/aulacode/tareas-api/internal/utils"
)

// SubmissionHandler manages the submission endpoints.
type SubmissionHandler struct {
	service service.SubmissionService
	logger  zerolog.Logger
}

// NewSubmissionHandler builds a submission handler instance.
func NewSubmissionHandler(service service.SubmissionService, logger zerolog.Logger) *SubmissionHandler {
	return &SubmissionHandler{
		service: service,
		logger:  logger.With().Str("component", "submission_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group. The guard
// middleware, when non-nil, protects the grading and delete operations.
func (h *SubmissionHandler) Register(router fiber.Router, guard fiber.Handler) {
	if guard == nil {
		guard = func(c *fiber.Ctx) error { return c.Next() }
	}

	router.Get("", h.list)
	router.Post("", h.create)
	router.Patch("", guard, h.update)
	router.Delete("", guard, h.remove)
}

func (h *SubmissionHandler) create(c *fiber.Ctx) error {
	var payload dto.SubmissionCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	submission, message, err := h.service.Submit(c.Context(), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, message, fiber.Map{"submission": submission})
}

func (h *SubmissionHandler) list(c *fiber.Ctx) error {
	filter := dto.SubmissionFilter{
		LevelID:  c.Query("levelId"),
		Status:   c.Query("status"),
		TaskID:   c.Query("taskId"),
		CourseID: c.Query("courseId"),
		SchoolID: c.Query("schoolId"),
	}

	submissions, err := h.service.List(c.Context(), filter)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "", fiber.Map{"submissions": submissions})
}

func (h *SubmissionHandler) update(c *fiber.Ctx) error {
	var payload dto.SubmissionGradeRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	if err := h.service.Grade(c.Context(), payload); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "submission graded", nil)
}

func (h *SubmissionHandler) remove(c *fiber.Ctx) error {
	id := c.Query("id")
	if id == "" {
		var payload struct {
			ID string `json:"id"`
		}
		if err := c.BodyParser(&payload); err == nil {
			id = payload.ID
		}
	}

	if err := h.service.Delete(c.Context(), id); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "", nil)
}

func (h *SubmissionHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, service.ErrMissingRequiredFields),
		errors.Is(err, service.ErrMissingSubmissionID),
		errors.Is(err, service.ErrInvalidGrade),
		errors.Is(err, repository.ErrMissingID):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	case recordstore.IsNotFound(err):
		return utils.SendError(c, fiber.StatusNotFound, "submission not found")
	default:
		h.logger.Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}

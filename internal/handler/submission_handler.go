package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/questline-learn/questline-api/internal/dto"
	"github.com/questline-learn/questline-api/internal/service"
	"github.com/questline-learn/questline-api/internal/utils"
	"github.com/questline-learn/questline-api/internal/workflow"
)

// SubmissionHandler manages submission and workflow endpoints.
type SubmissionHandler struct {
	service service.WorkflowService
	logger  zerolog.Logger
}

// NewSubmissionHandler builds a submission handler instance.
func NewSubmissionHandler(service service.WorkflowService, logger zerolog.Logger) *SubmissionHandler {
	return &SubmissionHandler{
		service: service,
		logger:  logger.With().Str("component", "submission_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *SubmissionHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Post("", h.create)
	router.Get("/:id", h.get)
	router.Get("/:id/events", h.listEvents)
	router.Post("/:id/artifacts", h.addArtifact)
	router.Post("/:id/transitions", h.applyTransition)
}

func (h *SubmissionHandler) list(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}

	filter := dto.SubmissionFilter{}
	if missionID := c.Query("mission_id"); missionID != "" {
		filter.MissionID = &missionID
	}
	if studentID := c.Query("student_id"); studentID != "" {
		filter.StudentID = &studentID
	}
	if status := c.Query("status"); status != "" {
		filter.Status = &status
	}

	submissions, err := h.service.ListSubmissions(c.Context(), filter, actor)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "submissions retrieved", submissions)
}

func (h *SubmissionHandler) create(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}

	var payload dto.SubmissionCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	submission, err := h.service.CreateDraft(c.Context(), actor, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "draft created", submission)
}

func (h *SubmissionHandler) get(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}

	submission, err := h.service.GetSubmission(c.Context(), c.Params("id"), actor)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "submission retrieved", submission)
}

func (h *SubmissionHandler) listEvents(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}

	events, err := h.service.ListEvents(c.Context(), c.Params("id"), actor)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "events retrieved", events)
}

func (h *SubmissionHandler) addArtifact(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}

	var payload dto.ArtifactPayload
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	submission, err := h.service.AddArtifact(c.Context(), c.Params("id"), payload, actor)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "artifact added", submission)
}

func (h *SubmissionHandler) applyTransition(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}

	var payload dto.TransitionRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	result, err := h.service.ApplyTransition(c.Context(), c.Params("id"), payload, actor)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "transition applied", result)
}

func (h *SubmissionHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, workflow.ErrSubmissionNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "submission not found")
	case errors.Is(err, workflow.ErrMissionNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "mission not found")
	case errors.Is(err, workflow.ErrMissionClosed):
		return utils.SendError(c, fiber.StatusUnprocessableEntity, "mission is not open for submissions")
	case errors.Is(err, workflow.ErrMissingFeedback):
		return utils.SendError(c, fiber.StatusUnprocessableEntity, "approval requires feedback")
	case errors.Is(err, workflow.ErrNoNewArtifact):
		return utils.SendError(c, fiber.StatusUnprocessableEntity, "resubmission requires a new artifact")
	case errors.Is(err, workflow.ErrInvalidTransition):
		return utils.SendError(c, fiber.StatusConflict, "transition not allowed from current status")
	case errors.Is(err, workflow.ErrConcurrentModification):
		return utils.SendError(c, fiber.StatusConflict, "submission was modified concurrently, reload and retry")
	case errors.Is(err, workflow.ErrUnauthorized):
		return utils.SendError(c, fiber.StatusForbidden, "insufficient permissions")
	case errors.As(err, &validationErrors):
		return utils.SendErrorWithDetails(c, fiber.StatusBadRequest, "validation failed", validationDetails(validationErrors))
	default:
		h.logger.Error().Err(err).Msg("unhandled submission error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}

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

// MissionHandler manages mission catalog endpoints.
type MissionHandler struct {
	service service.MissionService
	logger  zerolog.Logger
}

// NewMissionHandler builds a mission handler instance.
func NewMissionHandler(service service.MissionService, logger zerolog.Logger) *MissionHandler {
	return &MissionHandler{
		service: service,
		logger:  logger.With().Str("component", "mission_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *MissionHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Post("", h.create)
	router.Get("/:id", h.get)
	router.Patch("/:id/open", h.setOpen)
}

func (h *MissionHandler) list(c *fiber.Ctx) error {
	openOnly := c.QueryBool("open", false)

	missions, err := h.service.List(c.Context(), openOnly)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "missions retrieved", missions)
}

func (h *MissionHandler) create(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}

	var payload dto.MissionCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	mission, err := h.service.Create(c.Context(), actor, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "mission created", mission)
}

func (h *MissionHandler) get(c *fiber.Ctx) error {
	mission, err := h.service.Get(c.Context(), c.Params("id"))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "mission retrieved", mission)
}

func (h *MissionHandler) setOpen(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}

	var payload dto.MissionOpenRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	mission, err := h.service.SetOpen(c.Context(), actor, c.Params("id"), payload.Open)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "mission updated", mission)
}

func (h *MissionHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, workflow.ErrMissionNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "mission not found")
	case errors.Is(err, service.ErrInvalidRubric):
		return utils.SendError(c, fiber.StatusUnprocessableEntity, "rubric definition is invalid")
	case errors.Is(err, workflow.ErrUnauthorized):
		return utils.SendError(c, fiber.StatusForbidden, "insufficient permissions")
	case errors.As(err, &validationErrors):
		return utils.SendErrorWithDetails(c, fiber.StatusBadRequest, "validation failed", validationDetails(validationErrors))
	default:
		h.logger.Error().Err(err).Msg("unhandled mission error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}

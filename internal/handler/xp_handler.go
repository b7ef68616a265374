package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/questline-learn/questline-api/internal/service"
	"github.com/questline-learn/questline-api/internal/utils"
	"github.com/questline-learn/questline-api/internal/workflow"
)

// XPHandler serves XP ledger summaries for student dashboards.
type XPHandler struct {
	service service.XPService
	logger  zerolog.Logger
}

// NewXPHandler builds an XP handler instance.
func NewXPHandler(service service.XPService, logger zerolog.Logger) *XPHandler {
	return &XPHandler{
		service: service,
		logger:  logger.With().Str("component", "xp_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *XPHandler) Register(router fiber.Router) {
	router.Get("/:id/xp", h.summary)
}

func (h *XPHandler) summary(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}

	studentID := c.Params("id")
	if !canViewStudent(actor, studentID) {
		return utils.SendError(c, fiber.StatusForbidden, "insufficient permissions")
	}

	summary, err := h.service.Summary(c.Context(), studentID)
	if err != nil {
		h.logger.Error().Err(err).Str("student_id", studentID).Msg("failed to load xp summary")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}

	return utils.SendSuccess(c, "xp summary retrieved", summary)
}

func canViewStudent(actor workflow.Actor, studentID string) bool {
	switch actor.Role {
	case workflow.RoleStudent:
		return actor.ID == studentID
	case workflow.RoleTeacher, workflow.RoleParent:
		return actor.InScope(studentID)
	case workflow.RoleAdmin:
		return true
	}
	return false
}

package handler

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/questline-learn/questline-api/internal/middleware"
	"github.com/questline-learn/questline-api/internal/utils"
	"github.com/questline-learn/questline-api/internal/workflow"
)

// requireActor pulls the resolved actor from locals; ResolveActor should
// have run earlier in the chain.
func requireActor(c *fiber.Ctx) (workflow.Actor, error) {
	actor, ok := middleware.ActorFromCtx(c)
	if !ok {
		return workflow.Actor{}, utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}
	return actor, nil
}

// validationDetails flattens validator errors into field → constraint pairs.
func validationDetails(errs validator.ValidationErrors) map[string]string {
	details := make(map[string]string, len(errs))
	for _, fieldErr := range errs {
		details[fieldErr.Field()] = fmt.Sprintf("failed on %s", fieldErr.Tag())
	}
	return details
}

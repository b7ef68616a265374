package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/questline-learn/questline-api/internal/service"
	"github.com/questline-learn/questline-api/internal/utils"
	"github.com/questline-learn/questline-api/internal/workflow"
)

const actorLocalKey = "resolved_actor"

// ResolveActor turns the authenticated user id into the resolved actor
// (id, role, review scope) every workflow call requires. It runs after
// JWTProtected and stores the actor in request locals.
func ResolveActor(resolver service.ActorResolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, ok := c.Locals("user_id").(string)
		if !ok || userID == "" {
			return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
		}

		actor, err := resolver.Resolve(c.Context(), userID)
		if err != nil {
			if errors.Is(err, service.ErrUnknownActor) {
				return utils.SendError(c, fiber.StatusUnauthorized, "unknown actor")
			}
			return utils.SendError(c, fiber.StatusInternalServerError, "failed to resolve actor")
		}

		c.Locals(actorLocalKey, actor)
		return c.Next()
	}
}

// ActorFromCtx retrieves the resolved actor stored by ResolveActor.
func ActorFromCtx(c *fiber.Ctx) (workflow.Actor, bool) {
	actor, ok := c.Locals(actorLocalKey).(workflow.Actor)
	return actor, ok
}

// RequireRole ensures the resolved actor holds one of the allowed roles.
func RequireRole(roles ...workflow.Role) fiber.Handler {
	allowed := make(map[workflow.Role]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		actor, ok := ActorFromCtx(c)
		if !ok {
			return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
		}
		if _, ok := allowed[actor.Role]; !ok {
			return utils.SendError(c, fiber.StatusForbidden, "insufficient permissions")
		}
		return c.Next()
	}
}

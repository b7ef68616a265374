package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/questline-learn/questline-api/internal/repository"
	"github.com/questline-learn/questline-api/internal/workflow"
)

// ErrUnknownActor indicates the authenticated user id has no directory
// entry.
var ErrUnknownActor = errors.New("actor not found in user directory")

// ActorResolver turns an authenticated user id into the resolved actor
// the workflow engine trusts: id, role, and — for teachers and parents —
// the students they are scoped to.
type ActorResolver interface {
	Resolve(ctx context.Context, userID string) (workflow.Actor, error)
}

type actorResolver struct {
	users  repository.UserRepository
	logger zerolog.Logger
}

// NewActorResolver constructs the directory-backed actor resolver.
func NewActorResolver(users repository.UserRepository, logger zerolog.Logger) ActorResolver {
	return &actorResolver{
		users:  users,
		logger: logger.With().Str("component", "actor_resolver").Logger(),
	}
}

func (r *actorResolver) Resolve(ctx context.Context, userID string) (workflow.Actor, error) {
	user, err := r.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return workflow.Actor{}, ErrUnknownActor
		}
		return workflow.Actor{}, err
	}

	actor := workflow.Actor{ID: user.ID, Role: user.Role}

	if user.Role == workflow.RoleTeacher || user.Role == workflow.RoleParent {
		scoped, err := r.users.ScopedStudentIDs(ctx, user.ID)
		if err != nil {
			return workflow.Actor{}, err
		}
		actor.ScopedStudentIDs = scoped
	}

	return actor, nil
}

package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gorm.io/datatypes"

	"github.com/questline-learn/questline-api/internal/dto"
	"github.com/questline-learn/questline-api/internal/models"
	"github.com/questline-learn/questline-api/internal/repository"
	"github.com/questline-learn/questline-api/internal/workflow"
)

// ErrInvalidRubric indicates a mission rubric definition failed schema
// validation.
var ErrInvalidRubric = errors.New("mission rubric does not match the rubric schema")

// rubricSchema constrains mission rubric definitions: a list of named
// criteria, each with a positive maximum score.
const rubricSchema = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "object",
	"required": ["criteria"],
	"properties": {
		"criteria": {
			"type": "array",
			"minItems": 1,
			"items": {
				"type": "object",
				"required": ["key", "label", "max_score"],
				"properties": {
					"key": {"type": "string", "minLength": 1},
					"label": {"type": "string", "minLength": 1},
					"max_score": {"type": "number", "exclusiveMinimum": 0}
				},
				"additionalProperties": false
			}
		}
	},
	"additionalProperties": false
}`

// MissionService manages the mission catalog the workflow engine consults
// at draft creation.
type MissionService interface {
	Create(ctx context.Context, actor workflow.Actor, payload dto.MissionCreateRequest) (dto.MissionResponse, error)
	Get(ctx context.Context, id string) (dto.MissionResponse, error)
	List(ctx context.Context, openOnly bool) ([]dto.MissionResponse, error)
	SetOpen(ctx context.Context, actor workflow.Actor, id string, open bool) (dto.MissionResponse, error)
}

type missionService struct {
	repo      repository.MissionRepository
	validator *validator.Validate
	schema    *jsonschema.Schema
	logger    zerolog.Logger
}

// NewMissionService constructs the mission catalog service.
func NewMissionService(repo repository.MissionRepository, validate *validator.Validate, logger zerolog.Logger) (MissionService, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("rubric.schema.json", bytes.NewReader([]byte(rubricSchema))); err != nil {
		return nil, fmt.Errorf("failed to register rubric schema: %w", err)
	}

	schema, err := compiler.Compile("rubric.schema.json")
	if err != nil {
		return nil, fmt.Errorf("failed to compile rubric schema: %w", err)
	}

	return &missionService{
		repo:      repo,
		validator: validate,
		schema:    schema,
		logger:    logger.With().Str("component", "mission_service").Logger(),
	}, nil
}

func (s *missionService) Create(ctx context.Context, actor workflow.Actor, payload dto.MissionCreateRequest) (dto.MissionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.MissionResponse{}, err
	}

	if actor.Role != workflow.RoleTeacher && actor.Role != workflow.RoleAdmin {
		return dto.MissionResponse{}, workflow.Denied(workflow.DenialRoleMismatch)
	}

	if len(payload.Rubric) > 0 {
		if err := s.validateRubric(payload.Rubric); err != nil {
			return dto.MissionResponse{}, err
		}
	}

	open := true
	if payload.Open != nil {
		open = *payload.Open
	}

	mission := models.Mission{
		ID:       uuid.NewString(),
		Title:    payload.Title,
		Summary:  payload.Summary,
		XPReward: payload.XPReward,
		Open:     open,
		Rubric:   datatypes.JSON(payload.Rubric),
	}

	if err := s.repo.Create(ctx, &mission); err != nil {
		return dto.MissionResponse{}, err
	}

	s.logger.Info().Str("mission_id", mission.ID).Str("title", mission.Title).Msg("mission created")

	return dto.NewMissionResponse(mission), nil
}

func (s *missionService) Get(ctx context.Context, id string) (dto.MissionResponse, error) {
	mission, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return dto.MissionResponse{}, err
	}

	return dto.NewMissionResponse(mission), nil
}

func (s *missionService) List(ctx context.Context, openOnly bool) ([]dto.MissionResponse, error) {
	filter := repository.MissionFilter{}
	if openOnly {
		open := true
		filter.Open = &open
	}

	missions, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	return dto.NewMissionResponseSlice(missions), nil
}

func (s *missionService) SetOpen(ctx context.Context, actor workflow.Actor, id string, open bool) (dto.MissionResponse, error) {
	if actor.Role != workflow.RoleTeacher && actor.Role != workflow.RoleAdmin {
		return dto.MissionResponse{}, workflow.Denied(workflow.DenialRoleMismatch)
	}

	if err := s.repo.SetOpen(ctx, id, open); err != nil {
		return dto.MissionResponse{}, err
	}

	mission, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return dto.MissionResponse{}, err
	}

	return dto.NewMissionResponse(mission), nil
}

func (s *missionService) validateRubric(raw json.RawMessage) error {
	var decoded interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRubric, err)
	}

	if err := s.schema.Validate(decoded); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRubric, err)
	}

	return nil
}

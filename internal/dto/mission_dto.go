package dto

import (
	"encoding/json"
	"time"

	"github.com/questline-learn/questline-api/internal/models"
)

// MissionCreateRequest adds a mission to the catalog.
type MissionCreateRequest struct {
	Title    string          `json:"title" validate:"required,min=3,max=255"`
	Summary  string          `json:"summary" validate:"omitempty,max=10000"`
	XPReward int             `json:"xp_reward" validate:"gte=0,lte=100000"`
	Open     *bool           `json:"open"`
	Rubric   json.RawMessage `json:"rubric" validate:"omitempty"`
}

// MissionOpenRequest toggles whether a mission accepts new drafts.
type MissionOpenRequest struct {
	Open bool `json:"open"`
}

// MissionResponse is returned to API clients when viewing missions.
type MissionResponse struct {
	ID        string          `json:"id"`
	Title     string          `json:"title"`
	Summary   string          `json:"summary"`
	XPReward  int             `json:"xp_reward"`
	Open      bool            `json:"open"`
	Rubric    json.RawMessage `json:"rubric,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// NewMissionResponse converts a Mission model into a DTO.
func NewMissionResponse(model models.Mission) MissionResponse {
	return MissionResponse{
		ID:        model.ID,
		Title:     model.Title,
		Summary:   model.Summary,
		XPReward:  model.XPReward,
		Open:      model.Open,
		Rubric:    json.RawMessage(model.Rubric),
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}
}

// NewMissionResponseSlice maps a slice of models to DTOs.
func NewMissionResponseSlice(missions []models.Mission) []MissionResponse {
	responses := make([]MissionResponse, 0, len(missions))
	for _, mission := range missions {
		responses = append(responses, NewMissionResponse(mission))
	}
	return responses
}

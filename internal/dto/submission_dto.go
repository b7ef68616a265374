package dto

import (
	"time"

	"github.com/questline-learn/questline-api/internal/models"
	"github.com/questline-learn/questline-api/internal/workflow"
)

// ArtifactPayload references one opaque content blob in a create or
// artifact-add request.
type ArtifactPayload struct {
	URL         string `json:"url" validate:"required,max=512"`
	ContentType string `json:"content_type" validate:"omitempty,max=128"`
}

// SubmissionCreateRequest starts a new draft for a mission.
type SubmissionCreateRequest struct {
	MissionID string            `json:"mission_id" validate:"required,uuid4"`
	Artifacts []ArtifactPayload `json:"artifacts" validate:"omitempty,dive"`
}

// TransitionRequest asks the workflow engine to move a submission along
// one edge of the state machine.
type TransitionRequest struct {
	Transition string             `json:"transition" validate:"required,oneof=submit claim request_changes approve reject resubmit reclaim"`
	Feedback   string             `json:"feedback" validate:"omitempty,max=10000"`
	Scores     map[string]float64 `json:"scores" validate:"omitempty,dive,gte=0,lte=100"`
	Reason     string             `json:"reason" validate:"omitempty,max=2000"`
}

// SubmissionFilter describes query string filters for listing submissions.
type SubmissionFilter struct {
	MissionID *string `query:"mission_id"`
	StudentID *string `query:"student_id"`
	Status    *string `query:"status" validate:"omitempty,oneof=draft submitted under_review needs_revision resubmitted approved rejected"`
}

// ArtifactResponse serializes one artifact reference.
type ArtifactResponse struct {
	ID          string    `json:"id"`
	Revision    int       `json:"revision"`
	Position    int       `json:"position"`
	URL         string    `json:"url"`
	ContentType string    `json:"content_type"`
	CreatedAt   time.Time `json:"created_at"`
}

// SubmissionResponse is returned to API clients when viewing submissions.
type SubmissionResponse struct {
	ID                 string                 `json:"id"`
	MissionID          string                 `json:"mission_id"`
	StudentID          string                 `json:"student_id"`
	Status             string                 `json:"status"`
	CurrentRevision    int                    `json:"current_revision"`
	AssignedReviewerID *string                `json:"assigned_reviewer_id"`
	FeedbackText       string                 `json:"feedback_text"`
	FeedbackScores     map[string]interface{} `json:"feedback_scores"`
	Version            int64                  `json:"version"`
	Artifacts          []ArtifactResponse     `json:"artifacts"`
	AvailableActions   []string               `json:"available_actions"`
	CreatedAt          time.Time              `json:"created_at"`
	UpdatedAt          time.Time              `json:"updated_at"`
	SubmittedAt        *time.Time             `json:"submitted_at"`
	ApprovedAt         *time.Time             `json:"approved_at"`
}

// SubmissionEventResponse serializes one audit log entry.
type SubmissionEventResponse struct {
	SubmissionID string                 `json:"submission_id"`
	Sequence     int64                  `json:"sequence"`
	Type         string                 `json:"type"`
	ActorID      string                 `json:"actor_id"`
	ActorRole    string                 `json:"actor_role"`
	FromStatus   string                 `json:"from_status"`
	ToStatus     string                 `json:"to_status"`
	Payload      map[string]interface{} `json:"payload"`
	OccurredAt   time.Time              `json:"occurred_at"`
}

// TransitionResponse bundles the updated submission with the event the
// transition appended.
type TransitionResponse struct {
	Submission SubmissionResponse      `json:"submission"`
	Event      SubmissionEventResponse `json:"event"`
}

// NewSubmissionResponse converts a Submission model into a DTO.
func NewSubmissionResponse(model models.Submission) SubmissionResponse {
	artifacts := make([]ArtifactResponse, 0, len(model.Artifacts))
	for _, a := range model.Artifacts {
		artifacts = append(artifacts, ArtifactResponse{
			ID:          a.ID,
			Revision:    a.Revision,
			Position:    a.Position,
			URL:         a.URL,
			ContentType: a.ContentType,
			CreatedAt:   a.CreatedAt,
		})
	}

	available := workflow.TransitionsFrom(model.Status)
	actions := make([]string, 0, len(available))
	for _, t := range available {
		actions = append(actions, string(t))
	}

	return SubmissionResponse{
		ID:                 model.ID,
		MissionID:          model.MissionID,
		StudentID:          model.StudentID,
		Status:             string(model.Status),
		CurrentRevision:    model.CurrentRevision,
		AssignedReviewerID: model.AssignedReviewerID,
		FeedbackText:       model.FeedbackText,
		FeedbackScores:     model.FeedbackScores,
		Version:            model.Version,
		Artifacts:          artifacts,
		AvailableActions:   actions,
		CreatedAt:          model.CreatedAt,
		UpdatedAt:          model.UpdatedAt,
		SubmittedAt:        model.SubmittedAt,
		ApprovedAt:         model.ApprovedAt,
	}
}

// NewSubmissionResponseSlice maps a slice of models to DTOs.
func NewSubmissionResponseSlice(submissions []models.Submission) []SubmissionResponse {
	responses := make([]SubmissionResponse, 0, len(submissions))
	for _, submission := range submissions {
		responses = append(responses, NewSubmissionResponse(submission))
	}
	return responses
}

// NewSubmissionEventResponse converts a SubmissionEvent model into a DTO.
func NewSubmissionEventResponse(model models.SubmissionEvent) SubmissionEventResponse {
	return SubmissionEventResponse{
		SubmissionID: model.SubmissionID,
		Sequence:     model.Sequence,
		Type:         string(model.Type),
		ActorID:      model.ActorID,
		ActorRole:    string(model.ActorRole),
		FromStatus:   string(model.FromStatus),
		ToStatus:     string(model.ToStatus),
		Payload:      model.Payload,
		OccurredAt:   model.OccurredAt,
	}
}

// NewSubmissionEventResponseSlice maps a slice of events to DTOs.
func NewSubmissionEventResponseSlice(events []models.SubmissionEvent) []SubmissionEventResponse {
	responses := make([]SubmissionEventResponse, 0, len(events))
	for _, event := range events {
		responses = append(responses, NewSubmissionEventResponse(event))
	}
	return responses
}

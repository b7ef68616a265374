package service

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/datatypes"

	"github.com/questline-learn/questline-api/internal/dto"
	"github.com/questline-learn/questline-api/internal/models"
	"github.com/questline-learn/questline-api/internal/observability"
	"github.com/questline-learn/questline-api/internal/repository"
	"github.com/questline-learn/questline-api/internal/workflow"
)

// WorkflowService is the submission workflow engine: it validates a
// requested transition against the current status, the authorizer, and
// the transition's payload rules, commits the new status together with
// exactly one audit event, and emits outcome events to downstream
// consumers. Submissions are never mutated outside this service.
type WorkflowService interface {
	CreateDraft(ctx context.Context, actor workflow.Actor, payload dto.SubmissionCreateRequest) (dto.SubmissionResponse, error)
	ApplyTransition(ctx context.Context, submissionID string, payload dto.TransitionRequest, actor workflow.Actor) (dto.TransitionResponse, error)
	AddArtifact(ctx context.Context, submissionID string, payload dto.ArtifactPayload, actor workflow.Actor) (dto.SubmissionResponse, error)
	GetSubmission(ctx context.Context, submissionID string, actor workflow.Actor) (dto.SubmissionResponse, error)
	ListSubmissions(ctx context.Context, filter dto.SubmissionFilter, actor workflow.Actor) ([]dto.SubmissionResponse, error)
	ListEvents(ctx context.Context, submissionID string, actor workflow.Actor) ([]dto.SubmissionEventResponse, error)
}

type workflowService struct {
	submissions repository.SubmissionRepository
	missions    repository.MissionRepository
	dispatcher  OutcomeDispatcher
	validator   *validator.Validate
	sanitizer   *bluemonday.Policy
	logger      zerolog.Logger
	now         func() time.Time
}

// NewWorkflowService constructs the workflow engine service.
func NewWorkflowService(subRepo repository.SubmissionRepository, missionRepo repository.MissionRepository, dispatcher OutcomeDispatcher, validate *validator.Validate, logger zerolog.Logger) WorkflowService {
	return &workflowService{
		submissions: subRepo,
		missions:    missionRepo,
		dispatcher:  dispatcher,
		validator:   validate,
		sanitizer:   bluemonday.StrictPolicy(),
		logger:      logger.With().Str("component", "workflow_service").Logger(),
		now:         time.Now,
	}
}

func (s *workflowService) CreateDraft(ctx context.Context, actor workflow.Actor, payload dto.SubmissionCreateRequest) (dto.SubmissionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.SubmissionResponse{}, err
	}

	if actor.Role != workflow.RoleStudent {
		return dto.SubmissionResponse{}, workflow.Denied(workflow.DenialRoleMismatch)
	}

	// Mission existence and openness are checked here only; later
	// transitions never consult the catalog again.
	mission, err := s.missions.GetByID(ctx, payload.MissionID)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}
	if !mission.Open {
		return dto.SubmissionResponse{}, workflow.ErrMissionClosed
	}

	now := s.now()
	submission := models.Submission{
		ID:              uuid.NewString(),
		MissionID:       mission.ID,
		StudentID:       actor.ID,
		Status:          workflow.StatusDraft,
		CurrentRevision: 1,
		Version:         1,
	}
	for i, artifact := range payload.Artifacts {
		submission.Artifacts = append(submission.Artifacts, models.Artifact{
			ID:           uuid.NewString(),
			SubmissionID: submission.ID,
			Revision:     1,
			Position:     i + 1,
			URL:          artifact.URL,
			ContentType:  artifact.ContentType,
		})
	}

	event := models.SubmissionEvent{
		Type:       workflow.TransitionCreate,
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		FromStatus: workflow.StatusDraft,
		ToStatus:   workflow.StatusDraft,
		Payload:    datatypes.JSONMap{"mission_id": mission.ID},
		OccurredAt: now,
	}

	if err := s.submissions.Create(ctx, &submission, &event); err != nil {
		return dto.SubmissionResponse{}, err
	}

	s.logger.Info().
		Str("submission_id", submission.ID).
		Str("mission_id", mission.ID).
		Str("student_id", actor.ID).
		Msg("draft created")

	created, err := s.submissions.GetByID(ctx, submission.ID)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	return dto.NewSubmissionResponse(created), nil
}

// ApplyTransition moves a submission along one legal edge on behalf of an
// actor. The commit is all-or-nothing: on any failure neither status,
// version, nor the event log advances. The write is conditioned on the
// version read at load; a losing concurrent request surfaces
// workflow.ErrConcurrentModification and never commits an event.
func (s *workflowService) ApplyTransition(ctx context.Context, submissionID string, payload dto.TransitionRequest, actor workflow.Actor) (dto.TransitionResponse, error) {
	tracer := otel.Tracer("github.com/questline-learn/questline-api/internal/service/workflow")
	ctx, span := tracer.Start(ctx, "workflow.apply_transition")
	span.SetAttributes(
		attribute.String("workflow.submission_id", submissionID),
		attribute.String("workflow.transition", payload.Transition),
		attribute.String("workflow.actor_role", string(actor.Role)),
	)
	defer span.End()

	if err := s.validator.Struct(payload); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation_failed")
		return dto.TransitionResponse{}, err
	}

	transition := workflow.Transition(payload.Transition)
	edge, ok := workflow.EdgeFor(transition)
	if !ok {
		return dto.TransitionResponse{}, workflow.ErrInvalidTransition
	}

	submission, err := s.submissions.GetByID(ctx, submissionID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "submission_lookup_failed")
		return dto.TransitionResponse{}, err
	}

	if !workflow.CanTransition(submission.Status, transition) {
		observability.WorkflowRejections().WithLabelValues(string(transition), "invalid_transition").Inc()
		return dto.TransitionResponse{}, workflow.ErrInvalidTransition
	}

	if err := workflow.Authorize(actor, submission.Ref(), transition); err != nil {
		observability.WorkflowRejections().WithLabelValues(string(transition), "unauthorized").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "unauthorized")
		return dto.TransitionResponse{}, err
	}

	feedback := s.sanitizer.Sanitize(strings.TrimSpace(payload.Feedback))
	reason := s.sanitizer.Sanitize(strings.TrimSpace(payload.Reason))

	if transition == workflow.TransitionApprove && feedback == "" {
		return dto.TransitionResponse{}, workflow.ErrMissingFeedback
	}
	if transition == workflow.TransitionResubmit {
		if len(submission.ArtifactsForRevision(submission.CurrentRevision+1)) == 0 {
			return dto.TransitionResponse{}, workflow.ErrNoNewArtifact
		}
	}

	expectedVersion := submission.Version
	now := s.now()
	eventPayload := datatypes.JSONMap{}

	switch transition {
	case workflow.TransitionSubmit:
		submittedAt := now
		submission.SubmittedAt = &submittedAt
	case workflow.TransitionClaim, workflow.TransitionReclaim:
		reviewerID := actor.ID
		submission.AssignedReviewerID = &reviewerID
	case workflow.TransitionRequestChanges:
		submission.FeedbackText = feedback
		submission.FeedbackScores = scoresToJSONMap(payload.Scores)
		eventPayload["feedback"] = feedback
	case workflow.TransitionApprove:
		submission.FeedbackText = feedback
		submission.FeedbackScores = scoresToJSONMap(payload.Scores)
		eventPayload["feedback"] = feedback
		if submission.ApprovedAt == nil {
			approvedAt := now
			submission.ApprovedAt = &approvedAt
		}
	case workflow.TransitionReject:
		submission.FeedbackText = feedback
		eventPayload["feedback"] = feedback
		eventPayload["reason"] = reason
	case workflow.TransitionResubmit:
		submission.CurrentRevision++
		eventPayload["revision"] = submission.CurrentRevision
	}

	fromStatus := submission.Status
	submission.Status = edge.To
	submission.Version = expectedVersion + 1
	submission.UpdatedAt = now

	event := models.SubmissionEvent{
		Type:       transition,
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		FromStatus: fromStatus,
		ToStatus:   edge.To,
		Payload:    eventPayload,
		OccurredAt: now,
	}

	if err := s.submissions.SaveWithEvent(ctx, &submission, expectedVersion, &event); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "commit_failed")
		return dto.TransitionResponse{}, err
	}

	observability.WorkflowTransitions().WithLabelValues(string(transition), string(fromStatus), string(edge.To)).Inc()
	s.logger.Info().
		Str("submission_id", submission.ID).
		Str("transition", string(transition)).
		Str("from", string(fromStatus)).
		Str("to", string(edge.To)).
		Int64("version", submission.Version).
		Msg("transition committed")

	s.emitOutcome(ctx, submission, transition, feedback, reason)

	updated, err := s.submissions.GetByID(ctx, submission.ID)
	if err != nil {
		return dto.TransitionResponse{}, err
	}

	return dto.TransitionResponse{
		Submission: dto.NewSubmissionResponse(updated),
		Event:      dto.NewSubmissionEventResponse(event),
	}, nil
}

// emitOutcome publishes the side-effect request for transitions with
// external consequences. The transition is already committed; a publish
// failure is logged and left to consumers to reconcile, never bubbled up.
func (s *workflowService) emitOutcome(ctx context.Context, submission models.Submission, transition workflow.Transition, feedback, reason string) {
	var kind string
	switch transition {
	case workflow.TransitionApprove:
		kind = dto.OutcomeKindApproved
	case workflow.TransitionReject:
		kind = dto.OutcomeKindRejected
	case workflow.TransitionRequestChanges:
		kind = dto.OutcomeKindNeedsRevision
	default:
		return
	}

	outcome := dto.OutcomeEvent{
		SubmissionID:   submission.ID,
		MissionID:      submission.MissionID,
		StudentID:      submission.StudentID,
		Kind:           kind,
		IdempotencyKey: submission.ID + ":" + kind,
		EmittedAt:      s.now(),
	}
	if feedback != "" || reason != "" {
		outcome.Payload = map[string]interface{}{}
		if feedback != "" {
			outcome.Payload["feedback"] = feedback
		}
		if reason != "" {
			outcome.Payload["reason"] = reason
		}
	}

	if err := s.dispatcher.Dispatch(ctx, outcome); err != nil {
		s.logger.Warn().Err(err).
			Str("submission_id", submission.ID).
			Str("kind", kind).
			Msg("failed to dispatch outcome event")
		return
	}

	observability.WorkflowOutcomes().WithLabelValues(kind).Inc()
}

func (s *workflowService) AddArtifact(ctx context.Context, submissionID string, payload dto.ArtifactPayload, actor workflow.Actor) (dto.SubmissionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.SubmissionResponse{}, err
	}

	submission, err := s.submissions.GetByID(ctx, submissionID)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	if actor.Role != workflow.RoleStudent {
		return dto.SubmissionResponse{}, workflow.Denied(workflow.DenialRoleMismatch)
	}
	if actor.ID != submission.StudentID {
		return dto.SubmissionResponse{}, workflow.Denied(workflow.DenialNotOwner)
	}

	// Drafts stage artifacts on the current revision; a submission sent
	// back for changes stages the next revision instead, which is what
	// the resubmit transition checks for.
	var revision int
	switch submission.Status {
	case workflow.StatusDraft:
		revision = submission.CurrentRevision
	case workflow.StatusNeedsRevision:
		revision = submission.CurrentRevision + 1
	default:
		return dto.SubmissionResponse{}, workflow.ErrInvalidTransition
	}

	artifact := models.Artifact{
		ID:           uuid.NewString(),
		SubmissionID: submission.ID,
		Revision:     revision,
		Position:     len(submission.ArtifactsForRevision(revision)) + 1,
		URL:          payload.URL,
		ContentType:  payload.ContentType,
	}

	if err := s.submissions.AddArtifact(ctx, &artifact); err != nil {
		return dto.SubmissionResponse{}, err
	}

	updated, err := s.submissions.GetByID(ctx, submission.ID)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	return dto.NewSubmissionResponse(updated), nil
}

func (s *workflowService) GetSubmission(ctx context.Context, submissionID string, actor workflow.Actor) (dto.SubmissionResponse, error) {
	submission, err := s.submissions.GetByID(ctx, submissionID)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	if err := s.authorizeRead(actor, submission); err != nil {
		return dto.SubmissionResponse{}, err
	}

	return dto.NewSubmissionResponse(submission), nil
}

func (s *workflowService) ListSubmissions(ctx context.Context, filter dto.SubmissionFilter, actor workflow.Actor) ([]dto.SubmissionResponse, error) {
	if err := s.validator.Struct(filter); err != nil {
		return nil, err
	}

	repoFilter := repository.SubmissionFilter{MissionID: filter.MissionID}
	if filter.Status != nil {
		status := workflow.Status(*filter.Status)
		repoFilter.Status = &status
	}

	// Results are narrowed to what the actor may see: students their own
	// submissions, teachers and parents their scoped students, admins all.
	switch actor.Role {
	case workflow.RoleStudent:
		studentID := actor.ID
		repoFilter.StudentID = &studentID
	case workflow.RoleTeacher, workflow.RoleParent:
		if len(actor.ScopedStudentIDs) == 0 {
			return []dto.SubmissionResponse{}, nil
		}
		repoFilter.StudentIDs = actor.ScopedStudentIDs
		if filter.StudentID != nil {
			if !actor.InScope(*filter.StudentID) {
				return []dto.SubmissionResponse{}, nil
			}
			repoFilter.StudentIDs = nil
			repoFilter.StudentID = filter.StudentID
		}
	case workflow.RoleAdmin:
		repoFilter.StudentID = filter.StudentID
	default:
		return nil, workflow.Denied(workflow.DenialRoleMismatch)
	}

	submissions, err := s.submissions.List(ctx, repoFilter)
	if err != nil {
		return nil, err
	}

	return dto.NewSubmissionResponseSlice(submissions), nil
}

func (s *workflowService) ListEvents(ctx context.Context, submissionID string, actor workflow.Actor) ([]dto.SubmissionEventResponse, error) {
	submission, err := s.submissions.GetByID(ctx, submissionID)
	if err != nil {
		return nil, err
	}

	if err := s.authorizeRead(actor, submission); err != nil {
		return nil, err
	}

	events, err := s.submissions.ListEvents(ctx, submissionID)
	if err != nil {
		return nil, err
	}

	return dto.NewSubmissionEventResponseSlice(events), nil
}

func (s *workflowService) authorizeRead(actor workflow.Actor, submission models.Submission) error {
	switch actor.Role {
	case workflow.RoleStudent:
		if actor.ID != submission.StudentID {
			return workflow.Denied(workflow.DenialNotOwner)
		}
	case workflow.RoleTeacher, workflow.RoleParent:
		if !actor.InScope(submission.StudentID) {
			return workflow.Denied(workflow.DenialNotAssignedReviewer)
		}
	case workflow.RoleAdmin:
	default:
		return workflow.Denied(workflow.DenialRoleMismatch)
	}

	return nil
}

func scoresToJSONMap(scores map[string]float64) datatypes.JSONMap {
	if len(scores) == 0 {
		return nil
	}
	out := datatypes.JSONMap{}
	for criterion, score := range scores {
		out[criterion] = score
	}
	return out
}

package service

import (
	"context"
	"io"
	"sync"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/questline-learn/questline-api/internal/dto"
	"github.com/questline-learn/questline-api/internal/models"
	"github.com/questline-learn/questline-api/internal/repository"
	"github.com/questline-learn/questline-api/internal/workflow"
)

type capturingDispatcher struct {
	mu       sync.Mutex
	outcomes []dto.OutcomeEvent
	fail     bool
}

func (d *capturingDispatcher) Dispatch(_ context.Context, outcome dto.OutcomeEvent) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fail {
		return errDispatchDown
	}
	d.outcomes = append(d.outcomes, outcome)
	return nil
}

func (d *capturingDispatcher) byKind(kind string) []dto.OutcomeEvent {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []dto.OutcomeEvent
	for _, outcome := range d.outcomes {
		if outcome.Kind == kind {
			out = append(out, outcome)
		}
	}
	return out
}

var errDispatchDown = errSentinel("dispatcher unavailable")

type errSentinel string

func (e errSentinel) Error() string { return string(e) }

type workflowFixture struct {
	service     WorkflowService
	submissions repository.SubmissionRepository
	missions    repository.MissionRepository
	dispatcher  *capturingDispatcher
	mission     models.Mission

	student  workflow.Actor
	teacher  workflow.Actor
	stranger workflow.Actor
}

func newWorkflowFixture(t *testing.T) *workflowFixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Mission{},
		&models.Submission{},
		&models.Artifact{},
		&models.SubmissionEvent{},
	))

	submissionRepo := repository.NewSubmissionRepository(db)
	missionRepo := repository.NewMissionRepository(db)
	dispatcher := &capturingDispatcher{}
	validate := validator.New(validator.WithRequiredStructEnabled())
	logger := zerolog.New(io.Discard)

	mission := models.Mission{ID: uuid.NewString(), Title: "Build a weather station", XPReward: 150, Open: true}
	require.NoError(t, missionRepo.Create(context.Background(), &mission))

	return &workflowFixture{
		service:     NewWorkflowService(submissionRepo, missionRepo, dispatcher, validate, logger),
		submissions: submissionRepo,
		missions:    missionRepo,
		dispatcher:  dispatcher,
		mission:     mission,
		student:     workflow.Actor{ID: uuid.NewString(), Role: workflow.RoleStudent},
		teacher:     workflow.Actor{ID: uuid.NewString(), Role: workflow.RoleTeacher},
		stranger:    workflow.Actor{ID: uuid.NewString(), Role: workflow.RoleTeacher, ScopedStudentIDs: []string{"someone-else"}},
	}
}

func (f *workflowFixture) newDraft(t *testing.T) dto.SubmissionResponse {
	t.Helper()

	f.teacher.ScopedStudentIDs = []string{f.student.ID}
	draft, err := f.service.CreateDraft(context.Background(), f.student, dto.SubmissionCreateRequest{
		MissionID: f.mission.ID,
		Artifacts: []dto.ArtifactPayload{{URL: "https://files.test/v1.pdf", ContentType: "application/pdf"}},
	})
	require.NoError(t, err)

	return draft
}

func (f *workflowFixture) apply(t *testing.T, id string, actor workflow.Actor, req dto.TransitionRequest) dto.TransitionResponse {
	t.Helper()

	result, err := f.service.ApplyTransition(context.Background(), id, req, actor)
	require.NoError(t, err)
	return result
}

func TestCreateDraft(t *testing.T) {
	f := newWorkflowFixture(t)

	draft := f.newDraft(t)
	require.Equal(t, string(workflow.StatusDraft), draft.Status)
	require.Equal(t, 1, draft.CurrentRevision)
	require.Equal(t, int64(1), draft.Version)
	require.Len(t, draft.Artifacts, 1)

	events, err := f.service.ListEvents(context.Background(), draft.ID, f.student)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, string(workflow.TransitionCreate), events[0].Type)
}

func TestCreateDraftClosedMission(t *testing.T) {
	f := newWorkflowFixture(t)
	require.NoError(t, f.missions.SetOpen(context.Background(), f.mission.ID, false))

	_, err := f.service.CreateDraft(context.Background(), f.student, dto.SubmissionCreateRequest{MissionID: f.mission.ID})
	require.ErrorIs(t, err, workflow.ErrMissionClosed)
}

func TestCreateDraftUnknownMission(t *testing.T) {
	f := newWorkflowFixture(t)

	_, err := f.service.CreateDraft(context.Background(), f.student, dto.SubmissionCreateRequest{MissionID: uuid.NewString()})
	require.ErrorIs(t, err, workflow.ErrMissionNotFound)
}

func TestCreateDraftRequiresStudent(t *testing.T) {
	f := newWorkflowFixture(t)

	_, err := f.service.CreateDraft(context.Background(), f.teacher, dto.SubmissionCreateRequest{MissionID: f.mission.ID})
	require.ErrorIs(t, err, workflow.ErrUnauthorized)
}

// The end-to-end review lifecycle: submit, claim, request changes,
// resubmit with a fresh artifact, reclaim, approve. Exactly one approved
// outcome is emitted and the submission is terminal afterwards.
func TestFullReviewLifecycle(t *testing.T) {
	f := newWorkflowFixture(t)
	draft := f.newDraft(t)
	ctx := context.Background()

	f.apply(t, draft.ID, f.student, dto.TransitionRequest{Transition: "submit"})
	f.apply(t, draft.ID, f.teacher, dto.TransitionRequest{Transition: "claim"})
	f.apply(t, draft.ID, f.teacher, dto.TransitionRequest{Transition: "request_changes", Feedback: "add tests"})

	// Resubmission without a new artifact must fail with the state intact.
	_, err := f.service.ApplyTransition(ctx, draft.ID, dto.TransitionRequest{Transition: "resubmit"}, f.student)
	require.ErrorIs(t, err, workflow.ErrNoNewArtifact)

	_, err = f.service.AddArtifact(ctx, draft.ID, dto.ArtifactPayload{URL: "https://files.test/v2.pdf"}, f.student)
	require.NoError(t, err)

	resubmitted := f.apply(t, draft.ID, f.student, dto.TransitionRequest{Transition: "resubmit"})
	require.Equal(t, 2, resubmitted.Submission.CurrentRevision)

	f.apply(t, draft.ID, f.teacher, dto.TransitionRequest{Transition: "reclaim"})
	approved := f.apply(t, draft.ID, f.teacher, dto.TransitionRequest{Transition: "approve", Feedback: "looks good"})

	require.Equal(t, string(workflow.StatusApproved), approved.Submission.Status)
	require.NotNil(t, approved.Submission.ApprovedAt)
	require.Equal(t, "looks good", approved.Submission.FeedbackText)

	// Exactly one approved outcome, keyed for downstream dedupe.
	emitted := f.dispatcher.byKind(dto.OutcomeKindApproved)
	require.Len(t, emitted, 1)
	require.Equal(t, draft.ID+":approved", emitted[0].IdempotencyKey)
	require.Equal(t, f.mission.ID, emitted[0].MissionID)

	// Terminal: every further transition fails with InvalidTransition.
	for _, transition := range []string{"submit", "claim", "request_changes", "approve", "reject", "resubmit", "reclaim"} {
		_, err := f.service.ApplyTransition(ctx, draft.ID, dto.TransitionRequest{Transition: transition, Feedback: "x"}, f.teacher)
		require.ErrorIs(t, err, workflow.ErrInvalidTransition, "transition %s", transition)
	}
}

func TestEventReplayFoldsToCurrentStatus(t *testing.T) {
	f := newWorkflowFixture(t)
	draft := f.newDraft(t)
	ctx := context.Background()

	f.apply(t, draft.ID, f.student, dto.TransitionRequest{Transition: "submit"})
	f.apply(t, draft.ID, f.teacher, dto.TransitionRequest{Transition: "claim"})
	f.apply(t, draft.ID, f.teacher, dto.TransitionRequest{Transition: "request_changes", Feedback: "tighten up"})

	events, err := f.service.ListEvents(ctx, draft.ID, f.student)
	require.NoError(t, err)

	var replayed string
	for i, event := range events {
		require.Equal(t, int64(i+1), event.Sequence, "sequence must be gapless")
		replayed = event.ToStatus
	}

	current, err := f.service.GetSubmission(ctx, draft.ID, f.student)
	require.NoError(t, err)
	require.Equal(t, current.Status, replayed)
}

func TestApproveRequiresFeedback(t *testing.T) {
	f := newWorkflowFixture(t)
	draft := f.newDraft(t)
	ctx := context.Background()

	f.apply(t, draft.ID, f.student, dto.TransitionRequest{Transition: "submit"})
	f.apply(t, draft.ID, f.teacher, dto.TransitionRequest{Transition: "claim"})

	_, err := f.service.ApplyTransition(ctx, draft.ID, dto.TransitionRequest{Transition: "approve"}, f.teacher)
	require.ErrorIs(t, err, workflow.ErrMissingFeedback)

	// Nothing advanced: still under review at the same version.
	current, err := f.service.GetSubmission(ctx, draft.ID, f.student)
	require.NoError(t, err)
	require.Equal(t, string(workflow.StatusUnderReview), current.Status)
	require.Equal(t, int64(3), current.Version)
	require.Empty(t, f.dispatcher.byKind(dto.OutcomeKindApproved))

	// Supplying feedback and retrying succeeds.
	f.apply(t, draft.ID, f.teacher, dto.TransitionRequest{Transition: "approve", Feedback: "well done"})
	require.Len(t, f.dispatcher.byKind(dto.OutcomeKindApproved), 1)
}

func TestTeacherOutsideScopeUnauthorized(t *testing.T) {
	f := newWorkflowFixture(t)
	draft := f.newDraft(t)
	ctx := context.Background()

	f.apply(t, draft.ID, f.student, dto.TransitionRequest{Transition: "submit"})

	before, err := f.service.GetSubmission(ctx, draft.ID, f.student)
	require.NoError(t, err)

	_, err = f.service.ApplyTransition(ctx, draft.ID, dto.TransitionRequest{Transition: "claim"}, f.stranger)
	require.ErrorIs(t, err, workflow.ErrUnauthorized)

	after, err := f.service.GetSubmission(ctx, draft.ID, f.student)
	require.NoError(t, err)
	require.Equal(t, before.Version, after.Version)
	require.Equal(t, before.Status, after.Status)

	// The same call from the scoped teacher succeeds.
	claimed := f.apply(t, draft.ID, f.teacher, dto.TransitionRequest{Transition: "claim"})
	require.Equal(t, string(workflow.StatusUnderReview), claimed.Submission.Status)
	require.Equal(t, f.teacher.ID, *claimed.Submission.AssignedReviewerID)
}

func TestInvalidTransitionLeavesStateUnchanged(t *testing.T) {
	f := newWorkflowFixture(t)
	draft := f.newDraft(t)
	ctx := context.Background()

	// approve, claim, resubmit are all illegal from draft.
	for _, transition := range []string{"approve", "claim", "resubmit", "reclaim", "request_changes", "reject"} {
		_, err := f.service.ApplyTransition(ctx, draft.ID, dto.TransitionRequest{Transition: transition, Feedback: "x"}, f.teacher)
		require.ErrorIs(t, err, workflow.ErrInvalidTransition, "transition %s", transition)
	}

	current, err := f.service.GetSubmission(ctx, draft.ID, f.student)
	require.NoError(t, err)
	require.Equal(t, string(workflow.StatusDraft), current.Status)
	require.Equal(t, int64(1), current.Version)

	events, err := f.service.ListEvents(ctx, draft.ID, f.student)
	require.NoError(t, err)
	require.Len(t, events, 1)
}

func TestUnknownSubmission(t *testing.T) {
	f := newWorkflowFixture(t)

	_, err := f.service.ApplyTransition(context.Background(), uuid.NewString(), dto.TransitionRequest{Transition: "submit"}, f.student)
	require.ErrorIs(t, err, workflow.ErrSubmissionNotFound)
}

// racingRepo injects a competing commit between the engine's load and
// save to exercise the optimistic-concurrency path.
type racingRepo struct {
	repository.SubmissionRepository
	once    sync.Once
	compete func()
}

func (r *racingRepo) SaveWithEvent(ctx context.Context, submission *models.Submission, expectedVersion int64, event *models.SubmissionEvent) error {
	r.once.Do(r.compete)
	return r.SubmissionRepository.SaveWithEvent(ctx, submission, expectedVersion, event)
}

func TestConcurrentClaimLosesCleanly(t *testing.T) {
	f := newWorkflowFixture(t)
	draft := f.newDraft(t)
	ctx := context.Background()

	f.apply(t, draft.ID, f.student, dto.TransitionRequest{Transition: "submit"})

	rival := workflow.Actor{ID: uuid.NewString(), Role: workflow.RoleTeacher, ScopedStudentIDs: []string{f.student.ID}}

	racing := &racingRepo{SubmissionRepository: f.submissions}
	racing.compete = func() {
		// The rival's claim commits first.
		rivalService := NewWorkflowService(f.submissions, f.missions, f.dispatcher, validator.New(validator.WithRequiredStructEnabled()), zerolog.New(io.Discard))
		_, err := rivalService.ApplyTransition(ctx, draft.ID, dto.TransitionRequest{Transition: "claim"}, rival)
		require.NoError(t, err)
	}

	racingService := NewWorkflowService(racing, f.missions, f.dispatcher, validator.New(validator.WithRequiredStructEnabled()), zerolog.New(io.Discard))
	_, err := racingService.ApplyTransition(ctx, draft.ID, dto.TransitionRequest{Transition: "claim"}, f.teacher)
	require.ErrorIs(t, err, workflow.ErrConcurrentModification)

	// The losing request committed no event; the rival holds the review.
	current, err := f.service.GetSubmission(ctx, draft.ID, f.student)
	require.NoError(t, err)
	require.Equal(t, string(workflow.StatusUnderReview), current.Status)
	require.Equal(t, rival.ID, *current.AssignedReviewerID)

	events, err := f.service.ListEvents(ctx, draft.ID, f.student)
	require.NoError(t, err)
	require.Len(t, events, 3)
	require.Equal(t, string(workflow.TransitionClaim), events[2].Type)
	require.Equal(t, rival.ID, events[2].ActorID)
}

func TestDispatcherFailureDoesNotFailTransition(t *testing.T) {
	f := newWorkflowFixture(t)
	draft := f.newDraft(t)
	ctx := context.Background()

	f.apply(t, draft.ID, f.student, dto.TransitionRequest{Transition: "submit"})
	f.apply(t, draft.ID, f.teacher, dto.TransitionRequest{Transition: "claim"})

	f.dispatcher.fail = true
	approved, err := f.service.ApplyTransition(ctx, draft.ID, dto.TransitionRequest{Transition: "approve", Feedback: "solid"}, f.teacher)
	require.NoError(t, err)
	require.Equal(t, string(workflow.StatusApproved), approved.Submission.Status)
}

func TestFeedbackIsSanitized(t *testing.T) {
	f := newWorkflowFixture(t)
	draft := f.newDraft(t)

	f.apply(t, draft.ID, f.student, dto.TransitionRequest{Transition: "submit"})
	f.apply(t, draft.ID, f.teacher, dto.TransitionRequest{Transition: "claim"})

	result := f.apply(t, draft.ID, f.teacher, dto.TransitionRequest{
		Transition: "request_changes",
		Feedback:   `add tests <script>alert("xss")</script>`,
	})
	require.NotContains(t, result.Submission.FeedbackText, "<script>")
	require.Contains(t, result.Submission.FeedbackText, "add tests")
}

func TestAddArtifactRules(t *testing.T) {
	f := newWorkflowFixture(t)
	draft := f.newDraft(t)
	ctx := context.Background()

	// Only the owner may stage artifacts.
	_, err := f.service.AddArtifact(ctx, draft.ID, dto.ArtifactPayload{URL: "https://files.test/x.pdf"}, f.teacher)
	require.ErrorIs(t, err, workflow.ErrUnauthorized)

	// Draft stages onto the current revision.
	updated, err := f.service.AddArtifact(ctx, draft.ID, dto.ArtifactPayload{URL: "https://files.test/extra.pdf"}, f.student)
	require.NoError(t, err)
	require.Len(t, updated.Artifacts, 2)

	// Once submitted, artifacts are frozen until changes are requested.
	f.apply(t, draft.ID, f.student, dto.TransitionRequest{Transition: "submit"})
	_, err = f.service.AddArtifact(ctx, draft.ID, dto.ArtifactPayload{URL: "https://files.test/late.pdf"}, f.student)
	require.ErrorIs(t, err, workflow.ErrInvalidTransition)
}

func TestListSubmissionsScoping(t *testing.T) {
	f := newWorkflowFixture(t)
	draft := f.newDraft(t)
	ctx := context.Background()

	// The owning student sees it, the out-of-scope teacher does not.
	mine, err := f.service.ListSubmissions(ctx, dto.SubmissionFilter{}, f.student)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	require.Equal(t, draft.ID, mine[0].ID)

	scoped, err := f.service.ListSubmissions(ctx, dto.SubmissionFilter{}, f.teacher)
	require.NoError(t, err)
	require.Len(t, scoped, 1)

	foreign, err := f.service.ListSubmissions(ctx, dto.SubmissionFilter{}, f.stranger)
	require.NoError(t, err)
	require.Empty(t, foreign)

	admin := workflow.Actor{ID: uuid.NewString(), Role: workflow.RoleAdmin}
	all, err := f.service.ListSubmissions(ctx, dto.SubmissionFilter{}, admin)
	require.NoError(t, err)
	require.Len(t, all, 1)
}

func TestGetSubmissionReadScope(t *testing.T) {
	f := newWorkflowFixture(t)
	draft := f.newDraft(t)
	ctx := context.Background()

	_, err := f.service.GetSubmission(ctx, draft.ID, f.stranger)
	require.ErrorIs(t, err, workflow.ErrUnauthorized)

	other := workflow.Actor{ID: uuid.NewString(), Role: workflow.RoleStudent}
	_, err = f.service.GetSubmission(ctx, draft.ID, other)
	require.ErrorIs(t, err, workflow.ErrUnauthorized)

	_, err = f.service.GetSubmission(ctx, draft.ID, f.student)
	require.NoError(t, err)
}

package workflow_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/questline-learn/questline-api/internal/workflow"
)

func TestTransitionTableLegalEdges(t *testing.T) {
	legal := map[workflow.Transition]struct {
		from workflow.Status
		to   workflow.Status
		role workflow.Role
	}{
		workflow.TransitionSubmit:         {workflow.StatusDraft, workflow.StatusSubmitted, workflow.RoleStudent},
		workflow.TransitionClaim:          {workflow.StatusSubmitted, workflow.StatusUnderReview, workflow.RoleTeacher},
		workflow.TransitionRequestChanges: {workflow.StatusUnderReview, workflow.StatusNeedsRevision, workflow.RoleTeacher},
		workflow.TransitionApprove:        {workflow.StatusUnderReview, workflow.StatusApproved, workflow.RoleTeacher},
		workflow.TransitionReject:         {workflow.StatusUnderReview, workflow.StatusRejected, workflow.RoleTeacher},
		workflow.TransitionResubmit:       {workflow.StatusNeedsRevision, workflow.StatusResubmitted, workflow.RoleStudent},
		workflow.TransitionReclaim:        {workflow.StatusResubmitted, workflow.StatusUnderReview, workflow.RoleTeacher},
	}

	for transition, expected := range legal {
		edge, ok := workflow.EdgeFor(transition)
		require.True(t, ok, "transition %s should be in the table", transition)
		require.Equal(t, expected.from, edge.From)
		require.Equal(t, expected.to, edge.To)
		require.Equal(t, expected.role, edge.Role)
		require.True(t, workflow.CanTransition(expected.from, transition))
	}
}

func TestCanTransitionRejectsIllegalPairs(t *testing.T) {
	transitions := []workflow.Transition{
		workflow.TransitionSubmit,
		workflow.TransitionClaim,
		workflow.TransitionRequestChanges,
		workflow.TransitionApprove,
		workflow.TransitionReject,
		workflow.TransitionResubmit,
		workflow.TransitionReclaim,
	}

	// Every (status, transition) pair outside the table must be illegal.
	for _, status := range workflow.Statuses() {
		for _, transition := range transitions {
			edge, _ := workflow.EdgeFor(transition)
			expected := edge.From == status
			require.Equal(t, expected, workflow.CanTransition(status, transition),
				"status %s transition %s", status, transition)
		}
	}
}

func TestTerminalStatusesHaveNoTransitions(t *testing.T) {
	require.Empty(t, workflow.TransitionsFrom(workflow.StatusApproved))
	require.Empty(t, workflow.TransitionsFrom(workflow.StatusRejected))
	require.True(t, workflow.StatusApproved.Terminal())
	require.True(t, workflow.StatusRejected.Terminal())
	require.False(t, workflow.StatusUnderReview.Terminal())
}

func TestTransitionsFromUnderReview(t *testing.T) {
	available := workflow.TransitionsFrom(workflow.StatusUnderReview)
	require.Equal(t, []workflow.Transition{
		workflow.TransitionRequestChanges,
		workflow.TransitionApprove,
		workflow.TransitionReject,
	}, available)
}

func TestUnknownTransitionInvalid(t *testing.T) {
	require.False(t, workflow.Transition("escalate").Valid())
	require.False(t, workflow.CanTransition(workflow.StatusDraft, workflow.Transition("escalate")))
	require.False(t, workflow.TransitionCreate.Valid())
}

func TestStatusValid(t *testing.T) {
	for _, status := range workflow.Statuses() {
		require.True(t, status.Valid())
	}
	require.False(t, workflow.Status("archived").Valid())
}

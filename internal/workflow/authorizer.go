package workflow

// SubmissionRef is the slice of a submission the authorizer needs: who
// owns it and which teacher, if any, currently holds the review.
type SubmissionRef struct {
	StudentID          string
	AssignedReviewerID string
}

// Authorize decides whether an actor may request a transition on a
// submission. It returns nil when allowed and an *AuthorizationError
// (unwrapping to ErrUnauthorized) when denied. It is deterministic in its
// three inputs and never mutates anything; legality of the state pair is
// checked separately by the engine.
func Authorize(actor Actor, ref SubmissionRef, t Transition) error {
	edge, ok := transitionTable[t]
	if !ok {
		return ErrInvalidTransition
	}

	switch edge.Role {
	case RoleStudent:
		if actor.Role != RoleStudent {
			return Denied(DenialRoleMismatch)
		}
		if actor.ID != ref.StudentID {
			return Denied(DenialNotOwner)
		}
	case RoleTeacher:
		if actor.Role != RoleTeacher {
			return Denied(DenialRoleMismatch)
		}
		if !actor.InScope(ref.StudentID) {
			return Denied(DenialNotAssignedReviewer)
		}
		// Once a teacher holds the review, only that teacher may conclude
		// it. Claiming and re-claiming reassign the reviewer instead.
		if reviewConcluding(t) && ref.AssignedReviewerID != "" && ref.AssignedReviewerID != actor.ID {
			return Denied(DenialNotAssignedReviewer)
		}
	default:
		return Denied(DenialRoleMismatch)
	}

	return nil
}

func reviewConcluding(t Transition) bool {
	switch t {
	case TransitionRequestChanges, TransitionApprove, TransitionReject:
		return true
	}
	return false
}

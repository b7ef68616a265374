package workflow

import (
	"errors"
	"fmt"
)

// ErrSubmissionNotFound indicates the submission id resolved to nothing.
var ErrSubmissionNotFound = errors.New("submission not found")

// ErrMissionNotFound indicates the mission id resolved to nothing.
var ErrMissionNotFound = errors.New("mission not found")

// ErrMissionClosed indicates the mission exists but is not open for work.
var ErrMissionClosed = errors.New("mission is not open for submissions")

// ErrInvalidTransition indicates the requested state pair is not in the
// legal transition table.
var ErrInvalidTransition = errors.New("invalid transition")

// ErrUnauthorized indicates the actor's role or scope does not permit the
// requested transition.
var ErrUnauthorized = errors.New("actor not authorized for transition")

// ErrMissingFeedback indicates an approval was requested without feedback.
var ErrMissingFeedback = errors.New("approval requires non-empty feedback")

// ErrNoNewArtifact indicates a resubmission carried no artifact beyond the
// prior revision.
var ErrNoNewArtifact = errors.New("resubmission requires a new artifact")

// ErrConcurrentModification indicates another transition committed between
// load and save; the caller should reload and retry.
var ErrConcurrentModification = errors.New("submission was modified concurrently")

// DenialReason explains why the authorizer denied a transition.
type DenialReason string

// Authorization denial reasons.
const (
	DenialNotOwner            DenialReason = "not_owner"
	DenialNotAssignedReviewer DenialReason = "not_assigned_reviewer"
	DenialRoleMismatch        DenialReason = "role_mismatch"
)

// AuthorizationError carries the denial reason alongside ErrUnauthorized
// so callers can match with errors.Is while logs keep the specific cause.
type AuthorizationError struct {
	Reason DenialReason
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("%s: %s", ErrUnauthorized.Error(), e.Reason)
}

// Unwrap makes errors.Is(err, ErrUnauthorized) hold for every denial.
func (e *AuthorizationError) Unwrap() error {
	return ErrUnauthorized
}

// Denied builds an AuthorizationError for the given reason.
func Denied(reason DenialReason) error {
	return &AuthorizationError{Reason: reason}
}

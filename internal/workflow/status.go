// Package workflow implements the submission review state machine: the
// seven submission statuses, the legal transitions between them, and the
// authorization rules deciding which actor may trigger each transition.
// The package is pure — it performs no I/O and reads no clock — so every
// rule is unit-testable in isolation.
package workflow

// Status is a submission's position in the review lifecycle.
type Status string

// The seven submission statuses. Approved and rejected are terminal.
const (
	StatusDraft         Status = "draft"
	StatusSubmitted     Status = "submitted"
	StatusUnderReview   Status = "under_review"
	StatusNeedsRevision Status = "needs_revision"
	StatusResubmitted   Status = "resubmitted"
	StatusApproved      Status = "approved"
	StatusRejected      Status = "rejected"
)

// Statuses lists every valid status value.
func Statuses() []Status {
	return []Status{
		StatusDraft,
		StatusSubmitted,
		StatusUnderReview,
		StatusNeedsRevision,
		StatusResubmitted,
		StatusApproved,
		StatusRejected,
	}
}

// Valid reports whether s is one of the seven known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusSubmitted, StatusUnderReview, StatusNeedsRevision,
		StatusResubmitted, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// Terminal reports whether the status admits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

package dto

import "time"

// Outcome kinds emitted to downstream consumers after a committed
// transition with external consequences.
const (
	OutcomeKindApproved      = "approved"
	OutcomeKindRejected      = "rejected"
	OutcomeKindNeedsRevision = "needs_revision"
)

// OutcomeEvent is the engine's outbound side-effect request. The
// idempotency key lets consumers (XP ledger, badges, notifications)
// detect and ignore a duplicate emission; it does not promise the engine
// itself never publishes twice.
type OutcomeEvent struct {
	SubmissionID   string                 `json:"submission_id"`
	MissionID      string                 `json:"mission_id"`
	StudentID      string                 `json:"student_id"`
	Kind           string                 `json:"kind"`
	IdempotencyKey string                 `json:"idempotency_key"`
	Payload        map[string]interface{} `json:"payload,omitempty"`
	EmittedAt      time.Time              `json:"emitted_at"`
}

package models

import (
	"time"

	"gorm.io/datatypes"

	"github.com/questline-learn/questline-api/internal/workflow"
)

// SubmissionEvent is one append-only audit record of a committed
// transition. Sequence is monotonic per submission with no gaps, and
// replaying events in sequence order reproduces the submission's status.
type SubmissionEvent struct {
	ID           uint                `gorm:"primaryKey" json:"id"`
	SubmissionID string              `gorm:"size:36;not null;uniqueIndex:idx_submission_sequence" json:"submission_id"`
	Sequence     int64               `gorm:"not null;uniqueIndex:idx_submission_sequence" json:"sequence"`
	Type         workflow.Transition `gorm:"size:32;not null" json:"type"`
	ActorID      string              `gorm:"size:36;not null" json:"actor_id"`
	ActorRole    workflow.Role       `gorm:"size:16;not null" json:"actor_role"`
	FromStatus   workflow.Status     `gorm:"size:32;not null" json:"from_status"`
	ToStatus     workflow.Status     `gorm:"size:32;not null" json:"to_status"`
	Payload      datatypes.JSONMap   `gorm:"type:json" json:"payload"`
	OccurredAt   time.Time           `gorm:"not null" json:"occurred_at"`
}

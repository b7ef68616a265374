package models

import (
	"time"

	"gorm.io/datatypes"

	"github.com/questline-learn/questline-api/internal/workflow"
)

// Submission is one (mission, student) attempt lineage moving through the
// review workflow. It is mutated only via the workflow engine's
// transition path; Version backs the optimistic-concurrency check.
type Submission struct {
	ID                 string            `gorm:"primaryKey;size:36" json:"id"`
	MissionID          string            `gorm:"size:36;not null;index" json:"mission_id"`
	StudentID          string            `gorm:"size:36;not null;index" json:"student_id"`
	Status             workflow.Status   `gorm:"size:32;not null;index" json:"status"`
	CurrentRevision    int               `gorm:"not null;default:1" json:"current_revision"`
	AssignedReviewerID *string           `gorm:"size:36;index" json:"assigned_reviewer_id"`
	FeedbackText       string            `gorm:"type:text" json:"feedback_text"`
	FeedbackScores     datatypes.JSONMap `gorm:"type:json" json:"feedback_scores"`
	Version            int64             `gorm:"not null;default:1" json:"version"`
	CreatedAt          time.Time         `json:"created_at"`
	UpdatedAt          time.Time         `json:"updated_at"`
	SubmittedAt        *time.Time        `json:"submitted_at"`
	ApprovedAt         *time.Time        `json:"approved_at"`
	Artifacts          []Artifact        `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"artifacts"`
}

// Terminal reports whether the submission admits no further transitions.
func (s Submission) Terminal() bool {
	return s.Status.Terminal()
}

// Ref projects the fields the transition authorizer inspects.
func (s Submission) Ref() workflow.SubmissionRef {
	ref := workflow.SubmissionRef{StudentID: s.StudentID}
	if s.AssignedReviewerID != nil {
		ref.AssignedReviewerID = *s.AssignedReviewerID
	}
	return ref
}

// ArtifactsForRevision returns the artifacts attached at a given revision.
func (s Submission) ArtifactsForRevision(revision int) []Artifact {
	var out []Artifact
	for _, a := range s.Artifacts {
		if a.Revision == revision {
			out = append(out, a)
		}
	}
	return out
}

// Artifact is an opaque content reference uploaded for a submission
// revision. Rows are append-only; a revision never loses artifacts.
type Artifact struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	SubmissionID string    `gorm:"size:36;not null;index" json:"submission_id"`
	Revision     int       `gorm:"not null" json:"revision"`
	Position     int       `gorm:"not null" json:"position"`
	URL          string    `gorm:"size:512;not null" json:"url"`
	ContentType  string    `gorm:"size:128" json:"content_type"`
	CreatedAt    time.Time `json:"created_at"`
}

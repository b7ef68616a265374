package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/questline-learn/questline-api/internal/models"
	"github.com/questline-learn/questline-api/internal/workflow"
)

// SubmissionFilter narrows submission queries.
type SubmissionFilter struct {
	MissionID          *string
	StudentID          *string
	Status             *workflow.Status
	AssignedReviewerID *string
	StudentIDs         []string
}

// SubmissionRepository is the durable store for submissions and their
// append-only event logs. SaveWithEvent is the only mutation path for an
// existing submission and enforces optimistic concurrency: the update is
// conditioned on the version read at load time, and the event append
// commits in the same transaction or not at all.
type SubmissionRepository interface {
	Create(ctx context.Context, submission *models.Submission, event *models.SubmissionEvent) error
	GetByID(ctx context.Context, id string) (models.Submission, error)
	List(ctx context.Context, filter SubmissionFilter) ([]models.Submission, error)
	SaveWithEvent(ctx context.Context, submission *models.Submission, expectedVersion int64, event *models.SubmissionEvent) error
	AddArtifact(ctx context.Context, artifact *models.Artifact) error
	ListEvents(ctx context.Context, submissionID string) ([]models.SubmissionEvent, error)
}

type submissionRepository struct {
	db *gorm.DB
}

// NewSubmissionRepository instantiates the repository.
func NewSubmissionRepository(db *gorm.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

func (r *submissionRepository) baseQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.Submission{}).
		Preload("Artifacts", func(db *gorm.DB) *gorm.DB {
			return db.Order("artifacts.revision ASC, artifacts.position ASC")
		})
}

func (r *submissionRepository) Create(ctx context.Context, submission *models.Submission, event *models.SubmissionEvent) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(submission).Error; err != nil {
			return err
		}
		event.SubmissionID = submission.ID
		event.Sequence = 1
		return tx.Create(event).Error
	})
}

func (r *submissionRepository) GetByID(ctx context.Context, id string) (models.Submission, error) {
	var submission models.Submission
	if err := r.baseQuery(ctx).Where("id = ?", id).First(&submission).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Submission{}, workflow.ErrSubmissionNotFound
		}
		return models.Submission{}, err
	}

	return submission, nil
}

func (r *submissionRepository) List(ctx context.Context, filter SubmissionFilter) ([]models.Submission, error) {
	query := r.baseQuery(ctx)

	if filter.MissionID != nil {
		query = query.Where("mission_id = ?", *filter.MissionID)
	}

	if filter.StudentID != nil {
		query = query.Where("student_id = ?", *filter.StudentID)
	}

	if len(filter.StudentIDs) > 0 {
		query = query.Where("student_id IN ?", filter.StudentIDs)
	}

	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	if filter.AssignedReviewerID != nil {
		query = query.Where("assigned_reviewer_id = ?", *filter.AssignedReviewerID)
	}

	var submissions []models.Submission
	if err := query.Order("updated_at DESC").Find(&submissions).Error; err != nil {
		return nil, err
	}

	return submissions, nil
}

// SaveWithEvent commits the transitioned submission and its audit event
// atomically. The caller passes the version it loaded; if no row matches
// (another transition won the race) the whole transaction rolls back with
// workflow.ErrConcurrentModification.
func (r *submissionRepository) SaveWithEvent(ctx context.Context, submission *models.Submission, expectedVersion int64, event *models.SubmissionEvent) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Submission{}).
			Where("id = ? AND version = ?", submission.ID, expectedVersion).
			Select("status", "current_revision", "assigned_reviewer_id", "feedback_text",
				"feedback_scores", "version", "submitted_at", "approved_at", "updated_at").
			Updates(submission)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return workflow.ErrConcurrentModification
		}

		var last int64
		if err := tx.Model(&models.SubmissionEvent{}).
			Where("submission_id = ?", submission.ID).
			Select("COALESCE(MAX(sequence), 0)").
			Scan(&last).Error; err != nil {
			return err
		}

		event.SubmissionID = submission.ID
		event.Sequence = last + 1
		return tx.Create(event).Error
	})
}

func (r *submissionRepository) AddArtifact(ctx context.Context, artifact *models.Artifact) error {
	return r.db.WithContext(ctx).Create(artifact).Error
}

func (r *submissionRepository) ListEvents(ctx context.Context, submissionID string) ([]models.SubmissionEvent, error) {
	var events []models.SubmissionEvent
	if err := r.db.WithContext(ctx).
		Where("submission_id = ?", submissionID).
		Order("sequence ASC").
		Find(&events).Error; err != nil {
		return nil, err
	}

	return events, nil
}

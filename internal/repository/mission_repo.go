package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/questline-learn/questline-api/internal/models"
	"github.com/questline-learn/questline-api/internal/workflow"
)

// MissionFilter narrows mission catalog queries.
type MissionFilter struct {
	Open *bool
}

// MissionRepository defines data operations for the mission catalog.
type MissionRepository interface {
	Create(ctx context.Context, mission *models.Mission) error
	GetByID(ctx context.Context, id string) (models.Mission, error)
	List(ctx context.Context, filter MissionFilter) ([]models.Mission, error)
	SetOpen(ctx context.Context, id string, open bool) error
}

type missionRepository struct {
	db *gorm.DB
}

// NewMissionRepository instantiates the repository.
func NewMissionRepository(db *gorm.DB) MissionRepository {
	return &missionRepository{db: db}
}

func (r *missionRepository) Create(ctx context.Context, mission *models.Mission) error {
	return r.db.WithContext(ctx).Create(mission).Error
}

func (r *missionRepository) GetByID(ctx context.Context, id string) (models.Mission, error) {
	var mission models.Mission
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&mission).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Mission{}, workflow.ErrMissionNotFound
		}
		return models.Mission{}, err
	}

	return mission, nil
}

func (r *missionRepository) List(ctx context.Context, filter MissionFilter) ([]models.Mission, error) {
	query := r.db.WithContext(ctx).Model(&models.Mission{})

	if filter.Open != nil {
		query = query.Where("open = ?", *filter.Open)
	}

	var missions []models.Mission
	if err := query.Order("created_at DESC").Find(&missions).Error; err != nil {
		return nil, err
	}

	return missions, nil
}

func (r *missionRepository) SetOpen(ctx context.Context, id string, open bool) error {
	result := r.db.WithContext(ctx).Model(&models.Mission{}).
		Where("id = ?", id).
		Update("open", open)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return workflow.ErrMissionNotFound
	}

	return nil
}

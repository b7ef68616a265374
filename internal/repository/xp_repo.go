package repository

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/questline-learn/questline-api/internal/models"
)

// ErrDuplicateAward indicates an XP award with the same idempotency key
// was already recorded; the duplicate emission is ignorable.
var ErrDuplicateAward = errors.New("xp award already recorded")

// XPRepository persists the XP ledger.
type XPRepository interface {
	CreateAward(ctx context.Context, award *models.XPAward) error
	TotalForStudent(ctx context.Context, studentID string) (int64, error)
	ListAwards(ctx context.Context, studentID string) ([]models.XPAward, error)
}

type xpRepository struct {
	db *gorm.DB
}

// NewXPRepository instantiates the repository.
func NewXPRepository(db *gorm.DB) XPRepository {
	return &xpRepository{db: db}
}

func (r *xpRepository) CreateAward(ctx context.Context, award *models.XPAward) error {
	if err := r.db.WithContext(ctx).Create(award).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateAward
		}
		return err
	}

	return nil
}

func (r *xpRepository) TotalForStudent(ctx context.Context, studentID string) (int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.XPAward{}).
		Where("student_id = ?", studentID).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&total).Error; err != nil {
		return 0, err
	}

	return total, nil
}

func (r *xpRepository) ListAwards(ctx context.Context, studentID string) ([]models.XPAward, error) {
	var awards []models.XPAward
	if err := r.db.WithContext(ctx).
		Where("student_id = ?", studentID).
		Order("awarded_at DESC").
		Find(&awards).Error; err != nil {
		return nil, err
	}

	return awards, nil
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// Driver-specific fallbacks: sqlite and postgres phrase the
	// constraint violation differently.
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}

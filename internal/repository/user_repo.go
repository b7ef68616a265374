package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/questline-learn/questline-api/internal/models"
)

// UserRepository reads the user directory and teacher-student scope rows
// backing actor resolution.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (models.User, error)
	AssignReviewer(ctx context.Context, teacherID, studentID string) error
	ScopedStudentIDs(ctx context.Context, teacherID string) ([]string, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository instantiates the repository.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *userRepository) GetByID(ctx context.Context, id string) (models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return models.User{}, err
	}

	return user, nil
}

func (r *userRepository) AssignReviewer(ctx context.Context, teacherID, studentID string) error {
	assignment := models.ReviewerAssignment{TeacherID: teacherID, StudentID: studentID}
	return r.db.WithContext(ctx).Create(&assignment).Error
}

func (r *userRepository) ScopedStudentIDs(ctx context.Context, teacherID string) ([]string, error) {
	var ids []string
	if err := r.db.WithContext(ctx).Model(&models.ReviewerAssignment{}).
		Where("teacher_id = ?", teacherID).
		Order("student_id ASC").
		Pluck("student_id", &ids).Error; err != nil {
		return nil, err
	}

	return ids, nil
}

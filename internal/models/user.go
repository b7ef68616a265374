package models

import (
	"time"

	"github.com/questline-learn/questline-api/internal/workflow"
)

// User is a platform account in the directory the actor resolver reads.
type User struct {
	ID        string        `gorm:"primaryKey;size:36" json:"id"`
	Name      string        `gorm:"size:255;not null" json:"name"`
	Email     string        `gorm:"size:255;not null;uniqueIndex" json:"email"`
	Role      workflow.Role `gorm:"size:16;not null" json:"role"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// ReviewerAssignment scopes a teacher to a student. A teacher may only
// act on submissions owned by students they are assigned to.
type ReviewerAssignment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	TeacherID string    `gorm:"size:36;not null;uniqueIndex:idx_teacher_student" json:"teacher_id"`
	StudentID string    `gorm:"size:36;not null;uniqueIndex:idx_teacher_student" json:"student_id"`
	CreatedAt time.Time `json:"created_at"`
}

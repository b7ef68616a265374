package models

import "time"

// XPAward is a ledger row written by the XP consumer when a submission
// outcome grants experience points. IdempotencyKey is unique so a
// duplicate outcome emission can never double-award.
type XPAward struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	StudentID      string    `gorm:"size:36;not null;index" json:"student_id"`
	MissionID      string    `gorm:"size:36;not null" json:"mission_id"`
	SubmissionID   string    `gorm:"size:36;not null" json:"submission_id"`
	Amount         int       `gorm:"not null" json:"amount"`
	IdempotencyKey string    `gorm:"size:128;not null;uniqueIndex" json:"idempotency_key"`
	AwardedAt      time.Time `gorm:"not null" json:"awarded_at"`
}

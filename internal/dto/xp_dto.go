package dto

import (
	"time"

	"github.com/questline-learn/questline-api/internal/models"
)

// XPAwardResponse serializes one XP ledger row.
type XPAwardResponse struct {
	MissionID    string    `json:"mission_id"`
	SubmissionID string    `json:"submission_id"`
	Amount       int       `json:"amount"`
	AwardedAt    time.Time `json:"awarded_at"`
}

// XPSummaryResponse reports a student's XP total and recent awards.
type XPSummaryResponse struct {
	StudentID string            `json:"student_id"`
	Total     int64             `json:"total"`
	Awards    []XPAwardResponse `json:"awards"`
}

// NewXPAwardResponseSlice maps ledger rows to DTOs.
func NewXPAwardResponseSlice(awards []models.XPAward) []XPAwardResponse {
	responses := make([]XPAwardResponse, 0, len(awards))
	for _, award := range awards {
		responses = append(responses, XPAwardResponse{
			MissionID:    award.MissionID,
			SubmissionID: award.SubmissionID,
			Amount:       award.Amount,
			AwardedAt:    award.AwardedAt,
		})
	}
	return responses
}

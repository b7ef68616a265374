package models

import (
	"time"

	"gorm.io/datatypes"
)

// Mission is a catalog entry students submit work against. The engine
// consults the catalog once, at draft creation, to check existence and
// openness; later transitions never re-check it.
type Mission struct {
	ID        string         `gorm:"primaryKey;size:36" json:"id"`
	Title     string         `gorm:"size:255;not null" json:"title"`
	Summary   string         `gorm:"type:text" json:"summary"`
	XPReward  int            `gorm:"not null;default:0" json:"xp_reward"`
	Open      bool           `gorm:"not null;default:true" json:"open"`
	Rubric    datatypes.JSON `gorm:"type:json" json:"rubric"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

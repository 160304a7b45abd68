package models

import (
	"time"
)

// User is the local progress record for an applicant. ID is the identity
// assigned upstream (gateway / profile service), not generated here.
type User struct {
	ID          string `gorm:"primaryKey" json:"id"`
	Username    string `gorm:"index" json:"username"`
	TotalPoints int64  `gorm:"not null;default:0" json:"total_points"`
	Level       int    `gorm:"not null;default:1" json:"level"`

	// Milestones
	LastLevelUpAt *time.Time `json:"last_level_up_at,omitempty"`

	Timestamps
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

package models

import (
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// AchievementTypeQuestMaster is the trigger key for the completed-quest badge.
const AchievementTypeQuestMaster = "quest_master"

// DefaultQuestMasterThreshold applies to quest_master achievements seeded
// without explicit requirements.
const DefaultQuestMasterThreshold = 5

const (
	RequirementCompletedQuestCount = "completed_quest_count"
	RequirementLevelReached        = "level_reached"
	RequirementPointsReached       = "points_reached"
)

// AchievementRequirements is the unlock predicate for an achievement,
// e.g. {"kind":"completed_quest_count","threshold":5}.
type AchievementRequirements struct {
	Kind      string `json:"kind,omitempty"`
	Threshold int64  `json:"threshold,omitempty"`
}

func (r AchievementRequirements) Validate() error {
	switch r.Kind {
	case "":
		return nil
	case RequirementCompletedQuestCount, RequirementLevelReached, RequirementPointsReached:
		if r.Threshold < 1 {
			return fmt.Errorf("%s requires threshold >= 1, got %d", r.Kind, r.Threshold)
		}
		return nil
	default:
		return fmt.Errorf("unknown achievement requirement kind %q", r.Kind)
	}
}

// Achievement is a catalog badge definition.
type Achievement struct {
	ID           string                                      `gorm:"primaryKey;type:uuid" json:"id"`
	Code         string                                      `gorm:"uniqueIndex;not null" json:"code"`
	Title        string                                      `gorm:"not null" json:"title"`
	Description  string                                      `gorm:"type:text" json:"description"`
	Type         string                                      `gorm:"type:varchar(32);not null;index" json:"type"`
	Icon         string                                      `gorm:"type:text" json:"icon"`
	Points       int64                                       `gorm:"not null;default:0" json:"points"`
	Requirements datatypes.JSONType[AchievementRequirements] `json:"requirements"`
	CreatedAt    time.Time                                   `json:"created_at" gorm:"autoCreateTime"`
}

// Rule resolves the effective unlock rule, applying the quest_master default.
// ok is false when the achievement has no evaluable rule.
func (a Achievement) Rule() (req AchievementRequirements, ok bool) {
	req = a.Requirements.Data()
	if req.Kind != "" {
		return req, true
	}
	if a.Type == AchievementTypeQuestMaster {
		return AchievementRequirements{
			Kind:      RequirementCompletedQuestCount,
			Threshold: DefaultQuestMasterThreshold,
		}, true
	}
	return req, false
}

// UserAchievement records an unlock. (user_id, achievement_id) is unique.
type UserAchievement struct {
	ID            string    `gorm:"primaryKey;type:uuid" json:"id"`
	UserID        string    `gorm:"not null;uniqueIndex:idx_user_achievement" json:"user_id"`
	AchievementID string    `gorm:"type:uuid;not null;uniqueIndex:idx_user_achievement" json:"achievement_id"`
	UnlockedAt    time.Time `gorm:"not null" json:"unlocked_at"`
}

// All lists every model for AutoMigrate.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Quest{},
		&UserQuest{},
		&Achievement{},
		&UserAchievement{},
	}
}

package services

import (
	"context"
	"time"

	"college-progress-service/models"
	"college-progress-service/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserStats is the snapshot achievement rules are evaluated against.
type UserStats struct {
	CompletedQuests int64
	TotalPoints     int64
	Level           int
}

type AchievementService struct {
	DB      *gorm.DB
	Catalog *CatalogService
	Log     *utils.Logger
}

func NewAchievementService(db *gorm.DB, catalog *CatalogService, log *utils.Logger) *AchievementService {
	return &AchievementService{DB: db, Catalog: catalog, Log: log.With("service", "AchievementService")}
}

func (s *AchievementService) conn(ctx context.Context, tx *gorm.DB) *gorm.DB {
	if tx == nil {
		tx = s.DB
	}
	return tx.WithContext(ctx)
}

// LoadStats reads the counters the rule set depends on.
func (s *AchievementService) LoadStats(ctx context.Context, tx *gorm.DB, userID string) (UserStats, error) {
	db := s.conn(ctx, tx)

	var user models.User
	if err := db.Select("total_points", "level").Where("id = ?", userID).First(&user).Error; err != nil {
		return UserStats{}, err
	}

	var completed int64
	if err := db.Model(&models.UserQuest{}).
		Where("user_id = ? AND status = ?", userID, models.QuestStatusCompleted).
		Count(&completed).Error; err != nil {
		return UserStats{}, err
	}

	return UserStats{
		CompletedQuests: completed,
		TotalPoints:     user.TotalPoints,
		Level:           user.Level,
	}, nil
}

// Evaluate runs every catalog rule for the user and unlocks the ones that
// hold. Only achievements unlocked by this call are returned. Safe to call
// repeatedly: an unlock is inserted at most once per (user, achievement).
func (s *AchievementService) Evaluate(ctx context.Context, tx *gorm.DB, userID string) ([]models.Achievement, error) {
	db := s.conn(ctx, tx)

	stats, err := s.LoadStats(ctx, tx, userID)
	if err != nil {
		return nil, err
	}

	catalog, err := s.Catalog.WithTx(tx).ListAchievements(ctx)
	if err != nil {
		return nil, err
	}

	var heldIDs []string
	if err := db.Model(&models.UserAchievement{}).
		Where("user_id = ?", userID).
		Pluck("achievement_id", &heldIDs).Error; err != nil {
		return nil, err
	}
	held := make(map[string]struct{}, len(heldIDs))
	for _, id := range heldIDs {
		held[id] = struct{}{}
	}

	var unlocked []models.Achievement
	for _, a := range catalog {
		if _, ok := held[a.ID]; ok {
			continue
		}
		rule, ok := a.Rule()
		if !ok || !meetsRequirement(stats, rule) {
			continue
		}

		row := models.UserAchievement{
			ID:            uuid.NewString(),
			UserID:        userID,
			AchievementID: a.ID,
			UnlockedAt:    time.Now(),
		}
		res := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "achievement_id"}},
			DoNothing: true,
		}).Create(&row)
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			// lost a race with a concurrent unlock
			continue
		}
		unlocked = append(unlocked, a)
		s.Log.Info("[ACHIEVEMENT] unlocked", "user_id", userID, "achievement", a.Code)
	}
	return unlocked, nil
}

func meetsRequirement(stats UserStats, req models.AchievementRequirements) bool {
	switch req.Kind {
	case models.RequirementCompletedQuestCount:
		return stats.CompletedQuests >= req.Threshold
	case models.RequirementLevelReached:
		return int64(stats.Level) >= req.Threshold
	case models.RequirementPointsReached:
		return stats.TotalPoints >= req.Threshold
	}
	return false
}

package services

import (
	"context"
	"errors"

	"college-progress-service/models"
	"college-progress-service/utils"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReconcileReport summarizes one reconciliation pass.
type ReconcileReport struct {
	LevelsRepaired       int64 `json:"levels_repaired"`
	UsersReplayed        int   `json:"users_replayed"`
	AchievementsUnlocked int   `json:"achievements_unlocked"`
	Failures             int   `json:"failures"`
}

// ReconcileService repairs derived state after partial failures. Every step
// is idempotent, so it can run on a timer and on demand.
type ReconcileService struct {
	DB           *gorm.DB
	Achievements *AchievementService
	Log          *utils.Logger
}

func NewReconcileService(db *gorm.DB, achievements *AchievementService, log *utils.Logger) *ReconcileService {
	return &ReconcileService{DB: db, Achievements: achievements, Log: log.With("service", "ReconcileService")}
}

// RepairLevels raises any level that lags its point total. Levels are never
// lowered.
func (s *ReconcileService) RepairLevels(ctx context.Context) (int64, error) {
	res := s.DB.WithContext(ctx).Model(&models.User{}).
		Where("level < total_points / ? + 1", PointsPerLevel).
		Update("level", gorm.Expr("total_points / ? + 1", PointsPerLevel))
	return res.RowsAffected, res.Error
}

// ReplayAchievements re-runs the achievement rules for every user with at
// least one completed quest.
func (s *ReconcileService) ReplayAchievements(ctx context.Context) (users, unlocked, failures int, err error) {
	var userIDs []string
	if err := s.DB.WithContext(ctx).Model(&models.UserQuest{}).
		Where("status = ?", models.QuestStatusCompleted).
		Distinct().
		Pluck("user_id", &userIDs).Error; err != nil {
		return 0, 0, 0, err
	}

	for _, userID := range userIDs {
		if ctx.Err() != nil {
			return users, unlocked, failures, ctx.Err()
		}
		var got []models.Achievement
		txErr := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var u models.User
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Select("id").Where("id = ?", userID).First(&u).Error; err != nil {
				return err
			}
			var err error
			got, err = s.Achievements.Evaluate(ctx, tx, userID)
			return err
		})
		if txErr != nil {
			failures++
			if errors.Is(txErr, gorm.ErrRecordNotFound) {
				s.Log.Warn("[RECONCILE] completed quests for unknown user", "user_id", userID)
			} else {
				s.Log.Error("[RECONCILE] achievement replay failed", "user_id", userID, "error", txErr)
			}
			continue
		}
		users++
		unlocked += len(got)
	}
	return users, unlocked, failures, nil
}

// Run performs a full reconciliation pass.
func (s *ReconcileService) Run(ctx context.Context) (ReconcileReport, error) {
	var report ReconcileReport

	repaired, err := s.RepairLevels(ctx)
	if err != nil {
		return report, err
	}
	report.LevelsRepaired = repaired

	users, unlocked, failures, err := s.ReplayAchievements(ctx)
	report.UsersReplayed = users
	report.AchievementsUnlocked = unlocked
	report.Failures = failures
	if err != nil {
		return report, err
	}

	if repaired > 0 || unlocked > 0 || failures > 0 {
		s.Log.Info("[RECONCILE] pass finished",
			"levels_repaired", repaired, "users", users, "unlocked", unlocked, "failures", failures)
	}
	return report, nil
}

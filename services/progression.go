package services

import (
	"context"
	"errors"
	"time"

	"college-progress-service/models"
	"college-progress-service/utils"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProgressSummary is the read model behind GET /user/progress.
type ProgressSummary struct {
	TotalPoints          int64     `json:"totalPoints"`
	Level                int       `json:"level"`
	QuestsCompleted      int64     `json:"questsCompleted"`
	AchievementsUnlocked int64     `json:"achievementsUnlocked"`
	NextLevel            NextLevel `json:"nextLevel"`
}

// QuestView is a catalog quest joined with the caller's progress.
type QuestView struct {
	ID          string             `json:"id"`
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Type        string             `json:"type"`
	Points      int64              `json:"points"`
	Status      models.QuestStatus `json:"status"`
	Progress    map[string]bool    `json:"progress"`
}

// AchievementView is a catalog achievement joined with the caller's unlock.
type AchievementView struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Type        string     `json:"type"`
	Icon        string     `json:"icon"`
	Points      int64      `json:"points"`
	Unlocked    bool       `json:"unlocked"`
	UnlockedAt  *time.Time `json:"unlockedAt,omitempty"`
}

// TaskResult is returned by CompleteTask. Celebratory fields are only set
// when the call completed the quest.
type TaskResult struct {
	Success      bool                 `json:"success"`
	LevelUp      bool                 `json:"levelUp,omitempty"`
	NewLevel     int                  `json:"newLevel,omitempty"`
	Achievement  *models.Achievement  `json:"achievement,omitempty"`
	Achievements []models.Achievement `json:"achievements,omitempty"`

	QuestCompleted bool `json:"-"`
}

type ProgressionService struct {
	DB           *gorm.DB
	Catalog      *CatalogService
	Achievements *AchievementService
	Log          *utils.Logger
}

func NewProgressionService(db *gorm.DB, catalog *CatalogService, achievements *AchievementService, log *utils.Logger) *ProgressionService {
	return &ProgressionService{
		DB:           db,
		Catalog:      catalog,
		Achievements: achievements,
		Log:          log.With("service", "ProgressionService"),
	}
}

// GetProgress summarizes points, level and counters for a user.
func (s *ProgressionService) GetProgress(ctx context.Context, userID string) (*ProgressSummary, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	db := s.DB.WithContext(ctx)

	var user models.User
	if err := db.Where("id = ?", userID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, newError(ErrNotFound, "user %s not found", userID)
		}
		return nil, err
	}

	var questsCompleted int64
	if err := db.Model(&models.UserQuest{}).
		Where("user_id = ? AND status = ?", userID, models.QuestStatusCompleted).
		Count(&questsCompleted).Error; err != nil {
		return nil, err
	}

	var achievementsUnlocked int64
	if err := db.Model(&models.UserAchievement{}).
		Where("user_id = ?", userID).
		Count(&achievementsUnlocked).Error; err != nil {
		return nil, err
	}

	return &ProgressSummary{
		TotalPoints:          user.TotalPoints,
		Level:                user.Level,
		QuestsCompleted:      questsCompleted,
		AchievementsUnlocked: achievementsUnlocked,
		NextLevel:            nextLevelFor(user.TotalPoints, user.Level),
	}, nil
}

// ListQuests returns every catalog quest with the caller's status.
func (s *ProgressionService) ListQuests(ctx context.Context, userID string) ([]QuestView, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	db := s.DB.WithContext(ctx)

	quests, err := s.Catalog.ListQuests(ctx)
	if err != nil {
		return nil, err
	}

	var rows []models.UserQuest
	if err := db.Where("user_id = ?", userID).Find(&rows).Error; err != nil {
		return nil, err
	}
	byQuest := make(map[string]models.UserQuest, len(rows))
	for _, r := range rows {
		byQuest[r.QuestID] = r
	}

	out := make([]QuestView, 0, len(quests))
	for _, q := range quests {
		v := QuestView{
			ID:          q.ID,
			Title:       q.Title,
			Description: q.Description,
			Type:        q.Type,
			Points:      q.Points,
			Status:      models.QuestStatusNotStarted,
		}
		if uq, ok := byQuest[q.ID]; ok {
			v.Status = uq.Status
			v.Progress = uq.Progress.Data()
		}
		out = append(out, v)
	}
	return out, nil
}

// ListAchievements returns every catalog achievement with unlock state.
func (s *ProgressionService) ListAchievements(ctx context.Context, userID string) ([]AchievementView, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	db := s.DB.WithContext(ctx)

	catalog, err := s.Catalog.ListAchievements(ctx)
	if err != nil {
		return nil, err
	}

	var unlocks []models.UserAchievement
	if err := db.Where("user_id = ?", userID).Find(&unlocks).Error; err != nil {
		return nil, err
	}
	unlockedAt := make(map[string]time.Time, len(unlocks))
	for _, u := range unlocks {
		unlockedAt[u.AchievementID] = u.UnlockedAt
	}

	out := make([]AchievementView, 0, len(catalog))
	for _, a := range catalog {
		v := AchievementView{
			ID:          a.ID,
			Title:       a.Title,
			Description: a.Description,
			Type:        a.Type,
			Icon:        a.Icon,
			Points:      a.Points,
		}
		if at, ok := unlockedAt[a.ID]; ok {
			at := at
			v.Unlocked = true
			v.UnlockedAt = &at
		}
		out = append(out, v)
	}
	return out, nil
}

// StartQuest creates the in-progress row for (user, quest). A second start
// fails with ErrConflict.
func (s *ProgressionService) StartQuest(ctx context.Context, userID, questID string) (*models.UserQuest, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(questID); err != nil {
		return nil, newError(ErrBadRequest, "invalid quest id %q", questID)
	}
	db := s.DB.WithContext(ctx)

	quest, err := s.Catalog.GetQuest(ctx, questID)
	if err != nil {
		return nil, err
	}

	var userCount int64
	if err := db.Model(&models.User{}).Where("id = ?", userID).Count(&userCount).Error; err != nil {
		return nil, err
	}
	if userCount == 0 {
		return nil, newError(ErrNotFound, "user %s not found", userID)
	}

	var existing int64
	if err := db.Model(&models.UserQuest{}).
		Where("user_id = ? AND quest_id = ?", userID, questID).
		Count(&existing).Error; err != nil {
		return nil, err
	}
	if existing > 0 {
		return nil, newError(ErrConflict, "quest already started")
	}

	progress := make(map[string]bool)
	for _, key := range quest.TaskKeys() {
		progress[key] = false
	}
	uq := models.UserQuest{
		ID:       uuid.NewString(),
		UserID:   userID,
		QuestID:  questID,
		Status:   models.QuestStatusInProgress,
		Progress: datatypes.NewJSONType(progress),
	}
	if err := db.Create(&uq).Error; err != nil {
		// the unique (user_id, quest_id) index catches concurrent starts
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, newError(ErrConflict, "quest already started")
		}
		return nil, err
	}

	s.Log.Info("[PROGRESS] quest started", "user_id", userID, "quest", quest.Code)
	return &uq, nil
}

// CompleteTask marks one task done. When it completes the quest the status
// flip, point award, level recompute and achievement unlocks all commit in
// the same transaction.
func (s *ProgressionService) CompleteTask(ctx context.Context, userID, questID, taskID string) (*TaskResult, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(questID); err != nil {
		return nil, newError(ErrBadRequest, "invalid quest id %q", questID)
	}
	if taskID == "" {
		return nil, newError(ErrBadRequest, "task id is required")
	}

	result := &TaskResult{Success: true}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var uq models.UserQuest
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ? AND quest_id = ?", userID, questID).
			First(&uq).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return newError(ErrNotFound, "quest not started")
			}
			return err
		}

		quest, err := s.Catalog.WithTx(tx).GetQuest(ctx, questID)
		if err != nil {
			return err
		}

		keys := quest.TaskKeys()
		progress := make(map[string]bool, len(keys))
		stored := uq.Progress.Data()
		valid := false
		for _, k := range keys {
			progress[k] = stored[k]
			if k == taskID {
				valid = true
			}
		}
		if !valid {
			return newError(ErrBadRequest, "task %q is not part of quest %s", taskID, quest.Code)
		}

		if uq.Status == models.QuestStatusCompleted {
			return nil
		}

		progress[taskID] = true
		updates := map[string]interface{}{
			"progress": datatypes.NewJSONType(progress),
			"status":   models.QuestStatusInProgress,
		}
		done := models.AllTasksDone(progress)
		if done {
			now := time.Now()
			updates["status"] = models.QuestStatusCompleted
			updates["completed_at"] = &now
		}
		if err := tx.Model(&models.UserQuest{}).Where("id = ?", uq.ID).Updates(updates).Error; err != nil {
			return err
		}
		if !done {
			return nil
		}
		result.QuestCompleted = true

		levelUp, newLevel, err := s.awardPoints(tx, userID, quest.Points)
		if err != nil {
			return err
		}
		if levelUp {
			result.LevelUp = true
			result.NewLevel = newLevel
		}

		unlocked, err := s.Achievements.Evaluate(ctx, tx, userID)
		if err != nil {
			return err
		}
		if len(unlocked) > 0 {
			first := unlocked[0]
			result.Achievement = &first
			if len(unlocked) > 1 {
				result.Achievements = unlocked
			}
		}

		s.Log.Info("[PROGRESS] quest completed",
			"user_id", userID, "quest", quest.Code, "points", quest.Points,
			"level_up", levelUp, "achievements", len(unlocked))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// awardPoints adds points with an in-database increment and recomputes the
// level in the same statement. The level never goes down.
func (s *ProgressionService) awardPoints(tx *gorm.DB, userID string, points int64) (levelUp bool, newLevel int, err error) {
	var before models.User
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", userID).
		First(&before).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, 0, newError(ErrNotFound, "user %s not found", userID)
		}
		return false, 0, err
	}

	computed := gorm.Expr("(total_points + ?) / ? + 1", points, PointsPerLevel)
	if err := tx.Model(&models.User{}).Where("id = ?", userID).Updates(map[string]interface{}{
		"total_points": gorm.Expr("total_points + ?", points),
		"level":        gorm.Expr("CASE WHEN ? > level THEN ? ELSE level END", computed, computed),
	}).Error; err != nil {
		return false, 0, err
	}

	var after models.User
	if err := tx.Select("total_points", "level").Where("id = ?", userID).First(&after).Error; err != nil {
		return false, 0, err
	}

	if after.Level > before.Level {
		now := time.Now()
		if err := tx.Model(&models.User{}).Where("id = ?", userID).
			Update("last_level_up_at", &now).Error; err != nil {
			return false, 0, err
		}
		s.Log.Info("[PROGRESS] level up", "user_id", userID, "level", after.Level, "total_points", after.TotalPoints)
		return true, after.Level, nil
	}
	return false, after.Level, nil
}

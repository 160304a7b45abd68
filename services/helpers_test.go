package services

import (
	"testing"
	"time"

	"college-progress-service/models"
	"college-progress-service/utils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// one connection keeps the in-memory database shared and serializes
	// transactions the way row locks would on postgres
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

type fixture struct {
	db           *gorm.DB
	catalog      *CatalogService
	achievements *AchievementService
	progression  *ProgressionService
	reconcile    *ReconcileService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := newTestDB(t)
	log := utils.NewNopLogger()
	catalog := NewCatalogService(db, log)
	ach := NewAchievementService(db, catalog, log)
	return &fixture{
		db:           db,
		catalog:      catalog,
		achievements: ach,
		progression:  NewProgressionService(db, catalog, ach, log),
		reconcile:    NewReconcileService(db, ach, log),
	}
}

func (f *fixture) user(t *testing.T, id string, points int64) models.User {
	t.Helper()
	u := models.User{ID: id, Username: id, TotalPoints: points, Level: LevelForPoints(points)}
	require.NoError(t, f.db.Create(&u).Error)
	return u
}

func (f *fixture) quest(t *testing.T, code string, points int64, req models.QuestRequirements) models.Quest {
	t.Helper()
	q := models.Quest{
		ID:           uuid.NewString(),
		Code:         code,
		Title:        code,
		Type:         models.QuestTypeOther,
		Points:       points,
		Requirements: datatypes.NewJSONType(req),
	}
	require.NoError(t, f.db.Create(&q).Error)
	return q
}

func (f *fixture) achievement(t *testing.T, code, aType string, req models.AchievementRequirements) models.Achievement {
	t.Helper()
	a := models.Achievement{
		ID:           uuid.NewString(),
		Code:         code,
		Title:        code,
		Type:         aType,
		Requirements: datatypes.NewJSONType(req),
	}
	require.NoError(t, f.db.Create(&a).Error)
	return a
}

// completedQuests inserts n quests the user has already finished.
func (f *fixture) completedQuests(t *testing.T, userID string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		q := f.quest(t, uuid.NewString(), 10, models.QuestRequirements{Kind: models.RequirementTaskCount, Count: 1})
		now := time.Now()
		uq := models.UserQuest{
			ID:          uuid.NewString(),
			UserID:      userID,
			QuestID:     q.ID,
			Status:      models.QuestStatusCompleted,
			Progress:    datatypes.NewJSONType(map[string]bool{"0": true}),
			CompletedAt: &now,
		}
		require.NoError(t, f.db.Create(&uq).Error)
	}
}

func oneTask() models.QuestRequirements {
	return models.QuestRequirements{Kind: models.RequirementTaskCount, Count: 1}
}

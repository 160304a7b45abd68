package services

import (
	"context"
	"testing"
	"time"

	"college-progress-service/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconcileRepairsLaggingLevels(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.user(t, "lagging", 2500)
	f.user(t, "fine", 500)
	require.NoError(t, f.db.Model(&models.User{}).Where("id = ?", "lagging").Update("level", 1).Error)

	repaired, err := f.reconcile.RepairLevels(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, repaired)

	var u models.User
	require.NoError(t, f.db.Where("id = ?", "lagging").First(&u).Error)
	assert.Equal(t, 3, u.Level)
}

func TestReconcileNeverLowersLevel(t *testing.T) {
	f := newFixture(t)
	f.user(t, "u1", 100)
	require.NoError(t, f.db.Model(&models.User{}).Where("id = ?", "u1").Update("level", 4).Error)

	repaired, err := f.reconcile.RepairLevels(context.Background())
	require.NoError(t, err)
	assert.Zero(t, repaired)

	var u models.User
	require.NoError(t, f.db.Where("id = ?", "u1").First(&u).Error)
	assert.Equal(t, 4, u.Level)
}

func TestReconcileReplaysMissedAchievements(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.user(t, "u1", 0)
	f.user(t, "idle", 0)
	f.achievement(t, "quest-master", models.AchievementTypeQuestMaster, models.AchievementRequirements{})
	f.completedQuests(t, "u1", 5)

	report, err := f.reconcile.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.UsersReplayed)
	assert.Equal(t, 1, report.AchievementsUnlocked)
	assert.Zero(t, report.Failures)

	report, err = f.reconcile.Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, report.AchievementsUnlocked)

	var unlocks int64
	require.NoError(t, f.db.Model(&models.UserAchievement{}).Count(&unlocks).Error)
	assert.EqualValues(t, 1, unlocks)
}

func TestReconcileCountsOrphanedProgress(t *testing.T) {
	f := newFixture(t)
	f.completedQuests(t, "deleted-user", 1)

	report, err := f.reconcile.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Failures)
	assert.Zero(t, report.UsersReplayed)
}

func TestReconcileScheduler(t *testing.T) {
	f := newFixture(t)
	f.user(t, "u1", 3000)
	require.NoError(t, f.db.Model(&models.User{}).Where("id = ?", "u1").Update("level", 1).Error)

	sched, err := f.reconcile.StartReconcileScheduler(context.Background(), 50*time.Millisecond)
	require.NoError(t, err)
	defer func() { _ = sched.Shutdown() }()

	assert.Eventually(t, func() bool {
		var u models.User
		if err := f.db.Where("id = ?", "u1").First(&u).Error; err != nil {
			return false
		}
		return u.Level == 4
	}, 2*time.Second, 20*time.Millisecond)
}

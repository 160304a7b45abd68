package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/datatypes"
)

func TestTaskKeysDefaultSlots(t *testing.T) {
	assert.Equal(t, []string{"0", "1", "2"}, QuestRequirements{}.TaskKeys())
}

func TestTaskKeysFromCount(t *testing.T) {
	req := QuestRequirements{Kind: RequirementTaskCount, Count: 4}
	assert.NoError(t, req.Validate())
	assert.Equal(t, []string{"0", "1", "2", "3"}, req.TaskKeys())
}

func TestTaskKeysFromList(t *testing.T) {
	req := QuestRequirements{Kind: RequirementTaskList, Tasks: []string{"shortlist", "visit"}}
	assert.NoError(t, req.Validate())
	keys := req.TaskKeys()
	assert.Equal(t, []string{"shortlist", "visit"}, keys)

	keys[0] = "mutated"
	assert.Equal(t, "shortlist", req.Tasks[0])
}

func TestQuestRequirementsValidate(t *testing.T) {
	cases := []QuestRequirements{
		{Kind: RequirementTaskCount},
		{Kind: RequirementTaskList},
		{Kind: RequirementTaskList, Tasks: []string{"a", ""}},
		{Kind: RequirementTaskList, Tasks: []string{"a", "a"}},
		{Kind: "checklist"},
	}
	for _, c := range cases {
		assert.Error(t, c.Validate(), "%+v", c)
	}
}

func TestAllTasksDone(t *testing.T) {
	assert.False(t, AllTasksDone(nil))
	assert.False(t, AllTasksDone(map[string]bool{"0": true, "1": false}))
	assert.True(t, AllTasksDone(map[string]bool{"0": true, "1": true}))
}

func TestAchievementRuleDefaults(t *testing.T) {
	qm := Achievement{Type: AchievementTypeQuestMaster}
	rule, ok := qm.Rule()
	assert.True(t, ok)
	assert.Equal(t, RequirementCompletedQuestCount, rule.Kind)
	assert.Equal(t, int64(DefaultQuestMasterThreshold), rule.Threshold)

	other := Achievement{Type: "early_bird"}
	_, ok = other.Rule()
	assert.False(t, ok)

	explicit := Achievement{
		Type:         "climber",
		Requirements: datatypes.NewJSONType(AchievementRequirements{Kind: RequirementLevelReached, Threshold: 3}),
	}
	rule, ok = explicit.Rule()
	assert.True(t, ok)
	assert.Equal(t, RequirementLevelReached, rule.Kind)
}

func TestCatalogMethodsOnMapValues(t *testing.T) {
	quests := map[string]Quest{
		"essay": {Requirements: datatypes.NewJSONType(QuestRequirements{
			Kind: RequirementTaskList, Tasks: []string{"outline", "draft"},
		})},
	}
	assert.Equal(t, []string{"outline", "draft"}, quests["essay"].TaskKeys())

	achievements := map[string]Achievement{"qm": {Type: AchievementTypeQuestMaster}}
	rule, ok := achievements["qm"].Rule()
	assert.True(t, ok)
	assert.EqualValues(t, DefaultQuestMasterThreshold, rule.Threshold)
}

package models

import (
	"fmt"
	"strconv"
	"time"

	"gorm.io/datatypes"
)

const (
	QuestTypeResearch    = "research"
	QuestTypeProfile     = "profile"
	QuestTypeEssay       = "essay"
	QuestTypeApplication = "application"
	QuestTypeOther       = "other"
)

// QuestTypes lists the accepted quest type tags.
var QuestTypes = []string{
	QuestTypeResearch,
	QuestTypeProfile,
	QuestTypeEssay,
	QuestTypeApplication,
	QuestTypeOther,
}

// QuestStatus is the lifecycle state of a user's quest.
type QuestStatus string

const (
	QuestStatusNotStarted QuestStatus = "not_started"
	QuestStatusInProgress QuestStatus = "in_progress"
	QuestStatusCompleted  QuestStatus = "completed"
)

const (
	RequirementTaskCount = "task_count"
	RequirementTaskList  = "task_list"
)

// DefaultTaskSlots is used when a quest carries no requirements.
const DefaultTaskSlots = 3

// QuestRequirements describes the tasks that make up a quest.
//
//	{"kind":"task_count","count":4}
//	{"kind":"task_list","tasks":["shortlist","visit","compare"]}
type QuestRequirements struct {
	Kind  string   `json:"kind,omitempty"`
	Count int      `json:"count,omitempty"`
	Tasks []string `json:"tasks,omitempty"`
}

// Validate rejects requirement definitions that cannot produce a task set.
func (r QuestRequirements) Validate() error {
	switch r.Kind {
	case "":
		return nil
	case RequirementTaskCount:
		if r.Count < 1 {
			return fmt.Errorf("task_count requires count >= 1, got %d", r.Count)
		}
		return nil
	case RequirementTaskList:
		if len(r.Tasks) == 0 {
			return fmt.Errorf("task_list requires at least one task")
		}
		seen := make(map[string]struct{}, len(r.Tasks))
		for _, t := range r.Tasks {
			if t == "" {
				return fmt.Errorf("task_list contains an empty task id")
			}
			if _, dup := seen[t]; dup {
				return fmt.Errorf("task_list contains duplicate task id %q", t)
			}
			seen[t] = struct{}{}
		}
		return nil
	default:
		return fmt.Errorf("unknown quest requirement kind %q", r.Kind)
	}
}

// TaskKeys returns the task identifiers a user must complete.
func (r QuestRequirements) TaskKeys() []string {
	switch r.Kind {
	case RequirementTaskList:
		out := make([]string, len(r.Tasks))
		copy(out, r.Tasks)
		return out
	case RequirementTaskCount:
		return slotKeys(r.Count)
	default:
		return slotKeys(DefaultTaskSlots)
	}
}

func slotKeys(n int) []string {
	if n < 1 {
		n = DefaultTaskSlots
	}
	keys := make([]string, n)
	for i := range keys {
		keys[i] = strconv.Itoa(i)
	}
	return keys
}

// Quest is a catalog entry. Rows are never updated after insert.
type Quest struct {
	ID           string                                `gorm:"primaryKey;type:uuid" json:"id"`
	Code         string                                `gorm:"uniqueIndex;not null" json:"code"`
	Title        string                                `gorm:"not null" json:"title"`
	Description  string                                `gorm:"type:text" json:"description"`
	Type         string                                `gorm:"type:varchar(32);not null;default:'other'" json:"type"`
	Points       int64                                 `gorm:"not null" json:"points"`
	Requirements datatypes.JSONType[QuestRequirements] `json:"requirements"`
	SortOrder    int                                   `gorm:"not null;default:0;index" json:"sort_order"`
	CreatedAt    time.Time                             `json:"created_at" gorm:"autoCreateTime"`
}

// TaskKeys is shorthand for q.Requirements.Data().TaskKeys().
func (q Quest) TaskKeys() []string {
	return q.Requirements.Data().TaskKeys()
}

// UserQuest is the per-user progress row for one quest.
// (user_id, quest_id) is unique.
type UserQuest struct {
	ID          string                                `gorm:"primaryKey;type:uuid" json:"id"`
	UserID      string                                `gorm:"not null;uniqueIndex:idx_user_quest" json:"user_id"`
	QuestID     string                                `gorm:"type:uuid;not null;uniqueIndex:idx_user_quest;index" json:"quest_id"`
	Status      QuestStatus                           `gorm:"type:varchar(16);not null;index" json:"status"`
	Progress    datatypes.JSONType[map[string]bool]   `json:"progress"`
	CompletedAt *time.Time                            `json:"completed_at,omitempty"`

	Timestamps
}

// AllTasksDone reports whether every key in the progress map is true.
func AllTasksDone(progress map[string]bool) bool {
	if len(progress) == 0 {
		return false
	}
	for _, done := range progress {
		if !done {
			return false
		}
	}
	return true
}
